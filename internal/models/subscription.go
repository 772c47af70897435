package models

import (
	"math"
	"time"
)

// SubscriptionStatus is the stored lifecycle state of a purchase.
type SubscriptionStatus string

// Possible subscription statuses.
const (
	SubscriptionStatusPending   SubscriptionStatus = "PENDING"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// StudentSubscription links a student to a purchased plan. The stored
// status can lag behind the real expiry; callers must derive validity
// from EndDate rather than trusting the enum alone.
type StudentSubscription struct {
	ID         string             `db:"id" json:"id"`
	StudentID  string             `db:"student_id" json:"student_id"`
	PlanID     string             `db:"plan_id" json:"plan_id"`
	Status     SubscriptionStatus `db:"status" json:"status"`
	StartDate  time.Time          `db:"start_date" json:"start_date"`
	EndDate    time.Time          `db:"end_date" json:"end_date"`
	OrderID    string             `db:"order_id" json:"order_id,omitempty"`
	PaymentID  string             `db:"payment_id" json:"payment_id,omitempty"`
	AmountPaid int64              `db:"amount_paid" json:"amount_paid"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

// IsCurrent reports whether the subscription grants access at the given
// instant: stored status active AND end date not yet passed.
func (s *StudentSubscription) IsCurrent(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && !s.EndDate.Before(now)
}

// DaysUntilExpiry returns ceil((endDate-now)/24h). Zero or negative means
// the subscription has lapsed.
func (s *StudentSubscription) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(s.EndDate.Sub(now).Hours() / 24))
}

// SubscriptionState is the derived standing shown on the dashboard. It
// collapses the stored status and the clock into one renderable value.
type SubscriptionState string

// Derived subscription states.
const (
	SubscriptionStateNoBatch   SubscriptionState = "NO_BATCH"
	SubscriptionStateNoPlan    SubscriptionState = "NO_PLAN"
	SubscriptionStateRequired  SubscriptionState = "REQUIRED"
	SubscriptionStateActive    SubscriptionState = "ACTIVE"
	SubscriptionStateExpired   SubscriptionState = "EXPIRED"
	SubscriptionStateSuspended SubscriptionState = "SUSPENDED"
)

// SubscriptionSnapshot is the subscription side of the entitlement chain
// resolved without reference to a specific exam.
type SubscriptionSnapshot struct {
	State           SubscriptionState    `json:"state"`
	RequiredPlan    *SubscriptionPlan    `json:"required_plan,omitempty"`
	Subscription    *StudentSubscription `json:"subscription,omitempty"`
	DaysUntilExpiry int                  `json:"days_until_expiry,omitempty"`
}

// SubscriptionDetail enriches a subscription with its plan.
type SubscriptionDetail struct {
	StudentSubscription
	PlanName       string `db:"plan_name" json:"plan_name"`
	PlanPrice      int64  `db:"plan_price" json:"plan_price"`
	DurationMonths int    `db:"duration_months" json:"duration_months"`
}

// SubscriptionFilter captures filtering criteria for listing subscriptions.
type SubscriptionFilter struct {
	StudentID string
	PlanID    string
	Status    SubscriptionStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
