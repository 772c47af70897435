package models

// DecisionKind names every distinct outcome of entitlement resolution.
// Each denial maps to its own UI panel, so a boolean is not enough.
type DecisionKind string

const (
	DecisionAllowed              DecisionKind = "ALLOWED"
	DecisionNotFound             DecisionKind = "NOT_FOUND"
	DecisionNoBatchAssigned      DecisionKind = "NO_BATCH_ASSIGNED"
	DecisionNoPlanAssigned       DecisionKind = "NO_PLAN_ASSIGNED"
	DecisionSubscriptionRequired DecisionKind = "SUBSCRIPTION_REQUIRED"
	DecisionExpired              DecisionKind = "EXPIRED"
	DecisionSuspended            DecisionKind = "SUSPENDED"
	DecisionExamNotAssigned      DecisionKind = "EXAM_NOT_ASSIGNED"
	DecisionMaxAttemptsReached   DecisionKind = "MAX_ATTEMPTS_REACHED"
)

// Decision is the outcome of "can student S attempt exam E right now?".
// Denials carry enough structured data for the client to render the next
// action: subscribe, renew, or contact an administrator.
type Decision struct {
	Kind            DecisionKind         `json:"kind"`
	Allowed         bool                 `json:"allowed"`
	Message         string               `json:"message"`
	RequiredPlan    *SubscriptionPlan    `json:"required_plan,omitempty"`
	Subscription    *StudentSubscription `json:"subscription,omitempty"`
	DaysUntilExpiry int                  `json:"days_until_expiry,omitempty"`
	AttemptsUsed    int                  `json:"attempts_used"`
	MaxAttempts     int                  `json:"max_attempts,omitempty"`
}
