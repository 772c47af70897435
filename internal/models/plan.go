package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// SubscriptionPlan is a priced, timed bundle of exam access. A plan with
// Default set acts as the fallback entitlement for batches that have no
// explicit assignment.
type SubscriptionPlan struct {
	ID             string         `db:"id" json:"id"`
	CollegeID      string         `db:"college_id" json:"college_id"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	Price          int64          `db:"price" json:"price"`
	DurationMonths int            `db:"duration_months" json:"duration_months"`
	Features       pq.StringArray `db:"features" json:"features"`
	Active         bool           `db:"active" json:"active"`
	Default        bool           `db:"is_default" json:"is_default"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// FormatPrice renders the price in rupees with Indian digit grouping,
// e.g. 1000 -> "₹1,000" and 150000 -> "₹1,50,000".
func (p *SubscriptionPlan) FormatPrice() string {
	return "₹" + groupIndian(p.Price)
}

// DurationText renders the plan duration for display: "6 months",
// "1 year", "1 year 2 months".
func (p *SubscriptionPlan) DurationText() string {
	months := p.DurationMonths
	if months <= 0 {
		return "0 months"
	}
	years := months / 12
	rem := months % 12

	var out string
	switch {
	case years == 1:
		out = "1 year"
	case years > 1:
		out = fmt.Sprintf("%d years", years)
	}
	if rem > 0 {
		part := fmt.Sprintf("%d months", rem)
		if rem == 1 {
			part = "1 month"
		}
		if out == "" {
			return part
		}
		out += " " + part
	}
	return out
}

// groupIndian applies the Indian numbering comma convention: the last three
// digits form one group, every preceding pair forms another.
func groupIndian(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		head := s[:len(s)-3]
		out := s[len(s)-3:]
		for len(head) > 2 {
			out = head[len(head)-2:] + "," + out
			head = head[:len(head)-2]
		}
		s = head + "," + out
	}
	if neg {
		return "-" + s
	}
	return s
}

// PlanFilter captures filtering criteria for listing plans.
type PlanFilter struct {
	CollegeID string
	Search    string
	Active    *bool
	Default   *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
