package models

import "time"

// BatchPlanAssignment entitles a batch to a subscription plan. A batch may
// carry several assignments; resolution picks the newest active one.
type BatchPlanAssignment struct {
	ID         string    `db:"id" json:"id"`
	CollegeID  string    `db:"college_id" json:"college_id"`
	BatchID    string    `db:"batch_id" json:"batch_id"`
	PlanID     string    `db:"plan_id" json:"plan_id"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// BatchPlanAssignmentDetail enriches the link with batch and plan names.
type BatchPlanAssignmentDetail struct {
	BatchPlanAssignment
	BatchName string `db:"batch_name" json:"batch_name"`
	PlanName  string `db:"plan_name" json:"plan_name"`
	PlanPrice int64  `db:"plan_price" json:"plan_price"`
}

// BatchPlanAssignmentFilter filters assignment listings.
type BatchPlanAssignmentFilter struct {
	CollegeID string
	BatchID   string
	PlanID    string
	Active    *bool
	Page      int
	PageSize  int
}

// ExamBatchAssignment grants a batch access to an exam. An exam is visible
// to a student only if their batch holds an active assignment to it.
type ExamBatchAssignment struct {
	ID         string    `db:"id" json:"id"`
	ExamID     string    `db:"exam_id" json:"exam_id"`
	BatchID    string    `db:"batch_id" json:"batch_id"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ExamBatchAssignmentDetail enriches the link for the admin listing.
type ExamBatchAssignmentDetail struct {
	ExamBatchAssignment
	ExamTitle string `db:"exam_title" json:"exam_title"`
	BatchName string `db:"batch_name" json:"batch_name"`
}

// ExamAssignmentGroup groups assignments under one exam for the admin UI.
type ExamAssignmentGroup struct {
	ExamID    string                      `json:"exam_id"`
	ExamTitle string                      `json:"exam_title"`
	Batches   []ExamBatchAssignmentDetail `json:"batches"`
}
