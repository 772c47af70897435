package models

import "time"

// Batch is a cohort of students grouped by subject, year and department
// within one college. A batch is not directly priced; it gains exam access
// through a plan assignment.
type Batch struct {
	ID         string    `db:"id" json:"id"`
	CollegeID  string    `db:"college_id" json:"college_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	Name       string    `db:"name" json:"name"`
	Year       int       `db:"year" json:"year"`
	Department string    `db:"department" json:"department"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// BatchDetail enriches Batch with subject and headcount context.
type BatchDetail struct {
	Batch
	SubjectName  string `db:"subject_name" json:"subject_name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// BatchFilter captures filtering criteria for listing batches.
type BatchFilter struct {
	CollegeID  string
	SubjectID  string
	Year       int
	Department string
	Search     string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
