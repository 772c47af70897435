package models

import "time"

// Subject is a college-scoped academic discipline.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	CollegeID string    `db:"college_id" json:"college_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Course belongs to a subject within a college.
type Course struct {
	ID          string    `db:"id" json:"id"`
	CollegeID   string    `db:"college_id" json:"college_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with subject context.
type CourseDetail struct {
	Course
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// TaxonomyFilter filters subject and course listings.
type TaxonomyFilter struct {
	CollegeID string
	SubjectID string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
