package models

import "time"

// Exam belongs to a course and defines the attempt rules.
type Exam struct {
	ID              string    `db:"id" json:"id"`
	CollegeID       string    `db:"college_id" json:"college_id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	TotalMarks      int       `db:"total_marks" json:"total_marks"`
	PassPercentage  float64   `db:"pass_percentage" json:"pass_percentage"`
	MaxAttempts     int       `db:"max_attempts" json:"max_attempts"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ExamDetail enriches Exam with course context and question count.
type ExamDetail struct {
	Exam
	CourseName    string `db:"course_name" json:"course_name"`
	QuestionCount int    `db:"question_count" json:"question_count"`
}

// ExamFilter captures filtering criteria for listing exams.
type ExamFilter struct {
	CollegeID string
	CourseID  string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
