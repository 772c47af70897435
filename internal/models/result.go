package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Answer records one question's outcome inside a result.
type Answer struct {
	QuestionID     string `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	Correct        bool   `json:"correct"`
	MarksAwarded   int    `json:"marks_awarded"`
}

// AnswerList is stored as a JSON document alongside the result.
type AnswerList []Answer

// Value implements driver.Valuer.
func (l AnswerList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Answer(l))
}

// Scan implements sql.Scanner.
func (l *AnswerList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]Answer)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]Answer)(l))
	default:
		return fmt.Errorf("unsupported answer list source %T", src)
	}
}

// Result is one graded attempt for (student, exam). Immutable once
// written; a re-attempt creates a new record with the next attempt number.
type Result struct {
	ID            string     `db:"id" json:"id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	ExamID        string     `db:"exam_id" json:"exam_id"`
	AttemptNumber int        `db:"attempt_number" json:"attempt_number"`
	Score         int        `db:"score" json:"score"`
	TotalMarks    int        `db:"total_marks" json:"total_marks"`
	Percentage    float64    `db:"percentage" json:"percentage"`
	Passed        bool       `db:"passed" json:"passed"`
	Answers       AnswerList `db:"answers" json:"answers"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	SubmittedAt   time.Time  `db:"submitted_at" json:"submitted_at"`
}

// ResultDetail enriches Result with exam and student context.
type ResultDetail struct {
	Result
	ExamTitle   string `db:"exam_title" json:"exam_title"`
	StudentName string `db:"student_name" json:"student_name"`
	RollNumber  string `db:"roll_number" json:"roll_number"`
}

// ResultFilter captures filtering criteria for listing results.
type ResultFilter struct {
	StudentID string
	ExamID    string
	Passed    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
