package models

import "time"

// IncidentType classifies a proctoring anomaly.
type IncidentType string

// Known incident types reported by the exam runtime.
const (
	IncidentTabSwitch      IncidentType = "TAB_SWITCH"
	IncidentCopyAttempt    IncidentType = "COPY_ATTEMPT"
	IncidentWindowBlur     IncidentType = "WINDOW_BLUR"
	IncidentFullscreenExit IncidentType = "FULLSCREEN_EXIT"
	IncidentOther          IncidentType = "OTHER"
)

// SecurityIncident is one proctoring anomaly tied to (student, exam).
type SecurityIncident struct {
	ID         string       `db:"id" json:"id"`
	StudentID  string       `db:"student_id" json:"student_id"`
	ExamID     string       `db:"exam_id" json:"exam_id"`
	Type       IncidentType `db:"type" json:"type"`
	Details    string       `db:"details" json:"details,omitempty"`
	OccurredAt time.Time    `db:"occurred_at" json:"occurred_at"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// IncidentDetail enriches an incident for the admin listing.
type IncidentDetail struct {
	SecurityIncident
	StudentName string `db:"student_name" json:"student_name"`
	RollNumber  string `db:"roll_number" json:"roll_number"`
	ExamTitle   string `db:"exam_title" json:"exam_title"`
}

// IncidentSummary aggregates incident counts per student for analytics.
type IncidentSummary struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	ExamID      string `db:"exam_id" json:"exam_id"`
	Total       int    `db:"total" json:"total"`
	TabSwitches int    `db:"tab_switches" json:"tab_switches"`
	CopyEvents  int    `db:"copy_events" json:"copy_events"`
}

// IncidentFilter captures filtering criteria for listing incidents.
type IncidentFilter struct {
	StudentID string
	ExamID    string
	Type      IncidentType
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
