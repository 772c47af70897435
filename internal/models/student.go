package models

import "time"

// Student is a learner profile linked to a user account. BatchID is
// nullable: a student without a batch cannot resolve any exam entitlement.
type Student struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	CollegeID   string     `db:"college_id" json:"college_id"`
	BatchID     *string    `db:"batch_id" json:"batch_id,omitempty"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Email       string     `db:"email" json:"email"`
	Mobile      string     `db:"mobile" json:"mobile"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	RollNumber  string     `db:"roll_number" json:"roll_number"`
	ResumePath  string     `db:"resume_path" json:"resume_path,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display and certificates.
func (s *Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentDetail enriches Student with batch context.
type StudentDetail struct {
	Student
	BatchName   *string `db:"batch_name" json:"batch_name,omitempty"`
	CollegeName string  `db:"college_name" json:"college_name"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	CollegeID string
	BatchID   string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
