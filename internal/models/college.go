package models

import "time"

// College is the tenant root. Every batch, plan, exam and student is
// scoped to exactly one college.
type College struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Code            string    `db:"code" json:"code"`
	Address         string    `db:"address" json:"address"`
	ContactEmail    string    `db:"contact_email" json:"contact_email"`
	ContactPhone    string    `db:"contact_phone" json:"contact_phone"`
	PrimaryColor    string    `db:"primary_color" json:"primary_color"`
	SecondaryColor  string    `db:"secondary_color" json:"secondary_color"`
	LogoPath        string    `db:"logo_path" json:"logo_path,omitempty"`
	MaxStudents     int       `db:"max_students" json:"max_students"`
	CurrentStudents int       `db:"current_students" json:"current_students"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// HasCapacity reports whether the college can take another student.
// A zero max means unlimited.
func (c *College) HasCapacity() bool {
	if c.MaxStudents <= 0 {
		return true
	}
	return c.CurrentStudents < c.MaxStudents
}

// CollegeFilter captures search parameters for listing colleges.
type CollegeFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
