package models

import "time"

// Student represents a learner registered in the institution. Students are
// deactivated, never hard-deleted.
type Student struct {
	ID         string    `db:"id" json:"id"`
	NationalID string    `db:"national_id" json:"national_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	BirthDate  time.Time `db:"birth_date" json:"birth_date"`
	Level      Level     `db:"level" json:"level"`
	Grade      string    `db:"grade" json:"grade"`
	Shift      Shift     `db:"shift" json:"shift"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Guardian is the contact person attached to a student.
type Guardian struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	NationalID   string    `db:"national_id" json:"national_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	Relationship string    `db:"relationship" json:"relationship"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StudentDetail joins a student with its guardian contact info.
type StudentDetail struct {
	Student
	GuardianName  *string `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone *string `db:"guardian_phone" json:"guardian_phone,omitempty"`
	GuardianEmail *string `db:"guardian_email" json:"guardian_email,omitempty"`
}

// HasContact reports whether at least one notification channel is available.
func (d StudentDetail) HasContact() bool {
	return (d.GuardianEmail != nil && *d.GuardianEmail != "") ||
		(d.GuardianPhone != nil && *d.GuardianPhone != "")
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Level     Level
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
