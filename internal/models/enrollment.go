package models

import "time"

// EnrollmentState represents the review state of an enrollment record.
type EnrollmentState string

// Enrollment review states. COMPLETED and REJECTED are terminal.
const (
	EnrollmentStatePending   EnrollmentState = "PENDING"
	EnrollmentStateInReview  EnrollmentState = "IN_REVIEW"
	EnrollmentStateCompleted EnrollmentState = "COMPLETED"
	EnrollmentStateRejected  EnrollmentState = "REJECTED"
)

var enrollmentTransitions = map[EnrollmentState][]EnrollmentState{
	EnrollmentStatePending:  {EnrollmentStateInReview, EnrollmentStateCompleted, EnrollmentStateRejected},
	EnrollmentStateInReview: {EnrollmentStateCompleted, EnrollmentStateRejected},
}

// ValidEnrollmentState reports whether the value is a known state.
func ValidEnrollmentState(s EnrollmentState) bool {
	switch s {
	case EnrollmentStatePending, EnrollmentStateInReview, EnrollmentStateCompleted, EnrollmentStateRejected:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to EnrollmentState) bool {
	for _, next := range enrollmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s EnrollmentState) Terminal() bool {
	return s == EnrollmentStateCompleted || s == EnrollmentStateRejected
}

// HoldsSeat reports whether a record in this state still owns a seat
// reservation. Only rejection returns the seat to the pool.
func (s EnrollmentState) HoldsSeat() bool {
	return s != EnrollmentStateRejected
}

// EnrollmentRecord is the per-student, per-year application moving through
// the review workflow. Records are never deleted.
type EnrollmentRecord struct {
	ID                string          `db:"id" json:"id"`
	StudentID         string          `db:"student_id" json:"student_id"`
	BucketID          string          `db:"bucket_id" json:"bucket_id"`
	AcademicYear      string          `db:"academic_year" json:"academic_year"`
	Level             Level           `db:"level" json:"level"`
	Grade             string          `db:"grade" json:"grade"`
	Shift             Shift           `db:"shift" json:"shift"`
	FeeAmount         float64         `db:"fee_amount" json:"fee_amount"`
	State             EnrollmentState `db:"state" json:"state"`
	VoucherRef        string          `db:"voucher_ref" json:"voucher_ref"`
	DocumentsComplete bool            `db:"documents_complete" json:"documents_complete"`
	CertificateIssued bool            `db:"certificate_issued" json:"certificate_issued"`
	SubmittedAt       time.Time       `db:"submitted_at" json:"submitted_at"`
	RatifiedAt        *time.Time      `db:"ratified_at" json:"ratified_at,omitempty"`
	PaidAt            *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
}

// EnrollmentDetail enriches a record with student and guardian context.
type EnrollmentDetail struct {
	EnrollmentRecord
	StudentName        string  `db:"student_name" json:"student_name"`
	StudentNationalID  string  `db:"student_national_id" json:"student_national_id"`
	GuardianName       *string `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianNationalID *string `db:"guardian_national_id" json:"guardian_national_id,omitempty"`
	GuardianPhone      *string `db:"guardian_phone" json:"guardian_phone,omitempty"`
	GuardianEmail      *string `db:"guardian_email" json:"guardian_email,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollment records.
type EnrollmentFilter struct {
	AcademicYear string
	Level        Level
	State        EnrollmentState
	StudentID    string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
