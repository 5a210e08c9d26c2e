package models

import "time"

// Level identifies an educational level.
type Level string

// Shift identifies the attendance shift.
type Shift string

// Educational levels and shifts offered by the institution.
const (
	LevelInicial    Level = "Inicial"
	LevelPrimaria   Level = "Primaria"
	LevelSecundaria Level = "Secundaria"

	ShiftManana Shift = "Mañana"
	ShiftTarde  Shift = "Tarde"
)

// ValidLevel reports whether the value is a known level.
func ValidLevel(l Level) bool {
	switch l {
	case LevelInicial, LevelPrimaria, LevelSecundaria:
		return true
	}
	return false
}

// ValidShift reports whether the value is a known shift.
func ValidShift(s Shift) bool {
	switch s {
	case ShiftManana, ShiftTarde:
		return true
	}
	return false
}

// SeatKey uniquely addresses a seat bucket.
type SeatKey struct {
	AcademicYear string `json:"academic_year" validate:"required"`
	Level        Level  `json:"level" validate:"required"`
	Grade        string `json:"grade" validate:"required"`
	Shift        Shift  `json:"shift" validate:"required"`
}

// SeatBucket is one row of the seat ledger. The database guarantees
// 0 <= occupied_seats <= total_seats; the struct never enforces it in
// application code.
type SeatBucket struct {
	ID            string    `db:"id" json:"id"`
	AcademicYear  string    `db:"academic_year" json:"academic_year"`
	Level         Level     `db:"level" json:"level"`
	Grade         string    `db:"grade" json:"grade"`
	Shift         Shift     `db:"shift" json:"shift"`
	TotalSeats    int       `db:"total_seats" json:"total_seats"`
	OccupiedSeats int       `db:"occupied_seats" json:"occupied_seats"`
	Generation    int64     `db:"generation" json:"generation"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableSeats returns the remaining capacity.
func (b SeatBucket) AvailableSeats() int {
	return b.TotalSeats - b.OccupiedSeats
}

// Key returns the bucket's addressing key.
func (b SeatBucket) Key() SeatKey {
	return SeatKey{AcademicYear: b.AcademicYear, Level: b.Level, Grade: b.Grade, Shift: b.Shift}
}

// ReservationToken proves a successful seat reservation. Generation is the
// bucket's monotonically increasing reservation counter at grant time.
type ReservationToken struct {
	BucketID   string `db:"id" json:"bucket_id"`
	Generation int64  `db:"generation" json:"generation"`
}
