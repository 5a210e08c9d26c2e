package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

// EnrollmentRepository handles persistence of enrollment records. Intake and
// rejection span the record and its seat bucket inside one transaction so a
// crash can never leave an orphaned hold or a double-released seat.
type EnrollmentRepository struct {
	db       *sqlx.DB
	seats    *SeatRepository
	students *StudentRepository
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB, seats *SeatRepository, students *StudentRepository) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, seats: seats, students: students}
}

const enrollmentDetailColumns = `m.id, m.student_id, m.bucket_id, m.academic_year, m.level, m.grade, m.shift,
        m.fee_amount, m.state, m.voucher_ref, m.documents_complete, m.certificate_issued,
        m.submitted_at, m.ratified_at, m.paid_at,
        s.full_name AS student_name, s.national_id AS student_national_id,
        g.full_name AS guardian_name, g.national_id AS guardian_national_id,
        g.phone AS guardian_phone, g.email AS guardian_email`

const enrollmentDetailJoins = `FROM enrollments m
        JOIN students s ON s.id = m.student_id
        LEFT JOIN guardians g ON g.student_id = s.id`

// List returns enrollment records filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("m.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("m.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("m.state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("m.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"submitted_at": "m.submitted_at",
		"student_name": "s.full_name",
		"state":        "m.state",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "m.submitted_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		enrollmentDetailColumns, enrollmentDetailJoins+clause, orderBy, order, size, offset)

	var records []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", enrollmentDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return records, total, nil
}

// FindByID returns an enrollment record by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRecord, error) {
	const query = `SELECT id, student_id, bucket_id, academic_year, level, grade, shift, fee_amount, state,
        voucher_ref, documents_complete, certificate_issued, submitted_at, ratified_at, paid_at
        FROM enrollments WHERE id = $1`
	var record models.EnrollmentRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindDetailByID returns an enrollment with student and guardian context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE m.id = $1`, enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateIntake runs the public enrollment intake as one transaction:
// resolve-or-create the student and guardian, reserve a seat, insert the
// pending record. Any failure rolls the whole intake back, including the
// seat hold.
func (r *EnrollmentRepository) CreateIntake(ctx context.Context, student *models.Student, guardian *models.Guardian, record *models.EnrollmentRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin intake: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := r.students.FindByNationalIDTx(ctx, tx, student.NationalID)
	switch {
	case err == nil:
		student.ID = existing.ID
	case isNoRows(err):
		if err := r.students.CreateTx(ctx, tx, student); err != nil {
			return err
		}
	default:
		return fmt.Errorf("resolve student: %w", err)
	}

	if guardian != nil {
		guardian.StudentID = student.ID
		if err := r.students.UpsertGuardianTx(ctx, tx, guardian); err != nil {
			return err
		}
	}

	token, err := r.seats.ReserveTx(ctx, tx, models.SeatKey{
		AcademicYear: record.AcademicYear,
		Level:        record.Level,
		Grade:        record.Grade,
		Shift:        record.Shift,
	})
	if err != nil {
		return err
	}
	record.BucketID = token.BucketID
	record.StudentID = student.ID

	if err := r.insertRecordTx(ctx, tx, record); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateManual inserts a staff-verified record, reserving its seat in the
// same transaction.
func (r *EnrollmentRepository) CreateManual(ctx context.Context, record *models.EnrollmentRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manual enrollment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	token, err := r.seats.ReserveTx(ctx, tx, models.SeatKey{
		AcademicYear: record.AcademicYear,
		Level:        record.Level,
		Grade:        record.Grade,
		Shift:        record.Shift,
	})
	if err != nil {
		return err
	}
	record.BucketID = token.BucketID

	if err := r.insertRecordTx(ctx, tx, record); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *EnrollmentRepository) insertRecordTx(ctx context.Context, q sqlx.ExtContext, record *models.EnrollmentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, bucket_id, academic_year, level, grade, shift, fee_amount,
        state, voucher_ref, documents_complete, certificate_issued, submitted_at, ratified_at, paid_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := q.ExecContext(ctx, query, record.ID, record.StudentID, record.BucketID, record.AcademicYear,
		record.Level, record.Grade, record.Shift, record.FeeAmount, record.State, record.VoucherRef,
		record.DocumentsComplete, record.CertificateIssued, record.SubmittedAt, record.RatifiedAt, record.PaidAt); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateState moves a record to a non-rejecting state. The write is
// conditional on the caller's observed state so two concurrent reviewers
// cannot both win a race from the same read. Completion stamps ratified_at
// on first arrival.
func (r *EnrollmentRepository) UpdateState(ctx context.Context, id string, from, to models.EnrollmentState, documentsComplete bool) error {
	const query = `UPDATE enrollments
        SET state = $2, documents_complete = $3,
            ratified_at = CASE WHEN $2 = 'COMPLETED' THEN COALESCE(ratified_at, NOW()) ELSE ratified_at END
        WHERE id = $1 AND state = $4`
	res, err := r.db.ExecContext(ctx, query, id, to, documentsComplete, from)
	if err != nil {
		return fmt.Errorf("update enrollment state: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment state: %w", err)
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment state changed concurrently")
	}
	return nil
}

// RejectAndRelease applies a terminal rejection and returns the seat to its
// bucket in the same transaction. The state write only matches non-terminal
// records; when a concurrent transition already resolved the record, nothing
// is released and the rejection is refused.
func (r *EnrollmentRepository) RejectAndRelease(ctx context.Context, record *models.EnrollmentRecord, documentsComplete bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rejection: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE enrollments SET state = $2, documents_complete = $3
        WHERE id = $1 AND state NOT IN ($4, $5)`
	res, err := tx.ExecContext(ctx, query, record.ID, models.EnrollmentStateRejected, documentsComplete,
		models.EnrollmentStateCompleted, models.EnrollmentStateRejected)
	if err != nil {
		return fmt.Errorf("reject enrollment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject enrollment: %w", err)
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment already resolved")
	}

	if err := r.seats.ReleaseTx(ctx, tx, models.SeatKey{
		AcademicYear: record.AcademicYear,
		Level:        record.Level,
		Grade:        record.Grade,
		Shift:        record.Shift,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkCertificateIssued flags the record after a successful render.
func (r *EnrollmentRepository) MarkCertificateIssued(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET certificate_issued = true WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark certificate issued: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
