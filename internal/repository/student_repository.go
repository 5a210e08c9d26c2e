package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uns-cex/matricula-api/internal/models"
)

// StudentRepository handles persistence of students and their guardians.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.national_id, s.full_name, s.birth_date, s.level, s.grade, s.shift, s.active, s.created_at, s.updated_at,
        g.full_name AS guardian_name, g.phone AS guardian_phone, g.email AS guardian_email`

// List returns students filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s LEFT JOIN guardians g ON g.student_id = s.id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.full_name ILIKE $%d OR s.national_id = $%d)", len(args)+1, len(args)+2))
		args = append(args, "%"+filter.Search+"%", filter.Search)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("s.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"full_name":  "s.full_name",
		"created_at": "s.created_at",
		"level":      "s.level",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.created_at"
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
		studentDetailColumns, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with guardian contact info.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s LEFT JOIN guardians g ON g.student_id = s.id WHERE s.id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByNationalID returns the student matched by national id, if any.
func (r *StudentRepository) FindByNationalID(ctx context.Context, nationalID string) (*models.Student, error) {
	const query = `SELECT id, national_id, full_name, birth_date, level, grade, shift, active, created_at, updated_at
        FROM students WHERE national_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, nationalID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByNationalIDTx is the transaction-scoped lookup used by enrollment intake.
func (r *StudentRepository) FindByNationalIDTx(ctx context.Context, q sqlx.ExtContext, nationalID string) (*models.Student, error) {
	const query = `SELECT id, national_id, full_name, birth_date, level, grade, shift, active, created_at, updated_at
        FROM students WHERE national_id = $1`
	var student models.Student
	if err := sqlx.GetContext(ctx, q, &student, query, nationalID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create persists a student together with its guardian.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student, guardian *models.Guardian) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := r.CreateTx(ctx, tx, student); err != nil {
		return err
	}
	if guardian != nil {
		guardian.StudentID = student.ID
		if err := r.UpsertGuardianTx(ctx, tx, guardian); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateTx inserts the student row within an existing transaction.
func (r *StudentRepository) CreateTx(ctx context.Context, q sqlx.ExtContext, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	student.Active = true

	const query = `INSERT INTO students (id, national_id, full_name, birth_date, level, grade, shift, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := q.ExecContext(ctx, query, student.ID, student.NationalID, student.FullName, student.BirthDate,
		student.Level, student.Grade, student.Shift, student.Active, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpsertGuardianTx creates or refreshes the guardian attached to a student.
func (r *StudentRepository) UpsertGuardianTx(ctx context.Context, q sqlx.ExtContext, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	if guardian.Relationship == "" {
		guardian.Relationship = "Padre"
	}
	guardian.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO guardians (id, student_id, national_id, full_name, phone, email, relationship, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (student_id)
        DO UPDATE SET national_id = EXCLUDED.national_id, full_name = EXCLUDED.full_name,
            phone = EXCLUDED.phone, email = EXCLUDED.email, relationship = EXCLUDED.relationship`
	if _, err := q.ExecContext(ctx, query, guardian.ID, guardian.StudentID, guardian.NationalID, guardian.FullName,
		guardian.Phone, guardian.Email, guardian.Relationship, guardian.CreatedAt); err != nil {
		return fmt.Errorf("upsert guardian: %w", err)
	}
	return nil
}

// Update modifies the mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET full_name = $2, level = $3, grade = $4, shift = $5, active = $6, updated_at = NOW()
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, student.ID, student.FullName, student.Level, student.Grade, student.Shift, student.Active); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks the student inactive. Students are never hard-deleted.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = false, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActive returns every active student with guardian contact columns,
// used by bulk ratification.
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s LEFT JOIN guardians g ON g.student_id = s.id
        WHERE s.active = true ORDER BY s.full_name`, studentDetailColumns)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}
