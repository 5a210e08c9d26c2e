package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

// SeatRepository owns the seat bucket ledger. Every occupancy mutation is a
// single conditional UPDATE with an affected-row check; the count is never
// read and written back in separate statements.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository constructs the repository.
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// List returns the buckets configured for an academic year.
func (r *SeatRepository) List(ctx context.Context, academicYear string) ([]models.SeatBucket, error) {
	const query = `SELECT id, academic_year, level, grade, shift, total_seats, occupied_seats, generation, created_at, updated_at
        FROM seat_buckets WHERE academic_year = $1 ORDER BY level, grade, shift`
	var buckets []models.SeatBucket
	if err := r.db.SelectContext(ctx, &buckets, query, academicYear); err != nil {
		return nil, fmt.Errorf("list seat buckets: %w", err)
	}
	return buckets, nil
}

// FindByKey returns a single bucket.
func (r *SeatRepository) FindByKey(ctx context.Context, key models.SeatKey) (*models.SeatBucket, error) {
	const query = `SELECT id, academic_year, level, grade, shift, total_seats, occupied_seats, generation, created_at, updated_at
        FROM seat_buckets WHERE academic_year = $1 AND level = $2 AND grade = $3 AND shift = $4`
	var bucket models.SeatBucket
	if err := r.db.GetContext(ctx, &bucket, query, key.AcademicYear, key.Level, key.Grade, key.Shift); err != nil {
		return nil, err
	}
	return &bucket, nil
}

// Configure creates or resizes a bucket idempotently. Shrinking below the
// current occupancy is refused so the ledger invariant cannot be broken by
// staff configuration.
func (r *SeatRepository) Configure(ctx context.Context, key models.SeatKey, totalSeats int) (*models.SeatBucket, error) {
	const query = `INSERT INTO seat_buckets (id, academic_year, level, grade, shift, total_seats, occupied_seats, generation, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, 0, NOW(), NOW())
        ON CONFLICT (academic_year, level, grade, shift)
        DO UPDATE SET total_seats = EXCLUDED.total_seats, updated_at = NOW()
        WHERE seat_buckets.occupied_seats <= EXCLUDED.total_seats
        RETURNING id, academic_year, level, grade, shift, total_seats, occupied_seats, generation, created_at, updated_at`
	var bucket models.SeatBucket
	err := r.db.GetContext(ctx, &bucket, query, uuid.NewString(), key.AcademicYear, key.Level, key.Grade, key.Shift, totalSeats)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrInvalidResize
		}
		return nil, fmt.Errorf("configure seat bucket: %w", err)
	}
	return &bucket, nil
}

// Reserve atomically takes one seat from the bucket.
func (r *SeatRepository) Reserve(ctx context.Context, key models.SeatKey) (*models.ReservationToken, error) {
	return r.ReserveTx(ctx, r.db, key)
}

// ReserveTx is the transaction-scoped variant so callers can pair the seat
// decrement with other writes. The conditional update loses to a concurrent
// reservation rather than over-booking: the row predicate re-checks capacity
// under the row lock.
func (r *SeatRepository) ReserveTx(ctx context.Context, q sqlx.ExtContext, key models.SeatKey) (*models.ReservationToken, error) {
	const query = `UPDATE seat_buckets
        SET occupied_seats = occupied_seats + 1, generation = generation + 1, updated_at = NOW()
        WHERE academic_year = $1 AND level = $2 AND grade = $3 AND shift = $4 AND occupied_seats < total_seats
        RETURNING id, generation`
	var token models.ReservationToken
	err := sqlx.GetContext(ctx, q, &token, query, key.AcademicYear, key.Level, key.Grade, key.Shift)
	if err == nil {
		return &token, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("reserve seat: %w", err)
	}

	exists, err := r.bucketExists(ctx, q, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "seat bucket not found")
	}
	return nil, appErrors.ErrNoSeatsAvailable
}

// Release returns one seat to the bucket.
func (r *SeatRepository) Release(ctx context.Context, key models.SeatKey) error {
	return r.ReleaseTx(ctx, r.db, key)
}

// ReleaseTx decrements occupancy without ever crossing zero. A zero-row
// update on an existing bucket means release was called without a matching
// reserve, which is a caller bug surfaced as SeatUnderflow.
func (r *SeatRepository) ReleaseTx(ctx context.Context, q sqlx.ExtContext, key models.SeatKey) error {
	const query = `UPDATE seat_buckets
        SET occupied_seats = occupied_seats - 1, updated_at = NOW()
        WHERE academic_year = $1 AND level = $2 AND grade = $3 AND shift = $4 AND occupied_seats > 0`
	res, err := q.ExecContext(ctx, query, key.AcademicYear, key.Level, key.Grade, key.Shift)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := r.bucketExists(ctx, q, key)
	if err != nil {
		return err
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "seat bucket not found")
	}
	return appErrors.ErrSeatUnderflow
}

func (r *SeatRepository) bucketExists(ctx context.Context, q sqlx.ExtContext, key models.SeatKey) (bool, error) {
	const query = `SELECT 1 FROM seat_buckets WHERE academic_year = $1 AND level = $2 AND grade = $3 AND shift = $4`
	var one int
	err := sqlx.GetContext(ctx, q, &one, query, key.AcademicYear, key.Level, key.Grade, key.Shift)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check seat bucket: %w", err)
	}
	return true, nil
}
