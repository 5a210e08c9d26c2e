package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

func newEnrollmentRepoMock(t *testing.T) (*EnrollmentRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewEnrollmentRepository(sqlxDB, NewSeatRepository(sqlxDB), NewStudentRepository(sqlxDB))
	return repo, mock, func() { db.Close() }
}

func testRecord() *models.EnrollmentRecord {
	return &models.EnrollmentRecord{
		AcademicYear: "2026",
		Level:        models.LevelInicial,
		Grade:        "4 años",
		Shift:        models.ShiftManana,
		FeeAmount:    130,
		State:        models.EnrollmentStatePending,
	}
}

func TestEnrollmentRepositoryCreateManualReservesSeatInTx(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE seat_buckets\s+SET occupied_seats = occupied_seats \+ 1`).
		WithArgs("2026", models.LevelInicial, "4 años", models.ShiftManana).
		WillReturnRows(sqlmock.NewRows([]string{"id", "generation"}).AddRow("bucket-1", int64(7)))
	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record := testRecord()
	record.StudentID = "stu-1"
	require.NoError(t, repo.CreateManual(context.Background(), record))
	require.Equal(t, "bucket-1", record.BucketID)
	require.NotEmpty(t, record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateManualRollsBackWhenFull(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE seat_buckets\s+SET occupied_seats = occupied_seats \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "generation"}))
	mock.ExpectQuery(`SELECT 1 FROM seat_buckets`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	record := testRecord()
	record.StudentID = "stu-1"
	err := repo.CreateManual(context.Background(), record)
	require.True(t, appErrors.Is(err, appErrors.ErrNoSeatsAvailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateIntakeCreatesStudentAndGuardian(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, national_id, full_name, birth_date, level, grade, shift, active, created_at, updated_at\s+FROM students WHERE national_id = \$1`).
		WithArgs("12345678").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO students`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO guardians`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE seat_buckets\s+SET occupied_seats = occupied_seats \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "generation"}).AddRow("bucket-1", int64(1)))
	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := &models.Student{
		NationalID: "12345678",
		FullName:   "Ana Torres",
		BirthDate:  time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC),
		Level:      models.LevelInicial,
		Grade:      "4 años",
		Shift:      models.ShiftManana,
	}
	guardian := &models.Guardian{NationalID: "87654321", FullName: "Rosa Torres", Email: "rosa@example.com"}
	record := testRecord()

	require.NoError(t, repo.CreateIntake(context.Background(), student, guardian, record))
	require.NotEmpty(t, student.ID)
	require.Equal(t, student.ID, record.StudentID)
	require.Equal(t, "bucket-1", record.BucketID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRejectAndReleaseIsAtomic(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE enrollments SET state = \$2, documents_complete = \$3\s+WHERE id = \$1 AND state NOT IN \(\$4, \$5\)`).
		WithArgs("enr-1", models.EnrollmentStateRejected, false, models.EnrollmentStateCompleted, models.EnrollmentStateRejected).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE seat_buckets\s+SET occupied_seats = occupied_seats - 1`).
		WithArgs("2026", models.LevelInicial, "4 años", models.ShiftManana).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record := testRecord()
	record.ID = "enr-1"
	require.NoError(t, repo.RejectAndRelease(context.Background(), record, false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRejectRefusesResolvedRecord(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE enrollments SET state = \$2, documents_complete = \$3\s+WHERE id = \$1 AND state NOT IN \(\$4, \$5\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	record := testRecord()
	record.ID = "enr-1"
	err := repo.RejectAndRelease(context.Background(), record, false)
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRejectRollsBackOnReleaseFailure(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE enrollments SET state = \$2, documents_complete = \$3\s+WHERE id = \$1 AND state NOT IN \(\$4, \$5\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE seat_buckets\s+SET occupied_seats = occupied_seats - 1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM seat_buckets`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	record := testRecord()
	record.ID = "enr-1"
	err := repo.RejectAndRelease(context.Background(), record, false)
	require.True(t, appErrors.Is(err, appErrors.ErrSeatUnderflow))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStateStampsRatification(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE enrollments\s+SET state = \$2, documents_complete = \$3`).
		WithArgs("enr-1", models.EnrollmentStateCompleted, true, models.EnrollmentStateInReview).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateState(context.Background(), "enr-1", models.EnrollmentStateInReview, models.EnrollmentStateCompleted, true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStateRefusesStaleRead(t *testing.T) {
	repo, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE enrollments\s+SET state = \$2, documents_complete = \$3`).
		WithArgs("enr-1", models.EnrollmentStateCompleted, true, models.EnrollmentStatePending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), "enr-1", models.EnrollmentStatePending, models.EnrollmentStateCompleted, true)
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	require.NoError(t, mock.ExpectationsWereMet())
}
