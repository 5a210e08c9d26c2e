package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/uns-cex/matricula-api/internal/models"
)

func newStudentRepoMock(t *testing.T) (*StudentRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewStudentRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestStudentRepositoryFindByNationalID(t *testing.T) {
	repo, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "national_id", "full_name", "birth_date", "level", "grade", "shift", "active", "created_at", "updated_at"}).
		AddRow("stu-1", "12345678", "Ana Torres", time.Now(), models.LevelPrimaria, "3", models.ShiftManana, true, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT id, national_id, full_name, birth_date, level, grade, shift, active, created_at, updated_at\s+FROM students WHERE national_id = \$1`).
		WithArgs("12345678").
		WillReturnRows(rows)

	student, err := repo.FindByNationalID(context.Background(), "12345678")
	require.NoError(t, err)
	require.Equal(t, "stu-1", student.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateUpsertsGuardian(t *testing.T) {
	repo, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO students`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO guardians`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := &models.Student{
		NationalID: "12345678",
		FullName:   "Ana Torres",
		BirthDate:  time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC),
		Level:      models.LevelPrimaria,
		Grade:      "3",
		Shift:      models.ShiftManana,
	}
	guardian := &models.Guardian{NationalID: "87654321", FullName: "Rosa Torres"}

	require.NoError(t, repo.Create(context.Background(), student, guardian))
	require.NotEmpty(t, student.ID)
	require.Equal(t, student.ID, guardian.StudentID)
	require.Equal(t, "Padre", guardian.Relationship)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeactivateUnknown(t *testing.T) {
	repo, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE students SET active = false`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListActive(t *testing.T) {
	repo, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	email := "rosa@example.com"
	rows := sqlmock.NewRows([]string{"id", "national_id", "full_name", "birth_date", "level", "grade", "shift", "active", "created_at", "updated_at", "guardian_name", "guardian_phone", "guardian_email"}).
		AddRow("stu-1", "12345678", "Ana Torres", time.Now(), models.LevelPrimaria, "3", models.ShiftManana, true, time.Now(), time.Now(), "Rosa Torres", nil, email)
	mock.ExpectQuery(`FROM students s LEFT JOIN guardians g ON g\.student_id = s\.id\s+WHERE s\.active = true`).
		WillReturnRows(rows)

	students, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.True(t, students[0].HasContact())
	require.NoError(t, mock.ExpectationsWereMet())
}
