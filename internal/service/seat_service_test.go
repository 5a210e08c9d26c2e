package service

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

type mockSeatRepo struct {
	mu         sync.Mutex
	total      int
	occupied   int
	generation int64
}

func (m *mockSeatRepo) List(ctx context.Context, academicYear string) ([]models.SeatBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []models.SeatBucket{{
		ID:            "bucket-1",
		AcademicYear:  academicYear,
		Level:         models.LevelPrimaria,
		Grade:         "3",
		Shift:         models.ShiftManana,
		TotalSeats:    m.total,
		OccupiedSeats: m.occupied,
	}}, nil
}

func (m *mockSeatRepo) FindByKey(ctx context.Context, key models.SeatKey) (*models.SeatBucket, error) {
	buckets, _ := m.List(ctx, key.AcademicYear)
	return &buckets[0], nil
}

func (m *mockSeatRepo) Configure(ctx context.Context, key models.SeatKey, totalSeats int) (*models.SeatBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if totalSeats < m.occupied {
		return nil, appErrors.ErrInvalidResize
	}
	m.total = totalSeats
	return &models.SeatBucket{ID: "bucket-1", AcademicYear: key.AcademicYear, Level: key.Level, Grade: key.Grade, Shift: key.Shift, TotalSeats: m.total, OccupiedSeats: m.occupied}, nil
}

func (m *mockSeatRepo) Reserve(ctx context.Context, key models.SeatKey) (*models.ReservationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.occupied >= m.total {
		return nil, appErrors.ErrNoSeatsAvailable
	}
	m.occupied++
	m.generation++
	return &models.ReservationToken{BucketID: "bucket-1", Generation: m.generation}, nil
}

func (m *mockSeatRepo) Release(ctx context.Context, key models.SeatKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.occupied <= 0 {
		return appErrors.ErrSeatUnderflow
	}
	m.occupied--
	return nil
}

func newSeatService(repo seatRepository) *SeatService {
	cacheSvc := NewCacheService(nil, nil, 0, zap.NewNop(), false)
	return NewSeatService(repo, cacheSvc, NewMetricsService(), validator.New(), zap.NewNop())
}

func TestSeatServiceListRequiresYear(t *testing.T) {
	svc := newSeatService(&mockSeatRepo{total: 10})
	_, err := svc.List(context.Background(), "")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSeatServiceConfigureValidates(t *testing.T) {
	svc := newSeatService(&mockSeatRepo{})

	_, err := svc.Configure(context.Background(), ConfigureSeatsRequest{
		AcademicYear: "2026", Level: "Universidad", Grade: "1", Shift: models.ShiftManana, TotalSeats: 10,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Configure(context.Background(), ConfigureSeatsRequest{
		AcademicYear: "2026", Level: models.LevelPrimaria, Grade: "1", Shift: "Noche", TotalSeats: 10,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSeatServiceConfigureRefusesShrinkBelowOccupied(t *testing.T) {
	repo := &mockSeatRepo{total: 20, occupied: 15}
	svc := newSeatService(repo)

	_, err := svc.Configure(context.Background(), ConfigureSeatsRequest{
		AcademicYear: "2026", Level: models.LevelPrimaria, Grade: "3", Shift: models.ShiftManana, TotalSeats: 10,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidResize))

	bucket, err := svc.Configure(context.Background(), ConfigureSeatsRequest{
		AcademicYear: "2026", Level: models.LevelPrimaria, Grade: "3", Shift: models.ShiftManana, TotalSeats: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, bucket.AvailableSeats())
}

// Concurrent reservations against N free seats must grant exactly N.
func TestSeatServiceConcurrentReservationsNeverOverbook(t *testing.T) {
	const seats = 25
	const attempts = 100

	repo := &mockSeatRepo{total: seats}
	svc := newSeatService(repo)
	key := models.SeatKey{AcademicYear: "2026", Level: models.LevelPrimaria, Grade: "3", Shift: models.ShiftManana}

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	rejected := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), key)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				granted++
			} else if appErrors.Is(err, appErrors.ErrNoSeatsAvailable) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, seats, granted)
	assert.Equal(t, attempts-seats, rejected)
	assert.Equal(t, seats, repo.occupied)
}

func TestSeatServiceReleaseUnderflowSurfaces(t *testing.T) {
	repo := &mockSeatRepo{total: 10}
	svc := newSeatService(repo)
	key := models.SeatKey{AcademicYear: "2026", Level: models.LevelPrimaria, Grade: "3", Shift: models.ShiftManana}

	err := svc.Release(context.Background(), key)
	require.True(t, appErrors.Is(err, appErrors.ErrSeatUnderflow))
}
