package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	"github.com/uns-cex/matricula-api/internal/service"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
	"github.com/uns-cex/matricula-api/pkg/response"
)

type stubSeatRepo struct {
	buckets []models.SeatBucket
}

func (s *stubSeatRepo) List(ctx context.Context, academicYear string) ([]models.SeatBucket, error) {
	return s.buckets, nil
}

func (s *stubSeatRepo) FindByKey(ctx context.Context, key models.SeatKey) (*models.SeatBucket, error) {
	for _, b := range s.buckets {
		if b.Key() == key {
			return &b, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "seat bucket not found")
}

func (s *stubSeatRepo) Configure(ctx context.Context, key models.SeatKey, totalSeats int) (*models.SeatBucket, error) {
	for i := range s.buckets {
		if s.buckets[i].Key() == key {
			if totalSeats < s.buckets[i].OccupiedSeats {
				return nil, appErrors.ErrInvalidResize
			}
			s.buckets[i].TotalSeats = totalSeats
			return &s.buckets[i], nil
		}
	}
	bucket := models.SeatBucket{
		ID:           "bucket-new",
		AcademicYear: key.AcademicYear,
		Level:        key.Level,
		Grade:        key.Grade,
		Shift:        key.Shift,
		TotalSeats:   totalSeats,
	}
	s.buckets = append(s.buckets, bucket)
	return &bucket, nil
}

func (s *stubSeatRepo) Reserve(ctx context.Context, key models.SeatKey) (*models.ReservationToken, error) {
	return nil, appErrors.ErrNoSeatsAvailable
}

func (s *stubSeatRepo) Release(ctx context.Context, key models.SeatKey) error {
	return nil
}

func newSeatRouter(repo *stubSeatRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewSeatService(repo, nil, service.NewMetricsService(), nil, zap.NewNop())
	h := NewSeatHandler(svc)
	r := gin.New()
	r.GET("/vacancies", h.List)
	r.PUT("/vacancies", h.Configure)
	return r
}

func TestSeatHandlerList(t *testing.T) {
	repo := &stubSeatRepo{buckets: []models.SeatBucket{
		{ID: "b1", AcademicYear: "2026", Level: models.LevelPrimaria, Grade: "3", Shift: models.ShiftManana, TotalSeats: 30, OccupiedSeats: 12},
	}}
	router := newSeatRouter(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vacancies?year=2026", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Nil(t, env.Error)
	assert.NotNil(t, env.Data)
}

func TestSeatHandlerListRequiresYear(t *testing.T) {
	router := newSeatRouter(&stubSeatRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vacancies", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestSeatHandlerConfigure(t *testing.T) {
	router := newSeatRouter(&stubSeatRepo{})

	body := `{"academic_year":"2026","level":"Primaria","grade":"3","shift":"Mañana","total_seats":30}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/vacancies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSeatHandlerConfigureRefusesShrink(t *testing.T) {
	repo := &stubSeatRepo{buckets: []models.SeatBucket{
		{ID: "b1", AcademicYear: "2026", Level: models.LevelPrimaria, Grade: "3", Shift: models.ShiftManana, TotalSeats: 30, OccupiedSeats: 20},
	}}
	router := newSeatRouter(repo)

	body := `{"academic_year":"2026","level":"Primaria","grade":"3","shift":"Mañana","total_seats":10}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/vacancies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrInvalidResize.Code, env.Error.Code)
}

func TestSeatHandlerConfigureRejectsBadPayload(t *testing.T) {
	router := newSeatRouter(&stubSeatRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/vacancies", strings.NewReader(`{"total_seats":`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
