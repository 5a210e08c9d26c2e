package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

type seatRepository interface {
	List(ctx context.Context, academicYear string) ([]models.SeatBucket, error)
	FindByKey(ctx context.Context, key models.SeatKey) (*models.SeatBucket, error)
	Configure(ctx context.Context, key models.SeatKey, totalSeats int) (*models.SeatBucket, error)
	Reserve(ctx context.Context, key models.SeatKey) (*models.ReservationToken, error)
	Release(ctx context.Context, key models.SeatKey) error
}

// ConfigureSeatsRequest describes a bucket create-or-resize payload.
type ConfigureSeatsRequest struct {
	AcademicYear string       `json:"academic_year" validate:"required"`
	Level        models.Level `json:"level" validate:"required"`
	Grade        string       `json:"grade" validate:"required"`
	Shift        models.Shift `json:"shift" validate:"required"`
	TotalSeats   int          `json:"total_seats" validate:"min=0"`
}

// SeatService manages the seat bucket ledger and the public vacancy listing.
type SeatService struct {
	repo      seatRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSeatService constructs SeatService.
func NewSeatService(repo seatRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SeatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

func vacancyCacheKey(academicYear string) string {
	return fmt.Sprintf("vacancies:%s", academicYear)
}

// List returns the vacancy listing for an academic year, serving from cache
// when possible. Staleness is bounded by the cache TTL; the listing is
// advisory and reservations re-check capacity.
func (s *SeatService) List(ctx context.Context, academicYear string) ([]models.SeatBucket, error) {
	if academicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year is required")
	}

	key := vacancyCacheKey(academicYear)
	var cached []models.SeatBucket
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	buckets, err := s.repo.List(ctx, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vacancies")
	}

	if err := s.cache.Set(ctx, key, buckets, 0); err != nil {
		s.logger.Warn("vacancy cache store failed", zap.String("academic_year", academicYear), zap.Error(err))
	}
	return buckets, nil
}

// Configure creates or resizes a bucket. Shrinking below current occupancy
// is refused by the ledger.
func (s *SeatService) Configure(ctx context.Context, req ConfigureSeatsRequest) (*models.SeatBucket, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seat configuration payload")
	}
	if !models.ValidLevel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
	}
	if !models.ValidShift(req.Shift) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown shift")
	}

	key := models.SeatKey{AcademicYear: req.AcademicYear, Level: req.Level, Grade: req.Grade, Shift: req.Shift}
	bucket, err := s.repo.Configure(ctx, key, req.TotalSeats)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrInvalidResize) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to configure seat bucket")
	}

	if err := s.cache.Invalidate(ctx, vacancyCacheKey(req.AcademicYear)); err != nil {
		s.logger.Warn("vacancy cache invalidation failed", zap.String("academic_year", req.AcademicYear), zap.Error(err))
	}
	return bucket, nil
}

// Reserve takes one seat and counts the attempt.
func (s *SeatService) Reserve(ctx context.Context, key models.SeatKey) (*models.ReservationToken, error) {
	token, err := s.repo.Reserve(ctx, key)
	s.metrics.RecordSeatReservation(err == nil)
	if err != nil {
		return nil, err
	}
	if cerr := s.cache.Invalidate(ctx, vacancyCacheKey(key.AcademicYear)); cerr != nil {
		s.logger.Warn("vacancy cache invalidation failed", zap.String("academic_year", key.AcademicYear), zap.Error(cerr))
	}
	return token, nil
}

// Release returns one seat to the bucket and counts the attempt. An
// underflow means reserve/release pairing broke somewhere upstream.
func (s *SeatService) Release(ctx context.Context, key models.SeatKey) error {
	err := s.repo.Release(ctx, key)
	s.metrics.RecordSeatRelease(err == nil)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSeatUnderflow) {
			s.logger.Error("seat release underflow",
				zap.String("academic_year", key.AcademicYear),
				zap.String("level", string(key.Level)),
				zap.String("grade", key.Grade),
				zap.String("shift", string(key.Shift)))
		}
		return err
	}
	if cerr := s.cache.Invalidate(ctx, vacancyCacheKey(key.AcademicYear)); cerr != nil {
		s.logger.Warn("vacancy cache invalidation failed", zap.String("academic_year", key.AcademicYear), zap.Error(cerr))
	}
	return nil
}
