package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student, guardian *models.Guardian) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// GuardianInput carries the guardian contact payload.
type GuardianInput struct {
	NationalID   string `json:"national_id" validate:"required"`
	FullName     string `json:"full_name" validate:"required"`
	Phone        string `json:"phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship"`
}

// CreateStudentRequest describes student registration.
type CreateStudentRequest struct {
	NationalID string         `json:"national_id" validate:"required"`
	FullName   string         `json:"full_name" validate:"required"`
	BirthDate  string         `json:"birth_date" validate:"required"`
	Level      models.Level   `json:"level" validate:"required"`
	Grade      string         `json:"grade" validate:"required"`
	Shift      models.Shift   `json:"shift" validate:"required"`
	Guardian   *GuardianInput `json:"guardian"`
}

// UpdateStudentRequest describes mutable student fields.
type UpdateStudentRequest struct {
	FullName string       `json:"full_name" validate:"required"`
	Level    models.Level `json:"level" validate:"required"`
	Grade    string       `json:"grade" validate:"required"`
	Shift    models.Shift `json:"shift" validate:"required"`
	Active   bool         `json:"active"`
}

// StudentService manages the student registry.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single student with guardian contact info.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return detail, nil
}

// Create registers a student with an optional guardian.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !models.ValidLevel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
	}
	if !models.ValidShift(req.Shift) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown shift")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be YYYY-MM-DD")
	}

	if _, err := s.repo.FindByNationalID(ctx, req.NationalID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered with that national id")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check national id")
	}

	student := &models.Student{
		NationalID: req.NationalID,
		FullName:   req.FullName,
		BirthDate:  birthDate,
		Level:      req.Level,
		Grade:      req.Grade,
		Shift:      req.Shift,
	}
	var guardian *models.Guardian
	if req.Guardian != nil {
		guardian = &models.Guardian{
			NationalID:   req.Guardian.NationalID,
			FullName:     req.Guardian.FullName,
			Phone:        req.Guardian.Phone,
			Email:        req.Guardian.Email,
			Relationship: req.Guardian.Relationship,
		}
	}

	if err := s.repo.Create(ctx, student, guardian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return s.Get(ctx, student.ID)
}

// Update modifies the mutable student fields.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !models.ValidLevel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
	}
	if !models.ValidShift(req.Shift) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown shift")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student := existing.Student
	student.FullName = req.FullName
	student.Level = req.Level
	student.Grade = req.Grade
	student.Shift = req.Shift
	student.Active = req.Active

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Deactivate marks a student inactive.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}
