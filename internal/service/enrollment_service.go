package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentRecord, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	CreateIntake(ctx context.Context, student *models.Student, guardian *models.Guardian, record *models.EnrollmentRecord) error
	CreateManual(ctx context.Context, record *models.EnrollmentRecord) error
	UpdateState(ctx context.Context, id string, from, to models.EnrollmentState, documentsComplete bool) error
	RejectAndRelease(ctx context.Context, record *models.EnrollmentRecord, documentsComplete bool) error
	MarkCertificateIssued(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type certificateRenderer interface {
	Render(detail models.EnrollmentDetail) ([]byte, error)
}

type notifier interface {
	SendAsync(ctx context.Context, contact models.Contact, kind models.NotificationKind, subject, body string)
}

// SubmitEnrollmentRequest is the public intake payload filled by guardians.
type SubmitEnrollmentRequest struct {
	AcademicYear      string        `json:"academic_year" validate:"required"`
	Level             models.Level  `json:"level" validate:"required"`
	Grade             string        `json:"grade" validate:"required"`
	Shift             models.Shift  `json:"shift" validate:"required"`
	StudentNationalID string        `json:"student_national_id" validate:"required"`
	StudentFullName   string        `json:"student_full_name" validate:"required"`
	StudentBirthDate  string        `json:"student_birth_date" validate:"required"`
	Guardian          GuardianInput `json:"guardian" validate:"required"`
	VoucherRef        string        `json:"voucher_ref"`
}

// ManualEnrollmentRequest is the staff-side payload for an already verified
// enrollment.
type ManualEnrollmentRequest struct {
	StudentID    string       `json:"student_id" validate:"required"`
	AcademicYear string       `json:"academic_year" validate:"required"`
	Level        models.Level `json:"level" validate:"required"`
	Grade        string       `json:"grade" validate:"required"`
	Shift        models.Shift `json:"shift" validate:"required"`
	VoucherRef   string       `json:"voucher_ref"`
}

// TransitionRequest moves a record through the review workflow.
type TransitionRequest struct {
	State             models.EnrollmentState `json:"state" validate:"required"`
	DocumentsComplete bool                   `json:"documents_complete"`
}

// EnrollmentService orchestrates intake, review and certificate issuance.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	fees      *FeeSchedule
	renderer  certificateRenderer
	notifier  notifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, fees *FeeSchedule, renderer certificateRenderer, notifier notifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, fees: fees, renderer: renderer, notifier: notifier, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns enrollment records with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single enrollment with student and guardian context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Submit runs the public intake: resolve-or-create the student, reserve a
// seat and open a pending record, all in one transaction. The confirmation
// message is queued after commit; a dispatch failure never unwinds the
// enrollment.
func (s *EnrollmentService) Submit(ctx context.Context, req SubmitEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if !models.ValidLevel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
	}
	if !models.ValidShift(req.Shift) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown shift")
	}
	birthDate, err := time.Parse("2006-01-02", req.StudentBirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_birth_date must be YYYY-MM-DD")
	}

	student := &models.Student{
		NationalID: req.StudentNationalID,
		FullName:   req.StudentFullName,
		BirthDate:  birthDate,
		Level:      req.Level,
		Grade:      req.Grade,
		Shift:      req.Shift,
	}
	guardian := &models.Guardian{
		NationalID:   req.Guardian.NationalID,
		FullName:     req.Guardian.FullName,
		Phone:        req.Guardian.Phone,
		Email:        req.Guardian.Email,
		Relationship: req.Guardian.Relationship,
	}
	record := &models.EnrollmentRecord{
		AcademicYear: req.AcademicYear,
		Level:        req.Level,
		Grade:        req.Grade,
		Shift:        req.Shift,
		FeeAmount:    s.fees.AmountFor(req.Level),
		State:        models.EnrollmentStatePending,
		VoucherRef:   req.VoucherRef,
	}

	if err := s.repo.CreateIntake(ctx, student, guardian, record); err != nil {
		if appErrors.Is(err, appErrors.ErrNoSeatsAvailable) || appErrors.Is(err, appErrors.ErrNotFound) {
			s.metrics.RecordSeatReservation(false)
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit enrollment")
	}
	s.metrics.RecordSeatReservation(true)
	s.invalidateVacancies(ctx, record.AcademicYear)

	detail, err := s.repo.FindDetailByID(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}

	s.notifyAsync(ctx, detail, models.NotificationKindConfirmation,
		"Solicitud de matrícula recibida",
		confirmationBody(detail))
	return detail, nil
}

// ManualEnroll records a staff-verified enrollment directly as completed.
func (s *EnrollmentService) ManualEnroll(ctx context.Context, req ManualEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if !models.ValidLevel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
	}
	if !models.ValidShift(req.Shift) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown shift")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is inactive")
	}

	now := time.Now().UTC()
	record := &models.EnrollmentRecord{
		StudentID:         req.StudentID,
		AcademicYear:      req.AcademicYear,
		Level:             req.Level,
		Grade:             req.Grade,
		Shift:             req.Shift,
		FeeAmount:         s.fees.AmountFor(req.Level),
		State:             models.EnrollmentStateCompleted,
		VoucherRef:        req.VoucherRef,
		DocumentsComplete: true,
		RatifiedAt:        &now,
	}

	if err := s.repo.CreateManual(ctx, record); err != nil {
		if appErrors.Is(err, appErrors.ErrNoSeatsAvailable) || appErrors.Is(err, appErrors.ErrNotFound) {
			s.metrics.RecordSeatReservation(false)
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.metrics.RecordSeatReservation(true)
	s.invalidateVacancies(ctx, record.AcademicYear)

	detail, err := s.repo.FindDetailByID(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Transition moves a record through the review state machine. Rejection
// returns the held seat within the same transaction as the state write.
func (s *EnrollmentService) Transition(ctx context.Context, id string, req TransitionRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	if !models.ValidEnrollmentState(req.State) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment state")
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !models.CanTransition(record.State, req.State) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move enrollment from %s to %s", record.State, req.State))
	}

	if req.State == models.EnrollmentStateRejected {
		if err := s.repo.RejectAndRelease(ctx, record, req.DocumentsComplete); err != nil {
			if appErrors.Is(err, appErrors.ErrInvalidTransition) {
				return nil, err
			}
			s.metrics.RecordSeatRelease(false)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject enrollment")
		}
		s.metrics.RecordSeatRelease(true)
		s.invalidateVacancies(ctx, record.AcademicYear)
	} else {
		if err := s.repo.UpdateState(ctx, id, record.State, req.State, req.DocumentsComplete); err != nil {
			if appErrors.Is(err, appErrors.ErrInvalidTransition) {
				return nil, err
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment state")
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}

	if req.State == models.EnrollmentStateCompleted {
		s.notifyAsync(ctx, detail, models.NotificationKindConfirmation,
			"Matrícula completada",
			completionBody(detail))
	}
	return detail, nil
}

// IssueCertificate renders the constancia PDF for a completed record.
func (s *EnrollmentService) IssueCertificate(ctx context.Context, id string) ([]byte, *models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if detail.State != models.EnrollmentStateCompleted {
		return nil, nil, appErrors.ErrNotCompleted
	}

	pdf, err := s.renderer.Render(*detail)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	if !detail.CertificateIssued {
		if err := s.repo.MarkCertificateIssued(ctx, id); err != nil {
			s.logger.Warn("failed to flag certificate issuance", zap.String("enrollment_id", id), zap.Error(err))
		}
	}
	return pdf, detail, nil
}

func (s *EnrollmentService) invalidateVacancies(ctx context.Context, academicYear string) {
	if err := s.cache.Invalidate(ctx, vacancyCacheKey(academicYear)); err != nil {
		s.logger.Warn("vacancy cache invalidation failed", zap.String("academic_year", academicYear), zap.Error(err))
	}
}

func (s *EnrollmentService) notifyAsync(ctx context.Context, detail *models.EnrollmentDetail, kind models.NotificationKind, subject, body string) {
	if s.notifier == nil {
		return
	}
	contact := contactFromEnrollment(detail)
	if contact.Empty() {
		s.logger.Info("skipping notification, no contact on file", zap.String("enrollment_id", detail.ID))
		return
	}
	s.notifier.SendAsync(ctx, contact, kind, subject, body)
}

func contactFromEnrollment(detail *models.EnrollmentDetail) models.Contact {
	contact := models.Contact{Name: detail.StudentName}
	if detail.GuardianName != nil {
		contact.Name = *detail.GuardianName
	}
	if detail.GuardianEmail != nil {
		contact.Email = *detail.GuardianEmail
	}
	if detail.GuardianPhone != nil {
		contact.Phone = *detail.GuardianPhone
	}
	return contact
}

func confirmationBody(detail *models.EnrollmentDetail) string {
	return fmt.Sprintf(
		"<p>Hemos recibido la solicitud de matrícula de <b>%s</b> para %s %s, turno %s, año %s.</p>"+
			"<p>Pensión mensual: S/ %.2f. La solicitud será revisada por la secretaría.</p>",
		detail.StudentName, detail.Level, detail.Grade, detail.Shift, detail.AcademicYear, detail.FeeAmount)
}

func completionBody(detail *models.EnrollmentDetail) string {
	return fmt.Sprintf(
		"<p>La matrícula de <b>%s</b> en %s %s, turno %s, año %s ha sido completada.</p>"+
			"<p>Puede recoger la constancia de matrícula en secretaría o descargarla desde el portal.</p>",
		detail.StudentName, detail.Level, detail.Grade, detail.Shift, detail.AcademicYear)
}
