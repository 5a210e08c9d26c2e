package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

type ratificationStudents interface {
	ListActive(ctx context.Context) ([]models.StudentDetail, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type dispatcher interface {
	Send(ctx context.Context, contact models.Contact, kind models.NotificationKind, subject, body string) models.DispatchOutcome
}

// RatificationService sends the yearly ratification campaign to guardians
// of active students. A student without any contact counts as failed but
// never aborts the run.
type RatificationService struct {
	students    ratificationStudents
	dispatcher  dispatcher
	concurrency int
	portalURL   string
	logger      *zap.Logger
}

// NewRatificationService constructs RatificationService.
func NewRatificationService(students ratificationStudents, dispatcher dispatcher, concurrency int, portalURL string, logger *zap.Logger) *RatificationService {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatificationService{students: students, dispatcher: dispatcher, concurrency: concurrency, portalURL: portalURL, logger: logger}
}

// RatifyAll dispatches the reminder to every active student with bounded
// concurrency and reports the aggregate.
func (s *RatificationService) RatifyAll(ctx context.Context, academicYear string) (*models.RatificationSummary, error) {
	if academicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year is required")
	}

	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active students")
	}

	summary := &models.RatificationSummary{Total: len(students)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for _, student := range students {
		wg.Add(1)
		sem <- struct{}{}
		go func(st models.StudentDetail) {
			defer wg.Done()
			defer func() { <-sem }()

			sent := s.sendReminder(ctx, st, academicYear)
			mu.Lock()
			if sent {
				summary.Sent++
			} else {
				summary.Failed++
			}
			mu.Unlock()
		}(student)
	}
	wg.Wait()

	s.logger.Info("ratification run finished",
		zap.String("academic_year", academicYear),
		zap.Int("total", summary.Total),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// RatifyOne sends the reminder to a single student.
func (s *RatificationService) RatifyOne(ctx context.Context, studentID, academicYear string) (*models.DispatchOutcome, error) {
	if academicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year is required")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.HasContact() {
		return nil, appErrors.ErrNoContact
	}

	outcome := s.dispatcher.Send(ctx, contactFromStudent(*student), models.NotificationKindRatification,
		"Ratificación de matrícula", s.reminderBody(*student, academicYear))
	return &outcome, nil
}

func (s *RatificationService) sendReminder(ctx context.Context, student models.StudentDetail, academicYear string) bool {
	if !student.HasContact() {
		s.logger.Info("skipping ratification, no contact on file", zap.String("student_id", student.ID))
		return false
	}
	outcome := s.dispatcher.Send(ctx, contactFromStudent(student), models.NotificationKindRatification,
		"Ratificación de matrícula", s.reminderBody(student, academicYear))
	return outcome.Sent
}

func (s *RatificationService) reminderBody(student models.StudentDetail, academicYear string) string {
	return fmt.Sprintf(
		"<p>Estimada familia de <b>%s</b>:</p>"+
			"<p>Le recordamos ratificar la matrícula para el año escolar %s en %s.</p>",
		student.FullName, academicYear, s.portalURL)
}

func contactFromStudent(student models.StudentDetail) models.Contact {
	contact := models.Contact{Name: student.FullName}
	if student.GuardianName != nil {
		contact.Name = *student.GuardianName
	}
	if student.GuardianEmail != nil {
		contact.Email = *student.GuardianEmail
	}
	if student.GuardianPhone != nil {
		contact.Phone = *student.GuardianPhone
	}
	return contact
}
