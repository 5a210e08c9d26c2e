package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	"github.com/uns-cex/matricula-api/pkg/config"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	mu         sync.Mutex
	records    map[string]models.EnrollmentRecord
	contacts   map[string]models.Contact
	seats      int
	released   int
	flagged    []string
	nextID     int
	failCreate error

	// findBarrier, when set, holds every FindByID caller until all expected
	// readers have observed the same state. Used to exercise races where two
	// transitions start from one read.
	findBarrier *sync.WaitGroup
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentRecord, error) {
	m.mu.Lock()
	r, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	if m.findBarrier != nil {
		m.findBarrier.Done()
		m.findBarrier.Wait()
	}
	return &r, nil
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	m.mu.Lock()
	r, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := &models.EnrollmentDetail{EnrollmentRecord: r, StudentName: "Ana Torres", StudentNationalID: "12345678"}
	if contact, ok := m.contacts[id]; ok {
		if contact.Email != "" {
			email := contact.Email
			detail.GuardianEmail = &email
		}
		if contact.Phone != "" {
			phone := contact.Phone
			detail.GuardianPhone = &phone
		}
	}
	return detail, nil
}

func (m *mockEnrollmentRepo) create(record *models.EnrollmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	if m.seats <= 0 {
		return appErrors.ErrNoSeatsAvailable
	}
	m.seats--
	m.nextID++
	record.ID = fmt.Sprintf("enr-%d", m.nextID)
	record.BucketID = "bucket-1"
	if m.records == nil {
		m.records = make(map[string]models.EnrollmentRecord)
	}
	m.records[record.ID] = *record
	return nil
}

func (m *mockEnrollmentRepo) CreateIntake(ctx context.Context, student *models.Student, guardian *models.Guardian, record *models.EnrollmentRecord) error {
	if student.ID == "" {
		student.ID = "stu-1"
	}
	record.StudentID = student.ID
	if err := m.create(record); err != nil {
		return err
	}
	if guardian != nil {
		if m.contacts == nil {
			m.contacts = make(map[string]models.Contact)
		}
		m.contacts[record.ID] = models.Contact{Name: guardian.FullName, Email: guardian.Email, Phone: guardian.Phone}
	}
	return nil
}

func (m *mockEnrollmentRepo) CreateManual(ctx context.Context, record *models.EnrollmentRecord) error {
	return m.create(record)
}

func (m *mockEnrollmentRepo) UpdateState(ctx context.Context, id string, from, to models.EnrollmentState, documentsComplete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[id]
	if r.State != from {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment state changed concurrently")
	}
	r.State = to
	r.DocumentsComplete = documentsComplete
	m.records[id] = r
	return nil
}

func (m *mockEnrollmentRepo) RejectAndRelease(ctx context.Context, record *models.EnrollmentRecord, documentsComplete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[record.ID]
	if r.State.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment already resolved")
	}
	r.State = models.EnrollmentStateRejected
	r.DocumentsComplete = documentsComplete
	m.records[record.ID] = r
	m.seats++
	m.released++
	return nil
}

func (m *mockEnrollmentRepo) MarkCertificateIssued(ctx context.Context, id string) error {
	r := m.records[id]
	r.CertificateIssued = true
	m.records[id] = r
	m.flagged = append(m.flagged, id)
	return nil
}

type mockStudentReader struct {
	students map[string]*models.StudentDetail
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockRenderer struct {
	fail bool
}

func (m *mockRenderer) Render(detail models.EnrollmentDetail) ([]byte, error) {
	if m.fail {
		return nil, fmt.Errorf("render failed")
	}
	return []byte("%PDF-1.4"), nil
}

type mockNotifier struct {
	mu    sync.Mutex
	kinds []models.NotificationKind
}

func (m *mockNotifier) SendAsync(ctx context.Context, contact models.Contact, kind models.NotificationKind, subject, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
}

type spyCacheRepo struct {
	mu       sync.Mutex
	patterns []string
}

func (s *spyCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (s *spyCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (s *spyCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	return nil
}

func testFees() *FeeSchedule {
	return NewFeeSchedule(config.FeesConfig{Schedule: "Inicial=130,Primaria=180,Secundaria=180", DefaultAmount: 180})
}

func newEnrollmentService(repo *mockEnrollmentRepo, students *mockStudentReader, notifier notifier) *EnrollmentService {
	if students == nil {
		students = &mockStudentReader{}
	}
	return NewEnrollmentService(repo, students, testFees(), &mockRenderer{}, notifier, nil, NewMetricsService(), validator.New(), zap.NewNop())
}

func submitRequest() SubmitEnrollmentRequest {
	return SubmitEnrollmentRequest{
		AcademicYear:      "2026",
		Level:             models.LevelInicial,
		Grade:             "4 años",
		Shift:             models.ShiftManana,
		StudentNationalID: "12345678",
		StudentFullName:   "Ana Torres",
		StudentBirthDate:  "2021-03-14",
		Guardian: GuardianInput{
			NationalID: "87654321",
			FullName:   "Rosa Torres",
			Email:      "rosa@example.com",
		},
		VoucherRef: "V-001",
	}
}

func TestSubmitOpensPendingRecordAndQueuesConfirmation(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	notifier := &mockNotifier{}
	svc := newEnrollmentService(repo, nil, notifier)

	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatePending, detail.State)
	assert.Equal(t, 130.0, detail.FeeAmount)
	assert.Equal(t, "bucket-1", detail.BucketID)
	require.Len(t, notifier.kinds, 1)
	assert.Equal(t, models.NotificationKindConfirmation, notifier.kinds[0])
}

func TestSubmitFailsWhenBucketFull(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 0}
	notifier := &mockNotifier{}
	svc := newEnrollmentService(repo, nil, notifier)

	_, err := svc.Submit(context.Background(), submitRequest())
	require.True(t, appErrors.Is(err, appErrors.ErrNoSeatsAvailable))
	assert.Empty(t, notifier.kinds)
}

func TestSubmitSucceedsWithoutContact(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	notifier := &mockNotifier{}
	svc := newEnrollmentService(repo, nil, notifier)

	req := submitRequest()
	req.Guardian.Email = ""
	req.Guardian.Phone = ""

	detail, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatePending, detail.State)
	assert.Empty(t, notifier.kinds)
}

func TestSubmitRejectsUnknownLevel(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{seats: 1}, nil, nil)

	req := submitRequest()
	req.Level = "Universidad"
	_, err := svc.Submit(context.Background(), req)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTransitionFollowsStateMachine(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	svc := newEnrollmentService(repo, nil, nil)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	reviewed, err := svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateInReview})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStateInReview, reviewed.State)

	completed, err := svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateCompleted, DocumentsComplete: true})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStateCompleted, completed.State)

	_, err = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStatePending})
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestTransitionCompletionNotifies(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	notifier := &mockNotifier{}
	svc := newEnrollmentService(repo, nil, notifier)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	notifier.kinds = nil

	_, err = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateCompleted, DocumentsComplete: true})
	require.NoError(t, err)
	require.Len(t, notifier.kinds, 1)
	assert.Equal(t, models.NotificationKindConfirmation, notifier.kinds[0])
}

func TestRejectionReleasesSeat(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	svc := newEnrollmentService(repo, nil, nil)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	require.Equal(t, 0, repo.seats)

	rejected, err := svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateRejected})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStateRejected, rejected.State)
	assert.Equal(t, 1, repo.seats)
	assert.Equal(t, 1, repo.released)
}

func TestConcurrentRejectReleasesSeatOnce(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	svc := newEnrollmentService(repo, nil, nil)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	require.Equal(t, 0, repo.seats)

	var barrier sync.WaitGroup
	barrier.Add(2)
	repo.findBarrier = &barrier

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateRejected})
		}(i)
	}
	wg.Wait()
	repo.findBarrier = nil

	var won, refused int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
		refused++
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, refused)
	assert.Equal(t, 1, repo.released)
	assert.Equal(t, 1, repo.seats)
}

func TestConcurrentCompleteAndRejectResolveOnce(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	svc := newEnrollmentService(repo, nil, nil)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	var barrier sync.WaitGroup
	barrier.Add(2)
	repo.findBarrier = &barrier

	errs := make([]error, 2)
	targets := []models.EnrollmentState{models.EnrollmentStateCompleted, models.EnrollmentStateRejected}
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: targets[i]})
		}(i)
	}
	wg.Wait()
	repo.findBarrier = nil

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	}
	require.Equal(t, 1, won)

	final := repo.records[detail.ID]
	switch final.State {
	case models.EnrollmentStateRejected:
		assert.Equal(t, 1, repo.released)
		assert.Equal(t, 1, repo.seats)
	case models.EnrollmentStateCompleted:
		assert.Equal(t, 0, repo.released)
		assert.Equal(t, 0, repo.seats)
	default:
		t.Fatalf("record left in non-terminal state %s", final.State)
	}
}

func TestSeatMutationsInvalidateVacancyCache(t *testing.T) {
	spy := &spyCacheRepo{}
	cache := NewCacheService(spy, nil, time.Minute, zap.NewNop(), true)
	repo := &mockEnrollmentRepo{seats: 3}
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FullName: "Ana Torres", Active: true}},
	}}
	svc := NewEnrollmentService(repo, students, testFees(), &mockRenderer{}, nil, cache, NewMetricsService(), validator.New(), zap.NewNop())

	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"vacancies:2026"}, spy.patterns)

	_, err = svc.ManualEnroll(context.Background(), ManualEnrollmentRequest{
		StudentID:    "stu-1",
		AcademicYear: "2026",
		Level:        models.LevelPrimaria,
		Grade:        "3",
		Shift:        models.ShiftTarde,
	})
	require.NoError(t, err)
	assert.Len(t, spy.patterns, 2)

	_, err = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateRejected})
	require.NoError(t, err)
	require.Len(t, spy.patterns, 3)
	assert.Equal(t, "vacancies:2026", spy.patterns[2])
}

func TestIntakeMetricsCountOnlyCapacityRejections(t *testing.T) {
	metrics := NewMetricsService()
	repo := &mockEnrollmentRepo{seats: 1, failCreate: fmt.Errorf("tx begin failed")}
	svc := NewEnrollmentService(repo, &mockStudentReader{}, testFees(), &mockRenderer{}, nil, nil, metrics, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), submitRequest())
	require.Error(t, err)
	assert.Equal(t, uint64(0), metrics.Snapshot().SeatRejections)

	repo.failCreate = nil
	repo.seats = 0
	_, err = svc.Submit(context.Background(), submitRequest())
	require.True(t, appErrors.Is(err, appErrors.ErrNoSeatsAvailable))
	assert.Equal(t, uint64(1), metrics.Snapshot().SeatRejections)
}

func TestTerminalRejectionAllowsNoFurtherMoves(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	svc := newEnrollmentService(repo, nil, nil)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateRejected})
	require.NoError(t, err)

	for _, target := range []models.EnrollmentState{models.EnrollmentStatePending, models.EnrollmentStateInReview, models.EnrollmentStateCompleted} {
		_, err = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: target})
		require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "transition to %s should be refused", target)
	}
	assert.Equal(t, 1, repo.released)
}

func TestManualEnrollCompletesImmediately(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FullName: "Ana Torres", Active: true}},
	}}
	svc := newEnrollmentService(repo, students, nil)

	detail, err := svc.ManualEnroll(context.Background(), ManualEnrollmentRequest{
		StudentID:    "stu-1",
		AcademicYear: "2026",
		Level:        models.LevelPrimaria,
		Grade:        "3",
		Shift:        models.ShiftTarde,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStateCompleted, detail.State)
	assert.Equal(t, 180.0, detail.FeeAmount)
	assert.True(t, detail.DocumentsComplete)
	require.NotNil(t, detail.RatifiedAt)
}

func TestManualEnrollRejectsInactiveStudent(t *testing.T) {
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", Active: false}},
	}}
	svc := newEnrollmentService(&mockEnrollmentRepo{seats: 1}, students, nil)

	_, err := svc.ManualEnroll(context.Background(), ManualEnrollmentRequest{
		StudentID:    "stu-1",
		AcademicYear: "2026",
		Level:        models.LevelPrimaria,
		Grade:        "3",
		Shift:        models.ShiftManana,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestIssueCertificateRequiresCompletion(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	svc := newEnrollmentService(repo, nil, nil)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	_, _, err = svc.IssueCertificate(context.Background(), detail.ID)
	require.True(t, appErrors.Is(err, appErrors.ErrNotCompleted))
}

func TestIssueCertificateRendersAndFlags(t *testing.T) {
	repo := &mockEnrollmentRepo{seats: 1}
	svc := newEnrollmentService(repo, nil, nil)
	detail, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), detail.ID, TransitionRequest{State: models.EnrollmentStateCompleted, DocumentsComplete: true})
	require.NoError(t, err)

	pdf, issued, err := svc.IssueCertificate(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, detail.ID, issued.ID)
	assert.Equal(t, []string{detail.ID}, repo.flagged)
}
