package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uns-cex/matricula-api/internal/models"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
	"github.com/uns-cex/matricula-api/pkg/jobs"
)

// EmailSender delivers one email message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TextSender delivers one text message to a phone number.
type TextSender interface {
	Send(ctx context.Context, phone, message string) error
}

// Pinger is implemented by transports that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type notificationLog interface {
	Append(ctx context.Context, entry *models.NotificationLogEntry) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationLogEntry, int, error)
}

// ChannelDiagnostic reports the health of one transport.
type ChannelDiagnostic struct {
	Channel    models.NotificationChannel `json:"channel"`
	Configured bool                       `json:"configured"`
	Reachable  bool                       `json:"reachable"`
	Detail     string                     `json:"detail,omitempty"`
}

type dispatchJob struct {
	Contact models.Contact
	Kind    models.NotificationKind
	Subject string
	Body    string
}

// NotificationService delivers messages over every configured channel and
// records each attempt in the log. Send never returns an error: a failed
// dispatch is an outcome, not a fault the caller has to handle.
type NotificationService struct {
	email    EmailSender
	whatsapp TextSender
	log      notificationLog
	metrics  *MetricsService
	logger   *zap.Logger
	queue    *jobs.Queue
}

// NewNotificationService constructs the service and its background queue.
func NewNotificationService(email EmailSender, whatsapp TextSender, log notificationLog, metrics *MetricsService, logger *zap.Logger, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		email:    email,
		whatsapp: whatsapp,
		log:      log,
		metrics:  metrics,
		logger:   logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handleJob, queueCfg)
	return s
}

// Start begins background dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Send dispatches to every channel the contact is reachable on, synchronously.
func (s *NotificationService) Send(ctx context.Context, contact models.Contact, kind models.NotificationKind, subject, body string) models.DispatchOutcome {
	if contact.Empty() {
		return models.DispatchOutcome{Sent: false, Reason: "no contact channels on file"}
	}

	outcome := models.DispatchOutcome{}

	if contact.Email != "" && s.email != nil {
		if err := s.dispatch(ctx, models.NotificationChannelEmail, contact.Email, kind, subject, body); err == nil {
			outcome.Sent = true
			outcome.Channels++
		} else {
			outcome.Reason = err.Error()
		}
	}
	if contact.Phone != "" && s.whatsapp != nil {
		if err := s.dispatch(ctx, models.NotificationChannelWhatsApp, contact.Phone, kind, subject, body); err == nil {
			outcome.Sent = true
			outcome.Channels++
		} else if outcome.Reason == "" {
			outcome.Reason = err.Error()
		}
	}

	if outcome.Sent {
		outcome.Reason = ""
	} else if outcome.Reason == "" {
		outcome.Reason = "no transport available for the contact"
	}
	return outcome
}

// SendAsync queues the dispatch so callers never wait on a transport. When
// the queue is unavailable the message is sent inline.
func (s *NotificationService) SendAsync(ctx context.Context, contact models.Contact, kind models.NotificationKind, subject, body string) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(kind),
		Payload: dispatchJob{Contact: contact, Kind: kind, Subject: subject, Body: body},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification enqueue failed, sending inline", zap.Error(err))
		s.Send(ctx, contact, kind, subject, body)
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(dispatchJob)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	s.Send(ctx, payload.Contact, payload.Kind, payload.Subject, payload.Body)
	return nil
}

// dispatch performs one channel attempt and appends its log entry.
func (s *NotificationService) dispatch(ctx context.Context, channel models.NotificationChannel, recipient string, kind models.NotificationKind, subject, body string) error {
	var err error
	switch channel {
	case models.NotificationChannelEmail:
		err = s.email.Send(ctx, recipient, subject, body)
	case models.NotificationChannelWhatsApp:
		err = s.whatsapp.Send(ctx, recipient, body)
	default:
		err = fmt.Errorf("unknown channel %s", channel)
	}

	entry := &models.NotificationLogEntry{
		Recipient: recipient,
		Kind:      kind,
		Channel:   channel,
		Subject:   subject,
		Body:      body,
		Outcome:   models.NotificationOutcomeSent,
	}
	if err != nil {
		entry.Outcome = models.NotificationOutcomeError
		entry.Detail = err.Error()
		s.logger.Warn("notification dispatch failed",
			zap.String("channel", string(channel)),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	s.metrics.RecordNotification(channel, entry.Outcome)

	if s.log != nil {
		if logErr := s.log.Append(ctx, entry); logErr != nil {
			s.logger.Error("notification log append failed", zap.Error(logErr))
		}
	}
	return err
}

// ListLog returns dispatch log entries with pagination metadata.
func (s *NotificationService) ListLog(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationLogEntry, *models.Pagination, error) {
	entries, total, err := s.log.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notification log")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Diagnose probes each transport and reports reachability.
func (s *NotificationService) Diagnose(ctx context.Context) []ChannelDiagnostic {
	report := make([]ChannelDiagnostic, 0, 2)
	report = append(report, s.probe(ctx, models.NotificationChannelEmail, s.email))
	report = append(report, s.probe(ctx, models.NotificationChannelWhatsApp, s.whatsapp))
	return report
}

func (s *NotificationService) probe(ctx context.Context, channel models.NotificationChannel, transport interface{}) ChannelDiagnostic {
	diag := ChannelDiagnostic{Channel: channel}
	if transport == nil {
		diag.Detail = "not configured"
		return diag
	}
	diag.Configured = true

	pinger, ok := transport.(Pinger)
	if !ok {
		diag.Reachable = true
		return diag
	}
	if err := pinger.Ping(ctx); err != nil {
		diag.Detail = err.Error()
		return diag
	}
	diag.Reachable = true
	return diag
}
