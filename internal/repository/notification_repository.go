package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uns-cex/matricula-api/internal/models"
)

// NotificationRepository appends dispatch attempts to the audit log.
// The log is append-only; there is no update path.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Append persists one log entry.
func (r *NotificationRepository) Append(ctx context.Context, entry *models.NotificationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	const query = `INSERT INTO notification_log (id, recipient, kind, channel, subject, body, outcome, detail, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.Recipient, entry.Kind, entry.Channel,
		entry.Subject, entry.Body, entry.Outcome, entry.Detail, entry.SentAt); err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}

// List returns log entries filtered by the provided criteria.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationLogEntry, int, error) {
	base := `FROM notification_log`
	var conditions []string
	var args []interface{}

	if filter.Recipient != "" {
		conditions = append(conditions, fmt.Sprintf("recipient = $%d", len(args)+1))
		args = append(args, filter.Recipient)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Channel != "" {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", len(args)+1))
		args = append(args, filter.Channel)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", len(args)+1))
		args = append(args, filter.Outcome)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, recipient, kind, channel, subject, body, outcome, detail, sent_at
        %s ORDER BY sent_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var entries []models.NotificationLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notification log: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notification log: %w", err)
	}
	return entries, total, nil
}
