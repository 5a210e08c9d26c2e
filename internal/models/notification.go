package models

import "time"

// NotificationKind labels the business reason for a message.
type NotificationKind string

// NotificationChannel identifies the transport used.
type NotificationChannel string

// NotificationOutcome records whether the transport accepted the message.
type NotificationOutcome string

// Notification kinds, channels and outcomes.
const (
	NotificationKindConfirmation NotificationKind = "CONFIRMATION"
	NotificationKindRatification NotificationKind = "RATIFICATION"
	NotificationKindGeneral      NotificationKind = "GENERAL"

	NotificationChannelEmail    NotificationChannel = "EMAIL"
	NotificationChannelWhatsApp NotificationChannel = "WHATSAPP"

	NotificationOutcomeSent  NotificationOutcome = "SENT"
	NotificationOutcomeError NotificationOutcome = "ERROR"
)

// NotificationLogEntry is the append-only audit record of a dispatch attempt.
// Entries are written regardless of outcome and never mutated.
type NotificationLogEntry struct {
	ID        string              `db:"id" json:"id"`
	Recipient string              `db:"recipient" json:"recipient"`
	Kind      NotificationKind    `db:"kind" json:"kind"`
	Channel   NotificationChannel `db:"channel" json:"channel"`
	Subject   string              `db:"subject" json:"subject"`
	Body      string              `db:"body" json:"body"`
	Outcome   NotificationOutcome `db:"outcome" json:"outcome"`
	Detail    string              `db:"detail" json:"detail,omitempty"`
	SentAt    time.Time           `db:"sent_at" json:"sent_at"`
}

// NotificationFilter narrows log listings.
type NotificationFilter struct {
	Recipient string
	Kind      NotificationKind
	Channel   NotificationChannel
	Outcome   NotificationOutcome
	Page      int
	PageSize  int
}

// Contact bundles the reachable endpoints for a recipient.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Empty reports whether no channel is available.
func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == ""
}

// DispatchOutcome summarises a best-effort send. It is a value, never an
// error: dispatch failures must not propagate to enrollment flows.
type DispatchOutcome struct {
	Sent     bool   `json:"sent"`
	Channels int    `json:"channels"`
	Reason   string `json:"reason,omitempty"`
}

// RatificationSummary aggregates a bulk ratification run.
type RatificationSummary struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
