package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"

	"github.com/uns-cex/matricula-api/pkg/config"
)

// Sender wraps a logged-in whatsmeow client for one-way text delivery.
type Sender struct {
	client      *whatsmeow.Client
	countryCode string
}

// NewSender wraps an already connected client.
func NewSender(client *whatsmeow.Client, countryCode string) *Sender {
	return &Sender{client: client, countryCode: countryCode}
}

// Connect builds a client from the session store and connects it. The device
// must have been paired beforehand; pairing is an operator task, not a
// server concern.
func Connect(cfg config.WhatsAppConfig) (*whatsmeow.Client, error) {
	container, err := sqlstore.New("postgres", cfg.StoreDSN, nil)
	if err != nil {
		return nil, fmt.Errorf("open whatsapp session store: %w", err)
	}

	device, err := container.GetFirstDevice()
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}

	client := whatsmeow.NewClient(device, nil)
	if client.Store.ID == nil {
		return nil, fmt.Errorf("whatsapp device not paired")
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect whatsapp: %w", err)
	}
	return client, nil
}

// Send delivers a plain conversation message to the phone number.
func (s *Sender) Send(ctx context.Context, phone, message string) error {
	if s.client == nil {
		return fmt.Errorf("whatsapp client not configured")
	}
	if phone == "" {
		return fmt.Errorf("empty phone number")
	}

	jid := types.NewJID(s.normalize(phone), types.DefaultUserServer)
	msg := &waE2E.Message{Conversation: &message}

	if _, err := s.client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("send whatsapp to %s: %w", phone, err)
	}
	return nil
}

// Ping reports whether the client still holds a live connection.
func (s *Sender) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("whatsapp client not configured")
	}
	if !s.client.IsConnected() {
		return fmt.Errorf("whatsapp client disconnected")
	}
	return nil
}

// normalize converts local numbers ("9xxx..." or "09xxx...") into the
// international form WhatsApp expects.
func (s *Sender) normalize(phone string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if strings.HasPrefix(phone, "0") {
		return s.countryCode + phone[1:]
	}
	if !strings.HasPrefix(phone, s.countryCode) {
		return s.countryCode + phone
	}
	return phone
}
