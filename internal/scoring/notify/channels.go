package notify

import (
	"context"
	"errors"
	"fmt"

	"microfinance-scoring/internal/models"
)

// ErrNoAddress means the subject has no address for the channel.
var ErrNoAddress = errors.New("notify: no address for channel")

type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
}

type StoreChannel struct {
	store NotificationStore
}

func NewStoreChannel(s NotificationStore) *StoreChannel { return &StoreChannel{store: s} }

func (c *StoreChannel) Name() string { return "store" }

func (c *StoreChannel) Deliver(ctx context.Context, n *models.Notification, _ *models.Contact) error {
	return c.store.SaveNotification(ctx, n)
}

type Publisher interface {
	Publish(ctx context.Context, key string, payload interface{}, headers map[string]string) error
}

// KafkaChannel publishes score-change events keyed by subject.
type KafkaChannel struct {
	pub Publisher
}

func NewKafkaChannel(p Publisher) *KafkaChannel { return &KafkaChannel{pub: p} }

func (c *KafkaChannel) Name() string { return "kafka" }

func (c *KafkaChannel) Deliver(ctx context.Context, n *models.Notification, _ *models.Contact) error {
	return c.pub.Publish(ctx, n.SubjectID, n, map[string]string{
		"event_type":      string(n.Type),
		"notification_id": n.ID,
	})
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type SMSChannel struct {
	sender SMSSender
}

func NewSMSChannel(s SMSSender) *SMSChannel { return &SMSChannel{sender: s} }

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Deliver(ctx context.Context, n *models.Notification, contact *models.Contact) error {
	if contact == nil || contact.Phone == "" {
		return ErrNoAddress
	}
	if _, err := c.sender.Send(ctx, contact.Phone, n.Message); err != nil {
		return fmt.Errorf("sms: %w", err)
	}
	return nil
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

type EmailChannel struct {
	sender EmailSender
}

func NewEmailChannel(s EmailSender) *EmailChannel { return &EmailChannel{sender: s} }

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, n *models.Notification, contact *models.Contact) error {
	if contact == nil || contact.Email == "" {
		return ErrNoAddress
	}
	if _, err := c.sender.Send(ctx, contact.Email, n.Title, n.Message); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
