package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pos/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPaymentSucceeded NotificationType = "PAYMENT_SUCCEEDED"
	NotificationPaymentFailed    NotificationType = "PAYMENT_FAILED"
)

// Notification is a payment status change relayed to the application.
type Notification struct {
	ID              string           `json:"id"`
	Type            NotificationType `json:"type"`
	EventID         string           `json:"event_id"`
	PaymentIntentID string           `json:"payment_intent"`
	Amount          int64            `json:"amount,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	Status          string           `json:"status,omitempty"`
	Message         string           `json:"message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Publisher delivers encoded notifications to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// NotificationService relays payment notifications. Without a publisher it only logs.
type NotificationService struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewNotificationService creates a new NotificationService. publisher may be nil.
func NewNotificationService(publisher Publisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{publisher: publisher, logger: logger}
}

// NotifyPaymentSucceeded relays a successful payment.
func (s *NotificationService) NotifyPaymentSucceeded(ctx context.Context, event *domain.WebhookEvent) error {
	return s.send(ctx, newNotification(NotificationPaymentSucceeded, event))
}

// NotifyPaymentFailed relays a failed payment attempt.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, event *domain.WebhookEvent) error {
	return s.send(ctx, newNotification(NotificationPaymentFailed, event))
}

func newNotification(typ NotificationType, event *domain.WebhookEvent) Notification {
	n := Notification{
		ID:              uuid.New().String(),
		Type:            typ,
		EventID:         event.ID,
		PaymentIntentID: event.ObjectID,
		CreatedAt:       time.Now().UTC(),
	}
	if pi := event.Intent; pi != nil {
		n.Amount = pi.Amount
		n.Currency = pi.Currency
		n.Status = string(pi.Status)
		n.Message = pi.LastPaymentError
	}
	return n
}

// send logs the notification and hands it to the publisher, if any.
func (s *NotificationService) send(ctx context.Context, n Notification) error {
	s.logger.Info("payment notification",
		zap.String("type", string(n.Type)),
		zap.String("payment_intent", n.PaymentIntentID),
		zap.String("event_id", n.EventID),
		zap.String("message", n.Message),
	)

	if s.publisher == nil {
		return nil
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, n.PaymentIntentID, data)
}
