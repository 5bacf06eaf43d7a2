package service

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"go.uber.org/zap"

	"pos/internal/domain"
	"pos/internal/gateway"
)

var webhookRejectedCounter = metrics.NewCounter(`pos_webhook_events_total{result="rejected"}`)

// WebhookService verifies gateway notifications and dispatches them by type.
// It is a notification sink: every verified event is acknowledged.
type WebhookService struct {
	verifier      gateway.WebhookVerifier
	notifications *NotificationService
	logger        *zap.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(verifier gateway.WebhookVerifier, notifications *NotificationService, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		verifier:      verifier,
		notifications: notifications,
		logger:        logger,
	}
}

// Handle verifies the raw payload and reacts to the event. A returned error
// means the event was rejected before dispatch; once verified, relay problems
// are logged and the event is still acknowledged.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (*domain.WebhookEvent, error) {
	event, err := s.verifier.VerifyWebhook(payload, signature)
	if err != nil {
		webhookRejectedCounter.Inc()
		s.logger.Warn("webhook verification failed", zap.Error(err))
		return nil, err
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`pos_webhook_events_total{result="accepted",type=%q}`, event.Type)).Inc()

	log := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	switch event.Type {
	case domain.EventPaymentIntentSucceeded:
		log.Info("payment succeeded", zap.String("payment_intent", event.ObjectID))
		if err := s.notifications.NotifyPaymentSucceeded(ctx, event); err != nil {
			log.Error("failed to relay payment notification", zap.Error(err))
		}
	case domain.EventPaymentIntentPaymentFailed:
		log.Info("payment failed", zap.String("payment_intent", event.ObjectID))
		if err := s.notifications.NotifyPaymentFailed(ctx, event); err != nil {
			log.Error("failed to relay payment notification", zap.Error(err))
		}
	default:
		log.Info("unhandled event")
	}

	return event, nil
}
