package domain

import "time"

// Webhook event types the relay reacts to.
const (
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
)

// WebhookEvent is a verified notification from the gateway. It is never stored.
type WebhookEvent struct {
	ID       string
	Type     string
	ObjectID string
	Intent   *PaymentIntent // set for payment_intent.* events
	Created  time.Time
}
