package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"pos/internal/domain"
	"pos/internal/gateway"
)

// VerifyWebhook validates the Stripe-Signature header against the raw payload
// and decodes the event. The payload must be the exact bytes received.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) (*domain.WebhookEvent, error) {
	if c.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", gateway.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrInvalidSignature, err)
	}

	return toDomainEvent(event)
}

func toDomainEvent(event stripe.Event) (*domain.WebhookEvent, error) {
	ev := &domain.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Created > 0 {
		ev.Created = time.Unix(event.Created, 0).UTC()
	}
	if event.Data == nil {
		return ev, nil
	}

	if id, ok := event.Data.Object["id"].(string); ok {
		ev.ObjectID = id
	}

	if object, _ := event.Data.Object["object"].(string); object == "payment_intent" {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent from event %s: %w", event.ID, err)
		}
		ev.Intent = toDomainIntent(&pi)
	}

	return ev, nil
}
