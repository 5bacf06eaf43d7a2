package gateway

import (
	"context"

	"pos/internal/domain"
)

// CreateIntentParams contains the fields sent when creating a card-present intent.
type CreateIntentParams struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	ReceiptEmail   string // omitted when empty
	IdempotencyKey string // omitted when empty
}

// Gateway defines the payment processor operations the service depends on.
// The gateway is the only source of truth for intents and reader state.
type Gateway interface {
	// CreateIntent creates a card-present payment intent.
	CreateIntent(ctx context.Context, params CreateIntentParams) (*domain.PaymentIntent, error)

	// GetIntent retrieves the current state of an intent.
	GetIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error)

	// CancelIntent cancels an intent.
	CancelIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error)

	// DispatchToReader instructs the reader to collect payment for the intent.
	DispatchToReader(ctx context.Context, readerID, intentID string) (*domain.ReaderAction, error)

	// CancelReaderAction aborts whatever the reader is currently doing.
	// Returns ErrNoReaderAction when the reader has nothing to cancel.
	CancelReaderAction(ctx context.Context, readerID string) error

	// CollectCustomerContact prompts the customer on the reader for contact details.
	CollectCustomerContact(ctx context.Context, readerID string, fields []domain.ContactField) (*domain.ReaderAction, error)
}

// WebhookVerifier authenticates signed webhook payloads.
type WebhookVerifier interface {
	// VerifyWebhook checks the signature header against the exact raw payload.
	// Returns an error wrapping ErrInvalidSignature on any verification failure.
	VerifyWebhook(payload []byte, signatureHeader string) (*domain.WebhookEvent, error)
}
