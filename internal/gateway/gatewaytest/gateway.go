// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"pos/internal/domain"
	"pos/internal/gateway"
)

// Gateway is a scriptable gateway.Gateway and gateway.WebhookVerifier.
type Gateway struct {
	mu sync.Mutex

	// NextID is returned by CreateIntent.
	NextID string
	// Statuses are returned by successive GetIntent calls; the last one repeats.
	Statuses []domain.IntentStatus
	// LastPaymentError is attached to requires_payment_method intents.
	LastPaymentError string
	// DispatchStatus is the action status returned by DispatchToReader.
	DispatchStatus domain.ReaderActionStatus

	// Counters for verification.
	CreateCalls        int32
	GetCalls           int32
	CancelIntentCalls  int32
	DispatchCalls      int32
	CancelActionCalls  int32
	CollectCalls       int32
	VerifyWebhookCalls int32

	// Error injection.
	CreateError       error
	GetErrors         []error // consumed in order before Statuses
	CancelIntentError error
	DispatchError     error
	CancelActionError error
	CollectError      error

	// Event is returned by VerifyWebhook when VerifyError is nil.
	Event       *domain.WebhookEvent
	VerifyError error

	// Recorded arguments.
	CreatedWith    []gateway.CreateIntentParams
	CanceledIntent string
	Collected      chan []domain.ContactField
}

// New creates a gateway that succeeds on the first status query.
func New() *Gateway {
	return &Gateway{
		NextID:         "pi_123",
		Statuses:       []domain.IntentStatus{domain.IntentStatusSucceeded},
		DispatchStatus: domain.ReaderActionStatusInProgress,
		Collected:      make(chan []domain.ContactField, 1),
	}
}

// Ensure Gateway satisfies the gateway contracts.
var (
	_ gateway.Gateway         = (*Gateway)(nil)
	_ gateway.WebhookVerifier = (*Gateway)(nil)
)

func (g *Gateway) CreateIntent(ctx context.Context, params gateway.CreateIntentParams) (*domain.PaymentIntent, error) {
	atomic.AddInt32(&g.CreateCalls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()

	g.CreatedWith = append(g.CreatedWith, params)
	if g.CreateError != nil {
		return nil, g.CreateError
	}
	return &domain.PaymentIntent{
		ID:           g.NextID,
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       domain.IntentStatusRequiresPaymentMethod,
		Metadata:     params.Metadata,
		ReceiptEmail: params.ReceiptEmail,
		Description:  params.Description,
	}, nil
}

func (g *Gateway) GetIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	n := int(atomic.AddInt32(&g.GetCalls, 1))
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= len(g.GetErrors) {
		if err := g.GetErrors[n-1]; err != nil {
			return nil, err
		}
	}
	if len(g.Statuses) == 0 {
		return nil, fmt.Errorf("no such payment_intent: '%s'", intentID)
	}

	idx := n - 1 - len(g.GetErrors)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(g.Statuses) {
		idx = len(g.Statuses) - 1
	}

	pi := &domain.PaymentIntent{
		ID:       intentID,
		Amount:   1000,
		Currency: "usd",
		Status:   g.Statuses[idx],
	}
	if pi.Status == domain.IntentStatusRequiresPaymentMethod {
		pi.LastPaymentError = g.LastPaymentError
	}
	return pi, nil
}

func (g *Gateway) CancelIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	atomic.AddInt32(&g.CancelIntentCalls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CancelIntentError != nil {
		return nil, g.CancelIntentError
	}
	g.CanceledIntent = intentID
	return &domain.PaymentIntent{ID: intentID, Status: domain.IntentStatusCanceled}, nil
}

func (g *Gateway) DispatchToReader(ctx context.Context, readerID, intentID string) (*domain.ReaderAction, error) {
	atomic.AddInt32(&g.DispatchCalls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.DispatchError != nil {
		return nil, g.DispatchError
	}
	action := &domain.ReaderAction{
		ReaderID: readerID,
		Type:     domain.ReaderActionProcessPaymentIntent,
		Status:   g.DispatchStatus,
	}
	if action.Status == domain.ReaderActionStatusFailed {
		action.FailureCode = "card_declined"
		action.FailureMessage = "Card was declined"
	}
	return action, nil
}

func (g *Gateway) CancelReaderAction(ctx context.Context, readerID string) error {
	atomic.AddInt32(&g.CancelActionCalls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.CancelActionError
}

func (g *Gateway) CollectCustomerContact(ctx context.Context, readerID string, fields []domain.ContactField) (*domain.ReaderAction, error) {
	atomic.AddInt32(&g.CollectCalls, 1)
	g.mu.Lock()
	err := g.CollectError
	g.mu.Unlock()

	select {
	case g.Collected <- fields:
	default:
	}

	if err != nil {
		return nil, err
	}
	return &domain.ReaderAction{
		ReaderID: readerID,
		Type:     domain.ReaderActionCollectInputs,
		Status:   domain.ReaderActionStatusInProgress,
	}, nil
}

func (g *Gateway) VerifyWebhook(payload []byte, signatureHeader string) (*domain.WebhookEvent, error) {
	atomic.AddInt32(&g.VerifyWebhookCalls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.VerifyError != nil {
		return nil, g.VerifyError
	}
	return g.Event, nil
}

// Calls returns the value of a counter safely.
func Calls(counter *int32) int {
	return int(atomic.LoadInt32(counter))
}
