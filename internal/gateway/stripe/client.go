package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/terminal/reader"
	"go.uber.org/zap"

	"pos/internal/domain"
	"pos/internal/gateway"
)

// errCodeActionNotAllowed is returned by Stripe when a reader has no
// cancellable action.
const errCodeActionNotAllowed = stripe.ErrorCode("terminal_reader_action_not_allowed")

// Config contains configuration for the Stripe client.
type Config struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string // empty means the public Stripe API
}

// Client implements gateway.Gateway and gateway.WebhookVerifier on top of stripe-go.
type Client struct {
	intents       *paymentintent.Client
	readers       *reader.Client
	webhookSecret string
	logger        *zap.Logger
}

// Ensure Client satisfies the gateway contracts.
var (
	_ gateway.Gateway         = (*Client)(nil)
	_ gateway.WebhookVerifier = (*Client)(nil)
)

// New creates a Stripe client. The backend never retries on its own;
// the poll loop is the only place requests are repeated.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = stripe.APIURL
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(apiURL),
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	})

	return &Client{
		intents:       &paymentintent.Client{B: backend, Key: cfg.SecretKey},
		readers:       &reader.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// CreateIntent creates a card-present, automatically captured payment intent.
func (c *Client) CreateIntent(ctx context.Context, p gateway.CreateIntentParams) (*domain.PaymentIntent, error) {
	c.logger.Info("creating payment intent",
		zap.Int64("amount", p.Amount),
		zap.String("currency", p.Currency),
	)

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(p.Amount),
		Currency:           stripe.String(p.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card_present"}),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	params.Context = ctx
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(p.ReceiptEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := c.intents.New(params)
	observe("create_intent", err)
	if err != nil {
		c.logger.Error("failed to create payment intent", zap.Error(err))
		return nil, wrapError("create intent", err)
	}

	c.logger.Info("payment intent created", zap.String("payment_intent", pi.ID))
	return toDomainIntent(pi), nil
}

// GetIntent retrieves an intent.
func (c *Client) GetIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.intents.Get(intentID, params)
	observe("get_intent", err)
	if err != nil {
		return nil, wrapError("get intent", err)
	}

	c.logger.Debug("payment intent retrieved",
		zap.String("payment_intent", pi.ID),
		zap.String("status", string(pi.Status)),
	)
	return toDomainIntent(pi), nil
}

// CancelIntent cancels an intent.
func (c *Client) CancelIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	pi, err := c.intents.Cancel(intentID, params)
	observe("cancel_intent", err)
	if err != nil {
		return nil, wrapError("cancel intent", err)
	}

	c.logger.Info("payment intent canceled", zap.String("payment_intent", pi.ID))
	return toDomainIntent(pi), nil
}

// DispatchToReader hands the intent to the reader for card collection.
func (c *Client) DispatchToReader(ctx context.Context, readerID, intentID string) (*domain.ReaderAction, error) {
	params := &stripe.TerminalReaderProcessPaymentIntentParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx

	r, err := c.readers.ProcessPaymentIntent(readerID, params)
	observe("process_payment_intent", err)
	if err != nil {
		return nil, wrapError("process payment intent", err)
	}

	action := toDomainAction(r)
	c.logger.Info("payment intent dispatched to reader",
		zap.String("reader", readerID),
		zap.String("payment_intent", intentID),
		zap.String("action_status", string(action.Status)),
	)
	return action, nil
}

// CancelReaderAction cancels the reader's current action.
func (c *Client) CancelReaderAction(ctx context.Context, readerID string) error {
	params := &stripe.TerminalReaderCancelActionParams{}
	params.Context = ctx

	_, err := c.readers.CancelAction(readerID, params)
	observe("cancel_action", err)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == errCodeActionNotAllowed {
			return &gateway.Error{
				Op:         "cancel reader action",
				Code:       string(stripeErr.Code),
				StatusCode: stripeErr.HTTPStatusCode,
				Message:    stripeErr.Msg,
				Err:        gateway.ErrNoReaderAction,
			}
		}
		return wrapError("cancel reader action", err)
	}

	c.logger.Info("reader action canceled", zap.String("reader", readerID))
	return nil
}

// collectInputsParams mirrors the collect_inputs reader endpoint, which the
// pinned SDK version has no typed method for.
type collectInputsParams struct {
	stripe.Params `form:"*"`
	Inputs        []*collectInput `form:"inputs"`
}

type collectInput struct {
	Type       *string             `form:"type"`
	CustomText *collectInputLabels `form:"custom_text"`
}

type collectInputLabels struct {
	Title *string `form:"title"`
}

var contactFieldTitles = map[domain.ContactField]string{
	domain.ContactFieldEmail: "Email for your receipt",
	domain.ContactFieldPhone: "Phone number",
}

// CollectCustomerContact prompts the customer on the reader for the given fields.
func (c *Client) CollectCustomerContact(ctx context.Context, readerID string, fields []domain.ContactField) (*domain.ReaderAction, error) {
	params := &collectInputsParams{}
	params.Context = ctx
	for _, f := range fields {
		title, ok := contactFieldTitles[f]
		if !ok {
			return nil, fmt.Errorf("unsupported contact field %q", f)
		}
		params.Inputs = append(params.Inputs, &collectInput{
			Type:       stripe.String(string(f)),
			CustomText: &collectInputLabels{Title: stripe.String(title)},
		})
	}

	r := &stripe.TerminalReader{}
	path := stripe.FormatURLPath("/v1/terminal/readers/%s/collect_inputs", readerID)
	err := c.readers.B.Call(http.MethodPost, path, c.readers.Key, params, r)
	observe("collect_inputs", err)
	if err != nil {
		return nil, wrapError("collect inputs", err)
	}

	return toDomainAction(r), nil
}

func toDomainIntent(pi *stripe.PaymentIntent) *domain.PaymentIntent {
	intent := &domain.PaymentIntent{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       domain.IntentStatus(pi.Status),
		Description:  pi.Description,
		Metadata:     pi.Metadata,
		ReceiptEmail: pi.ReceiptEmail,
	}
	if pi.Created > 0 {
		intent.Created = time.Unix(pi.Created, 0).UTC()
	}
	if pi.LastPaymentError != nil {
		intent.LastPaymentError = pi.LastPaymentError.Msg
		if intent.LastPaymentError == "" {
			intent.LastPaymentError = string(pi.LastPaymentError.Code)
		}
	}
	return intent
}

func toDomainAction(r *stripe.TerminalReader) *domain.ReaderAction {
	action := &domain.ReaderAction{ReaderID: r.ID}
	if r.Action != nil {
		action.Type = domain.ReaderActionType(r.Action.Type)
		action.Status = domain.ReaderActionStatus(r.Action.Status)
		action.FailureCode = r.Action.FailureCode
		action.FailureMessage = r.Action.FailureMessage
	}
	return action
}

// wrapError converts SDK errors into gateway errors carrying Stripe's message.
func wrapError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &gateway.Error{
			Op:         op,
			Code:       string(stripeErr.Code),
			StatusCode: stripeErr.HTTPStatusCode,
			Message:    stripeErr.Msg,
			Err:        err,
		}
	}
	return &gateway.Error{Op: op, Message: err.Error(), Err: err}
}

func observe(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`pos_gateway_requests_total{op=%q,result=%q}`, op, result)).Inc()
}
