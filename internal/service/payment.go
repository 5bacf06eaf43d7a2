package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pos/internal/domain"
	"pos/internal/gateway"
)

// contactFields are requested from the customer after a successful payment.
var contactFields = []domain.ContactField{domain.ContactFieldEmail, domain.ContactFieldPhone}

// PaymentConfig holds the per-process payment settings handed to the service
// at construction time.
type PaymentConfig struct {
	ReaderID               string
	DefaultCurrency        string
	Description            string
	CollectCustomerContact bool
	// ReaderReleaseTimeout bounds the reader cancel issued after a poll timeout.
	ReaderReleaseTimeout time.Duration
}

// PaymentService handles intent creation, reader dispatch and cancellation.
// It keeps no state between requests; the gateway is the source of truth.
type PaymentService struct {
	gateway gateway.Gateway
	poller  *Poller
	tasks   *BackgroundRunner
	cfg     PaymentConfig
	logger  *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(gw gateway.Gateway, poller *Poller, tasks *BackgroundRunner, cfg PaymentConfig, logger *zap.Logger) *PaymentService {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}
	if cfg.ReaderReleaseTimeout <= 0 {
		cfg.ReaderReleaseTimeout = 10 * time.Second
	}

	return &PaymentService{
		gateway: gw,
		poller:  poller,
		tasks:   tasks,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreateIntentRequest contains the parameters for creating a payment intent.
type CreateIntentRequest struct {
	Amount         int64
	Currency       string
	Metadata       map[string]string
	ReceiptEmail   string
	IdempotencyKey string
}

// CreateIntent validates the request and creates a card-present intent.
// It returns the gateway's intent id unchanged.
func (s *PaymentService) CreateIntent(ctx context.Context, req CreateIntentRequest) (string, error) {
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	pi, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentParams{
		Amount:         req.Amount,
		Currency:       currency,
		Description:    s.cfg.Description,
		Metadata:       req.Metadata,
		ReceiptEmail:   strings.TrimSpace(req.ReceiptEmail),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		s.logger.Error("error creating payment intent", zap.Error(err))
		return "", err
	}

	return pi.ID, nil
}

// ProcessOnReader sends the intent to the configured reader and waits for it
// to reach a terminal status.
func (s *PaymentService) ProcessOnReader(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	if intentID == "" {
		return nil, ErrMissingPaymentIntent
	}

	if s.cfg.ReaderID == "" {
		return nil, ErrReaderNotConfigured
	}

	log := s.logger.With(zap.String("payment_intent", intentID), zap.String("reader", s.cfg.ReaderID))

	action, err := s.gateway.DispatchToReader(ctx, s.cfg.ReaderID, intentID)
	if err != nil {
		log.Error("error processing on reader", zap.Error(err))
		return nil, err
	}

	if action.Status == domain.ReaderActionStatusFailed {
		log.Warn("reader rejected payment",
			zap.String("failure_code", action.FailureCode),
			zap.String("failure_message", action.FailureMessage),
		)
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, action.FailureMessage)
	}

	result, err := s.poller.Poll(ctx, intentID)
	if err != nil {
		log.Error("error polling payment intent", zap.Int("attempts", result.Attempts), zap.Error(err))
		return nil, err
	}

	switch result.Outcome {
	case OutcomeSucceeded:
		return result.Intent, nil
	case OutcomeTimeout:
		// Release the reader so the next sale can start.
		s.releaseReader(ctx, log)
	}

	return nil, result.Err()
}

// releaseReader makes a best-effort attempt to cancel the reader's action,
// detached from the request so a disconnected client still frees the device.
func (s *PaymentService) releaseReader(ctx context.Context, log *zap.Logger) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ReaderReleaseTimeout)
	defer cancel()

	if err := s.gateway.CancelReaderAction(cleanupCtx, s.cfg.ReaderID); err != nil {
		log.Warn("failed to cancel reader action after timeout", zap.Error(err))
	}
}

// CancelPayment cancels any action on the reader and then, if an intent id is
// given, the intent itself. Reader cancellation failures are logged only.
func (s *PaymentService) CancelPayment(ctx context.Context, intentID string) error {
	log := s.logger.With(zap.String("payment_intent", intentID), zap.String("reader", s.cfg.ReaderID))

	switch err := s.cancelReaderAction(ctx); {
	case err == nil:
		log.Info("reader action canceled")
	case errors.Is(err, gateway.ErrNoReaderAction):
		log.Info("no reader action to cancel", zap.Error(err))
	default:
		log.Warn("failed to cancel reader action", zap.Error(err))
	}

	if intentID == "" {
		return nil
	}

	if _, err := s.gateway.CancelIntent(ctx, intentID); err != nil {
		log.Error("error canceling payment intent", zap.Error(err))
		return err
	}

	log.Info("payment intent canceled")
	return nil
}

func (s *PaymentService) cancelReaderAction(ctx context.Context) error {
	if s.cfg.ReaderID == "" {
		return ErrReaderNotConfigured
	}
	return s.gateway.CancelReaderAction(ctx, s.cfg.ReaderID)
}

// ScheduleContactCollection prompts the customer for receipt contact details
// on the reader. It is meant to be called after the payment result has been
// sent; the prompt runs detached and its failure is only logged.
func (s *PaymentService) ScheduleContactCollection(intent *domain.PaymentIntent) bool {
	if !s.cfg.CollectCustomerContact || s.cfg.ReaderID == "" || intent == nil {
		return false
	}

	readerID := s.cfg.ReaderID
	return s.tasks.Go("collect_customer_contact:"+intent.ID, func(ctx context.Context) error {
		action, err := s.gateway.CollectCustomerContact(ctx, readerID, contactFields)
		if err != nil {
			return err
		}
		s.logger.Info("customer contact collection started",
			zap.String("payment_intent", intent.ID),
			zap.String("reader", readerID),
			zap.String("action_status", string(action.Status)),
		)
		return nil
	})
}
