package service

import (
	"context"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"go.uber.org/zap"

	"pos/internal/domain"
)

// IntentGetter is the read-only slice of the gateway the poller needs.
type IntentGetter interface {
	GetIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
}

// Outcome is the terminal classification of a poll. The zero value means no
// terminal status was observed.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// PollResult is the typed result of a completed poll.
type PollResult struct {
	Outcome  Outcome
	Intent   *domain.PaymentIntent // last observed representation, nil if never fetched
	Reason   string                // failure or timeout detail
	Attempts int
}

// Err maps a non-successful result to its sentinel error.
func (r PollResult) Err() error {
	switch r.Outcome {
	case OutcomeSucceeded:
		return nil
	case OutcomeTimeout:
		return fmt.Errorf("%w: %s", ErrPollTimeout, r.Reason)
	case OutcomeFailed:
		if r.Intent != nil && r.Intent.Status == domain.IntentStatusCanceled {
			return ErrIntentCanceled
		}
		return fmt.Errorf("%w: %s", ErrPaymentDeclined, r.Reason)
	default:
		return ErrPollIncomplete
	}
}

// PollerConfig bounds the poll loop.
type PollerConfig struct {
	Interval       time.Duration
	MaxWait        time.Duration
	MaxAttempts    int
	MaxQueryErrors int // consecutive gateway errors tolerated before giving up
}

var (
	pollSucceededCounter = metrics.NewCounter(`pos_poll_total{outcome="succeeded"}`)
	pollFailedCounter    = metrics.NewCounter(`pos_poll_total{outcome="failed"}`)
	pollTimeoutCounter   = metrics.NewCounter(`pos_poll_total{outcome="timeout"}`)
	pollErrorCounter     = metrics.NewCounter(`pos_poll_total{outcome="error"}`)
	pollAttempts         = metrics.NewHistogram(`pos_poll_attempts`)
)

// Poller drives an intent that is already on a reader to a terminal status.
// One caller, one intent, one outstanding query at a time.
type Poller struct {
	getter IntentGetter
	cfg    PollerConfig
	logger *zap.Logger

	// Sleep waits for d or until ctx is done. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now returns the current time. Replaced in tests.
	Now func() time.Time
}

// NewPoller creates a new Poller. Zero config values fall back to defaults.
func NewPoller(getter IntentGetter, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 1500 * time.Millisecond
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 80
	}
	if cfg.MaxQueryErrors <= 0 {
		cfg.MaxQueryErrors = 3
	}

	return &Poller{
		getter: getter,
		cfg:    cfg,
		logger: logger,
		Sleep:  sleepContext,
		Now:    time.Now,
	}
}

// Poll queries the intent until it succeeds, fails, or the bounds are hit.
// The returned error is non-nil only for gateway failures and context
// cancellation; payment outcomes are reported through PollResult.
func (p *Poller) Poll(ctx context.Context, intentID string) (PollResult, error) {
	if intentID == "" {
		return PollResult{}, ErrMissingPaymentIntent
	}

	log := p.logger.With(zap.String("payment_intent", intentID))
	deadline := p.Now().Add(p.cfg.MaxWait)

	var (
		result    PollResult
		queryErrs int
	)

	for {
		result.Attempts++

		intent, err := p.getter.GetIntent(ctx, intentID)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				pollErrorCounter.Inc()
				return result, ctxErr
			}
			queryErrs++
			log.Warn("failed to query payment intent",
				zap.Int("attempt", result.Attempts),
				zap.Int("consecutive_errors", queryErrs),
				zap.Error(err),
			)
			if queryErrs >= p.cfg.MaxQueryErrors {
				pollErrorCounter.Inc()
				pollAttempts.Update(float64(result.Attempts))
				return result, err
			}

		default:
			queryErrs = 0
			result.Intent = intent

			if done := classify(&result); done {
				p.record(result)
				log.Info("payment intent reached terminal status",
					zap.String("status", string(intent.Status)),
					zap.Stringer("outcome", result.Outcome),
					zap.Int("attempts", result.Attempts),
				)
				return result, nil
			}

			log.Debug("payment intent still pending",
				zap.String("status", string(intent.Status)),
				zap.Int("attempt", result.Attempts),
			)
		}

		if result.Attempts >= p.cfg.MaxAttempts {
			result.Outcome = OutcomeTimeout
			result.Reason = fmt.Sprintf("no terminal status after %d attempts", result.Attempts)
			p.record(result)
			log.Warn("payment intent polling gave up", zap.String("reason", result.Reason))
			return result, nil
		}

		if !p.Now().Add(p.cfg.Interval).Before(deadline) {
			result.Outcome = OutcomeTimeout
			result.Reason = fmt.Sprintf("no terminal status within %s", p.cfg.MaxWait)
			p.record(result)
			log.Warn("payment intent polling gave up", zap.String("reason", result.Reason))
			return result, nil
		}

		if err := p.Sleep(ctx, p.cfg.Interval); err != nil {
			pollErrorCounter.Inc()
			return result, err
		}
	}
}

// classify sets the outcome for terminal statuses and reports whether polling is done.
// A canceled intent is a failure, never a success.
func classify(result *PollResult) bool {
	intent := result.Intent
	switch {
	case intent.Status == domain.IntentStatusSucceeded:
		result.Outcome = OutcomeSucceeded
		return true
	case intent.Status == domain.IntentStatusCanceled:
		result.Outcome = OutcomeFailed
		result.Reason = "payment intent was canceled"
		return true
	case intent.Declined():
		result.Outcome = OutcomeFailed
		result.Reason = intent.LastPaymentError
		return true
	default:
		return false
	}
}

func (p *Poller) record(result PollResult) {
	switch result.Outcome {
	case OutcomeSucceeded:
		pollSucceededCounter.Inc()
	case OutcomeFailed:
		pollFailedCounter.Inc()
	case OutcomeTimeout:
		pollTimeoutCounter.Inc()
	}
	pollAttempts.Update(float64(result.Attempts))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
