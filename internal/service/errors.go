package service

import "errors"

var (
	// ErrInvalidAmount is returned when the amount is missing, zero or negative.
	ErrInvalidAmount = errors.New("missing amount")

	// ErrMissingPaymentIntent is returned when a payment intent id is required but empty.
	ErrMissingPaymentIntent = errors.New("missing payment_intent")

	// ErrReaderNotConfigured is returned when no reader id is configured.
	ErrReaderNotConfigured = errors.New("reader not configured")

	// ErrPollTimeout is returned when an intent does not reach a terminal
	// status within the poll bounds.
	ErrPollTimeout = errors.New("timed out waiting for payment to complete")

	// ErrPollIncomplete is reported by a poll that stopped before observing a
	// terminal status, e.g. on a gateway error or cancellation.
	ErrPollIncomplete = errors.New("payment status not determined")

	// ErrIntentCanceled is returned when the intent is canceled while polling.
	ErrIntentCanceled = errors.New("payment was canceled")

	// ErrPaymentDeclined is returned when the reader reports a failed payment attempt.
	ErrPaymentDeclined = errors.New("payment declined")
)
