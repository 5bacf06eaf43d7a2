package gateway

import "errors"

var (
	// ErrNoReaderAction is returned when a reader has no action to cancel.
	ErrNoReaderAction = errors.New("reader has no action to cancel")

	// ErrInvalidSignature is returned when a webhook signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Error is a failure reported by the payment processor.
// Its message is the processor's own message, passed through verbatim.
type Error struct {
	Op         string
	Code       string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + " failed"
}

func (e *Error) Unwrap() error {
	return e.Err
}
