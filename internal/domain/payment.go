package domain

import "time"

// IntentStatus represents the gateway-side status of a payment intent.
// Values not listed below are passed through unchanged.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusRequiresCapture       IntentStatus = "requires_capture"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

// PaymentIntent is a request-scoped view of an intent owned by the gateway.
type PaymentIntent struct {
	ID               string            `json:"id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           IntentStatus      `json:"status"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	ReceiptEmail     string            `json:"receipt_email,omitempty"`
	LastPaymentError string            `json:"last_payment_error,omitempty"`
	Created          time.Time         `json:"created"`
}

// Declined reports whether the reader attempted the card and the attempt
// failed, leaving the intent waiting for a new payment method.
func (pi *PaymentIntent) Declined() bool {
	return pi.Status == IntentStatusRequiresPaymentMethod && pi.LastPaymentError != ""
}
