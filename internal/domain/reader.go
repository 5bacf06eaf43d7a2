package domain

// ReaderActionType identifies the instruction sent to a card reader.
type ReaderActionType string

const (
	ReaderActionProcessPaymentIntent ReaderActionType = "process_payment_intent"
	ReaderActionCollectInputs        ReaderActionType = "collect_inputs"
	ReaderActionCancel               ReaderActionType = "cancel_action"
)

// ReaderActionStatus is the gateway-reported state of a reader action.
type ReaderActionStatus string

const (
	ReaderActionStatusInProgress ReaderActionStatus = "in_progress"
	ReaderActionStatusSucceeded  ReaderActionStatus = "succeeded"
	ReaderActionStatusFailed     ReaderActionStatus = "failed"
)

// ReaderAction is an instruction in progress on a physical reader.
// Reader state is never tracked locally; this only mirrors a gateway response.
type ReaderAction struct {
	ReaderID       string
	Type           ReaderActionType
	Status         ReaderActionStatus
	FailureCode    string
	FailureMessage string
}

// ContactField is a customer detail the reader can prompt for.
type ContactField string

const (
	ContactFieldEmail ContactField = "email"
	ContactFieldPhone ContactField = "phone"
)
