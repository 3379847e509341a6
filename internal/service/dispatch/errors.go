package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrCustomerNotFound means the target customer id does not exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrInsightNotFound means no service insight exists for the target,
	// either by insight id or as the customer's latest bundle.
	ErrInsightNotFound = errors.New("service insight not found")

	// ErrNoPhoneNumber means the customer has neither a primary nor an
	// alternate phone number.
	ErrNoPhoneNumber = errors.New("customer has no phone number")

	// ErrNoEmailAddress means the customer record has no email address.
	ErrNoEmailAddress = errors.New("customer has no email address")
)

// SendError wraps a transport failure with the channel it occurred on.
// The ledger holds no row for a failed SMS/WhatsApp send; a failed email
// send discards its reserved row.
type SendError struct {
	Channel string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send failed: %v", e.Channel, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
