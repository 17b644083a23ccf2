package domain

import "errors"

var (
	ErrNameRequired      = errors.New("name required")
	ErrEmailRequired     = errors.New("email required")
	ErrInvalidTicketType = errors.New("invalid ticket type")
	ErrIssuanceFailed    = errors.New("issuance failed")

	ErrMalformedPayload = errors.New("malformed payload")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPreconditionFailed is returned by stores when a conditional update
	// finds the record in a different state than expected.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// ErrUnknownTicket is what a scanner sees for an id the store does not know.
var ErrUnknownTicket = ErrTicketNotFound
