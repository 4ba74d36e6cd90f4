package domain

import "errors"

var (
	// ErrSlotUnavailable: the conditional booking write failed because the
	// slot is already booked or no longer exists in available state. The
	// caller should re-query and pick another time, not retry the same slot.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrTransactionAborted: the store rejected the transaction for reasons
	// other than the business condition (concurrent conflicting write).
	// Transient; safe to retry once.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrNotFound: the referenced slot or booking does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation: malformed input, rejected before any store call.
	ErrValidation = errors.New("validation error")
)
