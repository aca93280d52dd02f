package domain

import "errors"

var (
	// ErrValidation rejects a malformed proposal before it reaches the
	// ledger. The wrapped message names the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock rejects a SUBTRACT that would drive the
	// quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConcurrentModification surfaces after the commit retry budget is
	// exhausted. Transient: resubmitting with the same idempotency key is
	// always safe.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrDuplicateSubmission marks an idempotent replay. Not a failure:
	// it travels with the originally committed transaction so callers can
	// return the original outcome unchanged.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)
