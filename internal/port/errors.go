package port

import "errors"

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict means the optimistic lock guard missed: another
	// transaction committed against the same key first.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateIdempotencyKey means the idempotency key is already bound
	// to a committed transaction.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)
