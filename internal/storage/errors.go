package storage

import "errors"

// Storage errors shared by all account store implementations.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when creating an account at an address that
	// is already live. Accounts are never silently overwritten.
	ErrDuplicateKey = errors.New("duplicate key: account address already in use")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a concurrent unit of work touched the same
	// account. The whole unit is aborted; the caller may resubmit it.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrTxDone is returned when a committed or rolled back tx is used again.
	ErrTxDone = errors.New("transaction already finished")
)
