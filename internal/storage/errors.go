package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyResolved is returned when writing a result to a signal
	// that already carries a different terminal outcome. Outcomes are
	// write-once.
	ErrAlreadyResolved = errors.New("signal already resolved with a different outcome")
)
