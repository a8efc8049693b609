package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write loses its fencing check
	ErrConflict = errors.New("conflict: state was advanced by another writer")

	// ErrUnavailable is returned on transient backend failures; reads may be
	// retried, writes must be surfaced to the caller
	ErrUnavailable = errors.New("backend unavailable")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
