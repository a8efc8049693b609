package ledger

import "errors"

var (
	// ErrInvalidInput indicates a transaction or request that fails
	// structural validation (missing profile id, unknown type).
	ErrInvalidInput = errors.New("invalid ledger input")
	// ErrProfileNotFound indicates the owning profile doesn't exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrTaskNotFound indicates the referenced task is not on the profile.
	ErrTaskNotFound = errors.New("task not found")
	// ErrConsequenceNotFound indicates the referenced consequence type is not
	// configured on the profile.
	ErrConsequenceNotFound = errors.New("consequence not found")
	// ErrInsufficientBalance indicates a redemption exceeds the available
	// balance or privileges are suspended (balance at or below zero).
	ErrInsufficientBalance = errors.New("insufficient balance")
)
