package domain

import "errors"

// Sentinel errors for business-rule and data failures. The HTTP layer maps
// these to stable machine-readable codes; wrap with fmt.Errorf("...: %w", err)
// to add context without losing the kind.
var (
	// ErrNotFound indicates a missing route, wallet, ticket, or schedule.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance rejects a debit larger than the wallet balance.
	// No side effects occur on this path.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount rejects non-positive or out-of-range amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrConflict indicates a uniqueness violation (transaction reference or
	// ticket QR code). Callers retry with a regenerated value up to a bound.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated indicates a missing or unknown credential token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrValidation indicates malformed input rejected before any side effect.
	ErrValidation = errors.New("validation failed")
)
