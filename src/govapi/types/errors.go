// Package types holds the persisted models and the service error taxonomy.
package types

import "errors"

var (
	ErrBlacklisted        = errors.New("address is blacklisted")
	ErrInsufficientWeight = errors.New("insufficient voting weight")
	ErrIneligible         = errors.New("balance below proposal threshold")
	ErrDuplicateVote      = errors.New("vote already cast")
	ErrVotingClosed       = errors.New("voting has ended")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrUnauthorized       = errors.New("not authorized")
	ErrNotFound           = errors.New("record not found")
	ErrValidation         = errors.New("invalid input")

	// Retryable classes: the caller or scheduler should back off and retry
	// the whole operation.
	ErrOracleUnavailable = errors.New("balance oracle unavailable")
	ErrStoreUnavailable  = errors.New("store temporarily unavailable")
)

// IsRetryable reports whether the failure is transient rather than a
// permanent denial.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOracleUnavailable) || errors.Is(err, ErrStoreUnavailable)
}
