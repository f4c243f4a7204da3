package services

import "errors"

// Engine error taxonomy. GuardViolation and Conflict are recoverable: the
// caller re-fetches state and retries or informs the human actor. Unauthorized
// is surfaced, never retried automatically.
var (
	// ErrValidation marks malformed input, rejected before any state read.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent referenced entity.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks an actor whose role cannot perform the transition.
	ErrUnauthorized = errors.New("actor not allowed")

	// ErrGuardViolation marks a state-machine precondition that does not hold,
	// e.g. approving an already-rejected engagement.
	ErrGuardViolation = errors.New("state transition not allowed")

	// ErrConflict marks an optimistic-concurrency loss: a concurrent writer
	// won the race (for example a second approval for the same task).
	ErrConflict = errors.New("conflicting concurrent update")
)
