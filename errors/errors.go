package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Recoverable state conflicts. Callers answer with a user-facing
	// message and no state is corrupted.
	ErrAlreadyWaiting   = fmt.Errorf("participant already waiting")
	ErrAlreadyInSession = fmt.Errorf("participant already in a session")
	ErrParticipantBusy  = fmt.Errorf("participant busy")
	ErrNotFound         = fmt.Errorf("session not found")
	ErrNotInSession     = fmt.Errorf("participant not in a session")
	ErrNoActiveSession  = fmt.Errorf("no active session")

	// ErrRegistryInconsistent signals a broken index invariant.
	// It is fatal for the operation and must be logged, never swallowed.
	ErrRegistryInconsistent = fmt.Errorf("session registry index inconsistent")
)
