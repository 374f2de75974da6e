package services

import "errors"

// Sentinel errors shared across services and mapped to HTTP statuses in
// the handlers. They split into four families: validation (local, never
// partially applied), not-ready (retryable once upstream completes),
// conflict (surfaced to the caller, never auto-retried) and configuration
// or integrity failures (fatal to the enclosing operation).
var (
	// Not found.
	ErrNotFound           = errors.New("requested resource not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrBracketNotFound    = errors.New("bracket not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Validation.
	ErrValidationFailed       = errors.New("validation failed")
	ErrInvalidScore           = errors.New("score does not satisfy the category format")
	ErrInvalidTransition      = errors.New("invalid match status transition")
	ErrForfeitReasonRequired  = errors.New("forfeit requires a reason")
	ErrRescheduleTimeRequired = errors.New("reschedule requires a new date/time")
	ErrInvalidSlot            = errors.New("slot must be 1 or 2")
	ErrSlotNotResolvable      = errors.New("slot does not hold a walkover sentinel")

	// Not ready.
	ErrMatchNotReady = errors.New("match slots are not resolved yet")

	// Conflicts.
	ErrMatchAlreadyCompleted  = errors.New("match already completed")
	ErrMatchTerminal          = errors.New("match is in a terminal state")
	ErrCorrectionConflict     = errors.New("downstream match already progressed, correction requires manual intervention")
	ErrSlotConflict           = errors.New("downstream slot already filled")
	ErrBracketAlreadyBuilt    = errors.New("a bracket already exists for this category")
	ErrCorrectionNotCompleted = errors.New("correction is only allowed on a completed match")

	// Configuration / build-time.
	ErrInsufficientParticipants = errors.New("at least 2 participants are required to build a bracket")
	ErrConfigurationInvalid     = errors.New("invalid category format configuration")

	// Data integrity: a propagation target is missing or inconsistent.
	// Always aborts the enclosing transaction.
	ErrBracketIntegrity = errors.New("bracket integrity violation")

	// Tournament CRUD.
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
