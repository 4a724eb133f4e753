package services

import "errors"

// Shared error values used across services and the HTTP error mapping.
// Configuration errors are fatal to the requested operation and never retried;
// state errors are fatal to the request with no partial mutation committed.
var (
	// Configuration errors.
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrInvalidFormat          = errors.New("invalid tournament format")
	ErrInvalidSeedingMethod   = errors.New("invalid seeding method")
	ErrInvalidGameType        = errors.New("invalid game type")
	ErrInvalidCapacity        = errors.New("tournament capacity out of the supported range")

	// Not found.
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserNotFound        = errors.New("user not found")

	// State errors.
	ErrTournamentAlreadyComplete = errors.New("tournament is already complete")
	ErrTournamentNotInProgress   = errors.New("tournament is not in progress")
	ErrRoundNotComplete          = errors.New("current round is not complete")
	ErrRoundNotActive            = errors.New("round is not active")
	ErrNoRoundReady              = errors.New("no round is ready to start")
	ErrMatchAlreadyCompleted     = errors.New("match result already recorded")
	ErrMatchMissingOpponent      = errors.New("match does not have both sides populated")
	ErrMatchIsBye                = errors.New("cannot submit a result for a bye")
	ErrWinnerNotInMatch          = errors.New("declared winner is not a side of this match")
	ErrParticipantEliminated     = errors.New("participant is already eliminated")
	ErrRegistrationClosed        = errors.New("tournament registration is closed")
	ErrTournamentFull            = errors.New("tournament is full")

	// Conflicts.
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserNicknameConflict = errors.New("nickname is already in use")
	ErrRegistrationConflict = errors.New("player is already registered for this tournament")

	// Authentication and authorization.
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Infrastructure.
	ErrLogoStorageDisabled = errors.New("logo storage is not configured")
)
