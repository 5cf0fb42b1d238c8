package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed    = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid admin password")
	ErrDocumentRequired    = errors.New("tournament document is required")
	ErrSeedingRequired     = errors.New("seeding is required")
	ErrResultAlreadyKnown  = errors.New("result for this match token is already recorded")
	ErrTournamentConflict  = errors.New("tournament name already exists")
	ErrUnknownMatchToken   = errors.New("match identifier token is malformed")
	ErrAuthenticationError = errors.New("authentication failed")
)
