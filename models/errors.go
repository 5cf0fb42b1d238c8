package models

import "errors"

// Общие ошибки доменной модели. Все ошибки разбора и валидации оборачиваются
// через fmt.Errorf("...: %w", ...) вокруг одного из этих сентинелов.
var (
	// Ошибки разбора токенов
	ErrInvalidIdentifier  = errors.New("invalid match identifier token")
	ErrInvalidAdminAction = errors.New("invalid admin action token")
	ErrInvalidSeeding     = errors.New("invalid seeding token")

	// Ошибки валидации структуры турнира
	ErrValidationFailed    = errors.New("validation failed")
	ErrEmptyStageList      = errors.New("tournament must declare at least one stage")
	ErrBadInternalName     = errors.New("internal name must match [A-Za-z0-9_]+")
	ErrUnknownFormat       = errors.New("unknown stage format")
	ErrUnknownGame         = errors.New("round references an unknown game")
	ErrBadPlayerLimit      = errors.New("player limit must be positive")
	ErrBadRoleOrder        = errors.New("role order must be a permutation of the game's roles")
	ErrEliminationGameRule = errors.New("single elimination rounds require two-role fixed-sum games with weight 1.0")

	// Ошибки результатов
	ErrBadGoalValue      = errors.New("goal value must be within [0, 100]")
	ErrMissingGoals      = errors.New("completed result must carry goal values")
	ErrUnexpectedGoals   = errors.New("aborted result must not carry goal values")
	ErrNegativeIDField   = errors.New("match identifier fields must be non-negative")
	ErrDuplicatePlayer   = errors.New("seeding contains a duplicate player")
	ErrEmptyPlayer       = errors.New("player name must not be empty")
	ErrUnknownActionKind = errors.New("unknown admin action kind")
)
