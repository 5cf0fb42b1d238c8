package models

import (
	"fmt"
	"regexp"
	"time"
)

type FormatTag string

const (
	FormatSingleElimination FormatTag = "single-elimination"
	FormatSwissV1           FormatTag = "swiss-v1"
	FormatSwissV2           FormatTag = "swiss-v2"
)

// MatchSpec — один запланированный матч внутри раунда.
type MatchSpec struct {
	Game       string  `json:"game"`
	StartClock int     `json:"start_clock"`
	PlayClock  int     `json:"play_clock"`
	RoleOrder  []int   `json:"role_order,omitempty"` // роль -> слот пары/группы; nil = тождественное соответствие
	Weight     float64 `json:"weight"`               // множитель очков, по умолчанию 1.0
}

// EffectiveWeight возвращает вес матча с учетом значения по умолчанию.
func (m MatchSpec) EffectiveWeight() float64 {
	if m.Weight == 0 {
		return 1.0
	}
	return m.Weight
}

// RoleFor возвращает слот группы, играющий роль role.
func (m MatchSpec) RoleFor(role int) int {
	if m.RoleOrder == nil {
		return role
	}
	return m.RoleOrder[role]
}

// RoundSpec — упорядоченный список матчей раунда. Раунд может представлять
// короткую best-of серию против одного и того же соперника.
type RoundSpec struct {
	StartsAt *time.Time  `json:"starts_at,omitempty"`
	Matches  []MatchSpec `json:"matches"`
}

// Clone возвращает глубокую копию раунда.
func (r RoundSpec) Clone() RoundSpec {
	cp := r
	if r.StartsAt != nil {
		at := *r.StartsAt
		cp.StartsAt = &at
	}
	cp.Matches = make([]MatchSpec, len(r.Matches))
	for mi, match := range r.Matches {
		mcp := match
		if match.RoleOrder != nil {
			mcp.RoleOrder = append([]int(nil), match.RoleOrder...)
		}
		cp.Matches[mi] = mcp
	}
	return cp
}

// StageSpec — одна стадия турнира.
type StageSpec struct {
	Format FormatTag   `json:"format"`
	Rounds []RoundSpec `json:"rounds"`
	// PlayerLimit ограничивает число игроков, проходящих в СЛЕДУЮЩУЮ стадию.
	// 0 означает отсутствие ограничения.
	PlayerLimit int `json:"player_limit,omitempty"`
	// Excluded — игроки, исключенные начиная с этой стадии.
	Excluded []Player `json:"excluded,omitempty"`
}

// TournamentStructure — неизменяемое описание турнира.
type TournamentStructure struct {
	DisplayName string          `json:"display_name"`
	Name        string          `json:"name"` // внутреннее имя, [A-Za-z0-9_]+
	Games       map[string]Game `json:"games"`
	Stages      []StageSpec     `json:"stages"`
}

var internalNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate проверяет структурные инварианты турнира, включая правила
// конкретных форматов. Вызывается до любой симуляции.
func (t *TournamentStructure) Validate() error {
	if !internalNameRe.MatchString(t.Name) {
		return fmt.Errorf("%w: %q", ErrBadInternalName, t.Name)
	}
	if len(t.Stages) == 0 {
		return ErrEmptyStageList
	}
	for si, stage := range t.Stages {
		switch stage.Format {
		case FormatSingleElimination, FormatSwissV1, FormatSwissV2:
		default:
			return fmt.Errorf("%w: stage %d has format %q", ErrUnknownFormat, si, stage.Format)
		}
		if stage.PlayerLimit < 0 {
			return fmt.Errorf("%w: stage %d", ErrBadPlayerLimit, si)
		}
		if len(stage.Rounds) == 0 {
			return fmt.Errorf("%w: stage %d has no rounds", ErrValidationFailed, si)
		}
		for ri, round := range stage.Rounds {
			if len(round.Matches) == 0 {
				return fmt.Errorf("%w: stage %d round %d has no matches", ErrValidationFailed, si, ri)
			}
			for mi, match := range round.Matches {
				game, ok := t.Games[match.Game]
				if !ok {
					return fmt.Errorf("%w: %q (stage %d round %d match %d)", ErrUnknownGame, match.Game, si, ri, mi)
				}
				if match.Weight < 0 {
					return fmt.Errorf("%w: negative weight (stage %d round %d match %d)", ErrValidationFailed, si, ri, mi)
				}
				if match.RoleOrder != nil {
					if err := validateRoleOrder(match.RoleOrder, game.Roles); err != nil {
						return fmt.Errorf("%w (stage %d round %d match %d)", err, si, ri, mi)
					}
				}
				if stage.Format == FormatSingleElimination {
					if game.Roles != 2 || !game.FixedSum || match.EffectiveWeight() != 1.0 {
						return fmt.Errorf("%w (stage %d round %d match %d)", ErrEliminationGameRule, si, ri, mi)
					}
				}
			}
		}
	}
	return nil
}

func validateRoleOrder(order []int, roles int) error {
	if len(order) != roles {
		return fmt.Errorf("%w: got %d entries for %d roles", ErrBadRoleOrder, len(order), roles)
	}
	seen := make([]bool, roles)
	for _, slot := range order {
		if slot < 0 || slot >= roles || seen[slot] {
			return fmt.Errorf("%w: %v", ErrBadRoleOrder, order)
		}
		seen[slot] = true
	}
	return nil
}

// Clone возвращает глубокую копию структуры. Используется при применении
// административных действий, чтобы базовое описание оставалось неизменным.
func (t *TournamentStructure) Clone() *TournamentStructure {
	out := &TournamentStructure{
		DisplayName: t.DisplayName,
		Name:        t.Name,
		Games:       make(map[string]Game, len(t.Games)),
		Stages:      make([]StageSpec, len(t.Stages)),
	}
	for name, g := range t.Games {
		out.Games[name] = g
	}
	for si, stage := range t.Stages {
		cp := stage
		cp.Rounds = make([]RoundSpec, len(stage.Rounds))
		for ri, round := range stage.Rounds {
			cp.Rounds[ri] = round.Clone()
		}
		if stage.Excluded != nil {
			cp.Excluded = append([]Player(nil), stage.Excluded...)
		}
		out.Stages[si] = cp
	}
	return out
}
