package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStructure() *TournamentStructure {
	return &TournamentStructure{
		DisplayName: "Spring Open",
		Name:        "spring_open",
		Games: map[string]Game{
			"chess": {Name: "chess", Roles: 2, FixedSum: true},
			"maze":  {Name: "maze", Roles: 1},
		},
		Stages: []StageSpec{
			{
				Format: FormatSwissV1,
				Rounds: []RoundSpec{
					{Matches: []MatchSpec{{Game: "chess"}}},
					{Matches: []MatchSpec{{Game: "maze", Weight: 0.5}}},
				},
				PlayerLimit: 4,
			},
			{
				Format: FormatSingleElimination,
				Rounds: []RoundSpec{
					{Matches: []MatchSpec{{Game: "chess"}}},
					{Matches: []MatchSpec{{Game: "chess", RoleOrder: []int{1, 0}}}},
				},
			},
		},
	}
}

func TestStructureValidate_OK(t *testing.T) {
	require.NoError(t, validStructure().Validate())
}

func TestStructureValidate_BadInternalName(t *testing.T) {
	s := validStructure()
	s.Name = "spring open"
	assert.ErrorIs(t, s.Validate(), ErrBadInternalName)
}

func TestStructureValidate_NoStages(t *testing.T) {
	s := validStructure()
	s.Stages = nil
	assert.ErrorIs(t, s.Validate(), ErrEmptyStageList)
}

func TestStructureValidate_UnknownFormat(t *testing.T) {
	s := validStructure()
	s.Stages[0].Format = "double-elimination"
	assert.ErrorIs(t, s.Validate(), ErrUnknownFormat)
}

func TestStructureValidate_UnknownGame(t *testing.T) {
	s := validStructure()
	s.Stages[0].Rounds[0].Matches[0].Game = "poker"
	assert.ErrorIs(t, s.Validate(), ErrUnknownGame)
}

func TestStructureValidate_BadRoleOrder(t *testing.T) {
	s := validStructure()
	s.Stages[0].Rounds[0].Matches[0].RoleOrder = []int{0, 0}
	assert.ErrorIs(t, s.Validate(), ErrBadRoleOrder)
}

func TestStructureValidate_EliminationGameRules(t *testing.T) {
	t.Run("one-role game", func(t *testing.T) {
		s := validStructure()
		s.Stages[1].Rounds[0].Matches[0].Game = "maze"
		assert.ErrorIs(t, s.Validate(), ErrEliminationGameRule)
	})
	t.Run("non fixed-sum game", func(t *testing.T) {
		s := validStructure()
		s.Games["duel"] = Game{Name: "duel", Roles: 2, FixedSum: false}
		s.Stages[1].Rounds[0].Matches[0].Game = "duel"
		assert.ErrorIs(t, s.Validate(), ErrEliminationGameRule)
	})
	t.Run("weighted match", func(t *testing.T) {
		s := validStructure()
		s.Stages[1].Rounds[0].Matches[0].Weight = 2.0
		assert.ErrorIs(t, s.Validate(), ErrEliminationGameRule)
	})
}

func TestStructureValidate_NegativePlayerLimit(t *testing.T) {
	s := validStructure()
	s.Stages[0].PlayerLimit = -1
	assert.ErrorIs(t, s.Validate(), ErrBadPlayerLimit)
}

func TestMatchSpecEffectiveWeight(t *testing.T) {
	assert.Equal(t, 1.0, MatchSpec{}.EffectiveWeight())
	assert.Equal(t, 0.5, MatchSpec{Weight: 0.5}.EffectiveWeight())
}

func TestMatchSpecRoleFor(t *testing.T) {
	assert.Equal(t, 1, MatchSpec{}.RoleFor(1))
	assert.Equal(t, 0, MatchSpec{RoleOrder: []int{1, 0}}.RoleFor(1))
}

func TestStructureClone_IsDeep(t *testing.T) {
	base := validStructure()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	base.Stages[0].Rounds[0].StartsAt = &at
	base.Stages[0].Excluded = []Player{"mallory"}

	cp := base.Clone()
	require.Equal(t, base, cp)

	cp.Games["chess"] = Game{Name: "chess", Roles: 4}
	cp.Stages[0].Rounds[0].Matches[0].Game = "maze"
	*cp.Stages[0].Rounds[0].StartsAt = at.Add(time.Hour)
	cp.Stages[0].Excluded[0] = "eve"
	cp.Stages[1].Rounds[1].Matches[0].RoleOrder[0] = 0

	assert.Equal(t, 2, base.Games["chess"].Roles)
	assert.Equal(t, "chess", base.Stages[0].Rounds[0].Matches[0].Game)
	assert.Equal(t, at, *base.Stages[0].Rounds[0].StartsAt)
	assert.Equal(t, Player("mallory"), base.Stages[0].Excluded[0])
	assert.Equal(t, 1, base.Stages[1].Rounds[1].Matches[0].RoleOrder[0])
}
