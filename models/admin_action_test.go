package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminActionEncode_RoundTrip(t *testing.T) {
	startAt := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		action AdminAction
	}{
		{"replace game", AdminAction{Kind: ActionReplaceGame, Stage: 0, Round: 1, Match: 2, Game: "chess"}},
		{"replace game unscoped", AdminAction{Kind: ActionReplaceGame, Stage: 1, Round: -1, Match: -1, Game: "go"}},
		{"set clocks", AdminAction{Kind: ActionSetClocks, Stage: 0, Round: 0, Match: -1, StartClock: 60, PlayClock: 15}},
		{"set weight", AdminAction{Kind: ActionSetWeight, Stage: 0, Round: 2, Match: 0, Weight: 2.5}},
		{"set role order", AdminAction{Kind: ActionSetRoleOrder, Stage: 0, Round: 1, Match: -1, RoleOrder: []int{1, 0}}},
		{"set round start", AdminAction{Kind: ActionSetRoundStart, Stage: 0, Round: 3, Match: -1, StartTime: &startAt}},
		{"clear round start", AdminAction{Kind: ActionSetRoundStart, Stage: 0, Round: 3, Match: -1}},
		{"set player limit", AdminAction{Kind: ActionSetPlayerLimit, Stage: 1, Round: -1, Match: -1, PlayerLimit: 8}},
		{"exclude players", AdminAction{Kind: ActionExcludePlayers, Stage: 0, Round: -1, Match: -1, Players: []Player{"alice", "b,ob"}}},
		{"set format", AdminAction{Kind: ActionSetFormat, Stage: 2, Round: -1, Match: -1, Format: FormatSwissV2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := DecodeAdminAction(tc.action.Encode())
			require.NoError(t, err)
			assert.Equal(t, tc.action, decoded)
		})
	}
}

func TestAdminActionEncode_EscapesGameName(t *testing.T) {
	action := AdminAction{Kind: ActionReplaceGame, Stage: 0, Round: -1, Match: -1, Game: `a;b=c\d`}
	decoded, err := DecodeAdminAction(action.Encode())
	require.NoError(t, err)
	assert.Equal(t, action.Game, decoded.Game)
}

func TestDecodeAdminAction_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrUnknownActionKind},
		{"unknown kind", "promote_player;s=0", ErrUnknownActionKind},
		{"bad stage", "set_weight;s=x;r=0;m=0;w=1", ErrInvalidAdminAction},
		{"negative stage", "set_weight;s=-1;r=0;m=0;w=1", ErrInvalidAdminAction},
		{"unknown field", "set_weight;s=0;r=0;m=0;q=1", ErrInvalidAdminAction},
		{"field without value", "set_weight;s=0;r=0;m=0;w", ErrInvalidAdminAction},
		{"missing coordinates", "set_weight;w=1", ErrInvalidAdminAction},
		{"replace game without game", "replace_game;s=0;r=-1;m=-1", ErrInvalidAdminAction},
		{"clocks without play clock", "set_clocks;s=0;r=0;m=0;sc=30", ErrInvalidAdminAction},
		{"weight without value", "set_weight;s=0;r=0;m=0", ErrInvalidAdminAction},
		{"role order without order", "set_role_order;s=0;r=0;m=-1", ErrInvalidAdminAction},
		{"player limit without limit", "set_player_limit;s=0;r=-1;m=-1", ErrInvalidAdminAction},
		{"exclude without players", "exclude_players;s=0;r=-1;m=-1", ErrInvalidAdminAction},
		{"format without tag", "set_format;s=0;r=-1;m=-1", ErrInvalidAdminAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAdminAction(tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAdminActionInvalidates_StageScope(t *testing.T) {
	atOrAfter := RoundComparatorFor(FormatSwissV1)
	a := AdminAction{Kind: ActionSetWeight, Stage: 1, Round: -1, Match: -1}

	assert.False(t, a.Invalidates(0, 5, 0, atOrAfter), "earlier stage untouched")
	assert.True(t, a.Invalidates(1, 0, 0, atOrAfter), "whole edited stage")
	assert.True(t, a.Invalidates(2, 0, 0, atOrAfter), "later stages unconditionally")
}

func TestAdminActionInvalidates_SwissRoundOrder(t *testing.T) {
	atOrAfter := RoundComparatorFor(FormatSwissV1)
	a := AdminAction{Kind: ActionSetClocks, Stage: 0, Round: 2, Match: -1}

	assert.False(t, a.Invalidates(0, 1, 0, atOrAfter))
	assert.True(t, a.Invalidates(0, 2, 0, atOrAfter))
	assert.True(t, a.Invalidates(0, 3, 0, atOrAfter))
}

func TestAdminActionInvalidates_EliminationRoundOrder(t *testing.T) {
	// В олимпийской сетке раунды считаются в обратном отсчете: меньший номер
	// играется позже.
	atOrAfter := RoundComparatorFor(FormatSingleElimination)
	a := AdminAction{Kind: ActionSetClocks, Stage: 0, Round: 2, Match: -1}

	assert.False(t, a.Invalidates(0, 3, 0, atOrAfter), "round 3 plays before round 2")
	assert.True(t, a.Invalidates(0, 2, 0, atOrAfter))
	assert.True(t, a.Invalidates(0, 1, 0, atOrAfter), "final plays after round 2")
}

func TestAdminActionInvalidates_MatchScope(t *testing.T) {
	atOrAfter := RoundComparatorFor(FormatSwissV1)
	a := AdminAction{Kind: ActionSetWeight, Stage: 0, Round: 1, Match: 1}

	assert.False(t, a.Invalidates(0, 1, 0, atOrAfter))
	assert.True(t, a.Invalidates(0, 1, 1, atOrAfter))
	assert.True(t, a.Invalidates(0, 1, 2, atOrAfter))
	assert.True(t, a.Invalidates(0, 2, 0, atOrAfter), "later rounds entirely")
}

func TestEpochFor(t *testing.T) {
	atOrAfter := RoundComparatorFor(FormatSwissV1)
	actions := []AdminAction{
		{Kind: ActionSetWeight, Stage: 0, Round: 0, Match: -1},
		{Kind: ActionSetWeight, Stage: 1, Round: -1, Match: -1},
		{Kind: ActionSetWeight, Stage: 0, Round: 2, Match: -1},
	}

	assert.Equal(t, 0, EpochFor(nil, 0, 0, 0, atOrAfter))
	// Инвалидируют действия 1 и 3; эпоха — 1-based индекс последнего.
	assert.Equal(t, 3, EpochFor(actions, 0, 2, 0, atOrAfter))
	// Раунд 1 стадии 0 затронут только первым действием.
	assert.Equal(t, 1, EpochFor(actions, 0, 1, 0, atOrAfter))
	// Стадию 1 инвалидируют и второе действие, и правка более ранней стадии.
	assert.Equal(t, 3, EpochFor(actions, 1, 4, 2, atOrAfter))
}

func applyActionsFixture() *TournamentStructure {
	return &TournamentStructure{
		Name: "cup",
		Games: map[string]Game{
			"chess": {Name: "chess", Roles: 2, FixedSum: true},
			"go":    {Name: "go", Roles: 2, FixedSum: true},
		},
		Stages: []StageSpec{
			{
				Format: FormatSwissV1,
				Rounds: []RoundSpec{
					{Matches: []MatchSpec{{Game: "chess"}, {Game: "chess"}}},
					{Matches: []MatchSpec{{Game: "chess"}}},
				},
			},
		},
	}
}

func TestApplyActions_DoesNotTouchRounds(t *testing.T) {
	base := applyActionsFixture()
	actions := []AdminAction{
		{Kind: ActionReplaceGame, Stage: 0, Round: 0, Match: 1, Game: "go"},
		{Kind: ActionSetClocks, Stage: 0, Round: -1, Match: -1, StartClock: 90, PlayClock: 30},
	}

	// Правки раундов адресуются координатными номерами и накладываются
	// симулятором; на уровне структуры стадии они прозрачны.
	effective := ApplyActions(base, actions)
	assert.Equal(t, base.Stages[0].Rounds, effective.Stages[0].Rounds)
}

func TestApplyActions_OutOfRangeSkipped(t *testing.T) {
	base := applyActionsFixture()
	actions := []AdminAction{
		{Kind: ActionSetPlayerLimit, Stage: 5, Round: -1, Match: -1, PlayerLimit: 3},
	}
	effective := ApplyActions(base, actions)
	assert.Equal(t, base, effective)
}

func TestApplyActions_OrderMatters(t *testing.T) {
	base := applyActionsFixture()
	actions := []AdminAction{
		{Kind: ActionSetPlayerLimit, Stage: 0, Round: -1, Match: -1, PlayerLimit: 4},
		{Kind: ActionSetPlayerLimit, Stage: 0, Round: -1, Match: -1, PlayerLimit: 8},
	}
	effective := ApplyActions(base, actions)
	assert.Equal(t, 8, effective.Stages[0].PlayerLimit)
}

func effectiveRoundFixture() RoundSpec {
	return RoundSpec{Matches: []MatchSpec{
		{Game: "chess", StartClock: 60, PlayClock: 15},
		{Game: "chess", StartClock: 60, PlayClock: 15},
	}}
}

func TestEffectiveRound_MatchScopedEdit(t *testing.T) {
	base := effectiveRoundFixture()
	actions := []AdminAction{
		{Kind: ActionReplaceGame, Stage: 0, Round: 2, Match: 1, Game: "go"},
	}

	round := EffectiveRound(base, actions, 0, 2)

	assert.Equal(t, "chess", round.Matches[0].Game)
	assert.Equal(t, "go", round.Matches[1].Game)
	// Базовый раунд не изменяется.
	assert.Equal(t, "chess", base.Matches[1].Game)
}

func TestEffectiveRound_AddressedByCoordinateRound(t *testing.T) {
	base := effectiveRoundFixture()
	actions := []AdminAction{
		{Kind: ActionSetClocks, Stage: 0, Round: 2, Match: -1, StartClock: 30, PlayClock: 5},
	}

	// Один и тот же объявленный раунд может разыгрываться под разными
	// координатными номерами; правка задевает только свой номер.
	edited := EffectiveRound(base, actions, 0, 2)
	untouched := EffectiveRound(base, actions, 0, 3)

	assert.Equal(t, 30, edited.Matches[0].StartClock)
	assert.Equal(t, 30, edited.Matches[1].StartClock)
	assert.Equal(t, 60, untouched.Matches[0].StartClock)
	assert.Equal(t, 15, untouched.Matches[1].PlayClock)
}

func TestEffectiveRound_UnscopedEditCoversEveryRound(t *testing.T) {
	base := effectiveRoundFixture()
	actions := []AdminAction{
		{Kind: ActionSetWeight, Stage: 0, Round: -1, Match: -1, Weight: 2.5},
	}

	for _, roundNumber := range []int{0, 1, 5} {
		round := EffectiveRound(base, actions, 0, roundNumber)
		for _, m := range round.Matches {
			assert.Equal(t, 2.5, m.Weight)
		}
	}
}

func TestEffectiveRound_OtherStageSkipped(t *testing.T) {
	base := effectiveRoundFixture()
	actions := []AdminAction{
		{Kind: ActionReplaceGame, Stage: 1, Round: -1, Match: -1, Game: "go"},
	}
	round := EffectiveRound(base, actions, 0, 0)
	assert.Equal(t, base, round)
}

func TestEffectiveRound_SetAndClearRoundStart(t *testing.T) {
	startAt := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)
	base := effectiveRoundFixture()

	set := EffectiveRound(base, []AdminAction{
		{Kind: ActionSetRoundStart, Stage: 0, Round: 1, Match: -1, StartTime: &startAt},
	}, 0, 1)
	require.NotNil(t, set.StartsAt)
	assert.Equal(t, startAt, *set.StartsAt)

	base.StartsAt = &startAt
	cleared := EffectiveRound(base, []AdminAction{
		{Kind: ActionSetRoundStart, Stage: 0, Round: 1, Match: -1},
	}, 0, 1)
	assert.Nil(t, cleared.StartsAt)
}

func TestEffectiveRound_OrderMatters(t *testing.T) {
	base := effectiveRoundFixture()
	unscoped := AdminAction{Kind: ActionSetClocks, Stage: 0, Round: -1, Match: -1, StartClock: 90, PlayClock: 30}
	scoped := AdminAction{Kind: ActionSetClocks, Stage: 0, Round: 2, Match: -1, StartClock: 30, PlayClock: 5}

	round := EffectiveRound(base, []AdminAction{unscoped, scoped}, 0, 2)
	assert.Equal(t, 30, round.Matches[0].StartClock)

	round = EffectiveRound(base, []AdminAction{scoped, unscoped}, 0, 2)
	assert.Equal(t, 90, round.Matches[0].StartClock)
}

func validateActionsFixture() *TournamentStructure {
	return &TournamentStructure{
		Name: "cup",
		Games: map[string]Game{
			"chess": {Name: "chess", Roles: 2, FixedSum: true},
			"poker": {Name: "poker", Roles: 4, FixedSum: false},
		},
		Stages: []StageSpec{
			{
				Format: FormatSwissV2,
				Rounds: []RoundSpec{{Matches: []MatchSpec{{Game: "poker"}}}},
			},
			{
				Format: FormatSingleElimination,
				Rounds: []RoundSpec{{Matches: []MatchSpec{{Game: "chess"}}}},
			},
		},
	}
}

func TestValidateActions(t *testing.T) {
	cases := []struct {
		name   string
		action AdminAction
		want   error
	}{
		{"swiss replace", AdminAction{Kind: ActionReplaceGame, Stage: 0, Round: 0, Match: -1, Game: "poker"}, nil},
		{"unknown game", AdminAction{Kind: ActionReplaceGame, Stage: 0, Round: 0, Match: -1, Game: "checkers"}, ErrUnknownGame},
		{"elimination multiplayer game", AdminAction{Kind: ActionReplaceGame, Stage: 1, Round: -1, Match: -1, Game: "poker"}, ErrEliminationGameRule},
		{"negative weight", AdminAction{Kind: ActionSetWeight, Stage: 0, Round: 0, Match: 0, Weight: -1}, ErrValidationFailed},
		{"elimination weight", AdminAction{Kind: ActionSetWeight, Stage: 1, Round: -1, Match: -1, Weight: 2}, ErrEliminationGameRule},
		{"bad role order", AdminAction{Kind: ActionSetRoleOrder, Stage: 0, Round: 0, Match: -1, RoleOrder: []int{0, 0}}, ErrBadRoleOrder},
		{"elimination role order length", AdminAction{Kind: ActionSetRoleOrder, Stage: 1, Round: -1, Match: -1, RoleOrder: []int{0, 1, 2}}, ErrEliminationGameRule},
		{"out of range stage skipped", AdminAction{Kind: ActionReplaceGame, Stage: 9, Round: 0, Match: -1, Game: "checkers"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateActions(validateActionsFixture(), []AdminAction{tc.action})
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestEncodeActionList(t *testing.T) {
	actions := []AdminAction{
		{Kind: ActionSetPlayerLimit, Stage: 0, Round: -1, Match: -1, PlayerLimit: 4},
		{Kind: ActionSetFormat, Stage: 1, Round: -1, Match: -1, Format: FormatSwissV1},
	}
	encoded := EncodeActionList(actions)
	assert.Equal(t, actions[0].Encode()+"\n"+actions[1].Encode(), encoded)
	assert.Empty(t, EncodeActionList(nil))
}
