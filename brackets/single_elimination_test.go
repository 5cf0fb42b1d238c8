package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/models"
)

// elimStructure строит одностадийный турнир олимпийской сетки:
// matchesPerRound[i] — число матчей в i-м объявленном раунде.
func elimStructure(matchesPerRound ...int) *models.TournamentStructure {
	s := &models.TournamentStructure{
		Name: "cup",
		Games: map[string]models.Game{
			"chess": {Name: "chess", Roles: 2, FixedSum: true},
		},
		Stages: []models.StageSpec{{Format: models.FormatSingleElimination}},
	}
	for _, m := range matchesPerRound {
		round := models.RoundSpec{}
		for i := 0; i < m; i++ {
			round.Matches = append(round.Matches, models.MatchSpec{Game: "chess", StartClock: 60, PlayClock: 15})
		}
		s.Stages[0].Rounds = append(s.Stages[0].Rounds, round)
	}
	return s
}

func completedResult(stage, round, pairing, match, attempt, epoch int, goals ...float64) models.MatchResult {
	return models.MatchResult{
		ID: models.MatchIdentifier{
			Epoch: epoch, Stage: stage, Round: round,
			Pairing: pairing, Match: match, Attempt: attempt,
		},
		Outcome: models.OutcomeCompleted,
		Goals:   goals,
	}
}

func abortedResult(stage, round, pairing, match, attempt, epoch int) models.MatchResult {
	return models.MatchResult{
		ID: models.MatchIdentifier{
			Epoch: epoch, Stage: stage, Round: round,
			Pairing: pairing, Match: match, Attempt: attempt,
		},
		Outcome: models.OutcomeAborted,
	}
}

func runElim(t *testing.T, structure *models.TournamentStructure, seeding models.Seeding, results []models.MatchResult) *RunOutcome {
	t.Helper()
	out, err := NewSingleEliminationRunner().Run(context.Background(), RunParams{
		Name:      structure.Name,
		Structure: structure,
		Stage:     0,
		Seeding:   seeding,
		Results:   results,
	})
	require.NoError(t, err)
	return out
}

func TestSingleElimination_FirstRoundPairings(t *testing.T) {
	structure := elimStructure(1, 1)
	seeding := models.Seeding{"alice", "bob", "carol", "dave"}

	out := runElim(t, structure, seeding, nil)

	require.Len(t, out.NextMatches, 2)
	assert.False(t, out.Done)

	first, second := out.NextMatches[0], out.NextMatches[1]
	assert.Equal(t, "cup-0-2-0-0-0", first.Token)
	assert.Equal(t, []models.Player{"alice", "bob"}, first.Players)
	assert.Equal(t, "cup-0-2-1-0-0", second.Token)
	assert.Equal(t, []models.Player{"carol", "dave"}, second.Players)
	assert.Equal(t, 60, first.StartClock)
	assert.Equal(t, 15, first.PlayClock)
}

func TestSingleElimination_WinnersMeetInFinal(t *testing.T) {
	structure := elimStructure(1, 1)
	seeding := models.Seeding{"alice", "bob", "carol", "dave"}
	results := []models.MatchResult{
		completedResult(0, 2, 0, 0, 0, 0, 100, 0), // alice beats bob
		completedResult(0, 2, 1, 0, 0, 0, 100, 0), // carol beats dave
	}

	out := runElim(t, structure, seeding, results)

	require.Len(t, out.NextMatches, 1)
	final := out.NextMatches[0]
	assert.Equal(t, "cup-0-1-0-0-0", final.Token)
	assert.Equal(t, []models.Player{"alice", "carol"}, final.Players)
	require.Len(t, out.History, 1)
}

func TestSingleElimination_FullRun(t *testing.T) {
	structure := elimStructure(1, 1)
	seeding := models.Seeding{"alice", "bob", "carol", "dave"}
	results := []models.MatchResult{
		completedResult(0, 2, 0, 0, 0, 0, 100, 0),
		completedResult(0, 2, 1, 0, 0, 0, 100, 0),
		completedResult(0, 1, 0, 0, 0, 0, 100, 0), // alice beats carol
	}

	out := runElim(t, structure, seeding, results)

	assert.True(t, out.Done)
	assert.Empty(t, out.NextMatches)
	require.Len(t, out.History, 2)

	final := out.Final()
	assert.Equal(t, []models.Player{"alice", "carol", "bob", "dave"}, final.Players())
	assert.True(t, final[0].Score.Winner)
}

func TestSingleElimination_OrderIndependent(t *testing.T) {
	structure := elimStructure(1, 1)
	seeding := models.Seeding{"alice", "bob", "carol", "dave"}
	results := []models.MatchResult{
		completedResult(0, 2, 0, 0, 0, 0, 100, 0),
		completedResult(0, 2, 1, 0, 0, 0, 100, 0),
		completedResult(0, 1, 0, 0, 0, 0, 100, 0),
	}
	reversed := []models.MatchResult{results[2], results[1], results[0]}

	a := runElim(t, structure, seeding, results)
	b := runElim(t, structure, seeding, reversed)

	assert.Equal(t, a.Final(), b.Final())
	assert.Equal(t, a.Done, b.Done)
}

func TestSingleElimination_AbortedMatchBumpsAttempt(t *testing.T) {
	structure := elimStructure(1, 1)
	seeding := models.Seeding{"alice", "bob", "carol", "dave"}
	results := []models.MatchResult{
		abortedResult(0, 2, 0, 0, 0, 0),
	}

	out := runElim(t, structure, seeding, results)

	require.Len(t, out.NextMatches, 2)
	assert.Equal(t, "cup-0-2-0-0-1", out.NextMatches[0].Token)
	assert.Equal(t, 1, out.NextMatches[0].ID.Attempt)
	// Вторая пара не затронута.
	assert.Equal(t, "cup-0-2-1-0-0", out.NextMatches[1].Token)
}

func TestSingleElimination_PlayInRound(t *testing.T) {
	// 6 игроков: основная сетка на 4 позиции, двое худших из нее защищают
	// свои места против двоих за ее пределами.
	structure := elimStructure(1, 1, 1)
	seeding := models.Seeding{"p1", "p2", "p3", "p4", "p5", "p6"}

	out := runElim(t, structure, seeding, nil)

	require.Len(t, out.NextMatches, 2)
	assert.Equal(t, []models.Player{"p4", "p5"}, out.NextMatches[0].Players)
	assert.Equal(t, []models.Player{"p3", "p6"}, out.NextMatches[1].Players)
	assert.Equal(t, 3, out.NextMatches[0].ID.Round)

	// Оба защищающихся проигрывают: сетка продолжается с их победителями.
	results := []models.MatchResult{
		completedResult(0, 3, 0, 0, 0, 0, 0, 100), // p5 beats p4
		completedResult(0, 3, 1, 0, 0, 0, 0, 100), // p6 beats p3
	}
	out = runElim(t, structure, seeding, results)

	require.Len(t, out.NextMatches, 2)
	assert.Equal(t, []models.Player{"p1", "p2"}, out.NextMatches[0].Players)
	assert.Equal(t, []models.Player{"p6", "p5"}, out.NextMatches[1].Players)
}

func TestSingleElimination_BestOfSeries(t *testing.T) {
	structure := elimStructure(3)
	seeding := models.Seeding{"alice", "bob"}

	// После одной победы перевес еще может быть отыгран за два оставшихся
	// матча: серия продолжается.
	out := runElim(t, structure, seeding, []models.MatchResult{
		completedResult(0, 1, 0, 0, 0, 0, 100, 0),
	})
	require.Len(t, out.NextMatches, 1)
	assert.Equal(t, 1, out.NextMatches[0].ID.Match)

	// Две победы по 100 дают необратимый перевес: третий матч не нужен.
	out = runElim(t, structure, seeding, []models.MatchResult{
		completedResult(0, 1, 0, 0, 0, 0, 100, 0),
		completedResult(0, 1, 0, 1, 0, 0, 100, 0),
	})
	assert.True(t, out.Done)
	assert.Equal(t, []models.Player{"alice", "bob"}, out.Final().Players())
}

func TestSingleElimination_TiedSeriesExtends(t *testing.T) {
	structure := elimStructure(3)
	seeding := models.Seeding{"alice", "bob"}
	results := []models.MatchResult{
		completedResult(0, 1, 0, 0, 0, 0, 50, 50),
		completedResult(0, 1, 0, 1, 0, 0, 50, 50),
		completedResult(0, 1, 0, 2, 0, 0, 50, 50),
	}

	out := runElim(t, structure, seeding, results)

	// Все запланированные матчи сыграны вничью: серия продолжается
	// дополнительными матчами по спецификации последнего.
	require.Len(t, out.NextMatches, 1)
	assert.Equal(t, 3, out.NextMatches[0].ID.Match)
}

func TestSingleElimination_SinglePlayer(t *testing.T) {
	structure := elimStructure(1)
	seeding := models.Seeding{"alice"}

	out := runElim(t, structure, seeding, nil)

	assert.True(t, out.Done)
	require.Len(t, out.History, 1)
	assert.True(t, out.Final()[0].Score.Winner)
}

func TestSingleElimination_RoleOrderSwapsSides(t *testing.T) {
	structure := elimStructure(1)
	structure.Stages[0].Rounds[0].Matches[0].RoleOrder = []int{1, 0}
	seeding := models.Seeding{"alice", "bob"}

	out := runElim(t, structure, seeding, nil)
	require.Len(t, out.NextMatches, 1)
	// Роль 0 играет второй игрок пары.
	assert.Equal(t, []models.Player{"bob", "alice"}, out.NextMatches[0].Players)

	// Роль 0 (боб) набирает 100: победа боба.
	results := []models.MatchResult{completedResult(0, 1, 0, 0, 0, 0, 100, 0)}
	out = runElim(t, structure, seeding, results)
	assert.True(t, out.Done)
	assert.Equal(t, []models.Player{"bob", "alice"}, out.Final().Players())
}

func TestSingleElimination_AdminActionInvalidatesResult(t *testing.T) {
	structure := elimStructure(1)
	seeding := models.Seeding{"alice", "bob"}
	results := []models.MatchResult{
		completedResult(0, 1, 0, 0, 0, 0, 100, 0),
	}
	actions := []models.AdminAction{
		{Kind: models.ActionSetClocks, Stage: 0, Round: 1, Match: -1, StartClock: 30, PlayClock: 5},
	}
	effective := models.ApplyActions(structure, actions)

	out, err := NewSingleEliminationRunner().Run(context.Background(), RunParams{
		Name:      structure.Name,
		Structure: effective,
		Stage:     0,
		Seeding:   seeding,
		Actions:   actions,
		Results:   results,
	})
	require.NoError(t, err)

	// Результат с эпохой 0 устарел: матч предлагается заново под эпохой 1 в
	// версионированной грамматике токена.
	require.Len(t, out.NextMatches, 1)
	assert.Equal(t, "ggpta-1-0-1-0-0-0", out.NextMatches[0].Token)
	assert.Equal(t, 30, out.NextMatches[0].StartClock)

	// Пересданный под новой эпохой результат завершает турнир.
	results = append(results, completedResult(0, 1, 0, 0, 0, 1, 0, 100))
	out, err = NewSingleEliminationRunner().Run(context.Background(), RunParams{
		Name:      structure.Name,
		Structure: effective,
		Stage:     0,
		Seeding:   seeding,
		Actions:   actions,
		Results:   results,
	})
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, []models.Player{"bob", "alice"}, out.Final().Players())
}

func TestSingleElimination_ReplaceGameEditsAddressedRound(t *testing.T) {
	structure := elimStructure(1, 1)
	structure.Games["go"] = models.Game{Name: "go", Roles: 2, FixedSum: true}
	seeding := models.Seeding{"alice", "bob", "carol", "dave"}
	// Полуфиналы играются под координатным номером 2, финал — под 1.
	actions := []models.AdminAction{
		{Kind: models.ActionReplaceGame, Stage: 0, Round: 2, Match: -1, Game: "go"},
	}

	out, err := NewSingleEliminationRunner().Run(context.Background(), RunParams{
		Name:      structure.Name,
		Structure: models.ApplyActions(structure, actions),
		Stage:     0,
		Seeding:   seeding,
		Actions:   actions,
		Results:   nil,
	})
	require.NoError(t, err)

	// Эпоха и содержимое матча меняются согласованно: правка адресует тот же
	// раунд, который инвалидирует.
	require.Len(t, out.NextMatches, 2)
	assert.Equal(t, "ggpta-1-0-2-0-0-0", out.NextMatches[0].Token)
	assert.Equal(t, "go", out.NextMatches[0].Game.Name)
	assert.Equal(t, "go", out.NextMatches[1].Game.Name)

	// Финал задет инвалидацией (играется позже), но не сменой игры.
	results := []models.MatchResult{
		completedResult(0, 2, 0, 0, 0, 1, 100, 0),
		completedResult(0, 2, 1, 0, 0, 1, 100, 0),
	}
	out, err = NewSingleEliminationRunner().Run(context.Background(), RunParams{
		Name:      structure.Name,
		Structure: models.ApplyActions(structure, actions),
		Stage:     0,
		Seeding:   seeding,
		Actions:   actions,
		Results:   results,
	})
	require.NoError(t, err)
	require.Len(t, out.NextMatches, 1)
	assert.Equal(t, "ggpta-1-0-1-0-0-0", out.NextMatches[0].Token)
	assert.Equal(t, "chess", out.NextMatches[0].Game.Name)
}

func TestSingleElimination_SharedSpecEditedPerRound(t *testing.T) {
	// Один объявленный раунд обслуживает и полуфиналы, и финал. Правка с
	// координатным номером 1 задевает только финал.
	structure := elimStructure(1)
	seeding := models.Seeding{"alice", "bob", "carol", "dave"}
	actions := []models.AdminAction{
		{Kind: models.ActionSetClocks, Stage: 0, Round: 1, Match: -1, StartClock: 30, PlayClock: 5},
	}

	out, err := NewSingleEliminationRunner().Run(context.Background(), RunParams{
		Name:      structure.Name,
		Structure: models.ApplyActions(structure, actions),
		Stage:     0,
		Seeding:   seeding,
		Actions:   actions,
		Results:   nil,
	})
	require.NoError(t, err)

	// Полуфиналы не задеты: эпоха 0, исходные часы.
	require.Len(t, out.NextMatches, 2)
	assert.Equal(t, "cup-0-2-0-0-0", out.NextMatches[0].Token)
	assert.Equal(t, 60, out.NextMatches[0].StartClock)

	results := []models.MatchResult{
		completedResult(0, 2, 0, 0, 0, 0, 100, 0),
		completedResult(0, 2, 1, 0, 0, 0, 100, 0),
	}
	out, err = NewSingleEliminationRunner().Run(context.Background(), RunParams{
		Name:      structure.Name,
		Structure: models.ApplyActions(structure, actions),
		Stage:     0,
		Seeding:   seeding,
		Actions:   actions,
		Results:   results,
	})
	require.NoError(t, err)

	require.Len(t, out.NextMatches, 1)
	assert.Equal(t, "ggpta-1-0-1-0-0-0", out.NextMatches[0].Token)
	assert.Equal(t, 30, out.NextMatches[0].StartClock)
	assert.Equal(t, 5, out.NextMatches[0].PlayClock)
}
