package brackets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// Engine — оркестратор турнира: последовательно прогоняет стадии, передавая
// посев и ранжирования между ними. Чистый и переигрываемый: один и тот же
// итоговый набор результатов в любом порядке подачи дает один и тот же ответ.
type Engine struct {
	cache    *EndOfRoundCache
	matchups MatchupGenerator
}

func NewEngine(cache *EndOfRoundCache) *Engine {
	return &Engine{cache: cache}
}

// WithMatchupGenerator подменяет генератор квазислучайных пар (swiss-v2).
func (e *Engine) WithMatchupGenerator(gen MatchupGenerator) *Engine {
	e.matchups = gen
	return e
}

// Schedule — следующая партия матчей и информационное время, раньше которого
// клиенту не следует их запускать (движок его не принуждает).
type Schedule struct {
	Matches  []models.MatchSetup `json:"matches"`
	StartsAt *time.Time          `json:"starts_at,omitempty"`
}

// NextMatches возвращает матчи первой стадии с незавершенными раундами.
// Более ранние стадии блокируют прогресс более поздних.
func (e *Engine) NextMatches(ctx context.Context, structure *models.TournamentStructure, seeding models.Seeding, actions []models.AdminAction, results []models.MatchResult) (*Schedule, error) {
	run, err := e.run(ctx, structure, seeding, actions, results)
	if err != nil {
		return nil, err
	}
	return run.schedule, nil
}

// CurrentStandings возвращает текущее ранжирование всех игроков турнира.
func (e *Engine) CurrentStandings(ctx context.Context, structure *models.TournamentStructure, seeding models.Seeding, actions []models.AdminAction, results []models.MatchResult) (models.Ranking, error) {
	run, err := e.run(ctx, structure, seeding, actions, results)
	if err != nil {
		return nil, err
	}
	if len(run.history) == 0 {
		return seedRanking(run.firstSeeding), nil
	}
	return run.history[len(run.history)-1], nil
}

// StandingsHistory возвращает ранжирование после каждого завершенного раунда
// всех стадий, монотонно расширяющуюся историю.
func (e *Engine) StandingsHistory(ctx context.Context, structure *models.TournamentStructure, seeding models.Seeding, actions []models.AdminAction, results []models.MatchResult) ([]models.Ranking, error) {
	run, err := e.run(ctx, structure, seeding, actions, results)
	if err != nil {
		return nil, err
	}
	return run.history, nil
}

type tournamentRun struct {
	schedule     *Schedule
	history      []models.Ranking
	firstSeeding models.Seeding
	done         bool
}

func (e *Engine) run(ctx context.Context, base *models.TournamentStructure, seeding models.Seeding, actions []models.AdminAction, results []models.MatchResult) (*tournamentRun, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	effective := models.ApplyActions(base, actions)
	if err := effective.Validate(); err != nil {
		return nil, fmt.Errorf("effective structure after admin actions: %w", err)
	}
	if err := models.ValidateActions(effective, actions); err != nil {
		return nil, fmt.Errorf("effective structure after admin actions: %w", err)
	}
	if err := seeding.Validate(); err != nil {
		return nil, err
	}
	for _, r := range results {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	byStage := make(map[int][]models.MatchResult)
	for _, r := range results {
		byStage[r.ID.Stage] = append(byStage[r.ID.Stage], r)
	}

	run := &tournamentRun{schedule: &Schedule{}}
	// carried — счета игроков, не прошедших отсечку более ранних стадий,
	// обернутые как "failed cutoff": всегда ниже всех прошедших дальше.
	carried := make(map[models.Player]models.PlayerScore)
	var earlier []models.MatchResult

	stageSeeding := excludeFrom(seeding, effective.Stages[0].Excluded)
	run.firstSeeding = stageSeeding

	for k := range effective.Stages {
		stage := effective.Stages[k]
		if len(stageSeeding) == 0 {
			return nil, fmt.Errorf("%w: stage %d has no eligible players", models.ErrValidationFailed, k)
		}
		runner, ok := RunnerFor(stage.Format)
		if !ok {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownFormat, stage.Format)
		}
		out, err := runner.Run(ctx, RunParams{
			Name:      effective.Name,
			Structure: effective,
			Stage:     k,
			Seeding:   stageSeeding,
			Actions:   actions,
			Results:   byStage[k],
			Cache:     e.cache,
			CacheKey:  stageCacheKey(effective.Name, actions, seeding, k, earlier),
			Matchups:  e.matchups,
		})
		if err != nil {
			return nil, err
		}

		for _, snapshot := range out.History {
			run.history = append(run.history, mixRanking(snapshot, carried))
		}

		if !out.Done {
			run.schedule = &Schedule{Matches: out.NextMatches, StartsAt: out.StartsAt}
			return run, nil
		}

		if k == len(effective.Stages)-1 {
			run.done = true
			return run, nil
		}

		// После завершенной стадии посев следующей выводится из итогового
		// ранжирования: отсечка по лимиту игроков, затем исключения.
		final := out.Final()
		next := models.Seeding(final.Players())
		if stage.PlayerLimit > 0 && len(next) > stage.PlayerLimit {
			next = next[:stage.PlayerLimit]
		}
		next = excludeFrom(next, effective.Stages[k+1].Excluded)
		advancing := make(map[models.Player]struct{}, len(next))
		for _, p := range next {
			advancing[p] = struct{}{}
		}
		for _, ps := range final {
			if _, ok := advancing[ps.Player]; ok {
				continue
			}
			carried[ps.Player] = models.PlayerScore{
				Player:  ps.Player,
				Score:   models.CutoffScore(ps.Score, k),
				SeedPos: ps.SeedPos,
			}
		}
		earlier = append(earlier, byStage[k]...)
		stageSeeding = next
	}
	return run, nil
}

// mixRanking подмешивает к ранжированию стадии счета игроков, отсеянных на
// более ранних стадиях, сохраняя полную монотонно расширяющуюся историю.
func mixRanking(stage models.Ranking, carried map[models.Player]models.PlayerScore) models.Ranking {
	if len(carried) == 0 {
		return stage
	}
	entries := append([]models.PlayerScore(nil), stage...)
	for _, ps := range carried {
		entries = append(entries, ps)
	}
	return models.NewRanking(entries)
}

func seedRanking(seeding models.Seeding) models.Ranking {
	entries := make([]models.PlayerScore, len(seeding))
	for pos, player := range seeding {
		entries[pos] = models.PlayerScore{Player: player, Score: models.SeedScore(pos), SeedPos: pos}
	}
	return models.NewRanking(entries)
}

func excludeFrom(seeding models.Seeding, excluded []models.Player) models.Seeding {
	if len(excluded) == 0 {
		return seeding
	}
	drop := make(map[models.Player]struct{}, len(excluded))
	for _, p := range excluded {
		drop[p] = struct{}{}
	}
	out := make(models.Seeding, 0, len(seeding))
	for _, p := range seeding {
		if _, ok := drop[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// stageCacheKey — ключ кеша стадии: имя турнира, эффективный список действий,
// исходный посев, номер стадии и результаты более ранних стадий. Значения
// хешируются, чтобы ключ не рос неограниченно на длинных турнирах; семантика
// поиска от этого не меняется.
func stageCacheKey(name string, actions []models.AdminAction, seeding models.Seeding, stage int, earlier []models.MatchResult) string {
	tokens := make([]string, len(earlier))
	for i, r := range earlier {
		tokens[i] = resultToken(r)
	}
	sort.Strings(tokens)

	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n%d\n%s",
		name,
		models.EncodeActionList(actions),
		seeding.Encode(),
		stage,
		strings.Join(tokens, "\n"),
	)
	return hex.EncodeToString(h.Sum(nil))
}
