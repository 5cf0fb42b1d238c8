package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/tournament-engine/models"
)

// SwissRunner симулирует адаптивный швейцарский формат строго в объявленном
// порядке раундов. Вариант v2 делегирует группировку игр без фиксированной
// суммы квазислучайному генератору пар; v1 применяет жадную группировку по
// таблице очков к любой игре.
type SwissRunner struct {
	quasiRandom bool
}

func NewSwissRunner(quasiRandom bool) *SwissRunner {
	return &SwissRunner{quasiRandom: quasiRandom}
}

func (r *SwissRunner) GetName() string {
	if r.quasiRandom {
		return "SwissV2"
	}
	return "SwissV1"
}

// swissState — контрольная точка конца раунда: все аккумуляторы, нужные для
// возобновления симуляции сразу после полностью разрешенного раунда.
type swissState struct {
	NextRound int
	Total     map[models.Player]float64
	PerGame   map[string]map[models.Player]float64
	Bye       map[models.Player]float64
	// Met — мультимножества встреч: игра -> пара -> число встреч; MetAll —
	// то же по всем играм сразу.
	Met        map[string]map[string]int
	MetAll     map[string]int
	RecentGame map[models.Player]string
	RecentPts  map[models.Player]float64
	Tokens     []string
	History    []models.Ranking
}

func newSwissState() *swissState {
	return &swissState{
		Total:      make(map[models.Player]float64),
		PerGame:    make(map[string]map[models.Player]float64),
		Bye:        make(map[models.Player]float64),
		Met:        make(map[string]map[string]int),
		MetAll:     make(map[string]int),
		RecentGame: make(map[models.Player]string),
		RecentPts:  make(map[models.Player]float64),
	}
}

func (s *swissState) clone() *swissState {
	cp := newSwissState()
	cp.NextRound = s.NextRound
	for k, v := range s.Total {
		cp.Total[k] = v
	}
	for game, m := range s.PerGame {
		inner := make(map[models.Player]float64, len(m))
		for k, v := range m {
			inner[k] = v
		}
		cp.PerGame[game] = inner
	}
	for k, v := range s.Bye {
		cp.Bye[k] = v
	}
	for game, m := range s.Met {
		inner := make(map[string]int, len(m))
		for k, v := range m {
			inner[k] = v
		}
		cp.Met[game] = inner
	}
	for k, v := range s.MetAll {
		cp.MetAll[k] = v
	}
	for k, v := range s.RecentGame {
		cp.RecentGame[k] = v
	}
	for k, v := range s.RecentPts {
		cp.RecentPts[k] = v
	}
	cp.Tokens = append([]string(nil), s.Tokens...)
	cp.History = append([]models.Ranking(nil), s.History...)
	return cp
}

func pairMetKey(a, b models.Player) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "\x00" + string(b)
}

func (s *swissState) metInGame(game string, a, b models.Player) int {
	return s.Met[game][pairMetKey(a, b)]
}

func (s *swissState) metAll(a, b models.Player) int {
	return s.MetAll[pairMetKey(a, b)]
}

func (s *swissState) gamePoints(game string, p models.Player) float64 {
	return s.PerGame[game][p]
}

func (r *SwissRunner) Run(ctx context.Context, params RunParams) (*RunOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage := params.Structure.Stages[params.Stage]
	atOrAfter := models.RoundComparatorFor(models.FormatSwissV1)
	idx := newResultIndex(params.Results)

	state := newSwissState()
	if cached, ok := params.Cache.Lookup(params.CacheKey, tokenSet(params.Results)); ok {
		if cachedState, isSwiss := cached.(*swissState); isSwiss {
			state = cachedState.clone()
		}
	}

	for roundIdx := state.NextRound; roundIdx < len(stage.Rounds); roundIdx++ {
		round := models.EffectiveRound(stage.Rounds[roundIdx], params.Actions, params.Stage, roundIdx)
		gameName := round.Matches[0].Game
		for _, m := range round.Matches {
			if m.Game != gameName {
				return nil, fmt.Errorf("%w: round %d mixes games %q and %q",
					models.ErrValidationFailed, roundIdx, gameName, m.Game)
			}
		}
		game, ok := params.Structure.Games[gameName]
		if !ok {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownGame, gameName)
		}

		groups := r.groupsFor(params, state, game, roundIdx, len(stage.Rounds))
		if len(groups) == 0 {
			// Недостаточно игроков: раунд пропускается без снимка.
			continue
		}

		var open []models.MatchSetup
		roundPts := make(map[models.Player]float64)
		var consumed []string
		for g, group := range groups {
			for m := 0; m < len(round.Matches); m++ {
				epoch := models.EpochFor(params.Actions, params.Stage, roundIdx, m, atOrAfter)
				c := coord{Epoch: epoch, Stage: params.Stage, Round: roundIdx, Pairing: g, Match: m}
				res, found := idx.completed(c)
				if !found {
					spec := matchSpecAt(round, m)
					id := models.MatchIdentifier{
						Epoch:   epoch,
						Stage:   params.Stage,
						Round:   roundIdx,
						Pairing: g,
						Match:   m,
						Attempt: idx.abortedCount(c),
					}
					players := make([]models.Player, len(group))
					for i, seed := range group {
						players[i] = params.Seeding[seed]
					}
					setup, err := buildSetup(params.Name, id, game, players, spec)
					if err != nil {
						return nil, err
					}
					open = append(open, *setup)
					break
				}
				spec := matchSpecAt(round, m)
				if len(res.Goals) != game.Roles {
					return nil, fmt.Errorf("result %+v carries %d goals for a %d-role game",
						res.ID, len(res.Goals), game.Roles)
				}
				weight := spec.EffectiveWeight()
				for role, goal := range res.Goals {
					player := params.Seeding[group[spec.RoleFor(role)]]
					roundPts[player] += goal * weight
				}
				consumed = append(consumed, resultToken(res))
			}
		}
		if len(open) > 0 {
			return &RunOutcome{
				NextMatches: open,
				StartsAt:    round.StartsAt,
				History:     state.History,
			}, nil
		}

		r.foldRound(params.Seeding, state, game, groups, roundPts)
		state.Tokens = append(state.Tokens, consumed...)
		state.NextRound = roundIdx + 1
		state.History = append(state.History, r.snapshot(params.Seeding, state))
		params.Cache.Store(params.CacheKey, state.Tokens, state.clone())
	}

	return &RunOutcome{History: state.History, Done: true}, nil
}

// groupsFor формирует группы раунда (индексы посева).
func (r *SwissRunner) groupsFor(params RunParams, state *swissState, game models.Game, roundIdx, numRounds int) [][]int {
	n := len(params.Seeding)
	switch {
	case game.Roles == 1:
		// Одноролевые игры: каждый игрок — отдельная группа, пары не нужны.
		groups := make([][]int, n)
		for i := range groups {
			groups[i] = []int{i}
		}
		return groups
	case game.FixedSum || !r.quasiRandom:
		return r.greedyGroups(params.Seeding, state, game)
	default:
		gen := params.Matchups
		if gen == nil {
			gen = NewQuasiRandomGenerator(matchupSeed(params.Name, params.Stage))
		}
		all := gen.Groupings(game.Roles, n, numRounds)
		if len(all) == 0 {
			return nil
		}
		return all[roundIdx%len(all)]
	}
}

// greedyGroups — группировка по таблице очков: итеративно берем лучшего
// свободного игрока по (очки в этой игре, общие очки, посев), затем добираем
// группу, штрафуя кандидатов на 100/размер_группы очков за каждую прежнюю
// встречу — сперва в этой игре, затем по всем играм. Это активно избегает
// повторов, предпочитая близких по силе и высоко стоящих соперников.
func (r *SwissRunner) greedyGroups(seeding models.Seeding, state *swissState, game models.Game) [][]int {
	n := len(seeding)
	unassigned := make([]int, n)
	for i := range unassigned {
		unassigned[i] = i
	}
	penalty := 100.0 / float64(game.Roles)

	var groups [][]int
	for len(unassigned) >= game.Roles {
		sort.SliceStable(unassigned, func(i, j int) bool {
			a, b := seeding[unassigned[i]], seeding[unassigned[j]]
			if ga, gb := state.gamePoints(game.Name, a), state.gamePoints(game.Name, b); ga != gb {
				return ga > gb
			}
			if ta, tb := state.Total[a], state.Total[b]; ta != tb {
				return ta > tb
			}
			return unassigned[i] < unassigned[j]
		})
		group := []int{unassigned[0]}
		unassigned = unassigned[1:]

		for len(group) < game.Roles {
			best := -1
			var bestPrimary, bestSecondary float64
			for pos, cand := range unassigned {
				p := seeding[cand]
				var metGame, metTotal int
				for _, member := range group {
					metGame += state.metInGame(game.Name, p, seeding[member])
					metTotal += state.metAll(p, seeding[member])
				}
				primary := state.gamePoints(game.Name, p) - penalty*float64(metGame)
				secondary := state.Total[p] - penalty*float64(metTotal)
				if best < 0 || primary > bestPrimary ||
					(primary == bestPrimary && secondary > bestSecondary) {
					best = pos
					bestPrimary = primary
					bestSecondary = secondary
				}
			}
			group = append(group, unassigned[best])
			unassigned = append(unassigned[:best], unassigned[best+1:]...)
		}
		groups = append(groups, group)
	}
	return groups
}

// foldRound фиксирует полностью разрешенный раунд: очки, bye-начисления и
// счетчики встреч обновляются только в этот момент.
func (r *SwissRunner) foldRound(seeding models.Seeding, state *swissState, game models.Game, groups [][]int, roundPts map[models.Player]float64) {
	assigned := make(map[models.Player]struct{})
	for _, group := range groups {
		for _, seed := range group {
			assigned[seeding[seed]] = struct{}{}
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				key := pairMetKey(seeding[group[i]], seeding[group[j]])
				byGame := state.Met[game.Name]
				if byGame == nil {
					byGame = make(map[string]int)
					state.Met[game.Name] = byGame
				}
				byGame[key]++
				state.MetAll[key]++
			}
		}
	}

	perGame := state.PerGame[game.Name]
	if perGame == nil {
		perGame = make(map[models.Player]float64)
		state.PerGame[game.Name] = perGame
	}
	for player := range assigned {
		pts := roundPts[player]
		state.Total[player] += pts
		perGame[player] += pts
		state.RecentGame[player] = game.Name
		state.RecentPts[player] = pts
	}

	// Bye: лучший (фиксированная сумма) либо средний (иначе) счет раунда,
	// никогда не отрицательный.
	byeScore := 0.0
	if game.FixedSum {
		for player := range assigned {
			if pts := roundPts[player]; pts > byeScore {
				byeScore = pts
			}
		}
	} else if len(assigned) > 0 {
		sum := 0.0
		for player := range assigned {
			sum += roundPts[player]
		}
		byeScore = sum / float64(len(assigned))
	}
	if byeScore < 0 {
		byeScore = 0
	}
	for _, player := range seeding {
		if _, ok := assigned[player]; ok {
			continue
		}
		state.Total[player] += byeScore
		state.Bye[player] += byeScore
	}
}

// snapshot: счет ранжирования — накопленные взвешенные очки, округленные до
// 3 знаков, с аннотациями последней игры и суммарных bye-очков.
func (r *SwissRunner) snapshot(seeding models.Seeding, state *swissState) models.Ranking {
	entries := make([]models.PlayerScore, len(seeding))
	for seed, player := range seeding {
		entries[seed] = models.PlayerScore{
			Player: player,
			Score: models.SwissScore(
				state.Total[player],
				state.RecentGame[player],
				state.RecentPts[player],
				state.Bye[player],
			),
			SeedPos: seed,
		}
	}
	return models.NewRanking(entries)
}
