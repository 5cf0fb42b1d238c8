package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Dosada05/tournament-engine/models"
)

// SingleEliminationRunner симулирует олимпийскую сетку: машина состояний по
// числу оставшихся раундов r, от ceil(log2(n)) вниз до нуля.
type SingleEliminationRunner struct{}

func NewSingleEliminationRunner() *SingleEliminationRunner {
	return &SingleEliminationRunner{}
}

func (r *SingleEliminationRunner) GetName() string {
	return "SingleElimination"
}

// elimState — контрольная точка конца раунда для олимпийской сетки.
type elimState struct {
	// Slots — позиции сетки в порядке посева: значение — индекс посева
	// игрока, занимающего позицию. Пары раунда: позиция 2j против 2j+1.
	Slots      []int
	Eliminated map[int]int // индекс посева -> раунд выбывания (обратный отсчет)
	WinnerSeed int         // -1, пока не определен
	Round      int         // текущий разыгрываемый раунд (оставшиеся раунды)
	Tokens     []string
	History    []models.Ranking
}

func (s *elimState) clone() *elimState {
	cp := &elimState{
		Slots:      append([]int(nil), s.Slots...),
		Eliminated: make(map[int]int, len(s.Eliminated)),
		WinnerSeed: s.WinnerSeed,
		Round:      s.Round,
		Tokens:     append([]string(nil), s.Tokens...),
		History:    append([]models.Ranking(nil), s.History...),
	}
	for k, v := range s.Eliminated {
		cp.Eliminated[k] = v
	}
	return cp
}

func startingRound(numPlayers int) int {
	if numPlayers <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(numPlayers))))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// elimPair — одна пара раунда: индексы посева сторон и позиция сетки,
// которую займет победитель.
type elimPair struct {
	seedA, seedB int
	winnerSlot   int
}

func (r *SingleEliminationRunner) Run(ctx context.Context, params RunParams) (*RunOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage := params.Structure.Stages[params.Stage]
	n := len(params.Seeding)
	if n == 0 {
		return nil, errors.New("single elimination requires at least one player")
	}
	startRound := startingRound(n)
	atOrAfter := models.RoundComparatorFor(models.FormatSingleElimination)
	idx := newResultIndex(params.Results)

	state := r.initialState(n, startRound)
	if cached, ok := params.Cache.Lookup(params.CacheKey, tokenSet(params.Results)); ok {
		if cachedState, isElim := cached.(*elimState); isElim {
			state = cachedState.clone()
		}
	}

	for state.Round >= 1 {
		pairs := r.pairsFor(state, n, startRound)
		specIdx := startRound - state.Round
		if specIdx >= len(stage.Rounds) {
			specIdx = len(stage.Rounds) - 1
		}
		// Правки раундов адресуются координатным номером раунда, тем же,
		// что в идентификаторах матчей.
		round := models.EffectiveRound(stage.Rounds[specIdx], params.Actions, params.Stage, state.Round)

		var (
			open     []models.MatchSetup
			winners  = make([]int, len(pairs))
			consumed []string
		)
		for p, pair := range pairs {
			side, setup, tokens, err := r.resolvePairing(params, idx, round, state.Round, p, pair, atOrAfter)
			if err != nil {
				return nil, err
			}
			if side < 0 {
				open = append(open, *setup)
				continue
			}
			winners[p] = side
			consumed = append(consumed, tokens...)
		}
		if len(open) > 0 {
			return &RunOutcome{
				NextMatches: open,
				StartsAt:    round.StartsAt,
				History:     state.History,
			}, nil
		}

		// Раунд полностью разрешен: проигравшие выбывают на раунде r,
		// победители занимают свои позиции следующего раунда.
		newSlots := make([]int, 1<<uint(state.Round-1))
		if state.Round == startRound && !isPowerOfTwo(n) {
			copy(newSlots, state.Slots[:len(newSlots)])
		}
		for p, pair := range pairs {
			winner, loser := pair.seedA, pair.seedB
			if winners[p] == 1 {
				winner, loser = pair.seedB, pair.seedA
			}
			state.Eliminated[loser] = state.Round
			newSlots[pair.winnerSlot] = winner
		}
		state.Slots = newSlots
		state.Round--
		state.Tokens = append(state.Tokens, consumed...)
		if state.Round == 0 {
			state.WinnerSeed = state.Slots[0]
		}
		state.History = append(state.History, r.snapshot(params.Seeding, state))
		params.Cache.Store(params.CacheKey, state.Tokens, state.clone())
	}

	if len(state.History) == 0 {
		// Турнир из одного игрока: раундов нет, победитель известен сразу.
		state.WinnerSeed = 0
		state.History = append(state.History, r.snapshot(params.Seeding, state))
	}
	return &RunOutcome{History: state.History, Done: true}, nil
}

func (r *SingleEliminationRunner) initialState(n, startRound int) *elimState {
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}
	return &elimState{
		Slots:      slots,
		Eliminated: make(map[int]int),
		WinnerSeed: -1,
		Round:      startRound,
	}
}

// pairsFor строит пары текущего раунда. Если число игроков не степень двойки,
// первым проводится отборочный раунд: худшие из попадающих в основную сетку
// позиций встречаются с игроками за ее пределами по зеркальной схеме
// (mainSize-i-1 против mainSize+i), победитель занимает оспариваемую позицию.
func (r *SingleEliminationRunner) pairsFor(state *elimState, n, startRound int) []elimPair {
	if state.Round == startRound && !isPowerOfTwo(n) {
		mainSize := 1 << uint(startRound-1)
		extra := n - mainSize
		pairs := make([]elimPair, extra)
		for i := 0; i < extra; i++ {
			pairs[i] = elimPair{
				seedA:      state.Slots[mainSize-i-1],
				seedB:      state.Slots[mainSize+i],
				winnerSlot: mainSize - i - 1,
			}
		}
		return pairs
	}
	pairs := make([]elimPair, len(state.Slots)/2)
	for j := range pairs {
		pairs[j] = elimPair{
			seedA:      state.Slots[2*j],
			seedB:      state.Slots[2*j+1],
			winnerSlot: j,
		}
	}
	return pairs
}

// resolvePairing накапливает перевес по сыгранным матчам пары. Пара считается
// разрешенной, когда одна из сторон имеет необратимое преимущество: либо все
// запланированные матчи сыграны и счет не равный, либо перевес превышает
// 100 × (оставшиеся матчи) — максимум, на который может качнуться одна игра
// с фиксированной суммой. Иначе предлагается следующий несыгранный матч.
func (r *SingleEliminationRunner) resolvePairing(
	params RunParams,
	idx *resultIndex,
	round models.RoundSpec,
	roundNum, pairing int,
	pair elimPair,
	atOrAfter models.RoundAtOrAfter,
) (side int, setup *models.MatchSetup, tokens []string, err error) {
	scheduled := len(round.Matches)
	lead := 0.0
	games := 0

	for m := 0; ; m++ {
		gamesLeft := scheduled - games
		if gamesLeft < 0 {
			gamesLeft = 0
		}
		if (games >= scheduled && lead != 0) || math.Abs(lead) > 100*float64(gamesLeft) {
			if lead > 0 {
				return 0, nil, tokens, nil
			}
			return 1, nil, tokens, nil
		}

		epoch := models.EpochFor(params.Actions, params.Stage, roundNum, m, atOrAfter)
		c := coord{Epoch: epoch, Stage: params.Stage, Round: roundNum, Pairing: pairing, Match: m}
		res, ok := idx.completed(c)
		if !ok {
			spec := matchSpecAt(round, m)
			game := params.Structure.Games[spec.Game]
			id := models.MatchIdentifier{
				Epoch:   epoch,
				Stage:   params.Stage,
				Round:   roundNum,
				Pairing: pairing,
				Match:   m,
				Attempt: idx.abortedCount(c),
			}
			players := []models.Player{
				params.Seeding[pair.seedA],
				params.Seeding[pair.seedB],
			}
			built, buildErr := buildSetup(params.Name, id, game, players, spec)
			if buildErr != nil {
				return 0, nil, nil, buildErr
			}
			return -1, built, nil, nil
		}

		spec := matchSpecAt(round, m)
		game := params.Structure.Games[spec.Game]
		if len(res.Goals) != game.Roles {
			return 0, nil, nil, fmt.Errorf("result %+v carries %d goals for a %d-role game", res.ID, len(res.Goals), game.Roles)
		}
		var bySlot [2]float64
		for role, goal := range res.Goals {
			bySlot[spec.RoleFor(role)] += goal
		}
		lead += bySlot[0] - bySlot[1]
		games++
		tokens = append(tokens, resultToken(res))
	}
}

// snapshot строит ранжирование по текущим раундам выбывания. Место зависит
// только от раунда выбывания (0 = в борьбе); ничьи разрешает порядок посева.
func (r *SingleEliminationRunner) snapshot(seeding models.Seeding, state *elimState) models.Ranking {
	entries := make([]models.PlayerScore, len(seeding))
	for seed, player := range seeding {
		score := models.EliminationScore(state.Eliminated[seed], seed == state.WinnerSeed)
		entries[seed] = models.PlayerScore{Player: player, Score: score, SeedPos: seed}
	}
	return models.NewRanking(entries)
}

// buildSetup конструирует MatchSetup: игроки упорядочены по ролям игры.
func buildSetup(name string, id models.MatchIdentifier, game models.Game, group []models.Player, spec models.MatchSpec) (*models.MatchSetup, error) {
	token, err := id.Encode(name)
	if err != nil {
		return nil, err
	}
	players := make([]models.Player, game.Roles)
	for role := 0; role < game.Roles; role++ {
		players[role] = group[spec.RoleFor(role)]
	}
	return &models.MatchSetup{
		ID:         id,
		Token:      token,
		Game:       game,
		Players:    players,
		StartClock: spec.StartClock,
		PlayClock:  spec.PlayClock,
	}, nil
}

// tokenSet — множество токенов результатов для поиска в кеше.
func tokenSet(results []models.MatchResult) map[string]struct{} {
	out := make(map[string]struct{}, len(results))
	for _, r := range results {
		out[resultToken(r)] = struct{}{}
	}
	return out
}
