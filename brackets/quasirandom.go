package brackets

import (
	"hash/fnv"
	"math/rand"
)

// MatchupGenerator — подключаемый генератор группировок для игр без
// фиксированной суммы: для заданного числа ролей он заранее просчитывает
// группы всех раундов стадии, балансируя разнообразие соперников и
// распределение ролей. Контракт фиксирован, эвристики внутри — деталь
// реализации.
type MatchupGenerator interface {
	// Groupings возвращает группы по раундам: [раунд][группа][слот] -> индекс
	// посева. Результат обязан быть детерминированным для одного генератора.
	Groupings(roleCount, numPlayers, numRounds int) [][][]int
}

// quasiRandomGenerator — генератор по умолчанию: детерминированный ГПСЧ
// перемешивает игроков, из нескольких кандидатов-перестановок выбирается та,
// что дает меньше повторных встреч и ровнее распределяет роли.
type quasiRandomGenerator struct {
	seed int64
}

const quasiRandomAttempts = 16

func NewQuasiRandomGenerator(seed int64) MatchupGenerator {
	return &quasiRandomGenerator{seed: seed}
}

// matchupSeed выводит зерно генератора из имени турнира и номера стадии,
// чтобы повторные прогоны одного турнира давали одинаковые группы.
func matchupSeed(name string, stage int) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	h.Write([]byte{byte(stage), byte(stage >> 8)})
	return int64(h.Sum64())
}

func (g *quasiRandomGenerator) Groupings(roleCount, numPlayers, numRounds int) [][][]int {
	if roleCount < 1 || numPlayers < roleCount || numRounds < 1 {
		return nil
	}
	rng := rand.New(rand.NewSource(g.seed))
	met := make(map[[2]int]int)
	// roleSeen[player][role] — сколько раз игрок играл каждую роль.
	roleSeen := make([][]int, numPlayers)
	for i := range roleSeen {
		roleSeen[i] = make([]int, roleCount)
	}

	rounds := make([][][]int, numRounds)
	for round := 0; round < numRounds; round++ {
		var best [][]int
		bestCost := -1
		for attempt := 0; attempt < quasiRandomAttempts; attempt++ {
			candidate := g.chunk(rng.Perm(numPlayers), roleCount)
			cost := g.cost(candidate, met, roleSeen)
			if bestCost < 0 || cost < bestCost {
				best = candidate
				bestCost = cost
			}
		}
		for _, group := range best {
			for i := 0; i < len(group); i++ {
				roleSeen[group[i]][i%roleCount]++
				for j := i + 1; j < len(group); j++ {
					met[metKey(group[i], group[j])]++
				}
			}
		}
		rounds[round] = best
	}
	return rounds
}

// chunk режет перестановку на группы по roleCount; остаток получает bye.
func (g *quasiRandomGenerator) chunk(perm []int, roleCount int) [][]int {
	numGroups := len(perm) / roleCount
	out := make([][]int, 0, numGroups)
	for i := 0; i < numGroups; i++ {
		out = append(out, perm[i*roleCount:(i+1)*roleCount])
	}
	return out
}

// cost штрафует повторные встречи и перекос ролей.
func (g *quasiRandomGenerator) cost(groups [][]int, met map[[2]int]int, roleSeen [][]int) int {
	cost := 0
	for _, group := range groups {
		for i := 0; i < len(group); i++ {
			cost += roleSeen[group[i]][i%len(group)]
			for j := i + 1; j < len(group); j++ {
				cost += 4 * met[metKey(group[i], group[j])]
			}
		}
	}
	return cost
}

func metKey(a, b int) [2]int {
	if b < a {
		a, b = b, a
	}
	return [2]int{a, b}
}
