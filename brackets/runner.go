package brackets

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// RunParams — входные данные симуляции одной стадии. Структура уже
// эффективная (с примененными административными действиями), результаты —
// только этой стадии.
type RunParams struct {
	Name      string // внутреннее имя турнира, попадает в легаси-токены
	Structure *models.TournamentStructure
	Stage     int
	Seeding   models.Seeding
	Actions   []models.AdminAction
	Results   []models.MatchResult

	Cache    *EndOfRoundCache
	CacheKey string // ключ стадии, вычисленный оркестратором

	Matchups MatchupGenerator // генератор квазислучайных пар для swiss-v2
}

// RunOutcome — результат симуляции стадии: следующие матчи либо признак
// завершения, плюс история ранжирований по завершенным раундам.
type RunOutcome struct {
	NextMatches []models.MatchSetup
	StartsAt    *time.Time
	History     []models.Ranking
	Done        bool
}

// Final возвращает итоговое ранжирование завершенной стадии.
func (o *RunOutcome) Final() models.Ranking {
	if len(o.History) == 0 {
		return nil
	}
	return o.History[len(o.History)-1]
}

// FormatRunner — симулятор одного формата стадии. Реализации чистые:
// детерминированно доигрывают стадию от наиболее полезной контрольной точки
// кеша до текущего набора результатов.
type FormatRunner interface {
	Run(ctx context.Context, params RunParams) (*RunOutcome, error)
	GetName() string
}

// RunnerFor возвращает симулятор для тега формата.
func RunnerFor(format models.FormatTag) (FormatRunner, bool) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationRunner(), true
	case models.FormatSwissV1:
		return NewSwissRunner(false), true
	case models.FormatSwissV2:
		return NewSwissRunner(true), true
	default:
		return nil, false
	}
}

// coord — позиция матча без номера попытки.
type coord struct {
	Epoch   int
	Stage   int
	Round   int
	Pairing int
	Match   int
}

// resultIndex группирует результаты по структурной позиции. Результаты с
// устаревшей эпохой в индекс попадают, но симуляторы запрашивают координаты
// только с актуальной эпохой, поэтому инвалидированные результаты
// игнорируются естественным образом.
type resultIndex struct {
	byCoord map[coord][]models.MatchResult
}

func newResultIndex(results []models.MatchResult) *resultIndex {
	idx := &resultIndex{byCoord: make(map[coord][]models.MatchResult, len(results))}
	for _, r := range results {
		c := coord{r.ID.Epoch, r.ID.Stage, r.ID.Round, r.ID.Pairing, r.ID.Match}
		idx.byCoord[c] = append(idx.byCoord[c], r)
	}
	return idx
}

// completed возвращает успешный результат по координате, если он есть.
func (idx *resultIndex) completed(c coord) (models.MatchResult, bool) {
	for _, r := range idx.byCoord[c] {
		if r.Outcome == models.OutcomeCompleted {
			return r, true
		}
	}
	return models.MatchResult{}, false
}

// abortedCount возвращает число прерванных попыток по координате.
func (idx *resultIndex) abortedCount(c coord) int {
	n := 0
	for _, r := range idx.byCoord[c] {
		if r.Outcome == models.OutcomeAborted {
			n++
		}
	}
	return n
}

// resultToken — каноническое строковое представление результата для учета
// в контрольных точках кеша. Номер попытки включен, поэтому токен уникален
// в пределах турнира; счет включен, чтобы два вызова, расходящиеся в счете
// одной координаты, не сошлись на общей контрольной точке.
func resultToken(r models.MatchResult) string {
	return fmt.Sprintf("%d-%d-%d-%d-%d-%d/%s/%v",
		r.ID.Epoch, r.ID.Stage, r.ID.Round, r.ID.Pairing, r.ID.Match, r.ID.Attempt, r.Outcome, r.Goals)
}

// matchSpecAt возвращает спецификацию матча m раунда, повторяя последний
// объявленный матч, когда попыток нужно больше, чем было запланировано.
func matchSpecAt(round models.RoundSpec, m int) models.MatchSpec {
	if m >= len(round.Matches) {
		return round.Matches[len(round.Matches)-1]
	}
	return round.Matches[m]
}
