package models

import (
	"fmt"
	"math"
	"sort"
)

// ScoreKind различает варианты счета. Счета разных видов несравнимы между
// собой: такое сравнение — нарушение контракта программы, а не ошибка данных,
// поэтому Compare паникует. Исключение — CutoffScore, который по определению
// ранжируется ниже любого счета без обертки.
type ScoreKind string

const (
	ScoreKindElimination ScoreKind = "elimination"
	ScoreKindSwiss       ScoreKind = "swiss"
	ScoreKindCutoff      ScoreKind = "cutoff"
	ScoreKindSeed        ScoreKind = "seed"
	ScoreKindNumeric     ScoreKind = "numeric"
)

type Score struct {
	Kind ScoreKind `json:"kind"`

	// Elimination: раунд выбывания в обратном отсчете (0 = еще в борьбе),
	// победитель помечается отдельно и ранжируется выше всех.
	EliminatedInRound int  `json:"eliminated_in_round,omitempty"`
	Winner            bool `json:"winner,omitempty"`

	// Swiss: накопленные взвешенные очки, округленные до 3 знаков, плюс
	// аннотации для отображения.
	Points       float64 `json:"points,omitempty"`
	RecentGame   string  `json:"recent_game,omitempty"`
	RecentPoints float64 `json:"recent_points,omitempty"`
	ByePoints    float64 `json:"bye_points,omitempty"`

	// Cutoff: счет игрока, не прошедшего отсечку. Depth — номер стадии,
	// после которой игрок выбыл: чем позже, тем выше среди отсеченных.
	Inner *Score `json:"inner,omitempty"`
	Depth int    `json:"depth,omitempty"`

	// Seed / Numeric
	Value float64 `json:"value,omitempty"`
}

func EliminationScore(round int, winner bool) Score {
	return Score{Kind: ScoreKindElimination, EliminatedInRound: round, Winner: winner}
}

func SwissScore(points float64, recentGame string, recentPoints, byePoints float64) Score {
	return Score{
		Kind:         ScoreKindSwiss,
		Points:       Round3(points),
		RecentGame:   recentGame,
		RecentPoints: Round3(recentPoints),
		ByePoints:    Round3(byePoints),
	}
}

func CutoffScore(inner Score, depth int) Score {
	cp := inner
	return Score{Kind: ScoreKindCutoff, Inner: &cp, Depth: depth}
}

func SeedScore(position int) Score {
	return Score{Kind: ScoreKindSeed, Value: float64(-position)}
}

func NumericScore(v float64) Score {
	return Score{Kind: ScoreKindNumeric, Value: v}
}

// Round3 округляет до 3 знаков, чтобы дрейф плавающей точки не влиял на
// сравнение накопленных очков.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Compare возвращает отрицательное число, ноль или положительное число,
// если s хуже, равен или лучше other.
func (s Score) Compare(other Score) int {
	// Отсеченные всегда ниже не отсеченных.
	if s.Kind == ScoreKindCutoff || other.Kind == ScoreKindCutoff {
		switch {
		case s.Kind != ScoreKindCutoff:
			return 1
		case other.Kind != ScoreKindCutoff:
			return -1
		case s.Depth != other.Depth:
			return s.Depth - other.Depth
		default:
			return s.Inner.Compare(*other.Inner)
		}
	}
	if s.Kind != other.Kind {
		panic(fmt.Sprintf("score contract violation: comparing %s against %s", s.Kind, other.Kind))
	}
	switch s.Kind {
	case ScoreKindElimination:
		return compareFloat(s.eliminationRank(), other.eliminationRank())
	case ScoreKindSwiss:
		return compareFloat(s.Points, other.Points)
	case ScoreKindSeed, ScoreKindNumeric:
		return compareFloat(s.Value, other.Value)
	default:
		panic(fmt.Sprintf("score contract violation: unknown kind %q", s.Kind))
	}
}

// eliminationRank: победитель выше всех, оставшиеся в борьбе (раунд 0) выше
// выбывших, среди выбывших лучше тот, кто продержался дольше (меньший раунд
// в обратном отсчете).
func (s Score) eliminationRank() float64 {
	if s.Winner {
		return 1
	}
	return float64(-s.EliminatedInRound)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// PlayerScore связывает счет с позицией игрока в посеве стадии. Позиция
// используется только для детерминированного разрешения точных ничьих.
type PlayerScore struct {
	Player  Player `json:"player"`
	Score   Score  `json:"score"`
	SeedPos int    `json:"seed_pos"`
}

// Ranking — полностью упорядоченный набор PlayerScore, лучший первым.
// Инвариант: ровно один PlayerScore на игрока соответствующего посева.
type Ranking []PlayerScore

// NewRanking сортирует записи по счету, затем по позиции посева.
func NewRanking(entries []PlayerScore) Ranking {
	out := append([]PlayerScore(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Score.Compare(out[j].Score); c != 0 {
			return c > 0
		}
		return out[i].SeedPos < out[j].SeedPos
	})
	return out
}

// Players возвращает игроков в порядке ранжирования.
func (r Ranking) Players() []Player {
	out := make([]Player, len(r))
	for i, ps := range r {
		out[i] = ps.Player
	}
	return out
}

// PositionOf возвращает место игрока в ранжировании (0 — первое) или -1.
func (r Ranking) PositionOf(p Player) int {
	for i, ps := range r {
		if ps.Player == p {
			return i
		}
	}
	return -1
}
