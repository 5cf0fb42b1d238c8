package models

import (
	"fmt"
	"strings"
)

// Player — непрозрачный стабильный идентификатор игрока.
type Player string

// Seeding — упорядоченный список уникальных игроков, лучший первым.
// Порядок определяет разрешение ничьих на протяжении всей стадии.
type Seeding []Player

const (
	seedingDelimiter = ','
	seedingEscape    = '\\'
)

// Validate проверяет, что посев не пуст и не содержит дубликатов.
func (s Seeding) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: seeding is empty", ErrValidationFailed)
	}
	seen := make(map[Player]struct{}, len(s))
	for i, p := range s {
		if p == "" {
			return fmt.Errorf("%w: seeding position %d", ErrEmptyPlayer, i)
		}
		if _, ok := seen[p]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicatePlayer, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Position возвращает позицию игрока в посеве (0 — лучший) или -1.
func (s Seeding) Position(p Player) int {
	for i, cur := range s {
		if cur == p {
			return i
		}
	}
	return -1
}

// Contains сообщает, входит ли игрок в посев.
func (s Seeding) Contains(p Player) bool {
	return s.Position(p) >= 0
}

// Encode сериализует посев в строку: игроки соединяются запятой,
// запятая и обратный слэш внутри имен экранируются.
func (s Seeding) Encode() string {
	var b strings.Builder
	for i, p := range s {
		if i > 0 {
			b.WriteByte(seedingDelimiter)
		}
		for _, r := range string(p) {
			if r == seedingDelimiter || r == seedingEscape {
				b.WriteByte(seedingEscape)
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DecodeSeeding разбирает строку, созданную Encode, обратно в посев.
func DecodeSeeding(token string) (Seeding, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidSeeding)
	}
	var (
		out     Seeding
		current strings.Builder
		escaped bool
	)
	for _, r := range token {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == seedingEscape:
			escaped = true
		case r == seedingDelimiter:
			out = append(out, Player(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w: dangling escape", ErrInvalidSeeding)
	}
	out = append(out, Player(current.String()))
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeeding, err)
	}
	return out, nil
}
