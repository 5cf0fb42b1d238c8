package models

import (
	"fmt"
	"strconv"
	"strings"
)

// versionedPrefix открывает версионированную грамматику токена. Легаси-токены
// начинаются с внутреннего имени турнира и не несут эпоху (она равна 0).
const versionedPrefix = "ggpta"

// MatchIdentifier — координаты матча внутри турнира. Все поля неотрицательны.
// Epoch — число административных действий, инвалидировавших эту координату;
// он встраивается в токен, чтобы идентификаторы, созданные до и после
// структурной правки, никогда не совпадали.
type MatchIdentifier struct {
	Epoch   int `json:"epoch"`
	Stage   int `json:"stage"`
	Round   int `json:"round"`
	Pairing int `json:"pairing"`
	Match   int `json:"match"`
	Attempt int `json:"attempt"`
}

// Validate отклоняет отрицательные поля.
func (id MatchIdentifier) Validate() error {
	for _, v := range []int{id.Epoch, id.Stage, id.Round, id.Pairing, id.Match, id.Attempt} {
		if v < 0 {
			return fmt.Errorf("%w: %+v", ErrNegativeIDField, id)
		}
	}
	return nil
}

// Encode сериализует идентификатор в токен. Пока эпоха равна нулю, пишется
// легаси-грамматика с именем турнира; после первого инвалидирующего действия —
// версионированная.
func (id MatchIdentifier) Encode(tournamentName string) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	if id.Epoch == 0 {
		return fmt.Sprintf("%s-%d-%d-%d-%d-%d",
			tournamentName, id.Stage, id.Round, id.Pairing, id.Match, id.Attempt), nil
	}
	return fmt.Sprintf("%s-%d-%d-%d-%d-%d-%d",
		versionedPrefix, id.Epoch, id.Stage, id.Round, id.Pairing, id.Match, id.Attempt), nil
}

// DecodeMatchIdentifier разбирает токен любой из двух принимаемых грамматик:
//
//	<tournamentName>-<stage>-<round>-<pairing>-<match>-<attempt>
//	ggpta-<epoch>-<stage>-<round>-<pairing>-<match>-<attempt>
func DecodeMatchIdentifier(token string) (MatchIdentifier, error) {
	parts := strings.Split(token, "-")
	var id MatchIdentifier
	switch {
	case len(parts) == 7 && parts[0] == versionedPrefix:
		fields := []*int{&id.Epoch, &id.Stage, &id.Round, &id.Pairing, &id.Match, &id.Attempt}
		for i, dst := range fields {
			v, err := parseIDField(parts[i+1])
			if err != nil {
				return MatchIdentifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, token)
			}
			*dst = v
		}
	case len(parts) == 6:
		if !internalNameRe.MatchString(parts[0]) {
			return MatchIdentifier{}, fmt.Errorf("%w: bad tournament name in %q", ErrInvalidIdentifier, token)
		}
		fields := []*int{&id.Stage, &id.Round, &id.Pairing, &id.Match, &id.Attempt}
		for i, dst := range fields {
			v, err := parseIDField(parts[i+1])
			if err != nil {
				return MatchIdentifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, token)
			}
			*dst = v
		}
	default:
		return MatchIdentifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, token)
	}
	return id, nil
}

func parseIDField(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
