// Package specfile загружает декларативное описание турнира из текстового
// документа и превращает его в проверенную структуру. Неизвестные ключи —
// жесткая ошибка валидации, а не предупреждение.
package specfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrBadDocument = errors.New("invalid tournament document")

type document struct {
	DisplayName string     `yaml:"display_name"`
	Name        string     `yaml:"name"`
	Games       []gameDoc  `yaml:"games"`
	Stages      []stageDoc `yaml:"stages"`
}

type gameDoc struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Roles    int    `yaml:"roles"`
	FixedSum bool   `yaml:"fixed_sum"`
}

type stageDoc struct {
	Format      string     `yaml:"format"`
	Rounds      []roundDoc `yaml:"rounds"`
	PlayerLimit int        `yaml:"player_limit"`
	Excluded    []string   `yaml:"excluded"`
}

type roundDoc struct {
	StartsAt string     `yaml:"starts_at"`
	Matches  []matchDoc `yaml:"matches"`
}

type matchDoc struct {
	Game       string  `yaml:"game"`
	StartClock int     `yaml:"start_clock"`
	PlayClock  int     `yaml:"play_clock"`
	RoleOrder  []int   `yaml:"role_order"`
	Weight     float64 `yaml:"weight"`
}

// Load читает YAML-документ и возвращает проверенную структуру турнира.
func Load(r io.Reader) (*models.TournamentStructure, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}

	structure := &models.TournamentStructure{
		DisplayName: doc.DisplayName,
		Name:        doc.Name,
		Games:       make(map[string]models.Game, len(doc.Games)),
		Stages:      make([]models.StageSpec, 0, len(doc.Stages)),
	}
	for _, g := range doc.Games {
		if _, dup := structure.Games[g.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate game %q", ErrBadDocument, g.Name)
		}
		if g.Roles < 1 {
			return nil, fmt.Errorf("%w: game %q must have at least one role", ErrBadDocument, g.Name)
		}
		structure.Games[g.Name] = models.Game{
			Name:      g.Name,
			SourceURL: g.Source,
			Roles:     g.Roles,
			FixedSum:  g.FixedSum,
		}
	}
	for si, s := range doc.Stages {
		stage := models.StageSpec{
			Format:      models.FormatTag(s.Format),
			PlayerLimit: s.PlayerLimit,
		}
		for _, p := range s.Excluded {
			stage.Excluded = append(stage.Excluded, models.Player(p))
		}
		for ri, r := range s.Rounds {
			round := models.RoundSpec{}
			if r.StartsAt != "" {
				at, err := parseStartTime(r.StartsAt)
				if err != nil {
					return nil, fmt.Errorf("%w: stage %d round %d: %v", ErrBadDocument, si, ri, err)
				}
				round.StartsAt = &at
			}
			for _, m := range r.Matches {
				round.Matches = append(round.Matches, models.MatchSpec{
					Game:       m.Game,
					StartClock: m.StartClock,
					PlayClock:  m.PlayClock,
					RoleOrder:  m.RoleOrder,
					Weight:     m.Weight,
				})
			}
			stage.Rounds = append(stage.Rounds, round)
		}
		structure.Stages = append(structure.Stages, stage)
	}

	if err := structure.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	return structure, nil
}

// LoadBytes — удобная обертка над Load.
func LoadBytes(data []byte) (*models.TournamentStructure, error) {
	return Load(bytes.NewReader(data))
}

// parseStartTime принимает времена в стиле RFC 1123 (обе вариации зоны),
// а также RFC 3339 на всякий случай.
func parseStartTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC3339} {
		if at, err := time.Parse(layout, value); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized start time %q", value)
}
