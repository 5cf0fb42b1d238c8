package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AdminActionKind — закрытый набор видов административных правок.
type AdminActionKind string

const (
	ActionReplaceGame    AdminActionKind = "replace_game"
	ActionSetClocks      AdminActionKind = "set_clocks"
	ActionSetWeight      AdminActionKind = "set_weight"
	ActionSetRoleOrder   AdminActionKind = "set_role_order"
	ActionSetRoundStart  AdminActionKind = "set_round_start"
	ActionSetPlayerLimit AdminActionKind = "set_player_limit"
	ActionExcludePlayers AdminActionKind = "exclude_players"
	ActionSetFormat      AdminActionKind = "set_format"
)

// AdminAction — одна упорядоченная структурная правка, накладываемая на
// базовую структуру турнира при чтении. Round = -1 означает правку всей
// стадии, Match = -1 — всего раунда.
type AdminAction struct {
	Kind  AdminActionKind
	Stage int
	Round int
	Match int

	Game        string
	StartClock  int
	PlayClock   int
	Weight      float64
	RoleOrder   []int
	StartTime   *time.Time
	PlayerLimit int
	Players     []Player
	Format      FormatTag
}

// RoundAtOrAfter сообщает, находится ли раунд a в игровом порядке не раньше
// раунда b. Семантика раундов зависит от формата: в single elimination раунды
// считаются в обратном порядке, в swiss — в прямом.
type RoundAtOrAfter func(a, b int) bool

// RoundComparatorFor возвращает компаратор раундов для формата стадии.
func RoundComparatorFor(format FormatTag) RoundAtOrAfter {
	if format == FormatSingleElimination {
		return func(a, b int) bool { return a <= b }
	}
	return func(a, b int) bool { return a >= b }
}

// Invalidates решает, должен ли ранее вычисленный матч по данной координате
// быть отброшен и пересчитан под новой эпохой. Правка на стадии S
// инвалидирует всё на стадиях > S безусловно, а внутри S — всё, что идет
// с отредактированного раунда/матча и дальше по игровому порядку.
func (a AdminAction) Invalidates(stage, round, match int, atOrAfter RoundAtOrAfter) bool {
	if stage > a.Stage {
		return true
	}
	if stage < a.Stage {
		return false
	}
	if a.Round < 0 {
		return true
	}
	if !atOrAfter(round, a.Round) {
		return false
	}
	if round != a.Round {
		return true
	}
	if a.Match < 0 {
		return true
	}
	return match >= a.Match
}

// EpochFor вычисляет эпоху для сырой координаты матча: 1-based индекс
// последнего инвалидирующего действия в списке, либо 0.
func EpochFor(actions []AdminAction, stage, round, match int, atOrAfter RoundAtOrAfter) int {
	epoch := 0
	for i, a := range actions {
		if a.Invalidates(stage, round, match, atOrAfter) {
			epoch = i + 1
		}
	}
	return epoch
}

// ApplyActions накладывает стадийные правки на базовую структуру и возвращает
// эффективную структуру. Базовая структура не изменяется; координаты вне
// диапазона пропускаются без ошибки. Правки раундов и матчей сюда не входят:
// их координата Round живет в пространстве номеров раундов идентификаторов
// (для single elimination — обратный отсчет), поэтому они накладываются
// симулятором через EffectiveRound, где координата известна.
func ApplyActions(base *TournamentStructure, actions []AdminAction) *TournamentStructure {
	out := base.Clone()
	for _, a := range actions {
		if a.Stage < 0 || a.Stage >= len(out.Stages) {
			continue
		}
		stage := &out.Stages[a.Stage]
		switch a.Kind {
		case ActionSetFormat:
			stage.Format = a.Format
		case ActionSetPlayerLimit:
			stage.PlayerLimit = a.PlayerLimit
		case ActionExcludePlayers:
			stage.Excluded = append([]Player(nil), a.Players...)
		}
	}
	return out
}

// EffectiveRound накладывает правки раундов и матчей на объявленный раунд
// стадии. round — координатный номер, которым этот объявленный раунд
// разыгрывается: тот же номер, что попадает в идентификаторы матчей и в
// Invalidates. Так правка и инвалидация всегда адресуют один и тот же
// физический раунд, даже когда один объявленный раунд обслуживает несколько
// разыгрываемых (повтор последнего объявленного раунда).
func EffectiveRound(base RoundSpec, actions []AdminAction, stage, round int) RoundSpec {
	out := base.Clone()
	for _, a := range actions {
		if a.Stage != stage {
			continue
		}
		if a.Round >= 0 && a.Round != round {
			continue
		}
		switch a.Kind {
		case ActionSetRoundStart:
			if a.StartTime != nil {
				at := *a.StartTime
				out.StartsAt = &at
			} else {
				out.StartsAt = nil
			}
		case ActionReplaceGame, ActionSetClocks, ActionSetWeight, ActionSetRoleOrder:
			for mi := range out.Matches {
				if a.Match >= 0 && mi != a.Match {
					continue
				}
				m := &out.Matches[mi]
				switch a.Kind {
				case ActionReplaceGame:
					m.Game = a.Game
				case ActionSetClocks:
					m.StartClock = a.StartClock
					m.PlayClock = a.PlayClock
				case ActionSetWeight:
					m.Weight = a.Weight
				case ActionSetRoleOrder:
					m.RoleOrder = append([]int(nil), a.RoleOrder...)
				}
			}
		}
	}
	return out
}

// ValidateActions проверяет, что содержимое правок раундов и матчей не ломает
// структурные правила, не зная координатной карты раундов. Проверки этого
// уровня не зависят от того, какой именно раунд правка заденет: правила
// олимпийской стадии однородны по всем ее раундам. effective — структура
// после ApplyActions, чтобы учесть правки формата.
func ValidateActions(effective *TournamentStructure, actions []AdminAction) error {
	for i, a := range actions {
		if a.Stage < 0 || a.Stage >= len(effective.Stages) {
			continue
		}
		elim := effective.Stages[a.Stage].Format == FormatSingleElimination
		switch a.Kind {
		case ActionReplaceGame:
			game, ok := effective.Games[a.Game]
			if !ok {
				return fmt.Errorf("%w: action %d replaces with %q", ErrUnknownGame, i, a.Game)
			}
			if elim && (game.Roles != 2 || !game.FixedSum) {
				return fmt.Errorf("%w: action %d", ErrEliminationGameRule, i)
			}
		case ActionSetWeight:
			if a.Weight < 0 {
				return fmt.Errorf("%w: action %d sets negative weight", ErrValidationFailed, i)
			}
			if elim && a.Weight != 1.0 {
				return fmt.Errorf("%w: action %d", ErrEliminationGameRule, i)
			}
		case ActionSetRoleOrder:
			if a.RoleOrder != nil {
				if err := validateRoleOrder(a.RoleOrder, len(a.RoleOrder)); err != nil {
					return fmt.Errorf("%w: action %d", err, i)
				}
				if elim && len(a.RoleOrder) != 2 {
					return fmt.Errorf("%w: action %d", ErrEliminationGameRule, i)
				}
			}
		}
	}
	return nil
}

const (
	actionFieldSep = ';'
	actionKVSep    = '='
	actionEscape   = '\\'
)

func escapeActionValue(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r == actionFieldSep || r == actionKVSep || r == actionEscape {
			b.WriteByte(actionEscape)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Encode сериализует действие в упорядоченный токен вида
// kind;s=0;r=1;m=-1;<поля вида>. Точно обратим: Decode(Encode(x)) == x.
func (a AdminAction) Encode() string {
	fields := []string{
		string(a.Kind),
		fmt.Sprintf("s%c%d", actionKVSep, a.Stage),
		fmt.Sprintf("r%c%d", actionKVSep, a.Round),
		fmt.Sprintf("m%c%d", actionKVSep, a.Match),
	}
	add := func(key, value string) {
		fields = append(fields, fmt.Sprintf("%s%c%s", key, actionKVSep, escapeActionValue(value)))
	}
	switch a.Kind {
	case ActionReplaceGame:
		add("g", a.Game)
	case ActionSetClocks:
		add("sc", strconv.Itoa(a.StartClock))
		add("pc", strconv.Itoa(a.PlayClock))
	case ActionSetWeight:
		add("w", strconv.FormatFloat(a.Weight, 'g', -1, 64))
	case ActionSetRoleOrder:
		parts := make([]string, len(a.RoleOrder))
		for i, v := range a.RoleOrder {
			parts[i] = strconv.Itoa(v)
		}
		add("ro", strings.Join(parts, ","))
	case ActionSetRoundStart:
		if a.StartTime != nil {
			add("t", a.StartTime.UTC().Format(time.RFC3339))
		}
	case ActionSetPlayerLimit:
		add("l", strconv.Itoa(a.PlayerLimit))
	case ActionExcludePlayers:
		add("p", Seeding(a.Players).Encode())
	case ActionSetFormat:
		add("f", string(a.Format))
	}
	return strings.Join(fields, string(actionFieldSep))
}

// requiredActionFields — обязательные ключи полезной нагрузки каждого вида.
// У set_round_start ключа нет: отсутствие t означает сброс времени старта.
var requiredActionFields = map[AdminActionKind][]string{
	ActionReplaceGame:    {"g"},
	ActionSetClocks:      {"sc", "pc"},
	ActionSetWeight:      {"w"},
	ActionSetRoleOrder:   {"ro"},
	ActionSetRoundStart:  nil,
	ActionSetPlayerLimit: {"l"},
	ActionExcludePlayers: {"p"},
	ActionSetFormat:      {"f"},
}

// DecodeAdminAction разбирает токен, созданный Encode. Токен без координат
// или без обязательной полезной нагрузки своего вида отклоняется сразу.
func DecodeAdminAction(token string) (AdminAction, error) {
	raw := splitActionFields(token)
	if len(raw) == 0 {
		return AdminAction{}, fmt.Errorf("%w: empty token", ErrInvalidAdminAction)
	}
	a := AdminAction{Kind: AdminActionKind(raw[0]), Round: -1, Match: -1}
	required, known := requiredActionFields[a.Kind]
	if !known {
		return AdminAction{}, fmt.Errorf("%w: %q", ErrUnknownActionKind, raw[0])
	}
	seen := make(map[string]bool, len(raw))
	for _, field := range raw[1:] {
		key, value, ok := splitActionKV(field)
		if !ok {
			return AdminAction{}, fmt.Errorf("%w: bad field %q", ErrInvalidAdminAction, field)
		}
		seen[key] = true
		var err error
		switch key {
		case "s":
			a.Stage, err = strconv.Atoi(value)
		case "r":
			a.Round, err = strconv.Atoi(value)
		case "m":
			a.Match, err = strconv.Atoi(value)
		case "g":
			a.Game = value
		case "sc":
			a.StartClock, err = strconv.Atoi(value)
		case "pc":
			a.PlayClock, err = strconv.Atoi(value)
		case "w":
			a.Weight, err = strconv.ParseFloat(value, 64)
		case "ro":
			a.RoleOrder, err = parseIntList(value)
		case "t":
			var at time.Time
			at, err = time.Parse(time.RFC3339, value)
			if err == nil {
				a.StartTime = &at
			}
		case "l":
			a.PlayerLimit, err = strconv.Atoi(value)
		case "p":
			var seeding Seeding
			seeding, err = DecodeSeeding(value)
			a.Players = []Player(seeding)
		case "f":
			a.Format = FormatTag(value)
		default:
			return AdminAction{}, fmt.Errorf("%w: unknown field %q", ErrInvalidAdminAction, key)
		}
		if err != nil {
			return AdminAction{}, fmt.Errorf("%w: field %q: %v", ErrInvalidAdminAction, key, err)
		}
	}
	for _, key := range append([]string{"s", "r", "m"}, required...) {
		if !seen[key] {
			return AdminAction{}, fmt.Errorf("%w: missing field %q for %s", ErrInvalidAdminAction, key, a.Kind)
		}
	}
	if a.Stage < 0 {
		return AdminAction{}, fmt.Errorf("%w: negative stage", ErrInvalidAdminAction)
	}
	return a, nil
}

// EncodeActionList сериализует упорядоченный список действий построчно.
func EncodeActionList(actions []AdminAction) string {
	tokens := make([]string, len(actions))
	for i, a := range actions {
		tokens[i] = a.Encode()
	}
	return strings.Join(tokens, "\n")
}

// splitActionFields режет токен по неэкранированным разделителям полей,
// снимая экранирование значений.
func splitActionFields(token string) []string {
	var (
		out     []string
		current strings.Builder
		escaped bool
	)
	for _, r := range token {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == actionEscape:
			escaped = true
		case r == actionFieldSep:
			out = append(out, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	out = append(out, current.String())
	return out
}

func splitActionKV(field string) (key, value string, ok bool) {
	idx := strings.IndexByte(field, byte(actionKVSep))
	if idx <= 0 {
		return "", "", false
	}
	return field[:idx], field[idx+1:], true
}

func parseIntList(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
