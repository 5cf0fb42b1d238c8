package models

import "fmt"

type MatchOutcome string

const (
	OutcomeCompleted MatchOutcome = "completed"
	OutcomeAborted   MatchOutcome = "aborted"
)

// MatchSetup — предложенный к проведению матч. Порядок игроков соответствует
// порядку ролей игры. Исполняется внешним клиентом.
type MatchSetup struct {
	ID         MatchIdentifier `json:"id"`
	Token      string          `json:"token"`
	Game       Game            `json:"game"`
	Players    []Player        `json:"players"`
	StartClock int             `json:"start_clock"`
	PlayClock  int             `json:"play_clock"`
}

// MatchResult — результат матча, поставляемый клиентом. После конструирования
// не изменяется. Прерванные матчи — штатный исход, не ошибка: они занимают
// слот попытки, и та же координата будет перепредложена со следующим Attempt.
type MatchResult struct {
	ID      MatchIdentifier `json:"id"`
	Outcome MatchOutcome    `json:"outcome"`
	Goals   []float64       `json:"goals,omitempty"` // только для Completed, каждый в [0,100]
}

// Validate проверяет согласованность исхода и целевых значений.
func (r MatchResult) Validate() error {
	if err := r.ID.Validate(); err != nil {
		return err
	}
	switch r.Outcome {
	case OutcomeCompleted:
		if len(r.Goals) == 0 {
			return fmt.Errorf("%w: %+v", ErrMissingGoals, r.ID)
		}
		for _, g := range r.Goals {
			if g < 0 || g > 100 {
				return fmt.Errorf("%w: %v", ErrBadGoalValue, g)
			}
		}
	case OutcomeAborted:
		if len(r.Goals) != 0 {
			return fmt.Errorf("%w: %+v", ErrUnexpectedGoals, r.ID)
		}
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrValidationFailed, r.Outcome)
	}
	return nil
}
