package models

// Game описывает игру из каталога турнира.
type Game struct {
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
	Roles     int    `json:"roles"`
	// FixedSum: суммы очков по ролям всегда дают одну и ту же константу.
	// Это позволяет досрочно фиксировать победу и начислять очки за bye.
	FixedSum bool `json:"fixed_sum"`
}
