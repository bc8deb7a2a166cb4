package models

// MatchRecord persists a single resolved contest (tournament slot or a
// standalone scenario test run) for history queries.
type MatchRecord struct {
	ID           string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TournamentID *string `gorm:"index" json:"tournament_id,omitempty"` // nil = casual run
	ScenarioID   string  `gorm:"index" json:"scenario_id"`
	RoundIndex   int     `json:"round_index"`
	MatchIndex   int     `json:"match_index"`

	Agent1ID string `gorm:"index" json:"agent1_id"`
	Agent2ID string `gorm:"index" json:"agent2_id,omitempty"` // empty for gauntlet steps

	WinnerID    string  `json:"winner_id,omitempty"`
	Draw        bool    `json:"draw" gorm:"default:false"`
	Agent1Score float64 `json:"agent1_score"`
	Agent2Score float64 `json:"agent2_score"`
	Error       string  `json:"error,omitempty"`
	DurationMs  int64   `json:"duration_ms"`

	Timestamps
}
