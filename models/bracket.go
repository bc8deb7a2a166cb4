package models

import "time"

// TournamentFormat selects the bracket construction algorithm.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatGauntlet          TournamentFormat = "gauntlet"
	FormatTeamBattle        TournamentFormat = "team_battle"
)

// MatchStatus tracks one bracket slot through execution.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchRunning   MatchStatus = "running"
	MatchCompleted MatchStatus = "completed"
	MatchFailed    MatchStatus = "failed"
)

// Participant identifies one competing entry. Immutable once a bracket is
// generated. TeamMembers is set only for team formats.
type Participant struct {
	AgentID     string   `json:"agent_id"`
	TeamMembers []string `json:"team_members,omitempty"`
}

// MatchResult records the outcome of one match. An empty WinnerID means the
// match produced no winner (both sides failed, or a no-contest slot).
type MatchResult struct {
	WinnerID   string             `json:"winner_id,omitempty"`
	LoserID    string             `json:"loser_id,omitempty"`
	Draw       bool               `json:"draw,omitempty"` // tie broken by seeding
	Scores     map[string]float64 `json:"scores,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
	FinishedAt time.Time          `json:"finished_at"`
}

// BracketMatch is one slot in a round. Either participant may be nil: not yet
// determined (waiting on an earlier round) or vacated by a null-winner result.
type BracketMatch struct {
	Index        int          `json:"index"`
	Participant1 *Participant `json:"participant1,omitempty"`
	Participant2 *Participant `json:"participant2,omitempty"`
	// Difficulty is set for gauntlet steps (easy..master), empty otherwise.
	Difficulty string       `json:"difficulty,omitempty"`
	Status     MatchStatus  `json:"status"`
	Result     *MatchResult `json:"result,omitempty"`
}

// BracketRound holds the ordered match slots of one round.
type BracketRound struct {
	Matches []*BracketMatch `json:"matches"`
	IsFinal bool            `json:"is_final"`
}

// Bracket is the full round structure for a tournament. For N=1
// single-elimination there are zero rounds and InstantWinner is set.
type Bracket struct {
	Format        TournamentFormat `json:"format"`
	Rounds        []*BracketRound  `json:"rounds"`
	InstantWinner *Participant     `json:"instant_winner,omitempty"`
}
