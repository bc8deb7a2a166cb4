package models

import "time"

// TournamentStatus state machine: registration → running → completed, with
// cancelled and error as terminals. Transitions are monotonic, never backward.
type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentRunning      TournamentStatus = "running"
	TournamentCompleted    TournamentStatus = "completed"
	TournamentCancelled    TournamentStatus = "cancelled"
	TournamentError        TournamentStatus = "error"
)

// TournamentRequirements is the eligibility gate checked at join time.
type TournamentRequirements struct {
	MinLevel       int `json:"min_level"`
	MinTournaments int `json:"min_tournaments"` // prior completed tournaments
}

// RewardSpec describes the chips rolled for one placement tier.
type RewardSpec struct {
	Chips        int  `json:"chips"`
	LegendaryTier bool `json:"legendary_tier,omitempty"` // boosts legendary/epic weights
}

// Placement tiers for reward distribution. Missing higher tiers fall through
// to the participant tier.
const (
	TierWinner      = "winner"
	TierFinalist    = "finalist"
	TierParticipant = "participant"
)

// Tournament owns its bracket and participant list. Created at
// registration-open time, archived (never deleted) after completion.
type Tournament struct {
	ID          string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name        string           `gorm:"not null" json:"name"`
	Slug        string           `gorm:"index" json:"slug"`
	Description string           `json:"description"`
	Format      TournamentFormat `gorm:"type:varchar(32);not null" json:"format"`
	Status      TournamentStatus `gorm:"type:varchar(16);index;default:'registration'" json:"status"`

	// Ordered join sequence; insertion order is seed order.
	Participants []Participant `gorm:"serializer:json" json:"participants"`
	// Nil until the tournament starts.
	Bracket *Bracket `gorm:"serializer:json" json:"bracket,omitempty"`

	MaxParticipants int                    `json:"max_participants" gorm:"default:8"`
	Requirements    TournamentRequirements `gorm:"serializer:json" json:"requirements"`
	Rewards         map[string]RewardSpec  `gorm:"serializer:json" json:"rewards"`
	ScenarioID      string                 `gorm:"index" json:"scenario_id"`

	// Final standing, first place first. Empty until completed.
	Rankings []string `gorm:"serializer:json" json:"rankings,omitempty"`

	ScheduledStart *time.Time `json:"scheduled_start,omitempty" gorm:"index"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`

	Timestamps
}

// MinParticipants returns the floor the format needs before a start is legal.
func (t *Tournament) MinParticipants() int {
	switch t.Format {
	case FormatGauntlet:
		return 1
	case FormatTeamBattle:
		return 4
	default:
		return 2
	}
}

// HasParticipant reports whether an agent already joined.
func (t *Tournament) HasParticipant(agentID string) bool {
	for _, p := range t.Participants {
		if p.AgentID == agentID {
			return true
		}
	}
	return false
}
