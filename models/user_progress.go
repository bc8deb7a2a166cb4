package models

import "time"

// UserProgress tracks gamified progression for each user (denormalized for performance)
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`
	Rank    int   `json:"rank" gorm:"default:1"` // Bronze(1)→Silver(2)→Gold(3)→Platinum(4)→Diamond(5)

	// Activity counters feeding eligibility checks and achievements
	AgentsCreated        int64 `json:"agents_created" gorm:"default:0"`
	ChipsCollected       int64 `json:"chips_collected" gorm:"default:0"`
	ChipsFused           int64 `json:"chips_fused" gorm:"default:0"`
	TotalMatches         int64 `json:"total_matches" gorm:"default:0"`
	TournamentsPlayed    int64 `json:"tournaments_played" gorm:"default:0"`
	TournamentsCompleted int64 `json:"tournaments_completed" gorm:"default:0"`
	TournamentsWon       int64 `json:"tournaments_won" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}

// ArenaLevel derives the eligibility level from activity counters:
// floor(tournamentsWon*2 + agentsCreated*0.5 + chipsCollected*0.1), floored at 1.
func (p *UserProgress) ArenaLevel() int {
	lvl := int(float64(p.TournamentsWon)*2 + float64(p.AgentsCreated)*0.5 + float64(p.ChipsCollected)*0.1)
	if lvl < 1 {
		lvl = 1
	}
	return lvl
}
