package models

import "time"

// AchievementType: static config for threshold-triggered awards
type AchievementType struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_WIN", "FUSION_MASTER"
	Name        string `gorm:"not null"`
	Description string
	Rarity      Rarity           `gorm:"type:varchar(16);default:'common'"`
	Threshold   map[string]int64 `gorm:"serializer:json"` // e.g., {"tournaments_won": 1}
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

// UserAchievement: awarded instance
type UserAchievement struct {
	ID                string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExternalUserID    string    `gorm:"index;not null"`
	AchievementTypeID string    `gorm:"index;not null"`
	AwardedAt         time.Time `gorm:"autoCreateTime"`
	Metadata          string    `gorm:"type:jsonb"` // e.g., {"tournament_id": "..."}
}

// AchievementTriggers seed the achievement table on boot.
var AchievementTriggers = []AchievementType{
	{
		Code:        "WELCOME",
		Name:        "Welcome to the Arena",
		Description: "Created your first agent",
		Rarity:      RarityCommon,
		Threshold:   map[string]int64{"agents_created": 1},
	},
	{
		Code:        "FIRST_MATCH",
		Name:        "First Contact",
		Description: "Ran your first match",
		Rarity:      RarityCommon,
		Threshold:   map[string]int64{"total_matches": 1},
	},
	{
		Code:        "FIRST_WIN",
		Name:        "Taste of Victory",
		Description: "Won a tournament",
		Rarity:      RarityRare,
		Threshold:   map[string]int64{"tournaments_won": 1},
	},
	{
		Code:        "CHIP_COLLECTOR",
		Name:        "Chip Collector",
		Description: "Collected 10 skill chips",
		Rarity:      RarityRare,
		Threshold:   map[string]int64{"chips_collected": 10},
	},
	{
		Code:        "FUSION_MASTER",
		Name:        "Fusion Master",
		Description: "Fused 5 chips",
		Rarity:      RarityEpic,
		Threshold:   map[string]int64{"chips_fused": 5},
	},
	{
		Code:        "ARENA_CHAMPION",
		Name:        "Arena Champion",
		Description: "Won 5 tournaments",
		Rarity:      RarityLegendary,
		Threshold:   map[string]int64{"tournaments_won": 5},
	},
}
