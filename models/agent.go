package models

// Agent is a user-built AI agent assembled from skill nodes.
// The node graph itself is edited client-side; the backend only stores the
// assembled configuration and uses it as input to the decision provider.
type Agent struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	Name           string `gorm:"not null" json:"name"`
	Description    string `json:"description"`

	// Assembled graph config, opaque to the engine (fed to the decision provider)
	Config map[string]interface{} `gorm:"serializer:json" json:"config"`

	// Equipped chips influence decision confidence scoring
	EquippedChipIDs []string `gorm:"serializer:json" json:"equipped_chip_ids"`

	// Denormalized counters
	MatchesPlayed int64 `json:"matches_played" gorm:"default:0"`
	MatchesWon    int64 `json:"matches_won" gorm:"default:0"`

	Timestamps
}
