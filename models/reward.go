package models

import "time"

// RewardStatus indicates the delivery status of a reward entry
type RewardStatus string

const (
	RewardStatusPending   RewardStatus = "pending"
	RewardStatusDelivered RewardStatus = "delivered"
)

// Reward is one delivered placement reward: a chip granted to a user for a
// tournament result. Kept as its own row so the UI can poll counts and mark
// viewed/claimed independently of the chip collection.
type Reward struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	TournamentID   string `gorm:"index" json:"tournament_id"`
	ChipID         string `gorm:"index" json:"chip_id"`
	Placement      string `gorm:"type:varchar(16)" json:"placement"` // winner, finalist, participant

	Status  RewardStatus `gorm:"type:varchar(16);default:'pending'" json:"status"`
	Claimed bool         `gorm:"default:false" json:"claimed"`
	Viewed  bool         `gorm:"default:false;index" json:"viewed"`

	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	Timestamps
}
