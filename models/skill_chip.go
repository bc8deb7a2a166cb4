package models

import "time"

// Rarity is the ordered drop classification: common < rare < epic < legendary.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// RarityOrder lists rarities from most to least frequent. Weighted draws and
// fusion upgrades iterate in this exact order so results are reproducible.
var RarityOrder = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

// Rank returns the position of r on the ordered scale, -1 for unknown values.
func (r Rarity) Rank() int {
	for i, v := range RarityOrder {
		if v == r {
			return i
		}
	}
	return -1
}

// Next returns the rarity one step up the scale. Legendary stays legendary.
func (r Rarity) Next() Rarity {
	i := r.Rank()
	if i < 0 || i >= len(RarityOrder)-1 {
		return RarityLegendary
	}
	return RarityOrder[i+1]
}

// ChipCategory groups chips by the capability they boost.
type ChipCategory string

const (
	CategoryProcessing ChipCategory = "processing"
	CategoryLogic      ChipCategory = "logic"
	CategoryMemory     ChipCategory = "memory"
	CategorySynergy    ChipCategory = "synergy"
	CategorySpecial    ChipCategory = "special"
)

// AllCategories in fixed draw order.
var AllCategories = []ChipCategory{
	CategoryProcessing, CategoryLogic, CategoryMemory, CategorySynergy, CategorySpecial,
}

// ChipEffect is one named numeric boost carried by a chip. Fusion concatenates
// effect lists without deduplication; stacking the same effect is intentional.
type ChipEffect struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// SkillChip is a collectible reward item owned by a user.
type SkillChip struct {
	ID             string       `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string       `gorm:"index;not null" json:"external_user_id"`
	TypeID         string       `gorm:"index;not null" json:"type_id"` // slug, e.g. "parallel-reasoning"
	Name           string       `gorm:"not null" json:"name"`
	Category       ChipCategory `gorm:"type:varchar(16);index;not null" json:"category"`
	Rarity         Rarity       `gorm:"type:varchar(16);index;not null" json:"rarity"`
	Effects        []ChipEffect `gorm:"serializer:json" json:"effects"`

	AcquiredAt time.Time `json:"acquired_at" gorm:"autoCreateTime"`
	Fused      bool      `json:"fused" gorm:"default:false"`
	// Provenance only; source rows are deleted when consumed by fusion.
	FusedFrom []string `gorm:"serializer:json" json:"fused_from,omitempty"`

	Timestamps
}
