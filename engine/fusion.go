package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"agent-arena-system/models"
)

// ChipStore is the persistence surface the fusion engine needs. Replace must
// remove both sources and add the fused chip as one unit so a crash cannot
// leave the sources deleted without the result present.
type ChipStore interface {
	GetChip(ctx context.Context, id string) (*models.SkillChip, error)
	SaveChip(ctx context.Context, chip *models.SkillChip) error
	// Replace deletes removeA and removeB and inserts add atomically.
	Replace(ctx context.Context, removeA, removeB string, add *models.SkillChip) error
}

// fusionPairs is the symmetric category compatibility table. Both orders of a
// pair are checked, so each link is listed once.
var fusionPairs = [][2]models.ChipCategory{
	{models.CategoryProcessing, models.CategoryLogic},
	{models.CategoryProcessing, models.CategoryMemory},
	{models.CategoryLogic, models.CategoryMemory},
	{models.CategoryLogic, models.CategorySynergy},
	{models.CategoryMemory, models.CategorySynergy},
	{models.CategoryProcessing, models.CategorySynergy},
	{models.CategorySynergy, models.CategorySpecial},
}

func categoriesCompatible(a, b models.ChipCategory) bool {
	for _, pair := range fusionPairs {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true
		}
	}
	return false
}

// ChipFusionEngine combines two owned chips into one upgraded chip.
type ChipFusionEngine struct {
	chips ChipStore
}

func NewChipFusionEngine(chips ChipStore) *ChipFusionEngine {
	return &ChipFusionEngine{chips: chips}
}

// CanFuse reports whether two chips are fusable: equal rarity and a linked
// category pair.
func (e *ChipFusionEngine) CanFuse(a, b *models.SkillChip) bool {
	if a == nil || b == nil || a.ID == b.ID {
		return false
	}
	if a.Rarity != b.Rarity {
		return false
	}
	return categoriesCompatible(a.Category, b.Category)
}

// Fuse consumes both chips and produces one of the next rarity up (legendary
// caps at legendary). The result's category is always synergy and its effects
// are the concatenation of both inputs' effects; duplicates stack on purpose.
// Fails with FusionError without touching the collection when CanFuse is false.
func (e *ChipFusionEngine) Fuse(ctx context.Context, a, b *models.SkillChip) (*models.SkillChip, error) {
	if a == nil || b == nil {
		return nil, &FusionError{Reason: "both chips required"}
	}
	if a.ID == b.ID {
		return nil, &FusionError{Reason: "cannot fuse a chip with itself"}
	}
	if a.ExternalUserID != b.ExternalUserID {
		return nil, &FusionError{Reason: "chips belong to different owners"}
	}
	if a.Rarity != b.Rarity {
		return nil, &FusionError{Reason: "rarity mismatch"}
	}
	if !categoriesCompatible(a.Category, b.Category) {
		return nil, &FusionError{Reason: "incompatible categories " + string(a.Category) + "/" + string(b.Category)}
	}

	name := a.Name + " × " + b.Name
	effects := make([]models.ChipEffect, 0, len(a.Effects)+len(b.Effects))
	effects = append(effects, a.Effects...)
	effects = append(effects, b.Effects...)

	fused := &models.SkillChip{
		ID:             uuid.NewString(),
		ExternalUserID: a.ExternalUserID,
		TypeID:         slug.Make(name),
		Name:           name,
		Category:       models.CategorySynergy,
		Rarity:         a.Rarity.Next(),
		Effects:        effects,
		Fused:          true,
		FusedFrom:      []string{a.ID, b.ID},
	}

	if err := e.chips.Replace(ctx, a.ID, b.ID, fused); err != nil {
		return nil, err
	}
	return fused, nil
}

// FuseByID loads both chips and fuses them. Missing chips surface as the
// store's not-found error, not a FusionError.
func (e *ChipFusionEngine) FuseByID(ctx context.Context, idA, idB string) (*models.SkillChip, error) {
	a, err := e.chips.GetChip(ctx, idA)
	if err != nil {
		return nil, err
	}
	b, err := e.chips.GetChip(ctx, idB)
	if err != nil {
		return nil, err
	}
	return e.Fuse(ctx, a, b)
}
