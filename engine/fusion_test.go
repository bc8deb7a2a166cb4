package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena-system/models"
)

// fakeChipStore keeps chips in a map and applies Replace as one unit.
type fakeChipStore struct {
	mu    sync.Mutex
	chips map[string]*models.SkillChip
}

func newFakeChipStore(chips ...*models.SkillChip) *fakeChipStore {
	s := &fakeChipStore{chips: map[string]*models.SkillChip{}}
	for _, c := range chips {
		s.chips[c.ID] = c
	}
	return s
}

func (s *fakeChipStore) GetChip(_ context.Context, id string) (*models.SkillChip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chips[id]
	if !ok {
		return nil, fmt.Errorf("chip %s not found", id)
	}
	return c, nil
}

func (s *fakeChipStore) SaveChip(_ context.Context, chip *models.SkillChip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chips[chip.ID] = chip
	return nil
}

func (s *fakeChipStore) Replace(_ context.Context, removeA, removeB string, add *models.SkillChip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chips, removeA)
	delete(s.chips, removeB)
	s.chips[add.ID] = add
	return nil
}

func chip(id string, cat models.ChipCategory, rarity models.Rarity) *models.SkillChip {
	return &models.SkillChip{
		ID:             id,
		ExternalUserID: "user-1",
		Name:           "Chip " + id,
		Category:       cat,
		Rarity:         rarity,
		Effects:        []models.ChipEffect{{Name: string(cat) + "_boost", Value: 1}},
	}
}

func TestFuseUpgradesRarity(t *testing.T) {
	a := chip("a", models.CategoryProcessing, models.RarityEpic)
	b := chip("b", models.CategoryLogic, models.RarityEpic)
	store := newFakeChipStore(a, b)
	eng := NewChipFusionEngine(store)

	fused, err := eng.Fuse(context.Background(), a, b)
	require.NoError(t, err)

	assert.Equal(t, models.RarityLegendary, fused.Rarity)
	assert.Equal(t, models.CategorySynergy, fused.Category)
	assert.True(t, fused.Fused)
	assert.ElementsMatch(t, []string{"a", "b"}, fused.FusedFrom)
	assert.Len(t, fused.Effects, 2, "effects concatenate without dedup")

	// Sources consumed, result present.
	_, err = store.GetChip(context.Background(), "a")
	assert.Error(t, err)
	_, err = store.GetChip(context.Background(), "b")
	assert.Error(t, err)
	got, err := store.GetChip(context.Background(), fused.ID)
	require.NoError(t, err)
	assert.Equal(t, fused.Name, got.Name)
}

func TestFuseLegendaryCeiling(t *testing.T) {
	a := chip("a", models.CategorySynergy, models.RarityLegendary)
	b := chip("b", models.CategorySpecial, models.RarityLegendary)
	eng := NewChipFusionEngine(newFakeChipStore(a, b))

	fused, err := eng.Fuse(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, models.RarityLegendary, fused.Rarity)
}

func TestFuseRejectsRarityMismatch(t *testing.T) {
	a := chip("a", models.CategoryProcessing, models.RarityCommon)
	b := chip("b", models.CategoryLogic, models.RarityRare)
	store := newFakeChipStore(a, b)
	eng := NewChipFusionEngine(store)

	_, err := eng.Fuse(context.Background(), a, b)
	var fe *FusionError
	require.ErrorAs(t, err, &fe)

	// Both inputs survive a rejected fusion.
	_, err = store.GetChip(context.Background(), "a")
	assert.NoError(t, err)
	_, err = store.GetChip(context.Background(), "b")
	assert.NoError(t, err)
}

func TestFuseRejectsIncompatibleCategories(t *testing.T) {
	// processing/special is not a linked pair.
	a := chip("a", models.CategoryProcessing, models.RarityRare)
	b := chip("b", models.CategorySpecial, models.RarityRare)
	eng := NewChipFusionEngine(newFakeChipStore(a, b))

	assert.False(t, eng.CanFuse(a, b))
	_, err := eng.Fuse(context.Background(), a, b)
	var fe *FusionError
	assert.ErrorAs(t, err, &fe)
}

func TestFuseRejectsSelfAndCrossOwner(t *testing.T) {
	a := chip("a", models.CategoryProcessing, models.RarityRare)
	other := chip("b", models.CategoryLogic, models.RarityRare)
	other.ExternalUserID = "user-2"
	eng := NewChipFusionEngine(newFakeChipStore(a, other))

	_, err := eng.Fuse(context.Background(), a, a)
	assert.Error(t, err)
	_, err = eng.Fuse(context.Background(), a, other)
	assert.Error(t, err)
}

func TestFuseByIDMissingChip(t *testing.T) {
	a := chip("a", models.CategoryProcessing, models.RarityRare)
	eng := NewChipFusionEngine(newFakeChipStore(a))

	_, err := eng.FuseByID(context.Background(), "a", "ghost")
	require.Error(t, err)
	var fe *FusionError
	assert.False(t, errors.As(err, &fe), "missing chip surfaces as the store error, not a FusionError")
}
