package services

import (
	"encoding/json"
	"testing"
	"time"

	"agent-arena-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() exportBundle {
	return exportBundle{
		Version:   exportBundleVersion,
		Timestamp: time.Now().UTC(),
		Data: exportData{
			Agents: []models.Agent{
				{ID: "agent-1", ExternalUserID: "owner-A", Name: "Scout", MatchesPlayed: 12, MatchesWon: 7},
			},
			SkillChips: []models.SkillChip{
				{ID: "chip-1", ExternalUserID: "owner-A", TypeID: "parallel-reasoning", Name: "Parallel Reasoning", Category: models.CategoryProcessing, Rarity: models.RarityRare},
				{ID: "chip-2", ExternalUserID: "owner-A", TypeID: "deductive-core", Name: "Deductive Core", Category: models.CategoryLogic, Rarity: models.RarityLegendary},
			},
		},
	}
}

func TestImportRoundTripPreservesChipIDsAndRarities(t *testing.T) {
	payload, err := json.Marshal(sampleBundle())
	require.NoError(t, err)

	var decoded exportBundle
	require.NoError(t, json.Unmarshal(payload, &decoded))

	noConflict := func(string) bool { return false }

	wantIDs := map[string]models.Rarity{}
	for _, chip := range sampleBundle().Data.SkillChips {
		wantIDs[chip.ID] = chip.Rarity
	}

	for _, raw := range decoded.Data.SkillChips {
		chip, err := sanitizeImportedChip(raw, "owner-B", noConflict)
		require.NoError(t, err)

		rarity, known := wantIDs[chip.ID]
		assert.True(t, known, "imported chip id %s must match an exported id", chip.ID)
		assert.Equal(t, rarity, chip.Rarity)
		assert.Equal(t, "owner-B", chip.ExternalUserID)
		delete(wantIDs, chip.ID)
	}
	assert.Empty(t, wantIDs, "every exported chip must come back")
}

func TestImportMintsFreshIDOnlyOnConflict(t *testing.T) {
	taken := func(id string) bool { return id == "chip-1" }

	kept, err := sanitizeImportedChip(sampleBundle().Data.SkillChips[1], "owner-B", taken)
	require.NoError(t, err)
	assert.Equal(t, "chip-2", kept.ID)

	minted, err := sanitizeImportedChip(sampleBundle().Data.SkillChips[0], "owner-B", taken)
	require.NoError(t, err)
	assert.NotEqual(t, "chip-1", minted.ID)
	assert.NotEmpty(t, minted.ID)
	assert.Equal(t, models.RarityRare, minted.Rarity)
}

func TestImportCollectsPerItemErrors(t *testing.T) {
	_, err := sanitizeImportedChip(models.SkillChip{ID: "chip-x", Name: "Mystery", Rarity: "mythic"}, "owner-B", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chip-x")

	_, err = sanitizeImportedChip(models.SkillChip{ID: "chip-y", Rarity: models.RarityCommon}, "owner-B", nil)
	require.Error(t, err)

	// A type id alone is enough: the display name is derived from it.
	chip, err := sanitizeImportedChip(models.SkillChip{ID: "chip-z", TypeID: "context-cache", Rarity: models.RarityCommon}, "owner-B", nil)
	require.NoError(t, err)
	assert.Equal(t, "Context Cache", chip.Name)
}

func TestImportedAgentResetsCountersAndKeepsID(t *testing.T) {
	agent, err := sanitizeImportedAgent(sampleBundle().Data.Agents[0], "owner-B", func(string) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, "agent-1", agent.ID)
	assert.Equal(t, "owner-B", agent.ExternalUserID)
	assert.Zero(t, agent.MatchesPlayed)
	assert.Zero(t, agent.MatchesWon)

	_, err = sanitizeImportedAgent(models.Agent{ID: "agent-2"}, "owner-B", nil)
	require.Error(t, err)
}
