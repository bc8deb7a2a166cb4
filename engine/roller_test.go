package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena-system/models"
)

func rarityFrequencies(t *testing.T, ctx RollContext, draws int) map[models.Rarity]float64 {
	t.Helper()
	roller := NewRewardRoller(rand.New(rand.NewSource(42)))
	counts := map[models.Rarity]int{}
	for i := 0; i < draws; i++ {
		counts[roller.RollRarity(ctx)]++
	}
	freqs := map[models.Rarity]float64{}
	for r, c := range counts {
		freqs[r] = float64(c) / float64(draws)
	}
	return freqs
}

func TestRollRarityBaseDistribution(t *testing.T) {
	freqs := rarityFrequencies(t, RollContext{}, 100_000)

	assert.InDelta(t, 0.70, freqs[models.RarityCommon], 0.01)
	assert.InDelta(t, 0.25, freqs[models.RarityRare], 0.01)
	assert.InDelta(t, 0.045, freqs[models.RarityEpic], 0.005)
	assert.Greater(t, freqs[models.RarityLegendary], 0.003)
	assert.Less(t, freqs[models.RarityLegendary], 0.008)
}

func TestRollRarityLegendaryTierBoost(t *testing.T) {
	base := rarityFrequencies(t, RollContext{}, 100_000)
	boosted := rarityFrequencies(t, RollContext{LegendaryTier: true}, 100_000)

	assert.Greater(t, boosted[models.RarityLegendary], 3*base[models.RarityLegendary])
	assert.Greater(t, boosted[models.RarityEpic], base[models.RarityEpic])
}

func TestRollRarityPerfectScoreBoost(t *testing.T) {
	freqs := rarityFrequencies(t, RollContext{PerfectScore: true}, 100_000)
	// legendary .05 / epic .135 over a 1.135 total
	assert.InDelta(t, 0.044, freqs[models.RarityLegendary], 0.006)
	assert.InDelta(t, 0.119, freqs[models.RarityEpic], 0.008)
}

func TestRollRaritySeededReproducibility(t *testing.T) {
	a := NewRewardRoller(rand.New(rand.NewSource(7)))
	b := NewRewardRoller(rand.New(rand.NewSource(7)))
	for i := 0; i < 1000; i++ {
		assert.Equal(t, a.RollRarity(RollContext{}), b.RollRarity(RollContext{}))
	}
}

func TestRollCategoryScenarioBias(t *testing.T) {
	roller := NewRewardRoller(rand.New(rand.NewSource(1)))
	ctx := RollContext{ScenarioCategory: models.ScenarioDebugging}
	for i := 0; i < 500; i++ {
		cat := roller.RollCategory(models.RarityCommon, ctx)
		assert.Contains(t, []models.ChipCategory{models.CategoryLogic, models.CategoryProcessing}, cat)
	}
}

func TestRollCategoryLegendarySkew(t *testing.T) {
	roller := NewRewardRoller(rand.New(rand.NewSource(2)))
	for i := 0; i < 500; i++ {
		cat := roller.RollCategory(models.RarityLegendary, RollContext{})
		assert.Contains(t, []models.ChipCategory{models.CategorySpecial, models.CategorySynergy}, cat)
	}
}

func TestGenerateChip(t *testing.T) {
	roller := NewRewardRoller(rand.New(rand.NewSource(3)))
	chip := roller.GenerateChip(RollContext{ExternalUserID: "user-1", TournamentID: "t-1"})

	require.NotNil(t, chip)
	assert.NotEmpty(t, chip.ID)
	assert.Equal(t, "user-1", chip.ExternalUserID)
	assert.NotEmpty(t, chip.Name)
	assert.NotEmpty(t, chip.TypeID)
	assert.GreaterOrEqual(t, chip.Rarity.Rank(), 0)
	require.NotEmpty(t, chip.Effects)
	assert.Greater(t, chip.Effects[0].Value, 0.0)
}
