package engine

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"agent-arena-system/models"
)

// RollContext carries the modifiers active for one drop.
type RollContext struct {
	ExternalUserID string
	TournamentID   string

	LegendaryTier bool // legendary-tier tournament: legendary ×5, epic ×2
	PerfectScore  bool // perfect score: legendary ×10, epic ×3
	FirstWin      bool // first win: rare ×2, epic ×1.5

	// When set, restricts the category draw to the scenario's preferred set.
	ScenarioCategory models.ScenarioCategory
}

var baseRarityWeights = map[models.Rarity]float64{
	models.RarityCommon:    0.70,
	models.RarityRare:      0.25,
	models.RarityEpic:      0.045,
	models.RarityLegendary: 0.005,
}

// scenarioCategoryBias: preferred chip categories per scenario category.
var scenarioCategoryBias = map[models.ScenarioCategory][]models.ChipCategory{
	models.ScenarioDebugging:    {models.CategoryLogic, models.CategoryProcessing},
	models.ScenarioOptimization: {models.CategoryProcessing, models.CategoryMemory},
	models.ScenarioGeneration:   {models.CategorySynergy, models.CategorySpecial},
	models.ScenarioAnalysis:     {models.CategoryLogic, models.CategoryMemory},
}

// chipTypeNames is the drop catalog, keyed by category.
var chipTypeNames = map[models.ChipCategory][]string{
	models.CategoryProcessing: {"Parallel Reasoning", "Fast Inference", "Token Streamline", "Batch Thinker"},
	models.CategoryLogic:      {"Deductive Core", "Constraint Solver", "Edge Case Radar", "Proof Sketcher"},
	models.CategoryMemory:     {"Context Cache", "Long Recall", "Working Set Boost", "Snapshot Vault"},
	models.CategorySynergy:    {"Team Resonance", "Skill Weaver", "Chain Amplifier", "Harmonic Link"},
	models.CategorySpecial:    {"Wildcard Protocol", "Glitch Harvester", "Quantum Hunch", "Override Key"},
}

// RewardRoller performs weighted-random chip drops. Never returns an error:
// every roll produces a valid chip. Safe for concurrent use.
type RewardRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRewardRoller wraps the given source. Pass a seeded source in tests for
// reproducible draws; nil falls back to a time-seeded one.
func NewRewardRoller(rng *rand.Rand) *RewardRoller {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &RewardRoller{rng: rng}
}

func (r *RewardRoller) roll() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *RewardRoller) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// RollRarity draws a rarity: base weights, multiplicative context modifiers,
// renormalize, then a cumulative scan in the fixed order common→legendary so
// tie-breaking and float edge cases stay reproducible. A cumulative sum that
// never reaches the roll value defaults to common.
func (r *RewardRoller) RollRarity(ctx RollContext) models.Rarity {
	weights := make(map[models.Rarity]float64, len(baseRarityWeights))
	for k, v := range baseRarityWeights {
		weights[k] = v
	}
	if ctx.LegendaryTier {
		weights[models.RarityLegendary] *= 5
		weights[models.RarityEpic] *= 2
	}
	if ctx.PerfectScore {
		weights[models.RarityLegendary] *= 10
		weights[models.RarityEpic] *= 3
	}
	if ctx.FirstWin {
		weights[models.RarityRare] *= 2
		weights[models.RarityEpic] *= 1.5
	}

	var total float64
	for _, v := range weights {
		total += v
	}

	draw := r.roll()
	var cum float64
	for _, rarity := range models.RarityOrder {
		cum += weights[rarity] / total
		if draw < cum {
			return rarity
		}
	}
	return models.RarityCommon
}

// RollCategory draws a chip category. Scenario context restricts the draw to
// the scenario's preferred subset; legendary rarity biases 50/50 toward
// special and synergy; otherwise uniform over the five categories.
func (r *RewardRoller) RollCategory(rarity models.Rarity, ctx RollContext) models.ChipCategory {
	if ctx.ScenarioCategory != "" {
		if preferred, ok := scenarioCategoryBias[ctx.ScenarioCategory]; ok {
			return preferred[r.intn(len(preferred))]
		}
	}
	if rarity == models.RarityLegendary {
		if r.roll() < 0.5 {
			return models.CategorySpecial
		}
		return models.CategorySynergy
	}
	return models.AllCategories[r.intn(len(models.AllCategories))]
}

// RollChipType picks a concrete chip type from the catalog and returns its
// display name and slug id.
func (r *RewardRoller) RollChipType(category models.ChipCategory, rarity models.Rarity) (name, typeID string) {
	names := chipTypeNames[category]
	name = names[r.intn(len(names))]
	return name, slug.Make(name)
}

// GenerateChip rolls a complete chip for the context. Effect values scale
// with rarity rank.
func (r *RewardRoller) GenerateChip(ctx RollContext) *models.SkillChip {
	rarity := r.RollRarity(ctx)
	category := r.RollCategory(rarity, ctx)
	name, typeID := r.RollChipType(category, rarity)

	boost := float64(rarity.Rank()+1) * (1.0 + r.roll())
	chip := &models.SkillChip{
		ID:             uuid.NewString(),
		ExternalUserID: ctx.ExternalUserID,
		TypeID:         typeID,
		Name:           name,
		Category:       category,
		Rarity:         rarity,
		Effects: []models.ChipEffect{
			{Name: string(category) + "_boost", Value: boost},
		},
	}
	if rarity.Rank() >= models.RarityEpic.Rank() {
		chip.Effects = append(chip.Effects, models.ChipEffect{
			Name:  "confidence_bonus",
			Value: 0.05 * float64(rarity.Rank()),
		})
	}
	return chip
}
