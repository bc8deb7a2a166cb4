package services

import (
	"errors"
	"log"

	"agent-arena-system/engine"
	"agent-arena-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ChipService struct {
	DB          *gorm.DB
	Fusion      *engine.ChipFusionEngine
	Progression *ProgressionService
}

func NewChipService(db *gorm.DB, fusion *engine.ChipFusionEngine, progression *ProgressionService) *ChipService {
	return &ChipService{DB: db, Fusion: fusion, Progression: progression}
}

// GetUserChips lists the caller's collection, optionally filtered by rarity
// and category.
func (s *ChipService) GetUserChips(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	query := s.DB.Where("external_user_id = ?", userID)
	if rarity := c.Query("rarity"); rarity != "" {
		if models.Rarity(rarity).Rank() < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "invalid rarity filter"})
		}
		query = query.Where("rarity = ?", rarity)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var chips []models.SkillChip
	if err := query.Order("acquired_at DESC").Find(&chips).Error; err != nil {
		log.Printf("ERROR fetching chips: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch chips"})
	}
	return c.JSON(chips)
}

// GetChipByID returns one owned chip.
func (s *ChipService) GetChipByID(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var chip models.SkillChip
	if err := s.DB.Where("id = ? AND external_user_id = ?", c.Params("id"), userID).
		First(&chip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "chip not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(chip)
}

// GetChipCounts returns per-rarity collection totals for the badge UI.
func (s *ChipService) GetChipCounts(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	type row struct {
		Rarity models.Rarity
		Count  int64
	}
	var rows []row
	if err := s.DB.Model(&models.SkillChip{}).
		Select("rarity, count(*) as count").
		Where("external_user_id = ?", userID).
		Group("rarity").
		Scan(&rows).Error; err != nil {
		log.Printf("DB Error counting chips: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to count chips"})
	}

	counts := fiber.Map{}
	var total int64
	for _, r := range models.RarityOrder {
		counts[string(r)] = int64(0)
	}
	for _, r := range rows {
		counts[string(r.Rarity)] = r.Count
		total += r.Count
	}
	counts["total"] = total
	return c.JSON(counts)
}

// FuseChips consumes two owned chips and returns the upgraded result.
func (s *ChipService) FuseChips(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	type Req struct {
		ChipAID string `json:"chip_a_id" validate:"required"`
		ChipBID string `json:"chip_b_id" validate:"required"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.ChipAID == "" || req.ChipBID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "chip_a_id and chip_b_id required"})
	}

	// Ownership gate before the engine touches anything.
	for _, id := range []string{req.ChipAID, req.ChipBID} {
		var chip models.SkillChip
		if err := s.DB.Where("id = ? AND external_user_id = ?", id, userID).
			First(&chip).Error; err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "chip not found or not owned", "chip_id": id})
		}
	}

	fused, err := s.Fusion.FuseByID(c.Context(), req.ChipAID, req.ChipBID)
	if err != nil {
		var fe *engine.FusionError
		if errors.As(err, &fe) {
			return c.Status(409).JSON(fiber.Map{"error": fe.Reason})
		}
		log.Printf("Fusion failed for %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "fusion failed"})
	}

	if err := s.Progression.Bump(userID, "chips_fused", 1); err != nil {
		log.Printf("[Chips] counter bump failed for %s: %v", userID, err)
	}
	if _, err := s.Progression.AwardXP(userID, DefaultXPWeights.FusionXP, "chip_fusion"); err != nil {
		log.Printf("[Chips] XP award failed for %s: %v", userID, err)
	}

	log.Printf("⚡ Fusion: %s created %s (%s)", userID, fused.Name, fused.Rarity)
	return c.Status(201).JSON(fused)
}
