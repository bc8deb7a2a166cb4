// services/reward_service.go
package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"agent-arena-system/engine"
	"agent-arena-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RewardService struct {
	DB          *gorm.DB
	Progression *ProgressionService
}

func NewRewardService(db *gorm.DB, progression *ProgressionService) *RewardService {
	return &RewardService{DB: db, Progression: progression}
}

var _ engine.RewardSink = (*RewardService)(nil)

// Deliver persists a rolled placement chip and its reward row in one
// transaction, then bumps the owner's collection counters. Implements the
// sink the orchestrator pushes tournament rewards into.
func (s *RewardService) Deliver(ctx context.Context, externalUserID, tournamentID, placement string, chip *models.SkillChip) error {
	now := time.Now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chip).Error; err != nil {
			return err
		}
		reward := models.Reward{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			TournamentID:   tournamentID,
			ChipID:         chip.ID,
			Placement:      placement,
			Status:         models.RewardStatusDelivered,
			DeliveredAt:    &now,
		}
		return tx.Create(&reward).Error
	})
	if err != nil {
		return err
	}

	if err := s.Progression.Bump(externalUserID, "chips_collected", 1); err != nil {
		log.Printf("[Rewards] counter bump failed for %s: %v", externalUserID, err)
	}
	if _, err := s.Progression.AwardXP(externalUserID, DefaultXPWeights.ChipXP, "chip_"+string(chip.Rarity)); err != nil {
		log.Printf("[Rewards] XP award failed for %s: %v", externalUserID, err)
	}
	log.Printf("🎁 Reward delivered: %s chip %q → %s (%s)", chip.Rarity, chip.Name, externalUserID, placement)
	return nil
}

// --- User Handlers ---

// GetUserRewards fetches rewards for the *authenticated* user based on filters
func (s *RewardService) GetUserRewards(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User ID not found in context"})
	}

	limitStr := c.Query("limit")     // e.g., limit=10
	claimedStr := c.Query("claimed") // e.g., claimed=all (default), claimed=true, claimed=false

	var limit *int
	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		limit = &l
	}

	var claimedFilter *bool
	switch strings.ToLower(claimedStr) {
	case "true":
		claimed := true
		claimedFilter = &claimed
	case "false":
		claimed := false
		claimedFilter = &claimed
		// Default ("all" or not provided) means no filter on claimed status
	}

	query := s.DB.Where("external_user_id = ?", userID)
	if claimedFilter != nil {
		query = query.Where("claimed = ?", *claimedFilter)
	}

	var rewards []models.Reward
	dbQuery := query.Order("created_at DESC")
	if limit != nil {
		dbQuery = dbQuery.Limit(*limit)
	}
	if err := dbQuery.Find(&rewards).Error; err != nil {
		log.Printf("DB Error fetching user rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}

	return c.JSON(rewards)
}

// GetUserRewardCountsEndpoint returns total and unviewed reward counts for the
// authenticated user. This is the endpoint clients poll for the badge counter.
func (s *RewardService) GetUserRewardCountsEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	baseQuery := s.DB.Model(&models.Reward{}).
		Where("external_user_id = ?", userID).
		Where("status = ?", models.RewardStatusDelivered)

	var totalCount int64
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		log.Printf("DB Error counting total rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "DB error counting total rewards"})
	}

	var unviewedCount int64
	if err := baseQuery.
		Where("viewed = ?", false).
		Count(&unviewedCount).Error; err != nil {
		log.Printf("DB Error counting unviewed rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "DB error counting unviewed rewards"})
	}

	var unclaimedCount int64
	if err := baseQuery.
		Where("claimed = ?", false).
		Count(&unclaimedCount).Error; err != nil {
		log.Printf("DB Error counting unclaimed rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "DB error counting unclaimed rewards"})
	}

	return c.JSON(fiber.Map{
		"total_count":     totalCount,
		"unviewed_count":  unviewedCount,
		"unclaimed_count": unclaimedCount,
	})
}

// ClaimReward handles the claiming of a reward by the user
func (s *RewardService) ClaimReward(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	rewardID := c.Params("id")

	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	var reward models.Reward
	if err := s.DB.Where("id = ? AND external_user_id = ?", rewardID, userID).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found or not owned by user"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if reward.Claimed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Reward already claimed"})
	}
	if reward.Status != models.RewardStatusDelivered {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Reward is not available for claiming"})
	}

	reward.Claimed = true
	if err := s.DB.Save(&reward).Error; err != nil {
		log.Printf("DB Error claiming reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to claim reward"})
	}

	return c.JSON(fiber.Map{"message": "Reward claimed successfully", "reward": reward})
}

// MarkRewardAsViewed marks a single reward as viewed (idempotent)
func (s *RewardService) MarkRewardAsViewed(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	rewardID := c.Params("id")

	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	var reward models.Reward
	if err := s.DB.Where("id = ? AND external_user_id = ?", rewardID, userID).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found or not owned"})
		}
		log.Printf("DB error fetching reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !reward.Viewed {
		reward.Viewed = true
		if err := s.DB.Save(&reward).Error; err != nil {
			log.Printf("Failed to update viewed status: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as viewed"})
		}
	}

	return c.JSON(fiber.Map{"message": "OK", "reward_id": reward.ID, "viewed": true})
}

// MarkAllRewardsAsViewed marks *all* rewards for the user as viewed
func (s *RewardService) MarkAllRewardsAsViewed(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	result := s.DB.Model(&models.Reward{}).
		Where("external_user_id = ? AND viewed = ?", userID, false).
		Update("viewed", true)

	if result.Error != nil {
		log.Printf("Bulk mark viewed failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update rewards"})
	}

	return c.JSON(fiber.Map{
		"message":      "OK",
		"marked_count": result.RowsAffected,
	})
}
