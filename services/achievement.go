package services

import (
	"fmt"

	"agent-arena-system/models"

	"gorm.io/gorm"
)

type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// SeedAchievements upserts the static achievement catalog on boot (idempotent).
func (s *AchievementService) SeedAchievements() error {
	for _, trigger := range models.AchievementTriggers {
		var existing models.AchievementType
		err := s.DB.Where("code = ?", trigger.Code).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := s.DB.Create(&trigger).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// AutoAward checks all achievement triggers for a user after a progress update
func (s *AchievementService) AutoAward(externalUserID string) error {
	var prog models.UserProgress
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return err
	}

	var types []models.AchievementType
	if err := s.DB.Find(&types).Error; err != nil {
		return err
	}

	for _, t := range types {
		if !s.meetsThreshold(&prog, t.Threshold) {
			continue
		}
		var count int64
		s.DB.Model(&models.UserAchievement{}).
			Where("external_user_id = ? AND achievement_type_id = ?", externalUserID, t.ID).
			Count(&count)
		if count == 0 {
			award := models.UserAchievement{
				ExternalUserID:    externalUserID,
				AchievementTypeID: t.ID,
			}
			if err := s.DB.Create(&award).Error; err != nil {
				return err
			}
			fmt.Printf("🎖️ Achievement awarded: %s → %s\n", t.Name, externalUserID)
		}
	}
	return nil
}

func (s *AchievementService) meetsThreshold(prog *models.UserProgress, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "agents_created":
			if prog.AgentsCreated < required {
				return false
			}
		case "chips_collected":
			if prog.ChipsCollected < required {
				return false
			}
		case "chips_fused":
			if prog.ChipsFused < required {
				return false
			}
		case "total_matches":
			if prog.TotalMatches < required {
				return false
			}
		case "tournaments_won":
			if prog.TournamentsWon < required {
				return false
			}
		case "level":
			if int64(prog.Level) < required {
				return false
			}
		case "rank":
			if int64(prog.Rank) < required {
				return false
			}
		}
	}
	return true
}

// ListUserAchievements returns awarded achievements joined with their catalog
// entries, newest first.
func (s *AchievementService) ListUserAchievements(externalUserID string) ([]map[string]interface{}, error) {
	var awards []models.UserAchievement
	if err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("awarded_at DESC").
		Find(&awards).Error; err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(awards))
	for _, a := range awards {
		var t models.AchievementType
		if err := s.DB.First(&t, "id = ?", a.AchievementTypeID).Error; err != nil {
			continue
		}
		out = append(out, map[string]interface{}{
			"id":          a.ID,
			"code":        t.Code,
			"name":        t.Name,
			"description": t.Description,
			"rarity":      t.Rarity,
			"awarded_at":  a.AwardedAt,
		})
	}
	return out, nil
}
