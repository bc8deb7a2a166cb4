package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"agent-arena-system/models"
	"agent-arena-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExportService struct {
	DB          *gorm.DB
	Achievement *AchievementService
}

func NewExportService(db *gorm.DB, achievement *AchievementService) *ExportService {
	return &ExportService{DB: db, Achievement: achievement}
}

const exportBundleVersion = 1

// exportData collections are keyed by the persistence collection names so
// bundles stay interoperable with other consumers of the same store.
type exportData struct {
	Agents       []models.Agent           `json:"agents"`
	SkillChips   []models.SkillChip       `json:"skillChips"`
	Users        []models.UserProgress    `json:"users,omitempty"`
	Achievements []map[string]interface{} `json:"achievements,omitempty"`
}

type exportBundle struct {
	Version   int        `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	Data      exportData `json:"data"`
}

func (s *ExportService) buildBundle(userID string) (*exportBundle, error) {
	bundle := &exportBundle{
		Version:   exportBundleVersion,
		Timestamp: time.Now().UTC(),
	}

	if err := s.DB.Where("external_user_id = ?", userID).
		Order("created_at ASC").
		Find(&bundle.Data.Agents).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("acquired_at ASC").
		Find(&bundle.Data.SkillChips).Error; err != nil {
		return nil, err
	}

	var prog models.UserProgress
	if err := s.DB.Where("external_user_id = ?", userID).First(&prog).Error; err == nil {
		bundle.Data.Users = []models.UserProgress{prog}
	}

	if awards, err := s.Achievement.ListUserAchievements(userID); err == nil {
		bundle.Data.Achievements = awards
	}
	return bundle, nil
}

// ExportUserData returns the caller's full collection as a portable JSON
// bundle (agents, chips, progress, achievements).
func (s *ExportService) ExportUserData(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	bundle, err := s.buildBundle(userID)
	if err != nil {
		log.Printf("DB Error building export for %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to build export"})
	}
	return c.JSON(bundle)
}

// ArchiveUserData builds the export bundle and uploads it to R2, returning
// the archive URL.
func (s *ExportService) ArchiveUserData(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	bundle, err := s.buildBundle(userID)
	if err != nil {
		log.Printf("DB Error building export for %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to build export"})
	}

	payload, err := json.Marshal(bundle)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to encode export"})
	}

	key := fmt.Sprintf("exports/%s/%s.json", userID, time.Now().UTC().Format("2006-01-02T15-04-05"))
	url, err := utils.UploadBytesToR2(payload, key, "application/json")
	if err != nil {
		log.Printf("R2 upload failed for %s: %v", userID, err)
		return c.Status(502).JSON(fiber.Map{"error": "archive upload failed"})
	}

	log.Printf("📦 Export archived for %s → %s", userID, url)
	return c.JSON(fiber.Map{"url": url, "size_bytes": len(payload)})
}

// sanitizeImportedAgent rebinds a bundle agent to the importing user. The
// exported id is preserved so repeated round trips keep the collection
// stable; a fresh id is minted only when taken reports a conflict.
func sanitizeImportedAgent(agent models.Agent, userID string, taken func(string) bool) (models.Agent, error) {
	if agent.Name == "" {
		return agent, fmt.Errorf("agent %s: name is required", agent.ID)
	}
	if agent.ID == "" || (taken != nil && taken(agent.ID)) {
		agent.ID = uuid.NewString()
	}
	agent.ExternalUserID = userID
	agent.MatchesPlayed = 0
	agent.MatchesWon = 0
	return agent, nil
}

// sanitizeImportedChip validates a bundle chip and rebinds it to the
// importing user, preserving the exported id unless taken reports a conflict.
func sanitizeImportedChip(chip models.SkillChip, userID string, taken func(string) bool) (models.SkillChip, error) {
	if chip.Name == "" && chip.TypeID != "" {
		chip.Name = utils.DisplayNameFromSlug(chip.TypeID)
	}
	if chip.Name == "" {
		return chip, fmt.Errorf("chip %s: name is required", chip.ID)
	}
	if chip.Rarity.Rank() < 0 {
		return chip, fmt.Errorf("chip %s: unknown rarity %q", chip.ID, chip.Rarity)
	}
	if chip.ID == "" || (taken != nil && taken(chip.ID)) {
		chip.ID = uuid.NewString()
	}
	chip.ExternalUserID = userID
	return chip, nil
}

// ImportUserData restores agents and chips from a bundle. Each item is put
// best effort: a bad row is reported in the response, never fatal. Exported
// ids survive the trip, so importing into an empty collection reproduces the
// same id set. Progress and achievements are never imported, they stay
// earned-only.
func (s *ExportService) ImportUserData(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var bundle exportBundle
	if err := c.BodyParser(&bundle); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid bundle JSON", "details": err.Error()})
	}
	if bundle.Version != exportBundleVersion {
		return c.Status(400).JSON(fiber.Map{"error": fmt.Sprintf("unsupported bundle version %d", bundle.Version)})
	}

	agentTaken := func(id string) bool {
		var n int64
		s.DB.Model(&models.Agent{}).Where("id = ?", id).Count(&n)
		return n > 0
	}
	chipTaken := func(id string) bool {
		var n int64
		s.DB.Model(&models.SkillChip{}).Where("id = ?", id).Count(&n)
		return n > 0
	}

	var imported int
	importErrors := []string{}
	for _, raw := range bundle.Data.Agents {
		agent, err := sanitizeImportedAgent(raw, userID, agentTaken)
		if err != nil {
			importErrors = append(importErrors, err.Error())
			continue
		}
		if err := s.DB.Create(&agent).Error; err != nil {
			log.Printf("[Export] agent %q failed on import: %v", agent.Name, err)
			importErrors = append(importErrors, fmt.Sprintf("agent %s: %v", agent.ID, err))
			continue
		}
		imported++
	}
	for _, raw := range bundle.Data.SkillChips {
		chip, err := sanitizeImportedChip(raw, userID, chipTaken)
		if err != nil {
			importErrors = append(importErrors, err.Error())
			continue
		}
		if err := s.DB.Create(&chip).Error; err != nil {
			log.Printf("[Export] chip %q failed on import: %v", chip.Name, err)
			importErrors = append(importErrors, fmt.Sprintf("chip %s: %v", chip.ID, err))
			continue
		}
		imported++
	}

	return c.JSON(fiber.Map{
		"message":  "import finished",
		"imported": imported,
		"errors":   importErrors,
	})
}
