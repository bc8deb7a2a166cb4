package services

import (
	"errors"
	"log"
	"strings"

	"agent-arena-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AgentService struct {
	DB          *gorm.DB
	Progression *ProgressionService
}

func NewAgentService(db *gorm.DB, progression *ProgressionService) *AgentService {
	return &AgentService{DB: db, Progression: progression}
}

// CreateAgent stores a newly assembled agent for the authenticated user.
func (s *AgentService) CreateAgent(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	type Req struct {
		Name        string                 `json:"name" validate:"required"`
		Description string                 `json:"description"`
		Config      map[string]interface{} `json:"config"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	agent := models.Agent{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Name:           req.Name,
		Description:    req.Description,
		Config:         req.Config,
	}
	if err := s.DB.Create(&agent).Error; err != nil {
		log.Printf("DB Error creating agent: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create agent"})
	}

	if err := s.Progression.Bump(userID, "agents_created", 1); err != nil {
		log.Printf("[Agents] counter bump failed for %s: %v", userID, err)
	}
	if _, err := s.Progression.AwardXP(userID, DefaultXPWeights.AgentXP, "agent_created"); err != nil {
		log.Printf("[Agents] XP award failed for %s: %v", userID, err)
	}

	return c.Status(201).JSON(agent)
}

// GetUserAgents lists the authenticated user's agents, newest first.
func (s *AgentService) GetUserAgents(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var agents []models.Agent
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("created_at DESC").
		Find(&agents).Error; err != nil {
		log.Printf("ERROR fetching agents: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch agents"})
	}
	return c.JSON(agents)
}

func (s *AgentService) ownedAgent(c *fiber.Ctx) (*models.Agent, error) {
	userID := c.Locals("user_id").(string)
	var agent models.Agent
	if err := s.DB.Where("id = ? AND external_user_id = ?", c.Params("id"), userID).
		First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(404).JSON(fiber.Map{"error": "agent not found"})
		}
		return nil, c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return &agent, nil
}

func (s *AgentService) GetAgentByID(c *fiber.Ctx) error {
	agent, err := s.ownedAgent(c)
	if agent == nil {
		return err
	}
	return c.JSON(agent)
}

// UpdateAgent replaces the mutable fields of an owned agent.
func (s *AgentService) UpdateAgent(c *fiber.Ctx) error {
	agent, ferr := s.ownedAgent(c)
	if agent == nil {
		return ferr
	}

	type Req struct {
		Name        *string                 `json:"name"`
		Description *string                 `json:"description"`
		Config      *map[string]interface{} `json:"config"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.Status(400).JSON(fiber.Map{"error": "name cannot be empty"})
		}
		agent.Name = name
	}
	if req.Description != nil {
		agent.Description = *req.Description
	}
	if req.Config != nil {
		agent.Config = *req.Config
	}

	if err := s.DB.Save(agent).Error; err != nil {
		log.Printf("DB Error updating agent %s: %v", agent.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to update agent"})
	}
	return c.JSON(agent)
}

// EquipChips sets the equipped chip loadout. Every chip must exist, belong to
// the caller, and not be consumed by fusion.
func (s *AgentService) EquipChips(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	agent, ferr := s.ownedAgent(c)
	if agent == nil {
		return ferr
	}

	type Req struct {
		ChipIDs []string `json:"chip_ids"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	seen := map[string]bool{}
	for _, chipID := range req.ChipIDs {
		if seen[chipID] {
			return c.Status(400).JSON(fiber.Map{"error": "duplicate chip in loadout", "chip_id": chipID})
		}
		seen[chipID] = true

		var chip models.SkillChip
		if err := s.DB.Where("id = ? AND external_user_id = ?", chipID, userID).
			First(&chip).Error; err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "chip not found or not owned", "chip_id": chipID})
		}
	}

	agent.EquippedChipIDs = req.ChipIDs
	if err := s.DB.Save(agent).Error; err != nil {
		log.Printf("DB Error equipping chips on %s: %v", agent.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to equip chips"})
	}
	return c.JSON(agent)
}

// DeleteAgent removes an owned agent. Match history keeps its id for record
// purposes, so only the agent row goes.
func (s *AgentService) DeleteAgent(c *fiber.Ctx) error {
	agent, ferr := s.ownedAgent(c)
	if agent == nil {
		return ferr
	}
	if err := s.DB.Delete(agent).Error; err != nil {
		log.Printf("DB Error deleting agent %s: %v", agent.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete agent"})
	}
	return c.JSON(fiber.Map{"message": "deleted", "agent_id": agent.ID})
}
