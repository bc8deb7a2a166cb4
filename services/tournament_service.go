package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"agent-arena-system/engine"
	"agent-arena-system/models"
	"agent-arena-system/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB           *gorm.DB
	Store        *repositories.ArenaStore
	Orchestrator *engine.TournamentOrchestrator
	Progression  *ProgressionService

	// In-flight guard so a recovery sweep or scheduler tick never double-runs
	// a tournament this process is already driving.
	inFlight sync.Map
}

func NewTournamentService(
	db *gorm.DB,
	store *repositories.ArenaStore,
	orchestrator *engine.TournamentOrchestrator,
	progression *ProgressionService,
) *TournamentService {
	return &TournamentService{
		DB:           db,
		Store:        store,
		Orchestrator: orchestrator,
		Progression:  progression,
	}
}

var validFormats = map[models.TournamentFormat]bool{
	models.FormatSingleElimination: true,
	models.FormatRoundRobin:        true,
	models.FormatGauntlet:          true,
	models.FormatTeamBattle:        true,
}

// defaultCapacity is the field size used when a create request leaves
// max_participants unset.
func defaultCapacity(format models.TournamentFormat) int {
	if format == models.FormatGauntlet {
		return 1
	}
	return 8
}

// validateFormatCapacity rejects field sizes the format cannot bracket, so an
// auto-start on exact fill can never park the tournament in the error state.
func validateFormatCapacity(format models.TournamentFormat, max int) error {
	switch format {
	case models.FormatGauntlet:
		if max != 1 {
			return fmt.Errorf("gauntlet tournaments take exactly 1 participant, got max %d", max)
		}
	case models.FormatTeamBattle:
		if max < 4 || max%2 != 0 {
			return fmt.Errorf("team battle needs an even field of at least 4, got max %d", max)
		}
	default:
		if max < 2 {
			return fmt.Errorf("%s needs at least 2 participants, got max %d", format, max)
		}
	}
	return nil
}

// CreateTournament opens a new tournament in the registration state.
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	type Req struct {
		Name            string                           `json:"name" validate:"required"`
		Description     string                           `json:"description"`
		Format          models.TournamentFormat          `json:"format" validate:"required"`
		MaxParticipants int                              `json:"max_participants"`
		ScenarioID      string                           `json:"scenario_id" validate:"required"`
		Requirements    models.TournamentRequirements    `json:"requirements"`
		Rewards         map[string]models.RewardSpec     `json:"rewards"`
		ScheduledStart  *time.Time                       `json:"scheduled_start"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Name == "" || req.ScenarioID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and scenario_id are required"})
	}
	if !validFormats[req.Format] {
		return c.Status(400).JSON(fiber.Map{"error": "invalid format"})
	}
	if req.MaxParticipants <= 0 {
		req.MaxParticipants = defaultCapacity(req.Format)
	}
	if err := validateFormatCapacity(req.Format, req.MaxParticipants); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if req.ScheduledStart != nil && req.ScheduledStart.Before(time.Now()) {
		return c.Status(400).JSON(fiber.Map{"error": "scheduled_start must be in the future"})
	}

	// Scenario must exist before anyone can register against it.
	if err := s.DB.First(&models.Scenario{}, "id = ?", req.ScenarioID).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "scenario_id not found"})
	}

	rewards := req.Rewards
	if len(rewards) == 0 {
		rewards = map[string]models.RewardSpec{
			models.TierWinner:      {Chips: 2},
			models.TierFinalist:    {Chips: 1},
			models.TierParticipant: {Chips: 1},
		}
	}

	tournament := &models.Tournament{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		Slug:            slug.Make(req.Name),
		Description:     req.Description,
		Format:          req.Format,
		Status:          models.TournamentRegistration,
		MaxParticipants: req.MaxParticipants,
		Requirements:    req.Requirements,
		Rewards:         rewards,
		ScenarioID:      req.ScenarioID,
		ScheduledStart:  req.ScheduledStart,
	}
	if err := s.DB.Create(tournament).Error; err != nil {
		log.Printf("DB Error creating tournament: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create tournament"})
	}
	return c.Status(201).JSON(tournament)
}

// GetAllTournaments lists tournaments, optionally filtered by status.
func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	query := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var tournaments []models.Tournament
	if err := query.Find(&tournaments).Error; err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) loadTournament(c *fiber.Ctx) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return nil, c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return &tournament, nil
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	tournament, err := s.loadTournament(c)
	if tournament == nil {
		return err
	}
	return c.JSON(tournament)
}

// JoinTournament registers one of the caller's agents. When the entry fills
// the field, the tournament starts and runs in the background.
func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	type Req struct {
		AgentID string `json:"agent_id" validate:"required"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.AgentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "agent_id required"})
	}

	tournament, ferr := s.loadTournament(c)
	if tournament == nil {
		return ferr
	}

	// The agent must belong to the caller.
	agent, err := s.Store.GetAgent(c.Context(), req.AgentID)
	if err != nil || agent == nil {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found"})
	}
	if agent.ExternalUserID != userID {
		return c.Status(403).JSON(fiber.Map{"error": "agent is not owned by you"})
	}

	if err := s.Orchestrator.Join(context.Background(), tournament, req.AgentID, userID); err != nil {
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.Progression.Bump(userID, "tournaments_played", 1); err != nil {
		log.Printf("[Tournaments] counter bump failed for %s: %v", userID, err)
	}

	if tournament.Status == models.TournamentRunning {
		go s.runTournament(tournament)
	}
	return c.Status(201).JSON(fiber.Map{
		"message":      "joined",
		"tournament":   tournament.ID,
		"participants": len(tournament.Participants),
		"status":       tournament.Status,
	})
}

// StartTournament force-starts before the field fills (operator action).
func (s *TournamentService) StartTournament(c *fiber.Ctx) error {
	tournament, ferr := s.loadTournament(c)
	if tournament == nil {
		return ferr
	}
	if err := s.Orchestrator.Start(context.Background(), tournament); err != nil {
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}
	go s.runTournament(tournament)
	return c.JSON(fiber.Map{"message": "started", "tournament": tournament.ID})
}

// CancelTournament retires a tournament that has not completed.
func (s *TournamentService) CancelTournament(c *fiber.Ctx) error {
	tournament, ferr := s.loadTournament(c)
	if tournament == nil {
		return ferr
	}
	if err := s.Orchestrator.Cancel(context.Background(), tournament); err != nil {
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "cancelled", "tournament": tournament.ID})
}

// GetBracket returns the live round structure.
func (s *TournamentService) GetBracket(c *fiber.Ctx) error {
	tournament, ferr := s.loadTournament(c)
	if tournament == nil {
		return ferr
	}
	if tournament.Bracket == nil {
		return c.Status(404).JSON(fiber.Map{"error": "bracket not generated yet"})
	}
	return c.JSON(tournament.Bracket)
}

// GetRankings returns the final standing once completed.
func (s *TournamentService) GetRankings(c *fiber.Ctx) error {
	tournament, ferr := s.loadTournament(c)
	if tournament == nil {
		return ferr
	}
	if tournament.Status != models.TournamentCompleted {
		return c.Status(409).JSON(fiber.Map{"error": "tournament not completed", "status": tournament.Status})
	}
	return c.JSON(fiber.Map{"tournament": tournament.ID, "rankings": tournament.Rankings})
}

// GetTournamentMatches returns the persisted match history.
func (s *TournamentService) GetTournamentMatches(c *fiber.Ctx) error {
	var records []models.MatchRecord
	if err := s.DB.Where("tournament_id = ?", c.Params("id")).
		Order("round_index ASC, match_index ASC").
		Find(&records).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}
	return c.JSON(records)
}

// runTournament drives a started tournament to completion in the background
// and finalizes progression for every ranked participant.
func (s *TournamentService) runTournament(t *models.Tournament) {
	if _, loaded := s.inFlight.LoadOrStore(t.ID, struct{}{}); loaded {
		return
	}
	defer s.inFlight.Delete(t.ID)

	ctx := context.Background()
	log.Printf("[Tournaments] ▶️  Running %s (%s, %d participants)", t.Name, t.Format, len(t.Participants))
	if err := s.Orchestrator.Run(ctx, t); err != nil {
		log.Printf("[Tournaments] ❌ Run failed for %s: %v", t.ID, err)
		return
	}
	log.Printf("[Tournaments] 🏆 Completed %s, winner: %s", t.Name, firstOrEmpty(t.Rankings))

	for rank, entry := range t.Rankings {
		for _, agentID := range expandRankingEntry(t, entry) {
			agent, err := s.Store.GetAgent(ctx, agentID)
			if err != nil || agent == nil {
				continue
			}
			if err := s.Progression.RecordTournamentResult(agent.ExternalUserID, t.ID, rank+1); err != nil {
				log.Printf("[Tournaments] progression finalize failed for %s: %v", agent.ExternalUserID, err)
			}
		}
	}
}

// ResumeRunning re-drives tournaments left in the running state (crash
// recovery, called by the background worker on boot and on poll).
func (s *TournamentService) ResumeRunning(ctx context.Context) (int, error) {
	var tournaments []models.Tournament
	if err := s.DB.Where("status = ?", models.TournamentRunning).Find(&tournaments).Error; err != nil {
		return 0, err
	}
	for i := range tournaments {
		t := tournaments[i]
		go s.runTournament(&t)
	}
	return len(tournaments), nil
}

func firstOrEmpty(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// expandRankingEntry resolves a ranking id to agent ids (team entries carry a
// composite "a+b" id).
func expandRankingEntry(t *models.Tournament, entry string) []string {
	if t.Format != models.FormatTeamBattle || !strings.Contains(entry, "+") {
		return []string{entry}
	}
	return strings.Split(entry, "+")
}
