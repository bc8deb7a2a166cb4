package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"agent-arena-system/engine"
	"agent-arena-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScenarioService struct {
	DB          *gorm.DB
	Progression *ProgressionService
}

func NewScenarioService(db *gorm.DB, progression *ProgressionService) *ScenarioService {
	return &ScenarioService{DB: db, Progression: progression}
}

// seedCatalog is the built-in scenario set installed on boot.
var seedCatalog = []models.Scenario{
	{
		Name:        "Pipeline Meltdown",
		Description: "A data pipeline is dropping records. Find and patch the defects.",
		Category:    models.ScenarioDebugging,
		Difficulty:  "medium",
		Objectives:  []string{"locate the failing stage", "patch the defects", "verify throughput"},
		RequiredFixes: 2,
		TimeLimitSec:  120,
	},
	{
		Name:        "Query Crunch",
		Description: "Bring the report query under its latency budget.",
		Category:    models.ScenarioOptimization,
		Difficulty:  "medium",
		Objectives:  []string{"profile the query", "cut redundant work", "hit the budget"},
		TimeLimitSec: 120,
	},
	{
		Name:        "Changelog Composer",
		Description: "Draft release notes from a week of commit traffic.",
		Category:    models.ScenarioGeneration,
		Difficulty:  "easy",
		Objectives:  []string{"group related changes", "write the summary"},
	},
	{
		Name:        "Anomaly Hunt",
		Description: "Explain the spike in the error-rate dashboard.",
		Category:    models.ScenarioAnalysis,
		Difficulty:  "hard",
		Objectives:  []string{"correlate the signals", "isolate the trigger", "report the cause"},
		TimeLimitSec: 180,
	},
}

// SeedScenarios installs the built-in catalog, keyed by name (idempotent).
func (s *ScenarioService) SeedScenarios() error {
	for _, sc := range seedCatalog {
		var existing models.Scenario
		err := s.DB.Where("name = ?", sc.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sc.ID = uuid.NewString()
			if err := s.DB.Create(&sc).Error; err != nil {
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

// ListScenarios returns the catalog, optionally filtered by category.
func (s *ScenarioService) ListScenarios(c *fiber.Ctx) error {
	query := s.DB.Order("name ASC")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	var scenarios []models.Scenario
	if err := query.Find(&scenarios).Error; err != nil {
		log.Printf("ERROR fetching scenarios: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch scenarios"})
	}
	return c.JSON(scenarios)
}

func (s *ScenarioService) GetScenarioByID(c *fiber.Ctx) error {
	var scenario models.Scenario
	if err := s.DB.First(&scenario, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "scenario not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(scenario)
}

func (s *ScenarioService) loadRunPair(c *fiber.Ctx) (*models.Scenario, *models.Agent, error) {
	userID := c.Locals("user_id").(string)

	var scenario models.Scenario
	if err := s.DB.First(&scenario, "id = ?", c.Params("id")).Error; err != nil {
		return nil, nil, c.Status(404).JSON(fiber.Map{"error": "scenario not found"})
	}

	// POST runs carry the agent in the body; the SSE stream route is a GET
	// (EventSource cannot POST) and passes agent_id as a query param.
	type Req struct {
		AgentID string `json:"agent_id" validate:"required"`
	}
	var req Req
	_ = c.BodyParser(&req)
	if req.AgentID == "" {
		req.AgentID = c.Query("agent_id")
	}
	if req.AgentID == "" {
		return nil, nil, c.Status(400).JSON(fiber.Map{"error": "agent_id required"})
	}

	var agent models.Agent
	if err := s.DB.Where("id = ? AND external_user_id = ?", req.AgentID, userID).
		First(&agent).Error; err != nil {
		return nil, nil, c.Status(404).JSON(fiber.Map{"error": "agent not found or not owned"})
	}
	return &scenario, &agent, nil
}

// TestRunAgent runs an owned agent against a scenario once, synchronously, and
// persists the result as a casual match (no tournament id, no chip drops).
func (s *ScenarioService) TestRunAgent(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	scenario, agent, ferr := s.loadRunPair(c)
	if scenario == nil {
		return ferr
	}

	runner := engine.NewScenarioRunner(&engine.ScriptedProvider{})
	result, err := runner.Run(context.Background(), scenario, agent)
	if err != nil {
		log.Printf("Test run aborted for agent %s: %v", agent.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "run aborted"})
	}

	s.recordCasualRun(userID, scenario, agent, result)
	return c.JSON(result)
}

func (s *ScenarioService) recordCasualRun(userID string, scenario *models.Scenario, agent *models.Agent, result *engine.ExecutionResult) {
	record := models.MatchRecord{
		ID:          uuid.NewString(),
		ScenarioID:  scenario.ID,
		Agent1ID:    agent.ID,
		Agent1Score: result.Score,
		Error:       result.Error,
		DurationMs:  result.DurationMs,
	}
	if result.Outcome == engine.OutcomeCompleted {
		record.WinnerID = agent.ID
	}
	if err := s.DB.Create(&record).Error; err != nil {
		log.Printf("[Scenarios] failed to persist test run for %s: %v", agent.ID, err)
	}

	if err := s.DB.Model(agent).
		Update("matches_played", gorm.Expr("matches_played + 1")).Error; err != nil {
		log.Printf("[Scenarios] agent counter update failed for %s: %v", agent.ID, err)
	}
	if err := s.Progression.RecordMatchPlayed(userID); err != nil {
		log.Printf("[Scenarios] progression update failed for %s: %v", userID, err)
	}
}

// StreamTestRunSSE runs the scenario like TestRunAgent but streams each step
// as an SSE event while the run is in flight, then a final result event.
func (s *ScenarioService) StreamTestRunSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	scenario, agent, ferr := s.loadRunPair(c)
	if scenario == nil {
		return ferr
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		steps := make(chan engine.ScenarioStep, 16)

		runner := engine.NewScenarioRunner(&engine.ScriptedProvider{})
		runner.StepDelay = 500 * time.Millisecond
		runner.OnStep = func(step engine.ScenarioStep) {
			select {
			case steps <- step:
			default:
				// Slow consumer drops visualization frames, never the run.
			}
		}

		type runOutput struct {
			result *engine.ExecutionResult
			err    error
		}
		done := make(chan runOutput, 1)
		go func() {
			result, err := runner.Run(context.Background(), scenario, agent)
			done <- runOutput{result, err}
		}()

		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case step := <-steps:
				payload, _ := json.Marshal(step)
				fmt.Fprintf(w, "event: step\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					// Client disconnected; finish the run headless.
					runner.Stop()
					out := <-done
					if out.result != nil {
						s.recordCasualRun(userID, scenario, agent, out.result)
					}
					return
				}

			case out := <-done:
				// Drain frames recorded after the last tick.
				for {
					select {
					case step := <-steps:
						payload, _ := json.Marshal(step)
						fmt.Fprintf(w, "event: step\ndata: %s\n\n", payload)
					default:
						if out.result != nil {
							s.recordCasualRun(userID, scenario, agent, out.result)
							payload, _ := json.Marshal(out.result)
							fmt.Fprintf(w, "event: result\ndata: %s\n\n", payload)
						}
						w.Flush()
						return
					}
				}
			}
		}
	})

	return nil
}

// GetAgentMatchHistory returns recent matches for one owned agent.
func (s *ScenarioService) GetAgentMatchHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	agentID := c.Params("agent_id")

	var agent models.Agent
	if err := s.DB.Where("id = ? AND external_user_id = ?", agentID, userID).
		First(&agent).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "agent not found or not owned"})
	}

	var records []models.MatchRecord
	if err := s.DB.
		Where("agent1_id = ? OR agent2_id = ?", agentID, agentID).
		Order("created_at DESC").
		Limit(50).
		Find(&records).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch match history"})
	}
	return c.JSON(records)
}
