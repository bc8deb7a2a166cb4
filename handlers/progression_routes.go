// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"agent-arena-system/middleware"
	"agent-arena-system/models"
	"agent-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, achievementService *services.AchievementService) {
	// 🔐 Secured routes — require user context (userID, roles)
	// The gateway should forward paths like /api/v1/arena/s/user/progress -> /user/progress
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := progressionService.EnsureProgressRecord(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress record",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"id":                    prog.ID,
			"xp":                    prog.TotalXP,
			"level":                 prog.Level,
			"rank":                  prog.Rank,
			"rank_name":             rankName(prog.Rank),
			"arena_level":           prog.ArenaLevel(),
			"agents_created":        prog.AgentsCreated,
			"chips_collected":       prog.ChipsCollected,
			"chips_fused":           prog.ChipsFused,
			"total_matches":         prog.TotalMatches,
			"tournaments_played":    prog.TournamentsPlayed,
			"tournaments_completed": prog.TournamentsCompleted,
			"tournaments_won":       prog.TournamentsWon,
			"last_level_up_at":      prog.LastLevelUpAt,
			"last_rank_up_at":       prog.LastRankUpAt,
		})
	})

	securedGroup.Get("/user/progress/recent", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		days, _ := strconv.Atoi(c.Query("days", "7"))
		if days < 1 || days > 90 {
			days = 7
		}

		var agents []models.Agent
		if err := progressionService.DB.
			Select("id").
			Where("external_user_id = ?", userID).
			Find(&agents).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load agents",
				"cause": err.Error(),
			})
		}
		agentIDs := make([]string, 0, len(agents))
		for _, a := range agents {
			agentIDs = append(agentIDs, a.ID)
		}

		matches, err := progressionService.GetRecentMatches(agentIDs, days)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get recent matches",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"matches": matches})
	})

	securedGroup.Get("/user/progress/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		awards, err := achievementService.ListUserAchievements(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(awards)
	})

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		rows, err := progressionService.GetLeaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		type entry struct {
			ExternalUserID string `json:"external_user_id"`
			TotalXP        int64  `json:"total_xp"`
			Level          int    `json:"level"`
			Rank           int    `json:"rank"`
			RankName       string `json:"rank_name"`
			TournamentsWon int64  `json:"tournaments_won"`
		}
		out := make([]entry, 0, len(rows))
		for _, r := range rows {
			out = append(out, entry{
				ExternalUserID: r.ExternalUserID,
				TotalXP:        r.TotalXP,
				Level:          r.Level,
				Rank:           r.Rank,
				RankName:       rankName(r.Rank),
				TournamentsWon: r.TournamentsWon,
			})
		}
		return c.JSON(out)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			XP     int64  `json:"xp" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		if _, err := progressionService.EnsureProgressRecord(req.UserID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to ensure progress record",
				"cause": err.Error(),
			})
		}
		if _, err := progressionService.AwardXP(req.UserID, req.XP, req.Reason); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP award failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      req.XP,
		})
	})
}

func rankName(rank int) string {
	switch rank {
	case 1:
		return "Bronze"
	case 2:
		return "Silver"
	case 3:
		return "Gold"
	case 4:
		return "Platinum"
	case 5:
		return "Diamond"
	default:
		if rank > 5 {
			return "Diamond"
		}
		return "Bronze"
	}
}
