package handlers

import (
	"agent-arena-system/middleware"
	"agent-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAgentRoutes(app *fiber.App, agentService *services.AgentService) {
	// 🔐 Everything about agents is owner-scoped
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/agents", agentService.CreateAgent)
	secured.Get("/agents", agentService.GetUserAgents)
	secured.Get("/agents/:id", agentService.GetAgentByID)
	secured.Put("/agents/:id", agentService.UpdateAgent)
	secured.Patch("/agents/:id", agentService.UpdateAgent)
	secured.Delete("/agents/:id", agentService.DeleteAgent)

	secured.Put("/agents/:id/chips", agentService.EquipChips)
}
