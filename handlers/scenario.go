package handlers

import (
	"agent-arena-system/middleware"
	"agent-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupScenarioRoutes(app *fiber.App, scenarioService *services.ScenarioService, authClient *services.AuthServiceClient) {
	// 🔓 The catalog is public
	app.Get("/scenarios", scenarioService.ListScenarios)
	app.Get("/scenarios/:id", scenarioService.GetScenarioByID)

	// 🔐 Running an agent requires user context
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/scenarios/:id/test-run", scenarioService.TestRunAgent)
	secured.Get("/agents/:agent_id/matches", scenarioService.GetAgentMatchHistory)

	// SSE auth comes from query params (EventSource cannot set headers)
	app.Get("/scenarios/:id/test-run/stream", middleware.SSEAuthMiddleware(authClient), scenarioService.StreamTestRunSSE)
}
