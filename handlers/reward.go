package handlers

import (
	"agent-arena-system/middleware"
	"agent-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, rewardService *services.RewardService, exportService *services.ExportService, authClient *services.AuthServiceClient) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/rewards", rewardService.GetUserRewards)
	secured.Get("/user/rewards/counts", rewardService.GetUserRewardCountsEndpoint)
	secured.Post("/rewards/:id/claim", rewardService.ClaimReward)
	secured.Patch("/rewards/:id/viewed", rewardService.MarkRewardAsViewed)
	secured.Patch("/rewards/viewed", rewardService.MarkAllRewardsAsViewed)

	// Collection portability
	secured.Get("/user/export", exportService.ExportUserData)
	secured.Post("/user/export/archive", exportService.ArchiveUserData)
	secured.Post("/user/import", exportService.ImportUserData)

	// SSE auth comes from query params (EventSource cannot set headers)
	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamUserRewardsSSE)
}
