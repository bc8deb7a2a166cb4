package handlers

import (
	"agent-arena-system/middleware"
	"agent-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChipRoutes(app *fiber.App, chipService *services.ChipService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/chips", chipService.GetUserChips)
	secured.Get("/chips/counts", chipService.GetChipCounts)
	secured.Get("/chips/:id", chipService.GetChipByID)
	secured.Post("/chips/fuse", chipService.FuseChips)
}
