package handlers

import (
	"agent-arena-system/middleware"
	"agent-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	// 🔓 Public routes — browsing needs no user context
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Get("/tournaments/:id/bracket", tournamentService.GetBracket)
	app.Get("/tournaments/:id/rankings", tournamentService.GetRankings)
	app.Get("/tournaments/:id/matches", tournamentService.GetTournamentMatches)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/tournaments/:id/join", tournamentService.JoinTournament)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin")
	admin.Post("/tournaments", tournamentService.CreateTournament)
	admin.Post("/tournaments/:id/start", tournamentService.StartTournament)
	admin.Post("/tournaments/:id/cancel", tournamentService.CancelTournament)
}
