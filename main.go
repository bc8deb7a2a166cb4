package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agent-arena-system/engine"
	"agent-arena-system/handlers"
	"agent-arena-system/middleware"
	"agent-arena-system/models"
	"agent-arena-system/repositories"
	"agent-arena-system/services"
	"agent-arena-system/utils"
	"agent-arena-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB, import bundles are the largest payload
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID, X-Access-Token, X-Refresh-Token, X-Otp-Not-Required",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Agent{},
		&models.SkillChip{},
		&models.Scenario{},
		&models.Tournament{},
		&models.MatchRecord{},
		&models.Reward{},
		&models.UserProgress{},
		&models.AchievementType{},
		&models.UserAchievement{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Engine wiring: the store adapter is the only database surface the
	// engine sees.
	store := repositories.NewArenaStore(db)
	provider := engine.NewScriptedProvider()
	matchRunner := engine.NewMatchRunner(store, provider)
	roller := engine.NewRewardRoller(rand.New(rand.NewSource(time.Now().UnixNano())))

	progressionService := services.NewProgressionService(db)
	achievementService := services.NewAchievementService(db)
	rewardService := services.NewRewardService(db, progressionService)
	orchestrator := engine.NewTournamentOrchestrator(store, store, matchRunner, roller, rewardService, store)

	agentService := services.NewAgentService(db, progressionService)
	chipService := services.NewChipService(db, engine.NewChipFusionEngine(store), progressionService)
	scenarioService := services.NewScenarioService(db, progressionService)
	tournamentService := services.NewTournamentService(db, store, orchestrator, progressionService)
	exportService := services.NewExportService(db, achievementService)

	if err := scenarioService.SeedScenarios(); err != nil {
		log.Fatal("failed to seed scenarios:", err)
	}
	if err := achievementService.SeedAchievements(); err != nil {
		log.Fatal("failed to seed achievements:", err)
	}

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	arenaServiceToken := os.Getenv("ARENA_SERVICE_TOKEN")
	if arenaServiceToken == "" {
		log.Fatal("ARENA_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, arenaServiceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recoveryWorker := workers.NewTournamentRecoveryWorker(tournamentService)
	recoveryWorker.Start(ctx)

	tournamentService.StartTournamentScheduler()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupAgentRoutes(app, agentService)
	handlers.SetupChipRoutes(app, chipService)
	handlers.SetupScenarioRoutes(app, scenarioService, authClient)
	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupRewardRoutes(app, rewardService, exportService, authClient)
	handlers.SetupProgressionRoutes(app, progressionService, achievementService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Tournament scheduler running (every 1m)")
	log.Println("✅ Tournament recovery worker running (every 5m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
