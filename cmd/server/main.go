package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"vitacore/internal/config"
	"vitacore/internal/database"
	"vitacore/internal/handlers"
	"vitacore/internal/jobs"
	"vitacore/internal/logging"
	"vitacore/internal/middleware"
	"vitacore/internal/services"
	"vitacore/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Vitacore Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Redis is optional; without it completion events are simply not published
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Redis unavailable: %v (completion events disabled)", err)
			redisService = nil
		} else {
			defer redisService.Close()
		}
	}

	// JWT auth (optional in development, mandatory in production)
	var jwtAuth *auth.LocalJWTAuth
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(secret, 0, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("🔐 JWT authentication enabled")
	} else if os.Getenv("ENVIRONMENT") == "production" {
		log.Fatal("❌ JWT_SECRET is required in production")
	}

	// Services
	userService := services.NewUserService(db)
	planService := services.NewPlanService(db)
	detailsService := services.NewDetailsService()
	scheduleService := services.NewScheduleService(db, planService, detailsService)
	sessionStore := services.NewSessionStore()
	services.InitMetrics(sessionStore)
	coach := services.NewCoachClient(cfg.CoachBaseURL, cfg.CoachAPIKey, cfg.CoachModel)
	completionService := services.NewCompletionService(sessionStore, coach)

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Vitacore v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second, // coach turns can wait on the upstream model
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("vitacore")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Coach=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.CoachMax)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Session-ID",
		AllowCredentials: allowedOrigins != "*",
	}))

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Handlers
	healthHandler := handlers.NewHealthHandler(sessionStore)
	authHandler := handlers.NewLocalAuthHandler(jwtAuth, userService)
	planHandler := handlers.NewPlanHandler(planService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	activityLogHandler := handlers.NewActivityLogHandler(completionService, scheduleService, redisService)

	// Routes
	app.Get("/health", healthHandler.Handle)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Get("/me", middleware.LocalAuthMiddleware(jwtAuth), authHandler.GetCurrentUser)

	api := app.Group("/api", middleware.LocalAuthMiddleware(jwtAuth))
	api.Get("/treatment-plan", planHandler.Get)
	api.Put("/treatment-plan", planHandler.Upsert)
	api.Get("/daily-schedule", scheduleHandler.Get)
	api.Post("/daily-schedule", scheduleHandler.AddActivity)
	api.Patch("/daily-schedule", scheduleHandler.Patch)
	api.Delete("/daily-schedule", scheduleHandler.DeleteActivity)
	api.Post("/activity-log", middleware.CoachRateLimiter(rateLimitConfig), activityLogHandler.Handle)

	// Session reaper only runs when a TTL is configured
	var reaper *jobs.SessionReaper
	if cfg.SessionTTL > 0 {
		reaper, err = jobs.NewSessionReaper(sessionStore, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("❌ Failed to create session reaper: %v", err)
		}
		if err := reaper.Start(); err != nil {
			log.Fatalf("❌ Failed to start session reaper: %v", err)
		}
	}

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")

		if reaper != nil {
			reaper.Stop()
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
