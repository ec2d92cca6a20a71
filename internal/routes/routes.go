package routes

import (
	"context"
	"time"

	"github.com/adelarp/PraxisBack/internal/config"
	"github.com/adelarp/PraxisBack/internal/handlers"
	"github.com/adelarp/PraxisBack/internal/middleware"
	"github.com/adelarp/PraxisBack/internal/repository"
	"github.com/adelarp/PraxisBack/internal/scheduling"
	"github.com/adelarp/PraxisBack/internal/services"
	schedulews "github.com/adelarp/PraxisBack/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// RegisterRoutes wires repositories, services and handlers onto the app and
// returns the renewal service so the caller can run the background sweeper.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) *services.RenewalService {
	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	financeRepo := repository.NewFinancialRecordRepository(db)

	params := scheduling.NewParams(cfg.SessionBufferMinutes, cfg.DefaultSessionMinutes, cfg.Location())

	scheduleHub := schedulews.NewHub()
	go scheduleHub.Run()

	sessionService := services.NewSessionService(db, sessionRepo, financeRepo, patientRepo, params, logger, scheduleHub)
	scheduleService := services.NewScheduleService(db, params, logger, scheduleHub, cfg.RenewalHorizonWeeks)
	renewalService := services.NewRenewalService(
		sessionRepo,
		patientRepo,
		scheduleService,
		params,
		logger,
		cfg.RenewalHorizonWeeks,
		time.Duration(cfg.RenewalSweepMinutes)*time.Minute,
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	patientHandler := handlers.NewPatientHandler(patientRepo, scheduleService)
	renewalHandler := handlers.NewRenewalHandler(renewalService)
	feedHandler := handlers.NewScheduleFeedHandler(scheduleHub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.BookSession)
	// Listing the timeline opportunistically kicks a renewal scan; the
	// service throttles itself, so frequent calls stay cheap.
	sessions.Get("", func(c *fiber.Ctx) error {
		go renewalService.MaybeRun(context.Background())
		return c.Next()
	}, sessionHandler.ListSessions)
	sessions.Put("/status", sessionHandler.BulkUpdateStatus)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id/reschedule", sessionHandler.Reschedule)
	sessions.Put("/:id/status", sessionHandler.UpdateStatus)
	sessions.Put("/:id/notes", sessionHandler.UpdateNotes)
	sessions.Delete("/:id", sessionHandler.CancelSession)
	sessions.Delete("/:id/permanent", sessionHandler.DeleteSession)

	patients := authProtected.Group("/patients")
	patients.Post("", patientHandler.CreatePatient)
	patients.Get("", patientHandler.ListPatients)
	patients.Get("/:id", patientHandler.GetPatient)
	patients.Put("/:id", patientHandler.UpdatePatient)
	patients.Put("/:id/schedules", patientHandler.ReplaceSchedules)
	patients.Post("/:id/generate", patientHandler.GenerateSessions)

	authProtected.Post("/renewals/run", renewalHandler.Run)

	api.Use("/v1/ws/schedule", feedHandler.WebSocketAuth)
	api.Get("/v1/ws/schedule", websocket.New(feedHandler.HandleWebSocket))

	return renewalService
}
