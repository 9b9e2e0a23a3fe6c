package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizcore/config"
	"github.com/lshigami/quizcore/database"
	_ "github.com/lshigami/quizcore/docs" // Swagger docs - generated by swag init
	instructorctrl "github.com/lshigami/quizcore/internal/controller/instructor"
	studentctrl "github.com/lshigami/quizcore/internal/controller/student"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/evaluator"
	"github.com/lshigami/quizcore/internal/event"
	"github.com/lshigami/quizcore/internal/logger"
	"github.com/lshigami/quizcore/internal/middleware"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/monitoring"
	"github.com/lshigami/quizcore/internal/repository"
	"github.com/lshigami/quizcore/internal/scoring"
	"github.com/lshigami/quizcore/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Quiz Attempt & Evaluation API
// @version 1.0
// @description Timed quiz attempts with deterministic choice scoring, AI-assisted free-text evaluation with keyword fallback, and an instructor dispute review workflow.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()
	monitoring.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			database.NewRedis,
			event.NewPublisher,
			NewGinEngine,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewQuizRepository,
			repository.NewAttemptRepository,
			repository.NewEvaluationRepository,
			repository.NewGroupRepository,
		),

		// Scoring and evaluation
		fx.Provide(
			evaluator.NewGeminiGenerator,
			evaluator.NewFromConfig,
			NewScoringEngine,
		),

		// Services Layer
		fx.Provide(
			service.NewSystemClock,
			service.NewQuestionCatalog,
			service.NewEligibilityChecker,
			service.NewQuizService,
			service.NewAttemptService,
			service.NewDisputeService,
		),

		// API Controllers Layer
		fx.Provide(
			instructorctrl.NewInstructorController,
			studentctrl.NewStudentController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// NewScoringEngine binds the evaluator adapter as the free-text scorer.
func NewScoringEngine(cfg *config.Config, adapter *evaluator.Adapter) *scoring.Engine {
	return scoring.NewEngine(adapter, scoring.WithPartialCredit(cfg.Quiz.MultiChoicePartialCredit))
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	logger.Configure(cfg)
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(monitoring.MetricsMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderUserRole},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", monitoring.PrometheusHandler())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
	})

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	instructorCtrl *instructorctrl.InstructorController,
	studentCtrl *studentctrl.StudentController,
) {
	api := router.Group("/api/v1", middleware.Identity())
	instructorCtrl.RegisterRoutes(api)
	studentCtrl.RegisterRoutes(api)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Quiz API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.Attempt{},
		&model.QuestionResult{},
		&model.EvaluationRecord{},
		&model.GroupMember{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
