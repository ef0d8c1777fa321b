package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/php369/urop-grading-api/internal/config"
	"github.com/php369/urop-grading-api/internal/database"
	"github.com/php369/urop-grading-api/internal/handler"
	"github.com/php369/urop-grading-api/internal/middleware"
	"github.com/php369/urop-grading-api/internal/models"
	"github.com/php369/urop-grading-api/internal/repository"
	"github.com/php369/urop-grading-api/internal/router"
	"github.com/php369/urop-grading-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Assessment{},
		&models.Submission{},
		&models.RubricCriterion{},
		&models.RubricLevel{},
		&models.Grade{},
		&models.GradeVersion{},
		&models.GradeDraft{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to nats, grade events disabled")
		} else {
			defer natsConn.Close()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)

	rubricService, err := service.NewRubricService(rubricRepo, activityService, logger)
	if err != nil {
		log.Fatalf("failed to build rubric service: %v", err)
	}

	gradingChecker := service.NewGradingValidator()
	gradingChecker.RequireFullRubric = cfg.RequireFullRubric

	historyStore := service.NewGradeHistoryStore(gradeRepo, logger)
	eventPublisher := service.NewGradeEventPublisher(natsConn, cfg.GradeEventSubject, logger)

	gradingService := service.NewGradingService(service.GradingServiceDeps{
		Submissions: submissionRepo,
		Grades:      gradeRepo,
		Drafts:      draftRepo,
		Rubrics:     rubricService,
		History:     historyStore,
		Checker:     gradingChecker,
		Validator:   validate,
		Activity:    activityService,
		Events:      eventPublisher,
		Cache:       redisClient,
		CacheTTL:    cfg.ContextCacheTTL,
	}, logger)

	gradingHandler := handler.NewGradingHandler(gradingService, logger)
	rubricHandler := handler.NewRubricHandler(rubricService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler:  gradingHandler,
		RubricHandler:   rubricHandler,
		ActivityHandler: activityHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
