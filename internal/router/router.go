package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/php369/urop-grading-api/internal/config"
	"github.com/php369/urop-grading-api/internal/handler"
	"github.com/php369/urop-grading-api/internal/middleware"
	"github.com/php369/urop-grading-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler  *handler.GradingHandler
	RubricHandler   *handler.RubricHandler
	ActivityHandler *handler.ActivityHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	graderOnly := middleware.RequireRole(middleware.GradingRoles()...)
	writeLimit := middleware.RateLimit("grading-write", 30, time.Minute)

	if deps.GradingHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware, graderOnly)
		submissions.Use("/:id/grade", writeLimit)
		deps.GradingHandler.RegisterSubmissionRoutes(submissions)

		grades := api.Group("/grades", jwtMiddleware, graderOnly)
		deps.GradingHandler.RegisterGradeRoutes(grades)
	}

	if deps.RubricHandler != nil {
		assessments := api.Group("/assessments", jwtMiddleware, graderOnly)
		deps.RubricHandler.RegisterAssessmentRoutes(assessments)

		rubrics := api.Group("/rubrics", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin))
		deps.RubricHandler.RegisterRubricRoutes(rubrics)
	}

	if deps.ActivityHandler != nil {
		activities := api.Group("/activities", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin))
		deps.ActivityHandler.Register(activities)
	}
}
