package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campuskit/student-registry-api/internal/config"
	"github.com/campuskit/student-registry-api/internal/handler"
	"github.com/campuskit/student-registry-api/internal/middleware"
	"github.com/campuskit/student-registry-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	StudentHandler *handler.StudentHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.StudentHandler != nil {
		students := api.Group("/students", middleware.RateLimit("students", cfg.RateLimitMax, cfg.RateLimitWindow))
		deps.StudentHandler.Register(students)
	}
}
