package routes

import (
	"better-pypi-stats/internal/controller"

	"github.com/gofiber/fiber/v2"
)

// Register attaches all HTTP routes to the Fiber app.
func Register(
	app *fiber.App,
	downloadController controller.DownloadController,
	healthController controller.HealthController,
	metricsHandler fiber.Handler,
) {
	projects := app.Group("/api/v1/projects/:project")
	projects.Get("/downloads", downloadController.GetDownloads)
	projects.Get("/downloads/rolling", downloadController.GetRollingDownloads)
	projects.Get("/summary", downloadController.GetSummary)
	projects.Get("/breakdown", downloadController.GetBreakdown)
	projects.Get("/weekdays", downloadController.GetWeekdays)
	projects.Get("/range", downloadController.GetRange)

	app.Get("/health", healthController.Check)
	app.Get("/metrics", metricsHandler)
}
