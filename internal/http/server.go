package http

import (
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"better-pypi-stats/internal/config"
	"better-pypi-stats/internal/controller"
	"better-pypi-stats/internal/routes"
)

// Server wraps the Fiber application setup.
type Server struct {
	app *fiber.App
}

// NewServer configures routes and middleware.
func NewServer(
	appCfg *config.Config,
	downloadController controller.DownloadController,
	healthController controller.HealthController,
	gatherer prometheus.Gatherer,
) *Server {
	fiberCfg := fiber.Config{
		DisableStartupMessage: true,
		Prefork:               appCfg.FiberPrefork,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler,
	}
	app := fiber.New(fiberCfg)
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))

	metricsHandler := adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	routes.Register(app, downloadController, healthController, metricsHandler)

	return &Server{app: app}
}

// Listen runs the server on provided addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits up to timeout for in-flight
// requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App exposes the underlying Fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler renders errors as {"error": message}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		slog.Error("unhandled request error",
			slog.String("path", c.Path()),
			slog.Any("request_id", c.Locals(requestid.ConfigDefault.ContextKey)),
			slog.String("error", err.Error()),
		)
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
