package hosting

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/listenlog/src/features/catalog"
	"github.com/contre95/listenlog/src/features/config"
	"github.com/contre95/listenlog/src/features/goals"
	"github.com/contre95/listenlog/src/features/imaging"
	"github.com/contre95/listenlog/src/features/jobs"
	"github.com/contre95/listenlog/src/features/stats"
	"github.com/contre95/listenlog/src/infra/clientutil"
	"github.com/contre95/listenlog/src/music"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles the feature services exposed over HTTP.
type Services struct {
	Catalog *catalog.Service
	Images  *imaging.Service
	Stats   *stats.Service
	Goals   *goals.Service
	Jobs    *jobs.Service
}

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, services Services) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		AppName:               "Listenlog",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
		BodyLimit:             4 * 1024 * 1024,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(NewRegistry(services.Stats), promhttp.HandlerOpts{})))

	jobs.RegisterRoutes(app, services.Jobs)
	stats.RegisterRoutes(app, services.Stats)
	goals.RegisterRoutes(app, services.Goals)
	imaging.RegisterRoutes(app, services.Images, cfg.Get().DataPath)
	catalog.RegisterRoutes(app, services.Catalog)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// NewRegistry returns a registry with the runtime collectors, the outbound
// request counter and, when statsService is set, the library gauges.
func NewRegistry(statsService *stats.Service) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		clientutil.OutboundRequests,
	)
	if statsService != nil {
		reg.MustRegister(stats.NewCollector(statsService))
	}
	return reg
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, music.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, music.ErrValidation), errors.Is(err, music.ErrUnsupportedImage):
		return fiber.StatusBadRequest
	case errors.Is(err, music.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler writes errors as {"error": "..."} with the mapped status.
// Internal errors are logged and their message hidden.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error("Internal Server Error", "path", c.Path(), "error", err)
		msg = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
