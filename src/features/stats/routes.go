package stats

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the stats routes with the Fiber app.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)
	api := app.Group("/api/stats")
	api.Get("/", handler.GetStatistics)
	api.Get("/releases", handler.GetRatedReleases)
	api.Get("/ranking/:type", handler.GetRanking)
}
