package imaging

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, service *Service, dataPath string) {
	handler := NewHandler(service, dataPath)
	app.Post("/api/images/:type/:id", handler.ResolveImage)
	app.Get("/img/:type/:id", handler.ServeImage)
}
