package catalog

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)
	api := app.Group("/api")

	releases := api.Group("/releases")
	releases.Post("/", handler.SubmitRelease)
	releases.Get("/:id", handler.GetRelease)
	releases.Put("/:id", handler.UpdateRelease)
	releases.Delete("/:id", handler.DeleteRelease)
	releases.Get("/:id/reviews", handler.Reviews)
	releases.Post("/:id/reviews", handler.AddReview)

	api.Post("/catalog/search", handler.SearchCatalog)
	api.Post("/genres", handler.CreateGenres)
	api.Get("/entities/:type/:id", handler.GetEntity)
	api.Put("/entities/:type/:id", handler.UpdateEntity)
	api.Post("/search/:type", handler.DynamicSearch)
	api.Post("/:type/resolve", handler.ResolveEntity)
}
