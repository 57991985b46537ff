package goals

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)
	api := app.Group("/api/goals")
	api.Get("/", handler.ListGoals)
	api.Post("/", handler.AddGoal)
	api.Post("/check", handler.CheckGoals)
}
