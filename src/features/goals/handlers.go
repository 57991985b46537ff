package goals

import (
	"fmt"
	"time"

	"github.com/contre95/listenlog/src/music"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GoalRequest is the body of POST /api/goals. Dates are YYYY-MM-DD.
type GoalRequest struct {
	Start  string `json:"start" validate:"required,datetime=2006-01-02"`
	End    string `json:"end" validate:"required,datetime=2006-01-02"`
	Type   string `json:"type" validate:"required,oneof=release album label"`
	Amount int    `json:"amount" validate:"required,gt=0"`
}

// Goal converts the request into a domain goal.
func (r GoalRequest) Goal() (*music.Goal, error) {
	start, err := time.Parse(time.DateOnly, r.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", music.ErrValidation, err)
	}
	end, err := time.Parse(time.DateOnly, r.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", music.ErrValidation, err)
	}
	return &music.Goal{Start: start, End: end, Type: music.GoalType(r.Type), Amount: r.Amount}, nil
}

// ListGoals returns the incomplete goals with their progress.
func (h *Handler) ListGoals(c *fiber.Ctx) error {
	progress, err := h.service.IncompleteProgress(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(progress)
}

func (h *Handler) AddGoal(c *fiber.Ctx) error {
	var req GoalRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", music.ErrValidation, err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", music.ErrValidation, err)
	}
	goal, err := req.Goal()
	if err != nil {
		return err
	}
	if err := h.service.AddGoal(c.UserContext(), goal); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(goal)
}

func (h *Handler) CheckGoals(c *fiber.Ctx) error {
	completed, err := h.service.CheckGoals(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"completed": completed})
}
