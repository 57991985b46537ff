package stats

import (
	"log/slog"

	"github.com/contre95/listenlog/src/music"
	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for the stats feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new stats handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStatistics returns the full dashboard summary.
func (h *Handler) GetStatistics(c *fiber.Ctx) error {
	slog.Debug("GetStatistics handler called")
	return c.JSON(h.service.GetStatistics(c.UserContext()))
}

// GetRanking returns the Bayesian ranking for /api/stats/ranking/:type?order=desc.
func (h *Handler) GetRanking(c *fiber.Ctx) error {
	t, err := music.ParseEntityType(c.Params("type"))
	if err != nil {
		return err
	}
	order, err := music.ParseSortOrder(c.Query("order", string(music.SortDesc)))
	if err != nil {
		return err
	}
	ranked, err := h.service.Ranking(c.UserContext(), t, order)
	if err != nil {
		return err
	}
	return c.JSON(ranked)
}

// GetRatedReleases returns /api/stats/releases?n=10&order=asc.
func (h *Handler) GetRatedReleases(c *fiber.Ctx) error {
	order, err := music.ParseSortOrder(c.Query("order", string(music.SortDesc)))
	if err != nil {
		return err
	}
	releases, err := h.service.RatedReleases(c.UserContext(), c.QueryInt("n", topN), order)
	if err != nil {
		return err
	}
	return c.JSON(releases)
}
