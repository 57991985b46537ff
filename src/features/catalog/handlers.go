package catalog

import (
	"fmt"
	"log/slog"
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

func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return fmt.Errorf("%w: %v", music.ErrValidation, err)
	}
	if err := validate.Struct(dest); err != nil {
		return fmt.Errorf("%w: %v", music.ErrValidation, err)
	}
	return nil
}

func entityParams(c *fiber.Ctx) (music.EntityType, uint, error) {
	t, err := music.ParseEntityType(c.Params("type"))
	if err != nil {
		return "", 0, err
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: invalid id %q", music.ErrValidation, c.Params("id"))
	}
	return t, uint(id), nil
}

func releaseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid release id %q", music.ErrValidation, c.Params("id"))
	}
	return uint(id), nil
}

// DynamicSearch filters releases, artists or labels. The body is a flat
// object of filter keys; page and per_page come from the query string.
func (h *Handler) DynamicSearch(c *fiber.Ctx) error {
	slog.Debug("DynamicSearch handler called", "type", c.Params("type"))
	t, err := music.ParseEntityType(c.Params("type"))
	if err != nil {
		return err
	}
	body := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return fmt.Errorf("%w: %v", music.ErrValidation, err)
		}
	}
	res, err := h.service.DynamicSearch(c.UserContext(), t, music.FiltersFromMap(body))
	if err != nil {
		return err
	}
	page := c.QueryInt("page", 1)
	switch items := res.(type) {
	case []music.Release:
		return pageJSON(c, items, page, c.QueryInt("per_page", CatalogPerPage))
	case []music.Artist:
		return pageJSON(c, items, page, c.QueryInt("per_page", EntityPerPage))
	case []music.Label:
		return pageJSON(c, items, page, c.QueryInt("per_page", EntityPerPage))
	}
	return c.JSON(res)
}

func pageJSON[T any](c *fiber.Ctx, items []T, page, perPage int) error {
	results, p := Paginate(items, page, perPage)
	return c.JSON(fiber.Map{"results": results, "pagination": p})
}

// ResolveRequest is the body of POST /api/:type/resolve.
type ResolveRequest struct {
	Name string `json:"name" validate:"required_without=MBID"`
	MBID string `json:"mbid" validate:"omitempty,uuid"`
}

func (h *Handler) ResolveEntity(c *fiber.Ctx) error {
	t, err := music.ParseEntityType(c.Params("type"))
	if err != nil {
		return err
	}
	var req ResolveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	id, err := h.service.CreateIfNotExist(c.UserContext(), t, req.Name, req.MBID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": id, "type": t})
}

func (h *Handler) GetEntity(c *fiber.Ctx) error {
	t, id, err := entityParams(c)
	if err != nil {
		return err
	}
	e, err := h.service.GetEntity(c.UserContext(), t, id)
	if err != nil {
		return err
	}
	return c.JSON(e)
}

func (h *Handler) UpdateEntity(c *fiber.Ctx) error {
	t, id, err := entityParams(c)
	if err != nil {
		return err
	}
	var edit EntityEdit
	if err := c.BodyParser(&edit); err != nil {
		return fmt.Errorf("%w: %v", music.ErrValidation, err)
	}
	if err := h.service.UpdateEntity(c.UserContext(), t, id, edit); err != nil {
		return err
	}
	e, err := h.service.GetEntity(c.UserContext(), t, id)
	if err != nil {
		return err
	}
	return c.JSON(e)
}

func (h *Handler) SubmitRelease(c *fiber.Ctx) error {
	var sub Submission
	if err := parseBody(c, &sub); err != nil {
		return err
	}
	release, err := h.service.SubmitRelease(c.UserContext(), sub)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(release)
}

func (h *Handler) GetRelease(c *fiber.Ctx) error {
	id, err := releaseID(c)
	if err != nil {
		return err
	}
	r, err := h.service.GetRelease(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// ReleaseEdit is the body of PUT /api/releases/:id. Omitted fields are kept.
// Runtime is in milliseconds and listen_date is YYYY-MM-DD.
type ReleaseEdit struct {
	Name       *string `json:"name" validate:"omitempty,min=1"`
	Rating     *int    `json:"rating" validate:"omitempty,gte=0,lte=100"`
	Year       *int    `json:"year" validate:"omitempty,gte=0"`
	Runtime    *int    `json:"runtime" validate:"omitempty,gte=0"`
	TrackCount *int    `json:"track_count" validate:"omitempty,gte=0"`
	Country    *string `json:"country"`
	ListenDate *string `json:"listen_date" validate:"omitempty,datetime=2006-01-02"`
}

// Update converts the edit into a domain update.
func (e ReleaseEdit) Update() (music.ReleaseUpdate, error) {
	u := music.ReleaseUpdate{
		Name:       e.Name,
		Rating:     e.Rating,
		Year:       e.Year,
		Runtime:    e.Runtime,
		TrackCount: e.TrackCount,
		Country:    e.Country,
	}
	if e.ListenDate != nil {
		d, err := time.Parse(time.DateOnly, *e.ListenDate)
		if err != nil {
			return u, fmt.Errorf("%w: listen_date: %v", music.ErrValidation, err)
		}
		u.ListenDate = &d
	}
	return u, nil
}

func (h *Handler) UpdateRelease(c *fiber.Ctx) error {
	id, err := releaseID(c)
	if err != nil {
		return err
	}
	var edit ReleaseEdit
	if err := parseBody(c, &edit); err != nil {
		return err
	}
	update, err := edit.Update()
	if err != nil {
		return err
	}
	r, err := h.service.UpdateRelease(c.UserContext(), id, update)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *Handler) DeleteRelease(c *fiber.Ctx) error {
	id, err := releaseID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteRelease(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReviewRequest is the body of POST /api/releases/:id/reviews.
type ReviewRequest struct {
	Text      string    `json:"text" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) AddReview(c *fiber.Ctx) error {
	id, err := releaseID(c)
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	review, err := h.service.AddReview(c.UserContext(), id, req.Text, req.Timestamp)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

func (h *Handler) Reviews(c *fiber.Ctx) error {
	id, err := releaseID(c)
	if err != nil {
		return err
	}
	reviews, err := h.service.Reviews(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(reviews)
}

// CatalogSearchRequest is the body of POST /api/catalog/search.
type CatalogSearchRequest struct {
	Release string `json:"release"`
	Artist  string `json:"artist"`
	Label   string `json:"label"`
}

func (h *Handler) SearchCatalog(c *fiber.Ctx) error {
	var req CatalogSearchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	results, err := h.service.SearchCatalog(c.UserContext(), req.Release, req.Artist, req.Label)
	if err != nil {
		return err
	}
	return pageJSON(c, results, c.QueryInt("page", 1), c.QueryInt("per_page", CatalogPerPage))
}

// GenresRequest is the body of POST /api/genres, a comma separated list.
type GenresRequest struct {
	Names string `json:"names" validate:"required"`
}

func (h *Handler) CreateGenres(c *fiber.Ctx) error {
	var req GenresRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ids, err := h.service.CreateGenres(c.UserContext(), req.Names)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ids": ids})
}
