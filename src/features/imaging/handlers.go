package imaging

import (
	"fmt"
	"path/filepath"

	"github.com/contre95/listenlog/src/music"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service  *Service
	dataPath string
}

func NewHandler(service *Service, dataPath string) *Handler {
	return &Handler{service: service, dataPath: dataPath}
}

// ResolveBody is the optional body of POST /api/images/:type/:id.
type ResolveBody struct {
	URL              string `json:"url"`
	ReleaseGroupMBID string `json:"release_group_mbid"`
	Name             string `json:"name"`
	ArtistName       string `json:"artist_name"`
}

func params(c *fiber.Ctx) (music.EntityType, uint, error) {
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

// ResolveImage runs the image pipeline synchronously.
func (h *Handler) ResolveImage(c *fiber.Ctx) error {
	t, id, err := params(c)
	if err != nil {
		return err
	}
	var body ResolveBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return fmt.Errorf("%w: %v", music.ErrValidation, err)
		}
	}
	path, err := h.service.Resolve(c.UserContext(), Request{
		Type:             t,
		ID:               id,
		ReleaseGroupMBID: body.ReleaseGroupMBID,
		Name:             body.Name,
		ArtistName:       body.ArtistName,
		URL:              body.URL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path, "found": path != ""})
}

// ServeImage sends the stored image of an entity.
func (h *Handler) ServeImage(c *fiber.Ctx) error {
	t, id, err := params(c)
	if err != nil {
		return err
	}
	rel, found, err := h.service.Find(t, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no image for %s %d", music.ErrNotFound, t, id)
	}
	c.Set(fiber.HeaderCacheControl, "max-age=600")
	return c.SendFile(filepath.Join(h.dataPath, filepath.FromSlash(rel)))
}
