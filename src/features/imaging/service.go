package imaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/contre95/listenlog/src/features/jobs"
	"github.com/contre95/listenlog/src/infra/artwork"
	"github.com/contre95/listenlog/src/music"
)

// JobType is the background job resolving an entity image.
const JobType = "image"

// coverTimeout bounds the Cover Art Archive lookup before falling back.
const coverTimeout = 5 * time.Second

// CoverSource fetches release group front covers.
type CoverSource interface {
	FrontCover(ctx context.Context, releaseGroupMBID string) ([]byte, error)
}

// ImageSource finds an image for a release, artist or label by name.
type ImageSource interface {
	Image(ctx context.Context, t music.EntityType, name, artist string) ([]byte, error)
}

// Store downloads and persists images.
type Store interface {
	Download(ctx context.Context, rawURL string) ([]byte, error)
	Save(t music.EntityType, id uint, data []byte, ext string) (string, error)
	Find(t music.EntityType, id uint) (string, bool, error)
	Remove(rel string) error
}

// Request describes the entity whose image should be resolved. URL, when
// set, bypasses the providers.
type Request struct {
	Type             music.EntityType `json:"type"`
	ID               uint             `json:"id"`
	ReleaseGroupMBID string           `json:"release_group_mbid,omitempty"`
	Name             string           `json:"name,omitempty"`
	ArtistName       string           `json:"artist_name,omitempty"`
	URL              string           `json:"url,omitempty"`
}

// Service resolves, stores and records entity images.
type Service struct {
	library  music.Library
	store    Store
	covers   CoverSource
	fallback ImageSource
	jobs     jobs.JobService
}

// NewService creates an image service. covers and fallback may be nil.
func NewService(library music.Library, store Store, covers CoverSource, fallback ImageSource, jobService jobs.JobService) *Service {
	return &Service{library: library, store: store, covers: covers, fallback: fallback, jobs: jobService}
}

// Resolve finds, stores and records the image for req and returns its
// relative path. "" with a nil error means no image was found.
func (s *Service) Resolve(ctx context.Context, req Request) (string, error) {
	slog.Debug("Resolve service called", "type", req.Type, "id", req.ID)
	if _, err := music.ParseEntityType(string(req.Type)); err != nil {
		return "", err
	}
	if req.ID == 0 {
		return "", fmt.Errorf("%w: image request needs an id", music.ErrValidation)
	}

	if req.URL != "" {
		return s.fromURL(ctx, req)
	}

	if req.Type == music.EntityRelease && req.ReleaseGroupMBID != "" && s.covers != nil {
		path, err := s.fromCoverArt(ctx, req)
		if err == nil {
			return path, nil
		}
		slog.Debug("Cover art lookup failed, trying fallback", "id", req.ID, "error", err)
	}

	if s.fallback == nil {
		return "", nil
	}
	data, err := s.fallback.Image(ctx, req.Type, req.Name, req.ArtistName)
	if err != nil {
		slog.Debug("No fallback image", "type", req.Type, "id", req.ID, "error", err)
		return "", nil
	}
	ext, err := artwork.Sniff(data)
	if err != nil {
		return "", err
	}
	return s.save(ctx, req, data, ext)
}

func (s *Service) fromURL(ctx context.Context, req Request) (string, error) {
	ext, err := artwork.ExtFromURL(req.URL)
	if err != nil {
		return "", err
	}
	data, err := s.store.Download(ctx, req.URL)
	if err != nil {
		slog.Warn("Image download failed", "url", req.URL, "error", err)
		return "", nil
	}
	if err := artwork.Validate(data); err != nil {
		return "", err
	}
	return s.save(ctx, req, data, ext)
}

func (s *Service) fromCoverArt(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, coverTimeout)
	defer cancel()
	data, err := s.covers.FrontCover(ctx, req.ReleaseGroupMBID)
	if err != nil {
		return "", err
	}
	ext, err := artwork.Sniff(data)
	if err != nil {
		return "", err
	}
	return s.save(ctx, req, data, ext)
}

func (s *Service) save(ctx context.Context, req Request, data []byte, ext string) (string, error) {
	path, err := s.store.Save(req.Type, req.ID, data, ext)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	if err := s.library.SetImage(ctx, req.Type, req.ID, path); err != nil {
		if rmErr := s.store.Remove(path); rmErr != nil {
			slog.Warn("Failed to remove orphaned image", "path", path, "error", rmErr)
		}
		return "", fmt.Errorf("failed to record image: %w", err)
	}
	slog.Info("Image stored", "type", req.Type, "id", req.ID, "path", path)
	return path, nil
}

// Find reports the stored image of an entity.
func (s *Service) Find(t music.EntityType, id uint) (string, bool, error) {
	return s.store.Find(t, id)
}

// Schedule queues image resolution as a background job.
func (s *Service) Schedule(req Request) (string, error) {
	if s.jobs == nil {
		return "", errors.New("no job service configured")
	}
	name := fmt.Sprintf("Image for %s %d", req.Type, req.ID)
	return s.jobs.StartJob(JobType, name, req.metadata())
}

func (r Request) metadata() map[string]any {
	return map[string]any{
		"type":               string(r.Type),
		"id":                 strconv.FormatUint(uint64(r.ID), 10),
		"release_group_mbid": r.ReleaseGroupMBID,
		"name":               r.Name,
		"artist":             r.ArtistName,
		"url":                r.URL,
	}
}

func requestFromMetadata(m map[string]any) (Request, error) {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	t, err := music.ParseEntityType(str("type"))
	if err != nil {
		return Request{}, err
	}
	id, err := strconv.ParseUint(str("id"), 10, 64)
	if err != nil {
		return Request{}, fmt.Errorf("%w: bad id %q", music.ErrValidation, str("id"))
	}
	return Request{
		Type:             t,
		ID:               uint(id),
		ReleaseGroupMBID: str("release_group_mbid"),
		Name:             str("name"),
		ArtistName:       str("artist"),
		URL:              str("url"),
	}, nil
}

// ImageTask resolves an image inside a job.
type ImageTask struct {
	service *Service
}

var _ jobs.Task = (*ImageTask)(nil)

func NewImageTask(service *Service) *ImageTask {
	return &ImageTask{service: service}
}

func (t *ImageTask) MetadataKeys() []string { return []string{"type", "id"} }

func (t *ImageTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	req, err := requestFromMetadata(job.Metadata)
	if err != nil {
		return nil, err
	}
	progressUpdater(10, "Resolving image")
	path, err := t.service.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if path == "" {
		job.Logger.Info("No image found", "type", req.Type, "id", req.ID)
		return map[string]any{"found": false}, nil
	}
	job.Logger.Info("Image stored", "path", path)
	return map[string]any{"found": true, "path": path}, nil
}

func (t *ImageTask) Cleanup(*jobs.Job) error { return nil }
