package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/contre95/listenlog/src/features/imaging"
	"github.com/contre95/listenlog/src/features/jobs"
	"github.com/contre95/listenlog/src/music"
	"golang.org/x/sync/singleflight"
)

// Images resolves entity images now or in the background.
type Images interface {
	Resolve(ctx context.Context, req imaging.Request) (string, error)
	Schedule(req imaging.Request) (string, error)
}

// Service is the domain service for the catalog feature.
type Service struct {
	library  music.Library
	provider music.MetadataProvider
	images   Images
	jobs     jobs.JobService
	inflight singleflight.Group
}

// NewService creates a new catalog service. provider, images and jobService may be nil.
func NewService(lib music.Library, provider music.MetadataProvider, images Images, jobService jobs.JobService) *Service {
	return &Service{
		library:  lib,
		provider: provider,
		images:   images,
		jobs:     jobService,
	}
}

// CreateIfNotExist returns the id of the artist or label matching mbid or
// name, creating it from the metadata provider when there is none.
// Concurrent calls for the same entity share one lookup and insert.
func (s *Service) CreateIfNotExist(ctx context.Context, t music.EntityType, name, mbid string) (uint, error) {
	slog.Debug("CreateIfNotExist service called", "type", t, "name", name, "mbid", mbid)
	if !t.IsParty() {
		return 0, fmt.Errorf("%w: cannot resolve entities of type %q", music.ErrValidation, t)
	}
	name = strings.TrimSpace(name)
	mbid = strings.TrimSpace(mbid)
	if name == "" && mbid == "" {
		return 0, fmt.Errorf("%w: %s needs a name or an mbid", music.ErrValidation, t)
	}

	key := string(t) + ":" + strings.ToLower(name)
	if mbid != "" {
		key = string(t) + ":mbid:" + mbid
	}
	// Joined callers share this lookup, so one caller's cancellation must not
	// fail the others. The HTTP client timeouts still bound it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.createIfNotExist(shared, t, name, mbid)
	})
	if err != nil {
		slog.Error("CreateIfNotExist failed", "type", t, "name", name, "error", err)
		return 0, err
	}
	return v.(uint), nil
}

func (s *Service) createIfNotExist(ctx context.Context, t music.EntityType, name, mbid string) (uint, error) {
	if id, found, err := s.findByMBID(ctx, t, mbid); err != nil || found {
		return id, err
	}

	if name != "" {
		refs, err := s.library.FindEntitiesByName(ctx, t, name)
		if err != nil {
			return 0, fmt.Errorf("failed to match %s %q: %w", t, name, err)
		}
		if best, ok := bestMatch(refs, name); ok {
			slog.Debug("Matched existing entity", "type", t, "name", name, "match", best.Name, "id", best.ID)
			return best.ID, nil
		}
	}

	info := s.lookup(ctx, t, name, mbid)
	if info.MBID != "" && info.MBID != mbid {
		if id, found, err := s.findByMBID(ctx, t, info.MBID); err != nil || found {
			return id, err
		}
	}

	id, err := s.library.AddEntity(ctx, t, info)
	if err != nil {
		return 0, fmt.Errorf("failed to add %s %q: %w", t, info.Name, err)
	}
	slog.Info("Created entity", "type", t, "name", info.Name, "id", id)
	s.scheduleImage(imaging.Request{Type: t, ID: id, Name: info.Name})
	return id, nil
}

func (s *Service) findByMBID(ctx context.Context, t music.EntityType, mbid string) (uint, bool, error) {
	if mbid == "" {
		return 0, false, nil
	}
	id, err := s.library.FindEntityByMBID(ctx, t, mbid)
	switch {
	case err == nil:
		return id, true, nil
	case errors.Is(err, music.ErrNotFound):
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("failed to find %s by mbid: %w", t, err)
}

// lookup asks the metadata provider for the entity. Failures fall back to
// the given name and mbid.
func (s *Service) lookup(ctx context.Context, t music.EntityType, name, mbid string) music.EntityInfo {
	fallback := music.EntityInfo{Name: name, MBID: mbid}
	if s.provider == nil {
		return fallback
	}
	id := mbid
	if id == "" {
		found, err := s.provider.SearchEntity(ctx, t, name)
		if err != nil {
			slog.Warn("Entity search failed", "provider", s.provider.Name(), "type", t, "name", name, "error", err)
			return fallback
		}
		id = found
	}
	info, err := s.provider.LookupEntity(ctx, t, id)
	if err != nil || info == nil {
		slog.Warn("Entity lookup failed", "provider", s.provider.Name(), "type", t, "mbid", id, "error", err)
		return fallback
	}
	if strings.TrimSpace(info.Name) == "" {
		info.Name = name
	}
	return *info
}

// bestMatch picks the candidate closest to name by Jaro-Winkler similarity.
// Candidates are ordered by id, so ties keep the lowest id.
func bestMatch(refs []music.EntityRef, name string) (music.EntityRef, bool) {
	if len(refs) == 0 {
		return music.EntityRef{}, false
	}
	metric := metrics.NewJaroWinkler()
	metric.CaseSensitive = false
	best, bestScore := refs[0], -1.0
	for _, r := range refs {
		if score := strutil.Similarity(name, r.Name, metric); score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, true
}

func (s *Service) scheduleImage(req imaging.Request) {
	if s.images == nil {
		return
	}
	if _, err := s.images.Schedule(req); err != nil {
		slog.Warn("Failed to schedule image job", "type", req.Type, "id", req.ID, "error", err)
	}
}

// CreateGenre returns the genre with exactly this name, creating it if needed.
func (s *Service) CreateGenre(ctx context.Context, name string) (*music.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: genre name cannot be empty", music.ErrValidation)
	}
	g, err := s.library.FindOrCreateGenre(ctx, name)
	if err != nil {
		slog.Error("CreateGenre failed", "name", name, "error", err)
		return nil, err
	}
	return g, nil
}

// CreateGenres creates every genre of a comma separated list, skipping blanks
// and repeats, and returns their ids in list order.
func (s *Service) CreateGenres(ctx context.Context, csv string) ([]uint, error) {
	ids := []uint{}
	seen := map[uint]bool{}
	for _, name := range strings.Split(csv, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		g, err := s.CreateGenre(ctx, name)
		if err != nil {
			return nil, err
		}
		if !seen[g.ID] {
			seen[g.ID] = true
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
}
