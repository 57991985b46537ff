package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/listenlog/src/features/goals"
	"github.com/contre95/listenlog/src/features/imaging"
	"github.com/contre95/listenlog/src/music"
)

// Submission is a release to log. Manual submissions carry the runtime in
// minutes and the country as a name; catalog submissions carry milliseconds
// and an ISO code.
type Submission struct {
	Manual           bool      `json:"manual"`
	MBID             string    `json:"mbid"`
	ReleaseGroupMBID string    `json:"release_group_mbid"`
	Name             string    `json:"name" validate:"required"`
	ArtistName       string    `json:"artist"`
	ArtistMBID       string    `json:"artist_mbid"`
	LabelName        string    `json:"label"`
	LabelMBID        string    `json:"label_mbid"`
	Year             int       `json:"year" validate:"gte=0"`
	Rating           int       `json:"rating" validate:"gte=0,lte=100"`
	Runtime          int       `json:"runtime" validate:"gte=0"`
	TrackCount       int       `json:"track_count" validate:"gte=0"`
	Country          string    `json:"country"`
	ListenDate       time.Time `json:"listen_date"`
	MainGenre        string    `json:"main_genre"`
	Genres           string    `json:"genres"`
	Image            string    `json:"image" validate:"omitempty,url"`
}

// SubmitRelease resolves the artist, label and genres of a submission and
// logs the release. Image resolution and a goal check run in the background.
func (s *Service) SubmitRelease(ctx context.Context, sub Submission) (*music.Release, error) {
	slog.Debug("SubmitRelease service called", "name", sub.Name, "manual", sub.Manual)
	if strings.TrimSpace(sub.Name) == "" {
		return nil, fmt.Errorf("%w: release name cannot be empty", music.ErrValidation)
	}

	runtime, country := sub.Runtime, sub.Country
	if sub.Manual {
		runtime = sub.Runtime * 60000
		country = music.CountryCode(sub.Country)
	} else if runtime == 0 && sub.MBID != "" && s.provider != nil {
		length, err := s.provider.ReleaseLength(ctx, sub.MBID)
		if err != nil {
			slog.Warn("Failed to get release length", "mbid", sub.MBID, "error", err)
		} else {
			runtime = length
		}
	}

	artistName := strings.TrimSpace(sub.ArtistName)
	if artistName == "" && sub.ArtistMBID == "" {
		artistName = music.NoneName
	}
	labelName := strings.TrimSpace(sub.LabelName)
	if labelName == "" && sub.LabelMBID == "" {
		labelName = music.NoLabelName
	}
	artistID, err := s.CreateIfNotExist(ctx, music.EntityArtist, artistName, sub.ArtistMBID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artist: %w", err)
	}
	labelID, err := s.CreateIfNotExist(ctx, music.EntityLabel, labelName, sub.LabelMBID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve label: %w", err)
	}

	var mainGenreID *uint
	genreIDs := []uint{}
	if strings.TrimSpace(sub.MainGenre) != "" {
		g, err := s.CreateGenre(ctx, sub.MainGenre)
		if err != nil {
			return nil, err
		}
		mainGenreID = &g.ID
		genreIDs = append(genreIDs, g.ID)
	}
	extra, err := s.CreateGenres(ctx, sub.Genres)
	if err != nil {
		return nil, err
	}
	for _, id := range extra {
		if mainGenreID == nil || id != *mainGenreID {
			genreIDs = append(genreIDs, id)
		}
	}

	listenDate := sub.ListenDate.UTC()
	if sub.ListenDate.IsZero() {
		listenDate = time.Now().UTC()
	}
	release := &music.Release{
		MBID:        music.StringPtr(sub.MBID),
		Name:        strings.TrimSpace(sub.Name),
		Rating:      sub.Rating,
		Year:        sub.Year,
		Runtime:     runtime,
		TrackCount:  sub.TrackCount,
		ListenDate:  listenDate,
		Country:     country,
		ArtistID:    artistID,
		LabelID:     labelID,
		MainGenreID: mainGenreID,
	}
	if err := release.Validate(); err != nil {
		return nil, err
	}
	if err := s.library.AddRelease(ctx, release, genreIDs); err != nil {
		slog.Error("SubmitRelease failed", "name", release.Name, "error", err)
		return nil, fmt.Errorf("failed to add release: %w", err)
	}
	slog.Info("Release logged", "id", release.ID, "name", release.Name)

	s.scheduleImage(imaging.Request{
		Type:             music.EntityRelease,
		ID:               release.ID,
		ReleaseGroupMBID: sub.ReleaseGroupMBID,
		Name:             release.Name,
		ArtistName:       sub.ArtistName,
		URL:              sub.Image,
	})
	if s.jobs != nil {
		if _, err := s.jobs.StartJob(goals.JobType, "Check goals", nil); err != nil {
			slog.Warn("Failed to schedule goal check", "error", err)
		}
	}
	return release, nil
}

// SearchCatalog searches the metadata provider for releases. At least one
// term is required.
func (s *Service) SearchCatalog(ctx context.Context, release, artist, label string) ([]music.ReleaseInfo, error) {
	slog.Debug("SearchCatalog service called", "release", release, "artist", artist, "label", label)
	release, artist, label = strings.TrimSpace(release), strings.TrimSpace(artist), strings.TrimSpace(label)
	if release == "" && artist == "" && label == "" {
		return nil, fmt.Errorf("%w: at least one of release, artist or label is required", music.ErrValidation)
	}
	if s.provider == nil {
		return nil, errors.New("no metadata provider configured")
	}
	results, err := s.provider.SearchReleases(ctx, release, artist, label)
	if err != nil {
		slog.Error("SearchCatalog failed", "error", err)
		return nil, err
	}
	return results, nil
}

func (s *Service) GetRelease(ctx context.Context, id uint) (*music.Release, error) {
	return s.library.GetRelease(ctx, id)
}

// UpdateRelease edits a release. Manual-style edits are not converted: runtime
// is milliseconds and country is stored as given.
func (s *Service) UpdateRelease(ctx context.Context, id uint, update music.ReleaseUpdate) (*music.Release, error) {
	slog.Debug("UpdateRelease service called", "id", id)
	if update.Country != nil {
		code := music.CountryCode(*update.Country)
		update.Country = &code
	}
	r, err := s.library.UpdateRelease(ctx, id, update)
	if err != nil {
		slog.Error("UpdateRelease failed", "id", id, "error", err)
		return nil, err
	}
	return r, nil
}

// DeleteRelease removes a release with its reviews and genre links.
func (s *Service) DeleteRelease(ctx context.Context, id uint) error {
	slog.Debug("DeleteRelease service called", "id", id)
	if err := s.library.DeleteRelease(ctx, id); err != nil {
		slog.Error("DeleteRelease failed", "id", id, "error", err)
		return err
	}
	return nil
}

// EntityEdit is an artist or label edit. Dates are YYYY, YYYY-MM or YYYY-MM-DD.
type EntityEdit struct {
	Begin    *string `json:"begin"`
	End      *string `json:"end"`
	Country  *string `json:"country"`
	ImageURL string  `json:"image"`
}

// UpdateEntity edits an artist or label and downloads a new image when a URL is given.
func (s *Service) UpdateEntity(ctx context.Context, t music.EntityType, id uint, edit EntityEdit) error {
	slog.Debug("UpdateEntity service called", "type", t, "id", id)
	if !t.IsParty() {
		return fmt.Errorf("%w: cannot edit entities of type %q", music.ErrValidation, t)
	}
	var update music.EntityUpdate
	if edit.Begin != nil && *edit.Begin != "" {
		d, err := music.ToDate(music.BoundBegin, edit.Begin)
		if err != nil {
			return err
		}
		update.Begin = &d
	}
	if edit.End != nil && *edit.End != "" {
		d, err := music.ToDate(music.BoundEnd, edit.End)
		if err != nil {
			return err
		}
		update.End = &d
	}
	if update.Begin != nil && update.End != nil && update.End.Before(*update.Begin) {
		return fmt.Errorf("%w: end date is before begin date", music.ErrValidation)
	}
	if edit.Country != nil {
		code := music.CountryCode(*edit.Country)
		update.Country = &code
	}
	if err := s.library.UpdateEntity(ctx, t, id, update); err != nil {
		slog.Error("UpdateEntity failed", "type", t, "id", id, "error", err)
		return err
	}
	if edit.ImageURL != "" && s.images != nil {
		if _, err := s.images.Resolve(ctx, imaging.Request{Type: t, ID: id, URL: edit.ImageURL}); err != nil {
			return fmt.Errorf("failed to store image: %w", err)
		}
	}
	return nil
}

// GetEntity returns an artist or label.
func (s *Service) GetEntity(ctx context.Context, t music.EntityType, id uint) (any, error) {
	switch t {
	case music.EntityArtist:
		return s.library.GetArtist(ctx, id)
	case music.EntityLabel:
		return s.library.GetLabel(ctx, id)
	case music.EntityRelease:
		return s.library.GetRelease(ctx, id)
	}
	return nil, fmt.Errorf("%w: unknown entity type %q", music.ErrValidation, t)
}

// AddReview attaches a review to a release. A zero timestamp means now.
func (s *Service) AddReview(ctx context.Context, releaseID uint, text string, at time.Time) (*music.Review, error) {
	slog.Debug("AddReview service called", "release", releaseID)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: review text cannot be empty", music.ErrValidation)
	}
	if at.IsZero() {
		at = time.Now()
	}
	review := &music.Review{ReleaseID: releaseID, Text: text, Timestamp: at.UTC()}
	if err := s.library.AddReview(ctx, review); err != nil {
		slog.Error("AddReview failed", "release", releaseID, "error", err)
		return nil, err
	}
	return review, nil
}

// Reviews lists the reviews of a release, oldest first.
func (s *Service) Reviews(ctx context.Context, releaseID uint) ([]music.Review, error) {
	return s.library.GetReviews(ctx, releaseID)
}

// DynamicSearch runs a filtered search over releases, artists or labels.
func (s *Service) DynamicSearch(ctx context.Context, t music.EntityType, filters music.Filters) (any, error) {
	slog.Debug("DynamicSearch service called", "type", t, "filters", len(filters))
	var (
		res any
		err error
	)
	switch t {
	case music.EntityRelease:
		res, err = s.library.SearchReleases(ctx, filters)
	case music.EntityArtist:
		res, err = s.library.SearchArtists(ctx, filters)
	case music.EntityLabel:
		res, err = s.library.SearchLabels(ctx, filters)
	default:
		return nil, fmt.Errorf("%w: unknown entity type %q", music.ErrValidation, t)
	}
	if err != nil {
		slog.Error("DynamicSearch failed", "type", t, "error", err)
		return nil, err
	}
	return res, nil
}
