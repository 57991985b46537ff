package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/listenlog/src/music"
)

// topN is the length of the rated and frequency lists on the dashboard.
const topN = 10

// Service aggregates statistics over the listening log.
type Service struct {
	stats music.LibraryStats
	now   func() time.Time
}

// NewService creates a new stats service.
func NewService(stats music.LibraryStats) *Service {
	return &Service{stats: stats, now: time.Now}
}

// GetStatistics computes every figure independently; a failing figure is
// logged and left at its zero value.
func (s *Service) GetStatistics(ctx context.Context) *Statistics {
	slog.Debug("GetStatistics service called")
	data := &Statistics{}
	now := s.now().UTC()

	if n, err := s.stats.CountReleases(ctx); err != nil {
		slog.Warn("Failed to count releases", "error", err)
	} else {
		data.TotalReleases = n
	}
	if n, err := s.stats.CountEntities(ctx, music.EntityArtist); err != nil {
		slog.Warn("Failed to count artists", "error", err)
	} else {
		data.TotalArtists = n
	}
	if n, err := s.stats.CountEntities(ctx, music.EntityLabel); err != nil {
		slog.Warn("Failed to count labels", "error", err)
	} else {
		data.TotalLabels = n
	}

	if ms, err := s.stats.AverageRuntime(ctx); err != nil {
		slog.Warn("Failed to get average runtime", "error", err)
	} else {
		data.AverageRuntime = music.Round2(ms / 60000)
	}
	if ms, err := s.stats.TotalRuntime(ctx); err != nil {
		slog.Warn("Failed to get total runtime", "error", err)
	} else {
		data.TotalRuntime = music.Round2(ms / 3600000)
	}
	if avg, err := s.stats.AverageRating(ctx); err != nil {
		slog.Warn("Failed to get average rating", "error", err)
	} else {
		data.AverageRating = music.Round2(avg)
	}

	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	nextYear := yearStart.AddDate(1, 0, 0)
	if n, err := s.stats.CountListensBetween(ctx, yearStart, nextYear); err != nil {
		slog.Warn("Failed to count listens this year", "error", err)
	} else {
		data.ListensThisYear = n
	}
	if n, err := s.stats.CountAddedBetween(ctx, yearStart, nextYear); err != nil {
		slog.Warn("Failed to count releases added this year", "error", err)
	} else {
		data.ReleasesPerDay = ReleasesPerDay(n, now.YearDay())
	}

	var err error
	if data.HighestRated, err = s.stats.RatedReleases(ctx, topN, music.SortDesc); err != nil {
		slog.Warn("Failed to get highest rated releases", "error", err)
	}
	if data.LowestRated, err = s.stats.RatedReleases(ctx, topN, music.SortAsc); err != nil {
		slog.Warn("Failed to get lowest rated releases", "error", err)
	}
	if data.FrequentArtists, err = s.stats.MostFrequent(ctx, music.EntityArtist, topN); err != nil {
		slog.Warn("Failed to get most frequent artists", "error", err)
	}
	if data.FrequentLabels, err = s.stats.MostFrequent(ctx, music.EntityLabel, topN); err != nil {
		slog.Warn("Failed to get most frequent labels", "error", err)
	}

	data.ArtistRatings, data.TopArtists = s.ranking(ctx, music.EntityArtist)
	data.LabelRatings, data.TopLabels = s.ranking(ctx, music.EntityLabel)
	return data
}

func (s *Service) ranking(ctx context.Context, t music.EntityType) ([]music.EntityRating, []music.RankedEntity) {
	ratings, err := s.stats.AverageRatings(ctx, t)
	if err != nil {
		slog.Warn("Failed to get average ratings", "type", t, "error", err)
		return nil, nil
	}
	ranked, err := music.BayesianRank(ratings, music.SortDesc)
	if err != nil {
		slog.Warn("Failed to rank", "type", t, "error", err)
		return ratings, nil
	}
	return ratings, ranked
}

// Ranking returns the Bayesian ranking of artists or labels in the given order.
func (s *Service) Ranking(ctx context.Context, t music.EntityType, order music.SortOrder) ([]music.RankedEntity, error) {
	if !t.IsParty() {
		return nil, fmt.Errorf("%w: ranking supports artist and label, got %q", music.ErrValidation, t)
	}
	ratings, err := s.stats.AverageRatings(ctx, t)
	if err != nil {
		slog.Error("Ranking failed", "type", t, "error", err)
		return nil, err
	}
	return music.BayesianRank(ratings, order)
}

// RatedReleases returns the n highest or lowest rated releases.
func (s *Service) RatedReleases(ctx context.Context, n int, order music.SortOrder) ([]music.Release, error) {
	return s.stats.RatedReleases(ctx, n, order)
}

// ReleasesPerDay is added/day rounded to two decimals, 0 on day 0.
func ReleasesPerDay(added int64, day int) float64 {
	if day == 0 {
		return 0
	}
	return music.Round2(float64(added) / float64(day))
}
