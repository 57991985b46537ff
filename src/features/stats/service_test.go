package stats

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/contre95/listenlog/src/music"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStats is a mock implementation of music.LibraryStats
type MockStats struct {
	music.LibraryStats // Embed interface, unused methods panic
	failRatings        bool
	from, to           time.Time
}

func (m *MockStats) CountReleases(context.Context) (int64, error) { return 0, errors.New("db down") }
func (m *MockStats) CountEntities(_ context.Context, t music.EntityType) (int64, error) {
	if t == music.EntityArtist {
		return 4, nil
	}
	return 2, nil
}
func (m *MockStats) AverageRuntime(context.Context) (float64, error) { return 2_730_000, nil }
func (m *MockStats) TotalRuntime(context.Context) (float64, error)   { return 10_000_000, nil }
func (m *MockStats) AverageRating(context.Context) (float64, error)  { return 76.666, nil }
func (m *MockStats) CountListensBetween(_ context.Context, from, to time.Time) (int64, error) {
	m.from, m.to = from, to
	return 12, nil
}
func (m *MockStats) CountAddedBetween(context.Context, time.Time, time.Time) (int64, error) {
	return 10, nil
}
func (m *MockStats) RatedReleases(_ context.Context, n int, order music.SortOrder) ([]music.Release, error) {
	if order == music.SortAsc {
		return nil, errors.New("timeout")
	}
	return []music.Release{{ID: 1, Name: "Syro", Rating: 90}}, nil
}
func (m *MockStats) MostFrequent(_ context.Context, t music.EntityType, n int) ([]music.EntityCount, error) {
	return []music.EntityCount{{ID: 1, Name: "Aphex Twin", Count: 3}}, nil
}
func (m *MockStats) AverageRatings(_ context.Context, t music.EntityType) ([]music.EntityRating, error) {
	if m.failRatings && t == music.EntityLabel {
		return nil, errors.New("bad query")
	}
	return []music.EntityRating{
		{ID: 1, Name: "Lucky", Average: 100, Count: 2},
		{ID: 2, Name: "Solid", Average: 90, Count: 20},
		{ID: 3, Name: "Meh", Average: 50, Count: 2},
	}, nil
}

func newTestService(m *MockStats) *Service {
	s := NewService(m)
	s.now = func() time.Time { return time.Date(2024, time.January, 4, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestGetStatistics_ToleratesFailures(t *testing.T) {
	m := &MockStats{failRatings: true}
	got := newTestService(m).GetStatistics(context.Background())

	assert.Zero(t, got.TotalReleases)
	assert.EqualValues(t, 4, got.TotalArtists)
	assert.EqualValues(t, 2, got.TotalLabels)
	assert.Equal(t, 45.5, got.AverageRuntime)
	assert.Equal(t, 2.78, got.TotalRuntime)
	assert.Equal(t, 76.67, got.AverageRating)
	assert.EqualValues(t, 12, got.ListensThisYear)
	assert.Equal(t, 2.5, got.ReleasesPerDay)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), m.from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), m.to)

	assert.Len(t, got.HighestRated, 1)
	assert.Nil(t, got.LowestRated)
	assert.Len(t, got.FrequentArtists, 1)

	require.Len(t, got.TopArtists, 3)
	assert.Equal(t, "Solid", got.TopArtists[0].Name)
	assert.Equal(t, 87, got.TopArtists[0].Score)
	assert.Equal(t, "Lucky", got.TopArtists[1].Name)
	assert.Equal(t, 84, got.TopArtists[1].Score)
	assert.Nil(t, got.LabelRatings)
	assert.Nil(t, got.TopLabels)
}

func TestRanking(t *testing.T) {
	s := newTestService(&MockStats{})
	asc, err := s.Ranking(context.Background(), music.EntityArtist, music.SortAsc)
	require.NoError(t, err)
	assert.Equal(t, "Meh", asc[0].Name)

	_, err = s.Ranking(context.Background(), music.EntityRelease, music.SortAsc)
	assert.ErrorIs(t, err, music.ErrValidation)
	_, err = s.Ranking(context.Background(), music.EntityArtist, "sideways")
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestReleasesPerDay(t *testing.T) {
	assert.Equal(t, 0.0, ReleasesPerDay(10, 0))
	assert.Equal(t, 0.33, ReleasesPerDay(1, 3))
}

func TestCollector(t *testing.T) {
	c := NewCollector(newTestService(&MockStats{}))
	assert.Equal(t, 7, testutil.CollectAndCount(c))

	expected := `
# HELP listenlog_entities Artists and labels in the log, sentinels excluded.
# TYPE listenlog_entities gauge
listenlog_entities{type="artist"} 4
listenlog_entities{type="label"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "listenlog_entities"))
}
