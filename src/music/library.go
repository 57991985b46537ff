package music

import (
	"context"
	"time"
)

// Library is the interface for managing the listening log.
// It's our primary repository interface for the catalog domain.
type Library interface {
	// Artist and label methods
	FindEntityByMBID(ctx context.Context, t EntityType, mbid string) (uint, error)
	FindEntitiesByName(ctx context.Context, t EntityType, name string) ([]EntityRef, error)
	AddEntity(ctx context.Context, t EntityType, info EntityInfo) (uint, error)
	UpdateEntity(ctx context.Context, t EntityType, id uint, update EntityUpdate) error
	GetArtist(ctx context.Context, id uint) (*Artist, error)
	GetLabel(ctx context.Context, id uint) (*Label, error)
	SetImage(ctx context.Context, t EntityType, id uint, path string) error

	// Release methods
	AddRelease(ctx context.Context, release *Release, genreIDs []uint) error
	GetRelease(ctx context.Context, id uint) (*Release, error)
	UpdateRelease(ctx context.Context, id uint, update ReleaseUpdate) (*Release, error)
	DeleteRelease(ctx context.Context, id uint) error

	// Genre methods
	FindOrCreateGenre(ctx context.Context, name string) (*Genre, error)

	// Review methods
	AddReview(ctx context.Context, review *Review) error
	GetReviews(ctx context.Context, releaseID uint) ([]Review, error)

	// Search methods
	SearchReleases(ctx context.Context, filters Filters) ([]Release, error)
	SearchArtists(ctx context.Context, filters Filters) ([]Artist, error)
	SearchLabels(ctx context.Context, filters Filters) ([]Label, error)
}

// GoalStore persists listening goals.
type GoalStore interface {
	AddGoal(ctx context.Context, goal *Goal) error
	GetIncompleteGoals(ctx context.Context) ([]Goal, error)
	CountListensSince(ctx context.Context, since time.Time) (int, error)
	// CompleteGoal marks an incomplete goal complete. It reports false when
	// the goal was already complete.
	CompleteGoal(ctx context.Context, id uint, at time.Time) (bool, error)
}

// LibraryStats is the read side used by the statistics aggregator.
type LibraryStats interface {
	CountReleases(ctx context.Context) (int64, error)
	CountEntities(ctx context.Context, t EntityType) (int64, error)
	AverageRuntime(ctx context.Context) (float64, error)
	TotalRuntime(ctx context.Context) (float64, error)
	AverageRating(ctx context.Context) (float64, error)
	CountListensBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountAddedBetween(ctx context.Context, from, to time.Time) (int64, error)
	RatedReleases(ctx context.Context, n int, order SortOrder) ([]Release, error)
	MostFrequent(ctx context.Context, t EntityType, n int) ([]EntityCount, error)
	AverageRatings(ctx context.Context, t EntityType) ([]EntityRating, error)
}

// MetadataProvider looks up catalog metadata for artists, labels and releases.
type MetadataProvider interface {
	Name() string
	// SearchEntity returns the mbid of the first artist or label matching name.
	SearchEntity(ctx context.Context, t EntityType, name string) (string, error)
	LookupEntity(ctx context.Context, t EntityType, mbid string) (*EntityInfo, error)
	SearchReleases(ctx context.Context, release, artist, label string) ([]ReleaseInfo, error)
	// ReleaseLength returns the summed track length of a release in milliseconds.
	ReleaseLength(ctx context.Context, mbid string) (int, error)
}
