package stats

import "github.com/contre95/listenlog/src/music"

// Statistics is the dashboard summary of the listening log. Fields that
// failed to load keep their zero value.
type Statistics struct {
	TotalReleases   int64   `json:"total_releases"`
	TotalArtists    int64   `json:"total_artists"`
	TotalLabels     int64   `json:"total_labels"`
	AverageRuntime  float64 `json:"average_runtime_minutes"`
	TotalRuntime    float64 `json:"total_runtime_hours"`
	AverageRating   float64 `json:"average_rating"`
	ListensThisYear int64   `json:"listens_this_year"`
	ReleasesPerDay  float64 `json:"releases_per_day"`

	HighestRated []music.Release `json:"highest_rated"`
	LowestRated  []music.Release `json:"lowest_rated"`

	FrequentArtists []music.EntityCount `json:"frequent_artists"`
	FrequentLabels  []music.EntityCount `json:"frequent_labels"`

	ArtistRatings []music.EntityRating `json:"artist_ratings"`
	LabelRatings  []music.EntityRating `json:"label_ratings"`

	TopArtists []music.RankedEntity `json:"top_artists"`
	TopLabels  []music.RankedEntity `json:"top_labels"`
}
