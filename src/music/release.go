package music

import (
	"fmt"
	"strings"
	"time"
)

// Release is a logged listen of an album, EP or single.
type Release struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MBID        *string   `gorm:"column:mbid;uniqueIndex" json:"mbid,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	Rating      int       `gorm:"check:chk_releases_rating,rating >= 0 AND rating <= 100" json:"rating"`
	Year        int       `json:"year"`
	Runtime     int       `json:"runtime"` // milliseconds
	TrackCount  int       `json:"track_count"`
	ListenDate  time.Time `gorm:"index" json:"listen_date"`
	Country     string    `json:"country,omitempty"`
	Image       string    `json:"image,omitempty"`
	ArtistID    uint      `gorm:"not null;index" json:"artist_id"`
	Artist      *Artist   `gorm:"constraint:OnDelete:CASCADE" json:"artist,omitempty"`
	LabelID     uint      `gorm:"not null;index" json:"label_id"`
	Label       *Label    `gorm:"constraint:OnDelete:CASCADE" json:"label,omitempty"`
	MainGenreID *uint     `json:"main_genre_id,omitempty"`
	MainGenre   *Genre    `json:"main_genre,omitempty"`
	Reviews     []Review  `gorm:"constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
	DateAdded   time.Time `gorm:"autoCreateTime" json:"date_added"`
}

// Validate validates the release fields.
func (r *Release) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: release name cannot be empty", ErrValidation)
	}
	if r.Rating < 0 || r.Rating > 100 {
		return fmt.Errorf("%w: rating %d is outside 0-100", ErrValidation, r.Rating)
	}
	if r.Runtime < 0 {
		return fmt.Errorf("%w: runtime cannot be negative", ErrValidation)
	}
	if r.TrackCount < 0 {
		return fmt.Errorf("%w: track count cannot be negative", ErrValidation)
	}
	if r.ArtistID == 0 || r.LabelID == 0 {
		return fmt.Errorf("%w: release needs an artist and a label", ErrValidation)
	}
	return nil
}

// Review is a timestamped note attached to a release.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `gorm:"not null" json:"text"`
	ReleaseID uint      `gorm:"not null;index" json:"release_id"`
	DateAdded time.Time `gorm:"autoCreateTime" json:"date_added"`
}

// Genre is matched by exact name only.
type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	DateAdded time.Time `gorm:"autoCreateTime" json:"date_added"`
}

// Join entities. Each pair of ids is unique.

type LabelArtist struct {
	ID       uint    `gorm:"primaryKey"`
	LabelID  uint    `gorm:"not null;uniqueIndex:idx_label_artist"`
	ArtistID uint    `gorm:"not null;uniqueIndex:idx_label_artist"`
	Label    *Label  `gorm:"constraint:OnDelete:CASCADE"`
	Artist   *Artist `gorm:"constraint:OnDelete:CASCADE"`
}

type LabelGenre struct {
	ID      uint   `gorm:"primaryKey"`
	LabelID uint   `gorm:"not null;uniqueIndex:idx_label_genre"`
	GenreID uint   `gorm:"not null;uniqueIndex:idx_label_genre"`
	Label   *Label `gorm:"constraint:OnDelete:CASCADE"`
	Genre   *Genre `gorm:"constraint:OnDelete:CASCADE"`
}

type ArtistGenre struct {
	ID       uint    `gorm:"primaryKey"`
	ArtistID uint    `gorm:"not null;uniqueIndex:idx_artist_genre"`
	GenreID  uint    `gorm:"not null;uniqueIndex:idx_artist_genre"`
	Artist   *Artist `gorm:"constraint:OnDelete:CASCADE"`
	Genre    *Genre  `gorm:"constraint:OnDelete:CASCADE"`
}

type ReleaseGenre struct {
	ID        uint     `gorm:"primaryKey"`
	ReleaseID uint     `gorm:"not null;uniqueIndex:idx_release_genre"`
	GenreID   uint     `gorm:"not null;uniqueIndex:idx_release_genre"`
	Release   *Release `gorm:"constraint:OnDelete:CASCADE"`
	Genre     *Genre   `gorm:"constraint:OnDelete:CASCADE"`
}

// ReleaseInfo is one release found in the external catalog.
type ReleaseInfo struct {
	MBID             string `json:"mbid"`
	Name             string `json:"name"`
	ArtistMBID       string `json:"artist_mbid"`
	ArtistName       string `json:"artist_name"`
	LabelMBID        string `json:"label_mbid"`
	LabelName        string `json:"label_name"`
	Year             int    `json:"year"`
	Format           string `json:"format"`
	TrackCount       int    `json:"track_count"`
	Country          string `json:"country"`
	ReleaseGroupMBID string `json:"release_group_mbid"`
}

// ReleaseUpdate holds the editable release fields. Nil fields are left untouched.
type ReleaseUpdate struct {
	Name       *string
	Rating     *int
	Year       *int
	Runtime    *int
	TrackCount *int
	Country    *string
	ListenDate *time.Time
}

// Apply copies the set fields onto r.
func (u ReleaseUpdate) Apply(r *Release) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Rating != nil {
		r.Rating = *u.Rating
	}
	if u.Year != nil {
		r.Year = *u.Year
	}
	if u.Runtime != nil {
		r.Runtime = *u.Runtime
	}
	if u.TrackCount != nil {
		r.TrackCount = *u.TrackCount
	}
	if u.Country != nil {
		r.Country = *u.Country
	}
	if u.ListenDate != nil {
		r.ListenDate = *u.ListenDate
	}
}

// StringPtr returns nil for empty strings so optional unique columns stay NULL.
func StringPtr(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences an optional string.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
