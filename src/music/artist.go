package music

import (
	"fmt"
	"strings"
	"time"
)

// Names of the placeholder rows seeded at startup. They stand for "no real
// association" and never show up in statistics or fuzzy matches.
const (
	NoneName           = "[NONE]"
	NoLabelName        = "[no label]"
	VariousArtistsName = "Various Artists"
)

var sentinelNames = []string{NoneName, NoLabelName, VariousArtistsName, ""}

// SentinelNames returns the names excluded from aggregates and searches.
func SentinelNames() []string {
	out := make([]string, len(sentinelNames))
	copy(out, sentinelNames)
	return out
}

// IsSentinel reports whether name is one of the placeholder names.
func IsSentinel(name string) bool {
	for _, s := range sentinelNames {
		if strings.EqualFold(strings.TrimSpace(name), s) {
			return true
		}
	}
	return false
}

// Artist represents a music artist.
type Artist struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MBID      *string    `gorm:"column:mbid;uniqueIndex" json:"mbid,omitempty"`
	Name      string     `gorm:"not null;index" json:"name"`
	Country   string     `json:"country,omitempty"`
	Type      string     `json:"type,omitempty"`
	Begin     *time.Time `json:"begin,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	Image     string     `json:"image,omitempty"`
	DateAdded time.Time  `gorm:"autoCreateTime" json:"date_added"`
}

// Label represents a record label. It shares the artist column layout.
type Label struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MBID      *string    `gorm:"column:mbid;uniqueIndex" json:"mbid,omitempty"`
	Name      string     `gorm:"not null;index" json:"name"`
	Country   string     `json:"country,omitempty"`
	Type      string     `json:"type,omitempty"`
	Begin     *time.Time `json:"begin,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	Image     string     `json:"image,omitempty"`
	DateAdded time.Time  `gorm:"autoCreateTime" json:"date_added"`
}

// EntityInfo is the catalog description of an artist or label, used to
// create rows and to carry lookups from the metadata provider.
type EntityInfo struct {
	MBID    string
	Name    string
	Country string
	Type    string
	Begin   time.Time
	End     time.Time
}

// Validate validates the entity fields.
func (e *EntityInfo) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if len(e.Name) > 500 {
		return fmt.Errorf("%w: name cannot exceed 500 characters", ErrValidation)
	}
	if !e.Begin.IsZero() && !e.End.IsZero() && e.End.Before(e.Begin) {
		return fmt.Errorf("%w: end date %s is before begin date %s", ErrValidation, e.End.Format(time.DateOnly), e.Begin.Format(time.DateOnly))
	}
	return nil
}

// EntityRef is the id and name of an artist or label row.
type EntityRef struct {
	ID   uint
	Name string
}

// EntityUpdate holds the editable artist/label fields. Nil fields are left untouched.
type EntityUpdate struct {
	Begin   *time.Time
	End     *time.Time
	Country *string
	Image   *string
}
