package music

import (
	"fmt"
	"strings"
)

// EntityType names the catalog entities that own external ids and images.
type EntityType string

const (
	EntityRelease EntityType = "release"
	EntityArtist  EntityType = "artist"
	EntityLabel   EntityType = "label"
)

// ParseEntityType validates a user supplied entity type.
func ParseEntityType(s string) (EntityType, error) {
	switch t := EntityType(strings.ToLower(strings.TrimSpace(s))); t {
	case EntityRelease, EntityArtist, EntityLabel:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown entity type %q, must be one of release, artist, label", ErrValidation, s)
}

// IsParty reports whether the type is an artist or a label.
func (t EntityType) IsParty() bool {
	return t == EntityArtist || t == EntityLabel
}

func (t EntityType) String() string { return string(t) }
