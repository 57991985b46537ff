package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contre95/listenlog/src/music"
	"gorm.io/gorm"
)

// entityMeta describes how an artist or label is stored and referenced.
type entityMeta struct {
	table     string
	refColumn string
}

func metaFor(t music.EntityType) (entityMeta, error) {
	switch t {
	case music.EntityArtist:
		return entityMeta{table: "artists", refColumn: "artist_id"}, nil
	case music.EntityLabel:
		return entityMeta{table: "labels", refColumn: "label_id"}, nil
	case music.EntityRelease:
		return entityMeta{table: "releases"}, nil
	}
	return entityMeta{}, fmt.Errorf("%w: unknown entity type %q", music.ErrValidation, t)
}

func partyMeta(t music.EntityType) (entityMeta, error) {
	if !t.IsParty() {
		return entityMeta{}, fmt.Errorf("%w: %q is not an artist or label", music.ErrValidation, t)
	}
	return metaFor(t)
}

// sentinelNames are excluded from party searches and statistics.
func sentinelNames() []string {
	return music.SentinelNames()
}

// FindEntityByMBID returns the id of the artist or label with mbid, or
// music.ErrNotFound.
func (l *Library) FindEntityByMBID(ctx context.Context, t music.EntityType, mbid string) (uint, error) {
	meta, err := partyMeta(t)
	if err != nil {
		return 0, err
	}
	var ref music.EntityRef
	err = l.db.WithContext(ctx).Table(meta.table).Select("id", "name").
		Where("mbid = ?", mbid).Take(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, music.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find %s by mbid: %w", t, err)
	}
	return ref.ID, nil
}

// FindEntitiesByName returns artists or labels whose name contains name,
// ignoring case, ordered by id. Sentinels are skipped unless name is one.
func (l *Library) FindEntitiesByName(ctx context.Context, t music.EntityType, name string) ([]music.EntityRef, error) {
	meta, err := partyMeta(t)
	if err != nil {
		return nil, err
	}
	q := applyContains(l.db.WithContext(ctx).Table(meta.table).Select("id", "name"), "name", name)
	if !music.IsSentinel(name) {
		q = q.Where("name NOT IN ?", sentinelNames())
	}
	var refs []music.EntityRef
	if err := q.Order("id ASC").Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to find %s by name: %w", t, err)
	}
	return refs, nil
}

// AddEntity inserts a new artist or label.
func (l *Library) AddEntity(ctx context.Context, t music.EntityType, info music.EntityInfo) (uint, error) {
	if _, err := partyMeta(t); err != nil {
		return 0, err
	}
	if err := info.Validate(); err != nil {
		return 0, err
	}
	begin, end := timePtr(info.Begin), timePtr(info.End)
	db := l.db.WithContext(ctx)
	if t == music.EntityArtist {
		a := music.Artist{MBID: music.StringPtr(info.MBID), Name: strings.TrimSpace(info.Name), Country: info.Country, Type: info.Type, Begin: begin, End: end}
		if err := db.Create(&a).Error; err != nil {
			return 0, fmt.Errorf("failed to add artist: %w", translateError(err))
		}
		return a.ID, nil
	}
	lbl := music.Label{MBID: music.StringPtr(info.MBID), Name: strings.TrimSpace(info.Name), Country: info.Country, Type: info.Type, Begin: begin, End: end}
	if err := db.Create(&lbl).Error; err != nil {
		return 0, fmt.Errorf("failed to add label: %w", translateError(err))
	}
	return lbl.ID, nil
}

// UpdateEntity updates the editable fields of an artist or label.
func (l *Library) UpdateEntity(ctx context.Context, t music.EntityType, id uint, update music.EntityUpdate) error {
	meta, err := partyMeta(t)
	if err != nil {
		return err
	}
	values := map[string]any{}
	if update.Begin != nil {
		values["begin"] = update.Begin.UTC()
	}
	if update.End != nil {
		values["end"] = update.End.UTC()
	}
	if update.Country != nil {
		values["country"] = *update.Country
	}
	if update.Image != nil {
		values["image"] = *update.Image
	}
	if len(values) == 0 {
		return nil
	}
	res := l.db.WithContext(ctx).Table(meta.table).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s: %w", t, translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", t, id, music.ErrNotFound)
	}
	return nil
}

func (l *Library) GetArtist(ctx context.Context, id uint) (*music.Artist, error) {
	var a music.Artist
	if err := l.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get artist %d: %w", id, translateError(err))
	}
	return &a, nil
}

func (l *Library) GetLabel(ctx context.Context, id uint) (*music.Label, error) {
	var lbl music.Label
	if err := l.db.WithContext(ctx).First(&lbl, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get label %d: %w", id, translateError(err))
	}
	return &lbl, nil
}

// SetImage records the stored image path for a release, artist or label.
func (l *Library) SetImage(ctx context.Context, t music.EntityType, id uint, path string) error {
	meta, err := metaFor(t)
	if err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Table(meta.table).Where("id = ?", id).Update("image", path)
	if res.Error != nil {
		return fmt.Errorf("failed to set %s image: %w", t, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", t, id, music.ErrNotFound)
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
