package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/contre95/listenlog/src/music"
	"gorm.io/gorm"
)

// errNoMatches short-circuits a search whose result is already known to be empty.
var errNoMatches = errors.New("no matches")

// fieldFilter narrows q by one allow-listed search field.
type fieldFilter func(ctx context.Context, l *Library, q *gorm.DB, value string, filters music.Filters) (*gorm.DB, error)

var releaseFilters = map[string]fieldFilter{
	"name":       containsFilter("name"),
	"artist":     partyNameFilter(music.EntityArtist),
	"label":      partyNameFilter(music.EntityLabel),
	"country":    equalFilter("country"),
	"main_genre": mainGenreFilter,
	"rating":     intComparisonFilter("rating", "rating"),
	"year":       intComparisonFilter("year", "year"),
}

var partyFilters = map[string]fieldFilter{
	"name":       containsFilter("name"),
	"country":    equalFilter("country"),
	"type":       equalFilter("type"),
	"begin_date": dateComparisonFilter("begin_date", "begin", music.BoundBegin),
	"end_date":   dateComparisonFilter("end_date", "end", music.BoundEnd),
}

func containsFilter(column string) fieldFilter {
	return func(_ context.Context, _ *Library, q *gorm.DB, value string, _ music.Filters) (*gorm.DB, error) {
		return applyContains(q, column, value), nil
	}
}

func equalFilter(column string) fieldFilter {
	return func(_ context.Context, _ *Library, q *gorm.DB, value string, _ music.Filters) (*gorm.DB, error) {
		return applyComparison(q, column, music.OpEqual, value)
	}
}

// partyNameFilter resolves matching artist or label ids first, then
// restricts releases to them.
func partyNameFilter(t music.EntityType) fieldFilter {
	return func(ctx context.Context, l *Library, q *gorm.DB, value string, _ music.Filters) (*gorm.DB, error) {
		meta, err := partyMeta(t)
		if err != nil {
			return nil, err
		}
		var ids []uint
		sub := applyContains(l.db.WithContext(ctx).Table(meta.table), "name", value)
		if err := sub.Pluck("id", &ids).Error; err != nil {
			return nil, fmt.Errorf("failed to resolve %s ids: %w", t, err)
		}
		if len(ids) == 0 {
			return nil, errNoMatches
		}
		return q.Where(meta.refColumn+" IN ?", ids), nil
	}
}

func mainGenreFilter(ctx context.Context, l *Library, q *gorm.DB, value string, _ music.Filters) (*gorm.DB, error) {
	genres := l.db.WithContext(ctx).Model(&music.Genre{}).Select("id").Where("name = ?", value)
	return q.Where("main_genre_id IN (?)", genres), nil
}

func intComparisonFilter(field, column string) fieldFilter {
	return func(_ context.Context, _ *Library, q *gorm.DB, _ string, filters music.Filters) (*gorm.DB, error) {
		op, err := filters.Operator(field)
		if err != nil {
			return nil, err
		}
		n, err := filters.Int(field)
		if err != nil {
			return nil, err
		}
		return applyComparison(q, column, op, n)
	}
}

func dateComparisonFilter(field, column, bound string) fieldFilter {
	return func(_ context.Context, _ *Library, q *gorm.DB, value string, filters music.Filters) (*gorm.DB, error) {
		op, err := filters.Operator(field)
		if err != nil {
			return nil, err
		}
		date, err := music.ToDate(bound, &value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		return applyComparison(q, column, op, date)
	}
}

// applyFilters narrows q by every allow-listed, non-empty filter. Keys are
// applied in sorted order so the generated SQL is stable.
func (l *Library) applyFilters(ctx context.Context, q *gorm.DB, allowed map[string]fieldFilter, filters music.Filters) (*gorm.DB, error) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		if _, ok := allowed[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		value, ok := filters.Get(k)
		if !ok {
			continue
		}
		var err error
		if q, err = allowed[k](ctx, l, q, value, filters); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// SearchReleases returns releases matching filters ordered by id.
func (l *Library) SearchReleases(ctx context.Context, filters music.Filters) ([]music.Release, error) {
	q, err := l.applyFilters(ctx, l.db.WithContext(ctx).Model(&music.Release{}), releaseFilters, filters)
	if errors.Is(err, errNoMatches) {
		return []music.Release{}, nil
	}
	if err != nil {
		return nil, err
	}
	releases := []music.Release{}
	err = q.Preload("Artist").Preload("Label").Preload("MainGenre").Order("id ASC").Find(&releases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search releases: %w", err)
	}
	return releases, nil
}

// SearchArtists returns non-sentinel artists matching filters ordered by id.
func (l *Library) SearchArtists(ctx context.Context, filters music.Filters) ([]music.Artist, error) {
	artists := []music.Artist{}
	if err := l.searchParties(ctx, &music.Artist{}, &artists, filters); err != nil {
		return nil, fmt.Errorf("failed to search artists: %w", err)
	}
	return artists, nil
}

// SearchLabels returns non-sentinel labels matching filters ordered by id.
func (l *Library) SearchLabels(ctx context.Context, filters music.Filters) ([]music.Label, error) {
	labels := []music.Label{}
	if err := l.searchParties(ctx, &music.Label{}, &labels, filters); err != nil {
		return nil, fmt.Errorf("failed to search labels: %w", err)
	}
	return labels, nil
}

func (l *Library) searchParties(ctx context.Context, model, dest any, filters music.Filters) error {
	base := l.db.WithContext(ctx).Model(model).Where("name NOT IN ?", sentinelNames())
	q, err := l.applyFilters(ctx, base, partyFilters, filters)
	if errors.Is(err, errNoMatches) {
		return nil
	}
	if err != nil {
		return err
	}
	return q.Order("id ASC").Find(dest).Error
}
