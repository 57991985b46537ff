package database

import (
	"context"
	"fmt"
	"time"

	"github.com/contre95/listenlog/src/music"
	"gorm.io/gorm/clause"
)

func (l *Library) CountReleases(ctx context.Context) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&music.Release{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count releases: %w", err)
	}
	return count, nil
}

// CountEntities counts artists or labels, excluding sentinels.
func (l *Library) CountEntities(ctx context.Context, t music.EntityType) (int64, error) {
	meta, err := partyMeta(t)
	if err != nil {
		return 0, err
	}
	var count int64
	err = l.db.WithContext(ctx).Table(meta.table).Where("name NOT IN ?", sentinelNames()).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", meta.table, err)
	}
	return count, nil
}

func (l *Library) scalar(ctx context.Context, expr string) (float64, error) {
	var v float64
	if err := l.db.WithContext(ctx).Model(&music.Release{}).Select(expr).Scan(&v).Error; err != nil {
		return 0, err
	}
	return v, nil
}

// AverageRuntime returns the mean release runtime in milliseconds.
func (l *Library) AverageRuntime(ctx context.Context) (float64, error) {
	v, err := l.scalar(ctx, "COALESCE(AVG(runtime), 0)")
	if err != nil {
		return 0, fmt.Errorf("failed to average runtime: %w", err)
	}
	return v, nil
}

// TotalRuntime returns the summed release runtime in milliseconds.
func (l *Library) TotalRuntime(ctx context.Context) (float64, error) {
	v, err := l.scalar(ctx, "COALESCE(SUM(runtime), 0)")
	if err != nil {
		return 0, fmt.Errorf("failed to sum runtime: %w", err)
	}
	return v, nil
}

func (l *Library) AverageRating(ctx context.Context) (float64, error) {
	v, err := l.scalar(ctx, "COALESCE(AVG(rating), 0)")
	if err != nil {
		return 0, fmt.Errorf("failed to average rating: %w", err)
	}
	return v, nil
}

// CountListensBetween counts releases with from <= listen_date < to.
func (l *Library) CountListensBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return l.countBetween(ctx, "listen_date", from, to)
}

// CountAddedBetween counts releases with from <= date_added < to.
func (l *Library) CountAddedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return l.countBetween(ctx, "date_added", from, to)
}

func (l *Library) countBetween(ctx context.Context, column string, from, to time.Time) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&music.Release{}).
		Where(column+" >= ? AND "+column+" < ?", from.UTC(), to.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count releases by %s: %w", column, err)
	}
	return count, nil
}

// RatedReleases returns the n highest (desc) or lowest (asc) rated releases.
func (l *Library) RatedReleases(ctx context.Context, n int, order music.SortOrder) ([]music.Release, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: number of releases must be positive, got %d", music.ErrValidation, n)
	}
	if _, err := music.ParseSortOrder(string(order)); err != nil {
		return nil, err
	}
	releases := []music.Release{}
	err := l.db.WithContext(ctx).Preload("Artist").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "rating"}, Desc: order == music.SortDesc}).
		Order("id ASC").
		Limit(n).Find(&releases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get rated releases: %w", err)
	}
	return releases, nil
}

// MostFrequent ranks artists or labels by release count, excluding sentinels.
func (l *Library) MostFrequent(ctx context.Context, t music.EntityType, n int) ([]music.EntityCount, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: number of entities must be positive, got %d", music.ErrValidation, n)
	}
	meta, err := partyMeta(t)
	if err != nil {
		return nil, err
	}
	counts := []music.EntityCount{}
	err = l.db.WithContext(ctx).Table("releases").
		Select(meta.table+".id AS id, "+meta.table+".name AS name, COUNT(releases.id) AS count").
		Joins("JOIN "+meta.table+" ON "+meta.table+".id = releases."+meta.refColumn).
		Where(meta.table+".name NOT IN ?", sentinelNames()).
		Group(meta.table + ".id, " + meta.table + ".name").
		Order("count DESC, id ASC").
		Limit(n).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank %s by frequency: %w", meta.table, err)
	}
	return counts, nil
}

// AverageRatings returns the average rating and release count of every
// artist or label with more than one release, excluding sentinels.
func (l *Library) AverageRatings(ctx context.Context, t music.EntityType) ([]music.EntityRating, error) {
	meta, err := partyMeta(t)
	if err != nil {
		return nil, err
	}
	ratings := []music.EntityRating{}
	err = l.db.WithContext(ctx).Table("releases").
		Select(meta.table+".id AS id, "+meta.table+".name AS name, AVG(releases.rating) AS average, COUNT(releases.id) AS count").
		Joins("JOIN "+meta.table+" ON "+meta.table+".id = releases."+meta.refColumn).
		Where(meta.table+".name NOT IN ?", sentinelNames()).
		Group(meta.table + ".id, " + meta.table + ".name").
		Having("COUNT(releases.id) > 1").
		Order("id ASC").
		Scan(&ratings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to average %s ratings: %w", meta.table, err)
	}
	return ratings, nil
}
