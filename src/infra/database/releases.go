package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/contre95/listenlog/src/music"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var byTimestamp = clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}

// AddRelease inserts a release and links it, its artist and its label to
// genreIDs in one transaction. Existing links are left as they are.
func (l *Library) AddRelease(ctx context.Context, release *music.Release, genreIDs []uint) error {
	if err := release.Validate(); err != nil {
		return err
	}
	release.ListenDate = release.ListenDate.UTC()
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(release).Error; err != nil {
			return err
		}
		ignore := clause.OnConflict{DoNothing: true}
		if err := tx.Clauses(ignore).Create(&music.LabelArtist{LabelID: release.LabelID, ArtistID: release.ArtistID}).Error; err != nil {
			return err
		}
		for _, gid := range genreIDs {
			if err := tx.Clauses(ignore).Create(&music.ReleaseGenre{ReleaseID: release.ID, GenreID: gid}).Error; err != nil {
				return err
			}
			if err := tx.Clauses(ignore).Create(&music.ArtistGenre{ArtistID: release.ArtistID, GenreID: gid}).Error; err != nil {
				return err
			}
			if err := tx.Clauses(ignore).Create(&music.LabelGenre{LabelID: release.LabelID, GenreID: gid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add release: %w", translateError(err))
	}
	return nil
}

// GetRelease returns a release with its artist, label, main genre and reviews.
func (l *Library) GetRelease(ctx context.Context, id uint) (*music.Release, error) {
	var r music.Release
	err := l.db.WithContext(ctx).
		Preload("Artist").Preload("Label").Preload("MainGenre").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order(byTimestamp).Order("id ASC") }).
		First(&r, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get release %d: %w", id, translateError(err))
	}
	return &r, nil
}

// UpdateRelease applies update to the stored release and returns the result.
func (l *Library) UpdateRelease(ctx context.Context, id uint, update music.ReleaseUpdate) (*music.Release, error) {
	var r music.Release
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&r, id).Error; err != nil {
			return err
		}
		update.Apply(&r)
		r.Name = strings.TrimSpace(r.Name)
		r.ListenDate = r.ListenDate.UTC()
		if err := r.Validate(); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&r).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update release %d: %w", id, translateError(err))
	}
	return &r, nil
}

// DeleteRelease removes a release together with its reviews and genre links.
func (l *Library) DeleteRelease(ctx context.Context, id uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("release_id = ?", id).Delete(&music.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("release_id = ?", id).Delete(&music.ReleaseGenre{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&music.Release{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("release %d: %w", id, music.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete release: %w", translateError(err))
	}
	return nil
}

// FindOrCreateGenre matches a genre by exact name, inserting it if missing.
func (l *Library) FindOrCreateGenre(ctx context.Context, name string) (*music.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: genre name cannot be empty", music.ErrValidation)
	}
	g := music.Genre{Name: name}
	if err := l.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&g).Error; err != nil {
		return nil, fmt.Errorf("failed to find or create genre %q: %w", name, translateError(err))
	}
	return &g, nil
}

func (l *Library) AddReview(ctx context.Context, review *music.Review) error {
	if strings.TrimSpace(review.Text) == "" {
		return fmt.Errorf("%w: review text cannot be empty", music.ErrValidation)
	}
	var count int64
	if err := l.db.WithContext(ctx).Model(&music.Release{}).Where("id = ?", review.ReleaseID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check release: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("release %d: %w", review.ReleaseID, music.ErrNotFound)
	}
	review.Timestamp = review.Timestamp.UTC()
	if err := l.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to add review: %w", translateError(err))
	}
	return nil
}

func (l *Library) GetReviews(ctx context.Context, releaseID uint) ([]music.Review, error) {
	var reviews []music.Review
	err := l.db.WithContext(ctx).Where("release_id = ?", releaseID).Order(byTimestamp).Order("id ASC").Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	return reviews, nil
}
