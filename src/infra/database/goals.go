package database

import (
	"context"
	"fmt"
	"time"

	"github.com/contre95/listenlog/src/music"
)

func (l *Library) AddGoal(ctx context.Context, goal *music.Goal) error {
	if err := goal.Validate(); err != nil {
		return err
	}
	goal.Start, goal.End = goal.Start.UTC(), goal.End.UTC()
	if err := l.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("failed to add goal: %w", translateError(err))
	}
	return nil
}

// GetIncompleteGoals returns goals whose completed date is unset, oldest first.
func (l *Library) GetIncompleteGoals(ctx context.Context) ([]music.Goal, error) {
	goals := []music.Goal{}
	if err := l.db.WithContext(ctx).Where("completed IS NULL").Order("id ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to get incomplete goals: %w", err)
	}
	return goals, nil
}

func (l *Library) CountListensSince(ctx context.Context, since time.Time) (int, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&music.Release{}).Where("listen_date >= ?", since.UTC()).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count listens: %w", err)
	}
	return int(count), nil
}

// CompleteGoal sets the completed date only if it is still unset.
func (l *Library) CompleteGoal(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := l.db.WithContext(ctx).Model(&music.Goal{}).
		Where("id = ? AND completed IS NULL", id).
		Update("completed", at.UTC())
	if res.Error != nil {
		return false, fmt.Errorf("failed to complete goal %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
