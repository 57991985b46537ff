package music

import (
	"fmt"
	"math"
	"time"
)

type GoalType string

const (
	GoalRelease GoalType = "release"
	GoalAlbum   GoalType = "album"
	GoalLabel   GoalType = "label"
)

// Goal is a target number of listens between Start and End.
type Goal struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Start     time.Time  `gorm:"not null" json:"start"`
	End       time.Time  `gorm:"not null" json:"end"`
	Completed *time.Time `json:"completed,omitempty"`
	Type      GoalType   `gorm:"not null" json:"type"`
	Amount    int        `gorm:"not null" json:"amount"`
	DateAdded time.Time  `gorm:"autoCreateTime" json:"date_added"`
}

// Validate validates the goal fields.
func (g *Goal) Validate() error {
	switch g.Type {
	case GoalRelease, GoalAlbum, GoalLabel:
	default:
		return fmt.Errorf("%w: unknown goal type %q", ErrValidation, g.Type)
	}
	if g.Amount <= 0 {
		return fmt.Errorf("%w: goal amount must be positive", ErrValidation)
	}
	if !g.End.After(g.Start) {
		return fmt.Errorf("%w: goal end must be after start", ErrValidation)
	}
	return nil
}

// IsComplete reports whether the goal has been marked complete.
func (g *Goal) IsComplete() bool { return g.Completed != nil }

// GoalProgress is the derived state of a goal at a point in time.
type GoalProgress struct {
	Goal      Goal    `json:"goal"`
	Current   int     `json:"current"`
	Progress  int     `json:"progress"`
	Remaining int     `json:"remaining"`
	DaysLeft  int     `json:"days_left"`
	Target    float64 `json:"target"`
}

// ComputeProgress derives the progress figures for g given the number of
// listens counted so far.
func ComputeProgress(g Goal, current int, now time.Time) GoalProgress {
	p := GoalProgress{Goal: g, Current: current}
	if g.Amount > 0 {
		p.Progress = int(math.Round(float64(current) / float64(g.Amount) * 100))
	}
	p.Remaining = g.Amount - current
	today := truncateDay(now)
	p.DaysLeft = int(truncateDay(g.End).Sub(today).Hours() / 24)
	if p.DaysLeft != 0 {
		p.Target = Round2(float64(p.Remaining) / float64(p.DaysLeft))
	}
	return p
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Round2 rounds to two decimals.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
