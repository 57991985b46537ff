package goals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/contre95/listenlog/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGoalStore is an in-memory music.GoalStore
type MockGoalStore struct {
	music.GoalStore // Embed interface, unused methods panic
	mu              sync.Mutex
	goals           []music.Goal
	listens         []time.Time
	completeCalls   int
}

func (m *MockGoalStore) AddGoal(_ context.Context, g *music.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = uint(len(m.goals) + 1)
	m.goals = append(m.goals, *g)
	return nil
}

func (m *MockGoalStore) GetIncompleteGoals(context.Context) ([]music.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []music.Goal
	for _, g := range m.goals {
		if g.Completed == nil {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MockGoalStore) CountListensSince(_ context.Context, since time.Time) (int, error) {
	n := 0
	for _, l := range m.listens {
		if !l.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockGoalStore) CompleteGoal(_ context.Context, id uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	for i := range m.goals {
		if m.goals[i].ID == id && m.goals[i].Completed == nil {
			m.goals[i].Completed = &at
			return true, nil
		}
	}
	return false, nil
}

var today = time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)

func newTestService(store *MockGoalStore) *Service {
	s := NewService(store)
	s.now = func() time.Time { return today }
	return s
}

func day(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func TestAddGoal_Validates(t *testing.T) {
	s := newTestService(&MockGoalStore{})
	ctx := context.Background()

	err := s.AddGoal(ctx, &music.Goal{Start: day(3, 1), End: day(4, 1), Type: "track", Amount: 5})
	assert.ErrorIs(t, err, music.ErrValidation)
	err = s.AddGoal(ctx, &music.Goal{Start: day(3, 1), End: day(4, 1), Type: music.GoalRelease, Amount: 0})
	assert.ErrorIs(t, err, music.ErrValidation)
	err = s.AddGoal(ctx, &music.Goal{Start: day(4, 1), End: day(3, 1), Type: music.GoalRelease, Amount: 5})
	assert.ErrorIs(t, err, music.ErrValidation)

	g := &music.Goal{Start: day(3, 1), End: day(4, 1), Type: music.GoalAlbum, Amount: 5}
	require.NoError(t, s.AddGoal(ctx, g))
	assert.NotZero(t, g.ID)
}

func TestCheckGoals_CompletesReleaseGoalsOnce(t *testing.T) {
	store := &MockGoalStore{listens: []time.Time{day(2, 20), day(3, 2), day(3, 5), day(3, 9)}}
	s := newTestService(store)
	ctx := context.Background()

	reached := &music.Goal{Start: day(3, 1), End: day(3, 31), Type: music.GoalRelease, Amount: 3}
	short := &music.Goal{Start: day(3, 1), End: day(3, 31), Type: music.GoalRelease, Amount: 4}
	album := &music.Goal{Start: day(1, 1), End: day(3, 31), Type: music.GoalAlbum, Amount: 1}
	for _, g := range []*music.Goal{reached, short, album} {
		require.NoError(t, s.AddGoal(ctx, g))
	}

	completed, err := s.CheckGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{reached.ID}, completed)

	// A second pass has nothing left to complete.
	completed, err = s.CheckGoals(ctx)
	require.NoError(t, err)
	assert.Empty(t, completed)
	assert.Equal(t, 1, store.completeCalls)

	left, err := s.Incomplete(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestProgress(t *testing.T) {
	store := &MockGoalStore{listens: []time.Time{day(3, 2), day(3, 5)}}
	s := newTestService(store)

	p, err := s.Progress(context.Background(), music.Goal{Start: day(3, 1), End: day(3, 20), Type: music.GoalRelease, Amount: 8})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Current)
	assert.Equal(t, 25, p.Progress)
	assert.Equal(t, 6, p.Remaining)
	assert.Equal(t, 10, p.DaysLeft)
	assert.Equal(t, 0.6, p.Target)

	p, err = s.Progress(context.Background(), music.Goal{Start: day(3, 1), End: day(3, 10), Type: music.GoalRelease, Amount: 3})
	require.NoError(t, err)
	assert.Zero(t, p.DaysLeft)
	assert.Zero(t, p.Target)
}

func TestGoalRequest(t *testing.T) {
	g, err := GoalRequest{Start: "2024-01-01", End: "2024-12-31", Type: "release", Amount: 52}.Goal()
	require.NoError(t, err)
	assert.Equal(t, day(1, 1), g.Start)
	assert.Equal(t, music.GoalRelease, g.Type)

	_, err = GoalRequest{Start: "01/01/2024", End: "2024-12-31"}.Goal()
	assert.ErrorIs(t, err, music.ErrValidation)
	assert.Error(t, validate.Struct(GoalRequest{Start: "2024-01-01", End: "2024-12-31", Type: "track", Amount: 1}))
}
