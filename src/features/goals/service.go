package goals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/listenlog/src/features/jobs"
	"github.com/contre95/listenlog/src/music"
)

// JobType is the job that re-evaluates incomplete goals in the background.
const JobType = "goal_check"

// Service tracks listening goals.
type Service struct {
	store music.GoalStore
	now   func() time.Time
}

func NewService(store music.GoalStore) *Service {
	return &Service{store: store, now: time.Now}
}

// AddGoal validates and stores a new goal.
func (s *Service) AddGoal(ctx context.Context, goal *music.Goal) error {
	slog.Debug("AddGoal service called", "type", goal.Type, "amount", goal.Amount)
	goal.Start = goal.Start.UTC()
	goal.End = goal.End.UTC()
	if err := goal.Validate(); err != nil {
		return err
	}
	if err := s.store.AddGoal(ctx, goal); err != nil {
		slog.Error("AddGoal failed", "error", err)
		return fmt.Errorf("failed to add goal: %w", err)
	}
	return nil
}

// Incomplete lists goals that have not been completed.
func (s *Service) Incomplete(ctx context.Context) ([]music.Goal, error) {
	goals, err := s.store.GetIncompleteGoals(ctx)
	if err != nil {
		slog.Error("Incomplete failed", "error", err)
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// Progress derives the progress of a goal from the listens since its start.
func (s *Service) Progress(ctx context.Context, goal music.Goal) (music.GoalProgress, error) {
	current, err := s.store.CountListensSince(ctx, goal.Start)
	if err != nil {
		return music.GoalProgress{}, fmt.Errorf("failed to count listens for goal %d: %w", goal.ID, err)
	}
	return music.ComputeProgress(goal, current, s.now()), nil
}

// IncompleteProgress returns the progress of every incomplete goal.
func (s *Service) IncompleteProgress(ctx context.Context) ([]music.GoalProgress, error) {
	goals, err := s.Incomplete(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]music.GoalProgress, 0, len(goals))
	for _, g := range goals {
		p, err := s.Progress(ctx, g)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CheckGoals marks incomplete release goals complete once enough releases
// have been listened to since their start. It returns the ids completed by
// this call. Other goal types are not evaluated.
func (s *Service) CheckGoals(ctx context.Context) ([]uint, error) {
	slog.Debug("CheckGoals service called")
	goals, err := s.Incomplete(ctx)
	if err != nil {
		return nil, err
	}
	completed := []uint{}
	for _, g := range goals {
		if g.Type != music.GoalRelease {
			continue
		}
		current, err := s.store.CountListensSince(ctx, g.Start)
		if err != nil {
			slog.Error("CheckGoals failed", "goal", g.ID, "error", err)
			return completed, fmt.Errorf("failed to count listens for goal %d: %w", g.ID, err)
		}
		if current < g.Amount {
			continue
		}
		ok, err := s.store.CompleteGoal(ctx, g.ID, s.now().UTC())
		if err != nil {
			slog.Error("CheckGoals failed", "goal", g.ID, "error", err)
			return completed, fmt.Errorf("failed to complete goal %d: %w", g.ID, err)
		}
		if ok {
			slog.Info("Goal completed", "goal", g.ID, "amount", g.Amount)
			completed = append(completed, g.ID)
		}
	}
	return completed, nil
}

// CheckTask runs CheckGoals as a background job.
type CheckTask struct {
	service *Service
}

var _ jobs.Task = (*CheckTask)(nil)

func NewCheckTask(service *Service) *CheckTask {
	return &CheckTask{service: service}
}

func (t *CheckTask) MetadataKeys() []string { return nil }

func (t *CheckTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	progressUpdater(10, "Checking goals")
	completed, err := t.service.CheckGoals(ctx)
	if err != nil {
		return nil, err
	}
	job.Logger.Info("Goals checked", "completed", len(completed))
	return map[string]any{"completed": completed}, nil
}

func (t *CheckTask) Cleanup(*jobs.Job) error { return nil }
