// internal/reaper/reaper_test.go
package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

func setupReaper(t *testing.T) (*Reaper, *store.Store) {
	t.Helper()

	registry := store.NewRegistry(t.TempDir())
	t.Cleanup(registry.CloseAll)

	s, err := registry.Get("default")
	if err != nil {
		t.Fatal(err)
	}

	r := New(registry, types.WorkflowConfig{
		ClaimedTimeoutHours:    12,
		InProgressTimeoutHours: 24,
		AssignedTimeoutHours:   24,
		ReapIntervalMinutes:    60,
	})
	return r, s
}

func seedTask(t *testing.T, s *store.Store, task *types.Task) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *store.Tx) error {
		return tx.SaveTask(task)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func getTask(t *testing.T, s *store.Store, id string) *types.Task {
	t.Helper()
	var task *types.Task
	err := s.View(context.Background(), func(tx *store.Tx) (err error) {
		task, err = tx.GetTask(id)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestReapStaleClaimedTask(t *testing.T) {
	r, s := setupReaper(t)
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	expires := now.Add(-12 * time.Hour)
	seedTask(t, s, &types.Task{
		ID:            "task-stale",
		Name:          "stuck",
		RequiredSkill: "go",
		Status:        types.StatusClaimed,
		TaskType:      types.TypeNormal,
		HunterID:      "hunter-a",
		LeaseID:       "lease-1",
		LeaseExpiresAt: &expires,
		CreatedAt:     now.Add(-14 * time.Hour),
		UpdatedAt:     now.Add(-13 * time.Hour),
	})
	seedTask(t, s, &types.Task{
		ID:            "task-fresh",
		Name:          "fine",
		RequiredSkill: "go",
		Status:        types.StatusClaimed,
		TaskType:      types.TypeNormal,
		HunterID:      "hunter-a",
		CreatedAt:     now.Add(-time.Hour),
		UpdatedAt:     now.Add(-time.Hour),
	})

	err := s.WithTx(context.Background(), func(tx *store.Tx) error {
		hunter := types.NewHunter("hunter-a", map[string]int{"go": 10}, now)
		hunter.CurrentTasks = []string{"task-stale", "task-fresh"}
		return tx.SaveHunter(hunter)
	})
	if err != nil {
		t.Fatal(err)
	}

	if n := r.ReapNamespace(context.Background(), s); n != 1 {
		t.Errorf("reaped %d tasks, want 1", n)
	}

	stale := getTask(t, s, "task-stale")
	if stale.Status != types.StatusFailed {
		t.Errorf("stale status = %s, want failed", stale.Status)
	}
	if stale.LeaseID != "" || stale.LeaseExpiresAt != nil {
		t.Error("lease not cleared on reap")
	}

	fresh := getTask(t, s, "task-fresh")
	if fresh.Status != types.StatusClaimed {
		t.Errorf("fresh status = %s, want untouched claimed", fresh.Status)
	}

	err = s.View(context.Background(), func(tx *store.Tx) error {
		hunter, err := tx.GetHunter("hunter-a")
		if err != nil {
			return err
		}
		if hunter.FailedTasks != 1 {
			t.Errorf("failed_tasks = %d, want 1", hunter.FailedTasks)
		}
		if len(hunter.CurrentTasks) != 1 || hunter.CurrentTasks[0] != "task-fresh" {
			t.Errorf("current_tasks = %v", hunter.CurrentTasks)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestReapStaleInProgressTask(t *testing.T) {
	r, s := setupReaper(t)
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	seedTask(t, s, &types.Task{
		ID:            "task-silent",
		Name:          "no updates",
		RequiredSkill: "go",
		Status:        types.StatusInProgress,
		TaskType:      types.TypeNormal,
		HunterID:      "hunter-a",
		CreatedAt:     now.Add(-30 * time.Hour),
		UpdatedAt:     now.Add(-25 * time.Hour),
	})
	// 23h silent stays under the 24h threshold
	seedTask(t, s, &types.Task{
		ID:            "task-alive",
		Name:          "still working",
		RequiredSkill: "go",
		Status:        types.StatusInProgress,
		TaskType:      types.TypeNormal,
		HunterID:      "hunter-a",
		CreatedAt:     now.Add(-30 * time.Hour),
		UpdatedAt:     now.Add(-23 * time.Hour),
	})

	if n := r.ReapNamespace(context.Background(), s); n != 1 {
		t.Errorf("reaped %d tasks, want 1", n)
	}
	if got := getTask(t, s, "task-silent").Status; got != types.StatusFailed {
		t.Errorf("silent status = %s, want failed", got)
	}
	if got := getTask(t, s, "task-alive").Status; got != types.StatusInProgress {
		t.Errorf("alive status = %s, want in_progress", got)
	}
}

func TestEscalateAssignedReRoutes(t *testing.T) {
	r, s := setupReaper(t)
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	seedTask(t, s, &types.Task{
		ID:            "task-routed",
		Name:          "evaluate something",
		RequiredSkill: "report_evaluation",
		Status:        types.StatusPending,
		TaskType:      types.TypeEvaluation,
		AssigneeID:    "hunter-slow",
		Priority:      5,
		CreatedAt:     now.Add(-30 * time.Hour),
		UpdatedAt:     now.Add(-25 * time.Hour),
	})

	err := s.WithTx(context.Background(), func(tx *store.Tx) error {
		if err := tx.SaveHunter(types.NewHunter("hunter-slow", map[string]int{"report_evaluation": 50}, now)); err != nil {
			return err
		}
		return tx.SaveHunter(types.NewHunter("hunter-next", map[string]int{"report_evaluation": 40}, now))
	})
	if err != nil {
		t.Fatal(err)
	}

	if n := r.ReapNamespace(context.Background(), s); n != 1 {
		t.Errorf("escalated %d tasks, want 1", n)
	}

	task := getTask(t, s, "task-routed")
	if task.AssigneeID != "hunter-next" {
		t.Errorf("assignee = %q, want hunter-next", task.AssigneeID)
	}
	if task.Priority != 5 {
		t.Errorf("priority = %d, re-route must not change it", task.Priority)
	}
	if task.Status != types.StatusPending {
		t.Errorf("status = %s, want still pending", task.Status)
	}
}

func TestEscalateAssignedUnassignsAndBumpsPriority(t *testing.T) {
	r, s := setupReaper(t)
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	seedTask(t, s, &types.Task{
		ID:            "task-routed",
		Name:          "evaluate something",
		RequiredSkill: "report_evaluation",
		Status:        types.StatusPending,
		TaskType:      types.TypeEvaluation,
		AssigneeID:    "hunter-slow",
		Priority:      5,
		CreatedAt:     now.Add(-30 * time.Hour),
		UpdatedAt:     now.Add(-25 * time.Hour),
	})

	// the stale assignee is the only hunter with the skill
	err := s.WithTx(context.Background(), func(tx *store.Tx) error {
		return tx.SaveHunter(types.NewHunter("hunter-slow", map[string]int{"report_evaluation": 50}, now))
	})
	if err != nil {
		t.Fatal(err)
	}

	if n := r.ReapNamespace(context.Background(), s); n != 1 {
		t.Errorf("escalated %d tasks, want 1", n)
	}

	task := getTask(t, s, "task-routed")
	if task.AssigneeID != "" {
		t.Errorf("assignee = %q, want cleared", task.AssigneeID)
	}
	if task.Priority != 15 {
		t.Errorf("priority = %d, want 15 after bump", task.Priority)
	}
}

func TestReapAllFindsNamespacesFromPreviousRun(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

	// first process: a non-default namespace accumulates a stale task
	first := store.NewRegistry(dir)
	s, err := first.Get("team-alpha")
	if err != nil {
		t.Fatal(err)
	}
	seedTask(t, s, &types.Task{
		ID:            "task-stale",
		Name:          "stuck",
		RequiredSkill: "go",
		Status:        types.StatusClaimed,
		TaskType:      types.TypeNormal,
		HunterID:      "hunter-a",
		CreatedAt:     now.Add(-14 * time.Hour),
		UpdatedAt:     now.Add(-13 * time.Hour),
	})
	first.CloseAll()

	// second process: nothing has touched team-alpha yet
	second := store.NewRegistry(dir)
	t.Cleanup(second.CloseAll)
	r := New(second, types.WorkflowConfig{
		ClaimedTimeoutHours:    12,
		InProgressTimeoutHours: 24,
		AssignedTimeoutHours:   24,
		ReapIntervalMinutes:    60,
	})
	r.now = func() time.Time { return now }

	r.ReapAll(context.Background())

	s, err = second.Get("team-alpha")
	if err != nil {
		t.Fatal(err)
	}
	if got := getTask(t, s, "task-stale").Status; got != types.StatusFailed {
		t.Errorf("stale status = %s, want failed after restart", got)
	}
}

func TestReapIgnoresUnassignedPending(t *testing.T) {
	r, s := setupReaper(t)
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	seedTask(t, s, &types.Task{
		ID:            "task-pool",
		Name:          "waiting for claims",
		RequiredSkill: "go",
		Status:        types.StatusPending,
		TaskType:      types.TypeNormal,
		CreatedAt:     now.Add(-100 * time.Hour),
		UpdatedAt:     now.Add(-100 * time.Hour),
	})

	if n := r.ReapNamespace(context.Background(), s); n != 0 {
		t.Errorf("reaped %d tasks, want 0; pool tasks have no deadline", n)
	}
}
