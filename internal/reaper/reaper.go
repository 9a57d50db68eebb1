// internal/reaper/reaper.go
package reaper

import (
	"context"
	"log"
	"time"

	"github.com/taskhub/taskhub/internal/ids"
	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// Reaper periodically fails timed-out claimed and in-progress tasks and
// escalates routed tasks nobody has claimed. Policy for stale claims is
// fail (not un-assign); the alternative un-assign-and-bump policy applies
// only to assignee escalation, where the task is still pending.
type Reaper struct {
	registry *store.Registry

	interval          time.Duration
	claimedTimeout    time.Duration
	inProgressTimeout time.Duration
	assignedTimeout   time.Duration

	// now is swappable for tests
	now func() time.Time
}

// New creates a reaper over every namespace in the registry's data dir
func New(registry *store.Registry, cfg types.WorkflowConfig) *Reaper {
	return &Reaper{
		registry:          registry,
		interval:          cfg.ReapInterval(),
		claimedTimeout:    cfg.ClaimedTimeout(),
		inProgressTimeout: cfg.InProgressTimeout(),
		assignedTimeout:   cfg.AssignedTimeout(),
		now:               ids.Now,
	}
}

// Start runs the scan loop until the context is cancelled
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Println("[REAPER] Stale-task reaper started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[REAPER] Stale-task reaper stopped")
			return
		case <-ticker.C:
			r.ReapAll(ctx)
		}
	}
}

// ReapAll scans every namespace known to the registry, including store
// files left on disk by a previous run.
func (r *Reaper) ReapAll(ctx context.Context) {
	for _, ns := range r.registry.Namespaces() {
		s, err := r.registry.Get(ns)
		if err != nil {
			log.Printf("[REAPER] Error getting store for %q: %v", ns, err)
			continue
		}
		if n := r.ReapNamespace(ctx, s); n > 0 {
			log.Printf("[REAPER] Namespace %q: transitioned %d stale tasks", ns, n)
		}
	}
}

// ReapNamespace scans one namespace and returns how many tasks changed.
// Each transition is its own write; the scan holds no user transaction.
func (r *Reaper) ReapNamespace(ctx context.Context, s *store.Store) int {
	now := r.now()
	count := 0
	count += r.failStale(ctx, s, types.StatusInProgress, now.Add(-r.inProgressTimeout), now)
	count += r.failStale(ctx, s, types.StatusClaimed, now.Add(-r.claimedTimeout), now)
	count += r.escalateAssigned(ctx, s, now.Add(-r.assignedTimeout), now)
	return count
}

// failStale fails every task in the given status not updated since cutoff
func (r *Reaper) failStale(ctx context.Context, s *store.Store, status types.TaskStatus, cutoff, now time.Time) int {
	var stale []*types.Task
	err := s.View(ctx, func(tx *store.Tx) error {
		tasks, err := tx.ListTasks(types.TaskFilter{Status: status})
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.UpdatedAt.Before(cutoff) {
				stale = append(stale, t)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[REAPER] Error scanning %s tasks: %v", status, err)
		return 0
	}

	count := 0
	for _, t := range stale {
		err := s.WithTx(ctx, func(tx *store.Tx) error {
			task, err := tx.GetTask(t.ID)
			if err != nil {
				return err
			}
			// re-check under the transaction; the task may have moved
			if task == nil || task.Status != status || !task.UpdatedAt.Before(cutoff) {
				return nil
			}
			task.Status = types.StatusFailed
			task.LeaseID = ""
			task.LeaseExpiresAt = nil
			task.UpdatedAt = now
			if err := tx.SaveTask(task); err != nil {
				return err
			}
			count++
			log.Printf("[REAPER] Task %s timed out in %s, marked failed", task.ID, status)
			return settleHunter(tx, task, now)
		})
		if err != nil {
			log.Printf("[REAPER] Error failing task %s: %v", t.ID, err)
		}
	}
	return count
}

// escalateAssigned handles routed-but-unclaimed tasks: re-route to the
// next best hunter, or un-assign and raise priority by 10 so the task
// returns to the public pool with more weight.
func (r *Reaper) escalateAssigned(ctx context.Context, s *store.Store, cutoff, now time.Time) int {
	var stale []*types.Task
	err := s.View(ctx, func(tx *store.Tx) error {
		tasks, err := tx.ListTasks(types.TaskFilter{Status: types.StatusPending})
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.AssigneeID != "" && t.UpdatedAt.Before(cutoff) {
				stale = append(stale, t)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[REAPER] Error scanning assigned tasks: %v", err)
		return 0
	}

	count := 0
	for _, t := range stale {
		err := s.WithTx(ctx, func(tx *store.Tx) error {
			task, err := tx.GetTask(t.ID)
			if err != nil {
				return err
			}
			if task == nil || task.Status != types.StatusPending || task.AssigneeID == "" || !task.UpdatedAt.Before(cutoff) {
				return nil
			}

			next, err := service.FindBestHunter(tx, task.RequiredSkill, []string{task.AssigneeID})
			if err != nil {
				return err
			}
			if next != nil {
				log.Printf("[REAPER] Task %s re-routed from %s to %s", task.ID, task.AssigneeID, next.ID)
				task.AssigneeID = next.ID
			} else {
				log.Printf("[REAPER] Task %s un-assigned from %s, priority raised", task.ID, task.AssigneeID)
				task.AssigneeID = ""
				task.Priority += 10
			}
			task.UpdatedAt = now
			if err := tx.SaveTask(task); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			log.Printf("[REAPER] Error escalating task %s: %v", t.ID, err)
		}
	}
	return count
}

// settleHunter mirrors service bookkeeping for reaper-failed tasks
func settleHunter(tx *store.Tx, task *types.Task, now time.Time) error {
	if task.HunterID == "" {
		return nil
	}
	hunter, err := tx.GetHunter(task.HunterID)
	if err != nil || hunter == nil {
		return err
	}
	hunter.DropCurrentTask(task.ID)
	hunter.FailedTasks++
	hunter.UpdatedAt = now
	return tx.SaveHunter(hunter)
}
