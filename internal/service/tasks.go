// internal/service/tasks.go
package service

import (
	"fmt"
	"time"

	"github.com/taskhub/taskhub/internal/ids"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// leaseDuration bounds how long a claimed task may wait before start
const leaseDuration = time.Hour

// PublishParams are the inputs to PublishTask
type PublishParams struct {
	Name          string
	Details       string
	RequiredSkill string
	PublisherID   string
	DependsOn     []string
	TaskType      types.TaskType
	ParentTaskID  string
	ReportID      string
	AssigneeID    string
}

// PublishTask creates a new pending task. Priority derives from the
// publisher's reputation (reputation/10, floored); system-published
// tasks inherit their priority from the caller via spawn logic and
// otherwise default to 0.
func PublishTask(tx *store.Tx, p PublishParams, now time.Time) (*types.Task, error) {
	if p.Name == "" || p.RequiredSkill == "" {
		return nil, fmt.Errorf("%w: task name and required skill are required", ErrState)
	}

	priority := 0
	if p.PublisherID != types.SystemPublisher {
		publisher, err := tx.GetHunter(p.PublisherID)
		if err != nil {
			return nil, err
		}
		if publisher == nil {
			return nil, fmt.Errorf("%w: publisher %s", ErrNotFound, p.PublisherID)
		}
		priority = publisher.Reputation / 10
	}

	taskType := p.TaskType
	if taskType == "" {
		taskType = types.TypeNormal
	}

	task := &types.Task{
		ID:                  ids.New(ids.KindTask),
		Name:                p.Name,
		Details:             p.Details,
		RequiredSkill:       p.RequiredSkill,
		Status:              types.StatusPending,
		Priority:            priority,
		TaskType:            taskType,
		AssigneeID:          p.AssigneeID,
		PublishedByHunterID: p.PublisherID,
		DependsOn:           p.DependsOn,
		ParentTaskID:        p.ParentTaskID,
		ReportID:            p.ReportID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ClaimTask transitions a pending task to claimed under a one-hour lease.
// The read-modify-write runs inside the caller's transaction, so of two
// racing claims exactly one observes pending.
func ClaimTask(tx *store.Tx, taskID, hunterID string, now time.Time) (*types.Task, error) {
	task, err := tx.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if task.Status != types.StatusPending {
		return nil, fmt.Errorf("%w: task %s is %s, not pending", ErrState, taskID, task.Status)
	}
	if task.PublishedByHunterID == hunterID {
		return nil, fmt.Errorf("%w: task %s", ErrSelfClaim, taskID)
	}

	hunter, err := tx.GetHunter(hunterID)
	if err != nil {
		return nil, err
	}
	if hunter == nil {
		return nil, fmt.Errorf("%w: hunter %s", ErrNotFound, hunterID)
	}
	if !hunter.HasSkill(task.RequiredSkill) {
		return nil, fmt.Errorf("%w: %s requires %s", ErrSkill, taskID, task.RequiredSkill)
	}

	expires := now.Add(leaseDuration)
	task.Status = types.StatusClaimed
	task.HunterID = hunterID
	task.LeaseID = ids.New(ids.KindLease)
	task.LeaseExpiresAt = &expires
	task.UpdatedAt = now
	if err := tx.SaveTask(task); err != nil {
		return nil, err
	}

	hunter.CurrentTasks = append(hunter.CurrentTasks, task.ID)
	hunter.UpdatedAt = now
	if err := tx.SaveHunter(hunter); err != nil {
		return nil, err
	}
	return task, nil
}

// StartTask moves a claimed task to in_progress. The lease only bounds
// the claimed phase, so its fields are cleared here.
func StartTask(tx *store.Tx, taskID, hunterID string, now time.Time) (*types.Task, error) {
	task, err := tx.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if task.HunterID != hunterID {
		return nil, fmt.Errorf("%w: task %s belongs to %s", ErrOwner, taskID, task.HunterID)
	}
	if task.Status != types.StatusClaimed {
		return nil, fmt.Errorf("%w: task %s is %s, not claimed", ErrState, taskID, task.Status)
	}

	task.Status = types.StatusInProgress
	task.LeaseID = ""
	task.LeaseExpiresAt = nil
	task.UpdatedAt = now
	if err := tx.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask moves an in-progress task to a terminal status. The result
// is stored on the task as a denormalized copy; the report is canonical.
func CompleteTask(tx *store.Tx, taskID, hunterID, result string, final types.TaskStatus, now time.Time) (*types.Task, error) {
	if final != types.StatusCompleted && final != types.StatusFailed {
		return nil, fmt.Errorf("%w: final status must be completed or failed, got %s", ErrState, final)
	}

	task, err := tx.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if task.HunterID != hunterID {
		return nil, fmt.Errorf("%w: task %s belongs to %s", ErrOwner, taskID, task.HunterID)
	}
	if task.Status != types.StatusInProgress {
		return nil, fmt.Errorf("%w: task %s is %s, not in_progress", ErrState, taskID, task.Status)
	}

	task.Status = final
	task.Result = result
	task.UpdatedAt = now
	if err := tx.SaveTask(task); err != nil {
		return nil, err
	}
	if err := settleHunterTask(tx, task, now); err != nil {
		return nil, err
	}
	return task, nil
}

// ArchiveTask moves a terminal task to archived
func ArchiveTask(tx *store.Tx, taskID string, now time.Time) (*types.Task, error) {
	task, err := tx.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if task.Status != types.StatusCompleted && task.Status != types.StatusFailed {
		return nil, fmt.Errorf("%w: task %s is %s, must be completed or failed", ErrState, taskID, task.Status)
	}

	task.Status = types.StatusArchived
	task.IsArchived = true
	task.UpdatedAt = now
	if err := tx.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask hard-deletes a task. Claimed and in-progress tasks are
// protected unless force is set.
func DeleteTask(tx *store.Tx, taskID string, force bool, now time.Time) error {
	task, err := tx.GetTask(taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if !force && (task.Status == types.StatusClaimed || task.Status == types.StatusInProgress) {
		return fmt.Errorf("%w: task %s is %s; use force to delete", ErrState, taskID, task.Status)
	}

	// a deleted active task must leave the owner's current list; the
	// counters stay untouched, nothing was finished
	if task.HunterID != "" && !task.IsTerminal() {
		hunter, err := tx.GetHunter(task.HunterID)
		if err != nil {
			return err
		}
		if hunter != nil {
			hunter.DropCurrentTask(task.ID)
			hunter.UpdatedAt = now
			if err := tx.SaveHunter(hunter); err != nil {
				return err
			}
		}
	}
	return tx.DeleteTask(taskID)
}

// ListTasks returns tasks matching all supplied filters
func ListTasks(tx *store.Tx, f types.TaskFilter) ([]*types.Task, error) {
	return tx.ListTasks(f)
}

// settleHunterTask updates the owning hunter's bookkeeping when a task
// reaches a terminal status: the task leaves current_tasks and the
// matching counter is bumped.
func settleHunterTask(tx *store.Tx, task *types.Task, now time.Time) error {
	if task.HunterID == "" {
		return nil
	}
	hunter, err := tx.GetHunter(task.HunterID)
	if err != nil {
		return err
	}
	if hunter == nil {
		return nil
	}

	hunter.DropCurrentTask(task.ID)
	switch task.Status {
	case types.StatusCompleted:
		hunter.CompletedTasks++
	case types.StatusFailed:
		hunter.FailedTasks++
	}
	hunter.UpdatedAt = now
	return tx.SaveHunter(hunter)
}
