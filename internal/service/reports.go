// internal/service/reports.go
package service

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/taskhub/taskhub/internal/ids"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// EvalSpawn controls the automatic evaluation-task workflow
type EvalSpawn struct {
	// Enabled gates the whole workflow
	Enabled bool
	// MinPriority: only tasks at or above this priority spawn an
	// evaluation task
	MinPriority int
	// Skill used for the evaluation task and the evaluator search;
	// empty inherits the parent task's required skill
	Skill string
}

// SubmitReport records a report for a task and moves the task to its
// terminal status. For NORMAL tasks it also spawns the evaluation task,
// routed to the best-match evaluator, inside the same transaction: an
// observer never sees the report without its evaluation task.
// Returns the report and the spawned evaluation task, if any.
func SubmitReport(tx *store.Tx, taskID, hunterID string, status types.TaskStatus, result, details string, spawn EvalSpawn, now time.Time) (*types.Report, *types.Task, error) {
	if status != types.StatusCompleted && status != types.StatusFailed {
		return nil, nil, fmt.Errorf("%w: report status must be completed or failed, got %s", ErrState, status)
	}

	task, err := tx.GetTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if task.HunterID != hunterID {
		return nil, nil, fmt.Errorf("%w: task %s belongs to %s", ErrOwner, taskID, task.HunterID)
	}

	report := &types.Report{
		ID:        ids.New(ids.KindReport),
		TaskID:    taskID,
		HunterID:  hunterID,
		Status:    status,
		Result:    result,
		Details:   details,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.SaveReport(report); err != nil {
		return nil, nil, err
	}

	switch {
	case task.CanTransition(status):
		task.Status = status
		task.Result = result
		task.LeaseID = ""
		task.LeaseExpiresAt = nil
		task.UpdatedAt = now
		if err := tx.SaveTask(task); err != nil {
			return nil, nil, err
		}
		if err := settleHunterTask(tx, task, now); err != nil {
			return nil, nil, err
		}
	case task.Status == status:
		// already settled via CompleteTask; the report just attaches
	default:
		return nil, nil, fmt.Errorf("%w: task %s is %s, report says %s", ErrState, taskID, task.Status, status)
	}

	var evalTask *types.Task
	if spawn.Enabled && task.TaskType == types.TypeNormal && task.Priority >= spawn.MinPriority {
		evalTask, err = spawnEvaluationTask(tx, task, report, spawn, now)
		if err != nil {
			return nil, nil, err
		}
	}
	return report, evalTask, nil
}

// spawnEvaluationTask creates the system-published EVALUATION task for a
// report and pre-routes it to the best-match evaluator when one exists.
func spawnEvaluationTask(tx *store.Tx, parent *types.Task, report *types.Report, spawn EvalSpawn, now time.Time) (*types.Task, error) {
	skill := spawn.Skill
	if skill == "" {
		skill = parent.RequiredSkill
	}

	evaluator, err := FindBestHunter(tx, skill, []string{report.HunterID})
	if err != nil {
		return nil, err
	}
	assigneeID := ""
	if evaluator != nil {
		assigneeID = evaluator.ID
	}

	evalTask := &types.Task{
		ID:                  ids.New(ids.KindTask),
		Name:                fmt.Sprintf("Evaluate report for: %s", parent.Name),
		Details:             fmt.Sprintf("Review report %s for task %s and score it.", report.ID, parent.ID),
		RequiredSkill:       skill,
		Status:              types.StatusPending,
		Priority:            parent.Priority,
		TaskType:            types.TypeEvaluation,
		AssigneeID:          assigneeID,
		PublishedByHunterID: types.SystemPublisher,
		ParentTaskID:        parent.ID,
		ReportID:            report.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.SaveTask(evalTask); err != nil {
		return nil, err
	}
	return evalTask, nil
}

// EvaluateReport records a peer evaluation and applies the reputation
// and skill movement to the submitting hunter. Gains are boosted by the
// task's priority: bonus = 1 + priority/100.
func EvaluateReport(tx *store.Tx, reportID, evaluatorID string, score int, feedback string, skillUpdates map[string]int, now time.Time) (*types.Report, error) {
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: score %d out of range [0,100]", ErrState, score)
	}

	report, err := tx.GetReport(reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: report %s", ErrNotFound, reportID)
	}
	if report.HunterID == evaluatorID {
		return nil, fmt.Errorf("%w: report %s", ErrSelfEval, reportID)
	}

	evalID := ids.New(ids.KindEval)
	report.Evaluation = &types.ReportEvaluation{
		ID:           evalID,
		Score:        score,
		Feedback:     feedback,
		EvaluatorID:  evaluatorID,
		SkillUpdates: skillUpdates,
		EvaluatedAt:  now,
	}
	report.UpdatedAt = now
	if err := tx.SaveReport(report); err != nil {
		return nil, err
	}

	task, err := tx.GetTask(report.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		log.Printf("[REPORT] Task %s not found for evaluated report %s", report.TaskID, report.ID)
		return report, nil
	}

	// mirror the evaluation onto the task (denormalized; report is canonical)
	task.Evaluation = &types.TaskEvaluation{
		ID:           evalID,
		Score:        score,
		Feedback:     feedback,
		EvaluatorID:  evaluatorID,
		SkillUpdates: skillUpdates,
		EvaluatedAt:  now,
	}
	task.UpdatedAt = now
	if err := tx.SaveTask(task); err != nil {
		return nil, err
	}

	hunter, err := tx.GetHunter(report.HunterID)
	if err != nil {
		return nil, err
	}
	if hunter == nil {
		log.Printf("[REPORT] Hunter %s not found for evaluated report %s", report.HunterID, report.ID)
		return report, nil
	}

	bonus := 1 + float64(task.Priority)/100.0
	hunter.Reputation += int(math.Floor(float64(score) / 10 * bonus))
	if hunter.Reputation < 0 {
		hunter.Reputation = 0
	}
	for skill, delta := range skillUpdates {
		gain := int(math.Floor(float64(delta) * bonus))
		hunter.Skills[skill] = clampSkill(hunter.Skills[skill] + gain)
	}
	hunter.UpdatedAt = now
	if err := tx.SaveHunter(hunter); err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns reports matching the filter
func ListReports(tx *store.Tx, f types.ReportFilter) ([]*types.Report, error) {
	return tx.ListReports(f)
}
