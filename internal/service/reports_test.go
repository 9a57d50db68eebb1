// internal/service/reports_test.go
package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/taskhub/taskhub/internal/ids"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// publishAndWork drives a task to in_progress for hunter-work
func publishAndWork(t *testing.T, s *store.Store, publisher string) *types.Task {
	t.Helper()

	var task *types.Task
	write(t, s, func(tx *store.Tx) (err error) {
		task, err = PublishTask(tx, PublishParams{Name: "Build the indexer", RequiredSkill: "python", PublisherID: publisher}, testNow())
		if err != nil {
			return err
		}
		if task, err = ClaimTask(tx, task.ID, "hunter-work", testNow()); err != nil {
			return err
		}
		task, err = StartTask(tx, task.ID, "hunter-work", testNow())
		return err
	})
	return task
}

func TestSubmitReportSpawnsEvaluationTask(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-pub", nil, 57)
	seedHunter(t, s, "hunter-work", map[string]int{"python": 80}, 0)
	seedHunter(t, s, "hunter-eval", map[string]int{"report_evaluation": 60}, 20)
	task := publishAndWork(t, s, "hunter-pub")

	spawn := EvalSpawn{Enabled: true, MinPriority: 0, Skill: "report_evaluation"}

	var report *types.Report
	var evalTask *types.Task
	write(t, s, func(tx *store.Tx) (err error) {
		report, evalTask, err = SubmitReport(tx, task.ID, "hunter-work", types.StatusCompleted, "done", "all green", spawn, testNow())
		return err
	})

	if report.Status != types.StatusCompleted {
		t.Errorf("report status = %s, want completed", report.Status)
	}
	if evalTask == nil {
		t.Fatal("expected an evaluation task")
	}
	if evalTask.TaskType != types.TypeEvaluation {
		t.Errorf("task type = %s, want EVALUATION", evalTask.TaskType)
	}
	if evalTask.PublishedByHunterID != types.SystemPublisher {
		t.Errorf("publisher = %s, want system", evalTask.PublishedByHunterID)
	}
	if evalTask.Priority != task.Priority {
		t.Errorf("priority = %d, want inherited %d", evalTask.Priority, task.Priority)
	}
	if evalTask.ReportID != report.ID || evalTask.ParentTaskID != task.ID {
		t.Error("evaluation task not linked to report and parent")
	}
	// routed to the only qualified evaluator, never the submitter
	if evalTask.AssigneeID != "hunter-eval" {
		t.Errorf("assignee = %q, want hunter-eval", evalTask.AssigneeID)
	}
	if !strings.Contains(evalTask.Name, task.Name) {
		t.Errorf("evaluation task name %q does not reference parent", evalTask.Name)
	}

	write(t, s, func(tx *store.Tx) error {
		parent, err := tx.GetTask(task.ID)
		if err != nil {
			return err
		}
		if parent.Status != types.StatusCompleted {
			t.Errorf("parent status = %s, want completed", parent.Status)
		}
		return nil
	})
}

func TestSubmitReportNoSpawnForEvaluationTask(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-work", map[string]int{"report_evaluation": 60}, 0)

	var task *types.Task
	write(t, s, func(tx *store.Tx) (err error) {
		task, err = PublishTask(tx, PublishParams{
			Name:          "Evaluate report for: x",
			RequiredSkill: "report_evaluation",
			PublisherID:   types.SystemPublisher,
			TaskType:      types.TypeEvaluation,
		}, testNow())
		if err != nil {
			return err
		}
		if task, err = ClaimTask(tx, task.ID, "hunter-work", testNow()); err != nil {
			return err
		}
		task, err = StartTask(tx, task.ID, "hunter-work", testNow())
		return err
	})

	var evalTask *types.Task
	write(t, s, func(tx *store.Tx) (err error) {
		_, evalTask, err = SubmitReport(tx, task.ID, "hunter-work", types.StatusCompleted, "scored", "", EvalSpawn{Enabled: true}, testNow())
		return err
	})
	if evalTask != nil {
		t.Error("evaluation task spawned for an EVALUATION task")
	}
}

func TestSubmitReportBelowMinPriorityNoSpawn(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-pub", nil, 0)
	seedHunter(t, s, "hunter-work", map[string]int{"python": 80}, 0)
	task := publishAndWork(t, s, "hunter-pub")

	var evalTask *types.Task
	write(t, s, func(tx *store.Tx) (err error) {
		_, evalTask, err = SubmitReport(tx, task.ID, "hunter-work", types.StatusCompleted, "done", "", EvalSpawn{Enabled: true, MinPriority: 4}, testNow())
		return err
	})
	if evalTask != nil {
		t.Errorf("evaluation task spawned below min priority: %+v", evalTask)
	}
}

func TestSubmitReportSpawnWithNoEvaluatorLeavesUnassigned(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-pub", nil, 0)
	seedHunter(t, s, "hunter-work", map[string]int{"python": 80}, 0)
	task := publishAndWork(t, s, "hunter-pub")

	var evalTask *types.Task
	write(t, s, func(tx *store.Tx) (err error) {
		_, evalTask, err = SubmitReport(tx, task.ID, "hunter-work", types.StatusCompleted, "done", "", EvalSpawn{Enabled: true, Skill: "report_evaluation"}, testNow())
		return err
	})
	if evalTask == nil {
		t.Fatal("expected an evaluation task")
	}
	if evalTask.AssigneeID != "" {
		t.Errorf("assignee = %q, want unassigned", evalTask.AssigneeID)
	}
}

func TestSubmitReportWrongOwner(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-pub", nil, 0)
	seedHunter(t, s, "hunter-work", map[string]int{"python": 80}, 0)
	seedHunter(t, s, "hunter-other", map[string]int{"python": 80}, 0)
	task := publishAndWork(t, s, "hunter-pub")

	err := writeErr(t, s, func(tx *store.Tx) error {
		_, _, err := SubmitReport(tx, task.ID, "hunter-other", types.StatusCompleted, "", "", EvalSpawn{}, testNow())
		return err
	})
	if !errors.Is(err, ErrOwner) {
		t.Errorf("expected ErrOwner, got %v", err)
	}
}

func TestSubmitReportInvalidStatus(t *testing.T) {
	s := setupStore(t)

	err := writeErr(t, s, func(tx *store.Tx) error {
		_, _, err := SubmitReport(tx, "task-x", "hunter-work", types.StatusPending, "", "", EvalSpawn{}, testNow())
		return err
	})
	if !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState, got %v", err)
	}
}

func TestEvaluateReportAppliesBonusMath(t *testing.T) {
	s := setupStore(t)
	// reputation 57 makes the task priority 5, so bonus is 1.05
	seedHunter(t, s, "hunter-pub", nil, 57)
	seedHunter(t, s, "hunter-work", map[string]int{"python": 80}, 0)
	seedHunter(t, s, "hunter-eval", map[string]int{"report_evaluation": 60}, 20)
	task := publishAndWork(t, s, "hunter-pub")

	var report *types.Report
	write(t, s, func(tx *store.Tx) (err error) {
		report, _, err = SubmitReport(tx, task.ID, "hunter-work", types.StatusCompleted, "done", "", EvalSpawn{}, testNow())
		return err
	})

	write(t, s, func(tx *store.Tx) (err error) {
		report, err = EvaluateReport(tx, report.ID, "hunter-eval", 95, "solid work", map[string]int{"python": 3}, testNow())
		return err
	})

	if report.Evaluation == nil || report.Evaluation.Score != 95 {
		t.Fatalf("evaluation not recorded: %+v", report.Evaluation)
	}
	if ids.Kind(report.Evaluation.ID) != ids.KindEval {
		t.Errorf("evaluation ID = %q, want an %s-prefixed ID", report.Evaluation.ID, ids.KindEval)
	}

	write(t, s, func(tx *store.Tx) error {
		hunter, err := tx.GetHunter("hunter-work")
		if err != nil {
			return err
		}
		// floor(95/10 * 1.05) = floor(9.975) = 9
		if hunter.Reputation != 9 {
			t.Errorf("reputation = %d, want 9", hunter.Reputation)
		}
		// floor(3 * 1.05) = 3, so 80 + 3
		if hunter.Skills["python"] != 83 {
			t.Errorf("python skill = %d, want 83", hunter.Skills["python"])
		}

		evaluated, err := tx.GetTask(task.ID)
		if err != nil {
			return err
		}
		if evaluated.Evaluation == nil || evaluated.Evaluation.Score != 95 {
			t.Error("evaluation not mirrored onto the task")
		} else if evaluated.Evaluation.ID != report.Evaluation.ID {
			t.Errorf("task evaluation ID = %q, report has %q", evaluated.Evaluation.ID, report.Evaluation.ID)
		}
		return nil
	})
}

func TestEvaluateReportSkillClamp(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-pub", nil, 0)
	seedHunter(t, s, "hunter-work", map[string]int{"python": 99}, 5)
	seedHunter(t, s, "hunter-eval", nil, 0)
	task := publishAndWork(t, s, "hunter-pub")

	var report *types.Report
	write(t, s, func(tx *store.Tx) (err error) {
		report, _, err = SubmitReport(tx, task.ID, "hunter-work", types.StatusCompleted, "", "", EvalSpawn{}, testNow())
		return err
	})

	write(t, s, func(tx *store.Tx) (err error) {
		_, err = EvaluateReport(tx, report.ID, "hunter-eval", 0, "sloppy", map[string]int{"python": 10, "rigor": -5}, testNow())
		return err
	})

	write(t, s, func(tx *store.Tx) error {
		hunter, err := tx.GetHunter("hunter-work")
		if err != nil {
			return err
		}
		if hunter.Skills["python"] != 100 {
			t.Errorf("python skill = %d, want clamped 100", hunter.Skills["python"])
		}
		if hunter.Skills["rigor"] != 0 {
			t.Errorf("rigor skill = %d, want clamped 0", hunter.Skills["rigor"])
		}
		if hunter.Reputation != 5 {
			t.Errorf("reputation = %d, want unchanged 5", hunter.Reputation)
		}
		return nil
	})
}

func TestEvaluateOwnReportRejected(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-pub", nil, 0)
	seedHunter(t, s, "hunter-work", map[string]int{"python": 80}, 0)
	task := publishAndWork(t, s, "hunter-pub")

	var report *types.Report
	write(t, s, func(tx *store.Tx) (err error) {
		report, _, err = SubmitReport(tx, task.ID, "hunter-work", types.StatusCompleted, "", "", EvalSpawn{}, testNow())
		return err
	})

	err := writeErr(t, s, func(tx *store.Tx) error {
		_, err := EvaluateReport(tx, report.ID, "hunter-work", 90, "", nil, testNow())
		return err
	})
	if !errors.Is(err, ErrSelfEval) {
		t.Errorf("expected ErrSelfEval, got %v", err)
	}
}

func TestEvaluateReportScoreRange(t *testing.T) {
	s := setupStore(t)

	for _, score := range []int{-1, 101} {
		err := writeErr(t, s, func(tx *store.Tx) error {
			_, err := EvaluateReport(tx, "report-x", "hunter-eval", score, "", nil, testNow())
			return err
		})
		if !errors.Is(err, ErrState) {
			t.Errorf("score %d: expected ErrState, got %v", score, err)
		}
	}
}
