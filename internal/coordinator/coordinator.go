// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"fmt"
	"log"

	"github.com/taskhub/taskhub/internal/ids"
	"github.com/taskhub/taskhub/internal/knowledge"
	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// Coordinator owns the operation surface: it resolves the namespace
// store, opens the transaction, runs the service logic, and fires
// post-commit hooks (event announcements, knowledge autodrafts).
// Transports stay thin wrappers over these methods.
type Coordinator struct {
	cfg      *types.Config
	registry *store.Registry

	knowledge *knowledge.Client
	drafter   *knowledge.Drafter
	announcer Announcer
}

// New creates a coordinator. knowledge, drafter and announcer may be
// nil when the matching feature is disabled.
func New(cfg *types.Config, registry *store.Registry, kc *knowledge.Client, drafter *knowledge.Drafter, announcer Announcer) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		registry:  registry,
		knowledge: kc,
		drafter:   drafter,
		announcer: announcer,
	}
}

// Defaults exposes the identity fallbacks for transports
func (c *Coordinator) Defaults() types.IdentityConfig {
	return c.cfg.Identity
}

func (c *Coordinator) store(id Identity) (*store.Store, error) {
	return c.registry.Get(id.Namespace)
}

func (c *Coordinator) announce(ev Event) {
	if c.announcer != nil {
		c.announcer.Announce(ev)
	}
}

func (c *Coordinator) spawn() service.EvalSpawn {
	return service.EvalSpawn{
		Enabled:     c.cfg.Workflow.AutoEvaluation,
		MinPriority: c.cfg.Workflow.EvaluationMinPriority,
		Skill:       c.cfg.Workflow.EvaluationSkill,
	}
}

// --- hunters ---

// RegisterHunter registers or updates the calling hunter
func (c *Coordinator) RegisterHunter(ctx context.Context, id Identity, skills map[string]int) (*types.Hunter, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var hunter *types.Hunter
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		hunter, err = service.RegisterHunter(tx, id.HunterID, skills, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(Event{Type: EventHunterRegistered, Namespace: id.Namespace, HunterID: hunter.ID, At: ids.Now()})
	return hunter, nil
}

// GetHunter fetches one hunter
func (c *Coordinator) GetHunter(ctx context.Context, id Identity, hunterID string) (*types.Hunter, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var hunter *types.Hunter
	err = s.View(ctx, func(tx *store.Tx) error {
		hunter, err = tx.GetHunter(hunterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if hunter == nil {
		return nil, fmt.Errorf("%w: hunter %s", service.ErrNotFound, hunterID)
	}
	return hunter, nil
}

// ListHunters lists every hunter in the namespace
func (c *Coordinator) ListHunters(ctx context.Context, id Identity) ([]*types.Hunter, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var hunters []*types.Hunter
	err = s.View(ctx, func(tx *store.Tx) error {
		hunters, err = tx.ListHunters()
		return err
	})
	return hunters, err
}

// StudyKnowledge fetches a knowledge item and applies its skill tags to
// the calling hunter. The external fetch happens before the write
// transaction so a slow document service never holds the write lock.
func (c *Coordinator) StudyKnowledge(ctx context.Context, id Identity, knowledgeID string) (*types.Hunter, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	item, err := c.GetKnowledge(ctx, knowledgeID)
	if err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var hunter *types.Hunter
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		hunter, err = service.StudyKnowledge(tx, id.HunterID, item, ids.Now())
		return err
	})
	return hunter, err
}

// SetReputation sets a hunter's reputation directly (admin surface)
func (c *Coordinator) SetReputation(ctx context.Context, id Identity, hunterID string, reputation int) (*types.Hunter, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var hunter *types.Hunter
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		hunter, err = service.AdjustReputation(tx, hunterID, reputation, ids.Now())
		return err
	})
	return hunter, err
}

// --- tasks ---

// PublishParams are the transport-facing inputs for publishing a task
type PublishParams struct {
	Name          string         `json:"name"`
	Details       string         `json:"details,omitempty"`
	RequiredSkill string         `json:"required_skill"`
	DependsOn     []string       `json:"depends_on,omitempty"`
	TaskType      types.TaskType `json:"task_type,omitempty"`
}

// PublishTask publishes a task on behalf of the calling hunter. Hunters
// may publish NORMAL and RESEARCH tasks; EVALUATION tasks only enter
// the system through the report workflow.
func (c *Coordinator) PublishTask(ctx context.Context, id Identity, p PublishParams) (*types.Task, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	taskType := p.TaskType
	switch taskType {
	case "":
		taskType = types.TypeNormal
	case types.TypeNormal, types.TypeResearch:
	default:
		return nil, fmt.Errorf("%w: task type %s cannot be published directly", service.ErrState, taskType)
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var task *types.Task
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		task, err = service.PublishTask(tx, service.PublishParams{
			Name:          p.Name,
			Details:       p.Details,
			RequiredSkill: p.RequiredSkill,
			PublisherID:   id.HunterID,
			DependsOn:     p.DependsOn,
			TaskType:      taskType,
		}, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(Event{Type: EventTaskPublished, Namespace: id.Namespace, TaskID: task.ID, HunterID: id.HunterID, At: ids.Now()})
	return task, nil
}

// GetTask fetches one task
func (c *Coordinator) GetTask(ctx context.Context, id Identity, taskID string) (*types.Task, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var task *types.Task
	err = s.View(ctx, func(tx *store.Tx) error {
		task, err = tx.GetTask(taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", service.ErrNotFound, taskID)
	}
	return task, nil
}

// ListTasks lists tasks matching the filter
func (c *Coordinator) ListTasks(ctx context.Context, id Identity, f types.TaskFilter) ([]*types.Task, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var tasks []*types.Task
	err = s.View(ctx, func(tx *store.Tx) error {
		tasks, err = tx.ListTasks(f)
		return err
	})
	return tasks, err
}

// ClaimTask claims a pending task for the calling hunter
func (c *Coordinator) ClaimTask(ctx context.Context, id Identity, taskID string) (*types.Task, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var task *types.Task
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		task, err = service.ClaimTask(tx, taskID, id.HunterID, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(Event{Type: EventTaskClaimed, Namespace: id.Namespace, TaskID: task.ID, HunterID: id.HunterID, At: ids.Now()})
	return task, nil
}

// StartTask moves a claimed task to in_progress
func (c *Coordinator) StartTask(ctx context.Context, id Identity, taskID string) (*types.Task, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var task *types.Task
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		task, err = service.StartTask(tx, taskID, id.HunterID, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(Event{Type: EventTaskStarted, Namespace: id.Namespace, TaskID: task.ID, HunterID: id.HunterID, At: ids.Now()})
	return task, nil
}

// CompleteTask moves an in-progress task to completed or failed without
// attaching a report
func (c *Coordinator) CompleteTask(ctx context.Context, id Identity, taskID, result string, final types.TaskStatus) (*types.Task, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var task *types.Task
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		task, err = service.CompleteTask(tx, taskID, id.HunterID, result, final, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(Event{Type: taskEventType(task.Status), Namespace: id.Namespace, TaskID: task.ID, HunterID: id.HunterID, At: ids.Now()})
	return task, nil
}

// ArchiveTask archives a terminal task
func (c *Coordinator) ArchiveTask(ctx context.Context, id Identity, taskID string) (*types.Task, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var task *types.Task
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		task, err = service.ArchiveTask(tx, taskID, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(Event{Type: EventTaskArchived, Namespace: id.Namespace, TaskID: task.ID, At: ids.Now()})
	return task, nil
}

// DeleteTask hard-deletes a task
func (c *Coordinator) DeleteTask(ctx context.Context, id Identity, taskID string, force bool) error {
	s, err := c.store(id)
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *store.Tx) error {
		return service.DeleteTask(tx, taskID, force, ids.Now())
	})
}

// --- reports ---

// SubmitReport records a report for the calling hunter's task, settles
// the task, and (for qualifying NORMAL tasks) spawns the evaluation
// task in the same transaction.
func (c *Coordinator) SubmitReport(ctx context.Context, id Identity, taskID string, status types.TaskStatus, result, details string) (*types.Report, *types.Task, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, nil, err
	}

	var report *types.Report
	var evalTask *types.Task
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		report, evalTask, err = service.SubmitReport(tx, taskID, id.HunterID, status, result, details, c.spawn(), ids.Now())
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	c.announce(Event{Type: EventReportSubmitted, Namespace: id.Namespace, TaskID: taskID, HunterID: id.HunterID, ReportID: report.ID, At: ids.Now()})
	c.announce(Event{Type: taskEventType(status), Namespace: id.Namespace, TaskID: taskID, HunterID: id.HunterID, At: ids.Now()})
	if evalTask != nil {
		c.announce(Event{Type: EventTaskPublished, Namespace: id.Namespace, TaskID: evalTask.ID, At: ids.Now()})
	}
	return report, evalTask, nil
}

// EvaluateReport records a peer evaluation by the calling hunter and,
// for high scores, queues a knowledge draft after the commit.
func (c *Coordinator) EvaluateReport(ctx context.Context, id Identity, reportID string, score int, feedback string, skillUpdates map[string]int) (*types.Report, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var report *types.Report
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		report, err = service.EvaluateReport(tx, reportID, id.HunterID, score, feedback, skillUpdates, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	c.announce(Event{Type: EventReportEvaluated, Namespace: id.Namespace, ReportID: report.ID, HunterID: id.HunterID, At: ids.Now()})
	c.maybeDraft(ctx, id, report, score)
	return report, nil
}

// maybeDraft queues a knowledge draft for a highly-scored report
func (c *Coordinator) maybeDraft(ctx context.Context, id Identity, report *types.Report, score int) {
	k := c.cfg.Knowledge
	if c.drafter == nil || !k.Autodraft || score < k.AutodraftMinScore {
		return
	}
	task, err := c.GetTask(ctx, id, report.TaskID)
	if err != nil {
		log.Printf("[COORD] Skipping knowledge draft for report %s: %v", report.ID, err)
		return
	}
	c.drafter.Enqueue(task, report)
}

// GetReport fetches one report
func (c *Coordinator) GetReport(ctx context.Context, id Identity, reportID string) (*types.Report, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var report *types.Report
	err = s.View(ctx, func(tx *store.Tx) error {
		report, err = tx.GetReport(reportID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: report %s", service.ErrNotFound, reportID)
	}
	return report, nil
}

// ListReports lists reports matching the filter
func (c *Coordinator) ListReports(ctx context.Context, id Identity, f types.ReportFilter) ([]*types.Report, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var reports []*types.Report
	err = s.View(ctx, func(tx *store.Tx) error {
		reports, err = tx.ListReports(f)
		return err
	})
	return reports, err
}

// --- discussion ---

// PostMessage appends a message to the namespace discussion log
func (c *Coordinator) PostMessage(ctx context.Context, id Identity, content string) (*types.DiscussionMessage, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var msg *types.DiscussionMessage
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		msg, err = service.PostMessage(tx, id.HunterID, content, ids.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(Event{Type: EventMessagePosted, Namespace: id.Namespace, HunterID: id.HunterID, At: ids.Now()})
	return msg, nil
}

// UnreadMessages returns messages after the caller's read watermark and
// advances the watermark in the same transaction.
func (c *Coordinator) UnreadMessages(ctx context.Context, id Identity, limit int) ([]*types.DiscussionMessage, error) {
	if err := id.RequireHunter(); err != nil {
		return nil, err
	}
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var msgs []*types.DiscussionMessage
	err = s.WithTx(ctx, func(tx *store.Tx) error {
		msgs, err = service.UnreadMessages(tx, id.HunterID, limit)
		if err != nil {
			return err
		}
		return service.MarkDiscussionRead(tx, id.HunterID, ids.Now())
	})
	return msgs, err
}

// LatestMessages returns the newest limit messages, oldest first
func (c *Coordinator) LatestMessages(ctx context.Context, id Identity, limit int) ([]*types.DiscussionMessage, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	var msgs []*types.DiscussionMessage
	err = s.View(ctx, func(tx *store.Tx) error {
		msgs, err = service.LatestMessages(tx, limit)
		return err
	})
	return msgs, err
}

// --- knowledge ---

func (c *Coordinator) knowledgeClient() (*knowledge.Client, error) {
	if c.knowledge == nil || !c.cfg.Knowledge.Enabled {
		return nil, fmt.Errorf("%w: knowledge service disabled", service.ErrExternal)
	}
	return c.knowledge, nil
}

// CreateKnowledge creates a document in the configured collection
func (c *Coordinator) CreateKnowledge(ctx context.Context, title, content, parentID string) (*knowledge.Document, error) {
	kc, err := c.knowledgeClient()
	if err != nil {
		return nil, err
	}
	return kc.CreateDoc(ctx, c.cfg.Knowledge.CollectionID, title, content, parentID)
}

// GetKnowledge fetches a knowledge item by document ID
func (c *Coordinator) GetKnowledge(ctx context.Context, knowledgeID string) (*types.KnowledgeItem, error) {
	kc, err := c.knowledgeClient()
	if err != nil {
		return nil, err
	}
	return kc.GetKnowledge(ctx, knowledgeID)
}

// SearchKnowledge searches documents by query
func (c *Coordinator) SearchKnowledge(ctx context.Context, query string, limit int) ([]knowledge.Document, error) {
	kc, err := c.knowledgeClient()
	if err != nil {
		return nil, err
	}
	return kc.Search(ctx, query, limit)
}

// ListKnowledge lists documents in the configured collection
func (c *Coordinator) ListKnowledge(ctx context.Context, limit, offset int) ([]knowledge.Document, error) {
	kc, err := c.knowledgeClient()
	if err != nil {
		return nil, err
	}
	return kc.ListDocs(ctx, c.cfg.Knowledge.CollectionID, limit, offset)
}

// UpdateKnowledge updates a document's title and/or content
func (c *Coordinator) UpdateKnowledge(ctx context.Context, knowledgeID, title, content string) (*knowledge.Document, error) {
	kc, err := c.knowledgeClient()
	if err != nil {
		return nil, err
	}
	return kc.UpdateDoc(ctx, knowledgeID, title, content)
}

// DeleteKnowledge removes a document
func (c *Coordinator) DeleteKnowledge(ctx context.Context, knowledgeID string) error {
	kc, err := c.knowledgeClient()
	if err != nil {
		return err
	}
	return kc.DeleteDoc(ctx, knowledgeID)
}

// --- stats ---

// Stats summarizes one namespace
type Stats struct {
	Namespace   string         `json:"namespace"`
	Tasks       map[string]int `json:"tasks"`
	Hunters     int            `json:"hunters"`
	Reports     int            `json:"reports"`
	TotalTasks  int            `json:"total_tasks"`
	PendingHigh *types.Task    `json:"highest_pending,omitempty"`
}

// NamespaceStats computes task/hunter/report counts for the namespace
func (c *Coordinator) NamespaceStats(ctx context.Context, id Identity) (*Stats, error) {
	s, err := c.store(id)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Namespace: id.Namespace, Tasks: make(map[string]int)}
	err = s.View(ctx, func(tx *store.Tx) error {
		tasks, err := tx.ListTasks(types.TaskFilter{})
		if err != nil {
			return err
		}
		for _, t := range tasks {
			stats.Tasks[string(t.Status)]++
			if t.Status == types.StatusPending && stats.PendingHigh == nil {
				stats.PendingHigh = t
			}
		}
		stats.TotalTasks = len(tasks)

		hunters, err := tx.ListHunters()
		if err != nil {
			return err
		}
		stats.Hunters = len(hunters)

		reports, err := tx.ListReports(types.ReportFilter{})
		if err != nil {
			return err
		}
		stats.Reports = len(reports)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func taskEventType(status types.TaskStatus) string {
	if status == types.StatusFailed {
		return EventTaskFailed
	}
	return EventTaskCompleted
}
