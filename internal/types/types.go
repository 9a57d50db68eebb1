// internal/types/types.go
package types

import (
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusClaimed    TaskStatus = "claimed"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusArchived   TaskStatus = "archived"
)

// TaskType identifies how a task entered the system and how its
// completion is handled downstream.
type TaskType string

const (
	TypeNormal     TaskType = "NORMAL"
	TypeEvaluation TaskType = "EVALUATION"
	TypeResearch   TaskType = "RESEARCH"
)

// SystemPublisher is the publisher ID used for auto-generated tasks.
const SystemPublisher = "system"

// HunterStatus represents a hunter's availability
type HunterStatus string

const (
	HunterActive   HunterStatus = "active"
	HunterInactive HunterStatus = "inactive"
)

// Hunter is an autonomous agent identity with skills and reputation
type Hunter struct {
	ID                   string         `json:"id"`
	Skills               map[string]int `json:"skills"`
	Reputation           int            `json:"reputation"`
	Status               HunterStatus   `json:"status"`
	CurrentTasks         []string       `json:"current_tasks"`
	CompletedTasks       int            `json:"completed_tasks"`
	FailedTasks          int            `json:"failed_tasks"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	LastReadDiscussionAt *time.Time     `json:"last_read_discussion_timestamp,omitempty"`
}

// NewHunter creates a hunter with the supplied skills
func NewHunter(id string, skills map[string]int, now time.Time) *Hunter {
	if skills == nil {
		skills = make(map[string]int)
	}
	return &Hunter{
		ID:           id,
		Skills:       skills,
		Status:       HunterActive,
		CurrentTasks: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasSkill reports whether the hunter's skill map contains the key.
// A value of 0 still counts as possession.
func (h *Hunter) HasSkill(skill string) bool {
	_, ok := h.Skills[skill]
	return ok
}

// DropCurrentTask removes a task ID from the hunter's current task list
func (h *Hunter) DropCurrentTask(taskID string) {
	out := h.CurrentTasks[:0]
	for _, id := range h.CurrentTasks {
		if id != taskID {
			out = append(out, id)
		}
	}
	h.CurrentTasks = out
}

// TaskEvaluation is an evaluation embedded on a task
type TaskEvaluation struct {
	ID           string         `json:"id"`
	Score        int            `json:"score"`
	Feedback     string         `json:"feedback"`
	EvaluatorID  string         `json:"evaluator_id"`
	SkillUpdates map[string]int `json:"skill_updates,omitempty"`
	EvaluatedAt  time.Time      `json:"evaluated_at"`
}

// Task is a unit of work with a required skill and lifecycle status
type Task struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Details             string          `json:"details"`
	RequiredSkill       string          `json:"required_skill"`
	Status              TaskStatus      `json:"status"`
	Priority            int             `json:"priority"`
	TaskType            TaskType        `json:"task_type"`
	HunterID            string          `json:"hunter_id,omitempty"`
	AssigneeID          string          `json:"assignee_id,omitempty"`
	PublishedByHunterID string          `json:"published_by_hunter_id,omitempty"`
	LeaseID             string          `json:"lease_id,omitempty"`
	LeaseExpiresAt      *time.Time      `json:"lease_expires_at,omitempty"`
	DependsOn           []string        `json:"depends_on,omitempty"`
	ParentTaskID        string          `json:"parent_task_id,omitempty"`
	ReportID            string          `json:"report_id,omitempty"`
	Result              string          `json:"result,omitempty"`
	Evaluation          *TaskEvaluation `json:"evaluation,omitempty"`
	IsArchived          bool            `json:"is_archived"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// validTransitions defines the task state machine
var validTransitions = map[TaskStatus][]TaskStatus{
	StatusPending:    {StatusClaimed},
	StatusClaimed:    {StatusInProgress, StatusFailed},
	StatusInProgress: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusArchived},
	StatusFailed:     {StatusArchived},
	StatusArchived:   {},
}

// CanTransition reports whether moving to newStatus is allowed
// by the state machine.
func (t *Task) CanTransition(newStatus TaskStatus) bool {
	for _, s := range validTransitions[t.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo attempts to move the task to a new status
func (t *Task) TransitionTo(newStatus TaskStatus, now time.Time) error {
	if !t.CanTransition(newStatus) {
		return fmt.Errorf("invalid transition from %s to %s", t.Status, newStatus)
	}
	t.Status = newStatus
	t.UpdatedAt = now
	return nil
}

// IsTerminal returns true if the task has reached a final working state
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusArchived
}

// ReportEvaluation is a peer-scored judgment of a report
type ReportEvaluation struct {
	ID           string         `json:"id"`
	Score        int            `json:"score"`
	Feedback     string         `json:"feedback"`
	EvaluatorID  string         `json:"evaluator_id"`
	SkillUpdates map[string]int `json:"skill_updates,omitempty"`
	EvaluatedAt  time.Time      `json:"evaluated_at"`
}

// Report is a hunter's submission for a task it completed or failed
type Report struct {
	ID         string            `json:"id"`
	TaskID     string            `json:"task_id"`
	HunterID   string            `json:"hunter_id"`
	Status     TaskStatus        `json:"status"`
	Result     string            `json:"result,omitempty"`
	Details    string            `json:"details,omitempty"`
	Evaluation *ReportEvaluation `json:"evaluation,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DiscussionMessage is one entry in the per-namespace append-only log
type DiscussionMessage struct {
	ID        string    `json:"id"`
	HunterID  string    `json:"hunter_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// KnowledgeItem is the core's view of a document in the external store
type KnowledgeItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	SkillTags []string `json:"skill_tags,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`
}

// TaskFilter selects tasks in list queries; empty fields match everything
type TaskFilter struct {
	Status        TaskStatus
	RequiredSkill string
	HunterID      string
}

// ReportFilter selects reports in list queries
type ReportFilter struct {
	TaskID   string
	HunterID string
	Status   TaskStatus
	Limit    int
}
