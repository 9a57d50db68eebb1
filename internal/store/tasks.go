// internal/store/tasks.go
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskhub/taskhub/internal/types"
)

const taskColumns = `id, name, details, required_skill, status, priority, task_type,
	hunter_id, assignee_id, published_by_hunter_id, lease_id, lease_expires_at,
	depends_on, parent_task_id, report_id, result, evaluation, is_archived,
	created_at, updated_at`

// SaveTask creates or updates a task
func (t *Tx) SaveTask(task *types.Task) error {
	dependsOn, err := json.Marshal(task.DependsOn)
	if err != nil {
		return fmt.Errorf("failed to marshal depends_on: %w", err)
	}
	var evaluation sql.NullString
	if task.Evaluation != nil {
		data, err := json.Marshal(task.Evaluation)
		if err != nil {
			return fmt.Errorf("failed to marshal evaluation: %w", err)
		}
		evaluation = sql.NullString{String: string(data), Valid: true}
	}

	archived := 0
	if task.IsArchived {
		archived = 1
	}

	_, err = t.tx.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			details=excluded.details,
			required_skill=excluded.required_skill,
			status=excluded.status,
			priority=excluded.priority,
			task_type=excluded.task_type,
			hunter_id=excluded.hunter_id,
			assignee_id=excluded.assignee_id,
			published_by_hunter_id=excluded.published_by_hunter_id,
			lease_id=excluded.lease_id,
			lease_expires_at=excluded.lease_expires_at,
			depends_on=excluded.depends_on,
			parent_task_id=excluded.parent_task_id,
			report_id=excluded.report_id,
			result=excluded.result,
			evaluation=excluded.evaluation,
			is_archived=excluded.is_archived,
			updated_at=excluded.updated_at
	`,
		task.ID, task.Name, task.Details, task.RequiredSkill, string(task.Status),
		task.Priority, string(task.TaskType),
		nullString(task.HunterID), nullString(task.AssigneeID), nullString(task.PublishedByHunterID),
		nullString(task.LeaseID), fmtNullTime(task.LeaseExpiresAt),
		string(dependsOn), nullString(task.ParentTaskID), nullString(task.ReportID),
		nullString(task.Result), evaluation, archived,
		fmtTime(task.CreatedAt), fmtTime(task.UpdatedAt),
	)
	return err
}

// GetTask retrieves a task by ID; returns (nil, nil) if absent
func (t *Tx) GetTask(id string) (*types.Task, error) {
	row := t.tx.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, err
}

// ListTasks returns tasks matching all supplied filters
func (t *Tx) ListTasks(f types.TaskFilter) ([]*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []interface{}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.RequiredSkill != "" {
		query += " AND required_skill = ?"
		args = append(args, f.RequiredSkill)
	}
	if f.HunterID != "" {
		query += " AND hunter_id = ?"
		args = append(args, f.HunterID)
	}
	query += " ORDER BY priority DESC, created_at"

	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task
func (t *Tx) DeleteTask(id string) error {
	_, err := t.tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*types.Task, error) {
	var task types.Task
	var status, taskType string
	var hunterID, assigneeID, publishedBy, leaseID, leaseExpires sql.NullString
	var dependsOn, parentID, reportID, result, evaluation sql.NullString
	var archived int
	var createdAt, updatedAt string

	err := row.Scan(
		&task.ID, &task.Name, &task.Details, &task.RequiredSkill, &status,
		&task.Priority, &taskType,
		&hunterID, &assigneeID, &publishedBy, &leaseID, &leaseExpires,
		&dependsOn, &parentID, &reportID, &result, &evaluation, &archived,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = types.TaskStatus(status)
	task.TaskType = types.TaskType(taskType)
	task.HunterID = hunterID.String
	task.AssigneeID = assigneeID.String
	task.PublishedByHunterID = publishedBy.String
	task.LeaseID = leaseID.String
	task.ParentTaskID = parentID.String
	task.ReportID = reportID.String
	task.Result = result.String
	task.IsArchived = archived != 0

	if task.LeaseExpiresAt, err = parseNullTime(leaseExpires); err != nil {
		return nil, err
	}
	if dependsOn.Valid && dependsOn.String != "" {
		if err := json.Unmarshal([]byte(dependsOn.String), &task.DependsOn); err != nil {
			return nil, fmt.Errorf("failed to decode depends_on for %s: %w", task.ID, err)
		}
	}
	if evaluation.Valid && evaluation.String != "" {
		if err := json.Unmarshal([]byte(evaluation.String), &task.Evaluation); err != nil {
			return nil, fmt.Errorf("failed to decode evaluation for %s: %w", task.ID, err)
		}
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &task, nil
}
