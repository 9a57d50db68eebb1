// internal/store/hunters.go
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskhub/taskhub/internal/types"
)

const hunterColumns = `id, skills, reputation, status, current_tasks,
	completed_tasks, failed_tasks, last_read_discussion_timestamp, created_at, updated_at`

// SaveHunter creates or updates a hunter
func (t *Tx) SaveHunter(h *types.Hunter) error {
	skills, err := json.Marshal(h.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	current := h.CurrentTasks
	if current == nil {
		current = []string{}
	}
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal current_tasks: %w", err)
	}

	_, err = t.tx.Exec(`
		INSERT INTO hunters (`+hunterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			skills=excluded.skills,
			reputation=excluded.reputation,
			status=excluded.status,
			current_tasks=excluded.current_tasks,
			completed_tasks=excluded.completed_tasks,
			failed_tasks=excluded.failed_tasks,
			last_read_discussion_timestamp=excluded.last_read_discussion_timestamp,
			updated_at=excluded.updated_at
	`,
		h.ID, string(skills), h.Reputation, string(h.Status), string(currentJSON),
		h.CompletedTasks, h.FailedTasks, fmtNullTime(h.LastReadDiscussionAt),
		fmtTime(h.CreatedAt), fmtTime(h.UpdatedAt),
	)
	return err
}

// GetHunter retrieves a hunter by ID; returns (nil, nil) if absent
func (t *Tx) GetHunter(id string) (*types.Hunter, error) {
	row := t.tx.QueryRow(`SELECT `+hunterColumns+` FROM hunters WHERE id = ?`, id)
	h, err := scanHunter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return h, err
}

// ListHunters returns all hunters ordered by ID for deterministic iteration
func (t *Tx) ListHunters() ([]*types.Hunter, error) {
	rows, err := t.tx.Query(`SELECT ` + hunterColumns + ` FROM hunters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hunters []*types.Hunter
	for rows.Next() {
		h, err := scanHunter(rows)
		if err != nil {
			return nil, err
		}
		hunters = append(hunters, h)
	}
	return hunters, rows.Err()
}

func scanHunter(row scanner) (*types.Hunter, error) {
	var h types.Hunter
	var skills, current, status string
	var lastRead sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&h.ID, &skills, &h.Reputation, &status, &current,
		&h.CompletedTasks, &h.FailedTasks, &lastRead, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	h.Status = types.HunterStatus(status)
	if err := json.Unmarshal([]byte(skills), &h.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills for %s: %w", h.ID, err)
	}
	if err := json.Unmarshal([]byte(current), &h.CurrentTasks); err != nil {
		return nil, fmt.Errorf("failed to decode current_tasks for %s: %w", h.ID, err)
	}
	if h.LastReadDiscussionAt, err = parseNullTime(lastRead); err != nil {
		return nil, err
	}
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}
