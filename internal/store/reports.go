// internal/store/reports.go
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskhub/taskhub/internal/types"
)

const reportColumns = `id, task_id, hunter_id, status, details, result, evaluation, created_at, updated_at`

// SaveReport creates or updates a report
func (t *Tx) SaveReport(r *types.Report) error {
	var evaluation sql.NullString
	if r.Evaluation != nil {
		data, err := json.Marshal(r.Evaluation)
		if err != nil {
			return fmt.Errorf("failed to marshal evaluation: %w", err)
		}
		evaluation = sql.NullString{String: string(data), Valid: true}
	}

	_, err := t.tx.Exec(`
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			details=excluded.details,
			result=excluded.result,
			evaluation=excluded.evaluation,
			updated_at=excluded.updated_at
	`,
		r.ID, r.TaskID, r.HunterID, string(r.Status),
		nullString(r.Details), nullString(r.Result), evaluation,
		fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt),
	)
	return err
}

// GetReport retrieves a report by ID; returns (nil, nil) if absent
func (t *Tx) GetReport(id string) (*types.Report, error) {
	row := t.tx.QueryRow(`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListReports returns reports matching the filter, newest first
func (t *Tx) ListReports(f types.ReportFilter) ([]*types.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	var args []interface{}
	if f.TaskID != "" {
		query += " AND task_id = ?"
		args = append(args, f.TaskID)
	}
	if f.HunterID != "" {
		query += " AND hunter_id = ?"
		args = append(args, f.HunterID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*types.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func scanReport(row scanner) (*types.Report, error) {
	var r types.Report
	var status string
	var details, result, evaluation sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&r.ID, &r.TaskID, &r.HunterID, &status,
		&details, &result, &evaluation, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = types.TaskStatus(status)
	r.Details = details.String
	r.Result = result.String
	if evaluation.Valid && evaluation.String != "" {
		if err := json.Unmarshal([]byte(evaluation.String), &r.Evaluation); err != nil {
			return nil, fmt.Errorf("failed to decode evaluation for %s: %w", r.ID, err)
		}
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
