// internal/store/discussion.go
package store

import (
	"time"

	"github.com/taskhub/taskhub/internal/types"
)

// SaveMessage appends a discussion message. The log is append-only;
// there is no update path.
func (t *Tx) SaveMessage(m *types.DiscussionMessage) error {
	_, err := t.tx.Exec(`
		INSERT INTO discussion_messages (id, hunter_id, content, created_at)
		VALUES (?, ?, ?, ?)
	`, m.ID, m.HunterID, m.Content, fmtTime(m.CreatedAt))
	return err
}

// MessagesAfter returns messages strictly after ts, ascending, up to limit
func (t *Tx) MessagesAfter(ts time.Time, limit int) ([]*types.DiscussionMessage, error) {
	query := `SELECT id, hunter_id, content, created_at FROM discussion_messages
		WHERE created_at > ? ORDER BY created_at ASC`
	args := []interface{}{fmtTime(ts)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*types.DiscussionMessage
	for rows.Next() {
		var m types.DiscussionMessage
		var createdAt string
		if err := rows.Scan(&m.ID, &m.HunterID, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// LatestMessages returns the newest limit messages in ascending order
func (t *Tx) LatestMessages(limit int) ([]*types.DiscussionMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.tx.Query(`
		SELECT id, hunter_id, content, created_at FROM (
			SELECT id, hunter_id, content, created_at FROM discussion_messages
			ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*types.DiscussionMessage
	for rows.Next() {
		var m types.DiscussionMessage
		var createdAt string
		if err := rows.Scan(&m.ID, &m.HunterID, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
