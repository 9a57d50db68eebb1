// internal/service/discussion.go
package service

import (
	"fmt"
	"time"

	"github.com/taskhub/taskhub/internal/ids"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// PostMessage appends a message to the namespace discussion log
func PostMessage(tx *store.Tx, hunterID, content string, now time.Time) (*types.DiscussionMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrState)
	}
	msg := &types.DiscussionMessage{
		ID:        ids.New(ids.KindDiscussion),
		HunterID:  hunterID,
		Content:   content,
		CreatedAt: now,
	}
	if err := tx.SaveMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// UnreadMessages returns messages after the hunter's read watermark,
// ascending. Hunters who never marked anything read get the full log.
func UnreadMessages(tx *store.Tx, hunterID string, limit int) ([]*types.DiscussionMessage, error) {
	hunter, err := tx.GetHunter(hunterID)
	if err != nil {
		return nil, err
	}
	if hunter == nil {
		return nil, fmt.Errorf("%w: hunter %s", ErrNotFound, hunterID)
	}

	since := time.Unix(0, 0).UTC()
	if hunter.LastReadDiscussionAt != nil {
		since = *hunter.LastReadDiscussionAt
	}
	return tx.MessagesAfter(since, limit)
}

// MarkDiscussionRead advances the hunter's read watermark to now
func MarkDiscussionRead(tx *store.Tx, hunterID string, now time.Time) error {
	hunter, err := tx.GetHunter(hunterID)
	if err != nil {
		return err
	}
	if hunter == nil {
		return fmt.Errorf("%w: hunter %s", ErrNotFound, hunterID)
	}

	hunter.LastReadDiscussionAt = &now
	hunter.UpdatedAt = now
	return tx.SaveHunter(hunter)
}

// LatestMessages returns the newest limit messages, ascending
func LatestMessages(tx *store.Tx, limit int) ([]*types.DiscussionMessage, error) {
	return tx.LatestMessages(limit)
}
