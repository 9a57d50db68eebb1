// internal/service/hunters.go
package service

import (
	"fmt"
	"time"

	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// studyGain is the skill increment per tag when studying a knowledge item
const studyGain = 5

// RegisterHunter upserts a hunter. Skill merges are max-wins: a replayed
// registration never lowers an existing skill, and omitted keys are left
// untouched.
func RegisterHunter(tx *store.Tx, hunterID string, skills map[string]int, now time.Time) (*types.Hunter, error) {
	hunter, err := tx.GetHunter(hunterID)
	if err != nil {
		return nil, err
	}
	if hunter == nil {
		hunter = types.NewHunter(hunterID, clampSkills(skills), now)
		if err := tx.SaveHunter(hunter); err != nil {
			return nil, err
		}
		return hunter, nil
	}

	for skill, level := range skills {
		level = clampSkill(level)
		if existing, ok := hunter.Skills[skill]; !ok || level > existing {
			hunter.Skills[skill] = level
		}
	}
	hunter.UpdatedAt = now
	if err := tx.SaveHunter(hunter); err != nil {
		return nil, err
	}
	return hunter, nil
}

// StudyKnowledge applies a knowledge item's skill tags to a hunter:
// +5 per tag, capped at 100. A new skill starts at 5.
func StudyKnowledge(tx *store.Tx, hunterID string, item *types.KnowledgeItem, now time.Time) (*types.Hunter, error) {
	hunter, err := tx.GetHunter(hunterID)
	if err != nil {
		return nil, err
	}
	if hunter == nil {
		return nil, fmt.Errorf("%w: hunter %s", ErrNotFound, hunterID)
	}

	for _, skill := range item.SkillTags {
		hunter.Skills[skill] = clampSkill(hunter.Skills[skill] + studyGain)
	}
	hunter.UpdatedAt = now
	if err := tx.SaveHunter(hunter); err != nil {
		return nil, err
	}
	return hunter, nil
}

// AdjustReputation sets a hunter's reputation directly (admin use)
func AdjustReputation(tx *store.Tx, hunterID string, reputation int, now time.Time) (*types.Hunter, error) {
	hunter, err := tx.GetHunter(hunterID)
	if err != nil {
		return nil, err
	}
	if hunter == nil {
		return nil, fmt.Errorf("%w: hunter %s", ErrNotFound, hunterID)
	}

	if reputation < 0 {
		reputation = 0
	}
	hunter.Reputation = reputation
	hunter.UpdatedAt = now
	if err := tx.SaveHunter(hunter); err != nil {
		return nil, err
	}
	return hunter, nil
}

// FindBestHunter returns the best-scoring active hunter holding the skill
// at level > 0, excluding the given IDs. Returns (nil, nil) when no hunter
// qualifies. Ties break on the lexically smallest ID, which keeps routing
// deterministic.
func FindBestHunter(tx *store.Tx, skill string, exclude []string) (*types.Hunter, error) {
	hunters, err := tx.ListHunters()
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var best *types.Hunter
	var bestScore float64
	for _, h := range hunters {
		if h.Status != types.HunterActive || excluded[h.ID] || h.Skills[skill] <= 0 {
			continue
		}
		score := 0.7*float64(h.Reputation) - 0.3*float64(len(h.CurrentTasks))
		// hunters arrive ordered by ID, so strictly-greater keeps the
		// smallest ID on ties
		if best == nil || score > bestScore {
			best = h
			bestScore = score
		}
	}
	return best, nil
}

func clampSkill(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampSkills(skills map[string]int) map[string]int {
	out := make(map[string]int, len(skills))
	for k, v := range skills {
		out[k] = clampSkill(v)
	}
	return out
}
