// internal/service/hunters_test.go
package service

import (
	"errors"
	"testing"

	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

func TestRegisterHunterCreates(t *testing.T) {
	s := setupStore(t)

	var hunter *types.Hunter
	write(t, s, func(tx *store.Tx) (err error) {
		hunter, err = RegisterHunter(tx, "hunter-a", map[string]int{"python": 80, "overflow": 150}, testNow())
		return err
	})

	if hunter.Status != types.HunterActive {
		t.Errorf("status = %s, want active", hunter.Status)
	}
	if hunter.Skills["python"] != 80 {
		t.Errorf("python = %d, want 80", hunter.Skills["python"])
	}
	if hunter.Skills["overflow"] != 100 {
		t.Errorf("overflow = %d, want clamped 100", hunter.Skills["overflow"])
	}
	if hunter.Reputation != 0 {
		t.Errorf("reputation = %d, want 0", hunter.Reputation)
	}
}

func TestRegisterHunterMergeIsMaxWins(t *testing.T) {
	s := setupStore(t)

	write(t, s, func(tx *store.Tx) (err error) {
		_, err = RegisterHunter(tx, "hunter-a", map[string]int{"python": 80, "go": 40}, testNow())
		return err
	})

	var hunter *types.Hunter
	write(t, s, func(tx *store.Tx) (err error) {
		// replay with a lower python, a higher go, and a new skill
		hunter, err = RegisterHunter(tx, "hunter-a", map[string]int{"python": 10, "go": 60, "sql": 30}, testNow())
		return err
	})

	if hunter.Skills["python"] != 80 {
		t.Errorf("python = %d, replay must not lower a skill", hunter.Skills["python"])
	}
	if hunter.Skills["go"] != 60 {
		t.Errorf("go = %d, want raised to 60", hunter.Skills["go"])
	}
	if hunter.Skills["sql"] != 30 {
		t.Errorf("sql = %d, want 30", hunter.Skills["sql"])
	}
}

func TestRegisterHunterKeepsOmittedSkills(t *testing.T) {
	s := setupStore(t)

	write(t, s, func(tx *store.Tx) (err error) {
		_, err = RegisterHunter(tx, "hunter-a", map[string]int{"python": 80}, testNow())
		return err
	})

	var hunter *types.Hunter
	write(t, s, func(tx *store.Tx) (err error) {
		hunter, err = RegisterHunter(tx, "hunter-a", nil, testNow())
		return err
	})
	if hunter.Skills["python"] != 80 {
		t.Errorf("python = %d, omitted skills must survive", hunter.Skills["python"])
	}
}

func TestStudyKnowledgeRaisesTaggedSkills(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-a", map[string]int{"python": 97}, 0)

	item := &types.KnowledgeItem{
		ID:        "knowledge-1",
		Title:     "Indexing notes",
		SkillTags: []string{"python", "sql"},
	}

	var hunter *types.Hunter
	write(t, s, func(tx *store.Tx) (err error) {
		hunter, err = StudyKnowledge(tx, "hunter-a", item, testNow())
		return err
	})

	// 97 + 5 saturates at 100
	if hunter.Skills["python"] != 100 {
		t.Errorf("python = %d, want 100", hunter.Skills["python"])
	}
	// new skill starts at the study gain
	if hunter.Skills["sql"] != 5 {
		t.Errorf("sql = %d, want 5", hunter.Skills["sql"])
	}
}

func TestStudyKnowledgeUnknownHunter(t *testing.T) {
	s := setupStore(t)

	err := writeErr(t, s, func(tx *store.Tx) error {
		_, err := StudyKnowledge(tx, "hunter-ghost", &types.KnowledgeItem{ID: "knowledge-1"}, testNow())
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustReputationClampsAtZero(t *testing.T) {
	s := setupStore(t)
	seedHunter(t, s, "hunter-a", nil, 50)

	var hunter *types.Hunter
	write(t, s, func(tx *store.Tx) (err error) {
		hunter, err = AdjustReputation(tx, "hunter-a", -10, testNow())
		return err
	})
	if hunter.Reputation != 0 {
		t.Errorf("reputation = %d, want clamped 0", hunter.Reputation)
	}
}

func TestFindBestHunterScoring(t *testing.T) {
	s := setupStore(t)
	now := testNow()

	write(t, s, func(tx *store.Tx) error {
		// high reputation but busy
		busy := types.NewHunter("hunter-busy", map[string]int{"go": 50}, now)
		busy.Reputation = 10
		busy.CurrentTasks = []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "t10",
			"t11", "t12", "t13", "t14", "t15", "t16", "t17", "t18", "t19", "t20",
			"t21", "t22", "t23", "t24"}
		if err := tx.SaveHunter(busy); err != nil {
			return err
		}

		// 0.7*1 - 0.3*0 = 0.7 beats 0.7*10 - 0.3*24 = -0.2
		idle := types.NewHunter("hunter-idle", map[string]int{"go": 30}, now)
		idle.Reputation = 1
		if err := tx.SaveHunter(idle); err != nil {
			return err
		}

		// zero skill level never qualifies for routing
		zero := types.NewHunter("hunter-zero", map[string]int{"go": 0}, now)
		zero.Reputation = 100
		if err := tx.SaveHunter(zero); err != nil {
			return err
		}

		inactive := types.NewHunter("hunter-off", map[string]int{"go": 90}, now)
		inactive.Reputation = 100
		inactive.Status = types.HunterInactive
		return tx.SaveHunter(inactive)
	})

	write(t, s, func(tx *store.Tx) error {
		best, err := FindBestHunter(tx, "go", nil)
		if err != nil {
			return err
		}
		if best == nil || best.ID != "hunter-idle" {
			t.Errorf("best = %v, want hunter-idle", best)
		}
		return nil
	})
}

func TestFindBestHunterTieBreaksOnSmallestID(t *testing.T) {
	s := setupStore(t)
	now := testNow()

	write(t, s, func(tx *store.Tx) error {
		for _, id := range []string{"hunter-b", "hunter-a", "hunter-c"} {
			h := types.NewHunter(id, map[string]int{"go": 50}, now)
			h.Reputation = 10
			if err := tx.SaveHunter(h); err != nil {
				return err
			}
		}
		return nil
	})

	write(t, s, func(tx *store.Tx) error {
		best, err := FindBestHunter(tx, "go", nil)
		if err != nil {
			return err
		}
		if best == nil || best.ID != "hunter-a" {
			t.Errorf("best = %v, want hunter-a on tie", best)
		}
		return nil
	})
}

func TestFindBestHunterExclusionAndEmpty(t *testing.T) {
	s := setupStore(t)
	now := testNow()

	write(t, s, func(tx *store.Tx) error {
		return tx.SaveHunter(types.NewHunter("hunter-a", map[string]int{"go": 50}, now))
	})

	write(t, s, func(tx *store.Tx) error {
		best, err := FindBestHunter(tx, "go", []string{"hunter-a"})
		if err != nil {
			return err
		}
		if best != nil {
			t.Errorf("best = %v, want nil with the only candidate excluded", best)
		}
		return nil
	})
}
