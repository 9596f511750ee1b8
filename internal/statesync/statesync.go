// Package statesync implements the state-sync check: before an
// apply or clean runs, optionally refuse to proceed if the states
// persisted from a previous run are not in sync with a fresh discovery.
package statesync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/resources"
)

// Mode selects which direction(s) staleness is checked for.
type Mode int

const (
	ModeNone Mode = iota
	ModeCurrent
	ModeGoal
	ModeCurrentAndGoal
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeCurrent:
		return "current"
	case ModeGoal:
		return "goal"
	case ModeCurrentAndGoal:
		return "current_and_goal"
	default:
		return "unknown"
	}
}

// ForClean collapses Goal checks to None: Clean's target is state_clean,
// not state_goal, so a goal drift is irrelevant to it.
func ForClean(m Mode) Mode {
	switch m {
	case ModeGoal:
		return ModeNone
	case ModeCurrentAndGoal:
		return ModeCurrent
	default:
		return m
	}
}

// StatesCurrentOutOfSync reports items whose persisted current state
// disagrees with a freshly discovered one.
type StatesCurrentOutOfSync struct {
	Items map[itemid.ID]itemgraph.Classification
}

func (e *StatesCurrentOutOfSync) Error() string {
	return "states_current out of sync: " + renderItems(e.Items)
}

// StatesGoalOutOfSync reports items whose persisted goal state disagrees
// with a freshly discovered one.
type StatesGoalOutOfSync struct {
	Items map[itemid.ID]itemgraph.Classification
}

func (e *StatesGoalOutOfSync) Error() string {
	return "states_goal out of sync: " + renderItems(e.Items)
}

func renderItems(items map[itemid.ID]itemgraph.Classification) string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %s", id, items[itemid.ID(id)]))
	}
	return strings.Join(parts, ", ")
}

// Check walks every item in the flow's insertion order and classifies
// staleness for the requested direction(s). Current is checked (and
// reported) before Goal: if both are stale, StatesCurrentOutOfSync wins.
// ModeNone never fails.
func Check(f *itemgraph.Flow, r *resources.Resources, mode Mode) error {
	if mode == ModeCurrent || mode == ModeCurrentAndGoal {
		stale := map[itemid.ID]itemgraph.Classification{}
		for _, id := range f.IterInsertion() {
			item, ok := f.Item(id)
			if !ok {
				continue
			}
			classification, isStale, err := item.CompareCurrent(r)
			if err != nil {
				return err
			}
			if isStale {
				stale[id] = classification
			}
		}
		if len(stale) > 0 {
			return &StatesCurrentOutOfSync{Items: stale}
		}
	}

	if mode == ModeGoal || mode == ModeCurrentAndGoal {
		stale := map[itemid.ID]itemgraph.Classification{}
		for _, id := range f.IterInsertion() {
			item, ok := f.Item(id)
			if !ok {
				continue
			}
			classification, isStale, err := item.CompareGoal(r)
			if err != nil {
				return err
			}
			if isStale {
				stale[id] = classification
			}
		}
		if len(stale) > 0 {
			return &StatesGoalOutOfSync{Items: stale}
		}
	}

	return nil
}
