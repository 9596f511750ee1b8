package itemgraph

import (
	"fmt"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// Flow is a named dependency graph of items. Items are kept in
// insertion order; edges express the logic subgraph an item's start must
// wait on.
type Flow struct {
	ID    itemid.ID
	items map[itemid.ID]ItemRt
	order []itemid.ID
	preds map[itemid.ID][]itemid.ID
}

// NewFlow returns an empty Flow.
func NewFlow(id itemid.ID) *Flow {
	return &Flow{
		ID:    id,
		items: make(map[itemid.ID]ItemRt),
		preds: make(map[itemid.ID][]itemid.ID),
	}
}

// AddItem registers an item. Items must be added before edges referencing
// them.
func (f *Flow) AddItem(item ItemRt) error {
	id := item.ID()
	if _, exists := f.items[id]; exists {
		return fmt.Errorf("itemgraph: duplicate item id %q", id)
	}
	f.items[id] = item
	f.order = append(f.order, id)
	if _, ok := f.preds[id]; !ok {
		f.preds[id] = nil
	}
	return nil
}

// AddEdge declares that `from` must complete before `to` starts. Rejects
// the edge (and the graph stays unchanged) if it would introduce a cycle.
func (f *Flow) AddEdge(from, to itemid.ID) error {
	if _, ok := f.items[from]; !ok {
		return fmt.Errorf("itemgraph: edge references unknown item %q", from)
	}
	if _, ok := f.items[to]; !ok {
		return fmt.Errorf("itemgraph: edge references unknown item %q", to)
	}
	f.preds[to] = append(f.preds[to], from)
	if f.hasCycle() {
		// roll back
		preds := f.preds[to]
		f.preds[to] = preds[:len(preds)-1]
		return fmt.Errorf("itemgraph: edge %q -> %q would introduce a cycle", from, to)
	}
	return nil
}

func (f *Flow) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[itemid.ID]int, len(f.order))
	var visit func(id itemid.ID) bool
	visit = func(id itemid.ID) bool {
		color[id] = gray
		for _, p := range f.preds[id] {
			switch color[p] {
			case gray:
				return true
			case white:
				if visit(p) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for _, id := range f.order {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// IterInsertion returns item ids in the order they were registered.
func (f *Flow) IterInsertion() []itemid.ID {
	out := make([]itemid.ID, len(f.order))
	copy(out, f.order)
	return out
}

// Item looks up a registered item by id.
func (f *Flow) Item(id itemid.ID) (ItemRt, bool) {
	it, ok := f.items[id]
	return it, ok
}

// Predecessors returns the logic-subgraph predecessors of id.
func (f *Flow) Predecessors(id itemid.ID) []itemid.ID {
	preds := f.preds[id]
	out := make([]itemid.ID, len(preds))
	copy(out, preds)
	return out
}
