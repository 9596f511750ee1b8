package itemgraph

import (
	"context"
	"runtime"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// Visit is the operation a Run applies to each item in turn: discovery,
// diff, apply, or apply_dry, depending on which cmd-block is driving the
// traversal.
type Visit func(ctx context.Context, item ItemRt) error

// Event names one lifecycle transition of a single item within a Run call.
type Event int

const (
	EventStarted Event = iota
	EventCompleted
	EventFailed
	EventSkipped
	EventNotStarted
)

// Hook observes per-item lifecycle events as Run drives the graph. It
// lets a caller (cmdexec, via cmdblock) drive a progress.Tracker without
// this package depending on the progress package. A nil Hook is a valid
// no-op.
type Hook func(id itemid.ID, event Event)

func (h Hook) fire(id itemid.ID, event Event) {
	if h != nil {
		h(id, event)
	}
}

// Interrupter is the polling surface Run consults at its "pick next ready
// item" step: Channel reports whether a stop has fired; Tick is called
// once per poll so a countdown strategy (PollNextN) can advance.
type Interrupter interface {
	Channel() <-chan struct{}
	Tick()
}

type noInterrupt struct{}

func (noInterrupt) Channel() <-chan struct{} { return nil }
func (noInterrupt) Tick()                    {}

// NoInterrupt is an Interrupter that never stops a run.
func NoInterrupt() Interrupter { return noInterrupt{} }

// ChannelInterrupter adapts a bare close-to-fire channel to Interrupter,
// with Tick as a no-op, for callers (tests, simple graphs) that have no
// countdown strategy to drive.
type ChannelInterrupter struct {
	Ch <-chan struct{}
}

func (c ChannelInterrupter) Channel() <-chan struct{} { return c.Ch }
func (c ChannelInterrupter) Tick()                    {}

// RunResult is the outcome of one graph traversal: every item is
// classified into exactly one of Completed, Errors or Skipped, except when
// Interrupted stopped the walk before they were reached.
type RunResult struct {
	Completed   []itemid.ID
	Errors      map[itemid.ID]error
	Skipped     []itemid.ID
	Interrupted bool
	NotStarted  []itemid.ID
}

// DefaultConcurrency bounds how many items without a dependency relation
// run at once, absent an explicit override.
func DefaultConcurrency() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Run walks the flow respecting its logic subgraph: an item starts only
// after every predecessor has completed successfully. Items with no
// pending predecessor run concurrently, up to concurrency. A failing item
// does not cancel its siblings; its descendants are recorded as Skipped
// rather than visited. interrupt.Tick is called once per "pick next ready
// item" step; if it fires, no further items are started once in-flight
// ones finish, and everything not yet started is reported in NotStarted
// rather than Skipped. hook, if non-nil, is notified of every per-item
// transition as it happens.
func Run(ctx context.Context, f *Flow, visit Visit, concurrency int, interrupt Interrupter, hook Hook) RunResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}
	if interrupt == nil {
		interrupt = NoInterrupt()
	}

	order := f.IterInsertion()
	indegree := make(map[itemid.ID]int, len(order))
	children := make(map[itemid.ID][]itemid.ID, len(order))
	for _, id := range order {
		preds := f.Predecessors(id)
		indegree[id] = len(preds)
		for _, p := range preds {
			children[p] = append(children[p], id)
		}
	}

	result := RunResult{Errors: make(map[itemid.ID]error)}

	var ready []itemid.ID
	for _, id := range order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	type outcome struct {
		id  itemid.ID
		err error
	}
	doneCh := make(chan outcome)
	inFlight := 0
	interrupted := false

	for len(ready) > 0 || inFlight > 0 {
		for len(ready) > 0 && inFlight < concurrency {
			if !interrupted {
				interrupt.Tick()
				select {
				case <-interrupt.Channel():
					interrupted = true
				default:
				}
			}
			if interrupted {
				break
			}
			id := ready[0]
			ready = ready[1:]
			item, _ := f.Item(id)
			inFlight++
			hook.fire(id, EventStarted)
			go func(id itemid.ID, item ItemRt) {
				doneCh <- outcome{id: id, err: visit(ctx, item)}
			}(id, item)
		}

		if inFlight == 0 {
			break
		}

		res := <-doneCh
		inFlight--
		if res.err != nil {
			result.Errors[res.id] = res.err
			hook.fire(res.id, EventFailed)
			continue
		}
		result.Completed = append(result.Completed, res.id)
		hook.fire(res.id, EventCompleted)
		for _, child := range children[res.id] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	result.Interrupted = interrupted
	visited := make(map[itemid.ID]bool, len(result.Completed)+len(result.Errors))
	for _, id := range result.Completed {
		visited[id] = true
	}
	for id := range result.Errors {
		visited[id] = true
	}
	for _, id := range order {
		if visited[id] {
			continue
		}
		if interrupted {
			result.NotStarted = append(result.NotStarted, id)
			hook.fire(id, EventNotStarted)
		} else {
			result.Skipped = append(result.Skipped, id)
			hook.fire(id, EventSkipped)
		}
	}
	return result
}
