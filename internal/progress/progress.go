// Package progress implements per-item progress tracking and the
// cooperative interrupt signal the item-graph runner polls, plus the
// update types the CmdOutput sink renders.
package progress

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// State is a ProgressTracker's lifecycle state.
type State int

const (
	StateInitialized State = iota
	StateExecPending
	StateQueued
	StateRunning
	StateRunningStalled
	StateUserPending
	StateInterrupted
	StateCompleteSuccess
	StateCompleteFail
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateExecPending:
		return "exec_pending"
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateRunningStalled:
		return "running_stalled"
	case StateUserPending:
		return "user_pending"
	case StateInterrupted:
		return "interrupted"
	case StateCompleteSuccess:
		return "complete_success"
	case StateCompleteFail:
		return "complete_fail"
	default:
		return "unknown"
	}
}

// UpdateKind names a ProgressUpdate variant.
type UpdateKind int

const (
	UpdateReset UpdateKind = iota
	UpdateResetToPending
	UpdateQueued
	UpdateInterrupt
	UpdateLimit
	UpdateDelta
	UpdateCompleteSuccess
	UpdateCompleteFail
)

// Delta is one increment of completed work within an item's apply limit.
type Delta struct {
	N uint64
}

// Update is one state transition applied to a Tracker.
type Update struct {
	Kind  UpdateKind
	Limit itemgraph.ProgressLimit
	Delta Delta
}

// Tracker is a single item's progress state machine. Its RunID is a uuid
// generated when the tracker is created and reported in its Snapshot;
// output sinks and history entries do not read it.
type Tracker struct {
	RunID  uuid.UUID
	ItemID itemid.ID

	mu        sync.Mutex
	state     State
	limit     itemgraph.ProgressLimit
	completed uint64
}

// NewTracker returns a Tracker in the Initialized state.
func NewTracker(itemID itemid.ID) *Tracker {
	return &Tracker{RunID: uuid.New(), ItemID: itemID, state: StateInitialized}
}

// Apply performs one state transition. It is the sole writer of tracker
// state; callers read it back via Snapshot.
func (t *Tracker) Apply(u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch u.Kind {
	case UpdateReset:
		t.state = StateInitialized
		t.completed = 0
	case UpdateResetToPending:
		t.state = StateExecPending
		t.completed = 0
	case UpdateQueued:
		t.state = StateQueued
	case UpdateInterrupt:
		t.state = StateInterrupted
	case UpdateLimit:
		t.limit = u.Limit
		t.state = StateRunning
	case UpdateDelta:
		t.completed += u.Delta.N
		t.state = StateRunning
	case UpdateCompleteSuccess:
		t.state = StateCompleteSuccess
	case UpdateCompleteFail:
		t.state = StateCompleteFail
	}
}

// Snapshot is an immutable read of a Tracker's current state.
type Snapshot struct {
	RunID     uuid.UUID
	ItemID    itemid.ID
	State     State
	Limit     itemgraph.ProgressLimit
	Completed uint64
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		RunID:     t.RunID,
		ItemID:    t.ItemID,
		State:     t.state,
		Limit:     t.limit,
		Completed: t.completed,
	}
}
