// Package cmdblock implements the standard CmdBlocks of the pipeline:
// discovery, state-clean derivation,
// state-sync check, and apply execution, each translating an item-graph
// traversal (or a single check) into a CmdBlockOutcome.
package cmdblock

import (
	"context"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/resources"
	"github.com/hashmap-kz/peaceflow/internal/statesync"
)

// Block names, used by CmdExecution outcomes to report which blocks ran
// to completion and which did not.
const (
	NameStatesCurrentRead   = "StatesCurrentReadCmdBlock"
	NameStatesGoalRead      = "StatesGoalReadCmdBlock"
	NameStatesCleanDerive   = "StatesCleanDeriveCmdBlock"
	NameApplyStateSyncCheck = "ApplyStateSyncCheckCmdBlock"
	NameApplyExec           = "ApplyExecCmdBlock"
)

// Kind names a CmdBlockOutcome variant.
type Kind int

const (
	// Single is the outcome of a block that does not fan out over items
	// (the state-sync check), and of an item fan-out in which every item
	// completed.
	Single Kind = iota
	// ItemWise is the outcome of an item fan-out that ran to completion
	// with at least one item failing (its descendants skipped).
	ItemWise
	// Interrupted is an item fan-out stopped early by the interrupt signal.
	Interrupted
	// Fatal is a block-level failure unrelated to any individual item
	// (e.g. a state-sync mismatch).
	Fatal
)

// Outcome is the result of running one CmdBlock.
type Outcome struct {
	Name       string
	Kind       Kind
	Completed  []itemid.ID
	Skipped    []itemid.ID
	NotStarted []itemid.ID
	Errors     map[itemid.ID]error
	FatalErr   error
}

func fromRunResult(name string, res itemgraph.RunResult) Outcome {
	if res.Interrupted {
		return Outcome{
			Name:       name,
			Kind:       Interrupted,
			Completed:  res.Completed,
			Skipped:    res.Skipped,
			NotStarted: res.NotStarted,
			Errors:     res.Errors,
		}
	}
	if len(res.Errors) > 0 {
		return Outcome{Name: name, Kind: ItemWise, Completed: res.Completed, Skipped: res.Skipped, Errors: res.Errors}
	}
	return Outcome{Name: name, Kind: Single, Completed: res.Completed}
}

// StatesCurrentRead runs StateCurrent over every item in the flow.
func StatesCurrentRead(ctx context.Context, f *itemgraph.Flow, r *resources.Resources, concurrency int, interrupt itemgraph.Interrupter, hook itemgraph.Hook) Outcome {
	res := itemgraph.Run(ctx, f, func(ctx context.Context, item itemgraph.ItemRt) error {
		return item.StateCurrent(ctx, r)
	}, concurrency, interrupt, hook)
	return fromRunResult(NameStatesCurrentRead, res)
}

// StatesGoalRead runs StateGoal over every item in the flow.
func StatesGoalRead(ctx context.Context, f *itemgraph.Flow, r *resources.Resources, concurrency int, interrupt itemgraph.Interrupter, hook itemgraph.Hook) Outcome {
	res := itemgraph.Run(ctx, f, func(ctx context.Context, item itemgraph.ItemRt) error {
		return item.StateGoal(ctx, r)
	}, concurrency, interrupt, hook)
	return fromRunResult(NameStatesGoalRead, res)
}

// StatesDiscover runs current discovery then goal discovery. It stops
// after current if that block was interrupted, mirroring the sequential
// nature of a CmdExecution's block list; item failures in current
// discovery do not stop goal discovery.
func StatesDiscover(ctx context.Context, f *itemgraph.Flow, r *resources.Resources, concurrency int, interrupt itemgraph.Interrupter, hook itemgraph.Hook) (current, goal Outcome) {
	current = StatesCurrentRead(ctx, f, r, concurrency, interrupt, hook)
	if current.Kind == Interrupted {
		return current, Outcome{}
	}
	goal = StatesGoalRead(ctx, f, r, concurrency, interrupt, hook)
	return current, goal
}

// StatesCleanDerive runs StateClean over every item in the flow, deriving
// each item's declared "not present" state ahead of Clean's sync check
// and apply fan-out.
func StatesCleanDerive(ctx context.Context, f *itemgraph.Flow, r *resources.Resources, concurrency int, interrupt itemgraph.Interrupter, hook itemgraph.Hook) Outcome {
	res := itemgraph.Run(ctx, f, func(_ context.Context, item itemgraph.ItemRt) error {
		return item.StateClean(r)
	}, concurrency, interrupt, hook)
	return fromRunResult(NameStatesCleanDerive, res)
}

// ApplyStateSyncCheck runs the stored-vs-discovered staleness check. It
// never fans out over items concurrently: it is a Single outcome on
// success, Fatal on a stale classification.
func ApplyStateSyncCheck(f *itemgraph.Flow, r *resources.Resources, mode statesync.Mode) Outcome {
	if err := statesync.Check(f, r, mode); err != nil {
		return Outcome{Name: NameApplyStateSyncCheck, Kind: Fatal, FatalErr: err}
	}
	return Outcome{Name: NameApplyStateSyncCheck, Kind: Single}
}

// ApplyExec diffs every item against target, then runs ApplyDry (if dry)
// or Apply, moving current state toward target (resources.ModeGoal for
// Ensure, resources.ModeClean for Clean). Diff runs first so ApplyCheck's
// gate (built on the populated diff namespace) sees real data rather than
// a zero value.
func ApplyExec(ctx context.Context, f *itemgraph.Flow, r *resources.Resources, target resources.Mode, dry bool, concurrency int, interrupt itemgraph.Interrupter, hook itemgraph.Hook) Outcome {
	res := itemgraph.Run(ctx, f, func(ctx context.Context, item itemgraph.ItemRt) error {
		if err := item.Diff(r, target); err != nil {
			return err
		}
		if dry {
			return item.ApplyDry(ctx, r, target)
		}
		return item.Apply(ctx, r, target)
	}, concurrency, interrupt, hook)
	return fromRunResult(NameApplyExec, res)
}
