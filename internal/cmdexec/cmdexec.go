// Package cmdexec implements the top-level commands: StatesDiscoverCmd,
// EnsureCmd and CleanCmd, each a short sequence of cmdblock.Outcome-
// producing blocks plus the persistence and history side effects that
// follow them.
package cmdexec

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashmap-kz/peaceflow/internal/cmdblock"
	"github.com/hashmap-kz/peaceflow/internal/cmdctx"
	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/output"
	"github.com/hashmap-kz/peaceflow/internal/progress"
	"github.com/hashmap-kz/peaceflow/internal/resources"
	"github.com/hashmap-kz/peaceflow/internal/statesync"
	"github.com/hashmap-kz/peaceflow/internal/statestore"
)

// historyRetainLimit bounds how many .history snapshots a profile keeps;
// each successful apply appends one and prunes the oldest beyond this.
const historyRetainLimit = 10

// Kind names a CmdExecutionOutcome variant.
type Kind int

const (
	Complete Kind = iota
	BlockInterrupted
	ExecutionInterrupted
	ItemError
)

// Outcome is the result of one top-level command. BlocksProcessed names the
// blocks that ran to completion; BlocksNotProcessed names the rest of the
// command's planned block sequence, starting with the block an interrupt
// (or sync-check failure) stopped at.
type Outcome struct {
	Kind               Kind
	Blocks             []cmdblock.Outcome
	BlocksProcessed    []string
	BlocksNotProcessed []string
}

// ItemErrors flattens every block's per-item errors into one list sorted
// by item id, the shape the output sink renders as an error table.
func (o Outcome) ItemErrors() output.ItemErrors {
	byID := map[itemid.ID]error{}
	for _, b := range o.Blocks {
		for id, err := range b.Errors {
			byID[id] = err
		}
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	out := make(output.ItemErrors, 0, len(ids))
	for _, id := range ids {
		out = append(out, output.ItemErrorEntry{ItemID: itemid.ID(id), Error: byID[itemid.ID(id)].Error()})
	}
	return out
}

func classify(blocks []cmdblock.Outcome, planned []string) Outcome {
	kind := Complete
	for _, b := range blocks {
		switch b.Kind {
		case cmdblock.Interrupted:
			kind = BlockInterrupted
		case cmdblock.ItemWise:
			if kind == Complete {
				kind = ItemError
			}
		}
	}
	var processed []string
	for _, b := range blocks {
		if b.Kind == cmdblock.Interrupted || b.Kind == cmdblock.Fatal {
			break
		}
		processed = append(processed, b.Name)
	}
	return Outcome{
		Kind:               kind,
		Blocks:             blocks,
		BlocksProcessed:    processed,
		BlocksNotProcessed: planned[len(processed):],
	}
}

func interruptedBetweenBlocks(cc *cmdctx.CmdCtx) bool {
	return cc.Interrupt.Fired()
}

// executionInterrupted is the outcome of an interrupt honored between two
// blocks: earlier blocks' outcomes are preserved, everything still planned
// is reported unprocessed.
func executionInterrupted(blocks []cmdblock.Outcome, planned []string) Outcome {
	out := classify(blocks, planned)
	out.Kind = ExecutionInterrupted
	return out
}

// concurrency is 0: the cmdblock fan-outs pass it to itemgraph.Run, which
// falls back to itemgraph.DefaultConcurrency when given 0.
const defaultConcurrency = 0

// trackerList returns cc's per-item Trackers in the flow's insertion
// order, the order ProgressBegin/ProgressEnd render them in.
func trackerList(cc *cmdctx.CmdCtx) []*progress.Tracker {
	ids := cc.Flow.IterInsertion()
	list := make([]*progress.Tracker, 0, len(ids))
	for _, id := range ids {
		if tr, ok := cc.Trackers[id]; ok {
			list = append(list, tr)
		}
	}
	return list
}

// progressHook bridges itemgraph's per-item lifecycle events onto cc's
// Trackers and output sink,
// without itemgraph importing progress or output.
func progressHook(cc *cmdctx.CmdCtx) itemgraph.Hook {
	return func(id itemid.ID, event itemgraph.Event) {
		tr, ok := cc.Trackers[id]
		if !ok {
			return
		}
		var u progress.Update
		switch event {
		case itemgraph.EventStarted:
			u = progress.Update{Kind: progress.UpdateDelta}
		case itemgraph.EventCompleted:
			u = progress.Update{Kind: progress.UpdateCompleteSuccess}
		case itemgraph.EventFailed:
			u = progress.Update{Kind: progress.UpdateCompleteFail}
		case itemgraph.EventSkipped:
			u = progress.Update{Kind: progress.UpdateCompleteFail}
		case itemgraph.EventNotStarted:
			u = progress.Update{Kind: progress.UpdateInterrupt}
		default:
			return
		}
		tr.Apply(u)
		cc.Output.ProgressUpdate(tr, u)
	}
}

// StatesDiscoverCurrent runs current discovery and persists states_current.yaml.
func StatesDiscoverCurrent(ctx context.Context, cc *cmdctx.CmdCtx) (Outcome, error) {
	planned := []string{cmdblock.NameStatesCurrentRead}
	if interruptedBetweenBlocks(cc) {
		return executionInterrupted(nil, planned), nil
	}
	trackers := trackerList(cc)
	cc.Output.ProgressBegin(trackers)
	defer cc.Output.ProgressEnd(trackers)

	block := cmdblock.StatesCurrentRead(ctx, cc.Flow, cc.Resources, defaultConcurrency, cc.Interrupt, progressHook(cc))
	out := classify([]cmdblock.Outcome{block}, planned)
	if err := statestore.WriteCurrent(cc.Paths.StatesCurrentPath(), cc.Flow, cc.Resources); err != nil {
		return out, err
	}
	return out, nil
}

// StatesDiscoverGoal runs goal discovery and persists states_goal.yaml.
func StatesDiscoverGoal(ctx context.Context, cc *cmdctx.CmdCtx) (Outcome, error) {
	planned := []string{cmdblock.NameStatesGoalRead}
	if interruptedBetweenBlocks(cc) {
		return executionInterrupted(nil, planned), nil
	}
	trackers := trackerList(cc)
	cc.Output.ProgressBegin(trackers)
	defer cc.Output.ProgressEnd(trackers)

	block := cmdblock.StatesGoalRead(ctx, cc.Flow, cc.Resources, defaultConcurrency, cc.Interrupt, progressHook(cc))
	out := classify([]cmdblock.Outcome{block}, planned)
	if err := statestore.WriteGoal(cc.Paths.StatesGoalPath(), cc.Flow, cc.Resources); err != nil {
		return out, err
	}
	return out, nil
}

// StatesDiscoverCurrentAndGoal runs both directions as one block sequence.
func StatesDiscoverCurrentAndGoal(ctx context.Context, cc *cmdctx.CmdCtx) (Outcome, error) {
	planned := []string{cmdblock.NameStatesCurrentRead, cmdblock.NameStatesGoalRead}
	if interruptedBetweenBlocks(cc) {
		return executionInterrupted(nil, planned), nil
	}
	trackers := trackerList(cc)
	cc.Output.ProgressBegin(trackers)
	defer cc.Output.ProgressEnd(trackers)
	hook := progressHook(cc)

	current, goal := cmdblock.StatesDiscover(ctx, cc.Flow, cc.Resources, defaultConcurrency, cc.Interrupt, hook)
	blocks := []cmdblock.Outcome{current}
	if current.Kind != cmdblock.Interrupted {
		blocks = append(blocks, goal)
	}
	out := classify(blocks, planned)
	if err := statestore.WriteCurrent(cc.Paths.StatesCurrentPath(), cc.Flow, cc.Resources); err != nil {
		return out, err
	}
	if current.Kind == cmdblock.Interrupted {
		return out, nil
	}
	if err := statestore.WriteGoal(cc.Paths.StatesGoalPath(), cc.Flow, cc.Resources); err != nil {
		return out, err
	}
	return out, nil
}

// applyWith is the shared body of EnsureCmd/CleanCmd:
// fresh discovery, state-sync check, then apply/apply_dry fan-out toward
// target, persisting states_current.yaml (and a .history snapshot on
// success) afterward. For Ensure, discovery covers current and goal; for
// Clean, discovery covers current only and is followed by deriving each
// item's declared clean state (StatesClean-derive) before the sync check,
// since Clean has no goal discovery of its own.
func applyWith(ctx context.Context, cc *cmdctx.CmdCtx, target resources.Mode, syncMode statesync.Mode, dry bool, historyStamp string) (Outcome, error) {
	planned := []string{
		cmdblock.NameStatesCurrentRead,
		cmdblock.NameStatesGoalRead,
		cmdblock.NameApplyStateSyncCheck,
		cmdblock.NameApplyExec,
	}
	if target == resources.ModeClean {
		planned[1] = cmdblock.NameStatesCleanDerive
	}

	if interruptedBetweenBlocks(cc) {
		return executionInterrupted(nil, planned), nil
	}

	trackers := trackerList(cc)
	cc.Output.ProgressBegin(trackers)
	defer cc.Output.ProgressEnd(trackers)
	hook := progressHook(cc)

	blocks := make([]cmdblock.Outcome, 0, 4)

	var currentBlock, goalBlock cmdblock.Outcome
	if target == resources.ModeClean {
		currentBlock = cmdblock.StatesCurrentRead(ctx, cc.Flow, cc.Resources, defaultConcurrency, cc.Interrupt, hook)
	} else {
		currentBlock, goalBlock = cmdblock.StatesDiscover(ctx, cc.Flow, cc.Resources, defaultConcurrency, cc.Interrupt, hook)
	}
	blocks = append(blocks, currentBlock)
	if target != resources.ModeClean && currentBlock.Kind != cmdblock.Interrupted {
		blocks = append(blocks, goalBlock)
	}
	if currentBlock.Kind == cmdblock.Interrupted || (target != resources.ModeClean && goalBlock.Kind == cmdblock.Interrupted) {
		return classify(blocks, planned), nil
	}

	if !dry {
		if err := statestore.WriteCurrent(cc.Paths.StatesCurrentPath(), cc.Flow, cc.Resources); err != nil {
			return classify(blocks, planned), fmt.Errorf("cmdexec: persisting states_current.yaml: %w", err)
		}
		if target != resources.ModeClean {
			if err := statestore.WriteGoal(cc.Paths.StatesGoalPath(), cc.Flow, cc.Resources); err != nil {
				return classify(blocks, planned), fmt.Errorf("cmdexec: persisting states_goal.yaml: %w", err)
			}
		}
	}

	if interruptedBetweenBlocks(cc) {
		return executionInterrupted(blocks, planned), nil
	}

	if target == resources.ModeClean {
		cleanBlock := cmdblock.StatesCleanDerive(ctx, cc.Flow, cc.Resources, defaultConcurrency, cc.Interrupt, hook)
		blocks = append(blocks, cleanBlock)
		if cleanBlock.Kind == cmdblock.Interrupted {
			return classify(blocks, planned), nil
		}
	}

	if interruptedBetweenBlocks(cc) {
		return executionInterrupted(blocks, planned), nil
	}

	syncBlock := cmdblock.ApplyStateSyncCheck(cc.Flow, cc.Resources, syncMode)
	blocks = append(blocks, syncBlock)
	if syncBlock.Kind == cmdblock.Fatal {
		out := classify(blocks, planned)
		out.Kind = Complete
		return out, syncBlock.FatalErr
	}

	if interruptedBetweenBlocks(cc) {
		return executionInterrupted(blocks, planned), nil
	}

	applyBlock := cmdblock.ApplyExec(ctx, cc.Flow, cc.Resources, target, dry, defaultConcurrency, cc.Interrupt, hook)
	blocks = append(blocks, applyBlock)
	out := classify(blocks, planned)

	if dry {
		return out, nil
	}

	if err := statestore.WriteCurrent(cc.Paths.StatesCurrentPath(), cc.Flow, cc.Resources); err != nil {
		return out, fmt.Errorf("cmdexec: persisting states_current.yaml: %w", err)
	}
	if out.Kind == Complete && cc.Paths.ProfileHistoryDir != "" {
		if err := statestore.RetainCurrentSnapshot(cc.Paths.StatesCurrentPath(), cc.Paths.ProfileHistoryDir, historyStamp); err != nil {
			return out, fmt.Errorf("cmdexec: retaining history snapshot: %w", err)
		}
		if err := statestore.PruneHistory(cc.Paths.ProfileHistoryDir, historyRetainLimit); err != nil {
			return out, fmt.Errorf("cmdexec: pruning history snapshots: %w", err)
		}
	}
	return out, nil
}

// EnsureCmd runs apply toward the goal state.
func EnsureCmd(ctx context.Context, cc *cmdctx.CmdCtx, syncMode statesync.Mode, historyStamp string) (Outcome, error) {
	return applyWith(ctx, cc, resources.ModeGoal, syncMode, false, historyStamp)
}

// EnsureCmdDry runs apply_dry toward the goal state, never writing state
// files.
func EnsureCmdDry(ctx context.Context, cc *cmdctx.CmdCtx, syncMode statesync.Mode) (Outcome, error) {
	return applyWith(ctx, cc, resources.ModeGoal, syncMode, true, "")
}

// CleanCmd runs apply toward the clean state. syncMode is collapsed so
// Goal checks never apply to Clean.
func CleanCmd(ctx context.Context, cc *cmdctx.CmdCtx, syncMode statesync.Mode, historyStamp string) (Outcome, error) {
	return applyWith(ctx, cc, resources.ModeClean, statesync.ForClean(syncMode), false, historyStamp)
}

// CleanCmdDry runs apply_dry toward the clean state.
func CleanCmdDry(ctx context.Context, cc *cmdctx.CmdCtx, syncMode statesync.Mode) (Outcome, error) {
	return applyWith(ctx, cc, resources.ModeClean, statesync.ForClean(syncMode), true, "")
}
