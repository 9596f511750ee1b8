package cmd

import (
	"fmt"

	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/cmdctx"
	"github.com/hashmap-kz/peaceflow/internal/cmdexec"
	"github.com/hashmap-kz/peaceflow/internal/output"
	"github.com/hashmap-kz/peaceflow/internal/resources"
	"github.com/hashmap-kz/peaceflow/internal/statesync"
)

// buildCmdCtx builds a SingleProfileSingleFlow CmdCtx over the demo flow
// and seeds its backends from the profile's flow directory. The returned
// cleanup func persists the backends back out; callers must invoke it
// (typically via defer) after running their command.
func buildCmdCtx(streams genericiooptions.IOStreams, flags *commonFlags) (*cmdctx.CmdCtx, func() error, error) {
	flow, err := flags.buildFlow()
	if err != nil {
		return nil, nil, err
	}

	format, err := output.ParseFormat(flags.outcome)
	if err != nil {
		return nil, nil, err
	}

	b := cmdctx.NewBuilder(appName, flags.workspaceDir, cmdctx.SingleProfileSingleFlow)
	b.ProfileSelection = cmdctx.Specified(flags.profile)
	b.FlowID = flowID
	b.Flow = flow
	b.OutcomeFormat = format
	b.Streams = streams

	cc, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("cmd: building command context: %w", err)
	}

	backends := newDemoBackends()
	resources.Insert(cc.Resources, backends.vec)
	resources.Insert(cc.Resources, backends.mock)
	backends.load(cc.Paths.FlowDir)

	cleanup := func() error { return backends.save(cc.Paths.FlowDir) }
	return cc, cleanup, nil
}

// parseSyncMode parses the --sync flag.
func parseSyncMode(s string) (statesync.Mode, error) {
	switch s {
	case "", "none":
		return statesync.ModeNone, nil
	case "current":
		return statesync.ModeCurrent, nil
	case "goal":
		return statesync.ModeGoal, nil
	case "current_and_goal", "both":
		return statesync.ModeCurrentAndGoal, nil
	default:
		return statesync.ModeNone, fmt.Errorf("cmd: unknown --sync value %q", s)
	}
}

// present renders a CmdExecution outcome (or the error that replaced it)
// through the CmdCtx's output sink, returning the error the command should
// exit with. An ItemError outcome is rendered as a one-line-per-item error
// table sorted by item id, and still exits nonzero.
func present(cc *cmdctx.CmdCtx, outcome cmdexec.Outcome, runErr error) error {
	if runErr != nil {
		_ = cc.Output.WriteErr(runErr)
		return runErr
	}
	if outcome.Kind == cmdexec.ItemError {
		itemErrs := outcome.ItemErrors()
		if err := cc.Output.Present(itemErrs); err != nil {
			return err
		}
		return fmt.Errorf("cmd: %d item(s) failed", len(itemErrs))
	}
	return cc.Output.Present(outcome)
}
