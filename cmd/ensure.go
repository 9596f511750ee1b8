package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/cmdexec"
)

// historyStamp names a .history snapshot by the time EnsureCmd/CleanCmd
// completed.
func historyStamp() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

// NewEnsureCmd builds "ensure": bring every item to its goal state.
func NewEnsureCmd(streams genericiooptions.IOStreams) *cobra.Command {
	flags := &commonFlags{}
	var dry bool
	var sync string

	ensureCmd := &cobra.Command{
		Use:   "ensure",
		Short: "Bring items from their current state to their declared goal state.",
		RunE: func(c *cobra.Command, _ []string) error {
			syncMode, err := parseSyncMode(sync)
			if err != nil {
				return err
			}

			cc, cleanup, err := buildCmdCtx(streams, flags)
			if err != nil {
				return err
			}
			defer cleanup() //nolint:errcheck

			if dry {
				outcome, runErr := cmdexec.EnsureCmdDry(c.Context(), cc, syncMode)
				return present(cc, outcome, runErr)
			}
			outcome, runErr := cmdexec.EnsureCmd(c.Context(), cc, syncMode, historyStamp())
			return present(cc, outcome, runErr)
		},
	}
	flags.registerFlags(ensureCmd.Flags())
	ensureCmd.Flags().BoolVar(&dry, "dry", false, "compute the would-be outcome without applying or persisting it")
	ensureCmd.Flags().StringVar(&sync, "sync", "none", "staleness check before applying: none|current|goal|current_and_goal")

	return ensureCmd
}
