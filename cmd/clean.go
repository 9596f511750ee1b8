package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/cmdexec"
)

// NewCleanCmd builds "clean": bring every item to its clean state.
func NewCleanCmd(streams genericiooptions.IOStreams) *cobra.Command {
	flags := &commonFlags{}
	var dry bool
	var sync string

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Bring items from their current state to their declared clean state.",
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
				outcome, runErr := cmdexec.CleanCmdDry(c.Context(), cc, syncMode)
				return present(cc, outcome, runErr)
			}
			outcome, runErr := cmdexec.CleanCmd(c.Context(), cc, syncMode, historyStamp())
			return present(cc, outcome, runErr)
		},
	}
	flags.registerFlags(cleanCmd.Flags())
	cleanCmd.Flags().BoolVar(&dry, "dry", false, "compute the would-be outcome without applying or persisting it")
	cleanCmd.Flags().StringVar(&sync, "sync", "none", "staleness check before applying: none|current|goal|current_and_goal")

	return cleanCmd
}
