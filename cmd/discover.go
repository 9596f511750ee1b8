package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/cmdexec"
)

// NewDiscoverCmd builds the "discover" command group: current, goal and
// current-and-goal, each running the matching StatesDiscover* and
// persisting its states_*.yaml.
func NewDiscoverCmd(streams genericiooptions.IOStreams) *cobra.Command {
	flags := &commonFlags{}

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover and persist an item's current and/or goal state.",
	}
	flags.registerFlags(discoverCmd.PersistentFlags())

	discoverCmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Discover current state only.",
		RunE: func(c *cobra.Command, _ []string) error {
			cc, cleanup, err := buildCmdCtx(streams, flags)
			if err != nil {
				return err
			}
			defer cleanup() //nolint:errcheck
			outcome, runErr := cmdexec.StatesDiscoverCurrent(c.Context(), cc)
			return present(cc, outcome, runErr)
		},
	})

	discoverCmd.AddCommand(&cobra.Command{
		Use:   "goal",
		Short: "Discover goal state only.",
		RunE: func(c *cobra.Command, _ []string) error {
			cc, cleanup, err := buildCmdCtx(streams, flags)
			if err != nil {
				return err
			}
			defer cleanup() //nolint:errcheck
			outcome, runErr := cmdexec.StatesDiscoverGoal(c.Context(), cc)
			return present(cc, outcome, runErr)
		},
	})

	discoverCmd.AddCommand(&cobra.Command{
		Use:   "current-and-goal",
		Short: "Discover both current and goal state.",
		RunE: func(c *cobra.Command, _ []string) error {
			cc, cleanup, err := buildCmdCtx(streams, flags)
			if err != nil {
				return err
			}
			defer cleanup() //nolint:errcheck
			outcome, runErr := cmdexec.StatesDiscoverCurrentAndGoal(c.Context(), cc)
			return present(cc, outcome, runErr)
		},
	})

	return discoverCmd
}
