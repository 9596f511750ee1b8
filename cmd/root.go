package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericiooptions"
)

// Execute builds the root command over the process' real stdio streams and
// runs it.
func Execute() error {
	streams := genericiooptions.IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
	return NewRootCmd(streams).Execute()
}

// NewRootCmd assembles the peaceflow command tree: discover, ensure and
// clean, each built over the same CmdCtx a CmdExecution runs against.
func NewRootCmd(streams genericiooptions.IOStreams) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "peaceflow",
		Short:         "Bring a workspace's items from their discovered current state to their declared goal state.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})
	rootCmd.AddCommand(NewDiscoverCmd(streams))
	rootCmd.AddCommand(NewEnsureCmd(streams))
	rootCmd.AddCommand(NewCleanCmd(streams))
	return rootCmd
}
