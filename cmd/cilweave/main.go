// Command cilweave weaves interceptors into module images.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "cilweave",
		Short:         "Weave before/after/exception interceptors into CLI method bodies",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd, args)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.teardown()
		},
	}

	root.PersistentFlags().StringSliceVar(&opts.searchDirs, "search-dir", nil, "Extra directory to search for referenced modules")
	root.PersistentFlags().StringVar(&opts.configDir, "config", "", "Directory containing cilweave.toml (default: search upwards from the image)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", os.Getenv("NO_COLOR") != "", "Disable colored output")

	root.AddCommand(
		newWeaveCmd(opts),
		newDisCmd(opts),
		newInspectCmd(opts),
	)
	return root
}
