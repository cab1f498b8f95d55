package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/cilweave/image"
	"github.com/wippyai/cilweave/weaver"
)

func newWeaveCmd(opts *globalOptions) *cobra.Command {
	var (
		rethrow bool
		dryRun  bool
		output  string
	)
	cmd := &cobra.Command{
		Use:   "weave <image>",
		Short: "Weave interceptors into every annotated member and replace the image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			m, err := opts.loadImage(path)
			if err != nil {
				return err
			}

			wopts := opts.cfg.WeaverOptions()
			if cmd.Flags().Changed("rethrow") {
				wopts.RethrowAfterExceptionHook = rethrow
			}

			results, err := weaver.NewSession(m, wopts).Run()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, heading(fmt.Sprintf("%s: %d member(s) woven", m.Name, len(results))))
			for _, r := range results {
				s := r.Encoded.Stats
				target := "inline"
				if r.Clone != nil {
					target = r.Clone.Name
				}
				fmt.Fprintf(out, "  %s -> %s %s\n",
					memberColor.Sprint(r.Member.FullName()),
					target,
					dimColor.Sprintf("(%d interceptor(s), code %d, stack %d, %s header)",
						len(r.Interceptors), s.CodeSize, s.MaxStack, s.Header))
			}

			if dryRun {
				fmt.Fprintln(out, warnColor.Sprint("dry run: image not written"))
				return nil
			}
			if output == "" {
				output = path
			}
			if err := image.Replace(output, m); err != nil {
				return err
			}
			fmt.Fprintln(out, okColor.Sprintf("wrote %s", output))
			return nil
		},
	}
	cmd.Flags().BoolVar(&rethrow, "rethrow", false, "Rethrow caught exceptions after the Exception hook")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Weave in memory without writing the image")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the woven image to this path instead of replacing the input")
	return cmd
}
