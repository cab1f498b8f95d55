package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/cilweave/metadata"
	"github.com/wippyai/cilweave/selector"
)

func newInspectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image>",
		Short: "Show the interceptors that apply to each member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.loadImage(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, heading("module "+m.Name))
			planned := 0
			for _, md := range m.Methods() {
				cands := selector.Candidates(md)
				if len(cands) == 0 {
					continue
				}
				planned++
				fmt.Fprintf(out, "%s %s\n", memberColor.Sprint(md.FullName()), dimColor.Sprintf("[%s]", md.Kind()))
				for _, c := range cands {
					fmt.Fprintf(out, "  %4d  %-40s %-8s %s\n", c.Order, c.Name(), c.Scope, hookSummary(c.Type))
				}
			}
			if planned == 0 {
				fmt.Fprintln(out, dimColor.Sprint("no member has applicable interceptors"))
			}
			return nil
		},
	}
}

// hookSummary lists the hooks an interceptor type supplies, marking a
// missing Before hook.
func hookSummary(t *metadata.TypeDef) string {
	var hooks []string
	for _, name := range []string{metadata.HookBefore, metadata.HookAfter, metadata.HookException} {
		if t != nil && t.ResolveHook(name) != nil {
			hooks = append(hooks, okColor.Sprint(name))
		} else if name == metadata.HookBefore {
			hooks = append(hooks, errColor.Sprint("missing "+name))
		}
	}
	return strings.Join(hooks, ",")
}
