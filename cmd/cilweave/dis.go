package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
)

func newDisCmd(opts *globalOptions) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "dis <image>",
		Short: "Disassemble method bodies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.loadImage(args[0])
			if err != nil {
				return err
			}

			methods := m.Methods()
			if method != "" {
				md := m.FindMethod(method)
				if md == nil {
					return errors.NotFound(errors.PhaseIO, "method", method)
				}
				methods = []*metadata.MethodDef{md}
			}

			out := cmd.OutOrStdout()
			for _, md := range methods {
				fmt.Fprintln(out, heading(fmt.Sprintf(".method %s %s", md.FullName(), md.Signature)))
				if md.Body == nil {
					fmt.Fprintln(out, dimColor.Sprint("  // no body"))
					continue
				}
				if err := cil.WriteListing(out, md.Body); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "Only disassemble Namespace.Type::Name")
	return cmd
}
