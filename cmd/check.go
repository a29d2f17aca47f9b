package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "check file.yaml",
		Short:        "Load a declaration file and report what it declares",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), args[0])
		},
	}
}

func runCheck(out io.Writer, path string) error {
	prog, err := load(path)
	if err != nil {
		return err
	}
	terms, err := prog.Terms()
	if err != nil {
		return formatErr(err)
	}
	ctx := prog.Context()
	_, err = fmt.Fprintf(out, "%s: %d sorts, %d constructors, %d rules, %d terms\n",
		path, ctx.Lattice().Len(), ctx.Signature().Len(), prog.Rewriter().Rules().Len(), len(terms))
	return err
}
