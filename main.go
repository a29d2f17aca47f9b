package main

import (
	"os"

	"github.com/cottand/hrewrite/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "hrw [subcommand]",
	Short:        "hrw\n a term rewriting engine over order-sorted signatures",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.NewRewriteCmd())
	rootCmd.AddCommand(cmd.NewCheckCmd())
}
