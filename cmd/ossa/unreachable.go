package main

import (
	"github.com/spf13/cobra"

	"ossa/internal/driver"
)

func newUnreachableCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "unreachable FILE",
		Short: "Cut code after noreturn calls and repair lifetimes",
		Long: `Unreachable truncates every block after its first apply [noreturn],
completes the lifetimes that used to end in the removed code and deletes the
blocks that can no longer execute.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(cmd, args[0], passOptions{mode: driver.ModeUnreachable, output: output})
		},
	}
	cmd.Flags().Bool("verify", true, "check completeness afterwards")
	cmd.Flags().Bool("split-critical-edges", true, "split critical edges before cutting")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the module to this file and print a report instead")
	return cmd
}
