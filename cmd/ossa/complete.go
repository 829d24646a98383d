package main

import (
	"github.com/spf13/cobra"

	"ossa/internal/driver"
)

func newCompleteCmd() *cobra.Command {
	var (
		value  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "complete FILE",
		Short: "Complete the lifetimes of a module's values",
		Long: `Complete inserts the missing destroy_value, end_borrow, dealloc_box and
extend_lifetime instructions so that every owned or guaranteed value is ended
on every path. Without --value every value with a lifetime is completed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(cmd, args[0], passOptions{mode: driver.ModeComplete, value: value, output: output})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "complete only the value with this name (e.g. %x)")
	cmd.Flags().String("boundary", "", "completion boundary (liveness|availability)")
	cmd.Flags().Bool("verify", true, "check completeness afterwards")
	cmd.Flags().Bool("split-critical-edges", true, "split critical edges before completing")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the module to this file and print a report instead")
	return cmd
}
