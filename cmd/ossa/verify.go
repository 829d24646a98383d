package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ossa/internal/lifetime"
	"ossa/internal/sil"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE",
		Short: "Check that a module is well formed and its lifetimes are complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readModule(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := sil.Validate(m); err != nil {
				return fmt.Errorf("invalid module: %w", err)
			}

			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed, color.Bold).SprintFunc()
			out := cmd.OutOrStdout()
			var errs []error
			for _, f := range m.Funcs {
				err := lifetime.CheckComplete(f)
				if err == nil {
					fmt.Fprintf(out, "%s @%s\n", ok("ok"), f.Name)
					continue
				}
				fmt.Fprintf(out, "%s @%s\n", bad("incomplete"), f.Name)
				errs = append(errs, err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d function(s) with incomplete lifetimes: %w", len(errs), errors.Join(errs...))
			}
			return nil
		},
	}
}
