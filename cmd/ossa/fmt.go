package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ossa/internal/sil"
)

func newFmtCmd() *cobra.Command {
	var (
		emit   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Reformat a module or convert it between text and msgpack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readModule(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := sil.Validate(m); err != nil {
				return fmt.Errorf("invalid module: %w", err)
			}
			if output != "" {
				return writeModule(output, m)
			}
			switch strings.ToLower(emit) {
			case "text", "":
				return sil.FprintModule(cmd.OutOrStdout(), m, sil.PrintOptions{})
			case "msgpack":
				return sil.EncodeModule(cmd.OutOrStdout(), m)
			default:
				return fmt.Errorf("unsupported --emit value %q (expected text|msgpack)", emit)
			}
		},
	}
	cmd.Flags().StringVar(&emit, "emit", "text", "output encoding (text|msgpack)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file; .msgpack selects the binary encoding")
	return cmd
}
