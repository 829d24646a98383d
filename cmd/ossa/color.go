package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// applyColorFlag sets color.NoColor from --color. auto follows whether
// stdout is a terminal.
func applyColorFlag(cmd *cobra.Command) error {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	on, err := readColorMode(value, func() bool { return isTerminal(os.Stdout) })
	if err != nil {
		return err
	}
	color.NoColor = !on
	return nil
}

func readColorMode(value string, tty func() bool) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return tty(), nil
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

func colorEnabled() bool { return !color.NoColor }
