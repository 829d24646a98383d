package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ossa/internal/version"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ossa",
		Short:         "Ownership SSA lifetime completion",
		Long:          `ossa completes the lifetimes of ownership SSA values and repairs them after code becomes unreachable`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyColorFlag(cmd)
		},
	}

	root.AddCommand(newCompleteCmd())
	root.AddCommand(newUnreachableCmd())
	root.AddCommand(newBoundaryCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newFmtCmd())
	root.AddCommand(newVersionCmd())

	flags := root.PersistentFlags()
	flags.String("config", "", "path to ossa.toml (default: search upwards from the input file)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("format", "text", "report format (text|yaml|msgpack)")
	flags.Int("jobs", 0, "max parallel functions (0=auto)")
	flags.Bool("timings", false, "show timing information")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "", "trace storage mode (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "ring buffer capacity for trace events")
	flags.String("ui", "auto", "progress UI (auto|on|off)")
	flags.String("cpu-profile", "", "write a CPU profile to file")
	flags.String("mem-profile", "", "write a heap profile to file")
	flags.String("runtime-trace", "", "write a runtime trace to file")
	return root
}

// main runs the root command and exits with status 1 on failure.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
