package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ossa/internal/lifetime"
	"ossa/internal/project"
	"ossa/internal/report"
)

// settings is the merged view of ossa.toml and the command-line flags.
type settings struct {
	config     project.Config
	configPath string
	boundary   lifetime.Boundary
	jobs       int
	format     report.Format
	timings    bool
	ui         uiMode
}

// loadSettings reads --config, or searches for ossa.toml next to input, and
// applies the flags that were set explicitly on top of it.
func loadSettings(cmd *cobra.Command, input string) (settings, error) {
	root := cmd.Root().PersistentFlags()
	var s settings

	configPath, err := root.GetString("config")
	if err != nil {
		return s, fmt.Errorf("failed to get config flag: %w", err)
	}
	if configPath != "" {
		s.config, err = project.Load(configPath)
		s.configPath = configPath
	} else {
		startDir := "."
		if input != "" && input != "-" {
			startDir = filepath.Dir(input)
		}
		s.config, s.configPath, err = project.LoadFrom(startDir)
	}
	if err != nil {
		return s, err
	}

	s.boundary = s.config.Boundary()
	if f := cmd.Flags().Lookup("boundary"); f != nil && f.Changed {
		s.boundary, err = lifetime.ParseBoundary(f.Value.String())
		if err != nil {
			return s, err
		}
	}
	if f := cmd.Flags().Lookup("verify"); f != nil && f.Changed {
		s.config.Completion.Verify = f.Value.String() == "true"
	}
	if f := cmd.Flags().Lookup("split-critical-edges"); f != nil && f.Changed {
		s.config.Completion.SplitCriticalEdges = f.Value.String() == "true"
	}

	s.jobs = s.config.Driver.Jobs
	if root.Changed("jobs") {
		if s.jobs, err = root.GetInt("jobs"); err != nil {
			return s, fmt.Errorf("failed to get jobs flag: %w", err)
		}
		if s.jobs < 0 {
			return s, fmt.Errorf("--jobs must not be negative, got %d", s.jobs)
		}
	}

	formatStr, err := root.GetString("format")
	if err != nil {
		return s, fmt.Errorf("failed to get format flag: %w", err)
	}
	if s.format, err = report.ParseFormat(formatStr); err != nil {
		return s, err
	}
	if s.timings, err = root.GetBool("timings"); err != nil {
		return s, fmt.Errorf("failed to get timings flag: %w", err)
	}
	uiStr, err := root.GetString("ui")
	if err != nil {
		return s, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if s.ui, err = readUIMode(uiStr); err != nil {
		return s, err
	}
	return s, nil
}
