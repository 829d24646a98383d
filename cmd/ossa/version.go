package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"ossa/internal/report"
	"ossa/internal/version"
)

type versionPayload struct {
	Tool      string `yaml:"tool" msgpack:"tool"`
	Version   string `yaml:"version" msgpack:"version"`
	GitCommit string `yaml:"git_commit,omitempty" msgpack:"git_commit,omitempty"`
	BuildDate string `yaml:"build_date,omitempty" msgpack:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show ossa build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, err := cmd.Root().PersistentFlags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			format, err := report.ParseFormat(formatStr)
			if err != nil {
				return err
			}
			payload := collectVersion(full)
			switch format {
			case report.FormatYAML:
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			case report.FormatMsgpack:
				return msgpack.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			default:
				renderVersionPretty(cmd.OutOrStdout(), payload, full)
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include commit and build date")
	return cmd
}

func collectVersion(full bool) versionPayload {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	p := versionPayload{Tool: "ossa", Version: v}
	if full {
		p.GitCommit = valueOrUnknown(strings.TrimSpace(version.GitCommit))
		p.BuildDate = valueOrUnknown(strings.TrimSpace(version.BuildDate))
	}
	return p
}

func renderVersionPretty(out io.Writer, p versionPayload, full bool) {
	fmt.Fprintf(out, "ossa %s\n", version.Colored())
	if full {
		fmt.Fprintf(out, "commit: %s\n", p.GitCommit)
		fmt.Fprintf(out, "built:  %s\n", p.BuildDate)
	}
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
