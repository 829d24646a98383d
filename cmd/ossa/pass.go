package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ossa/internal/driver"
	"ossa/internal/lifetime"
	"ossa/internal/observ"
	"ossa/internal/report"
	"ossa/internal/sil"
)

type passOptions struct {
	mode   driver.Mode
	value  string
	output string
}

// runPass is shared by complete and unreachable: read the module, run the
// driver and print either the rewritten module or a report.
func runPass(cmd *cobra.Command, path string, po passOptions) error {
	s, err := loadSettings(cmd, path)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, s.config.Trace)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	timer := observ.NewTimer()
	idx := timer.Begin("read")
	m, err := readModule(path, cmd.InOrStdin())
	if err != nil {
		timer.End(idx, "failed")
		return err
	}
	timer.End(idx, fmt.Sprintf("%d funcs", len(m.Funcs)))

	opts := driver.Options{
		Mode:               po.mode,
		Boundary:           s.boundary,
		Value:              po.value,
		SplitCriticalEdges: s.config.Completion.SplitCriticalEdges,
		Verify:             s.config.Completion.Verify,
		Jobs:               s.jobs,
		Timer:              timer,
		FaultLog:           cmd.ErrOrStderr(),
	}
	var res *driver.Result
	if shouldUseTUI(s.ui, len(m.Funcs)) {
		res, err = runDriverWithUI(cmd.Context(), po.mode.String()+" "+displayName(path), m, opts)
	} else {
		res, err = driver.Run(cmd.Context(), m, opts)
	}
	if err != nil {
		return err
	}

	idx = timer.Begin("emit")
	err = emitPass(cmd, s, path, po, m, res, timer)
	timer.End(idx, "")
	if err != nil {
		return err
	}
	if s.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return res.Err()
}

func emitPass(cmd *cobra.Command, s settings, path string, po passOptions, m *sil.Module, res *driver.Result, timer *observ.Timer) error {
	out := cmd.OutOrStdout()
	var timings *observ.Timer
	if s.timings {
		timings = timer
	}
	doc := report.Build(displayName(path), res, timings)
	textOpts := report.TextOptions{Color: colorEnabled()}

	if po.output != "" {
		if err := writeModule(po.output, m); err != nil {
			return err
		}
		return report.Write(out, doc, s.format, textOpts)
	}
	if s.format != report.FormatText {
		return report.Write(out, doc, s.format, textOpts)
	}

	var inserted []lifetime.Insertion
	for _, fr := range res.Funcs {
		inserted = append(inserted, fr.Insertions...)
	}
	return sil.FprintModule(out, m, sil.PrintOptions{Decorate: report.Decorate(inserted, colorEnabled())})
}
