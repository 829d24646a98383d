package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ossa/internal/project"
	"ossa/internal/trace"
)

// setupTracing builds the tracer from the trace flags, falling back to the
// [trace] table of ossa.toml, and attaches it to the command context. It
// returns a cleanup function that flushes and closes the tracer.
func setupTracing(cmd *cobra.Command, cfg project.TraceConfig) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	if traceOutput == "" {
		traceOutput = cfg.Output
	}
	if levelStr == "" {
		levelStr = cfg.Level
	}
	if modeStr == "" {
		modeStr = cfg.Mode
	}
	if modeStr == "" {
		modeStr = trace.ModeStream.String()
	}
	// an output without a level means the caller wants to see something
	if levelStr == "" && traceOutput != "" {
		levelStr = trace.LevelPhase.String()
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	span := trace.Begin(tracer, trace.ScopeDriver, "ossa "+cmd.Name(), 0)
	cmd.SetContext(trace.WithSpan(ctx, span))

	cleanup := func() {
		span.End("")
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
