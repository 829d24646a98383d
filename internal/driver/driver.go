// Package driver runs lifetime completion over every function of a module.
//
// Functions are independent, so each one is handed to its own worker. The
// driver is also the caller that discovers unreachable code: in
// ModeUnreachable it cuts every block after a noreturn call and lets
// lifetime.UnreachableCompletion repair the values that lost their ends.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ossa/internal/lifetime"
	"ossa/internal/observ"
	"ossa/internal/sil"
	"ossa/internal/trace"
)

// Mode selects what Run does to each function.
type Mode uint8

const (
	// ModeComplete completes the lifetime of every value, or of the value
	// named by Options.Value.
	ModeComplete Mode = iota
	// ModeUnreachable truncates blocks after noreturn calls and repairs the
	// lifetimes that ran through the removed code.
	ModeUnreachable
)

func (m Mode) String() string {
	switch m {
	case ModeComplete:
		return "complete"
	case ModeUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// ErrValueNotFound is returned when Options.Value names a value that no
// function defines.
var ErrValueNotFound = errors.New("value not found")

// Options configure Run.
type Options struct {
	Mode     Mode
	Boundary lifetime.Boundary
	// Value restricts ModeComplete to values with this name.
	Value string
	// SplitCriticalEdges runs sil.SplitCriticalEdges before completion.
	SplitCriticalEdges bool
	// Verify runs lifetime.CheckComplete on every function afterwards.
	Verify bool
	// Jobs bounds the number of workers; zero means GOMAXPROCS.
	Jobs     int
	Progress ProgressSink
	Timer    *observ.Timer
	// FaultLog receives the trace ring buffer when a function hits an
	// invariant fault.
	FaultLog io.Writer
}

// FuncResult describes what happened to one function.
type FuncResult struct {
	Name       string
	Changed    bool
	Insertions []lifetime.Insertion
	Outcomes   []ValueOutcome
	SplitEdges int
	// Truncated counts the blocks cut after a noreturn call.
	Truncated         int
	UnreachableBlocks []string
	IncompleteValues  []string
	RemovedBlocks     bool
	Err               error
	Elapsed           time.Duration
}

// ValueOutcome is the result of completing one value.
type ValueOutcome struct {
	Value   string
	Outcome lifetime.Outcome
}

// Result collects the per-function results in module order.
type Result struct {
	Mode  Mode
	Funcs []FuncResult
}

// Err joins the errors of all functions.
func (r *Result) Err() error {
	var errs []error
	for _, fr := range r.Funcs {
		if fr.Err != nil {
			errs = append(errs, fr.Err)
		}
	}
	return errors.Join(errs...)
}

// Changed reports whether any function was modified.
func (r *Result) Changed() bool {
	for _, fr := range r.Funcs {
		if fr.Changed {
			return true
		}
	}
	return false
}

// Run validates m and processes its functions in parallel. Per-function
// failures, invariant faults included, are reported in the result; the
// returned error is reserved for invalid input and cancellation.
func Run(ctx context.Context, m *sil.Module, opts Options) (*Result, error) {
	if err := sil.Validate(m); err != nil {
		return nil, fmt.Errorf("invalid module: %w", err)
	}
	if opts.Mode == ModeComplete && opts.Value != "" && !definesValue(m, opts.Value) {
		return nil, fmt.Errorf("%w: %s", ErrValueNotFound, opts.Value)
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "pass:"+opts.Mode.String(), trace.CurrentSpan(ctx))
	if opts.Timer != nil {
		idx := opts.Timer.Begin(opts.Mode.String())
		defer func() { opts.Timer.End(idx, fmt.Sprintf("%d funcs", len(m.Funcs))) }()
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, f := range m.Funcs {
		emit(opts.Progress, f.Name, StageComplete, StatusQueued, nil, 0)
	}

	res := &Result{Mode: opts.Mode, Funcs: make([]FuncResult, len(m.Funcs))}
	var dumpMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(m.Funcs))))
	for i, f := range m.Funcs {
		i, f := i, f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			w := worker{opts: opts, tracer: tracer, parent: span.ID(), dumpMu: &dumpMu}
			res.Funcs[i] = w.run(f)
			return nil
		})
	}
	err := g.Wait()
	span.WithExtra("funcs", fmt.Sprint(len(m.Funcs))).End(fmt.Sprintf("changed=%t", res.Changed()))
	if err != nil {
		return res, err
	}
	return res, nil
}

func definesValue(m *sil.Module, name string) bool {
	for _, f := range m.Funcs {
		if f.ValueByName(name) != nil {
			return true
		}
	}
	return false
}
