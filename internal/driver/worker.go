package driver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"ossa/internal/lifetime"
	"ossa/internal/sil"
	"ossa/internal/trace"
)

// worker processes a single function. The function is owned by the worker
// for the duration of run.
type worker struct {
	opts   Options
	tracer trace.Tracer
	parent uint64
	dumpMu *sync.Mutex
	res    FuncResult
}

func (w *worker) run(f *sil.Func) FuncResult {
	start := time.Now()
	w.res = FuncResult{Name: f.Name}
	span := trace.Begin(w.tracer, trace.ScopeFunc, "func:@"+f.Name, w.parent)
	w.parent = span.ID()

	stage := StageComplete
	var runErr error
	err := lifetime.Catch(func() {
		if w.opts.SplitCriticalEdges {
			stage = StageSplit
			emit(w.opts.Progress, f.Name, stage, StatusWorking, nil, 0)
			w.res.SplitEdges = sil.SplitCriticalEdges(f)
			w.res.Changed = w.res.SplitEdges > 0
		}
		switch w.opts.Mode {
		case ModeComplete:
			stage = StageComplete
			emit(w.opts.Progress, f.Name, stage, StatusWorking, nil, 0)
			w.complete(f)
		case ModeUnreachable:
			stage = StageUnreachable
			emit(w.opts.Progress, f.Name, stage, StatusWorking, nil, 0)
			runErr = w.unreachable(f)
		default:
			panic(fmt.Sprintf("driver: unknown mode %d", w.opts.Mode))
		}
	})
	if err == nil {
		err = runErr
	}
	var ie *lifetime.InvariantError
	if errors.As(err, &ie) {
		w.dumpFault(ie)
	}
	if err == nil && w.opts.Verify {
		stage = StageVerify
		emit(w.opts.Progress, f.Name, stage, StatusWorking, nil, 0)
		if verr := lifetime.CheckComplete(f); verr != nil {
			err = fmt.Errorf("verify: %w", verr)
		}
	}

	w.res.Elapsed = time.Since(start)
	if err != nil {
		w.res.Err = fmt.Errorf("function @%s: %w", f.Name, err)
		emit(w.opts.Progress, f.Name, stage, StatusError, err, w.res.Elapsed)
		span.WithExtra("error", err.Error())
	} else {
		emit(w.opts.Progress, f.Name, stage, StatusDone, nil, w.res.Elapsed)
	}
	span.WithExtra("inserted", fmt.Sprint(len(w.res.Insertions))).End(fmt.Sprintf("changed=%t", w.res.Changed))
	return w.res
}

func (w *worker) lifetimeOptions() lifetime.Options {
	return lifetime.Options{
		Tracer: w.tracer,
		Parent: w.parent,
		OnInsert: func(in lifetime.Insertion) {
			w.res.Insertions = append(w.res.Insertions, in)
			w.res.Changed = true
		},
	}
}

// complete completes every value with a lifetime, in definition order.
func (w *worker) complete(f *sil.Func) {
	c := lifetime.New(f, w.lifetimeOptions())
	values := append([]*sil.Value(nil), f.Values...)
	for _, v := range values {
		if w.opts.Value != "" && v.Name != w.opts.Value {
			continue
		}
		if !v.HasLifetime() {
			continue
		}
		w.res.Outcomes = append(w.res.Outcomes, ValueOutcome{
			Value:   v.Name,
			Outcome: c.CompleteOSSALifetime(v, w.opts.Boundary),
		})
	}
}

// unreachable cuts every block after its first noreturn call, reporting
// the removed instructions before they are erased, then repairs lifetimes
// and drops the blocks that can no longer execute.
func (w *worker) unreachable(f *sil.Func) error {
	u := lifetime.NewUnreachableCompletion(f, w.lifetimeOptions())
	blocks := append([]*sil.Block(nil), f.Blocks...)
	for _, b := range blocks {
		call := firstNoReturnCall(b)
		if call == nil {
			continue
		}
		for _, i := range b.Instrs[call.Index()+1:] {
			if err := u.VisitUnreachableInst(i); err != nil {
				return err
			}
		}
		sil.Truncate(call)
		w.res.Truncated++
	}
	changed, err := u.CompleteLifetimes()
	if err != nil {
		return err
	}
	for _, b := range u.UnreachableBlocks() {
		w.res.UnreachableBlocks = append(w.res.UnreachableBlocks, b.Name)
	}
	for _, v := range u.IncompleteValues() {
		w.res.IncompleteValues = append(w.res.IncompleteValues, v.Name)
	}
	w.res.RemovedBlocks = sil.RemoveUnreachableBlocks(f)
	w.res.Changed = w.res.Changed || changed || w.res.Truncated > 0 || w.res.RemovedBlocks
	return nil
}

// firstNoReturnCall returns the first noreturn apply of b that is followed by
// anything other than unreachable.
func firstNoReturnCall(b *sil.Block) *sil.Instr {
	for _, i := range b.Instrs {
		if i.Op != sil.OpApply || !i.HasFlag(sil.FlagNoReturn) {
			continue
		}
		if next := i.Next(); next != nil && next.Op == sil.OpUnreachable {
			return nil
		}
		return i
	}
	return nil
}

func (w *worker) dumpFault(ie *lifetime.InvariantError) {
	if w.opts.FaultLog == nil {
		return
	}
	ring := trace.Ring(w.tracer)
	w.dumpMu.Lock()
	defer w.dumpMu.Unlock()
	fmt.Fprintf(w.opts.FaultLog, "%s\n", ie)
	if ring == nil {
		return
	}
	fmt.Fprintln(w.opts.FaultLog, "trace before the fault:")
	if err := ring.Dump(w.opts.FaultLog, trace.FormatText); err != nil {
		fmt.Fprintf(w.opts.FaultLog, "trace: dump failed: %v\n", err)
	}
}
