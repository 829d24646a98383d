package lifetime

import (
	"fmt"

	"ossa/internal/analysis"
	"ossa/internal/sil"
	"ossa/internal/trace"
)

type phase uint8

const (
	phaseCollecting phase = iota
	phaseRepairing
	phaseDone
)

// UnreachableCompletion repairs lifetimes after a caller discovers code that
// became unreachable. The caller reports each newly unreachable instruction
// through VisitUnreachableInst before removing it, then calls
// CompleteLifetimes exactly once.
type UnreachableCompletion struct {
	fn    *sil.Func
	opts  Options
	phase phase

	unreachableBlocks *analysis.BlockSetVector
	unreachableInsts  map[*sil.Instr]bool
	incomplete        []*sil.Value
	incompleteSet     map[*sil.Value]bool
}

// NewUnreachableCompletion prepares a repair batch for fn. Analyses left nil
// in opts are computed when CompleteLifetimes runs, on the CFG as the caller
// left it.
func NewUnreachableCompletion(fn *sil.Func, opts Options) *UnreachableCompletion {
	return &UnreachableCompletion{
		fn:                fn,
		opts:              opts,
		unreachableBlocks: analysis.NewBlockSetVector(fn),
		unreachableInsts:  map[*sil.Instr]bool{},
		incompleteSet:     map[*sil.Value]bool{},
	}
}

// VisitUnreachableInst records that i will never execute.
func (u *UnreachableCompletion) VisitUnreachableInst(i *sil.Instr) error {
	if u.phase != phaseCollecting {
		return ErrLifetimesCompleted
	}
	u.visit(i)
	return nil
}

func (u *UnreachableCompletion) visit(i *sil.Instr) {
	blk := i.Block
	inReachableBlock := !u.unreachableBlocks.Contains(blk)
	// Instructions of blocks already known to be unreachable are visited
	// again while repairing.
	if !inReachableBlock && u.phase == phaseCollecting {
		return
	}
	if inReachableBlock {
		u.unreachableInsts[i] = true
	}
	for _, op := range i.Operands {
		if !op.IsLifetimeEnding() {
			continue
		}
		v := op.Value
		if v.Def != nil && u.unreachableInsts[v.Def] {
			continue
		}
		// An erased definition has no block left.
		if def := v.ParentBlock(); def == nil || u.unreachableBlocks.Contains(def) {
			continue
		}
		// v is still defined on a live path but one of its ends is gone.
		if !u.incompleteSet[v] {
			u.incompleteSet[v] = true
			u.incomplete = append(u.incomplete, v)
		}
	}
	if !i.IsTerminator() {
		return
	}
	for _, succ := range i.Successors() {
		if u.allPredsUnreachable(succ, blk) {
			u.unreachableBlocks.Insert(succ)
		}
	}
}

func (u *UnreachableCompletion) allPredsUnreachable(b, from *sil.Block) bool {
	for _, pred := range b.Preds() {
		if pred != from && !u.unreachableBlocks.Contains(pred) {
			return false
		}
	}
	return true
}

// CompleteLifetimes propagates unreachability through the blocks found so
// far, then completes every value that lost a lifetime end using the
// availability boundary. It reports whether anything was inserted.
func (u *UnreachableCompletion) CompleteLifetimes() (bool, error) {
	if u.phase != phaseCollecting {
		return false, ErrLifetimesCompleted
	}
	u.phase = phaseRepairing
	defer func() { u.phase = phaseDone }()

	tracer := u.opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	span := trace.Begin(tracer, trace.ScopeFunc, "unreachable:@"+u.fn.Name, u.opts.Parent)

	// The set grows while it is walked.
	for idx := 0; idx < u.unreachableBlocks.Len(); idx++ {
		for _, i := range u.unreachableBlocks.At(idx).Instrs {
			u.visit(i)
		}
	}

	opts := u.opts
	opts.Parent = span.ID()
	c := New(u.fn, opts)
	changed := false
	for _, v := range u.incomplete {
		if c.CompleteOSSALifetime(v, BoundaryAvailability) == WasCompleted {
			changed = true
		}
	}
	span.WithExtra("blocks", fmt.Sprint(u.unreachableBlocks.Len())).
		WithExtra("values", fmt.Sprint(len(u.incomplete))).
		End(fmt.Sprintf("changed=%t", changed))
	return changed, nil
}

// UnreachableBlocks returns the blocks found unreachable, in discovery order.
func (u *UnreachableCompletion) UnreachableBlocks() []*sil.Block {
	return u.unreachableBlocks.Blocks()
}

// IncompleteValues returns the values whose lifetimes are being repaired,
// in discovery order.
func (u *UnreachableCompletion) IncompleteValues() []*sil.Value {
	return u.incomplete
}
