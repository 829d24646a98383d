// Package lifetime completes the lifetimes of values in ownership SSA.
//
// A lifetime is complete when every path from a value's definition to a
// function exit passes through exactly one lifetime-ending use. Passes that
// delete or rewire code leave lifetimes incomplete, typically on paths that
// now end in unreachable; Completion inserts the missing ends and
// UnreachableCompletion finds the values that need them.
package lifetime

import (
	"fmt"

	"ossa/internal/analysis"
	"ossa/internal/liveness"
	"ossa/internal/sil"
	"ossa/internal/trace"
)

// Boundary selects where lifetime ends are placed.
type Boundary uint8

const (
	// BoundaryLiveness ends a value right after its last use.
	BoundaryLiveness Boundary = iota
	// BoundaryAvailability additionally extends lifetimes that die on
	// dead-end paths up to the unreachable terminators of those paths.
	BoundaryAvailability
)

func (b Boundary) String() string {
	switch b {
	case BoundaryLiveness:
		return "liveness"
	case BoundaryAvailability:
		return "availability"
	default:
		return "unknown"
	}
}

// ParseBoundary converts "liveness" or "availability" to a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "liveness":
		return BoundaryLiveness, nil
	case "availability":
		return BoundaryAvailability, nil
	default:
		return BoundaryLiveness, fmt.Errorf("invalid boundary %q (expected: liveness|availability)", s)
	}
}

// Outcome reports what CompleteOSSALifetime did.
type Outcome uint8

const (
	// NoLifetime: the value has no ownership to end.
	NoLifetime Outcome = iota
	// AlreadyComplete: nothing was inserted.
	AlreadyComplete
	// WasCompleted: at least one instruction was inserted.
	WasCompleted
)

func (o Outcome) String() string {
	switch o {
	case NoLifetime:
		return "no-lifetime"
	case AlreadyComplete:
		return "already-complete"
	case WasCompleted:
		return "was-completed"
	default:
		return "unknown"
	}
}

// Insertion describes one instruction inserted by the engine.
type Insertion struct {
	Value *sil.Value
	Instr *sil.Instr
	End   End
}

// Options configure a Completion. Nil analyses are computed on demand.
type Options struct {
	DeadEnds *analysis.DeadEndBlocks
	Dom      *analysis.DomTree
	Tracer   trace.Tracer
	// Parent is the trace span the value spans hang under.
	Parent uint64
	// OnInsert, if set, is called after every insertion.
	OnInsert func(Insertion)
}

// Completion completes lifetimes in one function. It remembers which values
// it has handled, so asking twice for the same value is a no-op.
type Completion struct {
	fn        *sil.Func
	deb       *analysis.DeadEndBlocks
	dom       *analysis.DomTree
	tracer    trace.Tracer
	parent    uint64
	onInsert  func(Insertion)
	completed []bool
}

// New prepares completion for fn.
func New(fn *sil.Func, opts Options) *Completion {
	c := &Completion{
		fn:        fn,
		deb:       opts.DeadEnds,
		dom:       opts.Dom,
		tracer:    opts.Tracer,
		parent:    opts.Parent,
		onInsert:  opts.OnInsert,
		completed: make([]bool, len(fn.Values)),
	}
	if c.deb == nil {
		c.deb = analysis.ComputeDeadEndBlocks(fn)
	}
	if c.dom == nil {
		c.dom = analysis.ComputeDominators(fn)
	}
	if c.tracer == nil {
		c.tracer = trace.Nop
	}
	return c
}

// DeadEnds returns the dead-end analysis in use.
func (c *Completion) DeadEnds() *analysis.DeadEndBlocks { return c.deb }

// CompleteOSSALifetime completes the lifetime of v. A borrowed result is
// completed through its phi. Inner scopes of v are completed first, with
// the same boundary.
func (c *Completion) CompleteOSSALifetime(v *sil.Value, boundary Boundary) Outcome {
	v = sil.LookThroughBorrowedFrom(v)
	if !v.HasLifetime() {
		return NoLifetime
	}
	if c.isCompleted(v) {
		return AlreadyComplete
	}
	c.markCompleted(v)
	if !c.dom.Reachable(v.ParentBlock()) {
		return AlreadyComplete
	}
	if c.analyzeAndUpdateLifetime(v, boundary) {
		return WasCompleted
	}
	return AlreadyComplete
}

func (c *Completion) isCompleted(v *sil.Value) bool {
	return int(v.ID) < len(c.completed) && c.completed[v.ID]
}

func (c *Completion) markCompleted(v *sil.Value) {
	for int(v.ID) >= len(c.completed) {
		c.completed = append(c.completed, false)
	}
	c.completed[v.ID] = true
}

func (c *Completion) analyzeAndUpdateLifetime(v *sil.Value, boundary Boundary) bool {
	span := trace.Begin(c.tracer, trace.ScopeValue, "value:"+v.Name, c.parent)
	outer := c.parent
	c.parent = span.ID()
	defer func() { c.parent = outer }()

	in := liveness.ComputeInterior(v, c.dom, func(inner *sil.Value) {
		c.CompleteOSSALifetime(inner, boundary)
	})
	l := in.Liveness()

	var changed bool
	switch boundary {
	case BoundaryLiveness:
		changed = c.endLifetimeAtLivenessBoundary(v, l, l.ComputeBoundary(), nil)
	case BoundaryAvailability:
		changed = c.endLifetimeAtAvailabilityBoundary(v, l)
	default:
		panic("lifetime: unknown boundary " + boundary.String())
	}

	// Rebuilding missing enclosing phis is not supported.
	if un := in.UnenclosedPhis(); len(un) > 0 {
		raise(FaultUnenclosedPhi, un[0], nil, "reborrow phi has no enclosing value for %s", v.Name)
	}
	span.WithExtra("boundary", boundary.String()).End(fmt.Sprintf("changed=%t", changed))
	return changed
}

// insert materializes a lifetime end of v at ip.
func (c *Completion) insert(v *sil.Value, end End, ip sil.InsertPoint) *sil.Instr {
	return c.insertWith(sil.NewBuilder(c.fn, ip), v, end)
}

func (c *Completion) insertWith(b *sil.Builder, v *sil.Value, end End) *sil.Instr {
	i := emitLifetimeEnd(b, v, end, c.deb)
	trace.Point(c.tracer, trace.ScopeValue, "insert", fmt.Sprintf("%s in %s", sil.FormatInstr(i), i.Block.Name), c.parent)
	if c.onInsert != nil {
		c.onInsert(Insertion{Value: v, Instr: i, End: end})
	}
	return i
}
