package lifetime

import (
	"ossa/internal/analysis"
	"ossa/internal/liveness"
	"ossa/internal/sil"
)

// availability is the state of a value at a block's entry. The order is
// the lattice order; meet is the minimum.
type availability uint8

const (
	unavailable availability = iota
	available
	unknown
)

func (a availability) meet(b availability) availability {
	return min(a, b)
}

// availabilityVisitor finds the last positions at which a value is still
// available on paths that run into unreachable.
type availabilityVisitor struct {
	v *sil.Value
	// starts is the non-lifetime-ending boundary.
	starts *analysis.BlockSet
	// region holds starts and everything forward-reachable from them.
	region *analysis.BlockSetVector
	// states is indexed by BlockID; blocks outside region stay unavailable.
	states []availability
	// reachable masks out predecessors that cannot execute.
	reachable []bool
}

func newAvailabilityVisitor(v *sil.Value) *availabilityVisitor {
	f := v.ParentBlock().Func
	return &availabilityVisitor{
		v:         v,
		starts:    analysis.NewBlockSet(f),
		region:    analysis.NewBlockSetVector(f),
		states:    make([]availability, f.NumBlocks()),
		reachable: sil.Reachable(f),
	}
}

// visit runs all three phases. seed, when set, restricts which boundary
// blocks start the region.
func (a *availabilityVisitor) visit(l *liveness.SSA, bd liveness.Boundary, seed func(*sil.Block) bool, fn func(*sil.Instr, End)) {
	a.computeRegion(l, bd, seed)
	a.propagate()
	a.visitBoundary(fn)
}

func (a *availabilityVisitor) computeRegion(l *liveness.SSA, bd liveness.Boundary, seed func(*sil.Block) bool) {
	f := a.v.ParentBlock().Func
	consuming := analysis.NewBlockSet(f)
	l.VisitUsers(func(user *sil.Instr, ending bool) {
		if ending {
			consuming.Insert(user.Block)
		}
	})

	worklist := analysis.NewBlockWorklist(f)
	collect := func(b *sil.Block) {
		if seed != nil && !seed(b) {
			return
		}
		a.region.Insert(b)
		a.starts.Insert(b)
		worklist.Push(b)
	}
	for _, b := range bd.EndBlocks {
		if !consuming.Contains(b) {
			collect(b)
		}
	}
	for _, b := range bd.BoundaryEdges {
		collect(b)
	}

	for b := worklist.Pop(); b != nil; b = worklist.Pop() {
		succs := b.Succs()
		if len(succs) == 0 && !b.EndsInUnreachable() {
			// A complete lifetime never stays available up to a normal exit.
			raise(FaultExitWithoutUnreachable, a.v, b, "value is available at a function exit")
		}
		for _, succ := range succs {
			worklist.PushIfNotVisited(succ)
			a.region.Insert(succ)
		}
	}
}

func (a *availabilityVisitor) propagate() {
	f := a.v.ParentBlock().Func
	worklist := analysis.NewBlockWorklist(f)
	for _, b := range a.region.Blocks() {
		if a.starts.Contains(b) {
			a.states[b.ID] = available
			continue
		}
		a.states[b.ID] = unknown
		worklist.Push(b)
	}
	for b := worklist.PopAndForget(); b != nil; b = worklist.PopAndForget() {
		if !a.region.Contains(b) || a.starts.Contains(b) {
			continue
		}
		if !a.update(b) {
			continue
		}
		for _, succ := range b.Succs() {
			worklist.PushIfNotVisited(succ)
		}
	}
}

// update meets the predecessors' states into b and reports a change.
func (a *availabilityVisitor) update(b *sil.Block) bool {
	old := a.states[b.ID]
	st := old
	for _, pred := range b.Preds() {
		if !a.reachable[pred.ID] {
			continue
		}
		st = st.meet(a.states[pred.ID])
	}
	a.states[b.ID] = st
	return st != old
}

func (a *availabilityVisitor) visitBoundary(fn func(*sil.Instr, End)) {
	for _, b := range a.region.Blocks() {
		if a.states[b.ID] != available {
			continue
		}
		succs := b.Succs()
		lost := len(succs) == 0
		for _, succ := range succs {
			if a.states[succ.ID] == unavailable {
				lost = true
				break
			}
		}
		if lost {
			fn(b.Terminator(), EndBoundary)
		}
	}
}

// VisitAvailabilityBoundary reports, for a value live up to l, the positions
// on dead-end paths where its lifetime must end (EndBoundary, before the
// block terminator) and the positions after users that its own lifetime
// ends do not cover (EndLoop). fn may insert instructions at the reported
// positions; the loop positions are computed after the boundary positions
// were visited.
func VisitAvailabilityBoundary(v *sil.Value, l *liveness.SSA, fn func(pos *sil.Instr, end End)) {
	newAvailabilityVisitor(v).visit(l, l.ComputeBoundary(), nil, fn)
	visitLoopEnds(v, l, fn)
}

// VisitUsersOutsideLinearLiveness calls fn for every non-ending user of l
// that v's own lifetime-ending uses do not cover.
func VisitUsersOutsideLinearLiveness(v *sil.Value, l *liveness.SSA, fn func(user *sil.Instr)) {
	if v.Ownership == sil.OwnershipNone {
		return
	}
	linear := liveness.ComputeLinear(v)
	var outside []*sil.Instr
	l.VisitUsers(func(user *sil.Instr, ending bool) {
		if ending || user.Op == sil.OpExtendLifetime || user.Block == nil {
			return
		}
		if !linear.IsWithinBoundary(user) {
			outside = append(outside, user)
		}
	})
	for _, user := range outside {
		fn(user)
	}
}

// visitLoopEnds visits the instruction after every user reported by
// VisitUsersOutsideLinearLiveness.
func visitLoopEnds(v *sil.Value, l *liveness.SSA, fn func(*sil.Instr, End)) {
	VisitUsersOutsideLinearLiveness(v, l, func(user *sil.Instr) {
		user.VisitSubsequentInstructions(func(next *sil.Instr) bool {
			fn(next, EndLoop)
			return true
		})
	})
}

// endLifetimeAtAvailabilityBoundary ends v at its liveness boundary outside
// dead-end blocks, then at its availability boundary inside them, then
// extends it across users its ends do not cover.
func (c *Completion) endLifetimeAtAvailabilityBoundary(v *sil.Value, l *liveness.SSA) bool {
	bd := l.ComputeBoundary()
	live := func(b *sil.Block) bool { return !c.deb.IsDeadEnd(b) }
	dead := func(b *sil.Block) bool { return c.deb.IsDeadEnd(b) }

	changed := c.endLifetimeAtLivenessBoundary(v, l, bd, live)
	emit := func(pos *sil.Instr, end End) {
		c.insert(v, end, sil.Before(pos))
		changed = true
	}
	newAvailabilityVisitor(v).visit(l, bd, dead, emit)
	visitLoopEnds(v, l, emit)
	return changed
}
