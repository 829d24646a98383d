package lifetime

import (
	"ossa/internal/liveness"
	"ossa/internal/sil"
)

// endLifetimeAtLivenessBoundary ends v at every position of bd that does not
// already end it. When include is set, only positions in blocks it accepts
// are handled. It reports whether anything was inserted.
func (c *Completion) endLifetimeAtLivenessBoundary(v *sil.Value, l *liveness.SSA, bd liveness.Boundary, include func(*sil.Block) bool) bool {
	changed := false
	accept := func(b *sil.Block) bool { return include == nil || include(b) }

	for _, last := range bd.LastUsers {
		if !accept(last.Block) || l.IsInterestingUser(last) == liveness.LifetimeEndingUse {
			continue
		}
		sil.InsertAfter(last, func(b *sil.Builder) {
			c.insertWith(b, v, EndBoundary)
			changed = true
		})
	}
	for _, edge := range bd.BoundaryEdges {
		if !accept(edge) {
			continue
		}
		if n := c.reachablePreds(edge); n > 1 {
			raise(FaultCriticalEdge, v, edge, "boundary edge into a block with %d predecessors", n)
		}
		c.insert(v, EndBoundary, sil.AtBlockStart(edge))
		changed = true
	}
	for _, def := range bd.DeadDefs {
		blk := def.ParentBlock()
		if !accept(blk) {
			continue
		}
		if def.Def != nil {
			c.insert(v, EndBoundary, sil.Before(def.Def.Next()))
		} else {
			c.insert(v, EndBoundary, sil.AtBlockStart(blk))
		}
		changed = true
	}
	return changed
}

func (c *Completion) reachablePreds(b *sil.Block) int {
	n := 0
	for _, p := range b.Preds() {
		if c.dom.Reachable(p) {
			n++
		}
	}
	return n
}
