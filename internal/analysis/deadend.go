package analysis

import "ossa/internal/sil"

// DeadEndBlocks classifies blocks from which no function exit is reachable.
// Such blocks end, on every path, in unreachable (or loop forever).
type DeadEndBlocks struct {
	fn *sil.Func
	// reachesExit[id] is true when a return is reachable from block id.
	reachesExit []bool
}

// ComputeDeadEndBlocks walks backward from every return.
func ComputeDeadEndBlocks(f *sil.Func) *DeadEndBlocks {
	d := &DeadEndBlocks{fn: f, reachesExit: make([]bool, f.NumBlocks())}
	var stack []*sil.Block
	for _, b := range f.Blocks {
		if t := b.Terminator(); t != nil && t.Op == sil.OpReturn {
			d.reachesExit[b.ID] = true
			stack = append(stack, b)
		}
	}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pred := range b.Preds() {
			if !d.reachesExit[pred.ID] {
				d.reachesExit[pred.ID] = true
				stack = append(stack, pred)
			}
		}
	}
	return d
}

// IsDeadEnd reports whether b cannot reach a function exit. Blocks created
// after the analysis ran are treated as dead-end only if every successor is.
func (d *DeadEndBlocks) IsDeadEnd(b *sil.Block) bool {
	if int(b.ID) < len(d.reachesExit) && d.fn.Blocks[b.ID] == b {
		return !d.reachesExit[b.ID]
	}
	for _, succ := range b.Succs() {
		if !d.IsDeadEnd(succ) {
			return false
		}
	}
	return true
}

// DeadEnds returns the dead-end blocks in block order.
func (d *DeadEndBlocks) DeadEnds() []*sil.Block {
	var out []*sil.Block
	for _, b := range d.fn.Blocks {
		if d.IsDeadEnd(b) {
			out = append(out, b)
		}
	}
	return out
}
