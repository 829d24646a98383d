package liveness

import (
	"slices"

	"ossa/internal/sil"
)

// Boundary is where the liveness of a value ends.
type Boundary struct {
	// LastUsers are the final users in LiveWithin blocks.
	LastUsers []*sil.Instr
	// BoundaryEdges are Dead successors of LiveOut blocks; the value dies on
	// entry to them.
	BoundaryEdges []*sil.Block
	// DeadDefs holds the definition when its block has no users of it.
	DeadDefs []*sil.Value
	// EndBlocks are the blocks holding last users or dead defs.
	EndBlocks []*sil.Block
}

// Empty reports whether the boundary has no positions at all.
func (b *Boundary) Empty() bool {
	return len(b.LastUsers) == 0 && len(b.BoundaryEdges) == 0 && len(b.DeadDefs) == 0
}

// ComputeBoundary walks the live blocks in function order.
func (l *SSA) ComputeBoundary() Boundary {
	var bd Boundary
	f := l.defBlock.Func
	for _, b := range f.Blocks {
		switch l.BlockState(b) {
		case Dead:
		case LiveOut:
			for _, succ := range b.Succs() {
				if l.BlockState(succ) == Dead && !slices.Contains(bd.BoundaryEdges, succ) {
					bd.BoundaryEdges = append(bd.BoundaryEdges, succ)
				}
			}
		case LiveWithin:
			if last := l.lastUserIn(b); last != nil {
				bd.LastUsers = append(bd.LastUsers, last)
			} else {
				bd.DeadDefs = append(bd.DeadDefs, l.def)
			}
			bd.EndBlocks = append(bd.EndBlocks, b)
		}
	}
	return bd
}

func (l *SSA) lastUserIn(b *sil.Block) *sil.Instr {
	for idx := len(b.Instrs) - 1; idx >= 0; idx-- {
		i := b.Instrs[idx]
		if i == l.def.Def {
			return nil
		}
		if l.kinds[i] != NonUser {
			return i
		}
	}
	return nil
}

// IsWithinBoundary reports whether the value is still live right after i
// executes: i's block is LiveOut, or a user follows i in a LiveWithin block.
func (l *SSA) IsWithinBoundary(i *sil.Instr) bool {
	switch l.BlockState(i.Block) {
	case LiveOut:
		return true
	case LiveWithin:
		pos := i.Index()
		if pos < 0 {
			return false
		}
		for _, next := range i.Block.Instrs[pos+1:] {
			if l.kinds[next] != NonUser {
				return true
			}
		}
		return false
	default:
		return false
	}
}
