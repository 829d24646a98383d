package sil

import (
	"fmt"

	"fortio.org/safecast"
)

// Reachable returns, indexed by BlockID, whether each block is reachable from
// the entry block.
func Reachable(f *Func) []bool {
	reachable := make([]bool, len(f.Blocks))
	if len(f.Blocks) == 0 {
		return reachable
	}
	stack := []*Block{f.Entry()}
	reachable[0] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, succ := range b.Succs() {
			if !reachable[succ.ID] {
				reachable[succ.ID] = true
				stack = append(stack, succ)
			}
		}
	}
	return reachable
}

// RemoveUnreachableBlocks deletes blocks that cannot be reached from the
// entry and renumbers the survivors (blocks and values) densely. It reports
// whether anything was removed.
func RemoveUnreachableBlocks(f *Func) bool {
	reachable := Reachable(f)
	count := 0
	for _, r := range reachable {
		if r {
			count++
		}
	}
	if count == len(f.Blocks) {
		return false
	}

	// Drop the uses held by dead instructions first so that surviving values
	// only keep uses from live code.
	for id, keep := range reachable {
		if keep {
			continue
		}
		for _, i := range f.Blocks[id].Instrs {
			for _, op := range i.Operands {
				op.Value.removeUse(op)
			}
		}
	}

	blocks := make([]*Block, 0, count)
	for id, keep := range reachable {
		if keep {
			b := f.Blocks[id]
			b.ID = mustBlockID(len(blocks))
			blocks = append(blocks, b)
		}
	}
	f.Blocks = blocks

	values := make([]*Value, 0, len(f.Values))
	for _, v := range f.Values {
		blk := v.ParentBlock()
		if blk == nil || blk.ID < 0 || int(blk.ID) >= len(f.Blocks) || f.Blocks[blk.ID] != blk {
			continue
		}
		v.ID = mustValueID(len(values))
		values = append(values, v)
	}
	f.Values = values
	f.cfgDirty = true
	return true
}

// SplitCriticalEdges inserts an empty forwarding block on every edge from a
// block with several successors to a block with several predecessors. It
// returns the number of blocks created.
func SplitCriticalEdges(f *Func) int {
	created := 0
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil || len(term.Targets) < 2 {
			continue
		}
		for idx, succ := range term.Targets {
			if len(succ.Preds()) < 2 {
				continue
			}
			if len(succ.Args) != 0 {
				panic(fmt.Sprintf("sil: %s branches to %s which takes arguments", b.Name, succ.Name))
			}
			mid := f.NewBlock(fmt.Sprintf("%s_%s", b.Name, succ.Name))
			NewBuilder(f, AtEnd(mid)).CreateBr(succ)
			term.Targets[idx] = mid
			f.cfgDirty = true
			created++
		}
	}
	return created
}

func mustBlockID(n int) BlockID {
	id, err := safecast.Conv[BlockID](n)
	if err != nil {
		panic(fmt.Errorf("block id overflow: %w", err))
	}
	return id
}

func mustValueID(n int) ValueID {
	id, err := safecast.Conv[ValueID](n)
	if err != nil {
		panic(fmt.Errorf("value id overflow: %w", err))
	}
	return id
}
