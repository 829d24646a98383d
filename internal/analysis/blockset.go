// Package analysis holds CFG analyses shared by the liveness and lifetime
// passes: dense block sets, dead-end block classification and dominators.
package analysis

import "ossa/internal/sil"

// BlockSet is a dense set of blocks of one function, indexed by BlockID.
// It must not be used after blocks are added to the function.
type BlockSet struct {
	bits []bool
	n    int
}

// NewBlockSet creates an empty set sized for f.
func NewBlockSet(f *sil.Func) *BlockSet {
	return &BlockSet{bits: make([]bool, f.NumBlocks())}
}

// Insert adds b and reports whether it was absent.
func (s *BlockSet) Insert(b *sil.Block) bool {
	if s.bits[b.ID] {
		return false
	}
	s.bits[b.ID] = true
	s.n++
	return true
}

// Erase removes b.
func (s *BlockSet) Erase(b *sil.Block) {
	if s.bits[b.ID] {
		s.bits[b.ID] = false
		s.n--
	}
}

// Contains reports membership.
func (s *BlockSet) Contains(b *sil.Block) bool {
	return int(b.ID) < len(s.bits) && s.bits[b.ID]
}

// Len returns the number of blocks in the set.
func (s *BlockSet) Len() int { return s.n }

// BlockSetVector is an insertion-ordered block set.
type BlockSetVector struct {
	set   *BlockSet
	items []*sil.Block
}

// NewBlockSetVector creates an empty ordered set sized for f.
func NewBlockSetVector(f *sil.Func) *BlockSetVector {
	return &BlockSetVector{set: NewBlockSet(f)}
}

// Insert appends b unless present and reports whether it was added.
func (v *BlockSetVector) Insert(b *sil.Block) bool {
	if !v.set.Insert(b) {
		return false
	}
	v.items = append(v.items, b)
	return true
}

// Contains reports membership.
func (v *BlockSetVector) Contains(b *sil.Block) bool { return v.set.Contains(b) }

// Len returns the number of blocks.
func (v *BlockSetVector) Len() int { return len(v.items) }

// At returns the idx-th inserted block. Indexing stays valid while the
// vector grows, so callers may iterate by index and insert at the same time.
func (v *BlockSetVector) At(idx int) *sil.Block { return v.items[idx] }

// Blocks returns the blocks in insertion order.
func (v *BlockSetVector) Blocks() []*sil.Block { return v.items }

// BlockWorklist is a LIFO worklist that remembers every block ever pushed.
type BlockWorklist struct {
	visited *BlockSet
	stack   []*sil.Block
}

// NewBlockWorklist creates an empty worklist sized for f.
func NewBlockWorklist(f *sil.Func) *BlockWorklist {
	return &BlockWorklist{visited: NewBlockSet(f)}
}

// Push adds b even if it was seen before.
func (w *BlockWorklist) Push(b *sil.Block) {
	w.visited.Insert(b)
	w.stack = append(w.stack, b)
}

// PushIfNotVisited adds b only the first time and reports whether it did.
func (w *BlockWorklist) PushIfNotVisited(b *sil.Block) bool {
	if !w.visited.Insert(b) {
		return false
	}
	w.stack = append(w.stack, b)
	return true
}

// Pop removes the most recently pushed block, or returns nil when empty.
func (w *BlockWorklist) Pop() *sil.Block {
	if len(w.stack) == 0 {
		return nil
	}
	b := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	return b
}

// PopAndForget pops a block and clears its visited mark so it can be pushed
// again by PushIfNotVisited.
func (w *BlockWorklist) PopAndForget() *sil.Block {
	b := w.Pop()
	if b != nil {
		w.visited.Erase(b)
	}
	return b
}

// Visited reports whether b was ever pushed (and not forgotten).
func (w *BlockWorklist) Visited(b *sil.Block) bool { return w.visited.Contains(b) }

// Empty reports whether nothing is left to pop.
func (w *BlockWorklist) Empty() bool { return len(w.stack) == 0 }
