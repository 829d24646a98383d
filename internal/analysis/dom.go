package analysis

import "ossa/internal/sil"

// DomTree is the dominator tree of the blocks reachable from the entry,
// computed with the iterative algorithm of Cooper, Harvey and Kennedy.
type DomTree struct {
	fn      *sil.Func
	idom    []*sil.Block
	postnum []int
	// pre and post are DFS numbers over the dominator tree, used to answer
	// dominance queries in constant time.
	pre, post []int
}

type blockAndIndex struct {
	b     *sil.Block
	index int // number of successor edges of b already explored
}

// postorder returns the blocks reachable from the entry in DFS postorder and
// fills postnum for them. Unreachable blocks keep postnum -1.
func postorder(f *sil.Func, postnum []int) []*sil.Block {
	for idx := range postnum {
		postnum[idx] = -1
	}
	seen := make([]bool, f.NumBlocks())
	order := make([]*sil.Block, 0, f.NumBlocks())
	s := make([]blockAndIndex, 0, 32)
	s = append(s, blockAndIndex{b: f.Entry()})
	seen[f.Entry().ID] = true
	for len(s) > 0 {
		tos := len(s) - 1
		x := s[tos]
		b := x.b
		if succs := b.Succs(); x.index < len(succs) {
			s[tos].index++
			bb := succs[x.index]
			if !seen[bb.ID] {
				seen[bb.ID] = true
				s = append(s, blockAndIndex{b: bb})
			}
			continue
		}
		s = s[:tos]
		postnum[b.ID] = len(order)
		order = append(order, b)
	}
	return order
}

// intersect finds the closest common dominator of b and c.
func intersect(b, c *sil.Block, postnum []int, idom []*sil.Block) *sil.Block {
	for b != c {
		if postnum[b.ID] < postnum[c.ID] {
			b = idom[b.ID]
		} else {
			c = idom[c.ID]
		}
	}
	return b
}

// ComputeDominators builds the dominator tree of f.
func ComputeDominators(f *sil.Func) *DomTree {
	n := f.NumBlocks()
	t := &DomTree{fn: f, idom: make([]*sil.Block, n), postnum: make([]int, n)}
	if n == 0 {
		return t
	}
	order := postorder(f, t.postnum)
	entry := f.Entry()
	t.idom[entry.ID] = entry
	for changed := true; changed; {
		changed = false
		// Reverse postorder, skipping the entry.
		for idx := len(order) - 2; idx >= 0; idx-- {
			b := order[idx]
			var d *sil.Block
			for _, p := range b.Preds() {
				if t.idom[p.ID] == nil {
					continue
				}
				if d == nil {
					d = p
					continue
				}
				d = intersect(d, p, t.postnum, t.idom)
			}
			if t.idom[b.ID] != d {
				t.idom[b.ID] = d
				changed = true
			}
		}
	}
	t.number()
	return t
}

// number assigns pre/post DFS numbers over the dominator tree.
func (t *DomTree) number() {
	n := len(t.idom)
	children := make([][]*sil.Block, n)
	for _, b := range t.fn.Blocks {
		if d := t.idom[b.ID]; d != nil && d != b {
			children[d.ID] = append(children[d.ID], b)
		}
	}
	t.pre = make([]int, n)
	t.post = make([]int, n)
	clock := 0
	var walk func(b *sil.Block)
	walk = func(b *sil.Block) {
		clock++
		t.pre[b.ID] = clock
		for _, c := range children[b.ID] {
			walk(c)
		}
		clock++
		t.post[b.ID] = clock
	}
	walk(t.fn.Entry())
}

// Idom returns the immediate dominator of b, nil for the entry and for
// unreachable blocks.
func (t *DomTree) Idom(b *sil.Block) *sil.Block {
	if !t.known(b) {
		return nil
	}
	d := t.idom[b.ID]
	if d == b {
		return nil
	}
	return d
}

// Reachable reports whether b was reachable when the tree was built.
func (t *DomTree) Reachable(b *sil.Block) bool {
	return t.known(b) && t.idom[b.ID] != nil
}

// Dominates reports whether a dominates b. Every block dominates itself.
// Unreachable blocks are dominated by nothing.
func (t *DomTree) Dominates(a, b *sil.Block) bool {
	if !t.Reachable(a) || !t.Reachable(b) {
		return false
	}
	return t.pre[a.ID] <= t.pre[b.ID] && t.post[b.ID] <= t.post[a.ID]
}

// ProperlyDominates reports whether a dominates b and a != b.
func (t *DomTree) ProperlyDominates(a, b *sil.Block) bool {
	return a != b && t.Dominates(a, b)
}

func (t *DomTree) known(b *sil.Block) bool {
	return b != nil && int(b.ID) < len(t.idom) && t.fn.Blocks[b.ID] == b
}
