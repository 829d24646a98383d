// Package liveness computes pruned SSA liveness of a single value and the
// boundary at which that value stops being live.
package liveness

import (
	"fmt"

	"ossa/internal/sil"
)

// BlockState is the liveness of a value in one block.
type BlockState uint8

const (
	// Dead blocks do not see the value.
	Dead BlockState = iota
	// LiveWithin blocks contain the end of the value's liveness (and, for
	// the defining block, its start).
	LiveWithin
	// LiveOut blocks pass the value on to at least one successor.
	LiveOut
)

func (s BlockState) String() string {
	switch s {
	case Dead:
		return "dead"
	case LiveWithin:
		return "live-within"
	case LiveOut:
		return "live-out"
	default:
		return fmt.Sprintf("BlockState(%d)", uint8(s))
	}
}

// UseKind classifies an instruction with respect to a liveness result.
type UseKind uint8

const (
	NonUser UseKind = iota
	NonLifetimeEndingUse
	LifetimeEndingUse
)

func (k UseKind) String() string {
	switch k {
	case NonUser:
		return "non-user"
	case NonLifetimeEndingUse:
		return "non-lifetime-ending"
	case LifetimeEndingUse:
		return "lifetime-ending"
	default:
		return fmt.Sprintf("UseKind(%d)", uint8(k))
	}
}

// SSA is pruned liveness for one definition. Blocks unreachable from the
// entry never become live and their users are ignored.
type SSA struct {
	def       *sil.Value
	defBlock  *sil.Block
	states    []BlockState
	reachable []bool

	users []*sil.Instr
	kinds map[*sil.Instr]UseKind
}

// NewSSA starts liveness for def: its block is LiveWithin and nothing else
// is live until uses are added.
func NewSSA(def *sil.Value) *SSA {
	blk := def.ParentBlock()
	f := blk.Func
	l := &SSA{
		def:       def,
		defBlock:  blk,
		states:    make([]BlockState, f.NumBlocks()),
		reachable: sil.Reachable(f),
		kinds:     map[*sil.Instr]UseKind{},
	}
	l.states[blk.ID] = LiveWithin
	return l
}

// Def returns the value whose liveness is tracked.
func (l *SSA) Def() *sil.Value { return l.def }

// DefBlock returns the block of the definition.
func (l *SSA) DefBlock() *sil.Block { return l.defBlock }

// BlockState returns the liveness of b. Blocks created after the liveness
// was computed are Dead.
func (l *SSA) BlockState(b *sil.Block) BlockState {
	if int(b.ID) >= len(l.states) || b.Func.Blocks[b.ID] != b {
		return Dead
	}
	return l.states[b.ID]
}

// IsInterestingUser reports whether i uses the value and how.
func (l *SSA) IsInterestingUser(i *sil.Instr) UseKind {
	return l.kinds[i]
}

// VisitUsers calls fn for every recorded user in the order users were added.
func (l *SSA) VisitUsers(fn func(user *sil.Instr, lifetimeEnding bool)) {
	for _, u := range l.users {
		fn(u, l.kinds[u] == LifetimeEndingUse)
	}
}

// NumUsers returns the number of distinct users.
func (l *SSA) NumUsers() int { return len(l.users) }

// UpdateForUse records user and extends liveness backward to the definition.
// When the same instruction uses the value several times a non-ending use
// wins, since the value must stay live across it.
func (l *SSA) UpdateForUse(user *sil.Instr, lifetimeEnding bool) {
	blk := user.Block
	if blk == nil || int(blk.ID) >= len(l.reachable) || !l.reachable[blk.ID] {
		return
	}
	kind := NonLifetimeEndingUse
	if lifetimeEnding {
		kind = LifetimeEndingUse
	}
	if old, seen := l.kinds[user]; seen {
		if old == NonLifetimeEndingUse {
			kind = NonLifetimeEndingUse
		}
	} else {
		l.users = append(l.users, user)
	}
	l.kinds[user] = kind
	l.markLive(blk)
}

// markLive makes blk live (at least LiveWithin) and every block between the
// definition and blk LiveOut.
func (l *SSA) markLive(blk *sil.Block) {
	if blk == l.defBlock {
		return
	}
	if l.states[blk.ID] != Dead {
		// Already live-in; its predecessors were handled.
		return
	}
	l.states[blk.ID] = LiveWithin
	stack := []*sil.Block{blk}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pred := range b.Preds() {
			if !l.reachable[pred.ID] || l.states[pred.ID] == LiveOut {
				continue
			}
			l.states[pred.ID] = LiveOut
			if pred != l.defBlock {
				stack = append(stack, pred)
			}
		}
	}
}
