package lifetime

import (
	"errors"
	"fmt"

	"ossa/internal/liveness"
	"ossa/internal/sil"
)

// LifetimeError describes one path on which a value's lifetime is broken.
type LifetimeError struct {
	Func   string
	Value  string
	Block  string
	Reason string
}

func (e *LifetimeError) Error() string {
	return fmt.Sprintf("@%s: %s: %s in %s", e.Func, e.Value, e.Reason, e.Block)
}

// CheckComplete walks every path from each value's definition and reports
// values that reach a return without a lifetime end, are ended twice on one
// path, or flow around a loop back to their own definition while still
// live. Paths that end in unreachable may leave a value unended.
func CheckComplete(fn *sil.Func) error {
	reachable := sil.Reachable(fn)
	var errs []error
	for _, v := range fn.Values {
		if v == nil || !v.HasLifetime() {
			continue
		}
		blk := v.ParentBlock()
		if blk == nil || !reachable[blk.ID] {
			continue
		}
		if err := checkValue(fn, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type pathState struct {
	block *sil.Block
	ended bool
}

func checkValue(fn *sil.Func, v *sil.Value) error {
	ends := map[*sil.Instr]int{}
	for _, op := range liveness.ScopeEndingUses(v) {
		ends[op.User]++
	}
	fail := func(b *sil.Block, reason string) error {
		return &LifetimeError{Func: fn.Name, Value: v.Name, Block: b.Name, Reason: reason}
	}

	defBlock := v.ParentBlock()
	start := 0
	if v.Def != nil {
		start = v.Def.Index() + 1
	}
	seen := map[pathState]bool{}
	stack := []pathState{{block: defBlock}}
	first := true
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		b, ended := st.block, st.ended
		from := 0
		if first {
			from = start
			first = false
		} else if b == defBlock {
			if !ended {
				return fail(b, "reaches its own definition while live")
			}
			continue
		}
		for _, i := range b.Instrs[from:] {
			n := ends[i]
			if n == 0 {
				continue
			}
			if ended || n > 1 {
				return fail(b, "ended twice")
			}
			ended = true
		}
		term := b.Terminator()
		if term == nil {
			continue
		}
		if term.Op == sil.OpReturn && !ended {
			return fail(b, "not ended before return")
		}
		for _, succ := range b.Succs() {
			next := pathState{block: succ, ended: ended}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return nil
}
