package liveness

import "ossa/internal/sil"

// ComputeLinear computes liveness of v from its lifetime-ending uses and
// extend_lifetime markers only. Unlike interior liveness it ignores ordinary
// uses and inner scopes, so a user outside its boundary is one the value's
// own lifetime ends do not cover.
func ComputeLinear(v *sil.Value) *SSA {
	l := NewSSA(v)
	visit := func(val *sil.Value) {
		for _, op := range val.Uses() {
			switch {
			case op.IsLifetimeEnding():
				l.UpdateForUse(op.User, true)
			case op.User.Op == sil.OpExtendLifetime:
				l.UpdateForUse(op.User, false)
			}
		}
	}
	visit(v)
	if alias := sil.LookThroughBorrowedFromUser(v); alias != v {
		visit(alias)
	}
	return l
}
