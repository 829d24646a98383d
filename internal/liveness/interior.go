package liveness

import (
	"ossa/internal/analysis"
	"ossa/internal/sil"
)

// Interior is liveness of a value that also covers the scopes nested in it:
// inner borrows and the reborrow phis those borrows flow into. The inner
// scopes are reported to a callback before their ends are counted, so that a
// caller can complete them first.
type Interior struct {
	liveness   *SSA
	dom        *analysis.DomTree
	handle     func(inner *sil.Value)
	visited    map[*sil.Value]bool
	unenclosed []*sil.Value
}

// ComputeInterior computes interior liveness of v. handleInnerScope, if not
// nil, is called once per inner scope value (begin_borrow results and
// reborrow phis) before that scope's ends are used.
func ComputeInterior(v *sil.Value, dom *analysis.DomTree, handleInnerScope func(inner *sil.Value)) *Interior {
	in := &Interior{
		liveness: NewSSA(v),
		dom:      dom,
		handle:   handleInnerScope,
		visited:  map[*sil.Value]bool{v: true},
	}
	in.visitUses(v)
	return in
}

// Liveness returns the computed liveness.
func (in *Interior) Liveness() *SSA { return in.liveness }

// UnenclosedPhis returns reborrow phis reached from an inner scope for which
// no enclosing definition could be found.
func (in *Interior) UnenclosedPhis() []*sil.Value { return in.unenclosed }

func (in *Interior) visitUses(val *sil.Value) {
	for _, op := range val.Uses() {
		user := op.User
		switch own := op.Ownership(); own {
		case sil.NonUse, sil.TrivialUse:
		case sil.InstantaneousUse:
			in.liveness.UpdateForUse(user, false)
		case sil.ForwardingConsume, sil.DestroyingConsume, sil.EndBorrow, sil.Reborrow:
			in.liveness.UpdateForUse(user, true)
		case sil.Borrow:
			in.liveness.UpdateForUse(user, false)
			in.innerScope(user.Result)
		case sil.GuaranteedForwarding:
			// The borrowed result is the phi under another name.
			in.liveness.UpdateForUse(user, false)
			in.visitUses(user.Result)
		case sil.Enclosing:
			// val encloses the phi: an adjacent reborrow.
			in.liveness.UpdateForUse(user, false)
			in.innerScope(user.Operand(0))
		default:
			panic("liveness: unhandled operand ownership " + own.String())
		}
	}
}

// innerScope completes an inner scope through the callback, then extends
// the outer liveness over the scope's ends.
func (in *Interior) innerScope(inner *sil.Value) {
	if in.visited[inner] {
		return
	}
	in.visited[inner] = true
	if in.handle != nil {
		in.handle(inner)
	}
	for _, op := range ScopeEndingUses(inner) {
		in.liveness.UpdateForUse(op.User, false)
		if op.Ownership() != sil.Reborrow {
			continue
		}
		phi := op.User.BranchArg(op.Index)
		if phi == nil {
			continue
		}
		if in.encloses(phi) {
			in.innerScope(phi)
		}
	}
}

// encloses decides whether the tracked value must stay live across the
// reborrow phi. An explicit borrowed instruction answers directly; without
// one, a phi dominated by the definition is treated as enclosed.
func (in *Interior) encloses(phi *sil.Value) bool {
	def := in.liveness.Def()
	if bf := phi.BorrowedFrom(); bf != nil {
		for _, op := range bf.Operands[1:] {
			if op.Value == def {
				return true
			}
		}
		return false
	}
	if in.dom != nil && in.dom.Dominates(def.ParentBlock(), phi.ParentBlock()) {
		return true
	}
	in.unenclosed = append(in.unenclosed, phi)
	return false
}

// ScopeEndingUses returns the lifetime-ending uses of a scope value,
// including those made through the borrowed result of a phi.
func ScopeEndingUses(v *sil.Value) []*sil.Operand {
	var out []*sil.Operand
	collect := func(val *sil.Value) {
		for _, op := range val.Uses() {
			if op.IsLifetimeEnding() {
				out = append(out, op)
			}
		}
	}
	collect(v)
	if alias := sil.LookThroughBorrowedFromUser(v); alias != v {
		collect(alias)
	}
	return out
}
