package liveness

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"ossa/internal/analysis"
	"ossa/internal/sil"
)

func names[T interface{ comparable }](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for idx, it := range items {
		out[idx] = name(it)
	}
	return out
}

func blockNames(bs []*sil.Block) []string {
	return names(bs, func(b *sil.Block) string { return b.Name })
}

func instrTexts(is []*sil.Instr) []string {
	return names(is, sil.FormatInstr)
}

func interior(t *testing.T, f *sil.Func, value string) *Interior {
	t.Helper()
	v := f.ValueByName(value)
	if v == nil {
		t.Fatalf("no value %s", value)
	}
	return ComputeInterior(v, analysis.ComputeDominators(f), nil)
}

func TestBlockStatesAndBoundary(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0:
  %x = new $T
  %c = const $Bool
  cond_br %c, bb1, bb2
bb1:
  use %x
  br bb3
bb2:
  br bb3
bb3:
  return
}`)
	l := interior(t, f, "%x").Liveness()
	want := map[string]BlockState{"bb0": LiveOut, "bb1": LiveWithin, "bb2": Dead, "bb3": Dead}
	for name, st := range want {
		if got := l.BlockState(f.BlockByName(name)); got != st {
			t.Errorf("%s: state %s, want %s", name, got, st)
		}
	}
	bd := l.ComputeBoundary()
	if diff := cmp.Diff([]string{"use %x"}, instrTexts(bd.LastUsers)); diff != "" {
		t.Errorf("last users (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bb2"}, blockNames(bd.BoundaryEdges)); diff != "" {
		t.Errorf("boundary edges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bb1"}, blockNames(bd.EndBlocks)); diff != "" {
		t.Errorf("end blocks (-want +got):\n%s", diff)
	}
	if len(bd.DeadDefs) != 0 {
		t.Errorf("dead defs = %v", bd.DeadDefs)
	}
}

func TestDeadDef(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0:
  %x = new $T
  return
}`)
	bd := interior(t, f, "%x").Liveness().ComputeBoundary()
	if len(bd.DeadDefs) != 1 || bd.DeadDefs[0].Name != "%x" {
		t.Fatalf("dead defs = %v", bd.DeadDefs)
	}
	if diff := cmp.Diff([]string{"bb0"}, blockNames(bd.EndBlocks)); diff != "" {
		t.Errorf("end blocks (-want +got):\n%s", diff)
	}
}

func TestLoopLiveness(t *testing.T) {
	f := sil.MustParse(`func @loop {
bb0:
  %x = new $T
  br bb1
bb1:
  use %x
  %c = const $Bool
  cond_br %c, bb1, bb2
bb2:
  destroy_value %x
  return
}`)
	l := interior(t, f, "%x").Liveness()
	for _, name := range []string{"bb0", "bb1"} {
		if got := l.BlockState(f.BlockByName(name)); got != LiveOut {
			t.Errorf("%s: %s, want live-out", name, got)
		}
	}
	if got := l.IsInterestingUser(f.BlockByName("bb2").Instrs[0]); got != LifetimeEndingUse {
		t.Errorf("destroy is %s", got)
	}
	bd := l.ComputeBoundary()
	if diff := cmp.Diff([]string{"destroy_value %x"}, instrTexts(bd.LastUsers)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if len(bd.BoundaryEdges) != 0 {
		t.Errorf("boundary edges = %v", bd.BoundaryEdges)
	}
}

func TestUnreachableUsersIgnored(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0(%x : @owned $T):
  destroy_value %x
  return
bb1:
  use %x
  unreachable
}`)
	l := interior(t, f, "%x").Liveness()
	if l.NumUsers() != 1 {
		t.Errorf("users = %d, want 1", l.NumUsers())
	}
	if got := l.BlockState(f.BlockByName("bb1")); got != Dead {
		t.Errorf("bb1 = %s", got)
	}
}

func TestInnerBorrowScopes(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0(%x : @owned $T):
  %b = begin_borrow %x
  %c = begin_borrow %b
  use %c
  end_borrow %c
  end_borrow %b
  destroy_value %x
  return
}`)
	var inner []string
	x := f.ValueByName("%x")
	in := ComputeInterior(x, analysis.ComputeDominators(f), func(v *sil.Value) {
		inner = append(inner, v.Name)
	})
	if diff := cmp.Diff([]string{"%b"}, inner); diff != "" {
		t.Errorf("inner scopes (-want +got):\n%s", diff)
	}
	l := in.Liveness()
	endB := f.Entry().Instrs[4]
	if got := l.IsInterestingUser(endB); got != NonLifetimeEndingUse {
		t.Errorf("end_borrow %%b is %s for %%x", got)
	}
	if got := l.IsInterestingUser(f.Entry().Instrs[2]); got != NonUser {
		t.Errorf("use %%c is %s for %%x", got)
	}
}

func TestReborrowPhiEnclosed(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0(%x : @owned $T):
  %b = begin_borrow %x
  br bb1(%b)
bb1(%r : @guaranteed $T):
  %f = borrowed %r from (%x)
  use %f
  end_borrow %f
  br bb2
bb2:
  destroy_value %x
  return
}`)
	var inner []string
	in := ComputeInterior(f.ValueByName("%x"), analysis.ComputeDominators(f), func(v *sil.Value) {
		inner = append(inner, v.Name)
	})
	if diff := cmp.Diff([]string{"%b", "%r"}, inner); diff != "" {
		t.Errorf("inner scopes (-want +got):\n%s", diff)
	}
	if len(in.UnenclosedPhis()) != 0 {
		t.Errorf("unenclosed = %v", in.UnenclosedPhis())
	}
	l := in.Liveness()
	if got := l.BlockState(f.BlockByName("bb1")); got != LiveOut {
		t.Errorf("bb1 = %s, want live-out", got)
	}
}

func TestReborrowPhiWithoutEnclosingValue(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0(%x : @owned $T, %y : @owned $T):
  %c = const $Bool
  cond_br %c, bb1, bb2
bb1:
  %b1 = begin_borrow %x
  br bb3(%b1)
bb2:
  %b2 = begin_borrow %x
  br bb3(%b2)
bb3(%r : @guaranteed $T):
  end_borrow %r
  destroy_value %x
  destroy_value %y
  return
}`)
	// %r is dominated by %x's block, so it is enclosed without an annotation.
	if un := interior(t, f, "%x").UnenclosedPhis(); len(un) != 0 {
		t.Errorf("unenclosed = %v", un)
	}
	g := sil.MustParse(`func @g {
bb0(%c : $Bool):
  cond_br %c, bb1, bb2
bb1:
  %x = new $T
  %b = begin_borrow %x
  br bb3(%b)
bb2:
  %y = new $T
  %b2 = begin_borrow %y
  br bb3(%b2)
bb3(%r : @guaranteed $T):
  end_borrow %r
  unreachable
}`)
	un := interior(t, g, "%x").UnenclosedPhis()
	if len(un) != 1 || un[0].Name != "%r" {
		t.Errorf("unenclosed = %v, want [%%r]", un)
	}
}

func TestGuaranteedPhiForwardsBorrowedUses(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0(%x : @owned $T):
  %b = begin_borrow %x
  br bb1(%b)
bb1(%r : @guaranteed $T):
  %f = borrowed %r from (%x)
  use %f
  end_borrow %f
  destroy_value %x
  return
}`)
	l := interior(t, f, "%r").Liveness()
	bb1 := f.BlockByName("bb1")
	if got := l.IsInterestingUser(bb1.Instrs[2]); got != LifetimeEndingUse {
		t.Errorf("end_borrow %%f is %s for %%r", got)
	}
	if got := l.IsInterestingUser(bb1.Instrs[1]); got != NonLifetimeEndingUse {
		t.Errorf("use %%f is %s for %%r", got)
	}
}

func TestLinearLivenessBoundary(t *testing.T) {
	f := sil.MustParse(`func @f {
bb0(%x : @owned $T):
  use %x
  br bb1
bb1:
  use %x
  br bb1
}`)
	x := f.ValueByName("%x")
	lin := ComputeLinear(x)
	bb0, bb1 := f.Entry(), f.BlockByName("bb1")
	if lin.IsWithinBoundary(bb0.Instrs[0]) {
		t.Error("use in bb0 is within an empty linear boundary")
	}
	if lin.IsWithinBoundary(bb1.Instrs[0]) {
		t.Error("use in bb1 is within an empty linear boundary")
	}

	sil.NewBuilder(f, sil.Before(bb1.Terminator())).CreateExtendLifetime(x)
	lin = ComputeLinear(x)
	if !lin.IsWithinBoundary(bb1.Instrs[0]) {
		t.Error("use in bb1 is outside the boundary despite extend_lifetime")
	}
	if !lin.IsWithinBoundary(bb0.Instrs[0]) {
		t.Error("use in bb0 is outside the boundary despite a live-out block")
	}
}
