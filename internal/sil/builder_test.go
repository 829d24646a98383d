package sil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInsertAfterTerminatorUsesSuccessorHeads(t *testing.T) {
	f := MustParse(`func @diamond {
bb0(%x : @owned $T):
  %c = const $Bool
  cond_br %c, bb1, bb2
bb1:
  br bb3
bb2:
  br bb3
bb3:
  return
}`)
	x := f.ValueByName("%x")
	term := f.Entry().Terminator()
	InsertAfter(term, func(b *Builder) {
		b.CreateDestroyValue(x, false)
	})
	want := `func @diamond {
bb0(%x : @owned $T):
  %c = const $Bool
  cond_br %c, bb1, bb2
bb1:
  destroy_value %x
  br bb3
bb2:
  destroy_value %x
  br bb3
bb3:
  return
}
`
	if diff := cmp.Diff(want, f.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := len(x.Uses()); got != 2 {
		t.Errorf("uses of %%x = %d, want 2", got)
	}
	first := f.BlockByName("bb1").Instrs[0]
	if !first.Loc.Auto || first.Loc.Line != 6 {
		t.Errorf("inserted loc = %+v, want auto line 6", first.Loc)
	}
}

func TestInsertAfterPlainInstruction(t *testing.T) {
	f := MustParse(`func @after {
bb0(%x : @owned $T):
  %b = begin_borrow %x
  use %b
  destroy_value %x
  return
}`)
	b := f.ValueByName("%b")
	InsertAfter(b.Uses()[0].User, func(bld *Builder) {
		bld.CreateEndBorrow(b)
	})
	got := FormatInstr(f.Entry().Instrs[2])
	if got != "end_borrow %b" {
		t.Errorf("instr 2 = %q, want end_borrow %%b", got)
	}
}

func TestBuilderRejectsAppendAfterTerminator(t *testing.T) {
	f := MustParse(`func @f {
bb0:
  return
}`)
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	NewBuilder(f, AtEnd(f.Entry())).CreateUnreachable()
}

func TestTruncateReplacesTailWithUnreachable(t *testing.T) {
	f := MustParse(`func @noreturn {
bb0(%x : @owned $T):
  apply [noreturn] @fatal()
  use %x
  br bb1
bb1:
  destroy_value %x
  return
}`)
	removed := Truncate(f.Entry().Instrs[0])
	if len(removed) != 2 || removed[0].Op != OpUse || removed[1].Op != OpBr {
		t.Fatalf("removed = %v", removed)
	}
	if len(f.BlockByName("bb1").Preds()) != 0 {
		t.Error("bb1 still has a predecessor")
	}
	if got := len(f.ValueByName("%x").Uses()); got != 1 {
		t.Errorf("uses of %%x = %d, want 1", got)
	}
	if !f.Entry().EndsInUnreachable() {
		t.Error("entry does not end in unreachable")
	}
}

func TestEraseDropsUses(t *testing.T) {
	f := MustParse(`func @erase {
bb0(%x : @owned $T):
  use %x
  destroy_value %x
  return
}`)
	x := f.ValueByName("%x")
	Erase(f.Entry().Instrs[0])
	if len(x.Uses()) != 1 || x.Uses()[0].User.Op != OpDestroyValue {
		t.Errorf("uses after erase = %v", x.Uses())
	}
	if len(f.Entry().Instrs) != 2 {
		t.Errorf("instrs = %d, want 2", len(f.Entry().Instrs))
	}
}

func TestHasLifetime(t *testing.T) {
	f := MustParse(`func @lifetimes {
bb0(%o : @owned $T, %g : @guaranteed $T, %i : $Int):
  %b = begin_borrow %o
  br bb1(%b)
bb1(%r : @guaranteed $T):
  %f = borrowed %r from (%o)
  end_borrow %f
  destroy_value %o
  return
}`)
	tests := []struct {
		name string
		want bool
	}{
		{"%o", true},
		{"%g", false},
		{"%i", false},
		{"%b", true},
		{"%r", true},
		{"%f", false},
	}
	for _, tt := range tests {
		if got := f.ValueByName(tt.name).HasLifetime(); got != tt.want {
			t.Errorf("%s.HasLifetime() = %v, want %v", tt.name, got, tt.want)
		}
	}
	r := f.ValueByName("%r")
	if LookThroughBorrowedFromUser(r) != f.ValueByName("%f") {
		t.Errorf("LookThroughBorrowedFromUser(%%r) is not %%f")
	}
	if LookThroughBorrowedFrom(f.ValueByName("%f")) != r {
		t.Errorf("LookThroughBorrowedFrom(%%f) is not %%r")
	}
	if enc := EnclosingValues(r); len(enc) != 1 || enc[0] != f.ValueByName("%o") {
		t.Errorf("EnclosingValues(%%r) = %v", enc)
	}
}

func TestOperandOwnership(t *testing.T) {
	f := MustParse(`func @ops {
bb0(%o : @owned $T, %i : $Int):
  %b = begin_borrow %o
  use %b
  %c = copy_value %o
  end_borrow %b
  br bb1(%c)
bb1(%p : @owned $T):
  consume %p
  destroy_value %o
  return
}`)
	tests := []struct {
		instr  string
		want   OperandOwnership
		ending bool
	}{
		{"%b = begin_borrow %o", Borrow, false},
		{"use %b", InstantaneousUse, false},
		{"%c = copy_value %o", InstantaneousUse, false},
		{"end_borrow %b", EndBorrow, true},
		{"br bb1(%c)", ForwardingConsume, true},
		{"consume %p", ForwardingConsume, true},
		{"destroy_value %o", DestroyingConsume, true},
	}
	byText := map[string]*Instr{}
	f.Instructions(func(i *Instr) { byText[FormatInstr(i)] = i })
	for _, tt := range tests {
		i := byText[tt.instr]
		if i == nil {
			t.Fatalf("instruction %q not found", tt.instr)
		}
		op := i.Operands[0]
		if got := op.Ownership(); got != tt.want {
			t.Errorf("%s: ownership = %s, want %s", tt.instr, got, tt.want)
		}
		if got := op.IsLifetimeEnding(); got != tt.ending {
			t.Errorf("%s: ending = %v, want %v", tt.instr, got, tt.ending)
		}
	}
}
