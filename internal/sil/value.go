package sil

// Value is an SSA definition: either an instruction result or a block
// argument.
type Value struct {
	ID        ValueID
	Name      string
	Type      Type
	Ownership Ownership

	// Def is the defining instruction, nil for block arguments.
	Def *Instr
	// Block is the parent block of an argument. For results use ParentBlock.
	Block *Block
	// ArgIndex is the argument position, -1 for instruction results.
	ArgIndex int

	uses []*Operand
}

// ParentBlock returns the block in which the value is defined.
func (v *Value) ParentBlock() *Block {
	if v.Def != nil {
		return v.Def.Block
	}
	return v.Block
}

// IsBlockArg reports whether v is a block argument.
func (v *Value) IsBlockArg() bool { return v.Def == nil && v.Block != nil }

// IsFunctionArg reports whether v is an argument of the entry block.
func (v *Value) IsFunctionArg() bool {
	return v.IsBlockArg() && v.Block.ID == 0
}

// IsPhi reports whether v is an argument of a non-entry block.
func (v *Value) IsPhi() bool {
	return v.IsBlockArg() && v.Block.ID != 0
}

// Uses returns the operands that use v, in insertion order. The slice is
// owned by the value and must not be modified.
func (v *Value) Uses() []*Operand { return v.uses }

// HasUses reports whether any instruction uses v.
func (v *Value) HasUses() bool { return len(v.uses) > 0 }

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.Name
}

// HasLifetime reports whether v needs a lifetime-ending instruction on every
// path: owned values, borrow scopes and reborrow phis. Guaranteed function
// arguments and borrowed-from results are not scope introducers.
func (v *Value) HasLifetime() bool {
	switch v.Ownership {
	case OwnershipNone:
		return false
	case OwnershipOwned:
		return true
	case OwnershipGuaranteed:
		if v.Def != nil {
			return v.Def.Op == OpBeginBorrow
		}
		return v.IsPhi()
	default:
		panic("sil: unknown ownership " + v.Ownership.String())
	}
}

// BorrowedFrom returns the borrowed instruction that annotates the phi v, or
// nil.
func (v *Value) BorrowedFrom() *Instr {
	for _, use := range v.uses {
		if use.User.Op == OpBorrowed && use.Index == 0 {
			return use.User
		}
	}
	return nil
}

// LookThroughBorrowedFromUser returns the result of the borrowed instruction
// annotating v when there is one, v otherwise.
func LookThroughBorrowedFromUser(v *Value) *Value {
	if bf := v.BorrowedFrom(); bf != nil {
		return bf.Result
	}
	return v
}

// LookThroughBorrowedFrom maps a borrowed result back to its phi.
func LookThroughBorrowedFrom(v *Value) *Value {
	if v.Def != nil && v.Def.Op == OpBorrowed {
		return v.Def.Operand(0)
	}
	return v
}

// EnclosingValues returns the enclosing values listed by the borrowed
// instruction of phi v.
func EnclosingValues(v *Value) []*Value {
	bf := v.BorrowedFrom()
	if bf == nil {
		return nil
	}
	out := make([]*Value, 0, len(bf.Operands)-1)
	for _, op := range bf.Operands[1:] {
		out = append(out, op.Value)
	}
	return out
}

func (v *Value) addUse(op *Operand) { v.uses = append(v.uses, op) }

func (v *Value) removeUse(op *Operand) {
	for i, u := range v.uses {
		if u == op {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

// Operand is a use of a value by an instruction.
type Operand struct {
	Value *Value
	User  *Instr
	Index int
}
