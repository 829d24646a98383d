package sil

import (
	"fmt"
	"slices"
)

// InsertPoint is a position in a block: before an instruction, or at the end
// of a block that has no terminator yet.
type InsertPoint struct {
	block  *Block
	before *Instr
}

// Before positions insertion right before i.
func Before(i *Instr) InsertPoint {
	return InsertPoint{block: i.Block, before: i}
}

// AtBlockStart positions insertion before the first instruction of b.
func AtBlockStart(b *Block) InsertPoint {
	if len(b.Instrs) == 0 {
		return InsertPoint{block: b}
	}
	return InsertPoint{block: b, before: b.Instrs[0]}
}

// AtEnd positions insertion at the end of b (used while building blocks).
func AtEnd(b *Block) InsertPoint {
	return InsertPoint{block: b}
}

// Block returns the block of the insertion point.
func (p InsertPoint) Block() *Block { return p.block }

// Builder materializes instructions at an insertion point.
type Builder struct {
	fn *Func
	ip InsertPoint
}

// NewBuilder creates a builder positioned at ip.
func NewBuilder(fn *Func, ip InsertPoint) *Builder {
	return &Builder{fn: fn, ip: ip}
}

// SetInsertionPoint repositions the builder.
func (b *Builder) SetInsertionPoint(ip InsertPoint) { b.ip = ip }

// InsertionBlock returns the block new instructions go into.
func (b *Builder) InsertionBlock() *Block { return b.ip.block }

// InsertAfter runs fn with a builder positioned right after i. When i is a
// terminator fn runs once per successor, positioned at the successor's start.
func InsertAfter(i *Instr, fn func(*Builder)) {
	f := i.Block.Func
	if !i.IsTerminator() {
		fn(NewBuilder(f, Before(i.Next())))
		return
	}
	for _, succ := range i.Successors() {
		fn(NewBuilder(f, AtBlockStart(succ)))
	}
}

// insertionLoc derives an auto-generated location from the insertion point.
func (b *Builder) insertionLoc() Loc {
	switch {
	case b.ip.before != nil:
		return Loc{Line: b.ip.before.Loc.Line, Auto: true}
	case len(b.ip.block.Instrs) > 0:
		return Loc{Line: b.ip.block.Instrs[len(b.ip.block.Instrs)-1].Loc.Line, Auto: true}
	}
	return Loc{Auto: true}
}

func (b *Builder) insert(i *Instr, operands ...*Value) *Instr {
	blk := b.ip.block
	if blk == nil {
		panic("sil: builder has no insertion point")
	}
	i.ID = b.fn.newInstrID()
	i.Block = blk
	if i.Loc == (Loc{}) {
		i.Loc = b.insertionLoc()
	}
	for idx, v := range operands {
		op := &Operand{Value: v, User: i, Index: idx}
		i.Operands = append(i.Operands, op)
		v.addUse(op)
	}
	if b.ip.before == nil {
		if blk.Terminated() {
			panic(fmt.Sprintf("sil: appending %s after the terminator of %s", i.Op, blk.Name))
		}
		blk.Instrs = append(blk.Instrs, i)
	} else {
		pos := blk.indexOf(b.ip.before)
		if pos < 0 {
			panic("sil: insertion point is not in its block")
		}
		if i.IsTerminator() {
			panic("sil: terminators can only be appended")
		}
		blk.Instrs = slices.Insert(blk.Instrs, pos, i)
	}
	if i.IsTerminator() {
		b.fn.cfgDirty = true
	}
	return i
}

func (b *Builder) define(i *Instr, name string, typ Type, own Ownership) *Value {
	v := b.fn.newValue(name, typ, own)
	v.Def = i
	i.Result = v
	return v
}

// CreateConst materializes a trivial constant.
func (b *Builder) CreateConst(name string, typ Type) *Value {
	i := &Instr{Op: OpConst}
	v := b.define(i, name, typ, OwnershipNone)
	b.insert(i)
	return v
}

// CreateNew creates an owned object of type typ.
func (b *Builder) CreateNew(name string, typ Type) *Value {
	i := &Instr{Op: OpNew}
	v := b.define(i, name, typ, ownershipFor(typ, OwnershipOwned))
	b.insert(i)
	return v
}

// CreateAllocBox creates an owned box holding elem.
func (b *Builder) CreateAllocBox(name string, elem Type) *Value {
	i := &Instr{Op: OpAllocBox}
	v := b.define(i, name, Type{Name: elem.Name, Box: true}, OwnershipOwned)
	b.insert(i)
	return v
}

// CreateCopyValue creates an owned copy.
func (b *Builder) CreateCopyValue(name string, src *Value) *Value {
	i := &Instr{Op: OpCopyValue}
	v := b.define(i, name, src.Type, ownershipFor(src.Type, OwnershipOwned))
	b.insert(i, src)
	return v
}

// CreateBeginBorrow opens a borrow scope over src.
func (b *Builder) CreateBeginBorrow(name string, src *Value) *Value {
	i := &Instr{Op: OpBeginBorrow}
	v := b.define(i, name, src.Type, OwnershipGuaranteed)
	b.insert(i, src)
	return v
}

// CreateBorrowed annotates the guaranteed phi with its enclosing values.
func (b *Builder) CreateBorrowed(name string, phi *Value, enclosing ...*Value) *Value {
	i := &Instr{Op: OpBorrowed}
	v := b.define(i, name, phi.Type, OwnershipGuaranteed)
	b.insert(i, append([]*Value{phi}, enclosing...)...)
	return v
}

// CreateUse emits an instantaneous use.
func (b *Builder) CreateUse(v *Value) *Instr {
	return b.insert(&Instr{Op: OpUse}, v)
}

// CreateApply calls callee. A non-nil resultType defines an owned (or
// trivial) result named name.
func (b *Builder) CreateApply(name, callee string, resultType *Type, flags InstrFlags, args ...*Value) *Instr {
	i := &Instr{Op: OpApply, Callee: callee, Flags: flags}
	if resultType != nil {
		b.define(i, name, *resultType, ownershipFor(*resultType, OwnershipOwned))
	}
	return b.insert(i, args...)
}

// CreateConsume transfers ownership of v out of the function body.
func (b *Builder) CreateConsume(v *Value) *Instr {
	return b.insert(&Instr{Op: OpConsume}, v)
}

// CreateDestroyValue ends an owned lifetime.
func (b *Builder) CreateDestroyValue(v *Value, deadEnd bool) *Instr {
	return b.insert(&Instr{Op: OpDestroyValue, Flags: deadEndFlag(deadEnd)}, v)
}

// CreateDeallocBox ends the lifetime of an owned box.
func (b *Builder) CreateDeallocBox(v *Value, deadEnd bool) *Instr {
	return b.insert(&Instr{Op: OpDeallocBox, Flags: deadEndFlag(deadEnd)}, v)
}

// CreateEndBorrow closes a borrow scope.
func (b *Builder) CreateEndBorrow(v *Value) *Instr {
	return b.insert(&Instr{Op: OpEndBorrow}, v)
}

// CreateExtendLifetime marks v alive at this point without ending it.
func (b *Builder) CreateExtendLifetime(v *Value) *Instr {
	return b.insert(&Instr{Op: OpExtendLifetime}, v)
}

// CreateBr branches to target passing args.
func (b *Builder) CreateBr(target *Block, args ...*Value) *Instr {
	return b.insert(&Instr{Op: OpBr, Targets: []*Block{target}}, args...)
}

// CreateCondBr branches on cond.
func (b *Builder) CreateCondBr(cond *Value, then, els *Block) *Instr {
	return b.insert(&Instr{Op: OpCondBr, Targets: []*Block{then, els}}, cond)
}

// CreateReturn exits the function; v may be nil.
func (b *Builder) CreateReturn(v *Value) *Instr {
	if v == nil {
		return b.insert(&Instr{Op: OpReturn})
	}
	return b.insert(&Instr{Op: OpReturn}, v)
}

// CreateUnreachable terminates the block with unreachable.
func (b *Builder) CreateUnreachable() *Instr {
	return b.insert(&Instr{Op: OpUnreachable})
}

func deadEndFlag(deadEnd bool) InstrFlags {
	if deadEnd {
		return FlagDeadEnd
	}
	return 0
}

func ownershipFor(t Type, own Ownership) Ownership {
	if t.Trivial {
		return OwnershipNone
	}
	return own
}

// Erase removes i from its block and drops its operand uses. The result, if
// any, keeps its remaining uses; callers erase dependent code first or remove
// the blocks containing it.
func Erase(i *Instr) {
	blk := i.Block
	if blk == nil {
		return
	}
	if pos := blk.indexOf(i); pos >= 0 {
		blk.Instrs = slices.Delete(blk.Instrs, pos, pos+1)
	}
	for _, op := range i.Operands {
		op.Value.removeUse(op)
	}
	if i.IsTerminator() {
		blk.Func.cfgDirty = true
	}
	i.Block = nil
}

// Truncate erases every instruction after i in its block, terminator
// included, and terminates the block with unreachable. It returns the erased
// instructions in their original order.
func Truncate(i *Instr) []*Instr {
	blk := i.Block
	if i.IsTerminator() {
		panic("sil: truncating at a terminator")
	}
	pos := blk.indexOf(i)
	if pos < 0 {
		panic("sil: truncating at an instruction outside its block")
	}
	removed := slices.Clone(blk.Instrs[pos+1:])
	for idx := len(removed) - 1; idx >= 0; idx-- {
		Erase(removed[idx])
	}
	NewBuilder(blk.Func, AtEnd(blk)).CreateUnreachable()
	return removed
}
