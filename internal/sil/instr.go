package sil

// Op enumerates instruction kinds.
type Op uint8

const (
	// OpConst materializes a trivial constant.
	OpConst Op = iota
	// OpNew creates an owned object.
	OpNew
	// OpAllocBox creates an owned heap box.
	OpAllocBox
	// OpCopyValue creates an owned copy of its operand.
	OpCopyValue
	// OpBeginBorrow opens a borrow scope over its operand.
	OpBeginBorrow
	// OpBorrowed annotates a guaranteed phi with its enclosing values.
	OpBorrowed
	// OpUse is an instantaneous, non-consuming use.
	OpUse
	// OpApply calls a function with non-consuming arguments.
	OpApply
	// OpConsume takes ownership of an owned operand.
	OpConsume
	// OpDestroyValue ends the lifetime of an owned value.
	OpDestroyValue
	// OpDeallocBox ends the lifetime of an owned box.
	OpDeallocBox
	// OpEndBorrow closes a borrow scope.
	OpEndBorrow
	// OpExtendLifetime keeps a value notionally alive without consuming it.
	OpExtendLifetime
	// OpBr branches unconditionally, passing block arguments.
	OpBr
	// OpCondBr branches on a trivial condition.
	OpCondBr
	// OpReturn exits the function normally.
	OpReturn
	// OpUnreachable marks a point execution can never reach.
	OpUnreachable
)

var opNames = [...]string{
	OpConst:          "const",
	OpNew:            "new",
	OpAllocBox:       "alloc_box",
	OpCopyValue:      "copy_value",
	OpBeginBorrow:    "begin_borrow",
	OpBorrowed:       "borrowed",
	OpUse:            "use",
	OpApply:          "apply",
	OpConsume:        "consume",
	OpDestroyValue:   "destroy_value",
	OpDeallocBox:     "dealloc_box",
	OpEndBorrow:      "end_borrow",
	OpExtendLifetime: "extend_lifetime",
	OpBr:             "br",
	OpCondBr:         "cond_br",
	OpReturn:         "return",
	OpUnreachable:    "unreachable",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op?"
}

// LookupOp maps a mnemonic to its Op.
func LookupOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true //nolint:gosec // bounded by opNames
		}
	}
	return 0, false
}

// IsTerminator reports whether op ends a basic block.
func (op Op) IsTerminator() bool {
	switch op {
	case OpBr, OpCondBr, OpReturn, OpUnreachable:
		return true
	}
	return false
}

// HasResult reports whether op always defines a value.
func (op Op) HasResult() bool {
	switch op {
	case OpConst, OpNew, OpAllocBox, OpCopyValue, OpBeginBorrow, OpBorrowed:
		return true
	}
	return false
}

// InstrFlags carries per-instruction markers.
type InstrFlags uint8

const (
	// FlagDeadEnd marks a destroy inserted in a dead-end block.
	FlagDeadEnd InstrFlags = 1 << iota
	// FlagNoReturn marks an apply that never returns.
	FlagNoReturn
)

// Loc is an instruction's source location.
type Loc struct {
	Line int
	// Auto is set for instructions materialized by the builder.
	Auto bool
}

// Instr is a single instruction. Terminators are the last element of
// Block.Instrs.
type Instr struct {
	ID       InstrID
	Op       Op
	Block    *Block
	Operands []*Operand
	Result   *Value
	Targets  []*Block
	Callee   string
	Flags    InstrFlags
	Loc      Loc
}

// IsTerminator reports whether the instruction ends its block.
func (i *Instr) IsTerminator() bool { return i.Op.IsTerminator() }

// HasFlag reports whether all bits of f are set.
func (i *Instr) HasFlag(f InstrFlags) bool { return i.Flags&f == f }

// Successors returns the successor blocks of a terminator.
func (i *Instr) Successors() []*Block {
	if !i.IsTerminator() {
		return nil
	}
	return i.Targets
}

// Index returns the position of the instruction within its block or -1.
func (i *Instr) Index() int {
	if i.Block == nil {
		return -1
	}
	for idx, in := range i.Block.Instrs {
		if in == i {
			return idx
		}
	}
	return -1
}

// Next returns the following instruction in the block, nil for terminators.
func (i *Instr) Next() *Instr {
	idx := i.Index()
	if idx < 0 || idx+1 >= len(i.Block.Instrs) {
		return nil
	}
	return i.Block.Instrs[idx+1]
}

// Prev returns the preceding instruction in the block, nil for the first one.
func (i *Instr) Prev() *Instr {
	idx := i.Index()
	if idx <= 0 {
		return nil
	}
	return i.Block.Instrs[idx-1]
}

// VisitSubsequentInstructions calls fn with the instruction that executes
// right after i: the next instruction of the block, or the first instruction
// of every successor when i is a terminator. Iteration stops when fn returns
// false.
func (i *Instr) VisitSubsequentInstructions(fn func(*Instr) bool) {
	if !i.IsTerminator() {
		if next := i.Next(); next != nil {
			fn(next)
		}
		return
	}
	for _, succ := range i.Successors() {
		if len(succ.Instrs) == 0 {
			continue
		}
		if !fn(succ.Instrs[0]) {
			return
		}
	}
}

// BranchArg returns the target block argument fed by the br operand at index.
func (i *Instr) BranchArg(index int) *Value {
	if i.Op != OpBr || len(i.Targets) != 1 {
		return nil
	}
	args := i.Targets[0].Args
	if index < 0 || index >= len(args) {
		return nil
	}
	return args[index]
}

// Operand returns the idx-th operand value.
func (i *Instr) Operand(idx int) *Value {
	if idx < 0 || idx >= len(i.Operands) {
		return nil
	}
	return i.Operands[idx].Value
}

// ConsumesAny reports whether any operand is lifetime-ending.
func (i *Instr) ConsumesAny() bool {
	for _, op := range i.Operands {
		if op.IsLifetimeEnding() {
			return true
		}
	}
	return false
}
