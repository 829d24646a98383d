package sil

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of every function in m.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function @%s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks structural invariants of f: terminated blocks, branch
// arity, defined operands and ownership-consistent operand kinds. It does not
// check lifetime completeness.
func ValidateFunc(f *Func) error {
	if f == nil {
		return nil
	}
	if len(f.Blocks) == 0 {
		return errors.New("function has no blocks")
	}
	var errs []error
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBranches(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateOperands(f); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateBlocksTerminated(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("%s: unterminated block", b.Name))
			continue
		}
		for _, i := range b.Instrs[:len(b.Instrs)-1] {
			if i.IsTerminator() {
				errs = append(errs, fmt.Errorf("%s: %s in the middle of the block", b.Name, i.Op))
			}
		}
		for _, i := range b.Instrs {
			if i.Block != b {
				errs = append(errs, fmt.Errorf("%s: %s has a stale parent block", b.Name, FormatInstr(i)))
			}
		}
	}
	if len(f.Entry().Preds()) != 0 {
		errs = append(errs, fmt.Errorf("%s: entry block has predecessors", f.Entry().Name))
	}
	return errors.Join(errs...)
}

func validateBranches(f *Func) error {
	var errs []error
	inFunc := func(b *Block) bool {
		return b != nil && b.ID >= 0 && int(b.ID) < len(f.Blocks) && f.Blocks[b.ID] == b
	}
	for _, b := range f.Blocks {
		t := b.Terminator()
		if t == nil {
			continue
		}
		for _, target := range t.Targets {
			if !inFunc(target) {
				errs = append(errs, fmt.Errorf("%s: branch target %s is not in the function", b.Name, target))
			}
		}
		switch t.Op {
		case OpBr:
			target := t.Targets[0]
			if len(t.Operands) != len(target.Args) {
				errs = append(errs, fmt.Errorf("%s: br passes %d arguments, %s expects %d",
					b.Name, len(t.Operands), target.Name, len(target.Args)))
				continue
			}
			for idx, op := range t.Operands {
				if arg := target.Args[idx]; arg.Ownership != op.Value.Ownership {
					errs = append(errs, fmt.Errorf("%s: br argument %s is %s but %s is %s",
						b.Name, op.Value.Name, op.Value.Ownership, arg.Name, arg.Ownership))
				}
			}
		case OpCondBr:
			for _, target := range t.Targets {
				if len(target.Args) != 0 {
					errs = append(errs, fmt.Errorf("%s: cond_br target %s takes arguments", b.Name, target.Name))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func validateOperands(f *Func) error {
	var errs []error
	report := func(i *Instr, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s: %s", i.Block.Name, FormatInstr(i), fmt.Sprintf(format, args...)))
	}
	f.Instructions(func(i *Instr) {
		for _, op := range i.Operands {
			v := op.Value
			if blk := v.ParentBlock(); blk == nil || blk.Func != f {
				report(i, "operand %s is not defined in this function", v.Name)
			}
		}
		switch i.Op {
		case OpConsume, OpDestroyValue, OpReturn:
			if v := i.Operand(0); v != nil && v.Ownership != OwnershipOwned {
				report(i, "operand must be owned, %s is %s", v.Name, v.Ownership)
			}
		case OpDeallocBox:
			if v := i.Operand(0); v.Ownership != OwnershipOwned || !v.Type.Box {
				report(i, "operand must be an owned box")
			}
		case OpEndBorrow:
			if v := i.Operand(0); v.Ownership != OwnershipGuaranteed {
				report(i, "operand must be guaranteed, %s is %s", v.Name, v.Ownership)
			}
		case OpBeginBorrow:
			if v := i.Operand(0); v.Ownership == OwnershipNone {
				report(i, "cannot borrow trivial value %s", v.Name)
			}
		case OpBorrowed:
			if phi := i.Operand(0); !phi.IsPhi() || phi.Ownership != OwnershipGuaranteed {
				report(i, "%s is not a guaranteed phi", phi.Name)
			}
		case OpCondBr:
			if v := i.Operand(0); v.Ownership != OwnershipNone {
				report(i, "condition %s must be trivial", v.Name)
			}
		}
	})
	return errors.Join(errs...)
}
