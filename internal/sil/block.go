package sil

// Block is a basic block. Its last instruction is the terminator once the
// block is complete.
type Block struct {
	ID     BlockID
	Name   string
	Func   *Func
	Args   []*Value
	Instrs []*Instr

	preds []*Block
}

// Terminator returns the terminating instruction or nil.
func (b *Block) Terminator() *Instr {
	if b == nil || len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// Terminated reports whether the block ends with a terminator.
func (b *Block) Terminated() bool {
	return b.Terminator() != nil
}

// Succs returns the successor blocks.
func (b *Block) Succs() []*Block {
	if t := b.Terminator(); t != nil {
		return t.Successors()
	}
	return nil
}

// Preds returns the predecessor blocks. Each predecessor appears once even
// when it branches to b on several edges.
func (b *Block) Preds() []*Block {
	b.Func.ensureCFG()
	return b.preds
}

// SinglePred returns the only predecessor or nil.
func (b *Block) SinglePred() *Block {
	preds := b.Preds()
	if len(preds) != 1 {
		return nil
	}
	return preds[0]
}

// EndsInUnreachable reports whether the terminator is unreachable.
func (b *Block) EndsInUnreachable() bool {
	t := b.Terminator()
	return t != nil && t.Op == OpUnreachable
}

// Label returns the name used in the text format.
func (b *Block) Label() string { return b.Name }

func (b *Block) String() string { return b.Name }

func (b *Block) indexOf(i *Instr) int {
	for idx, in := range b.Instrs {
		if in == i {
			return idx
		}
	}
	return -1
}
