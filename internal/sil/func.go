package sil

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Func is a function in ownership SSA form. Blocks[0] is the entry block.
type Func struct {
	Name   string
	Blocks []*Block
	Values []*Value

	nextInstr InstrID
	cfgDirty  bool
}

// Module is a set of functions parsed from one input.
type Module struct {
	Funcs []*Func
}

// Func returns the function with the given name or nil.
func (m *Module) Func(name string) *Func {
	if m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// NewFunc creates an empty function.
func NewFunc(name string) *Func {
	return &Func{Name: name}
}

// Entry returns the entry block.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NumBlocks returns the number of blocks; block IDs are dense in
// [0, NumBlocks).
func (f *Func) NumBlocks() int { return len(f.Blocks) }

// NewBlock appends a block. An empty name yields "bbN".
func (f *Func) NewBlock(name string) *Block {
	id, err := safecast.Conv[BlockID](len(f.Blocks))
	if err != nil {
		panic(fmt.Errorf("len(blocks) overflow: %w", err))
	}
	if name == "" {
		name = f.freshBlockName(int(id))
	}
	b := &Block{ID: id, Name: name, Func: f}
	f.Blocks = append(f.Blocks, b)
	f.cfgDirty = true
	return b
}

func (f *Func) freshBlockName(n int) string {
	for {
		name := fmt.Sprintf("bb%d", n)
		if f.BlockByName(name) == nil {
			return name
		}
		n++
	}
}

// BlockByName looks a block up by label.
func (f *Func) BlockByName(name string) *Block {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// ValueByName looks a value up by its %name.
func (f *Func) ValueByName(name string) *Value {
	for _, v := range f.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// NewArg appends a block argument.
func (f *Func) NewArg(b *Block, name string, typ Type, own Ownership) *Value {
	v := f.newValue(name, typ, own)
	v.Block = b
	v.ArgIndex = len(b.Args)
	b.Args = append(b.Args, v)
	return v
}

func (f *Func) newValue(name string, typ Type, own Ownership) *Value {
	id, err := safecast.Conv[ValueID](len(f.Values))
	if err != nil {
		panic(fmt.Errorf("len(values) overflow: %w", err))
	}
	if name == "" {
		name = fmt.Sprintf("%%%d", id)
	}
	v := &Value{ID: id, Name: name, Type: typ, Ownership: own, ArgIndex: -1}
	f.Values = append(f.Values, v)
	return v
}

func (f *Func) newInstrID() InstrID {
	id := f.nextInstr
	f.nextInstr++
	return id
}

// InvalidateCFG forces predecessor lists to be rebuilt on next access.
func (f *Func) InvalidateCFG() { f.cfgDirty = true }

func (f *Func) ensureCFG() {
	if !f.cfgDirty {
		return
	}
	for _, b := range f.Blocks {
		b.preds = b.preds[:0]
	}
	for _, b := range f.Blocks {
		for _, succ := range b.Succs() {
			if !slices.Contains(succ.preds, b) {
				succ.preds = append(succ.preds, b)
			}
		}
	}
	f.cfgDirty = false
}

// Instructions calls fn for every instruction in block order.
func (f *Func) Instructions(fn func(*Instr)) {
	for _, b := range f.Blocks {
		for _, i := range b.Instrs {
			fn(i)
		}
	}
}
