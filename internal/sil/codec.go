package sil

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Binary snapshots of a module. Increment when the payload layout changes.
const codecSchemaVersion uint16 = 1

type modulePayload struct {
	Schema uint16
	Funcs  []funcPayload
}

type funcPayload struct {
	Name   string
	Values []valuePayload
	Blocks []blockPayload
}

type valuePayload struct {
	Name      string
	Type      Type
	Ownership Ownership
}

type blockPayload struct {
	Name   string
	Args   []ValueID
	Instrs []instrPayload
}

type instrPayload struct {
	Op       Op
	Operands []ValueID
	Result   ValueID
	Targets  []BlockID
	Callee   string
	Flags    InstrFlags
	Line     int
	Auto     bool
}

// EncodeModule writes m as a msgpack snapshot.
func EncodeModule(w io.Writer, m *Module) error {
	payload := modulePayload{Schema: codecSchemaVersion}
	for _, f := range m.Funcs {
		payload.Funcs = append(payload.Funcs, encodeFunc(f))
	}
	return msgpack.NewEncoder(w).Encode(&payload)
}

func encodeFunc(f *Func) funcPayload {
	fp := funcPayload{Name: f.Name, Values: make([]valuePayload, len(f.Values))}
	for idx, v := range f.Values {
		fp.Values[idx] = valuePayload{Name: v.Name, Type: v.Type, Ownership: v.Ownership}
	}
	for _, b := range f.Blocks {
		bp := blockPayload{Name: b.Name}
		for _, a := range b.Args {
			bp.Args = append(bp.Args, a.ID)
		}
		for _, i := range b.Instrs {
			ip := instrPayload{Op: i.Op, Result: NoValueID, Callee: i.Callee, Flags: i.Flags, Line: i.Loc.Line, Auto: i.Loc.Auto}
			for _, op := range i.Operands {
				ip.Operands = append(ip.Operands, op.Value.ID)
			}
			if i.Result != nil {
				ip.Result = i.Result.ID
			}
			for _, t := range i.Targets {
				ip.Targets = append(ip.Targets, t.ID)
			}
			bp.Instrs = append(bp.Instrs, ip)
		}
		fp.Blocks = append(fp.Blocks, bp)
	}
	return fp
}

// DecodeModule reads a snapshot written by EncodeModule.
func DecodeModule(r io.Reader) (*Module, error) {
	var payload modulePayload
	if err := msgpack.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	if payload.Schema != codecSchemaVersion {
		return nil, fmt.Errorf("unsupported snapshot schema %d (want %d)", payload.Schema, codecSchemaVersion)
	}
	m := &Module{}
	for _, fp := range payload.Funcs {
		f, err := decodeFunc(fp)
		if err != nil {
			return nil, fmt.Errorf("function @%s: %w", fp.Name, err)
		}
		m.Funcs = append(m.Funcs, f)
	}
	return m, nil
}

func decodeFunc(fp funcPayload) (*Func, error) {
	f := NewFunc(fp.Name)
	for _, vp := range fp.Values {
		f.newValue(vp.Name, vp.Type, vp.Ownership)
	}
	value := func(id ValueID) (*Value, error) {
		if id < 0 || int(id) >= len(f.Values) {
			return nil, fmt.Errorf("value id %d out of range", id)
		}
		return f.Values[id], nil
	}
	for _, bp := range fp.Blocks {
		b := f.NewBlock(bp.Name)
		for _, id := range bp.Args {
			v, err := value(id)
			if err != nil {
				return nil, err
			}
			v.Block = b
			v.ArgIndex = len(b.Args)
			b.Args = append(b.Args, v)
		}
	}
	for bidx, bp := range fp.Blocks {
		b := f.Blocks[bidx]
		bld := NewBuilder(f, AtEnd(b))
		for _, ip := range bp.Instrs {
			i := &Instr{Op: ip.Op, Callee: ip.Callee, Flags: ip.Flags, Loc: Loc{Line: ip.Line, Auto: ip.Auto}}
			for _, tid := range ip.Targets {
				if tid < 0 || int(tid) >= len(f.Blocks) {
					return nil, fmt.Errorf("block id %d out of range", tid)
				}
				i.Targets = append(i.Targets, f.Blocks[tid])
			}
			if ip.Result != NoValueID {
				v, err := value(ip.Result)
				if err != nil {
					return nil, err
				}
				v.Def = i
				i.Result = v
			}
			operands := make([]*Value, 0, len(ip.Operands))
			for _, id := range ip.Operands {
				v, err := value(id)
				if err != nil {
					return nil, err
				}
				operands = append(operands, v)
			}
			bld.insert(i, operands...)
			// insert stamps a fresh location when the recorded one is zero.
			i.Loc = Loc{Line: ip.Line, Auto: ip.Auto}
		}
	}
	return f, nil
}
