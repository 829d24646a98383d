package sil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ParseError reports a malformed line of textual IR.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseModule reads every function from r.
func ParseModule(r io.Reader) (*Module, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	p := &parser{lines: lines}
	return p.module()
}

// ParseString parses src and returns its single function. It is meant for
// tests and small tools.
func ParseString(src string) (*Func, error) {
	m, err := ParseModule(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	if len(m.Funcs) != 1 {
		return nil, fmt.Errorf("expected exactly one function, found %d", len(m.Funcs))
	}
	return m.Funcs[0], nil
}

// MustParse is ParseString that panics on error.
func MustParse(src string) *Func {
	f, err := ParseString(src)
	if err != nil {
		panic(err)
	}
	return f
}

type srcLine struct {
	num  int
	text string
}

func readLines(r io.Reader) ([]srcLine, error) {
	var out []srcLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		text := sc.Text()
		if idx := strings.Index(text, "//"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, srcLine{num: n, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read IR: %w", err)
	}
	return out, nil
}

type parser struct {
	lines []srcLine
	pos   int
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) module() (*Module, error) {
	m := &Module{}
	var errs []error
	for p.pos < len(p.lines) {
		f, err := p.function()
		if err != nil {
			errs = append(errs, err)
			p.skipFunction()
			continue
		}
		if m.Func(f.Name) != nil {
			errs = append(errs, fmt.Errorf("duplicate function @%s", f.Name))
			continue
		}
		m.Funcs = append(m.Funcs, f)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *parser) skipFunction() {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++
		if line.text == "}" {
			return
		}
	}
}

// blockSrc holds the instruction lines of a block until all blocks and their
// arguments are known.
type blockSrc struct {
	block *Block
	lines []srcLine
}

func (p *parser) function() (*Func, error) {
	head := p.lines[p.pos]
	toks, err := tokenize(head.text)
	if err != nil {
		return nil, p.errorf(head.num, "%v", err)
	}
	if len(toks) != 3 || toks[0].text != "func" || toks[1].kind != tokGlobal || toks[2].text != "{" {
		return nil, p.errorf(head.num, "expected 'func @name {', got %q", head.text)
	}
	p.pos++
	fs := &funcState{f: NewFunc(toks[1].text[1:]), names: map[string]*Value{}, pending: map[string]int{}}

	var blocks []*blockSrc
	var cur *blockSrc
	closed := false
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++
		if line.text == "}" {
			closed = true
			break
		}
		if strings.HasSuffix(line.text, ":") {
			b, err := fs.blockHeader(line)
			if err != nil {
				return nil, err
			}
			cur = &blockSrc{block: b}
			blocks = append(blocks, cur)
			continue
		}
		if cur == nil {
			return nil, p.errorf(line.num, "instruction outside of a block")
		}
		cur.lines = append(cur.lines, line)
	}
	if !closed {
		return nil, p.errorf(head.num, "function @%s is not closed", fs.f.Name)
	}
	if len(blocks) == 0 {
		return nil, p.errorf(head.num, "function @%s has no blocks", fs.f.Name)
	}

	var errs []error
	for _, bs := range blocks {
		for _, line := range bs.lines {
			if err := fs.instr(bs.block, line); err != nil {
				errs = append(errs, err)
			}
		}
	}
	// Blocks only mentioned as branch targets are created on demand and stay
	// empty.
	for _, b := range fs.f.Blocks {
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("%s: block is not terminated", b.Name))
		}
	}
	for name, line := range fs.pending {
		errs = append(errs, p.errorf(line, "use of undefined value %s", name))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("@%s: %w", fs.f.Name, err)
	}
	return fs.f, nil
}

type funcState struct {
	f     *Func
	names map[string]*Value
	// pending maps forward-referenced value names to the first line using them.
	pending map[string]int
}

// blockHeader parses "label:" or "label(%a : @owned $T, ...):".
func (fs *funcState) blockHeader(line srcLine) (*Block, error) {
	toks, err := tokenize(strings.TrimSuffix(line.text, ":"))
	if err != nil {
		return nil, &ParseError{Line: line.num, Msg: err.Error()}
	}
	if len(toks) == 0 || toks[0].kind != tokIdent {
		return nil, &ParseError{Line: line.num, Msg: "expected block label"}
	}
	name := toks[0].text
	if fs.f.BlockByName(name) != nil {
		return nil, &ParseError{Line: line.num, Msg: "duplicate block " + name}
	}
	b := fs.f.NewBlock(name)
	rest := toks[1:]
	if len(rest) == 0 {
		return b, nil
	}
	if rest[0].text != "(" || rest[len(rest)-1].text != ")" {
		return nil, &ParseError{Line: line.num, Msg: "malformed block arguments"}
	}
	for _, arg := range splitCommas(rest[1 : len(rest)-1]) {
		// %name : [@ownership] $Type
		if len(arg) < 3 || arg[0].kind != tokValue || arg[1].text != ":" {
			return nil, &ParseError{Line: line.num, Msg: "malformed block argument"}
		}
		own := OwnershipNone
		typTok := arg[2]
		if typTok.kind == tokGlobal {
			if own, err = ParseOwnership(typTok.text[1:]); err != nil {
				return nil, &ParseError{Line: line.num, Msg: err.Error()}
			}
			if len(arg) != 4 {
				return nil, &ParseError{Line: line.num, Msg: "missing argument type"}
			}
			typTok = arg[3]
		} else if len(arg) != 3 {
			return nil, &ParseError{Line: line.num, Msg: "malformed block argument"}
		}
		typ, err := ParseType(typTok.text)
		if err != nil {
			return nil, &ParseError{Line: line.num, Msg: err.Error()}
		}
		if typ.Trivial {
			own = OwnershipNone
		}
		name := arg[0].text
		if _, dup := fs.names[name]; dup {
			return nil, &ParseError{Line: line.num, Msg: "redefinition of " + name}
		}
		fs.names[name] = fs.f.NewArg(b, name, typ, own)
	}
	return b, nil
}

// ref resolves an operand name, creating a placeholder for forward
// references.
func (fs *funcState) ref(name string, line int) *Value {
	if v, ok := fs.names[name]; ok {
		return v
	}
	v := fs.f.newValue(name, Type{}, OwnershipNone)
	fs.names[name] = v
	fs.pending[name] = line
	return v
}

func (fs *funcState) known(v *Value) bool {
	_, fwd := fs.pending[v.Name]
	return !fwd
}

// bind gives the result of i the name `name`, filling a forward-reference
// placeholder when one exists.
func (fs *funcState) bind(i *Instr, name string) error {
	v := i.Result
	if name == "" {
		return nil
	}
	old, ok := fs.names[name]
	if !ok {
		v.Name = name
		fs.names[name] = v
		return nil
	}
	if _, fwd := fs.pending[name]; !fwd {
		return fmt.Errorf("redefinition of %s", name)
	}
	delete(fs.pending, name)
	// Move the existing uses of the placeholder over to the real value and
	// reuse the placeholder's identity so operands stay valid.
	old.Type, old.Ownership, old.Def = v.Type, v.Ownership, i
	i.Result = old
	fs.f.Values = removeValue(fs.f.Values, v)
	renumberValues(fs.f)
	return nil
}

func removeValue(values []*Value, v *Value) []*Value {
	for idx, x := range values {
		if x == v {
			return append(values[:idx], values[idx+1:]...)
		}
	}
	return values
}

func renumberValues(f *Func) {
	for idx, v := range f.Values {
		v.ID = mustValueID(idx)
	}
}

func (fs *funcState) instr(b *Block, line srcLine) error {
	perr := func(format string, args ...any) error {
		return &ParseError{Line: line.num, Msg: fmt.Sprintf(format, args...)}
	}
	toks, err := tokenize(line.text)
	if err != nil {
		return perr("%v", err)
	}
	if b.Terminated() {
		return perr("instruction after terminator in %s", b.Name)
	}

	resultName := ""
	if len(toks) >= 2 && toks[0].kind == tokValue && toks[1].text == "=" {
		resultName = toks[0].text
		toks = toks[2:]
	}
	if len(toks) == 0 || toks[0].kind != tokIdent {
		return perr("expected instruction mnemonic")
	}
	op, ok := LookupOp(toks[0].text)
	if !ok {
		return perr("unknown instruction %q", toks[0].text)
	}
	toks, flags, err := extractFlags(toks[1:])
	if err != nil {
		return perr("%v", err)
	}
	if op.HasResult() && resultName == "" {
		return perr("%s requires a result name", op)
	}
	if !op.HasResult() && op != OpApply && resultName != "" {
		return perr("%s does not produce a result", op)
	}

	bld := NewBuilder(fs.f, AtEnd(b))
	operand := func(t token) (*Value, error) {
		if t.kind != tokValue {
			return nil, perr("expected value, got %q", t.text)
		}
		return fs.ref(t.text, line.num), nil
	}
	typed := func(v *Value) error {
		if !fs.known(v) {
			return perr("type of %s is unknown at this point", v.Name)
		}
		return nil
	}
	single := func() (*Value, error) {
		if len(toks) != 1 {
			return nil, perr("%s takes one operand", op)
		}
		return operand(toks[0])
	}

	var inst *Instr
	switch op {
	case OpConst, OpNew, OpAllocBox:
		typ := IntType
		if len(toks) > 1 {
			return perr("%s takes at most a type", op)
		}
		if len(toks) == 1 {
			if typ, err = ParseType(toks[0].text); err != nil {
				return perr("%v", err)
			}
		} else if op != OpConst {
			return perr("%s requires a type", op)
		}
		var v *Value
		switch op {
		case OpConst:
			v = bld.CreateConst("", typ)
		case OpNew:
			v = bld.CreateNew("", typ)
		default:
			v = bld.CreateAllocBox("", typ)
		}
		inst = v.Def
	case OpCopyValue, OpBeginBorrow:
		src, err := single()
		if err != nil {
			return err
		}
		if err := typed(src); err != nil {
			return err
		}
		if op == OpCopyValue {
			inst = bld.CreateCopyValue("", src).Def
		} else {
			inst = bld.CreateBeginBorrow("", src).Def
		}
	case OpBorrowed:
		// borrowed %phi from (%a, %b)
		if len(toks) < 4 || toks[1].text != "from" || toks[2].text != "(" || toks[len(toks)-1].text != ")" {
			return perr("expected 'borrowed %%phi from (...)'")
		}
		phi, err := operand(toks[0])
		if err != nil {
			return err
		}
		if err := typed(phi); err != nil {
			return err
		}
		var enclosing []*Value
		for _, group := range splitCommas(toks[3 : len(toks)-1]) {
			if len(group) != 1 {
				return perr("malformed enclosing value list")
			}
			v, err := operand(group[0])
			if err != nil {
				return err
			}
			enclosing = append(enclosing, v)
		}
		inst = bld.CreateBorrowed("", phi, enclosing...).Def
	case OpApply:
		// apply @f(%a, ...) [: $T]
		if len(toks) < 3 || toks[0].kind != tokGlobal || toks[1].text != "(" {
			return perr("expected 'apply @callee(...)'")
		}
		closeIdx := indexOf(toks, ")")
		if closeIdx < 0 {
			return perr("unterminated argument list")
		}
		var args []*Value
		for _, group := range splitCommas(toks[2:closeIdx]) {
			if len(group) != 1 {
				return perr("malformed argument list")
			}
			v, err := operand(group[0])
			if err != nil {
				return err
			}
			args = append(args, v)
		}
		var resultType *Type
		tail := toks[closeIdx+1:]
		switch {
		case len(tail) == 2 && tail[0].text == ":":
			typ, err := ParseType(tail[1].text)
			if err != nil {
				return perr("%v", err)
			}
			resultType = &typ
		case len(tail) != 0:
			return perr("unexpected tokens after apply arguments")
		}
		if (resultType != nil) != (resultName != "") {
			return perr("apply result name and type must be given together")
		}
		inst = bld.CreateApply("", toks[0].text[1:], resultType, flags, args...)
	case OpUse, OpConsume, OpDestroyValue, OpDeallocBox, OpEndBorrow, OpExtendLifetime:
		v, err := single()
		if err != nil {
			return err
		}
		deadEnd := flags&FlagDeadEnd != 0
		switch op {
		case OpUse:
			inst = bld.CreateUse(v)
		case OpConsume:
			inst = bld.CreateConsume(v)
		case OpDestroyValue:
			inst = bld.CreateDestroyValue(v, deadEnd)
		case OpDeallocBox:
			inst = bld.CreateDeallocBox(v, deadEnd)
		case OpEndBorrow:
			inst = bld.CreateEndBorrow(v)
		default:
			inst = bld.CreateExtendLifetime(v)
		}
	case OpBr:
		if len(toks) == 0 || toks[0].kind != tokIdent {
			return perr("expected branch target")
		}
		target := fs.blockRef(toks[0].text)
		var args []*Value
		if len(toks) > 1 {
			if toks[1].text != "(" || toks[len(toks)-1].text != ")" {
				return perr("malformed branch arguments")
			}
			for _, group := range splitCommas(toks[2 : len(toks)-1]) {
				if len(group) != 1 {
					return perr("malformed branch arguments")
				}
				v, err := operand(group[0])
				if err != nil {
					return err
				}
				args = append(args, v)
			}
		}
		inst = bld.CreateBr(target, args...)
	case OpCondBr:
		groups := splitCommas(toks)
		if len(groups) != 3 || len(groups[0]) != 1 || len(groups[1]) != 1 || len(groups[2]) != 1 {
			return perr("expected 'cond_br %%c, bbT, bbF'")
		}
		cond, err := operand(groups[0][0])
		if err != nil {
			return err
		}
		inst = bld.CreateCondBr(cond, fs.blockRef(groups[1][0].text), fs.blockRef(groups[2][0].text))
	case OpReturn:
		if len(toks) == 0 {
			inst = bld.CreateReturn(nil)
			break
		}
		v, err := single()
		if err != nil {
			return err
		}
		inst = bld.CreateReturn(v)
	case OpUnreachable:
		if len(toks) != 0 {
			return perr("unreachable takes no operands")
		}
		inst = bld.CreateUnreachable()
	}
	if inst.Flags == 0 {
		inst.Flags = flags
	}
	inst.Loc = Loc{Line: line.num}
	if inst.Result != nil {
		if err := fs.bind(inst, resultName); err != nil {
			return perr("%v", err)
		}
	}
	return nil
}

// blockRef returns the block named name, creating it for forward references.
// Blocks created here and never defined are reported as unterminated.
func (fs *funcState) blockRef(name string) *Block {
	if b := fs.f.BlockByName(name); b != nil {
		return b
	}
	return fs.f.NewBlock(name)
}

func extractFlags(toks []token) ([]token, InstrFlags, error) {
	var flags InstrFlags
	out := toks[:0:0]
	for idx := 0; idx < len(toks); idx++ {
		if toks[idx].text != "[" {
			out = append(out, toks[idx])
			continue
		}
		if idx+2 >= len(toks) || toks[idx+2].text != "]" {
			return nil, 0, fmt.Errorf("malformed flag")
		}
		switch toks[idx+1].text {
		case "dead_end":
			flags |= FlagDeadEnd
		case "noreturn":
			flags |= FlagNoReturn
		default:
			return nil, 0, fmt.Errorf("unknown flag %q", toks[idx+1].text)
		}
		idx += 2
	}
	return out, flags, nil
}

func splitCommas(toks []token) [][]token {
	if len(toks) == 0 {
		return nil
	}
	var out [][]token
	start := 0
	for idx, t := range toks {
		if t.text == "," {
			out = append(out, toks[start:idx])
			start = idx + 1
		}
	}
	return append(out, toks[start:])
}

func indexOf(toks []token, text string) int {
	for idx, t := range toks {
		if t.text == text {
			return idx
		}
	}
	return -1
}

type tokKind uint8

const (
	tokIdent  tokKind = iota // bb1, cond_br, from
	tokValue                 // %v
	tokGlobal                // @f, @owned
	tokType                  // $T
	tokPunct                 // ( ) , : = [ ] { }
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(norm.NFC.String(s))
	for idx := 0; idx < len(rs); {
		r := rs[idx]
		switch {
		case unicode.IsSpace(r):
			idx++
		case strings.ContainsRune("(),:=[]{}", r):
			toks = append(toks, token{kind: tokPunct, text: string(r)})
			idx++
		case r == '%' || r == '@' || r == '$' || isIdentRune(r):
			start := idx
			idx++
			if r == '$' && idx < len(rs) && rs[idx] == '<' {
				// $<box>Name
				for idx < len(rs) && rs[idx] != '>' {
					idx++
				}
				idx++
			}
			for idx < len(rs) && isIdentRune(rs[idx]) {
				idx++
			}
			text := string(rs[start:idx])
			kind := tokIdent
			switch r {
			case '%':
				kind = tokValue
			case '@':
				kind = tokGlobal
			case '$':
				kind = tokType
			}
			if kind != tokIdent && len(text) == 1 {
				return nil, fmt.Errorf("empty name after %q", r)
			}
			toks = append(toks, token{kind: kind, text: text})
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return toks, nil
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
