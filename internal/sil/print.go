package sil

import (
	"fmt"
	"io"
	"strings"
)

// PrintOptions configures textual output.
type PrintOptions struct {
	// Locations appends the source line of every instruction as a comment.
	Locations bool
	// Decorate, when set, may rewrite the rendered text of an instruction
	// (for example to colorize inserted lifetime ends).
	Decorate func(i *Instr, text string) string
}

// Fprint writes f in the text format.
func Fprint(w io.Writer, f *Func, opts PrintOptions) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func @%s {\n", f.Name)
	for _, b := range f.Blocks {
		sb.WriteString(FormatBlockHeader(b))
		sb.WriteByte('\n')
		for _, i := range b.Instrs {
			text := FormatInstr(i)
			if opts.Locations {
				text += fmt.Sprintf("  // %s", formatLoc(i.Loc))
			}
			if opts.Decorate != nil {
				text = opts.Decorate(i, text)
			}
			sb.WriteString("  ")
			sb.WriteString(text)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// FprintModule writes every function of m separated by blank lines.
func FprintModule(w io.Writer, m *Module, opts PrintOptions) error {
	for idx, f := range m.Funcs {
		if idx > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := Fprint(w, f, opts); err != nil {
			return err
		}
	}
	return nil
}

// String renders f without options.
func (f *Func) String() string {
	var sb strings.Builder
	_ = Fprint(&sb, f, PrintOptions{}) //nolint:errcheck // strings.Builder never fails
	return sb.String()
}

func formatLoc(l Loc) string {
	if l.Auto {
		return fmt.Sprintf("auto:%d", l.Line)
	}
	return fmt.Sprintf("line:%d", l.Line)
}

// FormatBlockHeader renders "label(%a : @owned $T):".
func FormatBlockHeader(b *Block) string {
	if len(b.Args) == 0 {
		return b.Name + ":"
	}
	parts := make([]string, len(b.Args))
	for idx, a := range b.Args {
		if a.Ownership == OwnershipNone {
			parts[idx] = fmt.Sprintf("%s : %s", a.Name, a.Type)
		} else {
			parts[idx] = fmt.Sprintf("%s : @%s %s", a.Name, a.Ownership, a.Type)
		}
	}
	return fmt.Sprintf("%s(%s):", b.Name, strings.Join(parts, ", "))
}

// FormatInstr renders a single instruction.
func FormatInstr(i *Instr) string {
	var sb strings.Builder
	if i.Result != nil {
		sb.WriteString(i.Result.Name)
		sb.WriteString(" = ")
	}
	sb.WriteString(i.Op.String())
	switch i.Op {
	case OpConst, OpNew:
		fmt.Fprintf(&sb, " %s", i.Result.Type)
	case OpAllocBox:
		fmt.Fprintf(&sb, " $%s", i.Result.Type.Name)
	case OpBorrowed:
		fmt.Fprintf(&sb, " %s from (%s)", i.Operand(0).Name, joinValues(i.Operands[1:]))
	case OpApply:
		if i.HasFlag(FlagNoReturn) {
			sb.WriteString(" [noreturn]")
		}
		fmt.Fprintf(&sb, " @%s(%s)", i.Callee, joinValues(i.Operands))
		if i.Result != nil {
			fmt.Fprintf(&sb, " : %s", i.Result.Type)
		}
	case OpBr:
		sb.WriteString(" " + i.Targets[0].Name)
		if len(i.Operands) > 0 {
			fmt.Fprintf(&sb, "(%s)", joinValues(i.Operands))
		}
	case OpCondBr:
		fmt.Fprintf(&sb, " %s, %s, %s", i.Operand(0).Name, i.Targets[0].Name, i.Targets[1].Name)
	default:
		if len(i.Operands) > 0 {
			sb.WriteString(" " + joinValues(i.Operands))
		}
	}
	if i.HasFlag(FlagDeadEnd) {
		sb.WriteString(" [dead_end]")
	}
	return sb.String()
}

func joinValues(ops []*Operand) string {
	names := make([]string, len(ops))
	for idx, op := range ops {
		names[idx] = op.Value.Name
	}
	return strings.Join(names, ", ")
}
