package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ossa/internal/lifetime"
	"ossa/internal/sil"
)

// TextOptions configure WriteText.
type TextOptions struct {
	Color bool
	// Width bounds the rendered instruction column; zero means unbounded.
	Width int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	funcStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type painter struct {
	on bool
}

func (p painter) style(s lipgloss.Style, text string) string {
	if !p.on {
		return text
	}
	return s.Render(text)
}

func (p painter) color(attrs []color.Attribute, text string) string {
	c := color.New(attrs...)
	if p.on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

func outcomeAttrs(outcome string) []color.Attribute {
	switch outcome {
	case lifetime.WasCompleted.String():
		return []color.Attribute{color.FgGreen}
	case lifetime.AlreadyComplete.String():
		return []color.Attribute{color.FgHiBlack}
	default:
		return []color.Attribute{color.FgYellow}
	}
}

// WriteText renders r for a terminal.
func WriteText(w io.Writer, r Report, opts TextOptions) error {
	p := painter{on: opts.Color}
	var sb strings.Builder

	state := "unchanged"
	if r.Changed {
		state = "changed"
	}
	title := r.Mode
	if r.File != "" {
		title += " " + r.File
	}
	fmt.Fprintf(&sb, "%s (%s)\n", p.style(headerStyle, title), state)

	for _, fr := range r.Funcs {
		writeFunc(&sb, p, fr, opts.Width)
	}
	if r.Timings != nil {
		sb.WriteString("timings:\n")
		for _, ph := range r.Timings.Phases {
			fmt.Fprintf(&sb, "  %s %7.2f ms\n", runewidth.FillRight(ph.Name, 12), ph.DurationMS)
		}
		fmt.Fprintf(&sb, "  %s %7.2f ms\n", runewidth.FillRight("total", 12), r.Timings.TotalMS)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeFunc(sb *strings.Builder, p painter, fr FuncReport, width int) {
	line := p.style(funcStyle, "@"+fr.Name)
	switch {
	case fr.Error != "":
		line += " " + p.color([]color.Attribute{color.FgRed, color.Bold}, "error")
	case fr.Changed:
		line += " changed"
	default:
		line += " " + p.style(dimStyle, "unchanged")
	}
	fmt.Fprintf(sb, "%s %s\n", line, p.style(dimStyle, fmt.Sprintf("%.2f ms", fr.ElapsedMS)))
	if fr.Error != "" {
		fmt.Fprintf(sb, "  %s\n", fr.Error)
	}
	if fr.SplitEdges > 0 {
		fmt.Fprintf(sb, "  split %d critical edge(s)\n", fr.SplitEdges)
	}
	if fr.Truncated > 0 {
		fmt.Fprintf(sb, "  cut %d block(s) after noreturn calls\n", fr.Truncated)
	}
	if len(fr.UnreachableBlocks) > 0 {
		fmt.Fprintf(sb, "  unreachable: %s\n", strings.Join(fr.UnreachableBlocks, ", "))
	}
	if len(fr.IncompleteValues) > 0 {
		fmt.Fprintf(sb, "  incomplete: %s\n", strings.Join(fr.IncompleteValues, ", "))
	}

	if len(fr.Outcomes) > 0 {
		col := columnWidth(len("value"), fr.Outcomes, func(o OutcomeJSON) string { return o.Value })
		for _, o := range fr.Outcomes {
			fmt.Fprintf(sb, "  %s %s\n", runewidth.FillRight(o.Value, col), p.color(outcomeAttrs(o.Outcome), o.Outcome))
		}
	}
	if len(fr.Insertions) > 0 {
		blockCol := columnWidth(0, fr.Insertions, func(i InsertionJSON) string { return i.Block })
		for _, ins := range fr.Insertions {
			text := ins.Instr
			if width > 0 && runewidth.StringWidth(text) > width {
				text = runewidth.Truncate(text, width, "...")
			}
			fmt.Fprintf(sb, "  + %s %s", runewidth.FillRight(ins.Block, blockCol), p.color([]color.Attribute{color.FgGreen}, text))
			if ins.End != lifetime.EndBoundary.String() {
				fmt.Fprintf(sb, " %s", p.style(dimStyle, "("+ins.End+")"))
			}
			sb.WriteByte('\n')
		}
	}
}

func columnWidth[T any](least int, rows []T, key func(T) string) int {
	w := least
	for _, r := range rows {
		w = max(w, runewidth.StringWidth(key(r)))
	}
	return w
}

// Decorate returns a sil.PrintOptions decorator that highlights the
// instructions inserted by the engine. It returns nil when color is off.
func Decorate(insertions []lifetime.Insertion, enabled bool) func(*sil.Instr, string) string {
	if !enabled || len(insertions) == 0 {
		return nil
	}
	inserted := make(map[*sil.Instr]bool, len(insertions))
	for _, ins := range insertions {
		inserted[ins.Instr] = true
	}
	c := color.New(color.FgGreen)
	c.EnableColor()
	return func(i *sil.Instr, text string) string {
		if !inserted[i] {
			return text
		}
		return c.Sprint(text)
	}
}
