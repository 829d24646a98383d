package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Position is an instruction position inside a block.
type Position struct {
	Block string `json:"block" yaml:"block" msgpack:"block"`
	Instr string `json:"instr" yaml:"instr" msgpack:"instr"`
	End   string `json:"end,omitempty" yaml:"end,omitempty" msgpack:"end,omitempty"`
}

// BoundaryReport lists where a value's lifetime would be ended.
type BoundaryReport struct {
	Func          string     `json:"func" yaml:"func" msgpack:"func"`
	Value         string     `json:"value" yaml:"value" msgpack:"value"`
	LastUsers     []Position `json:"last_users,omitempty" yaml:"last_users,omitempty" msgpack:"last_users,omitempty"`
	BoundaryEdges []string   `json:"boundary_edges,omitempty" yaml:"boundary_edges,omitempty" msgpack:"boundary_edges,omitempty"`
	DeadDef       bool       `json:"dead_def,omitempty" yaml:"dead_def,omitempty" msgpack:"dead_def,omitempty"`
	// OutsideLinear are users the value's own ending uses do not cover.
	OutsideLinear []Position `json:"outside_linear,omitempty" yaml:"outside_linear,omitempty" msgpack:"outside_linear,omitempty"`
	Availability  []Position `json:"availability,omitempty" yaml:"availability,omitempty" msgpack:"availability,omitempty"`
	Error         string     `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
}

// WriteBoundary encodes r to w.
func WriteBoundary(w io.Writer, r BoundaryReport, format Format) error {
	switch format {
	case FormatText:
		_, err := io.WriteString(w, boundaryText(r))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml boundary: %w", err)
		}
		return enc.Close()
	case FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(r); err != nil {
			return fmt.Errorf("encode msgpack boundary: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format %s", format)
	}
}

func boundaryText(r BoundaryReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@%s %s\n", r.Func, r.Value)
	section := func(title string, ps []Position) {
		fmt.Fprintf(&sb, "%s:\n", title)
		if len(ps) == 0 {
			sb.WriteString("  (none)\n")
		}
		for _, p := range ps {
			fmt.Fprintf(&sb, "  %s: %s", p.Block, p.Instr)
			if p.End != "" {
				fmt.Fprintf(&sb, " (%s)", p.End)
			}
			sb.WriteByte('\n')
		}
	}
	section("last users", r.LastUsers)
	if len(r.BoundaryEdges) > 0 {
		fmt.Fprintf(&sb, "boundary edges: %s\n", strings.Join(r.BoundaryEdges, ", "))
	}
	if r.DeadDef {
		sb.WriteString("dead def\n")
	}
	section("outside linear liveness", r.OutsideLinear)
	section("availability boundary", r.Availability)
	if r.Error != "" {
		fmt.Fprintf(&sb, "error: %s\n", r.Error)
	}
	return sb.String()
}
