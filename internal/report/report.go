// Package report turns driver results into documents that can be printed as
// text, yaml or msgpack.
package report

import (
	"fmt"
	"strings"

	"ossa/internal/driver"
	"ossa/internal/lifetime"
	"ossa/internal/observ"
	"ossa/internal/sil"
)

// Format selects the encoding of a report.
type Format uint8

const (
	FormatText Format = iota
	FormatYAML
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatYAML:
		return "yaml"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// ParseFormat accepts text, yaml and msgpack.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack":
		return FormatMsgpack, nil
	default:
		return 0, fmt.Errorf("unknown report format %q (expected text|yaml|msgpack)", s)
	}
}

// InsertionJSON is one inserted lifetime end.
type InsertionJSON struct {
	Value string `json:"value" yaml:"value" msgpack:"value"`
	Block string `json:"block" yaml:"block" msgpack:"block"`
	Instr string `json:"instr" yaml:"instr" msgpack:"instr"`
	End   string `json:"end" yaml:"end" msgpack:"end"`
}

// OutcomeJSON is the outcome of completing one value.
type OutcomeJSON struct {
	Value   string `json:"value" yaml:"value" msgpack:"value"`
	Outcome string `json:"outcome" yaml:"outcome" msgpack:"outcome"`
}

// FuncReport describes one function.
type FuncReport struct {
	Name              string          `json:"name" yaml:"name" msgpack:"name"`
	Changed           bool            `json:"changed" yaml:"changed" msgpack:"changed"`
	Insertions        []InsertionJSON `json:"insertions,omitempty" yaml:"insertions,omitempty" msgpack:"insertions,omitempty"`
	Outcomes          []OutcomeJSON   `json:"outcomes,omitempty" yaml:"outcomes,omitempty" msgpack:"outcomes,omitempty"`
	SplitEdges        int             `json:"split_edges,omitempty" yaml:"split_edges,omitempty" msgpack:"split_edges,omitempty"`
	Truncated         int             `json:"truncated,omitempty" yaml:"truncated,omitempty" msgpack:"truncated,omitempty"`
	UnreachableBlocks []string        `json:"unreachable_blocks,omitempty" yaml:"unreachable_blocks,omitempty" msgpack:"unreachable_blocks,omitempty"`
	IncompleteValues  []string        `json:"incomplete_values,omitempty" yaml:"incomplete_values,omitempty" msgpack:"incomplete_values,omitempty"`
	Error             string          `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
	ElapsedMS         float64         `json:"elapsed_ms" yaml:"elapsed_ms" msgpack:"elapsed_ms"`
}

// Report is the document produced for one input file.
type Report struct {
	File    string         `json:"file,omitempty" yaml:"file,omitempty" msgpack:"file,omitempty"`
	Mode    string         `json:"mode" yaml:"mode" msgpack:"mode"`
	Changed bool           `json:"changed" yaml:"changed" msgpack:"changed"`
	Funcs   []FuncReport   `json:"funcs" yaml:"funcs" msgpack:"funcs"`
	Timings *observ.Report `json:"timings,omitempty" yaml:"timings,omitempty" msgpack:"timings,omitempty"`
}

// Build converts a driver result. timer may be nil.
func Build(file string, res *driver.Result, timer *observ.Timer) Report {
	r := Report{File: file}
	if res == nil {
		return r
	}
	r.Mode = res.Mode.String()
	r.Changed = res.Changed()
	r.Funcs = make([]FuncReport, 0, len(res.Funcs))
	for _, fr := range res.Funcs {
		r.Funcs = append(r.Funcs, buildFunc(fr))
	}
	if timer != nil {
		tr := timer.Report()
		r.Timings = &tr
	}
	return r
}

func buildFunc(fr driver.FuncResult) FuncReport {
	out := FuncReport{
		Name:              fr.Name,
		Changed:           fr.Changed,
		SplitEdges:        fr.SplitEdges,
		Truncated:         fr.Truncated,
		UnreachableBlocks: fr.UnreachableBlocks,
		IncompleteValues:  fr.IncompleteValues,
		ElapsedMS:         float64(fr.Elapsed.Microseconds()) / 1000,
	}
	for _, ins := range fr.Insertions {
		out.Insertions = append(out.Insertions, insertionJSON(ins))
	}
	for _, o := range fr.Outcomes {
		out.Outcomes = append(out.Outcomes, OutcomeJSON{Value: o.Value, Outcome: o.Outcome.String()})
	}
	if fr.Err != nil {
		out.Error = fr.Err.Error()
	}
	return out
}

func insertionJSON(ins lifetime.Insertion) InsertionJSON {
	out := InsertionJSON{End: ins.End.String()}
	if ins.Value != nil {
		out.Value = ins.Value.Name
	}
	if ins.Instr != nil {
		out.Instr = sil.FormatInstr(ins.Instr)
		if ins.Instr.Block != nil {
			out.Block = ins.Instr.Block.Name
		}
	}
	return out
}
