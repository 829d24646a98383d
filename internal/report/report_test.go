package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"ossa/internal/driver"
	"ossa/internal/lifetime"
	"ossa/internal/sil"
)

const src = `func @f {
bb0(%x : @owned $T):
  use %x
  destroy_value %x
  return
}
`

func sampleResult(t *testing.T) (*driver.Result, *sil.Func) {
	t.Helper()
	f, err := sil.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	x := f.ValueByName("%x")
	destroy := f.Blocks[0].Instrs[1]
	return &driver.Result{
		Mode: driver.ModeComplete,
		Funcs: []driver.FuncResult{
			{
				Name:       "f",
				Changed:    true,
				Insertions: []lifetime.Insertion{{Value: x, Instr: destroy, End: lifetime.EndBoundary}},
				Outcomes:   []driver.ValueOutcome{{Value: "%x", Outcome: lifetime.WasCompleted}},
				Elapsed:    1500 * time.Microsecond,
			},
			{
				Name: "g",
				Err:  errors.New("function @g: boom"),
			},
		},
	}, f
}

func TestBuild(t *testing.T) {
	res, _ := sampleResult(t)
	got := Build("in.sil", res, nil)
	want := Report{
		File:    "in.sil",
		Mode:    "complete",
		Changed: true,
		Funcs: []FuncReport{
			{
				Name:       "f",
				Changed:    true,
				Insertions: []InsertionJSON{{Value: "%x", Block: "bb0", Instr: "destroy_value %x", End: "boundary"}},
				Outcomes:   []OutcomeJSON{{Value: "%x", Outcome: "was-completed"}},
				ElapsedMS:  1.5,
			},
			{Name: "g", Error: "function @g: boom"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
}

func TestWriteText(t *testing.T) {
	res, _ := sampleResult(t)
	var buf bytes.Buffer
	if err := Write(&buf, Build("in.sil", res, nil), FormatText, TextOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `complete in.sil (changed)
@f changed 1.50 ms
  %x    was-completed
  + bb0 destroy_value %x
@g error 0.00 ms
  function @g: boom
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text (-want +got):\n%s", diff)
	}
}

func TestWriteTextTruncatesInstructions(t *testing.T) {
	r := Report{Mode: "complete", Funcs: []FuncReport{{
		Name:       "f",
		Insertions: []InsertionJSON{{Value: "%x", Block: "bb0", Instr: "destroy_value %x [dead_end]", End: "loop"}},
	}}}
	var buf bytes.Buffer
	if err := WriteText(&buf, r, TextOptions{Width: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "+ bb0 destroy... (loop)\n") {
		t.Errorf("missing truncated insertion:\n%s", buf.String())
	}
}

func TestWriteYAML(t *testing.T) {
	res, _ := sampleResult(t)
	var buf bytes.Buffer
	if err := Write(&buf, Build("", res, nil), FormatYAML, TextOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var back Report
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if len(back.Funcs) != 2 || back.Funcs[1].Error != "function @g: boom" {
		t.Errorf("unexpected yaml report: %+v", back)
	}
	if !strings.Contains(buf.String(), "outcome: was-completed") {
		t.Errorf("yaml misses outcome:\n%s", buf.String())
	}
}

func TestWriteMsgpack(t *testing.T) {
	res, _ := sampleResult(t)
	want := Build("in.sil", res, nil)
	var buf bytes.Buffer
	if err := Write(&buf, want, FormatMsgpack, TextOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadMsgpack(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("msgpack (-want +got):\n%s", diff)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "YAML": FormatYAML, "yml": FormatYAML, "msgpack": FormatMsgpack} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Error("json accepted")
	}
}

func TestDecorate(t *testing.T) {
	res, f := sampleResult(t)
	if Decorate(res.Funcs[0].Insertions, false) != nil {
		t.Error("decorator returned with color off")
	}
	dec := Decorate(res.Funcs[0].Insertions, true)
	use := f.Blocks[0].Instrs[0]
	destroy := f.Blocks[0].Instrs[1]
	if got := dec(use, "use %x"); got != "use %x" {
		t.Errorf("untouched instruction decorated: %q", got)
	}
	if got := dec(destroy, "destroy_value %x"); got == "destroy_value %x" || !strings.Contains(got, "destroy_value %x") {
		t.Errorf("inserted instruction not highlighted: %q", got)
	}
}

func TestWriteBoundaryText(t *testing.T) {
	r := BoundaryReport{
		Func:          "f",
		Value:         "%x",
		LastUsers:     []Position{{Block: "bb2", Instr: "use %x"}},
		BoundaryEdges: []string{"bb3"},
		Availability:  []Position{{Block: "bb1", Instr: "unreachable", End: "boundary"}},
	}
	var buf bytes.Buffer
	if err := WriteBoundary(&buf, r, FormatText); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `@f %x
last users:
  bb2: use %x
boundary edges: bb3
outside linear liveness:
  (none)
availability boundary:
  bb1: unreachable (boundary)
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text (-want +got):\n%s", diff)
	}
}
