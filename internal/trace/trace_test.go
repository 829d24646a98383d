package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		want  map[Scope]bool
	}{
		{LevelOff, map[Scope]bool{ScopeDriver: false, ScopeValue: false}},
		{LevelError, map[Scope]bool{ScopeDriver: false, ScopeFunc: false}},
		{LevelPhase, map[Scope]bool{ScopeDriver: true, ScopePass: true, ScopeFunc: false}},
		{LevelDetail, map[Scope]bool{ScopePass: true, ScopeFunc: true, ScopeValue: false}},
		{LevelDebug, map[Scope]bool{ScopeFunc: true, ScopeValue: true}},
	}
	for _, tt := range tests {
		for scope, want := range tt.want {
			if got := tt.level.ShouldEmit(scope); got != want {
				t.Errorf("%s.ShouldEmit(%s) = %t, want %t", tt.level, scope, got, want)
			}
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"", "off", "error", "phase", "detail", "debug", "DEBUG"} {
		lvl, err := ParseLevel(s)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
			continue
		}
		if s != "" && !strings.EqualFold(lvl.String(), s) {
			t.Errorf("ParseLevel(%q) = %s", s, lvl)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) succeeded")
	}
}

func TestNew(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Errorf("off: %v, %v", tr, err)
	}
	tr, err = New(Config{Level: LevelError})
	if err != nil {
		t.Fatal(err)
	}
	if Ring(tr) == nil {
		t.Errorf("error level tracer %T has no ring", tr)
	}

	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelDetail, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*MultiTracer); !ok {
		t.Fatalf("both mode gave %T", tr)
	}
	Begin(tr, ScopeFunc, "func:@f", 0).End("ok")
	if !strings.Contains(buf.String(), "func:@f") {
		t.Errorf("stream output = %q", buf.String())
	}
	if n := len(Ring(tr).Snapshot()); n != 2 {
		t.Errorf("ring holds %d events, want 2", n)
	}

	if _, err := New(Config{Level: LevelDebug, Mode: StorageMode(9)}); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestSpansText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)

	pass := Begin(tr, ScopePass, "pass:complete", 0)
	fn := Begin(tr, ScopeFunc, "func:@f", pass.ID())
	Point(tr, ScopeValue, "insert", "destroy_value %x in bb1", fn.ID())
	fn.WithExtra("inserted", "1").End("changed=true")
	pass.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for idx, want := range []string{
		"→ pass:complete",
		"  → func:@f",
		"    • insert (destroy_value %x in bb1)",
		"  ← func:@f (changed=true) {inserted=1}",
		"← pass:complete",
	} {
		if !strings.Contains(lines[idx], want) {
			t.Errorf("line %d = %q, want it to contain %q", idx, lines[idx], want)
		}
	}
}

func TestSpansNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	parent := Begin(tr, ScopePass, "pass:unreachable", 0)
	// Value scope is above the level: the span is inert and children attach
	// to its parent.
	inert := Begin(tr, ScopeValue, "value:%x", parent.ID())
	if inert.ID() != parent.ID() {
		t.Errorf("inert span id = %d, want parent %d", inert.ID(), parent.ID())
	}
	inert.End("ignored")
	parent.End("done")

	type record struct {
		Kind     string `json:"kind"`
		Scope    string `json:"scope"`
		Name     string `json:"name"`
		Detail   string `json:"detail"`
		SpanID   uint64 `json:"span_id"`
		ParentID uint64 `json:"parent_id"`
	}
	var got []record
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		r.SpanID, r.ParentID = 0, 0
		got = append(got, r)
	}
	want := []record{
		{Kind: "begin", Scope: "pass", Name: "pass:unreachable"},
		{Kind: "end", Scope: "pass", Name: "pass:unreachable", Detail: "done"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestRingWrapsAround(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeValue, name, "", 0)
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	if diff := cmp.Diff([]string{"c", "d", "e"}, names); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Errorf("dump:\n%s", buf.String())
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Error("empty context has a tracer")
	}
	ring := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Error("tracer not attached")
	}
	span := Begin(ring, ScopeDriver, "driver", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() || span.ID() == 0 {
		t.Errorf("current span = %d, want %d", CurrentSpan(ctx), span.ID())
	}
}
