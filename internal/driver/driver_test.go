package driver

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ossa/internal/lifetime"
	"ossa/internal/observ"
	"ossa/internal/sil"
	"ossa/internal/trace"
)

const twoFuncs = `func @a {
bb0:
  %x = new $T
  %c = const $Bool
  cond_br %c, bb1, bb2
bb1:
  unreachable
bb2:
  use %x
  br bb3
bb3:
  return
}

func @b {
bb0(%y : @owned $T):
  %b = begin_borrow %y
  use %b
  consume %y
  return
}
`

func parseModule(t *testing.T, src string) *sil.Module {
	t.Helper()
	m, err := sil.ParseModule(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last(fn string) Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out Event
	for _, ev := range s.events {
		if ev.Func == fn {
			out = ev
		}
	}
	return out
}

func TestRunComplete(t *testing.T) {
	m := parseModule(t, twoFuncs)
	sink := &recordingSink{}
	timer := observ.NewTimer()
	res, err := Run(context.Background(), m, Options{
		Mode:               ModeComplete,
		Boundary:           lifetime.BoundaryAvailability,
		SplitCriticalEdges: true,
		Verify:             true,
		Jobs:               2,
		Progress:           sink,
		Timer:              timer,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := res.Err(); err != nil {
		t.Fatalf("function errors: %v", err)
	}
	if !res.Changed() {
		t.Error("nothing changed")
	}

	got := map[string][]ValueOutcome{}
	for _, fr := range res.Funcs {
		got[fr.Name] = fr.Outcomes
	}
	want := map[string][]ValueOutcome{
		"a": {{"%x", lifetime.WasCompleted}},
		"b": {{"%y", lifetime.WasCompleted}, {"%b", lifetime.AlreadyComplete}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if n := len(res.Funcs[0].Insertions); n != 2 {
		t.Errorf("@a insertions = %d, want 2", n)
	}

	wantB := `func @b {
bb0(%y : @owned $T):
  %b = begin_borrow %y
  use %b
  end_borrow %b
  consume %y
  return
}
`
	if diff := cmp.Diff(wantB, m.Func("b").String()); diff != "" {
		t.Errorf("@b (-want +got):\n%s", diff)
	}
	for _, fn := range []string{"a", "b"} {
		if ev := sink.last(fn); ev.Status != StatusDone || ev.Stage != StageVerify {
			t.Errorf("last event of @%s = %+v", fn, ev)
		}
	}
	if r := timer.Report(); len(r.Phases) != 1 || r.Phases[0].Name != "complete" {
		t.Errorf("timer phases = %+v", r.Phases)
	}
}

func TestRunSingleValue(t *testing.T) {
	m := parseModule(t, twoFuncs)
	res, err := Run(context.Background(), m, Options{Mode: ModeComplete, Value: "%b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Funcs[0].Outcomes) != 0 || res.Funcs[0].Changed {
		t.Errorf("@a touched: %+v", res.Funcs[0])
	}
	if diff := cmp.Diff([]ValueOutcome{{"%b", lifetime.WasCompleted}}, res.Funcs[1].Outcomes); diff != "" {
		t.Errorf("@b outcomes (-want +got):\n%s", diff)
	}

	_, err = Run(context.Background(), parseModule(t, twoFuncs), Options{Mode: ModeComplete, Value: "%nope"})
	if !errors.Is(err, ErrValueNotFound) {
		t.Errorf("err = %v, want ErrValueNotFound", err)
	}
}

func TestRunRejectsInvalidModule(t *testing.T) {
	m := parseModule(t, `func @bad {
bb0(%g : @guaranteed $T):
  destroy_value %g
  return
}
`)
	if _, err := Run(context.Background(), m, Options{}); err == nil || !strings.Contains(err.Error(), "invalid module") {
		t.Errorf("err = %v", err)
	}
}

func TestRunFaultStaysInItsFunction(t *testing.T) {
	m := parseModule(t, `func @g {
bb0(%c : $Bool):
  cond_br %c, bb1, bb2
bb1:
  %x = new $T
  %b = begin_borrow %x
  br bb3(%b)
bb2:
  %y = new $T
  %b2 = begin_borrow %y
  br bb3(%b2)
bb3(%r : @guaranteed $T):
  end_borrow %r
  unreachable
}

func @ok {
bb0:
  %x = new $T
  return
}
`)
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)
	var faults bytes.Buffer
	res, err := Run(ctx, m, Options{Mode: ModeComplete, Boundary: lifetime.BoundaryLiveness, FaultLog: &faults})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var ie *lifetime.InvariantError
	if !errors.As(res.Funcs[0].Err, &ie) || ie.Kind != lifetime.FaultUnenclosedPhi {
		t.Fatalf("@g err = %v", res.Funcs[0].Err)
	}
	if res.Funcs[1].Err != nil || !res.Funcs[1].Changed {
		t.Errorf("@ok = %+v", res.Funcs[1])
	}
	dump := faults.String()
	for _, want := range []string{"OSSA1002", "trace before the fault:", "func:@g"} {
		if !strings.Contains(dump, want) {
			t.Errorf("fault log misses %q:\n%s", want, dump)
		}
	}
}

func TestRunUnreachable(t *testing.T) {
	m := parseModule(t, `func @main {
bb0:
  %x = new $T
  %c = const $Bool
  cond_br %c, bb1, bb3
bb1:
  apply [noreturn] @fatal()
  br bb2
bb2:
  destroy_value %x
  return
bb3:
  destroy_value %x
  return
}

func @done {
bb0:
  apply [noreturn] @fatal()
  unreachable
}
`)
	res, err := Run(context.Background(), m, Options{
		Mode:               ModeUnreachable,
		SplitCriticalEdges: true,
		Verify:             true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Err(); err != nil {
		t.Fatal(err)
	}
	main := res.Funcs[0]
	if main.Truncated != 1 || !main.RemovedBlocks {
		t.Errorf("@main = %+v", main)
	}
	if diff := cmp.Diff([]string{"bb2"}, main.UnreachableBlocks); diff != "" {
		t.Errorf("unreachable blocks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"%x"}, main.IncompleteValues); diff != "" {
		t.Errorf("incomplete values (-want +got):\n%s", diff)
	}
	want := `func @main {
bb0:
  %x = new $T
  %c = const $Bool
  cond_br %c, bb1, bb3
bb1:
  apply [noreturn] @fatal()
  destroy_value %x [dead_end]
  unreachable
bb3:
  destroy_value %x
  return
}
`
	if diff := cmp.Diff(want, m.Func("main").String()); diff != "" {
		t.Errorf("@main (-want +got):\n%s", diff)
	}
	if done := res.Funcs[1]; done.Changed || done.Truncated != 0 {
		t.Errorf("@done = %+v", done)
	}
}

func TestRunUnreachableValueDefinedAfterCut(t *testing.T) {
	m := parseModule(t, `func @main {
bb0:
  %x = new $T
  apply [noreturn] @fatal()
  %y = new $T
  br bb1
bb1:
  consume %y
  consume %x
  return
}
`)
	res, err := Run(context.Background(), m, Options{Mode: ModeUnreachable, Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Err(); err != nil {
		t.Fatal(err)
	}
	main := res.Funcs[0]
	if diff := cmp.Diff([]string{"bb1"}, main.UnreachableBlocks); diff != "" {
		t.Errorf("unreachable blocks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"%x"}, main.IncompleteValues); diff != "" {
		t.Errorf("incomplete values (-want +got):\n%s", diff)
	}
	want := `func @main {
bb0:
  %x = new $T
  apply [noreturn] @fatal()
  destroy_value %x [dead_end]
  unreachable
}
`
	if diff := cmp.Diff(want, m.Func("main").String()); diff != "" {
		t.Errorf("@main (-want +got):\n%s", diff)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, parseModule(t, twoFuncs), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
