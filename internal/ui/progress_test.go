package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ossa/internal/driver"
)

func TestApplyEvent(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("complete", []string{"a", "b"}, events).(*progressModel)

	m.applyEvent(driver.Event{Func: "a", Stage: driver.StageComplete, Status: driver.StatusWorking})
	m.applyEvent(driver.Event{Func: "b", Stage: driver.StageVerify, Status: driver.StatusError,
		Err: errors.New("verify: %x not ended"), Elapsed: 2 * time.Millisecond})
	m.applyEvent(driver.Event{Func: "zzz", Stage: driver.StageVerify, Status: driver.StatusDone})

	if got := m.items[0].status; got != "completing" {
		t.Errorf("@a status = %q", got)
	}
	if got := m.items[1].status; got != "error" {
		t.Errorf("@b status = %q", got)
	}
	view := m.View()
	for _, want := range []string{"complete", "@a", "@b", "completing", "error", "2.00ms", "%x not ended", "1/2 functions"} {
		if !strings.Contains(view, want) {
			t.Errorf("view misses %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"@short", 10, "@short"},
		{"@a_rather_long_function", 10, "@a_rath..."},
		{"@abcdef", 3, "@ab"},
		{"@anything", 0, "@anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
