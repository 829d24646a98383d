package lifetime

import (
	"errors"
	"fmt"

	"ossa/internal/sil"
)

// FaultKind identifies a violated invariant of the completion engine.
type FaultKind int

// Stable fault codes - do not change values.
const (
	// FaultExitWithoutUnreachable: a block in the availability region leaves
	// the function without an unreachable terminator.
	FaultExitWithoutUnreachable FaultKind = 1001
	// FaultUnenclosedPhi: a reborrow phi has no discoverable enclosing value.
	FaultUnenclosedPhi FaultKind = 1002
	// FaultNoneOwnership: a lifetime end was requested for a value without
	// ownership.
	FaultNoneOwnership FaultKind = 1003
	// FaultCriticalEdge: a boundary edge enters a block with several
	// predecessors.
	FaultCriticalEdge FaultKind = 1004
)

// String returns the code as "OSSA1001".
func (k FaultKind) String() string {
	return fmt.Sprintf("OSSA%d", int(k))
}

// InvariantError is raised with panic when the engine meets IR it cannot
// repair. Callers that run untrusted input recover it (see Catch).
type InvariantError struct {
	Kind    FaultKind
	Message string
	Func    string
	Value   string
	Block   string
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("invariant %s: %s", e.Kind, e.Message)
	switch {
	case e.Value != "" && e.Block != "":
		msg += fmt.Sprintf(" (value %s, block %s in @%s)", e.Value, e.Block, e.Func)
	case e.Value != "":
		msg += fmt.Sprintf(" (value %s in @%s)", e.Value, e.Func)
	case e.Block != "":
		msg += fmt.Sprintf(" (block %s in @%s)", e.Block, e.Func)
	}
	return msg
}

// ErrLifetimesCompleted is returned when an UnreachableCompletion is used
// after CompleteLifetimes ran.
var ErrLifetimesCompleted = errors.New("lifetimes already completed")

func raise(kind FaultKind, v *sil.Value, b *sil.Block, format string, args ...any) {
	e := &InvariantError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if v != nil {
		e.Value = v.Name
		if blk := v.ParentBlock(); blk != nil {
			e.Func = blk.Func.Name
		}
	}
	if b != nil {
		e.Block = b.Name
		e.Func = b.Func.Name
	}
	panic(e)
}

// Catch runs fn and converts an *InvariantError panic into an error. Other
// panics propagate.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*InvariantError); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}
