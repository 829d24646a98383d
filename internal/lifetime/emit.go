package lifetime

import (
	"ossa/internal/analysis"
	"ossa/internal/sil"
)

// End is the kind of lifetime end placed at a position.
type End uint8

const (
	// EndBoundary ends the lifetime: destroy_value, dealloc_box or
	// end_borrow.
	EndBoundary End = iota
	// EndLoop keeps the value notionally alive with extend_lifetime.
	EndLoop
)

func (e End) String() string {
	switch e {
	case EndBoundary:
		return "boundary"
	case EndLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// emitLifetimeEnd inserts exactly one instruction ending v at the builder's
// position.
func emitLifetimeEnd(b *sil.Builder, v *sil.Value, end End, deb *analysis.DeadEndBlocks) *sil.Instr {
	if end == EndLoop {
		return b.CreateExtendLifetime(v)
	}
	switch v.Ownership {
	case sil.OwnershipOwned:
		deadEnd := deb != nil && deb.IsDeadEnd(b.InsertionBlock())
		if v.Type.Box {
			return b.CreateDeallocBox(v, deadEnd)
		}
		return b.CreateDestroyValue(v, deadEnd)
	case sil.OwnershipGuaranteed:
		return b.CreateEndBorrow(sil.LookThroughBorrowedFromUser(v))
	case sil.OwnershipNone:
		raise(FaultNoneOwnership, v, b.InsertionBlock(), "cannot end the lifetime of a value without ownership")
		return nil
	default:
		panic("lifetime: unknown ownership " + v.Ownership.String())
	}
}
