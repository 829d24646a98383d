package sil

// OperandOwnership classifies how an operand affects the lifetime of the
// value it uses.
type OperandOwnership uint8

const (
	// NonUse does not participate in liveness.
	NonUse OperandOwnership = iota
	// TrivialUse is a use of a value without ownership.
	TrivialUse
	// InstantaneousUse reads the value without ending it.
	InstantaneousUse
	// Borrow opens an inner borrow scope.
	Borrow
	// ForwardingConsume transfers ownership (consume, return, owned phi).
	ForwardingConsume
	// DestroyingConsume destroys the value.
	DestroyingConsume
	// EndBorrow closes a borrow scope.
	EndBorrow
	// Reborrow ends a borrow scope by forwarding it into a phi.
	Reborrow
	// GuaranteedForwarding re-exposes a guaranteed value under a new name.
	GuaranteedForwarding
	// Enclosing lists the value as the enclosing definition of a phi.
	Enclosing
)

var operandOwnershipNames = [...]string{
	NonUse:               "non-use",
	TrivialUse:           "trivial-use",
	InstantaneousUse:     "instantaneous-use",
	Borrow:               "borrow",
	ForwardingConsume:    "forwarding-consume",
	DestroyingConsume:    "destroying-consume",
	EndBorrow:            "end-borrow",
	Reborrow:             "reborrow",
	GuaranteedForwarding: "guaranteed-forwarding",
	Enclosing:            "enclosing",
}

func (o OperandOwnership) String() string {
	if int(o) < len(operandOwnershipNames) {
		return operandOwnershipNames[o]
	}
	return "unknown"
}

// IsLifetimeEnding reports whether the ownership kind terminates the used
// value's lifetime.
func (o OperandOwnership) IsLifetimeEnding() bool {
	switch o {
	case ForwardingConsume, DestroyingConsume, EndBorrow, Reborrow:
		return true
	}
	return false
}

// Ownership classifies the operand.
func (o *Operand) Ownership() OperandOwnership {
	v := o.Value
	if v.Ownership == OwnershipNone {
		if o.User.Op == OpBorrowed && o.Index > 0 {
			return Enclosing
		}
		return TrivialUse
	}
	switch o.User.Op {
	case OpCopyValue, OpUse, OpApply, OpExtendLifetime:
		return InstantaneousUse
	case OpBeginBorrow:
		return Borrow
	case OpConsume, OpReturn:
		if v.Ownership == OwnershipOwned {
			return ForwardingConsume
		}
		return InstantaneousUse
	case OpBr:
		if v.Ownership == OwnershipOwned {
			return ForwardingConsume
		}
		return Reborrow
	case OpDestroyValue, OpDeallocBox:
		return DestroyingConsume
	case OpEndBorrow:
		return EndBorrow
	case OpBorrowed:
		if o.Index == 0 {
			return GuaranteedForwarding
		}
		return Enclosing
	case OpCondBr:
		return TrivialUse
	}
	return NonUse
}

// IsLifetimeEnding reports whether this use ends the value's lifetime.
func (o *Operand) IsLifetimeEnding() bool {
	return o.Ownership().IsLifetimeEnding()
}
