package sil

import (
	"fmt"
	"strings"
)

// ValueID indexes Func.Values.
type ValueID int32

// BlockID indexes Func.Blocks.
type BlockID int32

// InstrID is a function-unique instruction number.
type InstrID int32

const (
	NoValueID ValueID = -1
	NoBlockID BlockID = -1
)

// Ownership is the ownership kind carried by every SSA value.
type Ownership uint8

const (
	// OwnershipNone values are trivial and need no lifetime end.
	OwnershipNone Ownership = iota
	// OwnershipOwned values end with destroy_value, dealloc_box or a consume.
	OwnershipOwned
	// OwnershipGuaranteed values end with end_borrow or a reborrow.
	OwnershipGuaranteed
)

func (o Ownership) String() string {
	switch o {
	case OwnershipNone:
		return "none"
	case OwnershipOwned:
		return "owned"
	case OwnershipGuaranteed:
		return "guaranteed"
	default:
		return fmt.Sprintf("ownership(%d)", uint8(o))
	}
}

// ParseOwnership converts the textual annotation (without '@') to Ownership.
func ParseOwnership(s string) (Ownership, error) {
	switch s {
	case "none", "":
		return OwnershipNone, nil
	case "owned":
		return OwnershipOwned, nil
	case "guaranteed":
		return OwnershipGuaranteed, nil
	default:
		return OwnershipNone, fmt.Errorf("unknown ownership %q (expected owned|guaranteed|none)", s)
	}
}

// Type describes the storage of a value. Only the properties that influence
// lifetime ends are modelled.
type Type struct {
	Name string
	// Box marks heap-boxed storage released with dealloc_box.
	Box bool
	// Trivial types never carry ownership.
	Trivial bool
}

var (
	// IntType is the builtin trivial integer type.
	IntType = Type{Name: "Int", Trivial: true}
	// BoolType is the builtin trivial boolean type.
	BoolType = Type{Name: "Bool", Trivial: true}
)

// String renders the type the way the text format spells it.
func (t Type) String() string {
	if t.Box {
		return "$<box>" + t.Name
	}
	return "$" + t.Name
}

// ParseType parses "$Name" or "$<box>Name".
func ParseType(s string) (Type, error) {
	if len(s) < 2 || s[0] != '$' {
		return Type{}, fmt.Errorf("malformed type %q", s)
	}
	s = s[1:]
	if rest, ok := strings.CutPrefix(s, "<box>"); ok {
		if rest == "" {
			return Type{}, fmt.Errorf("box type without element name")
		}
		return Type{Name: rest, Box: true}, nil
	}
	switch s {
	case IntType.Name:
		return IntType, nil
	case BoolType.Name:
		return BoolType, nil
	}
	return Type{Name: s}, nil
}
