package cpp

import "strconv"

type ValueKind int

const (
	Signed ValueKind = iota
	Unsigned
	// Invalid is the result of an expression that could not be evaluated,
	// like a division by zero.
	Invalid
)

// Value is the result of an #if expression. Arithmetic follows the usual
// conversions: an operation with an unsigned operand is done unsigned.
type Value struct {
	Kind ValueKind
	bits uint64
}

func SignedValue(v int64) Value {
	return Value{Kind: Signed, bits: uint64(v)}
}

func UnsignedValue(v uint64) Value {
	return Value{Kind: Unsigned, bits: v}
}

var invalidValue = Value{Kind: Invalid}

func boolValue(b bool) Value {
	if b {
		return SignedValue(1)
	}
	return SignedValue(0)
}

func (v Value) Int() int64 {
	return int64(v.bits)
}

func (v Value) Uint() uint64 {
	return v.bits
}

func (v Value) IsValid() bool {
	return v.Kind != Invalid
}

func (v Value) IsUnsigned() bool {
	return v.Kind == Unsigned
}

// IsTrue reports whether the value selects a conditional branch.
func (v Value) IsTrue() bool {
	return v.Kind != Invalid && v.bits != 0
}

func (v Value) String() string {
	switch v.Kind {
	case Signed:
		return strconv.FormatInt(v.Int(), 10)
	case Unsigned:
		return strconv.FormatUint(v.bits, 10) + "u"
	}
	return "invalid"
}
