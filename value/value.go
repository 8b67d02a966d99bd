// Package value implements the runtime value representation shared by the
// compiler's constant pool and the VM's operand stack: a small tagged union,
// heap-allocated interned text, and the Environment that owns both.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindBoolean Kind = iota
	KindNone
	KindNumber
	KindHeapRef
)

// Value is a tagged union over the four kinds of value the VM can hold on
// its stack or in a Program's constant pool. The zero Value is KindBoolean
// false; constructors below should be preferred over struct literals.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	heapRef HeapObject
}

var None = Value{kind: KindNone}

func Boolean(b bool) Value {
	return Value{kind: KindBoolean, boolean: b}
}

func Number(n float64) Value {
	return Value{kind: KindNumber, number: n}
}

func HeapRef(obj HeapObject) Value {
	return Value{kind: KindHeapRef, heapRef: obj}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsBoolean() bool { return v.kind == KindBoolean }
func (v Value) IsNone() bool    { return v.kind == KindNone }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsHeapRef() bool { return v.kind == KindHeapRef }
func (v Value) IsText() bool {
	_, ok := v.heapRef.(*TextObject)
	return v.kind == KindHeapRef && ok
}

// AsBoolean returns the boolean payload without checking the kind; for a
// value of any other kind it returns false. Callers check Kind or IsBoolean
// first.
func (v Value) AsBoolean() bool { return v.boolean }

func (v Value) AsNumber() float64 { return v.number }

func (v Value) AsHeapRef() HeapObject { return v.heapRef }

// AsText returns the underlying TextObject. It panics if the value does not
// hold text; callers check IsText first.
func (v Value) AsText() *TextObject {
	return v.heapRef.(*TextObject)
}

// Truthy implements the language's truthiness rule: none and false are the
// only falsy values.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNone:
		return false
	case KindBoolean:
		return v.boolean
	default:
		return true
	}
}

// Equals implements value equality: by tag, then by payload. Number equality
// is IEEE-754 (NaN != NaN). Text equality is reference equality, which is
// equivalent to content equality because all text is interned.
func (v Value) Equals(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBoolean:
		return v.boolean == other.boolean
	case KindNone:
		return true
	case KindNumber:
		return v.number == other.number
	case KindHeapRef:
		return v.heapRef == other.heapRef
	default:
		return false
	}
}

// String renders v the way OP_OUT prints it: no quotes around text, the
// shortest round-trip decimal for numbers.
func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNone:
		return "none"
	case KindNumber:
		return formatNumber(v.number)
	case KindHeapRef:
		return v.heapRef.String()
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.kind)
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// TypeName names v's kind for type-mismatch runtime error messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindBoolean:
		return "boolean"
	case KindNone:
		return "none"
	case KindNumber:
		return "number"
	case KindHeapRef:
		if v.IsText() {
			return "text"
		}
		return "object"
	default:
		return "unknown"
	}
}
