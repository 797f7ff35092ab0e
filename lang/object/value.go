// Package object defines the tagged Value union and the heap object model
// shared by the compiler (which builds constant pools of Values) and the
// machine (which operates on them at run time). It deliberately knows
// nothing about the garbage collector's mark/sweep bookkeeping beyond the
// small Obj interface the collector needs to traverse the heap; see
// package gc for the collector itself.
package object

import (
	"fmt"
	"strconv"
)

// Kind tags the dynamic type a Value carries.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is a tagged union over {nil, bool, number, object reference}. It is
// passed by value throughout the compiler and machine, the same way a
// small tagged struct would be in a systems language; Go's escape analysis
// keeps the non-object cases off the heap.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	object Obj
}

// Nil is the singular nil value.
var Nil = Value{kind: KindNil}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// FromObj returns a Value wrapping a heap object.
func FromObj(o Obj) Value { return Value{kind: KindObj, object: o} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool    { return v.kind == KindObj }

func (v Value) AsBool() bool    { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsObj() Obj       { return v.object }

// IsFalsey implements the language's truthiness rule: nil and false are
// falsey, everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Is reports whether the value is an object of the given type tag.
func (v Value) Is(t ObjType) bool {
	return v.kind == KindObj && v.object != nil && v.object.Type() == t
}

// TypeName returns a short human-readable type name; CallableName falls
// back to it for values that are not callable objects.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObj:
		if v.object == nil {
			return "nil"
		}
		return v.object.Type().String()
	}
	return "unknown"
}

// Equal implements value equality: structural for primitives, identity for
// objects. Because strings are interned, pointer identity for *String is
// equivalent to content equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindObj:
		if v.object == nil || o.object == nil {
			return v.object == o.object
		}
		if v.object.Type() != o.object.Type() {
			return false
		}
		return v.object == o.object
	}
	return false
}

// String renders the value the way PRINT and string coercion do.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	case KindObj:
		if v.object == nil {
			return "nil"
		}
		return v.object.String()
	}
	return "<invalid>"
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) && !isNegZero(n) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func isNegZero(n float64) bool { return n == 0 && fmt.Sprintf("%f", n)[0] == '-' }
