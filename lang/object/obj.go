package object

import "fmt"

// ObjType tags the concrete kind of a heap object.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeUpvalue
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeBoundMethod
	ObjTypeClass
	ObjTypeInstance
	ObjTypeRange
	ObjTypeList
	ObjTypeNative
)

var objTypeNames = [...]string{
	ObjTypeString: "string", ObjTypeUpvalue: "upvalue", ObjTypeFunction: "function",
	ObjTypeClosure: "closure", ObjTypeBoundMethod: "bound method", ObjTypeClass: "class",
	ObjTypeInstance: "instance", ObjTypeRange: "range", ObjTypeList: "list",
	ObjTypeNative: "native function",
}

func (t ObjType) String() string {
	if int(t) < len(objTypeNames) {
		return objTypeNames[t]
	}
	return fmt.Sprintf("ObjType(%d)", int(t))
}

// Obj is implemented by every heap-allocated object kind. The collector
// (package gc) only needs this much of an object's shape to keep the
// intrusive allocation list, the tri-color mark bit, and to trace outgoing
// references -- it never type-switches on concrete object kinds.
type Obj interface {
	Type() ObjType
	String() string

	// marked is the GC's tri-color bit: true once the object has been
	// visited during the current mark phase.
	Marked() bool
	SetMarked(bool)

	// Next/SetNext thread the object onto the collector's intrusive
	// allocation-order list.
	Next() Obj
	SetNext(Obj)

	// Blacken marks every Value this object directly references by calling
	// mark for each of them. Objects with no outgoing references (String,
	// Native, Range) implement this as a no-op.
	Blacken(mark func(Value))
}

// header is embedded by every concrete object type to provide the
// GC-bookkeeping fields and satisfy the non-Blacken parts of Obj.
type header struct {
	typ    ObjType
	marked bool
	next   Obj
}

func (h *header) Type() ObjType    { return h.typ }
func (h *header) Marked() bool     { return h.marked }
func (h *header) SetMarked(m bool) { h.marked = m }
func (h *header) Next() Obj        { return h.next }
func (h *header) SetNext(o Obj)    { h.next = o }
