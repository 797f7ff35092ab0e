package object

import (
	"bufio"
	"fmt"
	"io"
)

// Context is the slice of the machine's embedding API that native
// functions need: operand-stack access, allocation routed through the
// machine's collector, standard I/O, and the ability to call back into
// user code. object.Native holds a Fn that receives one of these rather
// than a concrete *machine.VM, so this package never imports package
// machine.
type Context interface {
	Push(Value)
	Pop() Value
	Peek(distance int) Value

	// CallFunction pushes callable and args, issues a call, runs a nested
	// dispatch loop until the call returns, and pops the result. It is how
	// higher-order natives (map, filter, reduce, findIf) re-enter the
	// machine.
	CallFunction(callable Value, args ...Value) (Value, error)

	// InternString and NewList allocate through the machine's collector so
	// the results are tracked heap objects like any other.
	InternString(chars string) *String
	NewList(items []Value) *List

	Stdin() *bufio.Reader
	Stdout() io.Writer
}

// NativeFn is the signature every native function or native method
// implements: it receives the arguments (args[0] is the receiver for
// native methods) and the calling context, and returns a result or an
// error. A returned error becomes a runtime error in the machine.
type NativeFn func(ctx Context, args []Value) (Value, error)

// Native wraps a Go function so it can be called like any other Value.
// Arity counts declared parameters; for a native method the receiver is
// passed as args[0] in addition to those.
type Native struct {
	header
	Name     string
	Arity    int
	IsMethod bool
	Fn       NativeFn
}

var _ Obj = (*Native)(nil)

func NewNative(name string, arity int, isMethod bool, fn NativeFn) *Native {
	return &Native{header: header{typ: ObjTypeNative}, Name: name, Arity: arity, IsMethod: isMethod, Fn: fn}
}

func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

func (n *Native) Blacken(mark func(Value)) {}
