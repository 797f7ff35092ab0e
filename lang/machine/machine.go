// Package machine implements the stack-based virtual machine that executes
// the bytecode-compiled form of the source code: call frames, closures and
// their upvalues, global and interned-string tables, class/instance/bound
// method dispatch, and the embedding API through which an application
// registers native functions and calls back into user code.
package machine

import (
	"bufio"
	"io"
	"os"

	"github.com/dolthub/swiss"
	"github.com/mna/corelang/lang/compiler"
	"github.com/mna/corelang/lang/gc"
	"github.com/mna/corelang/lang/object"
)

const (
	// StackMax is the fixed operand-stack capacity; pushing past it is a
	// runtime error, not undefined behavior.
	StackMax = 256
	// FramesMax bounds call nesting the same way.
	FramesMax = 255
)

// Options configures a VM. The zero value is a usable default: standard
// process I/O, no GC stress, short opcodes where they fit.
type Options struct {
	// Stdout, Stderr and Stdin are the I/O abstractions for the machine and
	// its natives. If nil, os.Stdout, os.Stderr and os.Stdin are used,
	// respectively. PRINT writes to Stdout; runtime errors are returned as
	// values, not printed, so Stderr is only there for natives that want it.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// StressGC forces a collection cycle on every allocation.
	StressGC bool

	// ForceLongOps makes the compiler emit every operand-bearing
	// instruction in its 4-byte "long" encoding. Debug-only.
	ForceLongOps bool
}

// frame ties a closure to an instruction pointer and a slot base on the
// operand stack.
type frame struct {
	closure *object.Closure
	ip      int
	base    int
}

// VM is one independent virtual machine: it owns its operand stack, call
// frames, open-upvalue list, global table and collector. There is no
// package-level singleton; tests and embedders create as many VMs as they
// need.
type VM struct {
	opts      Options
	collector *gc.Collector

	stack    [StackMax]object.Value
	stackTop int

	frames     [FramesMax]frame
	frameCount int

	openUpvalues *object.Upvalue

	globals *swiss.Map[string, object.Value]

	stdout io.Writer
	stderr io.Writer
	stdin  *bufio.Reader
}

// New creates a VM with its own collector and empty global table.
func New(opts Options) *VM {
	vm := &VM{
		opts:      opts,
		collector: gc.New(),
		globals:   swiss.NewMap[string, object.Value](64),
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
	}
	if vm.stdout == nil {
		vm.stdout = os.Stdout
	}
	if vm.stderr == nil {
		vm.stderr = os.Stderr
	}
	in := opts.Stdin
	if in == nil {
		in = os.Stdin
	}
	vm.stdin = bufio.NewReader(in)

	vm.collector.SetStressGC(opts.StressGC)
	vm.collector.PushRootMarker(vm)
	return vm
}

// Collector exposes the VM's garbage collector, mainly so an embedder can
// install its external root-marking hook or gate collection while building
// multi-object structures.
func (vm *VM) Collector() *gc.Collector { return vm.collector }

// MarkRoots implements gc.RootMarker: the live operand stack, every active
// frame's closure, the open-upvalue list and the global table keep objects
// alive.
func (vm *VM) MarkRoots(c *gc.Collector) {
	for i := 0; i < vm.stackTop; i++ {
		c.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		c.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		c.MarkObject(uv)
	}
	vm.globals.Iter(func(_ string, v object.Value) bool {
		c.MarkValue(v)
		return false
	})
}

// Interpret compiles source and runs the resulting top-level function to
// completion. It returns nil on success, a *compiler.CompileError if the
// program did not compile, or a *RuntimeError if execution failed; after a
// runtime error the VM is reset and ready for the next Interpret.
func (vm *VM) Interpret(source string) error {
	fn, err := compiler.Compile(source, vm.collector, compiler.Options{ForceLongOps: vm.opts.ForceLongOps})
	if err != nil {
		return err
	}

	vm.push(object.FromObj(fn))
	closure := vm.collector.NewClosure(fn)
	vm.pop()
	vm.push(object.FromObj(closure))
	if err := vm.call(closure, 0); err != nil {
		return vm.runtimeError(err)
	}
	if err := vm.run(0); err != nil {
		return err
	}
	return nil
}

// DefineNative registers a Go function as a global callable.
func (vm *VM) DefineNative(name string, arity int, fn object.NativeFn) {
	n := vm.collector.NewNative(name, arity, false, fn)
	vm.push(object.FromObj(n))
	vm.globals.Put(name, object.FromObj(n))
	vm.pop()
}

// NativeMethod describes one method of a native class.
type NativeMethod struct {
	Name   string
	Arity  int
	Fn     object.NativeFn
	IsInit bool
}

// DefineNativeClass registers a class whose methods are all native, bound
// as a global under name; the method flagged IsInit (or literally named
// "init") becomes the initializer. The class is returned so the embedder
// can also pre-build instances of it.
func (vm *VM) DefineNativeClass(name string, methods []NativeMethod) *object.Class {
	prev := vm.collector.CanCollect()
	vm.collector.SetCanCollect(false)
	defer vm.collector.SetCanCollect(prev)

	cls := vm.collector.NewClass(vm.collector.InternString(name))
	for _, m := range methods {
		n := vm.collector.NewNative(m.Name, m.Arity, true, m.Fn)
		cls.Methods[m.Name] = object.FromObj(n)
		if m.IsInit || m.Name == "init" {
			cls.Initializer = object.FromObj(n)
		}
	}
	vm.globals.Put(name, object.FromObj(cls))
	return cls
}

// SetGlobal binds an arbitrary Value as a global, for embedders that
// pre-build values (e.g. a native-class instance) outside any script.
func (vm *VM) SetGlobal(name string, v object.Value) { vm.globals.Put(name, v) }

// Global reads a global by name, mainly for tests and embedders.
func (vm *VM) Global(name string) (object.Value, bool) { return vm.globals.Get(name) }

// StackSize reports the operand-stack depth; a program that terminated
// normally leaves it at zero.
func (vm *VM) StackSize() int { return vm.stackTop }

// --- operand-stack API (object.Context) ---

var _ object.Context = (*VM)(nil)

// Push pushes v; overflowing the fixed-size stack panics with errStackOverflow,
// which the dispatch loop converts into a regular runtime error.
func (vm *VM) Push(v object.Value) { vm.push(v) }

func (vm *VM) Pop() object.Value { return vm.pop() }

// Peek returns the value distance slots down from the top without popping.
func (vm *VM) Peek(distance int) object.Value { return vm.peek(distance) }

func (vm *VM) InternString(chars string) *object.String { return vm.collector.InternString(chars) }

func (vm *VM) NewList(items []object.Value) *object.List { return vm.collector.NewList(items) }

func (vm *VM) Stdin() *bufio.Reader { return vm.stdin }

func (vm *VM) Stdout() io.Writer { return vm.stdout }

func (vm *VM) Stderr() io.Writer { return vm.stderr }

func (vm *VM) push(v object.Value) {
	if vm.stackTop == StackMax {
		panic(errStackOverflow)
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() object.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// resetStack unwinds everything after a runtime error so the VM is clean
// for the next Interpret.
func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}
