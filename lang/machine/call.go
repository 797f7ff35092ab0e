package machine

import (
	"fmt"

	"github.com/mna/corelang/lang/object"
)

// callValue dispatches a call on callee with argc arguments already on the
// stack. The callee sits at stackTop-argc-1; that slot becomes the
// receiver/this placeholder (slot 0) of the new frame for closures, or is
// replaced by the result for natives.
func (vm *VM) callValue(callee object.Value, argc int) error {
	if callee.IsObj() {
		switch o := callee.AsObj().(type) {
		case *object.Closure:
			return vm.call(o, argc)

		case *object.Native:
			return vm.callNative(o, argc)

		case *object.Class:
			return vm.callClass(o, argc)

		case *object.BoundMethod:
			vm.stack[vm.stackTop-argc-1] = o.Receiver
			return vm.callValue(o.Method, argc)
		}
	}
	return fmt.Errorf("Can only call functions and classes.")
}

// call pushes a new frame for closure; the frame's slot base is the callee
// slot so that locals index from the receiver placeholder.
func (vm *VM) call(closure *object.Closure, argc int) error {
	if argc != closure.Fn.Arity {
		return fmt.Errorf("Expected %d arguments but got %d.", closure.Fn.Arity, argc)
	}
	if vm.frameCount == FramesMax {
		return errStackOverflow
	}
	vm.frames[vm.frameCount] = frame{closure: closure, base: vm.stackTop - argc - 1}
	vm.frameCount++
	return nil
}

// callNative invokes a native with the argument span on the stack; a
// native method additionally receives the callee-slot value (the receiver)
// as args[0]. The call region is replaced by the returned value.
func (vm *VM) callNative(n *object.Native, argc int) error {
	if argc != n.Arity {
		return fmt.Errorf("Expected %d arguments but got %d.", n.Arity, argc)
	}
	lo := vm.stackTop - argc
	if n.IsMethod {
		lo--
	}
	res, err := n.Fn(vm, vm.stack[lo:vm.stackTop])
	if err != nil {
		return err
	}
	vm.stackTop -= argc + 1
	vm.push(res)
	return nil
}

// callClass constructs a new instance in the callee slot, then runs the
// initializer if the class has one (requiring 0 arguments otherwise).
func (vm *VM) callClass(cls *object.Class, argc int) error {
	inst := vm.collector.NewInstance(cls)
	vm.stack[vm.stackTop-argc-1] = object.FromObj(inst)

	if cls.Initializer.IsNil() {
		if argc != 0 {
			return fmt.Errorf("Expected 0 arguments but got %d.", argc)
		}
		return nil
	}

	switch init := cls.Initializer.AsObj().(type) {
	case *object.Closure:
		return vm.call(init, argc)
	case *object.Native:
		if argc != init.Arity {
			return fmt.Errorf("Expected %d arguments but got %d.", init.Arity, argc)
		}
		if _, err := init.Fn(vm, vm.stack[vm.stackTop-argc-1:vm.stackTop]); err != nil {
			return err
		}
		// the native init mutates the instance in place; discard the args
		// and leave the instance as the call's result.
		vm.stackTop -= argc
		return nil
	}
	return fmt.Errorf("Class initializer is not callable.")
}

// invoke is the fast path for `obj.name(args)` (OP_INVOKE): it looks name
// up first in the instance's fields, then in the class's methods, without
// allocating a BoundMethod.
func (vm *VM) invoke(name *object.String, argc int) error {
	receiver := vm.peek(argc)
	inst, ok := asInstance(receiver)
	if !ok {
		return fmt.Errorf("Only instances have methods.")
	}

	if field, ok := inst.Fields[name.Chars]; ok {
		vm.stack[vm.stackTop-argc-1] = field
		return vm.callValue(field, argc)
	}

	method, ok := inst.Class.Methods[name.Chars]
	if !ok {
		return fmt.Errorf("Undefined property '%s'.", name.Chars)
	}
	return vm.callValue(method, argc)
}

func asInstance(v object.Value) (*object.Instance, bool) {
	if !v.IsObj() {
		return nil, false
	}
	inst, ok := v.AsObj().(*object.Instance)
	return inst, ok
}

// captureUpvalue returns an open upvalue for the stack slot at index slot,
// sharing an existing one if a closure already captured that slot. The
// open list is kept in decreasing slot order so the scan
// can stop as soon as it walks past the wanted slot.
func (vm *VM) captureUpvalue(slot int) *object.Upvalue {
	var prev *object.Upvalue
	uv := vm.openUpvalues
	for uv != nil && uv.Slot > slot {
		prev = uv
		uv = uv.NextOpen
	}
	if uv != nil && uv.Slot == slot {
		return uv
	}

	created := vm.collector.NewOpenUpvalue(&vm.stack[slot], slot)
	created.NextOpen = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue pointing at slot last or above:
// the pointee is copied into the upvalue's owned cell and the upvalue
// leaves the open list. Called when a scope ends with captured locals and
// on every function return.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= last {
		uv := vm.openUpvalues
		vm.openUpvalues = uv.NextOpen
		uv.Close()
		uv.NextOpen = nil
	}
}

// CallFunction pushes callable and args, issues the call, runs a nested
// dispatch loop until the call returns, and pops the result. It is
// the re-entry point used by higher-order natives and by PRINT/string
// coercion's toString dispatch.
func (vm *VM) CallFunction(callable object.Value, args ...object.Value) (object.Value, error) {
	entry := vm.frameCount
	vm.push(callable)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callValue(callable, len(args)); err != nil {
		return object.Nil, err
	}
	if vm.frameCount > entry {
		if err := vm.run(entry); err != nil {
			return object.Nil, err
		}
	}
	return vm.pop(), nil
}

// callMethod invokes method with receiver in the callee slot, returning
// the result. Used by the machine itself for toString dispatch.
func (vm *VM) callMethod(receiver, method object.Value, args ...object.Value) (object.Value, error) {
	entry := vm.frameCount
	vm.push(receiver)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callValue(method, len(args)); err != nil {
		return object.Nil, err
	}
	if vm.frameCount > entry {
		if err := vm.run(entry); err != nil {
			return object.Nil, err
		}
	}
	return vm.pop(), nil
}
