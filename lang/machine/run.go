package machine

import (
	"fmt"
	"math"

	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/object"
)

// run is the dispatch loop: it decodes and executes instructions of the
// innermost frame until a RETURN brings the frame count back down to
// depth. The top-level call runs with depth 0; natives re-entering the
// machine through CallFunction run nested loops with the frame count they
// entered at.
func (vm *VM) run(depth int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errStackOverflow {
				err = vm.runtimeError(errStackOverflow)
				return
			}
			panic(r)
		}
	}()

	for {
		fr := &vm.frames[vm.frameCount-1]
		op := bytecode.Op(vm.readByte(fr))

		switch op {
		case bytecode.Constant, bytecode.ConstantLong:
			vm.push(vm.readConstant(fr, op))

		case bytecode.Nil:
			vm.push(object.Nil)
		case bytecode.True:
			vm.push(object.Bool(true))
		case bytecode.False:
			vm.push(object.Bool(false))
		case bytecode.Pop:
			vm.pop()

		case bytecode.GetLocal, bytecode.GetLocalLong:
			slot := vm.readOperand(fr, op)
			vm.push(vm.stack[fr.base+slot])

		case bytecode.SetLocal, bytecode.SetLocalLong:
			slot := vm.readOperand(fr, op)
			vm.stack[fr.base+slot] = vm.peek(0)

		case bytecode.GetUpvalue:
			idx := int(vm.readByte(fr))
			vm.push(*fr.closure.Upvalues[idx].Location)

		case bytecode.SetUpvalue:
			idx := int(vm.readByte(fr))
			*fr.closure.Upvalues[idx].Location = vm.peek(0)

		case bytecode.GetGlobal, bytecode.GetGlobalLong:
			name := vm.readString(fr, op)
			v, ok := vm.globals.Get(name.Chars)
			if !ok {
				return vm.runtimeError(fmt.Errorf("Undefined variable '%s'.", name.Chars))
			}
			vm.push(v)

		case bytecode.DefineGlobal, bytecode.DefineGlobalLong:
			name := vm.readString(fr, op)
			vm.globals.Put(name.Chars, vm.peek(0))
			vm.pop()

		case bytecode.SetGlobal, bytecode.SetGlobalLong:
			name := vm.readString(fr, op)
			if _, ok := vm.globals.Get(name.Chars); !ok {
				return vm.runtimeError(fmt.Errorf("Undefined variable '%s'.", name.Chars))
			}
			vm.globals.Put(name.Chars, vm.peek(0))

		case bytecode.GetProperty, bytecode.GetPropertyLong:
			name := vm.readString(fr, op)
			inst, ok := asInstance(vm.peek(0))
			if !ok {
				return vm.runtimeError(fmt.Errorf("Only instances have properties."))
			}
			if field, ok := inst.Fields[name.Chars]; ok {
				vm.pop()
				vm.push(field)
				break
			}
			method, ok := inst.Class.Methods[name.Chars]
			if !ok {
				return vm.runtimeError(fmt.Errorf("Undefined property '%s'.", name.Chars))
			}
			bound := vm.collector.NewBoundMethod(vm.peek(0), method)
			vm.pop()
			vm.push(object.FromObj(bound))

		case bytecode.SetProperty, bytecode.SetPropertyLong:
			name := vm.readString(fr, op)
			inst, ok := asInstance(vm.peek(1))
			if !ok {
				return vm.runtimeError(fmt.Errorf("Only instances have fields."))
			}
			inst.Fields[name.Chars] = vm.peek(0)
			value := vm.pop()
			vm.pop()
			vm.push(value)

		case bytecode.Equal:
			b, a := vm.pop(), vm.pop()
			vm.push(object.Bool(a.Equal(b)))

		case bytecode.Match:
			pattern, value := vm.pop(), vm.pop()
			vm.push(object.Bool(matchValues(value, pattern)))

		case bytecode.Greater:
			if err := vm.binaryCompare(op); err != nil {
				return vm.runtimeError(err)
			}
		case bytecode.Less:
			if err := vm.binaryCompare(op); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.Add:
			if err := vm.add(); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.Subtract, bytecode.Multiply, bytecode.Divide, bytecode.Modulo:
			if err := vm.binaryNumeric(op); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.Negate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(fmt.Errorf("Operand must be a number."))
			}
			vm.push(object.Number(-vm.pop().AsNumber()))

		case bytecode.Increment:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(fmt.Errorf("Operand must be a number."))
			}
			vm.push(object.Number(vm.pop().AsNumber() + 1))

		case bytecode.Not:
			vm.push(object.Bool(vm.pop().IsFalsey()))

		case bytecode.BuildRange:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				return vm.runtimeError(fmt.Errorf("Range operands must be numbers."))
			}
			r := vm.collector.NewRange(vm.peek(1).AsNumber(), vm.peek(0).AsNumber())
			vm.pop()
			vm.pop()
			vm.push(object.FromObj(r))

		case bytecode.BuildList:
			n := int(vm.readByte(fr))
			items := make([]object.Value, n)
			copy(items, vm.stack[vm.stackTop-n:vm.stackTop])
			list := vm.collector.NewList(items)
			vm.stackTop -= n
			vm.push(object.FromObj(list))

		case bytecode.IndexSubscr:
			if err := vm.indexSubscr(); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.StoreSubscr:
			if err := vm.storeSubscr(); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.RangeInBounds:
			if err := vm.rangeInBounds(); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.Print:
			s, err := vm.valueAsString(vm.peek(0))
			if err != nil {
				return vm.runtimeError(err)
			}
			vm.pop()
			fmt.Fprintln(vm.stdout, s)

		case bytecode.Jump:
			offset := vm.readUint16(fr)
			fr.ip += offset

		case bytecode.JumpIfFalse:
			offset := vm.readUint16(fr)
			if vm.peek(0).IsFalsey() {
				fr.ip += offset
			}

		case bytecode.Loop:
			offset := vm.readUint16(fr)
			fr.ip -= offset

		case bytecode.Call:
			argc := int(vm.readByte(fr))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.Invoke, bytecode.InvokeLong:
			name := vm.readString(fr, op)
			argc := int(vm.readByte(fr))
			if err := vm.invoke(name, argc); err != nil {
				return vm.runtimeError(err)
			}

		case bytecode.Closure, bytecode.ClosureLong:
			fn := vm.readConstant(fr, op).AsObj().(*object.Function)
			closure := vm.collector.NewClosure(fn)
			vm.push(object.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(fr) == 1
				idx := int(vm.readByte(fr))
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(fr.base + idx)
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[idx]
				}
			}

		case bytecode.CloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.Return:
			result := vm.pop()
			vm.closeUpvalues(fr.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				// top-level script return: there is no caller to receive a
				// result, the operand stack ends empty.
				vm.pop()
				return nil
			}
			vm.stackTop = fr.base
			vm.push(result)
			if vm.frameCount == depth {
				return nil
			}

		case bytecode.Class, bytecode.ClassLong:
			name := vm.readString(fr, op)
			vm.push(object.FromObj(vm.collector.NewClass(name)))

		case bytecode.Method, bytecode.MethodLong:
			name := vm.readString(fr, op)
			method := vm.peek(0)
			cls := vm.peek(1).AsObj().(*object.Class)
			cls.Methods[name.Chars] = method
			if name.Chars == "init" {
				cls.Initializer = method
			}
			vm.pop()

		default:
			return vm.runtimeError(fmt.Errorf("Unknown opcode %d.", byte(op)))
		}
	}
}

// --- instruction decoding ---

func (vm *VM) readByte(fr *frame) byte {
	b := fr.closure.Fn.Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readUint16(fr *frame) int {
	code := fr.closure.Fn.Chunk.Code
	v := int(code[fr.ip]) | int(code[fr.ip+1])<<8
	fr.ip += 2
	return v
}

func (vm *VM) readUint32(fr *frame) int {
	code := fr.closure.Fn.Chunk.Code
	v := int(code[fr.ip]) | int(code[fr.ip+1])<<8 | int(code[fr.ip+2])<<16 | int(code[fr.ip+3])<<24
	fr.ip += 4
	return v
}

// readOperand reads the short or long operand form depending on op.
func (vm *VM) readOperand(fr *frame, op bytecode.Op) int {
	if op.IsLong() {
		return vm.readUint32(fr)
	}
	return int(vm.readByte(fr))
}

func (vm *VM) readConstant(fr *frame, op bytecode.Op) object.Value {
	return fr.closure.Fn.Chunk.Constants[vm.readOperand(fr, op)]
}

func (vm *VM) readString(fr *frame, op bytecode.Op) *object.String {
	return vm.readConstant(fr, op).AsObj().(*object.String)
}

// --- operator semantics ---

func (vm *VM) binaryCompare(op bytecode.Op) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return fmt.Errorf("Operands must be numbers.")
	}
	b, a := vm.pop().AsNumber(), vm.pop().AsNumber()
	if op == bytecode.Greater {
		vm.push(object.Bool(a > b))
	} else {
		vm.push(object.Bool(a < b))
	}
	return nil
}

func (vm *VM) binaryNumeric(op bytecode.Op) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return fmt.Errorf("Operands must be numbers.")
	}
	b, a := vm.pop().AsNumber(), vm.pop().AsNumber()
	switch op {
	case bytecode.Subtract:
		vm.push(object.Number(a - b))
	case bytecode.Multiply:
		vm.push(object.Number(a * b))
	case bytecode.Divide:
		vm.push(object.Number(a / b))
	case bytecode.Modulo:
		vm.push(object.Number(math.Mod(a, b)))
	}
	return nil
}

// add implements the four ADD cases: number+number, string+string,
// list+list, and string+anything in either order with the non-string
// operand coerced through valueAsString. Operands stay on the stack until
// the result exists so a collection triggered by the new allocation cannot
// sweep them.
func (vm *VM) add() error {
	a, b := vm.peek(1), vm.peek(0)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(object.Number(a.AsNumber() + b.AsNumber()))

	case a.Is(object.ObjTypeString) && b.Is(object.ObjTypeString):
		s := vm.collector.InternString(a.AsObj().(*object.String).Chars + b.AsObj().(*object.String).Chars)
		vm.pop()
		vm.pop()
		vm.push(object.FromObj(s))

	case a.Is(object.ObjTypeList) && b.Is(object.ObjTypeList):
		la, lb := a.AsObj().(*object.List), b.AsObj().(*object.List)
		items := make([]object.Value, 0, len(la.Items)+len(lb.Items))
		items = append(items, la.Items...)
		items = append(items, lb.Items...)
		l := vm.collector.NewList(items)
		vm.pop()
		vm.pop()
		vm.push(object.FromObj(l))

	case a.Is(object.ObjTypeString) || b.Is(object.ObjTypeString):
		sa, err := vm.valueAsString(a)
		if err != nil {
			return err
		}
		sb, err := vm.valueAsString(b)
		if err != nil {
			return err
		}
		s := vm.collector.InternString(sa + sb)
		vm.pop()
		vm.pop()
		vm.push(object.FromObj(s))

	default:
		return fmt.Errorf("Operands must be two numbers or two strings.")
	}
	return nil
}

// valueAsString renders v for PRINT and string concatenation. An instance
// whose class defines toString has that method invoked (re-entering the
// machine) and its string result substituted.
func (vm *VM) valueAsString(v object.Value) (string, error) {
	if inst, ok := asInstance(v); ok {
		if method, ok := inst.Class.Methods["toString"]; ok {
			res, err := vm.callMethod(v, method)
			if err != nil {
				return "", err
			}
			if !res.Is(object.ObjTypeString) {
				return "", fmt.Errorf("toString must return a string.")
			}
			return res.AsObj().(*object.String).Chars, nil
		}
	}
	return v.String(), nil
}

// matchValues implements MATCH: a Range pattern against a Number tests
// membership, anything else compares like EQUAL.
func matchValues(value, pattern object.Value) bool {
	if pattern.Is(object.ObjTypeRange) && value.IsNumber() {
		return pattern.AsObj().(*object.Range).Contains(value.AsNumber())
	}
	return value.Equal(pattern)
}

// indexSubscr implements INDEX_SUBSCR: number index into list/range/string
// (nil when out of bounds), string key into an instance's fields then
// methods.
func (vm *VM) indexSubscr() error {
	obj, idx := vm.peek(1), vm.peek(0)

	if !obj.IsObj() {
		return fmt.Errorf("Can only subscript lists, ranges, strings and instances.")
	}
	switch o := obj.AsObj().(type) {
	case *object.List:
		i, err := subscriptIndex(idx)
		if err != nil {
			return err
		}
		result := object.Nil
		if o.InBounds(i) {
			result = o.Items[i]
		}
		vm.pop()
		vm.pop()
		vm.push(result)

	case *object.Range:
		i, err := subscriptIndex(idx)
		if err != nil {
			return err
		}
		result := object.Nil
		if o.InBounds(i) {
			result = object.Number(o.At(i))
		}
		vm.pop()
		vm.pop()
		vm.push(result)

	case *object.String:
		i, err := subscriptIndex(idx)
		if err != nil {
			return err
		}
		result := object.Nil
		if i >= 0 && i < len(o.Chars) {
			result = object.FromObj(vm.collector.InternString(o.Chars[i : i+1]))
		}
		vm.pop()
		vm.pop()
		vm.push(result)

	case *object.Instance:
		if !idx.Is(object.ObjTypeString) {
			return fmt.Errorf("Instance subscript must be a string.")
		}
		name := idx.AsObj().(*object.String).Chars
		result := object.Nil
		if field, ok := o.Fields[name]; ok {
			result = field
		} else if method, ok := o.Class.Methods[name]; ok {
			result = object.FromObj(vm.collector.NewBoundMethod(obj, method))
		}
		vm.pop()
		vm.pop()
		vm.push(result)

	default:
		return fmt.Errorf("Can only subscript lists, ranges, strings and instances.")
	}
	return nil
}

func subscriptIndex(v object.Value) (int, error) {
	if !v.IsNumber() {
		return 0, fmt.Errorf("Subscript index must be a number.")
	}
	return int(v.AsNumber()), nil
}

// storeSubscr implements STORE_SUBSCR. Stack layout: target, index, value
// (value on top); the value is left as the expression result. List stores
// must be in bounds, string stores additionally require a one-character
// replacement and mutate the String's bytes in place, instance stores set
// a field.
func (vm *VM) storeSubscr() error {
	obj, idx, value := vm.peek(2), vm.peek(1), vm.peek(0)

	if !obj.IsObj() {
		return fmt.Errorf("Can only store into lists, strings and instances.")
	}
	switch o := obj.AsObj().(type) {
	case *object.List:
		i, err := subscriptIndex(idx)
		if err != nil {
			return err
		}
		if !o.InBounds(i) {
			return fmt.Errorf("List index out of bounds.")
		}
		o.Items[i] = value

	case *object.String:
		i, err := subscriptIndex(idx)
		if err != nil {
			return err
		}
		if i < 0 || i >= len(o.Chars) {
			return fmt.Errorf("String index out of bounds.")
		}
		if !value.Is(object.ObjTypeString) || len(value.AsObj().(*object.String).Chars) != 1 {
			return fmt.Errorf("Can only assign a single-character string into a string index.")
		}
		old := o.Chars
		o.Chars = o.Chars[:i] + value.AsObj().(*object.String).Chars + o.Chars[i+1:]
		o.Hash = object.HashFNV1a(o.Chars)
		vm.collector.RekeyString(old, o)

	case *object.Instance:
		if !idx.Is(object.ObjTypeString) {
			return fmt.Errorf("Instance subscript must be a string.")
		}
		o.Fields[idx.AsObj().(*object.String).Chars] = value

	default:
		return fmt.Errorf("Can only store into lists, strings and instances.")
	}

	vm.pop()
	vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

// rangeInBounds implements RANGE_IN_BOUNDS: pops the index and the
// iterable, pushing whether the index is a valid iteration offset. It
// never advances any iteration state, the for-in lowering re-pushes both
// every trip.
func (vm *VM) rangeInBounds() error {
	idx, iterable := vm.pop(), vm.pop()
	i, err := subscriptIndex(idx)
	if err != nil {
		return err
	}
	if iterable.IsObj() {
		switch o := iterable.AsObj().(type) {
		case *object.Range:
			vm.push(object.Bool(o.InBounds(i)))
			return nil
		case *object.List:
			vm.push(object.Bool(o.InBounds(i)))
			return nil
		case *object.String:
			vm.push(object.Bool(i >= 0 && i < len(o.Chars)))
			return nil
		}
	}
	return fmt.Errorf("Can only iterate over ranges, lists and strings.")
}
