package natives

import (
	"math"

	"github.com/mna/corelang/lang/machine"
	"github.com/mna/corelang/lang/object"
)

// registerMath installs the Math built-in: a native class carrying the
// abs and min methods, bound globally as a ready-made instance so that
// Math.PI reads a field and Math.abs(x) dispatches through the regular
// invoke path. args[0] of each method is the receiver, unused here.
func registerMath(vm *machine.VM) {
	prev := vm.Collector().CanCollect()
	vm.Collector().SetCanCollect(false)
	defer vm.Collector().SetCanCollect(prev)

	cls := vm.DefineNativeClass("Math", []machine.NativeMethod{
		{Name: "abs", Arity: 1, Fn: mathAbs},
		{Name: "min", Arity: 2, Fn: mathMin},
	})

	inst := vm.Collector().NewInstance(cls)
	inst.Fields["PI"] = object.Number(math.Pi)
	vm.SetGlobal("Math", object.FromObj(inst))
}

func mathAbs(ctx object.Context, args []object.Value) (object.Value, error) {
	if !args[1].IsNumber() {
		return object.Nil, nil
	}
	return object.Number(math.Abs(args[1].AsNumber())), nil
}

func mathMin(ctx object.Context, args []object.Value) (object.Value, error) {
	if !args[1].IsNumber() || !args[2].IsNumber() {
		return object.Nil, nil
	}
	return object.Number(math.Min(args[1].AsNumber(), args[2].AsNumber())), nil
}
