// Package natives implements the reserved built-in native functions and
// the Math native class. They are plain Go functions registered
// through the machine's embedding API; the machine itself knows nothing
// about any of them.
package natives

import (
	"os"
	"strings"
	"time"

	"github.com/mna/corelang/lang/machine"
	"github.com/mna/corelang/lang/object"
)

// Register installs every reserved built-in (natives and the Math class)
// into vm's globals.
func Register(vm *machine.VM) {
	vm.DefineNative("clock", 0, clock)
	vm.DefineNative("sizeOf", 1, sizeOf)
	vm.DefineNative("isList", 1, isList)
	vm.DefineNative("inBounds", 2, inBounds)
	vm.DefineNative("readInput", 0, readInput)
	vm.DefineNative("readFile", 1, readFile)
	vm.DefineNative("writeFile", 2, writeFile)

	vm.DefineNative("push", 2, listPush)
	vm.DefineNative("pop", 1, listPop)
	vm.DefineNative("erase", 2, listErase)
	vm.DefineNative("concat", 2, listConcat)

	vm.DefineNative("contains", 2, contains)
	vm.DefineNative("indexOf", 2, indexOf)
	vm.DefineNative("findIf", 2, findIf)
	vm.DefineNative("map", 2, mapList)
	vm.DefineNative("filter", 2, filterList)
	vm.DefineNative("reduce", 3, reduceList)

	registerMath(vm)
}

func clock(ctx object.Context, args []object.Value) (object.Value, error) {
	return object.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

// sizeOf reports byte length for strings, element count for lists, and the
// bounded length for ranges; nil for anything else (natives signal misuse
// with nil, never a runtime error).
func sizeOf(ctx object.Context, args []object.Value) (object.Value, error) {
	if args[0].IsObj() {
		switch o := args[0].AsObj().(type) {
		case *object.String:
			return object.Number(float64(len(o.Chars))), nil
		case *object.List:
			return object.Number(float64(o.Len())), nil
		case *object.Range:
			return object.Number(float64(o.Len())), nil
		}
	}
	return object.Nil, nil
}

func isList(ctx object.Context, args []object.Value) (object.Value, error) {
	return object.Bool(args[0].Is(object.ObjTypeList)), nil
}

// inBounds exposes the RANGE_IN_BOUNDS test as a callable: whether
// args[1] is a valid iteration index into the iterable args[0].
func inBounds(ctx object.Context, args []object.Value) (object.Value, error) {
	if !args[1].IsNumber() {
		return object.Nil, nil
	}
	i := int(args[1].AsNumber())
	if args[0].IsObj() {
		switch o := args[0].AsObj().(type) {
		case *object.List:
			return object.Bool(o.InBounds(i)), nil
		case *object.Range:
			return object.Bool(o.InBounds(i)), nil
		case *object.String:
			return object.Bool(i >= 0 && i < len(o.Chars)), nil
		}
	}
	return object.Nil, nil
}

// readInput reads one line from the machine's standard input, without the
// trailing newline. End of input with nothing read yields nil.
func readInput(ctx object.Context, args []object.Value) (object.Value, error) {
	line, err := ctx.Stdin().ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		return object.Nil, nil
	}
	return object.FromObj(ctx.InternString(line)), nil
}

// readFile returns the file's contents as a string, or nil if it could not
// be read (natives signal failure with nil).
func readFile(ctx object.Context, args []object.Value) (object.Value, error) {
	path, ok := asString(args[0])
	if !ok {
		return object.Nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return object.Nil, nil
	}
	return object.FromObj(ctx.InternString(string(b))), nil
}

// writeFile writes the string contents to the path, reporting success.
func writeFile(ctx object.Context, args []object.Value) (object.Value, error) {
	path, pok := asString(args[0])
	contents, cok := asString(args[1])
	if !pok || !cok {
		return object.Nil, nil
	}
	err := os.WriteFile(path, []byte(contents), 0600)
	return object.Bool(err == nil), nil
}

func asString(v object.Value) (string, bool) {
	if !v.Is(object.ObjTypeString) {
		return "", false
	}
	return v.AsObj().(*object.String).Chars, true
}

func asList(v object.Value) (*object.List, bool) {
	if !v.Is(object.ObjTypeList) {
		return nil, false
	}
	return v.AsObj().(*object.List), true
}
