package natives

import (
	"github.com/mna/corelang/lang/object"
)

// forEachIterable visits every element of an iterable value in iteration
// order: list items, range numbers, or the 1-character strings of a
// string. The callback returns false to stop early. Callers check
// isIterable first; anything else is silently skipped.
func forEachIterable(ctx object.Context, v object.Value, fn func(elem object.Value) bool) {
	if !v.IsObj() {
		return
	}
	switch o := v.AsObj().(type) {
	case *object.List:
		for _, item := range o.Items {
			if !fn(item) {
				return
			}
		}
	case *object.Range:
		for i := 0; o.InBounds(i); i++ {
			if !fn(object.Number(o.At(i))) {
				return
			}
		}
	case *object.String:
		for i := 0; i < len(o.Chars); i++ {
			if !fn(object.FromObj(ctx.InternString(o.Chars[i : i+1]))) {
				return
			}
		}
	}
}

func isIterable(v object.Value) bool {
	return v.Is(object.ObjTypeList) || v.Is(object.ObjTypeRange) || v.Is(object.ObjTypeString)
}

// listPush appends a value to the list in place and returns the new
// length, or nil when the target is not a list.
func listPush(ctx object.Context, args []object.Value) (object.Value, error) {
	l, ok := asList(args[0])
	if !ok {
		return object.Nil, nil
	}
	l.Items = append(l.Items, args[1])
	return object.Number(float64(l.Len())), nil
}

// listPop removes and returns the last element, or nil when empty or not
// a list.
func listPop(ctx object.Context, args []object.Value) (object.Value, error) {
	l, ok := asList(args[0])
	if !ok || l.Len() == 0 {
		return object.Nil, nil
	}
	last := l.Items[l.Len()-1]
	l.Items = l.Items[:l.Len()-1]
	return last, nil
}

// listErase removes the element at the given index if it is in bounds.
// Always returns nil.
func listErase(ctx object.Context, args []object.Value) (object.Value, error) {
	l, ok := asList(args[0])
	if !ok || !args[1].IsNumber() {
		return object.Nil, nil
	}
	i := int(args[1].AsNumber())
	if !l.InBounds(i) {
		return object.Nil, nil
	}
	l.Items = append(l.Items[:i], l.Items[i+1:]...)
	return object.Nil, nil
}

// listConcat returns a new list holding the elements of both lists.
func listConcat(ctx object.Context, args []object.Value) (object.Value, error) {
	a, aok := asList(args[0])
	b, bok := asList(args[1])
	if !aok || !bok {
		return object.Nil, nil
	}
	items := make([]object.Value, 0, a.Len()+b.Len())
	items = append(items, a.Items...)
	items = append(items, b.Items...)
	return object.FromObj(ctx.NewList(items)), nil
}

// contains tests element membership in an iterable: values of a list by
// equality, the enumerated numbers of a range, or the characters of a
// string (the probe must be a 1-character string).
func contains(ctx object.Context, args []object.Value) (object.Value, error) {
	if !isIterable(args[0]) || badProbe(args[0], args[1]) {
		return object.Nil, nil
	}
	found := false
	forEachIterable(ctx, args[0], func(elem object.Value) bool {
		if elem.Equal(args[1]) {
			found = true
			return false
		}
		return true
	})
	return object.Bool(found), nil
}

// indexOf returns the first iteration index holding the value, or nil.
func indexOf(ctx object.Context, args []object.Value) (object.Value, error) {
	if !isIterable(args[0]) || badProbe(args[0], args[1]) {
		return object.Nil, nil
	}
	idx, at := 0, -1
	forEachIterable(ctx, args[0], func(elem object.Value) bool {
		if elem.Equal(args[1]) {
			at = idx
			return false
		}
		idx++
		return true
	})
	if at < 0 {
		return object.Nil, nil
	}
	return object.Number(float64(at)), nil
}

// badProbe reports probe/iterable combinations that can never match:
// searching a range for a non-number, or a string for anything but a
// 1-character string.
func badProbe(iterable, probe object.Value) bool {
	if iterable.Is(object.ObjTypeRange) && !probe.IsNumber() {
		return true
	}
	if iterable.Is(object.ObjTypeString) {
		s, ok := asString(probe)
		if !ok || len(s) != 1 {
			return true
		}
	}
	return false
}

// findIf returns the first element for which the predicate is truthy, or
// nil when none is.
func findIf(ctx object.Context, args []object.Value) (object.Value, error) {
	if !isIterable(args[0]) || !object.IsCallable(args[1]) {
		return object.Nil, nil
	}
	result := object.Nil
	var cbErr error
	forEachIterable(ctx, args[0], func(elem object.Value) bool {
		res, err := ctx.CallFunction(args[1], elem)
		if err != nil {
			cbErr = err
			return false
		}
		if !res.IsFalsey() {
			result = elem
			return false
		}
		return true
	})
	if cbErr != nil {
		return object.Nil, cbErr
	}
	return result, nil
}

// mapList applies the function to every element of the iterable,
// collecting the results in a new list. The result list is kept on the
// operand stack while it grows so a collection triggered by the callbacks
// cannot sweep it.
func mapList(ctx object.Context, args []object.Value) (object.Value, error) {
	if !isIterable(args[0]) || !object.IsCallable(args[1]) {
		return object.Nil, nil
	}
	out := ctx.NewList(nil)
	ctx.Push(object.FromObj(out))
	var cbErr error
	forEachIterable(ctx, args[0], func(elem object.Value) bool {
		res, err := ctx.CallFunction(args[1], elem)
		if err != nil {
			cbErr = err
			return false
		}
		out.Items = append(out.Items, res)
		return true
	})
	if cbErr != nil {
		// a runtime error already unwound the whole stack; do not pop.
		return object.Nil, cbErr
	}
	ctx.Pop()
	return object.FromObj(out), nil
}

// filterList keeps the elements for which the predicate is truthy.
func filterList(ctx object.Context, args []object.Value) (object.Value, error) {
	if !isIterable(args[0]) || !object.IsCallable(args[1]) {
		return object.Nil, nil
	}
	out := ctx.NewList(nil)
	ctx.Push(object.FromObj(out))
	var cbErr error
	forEachIterable(ctx, args[0], func(elem object.Value) bool {
		res, err := ctx.CallFunction(args[1], elem)
		if err != nil {
			cbErr = err
			return false
		}
		if !res.IsFalsey() {
			out.Items = append(out.Items, elem)
		}
		return true
	})
	if cbErr != nil {
		return object.Nil, cbErr
	}
	ctx.Pop()
	return object.FromObj(out), nil
}

// reduceList folds the iterable left to right: reduce(iterable, fn,
// initial) calls fn(accumulator, element) for each element and returns
// the final accumulator.
func reduceList(ctx object.Context, args []object.Value) (object.Value, error) {
	if !isIterable(args[0]) || !object.IsCallable(args[1]) {
		return object.Nil, nil
	}
	acc := args[2]
	var cbErr error
	forEachIterable(ctx, args[0], func(elem object.Value) bool {
		// the accumulator may be a fresh allocation from the previous
		// callback; keep it rooted across the next call.
		ctx.Push(acc)
		res, err := ctx.CallFunction(args[1], acc, elem)
		if err != nil {
			cbErr = err
			return false
		}
		ctx.Pop()
		acc = res
		return true
	})
	if cbErr != nil {
		return object.Nil, cbErr
	}
	return acc, nil
}
