package gc

import "github.com/mna/corelang/lang/object"

// sizeOf is a rough per-object byte estimate used only to drive the GC
// threshold heuristic; it need not be exact.
const (
	sizeString      = 32
	sizeFunction    = 96
	sizeClosure     = 48
	sizeUpvalue     = 40
	sizeClass       = 64
	sizeInstance    = 48
	sizeBoundMethod = 32
	sizeRange       = 32
	sizeList        = 32
	sizeNative      = 48
)

// InternString returns the canonical *object.String for the given bytes,
// allocating and registering a new one only if this exact content has not
// been seen before.
func (c *Collector) InternString(chars string) *object.String {
	if s, ok := c.strings.Get(chars); ok {
		return s
	}
	s := object.NewString(chars, object.HashFNV1a(chars))
	c.register(s, sizeString+int64(len(chars)))
	c.strings.Put(chars, s)
	return s
}

// NewFunction allocates a Function, registering it with the collector.
func (c *Collector) NewFunction(name *object.String) *object.Function {
	fn := object.NewFunction(name)
	c.register(fn, sizeFunction)
	return fn
}

// NewClosure allocates a Closure over fn.
func (c *Collector) NewClosure(fn *object.Function) *object.Closure {
	cl := object.NewClosure(fn)
	c.register(cl, sizeClosure+int64(8*len(cl.Upvalues)))
	return cl
}

// NewOpenUpvalue allocates an Upvalue pointing at the live stack slot at
// index slot.
func (c *Collector) NewOpenUpvalue(loc *object.Value, slot int) *object.Upvalue {
	uv := object.NewOpenUpvalue(loc, slot)
	c.register(uv, sizeUpvalue)
	return uv
}

// NewClass allocates an empty Class bound to name.
func (c *Collector) NewClass(name *object.String) *object.Class {
	cl := object.NewClass(name)
	c.register(cl, sizeClass)
	return cl
}

// NewInstance allocates an Instance of class.
func (c *Collector) NewInstance(class *object.Class) *object.Instance {
	inst := object.NewInstance(class)
	c.register(inst, sizeInstance)
	return inst
}

// NewBoundMethod allocates a BoundMethod.
func (c *Collector) NewBoundMethod(receiver, method object.Value) *object.BoundMethod {
	bm := object.NewBoundMethod(receiver, method)
	c.register(bm, sizeBoundMethod)
	return bm
}

// NewRange allocates a Range.
func (c *Collector) NewRange(min, max float64) *object.Range {
	r := object.NewRange(min, max)
	c.register(r, sizeRange)
	return r
}

// NewList allocates a List wrapping items (ownership of the slice transfers
// to the List).
func (c *Collector) NewList(items []object.Value) *object.List {
	l := object.NewList(items)
	c.register(l, sizeList+int64(8*len(items)))
	return l
}

// NewNative allocates a Native wrapping fn.
func (c *Collector) NewNative(name string, arity int, isMethod bool, fn object.NativeFn) *object.Native {
	n := object.NewNative(name, arity, isMethod, fn)
	c.register(n, sizeNative)
	return n
}
