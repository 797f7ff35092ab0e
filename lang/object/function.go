package object

import "fmt"

// Function is a compiled function: fixed arity, the count of upvalues its
// closures must carry, its Chunk, and an optional name (unnamed for the
// top-level script function).
type Function struct {
	header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *String
}

var _ Obj = (*Function)(nil)

// NewFunction allocates an (as yet unregistered) Function. Callers should
// go through gc.Collector so the object enters the heap list and accounting.
func NewFunction(name *String) *Function {
	return &Function{header: header{typ: ObjTypeFunction}, Name: name}
}

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

func (f *Function) Blacken(mark func(Value)) {
	if f.Name != nil {
		mark(FromObj(f.Name))
	}
	for _, c := range f.Chunk.Constants {
		mark(c)
	}
}

// Closure pairs a Function with the upvalues captured when the CLOSURE
// instruction ran.
type Closure struct {
	header
	Fn       *Function
	Upvalues []*Upvalue
}

var _ Obj = (*Closure)(nil)

func NewClosure(fn *Function) *Closure {
	return &Closure{
		header:   header{typ: ObjTypeClosure},
		Fn:       fn,
		Upvalues: make([]*Upvalue, fn.UpvalueCount),
	}
}

func (c *Closure) String() string { return c.Fn.String() }

func (c *Closure) Blacken(mark func(Value)) {
	mark(FromObj(c.Fn))
	for _, uv := range c.Upvalues {
		if uv != nil {
			mark(FromObj(uv))
		}
	}
}
