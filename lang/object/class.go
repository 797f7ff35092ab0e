package object

import "fmt"

// Class is a named bag of methods plus an optional fast-path initializer
// (the method literally named "init").
type Class struct {
	header
	Name        *String
	Methods     map[string]Value
	Initializer Value // Nil if the class defines no init
}

var _ Obj = (*Class)(nil)

func NewClass(name *String) *Class {
	return &Class{header: header{typ: ObjTypeClass}, Name: name, Methods: map[string]Value{}}
}

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name.Chars) }

func (c *Class) Blacken(mark func(Value)) {
	mark(FromObj(c.Name))
	if !c.Initializer.IsNil() {
		mark(c.Initializer)
	}
	for _, m := range c.Methods {
		mark(m)
	}
}

// Instance is an object of some Class, with its own field table.
type Instance struct {
	header
	Class  *Class
	Fields map[string]Value
}

var _ Obj = (*Instance)(nil)

func NewInstance(class *Class) *Instance {
	return &Instance{header: header{typ: ObjTypeInstance}, Class: class, Fields: map[string]Value{}}
}

func (i *Instance) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name.Chars) }

func (i *Instance) Blacken(mark func(Value)) {
	mark(FromObj(i.Class))
	for _, v := range i.Fields {
		mark(v)
	}
}

// BoundMethod pairs a receiver with a callable method value, produced when
// a property access yields a method (as opposed to OP_INVOKE's fused path
// which never allocates one).
type BoundMethod struct {
	header
	Receiver Value
	Method   Value
}

var _ Obj = (*BoundMethod)(nil)

func NewBoundMethod(receiver, method Value) *BoundMethod {
	return &BoundMethod{header: header{typ: ObjTypeBoundMethod}, Receiver: receiver, Method: method}
}

func (b *BoundMethod) String() string { return b.Method.String() }

func (b *BoundMethod) Blacken(mark func(Value)) {
	mark(b.Receiver)
	mark(b.Method)
}
