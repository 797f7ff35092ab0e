package object

import "strings"

// List is an ordered, mutable sequence of Values.
type List struct {
	header
	Items []Value
}

var _ Obj = (*List)(nil)

func NewList(items []Value) *List {
	return &List{header: header{typ: ObjTypeList}, Items: items}
}

func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range l.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (l *List) Blacken(mark func(Value)) {
	for _, v := range l.Items {
		mark(v)
	}
}

func (l *List) Len() int { return len(l.Items) }

func (l *List) InBounds(i int) bool { return i >= 0 && i < len(l.Items) }
