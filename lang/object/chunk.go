package object

import "golang.org/x/exp/slices"

// Chunk is the compiled form of one Function: a byte-oriented instruction
// stream, a parallel per-byte line table used for error reporting, and an
// append-only constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// Write appends a single instruction byte, recording the source line it
// came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant interns v into the constant pool, returning its index.
// Constants are deduplicated by Value equality so that, e.g., the literal
// 2 appearing twice in a function shares one pool slot.
func (c *Chunk) AddConstant(v Value) int {
	if i := slices.IndexFunc(c.Constants, func(existing Value) bool { return existing.Equal(v) }); i >= 0 {
		return i
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}
