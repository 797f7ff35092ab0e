// Package compiler implements a single-pass Pratt compiler: it drives
// package scanner one token at a time and emits bytecode (package bytecode)
// directly into an object.Chunk, with no intermediate AST.
package compiler

import (
	"fmt"

	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/gc"
	"github.com/mna/corelang/lang/object"
	"github.com/mna/corelang/lang/scanner"
	"github.com/mna/corelang/lang/token"
)

const (
	maxLocals   = 256
	maxUpvalues = 256
	maxArgs     = 255

	uninitialized = -1
)

// FunctionType distinguishes the kind of function currently being compiled,
// which governs what slot 0 means and what "return" is allowed to do.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeScript
	TypeMethod
	TypeInitializer
)

// Options configures a single compilation.
type Options struct {
	// ForceLongOps makes every operand-bearing instruction use its 4-byte
	// "long" encoding, even when the short form would fit. Debug-only.
	ForceLongOps bool
}

type local struct {
	name       token.Token
	depth      int
	isCaptured bool
	isConst    bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// funcScope holds the compiler state for one function body being compiled;
// funcScopes form a stack mirroring lexical nesting of fun declarations and
// expressions.
type funcScope struct {
	enclosing *funcScope

	fn   *object.Function
	typ  FunctionType
	opts Options

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int

	// globalConsts, in the Script function's scope, tracks which global
	// name constants were declared `const`; nested function scopes share
	// their enclosing script's set via the pointer.
	globalConsts map[string]bool
}

// classScope tracks the chain of classes currently being compiled so that
// `this` is only valid inside one.
type classScope struct {
	enclosing *classScope
}

// Compiler drives the scanner and builds a top-level object.Function.
type Compiler struct {
	scanner *scanner.Scanner
	interner interner

	previous token.Token
	current  token.Token

	hadError  bool
	panicMode bool
	errs      []error

	cur   *funcScope
	class *classScope
}

// interner is the narrow slice of *gc.Collector the compiler needs: it
// creates interned String constants for identifiers and string literals so
// that the same bytes always yield the same object the machine will later
// compare by identity.
type interner interface {
	InternString(string) *object.String
	NewFunction(*object.String) *object.Function
}

var _ interner = (*gc.Collector)(nil)

// Compile compiles source into a top-level script Function, or returns the
// accumulated compile errors if any production failed. Compiling also
// allocates objects (interned strings, nested Functions) through collector,
// so collector's root marker is pushed for the duration of the call: a GC
// cycle triggered mid-compile (e.g. by a very large program) must not sweep
// functions still under construction.
func Compile(source string, collector *gc.Collector, opts Options) (*object.Function, error) {
	c := &Compiler{
		scanner:  scanner.New(source),
		interner: collector,
	}
	collector.PushRootMarker(c)
	defer collector.PopRootMarker()

	// allocate the script function before its scope becomes c.cur, so a
	// cycle triggered by this allocation never marks a scope without one.
	script := collector.NewFunction(nil)
	c.cur = &funcScope{typ: TypeScript, globalConsts: map[string]bool{}, opts: opts, fn: script}
	c.cur.locals = append(c.cur.locals, local{depth: 0})

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFunction()

	if c.hadError {
		return nil, &CompileError{Errs: c.errs}
	}
	return fn, nil
}

// MarkRoots implements gc.RootMarker: every Function belonging to a
// funcScope still on the compiler's stack must survive a mid-compile
// collection, along with its partially-built constant pool.
func (c *Compiler) MarkRoots(gcc *gc.Collector) {
	for fs := c.cur; fs != nil; fs = fs.enclosing {
		gcc.MarkObject(fs.fn)
	}
}

// CompileError aggregates every diagnostic produced during one compilation;
// it implements error with a multi-line message in "[line N] Error ...: ..."
// form.
type CompileError struct {
	Errs []error
}

func (e *CompileError) Error() string {
	s := ""
	for i, err := range e.Errs {
		if i > 0 {
			s += "\n"
		}
		s += err.Error()
	}
	return s
}

func (e *CompileError) Unwrap() []error { return e.Errs }

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Kind != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// --- error reporting ---

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := ""
	switch tok.Kind {
	case token.EOF:
		where = " at end"
	case token.ERROR:
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errs = append(c.errs, fmt.Errorf("[line %d] Error%s: %s", tok.Line, where, msg))
}

// synchronize fast-forwards to the next statement boundary after a parse
// error, so the compiler can keep accumulating diagnostics instead of
// stopping at the first one.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMICOLON {
			return
		}
		switch c.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.CONST, token.FOR,
			token.IF, token.WHILE, token.MATCH, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---

func (c *Compiler) chunk() *object.Chunk { return &c.cur.fn.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op bytecode.Op) { c.emitByte(byte(op)) }

func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

// emitOpWithOperand picks the short or long encoding of an opcode pair
// depending on whether value fits in a byte.
func (c *Compiler) emitOpWithOperand(short bytecode.Op, value int) {
	long := short.LongForm()
	if c.cur.opts.ForceLongOps || value > 0xff {
		c.emitOp(long)
		c.emitUint32(uint32(value))
		return
	}
	c.emitOp(short)
	c.emitByte(byte(value))
}

func (c *Compiler) emitUint32(v uint32) {
	c.emitByte(byte(v))
	c.emitByte(byte(v >> 8))
	c.emitByte(byte(v >> 16))
	c.emitByte(byte(v >> 24))
}

func (c *Compiler) emitUint16At(offset int, v uint16) {
	code := c.chunk().Code
	code[offset] = byte(v)
	code[offset+1] = byte(v >> 8)
}

func (c *Compiler) makeConstant(v object.Value) int { return c.chunk().AddConstant(v) }

func (c *Compiler) emitConstant(v object.Value) {
	c.emitOpWithOperand(bytecode.Constant, c.makeConstant(v))
}

func (c *Compiler) identifierConstant(tok token.Token) int {
	return c.makeConstant(object.FromObj(c.interner.InternString(tok.Lexeme)))
}

func (c *Compiler) emitJump(op bytecode.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	c.emitUint16At(offset, uint16(jump))
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.Loop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset))
	c.emitByte(byte(offset >> 8))
}

func (c *Compiler) emitReturn() {
	if c.cur.typ == TypeInitializer {
		c.emitOpWithOperand(bytecode.GetLocal, 0)
	} else {
		c.emitOp(bytecode.Nil)
	}
	c.emitOp(bytecode.Return)
}

// endFunction finalizes the current funcScope's Function, pops the scope,
// and returns the completed Function so the caller (either Compile for the
// top level, or function for nested functions) can emit a CLOSURE
// referencing it.
func (c *Compiler) endFunction() *object.Function {
	c.emitReturn()
	fn := c.cur.fn
	fn.UpvalueCount = len(c.cur.upvalues)
	c.cur = c.cur.enclosing
	return fn
}
