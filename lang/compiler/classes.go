package compiler

import (
	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/object"
	"github.com/mna/corelang/lang/token"
)

// function compiles a parameter list and body into a new nested Function,
// then emits a CLOSURE referencing it plus the (is_local, index) byte pair
// for each upvalue the body captured.
func (c *Compiler) function(typ FunctionType) {
	nameTok := c.previous
	fs := &funcScope{
		enclosing:    c.cur,
		typ:          typ,
		opts:         c.cur.opts,
		globalConsts: c.cur.globalConsts,
	}
	fs.fn = c.interner.NewFunction(c.interner.InternString(nameTok.Lexeme))
	c.cur = fs
	c.beginScope()

	// Slot 0 is the implicit receiver for methods/initializers, an empty
	// placeholder otherwise.
	this0 := local{depth: 0}
	if typ == TypeMethod || typ == TypeInitializer {
		this0.name = token.Token{Kind: token.THIS, Lexeme: "this"}
	}
	c.cur.locals = append(c.cur.locals, this0)

	c.consume(token.LEFTPAREN, "Expect '(' after function name.")
	if !c.check(token.RIGHTPAREN) {
		for {
			c.cur.fn.Arity++
			if c.cur.fn.Arity > maxArgs {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.", false)
			c.defineVariable(constant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHTPAREN, "Expect ')' after parameters.")
	c.consume(token.LEFTBRACE, "Expect '{' before function body.")
	c.block()

	fn := c.endFunction()
	constant := c.makeConstant(object.FromObj(fn))
	c.emitOpWithOperand(bytecode.Closure, constant)
	for _, uv := range fs.upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
}

// method compiles `name(params) { body }` inside a class body. A method
// literally named "init" compiles as an initializer, the class's fast-path
// constructor.
func (c *Compiler) method() {
	c.consume(token.IDENTIFIER, "Expect method name.")
	nameConstant := c.identifierConstant(c.previous)

	typ := TypeMethod
	if c.previous.Lexeme == "init" {
		typ = TypeInitializer
	}
	c.function(typ)
	c.emitOpWithOperand(bytecode.Method, nameConstant)
}

// classDeclaration compiles `class Name { method... }`: CLASS emits an
// empty class bound to the name, then one METHOD opcode per member
// populates its method table.
func (c *Compiler) classDeclaration() {
	c.consume(token.IDENTIFIER, "Expect class name.")
	className := c.previous
	nameConstant := c.identifierConstant(className)
	c.declareVariable(false)

	c.emitOpWithOperand(bytecode.Class, nameConstant)
	c.defineVariable(nameConstant)

	enclosingClass := c.class
	c.class = &classScope{enclosing: enclosingClass}

	c.namedVariable(className, false)
	c.consume(token.LEFTBRACE, "Expect '{' before class body.")
	for !c.check(token.RIGHTBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RIGHTBRACE, "Expect '}' after class body.")
	c.emitOp(bytecode.Pop)

	c.class = enclosingClass
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.", false)
	c.markInitialized()
	c.function(TypeFunction)
	c.defineVariable(global)
}
