package compiler

import (
	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/object"
	"github.com/mna/corelang/lang/token"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration(false)
	case c.match(token.CONST):
		c.varDeclaration(true)
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.MATCH):
		c.matchStatement()
	case c.match(token.LEFTBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RIGHTBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHTBRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(bytecode.Print)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(bytecode.Pop)
}

func (c *Compiler) returnStatement() {
	if c.cur.typ == TypeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.cur.typ == TypeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(bytecode.Return)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LEFTPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RIGHTPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)
	c.statement()

	elseJump := c.emitJump(bytecode.Jump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.Pop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LEFTPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RIGHTPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.Pop)
}

func (c *Compiler) forStatement() {
	if !c.check(token.LEFTPAREN) {
		c.forInStatement()
		return
	}

	c.beginScope()
	c.consume(token.LEFTPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
	case c.match(token.CONST):
		c.varDeclaration(true)
	case c.match(token.VAR):
		c.varDeclaration(false)
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.JumpIfFalse)
		c.emitOp(bytecode.Pop)
	}

	if !c.match(token.RIGHTPAREN) {
		bodyJump := c.emitJump(bytecode.Jump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.Pop)
		c.consume(token.RIGHTPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.Pop)
	}
	c.endScope()
}

// forInStatement compiles `for v in expr body` via two hidden locals,
// `__iter` (the integer cursor) and `__range` (the iterable): the
// condition tests RANGE_IN_BOUNDS, the body binds v with
// INDEX_SUBSCR, and the increment uses INCREMENT + LOOP.
func (c *Compiler) forInStatement() {
	c.beginScope()

	c.consume(token.IDENTIFIER, "Expected variable after 'for'.")
	loopVar := c.previous

	iterTok := token.Token{Kind: token.IDENTIFIER, Lexeme: "__iter", Line: loopVar.Line}
	c.addLocal(iterTok, false)
	c.emitConstant(object.Number(0))
	c.markInitialized()

	c.consume(token.IN, "Expect 'in' after loop variable.")

	rangeTok := token.Token{Kind: token.IDENTIFIER, Lexeme: "__range", Line: loopVar.Line}
	c.addLocal(rangeTok, false)
	c.expression()
	c.markInitialized()

	loopStart := len(c.chunk().Code)

	c.namedVariable(rangeTok, false)
	c.namedVariable(iterTok, false)
	c.emitOp(bytecode.RangeInBounds)

	exitJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)

	c.beginScope()
	c.addLocal(loopVar, false)
	c.namedVariable(rangeTok, false)
	c.namedVariable(iterTok, false)
	c.emitOp(bytecode.IndexSubscr)
	c.markInitialized()

	c.statement()
	c.endScope()

	// Increment: GET_LOCAL pushes a fresh copy, INCREMENT bumps the copy
	// (it never mutates the slot in place), so the
	// write-back needs an explicit SET_LOCAL followed by a POP of the
	// leftover copy that SET_LOCAL, by design, does not consume.
	iterIdx := c.resolveLocal(c.cur, iterTok)
	c.namedVariable(iterTok, false)
	c.emitOp(bytecode.Increment)
	c.emitOpWithOperand(bytecode.SetLocal, iterIdx)
	c.emitOp(bytecode.Pop)

	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.Pop)

	c.endScope()
}
