package compiler

import (
	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/token"
)

// matchStatement compiles `match expr { pattern [if guard]: stmt ... }`.
// The scrutinee is stored in a hidden local (`__match`) so every arm can
// re-read it without re-evaluating the expression. Per arm:
//
//	<bind pattern name to __match>  ; identifier patterns only, declared
//	                                ; before the guard so the guard can
//	                                ; reference the binding
//	<pattern test>                  ; wildcard/identifier push TRUE (they
//	                                ; always match); an expression pattern
//	                                ; pushes __match and the pattern value
//	                                ; then MATCH -> bool
//	JUMP_IF_FALSE nextCase; POP
//	<guard, default TRUE>           ; -> bool
//	JUMP_IF_FALSE nextCase; POP
//	<body>
//	<manually unwind arm locals>    ; this block exits via JUMP, not endScope
//	JUMP exit
//	nextCase: POP                   ; discard the bool that landed here
//	<POP binding, if any>           ; the failure path still holds it
//
// MATCH's two operands are plain temporaries, distinct from any local the
// pattern binds -- binding a local to one of MATCH's operands would have
// MATCH illegally pop part of the operand stack a declared local still
// occupies.
func (c *Compiler) matchStatement() {
	c.beginScope()

	c.expression()
	scrutinee := token.Token{Kind: token.IDENTIFIER, Lexeme: "__match", Line: c.previous.Line}
	c.addLocal(scrutinee, true)
	c.markInitialized()

	c.consume(token.LEFTBRACE, "Expect '{' after match expression.")

	var exitJumps []int
	for !c.check(token.RIGHTBRACE) && !c.check(token.EOF) {
		c.beginScope()

		isBind := c.pattern(scrutinee)

		nextCase := c.emitJump(bytecode.JumpIfFalse)
		c.emitOp(bytecode.Pop)

		if c.match(token.IF) {
			c.expression()
		} else {
			c.emitOp(bytecode.True)
		}
		nextCase2 := c.emitJump(bytecode.JumpIfFalse)
		c.emitOp(bytecode.Pop)

		c.consume(token.COLON, "Expect ':' after pattern.")
		c.statement()

		// Manually unwind every local this arm introduced (the pattern
		// binder, and anything the body itself scoped) since the arm exits
		// by JUMP rather than falling out through endScope.
		target := c.cur.scopeDepth - 1
		for len(c.cur.locals) > 0 && c.cur.locals[len(c.cur.locals)-1].depth > target {
			last := c.cur.locals[len(c.cur.locals)-1]
			if last.isCaptured {
				c.emitOp(bytecode.CloseUpvalue)
			} else {
				c.emitOp(bytecode.Pop)
			}
			c.cur.locals = c.cur.locals[:len(c.cur.locals)-1]
		}

		exitJumps = append(exitJumps, c.emitJump(bytecode.Jump))

		c.patchJump(nextCase)
		c.patchJump(nextCase2)
		c.emitOp(bytecode.Pop)
		if isBind {
			// the rejected arm still holds the scrutinee copy its binder
			// occupied
			c.emitOp(bytecode.Pop)
		}

		c.endScope()
	}
	c.consume(token.RIGHTBRACE, "Expect '}' after match arms.")

	for _, j := range exitJumps {
		c.patchJump(j)
	}
	c.endScope()
}

// pattern compiles one arm's pattern, leaving exactly one boolean-ish test
// value on the stack. A wildcard `_` always matches and binds nothing; any
// other bare identifier always matches and is declared as a const local
// holding the scrutinee, visible to the arm's guard and body; any other
// token starts a plain expression compared against the scrutinee with
// MATCH (structurally, or by membership for a Range pattern against a
// Number). Reports whether a binding local was declared.
func (c *Compiler) pattern(scrutinee token.Token) (isBind bool) {
	if c.check(token.IDENTIFIER) {
		nameTok := c.current
		c.advance()
		if nameTok.Lexeme == "_" {
			c.emitOp(bytecode.True)
			return false
		}
		c.namedVariable(scrutinee, false)
		c.addLocal(nameTok, true)
		c.markInitialized()
		c.emitOp(bytecode.True)
		return true
	}
	c.namedVariable(scrutinee, false)
	c.expression()
	c.emitOp(bytecode.Match)
	return false
}
