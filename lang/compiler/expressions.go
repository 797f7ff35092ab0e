package compiler

import (
	"strconv"

	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/object"
	"github.com/mna/corelang/lang/token"
)

// Precedence levels, ascending.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * / %
	precUnary                 // ! -
	precRange                 // ..
	precCall                  // . ()
	precSubscript             // []
	precPrimary
)

func (p precedence) next() precedence { return p + 1 }

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rules is the Pratt precedence table keyed by token kind: for each token,
// the prefix production it can start, the infix production it can
// continue, and the minimum precedence at which the infix production binds.
// Kinds with no entry default to the zero parseRule (no prefix, no infix,
// precNone), which parsePrecedence treats as "not an expression token".
var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LEFTPAREN:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, prec: precCall},
		token.LEFTBRACKET:  {prefix: (*Compiler).list, infix: (*Compiler).subscript, prec: precSubscript},
		token.DOT:          {infix: (*Compiler).dot, prec: precCall},
		token.MINUS:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, prec: precTerm},
		token.PLUS:         {infix: (*Compiler).binary, prec: precTerm},
		token.SLASH:        {infix: (*Compiler).binary, prec: precFactor},
		token.STAR:         {infix: (*Compiler).binary, prec: precFactor},
		token.PERCENT:      {infix: (*Compiler).binary, prec: precFactor},
		token.BANG:         {prefix: (*Compiler).unary},
		token.BANGEQUAL:    {infix: (*Compiler).binary, prec: precEquality},
		token.EQUALEQUAL:   {infix: (*Compiler).binary, prec: precEquality},
		token.GREATER:      {infix: (*Compiler).binary, prec: precComparison},
		token.GREATEREQUAL: {infix: (*Compiler).binary, prec: precComparison},
		token.LESS:         {infix: (*Compiler).binary, prec: precComparison},
		token.LESSEQUAL:    {infix: (*Compiler).binary, prec: precComparison},
		token.DOTDOT:       {infix: (*Compiler).binary, prec: precRange},
		token.IDENTIFIER:   {prefix: (*Compiler).variable},
		token.STRING:       {prefix: (*Compiler).string},
		token.NUMBER:       {prefix: (*Compiler).number},
		token.AND:          {infix: (*Compiler).and_, prec: precAnd},
		token.OR:           {infix: (*Compiler).or_, prec: precOr},
		token.FALSE:        {prefix: (*Compiler).literal},
		token.NIL:          {prefix: (*Compiler).literal},
		token.TRUE:         {prefix: (*Compiler).literal},
		token.FUN:          {prefix: (*Compiler).funExpr},
		token.THIS:         {prefix: (*Compiler).this_},
	}
}

func (c *Compiler) getRule(k token.Kind) parseRule { return rules[k] }

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

// parsePrecedence is the core Pratt loop: consume a prefix production, then
// keep consuming infix productions whose token binds at least as tight as
// precedence. canAssign gates whether a trailing `=` is a valid assignment
// target: a target is only writable when it was parsed at or below
// assignment precedence.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := c.getRule(c.previous.Kind).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= c.getRule(c.current.Kind).prec {
		c.advance()
		infix := c.getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) binary(canAssign bool) {
	op := c.previous.Kind
	rule := c.getRule(op)
	c.parsePrecedence(rule.prec.next())

	switch op {
	case token.BANGEQUAL:
		c.emitOp(bytecode.Equal)
		c.emitOp(bytecode.Not)
	case token.EQUALEQUAL:
		c.emitOp(bytecode.Equal)
	case token.GREATER:
		c.emitOp(bytecode.Greater)
	case token.GREATEREQUAL:
		c.emitOp(bytecode.Less)
		c.emitOp(bytecode.Not)
	case token.LESS:
		c.emitOp(bytecode.Less)
	case token.LESSEQUAL:
		c.emitOp(bytecode.Greater)
		c.emitOp(bytecode.Not)
	case token.PLUS:
		c.emitOp(bytecode.Add)
	case token.MINUS:
		c.emitOp(bytecode.Subtract)
	case token.STAR:
		c.emitOp(bytecode.Multiply)
	case token.SLASH:
		c.emitOp(bytecode.Divide)
	case token.PERCENT:
		c.emitOp(bytecode.Modulo)
	case token.DOTDOT:
		c.emitOp(bytecode.BuildRange)
	}
}

// call compiles the `(args...)` suffix of a call expression.
func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOp(bytecode.Call)
	c.emitByte(argCount)
}

// dot compiles `.name`, `.name = expr`, or the fused `.name(args)` fast
// path (OP_INVOKE, which avoids allocating a BoundMethod for the common
// case of an immediately-called method).
func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENTIFIER, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous)

	switch {
	case canAssign && c.match(token.EQUAL):
		c.expression()
		c.emitOpWithOperand(bytecode.SetProperty, name)
	case c.match(token.LEFTPAREN):
		argCount := c.argumentList()
		c.emitOpWithOperand(bytecode.Invoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpWithOperand(bytecode.GetProperty, name)
	}
}

// subscript compiles `[index]`, `[index] = expr`, or a bare read, binding
// the index expression no looser than `or` so a top-level `,` (absent from
// this grammar) or assignment can't be swallowed by it.
func (c *Compiler) subscript(canAssign bool) {
	c.parsePrecedence(precOr)
	c.consume(token.RIGHTBRACKET, "Expect closing brackets ']'.")

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOp(bytecode.StoreSubscr)
		return
	}
	c.emitOp(bytecode.IndexSubscr)
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitOp(bytecode.False)
	case token.NIL:
		c.emitOp(bytecode.Nil)
	case token.TRUE:
		c.emitOp(bytecode.True)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RIGHTPAREN, "Expect ')' after expression.")
}

func (c *Compiler) number(canAssign bool) {
	v, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(object.Number(v))
}

// or_ short-circuits: if the left side is truthy, skip the right side
// entirely rather than evaluating and discarding it.
func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(bytecode.JumpIfFalse)
	endJump := c.emitJump(bytecode.Jump)

	c.patchJump(elseJump)
	c.emitOp(bytecode.Pop)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) string(canAssign bool) {
	raw := c.previous.Lexeme
	// strip the surrounding quotes
	chars := raw[1 : len(raw)-1]
	c.emitConstant(object.FromObj(c.interner.InternString(chars)))
}

func (c *Compiler) variable(canAssign bool) { c.namedVariable(c.previous, canAssign) }

func (c *Compiler) this_(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

func (c *Compiler) unary(canAssign bool) {
	op := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case token.MINUS:
		c.emitOp(bytecode.Negate)
	case token.BANG:
		c.emitOp(bytecode.Not)
	}
}

func (c *Compiler) funExpr(canAssign bool) { c.function(TypeFunction) }

// list compiles a `[e1, e2, ...]` literal, trailing comma allowed.
func (c *Compiler) list(canAssign bool) {
	itemCount := 0
	if !c.check(token.RIGHTBRACKET) {
		for {
			if c.check(token.RIGHTBRACKET) {
				break // trailing comma
			}
			c.parsePrecedence(precOr)
			if itemCount == 0xff {
				c.error("Cannot have more than 255 items in a list literal.")
			}
			itemCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHTBRACKET, "Expect ']' after list literal.")
	c.emitOp(bytecode.BuildList)
	c.emitByte(byte(itemCount))
}

func (c *Compiler) argumentList() byte {
	var argCount int
	if !c.check(token.RIGHTPAREN) {
		for {
			c.expression()
			if argCount == maxArgs {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHTPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}
