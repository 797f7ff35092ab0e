package compiler

import (
	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/token"
)

func (c *Compiler) beginScope() { c.cur.scopeDepth++ }

// endScope pops every local declared in the scope just left, emitting
// CLOSE_UPVALUE for locals that were captured by a nested closure (so their
// upvalue is severed from this frame) and POP otherwise.
func (c *Compiler) endScope() {
	c.cur.scopeDepth--
	for len(c.cur.locals) > 0 && c.cur.locals[len(c.cur.locals)-1].depth > c.cur.scopeDepth {
		last := c.cur.locals[len(c.cur.locals)-1]
		if last.isCaptured {
			c.emitOp(bytecode.CloseUpvalue)
		} else {
			c.emitOp(bytecode.Pop)
		}
		c.cur.locals = c.cur.locals[:len(c.cur.locals)-1]
	}
}

func identifiersEqual(a, b token.Token) bool { return a.Lexeme == b.Lexeme }

// addLocal reserves a new local slot for name at the current scope depth.
// Its depth starts "uninitialized" until markInitialized runs, so that a
// reference to the variable within its own initializer is caught by
// resolveLocal.
func (c *Compiler) addLocal(name token.Token, isConst bool) {
	if len(c.cur.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.cur.locals = append(c.cur.locals, local{name: name, depth: uninitialized, isConst: isConst})
}

// declareVariable binds c.previous as a new local in the current scope
// (a no-op at global scope, where declarations are resolved dynamically by
// name through the globals table instead).
func (c *Compiler) declareVariable(isConst bool) {
	if c.cur.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := len(c.cur.locals) - 1; i >= 0; i-- {
		l := c.cur.locals[i]
		if l.depth != uninitialized && l.depth < c.cur.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name, isConst)
}

// parseVariable consumes an identifier token and declares it, returning the
// constant-pool index of its name (only meaningful for a global; locals
// resolve by stack position instead).
func (c *Compiler) parseVariable(msg string, isConst bool) int {
	c.consume(token.IDENTIFIER, msg)
	c.declareVariable(isConst)
	if c.cur.scopeDepth > 0 {
		return 0
	}
	constant := c.identifierConstant(c.previous)
	if isConst {
		c.cur.globalConsts[c.previous.Lexeme] = true
	}
	return constant
}

// markInitialized records the current scope depth on the most recently
// added local, making it visible to resolveLocal; at global scope there is
// no local to mark.
func (c *Compiler) markInitialized() {
	if c.cur.scopeDepth == 0 {
		return
	}
	c.cur.locals[len(c.cur.locals)-1].depth = c.cur.scopeDepth
}

// defineVariable finishes a declaration: a local was already made visible
// by markInitialized, so only a global needs an explicit DEFINE_GLOBAL.
func (c *Compiler) defineVariable(global int) {
	if c.cur.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpWithOperand(bytecode.DefineGlobal, global)
}

// resolveLocal walks the current scope's locals backward looking for name,
// reporting a compile error if the match is still uninitialized (reading a
// local in its own initializer).
func (c *Compiler) resolveLocal(fs *funcScope, name token.Token) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if identifiersEqual(name, l.name) {
			if l.depth == uninitialized {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) addUpvalue(fs *funcScope, index uint8, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) >= maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}

// resolveUpvalue recursively resolves name in an enclosing scope, marking
// the captured local so the enclosing frame knows to close it on return,
// and records a chain of upvalue entries down to the requesting scope.
func (c *Compiler) resolveUpvalue(fs *funcScope, name token.Token) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fs, uint8(local), true)
	}
	if up := c.resolveUpvalue(fs.enclosing, name); up != -1 {
		return c.addUpvalue(fs, uint8(up), false)
	}
	return -1
}

func (c *Compiler) isLocalConst(fs *funcScope, index int) bool { return fs.locals[index].isConst }

// isUpvalueConst walks the upvalue chain back to the local (or transitive
// upvalue) it was captured from, so assigning through several layers of
// closure still enforces const.
func (c *Compiler) isUpvalueConst(fs *funcScope, index int) bool {
	if fs.enclosing == nil {
		return false
	}
	uv := fs.upvalues[index]
	if uv.isLocal {
		return fs.enclosing.locals[uv.index].isConst
	}
	return c.isUpvalueConst(fs.enclosing, int(uv.index))
}

func (c *Compiler) isGlobalConst(name string) bool { return c.cur.globalConsts[name] }

// namedVariable resolves name to a local, upvalue, or global, emitting a
// GET or SET depending on whether an assignment follows (canAssign) and
// enforcing const-ness before emitting a SET. Callers that pass
// canAssign=false always get a GET, regardless of what follows -- used by
// desugared constructs (e.g. for-in's hidden locals, match arm reads) that
// are never assignment targets.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp bytecode.Op
	arg := c.resolveLocal(c.cur, name)
	isLocal := arg != -1
	isUpvalue := false
	if !isLocal {
		arg = c.resolveUpvalue(c.cur, name)
		isUpvalue = arg != -1
	}

	switch {
	case isLocal:
		getOp, setOp = bytecode.GetLocal, bytecode.SetLocal
	case isUpvalue:
		getOp, setOp = bytecode.GetUpvalue, bytecode.SetUpvalue
	default:
		arg = c.identifierConstant(name)
		getOp, setOp = bytecode.GetGlobal, bytecode.SetGlobal
	}

	if canAssign && c.match(token.EQUAL) {
		isConst := false
		switch {
		case isLocal:
			isConst = c.isLocalConst(c.cur, arg)
		case isUpvalue:
			isConst = c.isUpvalueConst(c.cur, arg)
		default:
			isConst = c.isGlobalConst(name.Lexeme)
		}
		if isConst {
			c.error("Can't reassign a const variable.")
		}
		c.expression()
		if isUpvalue {
			c.emitOp(setOp)
			c.emitByte(byte(arg))
		} else {
			c.emitOpWithOperand(setOp, arg)
		}
		return
	}

	if isUpvalue {
		c.emitOp(getOp)
		c.emitByte(byte(arg))
		return
	}
	c.emitOpWithOperand(getOp, arg)
}

// varDeclaration compiles `var name [= expr];` or, when isConst, `const
// name = expr;`.
func (c *Compiler) varDeclaration(isConst bool) {
	global := c.parseVariable("Expect variable name.", isConst)
	if c.match(token.EQUAL) {
		c.expression()
	} else {
		if isConst {
			c.error("Const declaration requires an initializer.")
		}
		c.emitOp(bytecode.Nil)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}
