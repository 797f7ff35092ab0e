package compiler_test

import (
	"testing"

	"github.com/mna/corelang/lang/compiler"
	"github.com/mna/corelang/lang/gc"
	"github.com/mna/corelang/lang/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) *object.Function {
	t.Helper()
	fn, err := compiler.Compile(src, gc.New(), compiler.Options{})
	require.NoError(t, err)
	return fn
}

// findFunction looks up a nested compiled function by name in fn's
// constant pool, recursively.
func findFunction(fn *object.Function, name string) *object.Function {
	for _, c := range fn.Chunk.Constants {
		if !c.Is(object.ObjTypeFunction) {
			continue
		}
		nested := c.AsObj().(*object.Function)
		if nested.Name != nil && nested.Name.Chars == name {
			return nested
		}
		if found := findFunction(nested, name); found != nil {
			return found
		}
	}
	return nil
}

func TestCompileScript(t *testing.T) {
	fn := compile(t, `print 1 + 2;`)
	assert.Nil(t, fn.Name, "top-level function is unnamed")
	assert.Equal(t, 0, fn.Arity)
	assert.Equal(t, 0, fn.UpvalueCount)
	assert.NotEmpty(t, fn.Chunk.Code)
	assert.Equal(t, len(fn.Chunk.Code), len(fn.Chunk.Lines))
}

func TestCompileFunctionMetadata(t *testing.T) {
	fn := compile(t, `fun add(a, b) { return a + b; }`)
	add := findFunction(fn, "add")
	require.NotNil(t, add)
	assert.Equal(t, 2, add.Arity)
	assert.Equal(t, 0, add.UpvalueCount)
	assert.Equal(t, "<fn add>", add.String())
}

func TestCompileUpvalues(t *testing.T) {
	fn := compile(t, `
		fun outer() {
			var a = 1;
			var b = 2;
			fun middle() {
				fun inner() { return a + b; }
				return inner;
			}
			return middle;
		}`)

	inner := findFunction(fn, "inner")
	require.NotNil(t, inner)
	assert.Equal(t, 2, inner.UpvalueCount)

	// middle captures a and b only to forward them to inner
	middle := findFunction(fn, "middle")
	require.NotNil(t, middle)
	assert.Equal(t, 2, middle.UpvalueCount)

	outer := findFunction(fn, "outer")
	require.NotNil(t, outer)
	assert.Equal(t, 0, outer.UpvalueCount)
}

func TestCompileErrorList(t *testing.T) {
	_, err := compiler.Compile("var 1;\nprint missing(;\n", gc.New(), compiler.Options{})
	var cerr *compiler.CompileError
	require.ErrorAs(t, err, &cerr)
	require.NotEmpty(t, cerr.Errs)
	for _, e := range cerr.Errs {
		assert.Regexp(t, `^\[line \d+\] Error`, e.Error())
	}
}

func TestCompileConstEnforcedThroughClosure(t *testing.T) {
	_, err := compiler.Compile(`
		fun outer() {
			const k = 1;
			fun middle() {
				fun inner() { k = 2; }
			}
		}`, gc.New(), compiler.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't reassign a const variable.")
}

func TestCompileGlobalConstInsideFunction(t *testing.T) {
	_, err := compiler.Compile(`const g = 1; fun f() { g = 2; }`, gc.New(), compiler.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't reassign a const variable.")
}

func TestCompileConstantDedup(t *testing.T) {
	fn := compile(t, `print 2 + 2 + 2;`)
	count := 0
	for _, c := range fn.Chunk.Constants {
		if c.IsNumber() && c.AsNumber() == 2 {
			count++
		}
	}
	assert.Equal(t, 1, count, "repeated literal shares one constant slot")
}

func TestCompileInitializerReturnsThis(t *testing.T) {
	fn := compile(t, `class C { init() { this.x = 1; } }`)
	init := findFunction(fn, "init")
	require.NotNil(t, init)
	assert.Equal(t, 0, init.Arity)
}
