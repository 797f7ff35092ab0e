package machine_test

import (
	"bytes"
	"testing"

	"github.com/mna/corelang/lang/compiler"
	"github.com/mna/corelang/lang/gc"
	"github.com/mna/corelang/lang/machine"
	"github.com/mna/corelang/lang/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widthPrograms = map[string]string{
	"arithmetic": `print 1 + 2 * 3 - 4 / 5 % 6;`,
	"variables":  `var a = 1; { var b = a; b = b + 1; print b; } a = a + 1;`,
	"control":    `if (1 < 2) { print "y"; } else { print "n"; } while (false) {} for (var i = 0; i < 3; i = i + 1) print i;`,
	"loops":      `for i in 1..3 { print i; } for v in [1, 2] { print v; }`,
	"match":      `match 3 { 1..5 if true: print "in"; n: print n; }`,
	"functions": `
		fun outer() {
			var x = 1;
			fun inner() { x = x + 1; return x; }
			return inner;
		}
		outer()();`,
	"classes": `
		class P {
			init(x) { this.x = x; }
			get() { return this.x; }
			toString() { return "" + this.x; }
		}
		var p = P(1);
		p.x = 2;
		print p.get();
		print p["x"];`,
	"lists": `var l = [1, 2, 3]; l[0] = 9; print l[0]; print l + [4];`,
}

// checkWidths verifies the chunk encoding invariants on fn and every nested
// function: decoded operand widths sum to the code length, and the line
// table parallels the code byte for byte.
func checkWidths(t *testing.T, fn *object.Function) {
	t.Helper()
	total, err := machine.InstructionWidths(&fn.Chunk)
	require.NoError(t, err)
	assert.Equal(t, len(fn.Chunk.Code), total)
	assert.Equal(t, len(fn.Chunk.Code), len(fn.Chunk.Lines))

	for _, c := range fn.Chunk.Constants {
		if c.Is(object.ObjTypeFunction) {
			checkWidths(t, c.AsObj().(*object.Function))
		}
	}
}

func TestInstructionWidths(t *testing.T) {
	for name, src := range widthPrograms {
		t.Run(name, func(t *testing.T) {
			fn, err := compiler.Compile(src, gc.New(), compiler.Options{})
			require.NoError(t, err)
			checkWidths(t, fn)
		})
	}
}

func TestInstructionWidthsForceLong(t *testing.T) {
	for name, src := range widthPrograms {
		t.Run(name, func(t *testing.T) {
			fn, err := compiler.Compile(src, gc.New(), compiler.Options{ForceLongOps: true})
			require.NoError(t, err)
			checkWidths(t, fn)
		})
	}
}

func TestForceLongGrowsCode(t *testing.T) {
	src := `var a = 1; print a + 2;`
	short, err := compiler.Compile(src, gc.New(), compiler.Options{})
	require.NoError(t, err)
	long, err := compiler.Compile(src, gc.New(), compiler.Options{ForceLongOps: true})
	require.NoError(t, err)
	assert.Greater(t, len(long.Chunk.Code), len(short.Chunk.Code))
}

func TestDisassembleOutput(t *testing.T) {
	fn, err := compiler.Compile(`fun f(x) { return x + 1; } print f(1);`, gc.New(), compiler.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, machine.DisassembleAll(&buf, fn))
	out := buf.String()

	assert.Contains(t, out, "== script ==")
	assert.Contains(t, out, "== f ==")
	assert.Contains(t, out, "CLOSURE")
	assert.Contains(t, out, "DEFINE_GLOBAL")
	assert.Contains(t, out, "ADD")
	assert.Contains(t, out, "PRINT")
	assert.Contains(t, out, "RETURN")
}
