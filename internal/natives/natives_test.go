package natives_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/corelang/internal/natives"
	"github.com/mna/corelang/lang/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, src string, opts machine.Options) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts.Stdout = &out
	vm := machine.New(opts)
	natives.Register(vm)
	err := vm.Interpret(src)
	return out.String(), err
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	src := fmt.Sprintf(`
		print writeFile(%[1]q, "line one");
		print readFile(%[1]q);`, path)
	got, err := runScript(t, src, machine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true\nline one\n", got)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one", string(b))
}

func TestReadFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")
	got, err := runScript(t, fmt.Sprintf(`print readFile(%q);`, path), machine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "nil\n", got)
}

func TestWriteFileFailure(t *testing.T) {
	// writing into a missing directory reports false rather than erroring
	path := filepath.Join(t.TempDir(), "missing", "out.txt")
	got, err := runScript(t, fmt.Sprintf(`print writeFile(%q, "x");`, path), machine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "false\n", got)
}

func TestReadInput(t *testing.T) {
	opts := machine.Options{Stdin: strings.NewReader("hello\nworld\r\n")}
	got, err := runScript(t, `print readInput(); print readInput(); print readInput();`, opts)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\nnil\n", got)
}

func TestClock(t *testing.T) {
	got, err := runScript(t, `var t0 = clock(); print t0 > 0;`, machine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true\n", got)
}

func TestTypeMisuseYieldsNil(t *testing.T) {
	// natives signal misuse by returning nil, never by raising a runtime
	// error
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"sizeOf number", `print sizeOf(1);`, "nil\n"},
		{"push non-list", `print push(1, 2);`, "nil\n"},
		{"pop non-list", `print pop("s");`, "nil\n"},
		{"erase non-list", `print erase(nil, 0);`, "nil\n"},
		{"concat mismatch", `print concat([1], "x");`, "nil\n"},
		{"contains number", `print contains(9, 1);`, "nil\n"},
		{"contains string non-char", `print contains("hello", "ell");`, "nil\n"},
		{"indexOf range non-number", `print indexOf(1..3, "x");`, "nil\n"},
		{"findIf non-callable", `print findIf([1], 9);`, "nil\n"},
		{"map non-iterable", `print map(5, fun(x){ return x; });`, "nil\n"},
		{"reduce non-iterable", `print reduce(5, fun(a, b){ return a; }, 0);`, "nil\n"},
		{"inBounds non-number", `print inBounds([1], "x");`, "nil\n"},
		{"readFile number", `print readFile(1);`, "nil\n"},
		{"writeFile number path", `print writeFile(1, "x");`, "nil\n"},
		{"Math.abs string", `print Math.abs("x");`, "nil\n"},
		{"Math.min string", `print Math.min(1, "x");`, "nil\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := runScript(t, c.src, machine.Options{})
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestIterableNativesOverRangesAndStrings(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"map range", `print map(3..1, fun(x){ return x * 10; });`, "[30, 20, 10]\n"},
		{"filter range", `print filter(1..6, fun(x){ return x % 2 == 0; });`, "[2, 4, 6]\n"},
		{"reduce range", `print reduce(1..4, fun(a, b){ return a + b; }, 0);`, "10\n"},
		{"findIf string", `print findIf("abc", fun(c){ return c == "b"; });`, "b\n"},
		{"contains range", `print contains(1..5, 5); print contains(1..5, 3.5);`, "true\nfalse\n"},
		{"indexOf range", `print indexOf(3..1, 1); print indexOf(1..3, 9);`, "2\nnil\n"},
		{"indexOf string", `print indexOf("abc", "b"); print indexOf("abc", "z");`, "1\nnil\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := runScript(t, c.src, machine.Options{})
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestEraseOutOfBounds(t *testing.T) {
	got, err := runScript(t, `var l = [1]; print erase(l, 5); print l;`, machine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "nil\n[1]\n", got)
}

func TestHigherOrderWithCapture(t *testing.T) {
	src := `
		var total = 0;
		var kept = filter([1,2,3,4], fun(x) { total = total + x; return x > 2; });
		print kept;
		print total;`
	got, err := runScript(t, src, machine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "[3, 4]\n10\n", got)
}

func TestHigherOrderUnderStressGC(t *testing.T) {
	src := `
		var squares = map([1,2,3,4,5], fun(x) { return x * x; });
		print reduce(squares, fun(a, b) { return a + b; }, 0);`
	got, err := runScript(t, src, machine.Options{StressGC: true})
	require.NoError(t, err)
	assert.Equal(t, "55\n", got)
}
