package maincmd_test

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/corelang/internal/filetest"
	"github.com/mna/corelang/internal/maincmd"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpdateRunTests = flag.Bool("test.update-run-tests", false, "If set, replace expected run outputs with actual.")

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func testStdio(stdin string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return mainer.Stdio{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

func TestRunScripts(t *testing.T) {
	files := filetest.SourceFiles(t, "testdata", ".cl")
	require.NotEmpty(t, files)

	for _, fi := range files {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			stdio, stdout, stderr := testStdio("")
			var c maincmd.Cmd
			err := c.Run(context.Background(), stdio, []string{filepath.Join("testdata", fi.Name())})
			require.NoError(t, err)
			require.Empty(t, stderr.String())
			filetest.DiffOutput(t, fi, stdout.String(), "testdata", testUpdateRunTests)
		})
	}
}

func TestRunScriptsStressGC(t *testing.T) {
	// every script must produce identical output with a collection on each
	// allocation
	files := filetest.SourceFiles(t, "testdata", ".cl")
	require.NotEmpty(t, files)

	for _, fi := range files {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			stdio, stdout, stderr := testStdio("")
			c := maincmd.Cmd{StressGC: true}
			err := c.Run(context.Background(), stdio, []string{filepath.Join("testdata", fi.Name())})
			require.NoError(t, err)
			require.Empty(t, stderr.String())
			filetest.DiffOutput(t, fi, stdout.String(), "testdata", testUpdateRunTests)
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	stdio, _, stderr := testStdio("")
	var c maincmd.Cmd
	err := c.Run(context.Background(), stdio, []string{filepath.Join("testdata", "nope.cl")})
	require.Error(t, err)
	assert.NotEmpty(t, stderr.String())
}

func TestRunReportsRuntimeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cl")
	writeTestFile(t, path, "print 1 + nil;\n")

	stdio, _, stderr := testStdio("")
	var c maincmd.Cmd
	err := c.Run(context.Background(), stdio, []string{path})
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Operands must be two numbers or two strings.")
	assert.Contains(t, stderr.String(), "[line 1] in script")
}

func TestRunReportsCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cl")
	writeTestFile(t, path, "var 1;\n")

	stdio, _, stderr := testStdio("")
	var c maincmd.Cmd
	err := c.Run(context.Background(), stdio, []string{path})
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "[line 1] Error at '1': Expect variable name.")
}

func TestRunREPL(t *testing.T) {
	stdio, stdout, stderr := testStdio("var a = 2;\nprint a + 3;\n")
	var c maincmd.Cmd
	err := c.Run(context.Background(), stdio, nil)
	require.NoError(t, err)
	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), "5\n")
}

func TestTokenize(t *testing.T) {
	stdio, stdout, _ := testStdio("")
	var c maincmd.Cmd
	path := filepath.Join("testdata", "fib.cl")
	err := c.Tokenize(context.Background(), stdio, []string{path})
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, path+":1: fun")
	assert.Contains(t, out, `IDENTIFIER "fib"`)
	assert.Contains(t, out, `NUMBER "2"`)
	assert.True(t, strings.HasSuffix(out, "EOF\n"))
}

func TestDisassemble(t *testing.T) {
	stdio, stdout, _ := testStdio("")
	var c maincmd.Cmd
	err := c.Disassemble(context.Background(), stdio, []string{filepath.Join("testdata", "fib.cl")})
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "== script ==")
	assert.Contains(t, out, "== fib ==")
	assert.Contains(t, out, "JUMP_IF_FALSE")
	assert.Contains(t, out, "RETURN")
}

func TestMainVersionAndHelp(t *testing.T) {
	stdio, stdout, _ := testStdio("")
	c := maincmd.Cmd{BuildVersion: "0.1.0", BuildDate: "2024-05-01"}
	code := c.Main([]string{"corelang", "--version"}, stdio)
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, stdout.String(), "corelang 0.1.0 2024-05-01")

	stdio, stdout, _ = testStdio("")
	code = c.Main([]string{"corelang", "--help"}, stdio)
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, stdout.String(), "usage: corelang")
}

func TestMainUnknownCommand(t *testing.T) {
	stdio, _, stderr := testStdio("")
	var c maincmd.Cmd
	code := c.Main([]string{"corelang", "frobnicate"}, stdio)
	assert.Equal(t, mainer.InvalidArgs, code)
	assert.Contains(t, stderr.String(), "unknown command")
}
