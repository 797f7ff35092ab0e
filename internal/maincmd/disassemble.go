package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/corelang/lang/compiler"
	"github.com/mna/corelang/lang/gc"
	"github.com/mna/corelang/lang/machine"
	"github.com/mna/mainer"
)

// Disassemble compiles each file and prints the bytecode listing of the
// top-level script and every nested function.
func (c *Cmd) Disassemble(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		collector := gc.New()
		fn, err := compiler.Compile(string(b), collector, compiler.Options{ForceLongOps: c.ForceLongOps})
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		if err := machine.DisassembleAll(stdio.Stdout, fn); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
	}
	return nil
}
