package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/corelang/internal/natives"
	"github.com/mna/corelang/lang/machine"
	"github.com/mna/mainer"
)

// Run compiles and executes each script file in order on a single machine,
// or starts a REPL on stdin when no file is given. Compile and runtime
// errors are printed to stderr in their "[line N] ..." form.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	vm := machine.New(machine.Options{
		Stdout:       stdio.Stdout,
		Stderr:       stdio.Stderr,
		Stdin:        stdio.Stdin,
		StressGC:     c.StressGC,
		ForceLongOps: c.ForceLongOps,
	})
	natives.Register(vm)

	if len(args) == 0 {
		return repl(ctx, vm, stdio)
	}

	for _, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		if err := vm.Interpret(string(b)); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
	}
	return nil
}

func repl(ctx context.Context, vm *machine.VM, stdio mainer.Stdio) error {
	sc := bufio.NewScanner(stdio.Stdin)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(stdio.Stdout, "> ")
		if !sc.Scan() {
			fmt.Fprintln(stdio.Stdout)
			break
		}
		if err := vm.Interpret(sc.Text()); err != nil {
			// REPL errors are reported and the loop keeps going; the machine
			// resets itself after a runtime error.
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
