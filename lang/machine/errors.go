package machine

import (
	"errors"
	"fmt"
	"strings"
)

// errStackOverflow is raised by push when the operand stack is full and by
// call when the frame stack is full; the dispatch loop converts it into a
// regular runtime error with a backtrace.
var errStackOverflow = errors.New("Stack overflow.")

// RuntimeError is the error kind returned by Interpret when execution
// failed: the offending message plus one backtrace line per live frame,
// newest first. The VM is reset before the error is returned, so the
// embedder can keep using it.
type RuntimeError struct {
	Msg   string
	Trace []TraceFrame
}

// TraceFrame is one line of a runtime-error backtrace.
type TraceFrame struct {
	Line     int
	Function string // empty for the top-level script
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Msg)
	for _, tf := range e.Trace {
		sb.WriteByte('\n')
		if tf.Function == "" {
			fmt.Fprintf(&sb, "[line %d] in script", tf.Line)
		} else {
			fmt.Fprintf(&sb, "[line %d] in %s()", tf.Line, tf.Function)
		}
	}
	return sb.String()
}

// runtimeError wraps err with the current backtrace and resets the VM. An
// error that is already a *RuntimeError (from a nested dispatch loop that
// unwound first) passes through untouched.
func (vm *VM) runtimeError(err error) error {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		vm.resetStack()
		return rerr
	}

	re := &RuntimeError{Msg: err.Error()}
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Fn
		line := 0
		if ip := fr.ip - 1; ip >= 0 && ip < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[ip]
		}
		tf := TraceFrame{Line: line}
		if fn.Name != nil {
			tf.Function = fn.Name.Chars
		}
		re.Trace = append(re.Trace, tf)
	}
	vm.resetStack()
	return re
}
