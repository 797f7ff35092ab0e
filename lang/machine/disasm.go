package machine

import (
	"fmt"
	"io"

	"github.com/mna/corelang/lang/bytecode"
	"github.com/mna/corelang/lang/object"
)

// Disassemble writes a human-readable listing of fn's chunk to w. The
// bytecode has no on-disk form; this is a diagnostic view of the in-memory
// encoding, one line per instruction with its offset, source line and
// decoded operands.
func Disassemble(w io.Writer, fn *object.Function) error {
	fmt.Fprintf(w, "== %s ==\n", functionLabel(fn))
	chunk := &fn.Chunk
	for offset := 0; offset < len(chunk.Code); {
		next, err := disassembleInstruction(w, chunk, offset)
		if err != nil {
			return err
		}
		offset = next
	}
	return nil
}

// DisassembleAll disassembles fn and, recursively, every Function in its
// constant pool, covering the whole compiled program from the top-level
// script down.
func DisassembleAll(w io.Writer, fn *object.Function) error {
	if err := Disassemble(w, fn); err != nil {
		return err
	}
	for _, c := range fn.Chunk.Constants {
		if c.Is(object.ObjTypeFunction) {
			fmt.Fprintln(w)
			if err := DisassembleAll(w, c.AsObj().(*object.Function)); err != nil {
				return err
			}
		}
	}
	return nil
}

// InstructionWidths walks chunk decoding every instruction and returns the
// total width consumed. A well-formed chunk consumes exactly len(Code)
// bytes; tests use this to establish the operand-width invariant.
func InstructionWidths(chunk *object.Chunk) (int, error) {
	total := 0
	for total < len(chunk.Code) {
		w, err := instructionWidth(chunk, total)
		if err != nil {
			return total, err
		}
		total += w
	}
	return total, nil
}

func functionLabel(fn *object.Function) string {
	if fn.Name == nil {
		return "script"
	}
	return fn.Name.Chars
}

// instructionWidth returns the full byte width of the instruction at
// offset, including the opcode itself and any operands (and, for CLOSURE,
// the trailing upvalue descriptor pairs).
func instructionWidth(chunk *object.Chunk, offset int) (int, error) {
	op := bytecode.Op(chunk.Code[offset])
	operand := 1
	if op.IsLong() {
		operand = 4
	}

	switch op.ShortForm() {
	case bytecode.Nil, bytecode.True, bytecode.False, bytecode.Pop,
		bytecode.Equal, bytecode.Match, bytecode.Greater, bytecode.Less,
		bytecode.Negate, bytecode.Add, bytecode.Subtract, bytecode.Multiply,
		bytecode.Divide, bytecode.Modulo, bytecode.Increment,
		bytecode.BuildRange, bytecode.IndexSubscr, bytecode.StoreSubscr,
		bytecode.RangeInBounds, bytecode.Not, bytecode.Print,
		bytecode.CloseUpvalue, bytecode.Return:
		return 1, nil

	case bytecode.GetUpvalue, bytecode.SetUpvalue:
		return 2, nil

	case bytecode.Constant, bytecode.GetLocal, bytecode.SetLocal,
		bytecode.GetGlobal, bytecode.DefineGlobal, bytecode.SetGlobal,
		bytecode.GetProperty, bytecode.SetProperty,
		bytecode.Class, bytecode.Method:
		return 1 + operand, nil

	case bytecode.Call, bytecode.BuildList:
		return 2, nil

	case bytecode.Jump, bytecode.JumpIfFalse, bytecode.Loop:
		return 3, nil

	case bytecode.Invoke:
		return 1 + operand + 1, nil

	case bytecode.Closure:
		idx := readOperandAt(chunk, offset+1, op)
		fn, ok := constantFunction(chunk, idx)
		if !ok {
			return 0, fmt.Errorf("CLOSURE at offset %d references constant %d, not a function", offset, idx)
		}
		return 1 + operand + 2*fn.UpvalueCount, nil
	}
	return 0, fmt.Errorf("unknown opcode %d at offset %d", byte(op), offset)
}

func readOperandAt(chunk *object.Chunk, at int, op bytecode.Op) int {
	if op.IsLong() {
		return int(chunk.Code[at]) | int(chunk.Code[at+1])<<8 |
			int(chunk.Code[at+2])<<16 | int(chunk.Code[at+3])<<24
	}
	return int(chunk.Code[at])
}

func constantFunction(chunk *object.Chunk, idx int) (*object.Function, bool) {
	if idx < 0 || idx >= len(chunk.Constants) {
		return nil, false
	}
	c := chunk.Constants[idx]
	if !c.Is(object.ObjTypeFunction) {
		return nil, false
	}
	return c.AsObj().(*object.Function), true
}

func disassembleInstruction(w io.Writer, chunk *object.Chunk, offset int) (int, error) {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := bytecode.Op(chunk.Code[offset])
	width, err := instructionWidth(chunk, offset)
	if err != nil {
		return 0, err
	}

	switch op.ShortForm() {
	case bytecode.Constant, bytecode.GetGlobal, bytecode.DefineGlobal,
		bytecode.SetGlobal, bytecode.GetProperty, bytecode.SetProperty,
		bytecode.Class, bytecode.Method:
		idx := readOperandAt(chunk, offset+1, op)
		fmt.Fprintf(w, "%-18s %4d '%s'\n", op, idx, chunk.Constants[idx])

	case bytecode.GetLocal, bytecode.SetLocal:
		fmt.Fprintf(w, "%-18s %4d\n", op, readOperandAt(chunk, offset+1, op))

	case bytecode.GetUpvalue, bytecode.SetUpvalue, bytecode.Call, bytecode.BuildList:
		fmt.Fprintf(w, "%-18s %4d\n", op, chunk.Code[offset+1])

	case bytecode.Jump, bytecode.JumpIfFalse:
		jump := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8
		fmt.Fprintf(w, "%-18s %4d -> %d\n", op, offset, offset+3+jump)

	case bytecode.Loop:
		jump := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8
		fmt.Fprintf(w, "%-18s %4d -> %d\n", op, offset, offset+3-jump)

	case bytecode.Invoke:
		idx := readOperandAt(chunk, offset+1, op)
		argc := chunk.Code[offset+width-1]
		fmt.Fprintf(w, "%-18s (%d args) %4d '%s'\n", op, argc, idx, chunk.Constants[idx])

	case bytecode.Closure:
		idx := readOperandAt(chunk, offset+1, op)
		fn, _ := constantFunction(chunk, idx)
		fmt.Fprintf(w, "%-18s %4d %s\n", op, idx, chunk.Constants[idx])
		operand := 1
		if op.IsLong() {
			operand = 4
		}
		at := offset + 1 + operand
		for i := 0; i < fn.UpvalueCount; i++ {
			kind := "upvalue"
			if chunk.Code[at] == 1 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d    |                     %s %d\n", at, kind, chunk.Code[at+1])
			at += 2
		}

	default:
		fmt.Fprintf(w, "%s\n", op)
	}
	return offset + width, nil
}
