package cfg

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Instruction is one decoded bytecode instruction: its position in the
// method's code array, its opcode, and its raw operand bytes. Operand
// decoding beyond what control-flow analysis needs (branch targets, switch
// tables) is left to callers — this package treats instructions as opaque
// payloads except for the control-flow-terminating kinds named in the spec.
type Instruction struct {
	PC       int
	Opcode   Opcode
	Operands []byte
}

// Length is the total byte length of the instruction, opcode included.
func (i Instruction) Length() int { return 1 + len(i.Operands) }

func (i Instruction) String() string {
	return fmt.Sprintf("%04d: 0x%02x", i.PC, uint8(i.Opcode))
}

// IsControlFlowTerminating reports whether this instruction may only be
// appended to a block via a graph operation.
func (i Instruction) IsControlFlowTerminating() bool {
	return i.Opcode.IsControlFlowTerminating()
}

// branchTarget returns the absolute PC a goto/if*/jsr instruction branches
// to: the instruction's own PC plus its signed 16-bit (or, for the _w forms,
// signed 32-bit) operand. Grounded on the source interpreter's
// branchPC-plus-offset arithmetic, where branchPC is the position of the
// opcode byte itself, not the byte following its operand.
func (i Instruction) branchTarget() int {
	if i.Opcode == OpGotoW || i.Opcode == OpJsrW {
		return i.PC + int(int32(binary.BigEndian.Uint32(i.Operands)))
	}
	return i.PC + int(int16(binary.BigEndian.Uint16(i.Operands)))
}

// switchCase is one (key -> absolute target PC) pairing decoded from a
// tableswitch or lookupswitch instruction.
type switchCase struct {
	Key    int32
	Target int
}

// decodeSwitch parses the operands of a tableswitch or lookupswitch
// instruction (the operands still begin with the alignment padding, which is
// skipped here), returning the default target and every explicit case.
func (i Instruction) decodeSwitch() (defaultTarget int, cases []switchCase, err error) {
	padding := (4 - (i.PC+1)%4) % 4
	b := i.Operands
	if len(b) < padding {
		return 0, nil, errors.Newf("cfg: truncated switch padding at pc %d", i.PC)
	}
	b = b[padding:]
	if len(b) < 4 {
		return 0, nil, errors.Newf("cfg: truncated switch operands at pc %d", i.PC)
	}
	defaultOffset := int32(binary.BigEndian.Uint32(b[:4]))
	defaultTarget = i.PC + int(defaultOffset)
	b = b[4:]

	switch i.Opcode {
	case OpTableswitch:
		if len(b) < 8 {
			return 0, nil, errors.Newf("cfg: truncated tableswitch bounds at pc %d", i.PC)
		}
		low := int32(binary.BigEndian.Uint32(b[:4]))
		high := int32(binary.BigEndian.Uint32(b[4:8]))
		b = b[8:]
		n := int(high-low) + 1
		if n < 0 || len(b) < n*4 {
			return 0, nil, errors.Newf("cfg: truncated tableswitch table at pc %d", i.PC)
		}
		cases = make([]switchCase, n)
		for idx := 0; idx < n; idx++ {
			off := int32(binary.BigEndian.Uint32(b[idx*4 : idx*4+4]))
			cases[idx] = switchCase{Key: low + int32(idx), Target: i.PC + int(off)}
		}

	case OpLookupswitch:
		if len(b) < 4 {
			return 0, nil, errors.Newf("cfg: truncated lookupswitch count at pc %d", i.PC)
		}
		n := int(int32(binary.BigEndian.Uint32(b[:4])))
		b = b[4:]
		if n < 0 || len(b) < n*8 {
			return 0, nil, errors.Newf("cfg: truncated lookupswitch table at pc %d", i.PC)
		}
		cases = make([]switchCase, n)
		for idx := 0; idx < n; idx++ {
			key := int32(binary.BigEndian.Uint32(b[idx*8 : idx*8+4]))
			off := int32(binary.BigEndian.Uint32(b[idx*8+4 : idx*8+8]))
			cases[idx] = switchCase{Key: key, Target: i.PC + int(off)}
		}

	default:
		return 0, nil, errors.Newf("cfg: %v is not a switch instruction", i.Opcode)
	}

	return defaultTarget, cases, nil
}

// decodeInstructions slices a method's raw code array into a linear sequence
// of Instructions, each tagged with its PC. It does not interpret operands
// beyond what is required to know their width (branch-table padding and
// count fields).
func decodeInstructions(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		op := Opcode(code[pc])
		length, err := instructionLength(code, pc)
		if err != nil {
			return nil, err
		}
		if pc+length > len(code) {
			return nil, errors.Newf("cfg: instruction at pc %d overruns code (opcode 0x%02x)", pc, uint8(op))
		}
		out = append(out, Instruction{
			PC:       pc,
			Opcode:   op,
			Operands: code[pc+1 : pc+length],
		})
		pc += length
	}
	return out, nil
}

// instructionLength returns the total byte length (opcode included) of the
// instruction at code[pc].
func instructionLength(code []byte, pc int) (int, error) {
	op := Opcode(code[pc])

	if n, ok := fixedOperandLength[op]; ok {
		return 1 + n, nil
	}

	switch op {
	case OpWide:
		if pc+1 >= len(code) {
			return 0, errors.Newf("cfg: truncated wide instruction at pc %d", pc)
		}
		inner := Opcode(code[pc+1])
		if inner == OpIinc {
			return 1 + 1 + 4, nil // wide opcode + modified opcode + index(2) + const(2)
		}
		return 1 + 1 + 2, nil // wide opcode + modified opcode + index(2)

	case OpTableswitch:
		padding := (4 - (pc+1)%4) % 4
		base := 1 + padding
		if pc+base+12 > len(code) {
			return 0, errors.Newf("cfg: truncated tableswitch header at pc %d", pc)
		}
		low := int32(binary.BigEndian.Uint32(code[pc+base+4 : pc+base+8]))
		high := int32(binary.BigEndian.Uint32(code[pc+base+8 : pc+base+12]))
		n := int(high-low) + 1
		if n < 0 {
			return 0, errors.Newf("cfg: invalid tableswitch bounds at pc %d", pc)
		}
		return base + 12 + n*4, nil

	case OpLookupswitch:
		padding := (4 - (pc+1)%4) % 4
		base := 1 + padding
		if pc+base+8 > len(code) {
			return 0, errors.Newf("cfg: truncated lookupswitch header at pc %d", pc)
		}
		n := int(int32(binary.BigEndian.Uint32(code[pc+base+4 : pc+base+8])))
		if n < 0 {
			return 0, errors.Newf("cfg: invalid lookupswitch count at pc %d", pc)
		}
		return base + 8 + n*8, nil
	}

	return 0, errors.Newf("cfg: unknown opcode 0x%02x at pc %d", uint8(op), pc)
}
