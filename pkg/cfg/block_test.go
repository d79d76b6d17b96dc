package cfg

import (
	"errors"
	"testing"
)

func TestBlockAppendRejectsTerminatingInstructionByDefault(t *testing.T) {
	b := NewBlock("L0")
	ret := Instruction{PC: 0, Opcode: OpReturn}
	err := b.Append(ret, true)
	if !errors.Is(err, ErrIllegalInstruction) {
		t.Fatalf("expected ErrIllegalInstruction, got %v", err)
	}
	if len(b.Instructions) != 0 {
		t.Error("a rejected append must leave the block unchanged")
	}
}

func TestBlockAppendAllowsTerminatingInstructionViaGraphPath(t *testing.T) {
	b := NewBlock("L0")
	ret := Instruction{PC: 0, Opcode: OpReturn}
	if err := b.Append(ret, false); err != nil {
		t.Fatalf("graph-path append should succeed: %v", err)
	}
	if len(b.Instructions) != 1 {
		t.Error("expected the instruction to be appended")
	}
}

func TestBlockAppendRejectsAnyInstructionOnTerminalBlocks(t *testing.T) {
	for _, b := range []*Block{NewEntryBlock("e"), NewReturnBlock("r"), NewRethrowBlock("t")} {
		nop := Instruction{PC: 0, Opcode: OpNop}
		if err := b.Append(nop, false); !errors.Is(err, ErrIllegalInstruction) {
			t.Errorf("%s: expected ErrIllegalInstruction appending to a terminal block, got %v", b.Label, err)
		}
	}
}

func TestBlockEqual(t *testing.T) {
	a := NewBlock("L0")
	a.Instructions = []Instruction{{PC: 0, Opcode: OpNop}}
	b := NewBlock("L0")
	b.Instructions = []Instruction{{PC: 0, Opcode: OpNop}}
	if !a.Equal(b) {
		t.Error("expected structurally identical blocks to be Equal")
	}

	c := NewBlock("L1")
	c.Instructions = []Instruction{{PC: 0, Opcode: OpNop}}
	if a.Equal(c) {
		t.Error("blocks with different labels should not be Equal")
	}
}

func TestBlockCopyDeep(t *testing.T) {
	orig := NewBlock("L0")
	orig.Instructions = []Instruction{{PC: 0, Opcode: OpBipush, Operands: []byte{5}}}

	cp := orig.Copy(nil, true)
	cp.Instructions[0].Operands[0] = 9
	if orig.Instructions[0].Operands[0] != 5 {
		t.Error("a deep copy must not share operand backing arrays with the original")
	}

	newLabel := "L0-copy"
	relabeled := orig.Copy(&newLabel, false)
	if relabeled.Label != "L0-copy" {
		t.Errorf("expected relabeled copy, got %q", relabeled.Label)
	}
}
