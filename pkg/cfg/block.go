package cfg

import "bytes"

// BlockKind distinguishes the three terminal specializations from an
// ordinary block. Go has no struct inheritance, so EntryBlock/ReturnBlock/
// RethrowBlock are expressed as a Kind on the one Block type rather than
// separate types; NewEntryBlock etc. below are the constructors a caller
// actually uses.
type BlockKind int

const (
	KindNormal BlockKind = iota
	KindEntry
	KindReturnBlock
	KindRethrowBlock
)

// Block is a labeled, ordered sequence of instructions. Its identity is its
// pointer value — graphs key membership and edge sets by identity, matching
// the spec's "labels are informational" lifecycle note — while Equal below
// gives the structural comparison diff/verify code needs instead.
type Block struct {
	Label        string
	Kind         BlockKind
	Instructions []Instruction
	Inline       bool
}

func newBlock(label string, kind BlockKind) *Block {
	return &Block{Label: label, Kind: kind}
}

// NewBlock returns an ordinary, empty block.
func NewBlock(label string) *Block {
	return newBlock(label, KindNormal)
}

// NewEntryBlock returns a fresh, permanently empty entry block.
func NewEntryBlock(label string) *Block {
	return newBlock(label, KindEntry)
}

// NewReturnBlock returns a fresh, permanently empty return block.
func NewReturnBlock(label string) *Block {
	return newBlock(label, KindReturnBlock)
}

// NewRethrowBlock returns a fresh, permanently empty rethrow block.
func NewRethrowBlock(label string) *Block {
	return newBlock(label, KindRethrowBlock)
}

// Terminal reports whether b is one of the entry/return/rethrow
// specializations, which must stay empty of instructions.
func (b *Block) Terminal() bool {
	return b.Kind != KindNormal
}

// Append adds instr to the end of b. A control-flow-terminating instruction
// (jump, conditional branch, switch, return, athrow) may only be appended
// with doRaise=false — the override reserved for deserialization paths that
// reconstruct the instruction and its graph edge in lock-step. Through the
// ordinary API (doRaise=true) such an append fails with
// IllegalInstructionError and leaves b unchanged.
//
// Appending to a terminal block (Entry/Return/Rethrow) always fails: those
// blocks must stay empty regardless of doRaise.
func (b *Block) Append(instr Instruction, doRaise bool) error {
	if b.Terminal() {
		return NewIllegalInstructionError("cannot append to an entry, return, or rethrow block")
	}
	if instr.IsControlFlowTerminating() && doRaise {
		return NewIllegalInstructionError("control-flow-terminating instruction appended through the block API; use a graph operation")
	}
	b.Instructions = append(b.Instructions, instr)
	return nil
}

// Equal reports whether b and other have the same label, kind and
// instruction sequence. This is the structural comparison the spec calls for in diffs;
// graph membership and edge sets instead key on b's pointer identity.
func (b *Block) Equal(other *Block) bool {
	if other == nil {
		return false
	}
	if b.Label != other.Label || b.Kind != other.Kind || len(b.Instructions) != len(other.Instructions) {
		return false
	}
	for i, instr := range b.Instructions {
		o := other.Instructions[i]
		if instr.PC != o.PC || instr.Opcode != o.Opcode || !bytes.Equal(instr.Operands, o.Operands) {
			return false
		}
	}
	return true
}

// Copy returns a new block with the same kind and instructions. If label is
// non-nil the copy is relabeled; otherwise it keeps b's label. When deep is
// true each instruction's operand bytes are cloned rather than shared.
func (b *Block) Copy(label *string, deep bool) *Block {
	newLabel := b.Label
	if label != nil {
		newLabel = *label
	}
	cp := &Block{Label: newLabel, Kind: b.Kind, Inline: b.Inline}
	if !deep {
		cp.Instructions = append([]Instruction(nil), b.Instructions...)
		return cp
	}
	cp.Instructions = make([]Instruction, len(b.Instructions))
	for i, instr := range b.Instructions {
		cloned := instr
		cloned.Operands = append([]byte(nil), instr.Operands...)
		cp.Instructions[i] = cloned
	}
	return cp
}
