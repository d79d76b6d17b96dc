package cfg

import (
	"github.com/samber/lo"

	"github.com/ogclass/classpool/pkg/constant"
)

// Graph is a per-method directed graph of blocks: a unique Entry, at most
// one Return, at most one Rethrow, connected by typed edges. Control edges
// (fallthrough/conditional/jump/switch-case/return) and exception edges are
// tracked together but queryable separately — exception edges are
// orthogonal to how a block terminates.
type Graph struct {
	Entry   *Block
	Return  *Block
	Rethrow *Block

	blocks   map[*Block]struct{}
	outEdges map[*Block][]Edge
	inEdges  map[*Block][]Edge
}

// NewGraph returns a graph containing only its (always-present, always
// empty) Entry block.
func NewGraph() *Graph {
	entry := NewEntryBlock("entry")
	g := &Graph{
		Entry:    entry,
		blocks:   map[*Block]struct{}{entry: {}},
		outEdges: make(map[*Block][]Edge),
		inEdges:  make(map[*Block][]Edge),
	}
	return g
}

// AddBlock registers b as a member of g. It is a no-op if b is already a
// member.
func (g *Graph) AddBlock(b *Block) {
	g.blocks[b] = struct{}{}
}

// Blocks returns every block registered in g, in no particular order.
func (g *Graph) Blocks() []*Block {
	return lo.Keys(g.blocks)
}

// Contains reports whether b is registered in g.
func (g *Graph) Contains(b *Block) bool {
	_, ok := g.blocks[b]
	return ok
}

func (g *Graph) addEdge(e Edge) {
	g.AddBlock(e.From)
	g.AddBlock(e.To)
	g.outEdges[e.From] = append(g.outEdges[e.From], e)
	g.inEdges[e.To] = append(g.inEdges[e.To], e)
}

// OutEdges returns every edge leaving b.
func (g *Graph) OutEdges(b *Block) []Edge {
	return g.outEdges[b]
}

// InEdges returns every edge entering b.
func (g *Graph) InEdges(b *Block) []Edge {
	return g.inEdges[b]
}

// ControlOutEdges returns b's out-edges excluding exception edges — the
// edges that describe how execution actually leaves b on the normal path.
func (g *Graph) ControlOutEdges(b *Block) []Edge {
	return lo.Filter(g.outEdges[b], func(e Edge, _ int) bool { return e.Kind != EdgeException })
}

// ExceptionOutEdges returns only b's exception edges.
func (g *Graph) ExceptionOutEdges(b *Block) []Edge {
	return lo.Filter(g.outEdges[b], func(e Edge, _ int) bool { return e.Kind == EdgeException })
}

// Fallthrough installs a plain fallthrough edge from `from` to `to`, used
// when a block's last instruction is not control-flow-terminating but a
// block boundary exists anyway (typically because `to` is itself a jump
// target reached by some other block too).
func (g *Graph) Fallthrough(from, to *Block) {
	g.addEdge(Edge{From: from, To: to, Kind: EdgeFallthrough})
}

// Jump appends an unconditional jump instruction to `from` (bypassing the
// block API's do_raise check) and installs the matching jump edge, per the
// spec's "atomically append the instruction and install the edge" contract.
func (g *Graph) Jump(from *Block, instr Instruction, to *Block) error {
	if err := from.Append(instr, false); err != nil {
		return err
	}
	g.addEdge(Edge{From: from, To: to, Kind: EdgeJump})
	return nil
}

// Branch appends a conditional instruction to `from` and installs both its
// true and false edges.
func (g *Graph) Branch(from *Block, instr Instruction, whenTrue, whenFalse *Block) error {
	if err := from.Append(instr, false); err != nil {
		return err
	}
	g.addEdge(Edge{From: from, To: whenTrue, Kind: EdgeCondTrue})
	g.addEdge(Edge{From: from, To: whenFalse, Kind: EdgeCondFalse})
	return nil
}

// SwitchCase appends a tableswitch/lookupswitch instruction to `from` and
// installs one switch-case edge per target, including the default (caseKey
// nil for the default edge).
func (g *Graph) SwitchCase(from *Block, instr Instruction, targets map[*int32]*Block) error {
	if err := from.Append(instr, false); err != nil {
		return err
	}
	for key, to := range targets {
		g.addEdge(Edge{From: from, To: to, Kind: EdgeSwitchCase, CaseLabel: key})
	}
	return nil
}

// Return appends a return instruction to `from` and installs the single
// edge into g.Return, creating the shared Return block on first use — the
// graph has at most one by construction.
func (g *Graph) Return(from *Block, instr Instruction) error {
	if err := from.Append(instr, false); err != nil {
		return err
	}
	if g.Return == nil {
		g.Return = NewReturnBlock("return")
	}
	g.addEdge(Edge{From: from, To: g.Return, Kind: EdgeJump})
	return nil
}

// Throw appends an athrow instruction to `from` and installs the single
// edge into g.Rethrow, creating the shared Rethrow block on first use.
func (g *Graph) Throw(from *Block, instr Instruction) error {
	if err := from.Append(instr, false); err != nil {
		return err
	}
	if g.Rethrow == nil {
		g.Rethrow = NewRethrowBlock("rethrow")
	}
	g.addEdge(Edge{From: from, To: g.Rethrow, Kind: EdgeJump})
	return nil
}

// Exception installs an exception edge from `from` to `handler`, guarded by
// exceptionClass (nil for a catch-all). Exception edges are orthogonal to
// control edges: any number may leave a block regardless of how it
// terminates.
func (g *Graph) Exception(from, handler *Block, exceptionClass *constant.Class) {
	g.addEdge(Edge{From: from, To: handler, Kind: EdgeException, ExceptionClass: exceptionClass})
}

// Validate checks the graph edge invariants: a block with an unconditional
// jump has exactly one jump edge and no fallthrough; a block with a
// conditional branch has exactly one true and one false edge; a block with
// a return has exactly one edge, into Return; Entry/Return/Rethrow carry no
// instructions.
func (g *Graph) Validate() error {
	for b := range g.blocks {
		if b.Terminal() && len(b.Instructions) != 0 {
			return NewIllegalInstructionError("entry, return, or rethrow block carries instructions")
		}
		if len(b.Instructions) == 0 {
			continue
		}
		last := b.Instructions[len(b.Instructions)-1]
		control := g.ControlOutEdges(b)
		switch last.Opcode.Kind() {
		case KindUnconditionalJump:
			if len(control) != 1 || control[0].Kind != EdgeJump {
				return NewIllegalInstructionError("block with an unconditional jump must have exactly one jump edge and no fallthrough")
			}
		case KindConditionalBranch:
			if len(control) != 2 {
				return NewIllegalInstructionError("block with a conditional branch must have exactly a true and a false edge")
			}
			var hasTrue, hasFalse bool
			for _, e := range control {
				switch e.Kind {
				case EdgeCondTrue:
					hasTrue = true
				case EdgeCondFalse:
					hasFalse = true
				}
			}
			if !hasTrue || !hasFalse {
				return NewIllegalInstructionError("block with a conditional branch must have both a true and a false edge")
			}
		case KindReturn:
			if len(control) != 1 || control[0].To != g.Return {
				return NewIllegalInstructionError("block with a return must have exactly one edge, into the return block")
			}
		case KindAthrow:
			if len(control) != 1 || control[0].To != g.Rethrow {
				return NewIllegalInstructionError("block with athrow must have exactly one edge, into the rethrow block")
			}
		}
	}
	return nil
}
