package cfg

import "testing"

func TestGraphJumpAndValidate(t *testing.T) {
	g := NewGraph()
	from := NewBlock("L0")
	to := NewBlock("L1")
	g.AddBlock(from)
	g.AddBlock(to)

	instr := Instruction{PC: 0, Opcode: OpGoto, Operands: []byte{0, 5}}
	if err := g.Jump(from, instr, to); err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if len(g.ControlOutEdges(from)) != 1 || g.ControlOutEdges(from)[0].Kind != EdgeJump {
		t.Errorf("expected a single jump edge, got %+v", g.ControlOutEdges(from))
	}
}

func TestGraphBranchRequiresBothEdges(t *testing.T) {
	g := NewGraph()
	from := NewBlock("L0")
	whenTrue := NewBlock("L1")
	whenFalse := NewBlock("L2")

	instr := Instruction{PC: 0, Opcode: OpIfeq, Operands: []byte{0, 5}}
	if err := g.Branch(from, instr, whenTrue, whenFalse); err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	edges := g.ControlOutEdges(from)
	if len(edges) != 2 {
		t.Fatalf("expected 2 control edges, got %d", len(edges))
	}
}

func TestGraphReturnSharesSingleReturnBlock(t *testing.T) {
	g := NewGraph()
	a := NewBlock("L0")
	b := NewBlock("L1")

	if err := g.Return(a, Instruction{PC: 0, Opcode: OpReturn}); err != nil {
		t.Fatal(err)
	}
	if err := g.Return(b, Instruction{PC: 1, Opcode: OpReturn}); err != nil {
		t.Fatal(err)
	}
	if g.Return == nil {
		t.Fatal("expected a shared Return block to have been created")
	}
	if len(g.InEdges(g.Return)) != 2 {
		t.Errorf("expected 2 edges into the shared return block, got %d", len(g.InEdges(g.Return)))
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestGraphExceptionEdgeIsOrthogonalToControlFlow(t *testing.T) {
	g := NewGraph()
	from := NewBlock("L0")
	to := NewBlock("L1")
	handler := NewBlock("H")

	instr := Instruction{PC: 0, Opcode: OpGoto, Operands: []byte{0, 5}}
	if err := g.Jump(from, instr, to); err != nil {
		t.Fatal(err)
	}
	g.Exception(from, handler, nil)

	if len(g.ControlOutEdges(from)) != 1 {
		t.Errorf("exception edges must not appear in ControlOutEdges")
	}
	if len(g.ExceptionOutEdges(from)) != 1 {
		t.Errorf("expected exactly one exception edge")
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("an orthogonal exception edge should not break validation: %v", err)
	}
}

func TestGraphValidateRejectsMissingJumpEdge(t *testing.T) {
	g := NewGraph()
	from := NewBlock("L0")
	// Append the terminating instruction directly (bypassing Jump) so no edge
	// is installed, to exercise Validate's invariant check.
	if err := from.Append(Instruction{PC: 0, Opcode: OpGoto, Operands: []byte{0, 5}}, false); err != nil {
		t.Fatal(err)
	}
	g.AddBlock(from)

	if err := g.Validate(); err == nil {
		t.Error("expected Validate to reject a jump instruction with no jump edge")
	}
}
