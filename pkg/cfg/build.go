package cfg

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/ogclass/classpool/pkg/classfile"
)

// BuildFromCode slices a method's Code attribute into a block graph: a
// linear decode of the instruction stream, partitioned at jump/branch/
// switch targets and exception handler boundaries, with edges installed
// through the same graph primitives a hand-built graph would use. pool is
// accepted for symmetry with the rest of the package's surface (a future
// pass might need to re-resolve a handler's catch type) — classfile has
// already resolved ExceptionHandler.CatchType by the time a CodeAttribute
// exists, so this pass does not read the pool itself.
func BuildFromCode(code *classfile.CodeAttribute, pool *classfile.ConstantPool) (*Graph, error) {
	instrs, err := decodeInstructions(code.Code)
	if err != nil {
		return nil, errors.Wrap(err, "decoding instruction stream")
	}
	g := NewGraph()
	if len(instrs) == 0 {
		return g, nil
	}

	leaders, err := findLeaders(instrs, code.ExceptionHandlers)
	if err != nil {
		return nil, err
	}

	blocksByPC, terminators, order, err := partitionBlocks(instrs, leaders)
	if err != nil {
		return nil, err
	}
	for _, pc := range order {
		g.AddBlock(blocksByPC[pc])
	}
	g.Fallthrough(g.Entry, blocksByPC[order[0]])

	if err := wireBlocks(g, blocksByPC, terminators, order); err != nil {
		return nil, err
	}
	if err := wireExceptionHandlers(g, blocksByPC, order, code.ExceptionHandlers); err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// findLeaders computes every PC that starts a new block: PC 0, every
// branch/jump/switch target, the PC immediately following a control-flow-
// terminating instruction, and every exception handler's start_pc, end_pc and
// handler_pc (a handler range's bounds cut blocks even when they fall in
// the middle of otherwise-straight-line code).
func findLeaders(instrs []Instruction, handlers []classfile.ExceptionHandler) (map[int]bool, error) {
	leaders := map[int]bool{instrs[0].PC: true}

	for idx, instr := range instrs {
		next := -1
		if idx+1 < len(instrs) {
			next = instrs[idx+1].PC
		}
		switch instr.Opcode.Kind() {
		case KindUnconditionalJump:
			leaders[instr.branchTarget()] = true
			if next != -1 {
				leaders[next] = true
			}
		case KindConditionalBranch:
			leaders[instr.branchTarget()] = true
			if next != -1 {
				leaders[next] = true
			}
		case KindSwitch:
			def, cases, err := instr.decodeSwitch()
			if err != nil {
				return nil, err
			}
			leaders[def] = true
			for _, c := range cases {
				leaders[c.Target] = true
			}
			if next != -1 {
				leaders[next] = true
			}
		case KindReturn, KindAthrow:
			if next != -1 {
				leaders[next] = true
			}
		}
	}

	for _, h := range handlers {
		leaders[int(h.StartPC)] = true
		leaders[int(h.EndPC)] = true
		leaders[int(h.HandlerPC)] = true
	}

	return leaders, nil
}

// partitionBlocks groups instrs into one Block per leader PC, in ascending
// PC order. Every non-terminating instruction is appended through the
// ordinary block API; a block's final, control-flow-terminating instruction
// (if it has one) is recorded in terminators instead of appended — wireBlocks
// installs it atomically together with its edge via the matching graph
// operation.
func partitionBlocks(instrs []Instruction, leaders map[int]bool) (blocksByPC map[int]*Block, terminators map[int]Instruction, order []int, err error) {
	order = make([]int, 0, len(leaders))
	for pc := range leaders {
		order = append(order, pc)
	}
	sort.Ints(order)

	blocksByPC = make(map[int]*Block, len(order))
	for _, pc := range order {
		blocksByPC[pc] = NewBlock(fmt.Sprintf("L%d", pc))
	}
	terminators = make(map[int]Instruction)

	currentPC := order[0]
	for _, instr := range instrs {
		if leaders[instr.PC] {
			currentPC = instr.PC
		}
		if instr.IsControlFlowTerminating() {
			terminators[currentPC] = instr
			continue
		}
		if err := blocksByPC[currentPC].Append(instr, true); err != nil {
			return nil, nil, nil, err
		}
	}
	return blocksByPC, terminators, order, nil
}

// wireBlocks installs the control-flow edge(s) leaving every block.
func wireBlocks(g *Graph, blocksByPC map[int]*Block, terminators map[int]Instruction, order []int) error {
	for i, pc := range order {
		block := blocksByPC[pc]
		terminator, hasTerminator := terminators[pc]
		if !hasTerminator {
			if i+1 < len(order) {
				g.Fallthrough(block, blocksByPC[order[i+1]])
			}
			continue
		}

		switch terminator.Opcode.Kind() {
		case KindUnconditionalJump:
			target := blocksByPC[terminator.branchTarget()]
			if target == nil {
				return errors.Newf("cfg: jump at pc %d targets unknown pc %d", terminator.PC, terminator.branchTarget())
			}
			if err := g.Jump(block, terminator, target); err != nil {
				return err
			}

		case KindConditionalBranch:
			trueTarget := blocksByPC[terminator.branchTarget()]
			if trueTarget == nil {
				return errors.Newf("cfg: branch at pc %d targets unknown pc %d", terminator.PC, terminator.branchTarget())
			}
			if i+1 >= len(order) {
				return errors.Newf("cfg: branch at pc %d has no fallthrough successor", terminator.PC)
			}
			falseTarget := blocksByPC[order[i+1]]
			if err := g.Branch(block, terminator, trueTarget, falseTarget); err != nil {
				return err
			}

		case KindSwitch:
			def, cases, err := terminator.decodeSwitch()
			if err != nil {
				return err
			}
			defTarget := blocksByPC[def]
			if defTarget == nil {
				return errors.Newf("cfg: switch at pc %d has unknown default target %d", terminator.PC, def)
			}
			targets := make(map[*int32]*Block, len(cases)+1)
			targets[nil] = defTarget
			for _, c := range cases {
				to := blocksByPC[c.Target]
				if to == nil {
					return errors.Newf("cfg: switch at pc %d has unknown case target %d", terminator.PC, c.Target)
				}
				key := c.Key
				targets[&key] = to
			}
			if err := g.SwitchCase(block, terminator, targets); err != nil {
				return err
			}

		case KindReturn:
			if err := g.Return(block, terminator); err != nil {
				return err
			}

		case KindAthrow:
			if err := g.Throw(block, terminator); err != nil {
				return err
			}
		}
	}
	return nil
}

// wireExceptionHandlers installs an exception edge from every block whose
// PC range intersects a handler's protected range [StartPC, EndPC) to the
// block starting at HandlerPC.
func wireExceptionHandlers(g *Graph, blocksByPC map[int]*Block, order []int, handlers []classfile.ExceptionHandler) error {
	for _, h := range handlers {
		handlerBlock, ok := blocksByPC[int(h.HandlerPC)]
		if !ok {
			return errors.Newf("cfg: exception handler targets unknown pc %d", h.HandlerPC)
		}
		for _, pc := range order {
			if pc < int(h.StartPC) || pc >= int(h.EndPC) {
				continue
			}
			g.Exception(blocksByPC[pc], handlerBlock, h.CatchType)
		}
	}
	return nil
}
