package optimize

import (
	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

// removeRedundantNot deletes any NOT immediately following another NOT:
// codegen's Ternary/IfThen lowering emits "evaluate condition; NOT; JRCONFI"
// to turn a "jump if true" construct into "jump if false", and if the
// condition expression already ends in its own NOT (a user-written `Not`
// node feeding a branch) the pair cancels.
func removeRedundantNot(p *program.Program, s *state) bool {
	changed := false
	for i := 0; i+1 < len(p.Text); i++ {
		if p.Text[i].Op == bytecode.OpNot && p.Text[i+1].Op == bytecode.OpNot {
			if deleteRange(p, s, i, 2) {
				changed = true
				i--
			}
		}
	}
	return changed
}

// removeNoOps deletes instructions whose immediate makes them provably
// inert: POP/PUSHN families with a zero count, and unconditional relative
// jumps with a zero delta (a jump straight to the following instruction —
// codegen's lowerIfThenElse emits one of these whenever the else-branch
// lowers to nothing).
func removeNoOps(p *program.Program, s *state) bool {
	changed := false
	for i := 0; i < len(p.Text); i++ {
		ins := p.Text[i]
		if isZeroCountNoOp(ins) || isZeroDeltaJump(ins) {
			if deleteRange(p, s, i, 1) {
				changed = true
				i--
			}
		}
	}
	return changed
}

func isZeroCountNoOp(ins bytecode.Instruction) bool {
	if ins.Operand != 0 {
		return false
	}
	switch ins.Op {
	case bytecode.OpPopB, bytecode.OpPopH, bytecode.OpPopF,
		bytecode.OpPushNB, bytecode.OpPushNH, bytecode.OpPushNF:
		return true
	}
	return false
}

func isZeroDeltaJump(ins bytecode.Instruction) bool {
	return ins.Op == bytecode.OpJRFI && ins.Operand == 0
}

// rewriteRelativeCalls converts a LinkUserFunction-relocated CALLI into a
// direct CALLRF once the call target is known to live in this same
// program's own text (true before internal/link.Merge pulls in any
// included sheet's functions) — dropping the relocation entirely so
// internal/link never has to touch it. CALLI and CALLRF share the same
// full-width operand encoding, so this never changes instruction sizes.
func rewriteRelativeCalls(p *program.Program, s *state) bool {
	changed := false
	offsets := byteOffsets(p.Text, p.Width)
	for i := range p.Text {
		if p.Text[i].Op != bytecode.OpCallI {
			continue
		}
		relocIdx := relocationFor(p, i)
		if relocIdx < 0 {
			continue
		}
		rec := p.LinkTable[p.Relocs[relocIdx].LinkIndex]
		if rec.Kind != program.LinkUserFunction {
			continue
		}
		fn, ok := p.FuncByName(rec.Name)
		if !ok {
			continue
		}
		from := offsets[i] + p.Text[i].Size(p.Width)
		target := offsets[fn.EntryOffset]
		p.Text[i] = bytecode.Instruction{Op: bytecode.OpCallRF, Operand: int64(target - from)}
		s.targets[i] = target
		removeRelocation(p, relocIdx)
		changed = true
	}
	return changed
}

func relocationFor(p *program.Program, instrIndex int) int {
	for i, r := range p.Relocs {
		if r.InstrIndex == instrIndex {
			return i
		}
	}
	return -1
}

func removeRelocation(p *program.Program, relocIdx int) {
	p.Relocs = append(p.Relocs[:relocIdx], p.Relocs[relocIdx+1:]...)
}

// shrinkImmediates narrows every full/half-width immediate operand that
// fits in a smaller sibling opcode from the same ImmediateFamily, then
// re-lays-out every relative jump whose span crossed the shrunk
// instruction. Relocation-bearing instructions (variable/function/native
// addresses not yet resolved) are left at full width since their final
// value is unknown until internal/link.Resolve runs.
func shrinkImmediates(p *program.Program, s *state) bool {
	changed := false
	for i := 0; i < len(p.Text); i++ {
		if relocationFor(p, i) >= 0 {
			continue
		}
		byteOp, halfOp, fullOp, ok := p.Text[i].Op.ImmediateFamily()
		if !ok {
			continue
		}
		narrowed, ok := narrow(p.Width, p.Text[i].Op, p.Text[i].Operand, byteOp, halfOp, fullOp)
		if !ok {
			continue
		}
		oldSize := p.Text[i].Size(p.Width)
		at := byteOffsets(p.Text, p.Width)[i]
		p.Text[i] = narrowed
		if newSize := p.Text[i].Size(p.Width); newSize != oldSize {
			changed = true
			for j, t := range s.targets {
				if t > at {
					s.targets[j] = t - (oldSize - newSize)
				}
			}
		}
	}
	if changed {
		relayout(p, s)
	}
	return changed
}

func narrow(width bytecode.IntWidth, op bytecode.OpCode, operand int64, byteOp, halfOp, fullOp bytecode.OpCode) (bytecode.Instruction, bool) {
	if op != fullOp && op != halfOp {
		return bytecode.Instruction{}, false
	}
	if fitsSigned(operand, 8) {
		return bytecode.Instruction{Op: byteOp, Operand: operand}, true
	}
	if op == fullOp && fitsSigned(operand, width.HalfBytes()*8) {
		return bytecode.Instruction{Op: halfOp, Operand: operand}, true
	}
	return bytecode.Instruction{}, false
}

func fitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	min := int64(-1) << (bits - 1)
	max := (int64(1) << (bits - 1)) - 1
	return v >= min && v <= max
}
