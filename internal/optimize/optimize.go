// Package optimize runs a peephole optimizer over a freshly compiled
// internal/program.Program before internal/link resolves it: redundant
// NOT-NOT folding, no-op removal, same-sheet CALLI-to-relative rewriting,
// and immediate-operand width shrinking, looped to a fixed point. Grounded
// on the teacher's pass-driver-until-fixed-point optimizer shape, adapted
// from a single-function chunk to a Program that also carries a link
// table, function table and debug table which every size-changing pass
// must keep in sync (spec.md §4.9).
package optimize

import (
	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

// Run applies every pass repeatedly until none of them change the
// program, then returns the number of passes that made progress (for
// tests and --verbose CLI output).
func Run(p *program.Program) int {
	state := newState(p)
	rounds := 0
	for {
		changed := false
		if removeRedundantNot(p, state) {
			changed = true
		}
		if removeNoOps(p, state) {
			changed = true
		}
		if rewriteRelativeCalls(p, state) {
			changed = true
		}
		if shrinkImmediates(p, state) {
			changed = true
		}
		if !changed {
			break
		}
		rounds++
	}
	return rounds
}

// state tracks, parallel to p.Text, the absolute byte offset each
// relative-control-transfer instruction targets. Byte offsets drift as
// instructions are resized or deleted; targets are carried index-for-index
// through every structural edit, and each edit that removes or shrinks bytes
// moves the targets lying past that point down by the bytes it removed.
// Every pass recomputes operands from them, the same role an assembler's
// symbol table plays across multiple relaxation passes.
type state struct {
	targets []int // -1 when Text[i] is not a relative jump/call
}

func newState(p *program.Program) *state {
	s := &state{targets: make([]int, len(p.Text))}
	offsets := byteOffsets(p.Text, p.Width)
	for i, ins := range p.Text {
		if ins.Op.IsRelativeJump() {
			from := offsets[i] + ins.Size(p.Width)
			s.targets[i] = from + int(ins.Operand)
		} else {
			s.targets[i] = -1
		}
	}
	return s
}

// relayout recomputes every relative-jump operand from its stored
// absolute target against the current (possibly just-resized) byte
// layout. Call after any pass that changes instruction sizes.
func relayout(p *program.Program, s *state) {
	offsets := byteOffsets(p.Text, p.Width)
	for i, ins := range p.Text {
		if s.targets[i] < 0 {
			continue
		}
		from := offsets[i] + ins.Size(p.Width)
		p.Text[i].Operand = int64(s.targets[i] - from)
	}
}

func byteOffsets(text []bytecode.Instruction, width bytecode.IntWidth) []int {
	offsets := make([]int, len(text))
	off := 0
	for i, ins := range text {
		offsets[i] = off
		off += ins.Size(width)
	}
	return offsets
}

// deleteRange removes count instructions starting at start, shifting
// every index-based table (Funcs.EntryOffset, p.MainOffset,
// Relocs.InstrIndex, Debug.InstrIndex, state.targets) to match, and
// refuses if any recorded jump targets land strictly inside the deleted
// span (the optimizer never proves such code is reachable, so it treats
// it conservatively as live).
func deleteRange(p *program.Program, s *state, start, count int) bool {
	end := start + count
	offsets := byteOffsets(p.Text, p.Width)
	spanStart, spanEnd := offsets[start], offsets[end-1]+p.Text[end-1].Size(p.Width)
	for i, t := range s.targets {
		if t < 0 || i >= start && i < end {
			continue
		}
		if t > spanStart && t < spanEnd {
			return false
		}
	}

	shift := func(idx int) int {
		switch {
		case idx >= end:
			return idx - count
		case idx >= start:
			return start
		default:
			return idx
		}
	}

	p.Text = append(p.Text[:start], p.Text[end:]...)
	s.targets = append(s.targets[:start], s.targets[end:]...)
	removed := spanEnd - spanStart
	for i, t := range s.targets {
		if t >= spanEnd {
			s.targets[i] = t - removed
		}
	}

	for i := range p.Funcs {
		p.Funcs[i].EntryOffset = shift(p.Funcs[i].EntryOffset)
	}
	p.MainOffset = shift(p.MainOffset)
	for i := range p.Relocs {
		p.Relocs[i].InstrIndex = shift(p.Relocs[i].InstrIndex)
	}
	for i := range p.Debug {
		p.Debug[i].InstrIndex = shift(p.Debug[i].InstrIndex)
	}

	relayout(p, s)
	return true
}
