// Package link resolves internal/codegen's pending relocations into
// concrete immediates and, when a sheet pulls in included sheets, merges
// their separately compiled programs into one before resolving — the
// classic two-pass assemble-then-relocate structure of
// _examples/db47h-ngaro/asm/asm.go, generalized from a single assembly
// unit to a sheet-plus-includes graph (spec.md §4.7).
package link

import (
	"fmt"
	"strings"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

// Merge concatenates an included sheet's compiled program onto the end of
// the accumulating main program, rebasing every offset the included
// program carries: data-section offsets in its LinkTable and Vars, the
// instruction-index offsets in its FuncEntry.EntryOffset, and the
// instruction indices its own Relocs point at. Instructions and data
// bytes are appended as-is. Call once per include, in declaration order,
// before Resolve.
func Merge(main, included *program.Program) {
	textBase := len(main.Text)
	dataBase := len(main.Data)
	linkBase := len(main.LinkTable)

	main.Text = append(main.Text, included.Text...)
	main.Data = append(main.Data, included.Data...)

	for _, rec := range included.LinkTable {
		if rec.Kind == program.LinkStringLiteral || rec.Kind == program.LinkStringVariableDefault {
			rec.DataOffset += dataBase
		}
		main.LinkTable = append(main.LinkTable, rec)
	}
	for _, reloc := range included.Relocs {
		main.Relocs = append(main.Relocs, program.Relocation{
			InstrIndex: reloc.InstrIndex + textBase,
			LinkIndex:  reloc.LinkIndex + linkBase,
		})
	}
	for _, fn := range included.Funcs {
		fn.EntryOffset += textBase
		main.Funcs = append(main.Funcs, fn)
	}
	for _, v := range included.Vars {
		v.DataOffset += dataBase
		main.Vars = append(main.Vars, v)
	}
	if included.Debug != nil {
		for _, d := range included.Debug {
			d.InstrIndex += textBase
			main.Debug = append(main.Debug, d)
		}
	}
	for _, sl := range included.StringLiterals {
		sl.Offset += dataBase
		main.StringLiterals = append(main.StringLiterals, sl)
	}
}

// UnresolvedError reports a relocation whose LinkRecord named a symbol
// Resolve could not find anywhere in the merged program.
type UnresolvedError struct {
	Name string
	Kind program.LinkKind
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved %s reference %q", e.Kind, e.Name)
}

// Resolve patches every pending relocation's instruction operand in place,
// then discards the now-unneeded LinkTable/Relocs bookkeeping. It must run
// after every include has been merged in, since a relocation in one sheet
// may legitimately name a function or variable declared in another
// (spec.md §4.5's cross-include name resolution).
func Resolve(p *program.Program) error {
	byteOffsets := instructionByteOffsets(p.Text, p.Width)
	natives := map[string]int{}

	for _, reloc := range p.Relocs {
		rec := p.LinkTable[reloc.LinkIndex]
		value, err := resolveOne(p, rec, byteOffsets, natives)
		if err != nil {
			return err
		}
		p.Text[reloc.InstrIndex].Operand = value
	}

	p.LinkTable = nil
	p.Relocs = nil
	return nil
}

func resolveOne(p *program.Program, rec program.LinkRecord, byteOffsets []int, natives map[string]int) (int64, error) {
	switch rec.Kind {
	case program.LinkStringLiteral, program.LinkStringVariableDefault:
		return int64(rec.DataOffset), nil
	case program.LinkVariableValue, program.LinkVariablePointer:
		v, ok := p.VarByName(rec.Name)
		if !ok {
			return 0, &UnresolvedError{Name: rec.Name, Kind: rec.Kind}
		}
		return int64(v.DataOffset), nil
	case program.LinkUserFunction:
		fn, ok := p.FuncByName(rec.Name)
		if !ok {
			return 0, &UnresolvedError{Name: rec.Name, Kind: rec.Kind}
		}
		return int64(byteOffsets[fn.EntryOffset]), nil
	case program.LinkNativeFunction:
		idx, ok := natives[rec.Name]
		if !ok {
			idx = len(p.Natives)
			p.Natives = append(p.Natives, rec.Name)
			natives[rec.Name] = idx
		}
		return int64(idx), nil
	default:
		return 0, &UnresolvedError{Name: rec.Name, Kind: rec.Kind}
	}
}

// instructionByteOffsets maps each instruction index to its byte offset in
// the encoded text section. internal/codegen tracks function entries and
// MainOffset as instruction indices (stable across the immediate-width
// shrinking internal/optimize performs on byte offsets afterward); this
// table is how a CALLI/jump target gets converted to the byte address the
// VM's program counter actually advances over (spec.md §4.10).
func instructionByteOffsets(text []bytecode.Instruction, width bytecode.IntWidth) []int {
	offsets := make([]int, len(text)+1)
	off := 0
	for i, ins := range text {
		offsets[i] = off
		off += ins.Size(width)
	}
	offsets[len(text)] = off
	return offsets
}

// MissingNativeError reports that p.Natives names one or more functions a
// host registry passed to VerifyNatives does not implement.
type MissingNativeError struct {
	Missing []string
}

func (e *MissingNativeError) Error() string {
	return fmt.Sprintf("missing native function signature(s): %s", strings.Join(e.Missing, ", "))
}

// VerifyNatives checks p.Natives — the `.c` section's required
// native-function signatures, populated by Resolve in first-reference
// order — against registry, the names a host embedder actually implements.
// Every name p.Natives lists but registry does not is reported together in
// a single MissingNativeError, rather than surfacing one at a time as a
// CALLC fault the first time execution happens to reach it.
func VerifyNatives(p *program.Program, registry map[string]bool) error {
	var missing []string
	for _, name := range p.Natives {
		if !registry[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingNativeError{Missing: missing}
	}
	return nil
}

// MainByteOffset converts p.MainOffset (an instruction index) to the byte
// offset internal/vm should seed its program counter with.
func MainByteOffset(p *program.Program) int {
	offsets := instructionByteOffsets(p.Text, p.Width)
	return offsets[p.MainOffset]
}
