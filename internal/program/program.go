// Package program holds the compiled-artifact types shared across
// internal/codegen, internal/link, internal/objfile, internal/optimize and
// internal/vm. It exists purely to break the import cycle those packages
// would otherwise form with internal/sheet (sheet holds a *Program but must
// not be imported by the packages that build or consume one) — the same
// role the teacher's internal/bytecode.Chunk plays as the single artifact
// type shared by its compiler, optimizer, serializer and VM.
package program

import "github.com/decisionlang/decision/internal/bytecode"

// LinkKind classifies a LinkRecord's relocation target (spec.md §4.7).
type LinkKind int

const (
	LinkStringLiteral LinkKind = iota
	LinkVariableValue
	LinkVariablePointer
	LinkStringVariableDefault
	LinkUserFunction
	LinkNativeFunction
)

func (k LinkKind) String() string {
	switch k {
	case LinkStringLiteral:
		return "string-literal"
	case LinkVariableValue:
		return "variable-value"
	case LinkVariablePointer:
		return "variable-pointer"
	case LinkStringVariableDefault:
		return "string-variable-default"
	case LinkUserFunction:
		return "user-function"
	case LinkNativeFunction:
		return "native-function"
	default:
		return "unknown"
	}
}

// LinkRecord is one entry of the object file's link-metadata table: the
// name codegen could not resolve to a concrete address at compile time,
// plus enough information for the linker to resolve it once all includes
// are assembled together (spec.md §4.7).
type LinkRecord struct {
	Name string
	Kind LinkKind
	// Data section offset of the record's payload, populated only for
	// LinkStringLiteral / LinkStringVariableDefault.
	DataOffset int
	DataLen    int
}

// Relocation ties one instruction's immediate operand to a LinkRecord that
// must supply its final value.
type Relocation struct {
	InstrIndex int // index into Program.Text
	LinkIndex  int // index into Program.LinkTable
}

// DebugEntry maps one instruction to the graph element that produced it,
// for internal/debugger's breakpoint and step-through support.
type DebugEntry struct {
	InstrIndex int
	Node       int
	Wire       int // -1 when the instruction isn't wire-attributable
}

// StringLiteral records one de-duplicated data-section string literal and
// how many distinct call sites referenced it (spec.md §4.6's string
// de-duplication), for the disasm command (cmd/decision/cmd/disasm.go) to
// annotate a data dump with `"literal" (offset N, shared xM)`. Populated only in debug
// builds, alongside Debug.
type StringLiteral struct {
	Value  string
	Offset int
	Count  int // number of internString calls that resolved to this literal
}

// FuncEntry records a user function's entry point within Text.
type FuncEntry struct {
	Name        string
	EntryOffset int // instruction index, not byte offset
	NumParams   int
	NumReturns  int
}

// VarEntry records a global variable's data-section slot.
type VarEntry struct {
	Name       string
	Type       int // token.Type, kept as int to avoid importing token for a tag only objfile/vm interpret
	DataOffset int
}

// Program is the complete compiled artifact for one sheet (possibly after
// its includes have been linked in): instructions, literal/default data,
// the link table judges relocations against, and optional debug info.
type Program struct {
	Text       []bytecode.Instruction
	Data       []byte
	LinkTable  []LinkRecord
	Relocs     []Relocation
	Funcs      []FuncEntry
	Vars       []VarEntry
	Debug      []DebugEntry // nil unless compiled with debug info
	MainOffset int          // instruction index of the sheet's entry point
	Width      bytecode.IntWidth
	// Natives lists, in first-reference order, every native function name
	// a LinkNativeFunction record resolved to; the byte-code representation
	// of a native call site is the function's index into this table, which
	// the host embedder's registry is looked up by at call time
	// (spec.md §1 "discovery of host-provided native functions").
	Natives []string
	// StringLiterals reports the data section's string de-duplication
	// table, one entry per distinct literal, in first-reference order. Nil
	// unless compiled with debug info.
	StringLiterals []StringLiteral
}

// New returns an empty Program at the given integer width.
func New(width bytecode.IntWidth) *Program {
	return &Program{Width: width}
}

// FuncByName looks up a function entry by name, returning (entry, true) or
// (zero, false).
func (p *Program) FuncByName(name string) (FuncEntry, bool) {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return FuncEntry{}, false
}

// VarByName looks up a variable entry by name, returning (entry, true) or
// (zero, false).
func (p *Program) VarByName(name string) (VarEntry, bool) {
	for _, v := range p.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return VarEntry{}, false
}
