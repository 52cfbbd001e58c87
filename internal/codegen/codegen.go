// Package codegen lowers a reduced graph.Graph to program.Program bytecode.
// See build.go's package-level doc comment for the instruction-addressing
// and stack-operand conventions this package and internal/vm must share.
package codegen

import (
	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/semantic"
	"github.com/decisionlang/decision/internal/token"
)

// Compile lowers g (a sheet's fully reduced graph) into one Program: every
// declared function's body first, in the iteration order of the
// pr.Functions map (not declaration order, and not fixed between runs),
// followed by the
// sheet's own Start chain, whose first instruction becomes MainOffset
// (spec.md §4.6/§4.7). Shared Builder state (data section, link table,
// debug map) spans every function and the main chain, since they all
// belong to the same compiled artifact.
func Compile(g *graph.Graph, pr *semantic.PropertyResult, width bytecode.IntWidth, debug bool) *program.Program {
	b := New(g, pr, width, debug)

	var funcs []program.FuncEntry
	for name, fn := range pr.Functions {
		b.resetFrame()
		entryOffset := len(b.text)
		b.compileFunctionBody(g, name, fn)
		funcs = append(funcs, program.FuncEntry{
			Name:        name,
			EntryOffset: entryOffset,
			NumParams:   len(fn.Inputs),
			NumReturns:  len(fn.Outputs),
		})
	}

	b.resetFrame()
	mainOffset := len(b.text)
	if startIdx, ok := findByDefName(g, "Start"); ok {
		b.lowerChain(graph.Endpoint{Node: startIdx, Socket: 0})
	}
	b.emit(bytecode.OpRet, 0)

	prog := program.New(width)
	prog.Text = b.text
	prog.LinkTable = b.link
	prog.Relocs = b.relocs
	prog.Debug = b.dbg
	prog.MainOffset = mainOffset
	prog.Funcs = funcs
	prog.Vars = b.layoutVariables()
	prog.Data = b.data // after layoutVariables, which appends the variable cells
	prog.StringLiterals = b.stringLiterals()
	return prog
}

// compileFunctionBody lowers one declared function's body: a subroutine
// walks its execution chain from Define's "after" output to its Return; a
// pure function has no execution chain at all, only Return's input sockets
// wired directly to the expression graph computing each returned value.
func (b *Builder) compileFunctionBody(g *graph.Graph, name string, fn *semantic.FuncDecl) {
	if fn.IsSubroutine {
		defIdx, ok := findByOwner(g, "Define", name)
		if !ok {
			b.emit(bytecode.OpRet, 0)
			return
		}
		defNode := g.Nodes[defIdx]
		b.height = len(fn.Inputs) // parameters already sit on the stack on entry
		for i := range fn.Inputs {
			b.valuePos[graph.Endpoint{Node: defIdx, Socket: i}] = i
		}
		b.lowerChain(graph.Endpoint{Node: defIdx, Socket: defNode.StartOutputIndex() + len(fn.Inputs)})
		b.emit(bytecode.OpRet, 0)
		return
	}

	retIdx, ok := findByOwner(g, "Return", name)
	if !ok {
		b.emit(bytecode.OpRet, 0)
		return
	}
	b.height = len(fn.Inputs)
	retNode := g.Nodes[retIdx]
	b.lowerReturn(retIdx, retNode)
}

// variableInitialWord computes a Variable declaration's starting data-slot
// contents: the declared default for Int/Float/Bool, or the data-section
// offset of the interned default string for String (the slot holds a
// pointer, the same representation DerefI/PushF+relocation produce for any
// other string value, per spec.md §4.6).
func (b *Builder) variableInitialWord(vd *semantic.VarDecl) int64 {
	if !vd.HasDefault {
		return 0
	}
	switch vd.Type {
	case token.Int:
		return vd.Default.Int
	case token.Float:
		return b.floatBits(vd.Default.Flt)
	case token.Bool:
		if vd.Default.Bool {
			return 1
		}
		return 0
	case token.String:
		return int64(b.internString(vd.Default.Str))
	default:
		return 0
	}
}

func findByDefName(g *graph.Graph, defName string) (int, bool) {
	for i, n := range g.Nodes {
		if n.Def.Name == defName {
			return i, true
		}
	}
	return 0, false
}

func findByOwner(g *graph.Graph, defName, owner string) (int, bool) {
	for i, n := range g.Nodes {
		if n.Def.Name != defName {
			continue
		}
		if n.NameDef != nil && n.NameDef.Name == owner {
			return i, true
		}
	}
	return 0, false
}

// resetFrame clears the per-compilation-unit stack bookkeeping between one
// function body and the next (each starts its own fresh frame) while
// keeping the Builder's shared data/link/debug state intact.
func (b *Builder) resetFrame() {
	b.valuePos = map[graph.Endpoint]int{}
	b.height = 0
}

// layoutVariables assigns data-section slots to every sheet-declared
// variable and every codegen-synthesized loop counter, in that order, and
// rewrites the Builder's pending relocations' LinkRecords with the
// resolved offsets — codegen itself never computes a variable's address
// directly, since variable layout is only decided once every use site has
// registered its LinkVariableValue record (spec.md §4.6/§4.7).
func (b *Builder) layoutVariables() []program.VarEntry {
	var vars []program.VarEntry
	offset := len(b.data)
	wordSize := 4
	if b.width == bytecode.Width64 {
		wordSize = 8
	}

	addVar := func(name string, t int, word int64) {
		vars = append(vars, program.VarEntry{Name: name, Type: t, DataOffset: offset})
		buf := make([]byte, wordSize)
		for i := 0; i < wordSize; i++ {
			buf[i] = byte(word >> (8 * i))
		}
		b.data = append(b.data, buf...)
		offset += wordSize
	}

	for name, vd := range b.pr.Variables {
		addVar(name, int(vd.Type), b.variableInitialWord(vd))
	}
	for _, sv := range b.synthVars {
		addVar(sv.Name, sv.Type, 0)
	}

	for i := range b.link {
		rec := &b.link[i]
		if rec.Kind != program.LinkVariableValue {
			continue
		}
		for _, v := range vars {
			if v.Name == rec.Name {
				rec.DataOffset = v.DataOffset
				break
			}
		}
	}

	return vars
}
