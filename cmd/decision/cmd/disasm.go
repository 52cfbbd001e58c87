package cmd

import (
	"fmt"
	"os"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/sheet"
	"github.com/spf13/cobra"
)

var (
	disasmWidth    int
	disasmDebug    bool
	disasmOptimize bool
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [file]",
	Short: "Disassemble a sheet source file or object file",
	Long: `Load and link a sheet (or load an object file directly), then print
its instruction stream and the node/wire each instruction maps to when
debug info is present.

Examples:
  decision disasm sheet.dec
  decision disasm sheet.dob`,
	Args: cobra.ExactArgs(1),
	RunE: disasmSheet,
}

func init() {
	rootCmd.AddCommand(disasmCmd)

	disasmCmd.Flags().IntVar(&disasmWidth, "width", 64, "integer width in bits (32 or 64), ignored when disassembling an object file")
	disasmCmd.Flags().BoolVar(&disasmDebug, "debug", true, "keep debug info and skip the peephole optimizer, ignored when disassembling an object file")
	disasmCmd.Flags().BoolVar(&disasmOptimize, "optimize", false, "run the peephole optimizer, ignored when disassembling an object file")
}

func disasmSheet(_ *cobra.Command, args []string) error {
	opts := sheet.CompileOptions{
		Width:       widthFromFlag(disasmWidth),
		Debug:       disasmDebug,
		Optimize:    disasmOptimize,
		IncludeDirs: includeDirs,
	}
	p, err := loadProgram(args[0], opts)
	if err != nil {
		return err
	}

	offsets := instructionOffsets(p.Text, p.Width)

	fmt.Printf("entry: instruction %d\n", p.MainOffset)
	if len(p.Funcs) > 0 {
		fmt.Println("functions:")
		for _, fn := range p.Funcs {
			fmt.Printf("  %-20s entry=%d params=%d returns=%d\n", fn.Name, fn.EntryOffset, fn.NumParams, fn.NumReturns)
		}
	}
	if len(p.Vars) > 0 {
		fmt.Println("variables:")
		for _, v := range p.Vars {
			fmt.Printf("  %-20s dataOffset=%d\n", v.Name, v.DataOffset)
		}
	}
	fmt.Println("text:")
	d := bytecode.NewDisassembler(os.Stdout, p.Width)
	d.SetResolver(callTargetResolver(p, offsets))
	d.Disassemble(p.Text, offsets)

	if len(p.StringLiterals) > 0 {
		fmt.Println("string literals:")
		for _, sl := range p.StringLiterals {
			fmt.Printf("  %q (offset %d, shared x%d)\n", sl.Value, sl.Offset, sl.Count)
		}
	}

	if len(p.Debug) > 0 {
		byInstr := make(map[int]struct{ node, wire int })
		for _, d := range p.Debug {
			byInstr[d.InstrIndex] = struct{ node, wire int }{d.Node, d.Wire}
		}
		fmt.Println("debug map:")
		for i := range p.Text {
			if d, ok := byInstr[i]; ok {
				fmt.Printf("  %06d  node=%d wire=%d\n", offsets[i], d.node, d.wire)
			}
		}
	}
	return nil
}

// callTargetResolver names a CALLI/CALLRF-family instruction's target
// function, mirroring the funcByEntry lookup internal/vm.New and
// internal/debugger.New each build for the same purpose. OpCall's target
// is popped off the stack at run time and can't be named statically, so
// it's left unresolved.
func callTargetResolver(p *program.Program, offsets []int) bytecode.Resolver {
	funcByEntry := make(map[int]string, len(p.Funcs))
	for _, fn := range p.Funcs {
		funcByEntry[offsets[fn.EntryOffset]] = fn.Name
	}
	return func(offset, size int, ins bytecode.Instruction) (string, bool) {
		switch ins.Op {
		case bytecode.OpCallI:
			name, ok := funcByEntry[int(ins.Operand)]
			return name, ok
		case bytecode.OpCallR, bytecode.OpCallRB, bytecode.OpCallRH, bytecode.OpCallRF:
			name, ok := funcByEntry[offset+size+int(ins.Operand)]
			return name, ok
		default:
			return "", false
		}
	}
}

// instructionOffsets returns the byte offset of each instruction in text,
// mirroring the same walk internal/vm.New and internal/debugger.New do to
// build their own offset tables.
func instructionOffsets(text []bytecode.Instruction, width bytecode.IntWidth) []int {
	offsets := make([]int, len(text))
	off := 0
	for i, ins := range text {
		offsets[i] = off
		off += ins.Size(width)
	}
	return offsets
}
