package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/objfile"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/sheet"
	"github.com/decisionlang/decision/internal/vm"
	"github.com/spf13/cobra"
)

var (
	runWidth    int
	runDebug    bool
	runOptimize bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a sheet's source file or a linked object file",
	Long: `Run accepts either a sheet source file (compiled and linked first)
or an already-linked object file (run directly). The two are told apart
by sniffing the file's first four bytes for the object format's magic
header, not by extension.

Examples:
  decision run sheet.dec
  decision run sheet.dob`,
	Args: cobra.ExactArgs(1),
	RunE: runSheet,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runWidth, "width", 64, "integer width in bits (32 or 64), ignored when running an object file")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "keep debug info and skip the peephole optimizer, ignored when running an object file")
	runCmd.Flags().BoolVar(&runOptimize, "optimize", true, "run the peephole optimizer, ignored when running an object file")
}

func runSheet(_ *cobra.Command, args []string) error {
	opts := sheet.CompileOptions{
		Width:       widthFromFlag(runWidth),
		Debug:       runDebug,
		Optimize:    runOptimize,
		IncludeDirs: includeDirs,
		// No natives are registered from the CLI: a sheet that calls a
		// native function can only be run by a host embedder that links one
		// in, not by this standalone interpreter. Passing an empty (rather
		// than nil) registry makes loadProgram fail fast with a named
		// *link.MissingNativeError for any required native, instead of
		// reaching CALLC mid-run.
		NativeRegistry: map[string]bool{},
	}
	p, err := loadProgram(args[0], opts)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	v := vm.New(p, out, nil)
	if err := v.Run(); err != nil {
		out.Flush()
		return fmt.Errorf("runtime error: %w", err)
	}
	return nil
}

// loadProgram accepts either a source sheet or an already-linked object
// file, deciding which by sniffing the object format's magic header
// rather than trusting the file extension. opts governs compilation when
// filename turns out to be source; it has no effect on an object file,
// which is already fully linked.
func loadProgram(filename string, opts sheet.CompileOptions) (*program.Program, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	if objfile.Sniff(f) {
		sh, err := sheet.LoadObject(f, opts.NativeRegistry)
		if err != nil {
			return nil, fmt.Errorf("failed to read object file %s: %w", filename, err)
		}
		return sh.Program, nil
	}

	sh, err := sheet.Load(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return sh.Link(opts)
}

func widthFromFlag(bits int) bytecode.IntWidth {
	if bits == 32 {
		return bytecode.Width32
	}
	return bytecode.Width64
}
