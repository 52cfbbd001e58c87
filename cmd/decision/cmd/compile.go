package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/sheet"
	"github.com/spf13/cobra"
)

var (
	compileOutput   string
	compileWidth    int
	compileDebug    bool
	compileOptimize bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a sheet to a linked object file",
	Long: `Load a sheet and every sheet it includes, link them into a single
program, and write the result as an object file.

Examples:
  decision compile sheet.dec
  decision compile sheet.dec -o sheet.dob --optimize
  decision compile sheet.dec --debug`,
	Args: cobra.ExactArgs(1),
	RunE: compileSheet,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "output file (default: <input> with its extension replaced by .dob)")
	compileCmd.Flags().IntVar(&compileWidth, "width", 64, "integer width in bits (32 or 64)")
	compileCmd.Flags().BoolVar(&compileDebug, "debug", false, "keep debug info and skip the peephole optimizer")
	compileCmd.Flags().BoolVar(&compileOptimize, "optimize", true, "run the peephole optimizer (ignored when --debug is set)")
}

func compileSheet(_ *cobra.Command, args []string) error {
	filename := args[0]
	opts := compileOptionsFromFlags()

	if verbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", filename)
	}

	sh, err := sheet.Load(filename, opts)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}

	outFile := compileOutput
	if outFile == "" {
		ext := filepath.Ext(filename)
		if ext != "" {
			outFile = strings.TrimSuffix(filename, ext) + ".dob"
		} else {
			outFile = filename + ".dob"
		}
	}

	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outFile, err)
	}
	defer f.Close()

	if err := sh.WriteObject(f, opts); err != nil {
		return fmt.Errorf("failed to write object file: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Object file written to %s\n", outFile)
	} else {
		fmt.Printf("Compiled %s -> %s\n", filename, outFile)
	}
	return nil
}

func compileOptionsFromFlags() sheet.CompileOptions {
	width := bytecode.Width64
	if compileWidth == 32 {
		width = bytecode.Width32
	}
	return sheet.CompileOptions{
		Width:       width,
		Debug:       compileDebug,
		Optimize:    compileOptimize,
		IncludeDirs: includeDirs,
	}
}
