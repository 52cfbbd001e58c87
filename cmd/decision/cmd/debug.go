package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/decisionlang/decision/internal/debugger"
	"github.com/decisionlang/decision/internal/sheet"
	"github.com/decisionlang/decision/internal/vm"
	"github.com/spf13/cobra"
)

var (
	debugWidth int
)

var debugCmd = &cobra.Command{
	Use:   "debug [file]",
	Short: "Load a sheet and start an interactive debug session",
	Long: `Load and link a sheet (always keeping debug info and skipping the
optimizer, regardless of --debug's default elsewhere, since a debug
session is pointless without the node/wire map) and drive it one
instruction at a time from a line-oriented console.

Commands:
  step [n]          execute n instructions (default 1)
  continue          run to the next breakpoint or program end
  break node <id>   set a breakpoint on a graph node
  break wire <id>   set a breakpoint on a graph wire
  quit              exit

Example:
  decision debug sheet.dec`,
	Args: cobra.ExactArgs(1),
	RunE: debugSheet,
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.Flags().IntVar(&debugWidth, "width", 64, "integer width in bits (32 or 64)")
}

func debugSheet(_ *cobra.Command, args []string) error {
	opts := sheet.CompileOptions{
		Width:          widthFromFlag(debugWidth),
		Debug:          true,
		Optimize:       false,
		IncludeDirs:    includeDirs,
		NativeRegistry: map[string]bool{}, // the debug console, like run, embeds no host natives
	}
	sh, err := sheet.Load(args[0], opts)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	p, err := sh.Link(opts)
	if err != nil {
		return fmt.Errorf("failed to link %s: %w", args[0], err)
	}

	v := vm.New(p, os.Stdout, nil)
	d := debugger.New(v, p, debugger.Hooks{
		OnNodeActivated:  func(node int) { fmt.Printf("  [node %d]\n", node) },
		OnNodeBreakpoint: func(node int) { fmt.Printf("stopped at node breakpoint %d\n", node) },
		OnWireBreakpoint: func(wire int) { fmt.Printf("stopped at wire breakpoint %d\n", wire) },
		OnCall:           func(name string) { fmt.Printf("  call %s\n", name) },
		OnReturn:         func(name string) { fmt.Printf("  return %s\n", name) },
	})

	fmt.Printf("debugging %s (%d instructions, entry at %d)\n", args[0], len(p.Text), p.MainOffset)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("(decision-debug) ")
		if !scanner.Scan() {
			return nil
		}
		if halted, done := runDebugCommand(d, scanner.Text()); done {
			return nil
		} else if halted {
			fmt.Println("program halted")
			return nil
		}
	}
}

func runDebugCommand(d *debugger.Debugger, line string) (halted bool, done bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, false
	}
	switch fields[0] {
	case "quit", "exit":
		return false, true
	case "step", "s":
		n := 1
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				n = v
			}
		}
		for i := 0; i < n; i++ {
			_, halt, err := d.Step()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return true, false
			}
			if halt {
				return true, false
			}
		}
		return false, false
	case "continue", "c":
		reason, err := d.Continue()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return true, false
		}
		return reason == debugger.StopHalted, false
	case "break", "b":
		if len(fields) != 3 {
			fmt.Println("usage: break node|wire <id>")
			return false, false
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			fmt.Println("invalid id:", fields[2])
			return false, false
		}
		switch fields[1] {
		case "node":
			d.SetNodeBreakpoint(id, true)
		case "wire":
			d.SetWireBreakpoint(id, true)
		default:
			fmt.Println("usage: break node|wire <id>")
		}
		return false, false
	default:
		fmt.Printf("unknown command %q\n", fields[0])
		return false, false
	}
}
