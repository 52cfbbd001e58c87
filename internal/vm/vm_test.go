package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/codegen"
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/link"
	"github.com/decisionlang/decision/internal/parser"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/semantic"
)

func compileAndLink(t *testing.T, src string) *program.Program {
	t.Helper()
	bag := diag.New()
	tree := parser.ParseSource(src, bag, "test.dec")
	if !tree.Success {
		t.Fatalf("parse failed: %s", bag.String())
	}
	pr := semantic.RunPropertyPhase(tree, bag, "test.dec")
	scope := semantic.BuildScope(pr)
	g := semantic.Analyze(tree, pr, scope, bag, "test.dec")
	if bag.HasErrors() {
		t.Fatalf("unexpected analysis errors: %s", bag.String())
	}
	p := codegen.Compile(g, pr, bytecode.Width64, false)
	if err := link.Resolve(p); err != nil {
		t.Fatalf("link.Resolve: %v", err)
	}
	return p
}

func TestRunPrintsHelloWorld(t *testing.T) {
	p := compileAndLink(t, "Start() ~ #1; Print(#1, 'Hello, world!');")
	var out bytes.Buffer
	if err := New(p, &out, nil).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != "Hello, world!\n" {
		t.Fatalf("expected greeting, got %q", got)
	}
}

func TestRunArithmeticAndVariableSet(t *testing.T) {
	p := compileAndLink(t, "Start() ~ #1; Add(1, 2, 3) ~ #4; Set(total, #1, #4) ~ #2; Print(#2, total);\n[Variable(total, Integer, 0)]\n")
	var out bytes.Buffer
	if err := New(p, &out, nil).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "6" {
		t.Fatalf("expected total=6, got %q", got)
	}
}

func TestRunIfThenElseTakesTrueBranch(t *testing.T) {
	p := compileAndLink(t, `
Start() ~ #1;
IfThenElse(#1, true) ~ #2, #3;
Print(#2, 'yes');
Print(#3, 'no');
`)
	var out bytes.Buffer
	if err := New(p, &out, nil).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "yes" {
		t.Fatalf("expected only the true branch to print, got %q", got)
	}
}

func TestRunNativeCallInvokesHostFunction(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushF, Operand: 7}, // arg 0
		{Op: bytecode.OpPushF, Operand: 5}, // arg 1
		{Op: bytecode.OpPushF, Operand: 0}, // native index
		{Op: bytecode.OpCallC, Operand: 2}, // argc=2
		{Op: bytecode.OpPushF, Operand: int64(bytecode.PrintInt)},
		{Op: bytecode.OpSyscall, Operand: int64(bytecode.SysPrint)},
		{Op: bytecode.OpRet},
	}
	p.Natives = []string{"HostSum"}

	var out bytes.Buffer
	natives := map[string]NativeFunc{
		"HostSum": func(args []int64) int64 { return args[0] + args[1] },
	}
	if err := New(p, &out, natives).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "12" {
		t.Fatalf("expected native sum 12, got %q", got)
	}
}

func TestRunNativeCallMissingHostImplementationFaults(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushF, Operand: 0},
		{Op: bytecode.OpCallC, Operand: 0},
		{Op: bytecode.OpRet},
	}
	p.Natives = []string{"Missing"}
	var out bytes.Buffer
	err := New(p, &out, nil).Run()
	if err == nil {
		t.Fatalf("expected a runtime error for an unregistered native")
	}
}

func TestRunUserFunctionCallReturnsValue(t *testing.T) {
	// double(x) = x * 2, called from the main chain as double(21).
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		// double: entry 0 -- one parameter already on the stack at frame slot 0.
		{Op: bytecode.OpGetBI, Operand: 0},
		{Op: bytecode.OpPushB, Operand: 2},
		{Op: bytecode.OpMul},
		{Op: bytecode.OpRetN, Operand: 1},
		// main: entry 4
		{Op: bytecode.OpPushB, Operand: 21},
		{Op: bytecode.OpCallI, Operand: 0}, // byte offset of double's entry
		{Op: bytecode.OpPushF, Operand: int64(bytecode.PrintInt)},
		{Op: bytecode.OpSyscall, Operand: int64(bytecode.SysPrint)},
		{Op: bytecode.OpRet},
	}
	p.Funcs = []program.FuncEntry{{Name: "double", EntryOffset: 0, NumParams: 1, NumReturns: 1}}
	p.MainOffset = 4

	var out bytes.Buffer
	if err := New(p, &out, nil).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "42" {
		t.Fatalf("expected double(21)=42, got %q", got)
	}
}

func TestRunIntegerDivisionByZeroFaults(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushB, Operand: 10},
		{Op: bytecode.OpPushB, Operand: 0},
		{Op: bytecode.OpDiv},
		{Op: bytecode.OpRet},
	}
	var out bytes.Buffer
	err := New(p, &out, nil).Run()
	if err == nil {
		t.Fatalf("expected a division-by-zero runtime error")
	}
	rtErr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if rtErr.Op != bytecode.OpDiv {
		t.Fatalf("expected error to name the DIV instruction, got %v", rtErr.Op)
	}
}

func TestRunStringEqualityViaSyscall(t *testing.T) {
	// Data section holds two length-prefixed strings: "abc" at 0, "abc" at 8.
	data := []byte{3, 0, 0, 0, 'a', 'b', 'c', 0}
	data = append(data, 3, 0, 0, 0, 'a', 'b', 'c')
	p := program.New(bytecode.Width64)
	p.Data = data
	p.Text = []bytecode.Instruction{
		{Op: bytecode.OpPushF, Operand: 0},
		{Op: bytecode.OpPushF, Operand: 8},
		{Op: bytecode.OpPushF, Operand: int64(bytecode.StrcmpEqual)},
		{Op: bytecode.OpSyscall, Operand: int64(bytecode.SysStrcmp)},
		{Op: bytecode.OpPushF, Operand: int64(bytecode.PrintBool)},
		{Op: bytecode.OpSyscall, Operand: int64(bytecode.SysPrint)},
		{Op: bytecode.OpRet},
	}
	var out bytes.Buffer
	if err := New(p, &out, nil).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "true" {
		t.Fatalf("expected equal strings to print true, got %q", got)
	}
}

func TestRunJumpToUnalignedTargetFaults(t *testing.T) {
	p := program.New(bytecode.Width64)
	p.Text = []bytecode.Instruction{{Op: bytecode.OpJI, Operand: 999}}
	var out bytes.Buffer
	if err := New(p, &out, nil).Run(); err == nil {
		t.Fatalf("expected a jump-to-unaligned-target fault")
	}
}
