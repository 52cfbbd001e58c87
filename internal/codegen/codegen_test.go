package codegen

import (
	"testing"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/parser"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/semantic"
)

func compileSource(t *testing.T, src string) *program.Program {
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
	return Compile(g, pr, bytecode.Width64, false)
}

func TestCompileHelloWorldEmitsPrintSyscall(t *testing.T) {
	prog := compileSource(t, "Start() ~ #1; Print(#1, 'Hello, world!');")
	found := false
	for _, ins := range prog.Text {
		if ins.Op == bytecode.OpSyscall && ins.Operand == bytecode.SysPrint {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SYSCALL PrintSys instruction, got %v", prog.Text)
	}
	foundStringLiteral := false
	for _, rec := range prog.LinkTable {
		if rec.Kind == program.LinkStringLiteral {
			foundStringLiteral = true
		}
	}
	if !foundStringLiteral {
		t.Fatalf("expected a string-literal link record")
	}
}

func TestCompileDebugBuildReportsStringDeduplication(t *testing.T) {
	bag := diag.New()
	src := "Start() ~ #1; Print(#1, 'hi') ~ #2; Print(#2, 'hi') ~ #3; Print(#3, 'bye');"
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
	prog := Compile(g, pr, bytecode.Width64, true)

	var hi, bye *program.StringLiteral
	for i := range prog.StringLiterals {
		switch prog.StringLiterals[i].Value {
		case "hi":
			hi = &prog.StringLiterals[i]
		case "bye":
			bye = &prog.StringLiterals[i]
		}
	}
	if hi == nil || hi.Count != 2 {
		t.Fatalf("expected \"hi\" shared twice, got %+v", hi)
	}
	if bye == nil || bye.Count != 1 {
		t.Fatalf("expected \"bye\" referenced once, got %+v", bye)
	}
}

func TestCompileArithmeticFoldsVariadicAdd(t *testing.T) {
	prog := compileSource(t, "Start() ~ #1; Add(1, 2, 3) ~ #4; Set(total, #1, #4) ~ #2;\n[Variable(total, Integer, 0)]\n")
	addCount := 0
	for _, ins := range prog.Text {
		if ins.Op == bytecode.OpAdd {
			addCount++
		}
	}
	if addCount != 2 {
		t.Fatalf("expected 2 ADD instructions folding 3 operands, got %d", addCount)
	}
	if len(prog.Vars) == 0 {
		t.Fatalf("expected total to be laid out as a program variable")
	}
}

func TestCompileIfThenElseEmitsTwoJumps(t *testing.T) {
	prog := compileSource(t, `
Start() ~ #1;
IfThenElse(#1, true) ~ #2, #3;
Print(#2, 'yes');
Print(#3, 'no');
`)
	jumps := 0
	for _, ins := range prog.Text {
		if ins.Op == bytecode.OpJRConFI || ins.Op == bytecode.OpJRFI {
			jumps++
		}
	}
	if jumps < 2 {
		t.Fatalf("expected at least 2 control-flow jumps, got %d", jumps)
	}
}
