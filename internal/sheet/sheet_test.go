package sheet

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/vm"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLoadAndLinkSingleSheetRuns(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "main.dec", "Start() ~ #1; Print(#1, 'Hello, world!');")

	opts := CompileOptions{Width: bytecode.Width64}
	sh, err := Load(path, opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := sh.Link(opts)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	var out bytes.Buffer
	v := vm.New(p, &out, nil)
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != "Hello, world!\n" {
		t.Fatalf("expected greeting, got %q", got)
	}
}

func TestLoadResolvesIncludeFromSheetDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "lib.dec", "[Variable(shared, Integer, 41)]\nStart();\n")
	main := writeSource(t, dir, "main.dec",
		"[Include('lib.dec')]\nStart() ~ #1; Add(shared, 1) ~ #4; Set(shared, #1, #4) ~ #2; Print(#2, shared);\n")

	opts := CompileOptions{Width: bytecode.Width64}
	sh, err := Load(main, opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sh.Includes) != 1 {
		t.Fatalf("expected 1 include, got %d", len(sh.Includes))
	}

	p, err := sh.Link(opts)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	var out bytes.Buffer
	v := vm.New(p, &out, nil)
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != "42\n" {
		t.Fatalf("expected \"42\\n\", got %q", got)
	}
}

func TestLoadDetectsCircularInclude(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.dec", "[Include('b.dec')]\n")
	writeSource(t, dir, "b.dec", "[Include('a.dec')]\n")
	a := filepath.Join(dir, "a.dec")

	_, err := Load(a, CompileOptions{Width: bytecode.Width64})
	if err == nil {
		t.Fatalf("expected a circular include error")
	}
	if _, ok := err.(*CircularIncludeError); !ok {
		t.Fatalf("expected *CircularIncludeError, got %T: %v", err, err)
	}
}

func TestLoadAllowsDiamondInclude(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "d.dec", "[Variable(shared, Integer, 1)]\nStart();\n")
	writeSource(t, dir, "b.dec", "[Include('d.dec')]\nStart();\n")
	writeSource(t, dir, "c.dec", "[Include('d.dec')]\nStart();\n")
	main := writeSource(t, dir, "main.dec",
		"[Include('b.dec')]\n[Include('c.dec')]\nStart() ~ #1; Print(#1, shared);\n")

	sh, err := Load(main, CompileOptions{Width: bytecode.Width64})
	if err != nil {
		t.Fatalf("Load: %v (diamond includes of a shared dependency must not be treated as circular)", err)
	}
	if len(sh.Includes) != 2 {
		t.Fatalf("expected 2 direct includes, got %d", len(sh.Includes))
	}
}

func TestLinkWithNativeRegistrySucceedsWhenNoNativesAreCalled(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "main.dec", "Start() ~ #1; Print(#1, 'hi');")

	opts := CompileOptions{Width: bytecode.Width64, NativeRegistry: map[string]bool{}}
	sh, err := Load(path, opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := sh.Link(opts); err != nil {
		t.Fatalf("Link with an empty (but non-nil) native registry and no native calls: %v", err)
	}
}

func TestWriteObjectThenLoadObjectRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "main.dec", "Start() ~ #1; Print(#1, 'hi');")

	opts := CompileOptions{Width: bytecode.Width64}
	sh, err := Load(path, opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var buf bytes.Buffer
	if err := sh.WriteObject(&buf, opts); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}

	loaded, err := LoadObject(&buf, nil)
	if err != nil {
		t.Fatalf("LoadObject: %v", err)
	}

	var out bytes.Buffer
	v := vm.New(loaded.Program, &out, nil)
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != "hi\n" {
		t.Fatalf("expected \"hi\\n\", got %q", got)
	}
}
