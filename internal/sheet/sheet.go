// Package sheet owns the compilation unit spec.md §4.1 calls a Sheet: a
// source file's path, its own property declarations and graph, its
// included sheets, and — once compiled — the unlinked internal/program.Program
// a codegen pass produced from its graph. Link assembles one sheet and its
// transitive includes into a single runnable program (internal/link.Merge
// then internal/link.Resolve, with internal/optimize.Run skipped whenever
// debug info was requested, matching spec.md §4.10's "optimization is
// skipped in debug mode").
//
// Grounded on the teacher's cmd/dwscript/cmd/run.go unitSearchPaths idiom
// (a script's own directory plus caller-supplied search paths) generalized
// from units to sheets, and on spec.md §4.5's explicit circular-include
// guard ("a prior-sheet list threaded through compile options").
package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/codegen"
	"github.com/decisionlang/decision/internal/diag"
	"github.com/decisionlang/decision/internal/graph"
	"github.com/decisionlang/decision/internal/link"
	"github.com/decisionlang/decision/internal/objfile"
	"github.com/decisionlang/decision/internal/optimize"
	"github.com/decisionlang/decision/internal/parser"
	"github.com/decisionlang/decision/internal/program"
	"github.com/decisionlang/decision/internal/resolve"
	"github.com/decisionlang/decision/internal/semantic"
)

// CompileOptions governs how a sheet and its includes are compiled and
// linked.
type CompileOptions struct {
	Width       bytecode.IntWidth
	Debug       bool // keep debug info; internal/optimize is skipped when set
	Optimize    bool
	IncludeDirs []string // extra search paths, tried after the sheet's own directory

	// NativeRegistry, when non-nil, names every native function the host
	// embedder will supply to internal/vm.New. Link and LoadObject check
	// the linked program's required `.c` signatures against it and fail
	// with a *link.MissingNativeError naming every gap, rather than
	// leaving a missing native to surface as a CALLC fault mid-run. A nil
	// map skips the check entirely.
	NativeRegistry map[string]bool
}

// CircularIncludeError reports an Include chain that revisits a sheet
// already being compiled higher up the same chain.
type CircularIncludeError struct {
	Path string
}

func (e *CircularIncludeError) Error() string {
	return fmt.Sprintf("circular include: %q is already being compiled", e.Path)
}

// CompileError wraps a non-empty diagnostics bag produced while loading a
// sheet or one of its includes.
type CompileError struct {
	Bag *diag.Bag
}

func (e *CompileError) Error() string { return e.Bag.String() }

// Sheet is one compilation unit: its own declarations and graph, its
// included sheets (declaration order), and the compiled-but-unlinked
// program codegen produced from its graph.
type Sheet struct {
	Path      string
	Bag       *diag.Bag
	Property  *semantic.PropertyResult
	Scope     *resolve.Scope
	Graph     *graph.Graph
	Includes  []*Sheet
	Program   *program.Program
	AllowFree bool // false suppresses recursive Dispose, for shared host-embedded sheets

	includePaths []string // set on LoadObject, where there's no re-parsed Property.Includes
	disposed     bool
}

// Load parses path and its transitive includes, running the property,
// node, and type-reduction phases and compiling each into its own
// unlinked program.Program. Call Link on the result to produce a single
// runnable artifact.
func Load(path string, opts CompileOptions) (*Sheet, error) {
	return load(path, opts, map[string]bool{}, map[string]*Sheet{})
}

// load parses path, threading two maps through the recursion: visiting (a
// recursion-stack membership test, cleared on the way back out — catches
// genuine cycles) and loaded (a whole-call memo keyed by canonical path,
// never cleared — so a diamond, where two different includes both name
// the same sheet, loads and compiles it exactly once and both parents
// share the one *Sheet and its one *resolve.Scope). Without the memo,
// resolve.Lookup's own pointer-keyed cycle guard can't tell the two
// independently-loaded copies of a diamond's shared sheet apart, and a
// name declared there resolves ambiguously instead of once.
func load(path string, opts CompileOptions, visiting map[string]bool, loaded map[string]*Sheet) (*Sheet, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if sh, ok := loaded[abs]; ok {
		return sh, nil
	}
	if visiting[abs] {
		return nil, &CircularIncludeError{Path: abs}
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	bag := diag.New()
	tree := parser.ParseSource(string(src), bag, abs)
	if !tree.Success {
		return &Sheet{Path: abs, Bag: bag, AllowFree: true}, &CompileError{Bag: bag}
	}
	pr := semantic.RunPropertyPhase(tree, bag, abs)
	scope := semantic.BuildScope(pr)

	sh := &Sheet{Path: abs, Bag: bag, Property: pr, Scope: scope, AllowFree: true}

	for _, incName := range pr.Includes {
		incPath, err := resolveInclude(abs, incName, opts.IncludeDirs)
		if err != nil {
			return nil, err
		}
		inc, err := load(incPath, opts, visiting, loaded)
		if err != nil {
			return nil, err
		}
		sh.Includes = append(sh.Includes, inc)
		scope.Includes = append(scope.Includes, inc.Scope)
		bag.Merge(inc.Bag)
	}

	g := semantic.Analyze(tree, pr, scope, bag, abs)
	sh.Graph = g
	if bag.HasErrors() {
		loaded[abs] = sh
		return sh, &CompileError{Bag: bag}
	}

	sh.Program = codegen.Compile(g, pr, opts.Width, opts.Debug)
	loaded[abs] = sh
	return sh, nil
}

// resolveInclude resolves an Include statement's name first against the
// including sheet's own directory, then against each of searchDirs, in
// order — the same fallback shape as the teacher's unitSearchPaths.
func resolveInclude(fromPath, name string, searchDirs []string) (string, error) {
	candidates := append([]string{filepath.Dir(fromPath)}, searchDirs...)
	for _, dir := range candidates {
		p := name
		if !filepath.IsAbs(name) {
			p = filepath.Join(dir, name)
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("include %q: no such file in %q or search paths", name, filepath.Dir(fromPath))
}

// Link merges this sheet and every sheet it transitively includes into one
// program.Program, resolves every pending relocation, and — when Optimize
// is set and Debug is not — runs the peephole optimizer. The returned program's MainOffset
// is this sheet's own entry point; included sheets contribute only
// variables, functions, and data, never a runnable entry of their own.
func (s *Sheet) Link(opts CompileOptions) (*program.Program, error) {
	if s.Program == nil {
		return nil, fmt.Errorf("sheet %q has unresolved compile errors", s.Path)
	}
	main := program.New(opts.Width)
	collect(s, main, map[*Sheet]bool{})
	main.MainOffset = s.Program.MainOffset

	if err := link.Resolve(main); err != nil {
		return nil, err
	}
	if opts.NativeRegistry != nil {
		if err := link.VerifyNatives(main, opts.NativeRegistry); err != nil {
			return nil, err
		}
	}
	if opts.Optimize && !opts.Debug {
		optimize.Run(main)
	}
	return main, nil
}

// collect merges s and every sheet it transitively includes into main
// exactly once each, tracked by seen: a diamond include (two sheets both
// including a third) shares one *Sheet after Load's own load-cache, and
// merging its Program twice would double every variable, function, and
// data entry it declares.
func collect(s *Sheet, main *program.Program, seen map[*Sheet]bool) {
	if seen[s] {
		return
	}
	seen[s] = true
	link.Merge(main, s.Program)
	for _, inc := range s.Includes {
		collect(inc, main, seen)
	}
}

// WriteObject compiles, links, and serializes s to an object file. The
// written include list records the paths contributing sheets, for
// informational/debugging purposes only: the object file's program is
// already fully linked, so loading it back never re-resolves includes.
func (s *Sheet) WriteObject(w io.Writer, opts CompileOptions) error {
	p, err := s.Link(opts)
	if err != nil {
		return err
	}
	return objfile.Write(w, p, s.includeTreePaths())
}

func (s *Sheet) includeTreePaths() []string {
	var paths []string
	seen := map[string]bool{}
	var walk func(*Sheet)
	walk = func(sh *Sheet) {
		if seen[sh.Path] {
			return
		}
		seen[sh.Path] = true
		paths = append(paths, sh.Path)
		for _, inc := range sh.Includes {
			walk(inc)
		}
	}
	walk(s)
	return paths
}

// LoadObject reads an already-linked program from an object file and, when
// registry is non-nil, verifies its `.c` section's required native
// signatures against it (see CompileOptions.NativeRegistry) before
// returning — matching spec.md §4.8's "on load it recreates the sheet,
// then re-links it and verifies that any `.c` requirements are satisfied
// by the host-provided registry". The result carries no Includes or Graph
// — objfile captures only the post-link artifact — so it is ready to hand
// straight to internal/vm.New or internal/debugger.New.
func LoadObject(r io.Reader, registry map[string]bool) (*Sheet, error) {
	p, includes, err := objfile.Read(r)
	if err != nil {
		return nil, err
	}
	if registry != nil {
		if err := link.VerifyNatives(p, registry); err != nil {
			return nil, err
		}
	}
	return &Sheet{Program: p, includePaths: includes, AllowFree: true}, nil
}

// Dispose marks s (and, when AllowFree is set, every included sheet)
// unusable. Go's garbage collector reclaims the underlying memory on its
// own regardless; Dispose exists so host embedders following spec.md
// §4.1's lifecycle ("created by source load or object load, freed by
// explicit dispose") have an explicit point to call, and so a
// shared, host-registered library sheet can opt out of being torn down
// when one of its referrers disposes (AllowFree = false).
func (s *Sheet) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for _, inc := range s.Includes {
		if inc.AllowFree {
			inc.Dispose()
		}
	}
}

// Disposed reports whether Dispose has already run on s.
func (s *Sheet) Disposed() bool { return s.disposed }
