// Package resolve implements spec.md §4.4: mapping a textual name to one of
// {core op, variable, user function, native function} across a sheet's
// recursive include tree.
//
// Grounded on github.com/cwbudde/go-dws's internal/semantic/symbol_table.go
// (a scoped symbol table with an "outer" link walked on lookup miss),
// generalized here from lexical scope nesting to an include-tree walk: the
// "outer" scopes become included sheets, walked depth-first in declaration
// order per spec.md §9's open-question resolution.
package resolve

import (
	"fmt"

	"github.com/decisionlang/decision/internal/graph"
)

// VarSymbol is a resolvable variable declaration.
type VarSymbol struct {
	Name string
}

// FuncSymbol is a resolvable user-function declaration.
type FuncSymbol struct {
	Name string
}

// NativeSymbol is a resolvable host-registered native function.
type NativeSymbol struct {
	Name string
}

// Scope is one sheet's resolvable name set, plus its includes in
// declaration order. internal/sheet builds one of these per Sheet and
// passes it here rather than this package depending on internal/sheet,
// avoiding an import cycle (sheet naturally depends on graph and this
// package, not the reverse).
type Scope struct {
	Variables []VarSymbol
	Functions []FuncSymbol
	Natives   []NativeSymbol
	Includes  []*Scope // declaration order, i.e. Include statement order
}

// AmbiguousError reports that a name matched more than one definition.
type AmbiguousError struct {
	Name    string
	Matches []graph.NameRef
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous name %q: %d matching definitions", e.Name, len(e.Matches))
}

// UnknownNameError reports that a name matched no definition at all.
type UnknownNameError struct {
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown name %q", e.Name)
}

// Lookup resolves name within scope following spec.md §4.4's search order:
// core ops, then this sheet's own variables/functions/natives, then a
// depth-first, declaration-order walk of the include tree. It returns an
// error (AmbiguousError or UnknownNameError) unless exactly one definition
// matches.
func Lookup(scope *Scope, name string) (graph.NameRef, error) {
	var matches []graph.NameRef
	if IsCoreOp(name) {
		matches = append(matches, graph.NameRef{Kind: graph.KindCoreOp, Name: name})
	}
	matches = append(matches, lookupInSheets(scope, name, map[*Scope]bool{})...)

	switch len(matches) {
	case 0:
		return graph.NameRef{}, &UnknownNameError{Name: name}
	case 1:
		return matches[0], nil
	default:
		return graph.NameRef{}, &AmbiguousError{Name: name, Matches: matches}
	}
}

// lookupInSheets walks this sheet's own declarations, then its includes
// depth-first in declaration order, without re-checking the core-op table
// (which is global, not per-sheet, and is checked exactly once by Lookup).
func lookupInSheets(scope *Scope, name string, visited map[*Scope]bool) []graph.NameRef {
	var out []graph.NameRef
	if scope == nil || visited[scope] {
		return out
	}
	visited[scope] = true

	for _, v := range scope.Variables {
		if v.Name == name {
			out = append(out, graph.NameRef{Kind: graph.KindVariable, Name: name})
		}
	}
	for _, f := range scope.Functions {
		if f.Name == name {
			out = append(out, graph.NameRef{Kind: graph.KindUserFunction, Name: name})
		}
	}
	for _, n := range scope.Natives {
		if n.Name == name {
			out = append(out, graph.NameRef{Kind: graph.KindNativeFunction, Name: name})
		}
	}
	for _, inc := range scope.Includes {
		out = append(out, lookupInSheets(inc, name, visited)...)
	}
	return out
}

// IsSpecialName reports whether name is one of the two grammar-level
// special-cased node names (Define, Return) that implicitly take the
// containing function's name as their first argument (spec.md §4.4).
func IsSpecialName(name string) bool {
	return name == "Define" || name == "Return"
}
