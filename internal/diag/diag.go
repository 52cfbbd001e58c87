// Package diag implements the compile-error/warning accumulator described
// in spec.md §7 and the "Global diagnostics buffer" redesign flag in §9: a
// per-compilation Bag threaded explicitly through lexer, parser, semantic
// analysis and linking, rather than a process-global mutable buffer.
//
// Grounded on github.com/cwbudde/go-dws's internal/errors.CompilerError,
// generalized from a single formatted error to an accumulating collection.
package diag

import (
	"fmt"
	"strings"
)

// Severity distinguishes a hard error (which skips the next stage) from a
// warning (which does not).
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a single compile/link message.
type Diagnostic struct {
	File     string
	Message  string
	Line     int
	Severity Severity
}

// Format renders a single diagnostic in the teacher's "File:Line: severity:
// message" single-line style.
func (d Diagnostic) Format() string {
	file := d.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d: %s: %s", file, d.Line, d.Severity, d.Message)
}

// Bag accumulates diagnostics for a single compilation. It is created fresh
// per Compile/Run call and passed by the caller through every stage; no
// package in this module keeps one as global state.
type Bag struct {
	items []Diagnostic
}

// New creates an empty Bag.
func New() *Bag { return &Bag{} }

// Add appends a diagnostic.
func (b *Bag) Add(file string, line int, sev Severity, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{
		File: file, Line: line, Severity: sev,
		Message: fmt.Sprintf(format, args...),
	})
}

// Errorf records an Error-severity diagnostic.
func (b *Bag) Errorf(file string, line int, format string, args ...interface{}) {
	b.Add(file, line, Error, format, args...)
}

// Warnf records a Warning-severity diagnostic.
func (b *Bag) Warnf(file string, line int, format string, args ...interface{}) {
	b.Add(file, line, Warning, format, args...)
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
// A stage is skipped iff its predecessor's Bag.HasErrors() is true
// (spec.md §7).
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every diagnostic recorded so far, in recording order.
func (b *Bag) All() []Diagnostic { return b.items }

// Merge appends another Bag's diagnostics onto b, preserving order; used
// when a recursive include walk (semantic pass, linker) wants to report
// everything in one pass (spec.md §7).
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// String joins every diagnostic, one per line, for simple CLI reporting.
func (b *Bag) String() string {
	var sb strings.Builder
	for _, d := range b.items {
		sb.WriteString(d.Format())
		sb.WriteByte('\n')
	}
	return sb.String()
}
