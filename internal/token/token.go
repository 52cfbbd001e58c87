// Package token defines the Decision scalar type domain and the tagged
// literal value that carries it. Types are represented as a bitset so a
// single declared type can advertise more than one permitted scalar (a
// "vague" type, §3) until the semantic pass reduces it to a single bit.
package token

import "fmt"

// Type is a bitset over the closed scalar-type domain. A value with more
// than one bit set is vague and must be reduced before code generation.
type Type uint8

const (
	None      Type = 1 << iota // no socket may carry this after reduction
	Execution                  // control-flow socket, carries no data
	Int
	Float
	String
	Bool
	Name // identifier reference (used by Set/variable sockets)
)

// Number is the vague type shared by Int and Float sockets (e.g. arithmetic
// node outputs before reduction).
const Number = Int | Float

// VarAny is the vague type accepted by Print and Set's value input.
const VarAny = Int | Float | String | Bool

// All is the full scalar domain, used as the "anything goes" initial type
// for untyped sockets prior to reduction.
const All = None | Execution | Int | Float | String | Bool | Name

var names = map[Type]string{
	None:      "None",
	Execution: "Execution",
	Int:       "Integer",
	Float:     "Float",
	String:    "String",
	Bool:      "Boolean",
	Name:      "Name",
}

// IsVague reports whether t has more than one bit set, i.e. is not yet a
// single resolved scalar type.
func (t Type) IsVague() bool {
	return t != 0 && t&(t-1) != 0
}

// IsConcrete is the complement of IsVague: exactly one bit, or zero (no
// declared type at all, which is itself an error condition by the time
// codegen runs).
func (t Type) IsConcrete() bool {
	return t != 0 && !t.IsVague()
}

// Intersect returns the set of scalar types common to both t and other.
func (t Type) Intersect(other Type) Type {
	return t & other
}

// Has reports whether t permits every bit set in want.
func (t Type) Has(want Type) bool {
	return t&want == want
}

// String renders a (possibly vague) type as a human-readable name, joining
// concrete alternatives with "|" in bit order.
func (t Type) String() string {
	if t.IsConcrete() {
		if name, ok := names[t]; ok {
			return name
		}
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	if t == 0 {
		return "Untyped"
	}
	out := ""
	for _, bit := range []Type{None, Execution, Int, Float, String, Bool, Name} {
		if t&bit != 0 {
			if out != "" {
				out += "|"
			}
			out += names[bit]
		}
	}
	return out
}

// FromKeyword maps a lexer type keyword (Integer, Float, String, Boolean,
// Execution) to its Type bit. ok is false for any other identifier.
func FromKeyword(word string) (Type, bool) {
	switch word {
	case "Integer":
		return Int, true
	case "Float":
		return Float, true
	case "String":
		return String, true
	case "Boolean":
		return Bool, true
	case "Execution":
		return Execution, true
	default:
		return 0, false
	}
}

// Value is a tagged literal value; Type must always be a concrete (single
// bit) scalar type matching the populated field.
type Value struct {
	Str  string
	Int  int64
	Flt  float64
	Bool bool
	Type Type
}

// Int64 returns an Int value.
func Int64(v int64) Value { return Value{Type: Int, Int: v} }

// Float64 returns a Float value.
func Float64(v float64) Value { return Value{Type: Float, Flt: v} }

// StringValue returns a String value.
func StringValue(v string) Value { return Value{Type: String, Str: v} }

// Boolean returns a Bool value.
func Boolean(v bool) Value { return Value{Type: Bool, Bool: v} }

// NativeFunc is the signature a host embedder registers native functions
// under (spec.md §1 "discovery of host-provided native functions from a
// global registry" — the core only consumes the injected table, it never
// builds one).
type NativeFunc func(args []Value) ([]Value, error)

// String renders the value the way it would be printed by the VM's print
// syscall.
func (v Value) String() string {
	switch v.Type {
	case Int:
		return fmt.Sprintf("%d", v.Int)
	case Float:
		return fmt.Sprintf("%g", v.Flt)
	case String:
		return v.Str
	case Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
