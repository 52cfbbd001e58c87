// Package vm executes a linked, optimized internal/program.Program: a
// register-less stack machine over a byte-addressable memory image (the
// program's Data section, mutable at run time), with a separate call-frame
// stack kept off the value stack so frame-relative addressing (GETFI) never
// has to account for VM-internal bookkeeping cells. Grounded on the
// teacher's vm_core.go/vm_exec.go/vm_stack.go split: a dispatcher loop over
// a big opcode switch, operating on a Stack helper with push/pop/grow.
//
// Stack values are plain int64 words; floats are reinterpreted bit
// patterns (math.Float64frombits/Float32bits, matching internal/codegen's
// floatBits) and strings are never copied onto the stack at all — a string
// value is always the Data-section byte offset of a length-prefixed
// payload, and that payload is immutable for the program's entire lifetime
// (see the "string ownership" Open Question decision in DESIGN.md). This
// is why, unlike the C original's stack cells, nothing here needs an
// owned/borrowed tag or a release-on-pop step.
package vm

import (
	"fmt"
	"io"
	"math"

	"github.com/decisionlang/decision/internal/bytecode"
	"github.com/decisionlang/decision/internal/program"
)

// NativeFunc is a host-provided function reachable from a sheet's CALLC
// site. Native calls are modeled as always returning exactly one value
// (internal/codegen's documented simplification); args are passed in
// call order.
type NativeFunc func(args []int64) int64

// callFrame records what a CALLI/CALL must restore on return: the stack
// index its parameters begin at, and the instruction index to resume the
// caller at.
type callFrame struct {
	base  int
	retPC int
}

// VM holds one program's mutable execution state. It is not safe for
// concurrent use; each Run executes from a freshly reset stack/memory
// image.
type VM struct {
	text    []bytecode.Instruction
	offsets []int       // offsets[i]: byte offset of text[i]
	indexOf map[int]int // byte offset -> instruction index

	funcByEntry map[int]program.FuncEntry // keyed by byte offset of FuncEntry.EntryOffset
	width       bytecode.IntWidth

	natives   []string
	nativeFns map[string]NativeFunc

	mem   []byte
	stack []int64

	frames []callFrame
	pc     int

	out io.Writer
}

// New builds a VM ready to execute p. natives maps every name in
// p.Natives to its host implementation; Run returns an error if a CALLC
// site names one that's missing.
func New(p *program.Program, out io.Writer, natives map[string]NativeFunc) *VM {
	offsets := make([]int, len(p.Text))
	indexOf := make(map[int]int, len(p.Text))
	off := 0
	for i, ins := range p.Text {
		offsets[i] = off
		indexOf[off] = i
		off += ins.Size(p.Width)
	}

	funcByEntry := make(map[int]program.FuncEntry, len(p.Funcs))
	for _, fn := range p.Funcs {
		funcByEntry[offsets[fn.EntryOffset]] = fn
	}

	mem := make([]byte, len(p.Data))
	copy(mem, p.Data)

	return &VM{
		text:        p.Text,
		offsets:     offsets,
		indexOf:     indexOf,
		funcByEntry: funcByEntry,
		width:       p.Width,
		natives:     p.Natives,
		nativeFns:   natives,
		mem:         mem,
		pc:          p.MainOffset,
		out:         out,
	}
}

// RuntimeError reports a failure that occurred while executing an
// instruction, identified by its index in the linked program's text
// section.
type RuntimeError struct {
	InstrIndex int
	Op         bytecode.OpCode
	Message    string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at instruction %d (%s): %s", e.InstrIndex, e.Op, e.Message)
}

// Run executes from the program's entry point until the base frame's RET,
// or until an instruction faults.
func (vm *VM) Run() error {
	for {
		halt, err := vm.Step()
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
}

// Step executes exactly one instruction and reports whether the base
// frame's RET was just reached. internal/debugger drives the VM one
// instruction at a time through this instead of Run, so it can consult
// the program's debug map and fire its callbacks between instructions.
func (vm *VM) Step() (bool, error) {
	if vm.pc < 0 || vm.pc >= len(vm.text) {
		return false, &RuntimeError{InstrIndex: vm.pc, Message: "program counter out of range"}
	}
	return vm.step(vm.text[vm.pc])
}

// PC returns the instruction index Step will execute next.
func (vm *VM) PC() int { return vm.pc }

// Instruction returns the instruction at PC(), for a caller (the
// debugger) that wants to classify it before Step executes it.
func (vm *VM) Instruction() bytecode.Instruction { return vm.text[vm.pc] }

// Top returns the value currently on top of the stack, if any. Used by
// the debugger to read the value an instruction just produced.
func (vm *VM) Top() (int64, bool) {
	if len(vm.stack) == 0 {
		return 0, false
	}
	return vm.stack[len(vm.stack)-1], true
}

func (vm *VM) fault(ins bytecode.Instruction, msg string) error {
	return &RuntimeError{InstrIndex: vm.pc, Op: ins.Op, Message: msg}
}

func (vm *VM) push(v int64)  { vm.stack = append(vm.stack, v) }
func (vm *VM) pop() int64 {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) pushBool(b bool) {
	if b {
		vm.push(1)
		return
	}
	vm.push(0)
}

func (vm *VM) pushFloat(f float64) {
	if vm.width == bytecode.Width32 {
		vm.push(int64(math.Float32bits(float32(f))))
		return
	}
	vm.push(int64(math.Float64bits(f)))
}

func (vm *VM) popFloat() float64 {
	bits := vm.pop()
	if vm.width == bytecode.Width32 {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(uint64(bits))
}

// frameBase is the stack index GETFI/SETADR-free frame addressing is
// relative to: 0 while executing the sheet's own Start chain (no call is
// active), or the active call's argument base otherwise.
func (vm *VM) frameBase() int {
	if len(vm.frames) == 0 {
		return 0
	}
	return vm.frames[len(vm.frames)-1].base
}

// relativeTarget converts a relative-jump/call instruction's byte delta
// operand into the instruction index it lands on.
func (vm *VM) relativeTarget(idx int, ins bytecode.Instruction) (int, bool) {
	from := vm.offsets[idx] + ins.Size(vm.width)
	target, ok := vm.indexOf[from+int(ins.Operand)]
	return target, ok
}

func (vm *VM) absoluteTarget(byteOffset int64) (int, bool) {
	idx, ok := vm.indexOf[int(byteOffset)]
	return idx, ok
}
