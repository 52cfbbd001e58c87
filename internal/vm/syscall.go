package vm

import (
	"fmt"
	"math"

	"github.com/decisionlang/decision/internal/bytecode"
)

// syscall dispatches OpSyscall's byte selector. Every selector except
// SysPrint follows the opcode table's general "push(syscall(...))" shape
// (consume its arguments, push exactly one result); SysPrint is a
// statement, not an expression — internal/codegen's lowerPrint pops both
// of its arguments and pushes nothing back, so the print syscall must
// leave the stack one shorter rather than producing a value nothing ever
// consumes.
func (vm *VM) syscall(ins bytecode.Instruction, selector int) error {
	switch selector {
	case bytecode.SysPrint:
		tag := vm.pop()
		value := vm.pop()
		text, err := vm.formatPrintValue(ins, int(tag), value)
		if err != nil {
			return err
		}
		fmt.Fprintln(vm.out, text)
		return nil

	case bytecode.SysStrcmp:
		predicate := vm.pop()
		bAddr := vm.pop()
		aAddr := vm.pop()
		a, err := vm.readString(int(aAddr))
		if err != nil {
			return vm.fault(ins, err.Error())
		}
		c, err := vm.readString(int(bAddr))
		if err != nil {
			return vm.fault(ins, err.Error())
		}
		result, err := compareStrings(a, c, int(predicate))
		if err != nil {
			return vm.fault(ins, err.Error())
		}
		vm.pushBool(result)
		return nil

	case bytecode.SysStrlen:
		addr := vm.pop()
		s, err := vm.readString(int(addr))
		if err != nil {
			return vm.fault(ins, err.Error())
		}
		vm.push(int64(len(s)))
		return nil

	default:
		return vm.fault(ins, "unknown syscall selector")
	}
}

func (vm *VM) formatPrintValue(ins bytecode.Instruction, tag int, value int64) (string, error) {
	switch tag {
	case bytecode.PrintInt:
		return fmt.Sprintf("%d", value), nil
	case bytecode.PrintFloat:
		var f float64
		if vm.width == bytecode.Width32 {
			f = float64(math.Float32frombits(uint32(value)))
		} else {
			f = math.Float64frombits(uint64(value))
		}
		return fmt.Sprintf("%g", f), nil
	case bytecode.PrintBool:
		return fmt.Sprintf("%t", value != 0), nil
	case bytecode.PrintString:
		s, err := vm.readString(int(value))
		if err != nil {
			return "", vm.fault(ins, err.Error())
		}
		return s, nil
	default:
		return "", vm.fault(ins, "unknown print type tag")
	}
}

// readString decodes the 4-byte little-endian length prefix followed by
// raw bytes that internal/codegen's internString writes into the data
// section (build.go). String values are always a pointer to one of these
// immutable payloads — see vm.go's package doc for why the stack never
// needs to track string ownership separately.
func (vm *VM) readString(addr int) (string, error) {
	if addr < 0 || addr+4 > len(vm.mem) {
		return "", fmt.Errorf("string address %d out of range", addr)
	}
	n := int(uint32(vm.mem[addr]) | uint32(vm.mem[addr+1])<<8 | uint32(vm.mem[addr+2])<<16 | uint32(vm.mem[addr+3])<<24)
	start := addr + 4
	if start+n > len(vm.mem) {
		return "", fmt.Errorf("string at %d overruns data section", addr)
	}
	return string(vm.mem[start : start+n]), nil
}

func compareStrings(a, b string, predicate int) (bool, error) {
	switch predicate {
	case bytecode.StrcmpEqual:
		return a == b, nil
	case bytecode.StrcmpNotEqual:
		return a != b, nil
	case bytecode.StrcmpLessThan:
		return a < b, nil
	case bytecode.StrcmpLessThanOrEqual:
		return a <= b, nil
	case bytecode.StrcmpMoreThan:
		return a > b, nil
	case bytecode.StrcmpMoreThanOrEqual:
		return a >= b, nil
	default:
		return false, fmt.Errorf("unknown strcmp predicate %d", predicate)
	}
}
