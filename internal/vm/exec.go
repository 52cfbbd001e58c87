package vm

import (
	"encoding/binary"

	"github.com/decisionlang/decision/internal/bytecode"
)

// step executes one instruction and advances vm.pc, returning (true, nil)
// once the base frame's RET is reached.
func (vm *VM) step(ins bytecode.Instruction) (bool, error) {
	next := vm.pc + 1

	switch ins.Op {
	case bytecode.OpRet:
		if len(vm.frames) == 0 {
			return true, nil
		}
		f := vm.frames[len(vm.frames)-1]
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.stack = vm.stack[:f.base]
		next = f.retPC

	case bytecode.OpRetN:
		n := int(ins.Operand)
		if len(vm.frames) == 0 {
			return false, vm.fault(ins, "RETN with no active call frame")
		}
		f := vm.frames[len(vm.frames)-1]
		vm.frames = vm.frames[:len(vm.frames)-1]
		results := append([]int64(nil), vm.stack[len(vm.stack)-n:]...)
		vm.stack = vm.stack[:f.base]
		vm.stack = append(vm.stack, results...)
		next = f.retPC

	case bytecode.OpAdd:
		b, a := vm.pop(), vm.pop()
		vm.push(a + b)
	case bytecode.OpAddF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushFloat(a + b)
	case bytecode.OpAddBI, bytecode.OpAddHI, bytecode.OpAddFI:
		vm.push(vm.pop() + ins.Operand)

	case bytecode.OpSub:
		b, a := vm.pop(), vm.pop()
		vm.push(a - b)
	case bytecode.OpSubF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushFloat(a - b)
	case bytecode.OpSubBI, bytecode.OpSubHI, bytecode.OpSubFI:
		vm.push(vm.pop() - ins.Operand)

	case bytecode.OpMul:
		b, a := vm.pop(), vm.pop()
		vm.push(a * b)
	case bytecode.OpMulF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushFloat(a * b)
	case bytecode.OpMulBI, bytecode.OpMulHI, bytecode.OpMulFI:
		vm.push(vm.pop() * ins.Operand)

	case bytecode.OpDiv:
		b, a := vm.pop(), vm.pop()
		if b == 0 {
			return false, vm.fault(ins, "integer division by zero")
		}
		vm.push(a / b)
	case bytecode.OpDivF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushFloat(a / b)
	case bytecode.OpDivBI, bytecode.OpDivHI, bytecode.OpDivFI:
		if ins.Operand == 0 {
			return false, vm.fault(ins, "integer division by zero")
		}
		vm.push(vm.pop() / ins.Operand)

	case bytecode.OpMod:
		b, a := vm.pop(), vm.pop()
		if b == 0 {
			return false, vm.fault(ins, "modulo by zero")
		}
		vm.push(a % b)
	case bytecode.OpModBI, bytecode.OpModHI, bytecode.OpModFI:
		if ins.Operand == 0 {
			return false, vm.fault(ins, "modulo by zero")
		}
		vm.push(vm.pop() % ins.Operand)

	case bytecode.OpAnd:
		b, a := vm.pop(), vm.pop()
		vm.push(a & b)
	case bytecode.OpAndBI, bytecode.OpAndHI, bytecode.OpAndFI:
		vm.push(vm.pop() & ins.Operand)
	case bytecode.OpOr:
		b, a := vm.pop(), vm.pop()
		vm.push(a | b)
	case bytecode.OpOrBI, bytecode.OpOrHI, bytecode.OpOrFI:
		vm.push(vm.pop() | ins.Operand)
	case bytecode.OpXor:
		b, a := vm.pop(), vm.pop()
		vm.push(a ^ b)
	case bytecode.OpXorBI, bytecode.OpXorHI, bytecode.OpXorFI:
		vm.push(vm.pop() ^ ins.Operand)
	case bytecode.OpNot:
		vm.pushBool(vm.pop() == 0)

	case bytecode.OpCEq:
		b, a := vm.pop(), vm.pop()
		vm.pushBool(a == b)
	case bytecode.OpCEqF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushBool(a == b)
	case bytecode.OpCLEq:
		b, a := vm.pop(), vm.pop()
		vm.pushBool(a <= b)
	case bytecode.OpCLEqF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushBool(a <= b)
	case bytecode.OpCLT:
		b, a := vm.pop(), vm.pop()
		vm.pushBool(a < b)
	case bytecode.OpCLTF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushBool(a < b)
	case bytecode.OpCMEq:
		b, a := vm.pop(), vm.pop()
		vm.pushBool(a >= b)
	case bytecode.OpCMEqF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushBool(a >= b)
	case bytecode.OpCMT:
		b, a := vm.pop(), vm.pop()
		vm.pushBool(a > b)
	case bytecode.OpCMTF:
		b, a := vm.popFloat(), vm.popFloat()
		vm.pushBool(a > b)

	case bytecode.OpCvtF:
		vm.pushFloat(float64(vm.pop()))
	case bytecode.OpCvtI:
		vm.push(int64(vm.popFloat()))

	case bytecode.OpDeref:
		vm.push(vm.readWord(int(vm.pop())))
	case bytecode.OpDerefI:
		vm.push(vm.readWord(int(ins.Operand)))
	case bytecode.OpDerefB:
		vm.push(int64(vm.mem[vm.pop()]))
	case bytecode.OpDerefBI:
		vm.push(int64(vm.mem[ins.Operand]))

	case bytecode.OpSetAdr:
		addr, val := vm.pop(), vm.pop()
		vm.writeWord(int(addr), val)
	case bytecode.OpSetAdrB:
		addr, val := vm.pop(), vm.pop()
		vm.mem[addr] = byte(val)

	case bytecode.OpGet:
		vm.push(vm.stack[vm.frameBase()+int(vm.pop())])
	case bytecode.OpGetBI, bytecode.OpGetHI, bytecode.OpGetFI:
		vm.push(vm.stack[vm.frameBase()+int(ins.Operand)])

	case bytecode.OpJ:
		idx, ok := vm.absoluteTarget(vm.pop())
		if !ok {
			return false, vm.fault(ins, "jump to unaligned target")
		}
		next = idx
	case bytecode.OpJI:
		idx, ok := vm.absoluteTarget(ins.Operand)
		if !ok {
			return false, vm.fault(ins, "jump to unaligned target")
		}
		next = idx
	case bytecode.OpJCon:
		target, cond := vm.pop(), vm.pop()
		if cond != 0 {
			idx, ok := vm.absoluteTarget(target)
			if !ok {
				return false, vm.fault(ins, "jump to unaligned target")
			}
			next = idx
		}
	case bytecode.OpJConI:
		if vm.pop() != 0 {
			idx, ok := vm.absoluteTarget(ins.Operand)
			if !ok {
				return false, vm.fault(ins, "jump to unaligned target")
			}
			next = idx
		}

	case bytecode.OpJR:
		from := vm.offsets[vm.pc] + ins.Size(vm.width)
		idx, ok := vm.absoluteTarget(int64(from) + vm.pop())
		if !ok {
			return false, vm.fault(ins, "jump to unaligned target")
		}
		next = idx
	case bytecode.OpJRBI, bytecode.OpJRHI, bytecode.OpJRFI:
		idx, ok := vm.relativeJumpTarget(ins)
		if !ok {
			return false, vm.fault(ins, "jump to unaligned target")
		}
		next = idx
	case bytecode.OpJRCon:
		target, cond := vm.pop(), vm.pop()
		if cond != 0 {
			from := vm.offsets[vm.pc] + ins.Size(vm.width)
			idx, ok := vm.absoluteTarget(int64(from) + target)
			if !ok {
				return false, vm.fault(ins, "jump to unaligned target")
			}
			next = idx
		}
	case bytecode.OpJRConBI, bytecode.OpJRConHI, bytecode.OpJRConFI:
		if vm.pop() != 0 {
			idx, ok := vm.relativeJumpTarget(ins)
			if !ok {
				return false, vm.fault(ins, "jump to unaligned target")
			}
			next = idx
		}

	case bytecode.OpPop:
		vm.pop()
	case bytecode.OpPopB, bytecode.OpPopH, bytecode.OpPopF:
		n := int(ins.Operand)
		vm.stack = vm.stack[:len(vm.stack)-n]

	case bytecode.OpPushB, bytecode.OpPushH, bytecode.OpPushF:
		vm.push(ins.Operand)
	case bytecode.OpPushNB, bytecode.OpPushNH, bytecode.OpPushNF:
		for i := int64(0); i < ins.Operand; i++ {
			vm.push(0)
		}

	case bytecode.OpCall:
		target := vm.pop()
		idx, ok := vm.absoluteTarget(target)
		if !ok {
			return false, vm.fault(ins, "call to unaligned target")
		}
		numArgs := int(ins.Operand)
		vm.frames = append(vm.frames, callFrame{base: len(vm.stack) - numArgs, retPC: next})
		next = idx
	case bytecode.OpCallI:
		fn, ok := vm.funcByEntry[int(ins.Operand)]
		if !ok {
			return false, vm.fault(ins, "call target is not a known function entry")
		}
		idx, ok := vm.absoluteTarget(ins.Operand)
		if !ok {
			return false, vm.fault(ins, "call to unaligned target")
		}
		vm.frames = append(vm.frames, callFrame{base: len(vm.stack) - fn.NumParams, retPC: next})
		next = idx
	case bytecode.OpCallR, bytecode.OpCallRB, bytecode.OpCallRH, bytecode.OpCallRF:
		idx, ok := vm.relativeJumpTarget(ins)
		if ins.Op == bytecode.OpCallR {
			from := vm.offsets[vm.pc] + ins.Size(vm.width)
			idx, ok = vm.absoluteTarget(int64(from) + vm.pop())
		}
		if !ok {
			return false, vm.fault(ins, "call to unaligned target")
		}
		fn, hasMeta := vm.funcByEntry[vm.offsets[idx]]
		numArgs := 0
		if hasMeta {
			numArgs = fn.NumParams
		}
		vm.frames = append(vm.frames, callFrame{base: len(vm.stack) - numArgs, retPC: next})
		next = idx

	case bytecode.OpCallC:
		addr := vm.pop()
		result, err := vm.callNative(ins, addr, int(ins.Operand))
		if err != nil {
			return false, err
		}
		vm.push(result)
	case bytecode.OpCallCI:
		// Never emitted by internal/codegen (no argument-count operand
		// exists for this opcode family); defined for ISA completeness
		// and invoked, if ever reached, with zero arguments.
		result, err := vm.callNative(ins, ins.Operand, 0)
		if err != nil {
			return false, err
		}
		vm.push(result)

	case bytecode.OpSyscall:
		if err := vm.syscall(ins, int(ins.Operand)); err != nil {
			return false, err
		}

	default:
		return false, vm.fault(ins, "unimplemented opcode")
	}

	vm.pc = next
	return false, nil
}

func (vm *VM) relativeJumpTarget(ins bytecode.Instruction) (int, bool) {
	return vm.relativeTarget(vm.pc, ins)
}

func (vm *VM) readWord(addr int) int64 {
	buf := vm.mem[addr : addr+vm.width.WordBytes()]
	var tmp [8]byte
	copy(tmp[:], buf)
	return int64(binary.LittleEndian.Uint64(tmp[:]))
}

func (vm *VM) writeWord(addr int, v int64) {
	n := vm.width.WordBytes()
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	copy(vm.mem[addr:addr+n], tmp[:n])
}

func (vm *VM) callNative(ins bytecode.Instruction, nativeIdx int64, argc int) (int64, error) {
	if int(nativeIdx) < 0 || int(nativeIdx) >= len(vm.natives) {
		return 0, vm.fault(ins, "native index out of range")
	}
	name := vm.natives[nativeIdx]
	fn, ok := vm.nativeFns[name]
	if !ok {
		return 0, vm.fault(ins, "no host implementation registered for native "+name)
	}
	args := append([]int64(nil), vm.stack[len(vm.stack)-argc:]...)
	vm.stack = vm.stack[:len(vm.stack)-argc]
	return fn(args), nil
}
