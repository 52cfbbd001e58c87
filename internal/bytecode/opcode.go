// Package bytecode defines the Decision VM's instruction encoding:
// {opcode byte}{operand bytes}, no alignment (spec.md §4.10). The opcode
// table (92 opcodes) and the exact operand-width variants of each opcode
// family are pinned to _examples/original_source/src/dvm.h's OP_* enum,
// since spec.md only gives a prose sketch ("~92 opcodes"). Declaration
// style (one named constant per opcode with a doc comment describing its
// stack effect) is grounded on github.com/cwbudde/go-dws's
// internal/bytecode/instruction.go.
package bytecode

// OpCode identifies a single VM instruction.
type OpCode byte

const (
	OpRet      OpCode = iota // pop(frame); halt if base frame
	OpRetN                   // pop(frame w/ I(1) return values)
	OpAdd                    // push(pop() + pop())
	OpAddF                   // pushFloat(popFloat() + popFloat())
	OpAddBI                  // push(pop() + I(1))
	OpAddHI                  // push(pop() + I(half))
	OpAddFI                  // push(pop() + I(full))
	OpAnd                    // push(pop() & pop())
	OpAndBI                  // push(pop() & I(1))
	OpAndHI                  // push(pop() & I(half))
	OpAndFI                  // push(pop() & I(full))
	OpCall                   // pc = pop(); push(frame w/ I(1) args)
	OpCallC                  // call native at pop(), w/ I(1) args
	OpCallCI                 // call native at I(full), w/ 0 args
	OpCallI                  // pc = I(full); push(frame w/ callee's NumParams args)
	OpCallR                  // pc += pop(); push(frame w/ callee's NumParams args)
	OpCallRB                 // pc += I(1); push(frame w/ callee's NumParams args)
	OpCallRH                 // pc += I(half); push(frame w/ callee's NumParams args)
	OpCallRF                 // pc += I(full); push(frame w/ callee's NumParams args)
	OpCEq                    // push(pop() == pop())
	OpCEqF                   // push(popFloat() == popFloat())
	OpCLEq                   // push(pop() <= pop())
	OpCLEqF                  // push(popFloat() <= popFloat())
	OpCLT                    // push(pop() < pop())
	OpCLTF                   // push(popFloat() < popFloat())
	OpCMEq                   // push(pop() >= pop())
	OpCMEqF                  // push(popFloat() >= popFloat())
	OpCMT                    // push(pop() > pop())
	OpCMTF                   // push(popFloat() > popFloat())
	OpCvtF                   // push(float(pop()))
	OpCvtI                   // push(int(pop()))
	OpDeref                  // push(*pop())
	OpDerefI                 // push(*I(full))
	OpDerefB                 // push(byte(*pop()))
	OpDerefBI                // push(byte(*I(full)))
	OpDiv                    // push(pop() / pop())
	OpDivF                   // pushFloat(popFloat() / popFloat())
	OpDivBI                  // push(pop() / I(1))
	OpDivHI                  // push(pop() / I(half))
	OpDivFI                  // push(pop() / I(full))
	OpGet                    // push(frame[pop()])
	OpGetBI                  // push(frame[I(1)])
	OpGetHI                  // push(frame[I(half)])
	OpGetFI                  // push(frame[I(full)])
	OpJ                      // pc = pop()
	OpJCon                   // if pop() then pc = pop() else pop()
	OpJConI                  // if pop() then pc = I(full)
	OpJI                     // pc = I(full)
	OpJR                     // pc += pop()
	OpJRBI                   // pc += I(1)
	OpJRHI                   // pc += I(half)
	OpJRFI                   // pc += I(full)
	OpJRCon                  // if pop() then pc += pop() else pop()
	OpJRConBI                // if pop() then pc += I(1)
	OpJRConHI                // if pop() then pc += I(half)
	OpJRConFI                // if pop() then pc += I(full)
	OpMod                    // push(pop() % pop())
	OpModBI                  // push(pop() % I(1))
	OpModHI                  // push(pop() % I(half))
	OpModFI                  // push(pop() % I(full))
	OpMul                    // push(pop() * pop())
	OpMulF                   // pushFloat(popFloat() * popFloat())
	OpMulBI                  // push(pop() * I(1))
	OpMulHI                  // push(pop() * I(half))
	OpMulFI                  // push(pop() * I(full))
	OpNot                    // push(!pop())
	OpOr                     // push(pop() | pop())
	OpOrBI                   // push(pop() | I(1))
	OpOrHI                   // push(pop() | I(half))
	OpOrFI                   // push(pop() | I(full))
	OpPop                    // pop() once
	OpPopB                   // pop() I(1) times
	OpPopH                   // pop() I(half) times
	OpPopF                   // pop() I(full) times
	OpPushB                  // push(I(1))
	OpPushH                  // push(I(half))
	OpPushF                  // push(I(full))
	OpPushNB                 // push(0) I(1) times
	OpPushNH                 // push(0) I(half) times
	OpPushNF                 // push(0) I(full) times
	OpSetAdr                 // *pop() = pop()
	OpSetAdrB                // *byte(pop()) = pop()
	OpSub                    // push(pop() - pop())
	OpSubF                   // pushFloat(popFloat() - popFloat())
	OpSubBI                  // push(pop() - I(1))
	OpSubHI                  // push(pop() - I(half))
	OpSubFI                  // push(pop() - I(full))
	OpSyscall                // push(syscall(I(1), ...))
	OpXor                    // push(pop() ^ pop())
	OpXorBI                  // push(pop() ^ I(1))
	OpXorHI                  // push(pop() ^ I(half))
	OpXorFI                  // push(pop() ^ I(full))

	numOpCodes
)

// NumOpCodes is the size of the opcode table (92, per spec.md §4.10).
const NumOpCodes = int(numOpCodes)

// OperandWidth classifies how many operand bytes follow an opcode byte.
type OperandWidth int

const (
	NoOperand OperandWidth = iota
	ByteOperand
	HalfOperand
	FullOperand
)

var operandWidths = buildOperandWidths()

func buildOperandWidths() [numOpCodes]OperandWidth {
	var w [numOpCodes]OperandWidth
	full := []OpCode{
		OpAddFI, OpAndFI, OpCallCI, OpCallI, OpCallRF, OpDerefI, OpDerefBI,
		OpDivFI, OpGetFI, OpJConI, OpJI, OpJRFI, OpJRConFI, OpModFI, OpMulFI,
		OpOrFI, OpPopF, OpPushF, OpPushNF, OpSubFI, OpXorFI,
	}
	half := []OpCode{
		OpAddHI, OpAndHI, OpCallRH, OpDivHI, OpGetHI, OpJRHI, OpJRConHI,
		OpModHI, OpMulHI, OpOrHI, OpPopH, OpPushH, OpPushNH, OpSubHI, OpXorHI,
	}
	bi := []OpCode{
		OpAddBI, OpAndBI, OpCallRB, OpDivBI, OpGetBI, OpJRBI, OpJRConBI,
		OpModBI, OpMulBI, OpOrBI, OpPopB, OpPushB, OpPushNB, OpSubBI, OpXorBI,
		OpRetN, OpCall, OpCallC, OpSyscall,
	}
	for _, op := range full {
		w[op] = FullOperand
	}
	for _, op := range half {
		w[op] = HalfOperand
	}
	for _, op := range bi {
		w[op] = ByteOperand
	}
	return w
}

// Width returns the operand width of op.
func (op OpCode) Width() OperandWidth {
	if int(op) < 0 || int(op) >= int(numOpCodes) {
		return NoOperand
	}
	return operandWidths[op]
}

// IsRelativeJump reports whether op encodes a PC-relative control transfer
// whose operand the peephole optimizer's byte-range deletion must rewrite
// when bytes are removed from the span it crosses (spec.md §4.9).
func (op OpCode) IsRelativeJump() bool {
	switch op {
	case OpJR, OpJRBI, OpJRHI, OpJRFI, OpJRCon, OpJRConBI, OpJRConHI, OpJRConFI,
		OpCallR, OpCallRB, OpCallRH, OpCallRF:
		return true
	}
	return false
}

// ImmediateFamily groups opcodes that exist in byte/half/full immediate
// variants with the same underlying operation, used by the peephole
// optimizer's immediate-width-shrinking pass (spec.md §4.9). ok is false
// for opcodes with no narrower/wider sibling.
func (op OpCode) ImmediateFamily() (byteOp, halfOp, fullOp OpCode, ok bool) {
	fam, ok := immediateFamilies[op]
	if !ok {
		return 0, 0, 0, false
	}
	return fam[0], fam[1], fam[2], true
}

var immediateFamilies = buildImmediateFamilies()

func buildImmediateFamilies() map[OpCode][3]OpCode {
	groups := [][3]OpCode{
		{OpAddBI, OpAddHI, OpAddFI},
		{OpAndBI, OpAndHI, OpAndFI},
		{OpDivBI, OpDivHI, OpDivFI},
		{OpModBI, OpModHI, OpModFI},
		{OpMulBI, OpMulHI, OpMulFI},
		{OpOrBI, OpOrHI, OpOrFI},
		{OpSubBI, OpSubHI, OpSubFI},
		{OpXorBI, OpXorHI, OpXorFI},
		{OpJRBI, OpJRHI, OpJRFI},
		{OpJRConBI, OpJRConHI, OpJRConFI},
		{OpCallRB, OpCallRH, OpCallRF},
		{OpPopB, OpPopH, OpPopF},
		{OpPushB, OpPushH, OpPushF},
		{OpPushNB, OpPushNH, OpPushNF},
		{OpGetBI, OpGetHI, OpGetFI},
	}
	m := make(map[OpCode][3]OpCode, len(groups)*3)
	for _, g := range groups {
		m[g[0]] = g
		m[g[1]] = g
		m[g[2]] = g
	}
	return m
}

var opNames = buildOpNames()

func buildOpNames() [numOpCodes]string {
	var n [numOpCodes]string
	set := func(op OpCode, name string) { n[op] = name }
	set(OpRet, "RET")
	set(OpRetN, "RETN")
	set(OpAdd, "ADD")
	set(OpAddF, "ADDF")
	set(OpAddBI, "ADDBI")
	set(OpAddHI, "ADDHI")
	set(OpAddFI, "ADDFI")
	set(OpAnd, "AND")
	set(OpAndBI, "ANDBI")
	set(OpAndHI, "ANDHI")
	set(OpAndFI, "ANDFI")
	set(OpCall, "CALL")
	set(OpCallC, "CALLC")
	set(OpCallCI, "CALLCI")
	set(OpCallI, "CALLI")
	set(OpCallR, "CALLR")
	set(OpCallRB, "CALLRB")
	set(OpCallRH, "CALLRH")
	set(OpCallRF, "CALLRF")
	set(OpCEq, "CEQ")
	set(OpCEqF, "CEQF")
	set(OpCLEq, "CLEQ")
	set(OpCLEqF, "CLEQF")
	set(OpCLT, "CLT")
	set(OpCLTF, "CLTF")
	set(OpCMEq, "CMEQ")
	set(OpCMEqF, "CMEQF")
	set(OpCMT, "CMT")
	set(OpCMTF, "CMTF")
	set(OpCvtF, "CVTF")
	set(OpCvtI, "CVTI")
	set(OpDeref, "DEREF")
	set(OpDerefI, "DEREFI")
	set(OpDerefB, "DEREFB")
	set(OpDerefBI, "DEREFBI")
	set(OpDiv, "DIV")
	set(OpDivF, "DIVF")
	set(OpDivBI, "DIVBI")
	set(OpDivHI, "DIVHI")
	set(OpDivFI, "DIVFI")
	set(OpGet, "GET")
	set(OpGetBI, "GETBI")
	set(OpGetHI, "GETHI")
	set(OpGetFI, "GETFI")
	set(OpJ, "J")
	set(OpJCon, "JCON")
	set(OpJConI, "JCONI")
	set(OpJI, "JI")
	set(OpJR, "JR")
	set(OpJRBI, "JRBI")
	set(OpJRHI, "JRHI")
	set(OpJRFI, "JRFI")
	set(OpJRCon, "JRCON")
	set(OpJRConBI, "JRCONBI")
	set(OpJRConHI, "JRCONHI")
	set(OpJRConFI, "JRCONFI")
	set(OpMod, "MOD")
	set(OpModBI, "MODBI")
	set(OpModHI, "MODHI")
	set(OpModFI, "MODFI")
	set(OpMul, "MUL")
	set(OpMulF, "MULF")
	set(OpMulBI, "MULBI")
	set(OpMulHI, "MULHI")
	set(OpMulFI, "MULFI")
	set(OpNot, "NOT")
	set(OpOr, "OR")
	set(OpOrBI, "ORBI")
	set(OpOrHI, "ORHI")
	set(OpOrFI, "ORFI")
	set(OpPop, "POP")
	set(OpPopB, "POPB")
	set(OpPopH, "POPH")
	set(OpPopF, "POPF")
	set(OpPushB, "PUSHB")
	set(OpPushH, "PUSHH")
	set(OpPushF, "PUSHF")
	set(OpPushNB, "PUSHNB")
	set(OpPushNH, "PUSHNH")
	set(OpPushNF, "PUSHNF")
	set(OpSetAdr, "SETADR")
	set(OpSetAdrB, "SETADRB")
	set(OpSub, "SUB")
	set(OpSubF, "SUBF")
	set(OpSubBI, "SUBBI")
	set(OpSubHI, "SUBHI")
	set(OpSubFI, "SUBFI")
	set(OpSyscall, "SYSCALL")
	set(OpXor, "XOR")
	set(OpXorBI, "XORBI")
	set(OpXorHI, "XORHI")
	set(OpXorFI, "XORFI")
	return n
}

func (op OpCode) String() string {
	if int(op) < 0 || int(op) >= int(numOpCodes) {
		return "INVALID"
	}
	return opNames[op]
}

// Syscall selectors for OpSyscall's byte selector operand (spec.md §4.10).
const (
	SysPrint  = 0
	SysStrcmp = 1
	SysStrlen = 2
)

// Strcmp predicate selectors, passed as SysStrcmp's second argument.
const (
	StrcmpEqual = iota
	StrcmpNotEqual
	StrcmpLessThan
	StrcmpLessThanOrEqual
	StrcmpMoreThan
	StrcmpMoreThanOrEqual
)

// Print type-tag selectors, passed as SysPrint's first argument.
const (
	PrintInt = iota
	PrintFloat
	PrintString
	PrintBool
)
