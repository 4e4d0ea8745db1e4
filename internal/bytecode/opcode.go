// Package bytecode defines glint's instruction set and the Chunk
// container the compiler emits into (spec §3.7, §4.5, §6.2).
//
// Grounded on the teacher's internal/vmregister/bytecode.go register
// instruction set (iABC/iABx/iAsBx/iAx packed 32-bit words, R(A) R(B)
// R(C) stack-picture comments), generalized from a fixed 32-bit word to
// a byte stream with per-opcode fixed operand widths as spec §4.5/§6.2
// requires: one opcode byte, register operands one byte each,
// instruction-pointer offsets two bytes little-endian, "long" constant
// indices four bytes little-endian.
package bytecode

import "fmt"

// Op is a single opcode byte.
type Op uint8

const (
	// --- data movement ---
	Copy Op = iota
	DeepCopy
	SetNull
	SetFalse
	SetTrue
	SetNumberU8 // reg, imm8 unsigned small int
	LoadNumber  // reg, const8
	LoadNumberLong
	LoadString
	LoadStringLong
	LoadNonLocal // reg, const8 (name)
	SetNonLocal

	// --- containers ---
	MakeTuple // reg, startReg, count
	MakeTempTuple
	MakeList // reg, startReg, count
	MakeMap  // reg, sizeHint
	MakeIterator
	SequenceStart
	SequencePush
	SequenceToList
	SequenceToTuple
	StringStart
	StringPush
	StringFinish

	// --- functions ---
	Function // reg, argCount, captureCount, flags, bodySizeLong
	Capture  // targetFnReg, sourceReg, captureIndex
	LoadCapture
	SetCapture
	Call // resultReg, funcReg, argReg, argCount
	CallInstance
	Return
	Yield

	// --- arithmetic/logic ---
	Negate
	Not
	Add
	Subtract
	Multiply
	Divide
	Remainder
	Less
	LessOrEqual
	Greater
	GreaterOrEqual
	Equal
	NotEqual
	AddAssign
	SubtractAssign
	MultiplyAssign
	DivideAssign
	RemainderAssign

	// --- ranges ---
	Range
	RangeInclusive
	RangeTo
	RangeToInclusive
	RangeFrom
	RangeFull

	// --- access ---
	Index
	SetIndex
	Access
	AccessString
	SetAccessString
	MapInsert
	MetaInsert
	MetaExport

	// --- control flow ---
	Jump // offset16
	JumpIfTrue
	JumpIfFalse
	JumpBack
	IterNext // resultReg, iterReg, endOffset16
	IterNextTemp
	IterNextQuiet
	IterUnpack

	// --- size/types ---
	Size
	CheckSizeEqual
	CheckSizeMin
	AssertType
	CheckType

	// --- import ---
	Import

	// --- errors/debug ---
	TryStart // catchReg, bodyEndOffset16
	TryEnd
	Throw
	Debug

	opCount
)

// operandBytes is the fixed operand width (excluding the opcode byte
// itself) for every opcode. "Long" opcodes carry a 4-byte constant
// index; jump-bearing opcodes carry a 2-byte offset; everything else is
// sized by how many register/immediate operands it takes (spec §6.2).
var operandBytes = [opCount]int{
	Copy: 2, DeepCopy: 2, SetNull: 1, SetFalse: 1, SetTrue: 1,
	SetNumberU8: 2, LoadNumber: 2, LoadNumberLong: 5,
	LoadString: 2, LoadStringLong: 5,
	LoadNonLocal: 2, SetNonLocal: 2,

	MakeTuple: 3, MakeTempTuple: 3, MakeList: 3, MakeMap: 2, MakeIterator: 2,
	SequenceStart: 1, SequencePush: 2, SequenceToList: 1, SequenceToTuple: 1,
	StringStart: 1, StringPush: 2, StringFinish: 1,

	Function: 8, Capture: 3, LoadCapture: 2, SetCapture: 2,
	Call: 4, CallInstance: 4, Return: 1, Yield: 1,

	Negate: 2, Not: 2,
	Add: 3, Subtract: 3, Multiply: 3, Divide: 3, Remainder: 3,
	Less: 3, LessOrEqual: 3, Greater: 3, GreaterOrEqual: 3, Equal: 3, NotEqual: 3,
	AddAssign: 2, SubtractAssign: 2, MultiplyAssign: 2, DivideAssign: 2, RemainderAssign: 2,

	Range: 3, RangeInclusive: 3, RangeTo: 2, RangeToInclusive: 2, RangeFrom: 2, RangeFull: 1,

	Index: 3, SetIndex: 3, Access: 3, AccessString: 3, SetAccessString: 3,
	MapInsert: 3, MetaInsert: 3, MetaExport: 2,

	Jump: 2, JumpIfTrue: 3, JumpIfFalse: 3, JumpBack: 2,
	IterNext: 4, IterNextTemp: 4, IterNextQuiet: 3, IterUnpack: 3,

	Size: 2, CheckSizeEqual: 3, CheckSizeMin: 3, AssertType: 2, CheckType: 2,

	Import: 2,

	TryStart: 3, TryEnd: 0, Throw: 1, Debug: 2,
}

// OperandBytes reports how many operand bytes follow op's opcode byte.
func OperandBytes(op Op) int {
	if int(op) >= len(operandBytes) {
		return 0
	}
	return operandBytes[op]
}

var opNames = [opCount]string{
	Copy: "Copy", DeepCopy: "DeepCopy", SetNull: "SetNull", SetFalse: "SetFalse", SetTrue: "SetTrue",
	SetNumberU8: "SetNumberU8", LoadNumber: "LoadNumber", LoadNumberLong: "LoadNumberLong",
	LoadString: "LoadString", LoadStringLong: "LoadStringLong",
	LoadNonLocal: "LoadNonLocal", SetNonLocal: "SetNonLocal",
	MakeTuple: "MakeTuple", MakeTempTuple: "MakeTempTuple", MakeList: "MakeList",
	MakeMap: "MakeMap", MakeIterator: "MakeIterator",
	SequenceStart: "SequenceStart", SequencePush: "SequencePush",
	SequenceToList: "SequenceToList", SequenceToTuple: "SequenceToTuple",
	StringStart: "StringStart", StringPush: "StringPush", StringFinish: "StringFinish",
	Function: "Function", Capture: "Capture", LoadCapture: "LoadCapture", SetCapture: "SetCapture",
	Call: "Call", CallInstance: "CallInstance", Return: "Return", Yield: "Yield",
	Negate: "Negate", Not: "Not", Add: "Add", Subtract: "Subtract", Multiply: "Multiply",
	Divide: "Divide", Remainder: "Remainder",
	Less: "Less", LessOrEqual: "LessOrEqual", Greater: "Greater", GreaterOrEqual: "GreaterOrEqual",
	Equal: "Equal", NotEqual: "NotEqual",
	AddAssign: "AddAssign", SubtractAssign: "SubtractAssign", MultiplyAssign: "MultiplyAssign",
	DivideAssign: "DivideAssign", RemainderAssign: "RemainderAssign",
	Range: "Range", RangeInclusive: "RangeInclusive", RangeTo: "RangeTo",
	RangeToInclusive: "RangeToInclusive", RangeFrom: "RangeFrom", RangeFull: "RangeFull",
	Index: "Index", SetIndex: "SetIndex", Access: "Access", AccessString: "AccessString",
	SetAccessString: "SetAccessString",
	MapInsert: "MapInsert", MetaInsert: "MetaInsert", MetaExport: "MetaExport",
	Jump: "Jump", JumpIfTrue: "JumpIfTrue", JumpIfFalse: "JumpIfFalse", JumpBack: "JumpBack",
	IterNext: "IterNext", IterNextTemp: "IterNextTemp", IterNextQuiet: "IterNextQuiet", IterUnpack: "IterUnpack",
	Size: "Size", CheckSizeEqual: "CheckSizeEqual", CheckSizeMin: "CheckSizeMin",
	AssertType: "AssertType", CheckType: "CheckType",
	Import: "Import",
	TryStart: "TryStart", TryEnd: "TryEnd", Throw: "Throw", Debug: "Debug",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("illegal_op(%d)", op)
}
