// Package vm executes a compiled bytecode.Chunk: a register-based
// dispatch loop driving the tagged-union Value type of internal/value
// (spec §4.6).
//
// Grounded on the teacher's internal/vmregister.RegisterVM — a cached-
// locals fetch/decode/execute loop over a register file and an explicit
// call-frame stack — stripped of its JIT/profiling/security-module
// machinery (none of which spec §4.6 asks for) and of NaN-boxing (see
// internal/value's package doc), keeping the shape that matters: one
// opcode byte read per iteration, fixed-width operands sliced directly
// off the instruction stream, a switch dispatching to inlined fast
// paths for arithmetic. See DESIGN.md.
package vm

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/constpool"
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/value"
)

// ModuleLoader resolves an import path to its module's exports map
// (spec §4.6's Import handling, §4.7's module search protocol).
// Defined locally rather than imported from internal/loader: the loader
// needs to run a module chunk in its own VM frame to produce that
// exports map, so the dependency has to run loader -> vm, not the
// reverse.
type ModuleLoader interface {
	LoadModule(path string) (*value.Map, error)
}

// VM executes compiled chunks. One VM is single-goroutine except for
// its own generator sub-VMs (see generator.go), which run on their own
// goroutine but are driven synchronously by Next()/NextBack() so only
// one of {caller, generator} ever runs at a time.
type VM struct {
	Prelude *value.Map // built-in names visible without import (spec §4.6's LoadNonLocal fallback)
	Loader  ModuleLoader

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	deadline    time.Time
	hasDeadline bool

	moduleCache map[string]*value.Map
}

// New returns a VM with no deadline and no loader; the embedder wires
// Prelude/Loader/Stdout etc. before calling Run (spec §6.1's embedder API).
func New() *VM {
	return &VM{moduleCache: make(map[string]*value.Map)}
}

// SetTimeout bounds total execution time; Run reports a Timeout error
// once exceeded (spec §4.6's "optional execution-time-limit").
func (vm *VM) SetTimeout(d time.Duration) {
	vm.deadline = time.Now().Add(d)
	vm.hasDeadline = true
}

// Run executes chunk's top-level frame to completion, returning its
// final value. If chunk.MainIsExport is set, callers that need the
// exports map should use RunModule instead.
func (vm *VM) Run(chunk *bytecode.Chunk) (value.Value, error) {
	f := newFrame(chunk, 0, nil)
	v, err := vm.runFrame(f)
	if err != nil {
		return value.Value{}, err
	}
	return v, nil
}

// RunModule executes chunk's top level and materializes its exports Map
// from chunk.Exports, for use as an imported module's namespace (spec
// §4.6's Import handling).
func (vm *VM) RunModule(chunk *bytecode.Chunk) (*value.Map, error) {
	f := newFrame(chunk, 0, nil)
	_, err := vm.runFrameInto(f)
	if err != nil {
		return nil, err
	}
	exports := value.NewMap()
	for name, reg := range chunk.Exports {
		exports.Set(value.NewStrValue(name), f.regs[reg])
	}
	return exports, nil
}

// runFrameInto is like runFrame but hands back the frame itself (its
// registers, for export materialization) alongside any error.
func (vm *VM) runFrameInto(f *Frame) (*Frame, *gerr.Error) {
	_, err := vm.runFrame(f)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func decodeU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func decodeU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// spanAt renders the source span for an in-progress instruction, used
// to attach position info to runtime errors.
func (vm *VM) spanAt(chunk *bytecode.Chunk, offset int) gerr.Span {
	span, ok := chunk.Debug.SpanAt(offset)
	if !ok {
		return gerr.Span{}
	}
	return span
}

func (vm *VM) fail(f *Frame, kind gerr.Kind, format string, args ...any) *gerr.Error {
	return gerr.New(gerr.FamilyRuntime, kind, vm.spanAt(f.chunk, f.ip), format, args...)
}

// runFrame is the fetch-decode-execute loop for one call frame (spec
// §4.6's Execution model). Nested Koto-function calls recurse through
// vm.call -> vm.runFrame, using Go's own call stack as the VM's frame
// stack; Frame.parent is kept purely for trace-frame rendering once an
// error is unwinding.
func (vm *VM) runFrame(f *Frame) (value.Value, *gerr.Error) {
	code := f.chunk.Bytes
	for {
		if vm.hasDeadline && time.Now().After(vm.deadline) {
			return value.Value{}, vm.fail(f, gerr.KindTimeout, "execution time limit exceeded")
		}

		opStart := f.ip
		op := bytecode.Op(code[opStart])
		n := bytecode.OperandBytes(op)
		ops := code[opStart+1 : opStart+1+n]
		ip := opStart + 1 + n

		var thrown *gerr.Error

		switch op {
		case bytecode.Copy:
			f.regs[ops[0]] = f.regs[ops[1]]
		case bytecode.DeepCopy:
			f.regs[ops[0]] = deepCopy(f.regs[ops[1]])
		case bytecode.SetNull:
			f.regs[ops[0]] = value.Null()
		case bytecode.SetFalse:
			f.regs[ops[0]] = value.Bool(false)
		case bytecode.SetTrue:
			f.regs[ops[0]] = value.Bool(true)
		case bytecode.SetNumberU8:
			f.regs[ops[0]] = value.Int(int64(ops[1]))

		case bytecode.LoadNumber:
			f.regs[ops[0]] = loadNumberConstant(f.chunk, uint32(ops[1]))
		case bytecode.LoadNumberLong:
			f.regs[ops[0]] = loadNumberConstant(f.chunk, decodeU32(ops[1:5]))
		case bytecode.LoadString:
			f.regs[ops[0]] = value.NewStrValue(f.chunk.Constants.GetString(constIndex(ops[1])))
		case bytecode.LoadStringLong:
			f.regs[ops[0]] = value.NewStrValue(f.chunk.Constants.GetString(constpool.Index(decodeU32(ops[1:5]))))
		case bytecode.LoadNonLocal:
			name := f.chunk.Constants.GetString(constIndex(ops[1]))
			v, ok := vm.lookupNonLocal(name)
			if !ok {
				thrown = vm.fail(f, gerr.KindUnexpected, "%q is not defined", name)
				break
			}
			f.regs[ops[0]] = v
		case bytecode.SetNonLocal:
			name := f.chunk.Constants.GetString(constIndex(ops[1]))
			if vm.Prelude != nil {
				vm.Prelude.Set(value.NewStrValue(name), f.regs[ops[0]])
			}

		case bytecode.MakeTuple:
			f.regs[ops[0]] = value.NewTuple(copyRegs(f.regs[:], int(ops[1]), int(ops[2])))
		case bytecode.MakeTempTuple:
			f.regs[ops[0]] = value.NewTemporaryTuple(f.regs[:], int(ops[1]), int(ops[2]))
		case bytecode.MakeList:
			f.regs[ops[0]] = value.NewList(copyRegs(f.regs[:], int(ops[1]), int(ops[2])))
		case bytecode.MakeMap:
			f.regs[ops[0]] = value.NewMapValue(value.NewMap())
		case bytecode.MakeIterator:
			it, err := vm.makeIterator(f.regs[ops[1]])
			if err != nil {
				thrown = vm.fail(f, gerr.KindUnexpected, "%s", err)
				break
			}
			f.regs[ops[0]] = value.NewIteratorValue(it)

		case bytecode.SequenceStart:
			f.regs[ops[0]] = value.NewList(nil)
		case bytecode.SequencePush:
			l := f.regs[ops[0]].AsList()
			l.Elems = append(l.Elems, f.regs[ops[1]])
		case bytecode.SequenceToList:
			// already a List; nothing to do.
		case bytecode.SequenceToTuple:
			l := f.regs[ops[0]].AsList()
			f.regs[ops[0]] = value.NewTuple(l.Elems)

		case bytecode.StringStart:
			f.regs[ops[0]] = value.NewStrValue("")
		case bytecode.StringPush:
			acc := f.regs[ops[0]].AsStr().String()
			f.regs[ops[0]] = value.NewStrValue(acc + value.Display(value.NewDisplayContext(), f.regs[ops[1]], true))
		case bytecode.StringFinish:
			// accumulator register already holds the finished string.

		case bytecode.Function:
			f.regs[ops[0]] = vm.buildFunction(f, opStart, ops)
			ip = functionSkipTarget(opStart, ops)

		case bytecode.Capture:
			// Normally consumed directly by the Function case above;
			// only reached if a chunk is hand-decoded instruction by
			// instruction rather than skipped as a unit.
		case bytecode.LoadCapture:
			f.regs[ops[0]] = *f.captures[ops[1]]
		case bytecode.SetCapture:
			*f.captures[ops[0]] = f.regs[ops[1]]

		case bytecode.Call, bytecode.CallInstance:
			resultReg, callee := int(ops[0]), f.regs[ops[1]]
			argReg, argCount := int(ops[2]), int(ops[3])
			result, err := vm.call(f, callee, argReg, argCount)
			if err != nil {
				thrown = err
				break
			}
			f.regs[resultReg] = result
		case bytecode.Return:
			return f.regs[ops[0]], nil
		case bytecode.Yield:
			if f.generator == nil {
				thrown = vm.fail(f, gerr.KindFeatureMisuse, "yield outside of a generator")
				break
			}
			f.generator.yield(f.regs[ops[0]])

		case bytecode.Negate, bytecode.Not:
			v, err := unaryOp(op, f.regs[ops[1]])
			if err != nil {
				thrown = vm.fail(f, gerr.KindInvalidBinOp, "%s", err)
				break
			}
			f.regs[ops[0]] = v
		case bytecode.Add, bytecode.Subtract, bytecode.Multiply, bytecode.Divide, bytecode.Remainder,
			bytecode.Less, bytecode.LessOrEqual, bytecode.Greater, bytecode.GreaterOrEqual,
			bytecode.Equal, bytecode.NotEqual:
			v, err := vm.binaryOp(op, f.regs[ops[1]], f.regs[ops[2]])
			if err != nil {
				thrown = vm.fail(f, gerr.KindInvalidBinOp, "%s", err)
				break
			}
			f.regs[ops[0]] = v
		case bytecode.AddAssign, bytecode.SubtractAssign, bytecode.MultiplyAssign,
			bytecode.DivideAssign, bytecode.RemainderAssign:
			v, err := vm.binaryOp(compoundToBinary(op), f.regs[ops[0]], f.regs[ops[1]])
			if err != nil {
				thrown = vm.fail(f, gerr.KindInvalidBinOp, "%s", err)
				break
			}
			f.regs[ops[0]] = v

		case bytecode.Range, bytecode.RangeInclusive:
			start, end := f.regs[ops[1]].AsInt(), f.regs[ops[2]].AsInt()
			f.regs[ops[0]] = value.NewRange(&value.Range{Start: &start, End: &end, Inclusive: op == bytecode.RangeInclusive})
		case bytecode.RangeTo, bytecode.RangeToInclusive:
			end := f.regs[ops[1]].AsInt()
			f.regs[ops[0]] = value.NewRange(&value.Range{End: &end, Inclusive: op == bytecode.RangeToInclusive})
		case bytecode.RangeFrom:
			start := f.regs[ops[1]].AsInt()
			f.regs[ops[0]] = value.NewRange(&value.Range{Start: &start})
		case bytecode.RangeFull:
			f.regs[ops[0]] = value.NewRange(&value.Range{})

		case bytecode.Index:
			v, err := vm.index(f.regs[ops[1]], f.regs[ops[2]])
			if err != nil {
				thrown = vm.fail(f, gerr.KindUnexpected, "%s", err)
				break
			}
			f.regs[ops[0]] = v
		case bytecode.SetIndex:
			if err := vm.setIndex(f.regs[ops[0]], f.regs[ops[1]], f.regs[ops[2]]); err != nil {
				thrown = vm.fail(f, gerr.KindUnexpected, "%s", err)
			}
		case bytecode.Access:
			v, err := vm.access(f.regs[ops[1]], f.regs[ops[2]].AsStr().String())
			if err != nil {
				thrown = vm.fail(f, gerr.KindUnexpected, "%s", err)
				break
			}
			f.regs[ops[0]] = v
		case bytecode.AccessString:
			name := f.chunk.Constants.GetString(constIndex(ops[2]))
			v, err := vm.access(f.regs[ops[1]], name)
			if err != nil {
				thrown = vm.fail(f, gerr.KindUnexpected, "%s", err)
				break
			}
			f.regs[ops[0]] = v
		case bytecode.SetAccessString:
			name := f.chunk.Constants.GetString(constIndex(ops[1]))
			if err := vm.setAccess(f.regs[ops[0]], name, f.regs[ops[2]]); err != nil {
				thrown = vm.fail(f, gerr.KindUnexpected, "%s", err)
			}
		case bytecode.MapInsert:
			f.regs[ops[0]].AsMap().Set(f.regs[ops[1]], f.regs[ops[2]])
		case bytecode.MetaInsert:
			name := f.chunk.Constants.GetString(constIndex(ops[1]))
			m := f.regs[ops[0]].AsMap()
			if m.Meta == nil {
				m.Meta = value.NewMeta()
			}
			m.Meta.Set(parseMetaKey(name), f.regs[ops[2]])
		case bytecode.MetaExport:
			// Reserved for a future class/meta export surface; no parser
			// construct emits this opcode yet.

		case bytecode.Jump:
			ip = opStart + 1 + int(decodeU16(ops))
		case bytecode.JumpIfTrue:
			if f.regs[ops[0]].Truthy() {
				ip = opStart + 2 + int(decodeU16(ops[1:3]))
			}
		case bytecode.JumpIfFalse:
			if !f.regs[ops[0]].Truthy() {
				ip = opStart + 2 + int(decodeU16(ops[1:3]))
			}
		case bytecode.JumpBack:
			ip -= int(decodeU16(ops))

		case bytecode.IterNext:
			done, err := vm.iterNext(f, int(ops[0]), int(ops[1]), false)
			if err != nil {
				thrown = err
				break
			}
			if done {
				ip = opStart + 3 + int(decodeU16(ops[2:4]))
			}
		case bytecode.IterNextTemp:
			done, err := vm.iterNext(f, int(ops[0]), int(ops[1]), true)
			if err != nil {
				thrown = err
				break
			}
			if done {
				ip = opStart + 3 + int(decodeU16(ops[2:4]))
			}
		case bytecode.IterNextQuiet:
			out := f.regs[ops[1]].AsIterator().Next()
			if out.Tag == value.OutputDone {
				f.regs[ops[0]] = value.Null()
			} else {
				f.regs[ops[0]] = iterOutputValue(out)
			}
		case bytecode.IterUnpack:
			vm.iterUnpack(f, int(ops[0]), f.regs[ops[1]], int(ops[2]))

		case bytecode.Size:
			sz, ok := sizeOf(f.regs[ops[1]])
			if !ok {
				thrown = vm.fail(f, gerr.KindUnexpected, "%s has no size", f.regs[ops[1]].TypeName())
				break
			}
			f.regs[ops[0]] = value.Int(int64(sz))
		case bytecode.CheckSizeEqual:
			sz, _ := sizeOf(f.regs[ops[0]])
			if sz != int(ops[2]) {
				thrown = vm.fail(f, gerr.KindUnexpected, "expected size %d, got %d", ops[2], sz)
			}
		case bytecode.CheckSizeMin:
			sz, _ := sizeOf(f.regs[ops[0]])
			if sz < int(ops[2]) {
				thrown = vm.fail(f, gerr.KindUnexpected, "expected size >= %d, got %d", ops[2], sz)
			}
		case bytecode.AssertType:
			want := f.chunk.Constants.GetString(constIndex(ops[1]))
			if f.regs[ops[0]].TypeName() != want {
				thrown = vm.fail(f, gerr.KindUnexpected, "expected %s, got %s", want, f.regs[ops[0]].TypeName())
			}
		case bytecode.CheckType:
			want := f.chunk.Constants.GetString(constIndex(ops[1]))
			f.regs[ops[0]] = value.Bool(f.regs[ops[0]].TypeName() == want)

		case bytecode.Import:
			name := f.chunk.Constants.GetString(constIndex(ops[1]))
			v, err := vm.doImport(name)
			if err != nil {
				thrown = err
				break
			}
			f.regs[ops[0]] = v

		case bytecode.TryStart:
			target := opStart + 2 + int(decodeU16(ops[1:3]))
			f.tryHandlers = append(f.tryHandlers, tryHandler{catchReg: int(ops[0]), target: target})
		case bytecode.TryEnd:
			f.tryHandlers = f.tryHandlers[:len(f.tryHandlers)-1]
		case bytecode.Throw:
			thrown = vm.throwError(f, f.regs[ops[0]])
		case bytecode.Debug:
			label := f.chunk.Constants.GetString(constIndex(ops[1]))
			if vm.Stderr != nil {
				io.WriteString(vm.Stderr, "[debug] "+label+": "+value.Display(value.NewDisplayContext(), f.regs[ops[0]], false)+"\n")
			}
		}

		if thrown != nil {
			if handled, newIP := f.catch(thrown, &f.regs); handled {
				ip = newIP
			} else {
				return value.Value{}, thrown.WithTraceFrame(f.chunk.SourcePath, vm.spanAt(f.chunk, opStart), "")
			}
		}
		f.ip = ip
	}
}

// catch looks for an active try handler covering this throw, binds the
// error value into its catch register, and reports the jump target to
// resume at (spec §4.6's TryStart/TryEnd protocol).
func (f *Frame) catch(e *gerr.Error, regs *[frameRegisterCount]value.Value) (bool, int) {
	if len(f.tryHandlers) == 0 {
		return false, 0
	}
	h := f.tryHandlers[len(f.tryHandlers)-1]
	f.tryHandlers = f.tryHandlers[:len(f.tryHandlers)-1]
	if e.Value != nil {
		regs[h.catchReg] = e.Value.(stringerValue).v
	} else {
		regs[h.catchReg] = value.NewStrValue(e.Message)
	}
	return true, h.target
}

func constIndex(b byte) constpool.Index { return constpool.Index(b) }

func copyRegs(regs []value.Value, start, count int) []value.Value {
	out := make([]value.Value, count)
	copy(out, regs[start:start+count])
	return out
}

func loadNumberConstant(chunk *bytecode.Chunk, idx uint32) value.Value {
	c, _ := chunk.Constants.Get(constpool.Index(idx))
	if c.Kind == "i64" {
		return value.Int(c.Int)
	}
	return value.Float(c.Float)
}

// buildFunction decodes a Function opcode's 8-byte header at opStart
// plus the captureCount Capture records immediately following it,
// reading all of it directly from the chunk's byte stream rather than
// through the dispatch switch: Capture is a real instruction (spec
// §4.5's splicing), but the VM must parse its fixed-width records in
// one shot here so runFrame can jump straight past them without ever
// executing one through the generic switch, which has no way to know
// a capture record should be followed by "skip everything up to
// bodyStart+bodySize" rather than "fall through to the next opcode".
func (vm *VM) buildFunction(f *Frame, opStart int, header []byte) value.Value {
	argCount := int(header[1])
	captureCount := int(header[2])
	flags := value.FunctionFlags(header[3])

	fn := &value.Function{
		Chunk:    f.chunk,
		Start:    opStart + 1 + len(header) + captureCount*4,
		ArgCount: argCount,
		Flags:    flags,
	}
	if captureCount == 0 {
		return value.NewFunctionValue(fn)
	}

	code := f.chunk.Bytes
	capturesStart := opStart + 1 + len(header)
	captures := make([]*value.Value, captureCount)
	for i := 0; i < captureCount; i++ {
		rec := code[capturesStart+i*4 : capturesStart+i*4+4]
		outerReg := rec[2]
		captures[i] = &f.regs[outerReg]
	}
	return value.NewCaptureFunctionValue(&value.CaptureFunction{Fn: fn, Captures: captures})
}

// functionSkipTarget returns the instruction pointer to resume at after
// a Function opcode: past its header, every spliced Capture record, and
// the nested function body itself (spec §4.5).
func functionSkipTarget(opStart int, header []byte) int {
	captureCount := int(header[2])
	bodySize := int(decodeU32(header[4:8]))
	bodyStart := opStart + 1 + len(header) + captureCount*4
	return bodyStart + bodySize
}

func deepCopy(v value.Value) value.Value {
	switch v.Kind() {
	case value.KindList:
		l := v.AsList()
		cp := make([]value.Value, len(l.Elems))
		for i, e := range l.Elems {
			cp[i] = deepCopy(e)
		}
		return value.NewList(cp)
	case value.KindTuple:
		t := v.AsTuple()
		cp := make([]value.Value, len(t.Elems))
		for i, e := range t.Elems {
			cp[i] = deepCopy(e)
		}
		return value.NewTuple(cp)
	case value.KindMap:
		src := v.AsMap()
		dst := value.NewMap()
		src.Each(func(k, val value.Value) bool {
			dst.Set(deepCopy(k), deepCopy(val))
			return true
		})
		if src.Meta != nil {
			dst.Meta = src.Meta.Copy()
		}
		return value.NewMapValue(dst)
	default:
		return v
	}
}
