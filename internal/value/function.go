package value

import "github.com/glint-lang/glint/internal/bytecode"

// FunctionFlags records the per-function bits the compiler encodes
// into the Function opcode's flags byte (variadic / generator /
// instance-method, spec §3.4, §4.5).
type FunctionFlags uint8

const (
	FlagVariadic FunctionFlags = 1 << iota
	FlagGenerator
	FlagInstanceFunction
)

// Function is a plain (non-capturing) compiled function value: a
// reference to its owning Chunk, the byte offset its body starts at,
// and its declared arity (spec §3.4).
//
// Grounded on the teacher's vmregister.FunctionObj{Name, Arity, Code,
// Constants, Upvalues}, adapted from "owns its own bytecode slice" to
// "points into a shared Chunk at an offset", matching this compiler's
// single-Chunk-per-module-with-spliced-nested-bodies layout (spec
// §3.7, §4.5) rather than per-function bytecode arrays.
type Function struct {
	Chunk    *bytecode.Chunk
	Start    int
	ArgCount int
	Flags    FunctionFlags
	Name     string // empty for anonymous function literals
}

// NewFunctionValue wraps f in a Value.
func NewFunctionValue(f *Function) Value { return fromPtr(KindFunction, f) }

// AsFunction returns v's Function payload; only meaningful when
// v.Kind() == KindFunction.
func (v Value) AsFunction() *Function { return v.ptr.(*Function) }

func (f *Function) IsVariadic() bool  { return f.Flags&FlagVariadic != 0 }
func (f *Function) IsGenerator() bool { return f.Flags&FlagGenerator != 0 }

// CaptureFunction pairs a Function with the values it closed over at
// creation time (spec §3.4). Captures are boxed (each a single-element
// *Value cell) so that captor and captured frame observe the same
// live register for the "open upvalue" semantics the compiler's
// Capture op assumes (internal/compiler/func.go) — mutating a capture
// through either the closure or (while it's still in scope) the
// original local is visible to both, matching the teacher's
// UpvalueObj{Location *Value}.
type CaptureFunction struct {
	Fn       *Function
	Captures []*Value
}

// NewCaptureFunctionValue wraps cf in a Value.
func NewCaptureFunctionValue(cf *CaptureFunction) Value {
	return fromPtr(KindCaptureFunction, cf)
}

// AsCaptureFunction returns v's CaptureFunction payload.
func (v Value) AsCaptureFunction() *CaptureFunction { return v.ptr.(*CaptureFunction) }

// NativeFunction is a host-provided callable (spec §3.4, §6.1),
// grounded directly on the teacher's vmregister.NativeFnObj shape.
type NativeFunction struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

// NewNativeFunctionValue wraps nf in a Value.
func NewNativeFunctionValue(nf *NativeFunction) Value { return fromPtr(KindNativeFunction, nf) }

// AsNativeFunction returns v's NativeFunction payload.
func (v Value) AsNativeFunction() *NativeFunction { return v.ptr.(*NativeFunction) }

// IsCallable reports whether v can appear as the function operand of a
// Call instruction by its own kind (Map/Object-with-@call is a separate,
// metatable-mediated case handled by the VM, not here).
func (v Value) IsCallable() bool {
	switch v.kind {
	case KindFunction, KindCaptureFunction, KindNativeFunction:
		return true
	default:
		return false
	}
}
