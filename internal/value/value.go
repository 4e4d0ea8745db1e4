// Package value implements glint's runtime value representation: the
// tagged union described in spec §3.4, its container types (§3.5,
// §3.9), and the Object protocol (§3.6).
//
// Grounded on the teacher's internal/vmregister/value.go variant
// catalog (ObjectType enum: OBJ_STRING, OBJ_ARRAY, OBJ_MAP, OBJ_FUNCTION,
// OBJ_CLOSURE, OBJ_NATIVE_FN, OBJ_UPVALUE, OBJ_ITERATOR, ...) — the set
// of heap-allocated kinds a value can carry. The representation itself
// is NOT grounded on that file's NaN-boxing: this package uses a plain
// tagged struct (Kind byte + numeric word + boxed payload) instead of
// unsafe.Pointer bit-packing into a uint64, because the teacher's own
// second VM (internal/vm/value.go) already demonstrates a safe boxed
// `interface{}` representation is well within this codebase's range,
// and "idiomatic Go only" rules out replicating a manual GC-evasion
// hack (the NaN-boxed path keeps a globalObjectCache slice purely to
// stop Go's collector from reclaiming pointers it can no longer see —
// not a pattern to imitate). See DESIGN.md.
package value

import "fmt"

// Kind discriminates the variants of Value (spec §3.4).
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindRange
	KindStr
	KindList
	KindTuple
	KindMap
	KindFunction
	KindCaptureFunction
	KindNativeFunction
	KindIterator
	KindObject
	KindTemporaryTuple
	kindCount
)

var kindNames = [kindCount]string{
	KindNull: "Null", KindBool: "Bool", KindInt: "Int", KindFloat: "Float",
	KindRange: "Range", KindStr: "String", KindList: "List", KindTuple: "Tuple",
	KindMap: "Map", KindFunction: "Function", KindCaptureFunction: "Function",
	KindNativeFunction: "Function", KindIterator: "Iterator", KindObject: "Object",
	KindTemporaryTuple: "Tuple",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("illegal_kind(%d)", k)
}

// Value is glint's single runtime value type: a Kind tag plus a numeric
// word (used directly by Bool/Int/Float, unused otherwise) and a boxed
// payload pointer for every heap-allocated variant. Primitive values
// (Null, Bool, Int, Float) never allocate.
type Value struct {
	kind Kind
	num  uint64 // Bool: 0/1. Int: int64 bits. Float: float64 bits.
	ptr  any    // heap payload: *Range, *Str, *List, *Tuple, *Map, *Function,
	// *CaptureFunction, *NativeFunction, *Iterator, Object, *TemporaryTuple.
}

// Kind reports v's variant tag.
func (v Value) Kind() Kind { return v.kind }

// TypeName is the built-in `type x` string for v, absent any @type
// meta override (that dispatch happens one level up, where the VM can
// consult a Map's Meta).
func (v Value) TypeName() string { return v.kind.String() }

var nullValue = Value{kind: KindNull}

// Null returns the singleton null value.
func Null() Value { return nullValue }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool constructs a boolean value.
func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// AsBool returns v's boolean payload; only meaningful when v.Kind() == KindBool.
func (v Value) AsBool() bool { return v.num != 0 }

// Truthy implements the language's truthiness rule: null and false are
// falsy, every other value (including 0, 0.0, and empty containers) is
// truthy (spec §3.4 / §4.3 — glint follows Koto's rule, not Python's).
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.num != 0
	default:
		return true
	}
}

// Int constructs an integer value.
func Int(n int64) Value { return Value{kind: KindInt, num: uint64(n)} }

// AsInt returns v's integer payload; only meaningful when v.Kind() == KindInt.
func (v Value) AsInt() int64 { return int64(v.num) }

// Float constructs a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, num: floatBits(f)} }

// AsFloat returns v's float payload; only meaningful when v.Kind() == KindFloat.
func (v Value) AsFloat() float64 { return floatFromBits(v.num) }

// IsNumber reports whether v is an Int or a Float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsFloat64 widens an Int or Float value to float64, for mixed-mode
// arithmetic (spec §3.4's numeric coercion rule).
func (v Value) AsFloat64() float64 {
	if v.kind == KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func fromPtr(k Kind, p any) Value { return Value{kind: k, ptr: p} }

// Equal implements `==` for every variant pair per spec §3.4/§4.3:
// Int/Float compare by numeric value across kinds; containers compare
// structurally; everything else (functions, iterators, objects) is
// reference equality since they carry no meaningful structural
// equality and are always heap-shared.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		if a.IsNumber() && b.IsNumber() {
			return a.AsFloat64() == b.AsFloat64()
		}
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.num == b.num
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindFloat:
		return a.AsFloat() == b.AsFloat()
	case KindRange:
		ra, rb := a.ptr.(*Range), b.ptr.(*Range)
		return ra.Equal(rb)
	case KindStr:
		return equalStr(a.ptr.(*Str), b.ptr.(*Str))
	case KindList:
		return equalSeq(a.ptr.(*List).Elems, b.ptr.(*List).Elems)
	case KindTuple:
		return equalSeq(a.ptr.(*Tuple).Elems, b.ptr.(*Tuple).Elems)
	case KindTemporaryTuple:
		return equalSeq(a.ptr.(*TemporaryTuple).Values(), b.ptr.(*TemporaryTuple).Values())
	case KindMap:
		ma, mb := a.ptr.(*Map), b.ptr.(*Map)
		if ma == mb {
			return true
		}
		if ma.Len() != mb.Len() {
			return false
		}
		eq := true
		ma.Each(func(k, v Value) bool {
			ov, ok := mb.Get(k)
			eq = ok && Equal(v, ov)
			return eq
		})
		return eq
	default:
		return a.ptr == b.ptr
	}
}

func equalStr(a, b *Str) bool { return a.String() == b.String() }

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
