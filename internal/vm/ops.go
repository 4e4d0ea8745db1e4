package vm

import (
	"strings"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/corelib"
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/value"
)

// unaryOp implements Negate/Not with the built-in rules only (spec
// §4.3). The VM does not look up unary-operator meta entries such as
// `@negate`, so negating a Map is an error like any other non-number.
func unaryOp(op bytecode.Op, v value.Value) (value.Value, error) {
	if op == bytecode.Not {
		return value.Bool(!v.Truthy()), nil
	}
	switch v.Kind() {
	case value.KindInt:
		return value.Int(-v.AsInt()), nil
	case value.KindFloat:
		return value.Float(-v.AsFloat()), nil
	}
	return value.Value{}, unaryTypeError("negate", v)
}

func unaryTypeError(what string, v value.Value) error {
	return unexpectedf("cannot %s a %s", what, v.TypeName())
}

func unexpectedf(format string, args ...any) error {
	return gerr.New(gerr.FamilyRuntime, gerr.KindUnexpected, gerr.Span{}, format, args...)
}

// binaryOp implements the built-in rule for every Add..NotEqual opcode
// (spec §3.4, §4.3): numeric ops on Int/Float (promoting to Float on any
// mismatch), Add also doing Str/Str concat and List/List, Tuple/Tuple
// concat; comparisons delegating to value.Compare (numbers and strings)
// or value.Equal for Equal/NotEqual. Metatable operator overrides (a Map
// with an `@+` entry, say) are checked by the VM's binaryOp wrapper
// below before this built-in fallback runs, per spec §4.6's
// "metatable first, built-in second" rule.
func (vm *VM) binaryOp(op bytecode.Op, a, b value.Value) (value.Value, error) {
	if v, ok, err := vm.metaBinaryOp(op, a, b); ok {
		return v, err
	}
	return builtinBinaryOp(op, a, b)
}

// metaBinaryOp checks a (then b) for a Map meta-table operator
// override (Object operands are not consulted), returning ok=false when
// neither operand supplies one.
func (vm *VM) metaBinaryOp(op bytecode.Op, a, b value.Value) (value.Value, bool, error) {
	sym := binaryOpSymbol(op)
	if sym == "" {
		return value.Value{}, false, nil
	}
	if a.Kind() == value.KindMap {
		if fn, ok := a.AsMap().Meta.Get(value.MetaKey{Kind: value.MetaBinaryOp, Op: sym}); ok {
			v, err := vm.callOperatorFn(fn, a, b)
			return v, true, err
		}
	}
	if b.Kind() == value.KindMap {
		if fn, ok := b.AsMap().Meta.Get(value.MetaKey{Kind: value.MetaBinaryOp, Op: sym}); ok {
			v, err := vm.callOperatorFn(fn, b, a)
			return v, true, err
		}
	}
	return value.Value{}, false, nil
}

// callOperatorFn invokes a meta binary-op function with (self, other) as
// its two arguments, using a throwaway single-frame register window
// rather than routing through a caller Frame's own registers.
func (vm *VM) callOperatorFn(fn, self, other value.Value) (value.Value, error) {
	scratch := newFrame(nil, 0, nil)
	scratch.regs[0] = self
	scratch.regs[1] = other
	v, err := vm.call(scratch, fn, 0, 2)
	if err != nil {
		return value.Value{}, err
	}
	return v, nil
}

func builtinBinaryOp(op bytecode.Op, a, b value.Value) (value.Value, error) {
	switch op {
	case bytecode.Add:
		return builtinAdd(a, b)
	case bytecode.Subtract:
		return numericOp(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	case bytecode.Multiply:
		return numericOp(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
	case bytecode.Divide:
		return numericDivide(a, b)
	case bytecode.Remainder:
		return numericRemainder(a, b)
	case bytecode.Less, bytecode.LessOrEqual, bytecode.Greater, bytecode.GreaterOrEqual:
		return compareOp(op, a, b)
	case bytecode.Equal:
		return value.Bool(value.Equal(a, b)), nil
	case bytecode.NotEqual:
		return value.Bool(!value.Equal(a, b)), nil
	}
	return value.Value{}, unexpectedf("unsupported binary operator")
}

// binaryOpSymbol maps a binary opcode to the operator text used as a
// MetaBinaryOp key's Op field (spec §3.5), the inverse of
// internal/compiler/expr.go's binaryOps map.
func binaryOpSymbol(op bytecode.Op) string {
	switch op {
	case bytecode.Add:
		return "+"
	case bytecode.Subtract:
		return "-"
	case bytecode.Multiply:
		return "*"
	case bytecode.Divide:
		return "/"
	case bytecode.Remainder:
		return "%"
	case bytecode.Less:
		return "<"
	case bytecode.LessOrEqual:
		return "<="
	case bytecode.Greater:
		return ">"
	case bytecode.GreaterOrEqual:
		return ">="
	case bytecode.Equal:
		return "=="
	case bytecode.NotEqual:
		return "!="
	}
	return ""
}

// compoundToBinary maps a compound-assign opcode to the plain binary
// opcode its `a = a op b` fallback uses (spec §4.3's compound-assign
// operators).
func compoundToBinary(op bytecode.Op) bytecode.Op {
	switch op {
	case bytecode.AddAssign:
		return bytecode.Add
	case bytecode.SubtractAssign:
		return bytecode.Subtract
	case bytecode.MultiplyAssign:
		return bytecode.Multiply
	case bytecode.DivideAssign:
		return bytecode.Divide
	case bytecode.RemainderAssign:
		return bytecode.Remainder
	}
	return op
}

func builtinAdd(a, b value.Value) (value.Value, error) {
	if a.Kind() == value.KindStr && b.Kind() == value.KindStr {
		return value.NewStrValue(a.AsStr().String() + b.AsStr().String()), nil
	}
	if a.Kind() == value.KindList && b.Kind() == value.KindList {
		la, lb := a.AsList(), b.AsList()
		out := make([]value.Value, 0, len(la.Elems)+len(lb.Elems))
		out = append(out, la.Elems...)
		out = append(out, lb.Elems...)
		return value.NewList(out), nil
	}
	if a.Kind() == value.KindTuple && b.Kind() == value.KindTuple {
		ta, tb := a.AsTuple(), b.AsTuple()
		out := make([]value.Value, 0, len(ta.Elems)+len(tb.Elems))
		out = append(out, ta.Elems...)
		out = append(out, tb.Elems...)
		return value.NewTuple(out), nil
	}
	return numericOp(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func numericOp(a, b value.Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) (value.Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return value.Value{}, unexpectedf("expected numbers, got %s and %s", a.TypeName(), b.TypeName())
	}
	if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
		return value.Int(intOp(a.AsInt(), b.AsInt())), nil
	}
	return value.Float(floatOp(a.AsFloat64(), b.AsFloat64())), nil
}

func numericDivide(a, b value.Value) (value.Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return value.Value{}, unexpectedf("expected numbers, got %s and %s", a.TypeName(), b.TypeName())
	}
	return value.Float(a.AsFloat64() / b.AsFloat64()), nil
}

func numericRemainder(a, b value.Value) (value.Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return value.Value{}, unexpectedf("expected numbers, got %s and %s", a.TypeName(), b.TypeName())
	}
	if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
		y := b.AsInt()
		if y == 0 {
			return value.Value{}, unexpectedf("remainder by zero")
		}
		return value.Int(a.AsInt() % y), nil
	}
	x, y := a.AsFloat64(), b.AsFloat64()
	return value.Float(x - y*float64(int64(x/y))), nil
}

func compareOp(op bytecode.Op, a, b value.Value) (value.Value, error) {
	cmp, ok := value.Compare(a, b)
	if !ok {
		return value.Value{}, unexpectedf("cannot compare %s and %s", a.TypeName(), b.TypeName())
	}
	switch op {
	case bytecode.Less:
		return value.Bool(cmp < 0), nil
	case bytecode.LessOrEqual:
		return value.Bool(cmp <= 0), nil
	case bytecode.Greater:
		return value.Bool(cmp > 0), nil
	default: // GreaterOrEqual
		return value.Bool(cmp >= 0), nil
	}
}

// index implements the Index opcode: `obj[key]` for List/Tuple (integer
// index, negative counts from the end), Map (arbitrary key), Str
// (grapheme index), and Range (slicing a List/Str/Tuple by a Range key).
func (vm *VM) index(obj, key value.Value) (value.Value, error) {
	if obj.Kind() == value.KindMap {
		if v, ok := obj.AsMap().Get(key); ok {
			return v, nil
		}
		return value.Value{}, unexpectedf("key not found in map")
	}
	if key.Kind() == value.KindRange {
		return sliceByRange(obj, key.AsRange())
	}
	if !key.IsNumber() {
		return value.Value{}, unexpectedf("expected a number index, got %s", key.TypeName())
	}
	i := int(key.AsInt())
	switch obj.Kind() {
	case value.KindList:
		l := obj.AsList().Elems
		idx, ok := resolveIndex(i, len(l))
		if !ok {
			return value.Value{}, unexpectedf("index %d out of bounds (size %d)", i, len(l))
		}
		return l[idx], nil
	case value.KindTuple:
		t := obj.AsTuple().Elems
		idx, ok := resolveIndex(i, len(t))
		if !ok {
			return value.Value{}, unexpectedf("index %d out of bounds (size %d)", i, len(t))
		}
		return t[idx], nil
	case value.KindStr:
		s := obj.AsStr()
		idx, ok := resolveIndex(i, s.GraphemeLen())
		if !ok {
			return value.Value{}, unexpectedf("index %d out of bounds", i)
		}
		g, _ := s.GraphemeAt(idx)
		return value.NewStrValue(g.String()), nil
	}
	return value.Value{}, unexpectedf("%s is not indexable", obj.TypeName())
}

func resolveIndex(i, length int) (int, bool) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

func sliceByRange(obj value.Value, r *value.Range) (value.Value, error) {
	switch obj.Kind() {
	case value.KindStr:
		s := obj.AsStr()
		start, end := rangeBounds(r, s.GraphemeLen())
		return value.NewStrValue(s.GraphemeSlice(start, end).String()), nil
	case value.KindList:
		l := obj.AsList().Elems
		start, end := rangeBounds(r, len(l))
		out := make([]value.Value, end-start)
		copy(out, l[start:end])
		return value.NewList(out), nil
	case value.KindTuple:
		t := obj.AsTuple().Elems
		start, end := rangeBounds(r, len(t))
		out := make([]value.Value, end-start)
		copy(out, t[start:end])
		return value.NewTuple(out), nil
	}
	return value.Value{}, unexpectedf("cannot slice a %s", obj.TypeName())
}

func rangeBounds(r *value.Range, length int) (int, int) {
	start, end := 0, length
	if r.Start != nil {
		start = int(*r.Start)
		if start < 0 {
			start += length
		}
	}
	if r.End != nil {
		end = int(*r.End)
		if end < 0 {
			end += length
		}
		if r.Inclusive {
			end++
		}
	}
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	if end < start {
		end = start
	}
	return start, end
}

func (vm *VM) setIndex(obj, key, v value.Value) error {
	switch obj.Kind() {
	case value.KindMap:
		obj.AsMap().Set(key, v)
		return nil
	case value.KindList:
		if !key.IsNumber() {
			return unexpectedf("expected a number index, got %s", key.TypeName())
		}
		l := obj.AsList()
		idx, ok := resolveIndex(int(key.AsInt()), len(l.Elems))
		if !ok {
			return unexpectedf("index %d out of bounds (size %d)", key.AsInt(), len(l.Elems))
		}
		l.Elems[idx] = v
		return nil
	}
	return unexpectedf("%s does not support index assignment", obj.TypeName())
}

// access implements Access/AccessString: `obj.name` lookups, which for
// a Map read its Data entries first and fall back to a MetaNamed meta
// function. Str/List/Number receivers resolve against internal/corelib's
// built-in method tables; any Object defers to the host (not yet
// surfaced through the Object interface beyond Call).
func (vm *VM) access(obj value.Value, name string) (value.Value, error) {
	switch obj.Kind() {
	case value.KindMap:
		m := obj.AsMap()
		if v, ok := m.Get(value.NewStrValue(name)); ok {
			return v, nil
		}
		if fn, ok := m.Meta.Get(value.MetaKey{Kind: value.MetaNamed, Name: name}); ok {
			return fn, nil
		}
		return value.Value{}, unexpectedf("%q not found", name)
	case value.KindStr:
		if v, ok := corelib.String(obj.AsStr(), name); ok {
			return v, nil
		}
	case value.KindList:
		if v, ok := corelib.List(obj.AsList(), name); ok {
			return v, nil
		}
	case value.KindInt, value.KindFloat:
		if v, ok := corelib.Number(obj, name); ok {
			return v, nil
		}
	}
	return value.Value{}, unexpectedf("%s has no member %q", obj.TypeName(), name)
}

func (vm *VM) setAccess(obj value.Value, name string, v value.Value) error {
	if obj.Kind() != value.KindMap {
		return unexpectedf("%s does not support member assignment", obj.TypeName())
	}
	obj.AsMap().Set(value.NewStrValue(name), v)
	return nil
}

// sizeOf implements the Size opcode (spec §4.3's `size`).
func sizeOf(v value.Value) (int, bool) {
	switch v.Kind() {
	case value.KindList:
		return len(v.AsList().Elems), true
	case value.KindTuple:
		return len(v.AsTuple().Elems), true
	case value.KindMap:
		return v.AsMap().Len(), true
	case value.KindStr:
		return v.AsStr().GraphemeLen(), true
	case value.KindRange:
		n := v.AsRange().Len()
		return n, n >= 0
	case value.KindObject:
		return v.AsObject().Size()
	}
	return 0, false
}

// parseMetaKey turns an interned meta-entry name like "@+", "@display",
// "@test_foo", or "@[]" back into a MetaKey (spec §3.5's meta-key
// grammar), the inverse of how the compiler interns them in
// compileMapLiteral.
func parseMetaKey(name string) value.MetaKey {
	body := strings.TrimPrefix(name, "@")
	switch body {
	case "display", "tostring":
		return value.MetaKey{Kind: value.MetaNamed, Name: "display"}
	case "type":
		return value.MetaKey{Kind: value.MetaType}
	case "base":
		return value.MetaKey{Kind: value.MetaBase}
	case "main":
		return value.MetaKey{Kind: value.MetaMain}
	case "||", "call":
		return value.MetaKey{Kind: value.MetaCall}
	case "pre_test":
		return value.MetaKey{Kind: value.MetaPreTest}
	case "post_test":
		return value.MetaKey{Kind: value.MetaPostTest}
	case "tests":
		return value.MetaKey{Kind: value.MetaTests}
	}
	if strings.HasPrefix(body, "test_") {
		return value.MetaKey{Kind: value.MetaTest, Name: strings.TrimPrefix(body, "test_")}
	}
	if isOperatorSymbol(body) {
		return value.MetaKey{Kind: value.MetaBinaryOp, Op: body}
	}
	return value.MetaKey{Kind: value.MetaNamed, Name: body}
}

func isOperatorSymbol(s string) bool {
	switch s {
	case "+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "not", "[]":
		return true
	}
	return false
}

// throwError implements the Throw opcode: wraps the thrown script value
// as an opaque fmt.Stringer (gerr doesn't depend on the value package)
// and produces a KotoError (spec §4.6's Throw/try-catch protocol).
func (vm *VM) throwError(f *Frame, thrown value.Value) *gerr.Error {
	e := gerr.New(gerr.FamilyRuntime, gerr.KindThrown, vm.spanAt(f.chunk, f.ip), "%s", value.Display(value.NewDisplayContext(), thrown, true))
	e.Value = stringerValue{thrown}
	return e
}

// stringerValue adapts a value.Value to fmt.Stringer so it can travel
// inside gerr.Error.Value without gerr importing the value package;
// Frame.catch unwraps it to bind the caught value into its catch register.
type stringerValue struct{ v value.Value }

func (s stringerValue) String() string { return value.Display(value.NewDisplayContext(), s.v, true) }
