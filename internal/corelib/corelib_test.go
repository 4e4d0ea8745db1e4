package corelib

import (
	"testing"

	"github.com/glint-lang/glint/internal/value"
)

func callNative(t *testing.T, fn value.Value, args ...value.Value) value.Value {
	t.Helper()
	v, err := fn.AsNativeFunction().Fn(args)
	if err != nil {
		t.Fatalf("native call error: %v", err)
	}
	return v
}

func TestStringMethods(t *testing.T) {
	s := value.NewStr("Hello")

	sizeFn, ok := String(s, "size")
	if !ok {
		t.Fatal("expected size method")
	}
	if got := callNative(t, sizeFn); got.AsInt() != 5 {
		t.Fatalf("size = %v, want 5", got)
	}

	upperFn, ok := String(s, "to_uppercase")
	if !ok {
		t.Fatal("expected to_uppercase method")
	}
	if got := callNative(t, upperFn); got.AsStr().String() != "HELLO" {
		t.Fatalf("to_uppercase = %v, want HELLO", got)
	}

	if _, ok := String(s, "no_such_method"); ok {
		t.Fatal("expected no_such_method to be unresolved")
	}
}

func TestListMethods(t *testing.T) {
	l := &value.List{Elems: []value.Value{value.Int(1), value.Int(2)}}

	pushFn, ok := List(l, "push")
	if !ok {
		t.Fatal("expected push method")
	}
	callNative(t, pushFn, value.Int(3))
	if len(l.Elems) != 3 {
		t.Fatalf("len = %d, want 3", len(l.Elems))
	}

	popFn, _ := List(l, "pop")
	got := callNative(t, popFn)
	if got.AsInt() != 3 {
		t.Fatalf("pop = %v, want 3", got)
	}
}

func TestNumberPow(t *testing.T) {
	powFn, ok := Number(value.Int(2), "pow")
	if !ok {
		t.Fatal("expected pow method")
	}
	got := callNative(t, powFn, value.Int(10))
	if got.AsInt() != 1024 {
		t.Fatalf("2.pow(10) = %v, want 1024", got)
	}
}

func TestNumberPowNegativeExponentPromotesToFloat(t *testing.T) {
	powFn, _ := Number(value.Int(2), "pow")
	got := callNative(t, powFn, value.Int(-1))
	if got.Kind() != value.KindFloat {
		t.Fatalf("2.pow(-1) kind = %v, want Float", got.Kind())
	}
	if got.AsFloat() != 0.5 {
		t.Fatalf("2.pow(-1) = %v, want 0.5", got.AsFloat())
	}
}

func TestSaturatingConversions(t *testing.T) {
	toU8, _ := Number(value.Int(1000), "to_u8")
	if got := callNative(t, toU8); got.AsInt() != 255 {
		t.Fatalf("1000.to_u8() = %v, want 255", got)
	}

	toU8Neg, _ := Number(value.Int(-5), "to_u8")
	if got := callNative(t, toU8Neg); got.AsInt() != 0 {
		t.Fatalf("(-5).to_u8() = %v, want 0", got)
	}
}
