// Package corelib implements glint's optional standard library surface:
// the handful of built-in methods `obj.method()` call sugar resolves
// against for Str/List/Number receivers (spec §9's corelib Open
// Question), plus the io/json-adjacent prelude modules an embedded
// script can import by name. It formalizes what internal/vm/ops.go
// used to hard-code directly as stringMethod/listMethod stopgaps.
package corelib

import (
	"strings"

	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/value"
)

func unexpectedf(format string, args ...any) error {
	return gerr.New(gerr.FamilyRuntime, gerr.KindUnexpected, gerr.Span{}, format, args...)
}

// String resolves a named method on a Str receiver, or (zero, false) if
// name isn't one of corelib's string methods.
func String(s *value.Str, name string) (value.Value, bool) {
	switch name {
	case "size":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Int(int64(s.GraphemeLen())), nil
		}), true
	case "to_uppercase":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.NewStrValue(strings.ToUpper(s.String())), nil
		}), true
	case "to_lowercase":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.NewStrValue(strings.ToLower(s.String())), nil
		}), true
	case "trim":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.NewStrValue(strings.TrimSpace(s.String())), nil
		}), true
	case "contains":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Kind() != value.KindStr {
				return value.Value{}, unexpectedf("string.contains expects |String|")
			}
			return value.Bool(strings.Contains(s.String(), args[0].AsStr().String())), nil
		}), true
	case "starts_with":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Kind() != value.KindStr {
				return value.Value{}, unexpectedf("string.starts_with expects |String|")
			}
			return value.Bool(strings.HasPrefix(s.String(), args[0].AsStr().String())), nil
		}), true
	case "ends_with":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Kind() != value.KindStr {
				return value.Value{}, unexpectedf("string.ends_with expects |String|")
			}
			return value.Bool(strings.HasSuffix(s.String(), args[0].AsStr().String())), nil
		}), true
	case "split":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			sep := " "
			if len(args) == 1 {
				if args[0].Kind() != value.KindStr {
					return value.Value{}, unexpectedf("string.split expects |String|")
				}
				sep = args[0].AsStr().String()
			}
			parts := strings.Split(s.String(), sep)
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = value.NewStrValue(p)
			}
			return value.NewList(elems), nil
		}), true
	}
	return value.Value{}, false
}

// List resolves a named method on a List receiver.
func List(l *value.List, name string) (value.Value, bool) {
	switch name {
	case "size":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Int(int64(len(l.Elems))), nil
		}), true
	case "push":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			l.Elems = append(l.Elems, args...)
			return value.Null(), nil
		}), true
	case "pop":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			if len(l.Elems) == 0 {
				return value.Null(), nil
			}
			last := l.Elems[len(l.Elems)-1]
			l.Elems = l.Elems[:len(l.Elems)-1]
			return last, nil
		}), true
	case "is_empty":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Bool(len(l.Elems) == 0), nil
		}), true
	case "reverse":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			for i, j := 0, len(l.Elems)-1; i < j; i, j = i+1, j-1 {
				l.Elems[i], l.Elems[j] = l.Elems[j], l.Elems[i]
			}
			return value.NewList(l.Elems), nil
		}), true
	case "clear":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			l.Elems = l.Elems[:0]
			return value.Null(), nil
		}), true
	}
	return value.Value{}, false
}

// Number resolves a named method on an Int/Float receiver, grounded on
// the original engine's core.number module (pow, to_int, to_float,
// saturating fixed-width conversions).
func Number(n value.Value, name string) (value.Value, bool) {
	switch name {
	case "pow":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || !args[0].IsNumber() {
				return value.Value{}, unexpectedf("number.pow expects |Number|")
			}
			return value.Pow(n, args[0]), nil
		}), true
	case "to_int":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Int(value.SaturatingInt(n.AsFloat64())), nil
		}), true
	case "to_float":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Float(n.AsFloat64()), nil
		}), true
	case "to_u8":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Int(int64(value.SaturatingU8(n))), nil
		}), true
	case "to_i32":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Int(int64(value.SaturatingI32(n))), nil
		}), true
	case "to_u32":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Int(int64(value.SaturatingU32(n))), nil
		}), true
	case "to_i64":
		return nativeFn(name, func(args []value.Value) (value.Value, error) {
			return value.Int(value.SaturatingI64(n)), nil
		}), true
	}
	return value.Value{}, false
}

func nativeFn(name string, fn func(args []value.Value) (value.Value, error)) value.Value {
	return value.NewNativeFunctionValue(&value.NativeFunction{Name: name, Fn: fn})
}
