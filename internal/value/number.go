package value

import (
	"math"
	"strconv"
	"strings"
)

func floatBits(f float64) uint64      { return math.Float64bits(f) }
func floatFromBits(b uint64) float64  { return math.Float64frombits(b) }

// CompareNumbers orders two numbers for Less/LessOrEqual/Greater/GreaterOrEqual
// (spec §4.3's numeric coercion rule: if either operand is a Float, both
// compare as Float). Returns -1, 0, or 1.
func CompareNumbers(a, b Value) int {
	if a.kind == KindInt && b.kind == KindInt {
		x, y := a.AsInt(), b.AsInt()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	x, y := a.AsFloat64(), b.AsFloat64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// SaturatingInt converts a float to an int64 for explicit `x.to_int()`
// style conversions, clamping rather than overflowing on NaN/Inf/
// out-of-range values (spec §3.4's saturating-conversion requirement).
func SaturatingInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// Pow raises a to the power b, matching spec §9's resolution of the
// negative-integer-exponent Open Question: Int**Int with a negative
// exponent promotes to Float rather than silently wrapping the exponent
// into an unsigned power the way the original engine's `a.pow(b as u32)`
// did. Int**Int with a non-negative exponent stays exact integer math.
func Pow(a, b Value) Value {
	if a.kind == KindInt && b.kind == KindInt {
		base, exp := a.AsInt(), b.AsInt()
		if exp >= 0 {
			return Int(intPow(base, exp))
		}
		return Float(math.Pow(float64(base), float64(exp)))
	}
	return Float(math.Pow(a.AsFloat64(), b.AsFloat64()))
}

// intPow computes base**exp by repeated squaring for exp >= 0.
func intPow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// clampInt resolves v (an Int or Float number) to an int64 clamped to
// [lo, hi], used by the SaturatingXxx conversions below (spec §3.4/§9:
// `x.to_i32()` and friends saturate at the target width's bounds
// instead of wrapping or panicking).
func clampInt(v Value, lo, hi int64) int64 {
	switch v.kind {
	case KindInt:
		n := v.AsInt()
		switch {
		case n < lo:
			return lo
		case n > hi:
			return hi
		default:
			return n
		}
	case KindFloat:
		f := v.AsFloat()
		switch {
		case math.IsNaN(f):
			return 0
		case f <= float64(lo):
			return lo
		case f >= float64(hi):
			return hi
		default:
			return int64(f)
		}
	default:
		return 0
	}
}

// SaturatingU8 clamps v into [0, 255].
func SaturatingU8(v Value) uint8 { return uint8(clampInt(v, 0, 255)) }

// SaturatingI32 clamps v into the int32 range.
func SaturatingI32(v Value) int32 { return int32(clampInt(v, math.MinInt32, math.MaxInt32)) }

// SaturatingU32 clamps v into the uint32 range.
func SaturatingU32(v Value) uint32 { return uint32(clampInt(v, 0, math.MaxUint32)) }

// SaturatingI64 clamps v into the int64 range.
func SaturatingI64(v Value) int64 { return clampInt(v, math.MinInt64, math.MaxInt64) }

// FormatNumber renders a number per spec §6.5: integers never carry a
// decimal point; floats always carry at least one fractional digit
// (`1.0`, never bare `1`).
func FormatNumber(v Value) string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		f := v.AsFloat()
		if math.IsInf(f, 1) {
			return "inf"
		}
		if math.IsInf(f, -1) {
			return "-inf"
		}
		if math.IsNaN(f) {
			return "nan"
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		return ensureFractional(s)
	default:
		return ""
	}
}

// ensureFractional appends ".0" to a float rendering that strconv
// produced without a decimal point (whole numbers, or exponential
// forms whose mantissa has none).
func ensureFractional(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot >= 0 {
		return s
	}
	if exp := strings.IndexAny(s, "eE"); exp >= 0 {
		return s[:exp] + ".0" + s[exp:]
	}
	return s + ".0"
}
