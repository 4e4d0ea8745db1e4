package value

import "strings"

// Compare orders a and b for the built-in half of `<`/`<=`/`>`/`>=`
// (spec §4.6: "metatable first, built-in second"). It handles the two
// kind families the built-in rule table covers — numbers (mixed
// Int/Float per the usual coercion) and strings (byte-lexicographic) —
// and reports ok=false for anything else, signalling the caller (the
// VM) that no built-in ordering applies and it must either consult a
// metatable or raise InvalidBinaryOp.
func Compare(a, b Value) (cmp int, ok bool) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return CompareNumbers(a, b), true
	case a.kind == KindStr && b.kind == KindStr:
		return strings.Compare(a.AsStr().String(), b.AsStr().String()), true
	default:
		return 0, false
	}
}
