package value

import "strconv"

// Range is glint's bounded-or-unbounded range value (spec §3.4). Start
// and End are pointers so `..5`, `3..`, and `..` (fully unbounded) can
// be represented without a separate sentinel value; Inclusive
// distinguishes `..` from `..=`.
type Range struct {
	Start     *int64
	End       *int64
	Inclusive bool
}

// NewRange constructs a Value wrapping r.
func NewRange(r *Range) Value { return fromPtr(KindRange, r) }

// AsRange returns v's Range payload; only meaningful when v.Kind() == KindRange.
func (v Value) AsRange() *Range { return v.ptr.(*Range) }

// Equal reports whether a and b denote the same bounds.
func (r *Range) Equal(o *Range) bool {
	return equalBound(r.Start, o.Start) && equalBound(r.End, o.End) && r.Inclusive == o.Inclusive
}

func equalBound(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// Contains reports whether n falls within r (used for `in` membership
// tests and for bounding iteration); an unbounded side never excludes.
func (r *Range) Contains(n int64) bool {
	if r.Start != nil && n < *r.Start {
		return false
	}
	if r.End != nil {
		if r.Inclusive {
			return n <= *r.End
		}
		return n < *r.End
	}
	return true
}

// Len reports the number of integers a bounded range iterates over, or
// -1 if either bound is open (an unbounded range has no length; a
// range iterator over it still counts up from Start, or 0, with no end).
func (r *Range) Len() int {
	if r.Start == nil || r.End == nil {
		return -1
	}
	n := *r.End - *r.Start
	if r.Inclusive {
		n++
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

// String renders `<start>..<end>` / `<start>..=<end>`, omitting either
// bound when unbounded (spec §6.5).
func (r *Range) String() string {
	var b []byte
	if r.Start != nil {
		b = strconv.AppendInt(b, *r.Start, 10)
	}
	if r.Inclusive {
		b = append(b, '.', '.', '=')
	} else {
		b = append(b, '.', '.')
	}
	if r.End != nil {
		b = strconv.AppendInt(b, *r.End, 10)
	}
	return string(b)
}
