package value

import (
	"unicode"
	"unicode/utf8"
)

// Str is glint's string value: an immutable, shared UTF-8 buffer with
// byte-range bounds, so slicing (`s[1..3]`) never copies (spec §3.4,
// §3.9). Several Str values may alias the same buffer.
type Str struct {
	buf      string
	lo, hi   int
	graphRaw []int // lazily computed grapheme boundary offsets, relative to buf (not lo/hi)
}

// NewStr constructs a Str over the whole of s.
func NewStr(s string) *Str { return &Str{buf: s, lo: 0, hi: len(s)} }

func newStrSlice(buf string, lo, hi int) *Str { return &Str{buf: buf, lo: lo, hi: hi} }

// NewStrValue wraps s in a Value.
func NewStrValue(s string) Value { return fromPtr(KindStr, NewStr(s)) }

// AsStr returns v's Str payload; only meaningful when v.Kind() == KindStr.
func (v Value) AsStr() *Str { return v.ptr.(*Str) }

// String returns s's text.
func (s *Str) String() string { return s.buf[s.lo:s.hi] }

// ByteLen returns the number of bytes in s.
func (s *Str) ByteLen() int { return s.hi - s.lo }

// graphemeBoundaries computes, lazily and once per distinct backing
// buffer slice, the byte offsets (relative to s.buf) at which a new
// grapheme cluster starts within [s.lo, s.hi].
//
// This is a simplified extended-grapheme-cluster segmentation: a
// cluster is a base rune followed by any run of combining marks
// (Unicode Mn/Mc/Me categories), zero-width joiners, and variation
// selectors, with adjacent regional-indicator runes (flag emoji) paired
// two at a time. It does not implement the full UAX #29 state machine
// (Hangul jamo grouping, prepended/SpacingMark exceptions, emoji
// modifier sequences beyond ZWJ joins). No grapheme-segmentation
// library appears among the retrieved examples' dependencies, so this
// approximation is implemented directly against unicode/utf8 and
// unicode — see DESIGN.md.
func (s *Str) graphemeBoundaries() []int {
	if s.graphRaw != nil {
		return s.graphRaw
	}
	var bounds []int
	i := s.lo
	pendingRegionalIndicator := false
	for i < s.hi {
		r, size := utf8.DecodeRuneInString(s.buf[i:s.hi])
		if isGraphemeExtender(r) {
			i += size
			continue
		}
		if isRegionalIndicator(r) && pendingRegionalIndicator {
			i += size
			pendingRegionalIndicator = false
			continue
		}
		bounds = append(bounds, i)
		pendingRegionalIndicator = isRegionalIndicator(r)
		i += size
	}
	s.graphRaw = bounds
	return bounds
}

func isGraphemeExtender(r rune) bool {
	if r == 0x200D { // zero-width joiner
		return true
	}
	if r >= 0xFE00 && r <= 0xFE0F { // variation selectors
		return true
	}
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Me, r)
}

func isRegionalIndicator(r rune) bool { return r >= 0x1F1E6 && r <= 0x1F1FF }

// GraphemeLen reports s's length measured in grapheme clusters (spec
// §4.6 indexing rule).
func (s *Str) GraphemeLen() int { return len(s.graphemeBoundaries()) }

// GraphemeAt returns the i'th grapheme cluster of s as its own Str
// aliasing the same buffer, or (nil,false) if i is out of range.
func (s *Str) GraphemeAt(i int) (*Str, bool) {
	b := s.graphemeBoundaries()
	if i < 0 || i >= len(b) {
		return nil, false
	}
	lo := b[i]
	hi := s.hi
	if i+1 < len(b) {
		hi = b[i+1]
	}
	return newStrSlice(s.buf, lo, hi), true
}

// GraphemeSlice returns the half-open grapheme range [start, end) of s
// as its own byte-safe Str (spec §4.6: string slicing is byte-safe,
// i.e. it always lands on a grapheme boundary so UTF-8 validity is
// preserved).
func (s *Str) GraphemeSlice(start, end int) *Str {
	b := s.graphemeBoundaries()
	lo, hi := s.hi, s.hi
	if start < len(b) {
		lo = b[start]
	}
	if end < len(b) {
		hi = b[end]
	} else {
		hi = s.hi
	}
	if hi < lo {
		hi = lo
	}
	return newStrSlice(s.buf, lo, hi)
}
