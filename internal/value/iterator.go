package value

import "github.com/glint-lang/glint/internal/gerr"

// IteratorKind discriminates the built-in iterator shapes of spec §4.6.
type IteratorKind uint8

const (
	IterRange IteratorKind = iota
	IterList
	IterTuple
	IterMapEntries
	IterStringGraphemes
	IterGenerator
	IterExternal
)

// OutputTag discriminates ValueIteratorOutput's three cases (spec §4.6:
// `ValueIteratorOutput = Value(v) | ValuePair(k,v) | Error(e)`).
type OutputTag uint8

const (
	OutputValue OutputTag = iota
	OutputPair
	OutputError
	OutputDone
)

// IteratorOutput is one `next()` result.
type IteratorOutput struct {
	Tag   OutputTag
	Value Value
	Key   Value // only meaningful when Tag == OutputPair
	Err   *gerr.Error
}

// Generator is the sub-VM-backed iterator interface a `generator`-
// flagged function's call produces (spec §4.6's Generators section).
// It is defined here as an interface, implemented by internal/vm, so
// this package stays free of a dependency on the VM.
type Generator interface {
	Next() IteratorOutput
	NextBack() (IteratorOutput, bool)
}

// Iterator is glint's runtime iterator value: one of the built-in
// positional/keyed shapes, a generator, or a host-provided external
// iterator, unified behind a single Next/NextBack/Copy surface so the
// VM's IterNext family of opcodes never needs to know which kind it is
// driving (spec §4.6).
type Iterator struct {
	Kind IteratorKind

	// Positional state, used by IterRange/IterList/IterTuple/IterStringGraphemes.
	rangeCur, rangeEnd int64
	rangeInclusive     bool
	rangeDone          bool

	list  *List
	tuple *Tuple
	str   *Str
	pos   int
	back  int // one past the last index still owed, for next_back

	mapData *Map
	mapPos  int

	gen Generator

	ext func() IteratorOutput
}

// NewRangeIterator builds a range-counter iterator over r. An
// unbounded range can still be iterated forward from Start (or 0); an
// unbounded End makes Len() meaningless but Next() still works.
func NewRangeIterator(r *Range) *Iterator {
	var start int64
	if r.Start != nil {
		start = *r.Start
	}
	it := &Iterator{Kind: IterRange, rangeCur: start, rangeInclusive: r.Inclusive}
	if r.End != nil {
		it.rangeEnd = *r.End
	} else {
		it.rangeEnd = 1<<63 - 1
	}
	return it
}

func NewListIterator(l *List) *Iterator {
	return &Iterator{Kind: IterList, list: l, pos: 0, back: len(l.Elems)}
}

func NewTupleIterator(t *Tuple) *Iterator {
	return &Iterator{Kind: IterTuple, tuple: t, pos: 0, back: len(t.Elems)}
}

func NewMapIterator(m *Map) *Iterator {
	return &Iterator{Kind: IterMapEntries, mapData: m}
}

func NewStringGraphemeIterator(s *Str) *Iterator {
	return &Iterator{Kind: IterStringGraphemes, str: s, pos: 0, back: s.GraphemeLen()}
}

func NewGeneratorIterator(g Generator) *Iterator {
	return &Iterator{Kind: IterGenerator, gen: g}
}

// NewExternalIterator wraps a host-provided pull function (spec §4.6's
// "external (host-provided)" iterator kind).
func NewExternalIterator(next func() IteratorOutput) *Iterator {
	return &Iterator{Kind: IterExternal, ext: next}
}

// NewIteratorValue wraps it in a Value.
func NewIteratorValue(it *Iterator) Value { return fromPtr(KindIterator, it) }

// AsIterator returns v's Iterator payload; only meaningful when
// v.Kind() == KindIterator.
func (v Value) AsIterator() *Iterator { return v.ptr.(*Iterator) }

// Next advances the iterator, returning its next output.
func (it *Iterator) Next() IteratorOutput {
	switch it.Kind {
	case IterRange:
		if it.rangeDone {
			return IteratorOutput{Tag: OutputDone}
		}
		if it.rangeInclusive {
			if it.rangeCur > it.rangeEnd {
				return IteratorOutput{Tag: OutputDone}
			}
			v := it.rangeCur
			if v == it.rangeEnd {
				it.rangeDone = true
			}
			it.rangeCur++
			return IteratorOutput{Tag: OutputValue, Value: Int(v)}
		}
		if it.rangeCur >= it.rangeEnd {
			return IteratorOutput{Tag: OutputDone}
		}
		v := it.rangeCur
		it.rangeCur++
		return IteratorOutput{Tag: OutputValue, Value: Int(v)}

	case IterList:
		if it.pos >= it.back {
			return IteratorOutput{Tag: OutputDone}
		}
		v := it.list.Elems[it.pos]
		it.pos++
		return IteratorOutput{Tag: OutputValue, Value: v}

	case IterTuple:
		if it.pos >= it.back {
			return IteratorOutput{Tag: OutputDone}
		}
		v := it.tuple.Elems[it.pos]
		it.pos++
		return IteratorOutput{Tag: OutputValue, Value: v}

	case IterStringGraphemes:
		if it.pos >= it.back {
			return IteratorOutput{Tag: OutputDone}
		}
		g, _ := it.str.GraphemeAt(it.pos)
		it.pos++
		return IteratorOutput{Tag: OutputValue, Value: fromPtr(KindStr, g)}

	case IterMapEntries:
		var out IteratorOutput
		i := 0
		found := false
		it.mapData.Each(func(k, v Value) bool {
			if i == it.mapPos {
				out = IteratorOutput{Tag: OutputPair, Key: k, Value: v}
				found = true
				return false
			}
			i++
			return true
		})
		if !found {
			return IteratorOutput{Tag: OutputDone}
		}
		it.mapPos++
		return out

	case IterGenerator:
		return it.gen.Next()

	case IterExternal:
		return it.ext()
	}
	return IteratorOutput{Tag: OutputDone}
}

// NextBack pulls from the opposite end, for the kinds spec §4.6 lists
// as supporting it (list-by-index, string-graphemes, generator).
func (it *Iterator) NextBack() (IteratorOutput, bool) {
	switch it.Kind {
	case IterList:
		if it.pos >= it.back {
			return IteratorOutput{Tag: OutputDone}, true
		}
		it.back--
		return IteratorOutput{Tag: OutputValue, Value: it.list.Elems[it.back]}, true
	case IterStringGraphemes:
		if it.pos >= it.back {
			return IteratorOutput{Tag: OutputDone}, true
		}
		it.back--
		g, _ := it.str.GraphemeAt(it.back)
		return IteratorOutput{Tag: OutputValue, Value: fromPtr(KindStr, g)}, true
	case IterGenerator:
		return it.gen.NextBack()
	default:
		return IteratorOutput{}, false
	}
}

// Copy makes a separately-advanced snapshot (spec §5: "Copies are
// explicit: `copy x` makes a separately-advanced snapshot").
func (it *Iterator) Copy() *Iterator {
	cp := *it
	return &cp
}
