package value

// List is glint's mutable, shared-by-reference vector (spec §3.4,
// §3.9). Sharing is achieved simply by sharing the *List pointer;
// `copy` allocates a new List with a fresh backing slice (one level of
// independence), `deep_copy` additionally deep-clones every element.
type List struct {
	Elems []Value
}

// NewList wraps elems (taking ownership of the slice) in a Value.
func NewList(elems []Value) Value { return fromPtr(KindList, &List{Elems: elems}) }

// AsList returns v's List payload; only meaningful when v.Kind() == KindList.
func (v Value) AsList() *List { return v.ptr.(*List) }

// Copy returns a new List sharing no backing slice with l but aliasing
// l's elements (a single-level independent container, per spec §5).
func (l *List) Copy() *List {
	cp := make([]Value, len(l.Elems))
	copy(cp, l.Elems)
	return &List{Elems: cp}
}

// Tuple is glint's immutable, shared-by-reference fixed-size sequence.
type Tuple struct {
	Elems []Value
}

// NewTuple wraps elems in a Value.
func NewTuple(elems []Value) Value { return fromPtr(KindTuple, &Tuple{Elems: elems}) }

// AsTuple returns v's Tuple payload; only meaningful when v.Kind() == KindTuple.
func (v Value) AsTuple() *Tuple { return v.ptr.(*Tuple) }

// TemporaryTuple is a view over a contiguous register range, used for
// multiple-return-value call results before they are either unpacked
// into targets or materialized into a real Tuple (spec §3.4). It never
// outlives the instruction sequence that produced it.
type TemporaryTuple struct {
	Start int
	Count int
	regs  []Value // the owning frame's register file, aliased directly
}

// NewTemporaryTuple constructs a view over regs[start:start+count].
func NewTemporaryTuple(regs []Value, start, count int) Value {
	return fromPtr(KindTemporaryTuple, &TemporaryTuple{Start: start, Count: count, regs: regs})
}

// AsTemporaryTuple returns v's TemporaryTuple payload.
func (v Value) AsTemporaryTuple() *TemporaryTuple { return v.ptr.(*TemporaryTuple) }

// Values materializes the temporary tuple's current register contents.
func (t *TemporaryTuple) Values() []Value { return t.regs[t.Start : t.Start+t.Count] }

// Materialize copies a TemporaryTuple's contents into a real, owned
// Tuple value — required once the register range it pointed into may
// be reused (e.g. stored into a variable rather than immediately
// unpacked).
func (t *TemporaryTuple) Materialize() Value {
	cp := make([]Value, t.Count)
	copy(cp, t.Values())
	return NewTuple(cp)
}
