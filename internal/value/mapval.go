package value

import "github.com/dolthub/swiss"

// Map is glint's `(Data, Option<Meta>)` pair (spec §3.5): an
// insertion-ordered Data map plus an optional Meta table of operator
// overloads / named meta-functions. Sharing an unmodified Data map
// while swapping Meta (`from_data_and_meta_maps`) is supported by
// constructing a new Map that points at the same *mapData.
//
// Grounded on the teacher's internal/vmregister MapObj (a plain
// map[string]Value), generalized to (a) arbitrary immutable-kind keys
// and (b) insertion order, which a bare Go map cannot provide. The
// index itself reuses github.com/dolthub/swiss (already pulled in by
// another retrieved example, mna/nenuphar's machine.Map, for the same
// "map keyed by Value" role) rather than the stdlib map, paired with a
// separate ordered slice of entries — swiss gives O(1) lookup, the
// slice gives the insertion-order iteration spec §3.5 requires, which
// swiss (like any open-addressing hash table) cannot provide on its
// own.
type Map struct {
	data *mapData
	Meta *Meta
}

type mapEntry struct {
	key   Value
	val   Value
	alive bool
}

type mapData struct {
	index   *swiss.Map[mapKey, int]
	entries []mapEntry
	live    int
}

// NewMap returns an empty map with no meta table.
func NewMap() *Map {
	return &Map{data: &mapData{index: swiss.NewMap[mapKey, int](8)}}
}

// NewMapValue wraps m in a Value.
func NewMapValue(m *Map) Value { return fromPtr(KindMap, m) }

// AsMap returns v's Map payload; only meaningful when v.Kind() == KindMap.
func (v Value) AsMap() *Map { return v.ptr.(*Map) }

// FromDataAndMeta builds a Map that shares data's backing store (so
// mutations through either alias are visible to both) but carries its
// own independent Meta (spec §5's `from_data_and_meta_maps`).
func FromDataAndMeta(data *Map, meta *Meta) *Map {
	return &Map{data: data.data, Meta: meta}
}

// Len reports the number of live (not-deleted) entries.
func (m *Map) Len() int { return m.data.live }

// Get looks up key, returning (value, true) if present.
func (m *Map) Get(key Value) (Value, bool) {
	i, ok := m.data.index.Get(canonicalKey(key))
	if !ok || !m.data.entries[i].alive {
		return Value{}, false
	}
	return m.data.entries[i].val, true
}

// Set inserts or overwrites key -> val, preserving key's original
// insertion position if it already existed.
func (m *Map) Set(key, val Value) {
	ck := canonicalKey(key)
	if i, ok := m.data.index.Get(ck); ok && m.data.entries[i].alive {
		m.data.entries[i].val = val
		return
	}
	i := len(m.data.entries)
	m.data.entries = append(m.data.entries, mapEntry{key: key, val: val, alive: true})
	m.data.index.Put(ck, i)
	m.data.live++
}

// Delete removes key if present, reporting whether it was found.
func (m *Map) Delete(key Value) bool {
	ck := canonicalKey(key)
	i, ok := m.data.index.Get(ck)
	if !ok || !m.data.entries[i].alive {
		return false
	}
	m.data.entries[i].alive = false
	m.data.index.Delete(ck)
	m.data.live--
	return true
}

// Each calls fn for every live entry in insertion order, stopping early
// if fn returns false.
func (m *Map) Each(fn func(key, val Value) bool) {
	for _, e := range m.data.entries {
		if !e.alive {
			continue
		}
		if !fn(e.key, e.val) {
			return
		}
	}
}

// Copy returns a new Map with an independent entries slice and index
// but the same Meta pointer (a single-level independent container,
// spec §5); deep_copy additionally clones every value and is
// implemented by the caller walking Each.
func (m *Map) Copy() *Map {
	nm := &Map{data: &mapData{index: swiss.NewMap[mapKey, int](uint32(m.data.live + 1))}, Meta: m.Meta}
	m.Each(func(k, v Value) bool {
		nm.Set(k, v)
		return true
	})
	return nm
}

// mapKey is the canonical, Go-comparable form of a Value used as a
// swiss.Map key. Numbers are normalized to a shared representation so
// Int(1) and Float(1.0) — equal per Equal() — collide to the same key,
// matching spec §3.4's numeric-coercion equality rule.
type mapKey struct {
	kind Kind
	num  uint64
	str  string
}

func canonicalKey(v Value) mapKey {
	switch v.kind {
	case KindInt:
		return mapKey{kind: KindFloat, num: floatBits(v.AsFloat64())}
	case KindFloat:
		return mapKey{kind: KindFloat, num: floatBits(v.AsFloat())}
	case KindStr:
		return mapKey{kind: KindStr, str: v.AsStr().String()}
	case KindRange:
		return mapKey{kind: KindRange, str: v.AsRange().String()}
	case KindTuple:
		return mapKey{kind: KindTuple, str: tupleKeyString(v.AsTuple())}
	default:
		return mapKey{kind: v.kind, num: v.num}
	}
}

func tupleKeyString(t *Tuple) string {
	var b []byte
	for _, e := range t.Elems {
		ek := canonicalKey(e)
		b = append(b, byte(ek.kind), '|')
		b = append(b, ek.str...)
		b = append(b, '|')
		for i := 0; i < 8; i++ {
			b = append(b, byte(ek.num>>(8*i)))
		}
		b = append(b, ';')
	}
	return string(b)
}

// MetaKeyKind enumerates the families of meta entry (spec §3.5).
type MetaKeyKind uint8

const (
	MetaBinaryOp MetaKeyKind = iota
	MetaUnaryOp
	MetaCall
	MetaNamed
	MetaTest
	MetaTests
	MetaPreTest
	MetaPostTest
	MetaMain
	MetaType
	MetaBase
)

// MetaKey names one entry in a Map's meta table. Op/Name are only
// meaningful for the kinds that carry a payload (BinaryOp/UnaryOp
// carry the operator text, Named/Test carry the identifier).
type MetaKey struct {
	Kind MetaKeyKind
	Op   string
	Name string
}

// Meta is a Map's operator-overload / meta-function table (spec §3.5,
// §3.6). It is a plain Go map since MetaKey is a small comparable
// struct and meta tables are never iterated in a spec-visible order.
type Meta struct {
	entries map[MetaKey]Value
}

// NewMeta returns an empty meta table.
func NewMeta() *Meta { return &Meta{entries: make(map[MetaKey]Value)} }

// Get looks up key.
func (m *Meta) Get(key MetaKey) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.entries[key]
	return v, ok
}

// Set inserts or overwrites key -> val.
func (m *Meta) Set(key MetaKey, val Value) { m.entries[key] = val }

// Tests returns every @test_name meta-function on m, keyed by name
// (spec §6.1's test-running convention, dispatched by internal/runtime
// against a module's @tests export).
func (m *Meta) Tests() map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value)
	for k, v := range m.entries {
		if k.Kind == MetaTest {
			out[k.Name] = v
		}
	}
	return out
}

// Copy returns a shallow copy of m (a new table with the same entries).
func (m *Meta) Copy() *Meta {
	if m == nil {
		return nil
	}
	nm := &Meta{entries: make(map[MetaKey]Value, len(m.entries))}
	for k, v := range m.entries {
		nm.entries[k] = v
	}
	return nm
}
