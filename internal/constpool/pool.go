// Package constpool implements the deduplicated literal pool shared by
// the parser and compiler (spec §3.2).
//
// Grounded on original_source/crates/parser/src/constant_pool.rs: an
// append-only list of entries, each either an f64, an i64, or a
// half-open byte range into one contiguous string buffer, with exact
// dedup by bit-pattern / byte content and O(1) incremental hashing.
package constpool

import (
	"hash/fnv"
	"math"
)

// Index references an entry in a Pool. Indices are stable for the
// lifetime of the pool they were obtained from.
type Index uint32

type entryKind uint8

const (
	kindF64 entryKind = iota
	kindI64
	kindStr
)

type entry struct {
	kind entryKind
	f    float64
	i    int64
	lo   int
	hi   int
}

// Pool is an append-only, deduplicated table of f64/i64/string
// constants. All string bytes live in one concatenated buffer so that
// string constants can be sliced without individual allocations.
type Pool struct {
	entries    []entry
	strData    []byte
	strIndex   map[string]Index
	f64Index   map[uint64]Index
	i64Index   map[int64]Index
	hash       uint64
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{
		strIndex: make(map[string]Index),
		f64Index: make(map[uint64]Index),
		i64Index: make(map[int64]Index),
	}
}

// Size returns the number of entries in the pool.
func (p *Pool) Size() int { return len(p.entries) }

// Hash returns the pool's incrementally-maintained content hash,
// letting two pools be compared in O(1) (spec §3.2).
func (p *Pool) Hash() uint64 { return p.hash }

func (p *Pool) mix(b []byte) {
	h := fnv.New64a()
	h.Write(b)
	p.hash ^= h.Sum64() + 0x9e3779b97f4a7c15 + (p.hash << 6) + (p.hash >> 2)
}

// AddFloat interns f, returning the existing index if an identical
// bit-pattern was already present.
func (p *Pool) AddFloat(f float64) Index {
	bits := math.Float64bits(f)
	if idx, ok := p.f64Index[bits]; ok {
		return idx
	}
	idx := Index(len(p.entries))
	p.entries = append(p.entries, entry{kind: kindF64, f: f})
	p.f64Index[bits] = idx
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(bits >> (8 * i))
	}
	p.mix(buf[:])
	return idx
}

// AddInt interns n, returning the existing index for an equal int64.
func (p *Pool) AddInt(n int64) Index {
	if idx, ok := p.i64Index[n]; ok {
		return idx
	}
	idx := Index(len(p.entries))
	p.entries = append(p.entries, entry{kind: kindI64, i: n})
	p.i64Index[n] = idx
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(n >> (8 * i))
	}
	p.mix(buf[:])
	return idx
}

// AddString interns s, appending its bytes to the shared string buffer
// only on first insertion; later calls with byte-identical content
// reuse the earlier range.
func (p *Pool) AddString(s string) Index {
	if idx, ok := p.strIndex[s]; ok {
		return idx
	}
	lo := len(p.strData)
	p.strData = append(p.strData, s...)
	hi := len(p.strData)
	idx := Index(len(p.entries))
	p.entries = append(p.entries, entry{kind: kindStr, lo: lo, hi: hi})
	p.strIndex[s] = idx
	p.mix([]byte(s))
	return idx
}

// Constant is the decoded form of an entry, returned by Get.
type Constant struct {
	Kind   string // "f64" | "i64" | "str"
	Float  float64
	Int    int64
	String string
}

// Get returns the decoded constant at idx, or false if idx is out of range.
func (p *Pool) Get(idx Index) (Constant, bool) {
	if int(idx) >= len(p.entries) {
		return Constant{}, false
	}
	e := p.entries[idx]
	switch e.kind {
	case kindF64:
		return Constant{Kind: "f64", Float: e.f}, true
	case kindI64:
		return Constant{Kind: "i64", Int: e.i}, true
	case kindStr:
		return Constant{Kind: "str", String: string(p.strData[e.lo:e.hi])}, true
	}
	return Constant{}, false
}

// GetString panics if idx isn't a string constant; callers that have
// already validated the AST shape use this for the common case.
func (p *Pool) GetString(idx Index) string {
	e := p.entries[idx]
	if e.kind != kindStr {
		panic("constpool: index is not a string constant")
	}
	return string(p.strData[e.lo:e.hi])
}

// GetFloat panics if idx isn't a float constant.
func (p *Pool) GetFloat(idx Index) float64 {
	e := p.entries[idx]
	if e.kind != kindF64 {
		panic("constpool: index is not a float constant")
	}
	return e.f
}

// GetInt panics if idx isn't an int constant.
func (p *Pool) GetInt(idx Index) int64 {
	e := p.entries[idx]
	if e.kind != kindI64 {
		panic("constpool: index is not an int constant")
	}
	return e.i
}

// StringData returns the concatenated buffer backing every Str entry.
func (p *Pool) StringData() []byte { return p.strData }
