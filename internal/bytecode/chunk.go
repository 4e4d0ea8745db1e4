package bytecode

import (
	"encoding/binary"
	"sort"

	"github.com/glint-lang/glint/internal/constpool"
	"github.com/glint-lang/glint/internal/gerr"
)

// DebugEntry maps an instruction byte offset to the source span that
// produced it. Consecutive instructions sharing a span are coalesced:
// only entries where the span changes are kept (spec §3.1).
type DebugEntry struct {
	Offset int
	Span   gerr.Span
}

// DebugInfo is a Chunk's (offset, span) map plus the original source
// text, used to render error traces (spec §3.7, §7).
type DebugInfo struct {
	Spans  []DebugEntry // strictly increasing by Offset
	Source string
}

// SpanAt returns the span registered for the greatest offset <= target,
// via binary search over the (already sorted) entries.
func (d *DebugInfo) SpanAt(target int) (gerr.Span, bool) {
	i := sort.Search(len(d.Spans), func(i int) bool { return d.Spans[i].Offset > target })
	if i == 0 {
		return gerr.Span{}, false
	}
	return d.Spans[i-1].Span, true
}

// Builder appends instructions to a byte stream and coalesces the
// debug span map as it goes.
type Builder struct {
	Bytes []byte
	debug DebugInfo
	last  gerr.Span
	have  bool
}

func NewBuilder(source string) *Builder {
	return &Builder{debug: DebugInfo{Source: source}}
}

// Emit appends op and its operand bytes, recording span if it differs
// from the previously recorded span (span-repeat suppression, spec §3.1).
func (b *Builder) Emit(op Op, span gerr.Span, operands ...byte) int {
	offset := len(b.Bytes)
	if !b.have || span != b.last {
		b.debug.Spans = append(b.debug.Spans, DebugEntry{Offset: offset, Span: span})
		b.last = span
		b.have = true
	}
	b.Bytes = append(b.Bytes, byte(op))
	b.Bytes = append(b.Bytes, operands...)
	return offset
}

// EmitJumpPlaceholder emits op with a zeroed 2-byte offset operand,
// returning the byte offset of that operand so it can be patched later
// with PatchJump once the target is known.
func (b *Builder) EmitJumpPlaceholder(op Op, span gerr.Span, extraOperands ...byte) int {
	operands := append(append([]byte{}, extraOperands...), 0, 0)
	b.Emit(op, span, operands...)
	return len(b.Bytes) - 2
}

// PatchJump writes target (as a little-endian uint16 offset relative
// to operandOffset itself) into the 2-byte slot at operandOffset.
func (b *Builder) PatchJump(operandOffset int, target int) {
	rel := uint16(target - operandOffset)
	binary.LittleEndian.PutUint16(b.Bytes[operandOffset:operandOffset+2], rel)
}

// Len returns the number of bytes emitted so far, used as a jump target.
func (b *Builder) Len() int { return len(b.Bytes) }

// Append concatenates other's bytes onto b, rebasing its debug spans by
// b's current length. Used to splice a nested function body — compiled
// into its own Builder so the compiler can discover its captures before
// emitting the fixed-up Function/Capture header into the parent stream —
// in place right after that header.
func (b *Builder) Append(other *Builder) {
	base := len(b.Bytes)
	for _, e := range other.debug.Spans {
		b.debug.Spans = append(b.debug.Spans, DebugEntry{Offset: base + e.Offset, Span: e.Span})
	}
	if len(other.debug.Spans) > 0 {
		b.last = other.debug.Spans[len(other.debug.Spans)-1].Span
		b.have = true
	}
	b.Bytes = append(b.Bytes, other.Bytes...)
}

// Chunk is a compiled module or top-level script: a byte stream plus
// its constant pool and debug info (spec §3.7).
type Chunk struct {
	Bytes       []byte
	Constants   *constpool.Pool
	SourcePath  string
	Debug       DebugInfo
	MainIsExport bool // compiler setting: top-level assignments become exports

	// Exports maps a top-level binding's name to the register it lives
	// in, once MainIsExport is set (spec §4.5 "Exports", §4.7's
	// export_top_level_ids setting). The VM reads this, after running
	// the chunk's top-level frame to completion, to materialize the
	// module's exports Map (spec §4.6's Import handling) without the
	// register file itself needing any name metadata at runtime.
	Exports map[string]int
}

// Finish bundles the builder's output with pool and path into a Chunk.
func (b *Builder) Finish(pool *constpool.Pool, path string) *Chunk {
	return &Chunk{Bytes: b.Bytes, Constants: pool, SourcePath: path, Debug: b.debug}
}

// Decode walks the byte stream from offset 0, calling visit for every
// well-formed instruction. Returns an error if a truncated operand is
// found, which the spec §8 invariant rules out for a chunk produced by
// a successful compile, but which a corrupted/foreign byte stream
// could still trigger.
func (c *Chunk) Decode(visit func(offset int, op Op, operands []byte) error) error {
	i := 0
	for i < len(c.Bytes) {
		op := Op(c.Bytes[i])
		n := OperandBytes(op)
		if i+1+n > len(c.Bytes) {
			return gerr.New(gerr.FamilyCompile, gerr.KindInvalidAST, gerr.Span{}, "truncated operand for %s at offset %d", op, i)
		}
		if err := visit(i, op, c.Bytes[i+1:i+1+n]); err != nil {
			return err
		}
		i += 1 + n
	}
	return nil
}
