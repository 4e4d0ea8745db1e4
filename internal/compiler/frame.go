// Package compiler lowers an ast.Ast into a bytecode.Chunk (spec §4.4,
// §4.5). Grounded on the teacher's internal/compregister.Compiler
// (register allocator + single-pass AST walk), generalized from the
// teacher's global-vs-local two-tier model to the spec's frame-local
// register file with explicit Reserved/Assigned slot states, since
// glint has no global variable tier: every binding lives in some
// frame's register file or is captured into a closure.
package compiler

import (
	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/gerr"
)

// slotState is the state of one register in a Frame under compilation
// (spec §3.8, §4.4).
type slotState int

const (
	slotFree slotState = iota
	slotAllocated
	slotReserved // holds a name but its defining assignment hasn't committed
	slotAssigned // holds a committed local binding
)

type deferredOp struct {
	emit func()
}

type slot struct {
	state      slotState
	name       string
	deferred   []deferredOp
}

// loopCtx is one entry in the compiler's loop stack (spec §4.4): the
// jump target continue returns to, and the forward-jump operand
// offsets that break must patch once the loop's end is known.
type loopCtx struct {
	startIP       int
	breakPatches  []int
	resultReg     int // register that the loop is assembling a value into, or -1
}

// Frame models one function (or the top-level script) under
// compilation (spec §3.8, §4.4). Register 0 is reserved for self;
// registers 1..1+locals are named bindings; above that is a temporary
// stack.
type Frame struct {
	parent *Frame

	slots     []slot
	nextTemp  int // first register not yet claimed by a local or temp
	maxReg    int

	loops []loopCtx

	exportTopLevel bool
	exports        map[string]int

	isGenerator bool

	captures []captureRef // in order added; index is the capture slot number
}

// captureRef records one value a nested frame pulled in from an
// enclosing frame (spec §4.4 captures_for_nested_frame).
type captureRef struct {
	name       string
	outerReg   int
	deferred   bool // true if the source register wasn't yet committed when captured
}

const maxFrameRegisters = 255

func newFrame(parent *Frame, exportTopLevel bool) *Frame {
	f := &Frame{parent: parent, exportTopLevel: exportTopLevel}
	// register 0: self
	f.slots = append(f.slots, slot{state: slotAllocated, name: "self"})
	f.nextTemp = 1
	f.maxReg = 1
	if exportTopLevel {
		f.exports = make(map[string]int)
	}
	return f
}

// pushTemp allocates the next free register as an anonymous temporary
// and returns its index.
func (f *Frame) pushTemp() (int, error) {
	if f.nextTemp >= maxFrameRegisters {
		return 0, gerr.New(gerr.FamilyCompile, gerr.KindFrameOverflow, gerr.Span{}, "frame needs more than %d registers", maxFrameRegisters)
	}
	idx := f.nextTemp
	for idx >= len(f.slots) {
		f.slots = append(f.slots, slot{})
	}
	f.slots[idx] = slot{state: slotAllocated}
	f.nextTemp++
	if f.nextTemp > f.maxReg {
		f.maxReg = f.nextTemp
	}
	return idx, nil
}

// popTemp frees the most recently pushed temporary. Callers must pop
// in strict LIFO order matching their pushes, except that committed
// locals above the popped register are tolerated (see below); any other
// misuse raises EmptyRegisterStack.
//
// A register holding a committed local binding (slotAssigned) is never
// actually freed here, even when a caller passes one: compileIdentRead
// returns an existing local's own register directly (no copy on read),
// so any call site that discards "the register an expression or
// statement produced" may be holding a local's permanent storage, not
// a temporary it owns. Freeing it would make the name unresolvable by
// every later statement that reads it (and, since registers are reused
// top-down, corrupt whatever the compiler allocates next). The trade-off
// is a register that a loop/conditional body bound as a local stays
// reserved for the rest of its enclosing frame instead of being
// reclaimed once that local's scope logically ends — a compile-time
// register-leak, not a correctness bug. See DESIGN.md.
func (f *Frame) popTemp(reg int) error {
	if reg < len(f.slots) && f.slots[reg].state == slotAssigned {
		return nil
	}
	ok := f.nextTemp > 0 && reg < f.nextTemp
	for i := reg + 1; ok && i < f.nextTemp; i++ {
		ok = f.slots[i].state == slotAssigned
	}
	if !ok {
		return gerr.New(gerr.FamilyCompile, gerr.KindEmptyRegisterStack, gerr.Span{}, "register stack mismatch freeing r%d", reg)
	}
	if reg != f.nextTemp-1 {
		// Only committed locals sit above reg: it stays allocated (the
		// register leak described above), marked like a local so that
		// pops of lower temporaries can pass over it as well.
		f.slots[reg] = slot{state: slotAssigned}
		return nil
	}
	f.nextTemp--
	f.slots[f.nextTemp] = slot{}
	return nil
}

// reserve allocates a register for name but leaves it Reserved: later
// compiled expressions see it exists (for self-capture) but it isn't
// committed until commit() runs.
func (f *Frame) reserve(name string) (int, error) {
	reg, err := f.pushTemp()
	if err != nil {
		return 0, err
	}
	f.slots[reg].state = slotReserved
	f.slots[reg].name = name
	return reg, nil
}

// commit transitions a Reserved register to Assigned, running any
// deferred emissions queued against it (spec §4.4 — used so a function
// can capture itself by id once its own local slot exists).
func (f *Frame) commit(reg int) {
	s := &f.slots[reg]
	s.state = slotAssigned
	for _, d := range s.deferred {
		d.emit()
	}
	s.deferred = nil
	if f.exports != nil {
		f.exports[s.name] = reg
	}
}

// defineLocal allocates and immediately commits a local binding.
func (f *Frame) defineLocal(name string) (int, error) {
	reg, err := f.pushTemp()
	if err != nil {
		return 0, err
	}
	f.slots[reg].state = slotAssigned
	f.slots[reg].name = name
	if f.exports != nil {
		f.exports[name] = reg
	}
	return reg, nil
}

// deferUntilCommitted queues fn to run once reg commits; only meaningful while reg
// is Reserved.
func (f *Frame) deferUntilCommitted(reg int, fn func()) {
	f.slots[reg].deferred = append(f.slots[reg].deferred, deferredOp{emit: fn})
}

// resolveLocal looks up name among this frame's own slots only (not
// outer frames); returns (-1, false) if absent.
func (f *Frame) resolveLocal(name string) (int, bool) {
	for i := f.nextTemp - 1; i >= 1; i-- {
		if f.slots[i].name == name && (f.slots[i].state == slotAssigned || f.slots[i].state == slotReserved) {
			return i, true
		}
	}
	return -1, false
}

// captureIndex returns the capture slot for name, adding a new capture
// resolved against the parent frame if this is the first reference.
// deferred is true when the parent's register hasn't committed yet
// (the self-capturing-closure case).
func (f *Frame) captureIndex(name string) (idx int, outerReg int, deferred bool, found bool) {
	for i, c := range f.captures {
		if c.name == name {
			return i, c.outerReg, c.deferred, true
		}
	}
	if f.parent == nil {
		return 0, 0, false, false
	}
	reg, ok := f.parent.resolveLocal(name)
	if !ok {
		return 0, 0, false, false
	}
	isDeferred := f.parent.slots[reg].state == slotReserved
	idx = len(f.captures)
	f.captures = append(f.captures, captureRef{name: name, outerReg: reg, deferred: isDeferred})
	return idx, reg, isDeferred, true
}

// pushLoop starts a new loop context at the current instruction
// pointer (ip is the builder's current length).
func (f *Frame) pushLoop(startIP int, resultReg int) {
	f.loops = append(f.loops, loopCtx{startIP: startIP, resultReg: resultReg})
}

func (f *Frame) currentLoop() *loopCtx {
	if len(f.loops) == 0 {
		return nil
	}
	return &f.loops[len(f.loops)-1]
}

func (f *Frame) popLoop() loopCtx {
	l := f.loops[len(f.loops)-1]
	f.loops = f.loops[:len(f.loops)-1]
	return l
}

var _ = ast.NoIndex // referenced by sibling files in this package
