package vm

import "github.com/glint-lang/glint/internal/value"

// subGenerator drives a generator function's Frame on its own
// goroutine, handing control back and forth with Next()/NextBack()
// through a pair of unbuffered channels (spec §4.6's Generators
// section). Grounded on the teacher's (JIT-era) coroutine-style
// generator support, adapted here to plain goroutines plus channels
// since this VM has no fiber/continuation primitive of its own — Go's
// scheduler already gives every generator a suspendable stack for
// free.
//
// Only one of {consumer, generator goroutine} ever runs at a time: the
// consumer blocks on yieldCh after sending resumeCh, and the generator
// goroutine blocks on resumeCh between yields. This keeps the
// single-goroutine-at-a-time invariant the rest of the VM (register
// files, try handlers) assumes, without needing its own locking.
type subGenerator struct {
	resumeCh chan struct{}
	yieldCh  chan value.IteratorOutput
	done     bool
}

// newGeneratorIterator starts f's body on its own goroutine (paused
// until the first Next() call) and wraps it as a value.Iterator.
func (vm *VM) newGeneratorIterator(f *Frame) *value.Iterator {
	g := &subGenerator{
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan value.IteratorOutput),
	}
	f.generator = g
	go g.run(vm, f)
	return value.NewGeneratorIterator(g)
}

// run is the generator goroutine body: waits for the first resume, then
// drives f's frame to completion. Yield (via (*subGenerator).yield)
// sends the yielded value out and blocks for the next resume; an
// ordinary Return ends the generator, discarding its return value
// (spec §4.6: a generator's `return` simply ends iteration — the
// returned value has no consumer, since Next() only ever reports
// Value/Pair/Done/Error).
func (g *subGenerator) run(vm *VM, f *Frame) {
	<-g.resumeCh
	v, err := vm.runFrame(f)
	g.done = true
	if err != nil {
		g.yieldCh <- value.IteratorOutput{Tag: value.OutputError, Err: err}
		return
	}
	_ = v
	g.yieldCh <- value.IteratorOutput{Tag: value.OutputDone}
}

// yield is called from the generator goroutine (inside runFrame's Yield
// case) to hand a value out to the waiting consumer and block until
// resumed.
func (g *subGenerator) yield(v value.Value) {
	g.yieldCh <- value.IteratorOutput{Tag: value.OutputValue, Value: v}
	<-g.resumeCh
}

// Next implements value.Generator: resumes the generator goroutine and
// waits for its next yield (or completion).
func (g *subGenerator) Next() value.IteratorOutput {
	if g.done {
		return value.IteratorOutput{Tag: value.OutputDone}
	}
	g.resumeCh <- struct{}{}
	return <-g.yieldCh
}

// NextBack is unsupported for generators (spec §4.6 lists only
// list-by-index, string-graphemes, and generator as NextBack-capable,
// but a generator's single forward execution thread has no notion of
// "the last value" without running to completion, so this VM reports
// it unsupported rather than buffering the whole sequence).
func (g *subGenerator) NextBack() (value.IteratorOutput, bool) {
	return value.IteratorOutput{}, false
}
