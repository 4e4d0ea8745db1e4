package vm

import (
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/value"
)

// makeIterator implements the MakeIterator opcode: picks the built-in
// iterator shape matching v's kind (spec §4.6's Iterators list). An
// already-Iterator value is passed through unchanged (`for` over an
// iterator expression is itself iterable).
func (vm *VM) makeIterator(v value.Value) (*value.Iterator, error) {
	switch v.Kind() {
	case value.KindIterator:
		return v.AsIterator(), nil
	case value.KindRange:
		return value.NewRangeIterator(v.AsRange()), nil
	case value.KindList:
		return value.NewListIterator(v.AsList()), nil
	case value.KindTuple:
		return value.NewTupleIterator(v.AsTuple()), nil
	case value.KindMap:
		return value.NewMapIterator(v.AsMap()), nil
	case value.KindStr:
		return value.NewStringGraphemeIterator(v.AsStr()), nil
	case value.KindObject:
		obj := v.AsObject()
		switch obj.IteratorKind() {
		case value.IterValues, value.IterPairs:
			return value.NewExternalIterator(objectIteratorPull(obj)), nil
		}
	}
	return nil, unexpectedf("%s is not iterable", v.TypeName())
}

// objectIteratorPull is a placeholder pull function for Objects that
// report themselves iterable: the Object interface (internal/value)
// does not yet expose a Next hook of its own, so this always reports
// done immediately. Revisit once a host Object needs real iteration.
func objectIteratorPull(obj value.Object) func() value.IteratorOutput {
	return func() value.IteratorOutput { return value.IteratorOutput{Tag: value.OutputDone} }
}

// iterOutputValue folds an IteratorOutput into the single Value a
// register receives: a map-entry pair becomes a two-element Tuple
// (spec §4.6's "for k, v in map" unpacking via IterUnpack downstream).
func iterOutputValue(out value.IteratorOutput) value.Value {
	if out.Tag == value.OutputPair {
		return value.NewTuple([]value.Value{out.Key, out.Value})
	}
	return out.Value
}

// iterNext implements IterNext/IterNextTemp: advances iterReg's
// iterator, writing its value (or a (key,value) pair Tuple) into
// resultReg, or reports done=true (the loop-exit jump condition) once
// the iterator is exhausted; an iterator error is returned instead. asTemp is accepted for
// parity with the opcode's distinct identity but produces the same
// Value shape in this implementation — "temp" only matters for a
// Tuple's storage lifetime, which this VM's heap-allocated Tuple makes
// moot.
func (vm *VM) iterNext(f *Frame, resultReg, iterReg int, asTemp bool) (bool, *gerr.Error) {
	it := f.regs[iterReg].AsIterator()
	out := it.Next()
	switch out.Tag {
	case value.OutputDone:
		return true, nil
	case value.OutputError:
		return false, vm.fail(f, gerr.KindUnexpected, "%s", out.Err)
	default:
		f.regs[resultReg] = iterOutputValue(out)
		return false, nil
	}
}

// iterUnpack implements IterUnpack: spreads a Tuple/List value (as
// produced by a multi-target `for`/destructuring assign source, or a
// map-entry pair from iterNext) across count consecutive registers
// starting at dstStart (spec §4.5's multi-target for/assign).
func (vm *VM) iterUnpack(f *Frame, dstStart int, v value.Value, count int) {
	var elems []value.Value
	switch v.Kind() {
	case value.KindTuple:
		elems = v.AsTuple().Elems
	case value.KindList:
		elems = v.AsList().Elems
	case value.KindTemporaryTuple:
		elems = v.AsTemporaryTuple().Values()
	default:
		elems = []value.Value{v}
	}
	for i := 0; i < count; i++ {
		if i < len(elems) {
			f.regs[dstStart+i] = elems[i]
		} else {
			f.regs[dstStart+i] = value.Null()
		}
	}
}
