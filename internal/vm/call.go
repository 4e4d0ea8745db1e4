package vm

import (
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/value"
)

// call dispatches a Call/CallInstance instruction: callee's Kind
// decides how the arguments sitting in caller's registers
// [argReg, argReg+argCount) are consumed (spec §4.6's Execution model,
// §3.4's callable kinds).
func (vm *VM) call(caller *Frame, callee value.Value, argReg, argCount int) (value.Value, *gerr.Error) {
	switch callee.Kind() {
	case value.KindFunction:
		return vm.callKoto(caller, callee.AsFunction(), nil, argReg, argCount)
	case value.KindCaptureFunction:
		cf := callee.AsCaptureFunction()
		return vm.callKoto(caller, cf.Fn, cf.Captures, argReg, argCount)
	case value.KindNativeFunction:
		nf := callee.AsNativeFunction()
		args := copyRegs(caller.regs[:], argReg, argCount)
		v, err := nf.Fn(args)
		if err != nil {
			return value.Value{}, wrapNativeError(caller, err)
		}
		return v, nil
	case value.KindObject:
		obj := callee.AsObject()
		args := copyRegs(caller.regs[:], argReg, argCount)
		v, handled, err := obj.Call(args)
		if err != nil {
			return value.Value{}, wrapNativeError(caller, err)
		}
		if !handled {
			return value.Value{}, vm.fail(caller, gerr.KindUnexpected, "%s is not callable", callee.TypeName())
		}
		return v, nil
	case value.KindMap:
		m := callee.AsMap()
		if fn, ok := m.Meta.Get(value.MetaKey{Kind: value.MetaCall}); ok {
			return vm.call(caller, fn, argReg, argCount)
		}
		return value.Value{}, vm.fail(caller, gerr.KindUnexpected, "map has no @|| meta function")
	default:
		return value.Value{}, vm.fail(caller, gerr.KindUnexpected, "%s is not callable", callee.TypeName())
	}
}

// CallValue invokes fn with the given args from outside any running
// frame (the embedder's call_function/call_instance_function, spec
// §6.1) — unlike call/callKoto, which read arguments out of a caller
// Frame's registers, CallValue's caller is Go code holding a plain
// []value.Value. self, when non-nil, binds to register 0 and is only
// meaningful for an instance function (fn.Flags&FlagInstanceFunction).
func (vm *VM) CallValue(fn value.Value, self *value.Value, args []value.Value) (value.Value, error) {
	switch fn.Kind() {
	case value.KindNativeFunction:
		nf := fn.AsNativeFunction()
		all := args
		if self != nil {
			all = append([]value.Value{*self}, args...)
		}
		v, err := nf.Fn(all)
		if err != nil {
			return value.Value{}, wrapNativeError(nil, err)
		}
		return v, nil
	case value.KindFunction:
		v, err := vm.callValueKoto(fn.AsFunction(), nil, self, args)
		return v, unwrapGerr(err)
	case value.KindCaptureFunction:
		cf := fn.AsCaptureFunction()
		v, err := vm.callValueKoto(cf.Fn, cf.Captures, self, args)
		return v, unwrapGerr(err)
	case value.KindMap:
		m := fn.AsMap()
		if callFn, ok := m.Meta.Get(value.MetaKey{Kind: value.MetaCall}); ok {
			return vm.CallValue(callFn, self, args)
		}
		return value.Value{}, gerr.New(gerr.FamilyRuntime, gerr.KindUnexpected, gerr.Span{}, "map has no @|| meta function")
	default:
		return value.Value{}, gerr.New(gerr.FamilyRuntime, gerr.KindUnexpected, gerr.Span{}, "%s is not callable", fn.TypeName())
	}
}

func unwrapGerr(e *gerr.Error) error {
	if e == nil {
		return nil
	}
	return e
}

// callValueKoto builds a synthetic child Frame with no caller/parent
// (there is no enclosing VM frame to record for trace purposes) and
// binds self/args per the same convention as callKoto, then drives it
// directly through runFrame.
func (vm *VM) callValueKoto(fn *value.Function, captures []*value.Value, self *value.Value, args []value.Value) (value.Value, *gerr.Error) {
	child := newFrame(fn.Chunk, fn.Start, nil)
	child.captures = captures
	child.name = fn.Name

	fixedParams := fn.ArgCount
	if fn.IsVariadic() && fixedParams > 0 {
		fixedParams--
	}

	if fn.Flags&value.FlagInstanceFunction != 0 && self != nil {
		child.regs[0] = *self
	}

	destStart := 1
	n := len(args)
	if fn.IsVariadic() {
		if n > fixedParams {
			n = fixedParams
		}
	} else if n > fn.ArgCount {
		n = fn.ArgCount
	}
	for i := 0; i < n; i++ {
		child.regs[destStart+i] = args[i]
	}
	if fn.IsVariadic() {
		var rest []value.Value
		if len(args) > fixedParams {
			rest = append([]value.Value{}, args[fixedParams:]...)
		}
		child.regs[destStart+fixedParams] = value.NewList(rest)
	}

	if fn.IsGenerator() {
		return value.NewIteratorValue(vm.newGeneratorIterator(child)), nil
	}

	return vm.runFrame(child)
}

func wrapNativeError(caller *Frame, err error) *gerr.Error {
	if e, ok := err.(*gerr.Error); ok {
		return e
	}
	return gerr.New(gerr.FamilyRuntime, gerr.KindStringError, gerr.Span{}, "%s", err)
}

// callKoto binds argReg..argReg+argCount of caller's registers into a
// fresh child Frame per glint's calling convention (spec §4.5, §4.6):
//
//   - register 0 is reserved for an implicit "self", populated only
//     when fn.Flags has FlagInstanceFunction set, in which case the
//     first argument supplies it and the rest shift up by one;
//   - for ordinary functions (the overwhelming majority — ".method()"
//     call sugar prepends its receiver as a normal leading argument
//     rather than binding register 0) every argument maps to registers
//     1, 2, 3, ... in order;
//   - if fn.IsVariadic(), the arguments beyond the fixed (non-variadic)
//     parameter count are collected into a List bound to the last
//     declared parameter register instead of being passed positionally;
//   - missing trailing arguments leave their registers at the zero
//     Value (KindNull), matching bindParam's default-value
//     JumpIfTrue-on-truthy check.
//
// Execution recurses into runFrame on Go's own call stack rather than
// pushing onto an explicit VM frame stack: this lets try/catch and
// error traces fall out of ordinary Go error propagation (each
// unwinding runFrame checks its own Frame.tryHandlers) instead of
// needing a hand-rolled unwind loop. See DESIGN.md.
func (vm *VM) callKoto(caller *Frame, fn *value.Function, captures []*value.Value, argReg, argCount int) (value.Value, *gerr.Error) {
	child := newFrame(fn.Chunk, fn.Start, caller)
	child.captures = captures
	child.name = fn.Name

	fixedParams := fn.ArgCount
	if fn.IsVariadic() && fixedParams > 0 {
		fixedParams--
	}

	destStart := 1
	if fn.Flags&value.FlagInstanceFunction != 0 {
		if argCount > 0 {
			child.regs[0] = caller.regs[argReg]
			argReg++
			argCount--
		}
	}

	n := argCount
	if fn.IsVariadic() {
		if n > fixedParams {
			n = fixedParams
		}
	} else if n > fn.ArgCount {
		n = fn.ArgCount
	}
	for i := 0; i < n; i++ {
		child.regs[destStart+i] = caller.regs[argReg+i]
	}
	if fn.IsVariadic() {
		var rest []value.Value
		if argCount > fixedParams {
			rest = copyRegs(caller.regs[:], argReg+fixedParams, argCount-fixedParams)
		}
		child.regs[destStart+fixedParams] = value.NewList(rest)
	}

	if fn.IsGenerator() {
		return value.NewIteratorValue(vm.newGeneratorIterator(child)), nil
	}

	return vm.runFrame(child)
}
