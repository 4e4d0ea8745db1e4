package compiler

import (
	"encoding/binary"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/constpool"
	"github.com/glint-lang/glint/internal/gerr"
)

// compileFunctionLiteral compiles a `|args| body` literal into its own
// Builder (so captures are discovered by the time the header is
// written), then splices the assembled body in after the
// Function/Capture header (spec §4.4, §4.5, §4.6).
func (c *Compiler) compileFunctionLiteral(n *ast.Node) int {
	outerB, outerFrame := c.b, c.frame
	bodyB := bytecode.NewBuilder(c.source)
	c.b = bodyB
	c.frame = newFrame(outerFrame, false)

	for _, p := range n.Children {
		c.bindParam(p)
	}
	bodyReg := c.compileBlockValue(n.Rhs)
	c.emit(bytecode.Return, n.Span, reg8(bodyReg))
	if err := c.frame.popTemp(bodyReg); err != nil {
		panic(err)
	}

	isGenerator := c.frame.isGenerator
	captures := c.frame.captures

	c.b, c.frame = outerB, outerFrame

	dst, _ := c.frame.pushTemp()
	var flags byte
	if n.Flags&ast.FlagVariadic != 0 {
		flags |= 0x1
	}
	if isGenerator {
		flags |= 0x2
	}

	header := make([]byte, 8)
	header[0] = reg8(dst)
	header[1] = byte(len(n.Children))
	header[2] = byte(len(captures))
	header[3] = flags
	binary.LittleEndian.PutUint32(header[4:], uint32(len(bodyB.Bytes)))
	c.emit(bytecode.Function, n.Span, header...)

	for i, cp := range captures {
		c.emit(bytecode.Capture, n.Span, reg8(dst), reg8(cp.outerReg), byte(i))
	}

	c.b.Append(bodyB)
	return dst
}

// bindParam binds one parameter node in the function's (already
// current) frame. Registers are claimed in declaration order so they
// land exactly where the Call convention places incoming arguments,
// starting at register 1.
func (c *Compiler) bindParam(idx ast.Index) {
	n := c.node(idx)
	switch n.Kind {
	case ast.KindWildcard:
		c.frame.pushTemp()
	case ast.KindIdent:
		name := c.pool.GetString(constpool.Index(n.Const))
		c.frame.defineLocal(name)
	case ast.KindAssign:
		idNode := c.node(n.Lhs)
		name := c.pool.GetString(constpool.Index(idNode.Const))
		reg, _ := c.frame.defineLocal(name)
		// Missing trailing arguments arrive as null; a falsy check
		// stands in for a strict "was this argument supplied" test
		// since this instruction set has no dedicated null-test op —
		// passing `false` explicitly for a defaulted parameter is
		// indistinguishable from omitting it.
		skip := c.b.EmitJumpPlaceholder(bytecode.JumpIfTrue, n.Span, reg8(reg))
		defReg := c.compileExpr(n.Rhs)
		c.emit(bytecode.Copy, n.Span, reg8(reg), reg8(defReg))
		if err := c.frame.popTemp(defReg); err != nil {
			panic(err)
		}
		c.b.PatchJump(skip, c.b.Len())
	case ast.KindTuple:
		reg, _ := c.frame.pushTemp()
		for i, child := range n.Children {
			cn := c.node(child)
			if cn.Kind == ast.KindWildcard {
				continue
			}
			name := c.pool.GetString(constpool.Index(cn.Const))
			sub, _ := c.frame.defineLocal(name)
			idxTmp, _ := c.frame.pushTemp()
			c.emit(bytecode.SetNumberU8, n.Span, reg8(idxTmp), byte(i))
			c.emit(bytecode.Index, n.Span, reg8(sub), reg8(reg), reg8(idxTmp))
			if err := c.frame.popTemp(idxTmp); err != nil {
				panic(err)
			}
		}
	default:
		c.fail(gerr.KindInvalidAST, n.Span, "unsupported parameter shape")
	}
}

// emitCallLike emits the shared Call sequence used by every call site:
// an optional receiver copied into a fresh contiguous argument slot,
// then the explicit arguments compiled directly after it (pushTemp's
// stack discipline keeps them contiguous), then Call itself. The
// result lands in resultReg; every register above funcReg is freed,
// and funcReg itself is freed unless it is resultReg.
func (c *Compiler) emitCallLike(resultReg, funcReg, recvReg int, hasRecv bool, args []ast.Index, span gerr.Span) int {
	argStart := -1
	argCount := 0
	if hasRecv {
		argStart, _ = c.frame.pushTemp()
		c.emit(bytecode.Copy, span, reg8(argStart), reg8(recvReg))
		argCount = 1
	}
	for _, a := range args {
		r := c.compileExpr(a)
		if argStart == -1 {
			argStart = r
		}
		argCount++
	}
	var argOperand byte
	if argStart >= 0 {
		argOperand = reg8(argStart)
	}
	c.emit(bytecode.Call, span, reg8(resultReg), reg8(funcReg), argOperand, byte(argCount))
	for argStart >= 0 && c.frame.nextTemp-1 >= argStart {
		if err := c.frame.popTemp(c.frame.nextTemp - 1); err != nil {
			panic(err)
		}
	}
	if funcReg != resultReg {
		if err := c.frame.popTemp(funcReg); err != nil {
			panic(err)
		}
	}
	return resultReg
}

// compileCall compiles a bare KindCall node (Lhs=callee, Children=args).
// The parser currently only ever produces calls through a KindChain's
// KindLookupCall, but this keeps compileExpr's dispatch complete for a
// standalone call node, matching ast.Kind's documented shape.
func (c *Compiler) compileCall(n *ast.Node) int {
	funcReg := c.ensureTemp(c.compileExpr(n.Lhs), n.Span)
	return c.emitCallLike(funcReg, funcReg, -1, false, n.Children, n.Span)
}

// compileChainSteps evaluates head and applies every lookup in the
// linked list starting at firstLookup except the final one, returning
// the register the final lookup should act on and the unapplied final
// lookup node itself (spec §3.3, §4.5's chain lowering).
//
// optionalPatches, when non-nil, collects a JumpIfFalse placeholder
// for every step reached via `?.`, to be patched by the caller once
// the chain's null-short-circuit join point is known. Passing nil
// (the assignment-target path) applies `?.` steps unconditionally —
// short-circuiting an assignment target isn't a case this compiles.
func (c *Compiler) compileChainSteps(head, firstLookup ast.Index, optionalPatches *[]int) (cur int, last *ast.Node) {
	headNode := c.node(head)
	cur = c.ensureTemp(c.compileExpr(head), headNode.Span)
	lookupIdx := firstLookup
	for lookupIdx != ast.NoIndex {
		ln := c.node(lookupIdx)
		if ln.Rhs == ast.NoIndex {
			return cur, ln
		}
		c.emitOptionalGuard(cur, ln, optionalPatches)
		switch ln.Kind {
		case ast.KindLookupId:
			if c.node(ln.Rhs).Kind == ast.KindLookupCall {
				callNode := c.node(ln.Rhs)
				keyIdx := constpool.Index(ln.Const)
				funcReg, _ := c.frame.pushTemp()
				c.emit(bytecode.AccessString, ln.Span, reg8(funcReg), reg8(cur), byte(keyIdx))
				cur = c.emitCallLike(cur, funcReg, cur, true, callNode.Children, callNode.Span)
				lookupIdx = callNode.Rhs
				continue
			}
			keyIdx := constpool.Index(ln.Const)
			c.emit(bytecode.AccessString, ln.Span, reg8(cur), reg8(cur), byte(keyIdx))
		case ast.KindLookupIndex:
			idxReg := c.compileExpr(ln.Lhs)
			c.emit(bytecode.Index, ln.Span, reg8(cur), reg8(cur), reg8(idxReg))
			if err := c.frame.popTemp(idxReg); err != nil {
				panic(err)
			}
		case ast.KindLookupCall:
			cur = c.emitCallLike(cur, cur, -1, false, ln.Children, ln.Span)
		}
		lookupIdx = ln.Rhs
	}
	return cur, nil
}

// emitOptionalGuard emits the `?.` short-circuit test for ln, if
// flagged, recording its jump operand in patches. There is no
// dedicated null-test opcode, so this tests truthiness — `0?.x` and
// `""?.x` short-circuit same as `null?.x`, a documented simplification.
func (c *Compiler) emitOptionalGuard(cur int, ln *ast.Node, patches *[]int) {
	if patches == nil || ln.Flags&ast.FlagOptionalLookup == 0 {
		return
	}
	p := c.b.EmitJumpPlaceholder(bytecode.JumpIfFalse, ln.Span, reg8(cur))
	*patches = append(*patches, p)
}

// applyLookupRead applies ln (read access) in place, overwriting cur.
func (c *Compiler) applyLookupRead(cur int, ln *ast.Node, optionalPatches *[]int) int {
	c.emitOptionalGuard(cur, ln, optionalPatches)
	switch ln.Kind {
	case ast.KindLookupId:
		keyIdx := constpool.Index(ln.Const)
		c.emit(bytecode.AccessString, ln.Span, reg8(cur), reg8(cur), byte(keyIdx))
		return cur
	case ast.KindLookupIndex:
		idxReg := c.compileExpr(ln.Lhs)
		c.emit(bytecode.Index, ln.Span, reg8(cur), reg8(cur), reg8(idxReg))
		if err := c.frame.popTemp(idxReg); err != nil {
			panic(err)
		}
		return cur
	case ast.KindLookupCall:
		return c.emitCallLike(cur, cur, -1, false, ln.Children, ln.Span)
	}
	c.fail(gerr.KindInvalidAST, ln.Span, "unsupported lookup kind")
	return cur
}

// applyLookupReadInto reads ln off objReg into dst, leaving objReg
// untouched (used by compound chain assignment, which still needs the
// object register afterward to write the result back).
func (c *Compiler) applyLookupReadInto(dst, objReg int, ln *ast.Node) {
	switch ln.Kind {
	case ast.KindLookupId:
		keyIdx := constpool.Index(ln.Const)
		c.emit(bytecode.AccessString, ln.Span, reg8(dst), reg8(objReg), byte(keyIdx))
	case ast.KindLookupIndex:
		idxReg := c.compileExpr(ln.Lhs)
		c.emit(bytecode.Index, ln.Span, reg8(dst), reg8(objReg), reg8(idxReg))
		if err := c.frame.popTemp(idxReg); err != nil {
			panic(err)
		}
	default:
		c.fail(gerr.KindInvalidAST, ln.Span, "invalid compound-assignment target")
	}
}

// storeLookup writes srcReg into objReg through ln (a property or
// index lookup).
func (c *Compiler) storeLookup(objReg int, ln *ast.Node, srcReg int, span gerr.Span) {
	switch ln.Kind {
	case ast.KindLookupId:
		keyIdx := constpool.Index(ln.Const)
		c.emit(bytecode.SetAccessString, ln.Span, reg8(objReg), byte(keyIdx), reg8(srcReg))
	case ast.KindLookupIndex:
		idxReg := c.compileExpr(ln.Lhs)
		c.emit(bytecode.SetIndex, ln.Span, reg8(objReg), reg8(idxReg), reg8(srcReg))
		if err := c.frame.popTemp(idxReg); err != nil {
			panic(err)
		}
	default:
		c.fail(gerr.KindInvalidAST, span, "invalid assignment target")
	}
}

// compileChain compiles a property/index/call chain as a read,
// joining any `?.` short-circuits to a shared null result (spec §3.3,
// §4.5).
func (c *Compiler) compileChain(n *ast.Node) int {
	if n.Rhs == ast.NoIndex {
		return c.compileExpr(n.Lhs)
	}
	var patches []int
	cur, last := c.compileChainSteps(n.Lhs, n.Rhs, &patches)
	if last != nil {
		cur = c.applyLookupRead(cur, last, &patches)
	}
	if len(patches) == 0 {
		return cur
	}
	skip := c.b.EmitJumpPlaceholder(bytecode.Jump, n.Span)
	for _, p := range patches {
		c.b.PatchJump(p, c.b.Len())
	}
	c.emit(bytecode.SetNull, n.Span, reg8(cur))
	c.b.PatchJump(skip, c.b.Len())
	return cur
}

var compoundOps = map[string]bytecode.Op{
	"+=": bytecode.AddAssign, "-=": bytecode.SubtractAssign, "*=": bytecode.MultiplyAssign,
	"/=": bytecode.DivideAssign, "%=": bytecode.RemainderAssign,
}

// compileAssign compiles `target = value` and `target op= value`,
// dispatching on the target's shape (spec §4.2, §4.5).
func (c *Compiler) compileAssign(n *ast.Node) int {
	target := c.node(n.Lhs)
	switch target.Kind {
	case ast.KindWildcard:
		rhsReg := c.compileExpr(n.Rhs)
		if err := c.frame.popTemp(rhsReg); err != nil {
			panic(err)
		}
		r, _ := c.frame.pushTemp()
		c.emit(bytecode.SetNull, n.Span, reg8(r))
		return r
	case ast.KindIdent:
		return c.compileAssignIdent(target, n)
	case ast.KindChain:
		return c.compileAssignChain(target, n)
	}
	c.fail(gerr.KindInvalidAST, n.Span, "unsupported assignment target")
	return -1
}

func (c *Compiler) compileAssignIdent(target *ast.Node, n *ast.Node) int {
	name := c.pool.GetString(constpool.Index(target.Const))

	if reg, ok := c.frame.resolveLocal(name); ok {
		rhsReg := c.compileExpr(n.Rhs)
		if op, isCompound := compoundOps[n.Str]; isCompound {
			c.emit(op, n.Span, reg8(reg), reg8(rhsReg))
		} else {
			c.emit(bytecode.Copy, n.Span, reg8(reg), reg8(rhsReg))
		}
		if rhsReg != reg {
			if err := c.frame.popTemp(rhsReg); err != nil {
				panic(err)
			}
		}
		return reg
	}

	if idx, _, _, ok := c.frame.captureIndex(name); ok {
		if op, isCompound := compoundOps[n.Str]; isCompound {
			cur, _ := c.frame.pushTemp()
			c.emit(bytecode.LoadCapture, n.Span, reg8(cur), byte(idx))
			rhsReg := c.compileExpr(n.Rhs)
			c.emit(op, n.Span, reg8(cur), reg8(rhsReg))
			c.emit(bytecode.SetCapture, n.Span, byte(idx), reg8(cur))
			if err := c.frame.popTemp(rhsReg); err != nil {
				panic(err)
			}
			return cur
		}
		rhsReg := c.compileExpr(n.Rhs)
		c.emit(bytecode.SetCapture, n.Span, byte(idx), reg8(rhsReg))
		return rhsReg
	}

	if n.Str != "" {
		c.fail(gerr.KindInvalidAST, n.Span, "compound assignment to undeclared name %q", name)
	}

	// New local binding: reserve first so a self-capturing function
	// literal on the right can resolve its own name (spec §4.4).
	reg, _ := c.frame.reserve(name)
	rhsReg := c.compileExpr(n.Rhs)
	c.emit(bytecode.Copy, n.Span, reg8(reg), reg8(rhsReg))
	if rhsReg != reg {
		if err := c.frame.popTemp(rhsReg); err != nil {
			panic(err)
		}
	}
	c.frame.commit(reg)
	return reg
}

func (c *Compiler) compileAssignChain(target *ast.Node, n *ast.Node) int {
	cur, last := c.compileChainSteps(target.Lhs, target.Rhs, nil)
	if last == nil {
		c.fail(gerr.KindInvalidAST, n.Span, "invalid assignment target")
	}
	if op, isCompound := compoundOps[n.Str]; isCompound {
		curVal, _ := c.frame.pushTemp()
		c.applyLookupReadInto(curVal, cur, last)
		rhsReg := c.compileExpr(n.Rhs)
		c.emit(op, n.Span, reg8(curVal), reg8(rhsReg))
		if err := c.frame.popTemp(rhsReg); err != nil {
			panic(err)
		}
		c.storeLookup(cur, last, curVal, n.Span)
		c.emit(bytecode.Copy, n.Span, reg8(cur), reg8(curVal))
		if err := c.frame.popTemp(curVal); err != nil {
			panic(err)
		}
		return cur
	}
	rhsReg := c.compileExpr(n.Rhs)
	c.storeLookup(cur, last, rhsReg, n.Span)
	c.emit(bytecode.Copy, n.Span, reg8(cur), reg8(rhsReg))
	if err := c.frame.popTemp(rhsReg); err != nil {
		panic(err)
	}
	return cur
}

// bindOrStore writes srcReg into target. For a brand-new identifier
// target it relabels srcReg itself as the permanent local (no copy),
// which is what lets compileMultiAssign free every other temporary in
// strict top-down order afterward.
func (c *Compiler) bindOrStore(target *ast.Node, srcReg int, span gerr.Span) (consumed bool) {
	switch target.Kind {
	case ast.KindWildcard:
		return false
	case ast.KindIdent:
		name := c.pool.GetString(constpool.Index(target.Const))
		if reg, ok := c.frame.resolveLocal(name); ok {
			c.emit(bytecode.Copy, span, reg8(reg), reg8(srcReg))
			return false
		}
		if idx, _, _, ok := c.frame.captureIndex(name); ok {
			c.emit(bytecode.SetCapture, span, byte(idx), reg8(srcReg))
			return false
		}
		c.frame.slots[srcReg].name = name
		c.frame.slots[srcReg].state = slotAssigned
		if c.frame.exports != nil {
			c.frame.exports[name] = srcReg
		}
		return true
	case ast.KindChain:
		cur, last := c.compileChainSteps(target.Lhs, target.Rhs, nil)
		c.storeLookup(cur, last, srcReg, span)
		if err := c.frame.popTemp(cur); err != nil {
			panic(err)
		}
		return false
	}
	c.fail(gerr.KindInvalidAST, span, "unsupported assignment target")
	return false
}

// compileMultiAssign compiles `a, b = b, a` (per-target values) and
// `a, b = pair` (single iterable unpacked across targets), processing
// targets from last to first so each target's temporary is exactly
// the current top of the register stack when it is freed or relabeled
// (spec §4.2, §4.5).
func (c *Compiler) compileMultiAssign(n *ast.Node) int {
	targetsNode := c.node(n.Lhs)
	valuesNode := c.node(n.Rhs)
	targets := targetsNode.Children
	values := valuesNode.Children

	var regs []int
	extra := -1
	switch {
	case len(values) == len(targets):
		for _, v := range values {
			regs = append(regs, c.compileExpr(v))
		}
	case len(values) == 1:
		extra = c.compileExpr(values[0])
		for range targets {
			r, _ := c.frame.pushTemp()
			regs = append(regs, r)
		}
		c.emit(bytecode.IterUnpack, n.Span, reg8(regs[0]), reg8(extra), byte(len(regs)))
	default:
		c.fail(gerr.KindInvalidAST, n.Span, "multi-assignment target/value count mismatch")
	}

	for i := len(targets) - 1; i >= 0; i-- {
		consumed := c.bindOrStore(c.node(targets[i]), regs[i], n.Span)
		if !consumed {
			if err := c.frame.popTemp(regs[i]); err != nil {
				panic(err)
			}
		}
	}
	if extra >= 0 {
		if err := c.frame.popTemp(extra); err != nil {
			panic(err)
		}
	}

	r, _ := c.frame.pushTemp()
	c.emit(bytecode.SetNull, n.Span, reg8(r))
	return r
}
