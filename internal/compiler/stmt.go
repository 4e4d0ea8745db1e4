package compiler

import (
	"encoding/binary"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/constpool"
	"github.com/glint-lang/glint/internal/gerr"
)

// compileStmt compiles a statement, returning the register holding its
// result (or -1 for statements with no natural value, such as a bare
// `for` loop or `break`).
func (c *Compiler) compileStmt(idx ast.Index) int {
	n := c.node(idx)
	switch n.Kind {
	case ast.KindFor:
		return c.compileFor(n)
	case ast.KindWhile:
		return c.compileWhile(n)
	case ast.KindUntil:
		return c.compileUntil(n)
	case ast.KindLoop:
		return c.compileLoop(n)
	case ast.KindBreak:
		return c.compileBreak(n)
	case ast.KindContinue:
		return c.compileContinue(n)
	case ast.KindReturn:
		return c.compileReturn(n)
	case ast.KindYield:
		return c.compileYield(n)
	case ast.KindThrow:
		return c.compileThrow(n)
	case ast.KindTry:
		return c.compileTry(n)
	case ast.KindImport:
		return c.compileImport(n)
	case ast.KindFromImport:
		return c.compileFromImport(n)
	case ast.KindMetaEntry:
		return c.compileTopLevelMetaEntry(n)
	case ast.KindBlock:
		return c.compileBlockValue(idx)
	default:
		return c.compileExpr(idx)
	}
}

// compileTopLevelMetaEntry compiles a bare `@name: value` statement,
// exporting it under its "@name" key (spec §6.1's `@main`/`@tests`
// auto-invocation). Mirrors compileImport's register discipline: the
// value's register is promoted out of aliasing an existing local, then
// marked assigned so popTemp never reclaims it.
func (c *Compiler) compileTopLevelMetaEntry(n *ast.Node) int {
	reg := c.ensureTemp(c.compileExpr(n.Rhs), n.Span)
	c.frame.slots[reg].state = slotAssigned
	if c.frame.exports != nil {
		c.frame.exports[n.Str] = reg
	}
	return reg
}

func (c *Compiler) emitJumpBack(target int, span gerr.Span) {
	ip := c.b.Len()
	rel := uint16(ip + 1 + bytecode.OperandBytes(bytecode.JumpBack) - target)
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, rel)
	c.emit(bytecode.JumpBack, span, buf...)
}

// compileFor lowers `for targets in iterable body` to MakeIterator +
// a IterNext/JumpBack loop, unpacking the per-iteration value into the
// loop targets (spec §4.5).
func (c *Compiler) compileFor(n *ast.Node) int {
	iterableReg := c.ensureTemp(c.compileExpr(n.Rhs), n.Span)
	c.emit(bytecode.MakeIterator, n.Span, reg8(iterableReg), reg8(iterableReg))
	iterReg := iterableReg

	resultReg, _ := c.frame.pushTemp()
	loopStart := c.b.Len()
	c.frame.pushLoop(loopStart, resultReg)

	endOperand := c.b.EmitJumpPlaceholder(bytecode.IterNext, n.Span, reg8(resultReg), reg8(iterReg))

	targets := c.node(n.Lhs).Children
	var targetRegs []int
	switch {
	case len(targets) == 1 && c.node(targets[0]).Kind != ast.KindWildcard:
		tn := c.node(targets[0])
		c.frame.slots[resultReg].name = c.pool.GetString(constpool.Index(tn.Const))
		c.frame.slots[resultReg].state = slotAssigned
	case len(targets) > 1:
		for range targets {
			r, _ := c.frame.pushTemp()
			targetRegs = append(targetRegs, r)
		}
		c.emit(bytecode.IterUnpack, n.Span, reg8(targetRegs[0]), reg8(resultReg), byte(len(targetRegs)))
		for i, t := range targets {
			tn := c.node(t)
			if tn.Kind == ast.KindWildcard {
				continue
			}
			c.frame.slots[targetRegs[i]].name = c.pool.GetString(constpool.Index(tn.Const))
			c.frame.slots[targetRegs[i]].state = slotAssigned
		}
	}

	bodyReg := c.compileStmt(n.Extra)
	if bodyReg >= 0 {
		if err := c.frame.popTemp(bodyReg); err != nil {
			panic(err)
		}
	}

	c.emitJumpBack(loopStart, n.Span)
	c.b.PatchJump(endOperand, c.b.Len())

	loop := c.frame.popLoop()
	for _, p := range loop.breakPatches {
		c.b.PatchJump(p, c.b.Len())
	}

	for i := len(targetRegs) - 1; i >= 0; i-- {
		if err := c.frame.popTemp(targetRegs[i]); err != nil {
			panic(err)
		}
	}
	if err := c.frame.popTemp(resultReg); err != nil {
		panic(err)
	}
	if err := c.frame.popTemp(iterReg); err != nil {
		panic(err)
	}
	return -1
}

// compileWhile and compileUntil share the same shape, differing only
// in which polarity of jump exits the loop.
func (c *Compiler) compileConditionalLoop(n *ast.Node, exitOn bytecode.Op) int {
	loopStart := c.b.Len()
	c.frame.pushLoop(loopStart, -1)

	condReg := c.compileExpr(n.Lhs)
	exitOperand := c.b.EmitJumpPlaceholder(exitOn, n.Span, reg8(condReg))
	if err := c.frame.popTemp(condReg); err != nil {
		panic(err)
	}

	bodyReg := c.compileStmt(n.Rhs)
	if bodyReg >= 0 {
		if err := c.frame.popTemp(bodyReg); err != nil {
			panic(err)
		}
	}
	c.emitJumpBack(loopStart, n.Span)
	c.b.PatchJump(exitOperand, c.b.Len())

	loop := c.frame.popLoop()
	for _, p := range loop.breakPatches {
		c.b.PatchJump(p, c.b.Len())
	}
	return -1
}

func (c *Compiler) compileWhile(n *ast.Node) int {
	return c.compileConditionalLoop(n, bytecode.JumpIfFalse)
}

func (c *Compiler) compileUntil(n *ast.Node) int {
	return c.compileConditionalLoop(n, bytecode.JumpIfTrue)
}

func (c *Compiler) compileLoop(n *ast.Node) int {
	loopStart := c.b.Len()
	c.frame.pushLoop(loopStart, -1)

	bodyReg := c.compileStmt(n.Rhs)
	if bodyReg >= 0 {
		if err := c.frame.popTemp(bodyReg); err != nil {
			panic(err)
		}
	}
	c.emitJumpBack(loopStart, n.Span)

	loop := c.frame.popLoop()
	for _, p := range loop.breakPatches {
		c.b.PatchJump(p, c.b.Len())
	}
	return -1
}

func (c *Compiler) compileBreak(n *ast.Node) int {
	loop := c.frame.currentLoop()
	if loop == nil {
		c.fail(gerr.KindFeatureMisuse, n.Span, "break outside of a loop")
	}
	patch := c.b.EmitJumpPlaceholder(bytecode.Jump, n.Span)
	loop.breakPatches = append(loop.breakPatches, patch)
	return -1
}

func (c *Compiler) compileContinue(n *ast.Node) int {
	loop := c.frame.currentLoop()
	if loop == nil {
		c.fail(gerr.KindFeatureMisuse, n.Span, "continue outside of a loop")
	}
	c.emitJumpBack(loop.startIP, n.Span)
	return -1
}

func (c *Compiler) compileReturn(n *ast.Node) int {
	var reg int
	if n.Lhs == ast.NoIndex {
		reg, _ = c.frame.pushTemp()
		c.emit(bytecode.SetNull, n.Span, reg8(reg))
	} else {
		reg = c.compileExpr(n.Lhs)
	}
	c.emit(bytecode.Return, n.Span, reg8(reg))
	if err := c.frame.popTemp(reg); err != nil {
		panic(err)
	}
	return -1
}

func (c *Compiler) compileYield(n *ast.Node) int {
	c.frame.isGenerator = true
	reg := c.compileExpr(n.Lhs)
	c.emit(bytecode.Yield, n.Span, reg8(reg))
	return reg
}

func (c *Compiler) compileThrow(n *ast.Node) int {
	reg := c.compileExpr(n.Lhs)
	c.emit(bytecode.Throw, n.Span, reg8(reg))
	if err := c.frame.popTemp(reg); err != nil {
		panic(err)
	}
	return -1
}

// compileTry lowers `try body catch e then handler finally cleanup`
// (spec §4.6's TryStart/TryEnd handler protocol).
func (c *Compiler) compileTry(n *ast.Node) int {
	catchReg, _ := c.frame.pushTemp()
	tryStart := c.b.EmitJumpPlaceholder(bytecode.TryStart, n.Span, reg8(catchReg))

	bodyReg := c.compileStmt(n.Lhs)
	if bodyReg >= 0 {
		if err := c.frame.popTemp(bodyReg); err != nil {
			panic(err)
		}
	}
	c.emit(bytecode.TryEnd, n.Span)
	skipCatch := c.b.EmitJumpPlaceholder(bytecode.Jump, n.Span)

	c.b.PatchJump(tryStart, c.b.Len())
	if n.Rhs != ast.NoIndex {
		if n.Str != "" {
			c.frame.slots[catchReg].name = n.Str
			c.frame.slots[catchReg].state = slotAssigned
		}
		catchBodyReg := c.compileStmt(n.Rhs)
		if catchBodyReg >= 0 {
			if err := c.frame.popTemp(catchBodyReg); err != nil {
				panic(err)
			}
		}
	}
	c.b.PatchJump(skipCatch, c.b.Len())

	if n.Extra != ast.NoIndex {
		finallyReg := c.compileStmt(n.Extra)
		if finallyReg >= 0 {
			if err := c.frame.popTemp(finallyReg); err != nil {
				panic(err)
			}
		}
	}
	if err := c.frame.popTemp(catchReg); err != nil {
		panic(err)
	}
	return -1
}

// compileImport lowers `import a, b` — each item resolves through the
// module loader/prelude at runtime and binds a same-named local (spec
// §4.2, §4.6, §4.7).
func (c *Compiler) compileImport(n *ast.Node) int {
	for _, itemIdx := range n.Children {
		item := c.node(itemIdx)
		nameIdx := constpool.Index(item.Const)
		reg, _ := c.frame.pushTemp()
		c.emit(bytecode.Import, item.Span, reg8(reg), byte(nameIdx))
		bindName := c.pool.GetString(nameIdx)
		if item.Extra != ast.NoIndex {
			bindName = c.pool.GetString(constpool.Index(c.node(item.Extra).Const))
		}
		c.frame.slots[reg].name = bindName
		c.frame.slots[reg].state = slotAssigned
		if c.frame.exports != nil {
			c.frame.exports[bindName] = reg
		}
	}
	return -1
}

// compileFromImport lowers `from p import a, b`: resolve the module
// once, then bind each imported name from its exports via AccessString.
func (c *Compiler) compileFromImport(n *ast.Node) int {
	pathName := c.pathNodeName(n.Lhs)
	moduleReg, _ := c.frame.pushTemp()
	c.emit(bytecode.Import, n.Span, reg8(moduleReg), byte(c.pool.AddString(pathName)))

	for _, itemIdx := range n.Children {
		item := c.node(itemIdx)
		nameIdx := constpool.Index(item.Const)
		reg, _ := c.frame.pushTemp()
		c.emit(bytecode.AccessString, item.Span, reg8(reg), reg8(moduleReg), byte(nameIdx))
		bindName := c.pool.GetString(nameIdx)
		if item.Extra != ast.NoIndex {
			bindName = c.pool.GetString(constpool.Index(c.node(item.Extra).Const))
		}
		c.frame.slots[reg].name = bindName
		c.frame.slots[reg].state = slotAssigned
		if c.frame.exports != nil {
			c.frame.exports[bindName] = reg
		}
	}
	if err := c.frame.popTemp(moduleReg); err != nil {
		panic(err)
	}
	return -1
}

// pathNodeName renders a simple identifier or dotted-chain module path
// node back to its textual form (e.g. `a.b` for `from a.b import c`).
func (c *Compiler) pathNodeName(idx ast.Index) string {
	n := c.node(idx)
	switch n.Kind {
	case ast.KindIdent:
		return c.pool.GetString(constpool.Index(n.Const))
	case ast.KindChain:
		name := c.pathNodeName(n.Lhs)
		cur := n.Rhs
		for cur != ast.NoIndex {
			ln := c.node(cur)
			if ln.Kind == ast.KindLookupId {
				name += "." + c.pool.GetString(constpool.Index(ln.Const))
			}
			cur = ln.Rhs
		}
		return name
	}
	return ""
}
