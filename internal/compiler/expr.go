package compiler

import (
	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/constpool"
	"github.com/glint-lang/glint/internal/gerr"
)

// ensureTemp guarantees reg is safe to use as the destination of an
// in-place instruction (one that overwrites its own left operand, like
// Negate/Add/Range). compileIdentRead returns an existing local's own
// register directly rather than copying it into a fresh one, so an
// in-place op fed that register as both source and destination would
// silently overwrite the local's value as a side effect of merely
// reading it in an expression. If reg holds a committed local, its
// value is copied into a genuine temporary first; an already-anonymous
// temp (the common case: a literal, a sub-expression's own result) is
// returned unchanged.
func (c *Compiler) ensureTemp(reg int, span gerr.Span) int {
	if c.frame.slots[reg].state != slotAssigned {
		return reg
	}
	tmp, _ := c.frame.pushTemp()
	c.emit(bytecode.Copy, span, reg8(tmp), reg8(reg))
	return tmp
}

// compileIdentRead resolves a name against the frame-local table,
// then the capture chain, then falls back to LoadNonLocal — a dynamic
// lookup the VM resolves against the chunk's exports/prelude at run
// time (spec §4.6 has no global variable tier; unresolved names are
// either prelude entries or forward-declared module exports).
func (c *Compiler) compileIdentRead(n *ast.Node) int {
	name := c.pool.GetString(constpool.Index(n.Const))
	if reg, ok := c.frame.resolveLocal(name); ok {
		return reg
	}
	if idx, _, _, ok := c.frame.captureIndex(name); ok {
		r, _ := c.frame.pushTemp()
		c.emit(bytecode.LoadCapture, n.Span, reg8(r), byte(idx))
		return r
	}
	r, _ := c.frame.pushTemp()
	c.emit(bytecode.LoadNonLocal, n.Span, reg8(r), byte(n.Const))
	return r
}

// compileStringTemplate concatenates a `${...}`-interpolated string's
// segments left to right using StringStart/StringPush/StringFinish, so
// arbitrarily many segments fold without nesting (spec §4.2's AstString
// node list).
func (c *Compiler) compileStringTemplate(n *ast.Node) int {
	acc, _ := c.frame.pushTemp()
	c.emit(bytecode.StringStart, n.Span, reg8(acc))
	for _, part := range n.Children {
		partReg := c.compileExpr(part)
		c.emit(bytecode.StringPush, n.Span, reg8(acc), reg8(partReg))
		if err := c.frame.popTemp(partReg); err != nil {
			panic(err)
		}
	}
	c.emit(bytecode.StringFinish, n.Span, reg8(acc))
	return acc
}

// compileRange lowers `a..b`, `a..=b`, and the unbounded forms to the
// matching Range* op (spec §3.3, §4.2).
func (c *Compiler) compileRange(n *ast.Node) int {
	hasStart := n.Flags&ast.FlagBoundedStart != 0
	hasEnd := n.Flags&ast.FlagBoundedEnd != 0
	inclusive := n.Flags&ast.FlagInclusive != 0

	switch {
	case hasStart && hasEnd:
		startReg := c.ensureTemp(c.compileExpr(n.Lhs), n.Span)
		endReg := c.compileExpr(n.Rhs)
		op := bytecode.Range
		if inclusive {
			op = bytecode.RangeInclusive
		}
		c.emit(op, n.Span, reg8(startReg), reg8(startReg), reg8(endReg))
		if err := c.frame.popTemp(endReg); err != nil {
			panic(err)
		}
		return startReg
	case hasStart:
		startReg := c.ensureTemp(c.compileExpr(n.Lhs), n.Span)
		c.emit(bytecode.RangeFrom, n.Span, reg8(startReg), reg8(startReg))
		return startReg
	case hasEnd:
		endReg := c.ensureTemp(c.compileExpr(n.Rhs), n.Span)
		op := bytecode.RangeTo
		if inclusive {
			op = bytecode.RangeToInclusive
		}
		c.emit(op, n.Span, reg8(endReg), reg8(endReg))
		return endReg
	default:
		dst, _ := c.frame.pushTemp()
		c.emit(bytecode.RangeFull, n.Span, reg8(dst))
		return dst
	}
}

var binaryOps = map[string]bytecode.Op{
	"+": bytecode.Add, "-": bytecode.Subtract, "*": bytecode.Multiply,
	"/": bytecode.Divide, "%": bytecode.Remainder,
	"<": bytecode.Less, "<=": bytecode.LessOrEqual,
	">": bytecode.Greater, ">=": bytecode.GreaterOrEqual,
	"==": bytecode.Equal, "!=": bytecode.NotEqual,
}

// compileBinaryOp compiles arithmetic/comparison ops directly and
// `and`/`or` as short-circuiting jumps (spec §4.5).
func (c *Compiler) compileBinaryOp(n *ast.Node) int {
	switch n.Str {
	case "and":
		return c.compileShortCircuit(n, bytecode.JumpIfFalse)
	case "or":
		return c.compileShortCircuit(n, bytecode.JumpIfTrue)
	}
	op, ok := binaryOps[n.Str]
	if !ok {
		c.fail(gerr.KindInvalidAST, n.Span, "unknown binary operator %q", n.Str)
	}
	leftReg := c.compileExpr(n.Lhs)
	leftReg = c.ensureTemp(leftReg, n.Span)
	rightReg := c.compileExpr(n.Rhs)
	c.emit(op, n.Span, reg8(leftReg), reg8(leftReg), reg8(rightReg))
	if err := c.frame.popTemp(rightReg); err != nil {
		panic(err)
	}
	return leftReg
}

// compileShortCircuit evaluates lhs into resultReg, then — unless skip
// is triggered (JumpIfFalse for `and`, JumpIfTrue for `or`) — overwrites
// it with rhs's value.
func (c *Compiler) compileShortCircuit(n *ast.Node, skip bytecode.Op) int {
	leftReg := c.compileExpr(n.Lhs)
	leftReg = c.ensureTemp(leftReg, n.Span)
	skipOperand := c.b.EmitJumpPlaceholder(skip, n.Span, reg8(leftReg))
	rightReg := c.compileExpr(n.Rhs)
	c.emit(bytecode.Copy, n.Span, reg8(leftReg), reg8(rightReg))
	if err := c.frame.popTemp(rightReg); err != nil {
		panic(err)
	}
	c.b.PatchJump(skipOperand, c.b.Len())
	return leftReg
}

// compileUnaryOp compiles `-x`, `not x`, and `copy x`.
func (c *Compiler) compileUnaryOp(n *ast.Node) int {
	switch n.Str {
	case "-":
		r := c.ensureTemp(c.compileExpr(n.Lhs), n.Span)
		c.emit(bytecode.Negate, n.Span, reg8(r), reg8(r))
		return r
	case "not":
		r := c.ensureTemp(c.compileExpr(n.Lhs), n.Span)
		c.emit(bytecode.Not, n.Span, reg8(r), reg8(r))
		return r
	case "copy":
		r := c.compileExpr(n.Lhs)
		dst, _ := c.frame.pushTemp()
		c.emit(bytecode.Copy, n.Span, reg8(dst), reg8(r))
		if err := c.frame.popTemp(r); err != nil {
			panic(err)
		}
		return dst
	}
	c.fail(gerr.KindInvalidAST, n.Span, "unknown unary operator %q", n.Str)
	return -1
}

// compileMapLiteral builds a map from its entries: data entries become
// MapInsert, meta entries become MetaInsert (spec §3.5, §4.2).
func (c *Compiler) compileMapLiteral(n *ast.Node) int {
	dst, _ := c.frame.pushTemp()
	c.emit(bytecode.MakeMap, n.Span, reg8(dst), byte(len(n.Children)))
	for _, entryIdx := range n.Children {
		entry := c.node(entryIdx)
		valueReg := c.compileExpr(entry.Rhs)
		if len(entry.Str) > 0 && entry.Str[0] == '@' {
			keyIdx := c.pool.AddString(entry.Str)
			c.emit(bytecode.MetaInsert, entry.Span, reg8(dst), byte(keyIdx), reg8(valueReg))
		} else {
			keyReg, _ := c.frame.pushTemp()
			keyIdx := c.pool.AddString(entry.Str)
			c.loadConstant(keyReg, keyIdx, true, entry.Span)
			c.emit(bytecode.MapInsert, entry.Span, reg8(dst), reg8(keyReg), reg8(valueReg))
			if err := c.frame.popTemp(keyReg); err != nil {
				panic(err)
			}
		}
		if err := c.frame.popTemp(valueReg); err != nil {
			panic(err)
		}
	}
	return dst
}

// compileIfExpr compiles both statement and expression `if`: the
// result register always holds a value (null when a branch is absent),
// matching the one-line `if c then a else b` expression form (spec
// §4.2, §4.5).
func (c *Compiler) compileIfExpr(n *ast.Node) int {
	dst, _ := c.frame.pushTemp()
	condReg := c.compileExpr(n.Lhs)
	skipThen := c.b.EmitJumpPlaceholder(bytecode.JumpIfFalse, n.Span, reg8(condReg))
	if err := c.frame.popTemp(condReg); err != nil {
		panic(err)
	}

	thenReg := c.compileBlockValue(n.Rhs)
	c.emit(bytecode.Copy, n.Span, reg8(dst), reg8(thenReg))
	if thenReg != dst {
		if err := c.frame.popTemp(thenReg); err != nil {
			panic(err)
		}
	}
	skipElse := c.b.EmitJumpPlaceholder(bytecode.Jump, n.Span)
	c.b.PatchJump(skipThen, c.b.Len())

	if n.Extra != ast.NoIndex {
		elseReg := c.compileBlockValue(n.Extra)
		c.emit(bytecode.Copy, n.Span, reg8(dst), reg8(elseReg))
		if elseReg != dst {
			if err := c.frame.popTemp(elseReg); err != nil {
				panic(err)
			}
		}
	} else {
		c.emit(bytecode.SetNull, n.Span, reg8(dst))
	}
	c.b.PatchJump(skipElse, c.b.Len())
	return dst
}
