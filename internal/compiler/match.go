package compiler

import (
	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
)

// compileMatch lowers `match scrutinee / pattern, pattern if guard then
// body / else then body` (spec §4.2, §4.5). Patterns are ordinary
// expressions (the grammar has no destructuring pattern syntax beyond
// `_`), so each non-wildcard pattern compiles to an equality test
// against the scrutinee; `_` makes its arm unconditional.
func (c *Compiler) compileMatch(n *ast.Node) int {
	scrutinee := c.ensureTemp(c.compileExpr(n.Lhs), n.Span)
	dst, _ := c.frame.pushTemp()
	c.emit(bytecode.SetNull, n.Span, reg8(dst))

	var endPatches []int
	var nextArmPatches []int
	for _, armIdx := range n.Children {
		arm := c.node(armIdx)
		for _, p := range nextArmPatches {
			c.b.PatchJump(p, c.b.Len())
		}
		nextArmPatches = nil

		var matchPatches []int
		if len(arm.Children) > 0 {
			wildcard := false
			for _, patIdx := range arm.Children {
				pat := c.node(patIdx)
				if pat.Kind == ast.KindWildcard {
					wildcard = true
					continue
				}
				patReg := c.compileExpr(patIdx)
				eqReg, _ := c.frame.pushTemp()
				c.emit(bytecode.Equal, pat.Span, reg8(eqReg), reg8(scrutinee), reg8(patReg))
				if err := c.frame.popTemp(patReg); err != nil {
					panic(err)
				}
				p := c.b.EmitJumpPlaceholder(bytecode.JumpIfTrue, pat.Span, reg8(eqReg))
				if err := c.frame.popTemp(eqReg); err != nil {
					panic(err)
				}
				matchPatches = append(matchPatches, p)
			}
			if !wildcard {
				nextArmPatches = append(nextArmPatches, c.b.EmitJumpPlaceholder(bytecode.Jump, arm.Span))
			}
		}
		for _, p := range matchPatches {
			c.b.PatchJump(p, c.b.Len())
		}

		if arm.Lhs != ast.NoIndex {
			guardReg := c.compileExpr(arm.Lhs)
			nextArmPatches = append(nextArmPatches, c.b.EmitJumpPlaceholder(bytecode.JumpIfFalse, arm.Span, reg8(guardReg)))
			if err := c.frame.popTemp(guardReg); err != nil {
				panic(err)
			}
		}

		bodyReg := c.compileBlockValue(arm.Rhs)
		c.emit(bytecode.Copy, arm.Span, reg8(dst), reg8(bodyReg))
		if bodyReg != dst {
			if err := c.frame.popTemp(bodyReg); err != nil {
				panic(err)
			}
		}
		endPatches = append(endPatches, c.b.EmitJumpPlaceholder(bytecode.Jump, arm.Span))
	}
	for _, p := range nextArmPatches {
		c.b.PatchJump(p, c.b.Len())
	}
	for _, p := range endPatches {
		c.b.PatchJump(p, c.b.Len())
	}

	// Fold dst back down into scrutinee's register so the temp stack
	// unwinds in LIFO order (dst, pushed after scrutinee, frees first).
	c.emit(bytecode.Copy, n.Span, reg8(scrutinee), reg8(dst))
	if err := c.frame.popTemp(dst); err != nil {
		panic(err)
	}
	return scrutinee
}

// compileSwitch lowers `switch / cond then body / else then body`: a
// plain if/else-if chain with no scrutinee (spec §4.2, §4.5).
func (c *Compiler) compileSwitch(n *ast.Node) int {
	dst, _ := c.frame.pushTemp()
	c.emit(bytecode.SetNull, n.Span, reg8(dst))

	var endPatches []int
	nextPatch := -1
	for _, armIdx := range n.Children {
		arm := c.node(armIdx)
		if nextPatch >= 0 {
			c.b.PatchJump(nextPatch, c.b.Len())
			nextPatch = -1
		}
		if arm.Lhs != ast.NoIndex {
			condReg := c.compileExpr(arm.Lhs)
			nextPatch = c.b.EmitJumpPlaceholder(bytecode.JumpIfFalse, arm.Span, reg8(condReg))
			if err := c.frame.popTemp(condReg); err != nil {
				panic(err)
			}
		}
		bodyReg := c.compileBlockValue(arm.Rhs)
		c.emit(bytecode.Copy, arm.Span, reg8(dst), reg8(bodyReg))
		if bodyReg != dst {
			if err := c.frame.popTemp(bodyReg); err != nil {
				panic(err)
			}
		}
		endPatches = append(endPatches, c.b.EmitJumpPlaceholder(bytecode.Jump, arm.Span))
	}
	if nextPatch >= 0 {
		c.b.PatchJump(nextPatch, c.b.Len())
	}
	for _, p := range endPatches {
		c.b.PatchJump(p, c.b.Len())
	}
	return dst
}
