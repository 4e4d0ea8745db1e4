package compiler

import (
	"encoding/binary"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/constpool"
	"github.com/glint-lang/glint/internal/gerr"
)

// Settings controls compiler behavior the loader/embedder can vary per
// compile (spec §4.7's compile_script settings).
type Settings struct {
	// ExportTopLevelIDs makes top-level assignments in the compiled
	// chunk visible through its exports map — used for REPL input and
	// for modules (spec §4.5 "Exports").
	ExportTopLevelIDs bool
	// EnableTypeChecks is carried in Settings but not read by the
	// compiler: no AssertType/CheckType instructions are emitted. The
	// parser accepts a function's `-> Type` return annotation and
	// discards it; `|x: Number|`-style parameter annotations are not
	// parsed.
	EnableTypeChecks bool
}

// Compiler lowers one ast.Ast into a bytecode.Chunk (spec §4.4, §4.5).
// Grounded on the teacher's internal/compregister.Compiler: a single
// recursive AST walk emitting directly into a flat instruction stream,
// generalized from its global/local two-tier variable model (teacher
// has OP_GETGLOBAL/OP_SETGLOBAL alongside locals) to glint's frame-only
// model, since every glint binding is either a frame-local register or
// a capture — there is no global table.
type Compiler struct {
	ast    *ast.Ast
	pool   *constpool.Pool
	b      *bytecode.Builder
	frame  *Frame
	source string
	path   string
	set    Settings

	pendingFuncs []pendingFunc
}

// pendingFunc is a nested function body whose bytes are assembled
// separately and spliced in after its enclosing Function/Capture
// header is emitted (see compileFunctionLiteral).
type pendingFunc struct{}

// Compile lowers a into a Chunk, reusing pool (the same pool the
// parser built, so constant indices already embedded in a's nodes
// stay valid).
func Compile(a *ast.Ast, pool *constpool.Pool, source, path string, set Settings) (c *bytecode.Chunk, err error) {
	comp := &Compiler{ast: a, pool: pool, b: bytecode.NewBuilder(source), source: source, path: path, set: set}
	comp.frame = newFrame(nil, set.ExportTopLevelIDs)

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*gerr.Error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	if err := comp.compileTopLevel(a.Root); err != nil {
		return nil, err
	}
	chunk := comp.b.Finish(pool, path)
	chunk.MainIsExport = set.ExportTopLevelIDs
	chunk.Exports = comp.frame.exports
	return chunk, nil
}

func (c *Compiler) node(idx ast.Index) *ast.Node { return c.ast.Get(idx) }

func (c *Compiler) fail(kind gerr.Kind, span gerr.Span, format string, args ...any) {
	panic(gerr.New(gerr.FamilyCompile, kind, span, format, args...))
}

func (c *Compiler) emit(op bytecode.Op, span gerr.Span, operands ...byte) int {
	return c.b.Emit(op, span, operands...)
}

// compileTopLevel compiles the program's root block, then emits an
// implicit `Return` of the last statement's value (or null).
func (c *Compiler) compileTopLevel(root ast.Index) error {
	n := c.node(root)
	last := c.compileStatementSeq(n.Children)
	if last < 0 {
		last, _ = c.frame.pushTemp()
		c.emit(bytecode.SetNull, n.Span, byte(last))
	}
	c.emit(bytecode.Return, n.Span, byte(last))
	return c.frame.popTemp(last)
}

// compileStatementSeq compiles a sequence of statements, freeing every
// statement's discarded temporary register except the last, whose
// register is returned (or -1 if the sequence was empty). popTemp
// itself declines to free a register holding a committed local
// binding, so a `x = ...` statement's register safely survives here
// even though it isn't the sequence's last statement.
func (c *Compiler) compileStatementSeq(stmts []ast.Index) int {
	last := -1
	for i, s := range stmts {
		reg := c.compileStmt(s)
		if i == len(stmts)-1 {
			last = reg
		} else if reg >= 0 {
			if err := c.frame.popTemp(reg); err != nil {
				panic(err)
			}
		}
	}
	return last
}

// compileBlockValue compiles a block/body node and returns a register
// holding the block's value (its last statement's result, or null for
// an empty block).
func (c *Compiler) compileBlockValue(idx ast.Index) int {
	n := c.node(idx)
	if n.Kind != ast.KindBlock {
		return c.compileStmt(idx)
	}
	last := c.compileStatementSeq(n.Children)
	if last < 0 {
		last, _ = c.frame.pushTemp()
		c.emit(bytecode.SetNull, n.Span, byte(last))
	}
	return last
}

// reg8 narrows a frame register index to its one-byte operand form.
// The frame's own 255-register ceiling (see pushTemp) guarantees this
// never truncates.
func reg8(r int) byte { return byte(r) }

func putU32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// loadConstant emits the short or long form of a number/string load
// depending on whether idx fits in one byte (spec §6.2's "long" forms).
func (c *Compiler) loadConstant(dst int, idx constpool.Index, isString bool, span gerr.Span) {
	if idx <= 0xff {
		op := bytecode.LoadNumber
		if isString {
			op = bytecode.LoadString
		}
		c.emit(op, span, reg8(dst), byte(idx))
		return
	}
	op := bytecode.LoadNumberLong
	if isString {
		op = bytecode.LoadStringLong
	}
	buf := make([]byte, 5)
	buf[0] = reg8(dst)
	putU32(buf[1:], uint32(idx))
	c.emit(op, span, buf...)
}

// compileExpr compiles n, returning the register holding its value.
func (c *Compiler) compileExpr(idx ast.Index) int {
	n := c.node(idx)
	switch n.Kind {
	case ast.KindNil:
		r, _ := c.frame.pushTemp()
		c.emit(bytecode.SetNull, n.Span, reg8(r))
		return r
	case ast.KindBoolTrue:
		r, _ := c.frame.pushTemp()
		c.emit(bytecode.SetTrue, n.Span, reg8(r))
		return r
	case ast.KindBoolFalse:
		r, _ := c.frame.pushTemp()
		c.emit(bytecode.SetFalse, n.Span, reg8(r))
		return r
	case ast.KindInt, ast.KindFloat:
		r, _ := c.frame.pushTemp()
		c.loadConstant(r, constpool.Index(n.Const), false, n.Span)
		return r
	case ast.KindStringLiteral:
		r, _ := c.frame.pushTemp()
		c.loadConstant(r, constpool.Index(n.Const), true, n.Span)
		return r
	case ast.KindStringTemplate:
		return c.compileStringTemplate(n)
	case ast.KindSelf:
		r, _ := c.frame.pushTemp()
		c.emit(bytecode.Copy, n.Span, reg8(r), 0)
		return r
	case ast.KindIdent:
		return c.compileIdentRead(n)
	case ast.KindWildcard:
		c.fail(gerr.KindInvalidAST, n.Span, "wildcard is not a readable expression")
	case ast.KindList:
		return c.compileFixedContainer(n, bytecode.MakeList)
	case ast.KindTuple:
		return c.compileFixedContainer(n, bytecode.MakeTuple)
	case ast.KindTempTuple:
		return c.compileFixedContainer(n, bytecode.MakeTempTuple)
	case ast.KindMapEntries, ast.KindMetaMap:
		return c.compileMapLiteral(n)
	case ast.KindRange:
		return c.compileRange(n)
	case ast.KindBinaryOp:
		return c.compileBinaryOp(n)
	case ast.KindUnaryOp:
		return c.compileUnaryOp(n)
	case ast.KindIf:
		return c.compileIfExpr(n)
	case ast.KindMatch:
		return c.compileMatch(n)
	case ast.KindSwitch:
		return c.compileSwitch(n)
	case ast.KindFunction:
		return c.compileFunctionLiteral(n)
	case ast.KindCall:
		return c.compileCall(n)
	case ast.KindChain:
		return c.compileChain(n)
	case ast.KindAssign:
		return c.compileAssign(n)
	case ast.KindMultiAssign:
		return c.compileMultiAssign(n)
	case ast.KindBlock:
		return c.compileBlockValue(idx)
	}
	return c.compileStmt(idx)
}

// compileFixedContainer compiles each child into a consecutive
// temporary register, then folds them with a single Make* op that
// writes its result back into the first child's register (so the
// usual pop-in-reverse stack discipline still applies: every register
// above the first is freed, and the first becomes the result).
func (c *Compiler) compileFixedContainer(n *ast.Node, op bytecode.Op) int {
	var regs []int
	for i, child := range n.Children {
		r := c.compileExpr(child)
		if i == 0 {
			// The Make* op below writes its result back into this
			// register in place, so a first element that aliases an
			// existing local (a bare identifier) must be copied out
			// first. Done here, before later elements are compiled, so
			// the extra temp stays beneath them on the register stack.
			r = c.ensureTemp(r, n.Span)
		}
		regs = append(regs, r)
	}
	count := len(regs)
	var dst int
	if count == 0 {
		dst, _ = c.frame.pushTemp()
	} else {
		dst = regs[0]
	}
	c.emit(op, n.Span, reg8(dst), reg8(dst), byte(count))
	for i := count - 1; i >= 1; i-- {
		if err := c.frame.popTemp(regs[i]); err != nil {
			panic(err)
		}
	}
	return dst
}
