// Package parser implements glint's recursive-descent parser (spec
// §4.2), turning a token stream into an (ast.Ast, constpool.Pool) pair.
//
// Grounded on the teacher's internal/parser (a hand-written
// recursive-descent parser over internal/lexer's Token stream,
// producing an Expr/Stmt tree), generalized to emit into the indexed
// ast.Ast arena and to handle glint's significant indentation, chains,
// and meta-map entries, none of which the teacher's grammar has.
package parser

import (
	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/constpool"
	"github.com/glint-lang/glint/internal/gerr"
	"github.com/glint-lang/glint/internal/lexer"
)

// Parser consumes a pre-scanned token slice and builds an Ast plus a
// ConstantPool. Reserved words that are not implemented as language
// features (spec §4.2) always fail to parse.
type Parser struct {
	toks []lexer.Token
	pos  int

	ast  *ast.Ast
	pool *constpool.Pool

	path string
}

// New creates a parser over src. path is recorded in errors and, later,
// in the compiled Chunk's source_path (spec §3.7).
func New(src, path string) (*Parser, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return &Parser{toks: toks, ast: ast.New(), pool: constpool.New(), path: path}, nil
}

// Parse runs the parser to completion, returning the finished Ast and
// ConstantPool, or the first error encountered.
func Parse(src, path string) (*ast.Ast, *constpool.Pool, error) {
	p, err := New(src, path)
	if err != nil {
		return nil, nil, err
	}
	root, err := p.parseProgram()
	if err != nil {
		return nil, nil, err
	}
	p.ast.Root = root
	return p.ast, p.pool, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) curType() lexer.TokenType { return p.toks[p.pos].Type }

func (p *Parser) at(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if t.Type != lexer.TokenEOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(t lexer.TokenType) bool { return p.curType() == t }

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType, what string) (lexer.Token, error) {
	if !p.check(t) {
		return lexer.Token{}, p.syntaxErr("expected %s", what)
	}
	return p.advance(), nil
}

func (p *Parser) skipNewlines() {
	for p.check(lexer.TokenNewline) {
		p.advance()
	}
}

func (p *Parser) syntaxErr(format string, args ...any) error {
	return gerr.New(gerr.FamilyParse, gerr.KindSyntax, p.cur().Span, format, args...)
}

func (p *Parser) expectedIndentErr() error {
	return gerr.New(gerr.FamilyParse, gerr.KindExpectedIndent, p.cur().Span, "expected indentation")
}

func (p *Parser) add(n ast.Node) ast.Index { return p.ast.Add(n) }

func (p *Parser) span(start lexer.Token, endPos lexer.Token) gerr.Span {
	return gerr.Span{Start: start.Span.Start, End: endPos.Span.End}
}

// reservedCheck rejects words that are lexed as keywords for words the
// language reserves but does not implement (spec §4.2: `await`, `const`
// always parse as errors and are never usable as identifiers).
func (p *Parser) reservedCheck() error {
	switch p.curType() {
	case lexer.TokenReservedAwait, lexer.TokenReservedConst:
		return p.syntaxErr("%q is reserved", p.cur().Lexeme)
	}
	return nil
}

// parseProgram parses a top-level sequence of statements delimited by
// newlines, with no surrounding indentation requirement.
func (p *Parser) parseProgram() (ast.Index, error) {
	start := p.cur()
	var stmts []ast.Index
	p.skipNewlines()
	for !p.check(lexer.TokenEOF) {
		if err := p.reservedCheck(); err != nil {
			return ast.NoIndex, err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return ast.NoIndex, err
		}
		stmts = append(stmts, stmt)
		p.skipNewlines()
	}
	return p.add(ast.Node{Kind: ast.KindBlock, Span: p.span(start, p.cur()), Children: stmts}), nil
}

// parseBlock parses an indentation-delimited block: INDENT
// stmt(NEWLINE stmt)* DEDENT. An "expected indentation" error is
// distinguished so a REPL can prompt for a continuation line.
func (p *Parser) parseBlock() (ast.Index, error) {
	start := p.cur()
	if !p.match(lexer.TokenIndent) {
		return ast.NoIndex, p.expectedIndentErr()
	}
	var stmts []ast.Index
	p.skipNewlines()
	for !p.check(lexer.TokenDedent) && !p.check(lexer.TokenEOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return ast.NoIndex, err
		}
		stmts = append(stmts, stmt)
		p.skipNewlines()
	}
	if _, err := p.expect(lexer.TokenDedent, "dedent"); err != nil {
		return ast.NoIndex, err
	}
	return p.add(ast.Node{Kind: ast.KindBlock, Span: p.span(start, p.cur()), Children: stmts}), nil
}

// parseBody parses either a single inline expression-statement or an
// indented block, the two forms spec §4.2 allows for a function/control
// flow body.
func (p *Parser) parseBody() (ast.Index, error) {
	if p.check(lexer.TokenNewline) {
		p.advance()
		return p.parseBlock()
	}
	return p.parseStatement()
}
