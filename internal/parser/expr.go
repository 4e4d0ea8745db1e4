package parser

import (
	"strconv"
	"strings"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/lexer"
)

// parseExpr parses the full expression grammar, precedence low to high:
// or; and; comparisons; additive; multiplicative; unary; power;
// call/index/chain (postfix); primary (spec §4.2).
func (p *Parser) parseExpr() (ast.Index, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Index, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return ast.NoIndex, err
	}
	for p.check(lexer.TokenOr) {
		start := p.cur()
		p.advance()
		rhs, err := p.parseAnd()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.add(ast.Node{Kind: ast.KindBinaryOp, Str: "or", Lhs: lhs, Rhs: rhs, Span: p.span(start, p.cur())})
	}
	return lhs, nil
}

func (p *Parser) parseAnd() (ast.Index, error) {
	lhs, err := p.parseComparison()
	if err != nil {
		return ast.NoIndex, err
	}
	for p.check(lexer.TokenAnd) {
		start := p.cur()
		p.advance()
		rhs, err := p.parseComparison()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.add(ast.Node{Kind: ast.KindBinaryOp, Str: "and", Lhs: lhs, Rhs: rhs, Span: p.span(start, p.cur())})
	}
	return lhs, nil
}

var comparisonOps = map[lexer.TokenType]string{
	lexer.TokenEqEq: "==", lexer.TokenNotEq: "!=",
	lexer.TokenLt: "<", lexer.TokenLe: "<=",
	lexer.TokenGt: ">", lexer.TokenGe: ">=",
}

func (p *Parser) parseComparison() (ast.Index, error) {
	lhs, err := p.parseRange()
	if err != nil {
		return ast.NoIndex, err
	}
	if op, ok := comparisonOps[p.curType()]; ok {
		start := p.cur()
		p.advance()
		rhs, err := p.parseRange()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.add(ast.Node{Kind: ast.KindBinaryOp, Str: op, Lhs: lhs, Rhs: rhs, Span: p.span(start, p.cur())})
	}
	return lhs, nil
}

// parseRange handles `a..b`, `a..=b`, and unbounded forms `..b`, `a..`,
// `..` (spec §3.3's Range node).
func (p *Parser) parseRange() (ast.Index, error) {
	start := p.cur()
	if p.check(lexer.TokenDotDot) || p.check(lexer.TokenDotDotEq) {
		inclusive := p.check(lexer.TokenDotDotEq)
		p.advance()
		var flags uint32
		if inclusive {
			flags |= ast.FlagInclusive
		}
		if p.canStartExpr() {
			end, err := p.parseAdditive()
			if err != nil {
				return ast.NoIndex, err
			}
			flags |= ast.FlagBoundedEnd
			return p.add(ast.Node{Kind: ast.KindRange, Rhs: end, Flags: flags, Span: p.span(start, p.cur())}), nil
		}
		return p.add(ast.Node{Kind: ast.KindRange, Flags: flags, Span: p.span(start, p.cur())}), nil
	}

	lhs, err := p.parseAdditive()
	if err != nil {
		return ast.NoIndex, err
	}
	if p.check(lexer.TokenDotDot) || p.check(lexer.TokenDotDotEq) {
		inclusive := p.check(lexer.TokenDotDotEq)
		p.advance()
		flags := ast.FlagBoundedStart
		if inclusive {
			flags |= ast.FlagInclusive
		}
		if p.canStartExpr() {
			end, err := p.parseAdditive()
			if err != nil {
				return ast.NoIndex, err
			}
			flags |= ast.FlagBoundedEnd
			return p.add(ast.Node{Kind: ast.KindRange, Lhs: lhs, Rhs: end, Flags: flags, Span: p.span(start, p.cur())}), nil
		}
		return p.add(ast.Node{Kind: ast.KindRange, Lhs: lhs, Flags: flags, Span: p.span(start, p.cur())}), nil
	}
	return lhs, nil
}

// canStartExpr is a conservative lookahead used to decide whether a
// range's end bound is present.
func (p *Parser) canStartExpr() bool {
	switch p.curType() {
	case lexer.TokenNewline, lexer.TokenEOF, lexer.TokenRParen, lexer.TokenRBracket,
		lexer.TokenRBrace, lexer.TokenComma, lexer.TokenColon, lexer.TokenDedent,
		lexer.TokenIndent, lexer.TokenThen:
		return false
	}
	return true
}

func (p *Parser) parseAdditive() (ast.Index, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return ast.NoIndex, err
	}
	for p.check(lexer.TokenPlus) || p.check(lexer.TokenMinus) {
		op := "+"
		if p.check(lexer.TokenMinus) {
			op = "-"
		}
		start := p.cur()
		p.advance()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.add(ast.Node{Kind: ast.KindBinaryOp, Str: op, Lhs: lhs, Rhs: rhs, Span: p.span(start, p.cur())})
	}
	return lhs, nil
}

func (p *Parser) parseMultiplicative() (ast.Index, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return ast.NoIndex, err
	}
	for p.check(lexer.TokenStar) || p.check(lexer.TokenSlash) || p.check(lexer.TokenPercent) {
		op := map[lexer.TokenType]string{lexer.TokenStar: "*", lexer.TokenSlash: "/", lexer.TokenPercent: "%"}[p.curType()]
		start := p.cur()
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.add(ast.Node{Kind: ast.KindBinaryOp, Str: op, Lhs: lhs, Rhs: rhs, Span: p.span(start, p.cur())})
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (ast.Index, error) {
	if p.check(lexer.TokenMinus) || p.check(lexer.TokenNot) {
		op := "not"
		if p.check(lexer.TokenMinus) {
			op = "-"
		}
		start := p.cur()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.NoIndex, err
		}
		return p.add(ast.Node{Kind: ast.KindUnaryOp, Str: op, Lhs: operand, Span: p.span(start, p.cur())}), nil
	}
	return p.parsePower()
}

// parsePower sits between unary and postfix in precedence; glint has no
// dedicated power operator token (`^` is reserved for future use), so
// this level currently just forwards to the postfix/chain grammar.
func (p *Parser) parsePower() (ast.Index, error) {
	return p.parseChain()
}

// parseChain parses postfix `.id`, `[expr]`, `(args)`, and `?.id` over a
// primary expression, composing the result as a KindChain node per the
// head-plus-linked-lookups representation in spec §3.3/§4.2.
func (p *Parser) parseChain() (ast.Index, error) {
	head, err := p.parsePrimary()
	if err != nil {
		return ast.NoIndex, err
	}
	if !p.startsLookup() {
		return head, nil
	}
	start := p.cur()
	next, err := p.parseLookupChain()
	if err != nil {
		return ast.NoIndex, err
	}
	return p.add(ast.Node{Kind: ast.KindChain, Lhs: head, Rhs: next, Span: p.span(start, p.cur())}), nil
}

func (p *Parser) startsLookup() bool {
	switch p.curType() {
	case lexer.TokenDot, lexer.TokenQuestionDot, lexer.TokenLBracket, lexer.TokenLParen:
		return true
	}
	return false
}

func (p *Parser) parseLookupChain() (ast.Index, error) {
	start := p.cur()
	optional := p.check(lexer.TokenQuestionDot)
	var node ast.Node
	switch {
	case p.check(lexer.TokenDot) || p.check(lexer.TokenQuestionDot):
		p.advance()
		id, err := p.expect(lexer.TokenIdent, "identifier after '.'")
		if err != nil {
			return ast.NoIndex, err
		}
		node = ast.Node{Kind: ast.KindLookupId, Const: uint32(p.pool.AddString(id.Lexeme))}
	case p.check(lexer.TokenLBracket):
		p.advance()
		idx, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		if _, err := p.expect(lexer.TokenRBracket, "']'"); err != nil {
			return ast.NoIndex, err
		}
		node = ast.Node{Kind: ast.KindLookupIndex, Lhs: idx}
	case p.check(lexer.TokenLParen):
		p.advance()
		args, err := p.parseArgs(lexer.TokenRParen)
		if err != nil {
			return ast.NoIndex, err
		}
		node = ast.Node{Kind: ast.KindLookupCall, Children: args}
	default:
		return ast.NoIndex, p.syntaxErr("expected chain continuation")
	}
	if optional {
		node.Flags |= ast.FlagOptionalLookup
	}
	node.Span = p.span(start, p.cur())
	next := ast.NoIndex
	if p.startsLookup() {
		var err error
		next, err = p.parseLookupChain()
		if err != nil {
			return ast.NoIndex, err
		}
	}
	node.Rhs = next
	return p.add(node), nil
}

func (p *Parser) parseArgs(closing lexer.TokenType) ([]ast.Index, error) {
	var args []ast.Index
	if p.check(closing) {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.match(lexer.TokenComma) {
			if p.check(closing) {
				p.advance()
				break
			}
			continue
		}
		if _, err := p.expect(closing, "closing delimiter"); err != nil {
			return nil, err
		}
		break
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Index, error) {
	if err := p.reservedCheck(); err != nil {
		return ast.NoIndex, err
	}
	start := p.cur()
	switch start.Type {
	case lexer.TokenNull:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindNil, Span: start.Span}), nil
	case lexer.TokenTrue:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindBoolTrue, Span: start.Span}), nil
	case lexer.TokenFalse:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindBoolFalse, Span: start.Span}), nil
	case lexer.TokenInt:
		p.advance()
		n, err := parseIntLiteral(start.Lexeme)
		if err != nil {
			return ast.NoIndex, p.syntaxErr("invalid integer literal %q", start.Lexeme)
		}
		return p.add(ast.Node{Kind: ast.KindInt, Const: uint32(p.pool.AddInt(n)), Span: start.Span}), nil
	case lexer.TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(start.Lexeme, 64)
		if err != nil {
			return ast.NoIndex, p.syntaxErr("invalid float literal %q", start.Lexeme)
		}
		return p.add(ast.Node{Kind: ast.KindFloat, Const: uint32(p.pool.AddFloat(f)), Span: start.Span}), nil
	case lexer.TokenString:
		return p.parseStringLiteral()
	case lexer.TokenSelf:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindSelf, Span: start.Span}), nil
	case lexer.TokenUnderscore:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindWildcard, Span: start.Span}), nil
	case lexer.TokenIdent:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindIdent, Const: uint32(p.pool.AddString(start.Lexeme)), Span: start.Span}), nil
	case lexer.TokenCopy:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		return p.add(ast.Node{Kind: ast.KindUnaryOp, Str: "copy", Lhs: inner, Span: p.span(start, p.cur())}), nil
	case lexer.TokenLParen:
		return p.parseParenOrTuple()
	case lexer.TokenLBracket:
		return p.parseList()
	case lexer.TokenLBrace:
		return p.parseMap()
	case lexer.TokenPipe:
		return p.parseFunction()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenMatch:
		return p.parseMatch()
	case lexer.TokenSwitch:
		return p.parseSwitch()
	}
	return ast.NoIndex, p.syntaxErr("unexpected token %s", start.Type)
}

func parseIntLiteral(lexeme string) (int64, error) {
	switch {
	case strings.HasPrefix(lexeme, "0x") || strings.HasPrefix(lexeme, "0X"):
		return strconv.ParseInt(lexeme[2:], 16, 64)
	case strings.HasPrefix(lexeme, "0o") || strings.HasPrefix(lexeme, "0O"):
		return strconv.ParseInt(lexeme[2:], 8, 64)
	case strings.HasPrefix(lexeme, "0b") || strings.HasPrefix(lexeme, "0B"):
		return strconv.ParseInt(lexeme[2:], 2, 64)
	default:
		return strconv.ParseInt(lexeme, 10, 64)
	}
}

// parseStringLiteral turns the scanner's single string token into a
// KindStringLiteral. KindStringTemplate nodes are never produced:
// `${...}` interpolation is not parsed.
func (p *Parser) parseStringLiteral() (ast.Index, error) {
	start := p.cur()
	tok := p.advance()
	return p.add(ast.Node{Kind: ast.KindStringLiteral, Const: uint32(p.pool.AddString(tok.Lexeme)), Span: start.Span}), nil
}

func (p *Parser) parseParenOrTuple() (ast.Index, error) {
	start := p.cur()
	p.advance()
	if p.check(lexer.TokenRParen) {
		p.advance()
		return p.add(ast.Node{Kind: ast.KindTuple, Span: p.span(start, p.cur())}), nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	if !p.check(lexer.TokenComma) {
		if _, err := p.expect(lexer.TokenRParen, "')'"); err != nil {
			return ast.NoIndex, err
		}
		return first, nil
	}
	items := []ast.Index{first}
	for p.match(lexer.TokenComma) {
		if p.check(lexer.TokenRParen) {
			break
		}
		item, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(lexer.TokenRParen, "')'"); err != nil {
		return ast.NoIndex, err
	}
	return p.add(ast.Node{Kind: ast.KindTuple, Children: items, Span: p.span(start, p.cur())}), nil
}

func (p *Parser) parseList() (ast.Index, error) {
	start := p.cur()
	p.advance()
	items, err := p.parseArgs(lexer.TokenRBracket)
	if err != nil {
		return ast.NoIndex, err
	}
	return p.add(ast.Node{Kind: ast.KindList, Children: items, Span: p.span(start, p.cur())}), nil
}

// parseMap parses `{...}` map literals, including `@`-prefixed meta
// entries for operator overloads and named hooks (spec §3.3, §4.2).
func (p *Parser) parseMap() (ast.Index, error) {
	start := p.cur()
	p.advance()
	var entries []ast.Index
	hasMeta := false
	for !p.check(lexer.TokenRBrace) {
		if p.check(lexer.TokenAt) {
			hasMeta = true
			entry, err := p.parseMetaEntry()
			if err != nil {
				return ast.NoIndex, err
			}
			entries = append(entries, entry)
		} else {
			key, err := p.expect(lexer.TokenIdent, "map key")
			if err != nil {
				return ast.NoIndex, err
			}
			var value ast.Index
			if p.match(lexer.TokenColon) {
				value, err = p.parseExpr()
				if err != nil {
					return ast.NoIndex, err
				}
			} else {
				// shorthand `{x, y}` captures an in-scope identifier by name.
				value = p.add(ast.Node{Kind: ast.KindIdent, Const: uint32(p.pool.AddString(key.Lexeme)), Span: key.Span})
			}
			entry := p.add(ast.Node{Kind: ast.KindMetaEntry, Str: key.Lexeme, Rhs: value, Span: p.span(key, p.cur())})
			entries = append(entries, entry)
		}
		if !p.match(lexer.TokenComma) {
			break
		}
		p.skipNewlines()
	}
	if _, err := p.expect(lexer.TokenRBrace, "'}'"); err != nil {
		return ast.NoIndex, err
	}
	kind := ast.KindMapEntries
	if hasMeta {
		kind = ast.KindMetaMap
	}
	return p.add(ast.Node{Kind: kind, Children: entries, Span: p.span(start, p.cur())}), nil
}

// parseMetaEntry handles `@+: ...`, `@display: ...`, `@meta name: ...`.
// A bare `@` followed by an unrecognized token is a parse error (spec
// §4.2).
func (p *Parser) parseMetaEntry() (ast.Index, error) {
	start := p.cur()
	p.advance() // '@'
	var key string
	switch {
	case p.check(lexer.TokenIdent) && p.cur().Lexeme == "meta":
		p.advance()
		name, err := p.expect(lexer.TokenIdent, "meta name")
		if err != nil {
			return ast.NoIndex, err
		}
		key = "meta " + name.Lexeme
	case p.check(lexer.TokenIdent):
		name := p.advance()
		key = name.Lexeme
	default:
		key = string(p.cur().Type)
		p.advance()
	}
	if _, err := p.expect(lexer.TokenColon, "':'"); err != nil {
		return ast.NoIndex, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	return p.add(ast.Node{Kind: ast.KindMetaEntry, Str: "@" + key, Rhs: value, Span: p.span(start, p.cur())}), nil
}

// parseFunction parses `|args...| body` and `|args...| -> Type body`.
// `self` may never be named as an explicit argument (spec §4.2).
func (p *Parser) parseFunction() (ast.Index, error) {
	start := p.cur()
	p.advance() // '|'
	var params []ast.Index
	variadic := false
	for !p.check(lexer.TokenPipe) {
		if variadic {
			return ast.NoIndex, p.syntaxErr("only the last parameter may be variadic")
		}
		if p.check(lexer.TokenSelf) {
			return ast.NoIndex, p.syntaxErr("'self' may not be an explicit parameter")
		}
		param, err := p.parseParam()
		if err != nil {
			return ast.NoIndex, err
		}
		if p.match(lexer.TokenEllipsis) {
			variadic = true
		}
		params = append(params, param)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenPipe, "closing '|'"); err != nil {
		return ast.NoIndex, err
	}
	if p.match(lexer.TokenArrow) {
		// Return-type annotation is accepted but not retained; nested
		// annotations are rejected (spec §4.2).
		if _, err := p.parseTypeName(); err != nil {
			return ast.NoIndex, err
		}
	}
	body, err := p.parseBody()
	if err != nil {
		return ast.NoIndex, err
	}
	var flags uint32
	if variadic {
		flags |= ast.FlagVariadic
	}
	return p.add(ast.Node{Kind: ast.KindFunction, Children: params, Rhs: body, Flags: flags, Span: p.span(start, p.cur())}), nil
}

func (p *Parser) parseParam() (ast.Index, error) {
	start := p.cur()
	if p.check(lexer.TokenUnderscore) {
		p.advance()
		return p.add(ast.Node{Kind: ast.KindWildcard, Span: start.Span}), nil
	}
	if p.check(lexer.TokenLParen) {
		// unpacked sub-tuple parameter, e.g. `|(a, b)|`
		p.advance()
		var items []ast.Index
		for !p.check(lexer.TokenRParen) {
			item, err := p.parseParam()
			if err != nil {
				return ast.NoIndex, err
			}
			items = append(items, item)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
		if _, err := p.expect(lexer.TokenRParen, "')'"); err != nil {
			return ast.NoIndex, err
		}
		return p.add(ast.Node{Kind: ast.KindTuple, Children: items, Span: p.span(start, p.cur())}), nil
	}
	name, err := p.expect(lexer.TokenIdent, "parameter name")
	if err != nil {
		return ast.NoIndex, err
	}
	id := p.add(ast.Node{Kind: ast.KindIdent, Const: uint32(p.pool.AddString(name.Lexeme)), Span: name.Span})
	if p.match(lexer.TokenEq) {
		def, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		return p.add(ast.Node{Kind: ast.KindAssign, Lhs: id, Rhs: def, Span: p.span(start, p.cur())}), nil
	}
	return id, nil
}

// parseTypeName accepts a single identifier type annotation; nested
// annotations (e.g. `List<Int>`) are not allowed in this version (spec
// §4.2).
func (p *Parser) parseTypeName() (string, error) {
	name, err := p.expect(lexer.TokenIdent, "type name")
	if err != nil {
		return "", err
	}
	if p.check(lexer.TokenLt) {
		return "", p.syntaxErr("nested type annotations are not supported")
	}
	return name.Lexeme, nil
}

// parseIf parses both the one-line `if c then a else b` expression form
// and the multi-line indented form with an else/else-if chain (spec
// §4.2).
func (p *Parser) parseIf() (ast.Index, error) {
	start := p.cur()
	p.advance() // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	if p.match(lexer.TokenThen) {
		then, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		elseBranch := ast.NoIndex
		if p.match(lexer.TokenElse) {
			elseBranch, err = p.parseExpr()
			if err != nil {
				return ast.NoIndex, err
			}
		}
		return p.add(ast.Node{Kind: ast.KindIf, Lhs: cond, Rhs: then, Extra: elseBranch, Span: p.span(start, p.cur())}), nil
	}

	if !p.check(lexer.TokenNewline) {
		return ast.NoIndex, p.syntaxErr("expected 'then' or a newline after 'if' condition")
	}
	p.advance()
	then, err := p.parseBlock()
	if err != nil {
		return ast.NoIndex, err
	}
	elseBranch := ast.NoIndex
	if p.check(lexer.TokenElse) {
		p.advance()
		if p.check(lexer.TokenIf) {
			elseBranch, err = p.parseIf()
			if err != nil {
				return ast.NoIndex, err
			}
		} else {
			if !p.match(lexer.TokenNewline) {
				return ast.NoIndex, p.syntaxErr("expected newline after 'else'")
			}
			elseBranch, err = p.parseBlock()
			if err != nil {
				return ast.NoIndex, err
			}
		}
	}
	return p.add(ast.Node{Kind: ast.KindIf, Lhs: cond, Rhs: then, Extra: elseBranch, Span: p.span(start, p.cur())}), nil
}

// parseMatch parses `match scrutinee` followed by an indented block of
// `pattern if guard then body` arms; an `else` arm may appear only last
// and carries neither a pattern nor a guard (spec §4.2).
func (p *Parser) parseMatch() (ast.Index, error) {
	start := p.cur()
	p.advance()
	scrutinee, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	if !p.match(lexer.TokenNewline) {
		return ast.NoIndex, p.syntaxErr("expected newline after match scrutinee")
	}
	if !p.match(lexer.TokenIndent) {
		return ast.NoIndex, p.expectedIndentErr()
	}
	var arms []ast.Index
	p.skipNewlines()
	sawElse := false
	for !p.check(lexer.TokenDedent) {
		if sawElse {
			return ast.NoIndex, p.syntaxErr("'else' arm must be last")
		}
		armStart := p.cur()
		var patterns []ast.Index
		isElse := false
		if p.check(lexer.TokenElse) {
			p.advance()
			isElse = true
			sawElse = true
		} else {
			for {
				pat, err := p.parseExpr()
				if err != nil {
					return ast.NoIndex, err
				}
				patterns = append(patterns, pat)
				if !p.match(lexer.TokenComma) {
					break
				}
			}
		}
		guard := ast.NoIndex
		if !isElse && p.match(lexer.TokenIf) {
			guard, err = p.parseExpr()
			if err != nil {
				return ast.NoIndex, err
			}
		}
		if _, err := p.expect(lexer.TokenThen, "'then'"); err != nil {
			return ast.NoIndex, err
		}
		body, err := p.parseBody()
		if err != nil {
			return ast.NoIndex, err
		}
		arm := p.add(ast.Node{Kind: ast.KindMatchArm, Children: patterns, Lhs: guard, Rhs: body, Span: p.span(armStart, p.cur())})
		arms = append(arms, arm)
		p.skipNewlines()
	}
	if _, err := p.expect(lexer.TokenDedent, "dedent"); err != nil {
		return ast.NoIndex, err
	}
	return p.add(ast.Node{Kind: ast.KindMatch, Lhs: scrutinee, Children: arms, Span: p.span(start, p.cur())}), nil
}

// parseSwitch parses `switch` followed by an indented block of
// `cond then body` arms, with the same trailing-`else` rule as match.
func (p *Parser) parseSwitch() (ast.Index, error) {
	start := p.cur()
	p.advance()
	if !p.match(lexer.TokenNewline) {
		return ast.NoIndex, p.syntaxErr("expected newline after 'switch'")
	}
	if !p.match(lexer.TokenIndent) {
		return ast.NoIndex, p.expectedIndentErr()
	}
	var arms []ast.Index
	p.skipNewlines()
	sawElse := false
	for !p.check(lexer.TokenDedent) {
		if sawElse {
			return ast.NoIndex, p.syntaxErr("'else' arm must be last")
		}
		armStart := p.cur()
		cond := ast.NoIndex
		if p.check(lexer.TokenElse) {
			p.advance()
			sawElse = true
		} else {
			var err error
			cond, err = p.parseExpr()
			if err != nil {
				return ast.NoIndex, err
			}
		}
		if _, err := p.expect(lexer.TokenThen, "'then'"); err != nil {
			return ast.NoIndex, err
		}
		body, err := p.parseBody()
		if err != nil {
			return ast.NoIndex, err
		}
		arm := p.add(ast.Node{Kind: ast.KindSwitchArm, Lhs: cond, Rhs: body, Span: p.span(armStart, p.cur())})
		arms = append(arms, arm)
		p.skipNewlines()
	}
	if _, err := p.expect(lexer.TokenDedent, "dedent"); err != nil {
		return ast.NoIndex, err
	}
	return p.add(ast.Node{Kind: ast.KindSwitch, Children: arms, Span: p.span(start, p.cur())}), nil
}
