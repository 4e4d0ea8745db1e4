package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/glint-lang/glint/internal/gerr"
)

// Scanner produces a token stream from source text, tracking
// indentation so the parser can treat indent/dedent as structural
// tokens (spec §4.1). Call Next repeatedly until it returns a TokenEOF.
type Scanner struct {
	src    string
	offset int
	line   int
	col    int

	indents     []int // stack of indentation widths, innermost last
	pendingDent int    // dedents queued to emit before resuming normal scanning
	atLineStart bool
	parenDepth  int // inside (), [], {} newlines don't start new logical lines

	interpDepth int // nesting depth of ${ } inside the current string
}

func New(src string) *Scanner {
	return &Scanner{src: src, line: 0, col: 0, indents: []int{0}, atLineStart: true}
}

func (s *Scanner) pos() gerr.Position { return gerr.Position{Line: s.line, Column: s.col} }

func (s *Scanner) peekByte() byte {
	if s.offset >= len(s.src) {
		return 0
	}
	return s.src[s.offset]
}

func (s *Scanner) peekByteAt(n int) byte {
	if s.offset+n >= len(s.src) {
		return 0
	}
	return s.src[s.offset+n]
}

func (s *Scanner) advance() byte {
	b := s.src[s.offset]
	s.offset++
	if b == '\n' {
		s.line++
		s.col = 0
	} else {
		s.col++
	}
	return b
}

func (s *Scanner) make(typ TokenType, lexeme string, start gerr.Position) Token {
	return Token{Type: typ, Lexeme: lexeme, Span: gerr.Span{Start: start, End: s.pos()}}
}

// Next returns the next token, or a TokenEOF token once the source is
// exhausted (after emitting any trailing DEDENTs).
func (s *Scanner) Next() (Token, error) {
	if s.pendingDent > 0 {
		s.pendingDent--
		start := s.pos()
		return s.make(TokenDedent, "", start), nil
	}

	if s.atLineStart && s.parenDepth == 0 {
		if tok, ok, err := s.scanIndentation(); err != nil {
			return Token{}, err
		} else if ok {
			return tok, nil
		}
	}

	s.skipIntraLineSpaceAndComments()

	if s.offset >= len(s.src) {
		start := s.pos()
		// unwind any remaining indentation before EOF
		if len(s.indents) > 1 {
			s.indents = s.indents[:len(s.indents)-1]
			return s.make(TokenDedent, "", start), nil
		}
		return s.make(TokenEOF, "", start), nil
	}

	start := s.pos()
	c := s.peekByte()

	switch {
	case c == '\n':
		s.advance()
		if s.parenDepth > 0 {
			return s.Next()
		}
		s.atLineStart = true
		return s.make(TokenNewline, "\n", start), nil
	case c == '#':
		for s.offset < len(s.src) && s.peekByte() != '\n' {
			s.advance()
		}
		return s.Next()
	case isIdentStart(c):
		return s.scanIdentOrKeyword(start), nil
	case isDigit(c):
		return s.scanNumber(start)
	case c == '\'' || c == '"':
		return s.scanString(start, c)
	default:
		tok, err := s.scanOperator(start)
		switch tok.Type {
		case TokenLParen, TokenLBrace, TokenLBracket:
			s.parenDepth++
		case TokenRParen, TokenRBrace, TokenRBracket:
			if s.parenDepth > 0 {
				s.parenDepth--
			}
		}
		return tok, err
	}
}

func (s *Scanner) skipIntraLineSpaceAndComments() {
	for s.offset < len(s.src) {
		c := s.peekByte()
		if c == ' ' || c == '\t' || c == '\r' {
			s.advance()
			continue
		}
		if c == '#' {
			for s.offset < len(s.src) && s.peekByte() != '\n' {
				s.advance()
			}
			continue
		}
		break
	}
}

// scanIndentation measures leading whitespace on a new logical line and
// emits INDENT/DEDENT tokens by comparing against the indent stack.
// Blank lines and comment-only lines are skipped without affecting the
// stack.
func (s *Scanner) scanIndentation() (Token, bool, error) {
	for {
		width := 0
		for s.offset < len(s.src) {
			c := s.peekByte()
			if c == ' ' {
				width++
				s.advance()
			} else if c == '\t' {
				width += 8 - (width % 8)
				s.advance()
			} else {
				break
			}
		}
		if s.offset >= len(s.src) {
			s.atLineStart = false
			return Token{}, false, nil
		}
		c := s.peekByte()
		if c == '\n' || c == '#' {
			// blank or comment-only line: consume it, stay at line start
			if c == '#' {
				for s.offset < len(s.src) && s.peekByte() != '\n' {
					s.advance()
				}
			}
			if s.offset < len(s.src) && s.peekByte() == '\n' {
				s.advance()
			}
			continue
		}

		s.atLineStart = false
		cur := s.indents[len(s.indents)-1]
		startPos := s.pos()
		if width > cur {
			s.indents = append(s.indents, width)
			return s.make(TokenIndent, "", startPos), true, nil
		}
		if width < cur {
			depth := 0
			for len(s.indents) > 1 && s.indents[len(s.indents)-1] > width {
				s.indents = s.indents[:len(s.indents)-1]
				depth++
			}
			if s.indents[len(s.indents)-1] != width {
				return Token{}, false, gerr.New(gerr.FamilyLex, gerr.KindSyntax,
					gerr.Span{Start: startPos, End: startPos}, "inconsistent indentation")
			}
			s.pendingDent = depth - 1
			return s.make(TokenDedent, "", startPos), true, nil
		}
		return Token{}, false, nil
	}
}

func isIdentStart(c byte) bool { return c == '_' || unicode.IsLetter(rune(c)) || c >= utf8.RuneSelf }
func isIdentCont(c byte) bool  { return isIdentStart(c) || isDigit(c) }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }

func (s *Scanner) scanIdentOrKeyword(start gerr.Position) Token {
	begin := s.offset
	for s.offset < len(s.src) && isIdentCont(s.peekByte()) {
		s.advance()
	}
	lexeme := s.src[begin:s.offset]
	if lexeme == "_" {
		return s.make(TokenUnderscore, lexeme, start)
	}
	if kw, ok := keywords[lexeme]; ok {
		return s.make(kw, lexeme, start)
	}
	return s.make(TokenIdent, lexeme, start)
}

// scanNumber handles decimal, 0x, 0o, 0b integer literals and floats.
// Negative literals are not scanned here; the parser treats a leading
// `-` as unary minus over a non-negative literal (spec §4.3).
func (s *Scanner) scanNumber(start gerr.Position) (Token, error) {
	begin := s.offset
	if s.peekByte() == '0' && (s.peekByteAt(1) == 'x' || s.peekByteAt(1) == 'X') {
		s.advance()
		s.advance()
		for s.offset < len(s.src) && isHexDigit(s.peekByte()) {
			s.advance()
		}
		return s.make(TokenInt, s.src[begin:s.offset], start), nil
	}
	if s.peekByte() == '0' && (s.peekByteAt(1) == 'o' || s.peekByteAt(1) == 'O') {
		s.advance()
		s.advance()
		for s.offset < len(s.src) && s.peekByte() >= '0' && s.peekByte() <= '7' {
			s.advance()
		}
		return s.make(TokenInt, s.src[begin:s.offset], start), nil
	}
	if s.peekByte() == '0' && (s.peekByteAt(1) == 'b' || s.peekByteAt(1) == 'B') {
		s.advance()
		s.advance()
		for s.offset < len(s.src) && (s.peekByte() == '0' || s.peekByte() == '1') {
			s.advance()
		}
		return s.make(TokenInt, s.src[begin:s.offset], start), nil
	}

	isFloat := false
	for s.offset < len(s.src) && isDigit(s.peekByte()) {
		s.advance()
	}
	if s.peekByte() == '.' && isDigit(s.peekByteAt(1)) {
		isFloat = true
		s.advance()
		for s.offset < len(s.src) && isDigit(s.peekByte()) {
			s.advance()
		}
	}
	if s.peekByte() == 'e' || s.peekByte() == 'E' {
		isFloat = true
		s.advance()
		if s.peekByte() == '+' || s.peekByte() == '-' {
			s.advance()
		}
		for s.offset < len(s.src) && isDigit(s.peekByte()) {
			s.advance()
		}
	}
	typ := TokenInt
	if isFloat {
		typ = TokenFloat
	}
	return s.make(typ, s.src[begin:s.offset], start), nil
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// scanString scans a single string literal through its matching quote,
// processing escapes. There is no raw-string form: an `r` before a
// quote scans as an identifier followed by an ordinary string. A `${`
// ends the token early without being consumed, and no
// TokenInterpStart/TokenInterpEnd markers are produced, so scanning
// resumes at the `$`; string interpolation is not supported.
func (s *Scanner) scanString(start gerr.Position, quote byte) (Token, error) {
	s.advance() // opening quote
	var b strings.Builder
	for {
		if s.offset >= len(s.src) {
			return Token{}, gerr.New(gerr.FamilyLex, gerr.KindSyntax,
				gerr.Span{Start: start, End: s.pos()}, "unterminated string literal")
		}
		c := s.peekByte()
		if c == quote {
			s.advance()
			break
		}
		if c == '\\' {
			s.advance()
			esc := s.peekByte()
			s.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			case 'x':
				hi, lo := s.advance(), s.advance()
				v := hexVal(hi)*16 + hexVal(lo)
				if v > 0x7f {
					return Token{}, gerr.New(gerr.FamilyLex, gerr.KindStringFormat,
						gerr.Span{Start: start, End: s.pos()}, `\xHH escape restricted to <= 0x7F`)
				}
				b.WriteByte(byte(v))
			case 'u':
				if s.peekByte() == '{' {
					s.advance()
					begin := s.offset
					for s.offset < len(s.src) && s.peekByte() != '}' {
						s.advance()
					}
					hexStr := s.src[begin:s.offset]
					s.advance() // '}'
					var v rune
					for _, ch := range hexStr {
						v = v*16 + rune(hexVal(byte(ch)))
					}
					b.WriteRune(v)
				}
			default:
				b.WriteByte(esc)
			}
			continue
		}
		if c == '$' && s.peekByteAt(1) == '{' {
			// Interpolation: caller (parser) handles this by re-scanning;
			// here we simply stop the literal segment.
			tok := s.make(TokenString, b.String(), start)
			return tok, nil
		}
		b.WriteByte(s.advance())
	}
	return s.make(TokenString, b.String(), start), nil
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

func (s *Scanner) scanOperator(start gerr.Position) (Token, error) {
	c := s.advance()
	switch c {
	case '(':
		return s.make(TokenLParen, "(", start), nil
	case ')':
		return s.make(TokenRParen, ")", start), nil
	case '{':
		return s.make(TokenLBrace, "{", start), nil
	case '}':
		return s.make(TokenRBrace, "}", start), nil
	case '[':
		return s.make(TokenLBracket, "[", start), nil
	case ']':
		return s.make(TokenRBracket, "]", start), nil
	case ',':
		return s.make(TokenComma, ",", start), nil
	case '@':
		return s.make(TokenAt, "@", start), nil
	case '|':
		return s.make(TokenPipe, "|", start), nil
	case '.':
		if s.peekByte() == '.' {
			s.advance()
			if s.peekByte() == '=' {
				s.advance()
				return s.make(TokenDotDotEq, "..=", start), nil
			}
			if s.peekByte() == '.' {
				s.advance()
				return s.make(TokenEllipsis, "...", start), nil
			}
			return s.make(TokenDotDot, "..", start), nil
		}
		return s.make(TokenDot, ".", start), nil
	case '?':
		if s.peekByte() == '.' {
			s.advance()
			return s.make(TokenQuestionDot, "?.", start), nil
		}
		return Token{}, gerr.New(gerr.FamilyLex, gerr.KindSyntax, gerr.Span{Start: start, End: s.pos()}, "unexpected '?'")
	case ':':
		return s.make(TokenColon, ":", start), nil
	case '+':
		return s.eqOr(start, '+', TokenPlusEq, TokenPlus), nil
	case '-':
		if s.peekByte() == '>' {
			s.advance()
			return s.make(TokenArrow, "->", start), nil
		}
		return s.eqOr(start, '-', TokenMinusEq, TokenMinus), nil
	case '*':
		return s.eqOr(start, '*', TokenStarEq, TokenStar), nil
	case '/':
		return s.eqOr(start, '/', TokenSlashEq, TokenSlash), nil
	case '%':
		return s.eqOr(start, '%', TokenPercentEq, TokenPercent), nil
	case '=':
		if s.peekByte() == '=' {
			s.advance()
			return s.make(TokenEqEq, "==", start), nil
		}
		return s.make(TokenEq, "=", start), nil
	case '!':
		if s.peekByte() == '=' {
			s.advance()
			return s.make(TokenNotEq, "!=", start), nil
		}
		return Token{}, gerr.New(gerr.FamilyLex, gerr.KindSyntax, gerr.Span{Start: start, End: s.pos()}, "unexpected '!'")
	case '<':
		if s.peekByte() == '=' {
			s.advance()
			return s.make(TokenLe, "<=", start), nil
		}
		return s.make(TokenLt, "<", start), nil
	case '>':
		if s.peekByte() == '=' {
			s.advance()
			return s.make(TokenGe, ">=", start), nil
		}
		return s.make(TokenGt, ">", start), nil
	}
	return Token{}, gerr.New(gerr.FamilyLex, gerr.KindSyntax, gerr.Span{Start: start, End: s.pos()}, "unexpected character %q", c)
}

func (s *Scanner) eqOr(start gerr.Position, _ byte, eqType, plain TokenType) Token {
	if s.peekByte() == '=' {
		s.advance()
		return s.make(eqType, "", start)
	}
	return s.make(plain, "", start)
}
