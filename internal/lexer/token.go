// Package lexer tokenizes glint source text into the lazy token
// sequence the parser consumes, including the indent/dedent markers
// that make indentation significant (spec §4.1).
//
// Grounded on the teacher's internal/lexer/scanner.go (a Scanner struct
// producing a TokenType-tagged Token stream), generalized with a
// Position-based Span on every token and an explicit indent stack
// instead of the teacher's flat, indentation-insensitive scan.
package lexer

import "github.com/glint-lang/glint/internal/gerr"

type TokenType string

const (
	TokenEOF     TokenType = "EOF"
	TokenNewline TokenType = "NEWLINE"
	TokenIndent  TokenType = "INDENT"
	TokenDedent  TokenType = "DEDENT"

	TokenIdent  TokenType = "IDENT"
	TokenInt    TokenType = "INT"
	TokenFloat  TokenType = "FLOAT"
	TokenString TokenType = "STRING"

	// String interpolation markers.
	TokenInterpStart TokenType = "INTERP_START" // `${` inside a string
	TokenInterpEnd   TokenType = "INTERP_END"   // matching `}`

	// Keywords.
	TokenIf       TokenType = "if"
	TokenElse     TokenType = "else"
	TokenMatch    TokenType = "match"
	TokenSwitch   TokenType = "switch"
	TokenFor      TokenType = "for"
	TokenWhile    TokenType = "while"
	TokenUntil    TokenType = "until"
	TokenLoop     TokenType = "loop"
	TokenBreak    TokenType = "break"
	TokenContinue TokenType = "continue"
	TokenReturn   TokenType = "return"
	TokenYield    TokenType = "yield"
	TokenThrow    TokenType = "throw"
	TokenTry      TokenType = "try"
	TokenCatch    TokenType = "catch"
	TokenFinally  TokenType = "finally"
	TokenImport   TokenType = "import"
	TokenFrom     TokenType = "from"
	TokenAs       TokenType = "as"
	TokenSelf     TokenType = "self"
	TokenThen     TokenType = "then"
	TokenNot      TokenType = "not"
	TokenAnd      TokenType = "and"
	TokenOr       TokenType = "or"
	TokenIn       TokenType = "in"
	TokenTrue     TokenType = "true"
	TokenFalse    TokenType = "false"
	TokenNull     TokenType = "null"
	TokenCopy     TokenType = "copy"

	// Reserved but unimplemented words: always a parse error (spec §4.2).
	TokenReservedAwait TokenType = "await"
	TokenReservedConst TokenType = "const"

	// Punctuation / operators.
	TokenLParen, TokenRParen     TokenType = "(", ")"
	TokenLBrace, TokenRBrace     TokenType = "{", "}"
	TokenLBracket, TokenRBracket TokenType = "[", "]"
	TokenComma                   TokenType = ","
	TokenColon                   TokenType = ":"
	TokenDot                     TokenType = "."
	TokenQuestionDot             TokenType = "?."
	TokenDotDot                  TokenType = ".."
	TokenDotDotEq                TokenType = "..="
	TokenPipe                    TokenType = "|"
	TokenArrow                   TokenType = "->"
	TokenEllipsis                TokenType = "..."
	TokenUnderscore              TokenType = "_"
	TokenAt                      TokenType = "@"

	TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent TokenType = "+", "-", "*", "/", "%"
	TokenEq                                                    TokenType = "="
	TokenEqEq, TokenNotEq                                      TokenType = "==", "!="
	TokenLt, TokenLe, TokenGt, TokenGe                         TokenType = "<", "<=", ">", ">="
	TokenPlusEq, TokenMinusEq, TokenStarEq, TokenSlashEq, TokenPercentEq TokenType = "+=", "-=", "*=", "/=", "%="
)

// Token is one lexical unit with its source span.
type Token struct {
	Type   TokenType
	Lexeme string
	Span   gerr.Span
}

var keywords = map[string]TokenType{
	"if": TokenIf, "else": TokenElse, "match": TokenMatch, "switch": TokenSwitch,
	"for": TokenFor, "while": TokenWhile, "until": TokenUntil, "loop": TokenLoop,
	"break": TokenBreak, "continue": TokenContinue, "return": TokenReturn,
	"yield": TokenYield, "throw": TokenThrow, "try": TokenTry, "catch": TokenCatch,
	"finally": TokenFinally, "import": TokenImport, "from": TokenFrom, "as": TokenAs,
	"self": TokenSelf, "then": TokenThen, "not": TokenNot, "and": TokenAnd, "or": TokenOr, "in": TokenIn,
	"true": TokenTrue, "false": TokenFalse, "null": TokenNull, "copy": TokenCopy,
	"await": TokenReservedAwait, "const": TokenReservedConst,
}
