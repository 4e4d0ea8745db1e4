package lexer

// Tokenize runs the Scanner to completion, returning every token up to
// and including the terminating TokenEOF. The parser operates on this
// materialized slice rather than streaming from the Scanner directly,
// which keeps its lookahead (peek/peekAt) trivial.
func Tokenize(src string) ([]Token, error) {
	s := New(src)
	var toks []Token
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks, nil
		}
	}
}
