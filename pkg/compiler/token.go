package compiler

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	EOF     TokenType = iota // sentinel: end of input
	KEYWORD                  // break else if int while return void
	ID                       // identifier
	NUM                      // decimal integer literal
	SYMBOL                   // ; : , [ ] ( ) { } + - * = < == /
)

var tokenNames = [...]string{
	EOF:     "EOF",
	KEYWORD: "KEYWORD",
	ID:      "ID",
	NUM:     "NUM",
	SYMBOL:  "SYMBOL",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// EndMarker is the grammar terminal that stands for end of input.
const EndMarker = "$"

// Token is a single lexical unit produced by a TokenSource.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
}

// Category is the terminal this token matches in the parsing table.
// Identifiers and numbers collapse to a single category each.
func (t Token) Category() string {
	switch t.Type {
	case ID:
		return "ID"
	case NUM:
		return "NUM"
	case EOF:
		return EndMarker
	}
	return t.Lexeme
}

func (t Token) String() string {
	return fmt.Sprintf("(%s, %s)", t.Type, t.Lexeme)
}

// TokenSource delivers tokens one at a time. After the input is exhausted it
// keeps returning an EOF token.
type TokenSource interface {
	Next() Token
}

// SliceSource replays a fixed token list; an EOF token is synthesized when
// the list runs out.
type SliceSource struct {
	tokens []Token
	pos    int
}

func NewSliceSource(tokens []Token) *SliceSource {
	return &SliceSource{tokens: tokens}
}

func (s *SliceSource) Next() Token {
	if s.pos < len(s.tokens) {
		t := s.tokens[s.pos]
		s.pos++
		return t
	}
	line := 1
	if n := len(s.tokens); n > 0 {
		line = s.tokens[n-1].Line
	}
	return Token{Type: EOF, Lexeme: EndMarker, Line: line}
}

// recordingSource remembers every token pulled through it, for the token dump.
type recordingSource struct {
	src    TokenSource
	tokens []Token
}

func (r *recordingSource) Next() Token {
	t := r.src.Next()
	if t.Type != EOF {
		r.tokens = append(r.tokens, t)
	}
	return t
}
