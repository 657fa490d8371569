package compiler

import (
	"strconv"
	"unicode"
)

// keywords maps source text to a reserved word.
var keywords = map[string]bool{
	"break":  true,
	"else":   true,
	"if":     true,
	"int":    true,
	"while":  true,
	"return": true,
	"void":   true,
}

// Lexical error messages.
const (
	msgInvalidInput     = "Invalid input"
	msgInvalidNumber    = "Invalid number"
	msgUnmatchedComment = "Unmatched comment"
	msgUnclosedComment  = "Unclosed comment"
)

// Lexer is a cursor over the source text. It implements TokenSource and
// records lexical errors instead of failing: the offending text is skipped
// and scanning resumes.
type Lexer struct {
	src    []rune
	pos    int // index of the next rune to consume
	line   int // current 1-based source line
	errors []LexError
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

// Errors returns the lexical errors seen so far, in source order.
func (l *Lexer) Errors() []LexError { return l.errors }

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) fail(line int, lexeme, msg string) {
	l.errors = append(l.errors, LexError{Line: line, Lexeme: lexeme, Message: msg})
}

func isSymbol(r rune) bool {
	switch r {
	case ';', ':', ',', '[', ']', '(', ')', '{', '}', '+', '-', '*', '=', '<', '/':
		return true
	}
	return false
}

// isDelimiter reports whether r may legally follow a word or number.
func isDelimiter(r rune) bool {
	return r == 0 || unicode.IsSpace(r) || isSymbol(r)
}

func isWordRune(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Next returns the next valid token, skipping whitespace, comments and
// anything that produced a lexical error.
func (l *Lexer) Next() Token {
	for {
		for !l.atEnd() && unicode.IsSpace(l.peek()) {
			l.advance()
		}
		if l.atEnd() {
			return Token{Type: EOF, Lexeme: EndMarker, Line: l.line}
		}
		if tok, ok := l.scan(); ok {
			return tok
		}
	}
}

// scan consumes one lexeme. ok is false when the lexeme was a comment or an
// error.
func (l *Lexer) scan() (Token, bool) {
	ch := l.peek()
	line := l.line

	switch {
	case ch < unicode.MaxASCII && unicode.IsDigit(ch):
		return l.scanNumber()
	case ch < unicode.MaxASCII && unicode.IsLetter(ch):
		return l.scanWord()
	}

	l.advance()
	switch ch {
	case '=':
		if l.peek() == '=' {
			l.advance()
			return Token{SYMBOL, "==", line}, true
		}
		return Token{SYMBOL, "=", line}, true
	case '*':
		next := l.peek()
		if next == '/' {
			l.advance()
			l.fail(line, "*/", msgUnmatchedComment)
			return Token{}, false
		}
		if !isDelimiter(next) && !isWordRune(next) {
			l.advance()
			l.fail(line, "*"+string(next), msgInvalidInput)
			return Token{}, false
		}
		return Token{SYMBOL, "*", line}, true
	case '/':
		if l.peek() == '*' {
			l.advance()
			l.skipBlockComment(line)
			return Token{}, false
		}
		return Token{SYMBOL, "/", line}, true
	}

	if isSymbol(ch) {
		return Token{SYMBOL, string(ch), line}, true
	}
	l.fail(line, string(ch), msgInvalidInput)
	return Token{}, false
}

// scanNumber collects a run of digits. A letter glued to the digits makes the
// whole lexeme an invalid number, and so does a value that overflows int.
func (l *Lexer) scanNumber() (Token, bool) {
	line := l.line
	start := l.pos
	for !l.atEnd() && unicode.IsDigit(l.peek()) && l.peek() < unicode.MaxASCII {
		l.advance()
	}
	if next := l.peek(); next < unicode.MaxASCII && unicode.IsLetter(next) {
		l.advance()
		l.fail(line, string(l.src[start:l.pos]), msgInvalidNumber)
		return Token{}, false
	}
	lexeme := string(l.src[start:l.pos])
	if _, err := strconv.Atoi(lexeme); err != nil {
		l.fail(line, lexeme, msgInvalidNumber)
		return Token{}, false
	}
	return Token{Type: NUM, Lexeme: lexeme, Line: line}, true
}

// scanWord collects a keyword or identifier. A word followed by a character
// outside the alphabet is reported together with that character.
func (l *Lexer) scanWord() (Token, bool) {
	line := l.line
	start := l.pos
	for !l.atEnd() && isWordRune(l.peek()) {
		l.advance()
	}
	if next := l.peek(); !isDelimiter(next) {
		l.advance()
		l.fail(line, string(l.src[start:l.pos]), msgInvalidInput)
		return Token{}, false
	}
	lexeme := string(l.src[start:l.pos])
	if keywords[lexeme] {
		return Token{Type: KEYWORD, Lexeme: lexeme, Line: line}, true
	}
	return Token{Type: ID, Lexeme: lexeme, Line: line}, true
}

// skipBlockComment discards everything up to and including the closing "*/".
// The opening "/*" must already have been consumed.
func (l *Lexer) skipBlockComment(startLine int) {
	start := l.pos - 2
	for !l.atEnd() {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance() // *
			l.advance() // /
			return
		}
		l.advance()
	}
	text := string(l.src[start:])
	if len([]rune(text)) > 7 {
		text = string([]rune(text)[:7]) + "..."
	}
	l.fail(startLine, text, msgUnclosedComment)
}

// Tokenize scans src to the end and returns every token (without the EOF
// marker) together with the lexical errors.
func Tokenize(src string) ([]Token, []LexError) {
	l := NewLexer(src)
	var tokens []Token
	for {
		t := l.Next()
		if t.Type == EOF {
			return tokens, l.Errors()
		}
		tokens = append(tokens, t)
	}
}
