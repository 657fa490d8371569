package compiler

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Fixed report lines for the empty cases.
const (
	NoSyntaxErrors   = "There is no syntax error."
	NoSemanticErrors = "The input program is semantically correct."
	NoLexicalErrors  = "There is no lexical error."
	CodeNotGenerated = "The code has not been generated."
)

// LexError is a scanner diagnostic; the offending lexeme was skipped.
type LexError struct {
	Line    int
	Lexeme  string
	Message string
}

func (e LexError) Error() string {
	return fmt.Sprintf("line %d: %s %q", e.Line, e.Message, e.Lexeme)
}

// SyntaxError is one recovery event of the parser.
type SyntaxError struct {
	Line   int
	Detail string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("#%d : syntax error, %s", e.Line, e.Detail)
}

// SemanticError is a type or scope violation found while generating code.
type SemanticError struct {
	Line    int
	Message string
}

func (e SemanticError) Error() string {
	return fmt.Sprintf("#%d : Semantic Error! %s", e.Line, e.Message)
}

// Diagnostics collects syntax and semantic errors independently. Semantic
// errors are keyed by line; a later error on the same line replaces the
// earlier one.
type Diagnostics struct {
	syntax   []SyntaxError
	semantic map[int]string
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{semantic: make(map[int]string)}
}

func (d *Diagnostics) Syntax(line int, format string, args ...any) {
	d.syntax = append(d.syntax, SyntaxError{Line: line, Detail: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) Semantic(line int, format string, args ...any) {
	d.semantic[line] = fmt.Sprintf(format, args...)
}

func (d *Diagnostics) HasSemantic() bool { return len(d.semantic) > 0 }

// SyntaxErrors returns the recovery events in the order they happened.
func (d *Diagnostics) SyntaxErrors() []SyntaxError { return d.syntax }

// SemanticErrors returns one error per line, sorted by line.
func (d *Diagnostics) SemanticErrors() []SemanticError {
	lines := make([]int, 0, len(d.semantic))
	for line := range d.semantic {
		lines = append(lines, line)
	}
	sort.Ints(lines)

	out := make([]SemanticError, len(lines))
	for i, line := range lines {
		out[i] = SemanticError{Line: line, Message: d.semantic[line]}
	}
	return out
}

// WriteSyntaxReport writes one line per recovery event, or the fixed
// no-error line.
func WriteSyntaxReport(w io.Writer, errs []SyntaxError) error {
	if len(errs) == 0 {
		_, err := io.WriteString(w, NoSyntaxErrors)
		return err
	}
	for _, e := range errs {
		if _, err := fmt.Fprintln(w, e.Error()); err != nil {
			return err
		}
	}
	return nil
}

// WriteSemanticReport writes one line per erroring source line, or the fixed
// no-error line.
func WriteSemanticReport(w io.Writer, errs []SemanticError) error {
	if len(errs) == 0 {
		_, err := io.WriteString(w, NoSemanticErrors)
		return err
	}
	for _, e := range errs {
		if _, err := fmt.Fprintln(w, e.Error()); err != nil {
			return err
		}
	}
	return nil
}

// WriteLexicalReport groups errors by line as "3.\t(lexeme, message) ...".
func WriteLexicalReport(w io.Writer, errs []LexError) error {
	if len(errs) == 0 {
		_, err := io.WriteString(w, NoLexicalErrors)
		return err
	}
	return writeGrouped(w, len(errs), func(i int) (int, string) {
		return errs[i].Line, fmt.Sprintf("(%s, %s)", errs[i].Lexeme, errs[i].Message)
	})
}

// WriteTokens groups tokens by line in the same layout as the lexical report.
func WriteTokens(w io.Writer, tokens []Token) error {
	return writeGrouped(w, len(tokens), func(i int) (int, string) {
		return tokens[i].Line, tokens[i].String()
	})
}

func writeGrouped(w io.Writer, n int, entry func(int) (int, string)) error {
	var sb strings.Builder
	current := -1
	for i := 0; i < n; i++ {
		line, text := entry(i)
		if line != current {
			if current != -1 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "%d.\t", line)
			current = line
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	if n > 0 {
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
