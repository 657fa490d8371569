package compiler

import (
	"errors"
	"fmt"
	"io"

	"cminus/pkg/vm"
)

// ErrNotGenerated is returned by Result.Program when semantic errors
// suppressed code generation.
var ErrNotGenerated = errors.New("code not generated")

// Options tunes a compilation. The zero value compiles with the embedded
// grammar, "main" as the entry function and no parse tree.
type Options struct {
	EntryPoint string
	BuildTree  bool
	Table      *Table // nil means DefaultTable()
}

// Result is everything one compilation produced.
type Result struct {
	Code           []vm.Instruction
	Tree           *Node
	Tokens         []Token
	Symbols        *SymbolTable
	LexicalErrors  []LexError
	SyntaxErrors   []SyntaxError
	SemanticErrors []SemanticError
}

// Compile scans, parses and generates code for src in a single pass.
func Compile(src string, opts Options) *Result {
	lx := NewLexer(src)
	res := CompileTokens(lx, opts)
	res.LexicalErrors = lx.Errors()
	return res
}

// CompileTokens runs the parser and code generator over an existing token
// source.
func CompileTokens(ts TokenSource, opts Options) *Result {
	table := opts.Table
	if table == nil {
		table = DefaultTable()
	}

	diag := NewDiagnostics()
	syms := NewSymbolTable()
	gen := NewCodeGen(syms, diag, opts.EntryPoint)
	rec := &recordingSource{src: ts}

	tree := NewParser(table, rec, gen, diag, opts.BuildTree).Parse()

	return &Result{
		Code:           gen.Code(),
		Tree:           tree,
		Tokens:         rec.tokens,
		Symbols:        syms,
		SyntaxErrors:   diag.SyntaxErrors(),
		SemanticErrors: diag.SemanticErrors(),
	}
}

// Generated reports whether the instruction dump is emitted.
func (r *Result) Generated() bool { return len(r.SemanticErrors) == 0 }

// Unresolved lists reserved slots that were never patched.
func (r *Result) Unresolved() []int {
	var pcs []int
	for pc, ins := range r.Code {
		if !ins.Resolved() {
			pcs = append(pcs, pc)
		}
	}
	return pcs
}

// Program returns the code ready to run on a vm.Machine.
func (r *Result) Program() ([]vm.Instruction, error) {
	if !r.Generated() {
		return nil, ErrNotGenerated
	}
	if pcs := r.Unresolved(); len(pcs) > 0 {
		return nil, fmt.Errorf("%w at pc %v", vm.ErrUnresolved, pcs)
	}
	return r.Code, nil
}

// WriteCode writes the instruction dump, "pc\t(OP,a,b,c)" per line, or the
// fixed not-generated line. Unpatched slots, left only by a parse that hit
// end of input early, are skipped.
func (r *Result) WriteCode(w io.Writer) error {
	if !r.Generated() {
		_, err := io.WriteString(w, CodeNotGenerated)
		return err
	}
	for pc, ins := range r.Code {
		if !ins.Resolved() {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\n", pc, ins); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) WriteSyntaxErrors(w io.Writer) error {
	return WriteSyntaxReport(w, r.SyntaxErrors)
}

func (r *Result) WriteSemanticErrors(w io.Writer) error {
	return WriteSemanticReport(w, r.SemanticErrors)
}

func (r *Result) WriteLexicalErrors(w io.Writer) error {
	return WriteLexicalReport(w, r.LexicalErrors)
}

func (r *Result) WriteTokens(w io.Writer) error {
	return WriteTokens(w, r.Tokens)
}

// WriteTree writes the parse tree; nothing when none was built.
func (r *Result) WriteTree(w io.Writer) error {
	if r.Tree == nil {
		return nil
	}
	return r.Tree.Render(w)
}
