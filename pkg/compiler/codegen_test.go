package compiler

import (
	"errors"
	"strings"
	"testing"

	"cminus/pkg/vm"
)

func mustCompile(t *testing.T, src string) *Result {
	t.Helper()
	res := Compile(src, Options{})
	if len(res.LexicalErrors) != 0 {
		t.Fatalf("lexical errors: %v", res.LexicalErrors)
	}
	if len(res.SyntaxErrors) != 0 {
		t.Fatalf("syntax errors: %v", res.SyntaxErrors)
	}
	if len(res.SemanticErrors) != 0 {
		t.Fatalf("semantic errors: %v", res.SemanticErrors)
	}
	return res
}

func TestCodeGenTrace(t *testing.T) {
	res := mustCompile(t, "int main(void){int x; x=1+2; output(x); return 0;}")

	want := []string{
		"(ASSIGN,#544,500,)",
		"(ASSIGN,#544,504,)",
		"(ASSIGN,#0,536,)", // entry function falls through
		"(ASSIGN,504,@500,)",
		"(ADD,#4,500,500)",
		"(ASSIGN,500,504,)",
		"(ADD,504,#0,500)", // int x
		"(ASSIGN,#0,@500,)",
		"(ADD,#4,500,500)",
		"(ASSIGN,#1,508,)",
		"(ASSIGN,#2,512,)",
		"(ADD,508,512,100008)",
		"(ASSIGN,504,536,)",
		"(ADD,#0,536,536)",
		"(ASSIGN,536,512,)",
		"(ASSIGN,100008,508,)",
		"(ASSIGN,508,@512,)",
		"(ASSIGN,504,536,)",
		"(ADD,#0,536,536)",
		"(ASSIGN,@536,508,)",
		"(PRINT,508,,)",
		"(ASSIGN,#0,100012,)",
		"(ASSIGN,100012,@500,)",
		"(ADD,#4,500,500)",
		"(JP,25,,)",
		"(SUB,500,#4,500)",
		"(ASSIGN,@500,540,)",
		"(ASSIGN,540,100004,)",
		"(ASSIGN,504,500,)",
		"(SUB,500,#4,500)",
		"(ASSIGN,@500,540,)",
		"(ASSIGN,540,504,)",
		"(SUB,500,#0,500)",
	}

	if len(res.Code) != len(want) {
		var sb strings.Builder
		res.WriteCode(&sb)
		t.Fatalf("expected %d instructions, got %d:\n%s", len(want), len(res.Code), sb.String())
	}
	for pc, ins := range res.Code {
		if ins.String() != want[pc] {
			t.Errorf("pc %d: expected %s, got %s", pc, want[pc], ins)
		}
	}

	var sb strings.Builder
	if err := res.WriteCode(&sb); err != nil {
		t.Fatalf("WriteCode failed: %v", err)
	}
	if !strings.HasPrefix(sb.String(), "0\t(ASSIGN,#544,500,)\n1\t(ASSIGN,#544,504,)\n") {
		t.Errorf("unexpected dump head:\n%s", sb.String())
	}

	row, ok := res.Symbols.Lookup("main")
	if !ok || row.Addr != DirectAddr(3) || row.RetAddr != 100004 {
		t.Errorf("main row: got %+v", row)
	}
}

func TestCodeGenBackpatching(t *testing.T) {
	programs := []string{
		"void main(void) { int i; i = 0; while (i < 3) { if (i == 1) break; else i = i + 1; } }",
		"int f(int a) { if (a) return 1; return 2; }\nvoid main(void) { output(f(0)); }",
		"void g(void) { return; }\nvoid main(void) { while (1) { while (1) break; break; } g(); }",
	}
	for _, src := range programs {
		res := mustCompile(t, src)
		if pcs := res.Unresolved(); len(pcs) != 0 {
			t.Errorf("%q: unresolved slots %v", src, pcs)
		}
		if _, err := res.Program(); err != nil {
			t.Errorf("%q: Program failed: %v", src, err)
		}
	}
}

func TestCodeGenFunctionSkipSlot(t *testing.T) {
	res := mustCompile(t, "void helper(void) { output(1); }\nvoid main(void) { }")

	// helper's skip slot jumps past its epilogue
	ins := res.Code[2]
	if ins.Op != vm.OpJP {
		t.Fatalf("pc 2: expected JP, got %s", ins)
	}
	entry, _ := res.Symbols.Lookup("main")
	if ins.Args[0] != vm.Dir(entry.Addr.Value-1) {
		t.Errorf("helper skip slot should land on main's slot, got %s (main at %d)", ins, entry.Addr.Value)
	}
	if got := res.Code[entry.Addr.Value-1]; got.String() != "(ASSIGN,#0,536,)" {
		t.Errorf("main slot: expected no-op, got %s", got)
	}
}

func TestCodeGenEntryPoint(t *testing.T) {
	src := "void start(void) { output(7); }"

	res := Compile(src, Options{EntryPoint: "start"})
	if got := res.Code[2].String(); got != "(ASSIGN,#0,536,)" {
		t.Errorf("start slot: expected no-op, got %s", got)
	}

	res = Compile(src, Options{})
	if res.Code[2].Op != vm.OpJP {
		t.Errorf("start is not the entry: expected JP over it, got %s", res.Code[2])
	}
}

func TestCodeGenTruncatedInput(t *testing.T) {
	res := Compile("int main(void) {\n int x;\n", Options{})
	if len(res.SyntaxErrors) != 1 {
		t.Fatalf("expected a single syntax error, got %v", res.SyntaxErrors)
	}
	if pcs := res.Unresolved(); len(pcs) != 1 || pcs[0] != 2 {
		t.Errorf("expected only the function slot unresolved, got %v", pcs)
	}
	if _, err := res.Program(); !errors.Is(err, vm.ErrUnresolved) {
		t.Errorf("expected ErrUnresolved, got %v", err)
	}

	var sb strings.Builder
	res.WriteCode(&sb)
	if strings.Contains(sb.String(), "\n2\t") {
		t.Errorf("unresolved slot should be skipped in the dump:\n%s", sb.String())
	}
}

func TestCodeGenSaveMaterializesFrameCondition(t *testing.T) {
	res := mustCompile(t, "void main(void) { int c; if (c) c = 1; }")

	var jpf vm.Instruction
	for _, ins := range res.Code {
		if ins.Op == vm.OpJPF {
			jpf = ins
		}
	}
	if jpf.Op != vm.OpJPF {
		t.Fatalf("no JPF emitted")
	}
	if jpf.Args[0].Mode != vm.ModeDirect || jpf.Args[0].Value <= TempBase {
		t.Errorf("condition should be read from a temporary, got %s", jpf)
	}
}

func TestCodeGenStackSettles(t *testing.T) {
	diag := NewDiagnostics()
	gen := NewCodeGen(NewSymbolTable(), diag, "")
	tokens, _ := Tokenize("int g[2];\nint f(int a[]) { return a[1]; }\nvoid main(void) { g[1] = f(g) * 2; output(g[1]); }")
	NewParser(DefaultTable(), NewSliceSource(tokens), gen, diag, false).Parse()

	if len(diag.SyntaxErrors()) != 0 || diag.HasSemantic() {
		t.Fatalf("unexpected errors: %v %v", diag.SyntaxErrors(), diag.SemanticErrors())
	}
	if n := len(gen.Stack()); n != 0 {
		t.Errorf("evaluation stack should be empty after a clean parse, got %v", gen.Stack())
	}
}

func TestCodeGenArityMismatchKeepsStack(t *testing.T) {
	diag := NewDiagnostics()
	gen := NewCodeGen(NewSymbolTable(), diag, "")
	tokens, _ := Tokenize("int f(int a, int b) { return a + b; }\nvoid main(void) {\n  output(f(1) + f(1, 2, 3));\n}")
	NewParser(DefaultTable(), NewSliceSource(tokens), gen, diag, false).Parse()

	errs := diag.SemanticErrors()
	if len(errs) != 1 || errs[0].Line != 3 {
		t.Fatalf("expected one semantic error on line 3, got %v", errs)
	}
	if n := len(gen.Stack()); n != 0 {
		t.Errorf("evaluation stack should be empty, got %v", gen.Stack())
	}
}
