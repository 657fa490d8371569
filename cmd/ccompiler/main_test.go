package main

import (
	"strings"
	"testing"

	"cminus/pkg/compiler"
)

func TestDump(t *testing.T) {
	res := compiler.Compile(testSource, compiler.Options{BuildTree: true})

	var sb strings.Builder
	d := dumpFlags{tokens: true, tree: true, symbols: true, code: true, run: true}
	if !dump(&sb, res, d, 100000) {
		t.Fatalf("dump reported errors:\n%s", sb.String())
	}

	out := sb.String()
	for _, want := range []string{
		"Tokens (",
		"1.\t(KEYWORD, int) (ID, g) (SYMBOL, ;)",
		"Parse tree\nProgram\n",
		"twice",
		"0\t(ASSIGN,#544,500,)",
		"\n42\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestDumpErrors(t *testing.T) {
	res := compiler.Compile("void main(void) {\n  output(q);\n}", compiler.Options{})

	var sb strings.Builder
	if dump(&sb, res, dumpFlags{code: true, run: true}, 100000) {
		t.Fatalf("expected dump to report errors")
	}
	out := sb.String()
	if !strings.Contains(out, "#2 : Semantic Error! 'q' is not defined.") {
		t.Errorf("missing semantic error:\n%s", out)
	}
	if !strings.Contains(out, compiler.CodeNotGenerated) {
		t.Errorf("missing not-generated line:\n%s", out)
	}
}
