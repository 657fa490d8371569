// Command ccompiler dumps the intermediate products of a compilation: the
// token stream, the parse table, the parse tree, the symbol table and the
// generated code. With -i it reads programs interactively.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"cminus/pkg/compiler"
	"cminus/pkg/config"
	"cminus/pkg/vm"
)

const (
	historyFile = ".cminus_history"
	promptMain  = "c-> "
	promptCont  = "... "
)

const testSource = `int g;
int twice(int x) { return x + x; }
void main(void) {
  g = twice(21);
  output(g);
}
`

type dumpFlags struct {
	tokens, table, tree, symbols, code, firstFollow, run bool
}

func main() {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	var d dumpFlags
	flag.BoolVar(&d.tokens, "tokens", false, "dump tokens")
	flag.BoolVar(&d.table, "table", false, "dump the parse table and its conflicts")
	flag.BoolVar(&d.tree, "tree", false, "dump the parse tree")
	flag.BoolVar(&d.symbols, "symbols", false, "dump the symbol table")
	flag.BoolVar(&d.code, "code", true, "dump the generated code")
	flag.BoolVar(&d.firstFollow, "first-follow", false, "dump FIRST/FOLLOW sets as JSON")
	flag.BoolVar(&d.run, "exec", false, "run the generated code")
	interactive := flag.Bool("i", false, "read programs from a prompt")
	grammar := flag.String("grammar", cfg.Grammar, "grammar file (default: embedded)")
	entry := flag.String("entry", cfg.Entry, "entry function")
	flag.Parse()

	cfg.Grammar = *grammar
	cfg.Entry = *entry
	table, err := cfg.Table()
	if err != nil {
		fmt.Fprintln(os.Stderr, "grammar error:", err)
		os.Exit(1)
	}

	if d.firstFollow {
		g := table.Grammar()
		if err := compiler.ComputeFirstFollow(g).WriteJSON(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "write error:", err)
			os.Exit(1)
		}
	}
	if d.table {
		table.Dump(os.Stdout)
		for _, c := range table.Conflicts() {
			fmt.Println("conflict:", c)
		}
		fmt.Println()
	}

	opts := compiler.Options{EntryPoint: cfg.Entry, BuildTree: d.tree, Table: table}
	if *interactive {
		os.Exit(repl(opts, d, cfg.MaxSteps))
	}

	src := testSource
	if flag.NArg() > 0 {
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}
	if !dump(os.Stdout, compiler.Compile(src, opts), d, cfg.MaxSteps) {
		os.Exit(1)
	}
}

// dump prints the requested sections for one compilation and reports whether
// it was free of errors.
func dump(w io.Writer, res *compiler.Result, d dumpFlags, maxSteps int) bool {
	if d.tokens {
		fmt.Fprintf(w, "Tokens (%d)\n", len(res.Tokens))
		res.WriteTokens(w)
		fmt.Fprintln(w)
	}
	if d.tree && res.Tree != nil {
		fmt.Fprintln(w, "Parse tree")
		res.WriteTree(w)
		fmt.Fprintln(w)
	}
	if d.symbols {
		fmt.Fprintln(w, "Symbols (globals and functions)")
		res.Symbols.Dump(w)
		fmt.Fprintln(w)
	}

	ok := true
	if len(res.LexicalErrors) > 0 {
		res.WriteLexicalErrors(w)
		fmt.Fprintln(w)
		ok = false
	}
	if len(res.SyntaxErrors) > 0 {
		res.WriteSyntaxErrors(w)
		ok = false
	}
	if len(res.SemanticErrors) > 0 {
		res.WriteSemanticErrors(w)
		ok = false
	}

	if d.code {
		fmt.Fprintln(w, "Generated code")
		res.WriteCode(w)
		fmt.Fprintln(w)
	}
	if d.run && ok {
		program, err := res.Program()
		if err != nil {
			fmt.Fprintln(w, "run error:", err)
			return false
		}
		m := vm.NewMachine(program)
		m.MaxSteps = maxSteps
		m.Output = w
		if err := m.Run(); err != nil {
			fmt.Fprintln(w, "run error:", err)
			return false
		}
	}
	return ok
}

func repl(opts compiler.Options, d dumpFlags, maxSteps int) int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("C-minus; end a program with an empty line, :quit to exit.")
	for {
		src, ok := readProgram(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		switch strings.TrimSpace(src) {
		case "":
			continue
		case ":quit":
			return 0
		}
		dump(os.Stdout, compiler.Compile(src, opts), d, maxSteps)
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}
}

// readProgram collects lines until an empty one. A ':' command is returned
// on its own.
func readProgram(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return b.String(), true
		}
		if b.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			return line, true
		}
		if strings.TrimSpace(line) == "" {
			return b.String(), true
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
