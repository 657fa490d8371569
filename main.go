package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"cminus/pkg/asm"
	"cminus/pkg/compiler"
	"cminus/pkg/config"
	"cminus/pkg/utils"
	"cminus/pkg/vm"
)

// Report file names, one set per compiled input.
const (
	codeFile          = "output.txt"
	semanticErrorFile = "semantic_errors.txt"
	syntaxErrorFile   = "syntax_errors.txt"
	lexicalErrorFile  = "lexical_errors.txt"
	tokensFile        = "tokens.txt"
	treeFile          = "parse_tree.txt"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(envFileArg(args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	flags := flag.NewFlagSet("cminus", flag.ContinueOnError)
	flags.String("env", config.DefaultEnvFile, "settings file read before the environment")
	cfg.Bind(flags)
	runDump := flags.String("run-dump", "", "assemble an existing output.txt and run it")
	verbose := flags.Bool("v", false, "print a summary per file")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "usage: cminus [flags] file.c...\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}

	inputs := flags.Args()
	if len(inputs) == 0 && *runDump == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide C-minus files to compile, or -run-dump <output.txt>")
		flags.Usage()
		return 2
	}

	status := 0
	if len(inputs) > 0 {
		if err := compileAll(cfg, inputs, *verbose); err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
		}
	}
	if *runDump != "" {
		if err := runDumpFile(*runDump, cfg.MaxSteps); err != nil {
			fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", *runDump, err)
			status = 1
		}
	}
	return status
}

// envFileArg finds -env ahead of flag parsing, since the file it names
// supplies the flag defaults.
func envFileArg(args []string) string {
	for i, a := range args {
		switch {
		case a == "--":
			return config.DefaultEnvFile
		case a == "-env" || a == "--env":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-env="):
			return strings.TrimPrefix(a, "-env=")
		case strings.HasPrefix(a, "--env="):
			return strings.TrimPrefix(a, "--env=")
		}
	}
	return config.DefaultEnvFile
}

// fileResult is what one worker hands back for printing in input order.
type fileResult struct {
	dir    string
	res    *compiler.Result
	output bytes.Buffer
	runErr error
	steps  int
}

func compileAll(cfg config.Config, inputs []string, verbose bool) error {
	table, err := cfg.Table()
	if err != nil {
		return err
	}
	opts := compiler.Options{EntryPoint: cfg.Entry, BuildTree: cfg.Tree, Table: table}

	results := make([]*fileResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(cfg.Jobs)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			fr, err := compileFile(cfg, opts, input, len(inputs) > 1)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			results[i] = fr
			return nil
		})
	}
	err = g.Wait()

	for i, fr := range results {
		if fr == nil {
			continue
		}
		if verbose {
			printSummary(inputs[i], fr)
		}
		if cfg.Run {
			os.Stdout.Write(fr.output.Bytes())
			if fr.runErr != nil {
				fmt.Fprintf(os.Stderr, "%s: run: %v\n", inputs[i], fr.runErr)
			}
		}
	}
	return err
}

func compileFile(cfg config.Config, opts compiler.Options, input string, shared bool) (*fileResult, error) {
	source, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	dir, err := utils.ReportDir(input, cfg.OutDir, shared)
	if err != nil {
		return nil, err
	}

	fr := &fileResult{dir: dir, res: compiler.Compile(string(source), opts)}
	if err := writeReports(dir, fr.res, cfg.Tree); err != nil {
		return nil, err
	}

	if cfg.Run && fr.res.Generated() {
		program, err := fr.res.Program()
		if err != nil {
			fr.runErr = err
			return fr, nil
		}
		m := vm.NewMachine(program)
		m.MaxSteps = cfg.MaxSteps
		m.Output = &fr.output
		fr.runErr = m.Run()
		fr.steps = m.Steps
	}
	return fr, nil
}

type report struct {
	name  string
	write func(io.Writer) error
}

func writeReports(dir string, res *compiler.Result, tree bool) error {
	reports := []report{
		{codeFile, res.WriteCode},
		{semanticErrorFile, res.WriteSemanticErrors},
		{syntaxErrorFile, res.WriteSyntaxErrors},
		{lexicalErrorFile, res.WriteLexicalErrors},
		{tokensFile, res.WriteTokens},
	}
	if tree {
		reports = append(reports, report{treeFile, res.WriteTree})
	}

	for _, r := range reports {
		if err := writeReport(filepath.Join(dir, r.name), r.write); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func printSummary(input string, fr *fileResult) {
	res := fr.res
	fmt.Printf("%s: %d instructions, %d lexical, %d syntax, %d semantic errors -> %s\n",
		input, len(res.Code), len(res.LexicalErrors), len(res.SyntaxErrors), len(res.SemanticErrors), fr.dir)
	if fr.steps > 0 {
		fmt.Printf("%s: ran %d steps\n", input, fr.steps)
	}
}

func runDumpFile(path string, maxSteps int) error {
	dump, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if string(bytes.TrimSpace(dump)) == compiler.CodeNotGenerated {
		return compiler.ErrNotGenerated
	}
	program, _, err := asm.Assemble(string(dump))
	if err != nil {
		return err
	}

	m := vm.NewMachine(program)
	m.MaxSteps = maxSteps
	if err := m.Run(); err != nil {
		if errors.Is(err, vm.ErrStepLimit) {
			return fmt.Errorf("%w; raise -max-steps", err)
		}
		return err
	}
	return nil
}
