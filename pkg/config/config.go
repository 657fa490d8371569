// Package config resolves compiler settings from defaults, an optional .env
// file and CMINUS_* environment variables. Command-line flags are applied on
// top by the callers through Bind.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"cminus/pkg/compiler"
)

// Environment keys.
const (
	EnvOutDir      = "CMINUS_OUT_DIR"
	EnvEntry       = "CMINUS_ENTRY"
	EnvTree        = "CMINUS_TREE"
	EnvRun         = "CMINUS_RUN"
	EnvGrammar     = "CMINUS_GRAMMAR"
	EnvFirstFollow = "CMINUS_FIRST_FOLLOW"
	EnvMaxSteps    = "CMINUS_MAX_STEPS"
	EnvJobs        = "CMINUS_JOBS"
)

const DefaultEnvFile = ".env"

type Config struct {
	OutDir      string // "" writes reports next to each input
	Entry       string
	Tree        bool
	Run         bool
	Grammar     string // "" uses the embedded grammar
	FirstFollow string // "" computes the sets from the grammar
	MaxSteps    int
	Jobs        int
}

func Default() Config {
	return Config{
		Entry:    "main",
		Tree:     true,
		MaxSteps: 10_000_000,
		Jobs:     runtime.NumCPU(),
	}
}

// Load returns the defaults overridden by envFile, if it exists, and then by
// the process environment.
func Load(envFile string) (Config, error) {
	cfg := Default()

	vars := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			vars = fileVars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return cfg, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}
	for _, key := range []string{EnvOutDir, EnvEntry, EnvTree, EnvRun, EnvGrammar, EnvFirstFollow, EnvMaxSteps, EnvJobs} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}

	if err := cfg.apply(vars); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) apply(vars map[string]string) error {
	if v, ok := vars[EnvOutDir]; ok {
		c.OutDir = v
	}
	if v, ok := vars[EnvEntry]; ok && v != "" {
		c.Entry = v
	}
	if v, ok := vars[EnvGrammar]; ok {
		c.Grammar = v
	}
	if v, ok := vars[EnvFirstFollow]; ok {
		c.FirstFollow = v
	}

	var err error
	if c.Tree, err = boolVar(vars, EnvTree, c.Tree); err != nil {
		return err
	}
	if c.Run, err = boolVar(vars, EnvRun, c.Run); err != nil {
		return err
	}
	if c.MaxSteps, err = intVar(vars, EnvMaxSteps, c.MaxSteps); err != nil {
		return err
	}
	if c.Jobs, err = intVar(vars, EnvJobs, c.Jobs); err != nil {
		return err
	}
	if c.Jobs < 1 {
		c.Jobs = 1
	}
	return nil
}

func boolVar(vars map[string]string, key string, def bool) (bool, error) {
	v, ok := vars[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func intVar(vars map[string]string, key string, def int) (int, error) {
	v, ok := vars[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// Bind registers one flag per setting on fs, defaulting to the values
// already in c, so parsed flags take precedence over the environment.
func (c *Config) Bind(flags *flag.FlagSet) {
	flags.StringVar(&c.OutDir, "out", c.OutDir, "directory for report files (default: next to each input)")
	flags.StringVar(&c.Entry, "entry", c.Entry, "function that execution falls into")
	flags.BoolVar(&c.Tree, "tree", c.Tree, "write parse_tree.txt")
	flags.BoolVar(&c.Run, "run", c.Run, "run the generated code on the stack machine")
	flags.StringVar(&c.Grammar, "grammar", c.Grammar, "grammar file (default: embedded C-minus grammar)")
	flags.StringVar(&c.FirstFollow, "first-follow", c.FirstFollow, "FIRST/FOLLOW JSON file (default: computed)")
	flags.IntVar(&c.MaxSteps, "max-steps", c.MaxSteps, "instruction budget for -run")
	flags.IntVar(&c.Jobs, "j", c.Jobs, "files compiled concurrently")
}

// Table builds the parse table the settings ask for. With no grammar file it
// is the shared embedded table.
func (c Config) Table() (*compiler.Table, error) {
	if c.Grammar == "" && c.FirstFollow == "" {
		return compiler.DefaultTable(), nil
	}

	g := compiler.DefaultGrammar()
	if c.Grammar != "" {
		f, err := os.Open(c.Grammar)
		if err != nil {
			return nil, fmt.Errorf("opening grammar: %w", err)
		}
		defer f.Close()
		if g, err = compiler.ParseGrammar(f); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Grammar, err)
		}
	}

	if c.FirstFollow == "" {
		return compiler.BuildTable(g, compiler.ComputeFirstFollow(g)), nil
	}
	f, err := os.Open(c.FirstFollow)
	if err != nil {
		return nil, fmt.Errorf("opening first/follow sets: %w", err)
	}
	defer f.Close()
	ff, err := compiler.LoadFirstFollow(f, g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.FirstFollow, err)
	}
	return compiler.BuildTable(g, ff), nil
}
