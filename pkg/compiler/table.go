package compiler

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Entry is a parsing table cell: an alternative to expand, or synch.
type Entry struct {
	Alt   Alternative
	Index int // position of Alt among the nonterminal's alternatives
	Synch bool
}

type cell struct {
	nonterminal string
	terminal    string
}

// Conflict records a cell claimed by more than one alternative. The earlier
// alternative keeps the cell.
type Conflict struct {
	Nonterminal string
	Terminal    string
	Kept        Alternative
	Lost        Alternative
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s, %s: kept %q over %q", c.Nonterminal, c.Terminal, c.Kept, c.Lost)
}

// Table is the LL(1) parsing table. It is read-only once built and may be
// shared by any number of parsers.
type Table struct {
	grammar   *Grammar
	cells     map[cell]Entry
	conflicts []Conflict
}

// BuildTable fills the table from FIRST/FOLLOW. For A -> α every terminal of
// FIRST(α) maps to α, and every terminal of FOLLOW(A) too when α is nullable;
// a cell keeps the first alternative that claims it. Cells of FOLLOW(A) left
// empty become synch.
func BuildTable(g *Grammar, ff *FirstFollow) *Table {
	t := &Table{grammar: g, cells: make(map[cell]Entry)}

	for _, nt := range g.Nonterminals {
		for i, alt := range g.Rules[nt] {
			first := ff.FirstOf(alt)
			for _, term := range first.sorted() {
				if term == Epsilon {
					continue
				}
				t.claim(nt, term, alt, i)
			}
			if first[Epsilon] {
				for _, term := range ff.Follow[nt].sorted() {
					t.claim(nt, term, alt, i)
				}
			}
		}
		for _, term := range ff.Follow[nt].sorted() {
			k := cell{nt, term}
			if _, ok := t.cells[k]; !ok {
				t.cells[k] = Entry{Synch: true, Index: -1}
			}
		}
	}
	return t
}

func (t *Table) claim(nt, term string, alt Alternative, index int) {
	k := cell{nt, term}
	if prev, ok := t.cells[k]; ok {
		if prev.Index != index {
			t.conflicts = append(t.conflicts, Conflict{Nonterminal: nt, Terminal: term, Kept: prev.Alt, Lost: alt})
		}
		return
	}
	t.cells[k] = Entry{Alt: alt, Index: index}
}

// Lookup returns the cell for (nonterminal, terminal); ok is false for an
// empty cell.
func (t *Table) Lookup(nonterminal, terminal string) (Entry, bool) {
	e, ok := t.cells[cell{nonterminal, terminal}]
	return e, ok
}

func (t *Table) Grammar() *Grammar { return t.grammar }

// Conflicts lists the cells where a later alternative lost to an earlier one.
func (t *Table) Conflicts() []Conflict { return t.conflicts }

// Dump writes every non-empty cell, one per line, sorted.
func (t *Table) Dump(w io.Writer) error {
	keys := make([]cell, 0, len(t.cells))
	for k := range t.cells {
		keys = append(keys, k)
	}
	order := make(map[string]int, len(t.grammar.Nonterminals))
	for i, nt := range t.grammar.Nonterminals {
		order[nt] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].nonterminal != keys[j].nonterminal {
			return order[keys[i].nonterminal] < order[keys[j].nonterminal]
		}
		return keys[i].terminal < keys[j].terminal
	})

	var sb strings.Builder
	for _, k := range keys {
		e := t.cells[k]
		rhs := e.Alt.String()
		if e.Synch {
			rhs = "synch"
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", k.nonterminal, k.terminal, rhs)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

var (
	defaultTableOnce sync.Once
	defaultTable     *Table
)

// DefaultTable returns the table for the embedded grammar, built on first use.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		g := DefaultGrammar()
		defaultTable = BuildTable(g, ComputeFirstFollow(g))
	})
	return defaultTable
}
