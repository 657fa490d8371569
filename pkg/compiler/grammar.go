package compiler

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
)

//go:embed grammar.txt
var defaultGrammar string

// Epsilon spells the empty alternative in grammar text.
const Epsilon = "EPSILON"

// SymbolKind tells the three kinds of grammar symbols apart.
type SymbolKind int

const (
	Terminal SymbolKind = iota
	Nonterminal
	Marker
)

// GSymbol is one element of an alternative.
type GSymbol struct {
	Kind   SymbolKind
	Name   string // terminal or nonterminal name
	Action Action // set for markers
}

func (s GSymbol) String() string {
	if s.Kind == Marker {
		return s.Action.String()
	}
	return s.Name
}

// Alternative is one right-hand side. An empty alternative derives epsilon.
type Alternative []GSymbol

func (a Alternative) String() string {
	if len(a) == 0 {
		return Epsilon
	}
	parts := make([]string, len(a))
	for i, s := range a {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// Grammar maps each nonterminal to its alternatives in source order.
type Grammar struct {
	Start        string
	Nonterminals []string // declaration order
	Terminals    []string // sorted, includes the end marker
	Rules        map[string][]Alternative
}

// DefaultGrammar parses the embedded C-minus grammar.
func DefaultGrammar() *Grammar {
	g, err := ParseGrammar(strings.NewReader(defaultGrammar))
	if err != nil {
		panic(fmt.Sprintf("embedded grammar: %v", err))
	}
	return g
}

// ParseGrammar reads "Lhs -> alt | alt" lines. A nonterminal may appear on
// several lines; its alternatives accumulate in order. The first left-hand
// side is the start symbol. Lines starting with "//" are comments.
func ParseGrammar(r io.Reader) (*Grammar, error) {
	type rawAlt struct {
		line   int
		fields []string
	}

	g := &Grammar{Rules: make(map[string][]Alternative)}
	raw := make(map[string][]rawAlt)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		lhs, rhs, ok := strings.Cut(line, "->")
		if !ok {
			return nil, fmt.Errorf("grammar line %d: missing '->'", lineNo)
		}
		lhs = strings.TrimSpace(lhs)
		if lhs == "" || strings.ContainsAny(lhs, " \t") {
			return nil, fmt.Errorf("grammar line %d: bad left-hand side %q", lineNo, lhs)
		}

		if _, seen := raw[lhs]; !seen {
			raw[lhs] = nil
			g.Nonterminals = append(g.Nonterminals, lhs)
		}
		for _, alt := range strings.Split(rhs, "|") {
			fields := strings.Fields(alt)
			if len(fields) == 0 {
				return nil, fmt.Errorf("grammar line %d: empty alternative for %s (write %s)", lineNo, lhs, Epsilon)
			}
			raw[lhs] = append(raw[lhs], rawAlt{line: lineNo, fields: fields})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading grammar: %w", err)
	}
	if len(g.Nonterminals) == 0 {
		return nil, fmt.Errorf("grammar is empty")
	}
	g.Start = g.Nonterminals[0]

	terminals := map[string]bool{EndMarker: true}
	for _, nt := range g.Nonterminals {
		for _, ra := range raw[nt] {
			alt, err := g.resolve(ra.fields, ra.line, func(name string) bool {
				_, ok := raw[name]
				return ok
			})
			if err != nil {
				return nil, err
			}
			for _, s := range alt {
				if s.Kind == Terminal {
					terminals[s.Name] = true
				}
			}
			g.Rules[nt] = append(g.Rules[nt], alt)
		}
	}

	for t := range terminals {
		g.Terminals = append(g.Terminals, t)
	}
	sort.Strings(g.Terminals)
	return g, nil
}

func (g *Grammar) resolve(fields []string, line int, isNonterminal func(string) bool) (Alternative, error) {
	if len(fields) == 1 && fields[0] == Epsilon {
		return Alternative{}, nil
	}
	alt := make(Alternative, 0, len(fields))
	for _, f := range fields {
		switch {
		case f == Epsilon:
			return nil, fmt.Errorf("grammar line %d: %s mixed with other symbols", line, Epsilon)
		case strings.HasPrefix(f, "#") && len(f) > 1:
			a, ok := LookupAction(f[1:])
			if !ok {
				return nil, fmt.Errorf("grammar line %d: unknown action %s", line, f)
			}
			alt = append(alt, GSymbol{Kind: Marker, Name: f, Action: a})
		case isNonterminal(f):
			alt = append(alt, GSymbol{Kind: Nonterminal, Name: f})
		default:
			alt = append(alt, GSymbol{Kind: Terminal, Name: f})
		}
	}
	return alt, nil
}

// IsNonterminal reports whether name has a rule.
func (g *Grammar) IsNonterminal(name string) bool {
	_, ok := g.Rules[name]
	return ok
}
