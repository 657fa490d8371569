package compiler

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// termSet is a set of terminal names. FIRST sets may also hold Epsilon.
type termSet map[string]bool

func (s termSet) addAll(o termSet, skipEpsilon bool) bool {
	changed := false
	for t := range o {
		if skipEpsilon && t == Epsilon {
			continue
		}
		if !s[t] {
			s[t] = true
			changed = true
		}
	}
	return changed
}

func (s termSet) sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FirstFollow holds the FIRST and FOLLOW set of every nonterminal.
type FirstFollow struct {
	First  map[string]termSet
	Follow map[string]termSet
}

// ComputeFirstFollow runs the usual fixpoint over g. Action markers derive
// nothing and are skipped.
func ComputeFirstFollow(g *Grammar) *FirstFollow {
	ff := &FirstFollow{
		First:  make(map[string]termSet, len(g.Nonterminals)),
		Follow: make(map[string]termSet, len(g.Nonterminals)),
	}
	for _, nt := range g.Nonterminals {
		ff.First[nt] = termSet{}
		ff.Follow[nt] = termSet{}
	}

	for changed := true; changed; {
		changed = false
		for _, nt := range g.Nonterminals {
			for _, alt := range g.Rules[nt] {
				first := ff.FirstOf(alt)
				if ff.First[nt].addAll(first, false) {
					changed = true
				}
			}
		}
	}

	ff.Follow[g.Start][EndMarker] = true
	for changed := true; changed; {
		changed = false
		for _, nt := range g.Nonterminals {
			for _, alt := range g.Rules[nt] {
				for i, s := range alt {
					if s.Kind != Nonterminal {
						continue
					}
					rest := ff.FirstOf(alt[i+1:])
					if ff.Follow[s.Name].addAll(rest, true) {
						changed = true
					}
					if rest[Epsilon] && ff.Follow[s.Name].addAll(ff.Follow[nt], false) {
						changed = true
					}
				}
			}
		}
	}
	return ff
}

// FirstOf returns FIRST of a symbol sequence; it contains Epsilon when the
// whole sequence is nullable.
func (ff *FirstFollow) FirstOf(seq Alternative) termSet {
	out := termSet{}
	for _, s := range seq {
		switch s.Kind {
		case Marker:
			continue
		case Terminal:
			out[s.Name] = true
			return out
		case Nonterminal:
			first := ff.First[s.Name]
			out.addAll(first, true)
			if !first[Epsilon] {
				return out
			}
		}
	}
	out[Epsilon] = true
	return out
}

// jsonFirstFollow is the on-disk form: {"first": {A: [...]}, "follow": {...}}.
type jsonFirstFollow struct {
	First  map[string][]string `json:"first"`
	Follow map[string][]string `json:"follow"`
}

// LoadFirstFollow reads precomputed sets. Every nonterminal of g must have
// both sets.
func LoadFirstFollow(r io.Reader, g *Grammar) (*FirstFollow, error) {
	var raw jsonFirstFollow
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding first/follow sets: %w", err)
	}

	ff := &FirstFollow{
		First:  make(map[string]termSet, len(raw.First)),
		Follow: make(map[string]termSet, len(raw.Follow)),
	}
	for _, nt := range g.Nonterminals {
		first, ok := raw.First[nt]
		if !ok {
			return nil, fmt.Errorf("first/follow sets: no FIRST set for %s", nt)
		}
		follow, ok := raw.Follow[nt]
		if !ok {
			return nil, fmt.Errorf("first/follow sets: no FOLLOW set for %s", nt)
		}
		ff.First[nt] = toSet(first)
		ff.Follow[nt] = toSet(follow)
	}
	return ff, nil
}

func toSet(names []string) termSet {
	s := make(termSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// WriteJSON writes the sets in the format LoadFirstFollow reads.
func (ff *FirstFollow) WriteJSON(w io.Writer) error {
	raw := jsonFirstFollow{
		First:  make(map[string][]string, len(ff.First)),
		Follow: make(map[string][]string, len(ff.Follow)),
	}
	for nt, s := range ff.First {
		raw.First[nt] = s.sorted()
	}
	for nt, s := range ff.Follow {
		raw.Follow[nt] = s.sorted()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}
