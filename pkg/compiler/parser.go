package compiler

// ActionHandler runs semantic actions as the parser meets their markers.
type ActionHandler interface {
	Do(a Action, lexeme string, line int)
}

type frame struct {
	sym  GSymbol
	node *Node // nil for markers, or when no tree is built
}

// Parser is a table-driven LL(1) driver. It never backtracks; every decision
// is a table lookup on the top of the stack and the lookahead category.
//
// Recovery is panic mode:
//   - terminal mismatch: report, skip the lookahead, keep the terminal
//   - empty cell: report, skip the lookahead
//   - synch cell: report the nonterminal as missing and pop it
//
// Reaching end of input with nothing to match halts the parse.
type Parser struct {
	table   *Table
	src     TokenSource
	actions ActionHandler
	diag    *Diagnostics

	look  Token
	stack []frame
	root  *Node
}

// NewParser prepares a parse of src. actions may be nil to only check
// syntax; buildTree enables the parse tree.
func NewParser(table *Table, src TokenSource, actions ActionHandler, diag *Diagnostics, buildTree bool) *Parser {
	p := &Parser{table: table, src: src, actions: actions, diag: diag}
	start := table.Grammar().Start

	var endNode, startNode *Node
	if buildTree {
		p.root = newNode(start, nil)
		startNode = p.root
		endNode = newNode(EndMarker, p.root)
	}
	p.stack = []frame{
		{sym: GSymbol{Kind: Terminal, Name: EndMarker}, node: endNode},
		{sym: GSymbol{Kind: Nonterminal, Name: start}, node: startNode},
	}
	return p
}

func (p *Parser) advance() { p.look = p.src.Next() }

func (p *Parser) pop() frame {
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return f
}

// Parse runs the driver to completion and returns the parse tree, or nil
// when no tree was requested.
func (p *Parser) Parse() *Node {
	p.advance()

	for len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		category := p.look.Category()

		switch top.sym.Kind {
		case Marker:
			p.pop()
			if p.actions != nil {
				p.actions.Do(top.sym.Action, p.look.Lexeme, p.look.Line)
			}

		case Terminal:
			if top.sym.Name == category {
				f := p.pop()
				if f.node != nil {
					f.node.Name = p.leafName()
					f.node.attach()
				}
				if p.look.Type == EOF {
					return p.root
				}
				p.advance()
				continue
			}
			if p.look.Type == EOF {
				p.diag.Syntax(p.look.Line, "Unexpected EOF")
				return p.root
			}
			p.diag.Syntax(p.look.Line, "unexpected %s", category)
			p.advance()

		case Nonterminal:
			entry, ok := p.table.Lookup(top.sym.Name, category)
			switch {
			case !ok:
				if p.look.Type == EOF {
					p.diag.Syntax(p.look.Line, "Unexpected EOF")
					return p.root
				}
				p.diag.Syntax(p.look.Line, "illegal %s", category)
				p.advance()
			case entry.Synch:
				p.diag.Syntax(p.look.Line, "missing %s", top.sym.Name)
				p.pop()
			default:
				p.expand(p.pop(), entry.Alt)
			}
		}
	}
	return p.root
}

// expand pushes alt in reverse so its leftmost symbol is processed first.
func (p *Parser) expand(f frame, alt Alternative) {
	if f.node != nil {
		f.node.attach()
		if len(alt) == 0 {
			f.node.Children = append(f.node.Children, &Node{Name: "epsilon"})
			return
		}
	}

	base := len(p.stack)
	p.stack = append(p.stack, make([]frame, len(alt))...)
	for i, s := range alt {
		var node *Node
		if f.node != nil && s.Kind != Marker {
			node = newNode(s.Name, f.node)
		}
		p.stack[base+len(alt)-1-i] = frame{sym: s, node: node}
	}
}

func (p *Parser) leafName() string {
	if p.look.Type == EOF {
		return EndMarker
	}
	return p.look.String()
}
