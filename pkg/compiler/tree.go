package compiler

import (
	"io"
	"strings"
)

// Node is a parse tree node. A node joins its parent only once the parser
// expands or matches it, so symbols dropped during recovery never appear.
type Node struct {
	Name     string
	Children []*Node

	parent *Node
}

func newNode(name string, parent *Node) *Node {
	return &Node{Name: name, parent: parent}
}

// attach links n under the parent it was created for.
func (n *Node) attach() {
	if n.parent != nil {
		n.parent.Children = append(n.parent.Children, n)
		n.parent = nil
	}
}

// Render writes the tree with box-drawing guides, one node per line.
func (n *Node) Render(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(n.Name)
	sb.WriteByte('\n')
	n.renderChildren(&sb, "")
	_, err := io.WriteString(w, sb.String())
	return err
}

func (n *Node) renderChildren(sb *strings.Builder, indent string) {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		branch, fill := "├── ", "│   "
		if last {
			branch, fill = "└── ", "    "
		}
		sb.WriteString(indent)
		sb.WriteString(branch)
		sb.WriteString(c.Name)
		sb.WriteByte('\n')
		c.renderChildren(sb, indent+fill)
	}
}

func (n *Node) String() string {
	var sb strings.Builder
	n.Render(&sb)
	return sb.String()
}
