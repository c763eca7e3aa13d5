package tree

import (
	"fmt"
	"io"
	"strings"
)

const (
	symPipe   = "│   "
	symSpace  = "    "
	symBranch = "├── "
	symLast   = "└── "
)

// Printer writes a [Node] and its descendants as an indented tree.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes root and its descendants.
func (p *Printer) Print(root *Node) {
	p.printNode(root, "", "", len(root.Children) > 0)
}

// printNode writes n at the current line prefix. childPrefix is the prefix
// for lines below n.
func (p *Printer) printNode(n *Node, linePrefix, childPrefix string, hasChildren bool) {
	fmt.Fprintf(p.w, "%s%s\n", linePrefix, header(n))

	// Comments are indented one level deeper than children. When there are
	// children below, the connecting pipe must continue through them.
	commentPrefix := childPrefix + symSpace
	if hasChildren {
		commentPrefix = childPrefix + symPipe
	}
	for i, c := range n.Comments {
		last := i == len(n.Comments)-1
		p.printSubtree(c, commentPrefix, last)
	}

	for i, c := range n.Children {
		last := i == len(n.Children)-1
		p.printSubtree(c, childPrefix, last)
	}
}

func (p *Printer) printSubtree(n *Node, prefix string, last bool) {
	line, next := prefix+symBranch, prefix+symPipe
	if last {
		line, next = prefix+symLast, prefix+symSpace
	}
	p.printNode(n, line, next, len(n.Children) > 0)
}

func header(n *Node) string {
	var sb strings.Builder
	sb.WriteString(n.Name)
	if n.ID != "" {
		sb.WriteString(" #")
		sb.WriteString(n.ID)
	}
	for _, p := range n.Properties {
		sb.WriteByte(' ')
		sb.WriteString(p.Key)
		sb.WriteByte('=')
		if p.IsMultiValue {
			sb.WriteByte('(')
		}
		for i, v := range p.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprint(&sb, v)
		}
		if p.IsMultiValue {
			sb.WriteByte(')')
		}
	}
	return sb.String()
}
