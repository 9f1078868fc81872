package include

import (
	"strings"
	"unicode"
)

type splice struct {
	node *Node
	line int
}

// Node is one file's contribution to the output. Every input line of the
// file maps to exactly one line of the node; included files are kept as
// child nodes together with the line they are spliced in after.
//
// A node exclusively owns its children, so the output is always a tree even
// when the include graph is not.
type Node struct {
	name     string
	text     strings.Builder
	lines    []int
	children []splice
}

func NewNode(name string) *Node {
	return &Node{name: name}
}

// Name is the canonical identifier of the file the node was built from.
func (n *Node) Name() string {
	return n.name
}

// AddLine appends one line, trimmed on the right.
func (n *Node) AddLine(line string) {
	n.lines = append(n.lines, n.text.Len())
	n.text.WriteString(strings.TrimRightFunc(line, unicode.IsSpace))
	n.text.WriteByte('\n')
}

// AddChild appends a blank placeholder line and splices child in after it.
func (n *Node) AddChild(child *Node) {
	n.AddLine("")
	n.children = append(n.children, splice{node: child, line: len(n.lines)})
}

// LineCount is the number of lines of the node itself, children excluded.
func (n *Node) LineCount() int {
	return len(n.lines)
}

// Children returns the spliced child nodes in order.
func (n *Node) Children() []*Node {
	nodes := make([]*Node, len(n.children))
	for i, c := range n.children {
		nodes[i] = c.node
	}
	return nodes
}

// SpliceLine returns the local line of n after which its i-th child is
// inserted. The include directive itself sits at SpliceLine(i)-1.
func (n *Node) SpliceLine(i int) int {
	return n.children[i].line
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		c.node.walk(fn, depth+1)
	}
}

func (n *Node) offset(line int) int {
	if line >= len(n.lines) {
		return n.text.Len()
	}
	return n.lines[line]
}

// Collect flattens the tree into the final text and an index mapping every
// output line back to its origin.
func (n *Node) Collect() (string, *Index) {
	var out strings.Builder
	index := &Index{}
	n.collect(&out, index)
	return out.String(), index
}

func (n *Node) collect(out *strings.Builder, index *Index) {
	text := n.text.String()
	prev := 0
	for _, c := range n.children {
		out.WriteString(text[n.offset(prev):n.offset(c.line)])
		index.add(n.name, prev, c.line-prev)
		c.node.collect(out, index)
		prev = c.line
	}
	out.WriteString(text[n.offset(prev):])
	index.add(n.name, prev, len(n.lines)-prev)
}
