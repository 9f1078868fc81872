package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/unfold/include"
)

// TreeEncoder writes the include tree of a parsed root, either as an
// indented listing or as JSON.
type TreeEncoder struct {
	w    io.Writer
	json bool
}

func NewTreeEncoder(w io.Writer) *TreeEncoder {
	return &TreeEncoder{w: w}
}

func NewTreeJSONEncoder(w io.Writer) *TreeEncoder {
	return &TreeEncoder{w: w, json: true}
}

func (e *TreeEncoder) Encode(node *include.Node) error {
	text, err := e.MarshalText(node)
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *TreeEncoder) MarshalText(node *include.Node) ([]byte, error) {
	if e.json {
		data, err := json.MarshalIndent(nodeToJSON(node), "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var sb strings.Builder
	node.Walk(func(n *include.Node, depth int) bool {
		fmt.Fprintf(&sb, "%s%s\n", strings.Repeat("  ", depth), n.Name())
		return true
	})
	return []byte(sb.String()), nil
}

type treeJSONNode struct {
	File     string          `json:"file"`
	Lines    int             `json:"lines"`
	Line     int             `json:"line,omitempty"`
	Children []*treeJSONNode `json:"children,omitempty"`
}

func nodeToJSON(n *include.Node) *treeJSONNode {
	jn := &treeJSONNode{
		File:  n.Name(),
		Lines: n.LineCount(),
	}
	for i, child := range n.Children() {
		jc := nodeToJSON(child)
		// 1-based line of the #include directive in n
		jc.Line = n.SpliceLine(i)
		jn.Children = append(jn.Children, jc)
	}
	return jn
}
