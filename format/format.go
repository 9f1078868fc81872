// Package format writes the result of an expansion: the flattened text, its
// line index and the include tree.
package format

import (
	"encoding"

	"github.com/dhamidi/unfold/include"
)

// Result is one expanded root file.
type Result struct {
	Root  string
	Text  string
	Index *include.Index
}

// NewResult collects node into a Result.
func NewResult(root string, node *include.Node) *Result {
	text, index := node.Collect()
	return &Result{Root: root, Text: text, Index: index}
}

type Encoder interface {
	encoding.TextMarshaler
	Encode(r *Result) error
}
