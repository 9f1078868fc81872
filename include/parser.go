package include

import (
	"fmt"
	"maps"

	"github.com/dhamidi/unfold/source"
	"github.com/tliron/commonlog"
)

type Option func(*Parser)

// WithFlag sets the value of a single flag. A flag that was never set is
// unknown, which is different from false.
func WithFlag(name string, value bool) Option {
	return func(p *Parser) {
		p.flags[name] = value
	}
}

func WithFlags(flags map[string]bool) Option {
	return func(p *Parser) {
		maps.Copy(p.flags, flags)
	}
}

func WithLogger(log commonlog.Logger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// Parser resolves includes of root files read from a source. The flag set
// is fixed at construction. Every call to Parse starts with fresh
// occurrence counts, so a Parser can be reused for independent documents,
// but not from several goroutines at once.
type Parser struct {
	src   source.Source
	flags map[string]bool
	log   commonlog.Logger
}

func NewParser(src source.Source, opts ...Option) *Parser {
	p := &Parser{
		src:   src,
		flags: make(map[string]bool),
		log:   commonlog.GetLogger("unfold.include"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Flags returns a copy of the flag set.
func (p *Parser) Flags() map[string]bool {
	return maps.Clone(p.flags)
}

// Parse reads root and every file it includes and returns the tree that
// Collect flattens into output text and index.
func (p *Parser) Parse(root string) (*Node, error) {
	ctx := newResolveContext(p.src, p.flags, p.log)
	node, err := ctx.resolve(root, "")
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("%s: %w", root, ErrRootNotFound)
	}
	return node, nil
}

// Expand parses root and collects the result.
func (p *Parser) Expand(root string) (string, *Index, error) {
	node, err := p.Parse(root)
	if err != nil {
		return "", nil, err
	}
	text, index := node.Collect()
	return text, index, nil
}

// Parse is a shorthand for NewParser(src, WithFlags(flags)).Parse(root).
func Parse(src source.Source, flags map[string]bool, root string) (*Node, error) {
	return NewParser(src, WithFlags(flags)).Parse(root)
}
