package include

import (
	"fmt"

	"github.com/dhamidi/unfold/source"
	"github.com/tliron/commonlog"
)

// resolveContext is the state shared by every level of one parse: the
// occurrence count of each file read so far and the path of files being
// expanded.
type resolveContext struct {
	src         source.Source
	flags       map[string]bool
	log         commonlog.Logger
	occurrences map[string]int
	stack       []string
}

func newResolveContext(src source.Source, flags map[string]bool, log commonlog.Logger) *resolveContext {
	return &resolveContext{
		src:         src,
		flags:       flags,
		log:         log,
		occurrences: make(map[string]int),
	}
}

// occurred reports whether id has been read more than once.
func (c *resolveContext) occurred(id string) bool {
	return c.occurrences[id] > 1
}

func (c *resolveContext) read(name, dir string) (string, string, error) {
	id, text, err := c.src.Read(name, dir)
	if err != nil {
		return "", "", err
	}
	c.occurrences[id]++
	c.log.Debugf("read %s as %s (occurrence %d)", name, id, c.occurrences[id])
	return id, text, nil
}

func (c *resolveContext) onStack(id string) int {
	n := 0
	for _, p := range c.stack {
		if p == id {
			n++
		}
	}
	return n
}

// resolve reads name and builds its node. A nil node without error means
// the file was dropped by #pragma once.
//
// A file may appear on the include path twice; the third entry is
// reported as recursion.
func (c *resolveContext) resolve(name, dir string) (*Node, error) {
	id, text, err := c.read(name, dir)
	if err != nil {
		return nil, err
	}
	if c.onStack(id) >= 2 {
		return nil, fmt.Errorf("%s: %w", id, ErrRecursion)
	}

	c.stack = append(c.stack, id)
	node, err := newFileScanner(c, id).scan(text)
	if top := c.stack[len(c.stack)-1]; top != id {
		panic(fmt.Sprintf("include: path stack corrupted: popped %s, expected %s", top, id))
	}
	c.stack = c.stack[:len(c.stack)-1]
	return node, err
}
