package include

import (
	"regexp"
	"strings"

	"github.com/dhamidi/unfold/source"
)

// trailer matches an optional comment after a directive.
const trailer = `\s*(?:(?://|/\*).*)?$`

var (
	pragmaOnceRe = regexp.MustCompile(`^\s*#pragma\s+once` + trailer)
	ifdefRe      = regexp.MustCompile(`^\s*#if(n?)def\s+([A-Za-z_]\w*)` + trailer)
	ifRe         = regexp.MustCompile(`^\s*#if(?:n?def)?\b`)
	elseRe       = regexp.MustCompile(`^\s*#else\b`)
	endifRe      = regexp.MustCompile(`^\s*#endif\b`)
	includeRe    = regexp.MustCompile(`^\s*#include\s*([<"])([^<>"]*)([>"])`)
)

// splitLines splits text into physical lines. A final newline does not
// start another line and a trailing carriage return is dropped.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// fileScanner turns the text of one file into a Node, resolving includes
// through its context as it goes.
type fileScanner struct {
	ctx   *resolveContext
	node  *Node
	gates GateStack
}

func newFileScanner(ctx *resolveContext, id string) *fileScanner {
	return &fileScanner{
		ctx:  ctx,
		node: NewNode(id),
	}
}

// scan returns a nil node when the file asked to be dropped because it was
// already included.
func (s *fileScanner) scan(text string) (*Node, error) {
	for i, line := range splitLines(text) {
		stop, err := s.scanLine(line)
		if err != nil {
			return nil, &PosError{File: s.node.Name(), Line: i, Err: err}
		}
		if stop {
			return nil, nil
		}
	}
	if depth := s.gates.Depth(); depth > 0 {
		s.ctx.log.Warningf("%s: %d conditional(s) still open at end of file", s.node.Name(), depth)
	}
	return s.node, nil
}

func (s *fileScanner) scanLine(line string) (bool, error) {
	if pragmaOnceRe.MatchString(line) {
		if s.ctx.occurred(s.node.Name()) {
			s.ctx.log.Debugf("%s: already included, dropping", s.node.Name())
			return true, nil
		}
		s.node.AddLine("")
		return false, nil
	}

	if m := ifdefRe.FindStringSubmatch(line); m != nil {
		s.ifdef(line, m[2], m[1] == "")
		return false, nil
	}

	if ifRe.MatchString(line) {
		s.gates.Push(UnknownGate())
		s.directive(line)
		return false, nil
	}

	if elseRe.MatchString(line) {
		g, err := s.gates.InvertTop()
		if err != nil {
			return false, err
		}
		if g.IsKnown() {
			s.node.AddLine("")
		} else {
			s.directive(line)
		}
		return false, nil
	}

	if endifRe.MatchString(line) {
		g, err := s.gates.Pop()
		if err != nil {
			return false, err
		}
		if g.IsKnown() {
			s.node.AddLine("")
		} else {
			s.directive(line)
		}
		return false, nil
	}

	if !s.gates.IsOpen() {
		s.node.AddLine("")
		return false, nil
	}

	if m := includeRe.FindStringSubmatch(line); m != nil {
		return false, s.include(m[1], m[2], m[3])
	}

	s.node.AddLine(line)
	return false, nil
}

// ifdef handles #ifdef (defined is true) and #ifndef.
func (s *fileScanner) ifdef(line, name string, defined bool) {
	value, ok := s.ctx.flags[name]
	if !ok {
		s.gates.Push(UnknownGate())
		s.directive(line)
		return
	}
	s.gates.Push(KnownGate(name, defined == value))
	s.node.AddLine("")
}

// directive keeps the line of an unresolved conditional so that a later
// tool can evaluate it.
func (s *fileScanner) directive(line string) {
	if s.gates.IsOpen() {
		s.node.AddLine(line)
	} else {
		s.node.AddLine("")
	}
}

func (s *fileScanner) include(lb, name, rb string) error {
	var dir string
	switch {
	case lb == "<" && rb == ">":
	case lb == `"` && rb == `"`:
		dir = source.Dir(s.node.Name())
	default:
		return ErrIncludeSyntax
	}

	child, err := s.ctx.resolve(name, dir)
	if err != nil {
		return err
	}
	if child == nil {
		s.node.AddLine("")
		return nil
	}
	s.node.AddChild(child)
	return nil
}

// IncludeDirective reports the name written in an #include line and
// whether it was quoted. ok is false for any other line, including an
// #include whose brackets do not pair up.
func IncludeDirective(line string) (name string, quoted bool, ok bool) {
	m := includeRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, false
	}
	switch {
	case m[1] == "<" && m[3] == ">":
		return m[2], false, true
	case m[1] == `"` && m[3] == `"`:
		return m[2], true, true
	}
	return "", false, false
}
