package include

import "fmt"

type gateKind uint8

const (
	gateKnown gateKind = iota
	gateUnknown
)

// Gate is one level of conditional inclusion.
//
// A known gate tests a flag whose value is in the flag set. An unknown gate
// tests something the engine does not evaluate; it is always open and its
// directive lines are kept in the output.
type Gate struct {
	kind     gateKind
	name     string
	open     bool
	inverted bool
}

func KnownGate(name string, open bool) Gate {
	return Gate{kind: gateKnown, name: name, open: open}
}

func UnknownGate() Gate {
	return Gate{kind: gateUnknown}
}

func (g Gate) IsKnown() bool {
	return g.kind == gateKnown
}

// Name is the flag a known gate tests, "" for unknown gates.
func (g Gate) Name() string {
	return g.name
}

func (g Gate) IsOpen() bool {
	if g.kind == gateUnknown {
		return true
	}
	return g.open
}

func (g Gate) String() string {
	if g.kind == gateUnknown {
		return "unknown"
	}
	return fmt.Sprintf("%s=%t", g.name, g.open)
}

// GateStack tracks nested conditionals of a single file. The zero value is
// an empty, open stack.
type GateStack struct {
	stack  []Gate
	closed bool
}

func (s *GateStack) computeState() {
	s.closed = false
	for _, g := range s.stack {
		if !g.IsOpen() {
			s.closed = true
			return
		}
	}
}

// IsOpen reports whether every gate on the stack is open.
func (s *GateStack) IsOpen() bool {
	return !s.closed
}

func (s *GateStack) Depth() int {
	return len(s.stack)
}

func (s *GateStack) Push(g Gate) {
	s.closed = s.closed || !g.IsOpen()
	s.stack = append(s.stack, g)
}

// Pop removes the innermost gate. It fails with ErrUnbalanced when there is
// nothing to close.
func (s *GateStack) Pop() (Gate, error) {
	if len(s.stack) == 0 {
		return Gate{}, fmt.Errorf("unexpected #endif: %w", ErrUnbalanced)
	}
	g := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if !g.IsOpen() {
		s.computeState()
	}
	return g, nil
}

// InvertTop handles #else. A known gate flips; an unknown gate is only
// marked, since its value cannot change what is kept. The returned gate is
// the top after inversion.
func (s *GateStack) InvertTop() (Gate, error) {
	if len(s.stack) == 0 {
		return Gate{}, fmt.Errorf("unexpected #else: %w", ErrUnbalanced)
	}
	top := &s.stack[len(s.stack)-1]
	if top.inverted {
		return Gate{}, fmt.Errorf("duplicate #else: %w", ErrUnbalanced)
	}
	top.inverted = true
	if top.kind == gateKnown {
		top.open = !top.open
		s.computeState()
	}
	return *top, nil
}
