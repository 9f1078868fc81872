package include

import (
	"errors"
	"fmt"

	"github.com/dhamidi/unfold/source"
)

var (
	// ErrRecursion is returned when a file re-enters the include path too
	// many times.
	ErrRecursion = errors.New("recursion found")

	// ErrUnbalanced is returned for #else or #endif without an opener and
	// for a second #else on the same conditional.
	ErrUnbalanced = errors.New("unbalanced directive")

	// ErrIncludeSyntax is returned for an #include whose brackets do not
	// pair up. It matches source.ErrInvalidData.
	ErrIncludeSyntax = fmt.Errorf("bad #include syntax: %w", source.ErrInvalidData)

	// ErrRootNotFound is returned when the root file produced no output.
	ErrRootNotFound = fmt.Errorf("root file: %w", source.ErrNotFound)
)

// PosError attaches the file and 0-based line being processed to an error
// that occurred there. Errors from nested includes carry one PosError per
// level.
type PosError struct {
	File string
	Line int
	Err  error
}

func (e *PosError) Error() string {
	return fmt.Sprintf("%v\nin file '%s' at line %d", e.Err, e.File, e.Line)
}

func (e *PosError) Unwrap() error {
	return e.Err
}

// Trace returns the positions recorded on err, innermost first. The first
// element is where the failure happened, the last one is the line in the
// root file that led there.
func Trace(err error) []PosError {
	var frames []PosError
	for err != nil {
		var pe *PosError
		if !errors.As(err, &pe) {
			break
		}
		frames = append(frames, PosError{File: pe.File, Line: pe.Line})
		err = pe.Err
	}
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames
}
