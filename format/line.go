package format

import (
	"fmt"
	"io"
	"strings"
)

// LineEncoder writes one tab separated record per output line:
//
//	<output line>	<file>	<local line>
//
// Line numbers are 1-based, ready for grep or a compiler log.
type LineEncoder struct {
	w      io.Writer
	result *Result
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(r *Result) error {
	e.result = r
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	for _, seg := range e.result.Index.Segments() {
		for line := seg.Start; line < seg.End; line++ {
			fmt.Fprintf(&sb, "%d\t%s\t%d\n", line+1, seg.File, seg.Local+line-seg.Start+1)
		}
	}
	return []byte(sb.String()), nil
}
