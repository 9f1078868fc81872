package include

import (
	"fmt"
	"sort"
)

// Location is a line in a source file. Line is 0-based.
type Location struct {
	File string
	Line int
}

// Segment is a run of consecutive output lines that come from consecutive
// lines of one file.
type Segment struct {
	File string
	// Local is the line in File that produced output line Start.
	Local int
	// Start and End delimit the output lines [Start, End).
	Start int
	End   int
}

func (s Segment) Len() int {
	return s.End - s.Start
}

// Index maps lines of collected output back to their origin. Segments are
// sorted and do not overlap.
type Index struct {
	segments []Segment
}

// NewIndex rebuilds an index from segments, for example ones decoded from
// a file written by an earlier run. Segments must be contiguous, in order
// and start at output line 0.
func NewIndex(segments []Segment) (*Index, error) {
	x := &Index{}
	for i, seg := range segments {
		if seg.Start != x.Len() {
			return nil, fmt.Errorf("segment %d starts at line %d, want %d", i, seg.Start, x.Len())
		}
		if seg.End < seg.Start || seg.Local < 0 {
			return nil, fmt.Errorf("segment %d: invalid range [%d, %d) at local line %d", i, seg.Start, seg.End, seg.Local)
		}
		x.add(seg.File, seg.Local, seg.Len())
	}
	return x, nil
}

// add appends a segment of count lines right after the last one. Empty
// segments are dropped.
func (x *Index) add(file string, local, count int) {
	if count <= 0 {
		return
	}
	start := x.Len()
	x.segments = append(x.segments, Segment{
		File:  file,
		Local: local,
		Start: start,
		End:   start + count,
	})
}

// Len is the number of output lines covered by the index.
func (x *Index) Len() int {
	if len(x.segments) == 0 {
		return 0
	}
	return x.segments[len(x.segments)-1].End
}

func (x *Index) Segments() []Segment {
	return append([]Segment(nil), x.segments...)
}

// Search finds the origin of the 0-based output line.
func (x *Index) Search(line int) (Location, bool) {
	if line < 0 {
		return Location{}, false
	}
	i := sort.Search(len(x.segments), func(i int) bool {
		return x.segments[i].End > line
	})
	if i == len(x.segments) {
		return Location{}, false
	}
	seg := x.segments[i]
	return Location{File: seg.File, Line: line - seg.Start + seg.Local}, true
}
