package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dhamidi/unfold/include"
)

// JSONEncoder writes the index of a result, and optionally its text, as
// JSON. DecodeJSONIndex reads it back.
type JSONEncoder struct {
	w           io.Writer
	result      *Result
	includeText bool
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

// WithText makes the encoder embed the flattened text.
func (e *JSONEncoder) WithText() *JSONEncoder {
	e.includeText = true
	return e
}

func (e *JSONEncoder) Encode(r *Result) error {
	e.result = r
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	return json.MarshalIndent(e.buildResultData(), "", "  ")
}

type jsonResult struct {
	Root     string        `json:"root"`
	Lines    int           `json:"lines"`
	Segments []jsonSegment `json:"segments"`
	Text     string        `json:"text,omitempty"`
}

type jsonSegment struct {
	File  string `json:"file"`
	Local int    `json:"local"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (e *JSONEncoder) buildResultData() jsonResult {
	r := e.result
	data := jsonResult{
		Root:     r.Root,
		Lines:    r.Index.Len(),
		Segments: []jsonSegment{},
	}
	for _, seg := range r.Index.Segments() {
		data.Segments = append(data.Segments, jsonSegment{
			File:  seg.File,
			Local: seg.Local,
			Start: seg.Start,
			End:   seg.End,
		})
	}
	if e.includeText {
		data.Text = r.Text
	}
	return data
}

// DecodeJSONIndex reads a document written by JSONEncoder.
func DecodeJSONIndex(r io.Reader) (*Result, error) {
	var data jsonResult
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	segments := make([]include.Segment, 0, len(data.Segments))
	for _, s := range data.Segments {
		segments = append(segments, include.Segment{
			File:  s.File,
			Local: s.Local,
			Start: s.Start,
			End:   s.End,
		})
	}
	index, err := include.NewIndex(segments)
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if index.Len() != data.Lines {
		return nil, fmt.Errorf("decode index: segments cover %d lines, header says %d", index.Len(), data.Lines)
	}
	return &Result{Root: data.Root, Text: data.Text, Index: index}, nil
}
