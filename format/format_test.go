package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dhamidi/unfold/include"
	"github.com/dhamidi/unfold/source"
	"github.com/google/go-cmp/cmp"
)

func parseFixture(t *testing.T) *include.Node {
	t.Helper()
	mem := source.NewMem().
		MustAdd("main.c", "a\n#include <h.h>\nb\n").
		MustAdd("h.h", "h1\nh2\n")
	node, err := include.Parse(mem, nil, "main.c")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	return node
}

func TestTextEncoder(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextEncoder(&buf).Encode(NewResult("main.c", parseFixture(t))); err != nil {
		t.Fatalf("Encode error = %v", err)
	}
	if want := "a\n\nh1\nh2\nb\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLineEncoder(t *testing.T) {
	var buf bytes.Buffer
	if err := NewLineEncoder(&buf).Encode(NewResult("main.c", parseFixture(t))); err != nil {
		t.Fatalf("Encode error = %v", err)
	}
	want := strings.Join([]string{
		"1\tmain.c\t1",
		"2\tmain.c\t2",
		"3\th.h\t1",
		"4\th.h\t2",
		"5\tmain.c\t3",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("line map mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONEncoder_RoundTrip(t *testing.T) {
	result := NewResult("main.c", parseFixture(t))

	var buf bytes.Buffer
	if err := NewJSONEncoder(&buf).WithText().Encode(result); err != nil {
		t.Fatalf("Encode error = %v", err)
	}

	decoded, err := DecodeJSONIndex(&buf)
	if err != nil {
		t.Fatalf("DecodeJSONIndex error = %v", err)
	}
	if decoded.Root != "main.c" || decoded.Text != result.Text {
		t.Errorf("decoded root/text = %q, %q", decoded.Root, decoded.Text)
	}
	if diff := cmp.Diff(result.Index.Segments(), decoded.Index.Segments()); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeJSONIndex_Invalid(t *testing.T) {
	tests := []string{
		`{`,
		`{"root":"a","lines":3,"segments":[{"file":"a","local":0,"start":0,"end":2}]}`,
		`{"root":"a","lines":2,"segments":[{"file":"a","local":0,"start":1,"end":2}]}`,
	}
	for _, input := range tests {
		if _, err := DecodeJSONIndex(strings.NewReader(input)); err == nil {
			t.Errorf("DecodeJSONIndex(%s) succeeded, want error", input)
		}
	}
}

func TestTreeEncoder(t *testing.T) {
	node := parseFixture(t)

	var buf bytes.Buffer
	if err := NewTreeEncoder(&buf).Encode(node); err != nil {
		t.Fatalf("Encode error = %v", err)
	}
	if want := "main.c\n  h.h\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := NewTreeJSONEncoder(&buf).Encode(node); err != nil {
		t.Fatalf("Encode error = %v", err)
	}
	if !strings.Contains(buf.String(), `"line": 2`) {
		t.Errorf("tree JSON does not record the directive line:\n%s", buf.String())
	}
}
