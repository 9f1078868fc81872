package include

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/dhamidi/unfold/source"
	"github.com/google/go-cmp/cmp"
)

func memSource(t *testing.T, files map[string]string) *source.Mem {
	t.Helper()
	mem := source.NewMem()
	for name, text := range files {
		if err := mem.Add(name, text); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	return mem
}

// countingSource records how often each canonical id was served.
func countingSource(src source.Source, reads map[string]int) source.Source {
	return source.Func(func(name, dir string) (string, string, error) {
		id, text, err := src.Read(name, dir)
		if err == nil {
			reads[id]++
		}
		return id, text, err
	})
}

func expand(t *testing.T, src source.Source, flags map[string]bool, root string) (string, *Index) {
	t.Helper()
	node, err := Parse(src, flags, root)
	if err != nil {
		t.Fatalf("Parse(%s) error = %v", root, err)
	}
	return node.Collect()
}

func TestParse_MainOnly(t *testing.T) {
	main := "int main() {\n    return RET_CODE;\n}\n"
	src := memSource(t, map[string]string{"main.c": main})

	got, _ := expand(t, src, nil, "main.c")
	if got != main {
		t.Errorf("got %q, want %q", got, main)
	}
}

func TestParse_TrimsTrailingWhitespace(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "a  \r\n\tb\t\r\n\nc",
	})

	got, _ := expand(t, src, nil, "main.c")
	want := "a\n\tb\n\nc\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse_SingleHeader(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "#include <header.h>\n#include <header.h>\n// Main function\nint main() {\n    return RET_CODE;\n}\n",
		"header.h": "#pragma once\n// Return code\nstatic const int RET_CODE = 0;\n",
	})

	got, _ := expand(t, src, nil, "main.c")
	want := "\n\n// Return code\nstatic const int RET_CODE = 0;\n\n// Main function\nint main() {\n    return RET_CODE;\n}\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("collected text mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Recursion(t *testing.T) {
	src := memSource(t, map[string]string{
		"first.h":  "#include <second.h>\n",
		"second.h": "#include <first.h>\n",
	})

	_, err := Parse(src, nil, "first.h")
	if !errors.Is(err, ErrRecursion) {
		t.Fatalf("Parse error = %v, want ErrRecursion", err)
	}
	if !strings.Contains(err.Error(), "first.h") {
		t.Errorf("error %q does not name the offending file", err)
	}
}

func TestParse_RecursionPrevented(t *testing.T) {
	src := memSource(t, map[string]string{
		"first.h":  "#pragma once\n#include <second.h>\n",
		"second.h": "#pragma once\n#include <first.h>\n",
	})

	got, _ := expand(t, src, nil, "first.h")
	if got != "\n\n\n\n" {
		t.Errorf("got %q, want %q", got, "\n\n\n\n")
	}
}

func TestParse_MultipleHeaders(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "#include <h02.h>\n#include <h01.h>\n",
		"h01.h":  "#pragma once\n#include <h02.h>\nh01\n",
		"h02.h":  "#pragma once\n#include <h01.h>\nh02\n",
	})

	got, _ := expand(t, src, nil, "main.c")
	want := "\n\n\n\n\nh01\nh02\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse_LineNumbers(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "0\n1\n2\n#include <h01.h>\n9\n10\n#include <h03.h>\n15\n16\n",
		"h01.h":  "4\n#include <h02.h>\n8\n",
		"h02.h":  "6\n7\n",
		"h03.h":  "12\n13\n14\n",
	})

	got, _ := expand(t, src, nil, "main.c")
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 17 {
		t.Fatalf("got %d lines, want 17", len(lines))
	}
	for pos, line := range lines {
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			t.Fatalf("line %d: %v", pos, err)
		}
		if n != pos {
			t.Errorf("line %d holds %d", pos, n)
		}
	}
}

func TestParse_Indexing(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "00\n01\n02\n#include <h01.h>\n04\n05\n#include <h03.h>\n07\n08\n",
		"h01.h":  "10\n#include <h02.h>\n12\n",
		"h02.h":  "20\n21\n",
		"h03.h":  "30\n31\n32\n",
	})

	got, index := expand(t, src, nil, "main.c")
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if index.Len() != len(lines) {
		t.Fatalf("index covers %d lines, output has %d", index.Len(), len(lines))
	}

	for pos, line := range lines {
		loc, ok := index.Search(pos)
		if !ok {
			t.Fatalf("Search(%d) found nothing", pos)
		}
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			t.Fatalf("line %d: %v", pos, err)
		}
		file := "main.c"
		if n/10 > 0 {
			file = "h0" + strconv.Itoa(n/10) + ".h"
		}
		want := Location{File: file, Line: n % 10}
		if loc != want {
			t.Errorf("Search(%d) = %+v, want %+v", pos, loc, want)
		}
	}

	wantSegments := []Segment{
		{File: "main.c", Local: 0, Start: 0, End: 4},
		{File: "h01.h", Local: 0, Start: 4, End: 6},
		{File: "h02.h", Local: 0, Start: 6, End: 8},
		{File: "h01.h", Local: 2, Start: 8, End: 9},
		{File: "main.c", Local: 4, Start: 9, End: 12},
		{File: "h03.h", Local: 0, Start: 12, End: 15},
		{File: "main.c", Local: 7, Start: 15, End: 17},
	}
	if diff := cmp.Diff(wantSegments, index.Segments()); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Conditionals(t *testing.T) {
	main := strings.Join([]string{
		"#ifdef ABC",
		"abc",
		"#ifndef DEF // not taken",
		"no-def",
		"#else",
		"def",
		"#endif",
		"#if defined(ABC)",
		"if-abc",
		"#else",
		"not-abc",
		"#endif",
		"#ifdef XYZ",
		"xyz",
		"#endif",
		"#endif",
		"#ifndef ABC",
		"#if FOO",
		"inner",
		"#else",
		"#endif",
		"#endif",
		"tail",
	}, "\n") + "\n"
	src := memSource(t, map[string]string{"main.c": main})

	got, _ := expand(t, src, map[string]bool{"ABC": true, "DEF": true}, "main.c")
	want := strings.Join([]string{
		"",
		"abc",
		"",
		"",
		"",
		"def",
		"",
		"#if defined(ABC)",
		"if-abc",
		"#else",
		"not-abc",
		"#endif",
		"#ifdef XYZ",
		"xyz",
		"#endif",
		"",
		"",
		"",
		"",
		"",
		"",
		"",
		"tail",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("collected text mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_DirectiveTrailingText(t *testing.T) {
	tests := []struct {
		name string
		main string
		want string
	}{
		{"endif with name", "#ifdef ABC\nhidden\n#endif ABC\nshown\n", "\n\n\nshown\n"},
		{"else with comment", "#ifdef ABC\nhidden\n#else // ABC\ntaken\n#endif /* ABC */\nshown\n", "\n\n\ntaken\n\nshown\n"},
		{"else with text", "#ifndef ABC\ntaken\n#else ABC\nhidden\n#endif\n", "\ntaken\n\n\n\n"},
		{"include with text", "#include \"a.h\" extra\nshown\n", "\na\nshown\n"},
		{"endif prefix is text", "#endifx\n", "#endifx\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := memSource(t, map[string]string{"main.c": tt.main, "a.h": "a\n"})
			got, _ := expand(t, src, map[string]bool{"ABC": false}, "main.c")
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_FalseFlagIsNotUnknown(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "#ifdef ABC\nyes\n#else\nno\n#endif\n",
	})

	got, _ := expand(t, src, map[string]bool{"ABC": false}, "main.c")
	if want := "\n\n\nno\n\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse_ExcludedIncludeUnderKnownGate(t *testing.T) {
	reads := make(map[string]int)
	mem := memSource(t, map[string]string{
		"main.c": "#ifdef ABC\n#include <h.h>\n#endif\nend\n",
		"h.h":    "header\n",
	})

	got, _ := expand(t, countingSource(mem, reads), map[string]bool{"ABC": false}, "main.c")
	if want := "\n\n\nend\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if reads["h.h"] != 0 {
		t.Errorf("h.h was read %d times, want 0", reads["h.h"])
	}
}

func TestParse_IncludeUnderUnknownGate(t *testing.T) {
	reads := make(map[string]int)
	mem := memSource(t, map[string]string{
		"main.c": "#ifdef XYZ\n#include <h.h>\n#endif\n",
		"h.h":    "header\n",
	})

	got, _ := expand(t, countingSource(mem, reads), nil, "main.c")
	if want := "#ifdef XYZ\n\nheader\n#endif\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if reads["h.h"] != 1 {
		t.Errorf("h.h was read %d times, want 1", reads["h.h"])
	}
}

func TestParse_Unbalanced(t *testing.T) {
	tests := []struct {
		name string
		main string
		line int
	}{
		{"else without opener", "#include <h0.h>\n#else\n", 1},
		{"endif without opener", "a\nb\n#endif\n", 2},
		{"duplicate else", "#ifdef A\n#else\n#else\n#endif\n", 2},
		{"duplicate else on unknown", "#if X > 1\n#else\n#else\n#endif\n", 2},
		{"endif after close", "#ifdef A\n#endif\n#endif\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := memSource(t, map[string]string{
				"main.c": tt.main,
				"h0.h":   "h0\n",
			})
			_, err := Parse(src, map[string]bool{"A": true}, "main.c")
			if !errors.Is(err, ErrUnbalanced) {
				t.Fatalf("Parse error = %v, want ErrUnbalanced", err)
			}
			want := []PosError{{File: "main.c", Line: tt.line}}
			if diff := cmp.Diff(want, Trace(err)); diff != "" {
				t.Errorf("trace mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_BadIncludeSyntax(t *testing.T) {
	tests := []string{
		`#include <a.h"`,
		`#include "a.h>`,
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			src := memSource(t, map[string]string{
				"main.c": "x\n" + line + "\n",
				"a.h":    "a\n",
			})
			_, err := Parse(src, nil, "main.c")
			if !errors.Is(err, ErrIncludeSyntax) {
				t.Errorf("Parse error = %v, want ErrIncludeSyntax", err)
			}
			if !errors.Is(err, source.ErrInvalidData) {
				t.Errorf("Parse error = %v, want it to match source.ErrInvalidData", err)
			}
		})
	}
}

func TestParse_NestedErrorTrace(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "int x;\n#include \"a.h\"\n",
		"a.h":    "a\nb\n#include <missing.h>\n",
	})

	_, err := Parse(src, nil, "main.c")
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("Parse error = %v, want ErrNotFound", err)
	}
	want := []PosError{
		{File: "a.h", Line: 2},
		{File: "main.c", Line: 1},
	}
	if diff := cmp.Diff(want, Trace(err)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_RootNotFound(t *testing.T) {
	src := memSource(t, map[string]string{"main.c": "x\n"})

	node, err := Parse(src, nil, "other.c")
	if !errors.Is(err, source.ErrNotFound) {
		t.Errorf("Parse error = %v, want ErrNotFound", err)
	}
	if node != nil {
		t.Errorf("Parse returned a node on failure")
	}
}

func TestParse_QuotedIncludeUsesParentDir(t *testing.T) {
	src := memSource(t, map[string]string{
		"shaders/main.cl":  "#include \"common.h\"\n#include <common.h>\n",
		"shaders/common.h": "local\n",
		"common.h":         "global\n",
	})

	got, index := expand(t, src, nil, "shaders/main.cl")
	if want := "\nlocal\n\nglobal\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	loc, _ := index.Search(1)
	if loc.File != "shaders/common.h" {
		t.Errorf("Search(1).File = %q, want shaders/common.h", loc.File)
	}
}

func TestParse_PragmaOnceForms(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c": "#include <a.h>\n#include <a.h>\n",
		"a.h":    "  #pragma   once  // guard\n#pragma once please\n",
	})

	got, _ := expand(t, src, nil, "main.c")
	if want := "\n\n#pragma once please\n\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParser_ReuseResetsOccurrences(t *testing.T) {
	src := memSource(t, map[string]string{
		"main.c":   "#include <header.h>\nmain\n",
		"header.h": "#pragma once\nheader\n",
	})
	p := NewParser(src)

	for i := 0; i < 2; i++ {
		text, _, err := p.Expand("main.c")
		if err != nil {
			t.Fatalf("Expand #%d error = %v", i, err)
		}
		if want := "\n\nheader\nmain\n"; text != want {
			t.Errorf("Expand #%d = %q, want %q", i, text, want)
		}
	}
}

func TestParser_Options(t *testing.T) {
	p := NewParser(source.NewMem(), WithFlags(map[string]bool{"A": true}), WithFlag("B", false))

	want := map[string]bool{"A": true, "B": false}
	if diff := cmp.Diff(want, p.Flags()); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
}

func TestIncludeDirective(t *testing.T) {
	tests := []struct {
		line   string
		name   string
		quoted bool
		ok     bool
	}{
		{`#include "a.h"`, "a.h", true, true},
		{`  #include <sys/b.h> // c`, "sys/b.h", false, true},
		{`#include "a.h" extra`, "a.h", true, true},
		{`#include "a.h>`, "", false, false},
		{`int x;`, "", false, false},
	}
	for _, tt := range tests {
		name, quoted, ok := IncludeDirective(tt.line)
		if name != tt.name || quoted != tt.quoted || ok != tt.ok {
			t.Errorf("IncludeDirective(%q) = %q, %v, %v, want %q, %v, %v", tt.line, name, quoted, ok, tt.name, tt.quoted, tt.ok)
		}
	}
}
