// Package include expands C-preprocessor style #include directives across a
// tree of files and keeps track of where every output line came from.
//
// # Overview
//
// A Parser reads a root file through a source.Source, scans it line by line
// and recurses into every #include it meets. The result is a tree of Node
// values, one per included file occurrence. Collect flattens the tree into
// a single text and an Index that maps output lines back to their files:
//
//	p := include.NewParser(src, include.WithFlag("USE_FP64", true))
//	node, err := p.Parse("kernel.cl")
//	if err != nil {
//	    return err
//	}
//	text, index := node.Collect()
//	loc, ok := index.Search(41) // origin of output line 42
//
// # Directives
//
// The scanner recognizes the directives below at the start of a line.
// #pragma once and #ifdef/#ifndef allow only a trailing comment; #else,
// #endif and #include ignore whatever follows them, as in "#endif NAME":
//
//	#include <path>     search without a directory hint
//	#include "path"     search relative to the including file first
//	#pragma once        drop the file when it was already read
//	#ifdef NAME         known when NAME is in the flag set
//	#ifndef NAME
//	#if anything        never evaluated
//	#else
//	#endif
//
// Conditionals on known flags are resolved: their directive lines and
// their untaken branches become blank lines. Conditionals the engine cannot
// evaluate are kept verbatim and their content, includes included, is
// expanded as if taken.
//
// # Line accounting
//
// Every input line produces exactly one output line. An #include line
// becomes a blank line followed by the expansion of the included file, so
// a compiler diagnostic on the flattened text can always be traced back
// with Index.Search.
package include
