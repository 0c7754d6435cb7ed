// Package bramble is a semantic linter for Python built on tree-sitter.
//
// # Pipeline
//
// Bramble lints a file in two independent passes:
//
//  1. Syntax: line-length and quote-style checks over the raw text and the
//     concrete syntax tree. When the parse has errors, the tree checks are
//     replaced by the parse errors themselves. Optional user-defined rules
//     written in Risor run here too.
//
//  2. Semantic: type-aware rules (unresolved imports, possibly-undefined
//     names, misapplied typing.override) over a well-formed tree, querying
//     a per-file semantic model built by the binder in internal/semantic.
//
// # Usage
//
// Create an Engine and lint files:
//
//	e, err := bramble.New(".bramble/cache.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	diags, err := e.LintSemantic(ctx, "app.py")
//	for _, msg := range diags {
//		fmt.Println(msg)
//	}
//
// # Caching
//
// Both passes are pure functions of the file's content, so the Engine
// memoizes results in SQLite keyed by content hash. Re-linting an unchanged
// file returns the cached diagnostics byte for byte; a content change
// invalidates the file's rows, and an engine version change clears the
// cache.
//
// # Cancellation
//
// Every entry point takes a context.Context and checks it at bounded
// intervals, so a caller (an editor integration re-linting on every
// keystroke, say) can abandon a stale computation. Cancellation surfaces as
// a wrapped context error, never as a partial result.
package bramble
