package bramble

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jward/bramble/internal/pyast"
)

// maxLineLength is the character budget per line before the line-length
// rule fires.
const maxLineLength = 88

// slowLintSteps is the number of one-second waits the artificial slow path
// performs. It exists to make cancellation observable in tests and has no
// effect on lint results.
const slowLintSteps = 10

// lintSyntax runs the syntax-only pass: line-length over the raw text, then
// either the tree-based checks (valid parse) or the parse errors themselves
// (broken parse). The two are mutually exclusive for a file.
func lintSyntax(ctx context.Context, source string, parsed *pyast.Module, slow bool) (Diagnostics, error) {
	if slow {
		for i := 0; i < slowLintSteps; i++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("slow lint interrupted: %w", err)
			}
			fmt.Fprintf(os.Stderr, "slow lint enabled, sleeping for %d/%d seconds\n", i, slowLintSteps)
			time.Sleep(time.Second)
		}
	}

	var diagnostics []string
	lintLines(source, &diagnostics)

	if parsed.IsValid() {
		walkSyntax(source, parsed.Root, &diagnostics)
	} else {
		for _, perr := range parsed.Errors {
			diagnostics = append(diagnostics, perr.Message)
		}
	}

	return NewDiagnostics(diagnostics), nil
}

// lintLines emits a diagnostic for every 1-indexed line whose character
// count exceeds maxLineLength. Counting is by rune; a line whose byte
// length is within budget cannot exceed it in characters, so those are
// skipped without decoding.
func lintLines(source string, sink *[]string) {
	for i, line := range strings.Split(source, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if len(line) <= maxLineLength {
			continue
		}

		charCount := utf8.RuneCountInString(line)
		if charCount > maxLineLength {
			*sink = append(*sink, fmt.Sprintf("Line %d is too long (%d characters)", i+1, charCount))
		}
	}
}
