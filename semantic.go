package bramble

import (
	"context"
	"fmt"

	"github.com/jward/bramble/internal/pyast"
	"github.com/jward/bramble/internal/semantic"
)

// lintContext bundles everything the semantic rules need for one file: the
// raw source, the parsed module, the semantic model handle, and the
// diagnostic sink. One context per lint invocation; never shared across
// files or goroutines.
type lintContext struct {
	source      string
	parsed      *pyast.Module
	model       semantic.Model
	diagnostics []string
}

// pushDiagnostic appends one finding. This is the only mutation rules
// perform on the context.
func (c *lintContext) pushDiagnostic(msg string) {
	c.diagnostics = append(c.diagnostics, msg)
}

// lintSemantic runs the type-aware pass. Semantic rules need a well-formed
// tree, so a parse with errors short-circuits to no diagnostics rather than
// running rules over garbage structure.
func lintSemantic(ctx context.Context, source string, parsed *pyast.Module, model semantic.Model) (Diagnostics, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("semantic lint interrupted: %w", err)
	}
	if !parsed.IsValid() {
		return nil, nil
	}

	c := &lintContext{
		source: source,
		parsed: parsed,
		model:  model,
	}
	walkSemantic(c, parsed.Root)

	return NewDiagnostics(c.diagnostics), nil
}
