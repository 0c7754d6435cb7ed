package bramble

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/bramble/internal/pyast"
)

// walkSyntax is the syntax-pass tree walk: pre-order over named nodes,
// applying the quote-style rule at every string literal. Rules never prune
// the walk.
func walkSyntax(source string, n *sitter.Node, sink *[]string) {
	if n.Type() == pyast.NodeString {
		// A very naive implementation of use double quotes: the check reads
		// the literal's raw source slice, so prefixed strings (r'...') pass.
		start := int(n.StartByte())
		if start < len(source) && source[start] == '\'' {
			*sink = append(*sink, "Use double quotes for strings")
		}
	}

	for _, child := range pyast.NamedChildren(n) {
		walkSyntax(source, child, sink)
	}
}

// walkSemantic is the semantic-pass tree walk: pre-order dispatch of the
// type-aware rules, then recursion into children. Statements are dispatched
// before their bodies, siblings left to right, so diagnostic order is
// document order.
func walkSemantic(c *lintContext, n *sitter.Node) {
	switch n.Type() {
	case pyast.NodeClassDef:
		lintBadOverride(c, n)
	case pyast.NodeImport, pyast.NodeImportFrom:
		lintUnresolvedImports(c, n)
	case pyast.NodeIdentifier:
		if pyast.IsLoadContext(n) {
			lintMaybeUndefined(c, n)
		}
	}

	for _, child := range pyast.NamedChildren(n) {
		walkSemantic(c, child)
	}
}
