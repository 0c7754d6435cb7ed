// Package pyast parses Python source with tree-sitter and provides the node
// classification helpers the lint passes need: parse-error collection, import
// decomposition, load-context detection, and class body inspection.
package pyast

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Module is the parse result for one Python source file. The tree and source
// are immutable after Parse returns; everything downstream shares them by
// reference.
type Module struct {
	Source []byte
	Root   *sitter.Node
	Errors []ParseError

	tree *sitter.Tree
}

// ParseError is a single syntax error reported by the parser.
type ParseError struct {
	Line    uint32 // 1-indexed
	Column  uint32 // 0-indexed, matching tree-sitter points
	Message string
}

func (e ParseError) String() string {
	return e.Message
}

// Parse parses src as Python. Tree-sitter is error-tolerant, so a tree is
// produced even for broken input; syntax problems are collected into
// Module.Errors instead of failing the call.
func Parse(ctx context.Context, src []byte) (*Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("pyast: parse: %w", err)
	}

	root := tree.RootNode()
	m := &Module{
		Source: src,
		Root:   root,
		tree:   tree,
	}
	if root.HasError() {
		m.Errors = collectErrors(root)
	}
	return m, nil
}

// IsValid reports whether the parse produced no syntax errors.
func (m *Module) IsValid() bool {
	return len(m.Errors) == 0
}

// Close releases the underlying tree-sitter tree. The Module must not be
// used afterwards.
func (m *Module) Close() {
	if m.tree != nil {
		m.tree.Close()
		m.tree = nil
	}
}

// Text returns the raw source slice for a node.
func (m *Module) Text(n *sitter.Node) string {
	return n.Content(m.Source)
}

// collectErrors walks the tree pre-order and produces one ParseError per
// ERROR or missing node, in document order.
func collectErrors(root *sitter.Node) []ParseError {
	var errs []ParseError
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		point := n.StartPoint()
		switch {
		case n.IsMissing():
			errs = append(errs, ParseError{
				Line:    point.Row + 1,
				Column:  point.Column,
				Message: fmt.Sprintf("Parse error at line %d, column %d: missing %s", point.Row+1, point.Column, n.Type()),
			})
			return
		case n.IsError():
			errs = append(errs, ParseError{
				Line:    point.Row + 1,
				Column:  point.Column,
				Message: fmt.Sprintf("Parse error at line %d, column %d: unexpected syntax", point.Row+1, point.Column),
			})
			return
		case !n.HasError():
			// No errors anywhere below this node.
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return errs
}
