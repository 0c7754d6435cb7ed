package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Node type names from the tree-sitter Python grammar that the lint passes
// dispatch on.
const (
	NodeString         = "string"
	NodeIdentifier     = "identifier"
	NodeImport         = "import_statement"
	NodeImportFrom     = "import_from_statement"
	NodeClassDef       = "class_definition"
	NodeFunctionDef    = "function_definition"
	NodeDecoratedDef   = "decorated_definition"
	NodeDottedName     = "dotted_name"
	NodeAliasedImport  = "aliased_import"
	NodeWildcardImport = "wildcard_import"
)

// NamedChildren returns all named children of n in document order.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	if count == 0 {
		return nil
	}
	children := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		children = append(children, n.NamedChild(i))
	}
	return children
}

// sameNode reports whether two nodes refer to the same syntactic node.
func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.Equal(b)
}

// ImportedName is one alias introduced by an import or import-from
// statement. Node is the alias node itself (dotted_name or aliased_import),
// which the semantic model assigns a type to. Name is the name as written
// (the full dotted path for plain imports, the symbol name for from-imports)
// and Binding is the name bound in the importing scope.
type ImportedName struct {
	Node    *sitter.Node
	Name    string
	Binding string
}

// ImportModule returns the source module of an import-from statement
// ("typing" in "from typing import override"), or "" for plain imports.
// Relative imports keep their leading dots.
func ImportModule(stmt *sitter.Node, src []byte) string {
	if stmt.Type() != NodeImportFrom {
		return ""
	}
	mod := stmt.ChildByFieldName("module_name")
	if mod == nil {
		return ""
	}
	return mod.Content(src)
}

// ImportedNames decomposes an import or import-from statement into the
// aliases it introduces, in source order. Wildcard imports contribute
// nothing (there is no per-name node to attach a type to).
func ImportedNames(stmt *sitter.Node, src []byte) []ImportedName {
	var names []ImportedName

	moduleName := stmt.ChildByFieldName("module_name")
	for _, child := range NamedChildren(stmt) {
		if sameNode(child, moduleName) {
			continue
		}
		switch child.Type() {
		case NodeDottedName:
			text := child.Content(src)
			binding := text
			if stmt.Type() == NodeImport {
				// "import a.b" binds "a".
				binding = firstSegment(text)
			}
			names = append(names, ImportedName{Node: child, Name: text, Binding: binding})
		case NodeAliasedImport:
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			names = append(names, ImportedName{
				Node:    child,
				Name:    name.Content(src),
				Binding: alias.Content(src),
			})
		}
	}
	return names
}

func firstSegment(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

// Definition looks through a decorated_definition to the wrapped function or
// class definition. For any other node it returns the node itself.
func Definition(n *sitter.Node) *sitter.Node {
	if n.Type() == NodeDecoratedDef {
		if def := n.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return n
}

// Decorators returns the decorator expressions applied to a function or
// class definition, outermost first. The definition node itself is passed,
// not the decorated_definition wrapper.
func Decorators(defn *sitter.Node) []*sitter.Node {
	parent := defn.Parent()
	if parent == nil || parent.Type() != NodeDecoratedDef {
		return nil
	}
	var exprs []*sitter.Node
	for _, child := range NamedChildren(parent) {
		if child.Type() == "decorator" {
			if expr := child.NamedChild(0); expr != nil {
				exprs = append(exprs, expr)
			}
		}
	}
	return exprs
}

// ClassBodyFunctions returns the function definitions nested directly in a
// class body, in source order, looking through decorator wrappers. Nested
// classes are not descended into.
func ClassBodyFunctions(class *sitter.Node) []*sitter.Node {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var fns []*sitter.Node
	for _, stmt := range NamedChildren(body) {
		if def := Definition(stmt); def.Type() == NodeFunctionDef {
			fns = append(fns, def)
		}
	}
	return fns
}

// IsLoadContext reports whether an identifier node is a name read: not an
// assignment or deletion target, not a binding introduced by a definition,
// parameter, import, or as-clause, and not a member name in an attribute
// access.
func IsLoadContext(n *sitter.Node) bool {
	if n.Type() != NodeIdentifier {
		return false
	}
	parent := n.Parent()
	if parent == nil {
		return true
	}

	switch parent.Type() {
	case NodeFunctionDef, NodeClassDef:
		return !sameNode(parent.ChildByFieldName("name"), n)
	case "parameters", "lambda_parameters":
		return false
	case "default_parameter", "typed_default_parameter":
		return !sameNode(parent.ChildByFieldName("name"), n)
	case "typed_parameter":
		// The parameter name is the first child; the annotation is a load.
		return !sameNode(parent.NamedChild(0), n)
	case "keyword_argument":
		return !sameNode(parent.ChildByFieldName("name"), n)
	case "attribute":
		return !sameNode(parent.ChildByFieldName("attribute"), n)
	case NodeDottedName, NodeAliasedImport:
		return false
	case "global_statement", "nonlocal_statement":
		return false
	case "as_pattern_target":
		return false
	case "named_expression":
		return !sameNode(parent.ChildByFieldName("name"), n)
	case "list_splat_pattern", "dictionary_splat_pattern":
		// Splat parameters bind their name; the same wrapper inside an
		// assignment target falls through to the target check below.
		if gp := parent.Parent(); gp != nil {
			switch gp.Type() {
			case "parameters", "lambda_parameters", "typed_parameter":
				return false
			}
		}
	}

	return !isAssignTarget(n)
}

// isAssignTarget walks up through target wrappers (tuple patterns, splats,
// parentheses) and reports whether n sits in the left side of an assignment,
// an augmented assignment, a for-loop target, or a del statement.
func isAssignTarget(n *sitter.Node) bool {
	cur := n
	for {
		parent := cur.Parent()
		if parent == nil {
			return false
		}
		switch parent.Type() {
		case "assignment", "augmented_assignment":
			return sameNode(parent.ChildByFieldName("left"), cur)
		case "for_statement", "for_in_clause":
			return sameNode(parent.ChildByFieldName("left"), cur)
		case "delete_statement":
			return true
		case "pattern_list", "tuple_pattern", "list_pattern",
			"list_splat_pattern", "parenthesized_expression", "expression_list":
			cur = parent
		default:
			return false
		}
	}
}
