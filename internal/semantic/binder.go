package semantic

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/bramble/internal/pyast"
)

// NewModel binds one parsed module and returns a Model over the resulting
// type facts. Binding is eager and single-pass per scope; function bodies
// are deferred until the enclosing module body has been fully bound,
// matching Python's deferred execution of function bodies.
func NewModel(mod *pyast.Module, resolver *Resolver) Model {
	b := &binder{
		src:      mod.Source,
		resolver: resolver,
		types:    make(map[*sitter.Node]Type),
	}
	b.bind(mod.Root)
	return &fileModel{types: b.types, resolver: resolver}
}

// fileModel is the binder's output: a node-to-type table plus the resolver
// for module queries. Node keys are stable because tree-sitter caches node
// objects per tree.
type fileModel struct {
	types    map[*sitter.Node]Type
	resolver *Resolver
}

func (m *fileModel) TypeOf(node *sitter.Node) Type {
	if t, ok := m.types[node]; ok {
		return t
	}
	return Any
}

func (m *fileModel) ResolveModule(name string) (*ModuleRef, bool) {
	return m.resolver.Resolve(name)
}

func (m *fileModel) GlobalSymbolType(mod *ModuleRef, name string) Type {
	return mod.GlobalSymbol(name)
}

const (
	scopeModule = iota
	scopeClass
	scopeFunction
)

// scope is one lexical binding environment. Class scopes are skipped when
// capturing the enclosing environment for a deferred function body, since
// Python method bodies do not see class-level names.
type scope struct {
	parent   *scope
	kind     int
	bindings map[string]Type
}

func (s *scope) lookup(name string) (Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// deferredBody is a function body waiting to be bound after the enclosing
// scope finished.
type deferredBody struct {
	params    *sitter.Node
	body      *sitter.Node
	enclosing *scope
}

type binder struct {
	src      []byte
	resolver *Resolver
	types    map[*sitter.Node]Type
	scope    *scope
	deferred []deferredBody
}

func (b *binder) bind(root *sitter.Node) {
	b.scope = &scope{kind: scopeModule, bindings: make(map[string]Type)}
	b.bindBlock(root)

	// Function bodies run after the scopes around them finished binding.
	// Nested functions append while we iterate.
	for i := 0; i < len(b.deferred); i++ {
		d := b.deferred[i]
		b.scope = &scope{parent: d.enclosing, kind: scopeFunction, bindings: make(map[string]Type)}
		if d.params != nil {
			for _, name := range parameterNames(d.params, b.src) {
				b.scope.bindings[name] = Any
			}
		}
		if d.body != nil {
			b.bindBlock(d.body)
		}
	}
}

func (b *binder) text(n *sitter.Node) string {
	return n.Content(b.src)
}

func (b *binder) bindBlock(block *sitter.Node) {
	for _, stmt := range pyast.NamedChildren(block) {
		b.bindStmt(stmt)
	}
}

func (b *binder) bindStmt(n *sitter.Node) {
	switch n.Type() {
	case pyast.NodeImport, pyast.NodeImportFrom:
		b.bindImport(n)
	case pyast.NodeFunctionDef:
		b.bindFunction(n, nil)
	case pyast.NodeClassDef:
		b.bindClass(n, nil)
	case pyast.NodeDecoratedDef:
		b.bindDecorated(n)
	case "if_statement":
		b.bindIf(n)
	case "for_statement":
		if right := n.ChildByFieldName("right"); right != nil {
			b.bindExpr(right)
		}
		if left := n.ChildByFieldName("left"); left != nil {
			b.bindTargets(left, Any)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.bindBlock(body)
		}
		for _, child := range pyast.NamedChildren(n) {
			if child.Type() == "else_clause" {
				b.bindStmt(child)
			}
		}
	case "while_statement":
		if cond := n.ChildByFieldName("condition"); cond != nil {
			b.bindExpr(cond)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.bindBlock(body)
		}
		for _, child := range pyast.NamedChildren(n) {
			if child.Type() == "else_clause" {
				b.bindStmt(child)
			}
		}
	case "global_statement", "nonlocal_statement":
		// Declarations, not loads or stores.
	case "block":
		b.bindBlock(n)
	default:
		for _, child := range pyast.NamedChildren(n) {
			if isStatementLike(child.Type()) {
				b.bindStmt(child)
			} else {
				b.bindExpr(child)
			}
		}
	}
}

// isStatementLike reports node types the binder recurses into as statements.
func isStatementLike(nodeType string) bool {
	switch nodeType {
	case "block", "decorated_definition", "elif_clause", "else_clause",
		"except_clause", "finally_clause", "with_clause", "with_item",
		"case_clause", "match_statement":
		return true
	}
	return strings.HasSuffix(nodeType, "_statement") || strings.HasSuffix(nodeType, "_definition")
}

func (b *binder) bindImport(n *sitter.Node) {
	names := pyast.ImportedNames(n, b.src)

	if n.Type() == pyast.NodeImport {
		for _, imp := range names {
			mod, ok := b.resolver.Resolve(imp.Name)
			if ok {
				b.types[imp.Node] = mod
				// "import a.b" binds "a".
				if bound, bok := b.resolver.Resolve(imp.Binding); bok {
					b.scope.bindings[imp.Binding] = bound
				} else {
					b.scope.bindings[imp.Binding] = Any
				}
			} else {
				b.types[imp.Node] = Unbound
				// The name is still bound at runtime-model level; keep it
				// opaque so the import diagnostic is not echoed by the
				// undefined-name rule at every use site.
				b.scope.bindings[imp.Binding] = Any
			}
		}
		return
	}

	moduleName := pyast.ImportModule(n, b.src)
	if strings.HasPrefix(moduleName, ".") {
		// Relative import: unresolvable without package context; opaque.
		for _, imp := range names {
			b.types[imp.Node] = Any
			b.scope.bindings[imp.Binding] = Any
		}
		return
	}

	mod, ok := b.resolver.Resolve(moduleName)
	for _, imp := range names {
		if !ok {
			b.types[imp.Node] = Unbound
			b.scope.bindings[imp.Binding] = Any
			continue
		}
		t := mod.GlobalSymbol(imp.Name)
		b.types[imp.Node] = t
		b.scope.bindings[imp.Binding] = t
	}
}

func (b *binder) bindDecorated(n *sitter.Node) {
	var decorators []Type
	for _, expr := range pyast.Decorators(pyast.Definition(n)) {
		b.bindExpr(expr)
		decorators = append(decorators, b.infer(expr))
	}

	def := pyast.Definition(n)
	switch def.Type() {
	case pyast.NodeFunctionDef:
		b.bindFunction(def, decorators)
	case pyast.NodeClassDef:
		b.bindClass(def, decorators)
	}
}

func (b *binder) bindFunction(n *sitter.Node, decorators []Type) {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = b.text(nameNode)
	}

	params := n.ChildByFieldName("parameters")
	if params != nil {
		// Annotations and default values evaluate in the enclosing scope.
		b.bindExpr(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		b.bindExpr(ret)
	}

	ft := NewFunction(name, decorators)
	b.types[n] = ft
	if name != "" {
		b.scope.bindings[name] = ft
	}

	b.deferred = append(b.deferred, deferredBody{
		params:    params,
		body:      n.ChildByFieldName("body"),
		enclosing: enclosingNonClass(b.scope),
	})
}

func (b *binder) bindClass(n *sitter.Node, decorators []Type) {
	_ = decorators // class decorators carry no lint-relevant facts yet

	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = b.text(nameNode)
	}

	var bases []*Class
	anyBase := false
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range pyast.NamedChildren(supers) {
			if arg.Type() == "keyword_argument" {
				b.bindExpr(arg)
				continue // metaclass=... and friends are not bases
			}
			b.bindExpr(arg)
			switch base := b.infer(arg).(type) {
			case *Class:
				bases = append(bases, base)
			default:
				// Base resolved to something we cannot see into (an
				// imported name, a call, a builtin). Inherited-member
				// lookups must not claim Unbound.
				anyBase = true
			}
		}
	}

	outer := b.scope
	b.scope = &scope{parent: outer, kind: scopeClass, bindings: make(map[string]Type)}
	if body := n.ChildByFieldName("body"); body != nil {
		b.bindBlock(body)
	}
	members := b.scope.bindings
	b.scope = outer

	ct := NewClass(name, bases, members, anyBase)
	b.types[n] = ct
	if name != "" {
		b.scope.bindings[name] = ct
	}
}

// bindIf binds each arm on a copy of the current environment and merges the
// results. A name bound in only some arms merges to a Union that includes
// its value on the untouched path — Unbound if it had no prior binding.
func (b *binder) bindIf(n *sitter.Node) {
	if cond := n.ChildByFieldName("condition"); cond != nil {
		b.bindExpr(cond)
	}

	var blocks []*sitter.Node
	if consequence := n.ChildByFieldName("consequence"); consequence != nil {
		blocks = append(blocks, consequence)
	}
	hasElse := false
	for _, child := range pyast.NamedChildren(n) {
		switch child.Type() {
		case "elif_clause":
			if cond := child.ChildByFieldName("condition"); cond != nil {
				b.bindExpr(cond)
			}
			if consequence := child.ChildByFieldName("consequence"); consequence != nil {
				blocks = append(blocks, consequence)
			}
		case "else_clause":
			hasElse = true
			if body := child.ChildByFieldName("body"); body != nil {
				blocks = append(blocks, body)
			}
		}
	}

	snapshot := copyBindings(b.scope.bindings)
	var results []map[string]Type
	for _, block := range blocks {
		b.scope.bindings = copyBindings(snapshot)
		b.bindBlock(block)
		results = append(results, b.scope.bindings)
	}
	if !hasElse {
		// Fall-through path with no arm taken.
		results = append(results, snapshot)
	}
	b.scope.bindings = mergeEnvironments(results)
}

func copyBindings(env map[string]Type) map[string]Type {
	out := make(map[string]Type, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// mergeEnvironments joins per-branch environments. A name missing from a
// branch contributes Unbound on that path.
func mergeEnvironments(envs []map[string]Type) map[string]Type {
	merged := make(map[string]Type)
	seen := make(map[string]bool)
	for _, env := range envs {
		for name := range env {
			seen[name] = true
		}
	}
	for name := range seen {
		var members []Type
		for _, env := range envs {
			t, ok := env[name]
			if !ok {
				t = Unbound
			}
			members = appendUnique(members, t)
		}
		if len(members) == 1 {
			merged[name] = members[0]
		} else {
			merged[name] = &Union{Members: members}
		}
	}
	return merged
}

// appendUnique flattens unions and drops duplicate members.
func appendUnique(members []Type, t Type) []Type {
	if u, ok := t.(*Union); ok {
		for _, m := range u.Members {
			members = appendUnique(members, m)
		}
		return members
	}
	for _, m := range members {
		if m == t {
			return members
		}
	}
	return append(members, t)
}

func (b *binder) bindExpr(n *sitter.Node) {
	switch n.Type() {
	case pyast.NodeIdentifier:
		if pyast.IsLoadContext(n) {
			b.types[n] = b.lookup(b.text(n))
		}
	case "assignment":
		right := n.ChildByFieldName("right")
		if typeAnn := n.ChildByFieldName("type"); typeAnn != nil {
			b.bindExpr(typeAnn)
		}
		if right == nil {
			return // bare annotation, no binding
		}
		b.bindExpr(right)
		if left := n.ChildByFieldName("left"); left != nil {
			b.bindTargets(left, b.infer(right))
		}
	case "augmented_assignment":
		if right := n.ChildByFieldName("right"); right != nil {
			b.bindExpr(right)
		}
		if left := n.ChildByFieldName("left"); left != nil {
			b.rebindTargets(left)
		}
	case "as_pattern":
		if value := n.NamedChild(0); value != nil {
			b.bindExpr(value)
		}
		if alias := n.ChildByFieldName("alias"); alias != nil {
			b.bindTargets(alias, Any)
		}
	case "named_expression":
		if value := n.ChildByFieldName("value"); value != nil {
			b.bindExpr(value)
			if name := n.ChildByFieldName("name"); name != nil {
				b.bindTargets(name, b.infer(value))
			}
		}
	case "lambda":
		b.bindScopedExpr(n.ChildByFieldName("parameters"), n.ChildByFieldName("body"))
	case "list_comprehension", "set_comprehension", "dictionary_comprehension",
		"generator_expression":
		b.bindComprehension(n)
	default:
		for _, child := range pyast.NamedChildren(n) {
			b.bindExpr(child)
		}
	}
}

// bindScopedExpr binds a lambda body with its parameters visible, without
// leaking them into the enclosing environment.
func (b *binder) bindScopedExpr(params, body *sitter.Node) {
	saved := b.scope.bindings
	b.scope.bindings = copyBindings(saved)
	if params != nil {
		for _, name := range parameterNames(params, b.src) {
			b.scope.bindings[name] = Any
		}
	}
	if body != nil {
		b.bindExpr(body)
	}
	b.scope.bindings = saved
}

// bindComprehension binds the for/if clauses before the element expression
// so comprehension variables are in scope, then restores the enclosing
// environment (comprehension variables do not leak in Python 3).
func (b *binder) bindComprehension(n *sitter.Node) {
	saved := b.scope.bindings
	b.scope.bindings = copyBindings(saved)

	var rest []*sitter.Node
	for _, child := range pyast.NamedChildren(n) {
		switch child.Type() {
		case "for_in_clause":
			if right := child.ChildByFieldName("right"); right != nil {
				b.bindExpr(right)
			}
			if left := child.ChildByFieldName("left"); left != nil {
				b.bindTargets(left, Any)
			}
		case "if_clause":
			rest = append(rest, child)
		default:
			rest = append(rest, child)
		}
	}
	for _, child := range rest {
		b.bindExpr(child)
	}

	b.scope.bindings = saved
}

func (b *binder) bindTargets(target *sitter.Node, t Type) {
	switch target.Type() {
	case pyast.NodeIdentifier:
		b.scope.bindings[b.text(target)] = t
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list",
		"parenthesized_expression":
		for _, child := range pyast.NamedChildren(target) {
			b.bindTargets(child, Any) // element types unknown after unpacking
		}
	case "list_splat_pattern", "as_pattern_target":
		if inner := target.NamedChild(0); inner != nil {
			b.bindTargets(inner, Any)
		}
	default:
		// Attribute and subscript targets: the base object is a read.
		b.bindExpr(target)
	}
}

// rebindTargets handles augmented assignment: the target keeps its binding
// if it has one, otherwise becomes opaque.
func (b *binder) rebindTargets(target *sitter.Node) {
	if target.Type() == pyast.NodeIdentifier {
		name := b.text(target)
		if _, ok := b.scope.lookup(name); !ok {
			b.scope.bindings[name] = Any
		}
		return
	}
	b.bindExpr(target)
}

func (b *binder) lookup(name string) Type {
	if t, ok := b.scope.lookup(name); ok {
		return t
	}
	if pythonBuiltins[name] {
		return Any
	}
	return Unbound
}

// infer computes a shallow type for an expression: enough to propagate
// modules, classes, functions, and the override marker through assignments,
// bases, and decorators. Everything else is Any.
func (b *binder) infer(n *sitter.Node) Type {
	switch n.Type() {
	case pyast.NodeIdentifier:
		if t, ok := b.types[n]; ok && !IsUnbound(t) {
			return t
		}
		t := b.lookup(b.text(n))
		if IsUnbound(t) {
			// The expression still produces a value at runtime; Unbound
			// only describes the failed name resolution at the use site.
			return Any
		}
		return t
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return Any
		}
		if mod, ok := b.infer(obj).(*ModuleRef); ok {
			return mod.GlobalSymbol(b.text(attr))
		}
		return Any
	case "parenthesized_expression":
		if inner := n.NamedChild(0); inner != nil {
			return b.infer(inner)
		}
		return Any
	default:
		return Any
	}
}

func enclosingNonClass(s *scope) *scope {
	for s != nil && s.kind == scopeClass {
		s = s.parent
	}
	return s
}

// parameterNames extracts the bound names from a parameters node, covering
// plain, typed, defaulted, and splat forms.
func parameterNames(params *sitter.Node, src []byte) []string {
	var names []string
	for _, p := range pyast.NamedChildren(params) {
		switch p.Type() {
		case pyast.NodeIdentifier:
			names = append(names, p.Content(src))
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				names = append(names, name.Content(src))
			}
		case "typed_parameter":
			first := p.NamedChild(0)
			if first == nil {
				continue
			}
			switch first.Type() {
			case pyast.NodeIdentifier:
				names = append(names, first.Content(src))
			case "list_splat_pattern", "dictionary_splat_pattern":
				if inner := first.NamedChild(0); inner != nil && inner.Type() == pyast.NodeIdentifier {
					names = append(names, inner.Content(src))
				}
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			if inner := p.NamedChild(0); inner != nil && inner.Type() == pyast.NodeIdentifier {
				names = append(names, inner.Content(src))
			}
		}
	}
	return names
}

// pythonBuiltins is the subset of the builtin namespace the binder
// recognizes. Names outside it resolve to Unbound at module level.
var pythonBuiltins = map[string]bool{
	"abs": true, "all": true, "any": true, "bool": true, "bytes": true,
	"callable": true, "chr": true, "classmethod": true, "dict": true,
	"dir": true, "divmod": true, "enumerate": true, "filter": true,
	"float": true, "format": true, "frozenset": true, "getattr": true,
	"hasattr": true, "hash": true, "hex": true, "id": true, "input": true,
	"int": true, "isinstance": true, "issubclass": true, "iter": true,
	"len": true, "list": true, "map": true, "max": true, "min": true,
	"next": true, "object": true, "open": true, "ord": true, "pow": true,
	"print": true, "property": true, "range": true, "repr": true,
	"reversed": true, "round": true, "set": true, "setattr": true,
	"sorted": true, "staticmethod": true, "str": true, "sum": true,
	"super": true, "tuple": true, "type": true, "vars": true, "zip": true,
	"BaseException": true, "Exception": true, "ArithmeticError": true,
	"AssertionError": true, "AttributeError": true, "IndexError": true,
	"KeyError": true, "KeyboardInterrupt": true, "LookupError": true,
	"NameError": true, "NotImplementedError": true, "OSError": true,
	"RuntimeError": true, "StopIteration": true, "TypeError": true,
	"ValueError": true, "ZeroDivisionError": true, "NotImplemented": true,
	"Ellipsis": true, "__name__": true, "__file__": true, "__doc__": true,
}
