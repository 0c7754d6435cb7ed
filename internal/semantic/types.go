// Package semantic builds the type facts the lint rules query: a small type
// lattice (Unbound, Union, Class, Function, Module, Any), a per-file Model
// answering "what is the inferred type of this node", and a module resolver.
//
// The binder here is deliberately modest. It is flow-aware at branch
// granularity (a name bound in only some arms of an if statement gets a
// Union containing Unbound) and understands imports, class bases, and
// decorators — exactly the facts the shipped rules consume. The lint core
// depends only on the Model interface, so tests can substitute a scripted
// fake.
package semantic

import sitter "github.com/smacker/go-tree-sitter"

// Type is one value of the lint-relevant type lattice. Values are immutable
// once the binder has produced them; rules only read.
type Type interface {
	isType()
}

type unboundType struct{}
type anyType struct{}

func (unboundType) isType() {}
func (anyType) isType()     {}

// Unbound means no binding reaches this use on the analyzed control-flow
// path. Any is the unconstrained catch-all.
var (
	Unbound Type = unboundType{}
	Any     Type = anyType{}
)

// IsUnbound reports whether t is exactly the Unbound type.
func IsUnbound(t Type) bool {
	_, ok := t.(unboundType)
	return ok
}

// IsAny reports whether t is exactly the Any type.
func IsAny(t Type) bool {
	_, ok := t.(anyType)
	return ok
}

// Union is one of several possible types on different control-flow paths.
// Members may include Unbound.
type Union struct {
	Members []Type
}

func (*Union) isType() {}

// Contains reports whether t is one of the union's members.
func (u *Union) Contains(t Type) bool {
	for _, m := range u.Members {
		if m == t {
			return true
		}
	}
	return false
}

// ContainsUnbound reports whether any member is Unbound.
func (u *Union) ContainsUnbound() bool {
	return u.Contains(Unbound)
}

// Class is a class object. Members maps names bound directly in the class
// body; bases are the resolved superclasses.
type Class struct {
	Name    string
	bases   []*Class
	members map[string]Type

	// anyBase is set when a superclass could not be resolved to a Class
	// (e.g. it came from an opaque import). Inherited-member lookups then
	// answer Any rather than Unbound, so the override rule stays quiet.
	anyBase bool
}

func (*Class) isType() {}

// NewClass constructs a class type. Intended for tests and the binder.
func NewClass(name string, bases []*Class, members map[string]Type, anyBase bool) *Class {
	if members == nil {
		members = map[string]Type{}
	}
	return &Class{Name: name, bases: bases, members: members, anyBase: anyBase}
}

// Member returns the type bound to name directly in the class body, or
// Unbound.
func (c *Class) Member(name string) Type {
	if t, ok := c.members[name]; ok {
		return t
	}
	return Unbound
}

// InheritedMember looks up name through the class's bases, excluding members
// defined on c itself. Returns Unbound when no base provides the member, or
// Any when some base is unresolvable.
func (c *Class) InheritedMember(name string) Type {
	if c.anyBase {
		return Any
	}
	for _, base := range c.bases {
		if t := base.lookupMember(name); !IsUnbound(t) {
			return t
		}
	}
	return Unbound
}

// lookupMember searches the class's own members, then its bases, depth
// first.
func (c *Class) lookupMember(name string) Type {
	if t, ok := c.members[name]; ok {
		return t
	}
	if c.anyBase {
		return Any
	}
	for _, base := range c.bases {
		if t := base.lookupMember(name); !IsUnbound(t) {
			return t
		}
	}
	return Unbound
}

// Function is a function object: its declared name and the decorator values
// applied to it. Decorator presence is compared by value identity, so the
// typing.override marker matches regardless of how it was imported.
type Function struct {
	name       string
	decorators []Type
}

func (*Function) isType() {}

// NewFunction constructs a function type. Intended for tests and the binder.
func NewFunction(name string, decorators []Type) *Function {
	return &Function{name: name, decorators: decorators}
}

// Name returns the function's declared name.
func (f *Function) Name() string {
	return f.name
}

// HasDecorator reports whether value was applied to the function as a
// decorator.
func (f *Function) HasDecorator(value Type) bool {
	for _, d := range f.decorators {
		if d == value {
			return true
		}
	}
	return false
}

// ModuleRef is a resolved importable module: its dotted name and, when
// known, its global symbol table. A nil globals map means the module is
// opaque — lookups answer Any.
type ModuleRef struct {
	Name    string
	globals map[string]Type
}

func (*ModuleRef) isType() {}

// GlobalSymbol returns the type of a name in the module's global scope. For
// opaque modules every name answers Any; for modules with a known table,
// unknown names also answer Any (the tables are deliberately incomplete).
func (m *ModuleRef) GlobalSymbol(name string) Type {
	if m.globals == nil {
		return Any
	}
	if t, ok := m.globals[name]; ok {
		return t
	}
	return Any
}

// Model answers type queries for one file. Implemented by the binder's
// output and by test fakes.
type Model interface {
	// TypeOf returns the inferred type of an AST node. Nodes the binder
	// produced no fact for answer Any.
	TypeOf(node *sitter.Node) Type
	// ResolveModule resolves a dotted module name to a module, if any.
	ResolveModule(name string) (*ModuleRef, bool)
	// GlobalSymbolType looks up a name in a resolved module's global scope.
	GlobalSymbolType(mod *ModuleRef, name string) Type
}
