package bramble

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/bramble/internal/pyast"
	"github.com/jward/bramble/internal/semantic"
)

// lintUnresolvedImports flags every imported alias whose inferred type is
// Unbound. Each alias in a multi-name import is checked independently.
func lintUnresolvedImports(c *lintContext, stmt *sitter.Node) {
	for _, alias := range pyast.ImportedNames(stmt, c.parsed.Source) {
		if semantic.IsUnbound(c.model.TypeOf(alias.Node)) {
			c.pushDiagnostic(fmt.Sprintf("Unresolved import '%s'", alias.Name))
		}
	}
}

// lintMaybeUndefined flags name reads whose binding does not (or may not)
// reach the use. Exactly Unbound and Unbound-inside-a-Union are disjoint
// type shapes, so at most one message fires per occurrence.
func lintMaybeUndefined(c *lintContext, name *sitter.Node) {
	switch ty := c.model.TypeOf(name).(type) {
	case *semantic.Union:
		if ty.ContainsUnbound() {
			c.pushDiagnostic(fmt.Sprintf("Name '%s' used when possibly not defined.", c.parsed.Text(name)))
		}
	default:
		if semantic.IsUnbound(ty) {
			c.pushDiagnostic(fmt.Sprintf("Name '%s' used when not defined.", c.parsed.Text(name)))
		}
	}
}

// lintBadOverride flags methods decorated with typing.override that do not
// override anything in a base class. Only functions directly in the class
// body are checked, and the message uses the simple class name; nested
// classes are out of scope.
func lintBadOverride(c *lintContext, class *sitter.Node) {
	// A project without a resolvable "typing" module has nothing to check.
	// TODO distinguish the real typing module from a project-local typing.py
	// so a shadowing module doesn't enable the rule with foreign symbols.
	typing, ok := c.model.ResolveModule("typing")
	if !ok {
		return
	}
	overrideTy := c.model.GlobalSymbolType(typing, "override")
	if semantic.IsAny(overrideTy) || semantic.IsUnbound(overrideTy) {
		// An opaque or incomplete typing module yields no marker value to
		// match; Any would equal every unresolved decorator.
		return
	}

	classTy, ok := c.model.TypeOf(class).(*semantic.Class)
	if !ok {
		return
	}

	for _, function := range pyast.ClassBodyFunctions(class) {
		fnTy, ok := c.model.TypeOf(function).(*semantic.Function)
		if !ok {
			return
		}

		if fnTy.HasDecorator(overrideTy) {
			methodName := fnTy.Name()
			if semantic.IsUnbound(classTy.InheritedMember(methodName)) {
				c.pushDiagnostic(fmt.Sprintf(
					"Method %s.%s is decorated with `typing.override` but does not override any base class method",
					classTy.Name,
					methodName,
				))
			}
		}
	}
}
