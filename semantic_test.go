package bramble

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/bramble/internal/semantic"
)

func runSemantic(t *testing.T, src string, opts ...semantic.ResolverOption) Diagnostics {
	t.Helper()
	mod := parseSource(t, src)
	model := semantic.NewModel(mod, semantic.NewResolver(opts...))
	diags, err := lintSemantic(context.Background(), src, mod, model)
	require.NoError(t, err)
	return diags
}

func TestLintSemantic_CleanFile(t *testing.T) {
	diags := runSemantic(t, `import os

def main():
    return os.getcwd()
`)
	assert.Nil(t, diags)
}

func TestLintSemantic_UndefinedAndPossiblyUndefined(t *testing.T) {
	diags := runSemantic(t, `x = int
if flag:
    y = x
y
`)
	assert.Equal(t, Diagnostics{
		"Name 'flag' used when not defined.",
		"Name 'y' used when possibly not defined.",
	}, diags)
}

func TestLintSemantic_DefinedInAllBranches(t *testing.T) {
	diags := runSemantic(t, `if cond:
    y = 1
else:
    y = 2
y
`)
	assert.Equal(t, Diagnostics{"Name 'cond' used when not defined."}, diags)
}

func TestLintSemantic_SplatParametersAreNotFlagged(t *testing.T) {
	diags := runSemantic(t, `def f(*args, **kwargs):
    return args, kwargs

g = lambda *a, **k: (a, k)
`)
	assert.Nil(t, diags)
}

func TestLintSemantic_UnresolvedImport(t *testing.T) {
	diags := runSemantic(t, "import os_typo\n")
	assert.Equal(t, Diagnostics{"Unresolved import 'os_typo'"}, diags)
}

func TestLintSemantic_UnresolvedImportNotEchoedAtUses(t *testing.T) {
	diags := runSemantic(t, `import os_typo

os_typo.do_thing()
`)
	assert.Equal(t, Diagnostics{"Unresolved import 'os_typo'"}, diags)
}

func TestLintSemantic_MixedImportList(t *testing.T) {
	diags := runSemantic(t, "import os, os_typo\n")
	assert.Equal(t, Diagnostics{"Unresolved import 'os_typo'"}, diags)
}

func TestLintSemantic_UnresolvedFromImport(t *testing.T) {
	diags := runSemantic(t, "from missing_mod import thing\n")
	assert.Equal(t, Diagnostics{"Unresolved import 'thing'"}, diags)
}

func TestLintSemantic_RelativeImportIsQuiet(t *testing.T) {
	diags := runSemantic(t, "from .sibling import helper\nhelper()\n")
	assert.Nil(t, diags)
}

func TestLintSemantic_BadOverride(t *testing.T) {
	diags := runSemantic(t, `from typing import override

class Base:
    def foo(self):
        pass

class Sub(Base):
    @override
    def bar(self):
        pass
`)
	assert.Equal(t, Diagnostics{
		"Method Sub.bar is decorated with `typing.override` but does not override any base class method",
	}, diags)
}

func TestLintSemantic_GoodOverride(t *testing.T) {
	diags := runSemantic(t, `from typing import override

class Base:
    def foo(self):
        pass

class Sub(Base):
    @override
    def foo(self):
        pass
`)
	assert.Nil(t, diags)
}

func TestLintSemantic_OverrideThroughAttribute(t *testing.T) {
	diags := runSemantic(t, `import typing

class Base:
    def foo(self):
        pass

class Sub(Base):
    @typing.override
    def bar(self):
        pass
`)
	assert.Equal(t, Diagnostics{
		"Method Sub.bar is decorated with `typing.override` but does not override any base class method",
	}, diags)
}

func TestLintSemantic_OverrideInheritedFromGrandparent(t *testing.T) {
	diags := runSemantic(t, `from typing import override

class A:
    def foo(self):
        pass

class B(A):
    pass

class C(B):
    @override
    def foo(self):
        pass
`)
	assert.Nil(t, diags)
}

func TestLintSemantic_OverrideWithOpaqueBaseIsQuiet(t *testing.T) {
	// An unresolvable base could define anything, so the rule must not
	// claim the method overrides nothing.
	diags := runSemantic(t, `import collections
from typing import override

class Sub(collections.UserDict):
    @override
    def anything(self):
        pass
`)
	assert.Nil(t, diags)
}

func TestLintSemantic_OverrideWithoutTypingModule(t *testing.T) {
	diags := runSemantic(t, `from typing import override

class Base:
    def foo(self):
        pass

class Sub(Base):
    @override
    def bar(self):
        pass
`, semantic.WithStdlib(false))
	// With no resolvable typing module only the import itself is flagged;
	// the override rule has no marker to match.
	assert.Equal(t, Diagnostics{"Unresolved import 'override'"}, diags)
}

// A project-local typing.py shadows the stdlib table, so the resolved
// module is opaque and symbol lookups answer Any. That must disable the
// override rule, not let Any match every unresolved decorator.
func TestLintSemantic_ShadowedTypingModuleIsQuiet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typing.py"), []byte(""), 0644))

	diags := runSemantic(t, `import typing

class Base:
    pass

class Sub(Base):
    @staticmethod
    def helper():
        pass
`, semantic.WithSearchPath(dir))
	assert.Nil(t, diags)
}

func TestLintSemantic_InvalidParseProducesNothing(t *testing.T) {
	src := "def broken(:\n    undefined_name\n"
	mod := parseSource(t, src)
	require.False(t, mod.IsValid())

	model := semantic.NewModel(mod, semantic.NewResolver())
	diags, err := lintSemantic(context.Background(), src, mod, model)
	require.NoError(t, err)
	assert.Nil(t, diags)
}

func TestLintSemantic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := "x = 1\n"
	mod := parseSource(t, src)
	model := semantic.NewModel(mod, semantic.NewResolver())

	_, err := lintSemantic(ctx, src, mod, model)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// scriptedModel substitutes for the binder's output, answering every query
// from fixed functions.
type scriptedModel struct {
	typeOf func(*sitter.Node) semantic.Type
}

func (m *scriptedModel) TypeOf(n *sitter.Node) semantic.Type {
	return m.typeOf(n)
}

func (m *scriptedModel) ResolveModule(string) (*semantic.ModuleRef, bool) {
	return nil, false
}

func (m *scriptedModel) GlobalSymbolType(*semantic.ModuleRef, string) semantic.Type {
	return semantic.Any
}

func TestLintSemantic_ModelIsSubstitutable(t *testing.T) {
	src := "a\n"
	mod := parseSource(t, src)

	model := &scriptedModel{
		typeOf: func(*sitter.Node) semantic.Type { return semantic.Unbound },
	}
	diags, err := lintSemantic(context.Background(), src, mod, model)
	require.NoError(t, err)
	assert.Equal(t, Diagnostics{"Name 'a' used when not defined."}, diags)
}

// Keeps the two name-diagnostic shapes mutually exclusive per occurrence.
func TestLintSemantic_OneMessagePerOccurrence(t *testing.T) {
	diags := runSemantic(t, `if flag:
    y = 1
y
y
`)
	assert.Equal(t, Diagnostics{
		"Name 'flag' used when not defined.",
		"Name 'y' used when possibly not defined.",
		"Name 'y' used when possibly not defined.",
	}, diags)
}

var _ semantic.Model = (*scriptedModel)(nil)
