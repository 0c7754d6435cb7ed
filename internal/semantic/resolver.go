package semantic

import (
	"os"
	"path/filepath"
)

// Resolver resolves dotted module names against a project search path and,
// when enabled, a table of standard-library modules.
type Resolver struct {
	searchPaths []string
	stdlib      bool

	// resolved caches modules by dotted name so repeated lookups return the
	// same *ModuleRef. Rules compare symbol values by identity, so module
	// identity must be stable within a resolver.
	resolved map[string]*ModuleRef
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSearchPath adds directories to probe for project modules.
func WithSearchPath(dirs ...string) ResolverOption {
	return func(r *Resolver) {
		r.searchPaths = append(r.searchPaths, dirs...)
	}
}

// WithStdlib controls whether standard-library module names resolve. On by
// default; tests that need an environment without a "typing" module turn it
// off.
func WithStdlib(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.stdlib = enabled
	}
}

// NewResolver creates a Resolver. With no options it resolves only
// standard-library names.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stdlib:   true,
		resolved: make(map[string]*ModuleRef),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves a dotted module name. Search-path modules win over the
// stdlib table, matching CPython's default sys.path ordering — a project
// with its own typing.py shadows the real one (a known false-positive
// surface for the override rule).
func (r *Resolver) Resolve(dotted string) (*ModuleRef, bool) {
	if dotted == "" || dotted[0] == '.' {
		// Relative imports are resolved against the importing package,
		// which a single-file resolver does not know. Treated as
		// unresolvable; the binder marks their bindings opaque instead of
		// unbound so they do not produce noise.
		return nil, false
	}
	if m, ok := r.resolved[dotted]; ok {
		return m, m != nil
	}

	m := r.resolveUncached(dotted)
	r.resolved[dotted] = m
	return m, m != nil
}

func (r *Resolver) resolveUncached(dotted string) *ModuleRef {
	first := firstDotSegment(dotted)
	for _, dir := range r.searchPaths {
		if fileExists(filepath.Join(dir, first+".py")) ||
			fileExists(filepath.Join(dir, first, "__init__.py")) {
			return &ModuleRef{Name: dotted}
		}
	}
	if r.stdlib {
		if mod, ok := stdlibModules[first]; ok {
			if dotted == first {
				return mod
			}
			// Submodule of a known package (e.g. os.path): opaque.
			return &ModuleRef{Name: dotted}
		}
	}
	return nil
}

func firstDotSegment(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// TypingOverride is the typing.override marker value. Exported so tests can
// assert decorator identity.
var TypingOverride = NewFunction("override", nil)

// stdlibModules is a curated slice of the standard library: enough for
// import resolution not to flag common modules, plus the typing symbols the
// rules care about. Modules without a table are opaque (all lookups answer
// Any).
var stdlibModules = map[string]*ModuleRef{
	"typing": {
		Name: "typing",
		globals: map[string]Type{
			"override": TypingOverride,
		},
	},
	"abc":         {Name: "abc"},
	"collections": {Name: "collections"},
	"dataclasses": {Name: "dataclasses"},
	"datetime":    {Name: "datetime"},
	"enum":        {Name: "enum"},
	"functools":   {Name: "functools"},
	"io":          {Name: "io"},
	"itertools":   {Name: "itertools"},
	"json":        {Name: "json"},
	"logging":     {Name: "logging"},
	"math":        {Name: "math"},
	"os":          {Name: "os"},
	"pathlib":     {Name: "pathlib"},
	"re":          {Name: "re"},
	"shutil":      {Name: "shutil"},
	"subprocess":  {Name: "subprocess"},
	"sys":         {Name: "sys"},
	"tempfile":    {Name: "tempfile"},
	"time":        {Name: "time"},
	"unittest":    {Name: "unittest"},
}
