// Package runtime executes user-defined lint rules written in Risor. Each
// rule script receives the parsed tree, the raw source, tree-sitter query
// access, and a diagnostic sink.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"

	"github.com/jward/bramble/internal/pyast"
)

// Runtime loads and runs Risor rule scripts against parsed modules.
type Runtime struct {
	rulesDir string
	fsys     fs.FS
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFS configures the Runtime to load rule scripts from an fs.FS instead
// of from disk. Enables embedding rules via go:embed.
func WithFS(fsys fs.FS) Option {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// NewRuntime creates a Runtime that loads rules from rulesDir (or from an
// embedded fs.FS when WithFS is given, in which case rulesDir may be empty).
func NewRuntime(rulesDir string, opts ...Option) *Runtime {
	r := &Runtime{rulesDir: rulesDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RuleScripts returns the paths of all .risor rule scripts, sorted so rule
// execution order is deterministic.
func (r *Runtime) RuleScripts() ([]string, error) {
	var paths []string

	if r.fsys != nil {
		err := fs.WalkDir(r.fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("runtime: walking rules fs: %w", err)
		}
	} else if r.rulesDir != "" {
		err := filepath.WalkDir(r.rulesDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(r.rulesDir, path)
				paths = append(paths, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("runtime: walking rules dir: %w", err)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// LoadScript reads a .risor file and returns its source code.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading rule %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.rulesDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading rule %s: %w", fullPath, err)
	}
	return string(data), nil
}

// RunRules executes every rule script against the module and returns the
// diagnostics they emitted, grouped by script in sorted script order. A
// script error fails the call.
func (r *Runtime) RunRules(ctx context.Context, module *pyast.Module) ([]string, error) {
	scripts, err := r.RuleScripts()
	if err != nil {
		return nil, err
	}

	var diagnostics []string
	for _, script := range scripts {
		src, err := r.LoadScript(script)
		if err != nil {
			return nil, err
		}
		if err := r.eval(ctx, src, script, module, &diagnostics); err != nil {
			return nil, err
		}
	}
	return diagnostics, nil
}

// RunSource executes Risor rule source directly. Useful for testing without
// script files.
func (r *Runtime) RunSource(ctx context.Context, source string, module *pyast.Module) ([]string, error) {
	var diagnostics []string
	if err := r.eval(ctx, source, "<inline>", module, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func (r *Runtime) eval(ctx context.Context, source, label string, module *pyast.Module, sink *[]string) error {
	globals := buildGlobals(module, sink)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: rule %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer so rule scripts can share helper
// modules. Returns nil if neither fs.FS nor rulesDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.rulesDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.rulesDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// buildGlobals constructs the globals exposed to rule scripts.
func buildGlobals(module *pyast.Module, sink *[]string) map[string]any {
	return map[string]any{
		"tree":       mustProxy(module.Root),
		"source":     string(module.Source),
		"node_text":  makeNodeTextFn(module.Source),
		"node_child": makeNodeChildFn(),
		"query":      makeQueryFn(module.Source),
		"diagnostic": makeDiagnosticFn(sink),
		"log":        mustProxy(&logObject{prefix: "bramble"}),
	}
}
