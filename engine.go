package bramble

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	goruntime "runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/bramble/internal/pyast"
	bramblert "github.com/jward/bramble/internal/runtime"
	"github.com/jward/bramble/internal/semantic"
	"github.com/jward/bramble/internal/store"
)

// Version participates in the cache key: results cached by an older engine
// are discarded wholesale rather than trusted across rule changes.
const Version = "0.1.0"

// SlowLintEnv, when set in the environment, enables the artificial slow
// path in the syntax pass. It exists to exercise cancellation and changes
// latency only, never results.
const SlowLintEnv = "BRAMBLE_SLOW_LINT"

// Engine orchestrates the lint pipeline: file loading, change detection,
// the syntax and semantic passes, plugin rules, and the SQLite result
// cache.
type Engine struct {
	store    *store.Store
	resolver *semantic.Resolver
	runtime  *bramblert.Runtime // nil unless plugin rules are configured

	useCache    bool
	slowLint    bool
	stdlib      bool
	searchPaths []string
	rulesDir    string
	rulesFS     fs.FS
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache controls the SQLite result cache. On by default; turning it off
// makes every lint call recompute.
func WithCache(enabled bool) Option {
	return func(e *Engine) {
		e.useCache = enabled
	}
}

// WithSlowLint forces the artificial slow path in the syntax pass,
// equivalent to setting SlowLintEnv.
func WithSlowLint(enabled bool) Option {
	return func(e *Engine) {
		e.slowLint = enabled
	}
}

// WithSearchPath adds directories the module resolver probes for project
// modules (the import roots of the linted project).
func WithSearchPath(dirs ...string) Option {
	return func(e *Engine) {
		e.searchPaths = append(e.searchPaths, dirs...)
	}
}

// WithStdlib controls whether standard-library module names resolve. On by
// default.
func WithStdlib(enabled bool) Option {
	return func(e *Engine) {
		e.stdlib = enabled
	}
}

// WithRulesDir loads Risor plugin rules from a directory on disk.
func WithRulesDir(dir string) Option {
	return func(e *Engine) {
		e.rulesDir = dir
	}
}

// WithRulesFS loads Risor plugin rules from the given filesystem instead of
// from disk. This enables embedding rules via go:embed.
func WithRulesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.rulesFS = fsys
	}
}

// New creates an Engine backed by a SQLite cache at dbPath. An empty dbPath
// uses an in-memory database, which caches within the Engine's lifetime
// only.
func New(dbPath string, opts ...Option) (*Engine, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("bramble: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("bramble: migrate: %w", err)
	}

	e := &Engine{
		store:    s,
		useCache: true,
		stdlib:   true,
		slowLint: os.Getenv(SlowLintEnv) != "",
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.checkVersion(); err != nil {
		s.Close()
		return nil, err
	}

	e.resolver = semantic.NewResolver(
		semantic.WithSearchPath(e.searchPaths...),
		semantic.WithStdlib(e.stdlib),
	)

	if e.rulesFS != nil {
		e.runtime = bramblert.NewRuntime(e.rulesDir, bramblert.WithFS(e.rulesFS))
	} else if e.rulesDir != "" {
		e.runtime = bramblert.NewRuntime(e.rulesDir)
	}

	return e, nil
}

// checkVersion clears the cache when it was written by a different engine
// version.
func (e *Engine) checkVersion() error {
	stored, err := e.store.GetMetadata("engine_version")
	if err != nil {
		return fmt.Errorf("bramble: read engine version: %w", err)
	}
	if stored == Version {
		return nil
	}
	if stored != "" {
		if err := e.store.ClearCache(); err != nil {
			return fmt.Errorf("bramble: clear stale cache: %w", err)
		}
	}
	if err := e.store.SetMetadata("engine_version", Version); err != nil {
		return fmt.Errorf("bramble: write engine version: %w", err)
	}
	return nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *store.Store {
	return e.store
}

// readFile loads a file and computes the content hash the cache is keyed
// by.
func (e *Engine) readFile(path string) ([]byte, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return content, fmt.Sprintf("%x", sha256.Sum256(content)), nil
}

// LintSyntax runs the syntax-only pass for a file: line length, quote
// style, and plugin rules, or the parse errors themselves when the file
// fails to parse. Results are memoized by content hash.
func (e *Engine) LintSyntax(ctx context.Context, path string) (Diagnostics, error) {
	content, hash, err := e.readFile(path)
	if err != nil {
		return nil, err
	}

	if e.useCache {
		msgs, hit, err := e.store.CachedDiagnostics(path, store.PassSyntax, hash)
		if err != nil {
			return nil, fmt.Errorf("consult cache: %w", err)
		}
		if hit {
			return NewDiagnostics(msgs), nil
		}
	}

	parsed, err := pyast.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	defer parsed.Close()

	diags, err := lintSyntax(ctx, string(content), parsed, e.slowLint)
	if err != nil {
		return nil, err
	}

	// Plugin rules run after the built-in checks, on valid parses only.
	if e.runtime != nil && parsed.IsValid() {
		extra, err := e.runtime.RunRules(ctx, parsed)
		if err != nil {
			return nil, fmt.Errorf("plugin rules: %w", err)
		}
		if len(extra) > 0 {
			combined := make([]string, 0, len(diags)+len(extra))
			combined = append(combined, diags...)
			combined = append(combined, extra...)
			diags = NewDiagnostics(combined)
		}
	}

	if e.useCache {
		if err := e.store.SaveDiagnostics(path, store.PassSyntax, hash, diags); err != nil {
			return nil, fmt.Errorf("store diagnostics: %w", err)
		}
	}
	return diags, nil
}

// LintSemantic runs the type-aware pass for a file. Results are memoized by
// content hash.
func (e *Engine) LintSemantic(ctx context.Context, path string) (Diagnostics, error) {
	content, hash, err := e.readFile(path)
	if err != nil {
		return nil, err
	}

	if e.useCache {
		msgs, hit, err := e.store.CachedDiagnostics(path, store.PassSemantic, hash)
		if err != nil {
			return nil, fmt.Errorf("consult cache: %w", err)
		}
		if hit {
			return NewDiagnostics(msgs), nil
		}
	}

	parsed, err := pyast.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	defer parsed.Close()

	model := semantic.NewModel(parsed, e.resolver)
	diags, err := lintSemantic(ctx, string(content), parsed, model)
	if err != nil {
		return nil, err
	}

	if e.useCache {
		if err := e.store.SaveDiagnostics(path, store.PassSemantic, hash, diags); err != nil {
			return nil, fmt.Errorf("store diagnostics: %w", err)
		}
	}
	return diags, nil
}

// FileDiagnostics is the combined result of both passes for one file.
type FileDiagnostics struct {
	Path     string
	Syntax   Diagnostics
	Semantic Diagnostics
}

// LintFile runs both passes for a file, syntax first.
func (e *Engine) LintFile(ctx context.Context, path string) (FileDiagnostics, error) {
	syn, err := e.LintSyntax(ctx, path)
	if err != nil {
		return FileDiagnostics{}, fmt.Errorf("lint %s: %w", path, err)
	}
	sem, err := e.LintSemantic(ctx, path)
	if err != nil {
		return FileDiagnostics{}, fmt.Errorf("lint %s: %w", path, err)
	}
	return FileDiagnostics{Path: path, Syntax: syn, Semantic: sem}, nil
}

// LintPaths lints many files on a worker pool, one isolated context per
// file. Results come back in input order regardless of completion order.
func (e *Engine) LintPaths(ctx context.Context, paths []string) ([]FileDiagnostics, error) {
	results := make([]FileDiagnostics, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			fd, err := e.LintFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = fd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
