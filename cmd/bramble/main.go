package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/bramble"
	"github.com/jward/bramble/scripts"
)

var (
	flagDB     string
	flagFormat string
)

// errorHandled is set when the diagnostics themselves are the failure, so
// main() doesn't print a redundant error line after the findings.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "bramble",
	Short:         "Incremental semantic linting for Python",
	Long:          "Bramble lints Python source with tree-sitter and a type-aware semantic pass, caching results per file in a SQLite database so unchanged files are never re-linted.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .bramble/cache.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text|json")

	rootCmd.AddCommand(checkCmd)
}

var (
	flagNoCache     bool
	flagNoStdlib    bool
	flagSlow        bool
	flagRulesDir    string
	flagSearchPaths []string
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Lint Python files",
	Long:  "Runs the syntax and semantic passes over the given files or directories and prints the diagnostics. Exits nonzero when any diagnostic is found.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "recompute every file, ignoring cached results")
	checkCmd.Flags().BoolVar(&flagNoStdlib, "no-stdlib", false, "treat standard-library imports as unresolved")
	checkCmd.Flags().BoolVar(&flagSlow, "slow", false, "enable the artificial slow lint path")
	checkCmd.Flags().StringVar(&flagRulesDir, "rules-dir", "", "load rule scripts from disk path instead of embedded")
	checkCmd.Flags().StringSliceVar(&flagSearchPaths, "search-path", nil, "import roots for resolving project modules (repeatable)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()

	paths, err := discoverPythonFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no Python files found")
	}

	repoRoot := findRepoRoot(filepath.Dir(paths[0]))
	dbPath := resolveDBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	opts := []bramble.Option{
		bramble.WithCache(!flagNoCache),
		bramble.WithStdlib(!flagNoStdlib),
	}
	if flagSlow {
		opts = append(opts, bramble.WithSlowLint(true))
	}
	if len(flagSearchPaths) > 0 {
		opts = append(opts, bramble.WithSearchPath(flagSearchPaths...))
	} else {
		// Default the import roots to the directories being linted.
		opts = append(opts, bramble.WithSearchPath(importRoots(paths)...))
	}
	if flagRulesDir != "" {
		opts = append(opts, bramble.WithRulesDir(flagRulesDir))
	} else {
		opts = append(opts, bramble.WithRulesFS(scripts.FS))
	}

	engine, err := bramble.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	results, err := engine.LintPaths(context.Background(), paths)
	if err != nil {
		return err
	}

	total, err := outputResults(results)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Checked %d files in %s\n", len(paths), time.Since(start).Round(time.Millisecond))

	if total > 0 {
		// Findings exist; the error carries the exit code, output is done.
		errorHandled = true
		return fmt.Errorf("%d diagnostics", total)
	}
	return nil
}

// discoverPythonFiles expands the argument list into .py file paths.
// Directories are walked recursively; hidden directories and __pycache__
// are skipped. No arguments means the current directory.
func discoverPythonFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var paths []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", abs)
		}

		if !info.IsDir() {
			if strings.HasSuffix(abs, ".py") {
				paths = append(paths, abs)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != abs && (strings.HasPrefix(name, ".") || name == "__pycache__") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(name, ".py") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", abs, err)
		}
	}
	return paths, nil
}

// importRoots returns the unique parent directories of the given files, in
// first-seen order. These serve as default module search paths.
func importRoots(paths []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			roots = append(roots, dir)
		}
	}
	return roots
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".bramble", "cache.db")
}
