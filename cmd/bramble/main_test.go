package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/bramble"
)

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("text"))
	assert.NoError(t, validateFormat("json"))
	assert.Error(t, validateFormat("yaml"))
	assert.Error(t, validateFormat(""))
}

func TestDiscoverPythonFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) string {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))
		return path
	}

	keep1 := mustWrite("app.py")
	keep2 := mustWrite("pkg/mod.py")
	mustWrite("notes.txt")
	mustWrite("__pycache__/cached.py")
	mustWrite(".venv/lib/site.py")

	paths, err := discoverPythonFiles([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{keep1, keep2}, paths)
}

func TestDiscoverPythonFiles_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	paths, err := discoverPythonFiles([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)
}

func TestDiscoverPythonFiles_MissingPath(t *testing.T) {
	_, err := discoverPythonFiles([]string{filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestImportRoots(t *testing.T) {
	roots := importRoots([]string{
		"/proj/a.py",
		"/proj/b.py",
		"/proj/sub/c.py",
	})
	assert.Equal(t, []string{"/proj", filepath.Join("/proj", "sub")}, roots)
}

func TestFlattenResults(t *testing.T) {
	results := []bramble.FileDiagnostics{
		{
			Path:     "a.py",
			Syntax:   bramble.Diagnostics{"s1"},
			Semantic: bramble.Diagnostics{"m1"},
		},
		{Path: "b.py"},
		{Path: "c.py", Semantic: bramble.Diagnostics{"m2"}},
	}

	diags := flattenResults(results)
	assert.Equal(t, []CLIDiagnostic{
		{Path: "a.py", Pass: "syntax", Message: "s1"},
		{Path: "a.py", Pass: "semantic", Message: "m1"},
		{Path: "c.py", Pass: "semantic", Message: "m2"},
	}, diags)
}
