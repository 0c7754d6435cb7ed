package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

// Concurrent access would land on fresh empty databases if the pool opened
// more than one :memory: connection.
func TestInMemoryStore_SurvivesConcurrentAccess(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.SaveDiagnostics(fmt.Sprintf("f%d.py", i), PassSyntax, "h", []string{"m"})
		}()
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	for i := 0; i < workers; i++ {
		got, hit, err := s.CachedDiagnostics(fmt.Sprintf("f%d.py", i), PassSyntax, "h")
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, []string{"m"}, got)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestSaveAndCachedDiagnostics(t *testing.T) {
	s := newTestStore(t)

	msgs := []string{"first", "second"}
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h1", msgs))

	got, hit, err := s.CachedDiagnostics("a.py", PassSyntax, "h1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, msgs, got)
}

func TestCachedDiagnostics_MissCases(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h1", []string{"m"}))

	_, hit, err := s.CachedDiagnostics("unknown.py", PassSyntax, "h1")
	require.NoError(t, err)
	assert.False(t, hit, "unknown file")

	_, hit, err = s.CachedDiagnostics("a.py", PassSyntax, "h2")
	require.NoError(t, err)
	assert.False(t, hit, "hash mismatch")

	_, hit, err = s.CachedDiagnostics("a.py", PassSemantic, "h1")
	require.NoError(t, err)
	assert.False(t, hit, "pass never ran")
}

func TestCachedDiagnostics_EmptyResultIsAHit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveDiagnostics("clean.py", PassSemantic, "h1", nil))

	got, hit, err := s.CachedDiagnostics("clean.py", PassSemantic, "h1")
	require.NoError(t, err)
	assert.True(t, hit, "a clean run caches as empty, not as a miss")
	assert.Empty(t, got)
}

func TestSaveDiagnostics_HashChangeInvalidatesOtherPasses(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h1", []string{"s"}))
	require.NoError(t, s.SaveDiagnostics("a.py", PassSemantic, "h1", []string{"t"}))

	// New content: only the syntax pass has run against it.
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h2", []string{"s2"}))

	got, hit, err := s.CachedDiagnostics("a.py", PassSyntax, "h2")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"s2"}, got)

	_, hit, err = s.CachedDiagnostics("a.py", PassSemantic, "h2")
	require.NoError(t, err)
	assert.False(t, hit, "semantic results for old content must not survive")

	_, hit, err = s.CachedDiagnostics("a.py", PassSemantic, "h1")
	require.NoError(t, err)
	assert.False(t, hit, "old hash no longer matches the file record")
}

func TestSaveDiagnostics_ReplacesPassRows(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h1", []string{"old1", "old2"}))
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h1", []string{"new"}))

	got, hit, err := s.CachedDiagnostics("a.py", PassSyntax, "h1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"new"}, got)
}

func TestDeleteFileData(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h1", []string{"m"}))

	f, err := s.FileByPath("a.py")
	require.NoError(t, err)
	require.NotNil(t, f)

	require.NoError(t, s.DeleteFileData(f.ID))

	f, err = s.FileByPath("a.py")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestClearCache_KeepsMetadata(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveDiagnostics("a.py", PassSyntax, "h1", []string{"m"}))
	require.NoError(t, s.SetMetadata("engine_version", "1.0"))

	require.NoError(t, s.ClearCache())

	f, err := s.FileByPath("a.py")
	require.NoError(t, err)
	assert.Nil(t, f)

	v, err := s.GetMetadata("engine_version")
	require.NoError(t, err)
	assert.Equal(t, "1.0", v)
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("absent")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetMetadata("k", "v1"))
	require.NoError(t, s.SetMetadata("k", "v2"))

	v, err = s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
