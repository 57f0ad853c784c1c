package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	dir := t.TempDir()
	m, err := New(st, dir, nil)
	require.NoError(t, err)
	return m, st, dir
}

func seedResult(t *testing.T, st *store.Store) string {
	t.Helper()
	ctx := context.Background()
	task, err := st.CreateTask(ctx, "https://example.com/", []string{"fetch"})
	require.NoError(t, err)
	id, err := st.SaveResult(ctx, &store.Result{
		TaskID:     task.ID,
		URL:        task.URL,
		Title:      "Example",
		PlanText:   "# Example Clone Plan\n\nBody.",
		DesignJSON: `{"layout":{"columns":2}}`,
	})
	require.NoError(t, err)
	return id
}

func TestExport(t *testing.T) {
	m, st, dir := newTestManager(t)
	ctx := context.Background()
	resultID := seedResult(t, st)

	t.Run("markdown", func(t *testing.T) {
		path, err := m.Export(ctx, resultID, FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(path))

		body, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "# Example Clone Plan\n\nBody.", string(body))
	})

	t.Run("html wraps the plan", func(t *testing.T) {
		path, err := m.Export(ctx, resultID, FormatHTML)
		require.NoError(t, err)

		body, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(body), "<title>Example Clone Plan</title>")
		assert.Contains(t, string(body), "# Example Clone Plan")
	})

	t.Run("json embeds stored documents", func(t *testing.T) {
		path, err := m.Export(ctx, resultID, FormatJSON)
		require.NoError(t, err)

		body, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"result_id"`)
		assert.Contains(t, string(body), `"columns": 2`)
	})

	t.Run("history and exported flag", func(t *testing.T) {
		records, err := st.ListExports(ctx, resultID)
		require.NoError(t, err)
		assert.Len(t, records, 3)

		result, err := st.GetResult(ctx, resultID)
		require.NoError(t, err)
		assert.True(t, result.Exported)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := m.Export(ctx, resultID, "docx")
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("unknown result", func(t *testing.T) {
		_, err := m.Export(ctx, "missing", FormatMarkdown)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCleanupFiles(t *testing.T) {
	m, st, dir := newTestManager(t)
	resultID := seedResult(t, st)

	path, err := m.Export(context.Background(), resultID, FormatMarkdown)
	require.NoError(t, err)

	// Fresh files survive.
	removed, err := m.CleanupFiles(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	// Aged files are removed.
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	removed, err = m.CleanupFiles(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
