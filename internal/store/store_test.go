package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testSteps = []string{"fetch", "extract", "generate"}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCreateAndGetTask(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)

	loaded, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, loaded.ID)
	require.Len(t, loaded.Steps, 3)
	for i, step := range loaded.Steps {
		assert.Equal(t, i, step.StepIndex)
		assert.Equal(t, StatusPending, step.Status)
	}

	_, err = st.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusTransitions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	t.Run("pending to running to completed", func(t *testing.T) {
		task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
		require.NoError(t, err)

		require.NoError(t, st.MarkRunning(ctx, task.ID, "started"))
		require.NoError(t, st.CompleteTask(ctx, task.ID, "result-1"))

		loaded, err := st.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, loaded.Status)
		assert.Equal(t, 100, loaded.Progress)
		assert.Equal(t, "result-1", loaded.ResultID)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
		require.NoError(t, err)
		require.NoError(t, st.MarkRunning(ctx, task.ID, "started"))
		require.NoError(t, st.FailTask(ctx, task.ID, "fetch:timeout", "deadline exceeded"))

		assert.ErrorIs(t, st.MarkRunning(ctx, task.ID, ""), ErrInvalidTransition)
		assert.ErrorIs(t, st.CompleteTask(ctx, task.ID, "r"), ErrInvalidTransition)
		assert.ErrorIs(t, st.FailTask(ctx, task.ID, "fetch", "again"), ErrInvalidTransition)

		loaded, err := st.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusError, loaded.Status)
		assert.Equal(t, "fetch:timeout", loaded.ErrorKind)
		assert.Equal(t, "deadline exceeded", loaded.Error)
	})

	t.Run("completion requires running", func(t *testing.T) {
		task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
		require.NoError(t, err)
		assert.ErrorIs(t, st.CompleteTask(ctx, task.ID, "r"), ErrInvalidTransition)
	})
}

func TestUpdateStepProgress(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning(ctx, task.ID, "started"))

	// One of three steps running: 0.5/3 of the work.
	require.NoError(t, st.UpdateStep(ctx, task.ID, 0, StatusRunning, ""))
	loaded, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, loaded.Progress)
	assert.Equal(t, "fetch in progress", loaded.Message)

	require.NoError(t, st.UpdateStep(ctx, task.ID, 0, StatusCompleted, "ok"))
	loaded, err = st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, loaded.Progress)
	assert.Equal(t, "fetch done", loaded.Message)

	require.NoError(t, st.UpdateStep(ctx, task.ID, 1, StatusRunning, "parsing"))
	loaded, err = st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.Progress)
	assert.Equal(t, "extract - parsing", loaded.Message)

	t.Run("progress never decreases", func(t *testing.T) {
		// Regressing a step must not pull the task progress back.
		require.NoError(t, st.UpdateStep(ctx, task.ID, 1, StatusPending, ""))
		loaded, err := st.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, loaded.Progress, 50)
	})

	t.Run("unknown step", func(t *testing.T) {
		assert.ErrorIs(t, st.UpdateStep(ctx, task.ID, 9, StatusRunning, ""), ErrNotFound)
	})
}

func TestSaveResultOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
	require.NoError(t, err)

	id, err := st.SaveResult(ctx, &Result{
		TaskID:   task.ID,
		URL:      task.URL,
		Title:    "Example",
		PlanText: "# Example Clone Plan",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = st.SaveResult(ctx, &Result{TaskID: task.ID, URL: task.URL})
	assert.ErrorIs(t, err, ErrResultExists)

	loaded, err := st.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Example", loaded.Title)
	assert.False(t, loaded.Exported)

	byTask, err := st.GetResultByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, id, byTask.ID)

	_, err = st.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkDelivered(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
	require.NoError(t, err)

	require.NoError(t, st.MarkDelivered(ctx, task.ID))
	loaded, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Delivered)

	assert.ErrorIs(t, st.MarkDelivered(ctx, "missing"), ErrNotFound)
}

func TestExportsAndUsage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
	require.NoError(t, err)
	resultID, err := st.SaveResult(ctx, &Result{TaskID: task.ID, URL: task.URL})
	require.NoError(t, err)

	require.NoError(t, st.RecordExport(ctx, &ExportRecord{
		ResultID: resultID,
		Format:   "markdown",
		FilePath: "/tmp/plan.md",
	}))
	require.NoError(t, st.MarkExported(ctx, resultID))

	records, err := st.ListExports(ctx, resultID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "markdown", records[0].Format)

	result, err := st.GetResult(ctx, resultID)
	require.NoError(t, err)
	assert.True(t, result.Exported)

	require.NoError(t, st.RecordUsage(ctx, &APIUsage{
		APIType:  "openai",
		Endpoint: "chat",
		TokensIn: 120,
		TaskID:   task.ID,
	}))
}

func TestSettings(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, "stub", st.GetSetting(ctx, SettingTextBackend, "stub"))

	require.NoError(t, st.PutSettings(ctx, map[string]string{
		SettingTextBackend:  "openai",
		SettingImageBackend: "stub",
	}))
	assert.Equal(t, "openai", st.GetSetting(ctx, SettingTextBackend, "stub"))

	// Upsert overwrites.
	require.NoError(t, st.PutSettings(ctx, map[string]string{SettingTextBackend: "stub"}))
	assert.Equal(t, "stub", st.GetSetting(ctx, SettingTextBackend, "openai"))

	all, err := st.GetSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetSettingLogsQueryFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.New(core))
	require.NoError(t, err)
	ctx := context.Background()

	// A missing key is the normal case and stays quiet.
	assert.Equal(t, "stub", st.GetSetting(ctx, SettingTextBackend, "stub"))
	assert.Zero(t, logs.FilterMessage("failed to load setting").Len())

	require.NoError(t, st.Close())

	// A failing query still falls back, but loudly.
	assert.Equal(t, "stub", st.GetSetting(ctx, SettingTextBackend, "stub"))
	entries := logs.FilterMessage("failed to load setting").All()
	require.Len(t, entries, 1)
	assert.Equal(t, SettingTextBackend, entries[0].ContextMap()["key"])
}

func TestDeleteTaskRemovesResultAndExports(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, "https://example.com/", testSteps)
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning(ctx, task.ID, ""))
	resultID, err := st.SaveResult(ctx, &Result{TaskID: task.ID, URL: task.URL})
	require.NoError(t, err)
	require.NoError(t, st.CompleteTask(ctx, task.ID, resultID))
	require.NoError(t, st.RecordExport(ctx, &ExportRecord{
		ResultID: resultID,
		Format:   "markdown",
		FilePath: "/tmp/plan.md",
	}))

	require.NoError(t, st.DeleteTask(ctx, task.ID))

	_, err = st.GetResult(ctx, resultID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.GetResultByTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	records, err := st.ListExports(ctx, resultID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCleanupTasks(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	done, err := st.CreateTask(ctx, "https://done.example.com/", testSteps)
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning(ctx, done.ID, ""))
	resultID, err := st.SaveResult(ctx, &Result{TaskID: done.ID, URL: done.URL})
	require.NoError(t, err)
	require.NoError(t, st.RecordExport(ctx, &ExportRecord{ResultID: resultID, Format: "json"}))
	require.NoError(t, st.CompleteTask(ctx, done.ID, resultID))

	running, err := st.CreateTask(ctx, "https://running.example.com/", testSteps)
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning(ctx, running.ID, ""))

	time.Sleep(5 * time.Millisecond)

	deleted, err := st.CleanupTasks(ctx, time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = st.GetTask(ctx, done.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The expired task's result and export history go with it.
	_, err = st.GetResult(ctx, resultID)
	assert.ErrorIs(t, err, ErrNotFound)
	records, err := st.ListExports(ctx, resultID)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Running tasks survive regardless of age.
	_, err = st.GetTask(ctx, running.ID)
	assert.NoError(t, err)
}

func TestSummary(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a, err := st.CreateTask(ctx, "https://a.example.com/", testSteps)
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning(ctx, a.ID, ""))
	require.NoError(t, st.CompleteTask(ctx, a.ID, "r"))

	_, err = st.CreateTask(ctx, "https://b.example.com/", testSteps)
	require.NoError(t, err)

	summary, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.Completed)
	assert.Equal(t, int64(1), summary.Pending)
	assert.Equal(t, int64(2), summary.Recent)
}
