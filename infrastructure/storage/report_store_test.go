package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ui_verification/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveScreenshot_CreatesDirectoryAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReportStore(filepath.Join(dir, ".verification"))
	require.NoError(t, err)

	path := filepath.Join(dir, "verification", "verification.png")

	require.NoError(t, store.SaveScreenshot(path, []byte("first-run")))
	require.NoError(t, store.SaveScreenshot(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestSaveScreenshot_EmptyData(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	err = store.SaveScreenshot(filepath.Join(t.TempDir(), "x.png"), nil)
	require.ErrorIs(t, err, entities.ErrFilesystem)
}

func TestSaveScreenshot_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReportStore(dir)
	require.NoError(t, err)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0644))

	err = store.SaveScreenshot(filepath.Join(blocker, "verification.png"), []byte("png"))
	require.ErrorIs(t, err, entities.ErrFilesystem)
}

func TestHistory_RoundTripOrder(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	history, err := store.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	started := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	for i, status := range []entities.RunStatus{entities.RunStatusPassed, entities.RunStatusFailed} {
		require.NoError(t, store.SaveReport(&entities.Report{
			ID:        string(rune('a' + i)),
			Scenario:  "tab-icons",
			Status:    status,
			StartedAt: started.Add(time.Duration(i) * time.Minute),
		}))
	}

	history, err = store.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a", history[0].ID)
	assert.Equal(t, entities.RunStatusFailed, history[1].Status)
}

func TestHistory_Bounded(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < maxHistory+5; i++ {
		require.NoError(t, store.SaveReport(&entities.Report{Scenario: "tab-icons"}))
	}

	history, err := store.LoadHistory()
	require.NoError(t, err)
	assert.Len(t, history, maxHistory)
}
