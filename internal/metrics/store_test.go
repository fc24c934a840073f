package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-day-planner/internal/database"
	"ai-day-planner/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	store := NewStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreDailyUsage(t *testing.T) {
	store := newTestStore(t)

	meta := shared.AgentMeta{
		AgentName: shared.OperationItinerary,
		Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 400, TotalTokens: 500, Model: "gemini-pro-latest"},
		Latency:   1500 * time.Millisecond,
	}
	require.NoError(t, store.RecordMeta(meta, "ok"))

	meta.AgentName = shared.OperationReplacement
	meta.Usage = shared.TokenUsage{PromptTokens: 50, CompletionTokens: 20, Model: "gemini-pro-latest"}
	require.NoError(t, store.RecordMeta(meta, "failed"))

	// No usage reported: nothing stored.
	require.NoError(t, store.RecordMeta(shared.AgentMeta{AgentName: "Itinerary"}, "ok"))

	usage, err := store.GetDailyUsage(7)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), usage[0].Date)
	assert.Equal(t, 2, usage[0].TotalExecution)
	assert.Equal(t, 150, usage[0].TotalPrompt)
	assert.Equal(t, 420, usage[0].TotalCompletion)
	assert.Equal(t, 1, usage[0].Failed)
}

func TestStoreCleanup(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Record(ExecutionMetric{
		Operation: "Itinerary", Model: "m", PromptTokens: 1, CompletionTokens: 1,
		Timestamp: time.Now().AddDate(0, 0, -40),
	}))
	require.NoError(t, store.Record(ExecutionMetric{
		Operation: "Itinerary", Model: "m", PromptTokens: 1, CompletionTokens: 1,
	}))

	deleted, err := store.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	usage, err := store.GetDailyUsage(90)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].TotalExecution)
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), make([]byte, 2048), 0o644))

	h := GetSysHealth(dir)
	assert.Equal(t, "2.0 KB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)
	assert.Contains(t, h.String(), "Data on disk: 2.0 KB")
}
