package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWALStore_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append(Entry{RunID: "r1", Workflow: "fund", Step: "wrap", Status: StatusConfirmed, TxHash: "0xd1"}))
	require.NoError(t, store.Append(Entry{RunID: "r1", Workflow: "fund", Step: "approve", Status: StatusSkipped}))
	require.NoError(t, store.Append(Entry{RunID: "r2", Workflow: "claim", Step: "claim", Status: StatusFailed, Detail: "no SCM tokens to claim"}))

	assert.Equal(t, uint64(3), store.CurrentIndex())

	records, err := store.RecordsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(1), records[0].Index)
	assert.Equal(t, "wrap", records[0].Entry.Step)
	assert.Equal(t, "0xd1", records[0].Entry.TxHash)
	assert.False(t, records[0].Entry.Time.IsZero())

	tail, err := store.RecordsAfter(2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, StatusFailed, tail[0].Entry.Status)

	run, err := store.Run("r1")
	require.NoError(t, err)
	assert.Len(t, run, 2)
}

func TestWALStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(Entry{RunID: "r1", Workflow: "fund", Step: "fund", Status: StatusConfirmed}))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.RecordsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fund", records[0].Entry.Step)

	require.NoError(t, reopened.Append(Entry{RunID: "r2", Workflow: "claim", Step: "claim", Status: StatusStarted}))
	assert.Equal(t, uint64(2), reopened.CurrentIndex())
}

func TestWALStore_RejectsIncompleteEntry(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Append(Entry{Step: "wrap"}))
	assert.Error(t, store.Append(Entry{RunID: "r1"}))
}

func TestWALStore_Nil(t *testing.T) {
	var store *WALStore
	assert.Error(t, store.Append(Entry{RunID: "r", Step: "s"}))
	assert.Zero(t, store.CurrentIndex())
}
