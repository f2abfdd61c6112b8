package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesSettings(t *testing.T) {
	j := createTestJournal(t)

	for _, s := range settings {
		got, err := j.pragma(s.name)
		require.NoError(t, err)
		assert.Equal(t, s.want, got, s.name)
	}
	v, err := j.Version()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestOpen_InMemory(t *testing.T) {
	j, err := Open(InMemory)
	require.NoError(t, err)
	defer j.Close()

	mode, err := j.pragma("journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "memory", mode)
	assert.Equal(t, InMemory, j.Path())

	createTestRun(t, j, "run-1")
	runs, err := j.ReadRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_MigratesOldJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// A journal from before the frame indexes: tables only, version 0.
	j, err := Open(path)
	require.NoError(t, err)
	for _, stmt := range []string{
		"DROP INDEX idx_commands_frame",
		"DROP INDEX idx_syncs_frame",
		"PRAGMA user_version = 0",
	} {
		_, err := j.db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	v, err := j.Version()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)

	var n int
	require.NoError(t, j.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name IN ('idx_commands_frame', 'idx_syncs_frame')`,
	).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	j1, err := Open(path)
	require.NoError(t, err)
	createTestRun(t, j1, "run-1")
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	runs, err := j2.ReadRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	var j Journal
	assert.NoError(t, j.Close())
}

func TestWriteRun_AssignsSeq(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	createTestRun(t, j, "b")
	createTestRun(t, j, "a")
	createTestRun(t, j, "b") // duplicate ignored

	runs, err := j.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, Run{ID: "b", Seq: 1, ConfigHash: "cfg-b"}, runs[0])
	assert.Equal(t, Run{ID: "a", Seq: 2, ConfigHash: "cfg-a"}, runs[1])

	latest, err := j.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", latest.ID)
}

func TestReadRun_NotFound(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	_, err := j.ReadRun(ctx, "ghost")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = j.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWriteBatch_RoundTrip(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	run := createTestRun(t, j, "run-1")

	batch := Batch{
		Frames: []Frame{
			{RunID: run, Frame: 1, DeferredCalls: 2, SyncedObjects: 1, Commands: 3},
			{RunID: run, Frame: 2, Commands: 1},
		},
		Commands: []Command{
			{RunID: run, Ord: 1, Frame: 1, QueueIdx: 1, Seq: 0, State: "completed"},
			{RunID: run, Ord: 2, Frame: 1, QueueIdx: 1, Seq: 1, ReturnsValue: true, AutoResolved: true, State: "completed"},
			{RunID: run, Ord: 3, Frame: 2, QueueIdx: 1, Seq: 2, Notified: true, CallbackID: 9, State: "completed"},
		},
		Syncs: []Sync{
			{RunID: run, Ord: 1, Frame: 1, ObjectID: 4, Flags: 3, Size: 12},
		},
	}
	require.NoError(t, j.WriteBatch(ctx, batch))
	// Rewriting is a no-op.
	require.NoError(t, j.WriteBatch(ctx, batch))

	frames, err := j.ReadFrames(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, batch.Frames, frames)

	cmds, err := j.ReadCommands(ctx, run, AllFrames)
	require.NoError(t, err)
	assert.Equal(t, batch.Commands, cmds)

	frame2, err := j.ReadCommands(ctx, run, 2)
	require.NoError(t, err)
	require.Len(t, frame2, 1)
	assert.Equal(t, uint32(9), frame2[0].CallbackID)

	syncs, err := j.ReadSyncs(ctx, run, 1)
	require.NoError(t, err)
	assert.Equal(t, batch.Syncs, syncs)

	none, err := j.ReadSyncs(ctx, run, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none, "empty result is a slice, not nil")
}

func TestWriteBatch_UnknownRunRejected(t *testing.T) {
	j := createTestJournal(t)

	err := j.WriteBatch(context.Background(), Batch{
		Frames: []Frame{{RunID: "ghost", Frame: 1}},
	})
	assert.Error(t, err, "foreign key must reject rows for unknown runs")
}

func TestWriteBatch_Empty(t *testing.T) {
	j := createTestJournal(t)
	assert.NoError(t, j.WriteBatch(context.Background(), Batch{}))
}
