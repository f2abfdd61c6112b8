package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simcore/internal/cmdqueue"
)

func played(queue, seq uint32) cmdqueue.PlaybackEvent {
	return cmdqueue.PlaybackEvent{QueueIdx: queue, Seq: seq, State: cmdqueue.StateCompleted}
}

func TestRecorder_ResolvesFramesFromBounds(t *testing.T) {
	r := NewRecorder("run")

	r.BeginFrame(1)
	r.ObjectSynced(7, 1, 4)
	r.EndFrame(Frame{Frame: 1, SyncedObjects: 1, Commands: 2}, 1, 2)
	r.CommandPlayed(played(1, 0))
	r.CommandPlayed(played(1, 1))

	r.BeginFrame(2)
	r.EndFrame(Frame{Frame: 2, Commands: 1}, 1, 3)
	r.CommandPlayed(played(1, 2))

	b := r.Drain()

	require.Len(t, b.Commands, 3)
	assert.Equal(t, []int64{1, 1, 2}, []int64{b.Commands[0].Frame, b.Commands[1].Frame, b.Commands[2].Frame})
	assert.Equal(t, []int64{1, 2, 3}, []int64{b.Commands[0].Ord, b.Commands[1].Ord, b.Commands[2].Ord})
	require.Len(t, b.Syncs, 1)
	assert.Equal(t, Sync{RunID: "run", Ord: 1, Frame: 1, ObjectID: 7, Flags: 1, Size: 4}, b.Syncs[0])
	require.Len(t, b.Frames, 2)
	assert.Equal(t, "run", b.Frames[0].RunID)

	assert.True(t, r.Drain().IsEmpty(), "drained rows are not returned twice")
}

func TestRecorder_UnboundCommandsWait(t *testing.T) {
	r := NewRecorder("run")
	r.EndFrame(Frame{Frame: 1}, 1, 1)
	r.CommandPlayed(played(1, 0))
	r.CommandPlayed(played(1, 1)) // queued after the last bound

	b := r.Drain()
	require.Len(t, b.Commands, 1)

	r.EndFrame(Frame{Frame: 2}, 1, 2)
	b = r.Drain()
	require.Len(t, b.Commands, 1)
	assert.Equal(t, int64(2), b.Commands[0].Frame)
}

func TestRecorder_BoundsStayBoundedOverLongRuns(t *testing.T) {
	r := NewRecorder("run")

	for f := int64(1); f <= 1000; f++ {
		seq := uint32(f - 1)
		r.BeginFrame(f)
		r.EndFrame(Frame{Frame: f, Commands: 1}, 1, seq+1)
		r.CommandPlayed(played(1, seq))

		b := r.Drain()
		require.Len(t, b.Commands, 1)
		require.Equal(t, f, b.Commands[0].Frame)
	}

	assert.LessOrEqual(t, len(r.bounds[1]), 1)
}

func TestRecorder_LatePlaybackKeepsItsBound(t *testing.T) {
	r := NewRecorder("run")
	r.EndFrame(Frame{Frame: 1}, 1, 2)
	r.EndFrame(Frame{Frame: 2}, 1, 4)

	// Frame 2's batch is cancelled on the producer before frame 1's plays.
	r.CommandPlayed(cmdqueue.PlaybackEvent{QueueIdx: 1, Seq: 2, State: cmdqueue.StateCancelled})
	r.CommandPlayed(cmdqueue.PlaybackEvent{QueueIdx: 1, Seq: 3, State: cmdqueue.StateCancelled})
	r.CommandPlayed(played(1, 0))

	b := r.Drain()
	require.Len(t, b.Commands, 3)
	assert.Equal(t, []int64{2, 2, 1}, []int64{b.Commands[0].Frame, b.Commands[1].Frame, b.Commands[2].Frame})

	r.CommandPlayed(played(1, 1))
	b = r.Drain()
	require.Len(t, b.Commands, 1)
	assert.Equal(t, int64(1), b.Commands[0].Frame)
	assert.Len(t, r.bounds[1], 1, "frame 2's bound outlives the played floor")
}

func TestRecorder_DrainAllResolvesStragglers(t *testing.T) {
	r := NewRecorder("run")
	r.EndFrame(Frame{Frame: 1}, 1, 0)
	r.CommandPlayed(played(1, 5))

	b := r.DrainAll()
	require.Len(t, b.Commands, 1)
	assert.Equal(t, int64(0), b.Commands[0].Frame)
}

func TestRecorder_DirectQueueIsFrameZero(t *testing.T) {
	r := NewRecorder("run")
	r.CommandPlayed(played(0, 0))

	b := r.Drain()
	require.Len(t, b.Commands, 1)
	assert.Equal(t, int64(0), b.Commands[0].Frame)
}

func TestRecorder_CancelledState(t *testing.T) {
	r := NewRecorder("run")
	r.CommandPlayed(cmdqueue.PlaybackEvent{QueueIdx: 0, Seq: 0, State: cmdqueue.StateCancelled})

	b := r.Drain()
	require.Len(t, b.Commands, 1)
	assert.Equal(t, "cancelled", b.Commands[0].State)
}

func TestRecorder_FlushWritesToJournal(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	run := createTestRun(t, j, "run")

	r := NewRecorder(run)
	r.BeginFrame(1)
	r.ObjectSynced(1, 2, 8)
	r.EndFrame(Frame{Frame: 1, SyncedObjects: 1, Commands: 1}, 1, 1)
	r.CommandPlayed(played(1, 0))
	require.NoError(t, r.Flush(ctx, j))
	require.NoError(t, r.FlushAll(ctx, j))

	cmds, err := j.ReadCommands(ctx, run, AllFrames)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, int64(1), cmds[0].Frame)

	frames, err := j.ReadFrames(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, []Frame{{RunID: run, Frame: 1, SyncedObjects: 1, Commands: 1}}, frames)
}
