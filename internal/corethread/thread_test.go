package corethread

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/thread"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// start runs th on a new goroutine and stops it when the test ends.
func start(t *testing.T, th *Thread) {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- th.Run(context.Background()) }()
	require.Eventually(t, th.IsRunning, time.Second, time.Millisecond)

	t.Cleanup(func() {
		th.Stop()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("core thread did not stop")
		}
	})
}

func TestThread_SubmitPlaysOnCoreGoroutine(t *testing.T) {
	th := New(quiet())
	start(t, th)
	acc := th.NewAccessor()

	var ranOn thread.ID
	var onCore bool
	acc.Queue(func() {
		ranOn = thread.Current()
		onCore = th.IsCoreThread()
	})
	done, err := acc.Submit(true)
	require.NoError(t, err)

	assert.True(t, done.HasCompleted())
	assert.NotEqual(t, thread.Current(), ranOn)
	assert.True(t, onCore)
	assert.False(t, th.IsCoreThread())
	assert.True(t, acc.IsEmpty())
}

func TestThread_SubmissionsPlayInOrder(t *testing.T) {
	th := New(quiet())
	start(t, th)
	acc := th.NewAccessor()

	var mu sync.Mutex
	var got []int
	for batch := 0; batch < 3; batch++ {
		for i := 0; i < 3; i++ {
			acc.Queue(func() {
				mu.Lock()
				got = append(got, batch*10+i)
				mu.Unlock()
			})
		}
		_, err := acc.Submit(false)
		require.NoError(t, err)
	}
	done, err := acc.Submit(true)
	require.NoError(t, err)
	require.True(t, done.HasCompleted())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 10, 11, 12, 20, 21, 22}, got)
	assert.Equal(t, uint64(4), th.Submissions())
}

func TestThread_QueueReturnThroughAccessor(t *testing.T) {
	th := New(quiet())
	start(t, th)
	acc := th.NewAccessor()

	op := acc.QueueReturn(func(op *cmdqueue.AsyncOp) { op.CompleteOperation(42) })
	assert.False(t, op.HasCompleted())

	_, err := acc.Submit(false)
	require.NoError(t, err)
	require.NoError(t, op.Wait(context.Background()))
	assert.Equal(t, 42, op.ReturnValue())
}

func TestThread_DirectCommands(t *testing.T) {
	th := New(quiet())
	start(t, th)

	op, err := th.QueueReturnCommand(func(op *cmdqueue.AsyncOp) {
		op.CompleteOperation(th.IsCoreThread())
	})
	require.NoError(t, err)
	op.BlockUntilComplete()

	assert.Equal(t, true, op.ReturnValue())
}

func TestThread_DirectCommandFromCoreRunsInline(t *testing.T) {
	th := New(quiet())
	start(t, th)
	acc := th.NewAccessor()

	var trail []string
	acc.Queue(func() {
		trail = append(trail, "outer")
		inner, err := th.QueueReturnCommand(func(op *cmdqueue.AsyncOp) {
			trail = append(trail, "inner")
			op.CompleteOperation(nil)
		})
		trail = append(trail, "after")
		if err != nil || !inner.HasCompleted() {
			trail = append(trail, "pending")
		}
	})
	_, err := acc.Submit(true)
	require.NoError(t, err)

	assert.Equal(t, []string{"outer", "inner", "after"}, trail)
}

func TestThread_DirectCommandsFromManyGoroutines(t *testing.T) {
	th := New(quiet())
	start(t, th)

	const producers, per = 4, 50
	var (
		mu  sync.Mutex
		ran int
		wg  sync.WaitGroup
	)
	ops := make(chan *cmdqueue.AsyncOp, producers*per)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				op, err := th.QueueReturnCommand(func(op *cmdqueue.AsyncOp) {
					mu.Lock()
					ran++
					mu.Unlock()
					op.CompleteOperation(nil)
				})
				if assert.NoError(t, err) {
					ops <- op
				}
			}
		}()
	}
	wg.Wait()
	close(ops)
	for op := range ops {
		op.BlockUntilComplete()
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, producers*per, ran)
}

func TestThread_NotifyCallback(t *testing.T) {
	var mu sync.Mutex
	var ids []uint32
	th := New(quiet(), WithNotify(func(id uint32) {
		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()
	}))
	start(t, th)
	acc := th.NewAccessor()

	acc.Queue(func() {}, cmdqueue.Notify(), cmdqueue.WithCallbackID(7))
	acc.Queue(func() {})
	acc.Queue(func() {}, cmdqueue.Notify(), cmdqueue.WithCallbackID(9))
	_, err := acc.Submit(true)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint32{7, 9}, ids)
}

func TestThread_AccessorIndices(t *testing.T) {
	th := New(quiet())

	a := th.NewAccessor()
	b := th.NewAccessor()

	assert.Equal(t, uint32(1), a.Index())
	assert.Equal(t, uint32(2), b.Index())
	assert.Same(t, th.Pool(), a.CommandQueue().Pool())
}

func TestThread_StopDrainsAcceptedWork(t *testing.T) {
	th := New(quiet())
	acc := th.NewAccessor()

	ran := 0
	for i := 0; i < 5; i++ {
		acc.Queue(func() { ran++ })
	}
	done, err := acc.Submit(false)
	require.NoError(t, err)
	th.Stop()

	// Run starts after Stop: accepted work still plays, then it exits.
	require.NoError(t, th.Run(context.Background()))
	assert.True(t, done.HasCompleted())
	assert.Equal(t, 5, ran)
}

func TestThread_SubmitAfterStop(t *testing.T) {
	th := New(quiet())
	acc := th.NewAccessor()
	th.Stop()

	acc.Queue(func() { t.Error("command must not run") })
	done, err := acc.Submit(false)

	require.ErrorIs(t, err, ErrStopped)
	assert.Nil(t, done)
	assert.True(t, acc.IsEmpty())
}

func TestThread_DirectCommandAfterStop(t *testing.T) {
	th := New(quiet())
	errc := make(chan error, 1)
	go func() { errc <- th.Run(context.Background()) }()
	require.Eventually(t, th.IsRunning, time.Second, time.Millisecond)

	th.Stop()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	ran := false
	err := th.QueueCommand(func() { ran = true })
	assert.ErrorIs(t, err, ErrStopped)

	op, err := th.QueueReturnCommand(func(op *cmdqueue.AsyncOp) {
		op.CompleteOperation(1)
	})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Nil(t, op)
	assert.False(t, ran)
	assert.True(t, th.direct.IsEmpty())
}

func TestThread_DirectCommandQueuedBeforeStopStillRuns(t *testing.T) {
	th := New(quiet())

	op, err := th.QueueReturnCommand(func(op *cmdqueue.AsyncOp) {
		op.CompleteOperation("played")
	})
	require.NoError(t, err)
	th.Stop()

	require.NoError(t, th.Run(context.Background()))
	require.True(t, op.HasCompleted())
	assert.Equal(t, "played", op.ReturnValue())
}

func TestThread_RunCancelled(t *testing.T) {
	th := New(quiet())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- th.Run(ctx) }()
	require.Eventually(t, th.IsRunning, time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	_, err := th.NewAccessor().Submit(false)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestThread_SecondRunRejected(t *testing.T) {
	th := New(quiet())
	start(t, th)

	assert.ErrorIs(t, th.Run(context.Background()), ErrAlreadyRunning)
}

func TestThread_ObserverSeesAccessorQueue(t *testing.T) {
	var mu sync.Mutex
	var events []cmdqueue.PlaybackEvent
	th := New(quiet(), WithObserver(cmdqueue.ObserverFunc(func(ev cmdqueue.PlaybackEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})))
	start(t, th)
	acc := th.NewAccessor()

	acc.Queue(func() {})
	acc.Queue(func() {})
	_, err := acc.Submit(true)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, acc.Index(), events[0].QueueIdx)
	assert.Equal(t, uint32(0), events[0].Seq)
	assert.Equal(t, uint32(1), events[1].Seq)
}
