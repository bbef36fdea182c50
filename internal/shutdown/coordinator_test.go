package shutdown

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreAnyFunction("os/signal.loop"),
	)
}

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
	done  chan struct{}
}

func newExitRecorder() *exitRecorder {
	return &exitRecorder{done: make(chan struct{}, 4)}
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	e.codes = append(e.codes, code)
	e.mu.Unlock()
	e.done <- struct{}{}
}

func (e *exitRecorder) calls() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.codes...)
}

func TestTrackRunsAndForgets(t *testing.T) {
	c := New(time.Second, WithExit(func(int) {}))

	var inside []string
	err := c.Track(context.Background(), "seed", func(ctx context.Context) error {
		inside = c.InFlight()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"seed"}, inside)
	assert.Empty(t, c.InFlight())
}

func TestShutdownWaitsForTrackedWork(t *testing.T) {
	rec := newExitRecorder()
	c := New(time.Second, WithExit(rec.exit))

	release := make(chan struct{})
	started := make(chan struct{})
	var finished atomic.Bool
	go func() {
		_ = c.Track(context.Background(), "seed", func(ctx context.Context) error {
			close(started)
			<-release
			finished.Store(true)
			return nil
		})
	}()
	<-started

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	assert.True(t, c.Shutdown(os.Interrupt))
	assert.True(t, finished.Load())
	assert.Equal(t, []int{ExitCode}, rec.calls())
}

func TestShutdownRefusesNewWork(t *testing.T) {
	c := New(time.Second, WithExit(func(int) {}))
	c.Shutdown(os.Interrupt)

	ran := false
	err := c.Track(context.Background(), "late", func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrShuttingDown)
	assert.False(t, ran)
	assert.True(t, c.ShuttingDown())
}

func TestShutdownTimesOut(t *testing.T) {
	rec := newExitRecorder()
	c := New(100*time.Millisecond, WithExit(rec.exit))

	release := make(chan struct{})
	started := make(chan struct{})
	trackDone := make(chan struct{})
	go func() {
		defer close(trackDone)
		_ = c.Track(context.Background(), "stuck", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	start := time.Now()
	c.Shutdown(syscall.SIGTERM)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, []int{ExitCode}, rec.calls())
	assert.Equal(t, []string{"stuck"}, c.InFlight())

	close(release)
	<-trackDone
}

func TestOnShutdownRunsBeforeDrain(t *testing.T) {
	rec := newExitRecorder()
	var hooked os.Signal
	var exitsAtHook int
	var c *Coordinator
	c = New(time.Second, WithExit(rec.exit), OnShutdown(func(sig os.Signal) {
		hooked = sig
		exitsAtHook = len(rec.calls())
		assert.True(t, c.ShuttingDown())
	}))

	select {
	case <-c.Exited():
		t.Fatal("exited before shutdown")
	default:
	}

	assert.True(t, c.Shutdown(syscall.SIGTERM))
	assert.Equal(t, syscall.SIGTERM, hooked)
	assert.Zero(t, exitsAtHook)

	select {
	case <-c.Exited():
	default:
		t.Fatal("Exited not closed after exit func returned")
	}
}

func TestSecondShutdownIsNoop(t *testing.T) {
	rec := newExitRecorder()
	c := New(time.Second, WithExit(rec.exit))

	assert.True(t, c.Shutdown(os.Interrupt))
	assert.False(t, c.Shutdown(os.Interrupt))
	assert.Equal(t, []int{ExitCode}, rec.calls())
}

func TestWatchHandlesSignal(t *testing.T) {
	rec := newExitRecorder()
	c := New(time.Second, WithExit(rec.exit))
	stop := c.Watch(syscall.SIGUSR1)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not handled")
	}
	assert.True(t, c.ShuttingDown())
	assert.Equal(t, []int{ExitCode}, rec.calls())
}
