package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "ilertrelay/pkg/logx"
)

func newTestService(t *testing.T, cfg Config, flush FlushFunc) (*Service, *[]string) {
	t.Helper()
	s, err := New(cfg, flush, logx.Nop())
	require.NoError(t, err)
	var (
		mu     sync.Mutex
		states []string
	)
	s.notify = func(state string) (bool, error) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
		return true, nil
	}
	return s, &states
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()
	noop := func(context.Context) error { return nil }
	_, err := New(Config{Schedule: "nope"}, noop, logx.Nop())
	assert.Error(t, err)
	_, err = New(Config{Schedule: "1m"}, nil, logx.Nop())
	assert.Error(t, err)
	_, err = New(Config{Schedule: "1m", Watch: true}, noop, logx.Nop())
	assert.Error(t, err)
}

func TestTriggerCoalesces(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t, Config{Schedule: "1h"}, func(context.Context) error { return nil })
	for i := 0; i < 5; i++ {
		s.Trigger("test")
	}
	assert.Len(t, s.trigger, 1)
}

func TestRunFlushesAtStartupAndStops(t *testing.T) {
	t.Parallel()
	flushed := make(chan struct{}, 8)
	s, states := newTestService(t, Config{Schedule: "1h"}, func(context.Context) error {
		flushed <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("startup flush did not run")
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.Equal(t, []string{"READY=1", "STOPPING=1"}, *states)
}

func TestRunKeepsGoingAfterFlushError(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	s, _ := newTestService(t, Config{Schedule: "@every 20ms"}, func(context.Context) error {
		calls.Add(1)
		return errors.New("lock busy")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestFlushesNeverOverlap(t *testing.T) {
	t.Parallel()
	var (
		inFlight atomic.Int32
		overlap  atomic.Bool
		calls    atomic.Int32
	)
	s, _ := newTestService(t, Config{Schedule: "@every 5ms"}, func(context.Context) error {
		if inFlight.Add(1) > 1 {
			overlap.Store(true)
		}
		time.Sleep(15 * time.Millisecond)
		inFlight.Add(-1)
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	for i := 0; i < 20; i++ {
		s.Trigger("burst")
		time.Sleep(time.Millisecond)
	}
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.False(t, overlap.Load())
}

func TestWatchTriggersOnNewEventFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var calls atomic.Int32
	s, _ := newTestService(t, Config{Dir: dir, Schedule: "1h", Watch: true, Debounce: 20 * time.Millisecond}, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let the startup and watcher-start flushes settle.
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	base := calls.Load()

	tmp := filepath.Join(dir, "0001.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("<event/>"), 0o644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "0001.ilert")))

	require.Eventually(t, func() bool { return calls.Load() > base }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestIsEventFile(t *testing.T) {
	t.Parallel()
	assert.True(t, isEventFile("/tmp/ilert-icinga/0190-abc.ilert"))
	assert.False(t, isEventFile("/tmp/ilert-icinga/0190-abc.tmp"))
	assert.False(t, isEventFile("/tmp/ilert-icinga/lockfile"))
}
