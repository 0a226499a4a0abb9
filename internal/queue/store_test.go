package queue

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilertrelay/internal/event"
	logx "ilertrelay/pkg/logx"
)

func samplePayload(host string) event.Payload {
	return event.NewPayload(
		event.Entry{Key: "PLUGIN_VERSION", Value: "1.5"},
		event.Entry{Key: "ICINGA_HOSTNAME", Value: host},
	)
}

func TestPersistPublishesCompleteFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, logx.Nop())

	path, err := s.Persist("key-1", samplePayload("web-1"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, EventSuffix))
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	key, p, err := event.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "key-1", key)
	assert.Equal(t, samplePayload("web-1").Entries(), p.Entries())

	matches, _ := filepath.Glob(filepath.Join(dir, "*"+TempSuffix))
	assert.Empty(t, matches)
}

func TestPersistFailureBeforeRenameLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, logx.Nop())
	s.rename = func(string, string) error { return errors.New("simulated crash") }

	_, err := s.Persist("key-1", samplePayload("web-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)

	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, des)
}

func TestPersistIntoMissingDirFails(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"), logx.Nop())
	_, err := s.Persist("key-1", samplePayload("web-1"))
	assert.ErrorIs(t, err, ErrStore)
}

func TestPendingIgnoresTempAndLockFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, logx.Nop())

	// A writer that died before the rename leaves only a temp file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dead"+TempSuffix), []byte("<event><apiK"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, LockName), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"+EventSuffix), 0o755))

	entries, err := s.Pending()
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.Persist("key-1", samplePayload("web-1"))
	require.NoError(t, err)
	entries, err = s.Pending()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConcurrentPersistProducesDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, logx.Nop())

	const n = 64
	var wg sync.WaitGroup
	paths := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = s.Persist("key", samplePayload("host"))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[paths[i]], "duplicate path %s", paths[i])
		seen[paths[i]] = true
	}
	entries, err := s.Pending()
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestPendingOrdersByModTime(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, logx.Nop())

	base := time.Now().Add(-time.Hour)
	names := []string{"c", "a", "b"}
	offsets := []time.Duration{3 * time.Second, 1 * time.Second, 2 * time.Second}
	for i, name := range names {
		p := filepath.Join(dir, name+EventSuffix)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
		mt := base.Add(offsets[i])
		require.NoError(t, os.Chtimes(p, mt, mt))
	}

	entries, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].ID())
	assert.Equal(t, "b", entries[1].ID())
	assert.Equal(t, "c", entries[2].ID())
}

func TestPendingBreaksTiesByName(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, logx.Nop())

	mt := time.Now().Add(-time.Minute).Truncate(time.Second)
	for _, name := range []string{"0002", "0001", "0003"} {
		p := filepath.Join(dir, name+EventSuffix)
		require.NoError(t, os.WriteFile(p, nil, 0o600))
		require.NoError(t, os.Chtimes(p, mt, mt))
	}

	entries, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"0001", "0002", "0003"}, []string{entries[0].ID(), entries[1].ID(), entries[2].ID()})
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s := New(t.TempDir(), logx.Nop())
	assert.NoError(t, s.Remove(Entry{Path: filepath.Join(s.Dir(), "gone"+EventSuffix)}))
}

func TestLockIsExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := Lock(dir)
	require.NoError(t, err)

	acquired := make(chan *DirLock)
	go func() {
		l, err := Lock(dir)
		if err != nil {
			close(acquired)
			return
		}
		acquired <- l
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	select {
	case l, ok := <-acquired:
		require.True(t, ok, "second lock failed")
		require.NoError(t, l.Release())
	case <-time.After(5 * time.Second):
		t.Fatal("second lock not acquired after release")
	}

	_, err = os.Stat(filepath.Join(dir, LockName))
	assert.NoError(t, err)
}
