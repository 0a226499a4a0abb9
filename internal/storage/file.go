package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "ilertrelay/pkg/logx"
)

var errClosed = errors.New("journal file closed")

// fileJournal is a dependency-free journal backend.
//
// Files:
//   - <prefix>.deliveries.jsonl (append-only JSON Lines)
//   - <prefix>.deliveries.jsonl.lock (flock shared by every process)
//
// The journal is opened per write, never held: Prune replaces it through a
// temp file + rename, so a held descriptor would point at the old inode.
type fileJournal struct {
	log logx.Logger

	mu     sync.Mutex
	path   string
	lock   string
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Journal, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("journal.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	jpath := prefix + ".deliveries.jsonl"
	f, err := os.OpenFile(jpath, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	_ = f.Close()
	return &fileJournal{log: log, path: jpath, lock: jpath + ".lock"}, nil
}

func (j *fileJournal) Close() error {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
	return nil
}

func (j *fileJournal) Append(ctx context.Context, r Record) error {
	_ = ctx
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errClosed
	}
	unlock, err := lockFile(j.lock)
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (j *fileJournal) Recent(ctx context.Context, limit int) ([]Record, error) {
	_ = ctx
	j.mu.Lock()
	defer j.mu.Unlock()
	all, err := readRecords(j.path)
	if err != nil {
		return nil, err
	}
	return newestFirst(all, limit), nil
}

func (j *fileJournal) Prune(ctx context.Context, keep int) error {
	_ = ctx
	if keep <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errClosed
	}
	unlock, err := lockFile(j.lock)
	if err != nil {
		return err
	}
	defer unlock()

	all, err := readRecords(j.path)
	if err != nil {
		return err
	}
	if len(all) <= keep {
		return nil
	}
	all = all[len(all)-keep:]

	tmp := j.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, r := range all {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return err
	}
	j.log.Debug("journal pruned", logx.Int("kept", keep))
	return nil
}

func readRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Record
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		var r Record
		if err := json.Unmarshal(s.Bytes(), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, s.Err()
}

func newestFirst(all []Record, limit int) []Record {
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Record, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out
}
