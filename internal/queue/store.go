package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ilertrelay/internal/event"
	logx "ilertrelay/pkg/logx"
)

const (
	// EventSuffix marks a fully published event file.
	EventSuffix = ".ilert"
	// TempSuffix marks an event file that is still being written.
	TempSuffix = ".tmp"
	// LockName is the mutual-exclusion token inside the event directory.
	LockName = "lockfile"
)

// Entry is one published event file.
type Entry struct {
	Name    string
	Path    string
	ModTime time.Time
}

// ID returns the identifier part of the file name.
func (e Entry) ID() string { return strings.TrimSuffix(e.Name, EventSuffix) }

// Store is the on-disk event queue: one file per pending event.
//
// The directory is the only source of truth; nothing is cached between calls.
type Store struct {
	dir string
	log logx.Logger

	newID  func() (string, error)
	rename func(oldpath, newpath string) error
}

// New returns a store over an existing directory.
func New(dir string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		dir:    dir,
		log:    log,
		newID:  newEventID,
		rename: os.Rename,
	}
}

func (s *Store) Dir() string { return s.dir }

// newEventID returns a time-ordered UUID so names also sort by creation.
func newEventID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Persist writes one event and publishes it atomically.
//
// The document goes to <id>.tmp, is synced, then renamed to <id>.ilert.
// On any failure the temp file is removed and the error wraps ErrStore.
func (s *Store) Persist(apiKey string, p event.Payload) (string, error) {
	doc := event.Encode(apiKey, p)

	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("%w: generate id: %w", ErrStore, err)
	}
	path := filepath.Join(s.dir, id+EventSuffix)
	tmp := filepath.Join(s.dir, id+TempSuffix)

	s.log.Debug("writing event to disk", logx.String("path", path), logx.Int("entries", p.Len()))

	if err := writeSynced(tmp, doc); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: write %s: %w", ErrStore, tmp, err)
	}
	if err := s.rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: publish %s: %w", ErrStore, path, err)
	}

	s.log.Info("created event file", logx.String("path", path))
	return path, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Pending lists published events, oldest first.
//
// Order is by modification time; equal times fall back to the file name.
// Files that disappear while listing are skipped.
func (s *Store) Pending() ([]Entry, error) {
	des, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStore, s.dir, err)
	}
	out := make([]Entry, 0, len(des))
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, EventSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Name: name, Path: filepath.Join(s.dir, name), ModTime: info.ModTime()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].ModTime.Before(out[j].ModTime)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) Read(e Entry) ([]byte, error) {
	return os.ReadFile(e.Path)
}

// Remove deletes an event file. A file that is already gone is not an error.
func (s *Store) Remove(e Entry) error {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
