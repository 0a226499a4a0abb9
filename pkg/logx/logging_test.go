package logx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleSplitsErrorsToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	svc, log := New(Config{Level: "debug", Console: true, Stdout: &out, Stderr: &errOut})
	defer svc.Close()

	log.Info("event sent", String("file", "a.ilert"))
	log.Warn("too many requests")
	log.Error("could not send event")

	assert.Contains(t, out.String(), "event sent")
	assert.Contains(t, out.String(), "too many requests")
	assert.NotContains(t, out.String(), "could not send event")
	assert.Contains(t, errOut.String(), "could not send event")
	assert.NotContains(t, errOut.String(), "event sent")
}

func TestJournalFallsBackToStderr(t *testing.T) {
	orig := journalAvailable
	journalAvailable = func() bool { return false }
	t.Cleanup(func() { journalAvailable = orig })

	var out, errOut bytes.Buffer
	svc, log := New(Config{Journal: true, Stdout: &out, Stderr: &errOut})
	defer svc.Close()

	log.Info("hello")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "hello")
}

func TestJournalWriterSendsFields(t *testing.T) {
	origAvail, origSend := journalAvailable, journalSend
	t.Cleanup(func() { journalAvailable, journalSend = origAvail, origSend })

	type sent struct {
		msg  string
		prio journal.Priority
		vars map[string]string
	}
	var got []sent
	journalAvailable = func() bool { return true }
	journalSend = func(msg string, prio journal.Priority, vars map[string]string) error {
		got = append(got, sent{msg, prio, vars})
		return nil
	}

	var errOut bytes.Buffer
	svc, log := New(Config{Journal: true, Identifier: "relay-test", Stderr: &errOut})
	defer svc.Close()

	log.Warn("too many requests", String("file", "x.ilert"), Int("status", 429))
	log.Error("boom", Err(errors.New("dial tcp: refused")))

	require.Len(t, got, 2)
	assert.Equal(t, "too many requests", got[0].msg)
	assert.Equal(t, journal.PriWarning, got[0].prio)
	assert.Equal(t, "x.ilert", got[0].vars["RELAY_FILE"])
	assert.Equal(t, "429", got[0].vars["RELAY_STATUS"])
	assert.Equal(t, "relay-test", got[0].vars["SYSLOG_IDENTIFIER"])
	assert.Equal(t, journal.PriErr, got[1].prio)
	assert.Equal(t, "dial tcp: refused", got[1].vars["RELAY_ERR"])

	// Errors are copied to stderr, warnings are not.
	assert.Contains(t, errOut.String(), "boom")
	assert.NotContains(t, errOut.String(), "too many requests")
}

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	var errOut bytes.Buffer
	svc, log := New(Config{File: FileConfig{Enabled: true, Path: path}, Stderr: &errOut})
	log.Info("created event file", String("path", "/tmp/x.ilert"))
	require.NoError(t, svc.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(b))
	assert.True(t, strings.HasPrefix(line, "{"), line)
	assert.Contains(t, line, `"message":"created event file"`)
	assert.Contains(t, line, `"path":"/tmp/x.ilert"`)
}

func TestJournalFieldName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"file":      "RELAY_FILE",
		"caller":    "RELAY_CALLER",
		"http-code": "RELAY_HTTP_CODE",
		"_hidden":   "RELAY_HIDDEN",
		"9":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, journalFieldName(in), in)
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()
	var l Logger
	assert.True(t, l.IsZero())
	l.Info("dropped")
	assert.False(t, Nop().IsZero())
}
