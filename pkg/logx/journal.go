package logx

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/rs/zerolog"
)

// journalAvailable is swapped in tests.
var journalAvailable = journal.Enabled

var journalSend = journal.Send

// journalWriter is a zerolog sink that forwards each entry to journald.
// The message becomes MESSAGE, every other field becomes an upper-cased
// journal field (e.g. "file" -> RELAY_FILE).
type journalWriter struct {
	identifier string
}

func (w *journalWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *journalWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	msg, vars := formatJournalJSON(p)
	if msg == "" && len(vars) == 0 {
		return len(p), nil
	}
	vars["SYSLOG_IDENTIFIER"] = w.identifier
	// Journal failures must never break the caller; stderr still carries errors.
	_ = journalSend(msg, journalPriority(level), vars)
	return len(p), nil
}

func journalPriority(level zerolog.Level) journal.Priority {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return journal.PriDebug
	case zerolog.InfoLevel:
		return journal.PriInfo
	case zerolog.WarnLevel:
		return journal.PriWarning
	case zerolog.ErrorLevel:
		return journal.PriErr
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return journal.PriCrit
	default:
		return journal.PriNotice
	}
}

func formatJournalJSON(p []byte) (string, map[string]string) {
	vars := map[string]string{}
	var m map[string]any
	if err := json.Unmarshal(bytesTrimSpace(p), &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), 4000), vars
	}

	msg, _ := m["message"].(string)
	for k, v := range m {
		if k == "time" || k == "level" || k == "message" {
			continue
		}
		name := journalFieldName(k)
		if name == "" {
			continue
		}
		vars[name] = truncate(fmt.Sprint(v), 2000)
	}
	return msg, vars
}

// journalFieldName maps a log field to a valid journal field name:
// upper-case ASCII letters, digits and underscores, not starting with '_'.
func journalFieldName(k string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(k) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.TrimLeft(b.String(), "_0123456789")
	if s == "" {
		return ""
	}
	return "RELAY_" + s
}
