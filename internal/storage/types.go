package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the delivery journal.
//
// Driver values:
//   - "file": JSON Lines file next to Path
//   - "sqlite": SQLite database file at Path
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one delivery attempt.
// Keep it compact and schema-stable.
type Record struct {
	At          time.Time `json:"at"`
	EventID     string    `json:"event_id"`
	Outcome     string    `json:"outcome"`
	Status      int       `json:"status,omitempty"`
	Disposition string    `json:"disposition"`
	Error       string    `json:"error,omitempty"`
	TookMS      int64     `json:"took_ms"`
}
