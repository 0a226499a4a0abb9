package config

// Config is the optional relay config file. Every field can also be set by
// flag or ILERT_* environment variable; see the CLI for precedence.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	APIKey   string `json:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Port     int    `json:"port,omitempty"`
	Dir      string `json:"dir,omitempty"`

	// Path is appended to the endpoint. Default: /api/v1/events/icinga.
	Path string `json:"path,omitempty"`
	// Timeout bounds a single delivery request. Default: 60s.
	Timeout string `json:"timeout,omitempty"`
	// RatePerSec spaces consecutive deliveries within a flush. 0 disables.
	RatePerSec int `json:"rate_per_sec,omitempty"`

	Logging LoggingConfig `json:"logging"`
	Journal JournalConfig `json:"journal"`
	Daemon  DaemonConfig  `json:"daemon"`
}

// LoggingConfig selects log destinations.
//
// Console and Journal are pointers so an omitted value can follow the
// DOCKER_MODE default (console in Docker, journal elsewhere).
type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console *bool       `json:"console,omitempty"`
	Journal *bool       `json:"journal,omitempty"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// JournalConfig controls the delivery journal.
//
// Example:
//
//	"journal": { "driver": "sqlite", "path": "/var/lib/ilert-icinga/deliveries.db", "retain": 1000 }
type JournalConfig struct {
	Driver      string `json:"driver,omitempty"` // none|file|sqlite
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	// Retain is the number of records kept after each flush. 0 keeps all.
	Retain int `json:"retain,omitempty"`
}

type DaemonConfig struct {
	// Schedule accepts a cron expression, @every, a Go duration or HH:MM.
	Schedule string `json:"schedule,omitempty"`
	Watch    *bool  `json:"watch,omitempty"`
	Debounce string `json:"debounce,omitempty"`
}
