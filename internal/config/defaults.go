package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid config")

const (
	DefaultEndpoint = "https://api.ilert.com"
	DefaultPort     = 443
	DefaultDir      = "/tmp/ilert-icinga"
	DefaultPath     = "/api/v1/events/icinga"
	DefaultTimeout  = 60 * time.Second
	DefaultSchedule = "1m"
	DefaultDebounce = 500 * time.Millisecond

	defaultBusyTimeout = 5 * time.Second
)

// Defaults returns a config with every default filled in.
func Defaults() *Config {
	watch := true
	return &Config{
		Endpoint: DefaultEndpoint,
		Port:     DefaultPort,
		Dir:      DefaultDir,
		Path:     DefaultPath,
		Timeout:  DefaultTimeout.String(),
		Logging:  LoggingConfig{Level: "info"},
		Journal:  JournalConfig{Driver: "none"},
		Daemon: DaemonConfig{
			Schedule: DefaultSchedule,
			Watch:    &watch,
			Debounce: DefaultDebounce.String(),
		},
	}
}

// Validate checks ranges, enums and duration syntax.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("%w: dir is required", ErrInvalid)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port: %d out of range", ErrInvalid, c.Port)
	}
	if c.RatePerSec < 0 {
		return fmt.Errorf("%w: rate_per_sec must be >= 0", ErrInvalid)
	}
	if c.Journal.Retain < 0 {
		return fmt.Errorf("%w: journal.retain must be >= 0", ErrInvalid)
	}
	if _, err := duration("timeout", c.Timeout, 0); err != nil {
		return err
	}
	if _, err := duration("daemon.debounce", c.Daemon.Debounce, 0); err != nil {
		return err
	}
	if _, err := duration("journal.busy_timeout", c.Journal.BusyTimeout, 0); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: logging.level: unknown level %q", ErrInvalid, c.Logging.Level)
	}

	switch strings.ToLower(strings.TrimSpace(c.Journal.Driver)) {
	case "", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Journal.Path) == "" {
			return fmt.Errorf("%w: journal.path is required for driver %q", ErrInvalid, c.Journal.Driver)
		}
	default:
		return fmt.Errorf("%w: journal.driver: unknown driver %q", ErrInvalid, c.Journal.Driver)
	}
	return nil
}

// RequestTimeout returns the parsed per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := duration("timeout", c.Timeout, DefaultTimeout)
	return d
}

func (c *Config) DaemonDebounce() time.Duration {
	d, _ := duration("daemon.debounce", c.Daemon.Debounce, DefaultDebounce)
	return d
}

func (c *Config) JournalBusyTimeout() time.Duration {
	d, _ := duration("journal.busy_timeout", c.Journal.BusyTimeout, defaultBusyTimeout)
	return d
}

// DaemonWatch reports whether the daemon watches the event directory.
func (c *Config) DaemonWatch() bool {
	return c.Daemon.Watch == nil || *c.Daemon.Watch
}
