package config

import (
	"strings"

	logx "ilertrelay/pkg/logx"
)

// Summarize returns safe structured attrs describing cfg. The API key is
// never included, only whether one is set.
func Summarize(cfg *Config) []logx.Field {
	if cfg == nil {
		return nil
	}
	attrs := make([]logx.Field, 0, 12)
	attrs = append(attrs,
		logx.String("endpoint", strings.TrimSpace(cfg.Endpoint)),
		logx.Int("port", cfg.Port),
		logx.String("dir", cfg.Dir),
		logx.String("path", cfg.Path),
		logx.Bool("api_key_set", strings.TrimSpace(cfg.APIKey) != ""),
		logx.Duration("timeout", cfg.RequestTimeout()),
		logx.Int("rate_per_sec", cfg.RatePerSec),
		logx.String("logging.level", cfg.Logging.Level),
		logx.Bool("logging.file_enabled", cfg.Logging.File.Enabled),
	)

	driver := strings.ToLower(strings.TrimSpace(cfg.Journal.Driver))
	if driver == "" {
		driver = "none"
	}
	attrs = append(attrs, logx.String("journal.driver", driver))
	if driver != "none" {
		attrs = append(attrs,
			logx.Bool("journal.path_set", strings.TrimSpace(cfg.Journal.Path) != ""),
			logx.Int("journal.retain", cfg.Journal.Retain),
		)
	}

	attrs = append(attrs,
		logx.String("daemon.schedule", strings.TrimSpace(cfg.Daemon.Schedule)),
		logx.Bool("daemon.watch", cfg.DaemonWatch()),
		logx.Duration("daemon.debounce", cfg.DaemonDebounce()),
	)
	return attrs
}
