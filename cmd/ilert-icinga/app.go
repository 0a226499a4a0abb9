package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ilertrelay/internal/config"
	"ilertrelay/internal/event"
	"ilertrelay/internal/queue"
	"ilertrelay/internal/relay"
	"ilertrelay/internal/storage"
	logx "ilertrelay/pkg/logx"
)

// app holds the state of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	v      *viper.Viper
	client *http.Client

	cfg     *config.Config
	log     logx.Logger
	logSvc  *logx.Service
	journal storage.Journal
}

func newApp(stdout, stderr io.Writer) *app {
	v := viper.New()
	v.SetEnvPrefix("ILERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &app{stdout: stdout, stderr: stderr, v: v}
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	if err != nil {
		if !a.log.IsZero() {
			a.log.Error("ilert-icinga failed", logx.Err(err), logx.Int("exit_code", code))
		}
		fmt.Fprintf(a.stderr, "ilert-icinga: %v\n", err)
		if code == 2 {
			fmt.Fprintln(a.stderr, "Run 'ilert-icinga --help' for usage.")
		}
	}
	a.close()
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage), errors.Is(err, event.ErrNoAPIKey),
		errors.Is(err, ErrUnknownMode), errors.Is(err, ErrMissingMode):
		return 2
	default:
		return 1
	}
}

// setup resolves the effective config and builds the logger. Precedence is
// flag > ILERT_* env > config file > defaults.
func (a *app) setup(cmd *cobra.Command) error {
	mgr := config.NewConfigManager(a.v.GetString("config"))
	fileCfg, err := mgr.Load()
	if err != nil {
		return err
	}
	a.seed(fileCfg)

	cfg := a.resolve(fileCfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.initLogger()
	a.log.Debug("effective config", append(config.Summarize(cfg), logx.String("command", cmd.Name()))...)
	return nil
}

func (a *app) seed(cfg *config.Config) {
	d := map[string]any{
		"api_key":              cfg.APIKey,
		"endpoint":             cfg.Endpoint,
		"port":                 cfg.Port,
		"dir":                  cfg.Dir,
		"path":                 cfg.Path,
		"timeout":              cfg.Timeout,
		"rate_per_sec":         cfg.RatePerSec,
		"logging.level":        cfg.Logging.Level,
		"logging.file.enabled": cfg.Logging.File.Enabled,
		"logging.file.path":    cfg.Logging.File.Path,
		"journal.driver":       cfg.Journal.Driver,
		"journal.path":         cfg.Journal.Path,
		"journal.busy_timeout": cfg.Journal.BusyTimeout,
		"journal.retain":       cfg.Journal.Retain,
		"daemon.schedule":      cfg.Daemon.Schedule,
		"daemon.watch":         cfg.DaemonWatch(),
		"daemon.debounce":      cfg.Daemon.Debounce,
	}
	for k, val := range d {
		a.v.SetDefault(k, val)
	}
}

func (a *app) resolve(fileCfg *config.Config) *config.Config {
	v := a.v
	watch := v.GetBool("daemon.watch")
	return &config.Config{
		APIKey:     strings.TrimSpace(v.GetString("api_key")),
		Endpoint:   strings.TrimSpace(v.GetString("endpoint")),
		Port:       v.GetInt("port"),
		Dir:        strings.TrimSpace(v.GetString("dir")),
		Path:       v.GetString("path"),
		Timeout:    v.GetString("timeout"),
		RatePerSec: v.GetInt("rate_per_sec"),
		Logging: config.LoggingConfig{
			Level:   v.GetString("logging.level"),
			Console: fileCfg.Logging.Console,
			Journal: fileCfg.Logging.Journal,
			File: config.LoggingFile{
				Enabled: v.GetBool("logging.file.enabled"),
				Path:    v.GetString("logging.file.path"),
			},
		},
		Journal: config.JournalConfig{
			Driver:      v.GetString("journal.driver"),
			Path:        v.GetString("journal.path"),
			BusyTimeout: v.GetString("journal.busy_timeout"),
			Retain:      v.GetInt("journal.retain"),
		},
		Daemon: config.DaemonConfig{
			Schedule: v.GetString("daemon.schedule"),
			Watch:    &watch,
			Debounce: v.GetString("daemon.debounce"),
		},
	}
}

// isDockerMode reports whether DOCKER_MODE asks for console logging.
func isDockerMode(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "y":
		return true
	}
	return false
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (a *app) initLogger() {
	docker := isDockerMode(os.Getenv("DOCKER_MODE"))
	lc := a.cfg.Logging
	a.logSvc, a.log = logx.New(logx.Config{
		Level:      lc.Level,
		Console:    boolOr(lc.Console, docker),
		Journal:    boolOr(lc.Journal, !docker),
		File:       logx.FileConfig{Enabled: lc.File.Enabled, Path: lc.File.Path},
		Identifier: "ilert-icinga",
		Stdout:     a.stdout,
		Stderr:     a.stderr,
	})
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Debug("journal close failed", logx.Err(err))
		}
		a.journal = nil
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
		a.logSvc = nil
	}
}

// store returns the event store, creating the directory if needed.
func (a *app) store() (*queue.Store, error) {
	if err := os.MkdirAll(a.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCreateEventDir, a.cfg.Dir, err)
	}
	return queue.New(a.cfg.Dir, a.log), nil
}

func (a *app) openJournal() (storage.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := storage.Open(storage.Config{
		Driver:      a.cfg.Journal.Driver,
		Path:        a.cfg.Journal.Path,
		BusyTimeout: a.cfg.JournalBusyTimeout(),
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenJournal, err)
	}
	a.journal = j
	return j, nil
}

func (a *app) engine() (*relay.Engine, error) {
	j, err := a.openJournal()
	if err != nil {
		return nil, err
	}
	e, err := relay.New(relay.Options{
		Endpoint:      a.cfg.Endpoint,
		Port:          a.cfg.Port,
		Path:          a.cfg.Path,
		Timeout:       a.cfg.RequestTimeout(),
		RatePerSec:    a.cfg.RatePerSec,
		UserAgent:     userAgent(),
		JournalRetain: a.cfg.Journal.Retain,
	}, a.client, a.log, j)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildRelay, err)
	}
	return e, nil
}

// flush takes the directory lock and sends every pending event.
func (a *app) flush(ctx context.Context, e *relay.Engine, s *queue.Store) error {
	st, err := e.LockAndFlush(ctx, s)
	if err != nil {
		return err
	}
	if st != (relay.Stats{}) {
		a.log.Debug("flush finished",
			logx.Int("sent", st.Sent),
			logx.Int("rejected", st.Rejected),
			logx.Int("retained", st.Retained),
			logx.Int("skipped", st.Skipped),
		)
	}
	return nil
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
		return nil
	}
}
