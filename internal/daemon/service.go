package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"ilertrelay/internal/runtime/supervisor"
	logx "ilertrelay/pkg/logx"
)

// FlushFunc runs one locked flush of the event directory.
type FlushFunc func(ctx context.Context) error

type Config struct {
	Dir      string
	Schedule string
	Watch    bool
	Debounce time.Duration
	Location *time.Location
}

// Service is the long-running relay.
type Service struct {
	cfg   Config
	spec  ParsedSpec
	sched cron.Schedule
	flush FlushFunc
	log   logx.Logger

	// trigger holds at most one pending flush request.
	trigger chan string

	// notify reports state to the service manager.
	notify func(state string) (bool, error)
}

func New(cfg Config, flush FlushFunc, log logx.Logger) (*Service, error) {
	if flush == nil {
		return nil, errors.New("daemon: flush func required")
	}
	if cfg.Watch && strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("daemon: dir required when watching")
	}
	spec, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	sched, err := spec.Schedule()
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		spec:    spec,
		sched:   sched,
		flush:   flush,
		log:     log,
		trigger: make(chan string, 1),
		notify: func(state string) (bool, error) {
			return sddaemon.SdNotify(false, state)
		},
	}, nil
}

// Trigger requests a flush. It never blocks: a request made while one is
// already pending is merged into it.
func (s *Service) Trigger(reason string) {
	select {
	case s.trigger <- reason:
	default:
		s.log.Debug("flush already pending", logx.String("reason", reason))
	}
}

// Run blocks until ctx is cancelled or a goroutine fails. A flush in
// progress at shutdown stops between events.
func (s *Service) Run(ctx context.Context) error {
	sup := supervisor.New(ctx, supervisor.WithLogger(s.log), supervisor.WithCancelOnError(true))

	c := cron.New(cron.WithLocation(s.cfg.Location))
	c.Schedule(s.sched, cron.FuncJob(func() { s.Trigger("schedule") }))
	c.Start()

	sup.Go("flush-worker", s.work)
	if s.cfg.Watch {
		w := &watcher{dir: s.cfg.Dir, debounce: s.cfg.Debounce, fire: s.Trigger, log: s.log}
		sup.GoRestart("event-watch", w.run, supervisor.WithRestartBackoff(250*time.Millisecond, 5*time.Second))
	}
	s.Trigger("startup")

	s.log.Info("daemon started",
		logx.String("schedule", s.spec.String()),
		logx.Bool("watch", s.cfg.Watch),
		logx.String("dir", s.cfg.Dir),
	)
	s.sdNotify(sddaemon.SdNotifyReady)

	<-sup.Context().Done()

	s.sdNotify(sddaemon.SdNotifyStopping)
	s.log.Info("daemon stopping")
	<-c.Stop().Done()

	err := sup.Stop(context.Background())
	if err != nil {
		s.log.Error("daemon stopped with error", logx.Err(err))
		return err
	}
	s.log.Info("daemon stopped")
	return nil
}

func (s *Service) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-s.trigger:
			started := time.Now()
			s.log.Debug("flush started", logx.String("reason", reason))
			if err := s.flush(ctx); err != nil {
				// Lock failures are transient; the next trigger retries.
				s.log.Error("flush failed", logx.String("reason", reason), logx.Err(err))
				continue
			}
			s.log.Debug("flush finished", logx.String("reason", reason), logx.Duration("took", time.Since(started)))
		}
	}
}

func (s *Service) sdNotify(state string) {
	if s.notify == nil {
		return
	}
	sent, err := s.notify(state)
	if err != nil {
		s.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		s.log.Debug("sd_notify sent", logx.String("state", state))
	}
}
