package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ilertrelay/internal/config"
	"ilertrelay/internal/daemon"
	logx "ilertrelay/pkg/logx"
)

func (a *app) daemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Keep running and send saved events on a schedule and as they arrive",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDaemon(cmd.Context())
		},
	}
	cmd.Flags().String("schedule", "", `flush schedule: cron expression, "@every 1m", "1m" or HH:MM (default 1m)`)
	cmd.Flags().Bool("watch", true, "flush as soon as a new event file appears")
	cmd.Flags().Duration("debounce", 0, "delay between a new event file and the flush (default 500ms)")
	a.v.BindPFlag("daemon.schedule", cmd.Flags().Lookup("schedule"))
	a.v.BindPFlag("daemon.watch", cmd.Flags().Lookup("watch"))
	a.v.BindPFlag("daemon.debounce", cmd.Flags().Lookup("debounce"))
	return cmd
}

func (a *app) runDaemon(ctx context.Context) error {
	s, err := a.store()
	if err != nil {
		return err
	}
	e, err := a.engine()
	if err != nil {
		return err
	}

	log := a.log.With(logx.String("component", "daemon"))
	svc, err := daemon.New(daemon.Config{
		Dir:      s.Dir(),
		Schedule: a.cfg.Daemon.Schedule,
		Watch:    a.cfg.DaemonWatch(),
		Debounce: a.cfg.DaemonDebounce(),
	}, func(ctx context.Context) error {
		return a.flush(ctx, e, s)
	}, log)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	log.Info("relaying events", logx.String("url", e.URL()))
	return svc.Run(ctx)
}
