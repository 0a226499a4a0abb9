package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ilertrelay/internal/event"
	logx "ilertrelay/pkg/logx"
)

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "save [key=value ...]",
		Aliases: []string{"icinga"},
		Short:   "Persist an event from the environment and arguments, then send all saved events",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.save(cmd.Context(), args)
		},
	}
}

func (a *app) save(ctx context.Context, args []string) error {
	payload, skipped := event.Collect(PluginVersion, os.Environ(), args)
	for _, arg := range skipped {
		a.log.Warn("ignoring payload argument without '='", logx.String("arg", arg))
	}

	apiKey, err := event.ResolveAPIKey(a.cfg.APIKey, payload)
	if err != nil {
		a.log.Error("parameter apikey is required in save mode and must be provided either via command line or in the pager field of the contact definition in Icinga")
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	s, err := a.store()
	if err != nil {
		return err
	}
	if _, err := s.Persist(apiKey, payload); err != nil {
		return err
	}
	e, err := a.engine()
	if err != nil {
		return err
	}
	// A notification run is never cut short; only the per-request timeout applies.
	return a.flush(context.WithoutCancel(ctx), e, s)
}
