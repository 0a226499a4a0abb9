package main

import (
	"context"

	"github.com/spf13/cobra"
)

func (a *app) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "send",
		Aliases: []string{"cron"},
		Short:   "Send all saved events to iLert",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.send(cmd.Context())
		},
	}
}

func (a *app) send(ctx context.Context) error {
	s, err := a.store()
	if err != nil {
		return err
	}
	e, err := a.engine()
	if err != nil {
		return err
	}
	return a.flush(context.WithoutCancel(ctx), e, s)
}
