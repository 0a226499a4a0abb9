package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ilert-icinga [--mode save|send] [key=value ...]",
		Short: "Send events from Icinga to iLert",
		Long: `ilert-icinga relays Icinga notifications to iLert.

"save" persists an event to the event directory and then sends every saved
event. "send" only sends saved events and is meant to run periodically, or
use "daemon" to keep a process running. Events that cannot be delivered stay
on disk and are retried on the next send.`,
		Version:       PluginVersion,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: a.runLegacy,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (JSON or YAML)")
	pf.StringP("apikey", "a", "", "API key for the alert source in iLert")
	pf.StringP("endpoint", "e", "", "iLert API endpoint (default https://api.ilert.com)")
	pf.IntP("port", "p", 0, "endpoint port (default 443)")
	pf.StringP("dir", "d", "", "event directory where events are stored (default /tmp/ilert-icinga)")
	pf.String("log-level", "", "log level: debug|info|warn|error")
	root.Flags().StringP("mode", "m", "", `execution mode: "save"/"icinga" persists an event and sends, "send"/"cron" only sends`)

	a.v.BindPFlag("config", pf.Lookup("config"))
	a.v.BindPFlag("api_key", pf.Lookup("apikey"))
	a.v.BindPFlag("endpoint", pf.Lookup("endpoint"))
	a.v.BindPFlag("port", pf.Lookup("port"))
	a.v.BindPFlag("dir", pf.Lookup("dir"))
	a.v.BindPFlag("logging.level", pf.Lookup("log-level"))
	a.v.BindPFlag("mode", root.Flags().Lookup("mode"))

	root.AddCommand(
		a.saveCmd(),
		a.sendCmd(),
		a.daemonCmd(),
		a.listCmd(),
		a.historyCmd(),
		a.versionCmd(),
	)
	return root
}

// runLegacy keeps the flag-based invocation used by existing Icinga
// command definitions: ilert-icinga --mode save key=value ...
func (a *app) runLegacy(cmd *cobra.Command, args []string) error {
	mode := strings.ToLower(strings.TrimSpace(a.v.GetString("mode")))
	switch mode {
	case "save", "icinga":
		return a.save(cmd.Context(), args)
	case "send", "cron":
		return a.send(cmd.Context())
	case "":
		return ErrMissingMode
	default:
		return fmt.Errorf("%w %q (want save, icinga, send or cron)", ErrUnknownMode, mode)
	}
}
