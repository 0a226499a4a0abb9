package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PluginVersion is sent as PLUGIN_VERSION with every event.
const PluginVersion = "1.5"

// Set via -ldflags at build time.
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func userAgent() string { return "ilert-icinga/" + PluginVersion }

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config or logger needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "ilert-icinga %s (commit: %s, built: %s)\n", PluginVersion, GitCommit, BuildTime)
		},
	}
}
