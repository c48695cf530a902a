package main

import (
	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag, logLevelFlag string
	cmdCtx := newCommandContext(&configFlag, &logLevelFlag)

	root := &cobra.Command{
		Use:   "autotube",
		Short: "Generate and publish short-form videos",
		Long: "autotube turns a topic into a narrated, captioned vertical video and publishes it.\n" +
			"Use `run` for a one-off job or `serve` to accept jobs over HTTP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cmdCtx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path (default ~/.config/autotube/config.toml, then ./autotube.toml)")
	flags.StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newRunCommand(cmdCtx),
		newServeCommand(cmdCtx),
		newJobsCommand(cmdCtx),
		newConfigCommand(cmdCtx),
	)
	return root
}
