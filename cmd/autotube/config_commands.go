package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"autotube/internal/config"
)

func newConfigCommand(cmdCtx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(cmdCtx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				if statErr == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
				if !errors.Is(statErr, fs.ErrNotExist) {
					return fmt.Errorf("check config path: %w", statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Put API keys in %s or export OPENROUTER_API_KEY, TTS_API_KEY and the YOUTUBE_* variables.\n",
				filepath.Join(filepath.Dir(target), ".env"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// initTarget resolves the --path flag, falling back to the default location.
func initTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and show resolved providers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			source := "defaults (no config file found)"
			if cmdCtx.configExists {
				source = cmdCtx.configPath
			}
			out := cmd.OutOrStdout()
			for _, s := range settingsSummary(cfg, source) {
				fmt.Fprintf(out, "%-21s%s\n", s.label+":", s.value)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

type setting struct {
	label string
	value string
}

// settingsSummary lists the resolved values that decide how a job runs.
func settingsSummary(cfg *config.Config, source string) []setting {
	store := cfg.Store.Backend
	if store == config.BackendSQLite {
		store += " (" + cfg.Store.SQLitePath + ")"
	}
	timeout := "none"
	if d := cfg.StageTimeout(); d > 0 {
		timeout = d.String()
	}
	publish := cfg.Publish.Provider
	switch publish {
	case config.ProviderYouTube:
		publish += ", credentials " + yesNo(cfg.YouTubeCredentialsPresent())
	case config.ProviderMinIO:
		publish += " (" + cfg.MinIO.Endpoint + "/" + cfg.MinIO.Bucket + ")"
	}
	forwarding := "off"
	if cfg.Events.RedisAddr != "" {
		forwarding = cfg.Events.RedisAddr + " channel " + cfg.Events.RedisChannel
	}
	return []setting{
		{"Config", source},
		{"Work dir", cfg.Paths.WorkDir},
		{"Job store", store},
		{"Script provider", cfg.Script.Provider},
		{"Narration provider", cfg.Narration.Provider},
		{"Publish provider", publish},
		{"Stage timeout", timeout},
		{"Notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
		{"Event forwarding", forwarding},
		{"Metrics", yesNo(cfg.Metrics.Enabled)},
	}
}
