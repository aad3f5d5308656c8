// Package cmd provides CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/linanwx/hypebot/config"
	"github.com/linanwx/hypebot/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	logLevelOverride  string
	configDirOverride string
)

// rootCmd is the root command.
var rootCmd = &cobra.Command{
	Use:   "hypebot",
	Short: "hypebot - a multi-transport chat bot",
	Long: `hypebot is a chat bot that answers on the terminal, Telegram, Discord
and a browser websocket at the same time. Plugins keep their state in a
local store and refresh on a schedule.

Get started with: hypebot onboard`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level for this run (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configDirOverride, "config-dir", "", "Config directory (default ~/.hypebot)")
	rootCmd.PersistentPreRunE = applyRuntimeOverrides
}

func applyRuntimeOverrides(cmd *cobra.Command, args []string) error {
	config.SetConfigDir(configDirOverride)

	if logLevelOverride == "" {
		return nil
	}
	level, err := parseLogLevel(logLevelOverride)
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	cfg.Logging.Level = level
	return initLogger(cfg)
}

func parseLogLevel(raw string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug", "info", "warn", "error":
		return level, nil
	}
	return "", fmt.Errorf("invalid --log-level: %q (use debug, info, warn, error)", raw)
}

// loadConfig reads config.yaml, applies HYPEBOT_* overrides and the
// --log-level flag, and initializes the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg, viper.New())
	if logLevelOverride != "" {
		if level, err := parseLogLevel(logLevelOverride); err == nil {
			cfg.Logging.Level = level
		}
	}
	if err := initLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) error {
	configDir, _ := config.ConfigDir()
	if err := logger.Init(cfg.Logging.Logger(), configDir); err != nil {
		return fmt.Errorf("logger init error: %w", err)
	}
	return nil
}
