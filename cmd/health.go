package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/linanwx/hypebot/config"
	"github.com/linanwx/hypebot/internal/health"
	"github.com/linanwx/hypebot/store"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show system health information",
	Long: `Display process health (memory, goroutines, runtime) and the configured
store. A running bot serves the full snapshot, including pending requests
and scheduled jobs, at /api/health on the web channel.`,
	RunE: runHealth,
}

var healthJSON bool

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	opts := health.Options{}
	opts.ConfigDir, _ = config.ConfigDir()
	opts.ConfigFile, _ = config.ConfigPath()

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	config.ApplyEnv(cfg, nil)
	opts.StoreType = cfg.Storage.Type
	if cfg.Storage.Type != store.TypeMemory {
		opts.StorePath, _ = cfg.StoragePath()
	}

	snapshot := health.Collect(opts)
	if healthJSON {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(health.FormatText(snapshot))
	return nil
}
