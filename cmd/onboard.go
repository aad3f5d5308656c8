package cmd

import (
	"fmt"
	"os"

	"github.com/linanwx/hypebot/config"
	"github.com/spf13/cobra"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize hypebot configuration",
	Long:  `Create the hypebot configuration directory and default config file.`,
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config already exists at:", configPath)
		fmt.Println("To reconfigure, edit the file directly or delete it first.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	storePath, err := cfg.StoragePath()
	if err != nil {
		return err
	}

	fmt.Println("hypebot initialized successfully!")
	fmt.Println()
	fmt.Println("Config file:", configPath)
	fmt.Println("Store:", storePath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Add a Telegram or Discord token to", configPath)
	fmt.Println("     (or export HYPEBOT_TELEGRAM_TOKEN / HYPEBOT_DISCORD_TOKEN)")
	fmt.Println("  2. Set plugins.headlines.url to a page to scrape for !news")
	fmt.Println("  3. Run 'hypebot serve'")
	return nil
}
