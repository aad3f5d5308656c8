package config

import (
	"path/filepath"
	"strings"

	"github.com/linanwx/hypebot/internal/runtimecfg"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:                  runtimecfg.BotDefaultName,
			Route:                 runtimecfg.BotDefaultRoute,
			Timezone:              runtimecfg.BotDefaultTimezone,
			RequestTimeoutSeconds: int(runtimecfg.RequestConfirmTimeout.Seconds()),
		},
		Runner: RunnerConfig{MaxWorkers: runtimecfg.RunnerDefaultMaxWorkers},
		Reload: ReloadConfig{Schedule: runtimecfg.ReloadDefaultSchedule, OnStart: true},
		Storage: StorageConfig{
			Type: runtimecfg.StorageDefaultType,
			Path: runtimecfg.StorageDefaultFileName,
		},
		Proxy: ProxyConfig{
			CacheTTLSeconds: int(runtimecfg.ProxyDefaultCacheTTL.Seconds()),
			TimeoutSeconds:  int(runtimecfg.ProxyDefaultHTTPTimeout.Seconds()),
		},
		Channels: &ChannelsConfig{
			CLI: &CLIChannelConfig{},
			Telegram: &TelegramChannelConfig{
				Token:      "",
				AllowedIDs: []int64{},
			},
			Discord: &DiscordChannelConfig{Token: ""},
			Web: &WebChannelConfig{
				Addr: runtimecfg.WebChannelDefaultAddr,
			},
		},
		Plugins: PluginsConfig{
			Coin:      CoinPluginConfig{StartingBalance: runtimecfg.CoinDefaultStartingBalance},
			Inventory: InventoryPluginConfig{MaxPublicLines: runtimecfg.ReplyDefaultMaxPublicLines},
			Headlines: HeadlinesPluginConfig{Selector: "h2", MaxItems: runtimecfg.HeadlinesDefaultMaxItems},
		},
		Logging: defaultLoggingConfig(),
	}
}

func defaultLoggingConfig() LoggingConfig {
	dir, err := ConfigDir()
	if err != nil {
		dir = ""
	}
	logFile := filepath.Join(dir, "logs", "hypebot.log")
	enabled := true
	return LoggingConfig{
		Enabled: &enabled,
		Level:   "info",
		Stdout:  true,
		File:    logFile,
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Bot.Name) == "" {
		c.Bot.Name = runtimecfg.BotDefaultName
	}
	if strings.TrimSpace(c.Bot.Route) == "" {
		c.Bot.Route = runtimecfg.BotDefaultRoute
	}
	if c.Bot.RequestTimeoutSeconds <= 0 {
		c.Bot.RequestTimeoutSeconds = int(runtimecfg.RequestConfirmTimeout.Seconds())
	}
	if c.Runner.MaxWorkers <= 0 {
		c.Runner.MaxWorkers = runtimecfg.RunnerDefaultMaxWorkers
	}
	if strings.TrimSpace(c.Reload.Schedule) == "" && c.Reload.IntervalSeconds <= 0 {
		c.Reload.Schedule = runtimecfg.ReloadDefaultSchedule
	}
	if c.Storage.Type == "" {
		c.Storage.Type = runtimecfg.StorageDefaultType
	}
	if c.Storage.Path == "" {
		c.Storage.Path = runtimecfg.StorageDefaultFileName
	}
	if c.Proxy.CacheTTLSeconds <= 0 {
		c.Proxy.CacheTTLSeconds = int(runtimecfg.ProxyDefaultCacheTTL.Seconds())
	}
	if c.Proxy.TimeoutSeconds <= 0 {
		c.Proxy.TimeoutSeconds = int(runtimecfg.ProxyDefaultHTTPTimeout.Seconds())
	}

	if c.Channels == nil {
		c.Channels = &ChannelsConfig{CLI: &CLIChannelConfig{}}
	}
	if c.Channels.Telegram != nil && c.Channels.Telegram.AllowedIDs == nil {
		c.Channels.Telegram.AllowedIDs = []int64{}
	}
	if c.Channels.Web != nil && c.Channels.Web.Addr == "" {
		c.Channels.Web.Addr = runtimecfg.WebChannelDefaultAddr
	}

	if c.Plugins.Coin.StartingBalance <= 0 {
		c.Plugins.Coin.StartingBalance = runtimecfg.CoinDefaultStartingBalance
	}
	if c.Plugins.Inventory.MaxPublicLines <= 0 {
		c.Plugins.Inventory.MaxPublicLines = runtimecfg.ReplyDefaultMaxPublicLines
	}
	if c.Plugins.Headlines.MaxItems <= 0 {
		c.Plugins.Headlines.MaxItems = runtimecfg.HeadlinesDefaultMaxItems
	}

	def := defaultLoggingConfig()
	if c.Logging == (LoggingConfig{}) {
		c.Logging = def
		return
	}

	hasAny := c.Logging.Level != "" || c.Logging.File != "" || c.Logging.Stdout
	if c.Logging.Enabled == nil && hasAny {
		enabled := true
		c.Logging.Enabled = &enabled
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Level
	}
	if !c.Logging.Stdout && c.Logging.File == "" {
		c.Logging.Stdout = def.Stdout
	}
	if c.Logging.Enabled == nil {
		c.Logging.Enabled = def.Enabled
	}
}
