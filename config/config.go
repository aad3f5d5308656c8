// Package config handles configuration loading and saving.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/logger"
)

// Config is the root configuration structure.
type Config struct {
	Bot      BotConfig       `yaml:"bot"`
	Runner   RunnerConfig    `yaml:"runner"`
	Reload   ReloadConfig    `yaml:"reload"`
	Storage  StorageConfig   `yaml:"storage"`
	Proxy    ProxyConfig     `yaml:"proxy"`
	Channels *ChannelsConfig `yaml:"channels,omitempty"`
	Plugins  PluginsConfig   `yaml:"plugins"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// BotConfig contains the identity and reply settings of the bot.
type BotConfig struct {
	Name                  string `yaml:"name"`
	DefaultChannel        string `yaml:"defaultChannel,omitempty"` // public channel id used when a reply has no destination
	Route                 string `yaml:"route"`                    // transport used for destinations never seen inbound
	Timezone              string `yaml:"timezone,omitempty"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds,omitempty"`
}

type RunnerConfig struct {
	MaxWorkers int `yaml:"maxWorkers,omitempty"`
}

// ReloadConfig schedules the periodic reload sweep. Schedule wins over
// IntervalSeconds when both are set.
type ReloadConfig struct {
	Schedule        string `yaml:"schedule,omitempty"`
	IntervalSeconds int    `yaml:"intervalSeconds,omitempty"`
	OnStart         bool   `yaml:"onStart,omitempty"`
}

type StorageConfig struct {
	Type string `yaml:"type"` // sqlite, memory
	Path string `yaml:"path,omitempty"`
}

type ProxyConfig struct {
	CacheTTLSeconds int `yaml:"cacheTTLSeconds,omitempty"`
	TimeoutSeconds  int `yaml:"timeoutSeconds,omitempty"`
}

// ChannelsConfig contains transport settings. A nil transport section
// disables that transport.
type ChannelsConfig struct {
	CLI      *CLIChannelConfig      `yaml:"cli,omitempty"`
	Telegram *TelegramChannelConfig `yaml:"telegram,omitempty"`
	Discord  *DiscordChannelConfig  `yaml:"discord,omitempty"`
	Web      *WebChannelConfig      `yaml:"web,omitempty"`
}

type CLIChannelConfig struct {
	User string `yaml:"user,omitempty"` // defaults to $USER
}

type TelegramChannelConfig struct {
	Token      string  `yaml:"token"`
	AllowedIDs []int64 `yaml:"allowedIds"`
}

type DiscordChannelConfig struct {
	Token string `yaml:"token"`
}

type WebChannelConfig struct {
	Addr string `yaml:"addr"`
}

type PluginsConfig struct {
	Coin      CoinPluginConfig      `yaml:"coin"`
	Inventory InventoryPluginConfig `yaml:"inventory"`
	Headlines HeadlinesPluginConfig `yaml:"headlines"`
}

type CoinPluginConfig struct {
	StartingBalance int `yaml:"startingBalance"`
}

type InventoryPluginConfig struct {
	MaxPublicLines int `yaml:"maxPublicLines,omitempty"`
}

type HeadlinesPluginConfig struct {
	URL      string `yaml:"url,omitempty"`
	Selector string `yaml:"selector,omitempty"`
	MaxItems int    `yaml:"maxItems,omitempty"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Level   string `yaml:"level,omitempty"`
	Stdout  bool   `yaml:"stdout,omitempty"`
	File    string `yaml:"file,omitempty"`
}

// Logger converts the logging section to logger settings.
func (l LoggingConfig) Logger() logger.Config {
	return logger.Config{
		Enabled: l.Enabled == nil || *l.Enabled,
		Level:   l.Level,
		Stdout:  l.Stdout,
		File:    l.File,
	}
}

// DefaultChannel returns the configured public default channel, or the
// zero Channel when none is set.
func (c *Config) DefaultChannel() core.Channel {
	id := strings.TrimSpace(c.Bot.DefaultChannel)
	if id == "" {
		return core.Channel{}
	}
	return core.PublicChannel(id, "")
}

// RequestTimeout returns the confirmation timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Bot.RequestTimeoutSeconds) * time.Second
}

// Location returns the time zone cron schedules are evaluated in.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Bot.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid bot.timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ReloadInterval returns the fixed reload interval, or 0 when a cron
// schedule is used.
func (c *Config) ReloadInterval() time.Duration {
	if strings.TrimSpace(c.Reload.Schedule) != "" {
		return 0
	}
	return time.Duration(c.Reload.IntervalSeconds) * time.Second
}

func (c *Config) ProxyCacheTTL() time.Duration {
	return time.Duration(c.Proxy.CacheTTLSeconds) * time.Second
}

func (c *Config) ProxyTimeout() time.Duration {
	return time.Duration(c.Proxy.TimeoutSeconds) * time.Second
}
