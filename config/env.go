package config

import (
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "HYPEBOT"

// Keys read from the environment, e.g. telegram_token <- HYPEBOT_TELEGRAM_TOKEN.
const (
	envTelegramToken = "telegram_token"
	envDiscordToken  = "discord_token"
	envStorageType   = "storage_type"
	envStoragePath   = "storage_path"
	envLogLevel      = "log_level"
	envWebAddr       = "web_addr"
)

// ApplyEnv overrides c with HYPEBOT_* environment variables so secrets can
// stay out of config.yaml. A nil v uses a fresh viper instance.
func ApplyEnv(c *Config, v *viper.Viper) {
	if c == nil {
		return
	}
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{envTelegramToken, envDiscordToken, envStorageType, envStoragePath, envLogLevel, envWebAddr} {
		_ = v.BindEnv(key)
	}

	if c.Channels == nil {
		c.Channels = &ChannelsConfig{}
	}
	if token := env(v, envTelegramToken); token != "" {
		if c.Channels.Telegram == nil {
			c.Channels.Telegram = &TelegramChannelConfig{AllowedIDs: []int64{}}
		}
		c.Channels.Telegram.Token = token
	}
	if token := env(v, envDiscordToken); token != "" {
		if c.Channels.Discord == nil {
			c.Channels.Discord = &DiscordChannelConfig{}
		}
		c.Channels.Discord.Token = token
	}
	if addr := env(v, envWebAddr); addr != "" {
		if c.Channels.Web == nil {
			c.Channels.Web = &WebChannelConfig{}
		}
		c.Channels.Web.Addr = addr
	}
	if kind := env(v, envStorageType); kind != "" {
		c.Storage.Type = kind
	}
	if p := env(v, envStoragePath); p != "" {
		c.Storage.Path = p
	}
	if level := env(v, envLogLevel); level != "" {
		c.Logging.Level = level
	}
}

func env(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}
