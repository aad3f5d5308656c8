package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linanwx/hypebot/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	SetConfigDir(dir)
	t.Cleanup(func() { SetConfigDir("") })
	return dir
}

func TestLoadMissingConfig(t *testing.T) {
	useTempConfigDir(t)
	_, err := Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := useTempConfigDir(t)
	cfg := DefaultConfig()
	cfg.Bot.DefaultChannel = "general"
	cfg.Plugins.Headlines.URL = "https://news.example.com"
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "general", loaded.Bot.DefaultChannel)
	assert.Equal(t, "https://news.example.com", loaded.Plugins.Headlines.URL)
	assert.Equal(t, core.PublicChannel("general", ""), loaded.DefaultChannel())
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := useTempConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("bot:\n  name: Hype\nreload:\n  intervalSeconds: 90\n"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Hype", cfg.Bot.Name)
	assert.Equal(t, "cli", cfg.Bot.Route)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 90*time.Second, cfg.ReloadInterval())
	assert.Empty(t, cfg.Reload.Schedule)
	assert.Equal(t, 8, cfg.Runner.MaxWorkers)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 100, cfg.Plugins.Coin.StartingBalance)
	require.NotNil(t, cfg.Channels)
	assert.NotNil(t, cfg.Channels.CLI)
	assert.Nil(t, cfg.Channels.Telegram)
	assert.True(t, cfg.Logging.Logger().Enabled)
	assert.Equal(t, core.Channel{}, cfg.DefaultChannel())

	path, err := cfg.StoragePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hypebot.db"), path)
}

func TestLoadRejectsUnknownKeysAndBadStorage(t *testing.T) {
	dir := useTempConfigDir(t)
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte("bot:\n  nmae: typo\n"), 0600))
	_, err := Load()
	assert.ErrorContains(t, err, "nmae")

	require.NoError(t, os.WriteFile(path, []byte("storage:\n  type: postgres\n"), 0600))
	_, err = Load()
	assert.ErrorContains(t, err, "storage.type")
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	dir := useTempConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), nil, 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hypebot", cfg.Bot.Name)
}

func TestLoadOrDefault(t *testing.T) {
	useTempConfigDir(t)
	cfg, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Bot, cfg.Bot)

	cfg.Bot.Name = "saved"
	require.NoError(t, cfg.Save())
	cfg, err = LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, "saved", cfg.Bot.Name)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := useTempConfigDir(t)
	require.NoError(t, DefaultConfig().Save())
	require.NoError(t, DefaultConfig().Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.yaml", entries[0].Name())
}

func TestScheduleWinsOverInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reload.IntervalSeconds = 30
	assert.Zero(t, cfg.ReloadInterval())
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Bot.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	useTempConfigDir(t)
	t.Setenv("HYPEBOT_TELEGRAM_TOKEN", "tg-secret")
	t.Setenv("HYPEBOT_DISCORD_TOKEN", "dc-secret")
	t.Setenv("HYPEBOT_STORAGE_PATH", "/var/lib/hypebot/data.db")
	t.Setenv("HYPEBOT_LOG_LEVEL", "debug")

	cfg := &Config{}
	cfg.applyDefaults()
	ApplyEnv(cfg, viper.New())

	require.NotNil(t, cfg.Channels.Telegram)
	assert.Equal(t, "tg-secret", cfg.Channels.Telegram.Token)
	assert.Equal(t, "dc-secret", cfg.Channels.Discord.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)

	path, err := cfg.StoragePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/hypebot/data.db", path)
}

func TestApplyEnvLeavesUnsetValues(t *testing.T) {
	useTempConfigDir(t)
	cfg := DefaultConfig()
	cfg.Channels.Telegram.Token = "from-file"

	ApplyEnv(cfg, nil)
	assert.Equal(t, "from-file", cfg.Channels.Telegram.Token)
	assert.Equal(t, "hypebot.db", cfg.Storage.Path)
}
