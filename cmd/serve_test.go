package cmd

import (
	"context"
	"testing"

	"github.com/linanwx/hypebot/config"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	config.SetConfigDir(t.TempDir())
	t.Cleanup(func() { config.SetConfigDir("") })

	cfg := config.DefaultConfig()
	cfg.Storage.Type = "memory"
	cfg.Reload.OnStart = false
	return cfg
}

func TestBuildAppWiresPluginsAndReloadJob(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := buildApp(context.Background(), cfg, map[string]bool{"cli": true})
	require.NoError(t, err)
	t.Cleanup(a.close)

	assert.Equal(t, []string{"cli"}, a.channels.Names())
	assert.Equal(t, []string{"coin", "inventory", "headlines"}, a.bot.Collaborators())
	assert.Equal(t, []string{runtimecfg.ReloadJobName}, a.cron.Names())

	snap := a.snapshot()
	require.NotNil(t, snap.Bot)
	assert.Equal(t, "hypebot", snap.Bot.Name)
	assert.True(t, snap.Bot.Idle)
	require.NotNil(t, snap.Storage)
	assert.Equal(t, "memory", snap.Storage.Type)
	assert.Empty(t, snap.Storage.Path)
	require.NotNil(t, snap.Cron)
	require.Len(t, snap.Cron.Jobs, 1)
	assert.Equal(t, runtimecfg.ReloadDefaultSchedule, snap.Cron.Jobs[0].Schedule)
}

func TestBuildAppSkipsChannelsWithoutTokens(t *testing.T) {
	cfg := memoryConfig(t)
	_, err := buildApp(context.Background(), cfg, map[string]bool{"telegram": true, "discord": true})
	assert.ErrorContains(t, err, "no channels enabled")
}

func TestReloadJobUsesInterval(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Reload.Schedule = ""
	cfg.Reload.IntervalSeconds = 90
	a := &app{cfg: cfg}

	job := a.reloadJob()
	assert.Empty(t, job.Expr)
	assert.Equal(t, int64(90), int64(job.Every.Seconds()))
}

func TestResolveServeTargets(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		c := &cobra.Command{Use: "serve"}
		for name, p := range serveTargets {
			*p = false
			c.Flags().BoolVar(p, name, false, "")
		}
		require.NoError(t, c.ParseFlags(args))
		return c
	}

	all, err := resolveServeTargets(newCmd())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"cli": true, "telegram": true, "discord": true, "web": true}, all)

	onlyWeb, err := resolveServeTargets(newCmd("--web"))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"cli": false, "telegram": false, "discord": false, "web": true}, onlyWeb)

	_, err = resolveServeTargets(newCmd("--cli=false"))
	assert.Error(t, err)
}
