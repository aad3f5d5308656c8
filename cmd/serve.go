package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/linanwx/hypebot/channel"
	"github.com/linanwx/hypebot/config"
	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/cron"
	"github.com/linanwx/hypebot/internal/health"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
	"github.com/linanwx/hypebot/plugins/coin"
	"github.com/linanwx/hypebot/plugins/headlines"
	"github.com/linanwx/hypebot/plugins/inventory"
	"github.com/linanwx/hypebot/proxy"
	"github.com/linanwx/hypebot/runner"
	"github.com/linanwx/hypebot/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start hypebot with its channel integrations",
	Long: `Start hypebot as a long-running service that listens on multiple channels.

Supported channels:
  - cli: Interactive command line
  - telegram: Telegram bot (requires a token, or HYPEBOT_TELEGRAM_TOKEN)
  - discord: Discord bot (requires a token, or HYPEBOT_DISCORD_TOKEN)
  - web: Browser chat over a websocket

Examples:
  hypebot serve              # Start all configured channels (default)
  hypebot serve --cli        # Start with CLI channel only
  hypebot serve --telegram   # Start with Telegram bot only
  hypebot serve --web        # Start Web chat channel only

Send SIGHUP to trigger a reload of plugin data.`,
	RunE: runServe,
}

var serveTargets = map[string]*bool{
	"cli":      new(bool),
	"telegram": new(bool),
	"discord":  new(bool),
	"web":      new(bool),
}

func init() {
	serveCmd.Flags().BoolVar(serveTargets["cli"], "cli", false, "Enable CLI channel")
	serveCmd.Flags().BoolVar(serveTargets["telegram"], "telegram", false, "Enable Telegram bot channel")
	serveCmd.Flags().BoolVar(serveTargets["discord"], "discord", false, "Enable Discord bot channel")
	serveCmd.Flags().BoolVar(serveTargets["web"], "web", false, "Enable Web chat channel")
	rootCmd.AddCommand(serveCmd)
}

// app holds the wired components of a running bot.
type app struct {
	cfg       *config.Config
	storePath string
	store     store.Store
	proxy     *proxy.Proxy
	runner    *runner.Runner
	channels  *channel.Manager
	bot       *core.Core
	cron      *cron.Scheduler
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	enabled, err := resolveServeTargets(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, enabled)
	if err != nil {
		return err
	}
	defer a.close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					logger.Info("reload signal received", "accepted", a.bot.TriggerReload(ctx))
					continue
				}
				logger.Info("shutdown signal received", "signal", sig.String())
				cancel()
				return
			}
		}
	}()

	if err := a.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}
	a.cron.Start()

	logger.Info("hypebot is running. Press Ctrl+C to stop.", "name", a.bot.Name(), "channels", strings.Join(a.channels.Names(), ","))

	// Blocks until ctx is done or every channel has closed.
	NewDispatcher(a.channels, a.bot, runtimecfg.DispatcherMaxConcurrency).Run(ctx)
	cancel()

	logger.Info("hypebot service stopped")
	return nil
}

// buildApp wires storage, the proxy, the runner, the transports, the core
// and its plugins, and the reload job. Nothing is started.
func buildApp(ctx context.Context, cfg *config.Config, enabled map[string]bool) (*app, error) {
	a := &app{cfg: cfg}

	storePath, err := cfg.StoragePath()
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	a.storePath = storePath
	a.store, err = store.Open(cfg.Storage.Type, storePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a.proxy = proxy.New(cfg.ProxyCacheTTL(), proxy.WithClient(&http.Client{Timeout: cfg.ProxyTimeout()}))
	a.runner = runner.New(cfg.Runner.MaxWorkers)
	a.channels = channel.NewManager(cfg.Bot.Route)
	a.registerChannels(enabled)
	if len(a.channels.Names()) == 0 {
		a.close()
		return nil, fmt.Errorf("no channels enabled; configure one under channels or pass --cli, --telegram, --discord, --web")
	}

	a.bot = core.New(core.Options{
		Name:           cfg.Bot.Name,
		Transport:      a.channels,
		Runner:         a.runner,
		Proxy:          a.proxy,
		DefaultChannel: cfg.DefaultChannel(),
		RequestTimeout: cfg.RequestTimeout(),
	})
	if err := a.registerPlugins(ctx); err != nil {
		a.close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		a.close()
		return nil, err
	}
	a.cron, err = cron.NewScheduler(loc)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.cron.Add(a.reloadJob()); err != nil {
		a.close()
		return nil, fmt.Errorf("schedule reload: %w", err)
	}
	return a, nil
}

func (a *app) registerChannels(enabled map[string]bool) {
	chCfg := a.cfg.Channels
	if chCfg == nil {
		return
	}
	if enabled["cli"] && chCfg.CLI != nil {
		a.channels.Register(channel.NewCLIChannel(channel.CLIConfig{User: chCfg.CLI.User}))
	}
	if enabled["telegram"] && chCfg.Telegram != nil {
		if strings.TrimSpace(chCfg.Telegram.Token) == "" {
			logger.Warn("telegram channel skipped, no token configured")
		} else {
			a.channels.Register(channel.NewTelegramChannel(channel.TelegramConfig{
				Token:      chCfg.Telegram.Token,
				AllowedIDs: chCfg.Telegram.AllowedIDs,
			}))
		}
	}
	if enabled["discord"] && chCfg.Discord != nil {
		if strings.TrimSpace(chCfg.Discord.Token) == "" {
			logger.Warn("discord channel skipped, no token configured")
		} else {
			a.channels.Register(channel.NewDiscordChannel(channel.DiscordConfig{Token: chCfg.Discord.Token}))
		}
	}
	if enabled["web"] && chCfg.Web != nil {
		a.channels.Register(channel.NewWebChannel(channel.WebConfig{
			Addr:   chCfg.Web.Addr,
			Health: func() any { return a.snapshot() },
		}))
	}
}

func (a *app) registerPlugins(ctx context.Context) error {
	plugins := a.cfg.Plugins

	news := headlines.New(a.bot, a.proxy, a.store, headlines.Config{
		URL:      plugins.Headlines.URL,
		Selector: plugins.Headlines.Selector,
		MaxItems: plugins.Headlines.MaxItems,
	})
	if err := news.Load(ctx); err != nil {
		logger.Warn("headlines snapshot not loaded", "err", err)
	}

	collaborators := []struct {
		name string
		c    any
	}{
		{"coin", coin.NewBank(a.bot, a.store, plugins.Coin.StartingBalance)},
		{"inventory", inventory.NewManager(a.bot, a.store, plugins.Inventory.MaxPublicLines)},
		{"headlines", news},
	}
	for _, reg := range collaborators {
		if err := a.bot.Register(reg.name, reg.c); err != nil {
			return fmt.Errorf("register %s: %w", reg.name, err)
		}
	}
	return nil
}

func (a *app) reloadJob() cron.Job {
	job := cron.Job{
		Name:   runtimecfg.ReloadJobName,
		RunNow: a.cfg.Reload.OnStart,
		Task: func(ctx context.Context) error {
			if !a.bot.TriggerReload(ctx) {
				logger.Info("reload skipped, previous sweep still running")
			}
			return nil
		},
	}
	if every := a.cfg.ReloadInterval(); every > 0 {
		job.Every = every
	} else {
		job.Expr = a.cfg.Reload.Schedule
	}
	return job
}

// snapshot collects process and bot health.
func (a *app) snapshot() health.Snapshot {
	configDir, _ := config.ConfigDir()
	configFile, _ := config.ConfigPath()
	opts := health.Options{
		ConfigDir:   configDir,
		ConfigFile:  configFile,
		StoreType:   a.cfg.Storage.Type,
		IncludeCron: a.cron != nil,
	}
	if a.cfg.Storage.Type != store.TypeMemory {
		opts.StorePath = a.storePath
	}
	if a.bot != nil {
		opts.Bot = &health.BotInfo{
			Name:            a.bot.Name(),
			PendingRequests: a.bot.Requests().PendingCount(),
			TasksInFlight:   a.runner.InFlight(),
			Idle:            a.runner.IsIdle(),
			Channels:        a.channels.Names(),
			Collaborators:   a.bot.Collaborators(),
			ProxyCacheSize:  a.proxy.CacheSize(),
		}
	}
	if a.cron != nil {
		for _, e := range a.cron.Entries() {
			job := health.CronJobInfo{Name: e.Name, Schedule: e.Schedule}
			if !e.NextRun.IsZero() {
				job.NextRun = e.NextRun.Format(time.RFC3339)
			}
			opts.CronJobs = append(opts.CronJobs, job)
		}
	}
	return health.Collect(opts)
}

// close stops everything buildApp created, in reverse order.
func (a *app) close() {
	if a.channels != nil {
		if err := a.channels.StopAll(); err != nil {
			logger.Error("error stopping channels", "err", err)
		}
	}
	if a.cron != nil {
		a.cron.Stop()
	}
	if a.runner != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), runtimecfg.WebChannelShutdownTimeout)
		defer cancel()
		if err := a.runner.Stop(stopCtx); err != nil {
			logger.Warn("runner did not drain", "err", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("store close failed", "err", err)
		}
	}
}

// resolveServeTargets returns the channels to start. Without channel flags
// every configured channel starts.
func resolveServeTargets(cmd *cobra.Command) (map[string]bool, error) {
	if cmd == nil {
		return nil, fmt.Errorf("serve command is nil")
	}
	flags := cmd.Flags()
	enabled := make(map[string]bool, len(serveTargets))
	explicit := false
	for name := range serveTargets {
		if flags.Changed(name) {
			explicit = true
		}
	}
	for name, on := range serveTargets {
		enabled[name] = !explicit || (flags.Changed(name) && *on)
	}
	if explicit {
		anyOn := false
		for _, on := range enabled {
			anyOn = anyOn || on
		}
		if !anyOn {
			return nil, fmt.Errorf("no channels enabled; use --cli, --telegram, --discord or --web")
		}
	}
	return enabled, nil
}
