package runtimecfg

import "time"

const (
	BotDefaultName             = "hypebot"
	BotDefaultRoute            = "cli"
	BotDefaultTimezone         = "UTC"
	RequestConfirmTimeout      = 60 * time.Second
	ReplyDefaultMaxPublicLines = 6
)

const (
	RunnerDefaultMaxWorkers  = 8
	DispatcherMaxConcurrency = 16
	ReloadDefaultSchedule    = "0 */6 * * *"
	ReloadJobName            = "reload"
)

const (
	CLIChannelMessageBufferSize      = 10
	TelegramChannelMessageBufferSize = 100
	TelegramUpdateTimeoutSeconds     = 30
	TelegramMaxMessageLength         = 4096
	DiscordChannelMessageBufferSize  = 100
	DiscordMaxMessageLength          = 2000
	WebChannelMessageBufferSize      = 100
	WebChannelDefaultAddr            = "127.0.0.1:8080"
	WebChannelShutdownTimeout        = 5 * time.Second
	WebLobbyChannelID                = "lobby"
)

const (
	StorageDefaultType     = "sqlite"
	StorageDefaultFileName = "hypebot.db"
)

const (
	ProxyDefaultCacheTTL       = 10 * time.Minute
	ProxyDefaultHTTPTimeout    = 15 * time.Second
	ProxyMaxReadBytes          = 2 << 20
	HeadlinesDefaultMaxItems   = 10
	CoinDefaultStartingBalance = 100
)
