package channel

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

// ircFormatting matches IRC color codes (\x03FG[,BG]) and the bold,
// italic, underline and reset controls, which Discord would print raw.
var ircFormatting = regexp.MustCompile(`\x03(\d{1,2}(,\d{1,2})?)?|[\x02\x0f\x1d\x1f]`)

// StripIRCFormatting removes IRC formatting codes from s.
func StripIRCFormatting(s string) string {
	return ircFormatting.ReplaceAllString(s, "")
}

// DiscordChannel implements the Channel interface for Discord. Guild text
// channels are public; direct messages are private.
type DiscordChannel struct {
	token    string
	session  *discordgo.Session
	messages chan *Message
	done     chan struct{}
	stopOnce sync.Once

	mu    sync.RWMutex
	users map[core.User]string // discord user id per user name
	dms   map[string]string    // dm channel id per discord user id
}

// DiscordConfig holds Discord channel configuration.
type DiscordConfig struct {
	Token string // Bot token
}

// NewDiscordChannel creates a new Discord channel.
func NewDiscordChannel(cfg DiscordConfig) *DiscordChannel {
	return &DiscordChannel{
		token:    cfg.Token,
		messages: make(chan *Message, runtimecfg.DiscordChannelMessageBufferSize),
		done:     make(chan struct{}),
		users:    make(map[core.User]string),
		dms:      make(map[string]string),
	}
}

// Name returns the channel name.
func (d *DiscordChannel) Name() string {
	return "discord"
}

// Start opens the Discord gateway connection.
func (d *DiscordChannel) Start(_ context.Context) error {
	s, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	s.AddHandler(d.onMessageCreate)

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord connection failed: %w", err)
	}
	d.session = s
	logger.Info("discord channel started")
	return nil
}

// Stop closes the Discord gateway connection.
func (d *DiscordChannel) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		close(d.done)
		if d.session != nil {
			err = d.session.Close()
		}
		logger.Info("discord channel stopped")
	})
	return err
}

// Send delivers msg, split at Discord's message size limit. Private
// messages go through the user's DM channel.
func (d *DiscordChannel) Send(_ context.Context, ch core.Channel, msg core.Message) error {
	if d.session == nil {
		return fmt.Errorf("discord channel not started")
	}
	channelID := ch.ID
	if ch.Visibility == core.Private {
		id, err := d.dmChannel(core.User(ch.ID))
		if err != nil {
			return err
		}
		channelID = id
	}

	text := StripIRCFormatting(strings.Join(msg, "\n"))
	for _, chunk := range SplitMessage(text, runtimecfg.DiscordMaxMessageLength) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("discord send error: %w", err)
		}
	}
	return nil
}

// Messages returns the incoming message channel.
func (d *DiscordChannel) Messages() <-chan *Message {
	return d.messages
}

func (d *DiscordChannel) dmChannel(user core.User) (string, error) {
	d.mu.RLock()
	userID, ok := d.users[user]
	dm := d.dms[userID]
	d.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: unknown discord user %s", ErrNoRoute, user)
	}
	if dm != "" {
		return dm, nil
	}

	created, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return "", fmt.Errorf("open dm with %s: %w", user, err)
	}
	d.mu.Lock()
	d.dms[userID] = created.ID
	d.mu.Unlock()
	return created.ID, nil
}

func (d *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	msg := d.convertMessage(selfID, m.Message)
	if msg == nil {
		return
	}

	select {
	case <-d.done:
	case d.messages <- msg:
	default:
		logger.Warn("discord message buffer full, dropping message")
	}
}

// convertMessage maps a Discord message to a Message, or nil for the bot's
// own messages and empty content.
func (d *DiscordChannel) convertMessage(selfID string, m *discordgo.Message) *Message {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return nil
	}

	text := m.Content
	if selfID != "" {
		text = strings.ReplaceAll(text, "<@"+selfID+">", "")
		text = strings.ReplaceAll(text, "<@!"+selfID+">", "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	user := core.User(m.Author.Username)
	d.mu.Lock()
	d.users[user] = m.Author.ID
	if m.GuildID == "" {
		d.dms[m.Author.ID] = m.ChannelID
	}
	d.mu.Unlock()

	ch := core.PublicChannel(m.ChannelID, "")
	if m.GuildID == "" {
		ch = core.PrivateChannel(user)
	}

	return &Message{
		ID:      m.ID,
		Channel: ch,
		User:    user,
		Text:    text,
		Metadata: map[string]string{
			"guild_id":   m.GuildID,
			"channel_id": m.ChannelID,
			"author_id":  m.Author.ID,
		},
	}
}
