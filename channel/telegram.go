package channel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

// TelegramChannel implements the Channel interface for Telegram. Group
// chats are public channels; one-to-one chats are private.
type TelegramChannel struct {
	token      string
	allowedIDs map[int64]bool // Allowed user/chat IDs (empty = allow all)
	bot        *tgbotapi.BotAPI
	messages   chan *Message
	done       chan struct{}
	wg         sync.WaitGroup

	mu    sync.RWMutex
	chats map[core.User]int64 // private chat id per user
}

// TelegramConfig holds Telegram channel configuration.
type TelegramConfig struct {
	Token      string  // Bot token from BotFather
	AllowedIDs []int64 // Allowed user/chat IDs (empty = allow all)
}

// NewTelegramChannel creates a new Telegram channel.
func NewTelegramChannel(cfg TelegramConfig) *TelegramChannel {
	allowedIDs := make(map[int64]bool)
	for _, id := range cfg.AllowedIDs {
		allowedIDs[id] = true
	}

	return &TelegramChannel{
		token:      cfg.Token,
		allowedIDs: allowedIDs,
		messages:   make(chan *Message, runtimecfg.TelegramChannelMessageBufferSize),
		done:       make(chan struct{}),
		chats:      make(map[core.User]int64),
	}
}

// Name returns the channel name.
func (t *TelegramChannel) Name() string {
	return "telegram"
}

// Start connects and begins long-polling for updates.
func (t *TelegramChannel) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram connection failed: %w", err)
	}
	t.bot = bot
	logger.Info("telegram bot connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = runtimecfg.TelegramUpdateTimeoutSeconds
	updates := bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go t.pollUpdates(ctx, updates)

	logger.Info("telegram channel started")
	return nil
}

// Stop gracefully shuts down the channel.
func (t *TelegramChannel) Stop() error {
	close(t.done)
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	t.wg.Wait()
	close(t.messages)
	logger.Info("telegram channel stopped")
	return nil
}

// Send delivers msg, split at Telegram's message size limit.
func (t *TelegramChannel) Send(_ context.Context, ch core.Channel, msg core.Message) error {
	if t.bot == nil {
		return fmt.Errorf("telegram channel not started")
	}
	chatID, err := t.chatID(ch)
	if err != nil {
		return err
	}

	for _, chunk := range SplitMessage(strings.Join(msg, "\n"), runtimecfg.TelegramMaxMessageLength) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send error: %w", err)
		}
	}
	return nil
}

// Messages returns the incoming message channel.
func (t *TelegramChannel) Messages() <-chan *Message {
	return t.messages
}

func (t *TelegramChannel) chatID(ch core.Channel) (int64, error) {
	if ch.Visibility == core.Private {
		t.mu.RLock()
		id, ok := t.chats[core.User(ch.ID)]
		t.mu.RUnlock()
		if ok {
			return id, nil
		}
	}
	id, err := strconv.ParseInt(ch.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: no telegram chat for %s", ErrNoRoute, ch)
	}
	return id, nil
}

func (t *TelegramChannel) pollUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer t.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := t.convertUpdate(update)
			if msg == nil {
				continue
			}
			select {
			case t.messages <- msg:
			default:
				logger.Warn("telegram message buffer full, dropping message")
			}
		}
	}
}

// convertUpdate maps a Telegram update to a Message, or nil when the update
// carries no text or comes from a sender that is not allowed.
func (t *TelegramChannel) convertUpdate(update tgbotapi.Update) *Message {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil
	}
	chat := msg.Chat
	from := msg.From

	if len(t.allowedIDs) > 0 && !t.allowedIDs[chat.ID] && !t.allowedIDs[from.ID] {
		logger.Warn("telegram message from unauthorized user",
			"userID", from.ID,
			"chatID", chat.ID,
			"username", from.UserName,
		)
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = strings.TrimSpace(msg.Caption)
	}
	if text == "" {
		return nil
	}

	user := core.User(from.UserName)
	if user == "" {
		user = core.User(strconv.FormatInt(from.ID, 10))
	}

	t.mu.Lock()
	t.chats[user] = from.ID
	t.mu.Unlock()

	var ch core.Channel
	if chat.IsPrivate() {
		ch = core.PrivateChannel(user)
	} else {
		ch = core.PublicChannel(strconv.FormatInt(chat.ID, 10), chat.Title)
	}

	return &Message{
		ID:      strconv.Itoa(msg.MessageID),
		Channel: ch,
		User:    user,
		Text:    text,
		Metadata: map[string]string{
			"chat_id":    strconv.FormatInt(chat.ID, 10),
			"chat_type":  chat.Type,
			"first_name": from.FirstName,
			"last_name":  from.LastName,
		},
	}
}
