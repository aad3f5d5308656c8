// Package channel provides chat transports and routes bot replies to them.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/logger"
)

var (
	ErrNoRoute        = errors.New("no transport for destination")
	ErrUnknownChannel = errors.New("unknown transport")
)

// Message represents an incoming message from a transport.
type Message struct {
	ID       string            // Unique message ID
	Channel  core.Channel      // Where it was said; private channels carry the user as ID
	User     core.User         // Who said it
	Text     string            // Message text
	Metadata map[string]string // Transport-specific metadata
}

// Inbound converts m to the core event.
func (m *Message) Inbound() core.Inbound {
	return core.Inbound{Channel: m.Channel, User: m.User, Text: m.Text}
}

// Channel is the interface for chat transports.
type Channel interface {
	// Name returns the transport name (e.g. "telegram", "cli", "web").
	Name() string

	// Start begins listening for messages.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the transport.
	Stop() error

	// Send delivers msg to ch.
	Send(ctx context.Context, ch core.Channel, msg core.Message) error

	// Messages returns a channel for receiving incoming messages.
	Messages() <-chan *Message
}

// Manager is the registry of transports. It implements core.Transport by
// sending each reply through the transport that last carried traffic for
// the destination, falling back to the default route.
type Manager struct {
	defaultRoute string

	mu       sync.RWMutex
	channels map[string]Channel
	channel  map[string]string    // public channel id -> transport
	users    map[core.User]string // user -> transport
}

var _ core.Transport = (*Manager)(nil)

// NewManager creates a new manager. defaultRoute names the transport used
// for destinations never seen inbound; empty disables the fallback.
func NewManager(defaultRoute string) *Manager {
	return &Manager{
		defaultRoute: strings.TrimSpace(defaultRoute),
		channels:     make(map[string]Channel),
		channel:      make(map[string]string),
		users:        make(map[core.User]string),
	}
}

// Register adds a transport to the manager and logs it. Nil is silently ignored.
func (m *Manager) Register(ch Channel) {
	if ch == nil {
		return
	}
	m.mu.Lock()
	m.channels[ch.Name()] = ch
	m.mu.Unlock()
	logger.Info("channel registered", "channel", ch.Name())
}

// Get returns a transport by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Names returns the registered transport names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each iterates over all registered transports in name order.
func (m *Manager) Each(fn func(Channel)) {
	for _, name := range m.Names() {
		if ch, ok := m.Get(name); ok {
			fn(ch)
		}
	}
}

// StartAll starts every transport. The CLI starts last so its prompt is
// not interleaved with startup logs.
func (m *Manager) StartAll(ctx context.Context) error {
	names := m.Names()
	sort.SliceStable(names, func(i, j int) bool { return names[j] == "cli" && names[i] != "cli" })
	for _, name := range names {
		ch, _ := m.Get(name)
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops all registered transports.
func (m *Manager) StopAll() error {
	var errs []error
	m.Each(func(ch Channel) {
		if err := ch.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", ch.Name(), err))
		}
	})
	return errors.Join(errs...)
}

// Learn records that msg arrived through transport so replies to its
// channel and user go back the same way.
func (m *Manager) Learn(transport string, msg *Message) {
	if msg == nil || transport == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.User != "" {
		m.users[msg.User] = transport
	}
	if msg.Channel.Visibility == core.Public && msg.Channel.ID != "" {
		m.channel[msg.Channel.ID] = transport
	}
}

// Route returns the transport that serves ch.
func (m *Manager) Route(ch core.Channel) (Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var name string
	if ch.Visibility == core.Private {
		name = m.users[core.User(ch.ID)]
	} else {
		name = m.channel[ch.ID]
	}
	if name == "" {
		name = m.defaultRoute
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, ch)
	}
	t, ok := m.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, name)
	}
	return t, nil
}

// SendMessage routes msg to the transport serving ch.
func (m *Manager) SendMessage(ctx context.Context, ch core.Channel, msg core.Message) error {
	t, err := m.Route(ch)
	if err != nil {
		return err
	}
	return t.Send(ctx, ch, msg)
}

// SplitMessage splits a long message into chunks (byte-based maxLen),
// preferring newline boundaries and avoiding mid-rune splits.
func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		// Try to split at newline within the byte window.
		splitAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			splitAt = idx + 1
		}

		// Avoid splitting in the middle of a multi-byte UTF-8 character.
		for splitAt > 0 && !utf8.RuneStart(text[splitAt]) {
			splitAt--
		}
		if splitAt == 0 {
			_, size := utf8.DecodeRuneInString(text)
			splitAt = size
		}

		chunks = append(chunks, text[:splitAt])
		text = text[splitAt:]
	}

	return chunks
}
