package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

// CLIChannel implements the Channel interface for an interactive terminal.
// Every line typed is a private message from the local user.
type CLIChannel struct {
	prompt   string
	user     core.User
	in       io.Reader
	out      io.Writer
	messages chan *Message
	done     chan struct{}
	stopOnce sync.Once
	outMu    sync.Mutex
	msgID    atomic.Int64
}

// CLIConfig holds CLI channel configuration.
type CLIConfig struct {
	Prompt string    // Input prompt (default: "> ")
	User   string    // Local user name (default: $USER)
	In     io.Reader // default: os.Stdin
	Out    io.Writer // default: os.Stdout
}

// NewCLIChannel creates a new CLI channel.
func NewCLIChannel(cfg CLIConfig) *CLIChannel {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = "> "
	}
	user := strings.TrimSpace(cfg.User)
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		user = "local"
	}
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	return &CLIChannel{
		prompt:   prompt,
		user:     core.User(user),
		in:       in,
		out:      out,
		messages: make(chan *Message, runtimecfg.CLIChannelMessageBufferSize),
		done:     make(chan struct{}),
	}
}

// Name returns the channel name.
func (c *CLIChannel) Name() string {
	return "cli"
}

// Start begins reading input. The message stream closes at EOF or on
// "exit"/"quit".
func (c *CLIChannel) Start(ctx context.Context) error {
	logger.Info("cli channel started", "user", c.user)
	go c.readInput(ctx)
	return nil
}

// Stop stops delivering input. A read blocked on the terminal is abandoned.
func (c *CLIChannel) Stop() error {
	c.stopOnce.Do(func() { close(c.done) })
	logger.Info("cli channel stopped")
	return nil
}

// Send prints msg. Public messages are prefixed with their channel.
func (c *CLIChannel) Send(_ context.Context, ch core.Channel, msg core.Message) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	prefix := ""
	if ch.Visibility == core.Public {
		name := ch.Name
		if name == "" {
			name = "#" + ch.ID
		}
		prefix = "[" + name + "] "
	}
	for _, line := range msg {
		if _, err := fmt.Fprintln(c.out, prefix+line); err != nil {
			return err
		}
	}
	return nil
}

// Messages returns the incoming message channel.
func (c *CLIChannel) Messages() <-chan *Message {
	return c.messages
}

func (c *CLIChannel) readInput(ctx context.Context) {
	defer close(c.messages)

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		c.printPrompt()
		if !scanner.Scan() {
			return
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" || text == "/exit" || text == "/quit" {
			c.println("Goodbye!")
			return
		}

		msg := &Message{
			ID:       fmt.Sprintf("cli-%d", c.msgID.Add(1)),
			Channel:  core.PrivateChannel(c.user),
			User:     c.user,
			Text:     text,
			Metadata: map[string]string{},
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *CLIChannel) printPrompt() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprint(c.out, c.prompt)
}

func (c *CLIChannel) println(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintln(c.out, s)
}
