package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

// WebChannel implements the Channel interface for browser chat over a
// websocket. Everyone connected shares the public lobby; private messages
// reach every connection of one user.
type WebChannel struct {
	addr     string
	health   func() any
	messages chan *Message
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	server   *http.Server

	mu    sync.RWMutex
	peers map[*wsClient]struct{}

	msgID atomic.Int64
}

type wsClient struct {
	id   string
	user core.User
	conn *websocket.Conn
	mu   sync.Mutex
}

type webInboundMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Private bool   `json:"private,omitempty"`
}

type webOutboundMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WebConfig holds web channel configuration.
type WebConfig struct {
	Addr   string
	Health func() any // body of /api/health; nil disables the endpoint
}

// NewWebChannel creates a new web channel.
func NewWebChannel(cfg WebConfig) *WebChannel {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = runtimecfg.WebChannelDefaultAddr
	}
	return &WebChannel{
		addr:     addr,
		health:   cfg.Health,
		messages: make(chan *Message, runtimecfg.WebChannelMessageBufferSize),
		done:     make(chan struct{}),
		peers:    make(map[*wsClient]struct{}),
	}
}

// Name returns the channel name.
func (w *WebChannel) Name() string { return "web" }

// Handler returns the HTTP routes of the channel.
func (w *WebChannel) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", http.HandlerFunc(w.handleWS))
	if w.health != nil {
		mux.Handle("/api/health", http.HandlerFunc(w.handleHealth))
	}
	return mux
}

// Start starts the web server.
func (w *WebChannel) Start(_ context.Context) error {
	w.server = &http.Server{
		Addr:    w.addr,
		Handler: w.Handler(),
	}

	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("web channel listen failed on %s: %w", w.addr, err)
	}

	bindAddr := ln.Addr().String()
	logger.Info("web channel started", "addr", bindAddr, "url", webURLHintFromAddr(bindAddr))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if serveErr := w.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("web channel server error", "err", serveErr)
		}
	}()

	return nil
}

// Stop gracefully stops the channel.
func (w *WebChannel) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		clients := make([]*wsClient, 0, len(w.peers))
		for client := range w.peers {
			clients = append(clients, client)
		}
		w.peers = make(map[*wsClient]struct{})
		w.mu.Unlock()

		for _, client := range clients {
			_ = client.conn.Close(websocket.StatusNormalClosure, "shutdown")
		}

		if w.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), runtimecfg.WebChannelShutdownTimeout)
			defer cancel()
			if err := w.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("web channel shutdown error", "err", err)
			}
		}

		w.wg.Wait()
		close(w.messages)
		logger.Info("web channel stopped")
	})
	return nil
}

// Send delivers msg to the lobby or to one user's connections.
func (w *WebChannel) Send(ctx context.Context, ch core.Channel, msg core.Message) error {
	var targets []*wsClient
	label := ch.ID
	w.mu.RLock()
	for client := range w.peers {
		if ch.Visibility == core.Public || client.user == core.User(ch.ID) {
			targets = append(targets, client)
		}
	}
	w.mu.RUnlock()

	if ch.Visibility == core.Private {
		label = "private"
		if len(targets) == 0 {
			return fmt.Errorf("web user not connected: %s", ch.ID)
		}
	}

	payload := webOutboundMessage{Type: "message", Channel: label, Text: strings.Join(msg, "\n")}
	var errs []error
	for _, client := range targets {
		if err := client.write(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("websocket send to %s failed: %w", client.user, err))
		}
	}
	return errors.Join(errs...)
}

// Messages returns the incoming message channel.
func (w *WebChannel) Messages() <-chan *Message { return w.messages }

func (c *wsClient) write(ctx context.Context, payload webOutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsjson.Write(ctx, c.conn, payload)
}

func (w *WebChannel) handleWS(rw http.ResponseWriter, r *http.Request) {
	user := sanitizeUserName(r.URL.Query().Get("user"))
	if user == "" {
		http.Error(rw, "missing or invalid user", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(rw, r, nil)
	if err != nil {
		return
	}

	client := &wsClient{id: uuid.NewString(), user: core.User(user), conn: conn}
	w.mu.Lock()
	w.peers[client] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		delete(w.peers, client)
		w.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var req webInboundMessage
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			return
		}

		reqType := strings.TrimSpace(req.Type)
		if reqType == "" {
			reqType = "message"
		}
		if reqType != "message" {
			_ = client.write(r.Context(), webOutboundMessage{Type: "error", Error: "unsupported message type"})
			continue
		}

		text := strings.TrimSpace(req.Text)
		if text == "" {
			continue
		}

		ch := core.PublicChannel(runtimecfg.WebLobbyChannelID, "#"+runtimecfg.WebLobbyChannelID)
		if req.Private {
			ch = core.PrivateChannel(client.user)
		}
		msg := &Message{
			ID:       fmt.Sprintf("web-%d", w.msgID.Add(1)),
			Channel:  ch,
			User:     client.user,
			Text:     text,
			Metadata: map[string]string{"session_id": client.id},
		}

		select {
		case w.messages <- msg:
		case <-w.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (w *WebChannel) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(w.health()); err != nil {
		logger.Warn("web health encode failed", "err", err)
	}
}

func sanitizeUserName(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > 64 {
		return ""
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			continue
		}
		return ""
	}
	return s
}

func webURLHintFromAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}

	host = strings.TrimSpace(host)
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}
