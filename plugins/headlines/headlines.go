// Package headlines scrapes a news page on every reload sweep and answers
// !news with the latest headlines.
package headlines

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
	"github.com/linanwx/hypebot/store"
	"gopkg.in/yaml.v3"
)

const (
	storeKey    = "headlines"
	snapshotKey = "snapshot"
	emptyReply  = "No headlines yet."
)

// Fetcher loads HTML documents.
type Fetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Replier sends chat replies.
type Replier interface {
	Reply(ctx context.Context, dest core.Destination, msg core.Message, opts ...core.ReplyOption)
}

// Config selects the page and the elements holding headlines.
type Config struct {
	URL      string
	Selector string
	MaxItems int
}

// Snapshot is the last successful scrape.
type Snapshot struct {
	Source    string    `yaml:"source"`
	FetchedAt time.Time `yaml:"fetched_at"`
	Items     []string  `yaml:"items"`
}

type Headlines struct {
	bot     Replier
	fetcher Fetcher
	store   store.Store
	cfg     Config
	now     func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

func New(bot Replier, fetcher Fetcher, st store.Store, cfg Config) *Headlines {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Selector = strings.TrimSpace(cfg.Selector)
	if cfg.Selector == "" {
		cfg.Selector = "h2"
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = runtimecfg.HeadlinesDefaultMaxItems
	}
	return &Headlines{bot: bot, fetcher: fetcher, store: st, cfg: cfg, now: time.Now}
}

// Load restores the last persisted snapshot, if any.
func (h *Headlines) Load(ctx context.Context) error {
	raw, err := h.store.GetValue(ctx, storeKey, snapshotKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap Snapshot
	if err := yaml.Unmarshal([]byte(raw), &snap); err != nil {
		return fmt.Errorf("decode headlines snapshot: %w", err)
	}
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()
	return nil
}

// ReloadData scrapes the configured page. On failure the previous
// headlines stay in place.
func (h *Headlines) ReloadData(ctx context.Context) error {
	if h.cfg.URL == "" {
		return nil
	}
	doc, err := h.fetcher.FetchDocument(ctx, h.cfg.URL)
	if err != nil {
		return err
	}

	var items []string
	seen := make(map[string]bool)
	doc.Find(h.cfg.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text != "" && !seen[text] {
			seen[text] = true
			items = append(items, text)
		}
		return len(items) < h.cfg.MaxItems
	})
	if len(items) == 0 {
		return fmt.Errorf("no elements matched %q on %s", h.cfg.Selector, h.cfg.URL)
	}

	snap := Snapshot{Source: h.cfg.URL, FetchedAt: h.now().UTC(), Items: items}
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode headlines snapshot: %w", err)
	}
	if err := h.store.SetValue(ctx, storeKey, snapshotKey, string(data)); err != nil {
		logger.Warn("failed to persist headlines snapshot", "err", err)
	}
	logger.Info("headlines reloaded", "source", h.cfg.URL, "items", len(items))
	return nil
}

// Current returns the loaded snapshot.
func (h *Headlines) Current() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := h.snap
	snap.Items = append([]string(nil), h.snap.Items...)
	return snap
}

func (h *Headlines) Handle(ctx context.Context, msg core.Inbound) bool {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "!news") {
		return false
	}

	snap := h.Current()
	if len(snap.Items) == 0 {
		h.bot.Reply(ctx, msg.Channel, core.Text(emptyReply), core.WithDefault(msg.User))
		return true
	}

	lines := make([]string, 0, len(snap.Items))
	for i, item := range snap.Items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	h.bot.Reply(ctx, msg.Channel, core.Flatten(lines),
		core.WithDefault(msg.User),
		core.LimitLines(0),
		core.OverflowTo(msg.User),
	)
	return true
}
