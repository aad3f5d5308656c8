// Package inventory serves the shop catalog. The catalog lives in the store
// and is reloaded into memory on every reload sweep.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/logger"
	"github.com/linanwx/hypebot/store"
)

const catalogKey = "inventory.catalog"

// Item is one catalog entry.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int    `json:"price"`
	Stock       int    `json:"stock"`
}

func (i Item) line() string {
	s := fmt.Sprintf("%s: %d coins, %d left", i.Name, i.Price, i.Stock)
	if i.Description != "" {
		s += " (" + i.Description + ")"
	}
	return s
}

// Replier sends chat replies.
type Replier interface {
	Reply(ctx context.Context, dest core.Destination, msg core.Message, opts ...core.ReplyOption)
}

// Manager answers !inventory from the in-memory catalog.
type Manager struct {
	bot      Replier
	store    store.Store
	maxLines int

	mu      sync.RWMutex
	catalog []Item
}

// NewManager creates a manager. maxLines caps public listings; 0 keeps
// the reply default.
func NewManager(bot Replier, st store.Store, maxLines int) *Manager {
	return &Manager{bot: bot, store: st, maxLines: maxLines}
}

// ReloadData replaces the in-memory catalog with the stored one. The old
// catalog is kept if any entry fails to load.
func (m *Manager) ReloadData(ctx context.Context) error {
	names, err := m.store.Subkeys(ctx, catalogKey)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}

	items := make([]Item, 0, len(names))
	for _, name := range names {
		var item Item
		if err := store.GetJSON(ctx, m.store, catalogKey, name, &item); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("load item %s: %w", name, err)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	m.mu.Lock()
	m.catalog = items
	m.mu.Unlock()
	logger.Info("inventory catalog reloaded", "items", len(items))
	return nil
}

// Put stores item in the catalog. It becomes visible after the next reload.
func (m *Manager) Put(ctx context.Context, item Item) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return fmt.Errorf("item name is required")
	}
	return store.SetJSON(ctx, m.store, catalogKey, strings.ToLower(item.Name), item)
}

// Items returns a copy of the loaded catalog.
func (m *Manager) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Item(nil), m.catalog...)
}

func (m *Manager) Handle(ctx context.Context, msg core.Inbound) bool {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "!inventory") {
		return false
	}

	items := m.Items()
	if len(items) == 0 {
		m.bot.Reply(ctx, msg.Channel, core.Text("The shop is empty."), core.WithDefault(msg.User))
		return true
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.line())
	}
	m.bot.Reply(ctx, msg.Channel, core.Flatten(lines),
		core.WithDefault(msg.User),
		core.LimitLines(m.maxLines),
		core.OverflowTo(msg.User),
	)
	return true
}
