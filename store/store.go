// Package store persists plugin state as string values addressed by a key
// and a subkey.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("value not found")

// UpdateFunc computes a new value from the current one. found is false when
// no value exists yet. Returning an error aborts the update.
type UpdateFunc func(current string, found bool) (string, error)

// Store is a key/subkey value store. Implementations are safe for
// concurrent use.
type Store interface {
	GetValue(ctx context.Context, key, subkey string) (string, error)
	SetValue(ctx context.Context, key, subkey, value string) error
	// UpdateValue applies fn atomically. fn must not call back into the store.
	UpdateValue(ctx context.Context, key, subkey string, fn UpdateFunc) error
	DeleteValue(ctx context.Context, key, subkey string) error
	// Subkeys lists the subkeys stored under key, sorted.
	Subkeys(ctx context.Context, key string) ([]string, error)
	Close() error
}

const (
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// Open creates a store of the given type. path is ignored for memory stores.
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", TypeSQLite:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return OpenSQLite(path)
	case TypeMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage type %q", kind)
}

// GetJSON decodes the value at key/subkey into v.
func GetJSON(ctx context.Context, s Store, key, subkey string, v any) error {
	raw, err := s.GetValue(ctx, key, subkey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", key, subkey, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key/subkey.
func SetJSON(ctx context.Context, s Store, key, subkey string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", key, subkey, err)
	}
	return s.SetValue(ctx, key, subkey, string(data))
}
