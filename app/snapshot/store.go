// Package snapshot persists the last observed item list per source key.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/regwatch/app/feed"
)

// Store reads and replaces whole snapshots. Get returns an empty list for
// unknown keys.
type Store interface {
	Get(ctx context.Context, key string) ([]feed.Item, error)
	Put(ctx context.Context, key string, items []feed.Item) error
	List(ctx context.Context) ([]Info, error)
}

type Info struct {
	Key       string    `json:"key"`
	ItemCount int       `json:"item_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

func encode(items []feed.Item) ([]byte, error) {
	if items == nil {
		items = []feed.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]feed.Item, error) {
	if len(data) == 0 {
		return []feed.Item{}, nil
	}
	var items []feed.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if items == nil {
		items = []feed.Item{}
	}
	return items, nil
}
