package snapshot

import (
	"context"
	"fmt"

	"github.com/lysyi3m/regwatch/app/database"
	"github.com/lysyi3m/regwatch/app/feed"
)

var _ Store = (*DBStore)(nil)

// DBStore keeps snapshots in the snapshots table.
type DBStore struct {
	repo database.SnapshotRepository
}

func NewDBStore(repo database.SnapshotRepository) *DBStore {
	return &DBStore{repo: repo}
}

func (s *DBStore) Get(ctx context.Context, key string) ([]feed.Item, error) {
	data, err := s.repo.GetSnapshot(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	return decode(data)
}

func (s *DBStore) Put(ctx context.Context, key string, items []feed.Item) error {
	data, err := encode(items)
	if err != nil {
		return err
	}
	if err := s.repo.PutSnapshot(ctx, key, data, len(items)); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}
	return nil
}

func (s *DBStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.repo.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, Info{Key: row.Key, ItemCount: row.ItemCount, UpdatedAt: row.UpdatedAt})
	}
	return infos, nil
}
