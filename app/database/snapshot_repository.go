package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// GetSnapshot returns the stored JSON for key, or nil when none exists.
func (r *SnapshotRepo) GetSnapshot(ctx context.Context, key string) ([]byte, error) {
	var items string
	err := r.db.QueryRowContext(ctx, `SELECT items FROM snapshots WHERE key = ?`, key).Scan(&items)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return []byte(items), nil
}

func (r *SnapshotRepo) PutSnapshot(ctx context.Context, key string, items []byte, itemCount int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, items, item_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			items = excluded.items,
			item_count = excluded.item_count,
			updated_at = excluded.updated_at
	`, key, string(items), itemCount, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to put snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, item_count, updated_at FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var updatedAt string
		if err := rows.Scan(&info.Key, &info.ItemCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if info.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at of %s: %w", info.Key, err)
		}
		snapshots = append(snapshots, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}
