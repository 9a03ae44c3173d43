package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type NotificationRepo struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// InsertNotifications stores the batch in a single transaction. CreatedAt is
// set here when the caller left it zero.
func (r *NotificationRepo) InsertNotifications(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notifications (
			id, source, title, link, pub_date, pub_date_utc, content_snippet, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, n := range notifications {
		createdAt := n.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err := stmt.ExecContext(ctx,
			n.ID, n.Source, n.Title, n.Link, n.PubDate,
			formatTime(n.PubDateUTC), n.ContentSnippet, formatTime(createdAt))
		if err != nil {
			return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notifications: %w", err)
	}

	return nil
}

// ListNotifications returns notifications newest first. Since and Until are inclusive.
func (r *NotificationRepo) ListNotifications(ctx context.Context, filter NotificationFilter) ([]Notification, error) {
	var conditions []string
	var args []interface{}

	if filter.Since != nil {
		conditions = append(conditions, "pub_date_utc >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	if filter.Until != nil {
		conditions = append(conditions, "pub_date_utc <= ?")
		args = append(args, formatTime(*filter.Until))
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, source, title, link, pub_date, pub_date_utc, content_snippet, created_at
		FROM notifications`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY pub_date_utc DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var pubDateUTC, createdAt string

		if err := rows.Scan(&n.ID, &n.Source, &n.Title, &n.Link, &n.PubDate, &pubDateUTC, &n.ContentSnippet, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if n.PubDateUTC, err = parseTime(pubDateUTC); err != nil {
			return nil, fmt.Errorf("failed to parse pub_date_utc of %s: %w", n.ID, err)
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at of %s: %w", n.ID, err)
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepo) GetNotificationCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
