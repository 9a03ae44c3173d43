package database

import (
	"context"
)

type NotificationRepository interface {
	InsertNotifications(ctx context.Context, notifications []Notification) error
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]Notification, error)
	GetNotificationCount(ctx context.Context) (int, error)
}

type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, key string) ([]byte, error)
	PutSnapshot(ctx context.Context, key string, items []byte, itemCount int) error
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
}

var _ NotificationRepository = (*NotificationRepo)(nil)
var _ SnapshotRepository = (*SnapshotRepo)(nil)
