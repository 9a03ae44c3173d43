package database

import (
	"time"
)

type Notification struct {
	ID             string
	Source         string
	Title          string
	Link           string
	PubDate        string    // As published by the source
	PubDateUTC     time.Time // Normalized, or the batch time when unparseable
	ContentSnippet string
	CreatedAt      time.Time
}

type NotificationFilter struct {
	Since  *time.Time
	Until  *time.Time
	Source string
	Limit  int
}

type SnapshotInfo struct {
	Key       string
	ItemCount int
	UpdatedAt time.Time
}

// Fixed-width UTC layout so that stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
