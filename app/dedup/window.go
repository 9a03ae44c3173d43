package dedup

import (
	"time"

	"github.com/lysyi3m/regwatch/app/feed"
)

// Window is an inclusive time range. A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Trailing returns the window covering d up to now.
func Trailing(d time.Duration, now time.Time) Window {
	return Window{Start: now.Add(-d), End: now}
}

func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Normalizer is the subset of dates.Normalizer used for window filtering.
type Normalizer interface {
	NormalizeOr(raw string, fallback time.Time) time.Time
}

// FilterWindow keeps items whose publication date falls inside w.
// Unparseable dates count as now. It reads no stored state, so it can be
// applied before or after Detect.
func FilterWindow(items []feed.Item, w Window, n Normalizer, now time.Time) []feed.Item {
	kept := make([]feed.Item, 0, len(items))
	for _, item := range items {
		if w.Contains(n.NormalizeOr(item.PubDate, now)) {
			kept = append(kept, item)
		}
	}
	return kept
}
