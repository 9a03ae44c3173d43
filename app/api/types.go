package api

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/regwatch/app/aggregator"
	"github.com/lysyi3m/regwatch/app/database"
	"github.com/lysyi3m/regwatch/app/feed"
	"github.com/lysyi3m/regwatch/app/snapshot"
	"github.com/lysyi3m/regwatch/app/summarizer"
)

type BatchRunner interface {
	Run(ctx context.Context, sources []*feed.Config, opts aggregator.RunOptions) (*aggregator.BatchResult, error)
}

type SourceCatalog interface {
	GetConfig(name string) (*feed.Config, error)
	GetConfigs() map[string]*feed.Config
	GetEnabledConfigs() []*feed.Config
	GetConfigCount() int
	LoadConfig(name string) (*feed.Config, error)
}

type ContractSummarizer interface {
	SummarizePDF(ctx context.Context, data []byte) (summarizer.ContractFields, error)
}

type GeneratorInterface interface {
	Run(title string, items []database.Notification) (string, error)
}

var (
	_ BatchRunner        = (*aggregator.Aggregator)(nil)
	_ SourceCatalog      = (*feed.ConfigCache)(nil)
	_ ContractSummarizer = (*summarizer.Summarizer)(nil)
	_ GeneratorInterface = (*feed.Generator)(nil)
)

type Handler struct {
	runner        BatchRunner
	catalog       SourceCatalog
	notifications database.NotificationRepository
	snapshots     snapshot.Store
	summarizer    ContractSummarizer
	generator     GeneratorInterface
	version       string
	maxUploadSize int64
	defaultWindow time.Duration
	batchGuard    *sync.Mutex
}

// Alert is the JSON form of a detected or stored notification.
type Alert struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Title          string    `json:"title"`
	Link           string    `json:"link"`
	PubDate        string    `json:"pubDate"`
	PubDateUTC     time.Time `json:"pubDateUtc"`
	ContentSnippet string    `json:"contentSnippet"`
}

type BatchResponse struct {
	Success     bool                      `json:"success"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	Count       int                       `json:"count"`
	Alerts      []Alert                   `json:"alerts"`
	Sources     []aggregator.SourceResult `json:"sources,omitempty"`
}

type SourceInfo struct {
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Kind        feed.Kind      `json:"kind"`
	URLs        []string       `json:"urls"`
	Policy      string         `json:"policy"`
	Identity    []string       `json:"identity"`
	SnapshotKey string         `json:"snapshot_key"`
	Enabled     bool           `json:"enabled"`
	Render      bool           `json:"render"`
	MaxItems    int            `json:"max_items"`
	Timeout     string         `json:"timeout"`
	Filters     int            `json:"filters"`
	Snapshot    *snapshot.Info `json:"snapshot,omitempty"`
}

func toAlerts(notifications []database.Notification) []Alert {
	alerts := make([]Alert, 0, len(notifications))
	for _, n := range notifications {
		alerts = append(alerts, Alert{
			ID:             n.ID,
			Source:         n.Source,
			Title:          n.Title,
			Link:           n.Link,
			PubDate:        n.PubDate,
			PubDateUTC:     n.PubDateUTC,
			ContentSnippet: n.ContentSnippet,
		})
	}
	return alerts
}

func toSourceInfo(cfg *feed.Config) SourceInfo {
	return SourceInfo{
		Name:        cfg.Name,
		Title:       cfg.DisplayName(),
		Kind:        cfg.Kind,
		URLs:        cfg.URLs,
		Policy:      cfg.Policy,
		Identity:    cfg.Identity,
		SnapshotKey: cfg.Key(),
		Enabled:     cfg.Settings.Enabled,
		Render:      cfg.Settings.Render,
		MaxItems:    cfg.Settings.MaxItems,
		Timeout:     (time.Duration(cfg.Settings.Timeout) * time.Second).String(),
		Filters:     len(cfg.Filters),
	}
}
