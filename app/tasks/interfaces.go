package tasks

import (
	"context"

	"github.com/lysyi3m/regwatch/app/aggregator"
	"github.com/lysyi3m/regwatch/app/feed"
)

// TaskSchedulerInterface is what main uses to run background batches.
//
//	scheduler := NewScheduler(agg, configCache, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// BatchRunner is satisfied by *aggregator.Aggregator.
type BatchRunner interface {
	Run(ctx context.Context, sources []*feed.Config, opts aggregator.RunOptions) (*aggregator.BatchResult, error)
}

// SourceCatalog is satisfied by *feed.ConfigCache.
type SourceCatalog interface {
	Run() error
	GetEnabledConfigs() []*feed.Config
}
