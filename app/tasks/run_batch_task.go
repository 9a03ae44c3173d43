package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lysyi3m/regwatch/app/aggregator"
)

type RunBatchTask struct {
	Task
	runner  BatchRunner
	catalog SourceCatalog
	guard   *sync.Mutex
}

// NewRunBatchTask builds a batch over every enabled source. Tasks sharing a
// guard never run concurrently; a task that finds the guard held is skipped.
func NewRunBatchTask(runner BatchRunner, catalog SourceCatalog, guard *sync.Mutex) *RunBatchTask {
	return &RunBatchTask{
		Task:    NewTask(TaskTypeRunBatch, "all"),
		runner:  runner,
		catalog: catalog,
		guard:   guard,
	}
}

func (t *RunBatchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.guard != nil {
		if !t.guard.TryLock() {
			slog.Info("Batch already running, skipping", "id", t.ID)
			return nil
		}
		defer t.guard.Unlock()
	}

	sources := t.catalog.GetEnabledConfigs()
	if len(sources) == 0 {
		slog.Debug("No enabled sources, skipping batch")
		return nil
	}

	result, err := t.runner.Run(ctx, sources, aggregator.RunOptions{})
	if err != nil {
		return fmt.Errorf("failed to run batch: %w", err)
	}

	slog.Info("Task completed",
		"type", "RunBatch",
		"duration", t.GetDuration(),
		"sources", len(sources),
		"new", len(result.Items))

	return nil
}
