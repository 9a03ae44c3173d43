package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ReloadSourcesTask struct {
	Task
	catalog SourceCatalog
}

func NewReloadSourcesTask(catalog SourceCatalog) *ReloadSourcesTask {
	return &ReloadSourcesTask{
		Task:    NewTask(TaskTypeReloadSources, "all"),
		catalog: catalog,
	}
}

func (t *ReloadSourcesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.catalog.Run(); err != nil {
		return fmt.Errorf("failed to reload source configs: %w", err)
	}

	slog.Info("Task completed",
		"type", "ReloadSources",
		"duration", t.GetDuration(),
		"enabled", len(t.catalog.GetEnabledConfigs()))

	return nil
}
