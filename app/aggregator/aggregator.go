// Package aggregator runs one batch: read every source, detect new items and
// persist them.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/regwatch/app/database"
	"github.com/lysyi3m/regwatch/app/dates"
	"github.com/lysyi3m/regwatch/app/dedup"
	"github.com/lysyi3m/regwatch/app/feed"
	"github.com/lysyi3m/regwatch/app/metrics"
	"github.com/lysyi3m/regwatch/app/snapshot"
	"golang.org/x/sync/errgroup"
)

// SourceReader reads a single URL of a source. Failures yield an empty list.
type SourceReader interface {
	Read(ctx context.Context, cfg *feed.Config, url string) []feed.Item
}

type Sink interface {
	InsertNotifications(ctx context.Context, notifications []database.Notification) error
}

type RunOptions struct {
	// Window drops new items published outside it. Nil keeps everything.
	Window *dedup.Window
	// Trailing, when positive, keeps only items published in the last
	// Trailing up to the batch instant. It takes precedence over Window.
	Trailing time.Duration
	// Stateless skips snapshots and the sink: every read item is returned
	// and nothing is persisted.
	Stateless bool
}

type SourceResult struct {
	Name string `json:"name"`
	Read int    `json:"read"`
	New  int    `json:"new"`
}

type BatchResult struct {
	GeneratedAt time.Time
	Items       []database.Notification
	Sources     []SourceResult
}

type Aggregator struct {
	reader     SourceReader
	store      snapshot.Store
	sink       Sink
	normalizer *dates.Normalizer
	filterer   *feed.Filterer
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

func New(reader SourceReader, store snapshot.Store, sink Sink, normalizer *dates.Normalizer, logger *slog.Logger) *Aggregator {
	if normalizer == nil {
		normalizer = dates.NewNormalizer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		reader:     reader,
		store:      store,
		sink:       sink,
		normalizer: normalizer,
		filterer:   feed.NewFilterer(),
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

func (a *Aggregator) Run(ctx context.Context, sources []*feed.Config, opts RunOptions) (*BatchResult, error) {
	start := time.Now()
	mode := "stateful"
	if opts.Stateless {
		mode = "stateless"
	}

	result, err := a.run(ctx, sources, opts)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordBatch(mode, metrics.StatusError, duration.Seconds())
		a.logger.Error("Batch failed", "mode", mode, "duration", duration, "error", err)
		return nil, err
	}

	metrics.RecordBatch(mode, metrics.StatusSuccess, duration.Seconds())
	a.logger.Info("Batch completed",
		"mode", mode,
		"duration", duration,
		"sources", len(sources),
		"new", len(result.Items))

	return result, nil
}

func (a *Aggregator) run(ctx context.Context, sources []*feed.Config, opts RunOptions) (*BatchResult, error) {
	reads := a.readAll(ctx, sources)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	now := a.now().UTC()
	result := &BatchResult{
		GeneratedAt: now,
		Items:       []database.Notification{},
		Sources:     make([]SourceResult, 0, len(sources)),
	}

	// Trailing windows end at the same instant unparseable dates fall back
	// to, so those items stay inside.
	window := opts.Window
	if opts.Trailing > 0 {
		w := dedup.Trailing(opts.Trailing, now)
		window = &w
	}

	// Sources sharing a key see each other's output within the batch.
	pending := make(map[string][]feed.Item)
	var pendingOrder []string

	for i, src := range sources {
		items := a.filterer.Run(reads[i], src)
		fresh := items

		if !opts.Stateless {
			key := src.Key()

			previous, ok := pending[key]
			if !ok {
				var err error
				previous, err = a.store.Get(ctx, key)
				if err != nil {
					return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
				}
			}

			detectOpts, err := detectOptions(src)
			if err != nil {
				a.logger.Warn("Skipping source with invalid dedup settings", "source", src.Name, "error", err)
				continue
			}

			detected, err := dedup.Detect(items, previous, detectOpts)
			if err != nil {
				a.logger.Warn("Skipping source after detection error", "source", src.Name, "error", err)
				continue
			}

			if detected.Write {
				if _, seen := pending[key]; !seen {
					pendingOrder = append(pendingOrder, key)
				}
				pending[key] = detected.Snapshot
			}
			fresh = detected.New
		}

		if window != nil {
			fresh = dedup.FilterWindow(fresh, *window, a.normalizer, now)
		}

		for _, item := range fresh {
			result.Items = append(result.Items, a.normalize(item, now))
		}

		metrics.RecordNewItems(src.DisplayName(), len(fresh))
		result.Sources = append(result.Sources, SourceResult{Name: src.Name, Read: len(items), New: len(fresh)})
	}

	if opts.Stateless {
		return result, nil
	}

	if len(result.Items) > 0 {
		if err := a.sink.InsertNotifications(ctx, result.Items); err != nil {
			return nil, fmt.Errorf("failed to store notifications: %w", err)
		}
	}

	for _, key := range pendingOrder {
		if err := a.store.Put(ctx, key, pending[key]); err != nil {
			return nil, fmt.Errorf("failed to store snapshot %s: %w", key, err)
		}
	}

	return result, nil
}

// readAll reads every URL of every source concurrently and returns, per
// source, the concatenation of its URL reads in configured order.
func (a *Aggregator) readAll(ctx context.Context, sources []*feed.Config) [][]feed.Item {
	perURL := make([][][]feed.Item, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		perURL[i] = make([][]feed.Item, len(src.URLs))
		for j, url := range src.URLs {
			g.Go(func() error {
				perURL[i][j] = a.reader.Read(gctx, src, url)
				return nil
			})
		}
	}
	_ = g.Wait()

	reads := make([][]feed.Item, len(sources))
	for i := range sources {
		var items []feed.Item
		for _, urlItems := range perURL[i] {
			items = append(items, urlItems...)
		}
		reads[i] = items
	}
	return reads
}

func (a *Aggregator) normalize(item feed.Item, now time.Time) database.Notification {
	pubDateUTC, err := a.normalizer.Normalize(item.PubDate)
	if err != nil {
		a.logger.Debug("Using batch time for unparseable date", "source", item.Source, "pub_date", item.PubDate)
		pubDateUTC = now
	}

	return database.Notification{
		ID:             a.newID(),
		Source:         item.Source,
		Title:          item.Title,
		Link:           item.Link,
		PubDate:        item.PubDate,
		PubDateUTC:     pubDateUTC,
		ContentSnippet: item.ContentSnippet,
		CreatedAt:      now,
	}
}

func detectOptions(src *feed.Config) (dedup.Options, error) {
	policy := dedup.Replace
	if src.Policy != "" {
		p, err := dedup.ParsePolicy(src.Policy)
		if err != nil {
			return dedup.Options{}, err
		}
		policy = p
	}

	key := dedup.DefaultKey
	if len(src.Identity) > 0 {
		k, err := dedup.ParseKey(src.Identity)
		if err != nil {
			return dedup.Options{}, err
		}
		key = k
	}

	return dedup.Options{Policy: policy, Key: key}, nil
}
