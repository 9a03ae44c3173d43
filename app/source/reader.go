// Package source reads announcements from feeds, listing pages and single pages.
package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/regwatch/app/feed"
	"github.com/lysyi3m/regwatch/app/metrics"
)

const defaultTimeout = 10 * time.Second

// Reader turns one source URL into items. It never fails: errors are logged
// and produce an empty list.
type Reader struct {
	fetcher   *Fetcher
	renderer  Renderer
	parser    *feed.Parser
	scraper   *feed.Scraper
	extractor *feed.ContentExtractor
	logger    *slog.Logger
}

func NewReader(fetcher *Fetcher, renderer Renderer, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		fetcher:   fetcher,
		renderer:  renderer,
		parser:    feed.NewParser(),
		scraper:   feed.NewScraper(),
		extractor: feed.NewContentExtractor(),
		logger:    logger,
	}
}

func (r *Reader) Read(ctx context.Context, cfg *feed.Config, url string) []feed.Item {
	start := time.Now()
	source := cfg.DisplayName()

	timeout := defaultTimeout
	if cfg.Settings.Timeout > 0 {
		timeout = time.Duration(cfg.Settings.Timeout) * time.Second
	}
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	items, err := r.read(readCtx, cfg, url)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordRead(source, metrics.StatusError, duration.Seconds())
		r.logger.Warn("Failed to read source", "source", source, "url", url, "duration", duration, "error", err)
		return []feed.Item{}
	}

	if cfg.Settings.MaxItems > 0 && len(items) > cfg.Settings.MaxItems {
		items = items[:cfg.Settings.MaxItems]
	}

	metrics.RecordRead(source, metrics.StatusSuccess, duration.Seconds())
	r.logger.Debug("Source read", "source", source, "url", url, "items", len(items), "duration", duration)
	return items
}

func (r *Reader) read(ctx context.Context, cfg *feed.Config, url string) ([]feed.Item, error) {
	source := cfg.DisplayName()

	switch cfg.Kind {
	case feed.KindFeed, "":
		resp, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		return r.parser.Run(resp.Body, source)

	case feed.KindScrape:
		body, err := r.fetchHTML(ctx, cfg, url)
		if err != nil {
			return nil, err
		}
		return r.scraper.Run(bytes.NewReader(body), url, source, cfg.Selectors)

	case feed.KindPage:
		body, err := r.fetchHTML(ctx, cfg, url)
		if err != nil {
			return nil, err
		}
		item, err := r.extractor.Run(body, url, source)
		if err != nil {
			return nil, err
		}
		return []feed.Item{item}, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

func (r *Reader) fetchHTML(ctx context.Context, cfg *feed.Config, url string) ([]byte, error) {
	if cfg.Settings.Render {
		if r.renderer == nil {
			return nil, fmt.Errorf("rendering requested but no renderer configured")
		}
		return r.renderer.Render(ctx, url)
	}

	resp, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return DecodeHTML(resp.Body, resp.ContentType), nil
}
