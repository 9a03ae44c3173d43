package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/regwatch/app/aggregator"
	"github.com/lysyi3m/regwatch/app/database"
	"github.com/lysyi3m/regwatch/app/dedup"
	"github.com/lysyi3m/regwatch/app/snapshot"
	"github.com/lysyi3m/regwatch/app/summarizer"
)

const (
	defaultTimeRange     = 24 * time.Hour
	defaultMaxUploadSize = 20 << 20
	feedTitle            = "RegWatch Notifications"
)

// NewHandler wires the HTTP handlers. summ may be nil, which disables
// contract extraction.
func NewHandler(runner BatchRunner, catalog SourceCatalog, notifications database.NotificationRepository,
	snapshots snapshot.Store, summ ContractSummarizer, generator GeneratorInterface, version string) *Handler {
	return &Handler{
		runner:        runner,
		catalog:       catalog,
		notifications: notifications,
		snapshots:     snapshots,
		summarizer:    summ,
		generator:     generator,
		version:       version,
		maxUploadSize: defaultMaxUploadSize,
		defaultWindow: defaultTimeRange,
	}
}

// SetDefaultWindow sets the trailing window /fetch-alerts uses when the
// request names none. Non-positive values are ignored.
func (h *Handler) SetDefaultWindow(d time.Duration) {
	if d > 0 {
		h.defaultWindow = d
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if count, err := h.notifications.GetNotificationCount(c.Request.Context()); err == nil {
		health["notifications"] = count
	} else {
		slog.Warn("Database error", "operation", "count_notifications", "error", err)
	}

	health["loaded_configurations"] = h.catalog.GetConfigCount()
	health["enabled_sources"] = len(h.catalog.GetEnabledConfigs())

	c.JSON(http.StatusOK, health)
}

// SetBatchGuard makes stateful batches share guard with background batches.
// A request that finds it held gets 409.
func (h *Handler) SetBatchGuard(guard *sync.Mutex) {
	h.batchGuard = guard
}

// RunBatch reads every enabled source, persists new items and returns them.
func (h *Handler) RunBatch(c *gin.Context) {
	if h.batchGuard != nil {
		if !h.batchGuard.TryLock() {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "A batch is already running",
			})
			return
		}
		defer h.batchGuard.Unlock()
	}

	opts := aggregator.RunOptions{}
	if c.Query("timeRange") != "" {
		d, err := parseTimeRange(c.Query("timeRange"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Trailing = d
	}

	h.runBatch(c, opts)
}

// FetchAlerts returns everything published inside the requested window
// without touching snapshots or stored notifications.
func (h *Handler) FetchAlerts(c *gin.Context) {
	opts, err := requestWindow(c, h.defaultWindow)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts.Stateless = true

	h.runBatch(c, opts)
}

func (h *Handler) runBatch(c *gin.Context, opts aggregator.RunOptions) {
	sources := h.catalog.GetEnabledConfigs()

	result, err := h.runner.Run(c.Request.Context(), sources, opts)
	if err != nil {
		slog.Error("Batch failed", "stateless", opts.Stateless, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "An error occurred while fetching alerts",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, BatchResponse{
		Success:     true,
		GeneratedAt: result.GeneratedAt,
		Count:       len(result.Items),
		Alerts:      toAlerts(result.Items),
		Sources:     result.Sources,
	})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	filter, err := notificationFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": toAlerts(notifications),
		"count":         len(notifications),
	})
}

func (h *Handler) GetNotificationsRSS(c *gin.Context) {
	filter, err := notificationFilter(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_notifications", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(feedTitle, notifications)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(notifications)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) ExtractContract(c *gin.Context) {
	if h.summarizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Contract extraction disabled (OPENAI_API_KEY not set)"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}

	fields, err := h.summarizer.SummarizePDF(c.Request.Context(), data)
	if err != nil {
		slog.Error("Contract extraction failed", "file", fileHeader.Filename, "error", err)

		status := http.StatusBadGateway
		switch {
		case errors.Is(err, summarizer.ErrInvalidPDF):
			status = http.StatusBadRequest
		case errors.Is(err, summarizer.ErrNoText):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	slog.Info("Contract extracted", "file", fileHeader.Filename, "parties", len(fields.Parties))
	c.JSON(http.StatusOK, fields)
}

func (h *Handler) ListSources(c *gin.Context) {
	configs := h.catalog.GetConfigs()

	snapshots := map[string]snapshot.Info{}
	if infos, err := h.snapshots.List(c.Request.Context()); err == nil {
		for _, info := range infos {
			snapshots[info.Key] = info
		}
	} else {
		slog.Warn("Failed to list snapshots", "error", err)
	}

	sources := make([]SourceInfo, 0, len(configs))
	for _, cfg := range configs {
		info := toSourceInfo(cfg)
		if snap, ok := snapshots[info.SnapshotKey]; ok {
			info.Snapshot = &snap
		}
		sources = append(sources, info)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) ReloadSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	if _, err := h.catalog.GetConfig(name); err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	cfg, err := h.catalog.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded successfully",
		"source":  toSourceInfo(cfg),
	})
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	infos, err := h.snapshots.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list snapshots", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Snapshot store error"})
		return
	}
	if infos == nil {
		infos = []snapshot.Info{}
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshots": infos,
		"total":     len(infos),
	})
}

// parseTimeRange accepts Go durations ("90m", "24h") or a bare number of hours.
func parseTimeRange(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)

	d, err := time.ParseDuration(raw)
	if err != nil {
		hours, convErr := strconv.ParseFloat(strings.TrimSuffix(raw, "h"), 64)
		if convErr != nil {
			return 0, fmt.Errorf("invalid timeRange %q", raw)
		}
		d = time.Duration(hours * float64(time.Hour))
	}

	if d <= 0 {
		return 0, fmt.Errorf("timeRange must be positive, got %q", raw)
	}
	return d, nil
}

// requestWindow reads startDate/endDate, falling back to a trailing
// timeRange. Trailing windows are anchored by the aggregator at batch time.
func requestWindow(c *gin.Context, fallback time.Duration) (aggregator.RunOptions, error) {
	start, err := parseDateParam(c.Query("startDate"), false)
	if err != nil {
		return aggregator.RunOptions{}, err
	}
	end, err := parseDateParam(c.Query("endDate"), true)
	if err != nil {
		return aggregator.RunOptions{}, err
	}

	if start != nil || end != nil {
		w := dedup.Window{}
		if start != nil {
			w.Start = *start
		}
		if end != nil {
			w.End = *end
		}
		if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
			return aggregator.RunOptions{}, fmt.Errorf("endDate is before startDate")
		}
		return aggregator.RunOptions{Window: &w}, nil
	}

	d := fallback
	if raw := c.Query("timeRange"); raw != "" {
		d, err = parseTimeRange(raw)
		if err != nil {
			return aggregator.RunOptions{}, err
		}
	}
	return aggregator.RunOptions{Trailing: d}, nil
}

func notificationFilter(c *gin.Context) (database.NotificationFilter, error) {
	filter := database.NotificationFilter{Source: c.Query("source")}

	var err error
	if filter.Since, err = parseDateParam(c.Query("startDate"), false); err != nil {
		return filter, err
	}
	if filter.Until, err = parseDateParam(c.Query("endDate"), true); err != nil {
		return filter, err
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}

	return filter, nil
}

// parseDateParam accepts RFC 3339 timestamps or YYYY-MM-DD dates. A bare
// date used as an upper bound covers the whole day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC 3339", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
