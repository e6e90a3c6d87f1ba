package probes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/queue"
)

// statsCollector recomputes and publishes queue statistics.
type statsCollector interface {
	Collect(ctx context.Context) error
}

// MetricsHandler publishes queue occupancy gauges on its own schedule, so the
// stats keep flowing even when the scheduler process is down.
type MetricsHandler struct {
	collector statsCollector
}

var _ core.Handler = (*MetricsHandler)(nil)

// NewMetricsHandler creates the metrics job handler.
func NewMetricsHandler(collector statsCollector) *MetricsHandler {
	return &MetricsHandler{collector: collector}
}

// Type implements core.Handler.
func (h *MetricsHandler) Type() domain.JobType { return domain.JobTypeMetrics }

// Run implements core.Handler.
func (h *MetricsHandler) Run(ctx context.Context, _ core.Job) error {
	return h.collector.Collect(ctx)
}

// finishedJobDeleter prunes finished queue jobs.
type finishedJobDeleter interface {
	DeleteFinishedJobs(ctx context.Context, p queue.DeleteFinishedParams) (int64, error)
}

// CleanupHandler prunes finished queue jobs older than the retention window.
type CleanupHandler struct {
	deleter   finishedJobDeleter
	retention time.Duration
	batchSize int
	logger    *slog.Logger
}

var _ core.Handler = (*CleanupHandler)(nil)

// NewCleanupHandler creates the metrics_cleanup job handler.
func NewCleanupHandler(deleter finishedJobDeleter, retention time.Duration, batchSize int, logger *slog.Logger) *CleanupHandler {
	if retention <= 0 {
		retention = 168 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupHandler{deleter: deleter, retention: retention, batchSize: batchSize, logger: logger}
}

// Type implements core.Handler.
func (h *CleanupHandler) Type() domain.JobType { return domain.JobTypeMetricsCleanup }

// Run implements core.Handler.
func (h *CleanupHandler) Run(ctx context.Context, _ core.Job) error {
	deleted, err := h.deleter.DeleteFinishedJobs(ctx, queue.DeleteFinishedParams{
		MaxAge:    h.retention,
		BatchSize: h.batchSize,
	})
	if err != nil {
		return fmt.Errorf("prune finished queue jobs: %w", err)
	}
	if deleted > 0 {
		h.logger.InfoContext(ctx, "pruned finished queue jobs",
			"deleted", deleted, "retention", h.retention.String())
	}
	return nil
}

// providerRefresher reloads the cached provider set.
type providerRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// RefreshHandler reloads the active provider set into the cache so reconcile
// ticks read a warm copy.
type RefreshHandler struct {
	refresher providerRefresher
	logger    *slog.Logger
}

var _ core.Handler = (*RefreshHandler)(nil)

// NewRefreshHandler creates the providers_refresh job handler.
func NewRefreshHandler(refresher providerRefresher, logger *slog.Logger) *RefreshHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshHandler{refresher: refresher, logger: logger}
}

// Type implements core.Handler.
func (h *RefreshHandler) Type() domain.JobType { return domain.JobTypeProvidersRefresh }

// Run implements core.Handler.
func (h *RefreshHandler) Run(ctx context.Context, _ core.Job) error {
	count, err := h.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "refreshed provider cache", "providers", count)
	return nil
}
