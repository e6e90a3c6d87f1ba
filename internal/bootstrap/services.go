package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/checkernet/probed/config"
	schedadapter "github.com/checkernet/probed/internal/adapters/scheduler"
	workeradapter "github.com/checkernet/probed/internal/adapters/worker"
	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/probes"
	"github.com/checkernet/probed/internal/providers"
	"github.com/checkernet/probed/internal/queue"
	"github.com/checkernet/probed/internal/service"
)

// InitMetrics builds the StatsD client from configuration. The returned
// client is a safe no-op when metrics are disabled.
func InitMetrics(cfg config.MetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.ServiceName,
		Logger:  logger,
		GlobalTags: map[string]string{
			"service": cfg.ServiceName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init statsd client: %w", err)
	}
	return client, nil
}

// Services holds the runnable halves of the probed process.
type Services struct {
	Scheduler *schedadapter.Runner
	Worker    *workeradapter.Runner
	logger    *slog.Logger
}

// BuildServices wires the scheduler and worker runtimes per the configured
// run mode. Either half may be nil.
func BuildServices(cfg config.AppConfig, db *sql.DB, rdb redis.UniversalClient, sink statsd.Sink, logger *slog.Logger) (*Services, error) {
	providerStore := providers.NewStore(db)
	providerCache := providers.NewCache(providerStore, rdb, providers.CacheOptions{
		TTL:    cfg.Redis.ProviderCacheTTL,
		Logger: logger,
	})

	svcs := &Services{logger: logger}

	if cfg.SchedulerEnabled() {
		runner, err := schedadapter.NewRunner(schedadapter.RunnerOptions{
			DB:       db,
			Interval: cfg.Scheduler.PollInterval(),
			Logger:   logger,
			Metrics:  sink,
			Reconciler: service.ReconcilerConfig{
				DealInterval:             domain.IntervalFromRate(cfg.Scheduler.DealsPerSPPerHour),
				RetrievalInterval:        domain.IntervalFromRate(cfg.Scheduler.RetrievalsPerSPPerHour),
				MetricsInterval:          domain.IntervalFromRate(cfg.Scheduler.MetricsPerHour),
				MetricsCleanupInterval:   config.MetricsCleanupInterval,
				ProvidersRefreshInterval: config.ProvidersRefreshInterval,
				PhaseSpread:              cfg.Scheduler.PhaseSpread(),
			},
			Enqueuer: service.EnqueuerConfig{
				BatchLimit:    cfg.Scheduler.BatchLimit,
				CatchupMax:    cfg.Scheduler.CatchupMaxEnqueue,
				CatchupSpread: cfg.Scheduler.CatchupSpread(),
				JitterMax:     cfg.Scheduler.EnqueueJitter(),
			},
			Providers: providerCache,
		})
		if err != nil {
			return nil, fmt.Errorf("build scheduler: %w", err)
		}
		svcs.Scheduler = runner
	}

	if cfg.WorkerEnabled() {
		runner, err := buildWorker(cfg, db, sink, logger, providerCache)
		if err != nil {
			return nil, err
		}
		svcs.Worker = runner
	}

	return svcs, nil
}

func buildWorker(cfg config.AppConfig, db *sql.DB, sink statsd.Sink, logger *slog.Logger, cache *providers.Cache) (*workeradapter.Runner, error) {
	windows, err := cfg.Maintenance.Windows()
	if err != nil {
		return nil, fmt.Errorf("parse maintenance windows: %w", err)
	}

	gateway := probes.GatewayOptions{
		BaseURL: cfg.Worker.GatewayURL,
		Logger:  logger,
	}
	dealHandler, err := probes.NewDealHandler(gateway)
	if err != nil {
		return nil, fmt.Errorf("build deal handler: %w", err)
	}
	retrievalHandler, err := probes.NewRetrievalHandler(gateway)
	if err != nil {
		return nil, fmt.Errorf("build retrieval handler: %w", err)
	}

	queueStore := queue.NewStore(db, queue.StoreOptions{Logger: logger})
	scheduleRepo := data.NewScheduleRepo(db)
	collector := service.NewCollector(queueStore, scheduleRepo, sink, logger, nil)

	runner, err := workeradapter.NewRunner(workeradapter.RunnerOptions{
		DB:      db,
		Logger:  logger,
		Metrics: sink,
		Handlers: []core.Handler{
			dealHandler,
			retrievalHandler,
			probes.NewMetricsHandler(collector),
			probes.NewCleanupHandler(queueStore, cfg.Reaper.Retention(), cfg.Reaper.BatchSize, logger),
			probes.NewRefreshHandler(cache, logger),
		},
		Windows:        windows,
		WindowDuration: cfg.Maintenance.WindowDuration(),
		Timeouts: map[domain.JobType]time.Duration{
			domain.JobTypeDeal:      cfg.Worker.DealTimeout(),
			domain.JobTypeRetrieval: cfg.Worker.RetrievalTimeout(),
		},
		DefaultTimeout: cfg.Worker.RetrievalTimeout(),
		LockRetry:      cfg.Worker.LockRetry(),
		MutexStale:     cfg.Worker.MutexStale(),
		PollInterval:   cfg.Worker.PollInterval(),
		Concurrency:    cfg.Worker.LocalConcurrency,
		BatchSize:      cfg.Worker.BatchSize,
		Queue:          queueStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build worker: %w", err)
	}
	return runner, nil
}

// Run starts the enabled halves and blocks until the context ends or one of
// them fails.
func (s *Services) Run(ctx context.Context) error {
	if s.Scheduler == nil && s.Worker == nil {
		s.logger.InfoContext(ctx, "no services enabled, idling")
		<-ctx.Done()
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	if s.Scheduler != nil {
		group.Go(func() error {
			return s.Scheduler.Run(ctx)
		})
	}
	if s.Worker != nil {
		group.Go(func() error {
			return s.Worker.Run(ctx)
		})
	}
	return group.Wait()
}
