package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/curriculum-organizer/internal/config"
	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
	"github.com/kirillkom/curriculum-organizer/internal/core/ports"
	"github.com/kirillkom/curriculum-organizer/internal/core/usecase"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/converter/pdfmd"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/dashboard/markdown"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/extractor/snippet"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/llm/offline"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/resilience"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/curriculum-organizer/internal/observability/metrics"
	"github.com/kirillkom/curriculum-organizer/internal/taxonomy"
)

const serviceName = "curriculum-organizer"

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Layout   domain.ArchiveLayout
	Taxonomy *taxonomy.Taxonomy
	Metrics  *metrics.BatchMetrics

	Batch     *usecase.BatchUseCase
	Placer    *usecase.PlaceFileUseCase
	Dashboard *usecase.DashboardUseCase

	// Ledger is nil unless POSTGRES_DSN is set.
	Ledger *postgres.ArchiveLedger

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tax, err := loadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Layout:   cfg.Layout(),
		Taxonomy: tax,
		Metrics:  metrics.NewBatchMetrics(serviceName),
	}

	storage := localfs.New()
	app.Placer = usecase.NewPlaceFileUseCase(app.Layout, storage, pdfmd.New(), usecase.PlacementOptions{
		SuffixCollisions: !cfg.OverwriteExisting,
		ConvertManuals:   cfg.ConvertManuals,
	})
	app.Dashboard = usecase.NewDashboardUseCase(tax.Courses, app.Layout, storage, markdown.New(), nil)

	batchOptions := []usecase.BatchOption{
		usecase.WithLogger(logger),
		usecase.WithMetrics(app.Metrics),
	}

	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.onClose(func() { _ = db.Close() })
		if err := app.initLedger(ctx, db); err != nil {
			app.Close()
			return nil, err
		}
		batchOptions = append(batchOptions, usecase.WithLedger(app.Ledger))
	}

	if cfg.NATSURL != "" {
		events, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.PublisherDefaults(), resilience.WithLogger(logger)),
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init archive events: %w", err)
		}
		app.onClose(events.Close)
		batchOptions = append(batchOptions, usecase.WithEventPublisher(events))
	}

	app.Batch = usecase.NewBatchUseCase(
		app.Layout,
		storage,
		snippet.New(cfg.SniffBytes, logger),
		newClassifier(cfg, tax, app.Layout, logger, app.Metrics),
		app.Placer,
		app.Dashboard,
		usecase.BatchOptions{
			Concurrency:     cfg.BatchConcurrency,
			ClassifyTimeout: cfg.ClassifierTimeout,
			DashboardPath:   cfg.Resolve(cfg.DashboardPath),
		},
		batchOptions...,
	)
	return app, nil
}

func (a *App) initLedger(ctx context.Context, db *sql.DB) error {
	ledger := postgres.NewArchiveLedger(db)
	if err := ledger.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	a.Ledger = ledger
	return nil
}

// FlushMetrics writes the metrics textfile when METRICS_TEXTFILE is set.
func (a *App) FlushMetrics() error {
	if a.Config.MetricsTextfile == "" {
		return nil
	}
	return a.Metrics.WriteTextfile(a.Config.MetricsTextfile)
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

func loadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	if path == "" {
		tax, err := taxonomy.Default()
		if err != nil {
			return nil, fmt.Errorf("load embedded taxonomy: %w", err)
		}
		return tax, nil
	}
	tax, err := taxonomy.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy %s: %w", path, err)
	}
	return tax, nil
}

func newClassifier(
	cfg config.Config,
	tax *taxonomy.Taxonomy,
	layout domain.ArchiveLayout,
	logger *slog.Logger,
	observer resilience.RetryObserver,
) ports.DocumentClassifier {
	if !cfg.GatewayEnabled() {
		logger.Warn("classifier_offline", "reason", offline.DefaultReason)
		return offline.New(offline.DefaultReason)
	}

	policy := resilience.ClassifierDefaults()
	policy.RetryMaxAttempts = cfg.RetryMaxAttempts
	policy.RetryInitialBackoff = cfg.RetryInitialBackoff
	policy.RetryMaxBackoff = cfg.RetryMaxBackoff
	policy.BreakerEnabled = cfg.BreakerEnabled
	policy.BreakerMinRequests = uint32(max(cfg.BreakerMinRequests, 1))
	policy.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	executor := resilience.NewExecutor(policy, resilience.WithLogger(logger), resilience.WithRetryObserver(observer))

	client := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, gemini.Options{
		Timeout:  cfg.ClassifierTimeout,
		Executor: executor,
		Limiter:  newLimiter(cfg.ClassifierRatePerMinute),
	})
	return gemini.NewClassifier(client, tax.Describe(layout), layout)
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
