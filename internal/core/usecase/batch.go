package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
	"github.com/kirillkom/curriculum-organizer/internal/core/ports"
)

const defaultClassifyTimeout = 60 * time.Second

type archivePlacer interface {
	ports.FilePlacer
	ConvertIfManual(ctx context.Context, file domain.ArchivedFile) (string, bool, error)
}

// breakerReporter is implemented by classifiers guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() string
}

type BatchOptions struct {
	Concurrency     int
	ClassifyTimeout time.Duration
	DashboardPath   string
}

type BatchOption func(*BatchUseCase)

func WithLedger(ledger ports.ArchiveLedger) BatchOption {
	return func(uc *BatchUseCase) { uc.ledger = ledger }
}

func WithEventPublisher(events ports.ArchiveEventPublisher) BatchOption {
	return func(uc *BatchUseCase) { uc.events = events }
}

func WithMetrics(metrics ports.BatchMetrics) BatchOption {
	return func(uc *BatchUseCase) { uc.metrics = metrics }
}

func WithLogger(logger *slog.Logger) BatchOption {
	return func(uc *BatchUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithClock(now func() time.Time) BatchOption {
	return func(uc *BatchUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func WithRunID(newRunID func() string) BatchOption {
	return func(uc *BatchUseCase) {
		if newRunID != nil {
			uc.newRunID = newRunID
		}
	}
}

// BatchUseCase drains the inbox: sniff, classify, place and convert every
// file, then rebuild the dashboard once.
type BatchUseCase struct {
	layout     domain.ArchiveLayout
	storage    ports.ArchiveStorage
	sniffer    ports.ContentSniffer
	classifier ports.DocumentClassifier
	placer     archivePlacer
	dashboard  ports.DashboardUpdater
	opts       BatchOptions

	ledger  ports.ArchiveLedger
	events  ports.ArchiveEventPublisher
	metrics ports.BatchMetrics

	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

func NewBatchUseCase(
	layout domain.ArchiveLayout,
	storage ports.ArchiveStorage,
	sniffer ports.ContentSniffer,
	classifier ports.DocumentClassifier,
	placer archivePlacer,
	dashboard ports.DashboardUpdater,
	opts BatchOptions,
	options ...BatchOption,
) *BatchUseCase {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = defaultClassifyTimeout
	}
	uc := &BatchUseCase{
		layout:     layout,
		storage:    storage,
		sniffer:    sniffer,
		classifier: classifier,
		placer:     placer,
		dashboard:  dashboard,
		opts:       opts,
		logger:     slog.Default(),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	for _, option := range options {
		option(uc)
	}
	return uc
}

func (uc *BatchUseCase) Run(ctx context.Context, inboxDir string) (domain.BatchReport, error) {
	report := domain.BatchReport{
		RunID:     uc.newRunID(),
		InboxDir:  inboxDir,
		StartedAt: uc.now(),
	}
	logger := uc.logger.With("run_id", report.RunID)

	sources, err := uc.discover(ctx, inboxDir)
	if err != nil {
		return report, fmt.Errorf("scan inbox %s: %w", inboxDir, err)
	}
	logger.Info("batch_started", "inbox", inboxDir, "files", len(sources), "concurrency", uc.opts.Concurrency)

	outcomes := make([]domain.FileOutcome, len(sources))
	var group errgroup.Group
	group.SetLimit(uc.opts.Concurrency)
	for i, source := range sources {
		group.Go(func() error {
			outcomes[i] = uc.processFile(ctx, logger, report.RunID, source)
			return nil
		})
	}
	_ = group.Wait()
	report.Outcomes = outcomes

	// The dashboard is rebuilt even when the batch was interrupted.
	summary, err := uc.dashboard.Update(context.WithoutCancel(ctx), uc.opts.DashboardPath)
	if uc.metrics != nil {
		uc.metrics.ObserveDashboard(err)
	}
	if err != nil {
		report.DashboardErr = err
		logger.Error("dashboard_update_failed", "path", uc.opts.DashboardPath, "error", err)
	} else {
		report.Dashboard = &summary
	}

	report.FinishedAt = uc.now()
	logger.Info("batch_finished",
		"placed", report.Placed(),
		"failed", report.Failed(),
		"fallbacks", report.Fallbacks(),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

func (uc *BatchUseCase) discover(ctx context.Context, inboxDir string) ([]string, error) {
	entries, err := uc.storage.ScanDir(ctx, inboxDir)
	if err != nil {
		return nil, err
	}
	sources := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name, ".") || !entry.Regular {
			continue
		}
		sources = append(sources, entry.Path)
	}
	return sources, nil
}

func (uc *BatchUseCase) processFile(ctx context.Context, logger *slog.Logger, runID, source string) domain.FileOutcome {
	started := uc.now()
	if uc.metrics != nil {
		uc.metrics.StartFile()
	}

	fileLogger := logger.With("file", filepath.Base(source))
	outcome := uc.pipeline(ctx, fileLogger, runID, source)

	elapsed := uc.now().Sub(started)
	outcome.DurationMS = elapsed.Milliseconds()
	if uc.metrics != nil {
		uc.metrics.FinishFile(outcome, elapsed)
	}

	if outcome.Err != nil {
		fileLogger.Error("file_failed", "stage_reached", string(outcome.FailedAt), "error", outcome.Err)
	} else {
		fileLogger.Info("file_done",
			"path", outcome.Archived.Path,
			"course_id", outcome.Archived.Metadata.CourseID,
			"doc_type", outcome.Archived.Metadata.DocType,
			"fallback", outcome.Fallback,
			"converted", outcome.Converted,
		)
	}

	if uc.ledger != nil && outcome.Placed() {
		if err := uc.ledger.Record(ctx, runID, outcome); err != nil {
			fileLogger.Warn("ledger_record_failed", "error", err)
		}
	}
	return outcome
}

func (uc *BatchUseCase) pipeline(ctx context.Context, logger *slog.Logger, runID, source string) domain.FileOutcome {
	name := filepath.Base(source)
	outcome := domain.FileOutcome{Source: name, Stage: domain.StageDiscovered}
	fail := func(err error) domain.FileOutcome {
		outcome.Err = err
		outcome.FailedAt = outcome.Stage
		outcome.Stage = domain.StageFailed
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("batch cancelled: %w", err))
	}

	snippet := uc.sniffer.Snippet(ctx, source)
	outcome.Stage = domain.StageSniffed

	result, fallback, err := uc.classify(ctx, logger, name, snippet)
	if err != nil {
		return fail(err)
	}
	outcome.Fallback = fallback
	outcome.Stage = domain.StageClassified

	archived, err := uc.placer.Place(ctx, source, result)
	if err != nil {
		if archived.Path != "" {
			// moved but sidecar missing; the archive keeps the file
			outcome.Archived = &archived
		}
		return fail(err)
	}
	outcome.Archived = &archived
	outcome.Stage = domain.StagePlaced

	mdPath, converted, err := uc.placer.ConvertIfManual(ctx, archived)
	switch {
	case err != nil:
		logger.Warn("conversion_failed", "path", archived.Path, "error", err)
		outcome.Warnings = append(outcome.Warnings, err.Error())
	case converted:
		outcome.Converted = true
		outcome.Markdown = mdPath
		outcome.Stage = domain.StageConverted
	}

	if uc.events != nil {
		if err := uc.events.PublishArchived(ctx, runID, archived); err != nil {
			logger.Warn("archive_event_failed", "error", err)
		}
	}

	outcome.Stage = domain.StageDone
	return outcome
}

func (uc *BatchUseCase) classify(ctx context.Context, logger *slog.Logger, filename, snippet string) (domain.ClassificationResult, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.opts.ClassifyTimeout)
	defer cancel()

	result, err := uc.classifier.Classify(callCtx, domain.ClassificationRequest{Filename: filename, Snippet: snippet})
	if err == nil {
		return result, false, nil
	}
	if ctx.Err() != nil {
		return domain.ClassificationResult{}, false, fmt.Errorf("classify %s: %w", filename, ctx.Err())
	}

	reason, unavailable := domain.UnavailableReason(err)
	if !unavailable && errors.Is(err, context.DeadlineExceeded) {
		reason, unavailable = "classifier timeout", true
	}
	if !unavailable {
		return domain.ClassificationResult{}, false, fmt.Errorf("classify %s: %w", filename, err)
	}

	attrs := []any{"reason", reason, "error", err}
	if reporter, ok := uc.classifier.(breakerReporter); ok {
		attrs = append(attrs, "breaker_state", reporter.BreakerState())
	}
	logger.Warn("classifier_fallback", attrs...)
	return domain.FallbackClassification(filename, reason, uc.now().Year(), uc.layout), true, nil
}
