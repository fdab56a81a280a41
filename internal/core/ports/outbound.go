package ports

import (
	"context"
	"time"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

// ContentSniffer returns a bounded text prefix used as classifier context.
// It never fails; unreadable or binary files yield an empty string.
type ContentSniffer interface {
	Snippet(ctx context.Context, path string) string
}

// DocumentClassifier is the classifier gateway.
type DocumentClassifier interface {
	Classify(ctx context.Context, req domain.ClassificationRequest) (domain.ClassificationResult, error)
}

// FormatConverter renders a placed PDF into a sibling markup file.
type FormatConverter interface {
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// ArchiveStorage is the filesystem surface used by placement and the dashboard.
type ArchiveStorage interface {
	ScanDir(ctx context.Context, dir string) ([]domain.InboxEntry, error)
	EnsureDir(ctx context.Context, dir string) error
	Move(ctx context.Context, src, dst string) error
	Exists(ctx context.Context, path string) (bool, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	ListFiles(ctx context.Context, root string) ([]string, error)
}

// ArchiveLedger durably records placed files.
type ArchiveLedger interface {
	Record(ctx context.Context, runID string, outcome domain.FileOutcome) error
}

// ArchiveEventPublisher announces placed files to downstream consumers.
type ArchiveEventPublisher interface {
	PublishArchived(ctx context.Context, runID string, file domain.ArchivedFile) error
}

// SummaryRenderer renders the per-course table of the dashboard section.
type SummaryRenderer interface {
	RenderTable(summary domain.DashboardSummary) string
}

// BatchMetrics observes per-file processing.
type BatchMetrics interface {
	StartFile()
	FinishFile(outcome domain.FileOutcome, duration time.Duration)
	ObserveDashboard(err error)
}
