package ports

import (
	"context"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

// BatchRunner is the inbound contract for draining an inbox directory.
type BatchRunner interface {
	Run(ctx context.Context, inboxDir string) (domain.BatchReport, error)
}

// FilePlacer moves a classified file into the archive and records its sidecar.
type FilePlacer interface {
	Place(ctx context.Context, source string, result domain.ClassificationResult) (domain.ArchivedFile, error)
}

// DashboardUpdater recomputes the course summary and splices it into a document.
type DashboardUpdater interface {
	Update(ctx context.Context, docPath string) (domain.DashboardSummary, error)
}
