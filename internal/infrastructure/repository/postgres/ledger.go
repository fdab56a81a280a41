package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

// LedgerEntry is one archived file as recorded by a batch run.
type LedgerEntry struct {
	ID           string
	RunID        string
	Source       string
	ArchivedPath string
	Root         domain.ArchiveRoot
	CourseID     string
	DocType      string
	Year         string
	Status       string
	Fallback     bool
	MarkdownPath string
	ArchivedAt   time.Time
}

// ArchiveLedger keeps an append-only history of placements so an operator can
// trace where an inbox file went after the inbox has been drained.
type ArchiveLedger struct {
	db  *sql.DB
	now func() time.Time
}

func NewArchiveLedger(db *sql.DB) *ArchiveLedger {
	return &ArchiveLedger{db: db, now: time.Now}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (l *ArchiveLedger) EnsureSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent organizer runs.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025060101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS archived_files (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	archived_path TEXT NOT NULL,
	sidecar_path TEXT NOT NULL,
	archive_root TEXT NOT NULL,
	course_id TEXT,
	doc_type TEXT,
	year TEXT,
	status TEXT NOT NULL,
	fallback BOOLEAN NOT NULL DEFAULT FALSE,
	markdown_path TEXT,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	archived_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archived_files_course ON archived_files(course_id, archived_at DESC);
CREATE INDEX IF NOT EXISTS idx_archived_files_run ON archived_files(run_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (l *ArchiveLedger) Record(ctx context.Context, runID string, outcome domain.FileOutcome) error {
	if outcome.Archived == nil {
		return domain.WrapError(domain.ErrInvalidInput, "record archive", errors.New("outcome was not placed"))
	}
	file := outcome.Archived

	metadataJSON, err := file.Metadata.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
INSERT INTO archived_files (
	id, run_id, source, archived_path, sidecar_path, archive_root, course_id, doc_type, year, status, fallback, markdown_path, metadata, archived_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		uuid.NewString(), runID, outcome.Source, file.Path, file.SidecarPath, string(file.Root),
		file.Metadata.CourseID, file.Metadata.DocType, file.Metadata.Year, file.Metadata.Status,
		outcome.Fallback, nullString(outcome.Markdown), metadataJSON, l.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert archived file: %w", err)
	}
	return nil
}

// History returns the most recent placements for a course, newest first.
// An empty courseID lists every course.
func (l *ArchiveLedger) History(ctx context.Context, courseID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
SELECT id, run_id, source, archived_path, archive_root, COALESCE(course_id, ''), COALESCE(doc_type, ''), COALESCE(year, ''), status, fallback, COALESCE(markdown_path, ''), archived_at
FROM archived_files
WHERE ($1 = '' OR UPPER(course_id) = UPPER($1))
ORDER BY archived_at DESC
LIMIT $2
`, courseID, limit)
	if err != nil {
		return nil, fmt.Errorf("query archive history: %w", err)
	}
	defer rows.Close()

	entries := make([]LedgerEntry, 0)
	for rows.Next() {
		var entry LedgerEntry
		var root string
		if err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.Source, &entry.ArchivedPath, &root, &entry.CourseID,
			&entry.DocType, &entry.Year, &entry.Status, &entry.Fallback, &entry.MarkdownPath, &entry.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan archive history: %w", err)
		}
		entry.Root = domain.ArchiveRoot(root)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive history: %w", err)
	}
	return entries, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
