package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/resilience"
)

// ArchiveEvent is published once per placed file.
type ArchiveEvent struct {
	RunID       string             `json:"run_id"`
	Path        string             `json:"path"`
	SidecarPath string             `json:"sidecar_path"`
	Source      string             `json:"source"`
	Root        domain.ArchiveRoot `json:"root"`
	Metadata    domain.Metadata    `json:"metadata"`
	ArchivedAt  time.Time          `json:"archived_at"`
}

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

type ArchiveEvents struct {
	conn     msgPublisher
	subject  string
	executor *resilience.Executor
	now      func() time.Time
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, subject string, options Options) (*ArchiveEvents, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 10
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("curriculum-organizer"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newArchiveEvents(conn, subject, options.ResilienceExecutor), nil
}

func newArchiveEvents(conn msgPublisher, subject string, executor *resilience.Executor) *ArchiveEvents {
	return &ArchiveEvents{
		conn:     conn,
		subject:  subject,
		executor: executor,
		now:      time.Now,
	}
}

// Close flushes pending events before closing the connection.
func (e *ArchiveEvents) Close() {
	if e.conn == nil {
		return
	}
	_ = e.conn.FlushTimeout(5 * time.Second)
	e.conn.Close()
}

func (e *ArchiveEvents) PublishArchived(ctx context.Context, runID string, file domain.ArchivedFile) error {
	payload, err := json.Marshal(ArchiveEvent{
		RunID:       runID,
		Path:        file.Path,
		SidecarPath: file.SidecarPath,
		Source:      file.Source,
		Root:        file.Root,
		Metadata:    file.Metadata,
		ArchivedAt:  e.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal archive event: %w", err)
	}

	msg := nats.NewMsg(e.subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, runID+":"+file.Path)
	msg.Header.Set("Course-Id", file.Metadata.CourseID)

	call := func(_ context.Context) error {
		if err := e.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if e.executor != nil {
		err = e.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}
