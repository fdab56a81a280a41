package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/curriculum-organizer/internal/bootstrap"
	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var inbox string
	var concurrency int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify and archive every file waiting in the inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			if concurrency > 0 {
				cfg.BatchConcurrency = concurrency
			}
			if strings.TrimSpace(inbox) != "" {
				cfg.InboxDir = strings.TrimSpace(inbox)
			}

			lock, err := bootstrap.AcquireRunLock(cfg.WorkspaceDir)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			return ctx.withApp(cmd, cfg, func(runCtx context.Context, app *bootstrap.App) error {
				report, err := app.Batch.Run(runCtx, cfg.Resolve(cfg.InboxDir))
				if flushErr := app.FlushMetrics(); flushErr != nil {
					app.Logger.Warn("metrics_flush_failed", "path", cfg.MetricsTextfile, "error", flushErr)
				}
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, newReportView(report))
				}
				fmt.Fprint(cmd.OutOrStdout(), renderBatchReport(report))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&inbox, "inbox", "", "Inbox directory, relative to the workspace (overrides INBOX_DIR)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Files processed in parallel (overrides BATCH_CONCURRENCY)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the batch report as JSON")
	return cmd
}

type outcomeView struct {
	Source      string   `json:"source"`
	Stage       string   `json:"stage"`
	FailedAt    string   `json:"failed_at,omitempty"`
	Destination string   `json:"destination,omitempty"`
	Markdown    string   `json:"markdown,omitempty"`
	Fallback    bool     `json:"fallback"`
	Error       string   `json:"error,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

type reportView struct {
	RunID     string        `json:"run_id"`
	Inbox     string        `json:"inbox"`
	Placed    int           `json:"placed"`
	Failed    int           `json:"failed"`
	Fallbacks int           `json:"fallbacks"`
	Outcomes  []outcomeView `json:"outcomes"`
	Dashboard string        `json:"dashboard_error,omitempty"`
}

func newReportView(report domain.BatchReport) reportView {
	view := reportView{
		RunID:     report.RunID,
		Inbox:     report.InboxDir,
		Placed:    report.Placed(),
		Failed:    report.Failed(),
		Fallbacks: report.Fallbacks(),
		Outcomes:  make([]outcomeView, 0, len(report.Outcomes)),
	}
	if report.DashboardErr != nil {
		view.Dashboard = report.DashboardErr.Error()
	}
	for _, outcome := range report.Outcomes {
		item := outcomeView{
			Source:   outcome.Source,
			Stage:    string(outcome.Stage),
			FailedAt: string(outcome.FailedAt),
			Markdown: outcome.Markdown,
			Fallback: outcome.Fallback,
			Warnings: outcome.Warnings,
		}
		if outcome.Archived != nil {
			item.Destination = outcome.Archived.Path
		}
		if outcome.Err != nil {
			item.Error = outcome.Err.Error()
		}
		view.Outcomes = append(view.Outcomes, item)
	}
	return view
}

func renderBatchReport(report domain.BatchReport) string {
	var b strings.Builder
	if len(report.Outcomes) == 0 {
		fmt.Fprintf(&b, "Inbox %s is empty\n", report.InboxDir)
	} else {
		rows := make([][]string, 0, len(report.Outcomes))
		for _, outcome := range report.Outcomes {
			rows = append(rows, []string{
				filepath.Base(outcome.Source),
				outcomeStatus(outcome),
				outcomeDestination(outcome),
				outcomeNote(outcome),
			})
		}
		b.WriteString(renderTable([]string{"File", "Result", "Destination", "Notes"}, rows, nil))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Placed %d, failed %d, quarantined %d\n", report.Placed(), report.Failed(), report.Fallbacks())
	switch {
	case report.DashboardErr != nil:
		fmt.Fprintf(&b, "Dashboard update failed: %v\n", report.DashboardErr)
	case report.Dashboard != nil:
		ready := 0
		for _, course := range report.Dashboard.Courses {
			if course.Readiness == domain.ReadinessReady {
				ready++
			}
		}
		fmt.Fprintf(&b, "Dashboard updated: %d of %d courses ready\n", ready, len(report.Dashboard.Courses))
	}
	return b.String()
}

func outcomeStatus(outcome domain.FileOutcome) string {
	switch {
	case outcome.Stage == domain.StageFailed:
		return "failed at " + string(outcome.FailedAt)
	case outcome.Fallback:
		return "quarantined"
	case outcome.Converted:
		return "archived + converted"
	default:
		return "archived"
	}
}

func outcomeDestination(outcome domain.FileOutcome) string {
	if outcome.Archived == nil {
		return "-"
	}
	return outcome.Archived.Path
}

func outcomeNote(outcome domain.FileOutcome) string {
	notes := make([]string, 0, 1+len(outcome.Warnings))
	if outcome.Err != nil {
		notes = append(notes, outcome.Err.Error())
	}
	if outcome.Fallback && outcome.Archived != nil && len(outcome.Archived.Metadata.MissingInfo) > 0 {
		notes = append(notes, outcome.Archived.Metadata.MissingInfo...)
	}
	notes = append(notes, outcome.Warnings...)
	return strings.Join(notes, "; ")
}
