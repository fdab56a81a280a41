package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/curriculum-organizer/internal/bootstrap"
	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Recount the archive and rewrite the dashboard status section",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			return ctx.withApp(cmd, cfg, func(runCtx context.Context, app *bootstrap.App) error {
				var (
					summary domain.DashboardSummary
					err     error
				)
				if dryRun {
					summary, err = app.Dashboard.Summarize(runCtx)
				} else {
					summary, err = app.Dashboard.Update(runCtx, cfg.Resolve(cfg.DashboardPath))
				}
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCourseTable(summary))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the counts without touching the dashboard document")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the summary as JSON")
	return cmd
}

func renderCourseTable(summary domain.DashboardSummary) string {
	rows := make([][]string, 0, len(summary.Courses))
	for _, status := range summary.Courses {
		rows = append(rows, []string{
			status.Course.ID,
			status.Course.Name,
			fmt.Sprint(status.Manuals),
			fmt.Sprint(status.Surveys),
			status.Readiness.Label(),
		})
	}
	return renderTable(
		[]string{"Course ID", "Course", "Manuals", "Surveys", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}
