package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/curriculum-organizer/internal/bootstrap"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var course string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent placements recorded in the archive ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			if cfg.PostgresDSN == "" {
				return errors.New("history requires POSTGRES_DSN")
			}
			return ctx.withApp(cmd, cfg, func(runCtx context.Context, app *bootstrap.App) error {
				entries, err := app.Ledger.History(runCtx, course, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No placements recorded")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.ArchivedAt.Local().Format("2006-01-02 15:04"),
						entry.CourseID,
						entry.DocType,
						entry.Year,
						entry.ArchivedPath,
						entry.Status,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Archived", "Course", "Type", "Year", "Path", "Status"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&course, "course", "", "Only show placements for this course ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}
