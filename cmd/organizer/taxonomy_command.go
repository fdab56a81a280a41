package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/curriculum-organizer/internal/taxonomy"
)

func newTaxonomyCommand(ctx *commandContext) *cobra.Command {
	var prompt bool

	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "List the course catalogue used for classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			var (
				tax *taxonomy.Taxonomy
				err error
			)
			if strings.TrimSpace(cfg.TaxonomyPath) != "" {
				tax, err = taxonomy.Load(cfg.TaxonomyPath)
			} else {
				tax, err = taxonomy.Default()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if prompt {
				fmt.Fprintln(out, tax.Describe(cfg.Layout()))
				return nil
			}

			rows := make([][]string, 0, len(tax.Courses))
			for _, course := range tax.Courses {
				rows = append(rows, []string{course.ID, course.Name, course.EnglishName, course.Group})
			}
			fmt.Fprintln(out, renderTable([]string{"Course ID", "Name", "English", "Group"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&prompt, "prompt", false, "Print the catalogue exactly as sent to the classifier")
	return cmd
}
