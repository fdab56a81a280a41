package markdown

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

// Renderer draws the per-course readiness table as GitHub flavoured Markdown.
type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) RenderTable(summary domain.DashboardSummary) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Course ID", "Course", "Manuals", "Surveys", "Status"})

	for _, status := range summary.Courses {
		tw.AppendRow(table.Row{
			status.Course.ID,
			courseTitle(status.Course),
			strconv.Itoa(status.Manuals),
			strconv.Itoa(status.Surveys),
			status.Readiness.Label(),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.RenderMarkdown() + "\n"
}

func courseTitle(course domain.CourseRecord) string {
	if course.EnglishName == "" || course.Name == "" {
		if course.Name != "" {
			return course.Name
		}
		return course.EnglishName
	}
	return course.Name + " (" + course.EnglishName + ")"
}
