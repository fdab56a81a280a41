package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
	"github.com/kirillkom/curriculum-organizer/internal/core/ports"
)

// DashboardHeading marks the start of the generated section. Everything from
// this line to the end of the document belongs to the updater.
const DashboardHeading = "## Curriculum Data Status (auto-generated)"

const dashboardSeparator = "---"

var (
	manualExtensions = map[string]struct{}{".pdf": {}, ".doc": {}, ".docx": {}}
	surveyExtensions = map[string]struct{}{".csv": {}, ".xlsx": {}, ".xls": {}}
)

type DashboardUseCase struct {
	courses  []domain.CourseRecord
	layout   domain.ArchiveLayout
	storage  ports.ArchiveStorage
	renderer ports.SummaryRenderer
	now      func() time.Time
}

func NewDashboardUseCase(
	courses []domain.CourseRecord,
	layout domain.ArchiveLayout,
	storage ports.ArchiveStorage,
	renderer ports.SummaryRenderer,
	now func() time.Time,
) *DashboardUseCase {
	if now == nil {
		now = time.Now
	}
	return &DashboardUseCase{
		courses:  courses,
		layout:   layout,
		storage:  storage,
		renderer: renderer,
		now:      now,
	}
}

func (uc *DashboardUseCase) Update(ctx context.Context, docPath string) (domain.DashboardSummary, error) {
	summary, err := uc.Summarize(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	existing, err := uc.storage.ReadFile(ctx, docPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return summary, fmt.Errorf("read dashboard document: %w", err)
	}

	updated := SpliceSummary(string(existing), uc.renderSection(summary))
	if err := uc.storage.WriteFile(ctx, docPath, []byte(updated)); err != nil {
		return summary, fmt.Errorf("write dashboard document: %w", err)
	}
	return summary, nil
}

// Summarize counts archived manuals and surveys per course.
func (uc *DashboardUseCase) Summarize(ctx context.Context) (domain.DashboardSummary, error) {
	masterFiles, err := uc.storage.ListFiles(ctx, uc.layout.MasterPath())
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("list master archive: %w", err)
	}
	surveyFiles, err := uc.storage.ListFiles(ctx, uc.layout.SurveyPath())
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("list survey archive: %w", err)
	}

	summary := domain.DashboardSummary{
		GeneratedAt: uc.now(),
		Courses:     make([]domain.CourseStatus, 0, len(uc.courses)),
	}
	for _, course := range uc.courses {
		manuals := countCourseFiles(masterFiles, course.ID, manualExtensions)
		surveys := countCourseFiles(surveyFiles, course.ID, surveyExtensions)
		summary.Courses = append(summary.Courses, domain.CourseStatus{
			Course:    course,
			Manuals:   manuals,
			Surveys:   surveys,
			Readiness: domain.ReadinessFor(manuals, surveys),
		})
	}
	return summary, nil
}

func (uc *DashboardUseCase) renderSection(summary domain.DashboardSummary) string {
	var b strings.Builder
	b.WriteString(DashboardHeading)
	b.WriteString("\n\n")
	b.WriteString("_Updated: ")
	b.WriteString(summary.GeneratedAt.Format("2006-01-02 15:04"))
	b.WriteString("_\n\n")
	b.WriteString(strings.TrimRight(uc.renderer.RenderTable(summary), "\n"))
	b.WriteString("\n")
	return b.String()
}

// SpliceSummary replaces everything from the dashboard heading onward with
// section, or appends section after a separator when no heading exists.
func SpliceSummary(document, section string) string {
	if idx := headingIndex(document); idx >= 0 {
		return document[:idx] + section
	}
	if strings.TrimSpace(document) == "" {
		return section
	}
	return strings.TrimRight(document, "\n") + "\n\n" + dashboardSeparator + "\n\n" + section
}

func headingIndex(document string) int {
	if strings.HasPrefix(document, DashboardHeading) {
		return 0
	}
	if idx := strings.Index(document, "\n"+DashboardHeading); idx >= 0 {
		return idx + 1
	}
	return -1
}

func countCourseFiles(files []string, courseID string, extensions map[string]struct{}) int {
	count := 0
	for _, file := range files {
		name := filepath.Base(file)
		if _, ok := extensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if matchesCourse(name, courseID) {
			count++
		}
	}
	return count
}

// matchesCourse requires the ID prefix to end on a word boundary so WP-1
// never claims WP-10 files.
func matchesCourse(name, courseID string) bool {
	if courseID == "" || len(name) < len(courseID) {
		return false
	}
	if !strings.EqualFold(name[:len(courseID)], courseID) {
		return false
	}
	if len(name) == len(courseID) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(name[len(courseID):])
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}
