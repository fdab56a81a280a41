package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

type rendererFake struct{}

func (rendererFake) RenderTable(summary domain.DashboardSummary) string {
	var b strings.Builder
	for _, status := range summary.Courses {
		fmt.Fprintf(&b, "%s %d %d %s\n", status.Course.ID, status.Manuals, status.Surveys, status.Readiness)
	}
	return b.String()
}

var testCourses = []domain.CourseRecord{
	{ID: "WP-01", Name: "สมาธิเบื้องต้น"},
	{ID: "WP-02", Name: "พลังจิต"},
	{ID: "WP-03", Name: "การบำบัด"},
	{ID: "WP-1", Name: "legacy"},
}

func newDashboard(storage *memStorage) *DashboardUseCase {
	now := func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) }
	return NewDashboardUseCase(testCourses, testLayout, storage, rendererFake{}, now)
}

func seedArchive(storage *memStorage) {
	storage.put("/ws/01_Curriculum_Master_Data/WP-01/WP-01_Manual_2568.pdf", "")
	storage.put("/ws/01_Curriculum_Master_Data/WP-01/WP-01_Manual_2568.pdf.json", "{}")
	storage.put("/ws/01_Curriculum_Master_Data/WP-01/WP-01_Manual_2568.md", "")
	storage.put("/ws/01_Curriculum_Master_Data/wp-01_handout.DOCX", "")
	storage.put("/ws/01_Curriculum_Master_Data/WP-02/WP-02_Manual_2567.doc", "")
	storage.put("/ws/01_Curriculum_Master_Data/WP-10_Manual_2568.pdf", "")
	storage.put("/ws/02_Survey_Data/WP-02_Survey_2568.xlsx", "")
	storage.put("/ws/02_Survey_Data/WP-02_notes.pdf", "")
	storage.put("/ws/02_Survey_Data/WP-03_Survey_2568.txt", "")
}

func TestSummarizeReadinessScenarios(t *testing.T) {
	storage := newMemStorage()
	seedArchive(storage)

	summary, err := newDashboard(storage).Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	want := map[string]struct {
		manuals, surveys int
		readiness        domain.Readiness
	}{
		"WP-01": {2, 0, domain.ReadinessIncomplete},
		"WP-02": {1, 1, domain.ReadinessReady},
		"WP-03": {0, 0, domain.ReadinessNoData},
		"WP-1":  {0, 0, domain.ReadinessNoData},
	}
	if len(summary.Courses) != len(testCourses) {
		t.Fatalf("expected one row per course, got %d", len(summary.Courses))
	}
	for i, status := range summary.Courses {
		if status.Course.ID != testCourses[i].ID {
			t.Fatalf("rows must follow taxonomy order, got %s at %d", status.Course.ID, i)
		}
		w := want[status.Course.ID]
		if status.Manuals != w.manuals || status.Surveys != w.surveys || status.Readiness != w.readiness {
			t.Fatalf("%s: got %d/%d %s, want %d/%d %s", status.Course.ID, status.Manuals, status.Surveys, status.Readiness, w.manuals, w.surveys, w.readiness)
		}
	}
}

func TestMatchesCourseRequiresBoundary(t *testing.T) {
	cases := []struct {
		name, id string
		want     bool
	}{
		{"WP-01_Manual_2568.pdf", "WP-01", true},
		{"wp-01 Manual.pdf", "WP-01", true},
		{"WP-01.pdf", "WP-01", true},
		{"WP-10_Manual.pdf", "WP-1", false},
		{"WP-01a_Manual.pdf", "WP-01", false},
		{"TEMP_WP-01.pdf", "WP-01", false},
		{"WP", "WP-01", false},
	}
	for _, tc := range cases {
		if got := matchesCourse(tc.name, tc.id); got != tc.want {
			t.Fatalf("matchesCourse(%q, %q) = %v, want %v", tc.name, tc.id, got, tc.want)
		}
	}
}

func TestUpdatePreservesDocumentPrefix(t *testing.T) {
	storage := newMemStorage()
	seedArchive(storage)
	prefix := "# หลักสูตร\n\nNotes written by staff.\n\n"
	storage.put("/ws/DASHBOARD.md", prefix+DashboardHeading+"\n\nstale table\n\n## Footer that belongs to the old section\n")

	if _, err := newDashboard(storage).Update(context.Background(), "/ws/DASHBOARD.md"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got := storage.content("/ws/DASHBOARD.md")
	if !strings.HasPrefix(got, prefix+DashboardHeading+"\n") {
		t.Fatalf("prefix not preserved:\n%s", got)
	}
	if strings.Contains(got, "stale table") || strings.Contains(got, "Footer") {
		t.Fatalf("old section must be replaced:\n%s", got)
	}
	if strings.Count(got, DashboardHeading) != 1 {
		t.Fatalf("expected a single generated section:\n%s", got)
	}
	for _, want := range []string{"_Updated: 2025-06-01 09:30_", "WP-01 2 0 pending, incomplete", "WP-02 1 1 ready"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestUpdateAppendsSectionWhenHeadingMissing(t *testing.T) {
	storage := newMemStorage()
	storage.put("/ws/DASHBOARD.md", "# Dashboard\n\nSee "+DashboardHeading+" below.\n")

	if _, err := newDashboard(storage).Update(context.Background(), "/ws/DASHBOARD.md"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got := storage.content("/ws/DASHBOARD.md")
	want := "# Dashboard\n\nSee " + DashboardHeading + " below.\n\n---\n\n" + DashboardHeading + "\n"
	if !strings.HasPrefix(got, want) {
		t.Fatalf("expected appended section after separator:\n%s", got)
	}
}

func TestUpdateCreatesMissingDocument(t *testing.T) {
	storage := newMemStorage()

	summary, err := newDashboard(storage).Update(context.Background(), "/ws/DASHBOARD.md")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got := storage.content("/ws/DASHBOARD.md")
	if !strings.HasPrefix(got, DashboardHeading) {
		t.Fatalf("new document must contain only the summary:\n%s", got)
	}
	if len(summary.Courses) != len(testCourses) || summary.Courses[0].Readiness != domain.ReadinessNoData {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestUpdateReturnsWriteFailure(t *testing.T) {
	storage := newMemStorage()
	storage.writeErrs["DASHBOARD.md"] = errors.New("read-only filesystem")

	if _, err := newDashboard(storage).Update(context.Background(), "/ws/DASHBOARD.md"); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestSpliceSummary(t *testing.T) {
	section := DashboardHeading + "\n\nbody\n"
	cases := map[string]string{
		"":                                  section,
		"  \n":                              section,
		DashboardHeading + "\nold\n":        section,
		"intro\n" + DashboardHeading + "\n": "intro\n" + section,
		"intro\n\n\n":                       "intro\n\n---\n\n" + section,
	}
	for doc, want := range cases {
		if got := SpliceSummary(doc, section); got != want {
			t.Fatalf("SpliceSummary(%q) = %q, want %q", doc, got, want)
		}
	}
}
