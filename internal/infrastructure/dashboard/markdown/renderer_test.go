package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

func TestRenderTableRowsPerCourse(t *testing.T) {
	summary := domain.DashboardSummary{
		GeneratedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		Courses: []domain.CourseStatus{
			{Course: domain.CourseRecord{ID: "WP-01", Name: "สมาธิเบื้องต้น", EnglishName: "Basic Meditation"}, Manuals: 2, Surveys: 0, Readiness: domain.ReadinessIncomplete},
			{Course: domain.CourseRecord{ID: "WP-02", Name: "พลังจิต"}, Manuals: 1, Surveys: 1, Readiness: domain.ReadinessReady},
			{Course: domain.CourseRecord{ID: "WP-03", EnglishName: "Healing"}, Readiness: domain.ReadinessNoData},
		},
	}

	out := New().RenderTable(summary)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, separator and 3 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Course ID") || !strings.Contains(lines[0], "Status") {
		t.Fatalf("unexpected header %q", lines[0])
	}

	checks := map[string][]string{
		"WP-01": {"สมาธิเบื้องต้น (Basic Meditation)", "| 2 |", "| 0 |", "Pending (incomplete)"},
		"WP-02": {"พลังจิต", "Ready"},
		"WP-03": {"Healing", "Pending (no data)"},
	}
	for id, wants := range checks {
		line := findLine(lines, id)
		if line == "" {
			t.Fatalf("missing row for %s:\n%s", id, out)
		}
		for _, want := range wants {
			if !strings.Contains(line, want) {
				t.Fatalf("row %q missing %q", line, want)
			}
		}
	}
}

func TestRenderTableEmptySummary(t *testing.T) {
	out := New().RenderTable(domain.DashboardSummary{})
	if !strings.Contains(out, "Course ID") {
		t.Fatalf("expected header even without courses, got %q", out)
	}
}

func findLine(lines []string, needle string) string {
	for _, line := range lines {
		if strings.Contains(line, needle) {
			return line
		}
	}
	return ""
}
