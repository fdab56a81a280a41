package taxonomy

import (
	"strings"
	"testing"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

func TestDefaultCatalogueKeepsOrder(t *testing.T) {
	tax, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(tax.Courses) != 11 {
		t.Fatalf("expected 11 courses, got %d", len(tax.Courses))
	}
	if tax.Courses[0].ID != "WP-01" || tax.Courses[len(tax.Courses)-1].ID != "WP-CHILD" {
		t.Fatalf("unexpected order: first=%s last=%s", tax.Courses[0].ID, tax.Courses[len(tax.Courses)-1].ID)
	}
	if course, ok := tax.Lookup("wp-10"); !ok || course.Group != "advanced" {
		t.Fatalf("expected WP-10 in advanced group, got %+v ok=%v", course, ok)
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	_, err := Parse([]byte("courses:\n  - id: WP-01\n    name: a\n  - id: wp-01\n    name: b\n"))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestParseRejectsUnknownRoot(t *testing.T) {
	_, err := Parse([]byte("courses:\n  - id: WP-01\ndoc_types:\n  - name: Manual\n    root: attic\n"))
	if err == nil {
		t.Fatalf("expected unknown root error")
	}
}

func TestDescribeListsCoursesAndRoots(t *testing.T) {
	tax, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	layout := domain.ArchiveLayout{MasterDir: "01_Curriculum_Master_Data", SurveyDir: "02_Survey_Data"}
	got := tax.Describe(layout)

	for _, want := range []string{
		"- WP-01: หลักสูตรครูสมาธิ (Willpower Course)",
		"[special]",
		"- Survey (แบบประเมิน/ความพึงพอใจ/ข้อมูลดิบสำรวจ) -> 02_Survey_Data",
		"- Manual (คู่มือการเรียน/ตำรา) -> 01_Curriculum_Master_Data",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("description missing %q:\n%s", want, got)
		}
	}
}
