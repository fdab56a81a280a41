package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEncodeSidecarKeepsOrderAndNonASCII(t *testing.T) {
	data, err := EncodeSidecar(Metadata{
		CourseID:   "WP-01",
		CourseName: "สมาธิเบื้องต้น <ภาคปฏิบัติ> & ทฤษฎี",
		DocType:    "Manual",
		Year:       "2568",
		Status:     StatusClassified,
		Extra:      map[string]any{"summary": "คู่มือ", "confidence": 0.9},
	})
	if err != nil {
		t.Fatalf("EncodeSidecar() error = %v", err)
	}
	got := string(data)

	want := `{
  "course_id": "WP-01",
  "course_name": "สมาธิเบื้องต้น <ภาคปฏิบัติ> & ทฤษฎี",
  "doc_type": "Manual",
  "year": "2568",
  "status": "Classified",
  "missing_info": [],
  "confidence": 0.9,
  "summary": "คู่มือ"
}
`
	if got != want {
		t.Fatalf("unexpected sidecar:\n%s\nwant:\n%s", got, want)
	}
}

func TestMetadataUnmarshalIsLenient(t *testing.T) {
	var meta Metadata
	raw := `{"course_id":" WP-02 ","year":2568,"missing_info":"year unclear","status":null,"pages":12}`
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if meta.CourseID != "WP-02" || meta.Year != "2568" {
		t.Fatalf("unexpected scalars %+v", meta)
	}
	if len(meta.MissingInfo) != 1 || meta.MissingInfo[0] != "year unclear" {
		t.Fatalf("unexpected missing_info %v", meta.MissingInfo)
	}
	if meta.Status != "" {
		t.Fatalf("expected empty status, got %q", meta.Status)
	}
	if meta.Extra["pages"] != float64(12) {
		t.Fatalf("expected extra key to survive, got %v", meta.Extra)
	}
}

func TestMetadataUnmarshalRejectsObjects(t *testing.T) {
	var meta Metadata
	if err := json.Unmarshal([]byte(`{"year":{"be":2568}}`), &meta); err == nil {
		t.Fatalf("expected error for non-scalar year")
	}
}

func TestMetadataRoundTripThroughSidecar(t *testing.T) {
	in := Metadata{CourseID: "WP-EX", CourseName: "ค่ายพิเศษ", DocType: "Exam", Year: "2567", Status: StatusClassified, MissingInfo: []string{"course_name"}}
	data, err := EncodeSidecar(in)
	if err != nil {
		t.Fatalf("EncodeSidecar() error = %v", err)
	}
	var out Metadata
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.CourseName != in.CourseName || out.MissingInfo[0] != "course_name" || out.Extra != nil {
		t.Fatalf("unexpected round trip %+v", out)
	}
}

func TestFallbackClassification(t *testing.T) {
	layout := ArchiveLayout{Workspace: "/ws", MasterDir: "01_Curriculum_Master_Data", SurveyDir: "02_Survey_Data"}
	result := FallbackClassification("inbox/scan 01.pdf", "API key missing", 2025, layout)

	if result.TargetDir != "01_Curriculum_Master_Data" {
		t.Fatalf("expected master root, got %q", result.TargetDir)
	}
	if result.NewFilename != "TEMP_scan 01.pdf" {
		t.Fatalf("unexpected filename %q", result.NewFilename)
	}
	meta := result.Metadata
	if meta.CourseID != "UNKNOWN" || meta.DocType != "Other" || meta.Year != "2025" || meta.Status != StatusError {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if len(meta.MissingInfo) != 1 || meta.MissingInfo[0] != "API key missing" {
		t.Fatalf("expected reason in missing_info, got %v", meta.MissingInfo)
	}
	if meta.IsManual() {
		t.Fatalf("fallback must never trigger manual conversion")
	}
}

func TestIsManual(t *testing.T) {
	if !(Metadata{DocType: "Instructor Manual"}).IsManual() {
		t.Fatalf("expected substring match")
	}
	if (Metadata{DocType: "Survey"}).IsManual() {
		t.Fatalf("survey is not a manual")
	}
}

func TestReadinessFor(t *testing.T) {
	cases := []struct {
		manuals, surveys int
		want             Readiness
	}{
		{2, 0, ReadinessIncomplete},
		{0, 3, ReadinessIncomplete},
		{1, 1, ReadinessReady},
		{0, 0, ReadinessNoData},
	}
	for _, tc := range cases {
		if got := ReadinessFor(tc.manuals, tc.surveys); got != tc.want {
			t.Fatalf("ReadinessFor(%d, %d) = %q, want %q", tc.manuals, tc.surveys, got, tc.want)
		}
	}
}

func TestUnavailableErrorMatching(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := WrapError(ErrTemporary, "classify", NewUnavailableError("classifier request failed", cause))

	if !errors.Is(err, ErrGatewayUnavailable) || !errors.Is(err, cause) || !IsKind(err, ErrTemporary) {
		t.Fatalf("expected all kinds to match: %v", err)
	}
	reason, ok := UnavailableReason(err)
	if !ok || reason != "classifier request failed" {
		t.Fatalf("unexpected reason %q", reason)
	}
	if _, ok := UnavailableReason(WrapError(ErrGatewayMalformed, "parse", cause)); ok {
		t.Fatalf("malformed output is not unavailability")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected cause in message, got %q", err.Error())
	}
}

func TestBatchReportCountsMovedWithoutSidecarAsFailed(t *testing.T) {
	report := BatchReport{Outcomes: []FileOutcome{
		{Stage: StageDone, Archived: &ArchivedFile{Path: "/ws/a.pdf"}},
		{Stage: StageFailed, FailedAt: StageClassified, Archived: &ArchivedFile{Path: "/ws/b.pdf"}},
		{Stage: StageFailed, FailedAt: StageSniffed},
	}}
	if report.Placed() != 1 || report.Failed() != 2 {
		t.Fatalf("expected 1 placed and 2 failed, got %d/%d", report.Placed(), report.Failed())
	}
}
