package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupWorkspace(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "POSTGRES_DSN", "NATS_URL", "METRICS_TEXTFILE", "TAXONOMY_PATH",
		"INBOX_DIR", "MASTER_DIR", "SURVEY_DIR", "DASHBOARD_PATH", "WORKSPACE_DIR", "BATCH_CONCURRENCY",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_FORMAT", "json")

	workspace := t.TempDir()
	inbox := filepath.Join(workspace, "00_INBOX_UNPROCESSED")
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		t.Fatalf("mkdir inbox: %v", err)
	}
	return workspace
}

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunQuarantinesFilesWithoutAPIKey(t *testing.T) {
	workspace := setupWorkspace(t)
	source := filepath.Join(workspace, "00_INBOX_UNPROCESSED", "evaluation.csv")
	if err := os.WriteFile(source, []byte("course,score\nWP-02,5\n"), 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}

	stdout, stderr, err := executeCLI(t, "--workspace", workspace, "run")
	if err != nil {
		t.Fatalf("run error = %v\nstderr: %s", err, stderr)
	}

	archived := filepath.Join(workspace, "01_Curriculum_Master_Data", "TEMP_evaluation.csv")
	if _, err := os.Stat(archived); err != nil {
		t.Fatalf("expected quarantined file: %v", err)
	}
	if _, err := os.Stat(archived + ".json"); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("expected inbox to be drained, stat err = %v", err)
	}

	dashboard, err := os.ReadFile(filepath.Join(workspace, "DASHBOARD.md"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(dashboard), "## Curriculum Data Status (auto-generated)") {
		t.Fatalf("dashboard missing generated section:\n%s", dashboard)
	}

	if !strings.Contains(stdout, "quarantined") || !strings.Contains(stdout, "API key missing") {
		t.Fatalf("unexpected report:\n%s", stdout)
	}
	if !strings.Contains(stderr, "classifier_fallback") {
		t.Fatalf("expected fallback log line, got:\n%s", stderr)
	}
}

func TestRunJSONReport(t *testing.T) {
	workspace := setupWorkspace(t)
	if err := os.WriteFile(filepath.Join(workspace, "00_INBOX_UNPROCESSED", "scan.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, "00_INBOX_UNPROCESSED", ".DS_Store"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write hidden file: %v", err)
	}

	stdout, stderr, err := executeCLI(t, "--workspace", workspace, "run", "--json")
	if err != nil {
		t.Fatalf("run error = %v\nstderr: %s", err, stderr)
	}

	var view reportView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("decode report: %v\n%s", err, stdout)
	}
	if view.Placed != 1 || view.Fallbacks != 1 || len(view.Outcomes) != 1 {
		t.Fatalf("unexpected report %+v", view)
	}
	if view.Outcomes[0].Source != "scan.pdf" {
		t.Fatalf("unexpected outcome %+v", view.Outcomes[0])
	}
}

func TestRunFailsForMissingInbox(t *testing.T) {
	workspace := setupWorkspace(t)
	_, _, err := executeCLI(t, "--workspace", workspace, "run", "--inbox", "nowhere")
	if err == nil {
		t.Fatalf("expected error for missing inbox")
	}
	if _, statErr := os.Stat(filepath.Join(workspace, "DASHBOARD.md")); !os.IsNotExist(statErr) {
		t.Fatalf("dashboard must not be written when the inbox is unreadable")
	}
}

func TestDashboardDryRunLeavesDocumentAlone(t *testing.T) {
	workspace := setupWorkspace(t)
	manuals := filepath.Join(workspace, "01_Curriculum_Master_Data", "WP-01")
	if err := os.MkdirAll(manuals, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(manuals, "WP-01_Manual_2568.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write manual: %v", err)
	}

	stdout, _, err := executeCLI(t, "--workspace", workspace, "dashboard", "--dry-run")
	if err != nil {
		t.Fatalf("dashboard error = %v", err)
	}
	if !strings.Contains(stdout, "WP-01") || !strings.Contains(stdout, "Pending (incomplete)") {
		t.Fatalf("unexpected dashboard output:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(workspace, "DASHBOARD.md")); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write the dashboard")
	}
}

func TestTaxonomyListsCourses(t *testing.T) {
	setupWorkspace(t)
	stdout, _, err := executeCLI(t, "taxonomy")
	if err != nil {
		t.Fatalf("taxonomy error = %v", err)
	}
	if !strings.Contains(stdout, "WP-01") || !strings.Contains(stdout, "WP-CHILD") {
		t.Fatalf("unexpected taxonomy output:\n%s", stdout)
	}
}

func TestHistoryRequiresLedger(t *testing.T) {
	setupWorkspace(t)
	_, _, err := executeCLI(t, "history")
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Fatalf("expected POSTGRES_DSN error, got %v", err)
	}
}
