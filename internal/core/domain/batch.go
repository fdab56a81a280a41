package domain

import "time"

type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageSniffed    Stage = "sniffed"
	StageClassified Stage = "classified"
	StagePlaced     Stage = "placed"
	StageConverted  Stage = "converted"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// FileOutcome is the result of running the per-file pipeline once.
type FileOutcome struct {
	Source     string        `json:"source"`
	Stage      Stage         `json:"stage"`
	FailedAt   Stage         `json:"failed_at,omitempty"`
	Archived   *ArchivedFile `json:"archived,omitempty"`
	Converted  bool          `json:"converted"`
	Markdown   string        `json:"markdown,omitempty"`
	Fallback   bool          `json:"fallback"`
	Err        error         `json:"-"`
	Warnings   []string      `json:"warnings,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

// Placed reports a completed placement. A file moved into the archive whose
// sidecar could not be written keeps Archived but counts as failed.
func (o FileOutcome) Placed() bool {
	return o.Archived != nil && o.Stage != StageFailed
}

type BatchReport struct {
	RunID        string            `json:"run_id"`
	InboxDir     string            `json:"inbox_dir"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Outcomes     []FileOutcome     `json:"outcomes"`
	Dashboard    *DashboardSummary `json:"dashboard,omitempty"`
	DashboardErr error             `json:"-"`
}

func (r BatchReport) Placed() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Placed() {
			n++
		}
	}
	return n
}

func (r BatchReport) Failed() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Stage == StageFailed {
			n++
		}
	}
	return n
}

func (r BatchReport) Fallbacks() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Fallback {
			n++
		}
	}
	return n
}

// InboxEntry is a directory entry seen while scanning the inbox.
type InboxEntry struct {
	Path    string
	Name    string
	Regular bool
}
