package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// MasterPlaceholder and SurveyPlaceholder are the symbolic root names the
	// classifier sometimes echoes back instead of the literal directory.
	MasterPlaceholder = "MASTER_DIR"
	SurveyPlaceholder = "SURVEY_DIR"

	SidecarSuffix  = ".json"
	FallbackPrefix = "TEMP_"

	StatusClassified = "Classified"
	StatusError      = "Error"
)

type ArchiveRoot string

const (
	RootMaster ArchiveRoot = "master"
	RootSurvey ArchiveRoot = "survey"
)

// ArchiveLayout names the two archive roots relative to the workspace.
type ArchiveLayout struct {
	Workspace string
	MasterDir string
	SurveyDir string
}

func (l ArchiveLayout) MasterPath() string { return filepath.Join(l.Workspace, l.MasterDir) }
func (l ArchiveLayout) SurveyPath() string { return filepath.Join(l.Workspace, l.SurveyDir) }

func (l ArchiveLayout) RootPath(root ArchiveRoot) string {
	if root == RootSurvey {
		return l.SurveyPath()
	}
	return l.MasterPath()
}

// Metadata is the sidecar record written next to every archived file.
// Keys the classifier returns beyond the canonical ones are kept in Extra.
type Metadata struct {
	CourseID    string
	CourseName  string
	DocType     string
	Year        string
	Status      string
	MissingInfo []string
	Extra       map[string]any
}

func (m Metadata) IsManual() bool {
	return strings.Contains(m.DocType, "Manual")
}

type metadataWire struct {
	CourseID    string   `json:"course_id"`
	CourseName  string   `json:"course_name"`
	DocType     string   `json:"doc_type"`
	Year        string   `json:"year"`
	Status      string   `json:"status"`
	MissingInfo []string `json:"missing_info"`
}

var metadataKeys = map[string]struct{}{
	"course_id": {}, "course_name": {}, "doc_type": {}, "year": {}, "status": {}, "missing_info": {},
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	missing := m.MissingInfo
	if missing == nil {
		missing = []string{}
	}
	base, err := marshalNoEscape(metadataWire{
		CourseID:    m.CourseID,
		CourseName:  m.CourseName,
		DocType:     m.DocType,
		Year:        m.Year,
		Status:      m.Status,
		MissingInfo: missing,
	})
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(m.Extra))
	for key := range m.Extra {
		if _, known := metadataKeys[key]; known {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(bytes.TrimSuffix(base, []byte("}")))
	for _, key := range keys {
		name, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		value, err := marshalNoEscape(m.Extra[key])
		if err != nil {
			return nil, fmt.Errorf("marshal metadata key %q: %w", key, err)
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON is lenient about scalar types: year may be a number and
// missing_info may be a bare string or null.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Metadata
	var err error
	if out.CourseID, err = scalarString(raw["course_id"]); err != nil {
		return fmt.Errorf("course_id: %w", err)
	}
	if out.CourseName, err = scalarString(raw["course_name"]); err != nil {
		return fmt.Errorf("course_name: %w", err)
	}
	if out.DocType, err = scalarString(raw["doc_type"]); err != nil {
		return fmt.Errorf("doc_type: %w", err)
	}
	if out.Year, err = scalarString(raw["year"]); err != nil {
		return fmt.Errorf("year: %w", err)
	}
	if out.Status, err = scalarString(raw["status"]); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if out.MissingInfo, err = stringList(raw["missing_info"]); err != nil {
		return fmt.Errorf("missing_info: %w", err)
	}
	for key, value := range raw {
		if _, known := metadataKeys[key]; known {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[key] = decoded
	}
	*m = out
	return nil
}

// EncodeSidecar renders metadata the way it is stored on disk.
func EncodeSidecar(m Metadata) ([]byte, error) {
	compact, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func scalarString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	var value any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return "", err
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("expected scalar, got %s", string(trimmed))
	}
}

func stringList(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []string{}, nil
	}
	if trimmed[0] != '[' {
		single, err := scalarString(trimmed)
		if err != nil {
			return nil, err
		}
		if single == "" {
			return []string{}, nil
		}
		return []string{single}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		value, err := scalarString(item)
		if err != nil {
			return nil, err
		}
		if value != "" {
			out = append(out, value)
		}
	}
	return out, nil
}

type ClassificationRequest struct {
	Filename string
	Snippet  string
}

// ClassificationResult is what the gateway decided for one file.
type ClassificationResult struct {
	TargetDir   string   `json:"target_dir"`
	NewFilename string   `json:"new_filename"`
	Metadata    Metadata `json:"metadata"`

	Provider string `json:"-"`
	Model    string `json:"-"`
}

// FallbackClassification routes a file to the master root under a sentinel
// name when the gateway cannot be used.
func FallbackClassification(filename, reason string, year int, layout ArchiveLayout) ClassificationResult {
	missing := []string{}
	if strings.TrimSpace(reason) != "" {
		missing = append(missing, reason)
	}
	return ClassificationResult{
		TargetDir:   layout.MasterDir,
		NewFilename: FallbackPrefix + filepath.Base(filename),
		Metadata: Metadata{
			CourseID:    "UNKNOWN",
			CourseName:  "Unknown",
			DocType:     "Other",
			Year:        strconv.Itoa(year),
			Status:      StatusError,
			MissingInfo: missing,
		},
		Provider: "fallback",
	}
}

// ArchivedFile is a placed document together with its sidecar.
type ArchivedFile struct {
	Source      string      `json:"source"`
	Path        string      `json:"path"`
	SidecarPath string      `json:"sidecar_path"`
	Root        ArchiveRoot `json:"root"`
	Metadata    Metadata    `json:"metadata"`
}

func SidecarPath(path string) string {
	return path + SidecarSuffix
}
