// Package taxonomy loads the fixed course catalogue used for classification
// prompts and dashboard aggregation.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

//go:embed courses.yaml
var defaultCatalogue []byte

type DocType struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Root        domain.ArchiveRoot `yaml:"root"`
}

type Taxonomy struct {
	Institute string                `yaml:"institute"`
	DocTypes  []DocType             `yaml:"doc_types"`
	Courses   []domain.CourseRecord `yaml:"courses"`
}

// Default returns the embedded catalogue.
func Default() (*Taxonomy, error) {
	return Parse(defaultCatalogue)
}

// Load reads a catalogue file, or the embedded one when path is empty.
func Load(path string) (*Taxonomy, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) validate() error {
	if len(t.Courses) == 0 {
		return errors.New("taxonomy: no courses defined")
	}
	seen := make(map[string]struct{}, len(t.Courses))
	for i := range t.Courses {
		course := &t.Courses[i]
		course.ID = strings.TrimSpace(course.ID)
		course.Name = strings.TrimSpace(course.Name)
		if course.ID == "" {
			return fmt.Errorf("taxonomy: course #%d has no id", i+1)
		}
		key := strings.ToUpper(course.ID)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("taxonomy: duplicate course id %s", course.ID)
		}
		seen[key] = struct{}{}
	}
	for _, docType := range t.DocTypes {
		if docType.Root != domain.RootMaster && docType.Root != domain.RootSurvey {
			return fmt.Errorf("taxonomy: doc type %s has unknown root %q", docType.Name, docType.Root)
		}
	}
	return nil
}

func (t *Taxonomy) Lookup(id string) (domain.CourseRecord, bool) {
	for _, course := range t.Courses {
		if strings.EqualFold(course.ID, strings.TrimSpace(id)) {
			return course, true
		}
	}
	return domain.CourseRecord{}, false
}

// Describe renders the catalogue as prompt context: one line per course,
// grouped, followed by the document types and their archive roots.
func (t *Taxonomy) Describe(layout domain.ArchiveLayout) string {
	var b strings.Builder
	if t.Institute != "" {
		fmt.Fprintf(&b, "Courses of %s:\n", t.Institute)
	} else {
		b.WriteString("Courses:\n")
	}
	group := ""
	for _, course := range t.Courses {
		if course.Group != group {
			group = course.Group
			if group != "" {
				fmt.Fprintf(&b, "[%s]\n", group)
			}
		}
		fmt.Fprintf(&b, "- %s: %s", course.ID, course.Name)
		if course.EnglishName != "" {
			fmt.Fprintf(&b, " (%s)", course.EnglishName)
		}
		if course.Notes != "" {
			fmt.Fprintf(&b, " - %s", course.Notes)
		}
		b.WriteString("\n")
	}
	if len(t.DocTypes) > 0 {
		b.WriteString("\nDocument types:\n")
		for _, docType := range t.DocTypes {
			fmt.Fprintf(&b, "- %s (%s) -> %s\n", docType.Name, docType.Description, filepathName(layout, docType.Root))
		}
	}
	return b.String()
}

func filepathName(layout domain.ArchiveLayout, root domain.ArchiveRoot) string {
	if root == domain.RootSurvey {
		return layout.SurveyDir
	}
	return layout.MasterDir
}
