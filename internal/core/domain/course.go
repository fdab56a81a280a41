package domain

import "time"

// CourseRecord is one entry of the fixed course taxonomy.
type CourseRecord struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	EnglishName string `json:"english_name,omitempty" yaml:"english_name"`
	Group       string `json:"group,omitempty" yaml:"group"`
	Notes       string `json:"notes,omitempty" yaml:"notes"`
}

type Readiness string

const (
	ReadinessReady      Readiness = "ready"
	ReadinessNoData     Readiness = "pending, no data"
	ReadinessIncomplete Readiness = "pending, incomplete"
)

// ReadinessFor applies the three-way completeness rule.
func ReadinessFor(manuals, surveys int) Readiness {
	switch {
	case manuals > 0 && surveys > 0:
		return ReadinessReady
	case manuals == 0 && surveys == 0:
		return ReadinessNoData
	default:
		return ReadinessIncomplete
	}
}

func (r Readiness) Label() string {
	switch r {
	case ReadinessReady:
		return "✅ Ready"
	case ReadinessNoData:
		return "⏳ Pending (no data)"
	case ReadinessIncomplete:
		return "⚠️ Pending (incomplete)"
	default:
		return string(r)
	}
}

type CourseStatus struct {
	Course    CourseRecord `json:"course"`
	Manuals   int          `json:"manuals"`
	Surveys   int          `json:"surveys"`
	Readiness Readiness    `json:"readiness"`
}

type DashboardSummary struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Courses     []CourseStatus `json:"courses"`
}
