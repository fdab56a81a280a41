package gemini

import (
	"fmt"
	"strings"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

const maxPromptSnippet = 4000

func buildClassificationPrompt(taxonomy string, layout domain.ArchiveLayout, req domain.ClassificationRequest) string {
	snippet := req.Snippet
	if len(snippet) > maxPromptSnippet {
		snippet = snippet[:maxPromptSnippet]
	}
	if strings.TrimSpace(snippet) == "" {
		snippet = "(no readable content, classify from the filename)"
	}

	return fmt.Sprintf(`You are the archivist of a curriculum office. Classify one incoming file.

%s

Rules:
- target_dir must start with %s for manuals, exams and other course material (archive root %q),
  or with %s for survey and evaluation data (archive root %q). Add a course subdirectory, e.g. %s/WP-01.
- new_filename follows [COURSE_ID]_[DOC_TYPE]_[YEAR] and keeps the original extension.
  YEAR is the Buddhist Era year stated in the document (e.g. 2568).
- If the course, type or year cannot be determined, use UNKNOWN in the name and list what is missing in missing_info.
- new_filename is a bare file name, never a path.

Return strict JSON with exactly these keys:
{"target_dir": string, "new_filename": string,
 "metadata": {"course_id": string, "course_name": string, "doc_type": string, "year": string,
              "status": "Classified", "missing_info": [string]}}
No markdown, no extra text.

Original filename: %s

Content preview:
%s
`,
		strings.TrimSpace(taxonomy),
		domain.MasterPlaceholder, layout.MasterDir,
		domain.SurveyPlaceholder, layout.SurveyDir,
		domain.MasterPlaceholder,
		req.Filename,
		snippet,
	)
}
