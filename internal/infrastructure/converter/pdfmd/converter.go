package pdfmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Converter renders the text layer of a PDF into a sibling Markdown file.
type Converter struct {
	extension string
}

func New() *Converter {
	return &Converter{extension: ".md"}
}

// Convert writes <base>.md next to pdfPath. Output is written to a temp file
// and renamed, so a failed conversion leaves nothing behind.
func (c *Converter) Convert(ctx context.Context, pdfPath string) (string, error) {
	pages, err := extractPages(ctx, pdfPath)
	if err != nil {
		return "", err
	}

	base := filepath.Base(pdfPath)
	mdPath := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + c.extension
	if err := writeAtomic(mdPath, renderMarkdown(base, pages)); err != nil {
		return "", err
	}
	return mdPath, nil
}

func extractPages(ctx context.Context, pdfPath string) (pages []string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse pdf %s: %v", filepath.Base(pdfPath), r)
		}
	}()

	file, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func renderMarkdown(title string, pages []string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n")
	for i, page := range pages {
		text := strings.TrimSpace(page)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## Page %d\n\n%s\n", i+1, text)
	}
	return b.String()
}

func writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp markdown: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write markdown: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close markdown: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod markdown: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish markdown: %w", err)
	}
	return nil
}
