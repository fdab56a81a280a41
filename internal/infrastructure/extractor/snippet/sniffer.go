package snippet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

const DefaultBudget = 2000

var (
	textExtensions = map[string]struct{}{
		".csv": {}, ".tsv": {}, ".txt": {}, ".md": {}, ".markdown": {}, ".json": {},
	}
	workbookExtensions = map[string]struct{}{".xlsx": {}, ".xlsm": {}}

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Sniffer reads a bounded prefix of text-bearing files for classifier context.
type Sniffer struct {
	budget int
	logger *slog.Logger
}

func New(budget int, logger *slog.Logger) *Sniffer {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sniffer{budget: budget, logger: logger}
}

// Snippet never fails: unreadable and binary files yield "".
func (s *Sniffer) Snippet(_ context.Context, path string) string {
	text, err := s.read(path)
	if err != nil {
		s.logger.Debug("snippet_skipped", "file", filepath.Base(path), "error", domain.WrapError(domain.ErrSniff, "snippet", err))
		return ""
	}
	return text
}

func (s *Sniffer) read(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := textExtensions[ext]; ok {
		return readPrefix(path, s.budget)
	}
	if _, ok := workbookExtensions[ext]; ok {
		return readWorkbook(path, s.budget)
	}
	return "", nil
}

func readPrefix(path string, budget int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, budget)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read: %w", err)
	}
	raw := bytes.TrimPrefix(buf[:n], utf8BOM)
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", errors.New("binary content")
	}
	return truncateUTF8(raw, len(raw)), nil
}

func readWorkbook(path string, budget int) (string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := book.Rows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var b bytes.Buffer
	for rows.Next() && b.Len() < budget {
		cols, err := rows.Columns()
		if err != nil {
			return "", fmt.Errorf("read row: %w", err)
		}
		b.WriteString(strings.Join(cols, ","))
		b.WriteByte('\n')
	}
	return truncateUTF8(b.Bytes(), budget), nil
}

// truncateUTF8 cuts raw to at most limit bytes without splitting a rune.
// Only an incomplete rune at the cut is dropped; invalid bytes elsewhere are
// removed individually.
func truncateUTF8(raw []byte, limit int) string {
	if len(raw) > limit {
		raw = raw[:limit]
	}
	for i := len(raw) - 1; i >= 0 && i >= len(raw)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(raw[i]) {
			continue
		}
		if !utf8.FullRune(raw[i:]) {
			raw = raw[:i]
		}
		break
	}
	return strings.ToValidUTF8(string(raw), "")
}
