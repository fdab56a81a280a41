package usecase

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

var testLayout = domain.ArchiveLayout{
	Workspace: "/ws",
	MasterDir: "01_Curriculum_Master_Data",
	SurveyDir: "02_Survey_Data",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStorage is an in-memory ArchiveStorage keyed by cleaned path.
type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]bool
	subdirs map[string][]string

	scanErr   error
	moveErrs  map[string]error
	writeErrs map[string]error

	ensureCalls int
}

func newMemStorage() *memStorage {
	return &memStorage{
		files:     make(map[string][]byte),
		dirs:      make(map[string]bool),
		subdirs:   make(map[string][]string),
		moveErrs:  make(map[string]error),
		writeErrs: make(map[string]error),
	}
}

func (s *memStorage) put(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = filepath.Clean(path)
	s.files[path] = []byte(content)
	s.dirs[filepath.Dir(path)] = true
}

func (s *memStorage) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[filepath.Clean(path)]
	return ok
}

func (s *memStorage) content(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.files[filepath.Clean(path)])
}

func (s *memStorage) ScanDir(_ context.Context, dir string) ([]domain.InboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	dir = filepath.Clean(dir)
	if !s.dirs[dir] {
		return nil, fmt.Errorf("open %s: %w", dir, fs.ErrNotExist)
	}
	entries := make([]domain.InboxEntry, 0)
	for path := range s.files {
		if filepath.Dir(path) == dir {
			entries = append(entries, domain.InboxEntry{Path: path, Name: filepath.Base(path), Regular: true})
		}
	}
	for _, name := range s.subdirs[dir] {
		entries = append(entries, domain.InboxEntry{Path: filepath.Join(dir, name), Name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *memStorage) EnsureDir(_ context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureCalls++
	s.dirs[filepath.Clean(dir)] = true
	return nil
}

func (s *memStorage) Move(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.moveErrs[filepath.Base(src)]; err != nil {
		return err
	}
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	data, ok := s.files[src]
	if !ok {
		return fmt.Errorf("rename %s: %w", src, fs.ErrNotExist)
	}
	if !s.dirs[filepath.Dir(dst)] {
		return fmt.Errorf("rename %s: %w", dst, fs.ErrNotExist)
	}
	delete(s.files, src)
	s.files[dst] = data
	return nil
}

func (s *memStorage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[filepath.Clean(path)]
	return ok, nil
}

func (s *memStorage) WriteFile(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErrs[filepath.Base(path)]; err != nil {
		return err
	}
	s.files[filepath.Clean(path)] = append([]byte(nil), data...)
	return nil
}

func (s *memStorage) ReadFile(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

func (s *memStorage) ListFiles(_ context.Context, root string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := filepath.Clean(root) + string(filepath.Separator)
	out := make([]string, 0)
	for path := range s.files {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

type converterFake struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *converterFake) Convert(_ context.Context, pdfPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pdfPath)
	if f.err != nil {
		return "", f.err
	}
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".md", nil
}
