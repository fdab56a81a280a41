package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
	"github.com/kirillkom/curriculum-organizer/internal/core/ports"
)

const maxNameAttempts = 1000

// PlacementOptions tune placement. The zero value moves every file to exactly
// target_dir/new_filename, replacing an existing file of that name.
type PlacementOptions struct {
	// SuffixCollisions keeps occupied names and picks name-2, name-3... instead.
	SuffixCollisions bool
	ConvertManuals   bool
}

// PlaceFileUseCase moves classified files into the archive roots.
type PlaceFileUseCase struct {
	layout    domain.ArchiveLayout
	storage   ports.ArchiveStorage
	converter ports.FormatConverter
	opts      PlacementOptions

	// serializes free-name selection and the rename that claims it
	mu sync.Mutex
}

func NewPlaceFileUseCase(
	layout domain.ArchiveLayout,
	storage ports.ArchiveStorage,
	converter ports.FormatConverter,
	opts PlacementOptions,
) *PlaceFileUseCase {
	return &PlaceFileUseCase{
		layout:    layout,
		storage:   storage,
		converter: converter,
		opts:      opts,
	}
}

func (uc *PlaceFileUseCase) Place(ctx context.Context, source string, result domain.ClassificationResult) (domain.ArchivedFile, error) {
	targetDir, root, err := uc.ResolveTargetDir(result.TargetDir)
	if err != nil {
		return domain.ArchivedFile{}, domain.WrapError(domain.ErrPlacement, "resolve target dir", err)
	}
	filename, err := normalizeFilename(result.NewFilename)
	if err != nil {
		return domain.ArchivedFile{}, domain.WrapError(domain.ErrPlacement, "normalize filename", err)
	}

	if err := uc.storage.EnsureDir(ctx, targetDir); err != nil {
		return domain.ArchivedFile{}, domain.WrapError(domain.ErrPlacement, "create target dir", err)
	}

	targetPath, err := uc.moveIntoPlace(ctx, source, targetDir, filename)
	if err != nil {
		return domain.ArchivedFile{}, domain.WrapError(domain.ErrPlacement, "move file", err)
	}

	archived := domain.ArchivedFile{
		Source:      filepath.Base(source),
		Path:        targetPath,
		SidecarPath: domain.SidecarPath(targetPath),
		Root:        root,
		Metadata:    result.Metadata,
	}

	data, err := domain.EncodeSidecar(result.Metadata)
	if err != nil {
		return archived, domain.WrapError(domain.ErrPlacement, "encode sidecar", err)
	}
	if err := uc.storage.WriteFile(ctx, archived.SidecarPath, data); err != nil {
		return archived, domain.WrapError(domain.ErrPlacement, "write sidecar", err)
	}
	return archived, nil
}

// ConvertIfManual runs the format converter for placed PDF manuals.
// The boolean reports whether a conversion was attempted and succeeded.
func (uc *PlaceFileUseCase) ConvertIfManual(ctx context.Context, file domain.ArchivedFile) (string, bool, error) {
	if !uc.opts.ConvertManuals || uc.converter == nil {
		return "", false, nil
	}
	if !ShouldConvert(file.Path, file.Metadata) {
		return "", false, nil
	}
	mdPath, err := uc.converter.Convert(ctx, file.Path)
	if err != nil {
		return "", false, domain.WrapError(domain.ErrConversion, "convert "+filepath.Base(file.Path), err)
	}
	return mdPath, true, nil
}

// ShouldConvert reports whether a placed file is a PDF manual.
func ShouldConvert(placedPath string, meta domain.Metadata) bool {
	return strings.EqualFold(filepath.Ext(placedPath), ".pdf") && meta.IsManual()
}

// ResolveTargetDir maps a classifier supplied directory onto one of the two
// archive roots. Placeholder tokens are replaced by the literal root name and
// anything resolving outside both roots is rejected.
func (uc *PlaceFileUseCase) ResolveTargetDir(raw string) (string, domain.ArchiveRoot, error) {
	dir := strings.TrimSpace(raw)
	dir = strings.ReplaceAll(dir, `\`, "/")
	dir = strings.TrimLeft(dir, "/")
	if dir == "" {
		return "", "", fmt.Errorf("%w: empty target_dir", domain.ErrInvalidInput)
	}

	if rest, ok := cutPlaceholder(dir, domain.MasterPlaceholder); ok {
		dir = uc.layout.MasterDir + rest
	} else if rest, ok := cutPlaceholder(dir, domain.SurveyPlaceholder); ok {
		dir = uc.layout.SurveyDir + rest
	}

	clean := path.Clean(dir)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", fmt.Errorf("%w: target_dir %q escapes the workspace", domain.ErrInvalidInput, raw)
	}

	var root domain.ArchiveRoot
	switch {
	case withinRoot(clean, uc.layout.MasterDir):
		root = domain.RootMaster
	case withinRoot(clean, uc.layout.SurveyDir):
		root = domain.RootSurvey
	default:
		return "", "", fmt.Errorf("%w: target_dir %q is not an archive root", domain.ErrInvalidInput, raw)
	}
	return filepath.Join(uc.layout.Workspace, filepath.FromSlash(clean)), root, nil
}

func (uc *PlaceFileUseCase) moveIntoPlace(ctx context.Context, source, targetDir, filename string) (string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	target := filepath.Join(targetDir, filename)
	if uc.opts.SuffixCollisions {
		free, err := uc.freeName(ctx, targetDir, filename)
		if err != nil {
			return "", err
		}
		target = free
	}
	if err := uc.storage.Move(ctx, source, target); err != nil {
		return "", err
	}
	return target, nil
}

// freeName picks name, name-2, name-3... until neither the file nor its
// sidecar exists.
func (uc *PlaceFileUseCase) freeName(ctx context.Context, dir, filename string) (string, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		candidate := filename
		if attempt > 1 {
			candidate = stem + "-" + strconv.Itoa(attempt) + ext
		}
		full := filepath.Join(dir, candidate)
		occupied, err := uc.occupied(ctx, full)
		if err != nil {
			return "", err
		}
		if !occupied {
			return full, nil
		}
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", filename, maxNameAttempts)
}

func (uc *PlaceFileUseCase) occupied(ctx context.Context, full string) (bool, error) {
	exists, err := uc.storage.Exists(ctx, full)
	if err != nil || exists {
		return exists, err
	}
	return uc.storage.Exists(ctx, domain.SidecarPath(full))
}

func cutPlaceholder(dir, token string) (string, bool) {
	for _, variant := range []string{"${" + token + "}", "{" + token + "}", "$" + token, token} {
		if dir == variant {
			return "", true
		}
		if strings.HasPrefix(dir, variant+"/") {
			return dir[len(variant):], true
		}
	}
	return "", false
}

func withinRoot(clean, rootName string) bool {
	rootName = path.Clean(strings.ReplaceAll(rootName, `\`, "/"))
	return clean == rootName || strings.HasPrefix(clean, rootName+"/")
}

func normalizeFilename(raw string) (string, error) {
	name := strings.TrimSpace(strings.ReplaceAll(raw, `\`, "/"))
	name = path.Base(name)
	switch name {
	case "", ".", "..", "/":
		return "", errors.New("empty new_filename")
	}
	return norm.NFC.String(name), nil
}
