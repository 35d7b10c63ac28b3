package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"defectlog/internal/utils"
	"defectlog/pkg/types"
)

const PhotoDirName = "defect_photos"

// PhotoLibrary stores captured photos under <dataDir>/defect_photos with
// generated file names.
type PhotoLibrary struct {
	dir string
}

func NewPhotoLibrary(dataDir string) *PhotoLibrary {
	return &PhotoLibrary{dir: filepath.Join(dataDir, PhotoDirName)}
}

func (l *PhotoLibrary) Dir() string {
	return l.dir
}

// CheckSource fails with a validation error unless path names a readable
// regular file.
func CheckSource(path string) error {
	if strings.TrimSpace(path) == "" {
		return types.NewValidationError("photoPath", "a photo is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.NewValidationError("photoPath", fmt.Sprintf("photo %s does not exist", path))
		}
		return types.NewValidationError("photoPath", fmt.Sprintf("photo %s is not readable: %v", path, err))
	}
	if !info.Mode().IsRegular() {
		return types.NewValidationError("photoPath", fmt.Sprintf("photo %s is not a file", path))
	}

	return nil
}

// CopyFile copies the photo at src into the library and returns the stored
// path.
func (l *PhotoLibrary) CopyFile(ctx context.Context, src string) (string, error) {
	if err := CheckSource(src); err != nil {
		return "", err
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	return l.UploadFile(ctx, filepath.Ext(src), f)
}

// UploadFile writes the content of r into the library under a new name with
// the given extension and returns the stored path.
func (l *PhotoLibrary) UploadFile(ctx context.Context, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}

	path := filepath.Join(l.dir, fmt.Sprintf("defect_%s%s", utils.NanoID(), photoExt(ext)))

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write photo: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write photo: %w", err)
	}

	return path, nil
}

// DeleteFile removes a stored photo. Paths outside the library are left
// alone and a missing file is not an error.
func (l *PhotoLibrary) DeleteFile(path string) error {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func photoExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".heic", ".webp":
		return ext
	case "jpg", "jpeg", "png", "heic", "webp":
		return "." + ext
	default:
		return ".jpg"
	}
}
