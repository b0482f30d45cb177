package imageio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/opencv/safe"
)

// Save encodes m with the codec implied by the extension of path.
// The parent directory is created if absent.
func Save(path string, m *safe.Mat) error {
	if err := safe.ValidateMatForOperation(m, "save"); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("empty destination path: %w", errs.ErrInvalidArgument)
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	data, err := Encode(m, formatFor(path))
	if err != nil {
		return err
	}

	// Write through a temp file so a concurrent reader never sees a partial image.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %v: %w", path, err, errs.ErrIOFailure)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %v: %w", path, err, errs.ErrIOFailure)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %v: %w", path, err, errs.ErrIOFailure)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %v: %w", path, err, errs.ErrIOFailure)
	}
	return nil
}

// Encode serialises m in the given container format.
func Encode(m *safe.Mat, ext gocv.FileExt) ([]byte, error) {
	if err := safe.ValidateMatForOperation(m, "encode"); err != nil {
		return nil, err
	}
	buf, err := gocv.IMEncode(ext, m.GetMat())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %v: %w", ext, err, errs.ErrIOFailure)
	}
	defer buf.Close()

	raw := buf.GetBytes()
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// EnsureDir creates dir and its parents. It succeeds when dir already
// exists, including when another worker created it concurrently.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %v: %w", dir, err, errs.ErrIOFailure)
	}
	return nil
}

// Exists reports whether a regular file is present at path.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %v: %w", path, err, errs.ErrIOFailure)
}

func formatFor(path string) gocv.FileExt {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return gocv.JPEGFileExt
	case ".png":
		return gocv.PNGFileExt
	case ".bmp":
		return gocv.FileExt(".bmp")
	case ".tif", ".tiff":
		return gocv.FileExt(".tiff")
	case ".webp":
		return gocv.FileExt(".webp")
	default:
		return gocv.PNGFileExt
	}
}
