// Package imageio loads and persists images through OpenCV's codecs.
package imageio

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/opencv/safe"
)

// Mode selects how an image file is decoded.
type Mode int

const (
	Color Mode = iota
	Grayscale
	Unchanged
)

func (m Mode) flag() gocv.IMReadFlag {
	switch m {
	case Grayscale:
		return gocv.IMReadGrayScale
	case Unchanged:
		return gocv.IMReadUnchanged
	default:
		return gocv.IMReadColor
	}
}

// Load decodes the image at path. An empty path, a missing file or a file
// OpenCV cannot decode all fail with errs.ErrInvalidInput.
func Load(path string, mode Mode) (*safe.Mat, error) {
	if path == "" {
		return nil, fmt.Errorf("empty image path: %w", errs.ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %v: %w", path, err, errs.ErrInvalidInput)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, errs.ErrInvalidInput)
	}

	m := gocv.IMRead(path, mode.flag())
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("cannot decode image %s: %w", path, errs.ErrInvalidInput)
	}
	return safe.Wrap(m)
}

// Decode decodes an in-memory encoded image.
func Decode(data []byte, mode Mode) (*safe.Mat, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image buffer: %w", errs.ErrInvalidInput)
	}
	m, err := gocv.IMDecode(data, mode.flag())
	if err != nil {
		return nil, fmt.Errorf("cannot decode image buffer: %v: %w", err, errs.ErrInvalidInput)
	}
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("cannot decode image buffer: %w", errs.ErrInvalidInput)
	}
	return safe.Wrap(m)
}
