// Package algorithms enumerates the artifact extractors and builds fresh,
// configured instances of them.
package algorithms

import (
	"fmt"
	"strings"

	"artifact-detector/internal/algorithms/ela"
	"artifact-detector/internal/algorithms/luminance"
	"artifact-detector/internal/algorithms/pca"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/logger"
)

// ID names an algorithm. It doubles as the top-level directory name of a
// derived dataset.
type ID string

const (
	ELA ID = ela.Name
	PCA ID = pca.Name
	LG  ID = luminance.Name
)

// All returns every algorithm in canonical order.
func All() []ID {
	return []ID{ELA, PCA, LG}
}

func (id ID) String() string {
	return string(id)
}

func (id ID) Description() string {
	switch id {
	case ELA:
		return "Error-level Analysis"
	case PCA:
		return "Principal Component Analysis"
	case LG:
		return "Luminance Gradient"
	default:
		return "Unknown"
	}
}

// ParseID matches s against the known identifiers ignoring case.
func ParseID(s string) (ID, error) {
	for _, id := range All() {
		if strings.EqualFold(s, string(id)) {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q: %w", s, errs.ErrInvalidArgument)
}

// New returns a freshly constructed instance with default parameters.
func New(id ID) (Algorithm, error) {
	return NewWithLogger(id, logger.Nop())
}

func NewWithLogger(id ID, log logger.Logger) (Algorithm, error) {
	switch id {
	case ELA:
		return ela.New(log), nil
	case PCA:
		return pca.New(log), nil
	case LG:
		return luminance.New(log), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q: %w", string(id), errs.ErrInvalidArgument)
	}
}

var (
	_ Algorithm = (*ela.Analyzer)(nil)
	_ Algorithm = (*pca.Analyzer)(nil)
	_ Algorithm = (*luminance.Analyzer)(nil)
)
