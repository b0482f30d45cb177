package algorithms

import (
	"artifact-detector/internal/opencv/safe"
)

// Algorithm is one artifact extractor. An instance owns its source and
// result buffers and must not be shared between images or goroutines.
type Algorithm interface {
	GetName() string
	GetDefaultParameters() map[string]interface{}
	GetParameters() map[string]interface{}
	ValidateParameters(params map[string]interface{}) error
	SetParameters(params map[string]interface{}) error

	// Load decodes the source image. Empty paths and undecodable or empty
	// images fail with errs.ErrInvalidInput.
	Load(path string) error
	// SetSource uses a clone of src as the source; name labels it in logs.
	SetSource(src *safe.Mat, name string) error
	// Analyze derives the artifact map from the loaded source.
	Analyze() error
	// AnalyzeAndSave runs Analyze and persists the result at path.
	AnalyzeAndSave(path string) error
	// Result returns a clone of the last artifact map; the caller owns it.
	Result() (*safe.Mat, error)
	// Preview analyzes the source and shrinks the output to fit the box.
	Preview(maxWidth, maxHeight int) (*safe.Mat, error)
	Close()
}
