// Package base carries the load/analyze/save lifecycle shared by every
// artifact algorithm so each one only supplies its pixel transform.
package base

import (
	"fmt"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/opencv/conversion"
	"artifact-detector/internal/opencv/safe"
)

// ProcessFunc turns a read-only source into a newly owned artifact map.
type ProcessFunc func(src *safe.Mat) (*safe.Mat, error)

type Analyzer struct {
	name     string
	mode     imageio.Mode
	logger   logger.Logger
	source   *safe.Mat
	result   *safe.Mat
	filename string
}

func NewAnalyzer(name string, mode imageio.Mode, log logger.Logger) Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return Analyzer{name: name, mode: mode, logger: log}
}

func (a *Analyzer) GetName() string {
	return a.name
}

func (a *Analyzer) Load(path string) error {
	a.filename = path

	src, err := imageio.Load(path, a.mode)
	if err != nil {
		return err
	}

	a.source.Close()
	a.source = src
	return nil
}

// SetSource replaces the source with a clone of src. name stands in for the
// file path in failure logs.
func (a *Analyzer) SetSource(src *safe.Mat, name string) error {
	if err := safe.ValidateMatForOperation(src, a.name+" source"); err != nil {
		return err
	}
	clone, err := src.Clone()
	if err != nil {
		return err
	}
	a.source.Close()
	a.source = clone
	a.filename = name
	return nil
}

func (a *Analyzer) Source() (*safe.Mat, error) {
	if a.source == nil {
		return nil, fmt.Errorf("%s: no image loaded: %w", a.name, errs.ErrInvalidInput)
	}
	if err := safe.ValidateMatForOperation(a.source, a.name); err != nil {
		return nil, err
	}
	return a.source, nil
}

// Run applies process to the loaded source and keeps the output as the
// current result. Failures are logged with the source filename.
func (a *Analyzer) Run(process ProcessFunc) error {
	out, err := a.process(process)
	if err != nil {
		return err
	}
	a.result.Close()
	a.result = out
	return nil
}

func (a *Analyzer) process(process ProcessFunc) (*safe.Mat, error) {
	src, err := a.Source()
	if err != nil {
		return nil, err
	}

	out, err := process(src)
	if err != nil {
		a.logger.Error(a.name, err, map[string]interface{}{
			"path": a.filename,
		})
		return nil, fmt.Errorf("%s: processing %s: %w", a.name, a.filename, err)
	}
	return out, nil
}

func (a *Analyzer) Save(path string) error {
	if a.result == nil {
		return fmt.Errorf("%s: nothing analyzed yet: %w", a.name, errs.ErrInvalidInput)
	}
	return imageio.Save(path, a.result)
}

func (a *Analyzer) Result() (*safe.Mat, error) {
	if a.result == nil {
		return nil, fmt.Errorf("%s: nothing analyzed yet: %w", a.name, errs.ErrInvalidInput)
	}
	return a.result.Clone()
}

// PreviewWith runs process without touching the stored result and fits the
// output inside maxWidth x maxHeight.
func (a *Analyzer) PreviewWith(process ProcessFunc, maxWidth, maxHeight int) (*safe.Mat, error) {
	out, err := a.process(process)
	if err != nil {
		return nil, err
	}
	defer out.Close()
	return conversion.FitWithin(out, maxWidth, maxHeight)
}

func (a *Analyzer) Close() {
	a.source.Close()
	a.result.Close()
	a.source = nil
	a.result = nil
}
