package base

import (
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/opencv/safe"
)

// Parameters is implemented by each algorithm's typed parameter set.
type Parameters[P any] interface {
	Validate() error
	ToMap() map[string]interface{}
	// Merge returns a copy with the given overrides applied and validated.
	Merge(params map[string]interface{}) (P, error)
}

// Transform is an algorithm's pure pixel transform.
type Transform[P any] func(src *safe.Mat, p P) (*safe.Mat, error)

// Tunable is an Analyzer driven by a typed parameter set. Algorithms embed
// it to get the full parameter and lifecycle surface.
type Tunable[P Parameters[P]] struct {
	Analyzer
	defaults  P
	params    P
	transform Transform[P]
}

func NewTunable[P Parameters[P]](name string, mode imageio.Mode, log logger.Logger, defaults P, transform Transform[P]) Tunable[P] {
	return Tunable[P]{
		Analyzer:  NewAnalyzer(name, mode, log),
		defaults:  defaults,
		params:    defaults,
		transform: transform,
	}
}

func (t *Tunable[P]) GetDefaultParameters() map[string]interface{} {
	return t.defaults.ToMap()
}

func (t *Tunable[P]) GetParameters() map[string]interface{} {
	return t.params.ToMap()
}

func (t *Tunable[P]) ValidateParameters(params map[string]interface{}) error {
	_, err := t.params.Merge(params)
	return err
}

func (t *Tunable[P]) SetParameters(params map[string]interface{}) error {
	p, err := t.params.Merge(params)
	if err != nil {
		return err
	}
	t.params = p
	return nil
}

func (t *Tunable[P]) Params() P {
	return t.params
}

func (t *Tunable[P]) SetParams(p P) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.params = p
	return nil
}

func (t *Tunable[P]) Analyze() error {
	return t.Run(t.apply)
}

func (t *Tunable[P]) AnalyzeAndSave(path string) error {
	if err := t.Analyze(); err != nil {
		return err
	}
	return t.Save(path)
}

func (t *Tunable[P]) Preview(maxWidth, maxHeight int) (*safe.Mat, error) {
	return t.PreviewWith(t.apply, maxWidth, maxHeight)
}

func (t *Tunable[P]) apply(src *safe.Mat) (*safe.Mat, error) {
	return t.transform(src, t.params)
}
