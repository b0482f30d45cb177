// Package pca projects each pixel's colour vector onto the principal axes
// of the image's channel covariance. Decorrelated components surface
// colour inconsistencies that are hard to see in BGR.
package pca

import (
	"fmt"

	"gocv.io/x/gocv"

	"artifact-detector/internal/algorithms/base"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/opencv/conversion"
	"artifact-detector/internal/opencv/safe"
)

const (
	Name       = "PCA"
	components = 3
)

type Params struct {
	// Component selects the principal axis, 0 being the highest variance.
	Component int
	// Invert bitwise-complements the selected component.
	Invert bool
}

func DefaultParams() Params {
	return Params{Component: 1}
}

func (p Params) Validate() error {
	return base.RangeCheck("component", p.Component, 0, components-1)
}

// Components returns all three rescaled component planes of src, ordered
// by descending explained variance.
func Components(src *safe.Mat) ([components][]byte, error) {
	var planes [components][]byte

	color, err := conversion.ToChannels(src, 3)
	if err != nil {
		return planes, err
	}
	defer color.Close()

	data := color.Bytes()
	n := len(data) / components
	if n == 0 {
		return planes, fmt.Errorf("pca: image has no pixels: %w", errs.ErrInvalidInput)
	}

	mean, cov := covariance(data, n)
	axes, err := principalAxes(cov)
	if err != nil {
		return planes, err
	}

	projected := make([][]float64, components)
	for k := range projected {
		projected[k] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		px := data[i*components : i*components+components]
		var centred [components]float64
		for c := 0; c < components; c++ {
			centred[c] = float64(px[c]) - mean[c]
		}
		for k := 0; k < components; k++ {
			projected[k][i] = axes[k][0]*centred[0] + axes[k][1]*centred[1] + axes[k][2]*centred[2]
		}
	}

	for k := range planes {
		planes[k] = conversion.ScaleToByte(projected[k])
	}
	return planes, nil
}

// Process returns the selected component of src as a single-channel image.
func Process(src *safe.Mat, p Params) (*safe.Mat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	planes, err := Components(src)
	if err != nil {
		return nil, err
	}

	out, err := safe.NewMatFromBytes(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, planes[p.Component])
	if err != nil {
		return nil, err
	}
	if !p.Invert {
		return out, nil
	}
	defer out.Close()

	inverted := gocv.NewMat()
	gocv.BitwiseNot(out.GetMat(), &inverted)
	return safe.Wrap(inverted)
}

func covariance(data []byte, n int) ([components]float64, [components][components]float64) {
	var mean [components]float64
	var cov [components][components]float64

	for i := 0; i < n; i++ {
		for c := 0; c < components; c++ {
			mean[c] += float64(data[i*components+c])
		}
	}
	for c := range mean {
		mean[c] /= float64(n)
	}

	for i := 0; i < n; i++ {
		var d [components]float64
		for c := 0; c < components; c++ {
			d[c] = float64(data[i*components+c]) - mean[c]
		}
		for r := 0; r < components; r++ {
			for c := r; c < components; c++ {
				cov[r][c] += d[r] * d[c]
			}
		}
	}
	for r := 0; r < components; r++ {
		for c := r; c < components; c++ {
			cov[r][c] /= float64(n)
			cov[c][r] = cov[r][c]
		}
	}
	return mean, cov
}

// principalAxes returns the eigenvectors of cov as rows, sorted by
// descending eigenvalue.
func principalAxes(cov [components][components]float64) ([components][components]float64, error) {
	var axes [components][components]float64

	m := gocv.NewMatWithSize(components, components, gocv.MatTypeCV64F)
	defer m.Close()
	for r := 0; r < components; r++ {
		for c := 0; c < components; c++ {
			m.SetDoubleAt(r, c, cov[r][c])
		}
	}

	values := gocv.NewMat()
	defer values.Close()
	vectors := gocv.NewMat()
	defer vectors.Close()

	if !gocv.Eigen(m, &values, &vectors) || vectors.Rows() != components {
		return axes, fmt.Errorf("pca: eigen decomposition failed: %w", errs.ErrInvalidInput)
	}

	for r := 0; r < components; r++ {
		for c := 0; c < components; c++ {
			axes[r][c] = vectors.GetDoubleAt(r, c)
		}
	}
	return axes, nil
}

// Analyzer is the stateful PCA variant. Use one instance per image.
type Analyzer struct {
	base.Tunable[Params]
}

func New(log logger.Logger) *Analyzer {
	return &Analyzer{
		Tunable: base.NewTunable(Name, imageio.Color, log, DefaultParams(), Process),
	}
}

func (p Params) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"component": p.Component,
		"invert":    p.Invert,
	}
}

func (p Params) Merge(params map[string]interface{}) (Params, error) {
	if err := base.UnknownKeys(params, "component", "invert"); err != nil {
		return p, err
	}
	if v, ok, err := base.IntParam(params, "component"); err != nil {
		return p, err
	} else if ok {
		p.Component = v
	}
	if v, ok, err := base.BoolParam(params, "invert"); err != nil {
		return p, err
	} else if ok {
		p.Invert = v
	}
	return p, p.Validate()
}
