// Package luminance renders first-derivative luminance gradients. Light
// direction inconsistencies between spliced regions show up as colour
// shifts in the gradient map.
package luminance

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

const Name = "LG"

// Normalize modes.
const (
	// NormalizeOff leaves the magnitude channel empty.
	NormalizeOff = 0
	// NormalizeInverse masks strong gradients dark and weak ones bright.
	NormalizeInverse = 1
	// NormalizeBinary masks strong gradients bright. Every mode above 1
	// behaves the same way.
	NormalizeBinary = 2
)

type Params struct {
	Equalize      bool
	NormalizeMode int
	// Threshold is the 0..255 magnitude level used when NormalizeMode > 0.
	// Values strictly above it count as strong gradients.
	Threshold int
}

func DefaultParams() Params {
	return Params{Equalize: true, NormalizeMode: NormalizeOff, Threshold: 100}
}

func (p Params) Validate() error {
	if p.NormalizeMode < NormalizeOff {
		return fmt.Errorf("normalize must not be negative, got %d: %w", p.NormalizeMode, errs.ErrInvalidArgument)
	}
	return base.RangeCheck("threshold", p.Threshold, 0, 255)
}

// Process returns a 3-channel gradient map of src: channel 0 is the
// thresholded magnitude mask (or zero), channel 1 the Y gradient and
// channel 2 the X gradient.
func Process(src *safe.Mat, p Params) (*safe.Mat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	gray, err := conversion.ToChannels(src, 1)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	gocv.Sobel(gray.GetMat(), &gradX, gocv.MatTypeCV32F, 1, 0, 1, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray.GetMat(), &gradY, gocv.MatTypeCV32F, 0, 1, 1, 1, 0, gocv.BorderDefault)
	gocv.Normalize(gradX, &gradX, 0, 1, gocv.NormMinMax)
	gocv.Normalize(gradY, &gradY, 0, 1, gocv.NormMinMax)

	mask := magnitudeMask(gradX, gradY, gray.Rows(), gray.Cols(), p)
	defer mask.Close()

	x := toByte(gradX, p.Equalize)
	defer x.Close()
	y := toByte(gradY, p.Equalize)
	defer y.Close()

	out := gocv.NewMat()
	gocv.Merge([]gocv.Mat{mask, y, x}, &out)
	return safe.Wrap(out)
}

func magnitudeMask(gradX, gradY gocv.Mat, rows, cols int, p Params) gocv.Mat {
	if p.NormalizeMode == NormalizeOff {
		return gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	}

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(gradX, gradY, &mag)

	scaled := toByte(mag, false)
	defer scaled.Close()

	kind := gocv.ThresholdBinary
	if p.NormalizeMode == NormalizeInverse {
		kind = gocv.ThresholdBinaryInv
	}

	mask := gocv.NewMat()
	gocv.Threshold(scaled, &mask, float32(p.Threshold), 255, kind)
	return mask
}

// toByte min-max stretches a float plane onto 0..255 as CV_8U.
func toByte(plane gocv.Mat, equalize bool) gocv.Mat {
	stretched := gocv.NewMat()
	defer stretched.Close()
	gocv.Normalize(plane, &stretched, 0, 255, gocv.NormMinMax)

	out := gocv.NewMat()
	stretched.ConvertTo(&out, gocv.MatTypeCV8U)
	if !equalize {
		return out
	}

	equalized := gocv.NewMat()
	gocv.EqualizeHist(out, &equalized)
	out.Close()
	return equalized
}

// Analyzer is the stateful luminance-gradient variant. Use one instance
// per image.
type Analyzer struct {
	base.Tunable[Params]
}

func New(log logger.Logger) *Analyzer {
	return &Analyzer{
		Tunable: base.NewTunable(Name, imageio.Grayscale, log, DefaultParams(), Process),
	}
}

func (p Params) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"equalize":  p.Equalize,
		"normalize": p.NormalizeMode,
		"threshold": p.Threshold,
	}
}

func (p Params) Merge(params map[string]interface{}) (Params, error) {
	if err := base.UnknownKeys(params, "equalize", "normalize", "threshold"); err != nil {
		return p, err
	}
	if v, ok, err := base.BoolParam(params, "equalize"); err != nil {
		return p, err
	} else if ok {
		p.Equalize = v
	}
	if v, ok, err := base.IntParam(params, "normalize"); err != nil {
		return p, err
	} else if ok {
		p.NormalizeMode = v
	}
	if v, ok, err := base.IntParam(params, "threshold"); err != nil {
		return p, err
	} else if ok {
		p.Threshold = v
	}
	return p, p.Validate()
}
