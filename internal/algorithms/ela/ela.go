// Package ela implements error-level analysis: the image is recompressed
// as JPEG and the amplified residual exposes regions whose compression
// history differs from the rest of the picture.
package ela

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

const Name = "ELA"

// referenceChannel is the channel whose peak residual sets the brightness
// scale for all channels.
const referenceChannel = 1

type Params struct {
	// Quality is the JPEG quality used for the recompression pass.
	Quality int
	// Squelch is a percentage of full scale below which residuals are zeroed.
	Squelch int
}

func DefaultParams() Params {
	return Params{Quality: 95, Squelch: 0}
}

func (p Params) Validate() error {
	if err := base.RangeCheck("quality", p.Quality, 0, 100); err != nil {
		return err
	}
	return base.RangeCheck("squelch", p.Squelch, 0, 100)
}

// Process returns the amplified recompression residual of src as a new
// 3-channel image. src is not modified.
func Process(src *safe.Mat, p Params) (*safe.Mat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	color, err := conversion.ToChannels(src, 3)
	if err != nil {
		return nil, err
	}
	defer color.Close()

	reencoded, err := recompress(color, p.Quality)
	if err != nil {
		return nil, err
	}
	defer reencoded.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	// Subtract saturates, so pixels that brightened on recompression read 0.
	gocv.Subtract(color.GetMat(), reencoded.GetMat(), &diff)

	out, _, _ := amplify(diff.ToBytes(), 3, p.Squelch)
	return safe.NewMatFromBytes(color.Rows(), color.Cols(), gocv.MatTypeCV8UC3, out)
}

func recompress(src *safe.Mat, quality int) (*safe.Mat, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src.GetMat(), []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("jpeg recompression failed: %v: %w", err, errs.ErrInvalidInput)
	}
	defer buf.Close()

	return imageio.Decode(buf.GetBytes(), imageio.Color)
}

// amplify scales interleaved residuals so the reference channel's peak maps
// to 255, then zeroes values under the squelch cutoff. It returns the new
// buffer with the observed extrema and integer scale.
func amplify(diff []byte, channels, squelch int) ([]byte, int, int) {
	ref := referenceChannel
	if ref >= channels {
		ref = 0
	}

	extrema := 0
	for i := ref; i < len(diff); i += channels {
		if v := int(diff[i]); v > extrema {
			extrema = v
		}
	}
	if extrema == 0 {
		extrema = 1
	}
	scale := 255 / extrema

	cutoff := squelch * 255 / 100
	out := make([]byte, len(diff))
	for i, v := range diff {
		scaled := int(v) * scale
		if scaled > 255 {
			scaled = 255
		}
		if squelch > 0 && scaled < cutoff {
			scaled = 0
		}
		out[i] = byte(scaled)
	}
	return out, extrema, scale
}

// Analyzer is the stateful ELA variant. Use one instance per image.
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
		"quality": p.Quality,
		"squelch": p.Squelch,
	}
}

func (p Params) Merge(params map[string]interface{}) (Params, error) {
	if err := base.UnknownKeys(params, "quality", "squelch"); err != nil {
		return p, err
	}
	if v, ok, err := base.IntParam(params, "quality"); err != nil {
		return p, err
	} else if ok {
		p.Quality = v
	}
	if v, ok, err := base.IntParam(params, "squelch"); err != nil {
		return p, err
	} else if ok {
		p.Squelch = v
	}
	return p, p.Validate()
}
