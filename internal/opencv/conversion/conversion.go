package conversion

import (
	"fmt"

	"gocv.io/x/gocv"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/opencv/safe"
)

// ToChannels returns a copy of src with the requested channel count.
// Only 1 and 3 channel images in BGR order are supported.
func ToChannels(src *safe.Mat, channels int) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "channel conversion"); err != nil {
		return nil, err
	}

	have := src.Channels()
	if have == channels {
		return src.Clone()
	}

	var code gocv.ColorConversionCode
	switch {
	case have == 3 && channels == 1:
		code = gocv.ColorBGRToGray
	case have == 1 && channels == 3:
		code = gocv.ColorGrayToBGR
	case have == 4 && channels == 3:
		code = gocv.ColorBGRAToBGR
	case have == 4 && channels == 1:
		code = gocv.ColorBGRAToGray
	default:
		return nil, fmt.Errorf("unsupported channel conversion %d -> %d: %w", have, channels, errs.ErrInvalidArgument)
	}

	dst := gocv.NewMat()
	gocv.CvtColor(src.GetMat(), &dst, code)
	return safe.Wrap(dst)
}

// ScaleToByte linearly maps values onto 0..255 so that the minimum becomes 0
// and the maximum 255. A constant plane maps to all zeros.
func ScaleToByte(values []float64) []byte {
	out := make([]byte, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return out
	}

	scale := 255 / (hi - lo)
	for i, v := range values {
		out[i] = clampByte((v - lo) * scale)
	}
	return out
}

func clampByte(v float64) byte {
	v += 0.5
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
