package conversion

import (
	"image"

	"gocv.io/x/gocv"

	"artifact-detector/internal/opencv/safe"
)

// ResizeMat resizes src to exactly newWidth x newHeight.
func ResizeMat(src *safe.Mat, newWidth, newHeight int, interpolation gocv.InterpolationFlags) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "Mat resizing"); err != nil {
		return nil, err
	}
	if err := safe.ValidateDimensions(newWidth, newHeight, "Mat resizing"); err != nil {
		return nil, err
	}

	if src.Cols() == newWidth && src.Rows() == newHeight {
		return src.Clone()
	}

	dst := gocv.NewMat()
	gocv.Resize(src.GetMat(), &dst, image.Point{X: newWidth, Y: newHeight}, 0, 0, interpolation)
	return safe.Wrap(dst)
}

// FitSize returns the size an image of width x height takes after being
// shrunk to fit within maxWidth x maxHeight, preserving aspect ratio.
// Images already inside the box keep their size.
func FitSize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	scale := float64(maxWidth) / float64(width)
	if s := float64(maxHeight) / float64(height); s < scale {
		scale = s
	}

	w := int(float64(width) * scale)
	h := int(float64(height) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// FitWithin produces a display preview of src bounded by maxWidth x maxHeight.
func FitWithin(src *safe.Mat, maxWidth, maxHeight int) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "preview"); err != nil {
		return nil, err
	}
	if err := safe.ValidateDimensions(maxWidth, maxHeight, "preview"); err != nil {
		return nil, err
	}

	w, h := FitSize(src.Cols(), src.Rows(), maxWidth, maxHeight)
	return ResizeMat(src, w, h, gocv.InterpolationArea)
}
