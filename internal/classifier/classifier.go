// Package classifier defines how derived artifact maps are scored as fake
// or real. The model itself lives behind the Classifier interface.
package classifier

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/opencv/conversion"
	"artifact-detector/internal/opencv/safe"
)

// Label indices, in classifier output order.
const (
	Fake = 0
	Real = 1
)

// Indeterminate is the verdict for tied scores.
const Indeterminate = "indeterminate"

var labels = []string{"fake", "real"}

// Labels returns the class labels in output order.
func Labels() []string {
	return append([]string(nil), labels...)
}

// Scores is one classifier output pair.
type Scores struct {
	Fake float64 `json:"fake"`
	Real float64 `json:"real"`
}

// ArgMax returns the index of the highest score. Ties go to Fake.
func (s Scores) ArgMax() int {
	if s.Real > s.Fake {
		return Real
	}
	return Fake
}

// Verdict names the winning label, or Indeterminate on a tie.
func (s Scores) Verdict() string {
	switch {
	case s.Fake > s.Real:
		return labels[Fake]
	case s.Real > s.Fake:
		return labels[Real]
	default:
		return Indeterminate
	}
}

// Max returns the higher of the two scores.
func (s Scores) Max() float64 {
	if s.Real > s.Fake {
		return s.Real
	}
	return s.Fake
}

// InputShape is the image geometry a classifier accepts.
type InputShape struct {
	Width    int
	Height   int
	Channels int
}

func (s InputShape) Validate() error {
	if err := safe.ValidateDimensions(s.Width, s.Height, "classifier input"); err != nil {
		return err
	}
	if s.Channels != 1 && s.Channels != 3 {
		return fmt.Errorf("classifier input needs 1 or 3 channels, got %d: %w", s.Channels, errs.ErrInvalidArgument)
	}
	return nil
}

// ShapeFor returns the input geometry of id's classifier. The PCA model
// is trained on single-channel component images.
func ShapeFor(id algorithms.ID, width, height int) InputShape {
	channels := 3
	if id == algorithms.PCA {
		channels = 1
	}
	return InputShape{Width: width, Height: height, Channels: channels}
}

// Classifier scores derived images. Implementations may block.
type Classifier interface {
	InputShape() InputShape
	Predict(ctx context.Context, img *safe.Mat) (Scores, error)
}

// Prepare returns a copy of img converted to shape's channel count and
// resized to its geometry.
func Prepare(img *safe.Mat, shape InputShape) (*safe.Mat, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	adapted, err := conversion.ToChannels(img, shape.Channels)
	if err != nil {
		return nil, err
	}
	defer adapted.Close()

	return conversion.ResizeMat(adapted, shape.Width, shape.Height, gocv.InterpolationLinear)
}
