package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/testutil"
)

func TestScoresDecisions(t *testing.T) {
	assert.Equal(t, "fake", Scores{Fake: 0.6, Real: 0.4}.Verdict())
	assert.Equal(t, "real", Scores{Fake: 0.2, Real: 0.8}.Verdict())
	assert.Equal(t, Indeterminate, Scores{Fake: 0.5, Real: 0.5}.Verdict())
	assert.Equal(t, Indeterminate, Scores{}.Verdict())

	assert.Equal(t, Real, Scores{Fake: 0.2, Real: 0.8}.ArgMax())
	assert.Equal(t, Fake, Scores{Fake: 0.5, Real: 0.5}.ArgMax())
	assert.Equal(t, 0.8, Scores{Fake: 0.2, Real: 0.8}.Max())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []string{"fake", "real"}, Labels())
	labels := Labels()
	labels[0] = "changed"
	assert.Equal(t, "fake", Labels()[Fake])
}

func TestShapeFor(t *testing.T) {
	assert.Equal(t, InputShape{Width: 256, Height: 256, Channels: 1}, ShapeFor(algorithms.PCA, 256, 256))
	assert.Equal(t, 3, ShapeFor(algorithms.ELA, 256, 256).Channels)
	assert.Equal(t, 3, ShapeFor(algorithms.LG, 256, 256).Channels)
}

func TestPrepare(t *testing.T) {
	src := testutil.RandomImage(t, 40, 30, 3, 1)

	gray, err := Prepare(src, InputShape{Width: 16, Height: 8, Channels: 1})
	require.NoError(t, err)
	defer gray.Close()
	assert.Equal(t, 16, gray.Cols())
	assert.Equal(t, 8, gray.Rows())
	assert.Equal(t, 1, gray.Channels())

	single := testutil.RandomImage(t, 10, 10, 1, 2)
	color, err := Prepare(single, InputShape{Width: 10, Height: 10, Channels: 3})
	require.NoError(t, err)
	defer color.Close()
	assert.Equal(t, 3, color.Channels())

	_, err = Prepare(src, InputShape{Width: 0, Height: 8, Channels: 1})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = Prepare(src, InputShape{Width: 8, Height: 8, Channels: 2})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
