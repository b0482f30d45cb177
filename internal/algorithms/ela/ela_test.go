package ela

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/testutil"
)

func TestAmplifyScalesFromReferenceChannel(t *testing.T) {
	// Two BGR pixels; channel 1 peaks at 50 so scale = 255/50 = 5.
	diff := []byte{10, 50, 100, 0, 20, 3}
	out, extrema, scale := amplify(diff, 3, 0)

	assert.Equal(t, 50, extrema)
	assert.Equal(t, 5, scale)
	assert.Equal(t, []byte{50, 250, 255, 0, 100, 15}, out)
}

func TestAmplifyZeroExtremaUsesOne(t *testing.T) {
	diff := []byte{7, 0, 9, 0, 0, 0}
	out, extrema, scale := amplify(diff, 3, 0)

	assert.Equal(t, 1, extrema)
	assert.Equal(t, 255, scale)
	assert.Equal(t, []byte{255, 0, 255, 0, 0, 0}, out)
}

func TestAmplifySquelch(t *testing.T) {
	// Extrema 255 keeps scale 1; 20% of 255 is a cutoff of 51.
	diff := []byte{50, 255, 51, 10, 100, 200}
	out, _, scale := amplify(diff, 3, 20)

	assert.Equal(t, 1, scale)
	assert.Equal(t, []byte{0, 255, 51, 0, 100, 200}, out)
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.ErrorIs(t, Params{Quality: 101}.Validate(), errs.ErrInvalidArgument)
	assert.ErrorIs(t, Params{Quality: 90, Squelch: -1}.Validate(), errs.ErrInvalidArgument)
}

func TestProcessOutputShape(t *testing.T) {
	src := testutil.RandomImage(t, 32, 48, 3, 7)

	out, err := Process(src, DefaultParams())
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 32, out.Rows())
	assert.Equal(t, 48, out.Cols())
	assert.Equal(t, 3, out.Channels())
	// Noise does not survive JPEG intact, so some residual must remain.
	nonZero := 0
	for _, v := range out.Bytes() {
		if v != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero)
}

func TestProcessAcceptsGrayscale(t *testing.T) {
	src := testutil.RandomImage(t, 16, 16, 1, 3)

	out, err := Process(src, DefaultParams())
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, 3, out.Channels())
}

func TestAnalyzerLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteRandomImage(t, dir, "in.png", 11)

	a := New(nil)
	defer a.Close()

	_, err := a.Result()
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.ErrorIs(t, a.Analyze(), errs.ErrInvalidInput)

	require.NoError(t, a.Load(path))
	dst := filepath.Join(dir, "out", "in.png")
	require.NoError(t, a.AnalyzeAndSave(dst))

	saved, err := imageio.Load(dst, imageio.Color)
	require.NoError(t, err)
	defer saved.Close()

	res, err := a.Result()
	require.NoError(t, err)
	assert.Equal(t, res.Bytes(), saved.Bytes())

	// The clone is independent of the analyzer's copy.
	res.Close()
	again, err := a.Result()
	require.NoError(t, err)
	defer again.Close()
	assert.True(t, again.IsValid())
}

func TestAnalyzerLoadRejectsEmptyPath(t *testing.T) {
	a := New(nil)
	defer a.Close()
	assert.ErrorIs(t, a.Load(""), errs.ErrInvalidInput)
}

func TestAnalyzerParameters(t *testing.T) {
	a := New(nil)
	assert.Equal(t, map[string]interface{}{"quality": 95, "squelch": 0}, a.GetDefaultParameters())

	require.NoError(t, a.SetParameters(map[string]interface{}{"quality": float64(80)}))
	assert.Equal(t, Params{Quality: 80, Squelch: 0}, a.Params())

	assert.ErrorIs(t, a.SetParameters(map[string]interface{}{"squelch": 150}), errs.ErrInvalidArgument)
	assert.ErrorIs(t, a.ValidateParameters(map[string]interface{}{"brightness": 1}), errs.ErrInvalidArgument)
	assert.Equal(t, 80, a.Params().Quality)
}

func TestAnalyzerPreviewFits(t *testing.T) {
	dir := t.TempDir()
	big := testutil.RandomImage(t, 40, 100, 3, 5)
	path := testutil.WriteImage(t, dir, "big.png", big)

	a := New(nil)
	defer a.Close()
	require.NoError(t, a.Load(path))

	p, err := a.Preview(50, 50)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 50, p.Cols())
	assert.Equal(t, 20, p.Rows())

	_, err = a.Result()
	assert.ErrorIs(t, err, errs.ErrInvalidInput, "preview must not store a result")
}
