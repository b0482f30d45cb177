package safe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"artifact-detector/internal/errs"
)

func TestNewMatFromBytesOwnsPixels(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6}
	m, err := NewMatFromBytes(2, 3, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	defer m.Close()

	data[0] = 99
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, m.Bytes())
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, 1, m.Channels())
}

func TestCloneIsIndependent(t *testing.T) {
	m, err := NewMatFromBytes(1, 2, gocv.MatTypeCV8UC1, []byte{7, 8})
	require.NoError(t, err)
	defer m.Close()

	c, err := m.Clone()
	require.NoError(t, err)
	m.Close()

	assert.False(t, m.IsValid())
	assert.True(t, c.IsValid())
	assert.Equal(t, []byte{7, 8}, c.Bytes())
	c.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	m, err := NewMatFromBytes(1, 1, gocv.MatTypeCV8UC1, []byte{0})
	require.NoError(t, err)
	m.Close()
	m.Close()

	_, err = m.Clone()
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestWrapRejectsEmpty(t *testing.T) {
	_, err := Wrap(gocv.NewMat())
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestValidators(t *testing.T) {
	assert.ErrorIs(t, ValidateMatForOperation(nil, "op"), errs.ErrInvalidInput)
	assert.ErrorIs(t, ValidateDimensions(0, 10, "op"), errs.ErrInvalidArgument)
	assert.ErrorIs(t, ValidateDimensions(10, 40000, "op"), errs.ErrInvalidArgument)
	assert.NoError(t, ValidateDimensions(10, 10, "op"))
}
