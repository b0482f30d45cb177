package imageio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/opencv/safe"
)

func gradient(t *testing.T, rows, cols int) *safe.Mat {
	t.Helper()
	data := make([]byte, rows*cols*3)
	for i := range data {
		data[i] = byte(i % 251)
	}
	m, err := safe.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	return m
}

func TestSaveAndLoadRoundTripPNG(t *testing.T) {
	src := gradient(t, 8, 12)
	defer src.Close()

	path := filepath.Join(t.TempDir(), "nested", "dir", "out.png")
	require.NoError(t, Save(path, src))

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := Load(path, Color)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, src.Bytes(), loaded.Bytes())

	gray, err := Load(path, Grayscale)
	require.NoError(t, err)
	defer gray.Close()
	assert.Equal(t, 1, gray.Channels())
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load("", Color)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	dir := t.TempDir()
	_, err = Load(filepath.Join(dir, "missing.jpg"), Color)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	junk := filepath.Join(dir, "junk.jpg")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, err = Load(junk, Color)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = Load(dir, Color)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestEnsureDirIsRaceSafe(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	var wg sync.WaitGroup
	errCh := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- EnsureDir(dir)
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		assert.NoError(t, err)
	}
}

func TestExistsIgnoresDirectories(t *testing.T) {
	ok, err := Exists(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeEncodedBuffer(t *testing.T) {
	src := gradient(t, 4, 4)
	defer src.Close()

	data, err := Encode(src, gocv.PNGFileExt)
	require.NoError(t, err)

	m, err := Decode(data, Unchanged)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, src.Bytes(), m.Bytes())

	_, err = Decode(nil, Color)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}
