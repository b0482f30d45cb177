// Package testutil synthesises image fixtures for package tests.
package testutil

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"artifact-detector/internal/imageio"
	"artifact-detector/internal/opencv/safe"
)

func matType(channels int) gocv.MatType {
	if channels == 1 {
		return gocv.MatTypeCV8UC1
	}
	return gocv.MatTypeCV8UC3
}

// RandomImage returns a seeded noise image with 1 or 3 channels.
func RandomImage(t testing.TB, rows, cols, channels int, seed int64) *safe.Mat {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, rows*cols*channels)
	rng.Read(data)

	m, err := safe.NewMatFromBytes(rows, cols, matType(channels), data)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

// UniformImage returns an image where every channel of every pixel is v.
func UniformImage(t testing.TB, rows, cols, channels int, v byte) *safe.Mat {
	t.Helper()
	data := make([]byte, rows*cols*channels)
	for i := range data {
		data[i] = v
	}

	m, err := safe.NewMatFromBytes(rows, cols, matType(channels), data)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

// WriteImage saves m under dir/name and returns the full path.
func WriteImage(t testing.TB, dir, name string, m *safe.Mat) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, imageio.Save(path, m))
	return path
}

// WriteRandomImage writes a seeded color PNG and returns its path.
func WriteRandomImage(t testing.TB, dir, name string, seed int64) string {
	t.Helper()
	return WriteImage(t, dir, name, RandomImage(t, 24, 32, 3, seed))
}
