package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/testutil"
)

func TestParseParam(t *testing.T) {
	id, name, v, err := parseParam("ela.quality=80")
	require.NoError(t, err)
	assert.Equal(t, algorithms.ELA, id)
	assert.Equal(t, "quality", name)
	assert.Equal(t, 80, v)

	_, _, v, err = parseParam("PCA.invert=true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	for _, bad := range []string{"quality=80", "ELA=1", "ELA.=1", "XYZ.a=1"} {
		_, _, _, err := parseParam(bad)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, bad)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(nil)
	require.NoError(t, err)
	assert.Equal(t, algorithms.All(), ids)

	ids, err = parseIDs([]string{"lg", " ela"})
	require.NoError(t, err)
	assert.Equal(t, []algorithms.ID{algorithms.LG, algorithms.ELA}, ids)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	defer a.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestProcessCommand(t *testing.T) {
	src := t.TempDir()
	testutil.WriteRandomImage(t, src, "x.png", 1)
	dst := t.TempDir()

	out, err := execute(t, "process", "--algorithms", "ELA,LG", "--param", "LG.normalize=1", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "written 2, skipped 0, failed 0")
	assert.FileExists(t, filepath.Join(dst, "ELA", "x.png"))
	assert.FileExists(t, filepath.Join(dst, "LG", "x.png"))
	assert.NoDirExists(t, filepath.Join(dst, "PCA"))
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteRandomImage(t, dir, "x.png", 2)
	outPath := filepath.Join(dir, "out", "pca.png")

	out, err := execute(t, "analyze", "-a", "pca", "--param", "PCA.component=0", in, outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Principal Component Analysis")
	assert.FileExists(t, outPath)

	_, err = execute(t, "analyze", "--param", "PCA.component=9", in, outPath)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
