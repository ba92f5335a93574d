package gateway

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageWritesUniqueFilesInsideDir(t *testing.T) {
	dir := t.TempDir()
	stager := &Stager{Dir: dir}

	first, err := stager.Stage(strings.NewReader("one"), "same.txt")
	require.NoError(t, err)
	second, err := stager.Stage(strings.NewReader("two"), "same.txt")
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, dir, filepath.Dir(first.Path))
	assert.True(t, strings.HasSuffix(first.Path, "_same.txt"))
	assert.Equal(t, int64(3), first.Size)
	assert.Equal(t, int64(2), stager.Active())

	r, err := second.Open()
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "two", string(content))

	require.NoError(t, first.Cleanup())
	require.NoError(t, second.Cleanup())
	assert.Equal(t, int64(0), stager.Active())
}

func TestStageContainsTraversalNames(t *testing.T) {
	dir := t.TempDir()
	stager := &Stager{Dir: dir}

	for _, name := range []string{"../../etc/passwd", `..\..\evil.txt`, "..", ""} {
		staged, err := stager.Stage(strings.NewReader("x"), name)
		require.NoError(t, err, name)
		assert.Equal(t, dir, filepath.Dir(staged.Path), name)
		assert.Equal(t, name, staged.Filename)
		require.NoError(t, staged.Cleanup())
	}
}

func TestCleanupRunsOnce(t *testing.T) {
	stager := &Stager{Dir: t.TempDir()}
	staged, err := stager.Stage(strings.NewReader("data"), "f.txt")
	require.NoError(t, err)

	require.NoError(t, staged.Cleanup())
	_, err = os.Stat(staged.Path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, staged.Cleanup())
	assert.Equal(t, int64(0), stager.Active())
}

func TestCleanupToleratesMissingFile(t *testing.T) {
	stager := &Stager{Dir: t.TempDir()}
	staged, err := stager.Stage(strings.NewReader("data"), "f.txt")
	require.NoError(t, err)

	require.NoError(t, os.Remove(staged.Path))
	require.NoError(t, staged.Cleanup())
}

func TestStagerWritable(t *testing.T) {
	require.NoError(t, (&Stager{Dir: t.TempDir()}).Writable())
	require.Error(t, (&Stager{Dir: filepath.Join(t.TempDir(), "missing")}).Writable())
}
