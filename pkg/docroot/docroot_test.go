package docroot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupRoot(t *testing.T) *Root {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "index.html"), []byte("<p>hi</p>"), 0o644))

	r, err := New(dir, "index.html")
	require.NoError(t, err)
	return r
}

func TestResolveWithinRoot(t *testing.T) {
	r := setupRoot(t)
	p, err := r.Resolve("/a.txt")
	require.NoError(t, err)
	require.FileExists(t, p)
}

func TestResolveNeutralizesTraversal(t *testing.T) {
	r := setupRoot(t)
	p, err := r.Resolve("/../../../etc/passwd")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(p, r.base+string(filepath.Separator)))
}

func TestOpenServesIndexForDirectory(t *testing.T) {
	r := setupRoot(t)
	f, info, err := r.Open("/sub")
	require.NoError(t, err)
	defer f.Close()
	require.False(t, info.IsDir())
	require.Equal(t, "index.html", info.Name())
}

func TestOpenMissingFile(t *testing.T) {
	r := setupRoot(t)
	_, _, err := r.Open("/nope.txt")
	require.ErrorIs(t, err, ErrNotFound)
}
