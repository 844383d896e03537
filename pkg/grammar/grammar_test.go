package grammar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ClaytonKnittel/fileserverd/pkg/pattern"
)

func TestCompileLiteralConcatenation(t *testing.T) {
	a, entry, err := Compile(`Main = "a" "b" "c"` + "\n")
	require.NoError(t, err)

	ok, err := pattern.Match(a, entry, []byte("abc"), nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = pattern.Match(a, entry, []byte("abd"), nil)
	require.Error(t, err)
	require.False(t, ok)
}

func TestCompileAlternation(t *testing.T) {
	a, entry, err := Compile(`Main = "a" | "c" | "ca"` + "\n")
	require.NoError(t, err)

	for _, s := range []string{"a", "c", "ca"} {
		ok, err := pattern.Match(a, entry, []byte(s), nil)
		require.NoError(t, err, s)
		require.True(t, ok, s)
	}
	ok, err := pattern.Match(a, entry, []byte("b"), nil)
	require.Error(t, err)
	require.False(t, ok)
}

func TestCompileCharClass(t *testing.T) {
	a, entry, err := Compile("Digit = <0123456789>\n")
	require.NoError(t, err)

	ok, _ := pattern.Match(a, entry, []byte("7"), nil)
	require.True(t, ok)
	ok, _ = pattern.Match(a, entry, []byte("x"), nil)
	require.False(t, ok)
}

func TestCompileQuantifierAndOptional(t *testing.T) {
	a, entry, err := Compile(`Main = "a" [ "b" ] *2"c"` + "\n")
	require.NoError(t, err)

	for _, s := range []string{"a", "ab", "acc", "abcc"} {
		ok, err := pattern.Match(a, entry, []byte(s), nil)
		require.NoError(t, err, s)
		require.True(t, ok, s)
	}
	ok, _ := pattern.Match(a, entry, []byte("accc"), nil)
	require.False(t, ok)
}

func TestCompileCapturingGroupAndRuleReference(t *testing.T) {
	src := "Main = Digit {Digit} Digit\n" +
		"Digit = <0123456789>\n"
	a, entry, err := Compile(src)
	require.NoError(t, err)

	matches := make([]pattern.Capture, 1)
	ok, err := pattern.Match(a, entry, []byte("123"), matches)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pattern.Capture{1, 2}, matches[0])
}

func TestCompileUndefinedSymbol(t *testing.T) {
	_, _, err := Compile("Main = Nope\n")
	require.ErrorIs(t, err, ErrUndefinedSymbol)
}

func TestCompileCircularDefinition(t *testing.T) {
	_, _, err := Compile("A = B\nB = A\n")
	require.ErrorIs(t, err, ErrCircularDefinition)
}

func TestCompileAndOrMix(t *testing.T) {
	_, _, err := Compile(`Main = "a" "b" | "c"` + "\n")
	require.ErrorIs(t, err, ErrAndOrMix)
}

func TestCompileComment(t *testing.T) {
	a, entry, err := Compile("; a leading comment\nMain = \"a\" ; trailing\n")
	require.NoError(t, err)
	ok, err := pattern.Match(a, entry, []byte("a"), nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCompileUnusedRuleIsDropped(t *testing.T) {
	src := "Main = \"a\"\nUnused = \"z\"\n"
	a, entry, err := Compile(src)
	require.NoError(t, err)
	ok, err := pattern.Match(a, entry, []byte("a"), nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a, entry, err := Compile("Main = \"a\" \"b\"\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "grammar.cbnf")
	require.NoError(t, Save(path, a, entry))
	require.FileExists(t, path)

	loaded, loadedEntry, err := Load(path)
	require.NoError(t, err)
	ok, err := pattern.Match(loaded, loadedEntry, []byte("ab"), nil)
	require.NoError(t, err)
	require.True(t, ok)

	_ = os.Remove(path)
}
