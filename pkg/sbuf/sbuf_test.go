package sbuf

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := New(3)
	require.ErrorIs(t, err, ErrInitFail)
}

func TestAppendChunkBoundary(t *testing.T) {
	// S0=4, append "four" then "eight___". Chunk capacities grow
	// geometrically (S0*2^i), so chunk 1 has capacity 8 and holds
	// "eight___" in full; a third, empty chunk of capacity 16 is lazily
	// grown once chunk 1 is exactly filled. See DESIGN.md for why this
	// departs from a naive constant-chunk-size reading of the walkthrough
	// this case is drawn from.
	b, err := New(4)
	require.NoError(t, err)

	require.NoError(t, b.Append([]byte("four")))
	require.NoError(t, b.Append([]byte("eight___")))

	require.Equal(t, 12, b.Len())
	require.Equal(t, 3, b.NumChunks())
	require.Equal(t, "four", string(b.chunks[0]))
	require.Equal(t, "eight___", string(b.chunks[1]))
	require.Equal(t, "", string(b.chunks[2]))
	require.Equal(t, 4, cap(b.chunks[0]))
	require.Equal(t, 8, cap(b.chunks[1]))
	require.Equal(t, 16, cap(b.chunks[2]))
}

func TestAppendOverflow(t *testing.T) {
	b, err := New(1)
	require.NoError(t, err)
	b.maxChunks = 2 // chunk sizes 1, 2 => capacity 3 bytes total
	require.NoError(t, b.Append([]byte("abc")))
	err = b.Append([]byte("d"))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestGetLineAcrossChunks(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("hel")))
	require.NoError(t, b.Append([]byte("lo\nworld\n")))

	buf := make([]byte, 32)
	n, status, err := b.GetLine(buf)
	require.NoError(t, err)
	require.Equal(t, LineComplete, status)
	require.Equal(t, "hello\x00", string(buf[:n]))

	n, status, err = b.GetLine(buf)
	require.NoError(t, err)
	require.Equal(t, LineComplete, status)
	require.Equal(t, "world\x00", string(buf[:n]))
}

func TestGetLineNoNewlineYet(t *testing.T) {
	b, err := New(8)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("partial")))

	buf := make([]byte, 32)
	n, status, err := b.GetLine(buf)
	require.NoError(t, err)
	require.Equal(t, LineNoNewline, status)
	require.Equal(t, 0, n)
	require.Equal(t, 0, b.ReadOffset())
}

func TestGetLinePartialRollsBackOneByte(t *testing.T) {
	b, err := New(8)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("0123456789\n")))

	small := make([]byte, 4)
	n, status, err := b.GetLine(small)
	require.NoError(t, err)
	require.Equal(t, LinePartial, status)
	require.Equal(t, 0, n)
	require.Equal(t, 3, b.ReadOffset())
}

func TestAppendGetLineRoundTrip(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	input := "alpha\nbeta\ngamma\n"
	require.NoError(t, b.Append([]byte(input)))

	var out bytes.Buffer
	buf := make([]byte, 64)
	for {
		n, status, err := b.GetLine(buf)
		require.NoError(t, err)
		if status == LineNoNewline {
			break
		}
		require.Equal(t, LineComplete, status)
		line := make([]byte, n)
		copy(line, buf[:n])
		line[n-1] = '\n'
		out.Write(line)
	}
	require.Equal(t, input, out.String())
}

func TestSeekBounds(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("abcdef")))

	require.NoError(t, b.Seek(3, io.SeekStart))
	require.Equal(t, 3, b.ReadOffset())

	require.ErrorIs(t, b.Seek(-1, io.SeekStart), ErrSeekNegative)
	require.ErrorIs(t, b.Seek(100, io.SeekStart), ErrSeekOverflow)
}

func TestConsolidateSetsCutoff(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("abcdefgh")))
	require.NoError(t, b.Seek(5, io.SeekStart))
	b.Consolidate()
	require.Equal(t, 5, b.CutoffOffset())
}

type sliceReader struct {
	data []byte
	pos  int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestReadFromGrowsAndStopsAtEOF(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	src := &sliceReader{data: []byte("0123456789")}
	n, err := b.ReadFrom(src, 0)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 10, n)
	require.Equal(t, 10, b.Len())
}

func TestWriteToPreservesBytes(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("hello world")))
	var out bytes.Buffer
	n, err := b.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", out.String())
}
