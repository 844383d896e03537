// Package sbuf implements the segmented dynamic message buffer: an
// append-only byte log, stored as a sequence of geometrically growing
// chunks, that accumulates partial reads from a non-blocking socket and
// supports streaming line extraction across chunk boundaries.
//
// It is the Go reimagining of the original project's dmsg_list (see
// _examples/original_source/dmsg.c): chunk i has capacity s0*2^i, with s0 a
// power-of-two configured at construction, and a fixed maximum chunk count
// bounds worst-case memory per connection.
package sbuf

import (
	"bytes"
	"errors"
	"io"
	"math/bits"

	"github.com/docker/go-units"
)

// MaxChunks is the default maximum number of chunks a Buffer may grow to.
// With the default initial chunk size of 64 bytes this bounds a single
// Buffer to 64*(2^24-1) bytes, just under 1 GiB.
const MaxChunks = 24

// DefaultInitialSize is the default size of the first chunk.
const DefaultInitialSize = 64

var (
	// ErrInitFail is returned when the configured initial chunk size is not
	// a power of two.
	ErrInitFail = errors.New("sbuf: initial chunk size must be a power of two")
	// ErrOverflow is returned by Append/ReadFrom when the buffer has
	// already grown to MaxChunks chunks and needs to grow further.
	ErrOverflow = errors.New("sbuf: buffer exceeded maximum chunk count")
	// ErrSeekNegative is returned by Seek when the resulting offset would
	// be negative.
	ErrSeekNegative = errors.New("sbuf: seek would produce a negative offset")
	// ErrSeekOverflow is returned by Seek when the resulting offset would
	// exceed the buffer's length.
	ErrSeekOverflow = errors.New("sbuf: seek would produce an offset beyond the buffer")
)

// LineStatus reports the outcome of a GetLine call.
type LineStatus int

const (
	// LineComplete means a newline was found and buf holds the full line
	// (NUL-terminated in place of the newline).
	LineComplete LineStatus = iota
	// LinePartial means capacity was exhausted before a newline was found,
	// but a newline exists later in the log; the caller must call GetLine
	// again with a fresh buffer.
	LinePartial
	// LineNoNewline means no newline has been received yet; the log is
	// left unchanged.
	LineNoNewline
)

// Buffer is a segmented, append-only byte log with a streaming read cursor.
// It is not safe for concurrent use; callers serialize access the same way
// the reactor serializes events for a single connection (see pkg/reactor).
type Buffer struct {
	chunks        [][]byte // chunks[i] has capacity s0*2^i; all but the last are full
	initChunkSize int      // s0
	length        int      // total bytes appended across all chunks
	readOffset    int      // stream cursor into the log
	cutoffOffset  int      // virtual start of the log after Consolidate
	maxChunks     int
}

// New constructs an empty Buffer whose first chunk has capacity
// initChunkSize, which must be a power of two.
func New(initChunkSize int) (*Buffer, error) {
	if initChunkSize <= 0 || initChunkSize&(initChunkSize-1) != 0 {
		return nil, ErrInitFail
	}
	b := &Buffer{
		initChunkSize: initChunkSize,
		maxChunks:     MaxChunks,
	}
	b.chunks = append(b.chunks, make([]byte, 0, initChunkSize))
	return b, nil
}

// chunkCapacity returns the capacity of chunk idx: s0*2^idx.
func (b *Buffer) chunkCapacity(idx int) int {
	return b.initChunkSize << uint(idx)
}

// sizeThrough returns the total capacity of the first n chunks, using the
// spec's size_prefix(k) = (s0*2^k - 1) &^ (s0-1) relation.
func (b *Buffer) sizeThrough(n int) int {
	if n == 0 {
		return 0
	}
	return (b.initChunkSize<<uint(n) - 1) &^ (b.initChunkSize - 1)
}

// chunkForOffset returns the chunk index holding offset o, using the
// leading-bit primitive: index = floor(log2((o/s0)+1)).
func (b *Buffer) chunkForOffset(o int) int {
	return bits.Len(uint(o/b.initChunkSize+1)) - 1
}

// grow appends a new, empty chunk, sized double the previous one. It
// returns ErrOverflow if the buffer has reached its maximum chunk count.
func (b *Buffer) grow() error {
	if len(b.chunks) >= b.maxChunks {
		return ErrOverflow
	}
	b.chunks = append(b.chunks, make([]byte, 0, b.chunkCapacity(len(b.chunks))))
	return nil
}

func (b *Buffer) tail() []byte {
	return b.chunks[len(b.chunks)-1]
}

func (b *Buffer) tailRemainder() int {
	t := b.tail()
	return cap(t) - len(t)
}

// Append copies p into the tail chunk, growing the buffer as needed. It
// never silently drops bytes: if growth is required but the buffer is
// already at its chunk ceiling, it reports ErrOverflow without modifying the
// log beyond whatever fit before the overflow was detected.
func (b *Buffer) Append(p []byte) error {
	for len(p) > 0 {
		remainder := b.tailRemainder()
		writeSize := min(remainder, len(p))

		idx := len(b.chunks) - 1
		b.chunks[idx] = append(b.chunks[idx], p[:writeSize]...)
		b.length += writeSize
		p = p[writeSize:]

		if writeSize == remainder {
			if err := b.grow(); err != nil {
				if len(p) > 0 {
					return err
				}
			}
		}
	}
	return nil
}

// Reader is the minimal non-blocking byte source ReadFrom consumes: a
// direct analogue of a non-blocking socket fd.
type Reader interface {
	Read(p []byte) (int, error)
}

// ReadFrom reads directly into the tail chunk from src, growing the buffer
// and continuing while src yields more bytes, until src would block, src
// reaches EOF, or limit bytes have been read (limit <= 0 means unbounded).
// It returns the number of bytes actually read. would-block is reported via
// the returned error being a net.Error with Timeout()/Temporary() true, or
// syscall.EAGAIN/EWOULDBLOCK wrapped by the caller's net.Conn; EOF is
// reported as io.EOF. Both are non-fatal signals, not failures.
func (b *Buffer) ReadFrom(src Reader, limit int) (int, error) {
	total := 0
	for limit <= 0 || total < limit {
		remainder := b.tailRemainder()
		if limit > 0 {
			remainder = min(remainder, limit-total)
		}
		if remainder == 0 {
			if err := b.grow(); err != nil {
				return total, err
			}
			continue
		}

		idx := len(b.chunks) - 1
		start := len(b.chunks[idx])
		b.chunks[idx] = b.chunks[idx][:start+remainder]
		n, err := src.Read(b.chunks[idx][start : start+remainder])
		b.chunks[idx] = b.chunks[idx][:start+n]
		b.length += n
		total += n

		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		if n == remainder {
			if growErr := b.grow(); growErr != nil {
				return total, growErr
			}
		}
		// n < remainder with err == nil: src had less ready than capacity.
		// We loop and call Read again rather than assume would-block here;
		// a non-blocking fd wrapper reports would-block as an error on the
		// next call (see pkg/reactor), which this loop then returns.
	}
	return total, nil
}

// byteAt returns the byte at absolute offset o in the log.
func (b *Buffer) byteAt(o int) byte {
	idx := b.chunkForOffset(o)
	base := b.sizeThrough(idx)
	return b.chunks[idx][o-base]
}

// findNewline returns the absolute offset of the first '\n' at or after
// from, or -1 if none exists in [from, length).
func (b *Buffer) findNewline(from int) int {
	idx := b.chunkForOffset(from)
	base := b.sizeThrough(idx)
	pos := from - base
	for idx < len(b.chunks) {
		chunk := b.chunks[idx]
		if pos < len(chunk) {
			if off := bytes.IndexByte(chunk[pos:], '\n'); off >= 0 {
				return base + pos + off
			}
		}
		base += len(chunk)
		idx++
		pos = 0
	}
	return -1
}

// GetLine advances readOffset across chunk boundaries searching for '\n'.
//
// If a newline is found within len(buf), the line (including the newline,
// overwritten with NUL) is copied into buf, readOffset advances past it, and
// the line length is returned with LineComplete.
//
// If len(buf) is exhausted before a newline, the remainder of the log is
// scanned for a newline. If one exists later, LinePartial is reported and
// readOffset is rolled back by one byte so the caller's next GetLine call
// re-emits the last byte (this rollback is deliberate, matching the
// original's dmsg_getline behavior: a caller that never retries loses that
// byte). Otherwise LineNoNewline is reported and the log is left unchanged.
func (b *Buffer) GetLine(buf []byte) (int, LineStatus, error) {
	available := b.length - b.readOffset
	if available <= 0 {
		return 0, LineNoNewline, nil
	}

	newlineAt := b.findNewline(b.readOffset)
	wantLen := available
	if newlineAt >= 0 {
		wantLen = newlineAt + 1 - b.readOffset
	}

	if wantLen > len(buf) {
		// capacity exhausted before a newline in the buffer window
		if newlineAt < 0 {
			return 0, LineNoNewline, nil
		}
		b.copyRange(b.readOffset, len(buf), buf)
		b.readOffset += len(buf) - 1 // rollback of one byte, per spec
		return 0, LinePartial, nil
	}

	if newlineAt < 0 {
		return 0, LineNoNewline, nil
	}

	n := b.copyRange(b.readOffset, wantLen, buf)
	buf[n-1] = 0
	b.readOffset += wantLen
	return n, LineComplete, nil
}

// copyRange copies n bytes starting at absolute offset from into dst,
// spanning chunk boundaries as needed, and returns the number of bytes
// copied.
func (b *Buffer) copyRange(from, n int, dst []byte) int {
	idx := b.chunkForOffset(from)
	base := b.sizeThrough(idx)
	pos := from - base
	copied := 0
	for copied < n {
		chunk := b.chunks[idx]
		avail := len(chunk) - pos
		take := min(avail, n-copied)
		copy(dst[copied:copied+take], chunk[pos:pos+take])
		copied += take
		idx++
		pos = 0
	}
	return copied
}

// Seek repositions readOffset relative to whence (io.SeekStart,
// io.SeekCurrent, io.SeekEnd), returning ErrSeekNegative/ErrSeekOverflow if
// the result would fall outside [0, length].
func (b *Buffer) Seek(offset int64, whence int) error {
	var newOff int64
	switch whence {
	case io.SeekStart:
		newOff = offset
	case io.SeekCurrent:
		newOff = int64(b.readOffset) + offset
	case io.SeekEnd:
		newOff = int64(b.length) + offset
	default:
		return errors.New("sbuf: invalid whence")
	}
	if newOff < 0 {
		return ErrSeekNegative
	}
	if newOff > int64(b.length) {
		return ErrSeekOverflow
	}
	b.readOffset = int(newOff)
	return nil
}

// Consolidate sets cutoffOffset to the current readOffset. Bytes before the
// cutoff become logically unreachable; reclaiming their storage is left as
// a future improvement, matching the spec.
func (b *Buffer) Consolidate() {
	b.cutoffOffset = b.readOffset
}

// Writer is the minimal non-blocking byte sink WriteTo writes into.
type Writer interface {
	Write(p []byte) (int, error)
}

// WriteTo emits the full log to dst, preserving chunk boundaries (a scatter
// write, were dst to expose one).
func (b *Buffer) WriteTo(dst Writer) (int, error) {
	total := 0
	for _, chunk := range b.chunks {
		if len(chunk) == 0 {
			continue
		}
		n, err := dst.Write(chunk)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Len returns the total number of bytes appended to the log.
func (b *Buffer) Len() int { return b.length }

// ReadOffset returns the current stream cursor.
func (b *Buffer) ReadOffset() int { return b.readOffset }

// CutoffOffset returns the virtual start of the log after Consolidate.
func (b *Buffer) CutoffOffset() int { return b.cutoffOffset }

// NumChunks returns the number of allocated chunks, for diagnostics and
// testing.
func (b *Buffer) NumChunks() int { return len(b.chunks) }

// ChunkOccupancy returns the number of valid bytes in chunk i.
func (b *Buffer) ChunkOccupancy(i int) int { return len(b.chunks[i]) }

// SizeDescription renders a human-readable summary of bytes stored over
// total allocated capacity, e.g. "200B/448B" for 200 bytes held in three
// chunks with a 64-byte first chunk.
func (b *Buffer) SizeDescription() string {
	capacity := b.sizeThrough(len(b.chunks))
	return units.BytesSize(float64(b.length)) + "/" + units.BytesSize(float64(capacity))
}
