// Package client models one accepted HTTP connection: its socket, receive
// log, and in-flight request-parsing state. It is the Go counterpart of
// the original project's struct client plus struct http bit-packed into
// one value — here split into plain, independently named fields instead
// of a bitfield, since Go has no cheap equivalent of a packed int status
// word and nothing downstream needs one.
package client

import (
	"container/list"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ClaytonKnittel/fileserverd/pkg/httpproto"
	"github.com/ClaytonKnittel/fileserverd/pkg/mimetypes"
	"github.com/ClaytonKnittel/fileserverd/pkg/sbuf"
)

// State is a stage of the per-connection request state machine, mirroring
// the original's REQUEST/HEADERS/BODY/RESPONSE/SENDING_FILE constants.
type State int

const (
	StateRequestLine State = iota
	StateHeaders
	StateBody
	StateResponse
	StateSendingFile
)

func (s State) String() string {
	switch s {
	case StateRequestLine:
		return "request-line"
	case StateHeaders:
		return "headers"
	case StateBody:
		return "body"
	case StateResponse:
		return "response"
	case StateSendingFile:
		return "sending-file"
	default:
		return "unknown"
	}
}

// Outcome reports what the caller (the server's worker loop) should do
// after feeding newly received bytes through a Client's parser, mirroring
// the original's HTTP_DONE/HTTP_NOT_DONE/HTTP_CLOSE/HTTP_KEEP_ALIVE
// return values.
type Outcome int

const (
	OutcomeNotDone Outcome = iota
	OutcomeDone
	OutcomeClose
	OutcomeKeepAlive
)

// ErrMalformedRequest is not returned by ParseRequestLine or ParseHeaders:
// a request line or header that can't be parsed sets Client.Status to an
// error status and yields OutcomeDone with a nil error.
var ErrMalformedRequest = errors.New("client: malformed request")

// Request holds everything parsed out of one HTTP request.
type Request struct {
	Method        httpproto.Method
	Target        *httpproto.RequestTarget
	Version       httpproto.Version
	Headers       map[string]string
	ContentLength int64
	bodyRead      int64
}

// reset clears a Request back to its zero state for the next request on a
// keep-alive connection.
func (r *Request) reset() {
	r.Method = httpproto.MethodInvalid
	r.Target = nil
	r.Version = httpproto.HTTP11
	r.Headers = make(map[string]string)
	r.ContentLength = 0
	r.bodyRead = 0
}

// Client is one accepted TCP connection: its socket, its receive log, its
// in-flight request, and the bookkeeping the server's LRU sweep needs to
// drop connections that go quiet.
type Client struct {
	Conn net.Conn
	Fd   int
	Addr string

	Log *sbuf.Buffer

	State     State
	Status    httpproto.Status
	Req       Request
	KeepAlive bool

	// Header holds the pending status-line+headers bytes for the current
	// response; HeaderOffset is how much of it has been written so far.
	// Both are drained before any file body, so a partial, EAGAIN'd write
	// of either resumes exactly where it left off on the next
	// writability event instead of silently dropping bytes.
	Header       []byte
	HeaderOffset int

	// File is the file currently being streamed out as a response body
	// via sendfile, nil when nothing is open (error responses, HEAD, or
	// once the body has been fully sent).
	File     *os.File
	FileSize int64
	Offset   int64
	MimeType mimetypes.Type

	// Expires is when the LRU sweep should drop this connection for
	// inactivity if no bytes arrive before then.
	Expires time.Time
	// ListElem links this Client into the server's LRU list; the client
	// package never reads it, only carries it for pkg/server.
	ListElem *list.Element

	closed bool
}

// New wraps an already-accepted connection fd into a Client with a fresh
// receive log and idle deadline.
func New(conn net.Conn, fd int, idleTimeout time.Duration) (*Client, error) {
	log, err := sbuf.New(sbuf.DefaultInitialSize)
	if err != nil {
		return nil, err
	}
	c := &Client{
		Conn:      conn,
		Fd:        fd,
		Addr:      conn.RemoteAddr().String(),
		Log:       log,
		State:     StateRequestLine,
		KeepAlive: true,
		Expires:   time.Now().Add(idleTimeout),
	}
	c.Req.reset()
	return c, nil
}

// Touch bumps the idle deadline forward, called whenever bytes arrive.
func (c *Client) Touch(idleTimeout time.Duration) {
	c.Expires = time.Now().Add(idleTimeout)
}

// Reset clears per-request state so the connection can parse the next
// request pipelined after this one (keep-alive), mirroring http_clear.
func (c *Client) Reset() {
	c.State = StateRequestLine
	c.Status = httpproto.StatusNone
	c.Req.reset()
	if c.File != nil {
		c.File.Close()
		c.File = nil
	}
	c.FileSize = 0
	c.Offset = 0
	c.Header = nil
	c.HeaderOffset = 0
}

// Close releases the file (if any) and the underlying connection. It is
// safe to call more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.File != nil {
		c.File.Close()
		c.File = nil
	}
	return c.Conn.Close()
}

// ParseRequestLine attempts to pull one line out of the receive log and
// parse it as "METHOD target HTTP/x.y". It returns OutcomeNotDone if no
// full line is available yet.
func (c *Client) ParseRequestLine() (Outcome, error) {
	line := make([]byte, 8192)
	n, status, err := c.Log.GetLine(line)
	if err != nil {
		return OutcomeClose, err
	}
	switch status {
	case sbuf.LineNoNewline:
		return OutcomeNotDone, nil
	case sbuf.LinePartial:
		c.Status = httpproto.StatusRequestURITooLarge
		return OutcomeDone, nil
	}

	fields := strings.Fields(string(line[:n-1]))
	if len(fields) != 3 {
		c.Status = httpproto.StatusBadRequest
		return OutcomeDone, nil
	}

	method, err := httpproto.ParseMethod(fields[0])
	if err != nil {
		c.Status = httpproto.StatusNotImplemented
		return OutcomeDone, nil
	}
	target, err := httpproto.ParseRequestTarget(fields[1])
	if err != nil {
		c.Status = httpproto.StatusBadRequest
		return OutcomeDone, nil
	}
	version, err := httpproto.ParseVersion(fields[2])
	if err != nil {
		c.Status = httpproto.StatusHTTPVersionNotSupported
		return OutcomeDone, nil
	}

	c.Req.Method = method
	c.Req.Target = target
	c.Req.Version = version
	c.State = StateHeaders
	return OutcomeNotDone, nil
}

// ParseHeaders pulls header lines out of the receive log one at a time
// until it reaches the blank line terminating the header block.
func (c *Client) ParseHeaders() (Outcome, error) {
	for {
		line := make([]byte, 8192)
		n, status, err := c.Log.GetLine(line)
		if err != nil {
			return OutcomeClose, err
		}
		switch status {
		case sbuf.LineNoNewline:
			return OutcomeNotDone, nil
		case sbuf.LinePartial:
			c.Status = httpproto.StatusRequestEntityTooLarge
			return OutcomeDone, nil
		}

		content := strings.TrimRight(string(line[:n-1]), "\r")
		if content == "" {
			c.KeepAlive = strings.EqualFold(c.Req.Headers["Connection"], "keep-alive") ||
				(c.Req.Version == httpproto.HTTP11 && !strings.EqualFold(c.Req.Headers["Connection"], "close"))
			if cl, ok := c.Req.Headers["Content-Length"]; ok {
				n, err := strconv.ParseInt(cl, 10, 64)
				if err != nil || n < 0 {
					c.Status = httpproto.StatusBadRequest
					return OutcomeDone, nil
				}
				c.Req.ContentLength = n
			}
			if c.Req.ContentLength > 0 {
				c.State = StateBody
				return OutcomeNotDone, nil
			}
			c.State = StateResponse
			return OutcomeDone, nil
		}

		name, value, ok := strings.Cut(content, ":")
		if !ok {
			c.Status = httpproto.StatusBadRequest
			return OutcomeDone, nil
		}
		c.Req.Headers[http1Canonical(name)] = strings.TrimSpace(value)
	}
}

// http1Canonical title-cases a header field name the way Go's own
// net/textproto.CanonicalMIMEHeaderKey does, so header lookups are
// case-insensitive regardless of how the client capitalized them.
func http1Canonical(name string) string {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}
