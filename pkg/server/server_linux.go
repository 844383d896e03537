//go:build linux

package server

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/ClaytonKnittel/fileserverd/pkg/client"
	"github.com/ClaytonKnittel/fileserverd/pkg/httpproto"
	"github.com/ClaytonKnittel/fileserverd/pkg/mimetypes"
	"github.com/ClaytonKnittel/fileserverd/pkg/reactor"
)

// Server accepts connections on a listening socket and dispatches
// readiness events from a reactor.Queue across a fixed worker pool, with
// a periodic LRU sweep dropping connections idle past Config.IdleTimeout.
type Server struct {
	cfg      Config
	listenFd int
	queue    reactor.Queue

	mu      sync.Mutex
	clients map[int]*client.Client
	lru     *list.List // *client.Client ordered oldest-touched first
}

// New builds a listening socket and readiness queue for cfg, but does not
// start accepting connections until Run is called.
func New(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	if cfg.Root == nil {
		return nil, errors.New("server: Config.Root is required")
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("server: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: setsockopt: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: cfg.Port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: bind: %w", err)
	}
	if err := unix.Listen(fd, cfg.Backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: listen: %w", err)
	}

	q, err := reactor.New()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := q.Add(fd, reactor.Interest{Readable: true}); err != nil {
		q.Close()
		unix.Close(fd)
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		listenFd: fd,
		queue:    q,
		clients:  make(map[int]*client.Client),
		lru:      list.New(),
	}, nil
}

// Port returns the TCP port this server's listening socket is bound to,
// resolving an ephemeral port (Config.Port == 0) after New has bound it.
func (s *Server) Port() (int, error) {
	sa, err := unix.Getsockname(s.listenFd)
	if err != nil {
		return 0, err
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("server: unexpected sockaddr type %T", sa)
	}
	return in4.Port, nil
}

// Run drives the accept loop, worker pool, and sweep loop until ctx is
// canceled, at which point it closes the readiness queue (waking every
// blocked worker, the same broadcast effect as the original's term_pipe)
// and waits for them to exit.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return s.queue.Close()
	})

	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(s.workerLoop)
	}

	g.Go(func() error {
		return s.sweepLoop(ctx)
	})

	err := g.Wait()
	unix.Close(s.listenFd)
	if errors.Is(err, reactor.ErrClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// workerLoop is one of Config.Workers goroutines competing for readiness
// events off the shared queue; EPOLLONESHOT guarantees no two workers are
// ever handed the same fd's event concurrently.
func (s *Server) workerLoop() error {
	var events []reactor.Event
	for {
		var err error
		events, err = s.queue.Wait(events)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if ev.Fd == s.listenFd {
				s.acceptOne()
				continue
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Server) acceptOne() {
	for {
		fd, _, err := unix.Accept4(s.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				s.queue.Modify(s.listenFd, reactor.Interest{Readable: true})
				return
			}
			return
		}
		s.adopt(fd)
	}
}

func (s *Server) adopt(fd int) {
	c, err := client.New(rawConn{fd}, fd, s.cfg.IdleTimeout)
	if err != nil {
		unix.Close(fd)
		return
	}

	s.mu.Lock()
	s.clients[fd] = c
	c.ListElem = s.lru.PushBack(c)
	s.mu.Unlock()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ConnectionOpened()
	}
	if err := s.queue.Add(fd, reactor.Interest{Readable: true}); err != nil {
		s.drop(c)
	}
}

// handleEvent reads whatever is newly available on ev.Fd, feeds it
// through the client's request parser, and re-arms or drops the
// connection depending on the outcome.
func (s *Server) handleEvent(ev reactor.Event) {
	s.mu.Lock()
	c, ok := s.clients[ev.Fd]
	s.mu.Unlock()
	if !ok {
		return
	}

	if ev.Hangup {
		s.drop(c)
		return
	}

	// A client mid-SENDING_FILE is waiting purely on writability; any
	// bytes the peer sends meanwhile (e.g. a pipelined next request)
	// stay unread in the socket's receive buffer until the transfer
	// finishes, so nothing is read here.
	if c.State != client.StateSendingFile {
		buf := make([]byte, 4096)
		n, err := unix.Read(ev.Fd, buf)
		switch {
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			// spurious wakeup; nothing new to read yet
		case err != nil:
			s.drop(c)
			return
		case n == 0:
			// peer closed its write side
			s.drop(c)
			return
		default:
			if err := c.Log.Append(buf[:n]); err != nil {
				s.drop(c)
				return
			}
			c.Touch(s.cfg.IdleTimeout)
			s.mu.Lock()
			s.lru.MoveToBack(c.ListElem)
			s.mu.Unlock()
		}
	}

	if s.drive(c) {
		s.drop(c)
		return
	}

	if c.State == client.StateSendingFile {
		s.queue.Modify(ev.Fd, reactor.Interest{Readable: true, Writable: true})
		return
	}
	s.queue.Modify(ev.Fd, reactor.Interest{Readable: true})
}

// drive runs the client's parser forward as far as currently-buffered
// data allows and, once a full request is available, serves it. It
// returns true if the connection should be closed. It stops (returning
// false) while StateSendingFile still has bytes left to send once the
// socket send buffer fills, leaving the fd armed for writability so
// handleEvent resumes the transfer on the next EPOLLOUT.
func (s *Server) drive(c *client.Client) bool {
	for {
		switch c.State {
		case client.StateRequestLine:
			outcome, err := c.ParseRequestLine()
			if err != nil || outcome == client.OutcomeClose {
				return true
			}
			if outcome == client.OutcomeNotDone && c.State == client.StateRequestLine {
				return false
			}
			if outcome == client.OutcomeDone {
				// The line was rejected; c.Status holds the error to answer with.
				c.State = client.StateResponse
			}
		case client.StateHeaders:
			outcome, err := c.ParseHeaders()
			if err != nil || outcome == client.OutcomeClose {
				return true
			}
			if outcome == client.OutcomeNotDone && c.State == client.StateHeaders {
				return false
			}
			if outcome == client.OutcomeDone {
				c.State = client.StateResponse
			}
		case client.StateBody:
			// Request bodies are not read or skipped: the state moves
			// straight to StateResponse and any body bytes stay in Log.
			c.State = client.StateResponse
		case client.StateResponse:
			s.respond(c)
			if c.State == client.StateSendingFile {
				continue
			}
			if s.finishResponse(c) {
				return true
			}
		case client.StateSendingFile:
			done, err := s.sendFileChunk(c)
			if err != nil {
				return true
			}
			if !done {
				return false
			}
			c.State = client.StateResponse
			if s.finishResponse(c) {
				return true
			}
		default:
			return true
		}
	}
}

// finishResponse records metrics for the just-completed response and
// reports whether the connection should close next, mirroring the
// original's http_clear/keep-alive decision once a response (file or
// otherwise) is fully written.
func (s *Server) finishResponse(c *client.Client) (closeConn bool) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RequestHandled(c.Req.Method.String(), c.Status.Line())
	}
	if !c.KeepAlive {
		return true
	}
	c.Reset()
	return false
}

// respond resolves the file from Config.Root for a successful GET/HEAD
// and queues the status line, headers, and (for GET) the file body to be
// streamed out via sendfile. It never itself blocks on the socket: it
// hands off to StateSendingFile, whose sendFileChunk drains the queued
// bytes across as many writability events as backpressure demands.
func (s *Server) respond(c *client.Client) {
	status := c.Status
	mt := mimetypes.Default
	var contentLength int64
	var file *os.File

	if status == httpproto.StatusNone {
		switch c.Req.Method {
		case httpproto.MethodGet, httpproto.MethodHead:
			f, info, err := s.cfg.Root.Open(c.Req.Target.Path)
			if err != nil {
				status = httpproto.StatusNotFound
			} else {
				mt = mimetypes.ForPath(c.Req.Target.Path)
				contentLength = info.Size()
				status = httpproto.StatusOK
				if c.Req.Method == httpproto.MethodGet {
					// Kept open for sendFileChunk; closed once the body
					// has been fully streamed or the connection drops.
					file = f
				} else {
					f.Close()
				}
			}
		default:
			status = httpproto.StatusMethodNotAllowed
		}
	}
	c.Status = status
	c.MimeType = mt

	header := fmt.Sprintf("HTTP/1.1 %s\r\nContent-Length: %d\r\nContent-Type: %s\r\nConnection: %s\r\n\r\n",
		status.Line(), contentLength, mt.ContentType(), connectionHeader(c.KeepAlive))

	c.Header = []byte(header)
	c.HeaderOffset = 0
	c.File = file
	c.Offset = 0
	if file != nil {
		c.FileSize = contentLength
	} else {
		c.FileSize = 0
	}
	c.State = client.StateSendingFile
}

// sendFileChunk writes as much of the pending header and file body as
// the non-blocking socket currently accepts without looping forever
// under backpressure: a partial write or EAGAIN on either the header or
// the body (via unix.Sendfile) simply returns done=false, leaving
// c.HeaderOffset/c.Offset exactly where they stopped so the next
// writability event resumes from there instead of re-sending or
// dropping bytes.
func (s *Server) sendFileChunk(c *client.Client) (done bool, err error) {
	for c.HeaderOffset < len(c.Header) {
		n, werr := unix.Write(c.Fd, c.Header[c.HeaderOffset:])
		if werr != nil {
			if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
				return false, nil
			}
			return false, werr
		}
		c.HeaderOffset += n
	}

	if c.File == nil || c.Offset >= c.FileSize {
		s.closeResponseFile(c)
		return true, nil
	}

	remaining := c.FileSize - c.Offset
	n, werr := unix.Sendfile(c.Fd, int(c.File.Fd()), &c.Offset, int(remaining))
	if werr != nil {
		if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, werr
	}
	if n > 0 && s.cfg.Metrics != nil {
		s.cfg.Metrics.BytesServed.Add(float64(n))
	}
	if n == 0 || c.Offset >= c.FileSize {
		s.closeResponseFile(c)
		return true, nil
	}
	return false, nil
}

func (s *Server) closeResponseFile(c *client.Client) {
	if c.File != nil {
		c.File.Close()
		c.File = nil
	}
	c.FileSize = 0
	c.Offset = 0
	c.Header = nil
	c.HeaderOffset = 0
}

func connectionHeader(keepAlive bool) string {
	if keepAlive {
		return "keep-alive"
	}
	return "close"
}

func (s *Server) drop(c *client.Client) {
	s.mu.Lock()
	delete(s.clients, c.Fd)
	if c.ListElem != nil {
		s.lru.Remove(c.ListElem)
	}
	s.mu.Unlock()

	s.queue.Remove(c.Fd)
	c.Close()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ConnectionClosed()
	}
}

// sweepLoop periodically drops connections that have gone idle past
// Config.IdleTimeout, the Go analogue of the original's timerfd-driven
// sweep described in server.h.
func (s *Server) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Server) sweepOnce() {
	start := time.Now()
	now := start

	var expired []*client.Client
	s.mu.Lock()
	for e := s.lru.Front(); e != nil; {
		next := e.Next()
		c := e.Value.(*client.Client)
		if c.Expires.After(now) {
			break
		}
		expired = append(expired, c)
		e = next
	}
	s.mu.Unlock()

	for _, c := range expired {
		s.drop(c)
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveSweep(time.Since(start))
	}
}

// rawConn adapts a raw, already-connected socket fd to the net.Conn
// methods client.Client reads for logging/addressing purposes. Actual
// data transfer happens via direct unix.Read/unix.Write calls in the
// server's event loop, not through this adapter — the reactor already
// knows when the fd is ready, so routing reads back through Go's own
// net-poller would just double the bookkeeping.
type rawConn struct{ fd int }

func (r rawConn) Read(b []byte) (int, error)  { return unix.Read(r.fd, b) }
func (r rawConn) Write(b []byte) (int, error) { return unix.Write(r.fd, b) }
func (r rawConn) Close() error                { return unix.Close(r.fd) }
func (r rawConn) LocalAddr() net.Addr         { return rawAddr{} }
func (r rawConn) RemoteAddr() net.Addr {
	sa, err := unix.Getpeername(r.fd)
	if err != nil {
		return rawAddr{}
	}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return rawAddr{fmt.Sprintf("%d.%d.%d.%d:%d", in4.Addr[0], in4.Addr[1], in4.Addr[2], in4.Addr[3], in4.Port)}
	}
	return rawAddr{}
}
func (r rawConn) SetDeadline(time.Time) error      { return nil }
func (r rawConn) SetReadDeadline(time.Time) error  { return nil }
func (r rawConn) SetWriteDeadline(time.Time) error { return nil }

type rawAddr struct{ s string }

func (a rawAddr) Network() string { return "tcp" }
func (a rawAddr) String() string {
	if a.s == "" {
		return "unknown"
	}
	return a.s
}
