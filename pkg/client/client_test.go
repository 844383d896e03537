package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ClaytonKnittel/fileserverd/pkg/httpproto"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server, clientConn := net.Pipe()
	t.Cleanup(func() { server.Close(); clientConn.Close() })
	c, err := New(clientConn, 0, time.Minute)
	require.NoError(t, err)
	return c
}

func TestParseRequestLineComplete(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Log.Append([]byte("GET /index.html HTTP/1.1\r\n")))

	outcome, err := c.ParseRequestLine()
	require.NoError(t, err)
	require.Equal(t, OutcomeNotDone, outcome)
	require.Equal(t, httpproto.MethodGet, c.Req.Method)
	require.Equal(t, "/index.html", c.Req.Target.Path)
	require.Equal(t, httpproto.HTTP11, c.Req.Version)
	require.Equal(t, StateHeaders, c.State)
}

func TestParseRequestLineIncomplete(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Log.Append([]byte("GET /index.html HTTP/1.1")))

	outcome, err := c.ParseRequestLine()
	require.NoError(t, err)
	require.Equal(t, OutcomeNotDone, outcome)
	require.Equal(t, StateRequestLine, c.State)
}

func TestParseRequestLineBadMethod(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Log.Append([]byte("FOO / HTTP/1.1\r\n")))

	outcome, err := c.ParseRequestLine()
	require.NoError(t, err)
	require.Equal(t, OutcomeDone, outcome)
	require.Equal(t, httpproto.StatusNotImplemented, c.Status)
}

func TestParseHeadersToBlankLine(t *testing.T) {
	c := newTestClient(t)
	c.State = StateHeaders
	require.NoError(t, c.Log.Append([]byte("Host: example.com\r\nContent-Length: 0\r\n\r\n")))

	outcome, err := c.ParseHeaders()
	require.NoError(t, err)
	require.Equal(t, OutcomeDone, outcome)
	require.Equal(t, "example.com", c.Req.Headers["Host"])
	require.Equal(t, StateResponse, c.State)
}

func TestResetClearsRequestState(t *testing.T) {
	c := newTestClient(t)
	c.Req.Headers["X"] = "y"
	c.State = StateResponse
	c.Status = httpproto.StatusOK

	c.Reset()
	require.Equal(t, StateRequestLine, c.State)
	require.Equal(t, httpproto.StatusNone, c.Status)
	require.Empty(t, c.Req.Headers)
}
