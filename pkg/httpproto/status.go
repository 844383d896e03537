// Package httpproto implements the HTTP/1.x pieces this server needs
// without reaching for net/http's own request parsing: status codes,
// methods, protocol versions, and a grammar-compiled request-target
// parser built on pkg/grammar and pkg/pattern.
package httpproto

import "fmt"

// Status is an HTTP response status code, numbered as its index into the
// 41-entry table this module's status line renderer uses (StatusNone
// followed by 40 HTTP status codes).
type Status int

const (
	StatusNone Status = iota
	StatusContinue
	StatusSwitchingProtocols
	StatusOK
	StatusCreated
	StatusAccepted
	StatusNonAuthoritativeInfo
	StatusNoContent
	StatusResetContent
	StatusPartialContent
	StatusMultipleChoices
	StatusMovedPermanently
	StatusFound
	StatusSeeOther
	StatusNotModified
	StatusUseProxy
	StatusTemporaryRedirect
	StatusBadRequest
	StatusUnauthorized
	StatusPaymentRequired
	StatusForbidden
	StatusNotFound
	StatusMethodNotAllowed
	StatusNotAcceptable
	StatusProxyAuthRequired
	StatusRequestTimeout
	StatusConflict
	StatusGone
	StatusLengthRequired
	StatusPreconditionFailed
	StatusRequestEntityTooLarge
	StatusRequestURITooLarge
	StatusUnsupportedMediaType
	StatusRequestedRangeNotSatisfiable
	StatusExpectationFailed
	StatusInternalServerError
	StatusNotImplemented
	StatusBadGateway
	StatusServiceUnavailable
	StatusGatewayTimeout
	StatusHTTPVersionNotSupported
)

var statusLines = [...]string{
	"000 None",
	"100 Continue",
	"101 Switching Protocols",
	"200 OK",
	"201 Created",
	"202 Accepted",
	"203 Non-Authoritative Information",
	"204 No Content",
	"205 Reset Content",
	"206 Partial Content",
	"300 Multiple Choices",
	"301 Moved Permanently",
	"302 Found",
	"303 See Other",
	"304 Not Modified",
	"305 Use Proxy",
	"307 Temporary Redirect",
	"400 Bad Request",
	"401 Unauthorized",
	"402 Payment Required",
	"403 Forbidden",
	"404 Not Found",
	"405 Method Not Allowed",
	"406 Not Acceptable",
	"407 Proxy Authentication Required",
	"408 Request Time-Out",
	"409 Conflict",
	"410 Gone",
	"411 Length Required",
	"412 Precondition Failed",
	"413 Request Entity Too Large",
	"414 Request-URI Too Large",
	"415 Unsupported Media Type",
	"416 Requested Range Not Satisfiable",
	"417 Expectation Failed",
	"500 Internal Server Error",
	"501 Not Implemented",
	"502 Bad Gateway",
	"503 Service Unavailable",
	"504 Gateway Time-Out",
	"505 HTTP Version Not Supported",
}

// Line renders the status line text, e.g. "200 OK".
func (s Status) Line() string {
	if s < 0 || int(s) >= len(statusLines) {
		return fmt.Sprintf("%03d Unknown", int(s))
	}
	return statusLines[s]
}

func (s Status) String() string { return s.Line() }
