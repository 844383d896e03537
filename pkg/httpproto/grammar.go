package httpproto

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ClaytonKnittel/fileserverd/pkg/grammar"
	"github.com/ClaytonKnittel/fileserverd/pkg/pattern"
)

// Capture indices into the matches slice ParseRequestTarget passes to
// pattern.Match, assigned by first-encounter order while the grammar below
// is parsed top to bottom: AbsForm's body is parsed before OriginForm's,
// so Scheme and Authority claim indices 0 and 1 before AbsoluteURI (parsed
// as OriginForm's body) claims 2, and AbsoluteURI's own body in turn
// claims RelativeURI, Query, and Fragment at 3, 4, and 5.
const (
	CaptureScheme = iota
	CaptureAuthority
	CaptureAbsoluteURI
	CaptureRelativeURI
	CaptureQuery
	CaptureFragment
)

func charRange(lo, hi byte) string {
	var b strings.Builder
	for c := lo; c <= hi; c++ {
		b.WriteByte(c)
	}
	return b.String()
}

// unreservedURIChars is RFC 3986's unreserved + sub-delims set, the
// alphabet a path, query, or fragment segment may use without
// percent-encoding, plus '%' itself for the escapes it introduces.
func unreservedURIChars(extra string) string {
	return charRange('a', 'z') + charRange('A', 'Z') + charRange('0', '9') + "-._~%" + extra
}

const requestTargetGrammar = `
RequestTarget = AbsForm | OriginForm | "*"
AbsForm = {Scheme} "://" {Authority} OriginForm
OriginForm = {AbsoluteURI}
AbsoluteURI = "/" [{RelativeURI}] ["?" {Query}] ["#" {Fragment}]
Scheme = *<%s>
Authority = *<%s>
RelativeURI = *<%s>
Query = *<%s>
Fragment = *<%s>
`

func buildRequestTargetGrammar() string {
	scheme := charRange('a', 'z') + charRange('A', 'Z') + charRange('0', '9') + "+-."
	authority := unreservedURIChars("!$&'()*+,;=:@[]")
	path := unreservedURIChars("!$&'()*+,;=:@/")
	query := unreservedURIChars("!$&'()*+,;=:@/?")
	fragment := query
	return fmt.Sprintf(requestTargetGrammar, scheme, authority, path, query, fragment)
}

var (
	requestTargetOnce  sync.Once
	requestTargetArena *pattern.Arena
	requestTargetEntry int
	requestTargetErr   error
)

func compileRequestTargetGrammar() {
	requestTargetArena, requestTargetEntry, requestTargetErr = grammar.Compile(buildRequestTargetGrammar())
}

// RequestTarget holds the pieces a request-target can break down into,
// populated according to whichever alternative (absolute-form,
// origin-form, or "*") matched. Fields the matched alternative doesn't
// produce are left empty.
type RequestTarget struct {
	Scheme      string
	Authority   string
	Path        string
	Query       string
	Fragment    string
	HasQuery    bool
	HasFragment bool
	Asterisk    bool
}

// ParseRequestTarget parses the request-target token of a request line
// (the second space-delimited field) into its component parts, using a
// grammar compiled once on first use.
func ParseRequestTarget(raw string) (*RequestTarget, error) {
	requestTargetOnce.Do(compileRequestTargetGrammar)
	if requestTargetErr != nil {
		return nil, fmt.Errorf("httpproto: request-target grammar failed to compile: %w", requestTargetErr)
	}

	if raw == "*" {
		return &RequestTarget{Asterisk: true}, nil
	}

	matches := make([]pattern.Capture, 6)
	buf := []byte(raw)
	ok, err := pattern.Match(requestTargetArena, requestTargetEntry, buf, matches)
	if err != nil || !ok {
		return nil, fmt.Errorf("httpproto: invalid request-target %q: %w", raw, err)
	}

	rt := &RequestTarget{}
	if c := matches[CaptureScheme]; c.Start >= 0 {
		rt.Scheme = string(buf[c.Start:c.End])
	}
	if c := matches[CaptureAuthority]; c.Start >= 0 {
		rt.Authority = string(buf[c.Start:c.End])
	}
	if c := matches[CaptureAbsoluteURI]; c.Start >= 0 {
		rt.Path = string(buf[c.Start:c.End])
	}
	if c := matches[CaptureQuery]; c.Start >= 0 {
		rt.Query = string(buf[c.Start:c.End])
		rt.HasQuery = true
	}
	if c := matches[CaptureFragment]; c.Start >= 0 {
		rt.Fragment = string(buf[c.Start:c.End])
		rt.HasFragment = true
	}
	return rt, nil
}
