// Package docroot resolves a request path against a served directory
// tree, the file-serving equivalent of the teacher's NormalizedServeMux
// (pkg/routing): clean the path before anything downstream gets to touch
// it. Here "downstream" is a filesystem open rather than an http.ServeMux
// route, so the cleaning step also has to guard against the cleaned path
// escaping the root entirely, which a request mux never had to worry
// about.
package docroot

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when the requested path, once cleaned,
// would resolve outside the served root.
var ErrOutsideRoot = errors.New("docroot: path escapes served root")

// ErrNotFound wraps a missing file/directory lookup.
var ErrNotFound = errors.New("docroot: not found")

// Root serves files rooted at a fixed directory, rejecting any request
// path that would resolve outside of it.
type Root struct {
	base    string
	indexes []string
}

// New returns a Root serving dir. indexNames lists the files tried, in
// order, when a request resolves to a directory (e.g. "index.html").
func New(dir string, indexNames ...string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("docroot: root is not a directory")
	}
	return &Root{base: abs, indexes: indexNames}, nil
}

// Resolve cleans reqPath and joins it against the root, returning the
// absolute filesystem path. Forcing a leading "/" before path.Clean means
// a ".." segment can never walk above the root in the cleaned result
// (the same trick net/http's http.Dir uses); the prefix check below is a
// second, independent guard in case that invariant is ever loosened.
func (r *Root) Resolve(reqPath string) (string, error) {
	clean := path.Clean("/" + reqPath)
	joined := filepath.Join(r.base, filepath.FromSlash(clean))

	if joined != r.base && !strings.HasPrefix(joined, r.base+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return joined, nil
}

// Open resolves reqPath and opens it, trying the configured index names
// in order if it names a directory. It returns ErrNotFound (wrapped) if
// nothing serveable exists at the resolved location.
func (r *Root) Open(reqPath string) (*os.File, os.FileInfo, error) {
	full, err := r.Resolve(reqPath)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, nil, errors.Join(ErrNotFound, err)
	}
	if info.IsDir() {
		for _, name := range r.indexes {
			candidate := filepath.Join(full, name)
			if ci, err := os.Stat(candidate); err == nil && !ci.IsDir() {
				full, info = candidate, ci
				break
			}
		}
		if info.IsDir() {
			return nil, nil, ErrNotFound
		}
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}
