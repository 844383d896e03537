// Package mimetypes maps a requested file's extension to the Content-Type
// value the server answers with, backed by the same extension-table idea
// the file server's C original built on its string hashmap.
package mimetypes

import (
	"strings"
	"sync"

	"github.com/ClaytonKnittel/fileserverd/pkg/hashtable"
)

// Type is one of the fixed set of MIME types this server recognizes.
type Type int

const (
	AAC Type = iota
	ARC
	OctetStream // default when an extension is unknown
	BMP
	CSS
	CSV
	GIF
	HTML
	ICO
	ICS
	JPEG
	JS
	JSON
	MP3
	PNG
	PDF
	SH
	TAR
	TXT
	XHTML
	XML
	ZIP
	numTypes
)

// Default is the MIME type served for an extension this table doesn't
// recognize.
const Default = OctetStream

var contentTypes = [numTypes]string{
	AAC:         "audio/aac",
	ARC:         "application/x-freearc",
	OctetStream: "application/octet-stream",
	BMP:         "image/bmp",
	CSS:         "text/css",
	CSV:         "text/csv",
	GIF:         "image/gif",
	HTML:        "text/html",
	ICO:         "image/vnd.microsoft.icon",
	ICS:         "text/calendar",
	JPEG:        "image/jpeg",
	JS:          "text/javascript",
	JSON:        "application/json",
	MP3:         "audio/mpeg",
	PNG:         "image/png",
	PDF:         "application/pdf",
	SH:          "application/x-sh",
	TAR:         "application/x-tar",
	TXT:         "text/plain",
	XHTML:       "application/xhtml+xml",
	XML:         "application/xml",
	ZIP:         "application/zip",
}

// ContentType renders t's value for a Content-Type header.
func (t Type) ContentType() string {
	if t < 0 || int(t) >= len(contentTypes) {
		return contentTypes[Default]
	}
	return contentTypes[t]
}

var extensionTable = map[string]Type{
	"aac":   AAC,
	"arc":   ARC,
	"bin":   OctetStream,
	"bmp":   BMP,
	"css":   CSS,
	"csv":   CSV,
	"gif":   GIF,
	"html":  HTML,
	"ico":   ICO,
	"ics":   ICS,
	"jpg":   JPEG,
	"jpeg":  JPEG,
	"js":    JS,
	"json":  JSON,
	"mjs":   JS,
	"mp3":   MP3,
	"png":   PNG,
	"pdf":   PDF,
	"sh":    SH,
	"tar":   TAR,
	"txt":   TXT,
	"xhtml": XHTML,
	"xml":   XML,
	"zip":   ZIP,
}

var (
	extensions     *hashtable.Table[string, Type]
	extensionsOnce sync.Once
)

func buildExtensions() *hashtable.Table[string, Type] {
	t := hashtable.New[string, Type](hashtable.StringHash)
	for ext, mt := range extensionTable {
		t.Insert(ext, mt)
	}
	return t
}

// ForExtension looks up the MIME type registered for ext (without a
// leading '.'), matched case-insensitively, falling back to
// application/octet-stream when ext is unrecognized.
func ForExtension(ext string) Type {
	extensionsOnce.Do(func() { extensions = buildExtensions() })
	mt, ok := extensions.Get(strings.ToLower(ext))
	if !ok {
		return Default
	}
	return mt
}

// ForPath extracts the extension from a file path (the suffix after the
// last '.' in its final path segment) and looks up its MIME type.
func ForPath(path string) Type {
	slash := strings.LastIndexByte(path, '/')
	name := path[slash+1:]
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return Default
	}
	return ForExtension(name[dot+1:])
}
