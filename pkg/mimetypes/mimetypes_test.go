package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForExtensionKnown(t *testing.T) {
	require.Equal(t, "text/html", ForExtension("html").ContentType())
	require.Equal(t, "image/jpeg", ForExtension("JPEG").ContentType())
	require.Equal(t, "text/javascript", ForExtension("mjs").ContentType())
	require.Equal(t, "application/octet-stream", ForExtension("bin").ContentType())
}

func TestForExtensionUnknownFallsBackToOctetStream(t *testing.T) {
	require.Equal(t, Default, ForExtension("exe"))
	require.Equal(t, "application/octet-stream", ForExtension("exe").ContentType())
}

func TestForPath(t *testing.T) {
	require.Equal(t, JSON, ForPath("/a/b/c.json"))
	require.Equal(t, Default, ForPath("/a/b/Makefile"))
	require.Equal(t, TXT, ForPath("README.txt"))
}
