package util

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "image/png", ContentTypeFor("a.bin", "image/png", nil))
	require.Equal(t, "application/pdf", ContentTypeFor("report.PDF", "application/octet-stream", nil))
	require.Equal(t, "text/plain; charset=utf-8", ContentTypeFor("notes", "", []byte("plain words")))
	require.Equal(t, "application/octet-stream", ContentTypeFor("blob", "", nil))
}

func TestSniffContentTypeKeepsBody(t *testing.T) {
	t.Parallel()

	contentType, body := SniffContentType("page", "", strings.NewReader("<html><body>hi</body></html>"))
	require.Equal(t, "text/html; charset=utf-8", contentType)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "<html><body>hi</body></html>", string(data))
}
