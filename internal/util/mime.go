package util

import (
	"bufio"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
)

const sniffLen = 512

// ContentTypeFor picks a MIME type for name: the declared type when it is
// specific, then the extension, then a sniff of head.
func ContentTypeFor(name string, declared string, head []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); byExt != "" {
		return byExt
	}

	if len(head) > 0 {
		return http.DetectContentType(head)
	}

	return "application/octet-stream"
}

// SniffContentType peeks at the start of r without consuming it. The returned
// reader must be used in place of r.
func SniffContentType(name string, declared string, r io.Reader) (string, io.Reader) {
	buffered := bufio.NewReaderSize(r, sniffLen)
	head, _ := buffered.Peek(sniffLen)
	return ContentTypeFor(name, declared, head), buffered
}
