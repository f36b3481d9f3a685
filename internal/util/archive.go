package util

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ZipStream writes a zip archive straight to an output stream. Entry names
// are made unique by suffixing " (n)" before the extension.
type ZipStream struct {
	writer *zip.Writer
	names  map[string]int
}

func NewZipStream(w io.Writer) *ZipStream {
	return &ZipStream{writer: zip.NewWriter(w), names: make(map[string]int)}
}

// AddFile copies r into a new entry and returns the name actually used.
func (z *ZipStream) AddFile(name string, r io.Reader, modified time.Time) (string, error) {
	unique := z.uniqueName(strings.TrimPrefix(name, "/"))

	header := &zip.FileHeader{Name: unique, Method: zip.Deflate}
	if !modified.IsZero() {
		header.Modified = modified
	}

	entry, err := z.writer.CreateHeader(header)
	if err != nil {
		return "", fmt.Errorf("create zip entry %q: %w", unique, err)
	}

	if _, err := io.Copy(entry, r); err != nil {
		return "", fmt.Errorf("write zip entry %q: %w", unique, err)
	}

	return unique, nil
}

// AddDirectory records an empty directory entry.
func (z *ZipStream) AddDirectory(name string) error {
	name = strings.Trim(name, "/")
	if name == "" {
		return nil
	}

	_, err := z.writer.Create(name + "/")
	return err
}

// AddErrors appends a plain text manifest of items that could not be added.
func (z *ZipStream) AddErrors(name string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	_, err := z.AddFile(name, strings.NewReader(strings.Join(lines, "\n")+"\n"), time.Now())
	return err
}

func (z *ZipStream) Close() error {
	return z.writer.Close()
}

func (z *ZipStream) uniqueName(name string) string {
	count, seen := z.names[name]
	z.names[name] = count + 1
	if !seen {
		return name
	}

	dir, base := path.Split(name)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}

	candidate := fmt.Sprintf("%s%s (%d)%s", dir, stem, count, ext)
	if _, taken := z.names[candidate]; taken {
		return z.uniqueName(candidate)
	}
	z.names[candidate] = 1
	return candidate
}
