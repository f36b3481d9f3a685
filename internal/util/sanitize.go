package util

import (
	"net/http"
	"strings"
	"unicode"

	"s3-explorer/pkg/apierror"
)

const maxNameRunes = 255

// SanitizeObjectName cleans a client supplied file name so it can be used as
// the last segment of an object key.
func SanitizeObjectName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.New("INVALID_FILENAME", "filename cannot be empty", "", http.StatusBadRequest)
	}

	builder := strings.Builder{}
	builder.Grow(len(trimmed))

	for _, char := range trimmed {
		switch {
		case unicode.IsControl(char) || isInvisibleUnicode(char):
			continue
		case char == '/' || char == '\\':
			builder.WriteRune('_')
		default:
			builder.WriteRune(char)
		}
	}

	cleaned := strings.TrimSpace(builder.String())
	if cleaned == "" {
		return "", apierror.New("INVALID_FILENAME", "filename is invalid after sanitization", trimmed, http.StatusBadRequest)
	}

	runes := []rune(cleaned)
	if len(runes) > maxNameRunes {
		runes = runes[:maxNameRunes]
	}
	cleaned = string(runes)

	if cleaned == "." || cleaned == ".." {
		return "", apierror.New("INVALID_FILENAME", "filename cannot be a relative segment", cleaned, http.StatusBadRequest)
	}

	return cleaned, nil
}

// isInvisibleUnicode matches zero-width and other format characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F',
		'\u2060', '\u2061', '\u2062', '\u2063', '\u2064',
		'\uFEFF', '\uFFF9', '\uFFFA', '\uFFFB':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
