package storage

import (
	"path"
	"strings"
	"unicode"

	"s3-explorer/internal/model"
)

// NormalizeKey returns the canonical form of a client supplied path: forward
// slashes only, no leading, trailing or repeated separators. The bucket root
// is the empty string. NormalizeKey(NormalizeKey(p)) == NormalizeKey(p).
func NormalizeKey(raw string) string {
	replaced := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	if replaced == "" {
		return ""
	}

	segments := strings.Split(replaced, "/")
	kept := segments[:0]
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		kept = append(kept, segment)
	}

	return strings.Join(kept, "/")
}

// ValidateKey rejects paths that cannot be safely mapped onto a key.
func ValidateKey(raw string) error {
	if strings.Contains(raw, "\x00") || hasControlCharacters(raw) {
		return model.Invalid("path contains invalid characters")
	}

	for _, segment := range strings.Split(strings.ReplaceAll(raw, `\`, "/"), "/") {
		if segment == "." || segment == ".." {
			return model.Invalid("path contains relative segment %q", segment)
		}
	}

	return nil
}

// CleanKey validates and normalizes in one step.
func CleanKey(raw string) (string, error) {
	if err := ValidateKey(raw); err != nil {
		return "", err
	}

	return NormalizeKey(raw), nil
}

// ParentKey returns the parent folder of key. The parent of a top level
// entry, and of the root itself, is the root.
func ParentKey(key string) string {
	key = NormalizeKey(key)
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return ""
	}

	return key[:idx]
}

func JoinKey(parts ...string) string {
	return NormalizeKey(strings.Join(parts, "/"))
}

func BaseName(key string) string {
	key = NormalizeKey(key)
	if key == "" {
		return ""
	}

	return path.Base(key)
}

// FolderKey returns the listing prefix of a folder: the key plus a trailing
// slash, or "" for the root.
func FolderKey(key string) string {
	key = NormalizeKey(key)
	if key == "" {
		return ""
	}

	return key + "/"
}

// IsWithin reports whether candidate equals folder or lies beneath it.
// Comparison is segment aware, so "docs2" is not within "docs".
func IsWithin(folder string, candidate string) bool {
	folder = NormalizeKey(folder)
	candidate = NormalizeKey(candidate)

	if folder == "" || folder == candidate {
		return true
	}

	return strings.HasPrefix(candidate, folder+"/")
}

// Ancestors lists key and each of its parents, nearest first, ending with
// the root.
func Ancestors(key string) []string {
	key = NormalizeKey(key)

	chain := []string{key}
	for cursor := key; cursor != ""; {
		parent := ParentKey(cursor)
		if parent == cursor {
			break
		}
		chain = append(chain, parent)
		cursor = parent
	}

	return chain
}

// SplitExt splits a file name into stem and extension. Leading dots of hidden
// files are not treated as an extension separator.
func SplitExt(name string) (string, string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}

	return name[:idx], name[idx:]
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}
