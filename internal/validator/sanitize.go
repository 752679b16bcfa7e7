package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxFilenameLength is the longest filename the store will produce
const MaxFilenameLength = 255

// dangerousChars are replaced with underscores: path separators, Windows
// reserved punctuation, and shell-unfriendly characters.
const dangerousChars = `<>:"/\|?*`

// Sanitize normalizes a filename for safe storage. It replaces separators and
// reserved characters, strips control characters, trims leading/trailing dots
// and spaces, and truncates to MaxFilenameLength preserving the extension.
// Sanitize is deterministic and idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
// A name that sanitizes to nothing is replaced by a hash-derived fallback.
func Sanitize(name string) string {
	original := name

	// Replace reserved characters
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(dangerousChars, r) {
			return '_'
		}
		// Drop control characters (ASCII 0-31 and 127)
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, name)

	// Leading/trailing dots and spaces hide extensions and break Windows
	name = strings.Trim(name, ". ")

	if name == "" {
		return hashedName(original)
	}

	if utf8.RuneCountInString(name) > MaxFilenameLength {
		name = truncatePreservingExt(name)
	}

	return name
}

// SanitizeRelPath sanitizes a slash- or backslash-separated relative path one
// component at a time, dropping empty, ".", and ".." components. The result is
// always a clean forward-slash relative path; a path that sanitizes to nothing
// returns the empty string and should be skipped by the caller.
func SanitizeRelPath(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")

	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		safe := Sanitize(part)
		if safe != "" {
			parts = append(parts, safe)
		}
	}

	return strings.Join(parts, "/")
}

// hashedName derives a stable fallback name from the given seed bytes
func hashedName(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return "file_" + hex.EncodeToString(sum[:6])
}

// HashedNameFor derives a fallback filename from content bytes, used when an
// attachment carries no filename at all.
func HashedNameFor(content []byte) string {
	sum := sha256.Sum256(content)
	return "file_" + hex.EncodeToString(sum[:6])
}

// truncatePreservingExt shortens a name to MaxFilenameLength runes, keeping
// the extension when it is reasonably sized
func truncatePreservingExt(name string) string {
	ext := filepath.Ext(name)
	if utf8.RuneCountInString(ext) > 32 {
		ext = ""
	}

	base := strings.TrimSuffix(name, ext)
	baseRunes := []rune(base)
	keep := MaxFilenameLength - utf8.RuneCountInString(ext)
	if keep < 1 {
		keep = 1
	}
	if len(baseRunes) > keep {
		baseRunes = baseRunes[:keep]
	}

	// Re-trim: truncation may expose a trailing dot or space
	return strings.TrimRight(string(baseRunes), ". ") + ext
}
