package validator

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "report.pdf", "report.pdf"},
		{"unicode name", "Überweisung Q3.pdf", "Überweisung Q3.pdf"},
		{"path separators", "a/b\\c.txt", "a_b_c.txt"},
		{"traversal", "../../etc/passwd", "_.._etc_passwd"},
		{"reserved characters", `in<va>li:d"na|me?.txt`, "in_va_li_d_na_me_.txt"},
		{"control characters", "na\x00me\x1f.txt", "name.txt"},
		{"leading dots", "...hidden", "hidden"},
		{"trailing dots and spaces", "report.pdf. . ", "report.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"report.pdf",
		"../../etc/passwd",
		`in<va>li:d"na|me?.txt`,
		"...   ",
		strings.Repeat("a", 300) + ".txt",
		"",
	}

	for _, input := range inputs {
		once := Sanitize(input)
		assert.Equal(t, once, Sanitize(once), "input %q", input)
	}
}

func TestSanitize_EmptyResultGetsFallback(t *testing.T) {
	for _, input := range []string{"", "...", "  ", "\x01\x02"} {
		got := Sanitize(input)
		assert.True(t, strings.HasPrefix(got, "file_"), "input %q gave %q", input, got)
		assert.Len(t, got, len("file_")+12)
	}

	// Fallback is deterministic per input
	assert.Equal(t, Sanitize("..."), Sanitize("..."))
	assert.NotEqual(t, Sanitize("..."), Sanitize("  "))
}

func TestSanitize_TruncatesPreservingExtension(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 300) + ".txt")

	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxFilenameLength)
	assert.True(t, strings.HasSuffix(got, ".txt"))
}

func TestSanitizeRelPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean path", "a/b/c.txt", "a/b/c.txt"},
		{"backslashes", `a\b\c.txt`, "a/b/c.txt"},
		{"traversal dropped", "../../evil.txt", "evil.txt"},
		{"dot components dropped", "./a/./b", "a/b"},
		{"empty components dropped", "a//b", "a/b"},
		{"absolute becomes relative", "/etc/passwd", "etc/passwd"},
		{"all traversal", "../..", ""},
		{"reserved in component", "a/b:c.txt", "a/b_c.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeRelPath(tt.input))
		})
	}
}

func TestHashedNameFor(t *testing.T) {
	a := HashedNameFor([]byte("payload one"))
	b := HashedNameFor([]byte("payload two"))

	assert.True(t, strings.HasPrefix(a, "file_"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashedNameFor([]byte("payload one")))
}
