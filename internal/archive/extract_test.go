package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
)

func TestExtract_Zip(t *testing.T) {
	dir := t.TempDir()
	data := zipBytes(t, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
	})
	src := filepath.Join(dir, "data.zip")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data_extracted"), result.Destination)
	assert.Equal(t, 1, result.ArchiveCount)
	assert.Equal(t, 2, result.FileCount)
	assert.False(t, result.Nested)

	alpha, err := os.ReadFile(filepath.Join(result.Destination, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(alpha))
	assert.FileExists(t, filepath.Join(result.Destination, "sub", "b.txt"))

	// The archive itself is untouched
	assert.FileExists(t, src)
	assert.NoDirExists(t, result.Destination+".partial")
}

func TestExtract_TarGz(t *testing.T) {
	dir := t.TempDir()
	data := gzipBytes(t, tarBytes(t, map[string]string{
		"logs/app.log": "line one",
	}))
	src := filepath.Join(dir, "logs.tar.gz")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "logs_tar_gz_extracted"), result.Destination)
	assert.FileExists(t, filepath.Join(result.Destination, "logs", "app.log"))
}

func TestExtract_GzipSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt.gz")
	require.NoError(t, os.WriteFile(src, gzipBytes(t, []byte("my notes")), 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "notes.txt_extracted"), result.Destination)
	content, err := os.ReadFile(filepath.Join(result.Destination, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "my notes", string(content))
}

func TestExtract_NestedArchive(t *testing.T) {
	dir := t.TempDir()
	inner := zipBytes(t, map[string]string{"deep.txt": "buried"})

	// Assemble outer.zip containing inner.zip as a member
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("inner.zip")
	require.NoError(t, err)
	_, err = w.Write(inner)
	require.NoError(t, err)
	w, err = zw.Create("cover.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("top"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	src := filepath.Join(dir, "outer.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ArchiveCount)
	assert.True(t, result.Nested)
	// inner.zip is an archive, not a leaf file: only cover.txt and deep.txt count
	assert.Equal(t, 2, result.FileCount)
	assert.Empty(t, result.Failures)

	assert.FileExists(t, filepath.Join(result.Destination, "cover.txt"))
	assert.FileExists(t, filepath.Join(result.Destination, "inner.zip"))
	assert.FileExists(t, filepath.Join(result.Destination, "inner_extracted", "deep.txt"))
}

func TestExtract_NestedChainCountsLeafFilesOnly(t *testing.T) {
	dir := t.TempDir()
	inner := gzipBytes(t, tarBytes(t, map[string]string{"c.txt": "bottom"}))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("b.tar.gz")
	require.NoError(t, err)
	_, err = w.Write(inner)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	src := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ArchiveCount)
	assert.Equal(t, 1, result.FileCount)
	assert.FileExists(t, filepath.Join(result.Destination, "b_tar_gz_extracted", "c.txt"))
}

func TestExtract_CorruptNestedArchiveIsolated(t *testing.T) {
	dir := t.TempDir()
	corrupt := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0xde, 0xad}, 64)...)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("good.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("intact"))
	require.NoError(t, err)
	w, err = zw.Create("broken.zip")
	require.NoError(t, err)
	_, err = w.Write(corrupt)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	src := filepath.Join(dir, "outer.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	// The corrupt nested archive fails alone; the rest of the output stays
	assert.FileExists(t, filepath.Join(result.Destination, "good.txt"))
	assert.FileExists(t, filepath.Join(result.Destination, "broken.zip"))
	assert.NoDirExists(t, filepath.Join(result.Destination, "broken_extracted"))
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "broken.zip")
	assert.Equal(t, 1, result.ArchiveCount)
	assert.Equal(t, 1, result.FileCount)
}

func TestExtract_UnsupportedKindIsNoOp(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.rar")
	require.NoError(t, os.WriteFile(src, []byte("Rar!\x1a\x07\x00garbage"), 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Empty(t, result.Destination)
	assert.Zero(t, result.ArchiveCount)
	assert.Zero(t, result.FileCount)
	assert.NoDirExists(t, filepath.Join(dir, "data_extracted"))
}

func TestExtract_DuplicateNestedArchiveUnpackedOnce(t *testing.T) {
	dir := t.TempDir()
	inner := zipBytes(t, map[string]string{"deep.txt": "buried"})

	// Two members with identical content: the second is the same archive
	// under another name, the shape a cyclic nesting resolves to
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"dup1.zip", "dup2.zip"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(inner)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	src := filepath.Join(dir, "outer.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ArchiveCount)
	assert.Equal(t, 1, result.FileCount)
	assert.FileExists(t, filepath.Join(result.Destination, "dup1_extracted", "deep.txt"))
	assert.NoDirExists(t, filepath.Join(result.Destination, "dup2_extracted"))
}

func TestExtract_ArchiveLimitCompletesWithOutput(t *testing.T) {
	dir := t.TempDir()
	inner := zipBytes(t, map[string]string{"deep.txt": "buried"})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("inner.zip")
	require.NoError(t, err)
	_, err = w.Write(inner)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	src := filepath.Join(dir, "outer.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	ex := NewExtractor()
	ex.MaxArchives = 1

	result, err := ex.Extract(src)
	require.NoError(t, err)

	// Recursion stops at the limit, already-extracted content stays
	assert.FileExists(t, filepath.Join(result.Destination, "inner.zip"))
	assert.NoDirExists(t, filepath.Join(result.Destination, "inner_extracted"))
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "limit")
}

func TestExtract_TraversalEntryConfined(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../escape.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("should stay inside"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	src := filepath.Join(dir, "tricky.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	result, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	// The traversal component is stripped, the file lands inside
	assert.FileExists(t, filepath.Join(result.Destination, "escape.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestExtract_DestinationCollisionGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	data := zipBytes(t, map[string]string{"a.txt": "x"})
	src := filepath.Join(dir, "data.zip")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	first, err := NewExtractor().Extract(src)
	require.NoError(t, err)
	second, err := NewExtractor().Extract(src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data_extracted"), first.Destination)
	assert.Equal(t, filepath.Join(dir, "data_extracted_2"), second.Destination)
	assert.FileExists(t, filepath.Join(first.Destination, "a.txt"))
	assert.FileExists(t, filepath.Join(second.Destination, "a.txt"))
}

func TestExtract_NotAnArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(src, []byte("plain text"), 0o644))

	_, err := NewExtractor().Extract(src)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestExtract_CorruptArchiveLeavesNothing(t *testing.T) {
	dir := t.TempDir()

	// Valid zip signature followed by garbage
	corrupt := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0xde, 0xad}, 64)...)
	src := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(src, corrupt, 0o644))

	_, err := NewExtractor().Extract(src)
	require.Error(t, err)
	assert.True(t, apperrors.IsArchiveFailure(err))

	// Failed extraction leaves no partial output behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "broken.zip", entries[0].Name())
}

func TestExtract_FileLimit(t *testing.T) {
	dir := t.TempDir()
	data := zipBytes(t, map[string]string{
		"a.txt": "1", "b.txt": "2", "c.txt": "3",
	})
	src := filepath.Join(dir, "data.zip")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	ex := NewExtractor()
	ex.MaxFiles = 2

	_, err := ex.Extract(src)
	require.Error(t, err)
	assert.True(t, apperrors.IsArchiveFailure(err))
	assert.NoDirExists(t, filepath.Join(dir, "data_extracted"))
}
