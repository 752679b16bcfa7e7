package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
	"github.com/lgwanai/email-mcp/internal/validator"
)

// Resource limits for a single extraction call
const (
	DefaultMaxArchives   = 100
	DefaultMaxFiles      = 10000
	DefaultMaxTotalBytes = 1 << 30 // 1 GiB of decompressed output
)

// Extractor unpacks archives recursively. Nested archives found inside an
// extraction are themselves extracted into sibling directories until none
// remain or a limit is hit.
type Extractor struct {
	MaxArchives   int
	MaxFiles      int
	MaxTotalBytes int64
}

// NewExtractor returns an Extractor with default limits
func NewExtractor() *Extractor {
	return &Extractor{
		MaxArchives:   DefaultMaxArchives,
		MaxFiles:      DefaultMaxFiles,
		MaxTotalBytes: DefaultMaxTotalBytes,
	}
}

// Result summarizes one extraction call
type Result struct {
	// Destination is the directory the archive was extracted into,
	// a sibling of the archive file. Empty for a no-op on an
	// unsupported format.
	Destination string

	// ArchiveCount counts archives unpacked, the root one included
	ArchiveCount int

	// FileCount counts non-archive leaf files written across all levels
	FileCount int

	// Nested reports whether any nested archive was unpacked
	Nested bool

	// Failures lists nested archives that could not be unpacked. Their
	// siblings and the rest of the output are unaffected.
	Failures []string
}

// extraction carries the mutable state of one Extract call
type extraction struct {
	ex           *Extractor
	visited      map[string]bool
	worklist     []string
	failures     []string
	archiveCount int
	fileCount    int
	bytesWritten int64
}

// Extract unpacks the archive at archivePath into a fresh sibling directory
// and recursively unpacks any nested archives it finds. The destination
// directory appears only after the root archive unpacked successfully; on a
// root failure the partial output is removed and nothing of the attempt
// remains except the returned error. A failing nested archive loses only its
// own output and is reported in Result.Failures; siblings and already
// extracted content stay. Existing files are never overwritten: a destination
// name that is already taken gets a numeric suffix.
func (e *Extractor) Extract(archivePath string) (*Result, error) {
	kind, err := ClassifyFile(archivePath)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrArchiveFailure,
			fmt.Sprintf("cannot read archive %s: %v", filepath.Base(archivePath), err),
			apperrors.CodeArchiveFailure)
	}
	if kind == KindNone {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput,
			fmt.Sprintf("%s is not an archive", filepath.Base(archivePath)),
			apperrors.CodeInvalidInput)
	}
	if !kind.Supported() {
		// Recognized formats without an unpacker (rar, 7z) are a no-op,
		// not an error
		return &Result{}, nil
	}

	parent := filepath.Dir(archivePath)
	destDir := uniqueDirPath(parent, DestinationName(filepath.Base(archivePath), kind))
	staging := destDir + ".partial"

	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	st := &extraction{ex: e, visited: map[string]bool{}}
	if digest, err := fileDigest(archivePath); err == nil {
		st.visited[digest] = true
	}

	if err := st.unpack(archivePath, kind, staging); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	// Drain nested archives. Each one is unpacked into its own directory
	// next to where it was found, still inside the staging tree.
	for len(st.worklist) > 0 {
		nested := st.worklist[0]
		st.worklist = st.worklist[1:]

		if st.archiveCount >= e.MaxArchives {
			st.failures = append(st.failures, fmt.Sprintf(
				"nested archive limit of %d reached, %d archives skipped",
				e.MaxArchives, len(st.worklist)+1))
			break
		}

		// The visited set is keyed by content so a self-referential or
		// cyclically nested archive unpacks exactly once
		digest, err := fileDigest(nested)
		if err != nil {
			st.failures = append(st.failures,
				fmt.Sprintf("%s: %v", filepath.Base(nested), err))
			continue
		}
		if st.visited[digest] {
			continue
		}
		st.visited[digest] = true

		nestedKind, err := ClassifyFile(nested)
		if err != nil || !nestedKind.Supported() {
			continue
		}

		nestedDest := uniqueDirPath(filepath.Dir(nested), DestinationName(filepath.Base(nested), nestedKind))
		if err := os.MkdirAll(nestedDest, 0o755); err != nil {
			st.failures = append(st.failures,
				fmt.Sprintf("%s: %v", filepath.Base(nested), err))
			continue
		}
		if err := st.unpack(nested, nestedKind, nestedDest); err != nil {
			// A bad nested archive loses only its own output
			os.RemoveAll(nestedDest)
			st.failures = append(st.failures,
				fmt.Sprintf("%s: %v", filepath.Base(nested), err))
		}
	}

	if err := os.Rename(staging, destDir); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to finalize extraction: %w", err)
	}

	return &Result{
		Destination:  destDir,
		ArchiveCount: st.archiveCount,
		FileCount:    st.fileCount,
		Nested:       st.archiveCount > 1,
		Failures:     st.failures,
	}, nil
}

// unpack dispatches one archive into dir and enqueues nested archives
func (st *extraction) unpack(src string, kind Kind, dir string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var unpackErr error
	switch kind {
	case KindZip:
		unpackErr = st.unpackZip(src, dir)
	case KindTar:
		unpackErr = st.unpackTar(src, f, dir)
	case KindTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return corruptArchive(src, err)
		}
		defer gz.Close()
		unpackErr = st.unpackTar(src, gz, dir)
	case KindTarBz2:
		unpackErr = st.unpackTar(src, bzip2.NewReader(f), dir)
	case KindTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return corruptArchive(src, err)
		}
		unpackErr = st.unpackTar(src, xr, dir)
	case KindGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return corruptArchive(src, err)
		}
		defer gz.Close()
		unpackErr = st.writeEntry(dir, DecompressedName(filepath.Base(src)), gz)
	case KindBzip2:
		unpackErr = st.writeEntry(dir, DecompressedName(filepath.Base(src)), bzip2.NewReader(f))
	case KindXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return corruptArchive(src, err)
		}
		unpackErr = st.writeEntry(dir, DecompressedName(filepath.Base(src)), xr)
	default:
		return apperrors.NewAppError(apperrors.ErrArchiveFailure,
			fmt.Sprintf("archive format %s is not supported", kind),
			apperrors.CodeArchiveFailure)
	}
	if unpackErr != nil {
		return unpackErr
	}

	st.archiveCount++
	return nil
}

func (st *extraction) unpackZip(src, dir string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return corruptArchive(src, err)
	}
	defer zr.Close()

	for _, member := range zr.File {
		rel := validator.SanitizeRelPath(member.Name)
		if rel == "" {
			continue
		}

		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(filepath.Join(dir, rel), 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if !member.Mode().IsRegular() {
			// Symlinks and devices are dropped, they could point
			// outside the extraction directory
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return corruptArchive(src, err)
		}
		err = st.writeEntry(dir, rel, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func (st *extraction) unpackTar(src string, r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return corruptArchive(src, err)
		}

		rel := validator.SanitizeRelPath(hdr.Name)
		if rel == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(filepath.Join(dir, rel), 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := st.writeEntry(dir, rel, tr); err != nil {
				return err
			}
		}
		// Symlinks, hard links and devices are dropped
	}

	return nil
}

// writeEntry writes one extracted file under dir, enforcing the containment
// check, the never-overwrite rule, and the output limits. Files that turn
// out to be archives themselves are queued for nested extraction.
func (st *extraction) writeEntry(dir, rel string, r io.Reader) error {
	if st.fileCount >= st.ex.MaxFiles {
		return apperrors.NewAppError(apperrors.ErrArchiveFailure,
			fmt.Sprintf("extraction file limit of %d exceeded", st.ex.MaxFiles),
			apperrors.CodeArchiveFailure)
	}

	target := filepath.Join(dir, rel)

	// SanitizeRelPath already dropped traversal components; this guards
	// against anything that slipped through
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve extraction directory: %w", err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("failed to resolve entry path: %w", err)
	}
	relCheck, err := filepath.Rel(absDir, absTarget)
	if err != nil || relCheck == ".." || len(relCheck) >= 3 && relCheck[:3] == ".."+string(filepath.Separator) {
		return apperrors.NewAppError(apperrors.ErrArchiveFailure,
			fmt.Sprintf("archive entry %s escapes the extraction directory", rel),
			apperrors.CodeArchiveFailure)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	target = uniqueFilePath(target)

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	remaining := st.ex.MaxTotalBytes - st.bytesWritten
	n, err := io.Copy(out, io.LimitReader(r, remaining+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if n > remaining {
		return apperrors.NewAppError(apperrors.ErrArchiveFailure,
			fmt.Sprintf("extraction output limit of %d bytes exceeded", st.ex.MaxTotalBytes),
			apperrors.CodeArchiveFailure)
	}

	st.bytesWritten += n

	// Nested archives queue for their own extraction pass instead of
	// counting as leaf files
	if kind, err := ClassifyFile(target); err == nil && kind.Supported() {
		st.worklist = append(st.worklist, target)
		return nil
	}

	st.fileCount++
	return nil
}

// fileDigest returns the content hash identifying one archive
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func corruptArchive(src string, err error) error {
	return apperrors.NewAppError(apperrors.ErrArchiveFailure,
		fmt.Sprintf("corrupt archive %s: %v", filepath.Base(src), err),
		apperrors.CodeArchiveFailure)
}

// uniqueDirPath returns dir/name, suffixed _2, _3, ... if already taken
func uniqueDirPath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	for i := 2; ; i++ {
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d", name, i))
	}
}

// uniqueFilePath returns path, inserting _2, _3, ... before the extension
// if already taken
func uniqueFilePath(path string) string {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
