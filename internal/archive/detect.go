package archive

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind identifies an archive format
type Kind int

const (
	KindNone Kind = iota
	KindZip
	KindTar
	KindGzip
	KindBzip2
	KindXz
	KindTarGz
	KindTarBz2
	KindTarXz
	KindRar
	Kind7z
)

// String returns the human-readable format name
func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTar:
		return "tar"
	case KindGzip:
		return "gzip"
	case KindBzip2:
		return "bzip2"
	case KindXz:
		return "xz"
	case KindTarGz:
		return "tar.gz"
	case KindTarBz2:
		return "tar.bz2"
	case KindTarXz:
		return "tar.xz"
	case KindRar:
		return "rar"
	case Kind7z:
		return "7z"
	default:
		return "none"
	}
}

// Supported reports whether the extractor can unpack this kind. Rar and 7z
// archives are recognized but have no unpacker; extracting one is a no-op.
func (k Kind) Supported() bool {
	switch k {
	case KindZip, KindTar, KindGzip, KindBzip2, KindXz, KindTarGz, KindTarBz2, KindTarXz:
		return true
	default:
		return false
	}
}

// compoundExts map tar-in-compression filename shapes onto their kinds. The
// content signature only reveals the outer compression, so the filename
// decides between plain gzip and a gzipped tarball.
var compoundExts = []struct {
	suffix string
	kind   Kind
}{
	{".tar.gz", KindTarGz},
	{".tgz", KindTarGz},
	{".tar.bz2", KindTarBz2},
	{".tbz2", KindTarBz2},
	{".tar.xz", KindTarXz},
	{".txz", KindTarXz},
}

// ClassifyFile detects the archive kind of the file at path by content
// signature, refined by the filename for compound tar extensions. A file
// that is not an archive yields KindNone with no error.
func ClassifyFile(path string) (Kind, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return KindNone, err
	}
	return classify(mtype, filepath.Base(path)), nil
}

// ClassifyBytes detects the archive kind from in-memory content, refined by
// the given filename.
func ClassifyBytes(data []byte, name string) Kind {
	return classify(mimetype.Detect(data), name)
}

func classify(mtype *mimetype.MIME, name string) Kind {
	lower := strings.ToLower(name)

	switch {
	case mtype.Is("application/zip"):
		return KindZip
	case mtype.Is("application/x-tar"):
		return KindTar
	case mtype.Is("application/gzip"):
		return compoundOr(lower, KindGzip)
	case mtype.Is("application/x-bzip2"):
		return compoundOr(lower, KindBzip2)
	case mtype.Is("application/x-xz"):
		return compoundOr(lower, KindXz)
	case mtype.Is("application/x-rar-compressed"), mtype.Is("application/vnd.rar"):
		return KindRar
	case mtype.Is("application/x-7z-compressed"):
		return Kind7z
	default:
		return KindNone
	}
}

// compoundOr upgrades a compression kind to its tar-compound kind when the
// filename says the payload is a tarball
func compoundOr(lowerName string, plain Kind) Kind {
	for _, ce := range compoundExts {
		if strings.HasSuffix(lowerName, ce.suffix) {
			switch plain {
			case KindGzip:
				if ce.kind == KindTarGz {
					return ce.kind
				}
			case KindBzip2:
				if ce.kind == KindTarBz2 {
					return ce.kind
				}
			case KindXz:
				if ce.kind == KindTarXz {
					return ce.kind
				}
			}
		}
	}
	return plain
}

// DestinationName derives the extraction directory name for an archive
// filename. Simple extensions are stripped ("report.zip" becomes
// "report_extracted"); compound tar extensions fold their dots into
// underscores ("logs.tar.gz" becomes "logs_tar_gz_extracted") so the
// directory name still reveals the original format.
func DestinationName(filename string, kind Kind) string {
	switch kind {
	case KindTarGz, KindTarBz2, KindTarXz:
		base := strings.ReplaceAll(filename, ".", "_")
		return base + "_extracted"
	default:
		base := strings.TrimSuffix(filename, filepath.Ext(filename))
		if base == "" {
			base = filename
		}
		return base + "_extracted"
	}
}

// DecompressedName derives the output filename for a single-file
// decompression ("notes.txt.gz" becomes "notes.txt")
func DecompressedName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" || base == filename {
		return filename + ".out"
	}
	return base
}
