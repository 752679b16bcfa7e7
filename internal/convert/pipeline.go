package convert

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// isRichType reports whether the content type is worth sending to the rich
// converter
func isRichType(contentType string) bool {
	switch contentType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.oasis.opendocument.text",
		"application/rtf",
		"text/rtf",
		"image/png",
		"image/jpeg",
		"image/tiff":
		return true
	}
	return false
}

// Pipeline converts stored file content to text through a layered fallback
// chain: the rich converter first when one is configured and the type is
// supported, then structural HTML conversion, then best-effort charset
// decoding. Conversion never fails; the worst outcome is degraded text.
type Pipeline struct {
	rich RichConverter
}

// NewPipeline builds a conversion pipeline. rich may be nil when no external
// converter is configured.
func NewPipeline(rich RichConverter) *Pipeline {
	return &Pipeline{rich: rich}
}

// HasRichConverter reports whether an external converter is configured
func (p *Pipeline) HasRichConverter() bool {
	return p.rich != nil
}

// ToText converts content to text. The returned error is reserved for
// context cancellation; every conversion problem degrades to the next stage
// instead of failing.
func (p *Pipeline) ToText(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mtype := mimetype.Detect(content)
	contentType := mtype.String()
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}

	if p.rich != nil && isRichType(contentType) {
		text, err := p.rich.Convert(ctx, filename, content)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("rich conversion failed, using fallback",
			"filename", filename,
			"content_type", contentType,
			"error", err)
	}

	if contentType == "text/html" || contentType == "application/xhtml+xml" {
		if text, err := HTMLToText(decodeText(content)); err == nil {
			return text, nil
		}
	}

	return decodeText(content), nil
}

// decodeText decodes raw bytes to UTF-8 text, detecting the charset and
// substituting undecodable bytes rather than failing
func decodeText(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	if utf8.Valid(content) {
		return string(content)
	}

	if result, err := chardet.NewTextDetector().DetectBest(content); err == nil {
		if enc := lookupEncoding(result.Charset); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(content); err == nil && utf8.Valid(decoded) {
				return string(decoded)
			}
		}
	}

	return strings.ToValidUTF8(string(content), "�")
}

// lookupEncoding resolves a detected charset name against the HTML and IANA
// registries
func lookupEncoding(name string) encoding.Encoding {
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		return enc
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc
	}
	return nil
}
