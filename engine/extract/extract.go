package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// FileType enumerates the document formats accepted for indexing.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeTXT FileType = "txt"
)

var (
	// ErrUnsupportedType reports a file type outside the accepted set.
	ErrUnsupportedType = errors.New("extract: unsupported file type")
	// ErrEmptyText reports a document from which no text could be extracted.
	ErrEmptyText = errors.New("extract: no text could be extracted")
)

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// ParseFileType derives the file type from a filename extension.
func ParseFileType(filename string) (FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch FileType(ext) {
	case FileTypePDF:
		return FileTypePDF, nil
	case FileTypeTXT:
		return FileTypeTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// Text extracts the textual content of a document. Newlines are normalized
// and surrounding whitespace trimmed; an empty result is an error.
func Text(data []byte, fileType FileType) (string, error) {
	var text string
	switch fileType {
	case FileTypePDF:
		text = pdfText(data)
	case FileTypeTXT:
		text = plainText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, fileType)
	}
	text = strings.TrimSpace(newlinePattern.ReplaceAllString(text, "\n"))
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// pdfText extracts plain text from a PDF, falling back to scraping printable
// runes when the document lacks a well-formed text layer.
func pdfText(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return string(out)
			}
		}
	}
	return printableText(data)
}

// plainText decodes UTF-8 content, falling back to Latin-1 for legacy files.
func plainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}

func printableText(in []byte) string {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if b := in[0]; isPrintableASCII(b) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func isPrintableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32 && r <= 0x10FFFF
}
