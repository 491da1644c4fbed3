package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrInvalidText       = errors.New("document is not valid UTF-8 text")
	ErrTooLarge          = errors.New("document exceeds size limit")
)

// IsExtractionError reports whether err means the document itself could not
// be turned into text, as opposed to an I/O failure.
func IsExtractionError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrInvalidText) ||
		errors.Is(err, ErrTooLarge)
}

// Format identifies how a document's text is extracted
type Format int

const (
	FormatUnknown Format = iota
	FormatText
	FormatHTML
	FormatPDF
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatHTML:
		return "html"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// Document is a resume or job description reduced to plain text
type Document struct {
	Name   string
	Title  string // HTML <title>, if any
	Format Format
	Text   string
}

// DetectFormat picks a format from the content type, falling back to the
// file extension when the content type is empty or generic.
func DetectFormat(name, contentType string) Format {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case "text/plain", "text/markdown":
				return FormatText
			case "text/html", "application/xhtml+xml":
				return FormatHTML
			case "application/pdf":
				return FormatPDF
			}
		}
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".md":
		return FormatText
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	case ".pdf":
		return FormatPDF
	}
	return FormatUnknown
}

// Supported reports whether Extract can read documents of this format.
func (f Format) Supported() bool {
	return f == FormatText || f == FormatHTML
}

// Extractor turns uploaded or on-disk files into Documents
type Extractor struct {
	maxBytes int64
}

func NewExtractor(maxBytes int64) *Extractor {
	return &Extractor{maxBytes: maxBytes}
}

// Extract reads r and returns its text. Plain text must be UTF-8 (a UTF-8 or
// UTF-16 byte order mark is honored); HTML is reduced to its visible text.
func (e *Extractor) Extract(name, contentType string, r io.Reader) (*Document, error) {
	format := DetectFormat(name, contentType)
	if !format.Supported() {
		if format == FormatPDF {
			return nil, fmt.Errorf("%w: %s: PDF text extraction is not available, upload a .txt or .html export", ErrUnsupportedFormat, name)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, name, e.maxBytes)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	doc := &Document{
		Name:   name,
		Format: format,
	}
	if format == FormatHTML {
		if err := parseHTML(strings.NewReader(text), doc); err != nil {
			return nil, fmt.Errorf("parsing error in %s: %w", name, err)
		}
		return doc, nil
	}

	doc.Text = text
	return doc, nil
}

// ExtractFile opens path and extracts it using its extension.
func (e *Extractor) ExtractFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return e.Extract(filepath.Base(path), "", file)
}

func decodeText(data []byte) (string, error) {
	utf16 := bytes.HasPrefix(data, []byte{0xFE, 0xFF}) || bytes.HasPrefix(data, []byte{0xFF, 0xFE})
	if !utf16 && !utf8.Valid(data) {
		return "", ErrInvalidText
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	return string(decoded), nil
}

// parseHTML extracts the title and visible text using the standard tokenizer
func parseHTML(body io.Reader, doc *Document) error {
	tokenizer := html.NewTokenizer(body)
	var textBuilder strings.Builder
	inScript := false
	inStyle := false
	inTitle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				doc.Text = cleanText(textBuilder.String())
				return nil
			}
			return tokenizer.Err()

		case html.StartTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = true
			case "style":
				inStyle = true
			case "title":
				inTitle = true
			}

		case html.EndTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = false
			case "style":
				inStyle = false
			case "title":
				inTitle = false
			}

		case html.TextToken:
			data := tokenizer.Token().Data
			if inTitle {
				doc.Title = strings.TrimSpace(data)
			}
			if !inScript && !inStyle {
				text := strings.TrimSpace(data)
				if text != "" {
					textBuilder.WriteString(text + " ")
				}
			}
		}
	}
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
