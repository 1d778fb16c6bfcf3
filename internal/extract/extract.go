package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"supportbot/internal/util"

	"github.com/ledongthuc/pdf"
)

const (
	MIMEPDF      = "application/pdf"
	MIMEDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText     = "text/plain"
	MIMEMarkdown = "text/markdown"
)

var extByMIME = map[string]string{
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
	".txt":  MIMEText,
	".text": MIMEText,
	".md":   MIMEMarkdown,
}

// DetectMIME prefers the declared content type (parameters stripped) and
// falls back to the file extension when the declaration is missing or
// generic.
func DetectMIME(declared, filename string) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		mt = strings.ToLower(mt)
		if mt != "application/octet-stream" && mt != "" {
			return mt
		}
	}
	return extByMIME[strings.ToLower(filepath.Ext(filename))]
}

// Supported reports whether Extract can handle mimeType.
func Supported(mimeType string) bool {
	switch mimeType {
	case MIMEPDF, MIMEDOCX, MIMEText, MIMEMarkdown:
		return true
	}
	return false
}

// TitleFromFilename drops directories and the final extension.
func TitleFromFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extract returns the sanitized plain text of a PDF, DOCX or text payload.
func Extract(mimeType string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch mimeType {
	case MIMEPDF:
		text, err = extractPDF(data)
	case MIMEDOCX:
		text, err = extractDOCX(data)
	case MIMEText, MIMEMarkdown:
		text, err = extractPlain(data)
	default:
		return "", fmt.Errorf("%w: %q", util.ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return "", err
	}
	text = util.SanitizeText(text)
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}

func ExtractFile(path, mimeType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return Extract(mimeType, data)
}

// IsClientError reports whether err came from the upload itself rather than
// from the server.
func IsClientError(err error) bool {
	return errors.Is(err, util.ErrUnsupportedFormat) ||
		errors.Is(err, util.ErrExtractionFailed) ||
		errors.Is(err, util.ErrNoExtractableText)
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", util.ErrExtractionFailed, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", util.ErrExtractionFailed, err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extract pdf text: %w", util.ErrExtractionFailed, err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("%w: read pdf text: %w", util.ErrExtractionFailed, err)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %w", util.ErrExtractionFailed, err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open document.xml: %w", util.ErrExtractionFailed, err)
		}
		defer rc.Close()
		return documentXMLText(rc)
	}
	return "", fmt.Errorf("%w: docx has no word/document.xml", util.ErrExtractionFailed)
}

// documentXMLText collects w:t runs, turning paragraphs and breaks into
// newlines and w:tab into tabs.
func documentXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parse document.xml: %w", util.ErrExtractionFailed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func extractPlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", util.ErrExtractionFailed)
	}
	return string(data), nil
}
