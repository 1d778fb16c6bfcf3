package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"supportbot/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Refund policy</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Refunds take </w:t></w:r><w:r><w:t>5 days.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Col A</w:t><w:tab/><w:t>Col B</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtractDOCX(t *testing.T) {
	text, err := Extract(MIMEDOCX, buildDOCX(t, sampleDocument))
	require.NoError(t, err)
	assert.Equal(t, "Refund policy\nRefunds take 5 days.\nCol A\tCol B", text)
}

func TestExtractDOCXWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract(MIMEDOCX, buf.Bytes())
	require.ErrorIs(t, err, util.ErrExtractionFailed)
}

func TestExtractDOCXNotAZip(t *testing.T) {
	_, err := Extract(MIMEDOCX, []byte("plain bytes"))
	require.ErrorIs(t, err, util.ErrExtractionFailed)
}

func TestExtractPlainText(t *testing.T) {
	text, err := Extract(MIMEText, []byte("\xef\xbb\xbf  Hello\x00 world \n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestExtractPlainTextInvalidUTF8(t *testing.T) {
	_, err := Extract(MIMEText, []byte{0xff, 0xfe, 0xfd})
	require.ErrorIs(t, err, util.ErrExtractionFailed)
}

func TestExtractBlankText(t *testing.T) {
	_, err := Extract(MIMEText, []byte(" \n\t "))
	require.ErrorIs(t, err, util.ErrNoExtractableText)
	assert.True(t, IsClientError(err))
}

func TestExtractBrokenPDF(t *testing.T) {
	_, err := Extract(MIMEPDF, []byte("%PDF-1.4 truncated"))
	require.ErrorIs(t, err, util.ErrExtractionFailed)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract("image/png", []byte{0x89})
	require.ErrorIs(t, err, util.ErrUnsupportedFormat)
	assert.True(t, IsClientError(err))
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.txt")
	require.NoError(t, os.WriteFile(path, []byte("Shipping is free."), 0o644))
	text, err := ExtractFile(path, MIMEText)
	require.NoError(t, err)
	assert.Equal(t, "Shipping is free.", text)

	_, err = ExtractFile(filepath.Join(t.TempDir(), "missing.txt"), MIMEText)
	require.Error(t, err)
	assert.False(t, IsClientError(err))
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, MIMEPDF, DetectMIME("application/pdf", "x.bin"))
	assert.Equal(t, MIMEText, DetectMIME("text/plain; charset=utf-8", "x"))
	assert.Equal(t, MIMEDOCX, DetectMIME("application/octet-stream", "Guide.DOCX"))
	assert.Equal(t, MIMEMarkdown, DetectMIME("", "README.md"))
	assert.Equal(t, "", DetectMIME("", "archive.tar"))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(DetectMIME("", "manual.pdf")))
	assert.True(t, Supported(MIMEMarkdown))
	assert.False(t, Supported("image/png"))
	assert.False(t, Supported(""))
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "guide.v2", TitleFromFilename("guide.v2.pdf"))
	assert.Equal(t, "notes", TitleFromFilename("C:\\docs\\notes.txt"))
	assert.Equal(t, "README", TitleFromFilename("/tmp/README"))
	assert.Equal(t, "", TitleFromFilename(""))
}
