package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, documentXML string) []byte {
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

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>SUMMARY:</w:t></w:r></w:p>
    <w:p><w:r><w:t>Revenue grew </w:t></w:r><w:r><w:t>ten percent.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Costs were flat.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtract_PlainText(t *testing.T) {
	e := New(nil)
	text, err := e.Extract(context.Background(), core.KindText, []byte("INTRO:\nHello world"))
	require.NoError(t, err)
	assert.Equal(t, "INTRO:\nHello world", text)
}

func TestExtract_Docx(t *testing.T) {
	e := New(nil)
	text, err := e.Extract(context.Background(), core.KindDocx, buildDocx(t, sampleDocumentXML))
	require.NoError(t, err)
	assert.Equal(t, "SUMMARY:\nRevenue grew ten percent.\n\nCosts were flat.", text)
}

func TestExtract_UnsupportedYieldsEmptyText(t *testing.T) {
	e := New(nil)
	text, err := e.Extract(context.Background(), core.KindUnsupported, []byte("\x89PNG\r\n"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_MalformedInputsYieldEmptyText(t *testing.T) {
	e := New(nil)
	ctx := context.Background()

	text, err := e.Extract(ctx, core.KindPDF, []byte("not a pdf"))
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = e.Extract(ctx, core.KindDocx, []byte("not a zip"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Extract(ctx, core.KindText, []byte("hello"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocxText_Errors(t *testing.T) {
	_, err := DocxText([]byte("garbage"))
	assert.ErrorIs(t, err, ErrMalformedDocx)

	_, err = DocxText(buildDocx(t, "<w:document><w:body>"))
	assert.ErrorIs(t, err, ErrMalformedDocx)
}

func TestDocxText_MissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("docProps/core.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := DocxText(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestPDFText_Malformed(t *testing.T) {
	_, err := PDFText([]byte("%PDF-1.4 truncated"))
	assert.ErrorIs(t, err, ErrMalformedPDF)
}

func TestPlainText_DropsInvalidUTF8(t *testing.T) {
	assert.Equal(t, "héllo", PlainText([]byte("h\xc3\xa9l\xfflo")))
	assert.Equal(t, "keep �", PlainText([]byte("keep �")))
}

func TestKindFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want core.DocumentKind
	}{
		{"report.pdf", core.KindPDF},
		{"REPORT.PDF", core.KindPDF},
		{"notes.docx", core.KindDocx},
		{"a.txt", core.KindText},
		{"README.md", core.KindText},
		{"image.png", core.KindUnsupported},
		{"noext", core.KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFromFilename(tt.name))
		})
	}
}

func TestKindFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want core.DocumentKind
	}{
		{"application/pdf", core.KindPDF},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", core.KindDocx},
		{"text/plain", core.KindText},
		{"text/plain; charset=utf-8", core.KindText},
		{"image/png", core.KindUnsupported},
		{"", core.KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFromMIME(tt.mime))
		})
	}
}
