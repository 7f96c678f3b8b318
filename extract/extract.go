// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/docchat/core"
)

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// Extractor turns raw document bytes into plain text.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger: logger.With("component", "extractor"),
	}
}

// Extract returns the text content of data interpreted as kind.
// Unsupported kinds and unreadable files yield empty text and no error;
// only context cancellation is reported.
func (e *Extractor) Extract(ctx context.Context, kind core.DocumentKind, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch kind {
	case core.KindPDF:
		text, err = PDFText(data)
	case core.KindDocx:
		text, err = DocxText(data)
	case core.KindText:
		text = PlainText(data)
	default:
		e.logger.Debug("unsupported document kind", "kind", kind)
		return "", nil
	}

	if err != nil {
		e.logger.Warn("could not extract text", "kind", kind, "bytes", len(data), "err", err)
		return "", nil
	}
	return text, nil
}

// PlainText decodes data as UTF-8, dropping invalid byte sequences.
func PlainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r != utf8.RuneError || size > 1 {
			b.WriteRune(r)
		}
		data = data[size:]
	}
	return b.String()
}

// PDFText concatenates the plain text of every page.
func PDFText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPDF, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPDF, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPDF, err)
	}
	return buf.String(), nil
}

// DocxText returns the paragraphs of word/document.xml, one per line.
func DocxText(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedDocx, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedDocx, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedDocx, err)
		}

		return parseDocumentXML(content)
	}
	return "", nil
}

// documentXML mirrors the parts of word/document.xml that carry text.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedDocx, err)
	}

	lines := make([]string, len(doc.Body.Paragraphs))
	for i, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n"), nil
}

// KindFromFilename classifies a file by its extension.
func KindFromFilename(name string) core.DocumentKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return core.KindPDF
	case ".docx":
		return core.KindDocx
	case ".txt", ".text", ".md":
		return core.KindText
	default:
		return core.KindUnsupported
	}
}

// KindFromMIME classifies a MIME type such as an upload's Content-Type.
func KindFromMIME(mimeType string) core.DocumentKind {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch mediaType {
	case mimePDF:
		return core.KindPDF
	case mimeDocx:
		return core.KindDocx
	case mimeText:
		return core.KindText
	default:
		return core.KindUnsupported
	}
}

// SupportedExtensions lists the file extensions with a non-empty extractor.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt", ".text", ".md"}
}
