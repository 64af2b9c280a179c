package loaders

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	"github.com/ledongthuc/pdf"
)

// PdfLoader implements the Loader interface for reading PDF files.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load parses the PDF held in data and returns a Document for each page that has text.
// Pages are numbered from 1. Blank pages are skipped.
func (l *PdfLoader) Load(ctx context.Context, filename string, data []byte) (docs []*schema.Document, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", filename)
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("failed to parse %s: %v", filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d of %s: %w", i, filename, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, &schema.Document{
			Text: text,
			Metadata: map[string]interface{}{
				schema.MetadataKeySource: filename,
				schema.MetadataKeyPage:   i,
			},
		})
	}

	return docs, nil
}

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
