package loaders

import (
	"fmt"
	"mime"
	"strings"

	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"github.com/gabriel-vasile/mimetype"
)

// PDFContentType is the only content type accepted for uploads.
const PDFContentType = "application/pdf"

// ValidatePDF checks that both the declared content type and the file extension say PDF.
func ValidatePDF(filename, contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	if !strings.EqualFold(mediaType, PDFContentType) || !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return ragerr.NewFileError(filename, fmt.Errorf("%w: %q with content type %q", ragerr.ErrInvalidFormat, filename, contentType))
	}
	return nil
}

// SniffPDF reports whether the bytes look like a PDF regardless of what the client declared.
func SniffPDF(data []byte) bool {
	return mimetype.Detect(data).Is(PDFContentType)
}
