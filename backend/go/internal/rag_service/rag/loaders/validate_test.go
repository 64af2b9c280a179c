package loaders

import (
	"errors"
	"testing"

	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"github.com/stretchr/testify/assert"
)

func TestValidatePDF(t *testing.T) {
	cases := []struct {
		name        string
		filename    string
		contentType string
		ok          bool
	}{
		{"pdf", "report.pdf", "application/pdf", true},
		{"upper extension", "REPORT.PDF", "application/pdf", true},
		{"content type params", "a.pdf", "application/pdf; charset=binary", true},
		{"text file", "notes.txt", "text/plain", false},
		{"renamed text", "notes.pdf", "text/plain", false},
		{"wrong extension", "report.docx", "application/pdf", false},
		{"no content type", "report.pdf", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePDF(tc.filename, tc.contentType)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ragerr.ErrInvalidFormat))
			var fe *ragerr.FileError
			assert.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.filename, fe.Filename)
		})
	}
}

func TestSniffPDF(t *testing.T) {
	assert.True(t, SniffPDF([]byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")))
	assert.False(t, SniffPDF([]byte("hello world")))
}
