package api

import (
	"errors"
	"fmt"
	"net/http"

	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"github.com/gin-gonic/gin"
)

const (
	msgNotFound    = "File not found or no associated chunks."
	msgUnavailable = "Service Unavailable: an upstream dependency is not responding"
)

// abort writes {"detail": msg} with status and stops the chain.
func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// uploadStatus maps an ingestion failure to a status and the message naming the failed file.
func uploadStatus(err error) (int, string) {
	var fe *ragerr.FileError
	name := ""
	if errors.As(err, &fe) {
		name = fe.Filename
	}
	switch {
	case errors.Is(err, ragerr.ErrInvalidFormat):
		return http.StatusBadRequest, fmt.Sprintf("Invalid file format for '%s'. Only PDF files are supported.", name)
	case errors.Is(err, ragerr.ErrUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Error processing file: %s", name)
	}
}

// deleteStatus maps a deletion failure. Downstream failures carry the cause string.
func deleteStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ragerr.ErrUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	case errors.Is(err, ragerr.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Error deleting chunks: %v", err)
	}
}

// askStatus maps a question answering failure.
func askStatus(err error) (int, string) {
	if errors.Is(err, ragerr.ErrUnavailable) {
		return http.StatusServiceUnavailable, msgUnavailable
	}
	return http.StatusInternalServerError, fmt.Sprintf("Error answering question: %v", err)
}
