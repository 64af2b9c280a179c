package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/health"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/internal/rag_service/service"
	"pdfrag/backend/go/pkg/httpmiddleware"
	"pdfrag/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// uploadField is the multipart field carrying the PDFs.
const uploadField = "files"

// API provides handlers for the RAG service.
type API struct {
	service *service.Service
	health  *health.Checker
	logger  *logger.Logger
}

// NewAPI creates a new API handler.
func NewAPI(service *service.Service, health *health.Checker, logger *logger.Logger) *API {
	return &API{
		service: service,
		health:  health,
		logger:  logger,
	}
}

// AskRequest is the body of POST /rag/ask-question.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
	K        int    `json:"k" binding:"omitempty,min=1,max=20"`
}

// UploadHandler ingests one or more PDFs sent in the "files" field.
func (a *API) UploadHandler(c *gin.Context) {
	log := httpmiddleware.LoggerFrom(c, a.logger)

	form, err := c.MultipartForm()
	if err != nil || len(form.File[uploadField]) == 0 {
		log.Warn("Upload request without files")
		abort(c, http.StatusUnprocessableEntity, fmt.Sprintf("field '%s' is required", uploadField))
		return
	}

	files := make([]schema.UploadFile, 0, len(form.File[uploadField]))
	for _, fh := range form.File[uploadField] {
		data, err := readPart(fh)
		if err != nil {
			log.WithError(models.NewErrorInfo(err, "upload_error")).With("filename", fh.Filename).Error("Failed to read multipart file")
			abort(c, http.StatusInternalServerError, fmt.Sprintf("Error processing file: %s", fh.Filename))
			return
		}
		files = append(files, schema.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := a.service.Upload(c.Request.Context(), files)
	if err != nil {
		status, msg := uploadStatus(err)
		abort(c, status, msg)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListHandler returns every stored upload, newest first.
func (a *API) ListHandler(c *gin.Context) {
	recs, err := a.service.ListRecords(c.Request.Context())
	if err != nil {
		httpmiddleware.LoggerFrom(c, a.logger).WithError(models.NewErrorInfo(err, "store_error")).Error("Failed to list documents")
		abort(c, http.StatusInternalServerError, "Error listing documents")
		return
	}
	c.JSON(http.StatusOK, recs)
}

// GetHandler returns one upload by record id.
func (a *API) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	rec, err := a.service.GetRecord(c.Request.Context(), id)
	switch {
	case errors.Is(err, ragerr.ErrNotFound):
		abort(c, http.StatusNotFound, msgNotFound)
	case err != nil:
		httpmiddleware.LoggerFrom(c, a.logger).WithError(models.NewErrorInfo(err, "store_error")).Error("Failed to get document")
		abort(c, http.StatusInternalServerError, "Error reading document")
	default:
		c.JSON(http.StatusOK, rec)
	}
}

// ListFilenamesHandler returns the filenames known to the document store.
func (a *API) ListFilenamesHandler(c *gin.Context) {
	names, err := a.service.ListFilenames(c.Request.Context())
	if err != nil {
		httpmiddleware.LoggerFrom(c, a.logger).WithError(models.NewErrorInfo(err, "store_error")).Error("Failed to list filenames")
		abort(c, http.StatusInternalServerError, "Error listing documents")
		return
	}
	c.JSON(http.StatusOK, names)
}

// DeleteByIDHandler deletes one upload and its chunks.
func (a *API) DeleteByIDHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	res, err := a.service.DeleteByID(c.Request.Context(), id)
	if err != nil {
		status, msg := deleteStatus(err)
		abort(c, status, msg)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteByFilenameHandler deletes every upload stored under ?filename=.
func (a *API) DeleteByFilenameHandler(c *gin.Context) {
	filename := c.Query("filename")
	if filename == "" {
		abort(c, http.StatusUnprocessableEntity, "query parameter 'filename' is required")
		return
	}
	res, err := a.service.DeleteByFilename(c.Request.Context(), filename)
	if err != nil {
		status, msg := deleteStatus(err)
		abort(c, status, msg)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AskHandler answers a question from the indexed documents.
func (a *API) AskHandler(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpmiddleware.LoggerFrom(c, a.logger).WithError(models.NewErrorInfo(err, "validation_error")).Warn("Invalid request payload")
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := a.service.Ask(c.Request.Context(), req.Question, req.K)
	if err != nil {
		httpmiddleware.LoggerFrom(c, a.logger).WithError(models.NewErrorInfo(err, "qa_error")).Error("Failed to answer question")
		status, msg := askStatus(err)
		abort(c, status, msg)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HealthHandler reports the status of every backend. 503 when any check fails.
func (a *API) HealthHandler(c *gin.Context) {
	report := a.health.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
