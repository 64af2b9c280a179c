package api

import (
	"time"

	"pdfrag/backend/go/pkg/httpmiddleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the RAG service.
// /health stays reachable without an API key.
func RegisterRoutes(router *gin.Engine, api *API, apiKey string, timeout time.Duration) {
	router.Use(httpmiddleware.APIKey(apiKey, "/health"))

	router.GET("/health", api.HealthHandler)

	documents := router.Group("/documents")
	documents.Use(httpmiddleware.Timeout(timeout))
	{
		documents.POST("", api.UploadHandler)
		documents.GET("", api.ListHandler)
		documents.GET("/filenames", api.ListFilenamesHandler)
		documents.GET("/:id", api.GetHandler)
		documents.DELETE("", api.DeleteByFilenameHandler)
		documents.DELETE("/:id", api.DeleteByIDHandler)
	}

	rag := router.Group("/rag")
	rag.Use(httpmiddleware.Timeout(timeout))
	{
		rag.POST("/ask-question", api.AskHandler)
	}
}
