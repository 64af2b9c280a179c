// Package mcp exposes question answering and document management as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/pkg/logger"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RAG is the part of service.Service the tools use.
type RAG interface {
	Ask(ctx context.Context, question string, k int) (*schema.AnswerResult, error)
	ListRecords(ctx context.Context) ([]schema.FileRecord, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (*schema.DeletionResult, error)
}

// Tools holds the dependencies of the tool handlers.
type Tools struct {
	rag RAG
	log *logger.Logger
}

// NewTools creates Tools.
func NewTools(rag RAG, log *logger.Logger) *Tools {
	return &Tools{rag: rag, log: log}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(name, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a question from the indexed PDF documents. Returns the answer in Markdown with cited sources and a confidence label."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of chunks to retrieve (1-20)"),
		),
	), tools.AskQuestion)

	s.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the uploaded PDF documents with their record ids and chunk counts."),
	), tools.ListDocuments)

	s.AddTool(mcp.NewTool("delete_document",
		mcp.WithDescription("Delete an uploaded document and all of its indexed chunks by record id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Record id returned by list_documents"),
		),
	), tools.DeleteDocument)

	return s
}

// AskQuestion handles the ask_question tool.
func (t *Tools) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	k := request.GetInt("k", 0)
	if k < 0 || k > 20 {
		return mcp.NewToolResultError("k must be between 1 and 20"), nil
	}

	res, err := t.rag.Ask(ctx, question, k)
	if err != nil {
		t.log.With("tool", "ask_question").With("error", err.Error()).Error("MCP tool call failed")
		return mcp.NewToolResultError(fmt.Sprintf("Error answering question: %v", err)), nil
	}
	return jsonResult(res)
}

// ListDocuments handles the list_documents tool.
func (t *Tools) ListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := t.rag.ListRecords(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing documents: %v", err)), nil
	}

	type entry struct {
		ID       string  `json:"id"`
		Filename string  `json:"filename"`
		SizeMB   float64 `json:"size_mb"`
		Chunks   int     `json:"chunks"`
	}
	out := make([]entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, entry{ID: r.ID.String(), Filename: r.Filename, SizeMB: r.SizeMB, Chunks: len(r.ChunkIDs)})
	}
	return jsonResult(out)
}

// DeleteDocument handles the delete_document tool.
func (t *Tools) DeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("File not found or no associated chunks."), nil
	}

	res, err := t.rag.DeleteByID(ctx, id)
	switch {
	case errors.Is(err, ragerr.ErrNotFound):
		return mcp.NewToolResultError("File not found or no associated chunks."), nil
	case err != nil:
		t.log.With("tool", "delete_document").With("error", err.Error()).Error("MCP tool call failed")
		return mcp.NewToolResultError(fmt.Sprintf("Error deleting chunks: %v", err)), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
