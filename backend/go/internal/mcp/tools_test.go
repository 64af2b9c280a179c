package mcp

import (
	"context"
	"errors"
	"testing"

	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/pkg/logger"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRAG struct {
	gotK      int
	askErr    error
	deleteErr error
	records   []schema.FileRecord
}

func (f *fakeRAG) Ask(ctx context.Context, question string, k int) (*schema.AnswerResult, error) {
	f.gotK = k
	if f.askErr != nil {
		return nil, f.askErr
	}
	high := "High"
	return &schema.AnswerResult{Answer: "42", Sources: []schema.Source{{Filename: "a.pdf", Page: 1}}, Confidence: &high}, nil
}

func (f *fakeRAG) ListRecords(ctx context.Context) ([]schema.FileRecord, error) {
	return f.records, nil
}

func (f *fakeRAG) DeleteByID(ctx context.Context, id uuid.UUID) (*schema.DeletionResult, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &schema.DeletionResult{Message: "2 chunk(s) of the file 'a.pdf' deleted successfully.", DeletedChunks: 2, Filename: "a.pdf"}, nil
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestAskQuestion(t *testing.T) {
	rag := &fakeRAG{}
	tools := NewTools(rag, logger.Nop())

	res, err := tools.AskQuestion(context.Background(), call(map[string]any{"question": "meaning?", "k": 3}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"answer": "42"`)
	assert.Equal(t, 3, rag.gotK)

	res, err = tools.AskQuestion(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAskQuestionFailure(t *testing.T) {
	tools := NewTools(&fakeRAG{askErr: errors.New("llm down")}, logger.Nop())

	res, err := tools.AskQuestion(context.Background(), call(map[string]any{"question": "q"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "llm down")
}

func TestListDocuments(t *testing.T) {
	id := uuid.New()
	tools := NewTools(&fakeRAG{records: []schema.FileRecord{{ID: id, Filename: "a.pdf", ChunkIDs: []string{"x", "y"}}}}, logger.Nop())

	res, err := tools.ListDocuments(context.Background(), call(nil))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, id.String())
	assert.Contains(t, out, `"chunks": 2`)
}

func TestDeleteDocument(t *testing.T) {
	tools := NewTools(&fakeRAG{}, logger.Nop())

	res, err := tools.DeleteDocument(context.Background(), call(map[string]any{"id": uuid.NewString()}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "2 chunk(s) of the file 'a.pdf' deleted successfully.", text(t, res))

	res, _ = tools.DeleteDocument(context.Background(), call(map[string]any{"id": "nope"}))
	assert.True(t, res.IsError)

	missing := NewTools(&fakeRAG{deleteErr: ragerr.ErrNotFound}, logger.Nop())
	res, _ = missing.DeleteDocument(context.Background(), call(map[string]any{"id": uuid.NewString()}))
	assert.True(t, res.IsError)
	assert.Equal(t, "File not found or no associated chunks.", text(t, res))
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("pdfrag", "test", NewTools(&fakeRAG{}, logger.Nop()))
	require.NotNil(t, s)
}
