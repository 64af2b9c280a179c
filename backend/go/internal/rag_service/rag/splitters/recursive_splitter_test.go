package splitters

import (
	"context"
	"strings"
	"testing"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveSplitterKeepsPageMetadata(t *testing.T) {
	s, err := NewRecursiveSplitter(100, 20)
	require.NoError(t, err)

	page1 := strings.Repeat("alpha beta gamma delta ", 12)
	docs := []*schema.Document{
		{Text: page1, Metadata: map[string]interface{}{schema.MetadataKeySource: "a.pdf", schema.MetadataKeyPage: 1}},
		{Text: "short second page", Metadata: map[string]interface{}{schema.MetadataKeySource: "a.pdf", schema.MetadataKeyPage: 2}},
	}

	chunks, err := s.Split(context.Background(), docs)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 100)
		assert.Equal(t, "a.pdf", c.Source())
	}
	last := chunks[len(chunks)-1]
	assert.Equal(t, 2, last.Page())
	assert.Equal(t, "short second page", last.Text)
	assert.Equal(t, 1, chunks[0].Page())

	// chunks must not share the page's metadata map
	chunks[0].Metadata["x"] = 1
	assert.NotContains(t, docs[0].Metadata, "x")
}

func TestRecursiveSplitterSkipsBlankText(t *testing.T) {
	s, err := NewRecursiveSplitter(50, 0)
	require.NoError(t, err)

	chunks, err := s.Split(context.Background(), []*schema.Document{{Text: "   "}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitterSizes(t *testing.T) {
	_, err := NewRecursiveSplitter(100, 100)
	assert.Error(t, err)
	_, err = NewRecursiveSplitter(0, 0)
	assert.Error(t, err)
	_, err = New(config.RAGConfig{Splitter: "sentence", ChunkSize: 10})
	assert.Error(t, err)

	s, err := New(config.RAGConfig{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)
	assert.IsType(t, &RecursiveSplitter{}, s)
}
