package splitters

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	"github.com/pkoukk/tiktoken-go"
)

// TokenSplitter implements the Splitter interface to split documents based on token count.
type TokenSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	tokenizer    *tiktoken.Tiktoken
}

// NewTokenSplitter creates a new TokenSplitter.
// It initializes a tokenizer for the specified model.
func NewTokenSplitter(chunkSize, chunkOverlap int) (*TokenSplitter, error) {
	if err := checkSizes(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	// Using "cl100k_base" which is the tokenizer for gpt-4, gpt-3.5-turbo, and text-embedding-ada-002
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    tke,
	}, nil
}

// Split splits a list of documents into smaller chunks based on the token size.
func (s *TokenSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document
	step := s.ChunkSize - s.ChunkOverlap

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := s.tokenizer.Encode(doc.Text, nil, nil)

		for start := 0; start < len(tokens); start += step {
			end := start + s.ChunkSize
			if end > len(tokens) {
				end = len(tokens)
			}

			chunks = append(chunks, &schema.Document{
				Text:     s.tokenizer.Decode(tokens[start:end]),
				Metadata: copyMetadata(doc.Metadata),
			})

			if end == len(tokens) {
				break
			}
		}
	}

	return chunks, nil
}

// compile-time check to ensure TokenSplitter implements the Splitter interface
var _ interfaces.Splitter = (*TokenSplitter)(nil)
