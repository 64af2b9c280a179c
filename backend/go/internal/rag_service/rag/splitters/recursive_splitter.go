package splitters

import (
	"context"
	"fmt"
	"strings"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	"github.com/tmc/langchaingo/textsplitter"
)

// RecursiveSplitter splits on paragraph, line and word boundaries until chunks fit ChunkSize characters.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// NewRecursiveSplitter creates a RecursiveSplitter. chunkOverlap must be smaller than chunkSize.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) (*RecursiveSplitter, error) {
	if err := checkSizes(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}, nil
}

// Split splits every page independently so each chunk keeps its page metadata.
func (s *RecursiveSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parts, err := s.splitter.SplitText(doc.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split text: %w", err)
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, &schema.Document{
				Text:     part,
				Metadata: copyMetadata(doc.Metadata),
			})
		}
	}
	return chunks, nil
}

var _ interfaces.Splitter = (*RecursiveSplitter)(nil)
