package splitters

import (
	"fmt"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
)

// New builds the splitter selected by rag.splitter.
func New(cfg config.RAGConfig) (interfaces.Splitter, error) {
	switch cfg.Splitter {
	case "", "recursive":
		return NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	case "token":
		return NewTokenSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	default:
		return nil, fmt.Errorf("unknown splitter %q", cfg.Splitter)
	}
}

func checkSizes(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	return nil
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	if md == nil {
		return make(map[string]interface{})
	}
	newMd := make(map[string]interface{}, len(md))
	for k, v := range md {
		newMd[k] = v
	}
	return newMd
}
