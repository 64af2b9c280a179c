package vectorstore

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
)

// embedDocs returns one vector per doc. Docs that already carry an embedding are not re-embedded.
func embedDocs(ctx context.Context, emb interfaces.EmbeddingModel, docs []*schema.Document) ([][]float32, error) {
	vectors := make([][]float32, len(docs))
	var (
		texts []string
		pos   []int
	)
	for i, d := range docs {
		if len(d.Embedding) > 0 {
			vectors[i] = d.Embedding
			continue
		}
		texts = append(texts, d.Text)
		pos = append(pos, i)
	}
	if len(texts) == 0 {
		return vectors, nil
	}
	if emb == nil {
		return nil, fmt.Errorf("no embedding model configured")
	}

	embedded, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(texts), err)
	}
	if len(embedded) != len(texts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d chunks", len(embedded), len(texts))
	}
	for j, i := range pos {
		vectors[i] = embedded[j]
	}
	return vectors, nil
}

func embedQuery(ctx context.Context, emb interfaces.EmbeddingModel, query string) ([]float32, error) {
	if emb == nil {
		return nil, fmt.Errorf("no embedding model configured")
	}
	vectors, err := emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding model returned %d vectors for one query", len(vectors))
	}
	return vectors[0], nil
}

func metaString(md map[string]interface{}, key string) string {
	s, _ := md[key].(string)
	return s
}

func metaInt(md map[string]interface{}, key string) int64 {
	switch v := md[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func chunkMetadata(source string, page, chunkIndex int64) map[string]interface{} {
	return map[string]interface{}{
		schema.MetadataKeySource:     source,
		schema.MetadataKeyPage:       int(page),
		schema.MetadataKeyChunkIndex: int(chunkIndex),
	}
}
