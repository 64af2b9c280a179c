package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// ChromaStore keeps chunks in a Chroma collection. Embeddings are computed here and sent explicitly.
type ChromaStore struct {
	client     chromago.Client
	collection chromago.Collection
	emb        interfaces.EmbeddingModel
}

// NewChromaStore connects to Chroma and gets or creates the configured collection.
func NewChromaStore(ctx context.Context, cfg *config.ChromaConfig, emb interfaces.EmbeddingModel) (*ChromaStore, error) {
	var opts []chromago.ClientOption
	if cfg.URL != "" {
		opts = append(opts, chromago.WithBaseURL(cfg.URL))
	}
	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(ctx, cfg.Collection,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "PDF chunks keyed by chunk id"),
				chromago.NewStringAttribute("created_by", "pdfrag"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to get or create chroma collection %q: %w", cfg.Collection, err)
	}
	return &ChromaStore{client: client, collection: collection, emb: emb}, nil
}

func (s *ChromaStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	vectors, err := embedDocs(ctx, s.emb, docs)
	if err != nil {
		return err
	}

	ids := make([]chromago.DocumentID, len(docs))
	texts := make([]string, len(docs))
	embs := make([]embeddings.Embedding, len(docs))
	metas := make([]chromago.DocumentMetadata, len(docs))
	for i, d := range docs {
		ids[i] = chromago.DocumentID(d.ID)
		texts[i] = d.Text
		embs[i] = embeddings.NewEmbeddingFromFloat32(vectors[i])
		metas[i] = chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(schema.MetadataKeySource, metaString(d.Metadata, schema.MetadataKeySource)),
			chromago.NewIntAttribute(schema.MetadataKeyPage, metaInt(d.Metadata, schema.MetadataKeyPage)),
			chromago.NewIntAttribute(schema.MetadataKeyChunkIndex, metaInt(d.Metadata, schema.MetadataKeyChunkIndex)),
		)
	}

	err = s.collection.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %d chunks into chromadb: %w", len(docs), err)
	}
	return nil
}

func (s *ChromaStore) Search(ctx context.Context, query string, k int) ([]*schema.Document, error) {
	if k <= 0 {
		return []*schema.Document{}, nil
	}
	q, err := embedQuery(ctx, s.emb, query)
	if err != nil {
		return nil, err
	}

	results, err := s.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(q)),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	idGroups := results.GetIDGroups()
	docGroups := results.GetDocumentsGroups()
	metaGroups := results.GetMetadatasGroups()

	out := []*schema.Document{}
	if len(idGroups) == 0 {
		return out, nil
	}
	for i, id := range idGroups[0] {
		doc := &schema.Document{ID: string(id), Metadata: map[string]interface{}{}}
		if len(docGroups) > 0 && i < len(docGroups[0]) && docGroups[0][i] != nil {
			doc.Text = docGroups[0][i].ContentString()
		}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) && metaGroups[0][i] != nil {
			// DocumentMetadata has no accessor for all values; round-trip through JSON.
			if raw, err := json.Marshal(metaGroups[0][i]); err == nil {
				_ = json.Unmarshal(raw, &doc.Metadata)
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *ChromaStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	docIDs := make([]chromago.DocumentID, len(ids))
	for i, id := range ids {
		docIDs[i] = chromago.DocumentID(id)
	}
	if err := s.collection.Delete(ctx, chromago.WithIDsDelete(docIDs...)); err != nil {
		return fmt.Errorf("failed to delete %d chunks from chromadb: %w", len(ids), err)
	}
	return nil
}

func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(ctx)
}

// Close releases the HTTP client.
func (s *ChromaStore) Close() error {
	return s.client.Close()
}

var _ interfaces.VectorStore = (*ChromaStore)(nil)
