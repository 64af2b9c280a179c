package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pdfrag/backend/go/internal/database/milvus"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusStore is an adapter for the Milvus client that implements the VectorStore interface.
// Chunk ids are the primary key, so Add is an upsert.
type MilvusStore struct {
	log         *logger.Logger
	client      client.Client
	emb         interfaces.EmbeddingModel
	collection  string
	vectorField string
	metric      entity.MetricType
}

// NewMilvusStore creates a new MilvusStore adapter and makes sure the collection exists.
func NewMilvusStore(ctx context.Context, milvusClient *milvus.MilvusClient, emb interfaces.EmbeddingModel, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	metric := entity.MetricType(milvusClient.Config.Schema.Index.MetricType)
	if metric == "" {
		metric = entity.L2
	}
	return &MilvusStore{
		log:         log,
		client:      milvusClient.Client,
		emb:         emb,
		collection:  milvusClient.Config.Schema.CollectionName,
		vectorField: milvusClient.Config.Schema.VectorField,
		metric:      metric,
	}, nil
}

// Add upserts documents into the Milvus collection.
func (s *MilvusStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	vectors, err := embedDocs(ctx, s.emb, docs)
	if err != nil {
		return err
	}

	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	sources := make([]string, len(docs))
	pages := make([]int64, len(docs))
	chunkIdx := make([]int64, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		texts[i] = doc.Text
		sources[i] = metaString(doc.Metadata, schema.MetadataKeySource)
		pages[i] = metaInt(doc.Metadata, schema.MetadataKeyPage)
		chunkIdx[i] = metaInt(doc.Metadata, schema.MetadataKeyChunkIndex)
	}

	s.log.Info(fmt.Sprintf("Upserting %d chunks into Milvus collection: %s", len(docs), s.collection))
	_, err = s.client.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(milvus.FieldID, ids),
		entity.NewColumnVarChar(milvus.FieldText, texts),
		entity.NewColumnVarChar(milvus.FieldSource, sources),
		entity.NewColumnInt64(milvus.FieldPage, pages),
		entity.NewColumnInt64(milvus.FieldChunkIndex, chunkIdx),
		entity.NewColumnFloatVector(s.vectorField, len(vectors[0]), vectors),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert data into Milvus: %w", err)
	}
	return nil
}

// Search embeds the query and runs a top-k similarity search.
func (s *MilvusStore) Search(ctx context.Context, query string, k int) ([]*schema.Document, error) {
	if k <= 0 {
		return []*schema.Document{}, nil
	}
	q, err := embedQuery(ctx, s.emb, query)
	if err != nil {
		return nil, err
	}

	searchParams, _ := entity.NewIndexIvfFlatSearchParam(10)
	outputFields := []string{milvus.FieldText, milvus.FieldSource, milvus.FieldPage, milvus.FieldChunkIndex}

	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(q)},
		s.vectorField, s.metric, k, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	results := make([]*schema.Document, 0, k)
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := res.IDs.(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing ID field or has wrong type, skipping.")
			continue
		}
		var (
			texts, sources  []string
			pages, chunkIdx []int64
		)
		if c, ok := findColumn(milvus.FieldText).(*entity.ColumnVarChar); ok {
			texts = c.Data()
		}
		if c, ok := findColumn(milvus.FieldSource).(*entity.ColumnVarChar); ok {
			sources = c.Data()
		}
		if c, ok := findColumn(milvus.FieldPage).(*entity.ColumnInt64); ok {
			pages = c.Data()
		}
		if c, ok := findColumn(milvus.FieldChunkIndex).(*entity.ColumnInt64); ok {
			chunkIdx = c.Data()
		}

		for i := 0; i < res.ResultCount; i++ {
			doc := &schema.Document{
				ID:       idCol.Data()[i],
				Score:    res.Scores[i],
				Metadata: chunkMetadata(at(sources, i), at(pages, i), at(chunkIdx, i)),
			}
			doc.Text = at(texts, i)
			results = append(results, doc)
		}
	}
	return results, nil
}

// Delete removes chunks by primary key.
func (s *MilvusStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	expr := fmt.Sprintf("%s in [%s]", milvus.FieldID, strings.Join(quoted, ","))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete data from Milvus: %w", err)
	}
	return nil
}

// Count reports the collection row count. Deleted rows may be counted until compaction.
func (s *MilvusStore) Count(ctx context.Context) (int, error) {
	stats, err := s.client.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to read Milvus statistics: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("unexpected row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

func at[T any](s []T, i int) T {
	var zero T
	if i < len(s) {
		return s[i]
	}
	return zero
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
