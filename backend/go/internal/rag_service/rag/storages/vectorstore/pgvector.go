package vectorstore

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkEmbedding is one row of chunk_embeddings.
type ChunkEmbedding struct {
	ID         string          `gorm:"primaryKey;size:1024"`
	Text       string          `gorm:"type:text;not null"`
	Source     string          `gorm:"size:512;index"`
	Page       int64           `gorm:"not null"`
	ChunkIndex int64           `gorm:"not null"`
	Embedding  pgvector.Vector `gorm:"type:vector;not null"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}

// PgvectorStore keeps embeddings in PostgreSQL next to document_records and orders by cosine distance.
type PgvectorStore struct {
	db  *gorm.DB
	emb interfaces.EmbeddingModel
}

// NewPgvectorStore enables the vector extension and migrates chunk_embeddings.
func NewPgvectorStore(ctx context.Context, db *gorm.DB, emb interfaces.EmbeddingModel) (*PgvectorStore, error) {
	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&ChunkEmbedding{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chunk_embeddings: %w", err)
	}
	return &PgvectorStore{db: db, emb: emb}, nil
}

func (s *PgvectorStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	vectors, err := embedDocs(ctx, s.emb, docs)
	if err != nil {
		return err
	}

	rows := make([]ChunkEmbedding, len(docs))
	for i, d := range docs {
		rows[i] = ChunkEmbedding{
			ID:         d.ID,
			Text:       d.Text,
			Source:     metaString(d.Metadata, schema.MetadataKeySource),
			Page:       metaInt(d.Metadata, schema.MetadataKeyPage),
			ChunkIndex: metaInt(d.Metadata, schema.MetadataKeyChunkIndex),
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert chunk embeddings: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Search(ctx context.Context, query string, k int) ([]*schema.Document, error) {
	if k <= 0 {
		return []*schema.Document{}, nil
	}
	q, err := embedQuery(ctx, s.emb, query)
	if err != nil {
		return nil, err
	}

	var rows []ChunkEmbedding
	err = s.db.WithContext(ctx).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "embedding <=> ?",
			Vars:               []interface{}{pgvector.NewVector(q)},
			WithoutParentheses: true,
		}}).
		Limit(k).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search chunk embeddings: %w", err)
	}

	out := make([]*schema.Document, len(rows))
	for i, r := range rows {
		out[i] = &schema.Document{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: chunkMetadata(r.Source, r.Page, r.ChunkIndex),
		}
	}
	return out, nil
}

func (s *PgvectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&ChunkEmbedding{}).Error; err != nil {
		return fmt.Errorf("failed to delete chunk embeddings: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ChunkEmbedding{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ interfaces.VectorStore = (*PgvectorStore)(nil)
