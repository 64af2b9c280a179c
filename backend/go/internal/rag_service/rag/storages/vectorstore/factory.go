package vectorstore

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/database/milvus"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/pkg/logger"

	"gorm.io/gorm"
)

// milvusStoreCloser ties the store to the client it owns so Provider.Close releases the connection.
type milvusStoreCloser struct {
	*MilvusStore
	client *milvus.MilvusClient
}

func (m *milvusStoreCloser) Close() error {
	return m.client.Close(context.Background())
}

// NewFactory returns the Factory for vectorStore.backend. db is only used by the pgvector backend
// and must be a PostgreSQL connection.
func NewFactory(cfg *config.AppConfig, emb interfaces.EmbeddingModel, db *gorm.DB, log *logger.Logger) (Factory, error) {
	switch cfg.VectorStore.Backend {
	case "", "local":
		path := cfg.VectorStore.Path
		return func(ctx context.Context) (interfaces.VectorStore, error) {
			return NewLocalStore(path, emb)
		}, nil
	case "milvus":
		milvusCfg := cfg.Databases.Milvus
		return func(ctx context.Context) (interfaces.VectorStore, error) {
			client, err := milvus.NewClient(ctx, &milvusCfg)
			if err != nil {
				return nil, err
			}
			store, err := NewMilvusStore(ctx, client, emb, log)
			if err != nil {
				_ = client.Client.Close()
				return nil, err
			}
			return &milvusStoreCloser{MilvusStore: store, client: client}, nil
		}, nil
	case "chroma":
		chromaCfg := cfg.Databases.Chroma
		return func(ctx context.Context) (interfaces.VectorStore, error) {
			return NewChromaStore(ctx, &chromaCfg, emb)
		}, nil
	case "pgvector":
		if db == nil || cfg.RecordStore.Driver != "postgres" {
			return nil, fmt.Errorf("pgvector backend requires recordStore.driver postgres")
		}
		return func(ctx context.Context) (interfaces.VectorStore, error) {
			return NewPgvectorStore(ctx, db, emb)
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.VectorStore.Backend)
	}
}
