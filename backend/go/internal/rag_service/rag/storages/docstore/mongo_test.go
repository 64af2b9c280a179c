package docstore

import (
	"context"
	"os"
	"testing"

	"pdfrag/backend/go/internal/config"
	mongodb "pdfrag/backend/go/internal/database/mongo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMongoDocStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := mongodb.NewClient(ctx, &config.MongoConfig{Address: uri})
	require.NoError(t, err)
	defer mongodb.Close(ctx, client)

	dbName := "pdfrag_test_" + uuid.NewString()[:8]
	defer client.Database(dbName).Drop(ctx)

	s, err := NewMongoDocStore(ctx, client, dbName, "documents")
	require.NoError(t, err)
	exerciseDocStore(t, s)
}
