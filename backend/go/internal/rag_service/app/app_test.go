package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/pkg/circuitbreaker"
	"pdfrag/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamBreakerAlwaysEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Middleware.CircuitBreaker = config.CircuitBreakerConfig{Enabled: false, FailureThreshold: 1, Timeout: "1m"}

	b := upstreamBreaker(cfg)
	_, _ = b.Execute(func() (interface{}, error) { return nil, assert.AnError })
	assert.Equal(t, circuitbreaker.Open, b.State())
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	ctx := context.Background()
	log := logger.Nop()

	cfg := config.Default()
	cfg.RecordStore.Driver = "sqlite"
	_, err := New(ctx, cfg, log, Options{})
	require.Error(t, err)

	cfg = config.Default()
	cfg.DocStore.Backend = "etcd"
	_, err = New(ctx, cfg, log, Options{})
	require.Error(t, err)
}

func TestNewRequiresEmbeddingKey(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.OpenAI.APIKey = ""

	_, err := New(context.Background(), cfg, logger.Nop(), Options{})
	require.Error(t, err)
}

func localConfig(t *testing.T) *config.AppConfig {
	cfg := config.Default()
	cfg.Embedding.OpenAI.APIKey = "test"
	cfg.LLM.OpenAI.APIKey = "test"
	cfg.VectorStore.Path = filepath.Join(t.TempDir(), "vectors")
	return cfg
}

func TestNewWiresInMemoryStack(t *testing.T) {
	a, err := New(context.Background(), localConfig(t), logger.Nop(), Options{})
	require.NoError(t, err)
	assert.NotNil(t, a.Service)
	assert.NotNil(t, a.Health)
	assert.Nil(t, a.Kafka)
	require.NoError(t, a.Close())
}

func TestNewReportsVectorIndexFailure(t *testing.T) {
	cfg := localConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.VectorStore.Path = filepath.Join(blocker, "vectors")

	a, err := New(context.Background(), cfg, logger.Nop(), Options{})
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "vector index")
}

func TestCloseRunsClosersInReverse(t *testing.T) {
	var order []int
	errBoom := errors.New("boom")
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errBoom },
		func() error { order = append(order, 3); return nil },
	}}

	err := a.Close()
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.NoError(t, a.Close())
}
