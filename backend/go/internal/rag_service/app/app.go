// Package app wires the RAG service components from config. Every cmd entry point shares it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"pdfrag/backend/go/internal/config"
	kafkadb "pdfrag/backend/go/internal/database/kafka"
	miniodb "pdfrag/backend/go/internal/database/minio"
	mongodb "pdfrag/backend/go/internal/database/mongo"
	"pdfrag/backend/go/internal/database/mysql"
	"pdfrag/backend/go/internal/database/postgres"
	redisdb "pdfrag/backend/go/internal/database/redis"
	"pdfrag/backend/go/internal/embedding"
	"pdfrag/backend/go/internal/llm"
	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/health"
	"pdfrag/backend/go/internal/rag_service/rag/archive"
	"pdfrag/backend/go/internal/rag_service/rag/dal"
	"pdfrag/backend/go/internal/rag_service/rag/embeddings"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/llms"
	"pdfrag/backend/go/internal/rag_service/rag/loaders"
	"pdfrag/backend/go/internal/rag_service/rag/pipeline"
	"pdfrag/backend/go/internal/rag_service/rag/queue"
	"pdfrag/backend/go/internal/rag_service/rag/rerankers"
	"pdfrag/backend/go/internal/rag_service/rag/splitters"
	"pdfrag/backend/go/internal/rag_service/rag/storages/docstore"
	"pdfrag/backend/go/internal/rag_service/rag/storages/vectorstore"
	"pdfrag/backend/go/internal/rag_service/service"
	"pdfrag/backend/go/pkg/circuitbreaker"
	pkghttp "pdfrag/backend/go/pkg/http"
	"pdfrag/backend/go/pkg/logger"

	"gorm.io/gorm"
)

// Options tweaks how New wires the components.
type Options struct {
	// Consumer consumes Kafka index tasks even when queue.inProcessWorker is false.
	Consumer bool
}

// App holds the wired components and the resources released by Close.
type App struct {
	Config   *config.AppConfig
	Log      *logger.Logger
	Service  *service.Service
	Health   *health.Checker
	Provider *vectorstore.Provider
	Queue    queue.Queue
	Indexer  *pipeline.Indexer
	Kafka    *kafkadb.KafkaClient // nil unless the queue backend is kafka

	closers []func() error
}

// New builds every component from cfg. The vector index is connected once here, so a
// backend that cannot be reached fails startup. Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.AppConfig, log *logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.wire(ctx, opts); err != nil {
		if cerr := a.Close(); cerr != nil {
			log.WithError(models.NewErrorInfo(cerr, "close_error")).Warn("failed to release resources after startup error")
		}
		return nil, err
	}

	log.With("vector_store", cfg.VectorStore.Backend).
		With("doc_store", cfg.DocStore.Backend).
		With("record_store", cfg.RecordStore.Driver).
		With("queue", cfg.Queue.Backend).
		Info("RAG components wired")
	return a, nil
}

func (a *App) wire(ctx context.Context, opts Options) error {
	cfg, log := a.Config, a.Log

	// 1. Relational records
	records, db, err := a.openRecords(ctx)
	if err != nil {
		return err
	}

	// 2. Document store
	docs, err := a.openDocStore(ctx)
	if err != nil {
		return err
	}

	// 3. Models
	embClient, err := embedding.NewEmdModel(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	a.closeIfCloser(embClient)
	embAdapter := embeddings.NewAdapter(embClient,
		embeddings.WithBreaker(upstreamBreaker(cfg)),
		embeddings.WithQueryCache(cfg.Embedding.CacheSize, config.Duration(cfg.Embedding.CacheTTL, 10*time.Minute)),
	)

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closeIfCloser(llmClient)
	llmAdapter := llms.NewAdapter(llmClient, upstreamBreaker(cfg))

	// 4. Vector index
	factory, err := vectorstore.NewFactory(cfg, embAdapter, db, log)
	if err != nil {
		return err
	}
	a.Provider = vectorstore.NewProvider(factory)
	a.closers = append(a.closers, a.Provider.Close)
	if _, err := a.Provider.Get(ctx); err != nil {
		return fmt.Errorf("failed to initialize vector index: %w", err)
	}

	// 5. Indexing queue
	a.Indexer = pipeline.NewIndexer(a.Provider, records, log)
	if err := a.openQueue(ctx, opts); err != nil {
		return err
	}

	// 6. Upload archive
	var arch interfaces.Archive
	if cfg.Archive.Enabled {
		client, err := miniodb.NewClient(ctx, &cfg.Databases.MinIO)
		if err != nil {
			return err
		}
		arch = archive.NewMinIOArchive(client, cfg.Databases.MinIO.Bucket)
	}

	// 7. Pipelines
	splitter, err := splitters.New(cfg.RAG)
	if err != nil {
		return err
	}
	var reranker interfaces.Reranker
	if cfg.RAG.Rerank.Enabled {
		client, err := pkghttp.NewClient(cfg.Middleware.CircuitBreaker, 30*time.Second)
		if err != nil {
			return err
		}
		reranker = rerankers.NewCohereReranker(client, cfg.RAG.Rerank.APIKey, cfg.RAG.Rerank.Model, cfg.RAG.Rerank.TopN, rerankers.DefaultCohereURL)
	}

	a.Service = service.New(service.Deps{
		Ingestion: pipeline.NewIngestionPipeline(loaders.NewPdfLoader(), splitter, records, docs, a.Queue, arch, log),
		Deletion:  pipeline.NewDeletionPipeline(records, docs, a.Provider, arch, log),
		Retrieval: pipeline.NewRetrievalPipeline(a.Provider, reranker, log),
		QA:        pipeline.NewQAPipeline(llmAdapter, log),
		Records:   records,
		Docs:      docs,
		TopK:      cfg.RAG.TopK,
		Log:       log,
	})
	a.Health = health.NewChecker(cfg, records, docs, a.Provider, llmAdapter, log)
	return nil
}

// Start launches the indexing queue consumers.
func (a *App) Start(ctx context.Context) error {
	return a.Queue.Start(ctx)
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openRecords(ctx context.Context) (interfaces.RecordStore, *gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch a.Config.RecordStore.Driver {
	case "", "memory":
		a.Log.Warn("using in-memory record store, records are lost on restart")
		return dal.NewMemoryDAL(), nil, nil
	case "mysql":
		db, err = mysql.Open(&a.Config.Databases.MySQL)
		if err == nil {
			a.closers = append(a.closers, func() error { return mysql.Close(db) })
		}
	case "postgres":
		db, err = postgres.Open(&a.Config.Databases.Postgres)
		if err == nil {
			a.closers = append(a.closers, func() error { return postgres.Close(db) })
		}
	default:
		return nil, nil, fmt.Errorf("unknown record store driver %q", a.Config.RecordStore.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	store := dal.NewDocumentDAL(db)
	if err := store.AutoMigrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate document_records: %w", err)
	}
	return store, db, nil
}

func (a *App) openDocStore(ctx context.Context) (interfaces.DocStore, error) {
	switch a.Config.DocStore.Backend {
	case "", "memory":
		return docstore.NewInMemoryDocStore(), nil
	case "mongo":
		mcfg := a.Config.Databases.MongoDB
		client, err := mongodb.NewClient(ctx, &mcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return mongodb.Close(context.Background(), client) })
		store, err := docstore.NewMongoDocStore(ctx, client, mcfg.Database, mcfg.Collection)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		rcfg := a.Config.Databases.Redis
		client, err := redisdb.NewClient(ctx, &rcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return docstore.NewRedisDocStore(client, rcfg.Key), nil
	default:
		return nil, fmt.Errorf("unknown document store backend %q", a.Config.DocStore.Backend)
	}
}

func (a *App) openQueue(ctx context.Context, opts Options) error {
	qcfg := a.Config.Queue
	policy := queue.RetryPolicy{
		MaxAttempts: qcfg.MaxAttempts,
		Backoff:     config.Duration(qcfg.Backoff, 500*time.Millisecond),
	}

	switch qcfg.Backend {
	case "", "memory":
		q := queue.NewMemoryQueue(a.Indexer.Handle, qcfg.Workers, qcfg.Buffer, policy, a.Log)
		a.Queue = q
		a.closers = append(a.closers, q.Close)
		return nil
	case "kafka":
		consume := opts.Consumer || qcfg.InProcessWorker
		client, err := kafkadb.NewClient(ctx, &a.Config.Databases.Kafka, consume)
		if err != nil {
			return err
		}
		a.Kafka = client
		a.closers = append(a.closers, client.Close)

		// A producer-only process passes a nil interface, not a nil *kafka.Reader.
		var reader queue.MessageReader
		if consume && client.Reader != nil {
			reader = client.Reader
		}
		q := queue.NewKafkaQueue(client.Writer, reader, a.Indexer.Handle, policy, a.Log)
		a.Queue = q
		a.closers = append(a.closers, q.Close)
		return nil
	default:
		return fmt.Errorf("unknown queue backend %q", qcfg.Backend)
	}
}

func (a *App) closeIfCloser(v interface{}) {
	if c, ok := v.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
}

// upstreamBreaker guards model calls. It is always enabled and reuses the middleware thresholds.
func upstreamBreaker(cfg *config.AppConfig) circuitbreaker.CircuitBreaker {
	cb := cfg.Middleware.CircuitBreaker
	cb.Enabled = true
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}
	if cb.SuccessThreshold == 0 {
		cb.SuccessThreshold = 1
	}
	return circuitbreaker.New(cb.FailureThreshold, cb.SuccessThreshold, config.Duration(cb.Timeout, 30*time.Second))
}

// LogError logs a startup failure in the cmd entry points.
func LogError(log *logger.Logger, err error, msg string) {
	log.WithError(models.NewErrorInfo(err, "startup_error")).Error(msg)
}
