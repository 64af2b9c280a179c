package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"testing"

	"pdfrag/backend/go/internal/rag_service/rag/dal"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/queue"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/internal/rag_service/rag/storages/docstore"
	"pdfrag/backend/go/internal/rag_service/rag/storages/vectorstore"
	"pdfrag/backend/go/pkg/logger"

	"github.com/stretchr/testify/require"
)

// pdfBytes starts with the PDF magic so content sniffing accepts it.
func pdfBytes(body string) []byte {
	return []byte("%PDF-1.4\n" + body)
}

// fakeLoader treats each line of the upload after the header as one page.
type fakeLoader struct {
	err error
}

func (l *fakeLoader) Load(ctx context.Context, filename string, data []byte) ([]*schema.Document, error) {
	if l.err != nil {
		return nil, l.err
	}
	lines := strings.Split(string(data), "\n")[1:]
	var pages []*schema.Document
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pages = append(pages, &schema.Document{Text: line, Metadata: map[string]interface{}{
			schema.MetadataKeySource: filename,
			schema.MetadataKeyPage:   i + 1,
		}})
	}
	return pages, nil
}

// pageSplitter returns pages unchanged, one chunk per page.
type pageSplitter struct{}

func (pageSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	return docs, nil
}

// hashEmbedder maps each word to one of 32 buckets.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 32)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			f := fnv.New32a()
			f.Write([]byte(w))
			v[f.Sum32()%32]++
		}
		out[i] = v
	}
	return out, nil
}

// faultyVectors wraps a store and fails the selected operations.
type faultyVectors struct {
	interfaces.VectorStore
	addErr    error
	deleteErr error
	searchErr error
}

func (f *faultyVectors) Add(ctx context.Context, docs []*schema.Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	return f.VectorStore.Add(ctx, docs)
}

func (f *faultyVectors) Delete(ctx context.Context, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.VectorStore.Delete(ctx, ids)
}

func (f *faultyVectors) Search(ctx context.Context, query string, k int) ([]*schema.Document, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.VectorStore.Search(ctx, query, k)
}

// faultyDocs wraps a doc store and fails the selected operations.
type faultyDocs struct {
	interfaces.DocStore
	upsertErr error
	deleteErr error
}

func (f *faultyDocs) Upsert(ctx context.Context, filename string, ids []string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.DocStore.Upsert(ctx, filename, ids)
}

func (f *faultyDocs) Delete(ctx context.Context, filename string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.DocStore.Delete(ctx, filename)
}

// failingQueue rejects every task.
type failingQueue struct{}

func (failingQueue) Enqueue(ctx context.Context, task queue.IndexTask) error {
	return errors.New("broker down")
}
func (failingQueue) Start(ctx context.Context) error { return nil }
func (failingQueue) Wait()                           {}
func (failingQueue) Close() error                    { return nil }

// memArchive records puts and removes.
type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (a *memArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if a.putErr != nil {
		return a.putErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = make(map[string][]byte)
	}
	a.objects[key] = data
	return nil
}

func (a *memArchive) Remove(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	return nil
}

type fixture struct {
	records *dal.MemoryDAL
	docs    *faultyDocs
	local   *vectorstore.LocalStore
	vectors *faultyVectors
	queue   *queue.MemoryQueue
	archive *memArchive
	loader  *fakeLoader

	ingest    *IngestionPipeline
	delete    *DeletionPipeline
	retrieval *RetrievalPipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()

	local, err := vectorstore.NewLocalStore(t.TempDir(), hashEmbedder{})
	require.NoError(t, err)

	f := &fixture{
		records: dal.NewMemoryDAL(),
		docs:    &faultyDocs{DocStore: docstore.NewInMemoryDocStore()},
		local:   local,
		vectors: &faultyVectors{VectorStore: local},
		archive: &memArchive{},
		loader:  &fakeLoader{},
	}
	provider := vectorstore.NewStaticProvider(f.vectors)
	indexer := NewIndexer(provider, f.records, log)
	f.queue = queue.NewMemoryQueue(indexer.Handle, 2, 8, queue.RetryPolicy{MaxAttempts: 1}, log)
	require.NoError(t, f.queue.Start(context.Background()))
	t.Cleanup(func() { _ = f.queue.Close() })

	f.ingest = NewIngestionPipeline(f.loader, pageSplitter{}, f.records, f.docs, f.queue, f.archive, log)
	f.delete = NewDeletionPipeline(f.records, f.docs, provider, f.archive, log)
	f.retrieval = NewRetrievalPipeline(provider, nil, log)
	return f
}

func upload(name string, pages ...string) schema.UploadFile {
	return schema.UploadFile{
		Filename:    name,
		ContentType: "application/pdf",
		Data:        pdfBytes(strings.Join(pages, "\n")),
	}
}

// ingestAndIndex uploads one file and waits for its vectors.
func (f *fixture) ingestAndIndex(t *testing.T, file schema.UploadFile) []string {
	t.Helper()
	_, err := f.ingest.Run(context.Background(), []schema.UploadFile{file})
	require.NoError(t, err)
	f.queue.Wait()

	ids, err := f.docs.Get(context.Background(), file.Filename)
	require.NoError(t, err)
	return ids
}

func pageTexts(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s page %d", prefix, i+1)
	}
	return out
}
