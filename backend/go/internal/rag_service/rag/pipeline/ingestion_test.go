package pipeline

import (
	"context"
	"errors"
	"testing"

	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionCommitsMetadataAndIndexes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.ingest.Run(ctx, []schema.UploadFile{upload("a.pdf", pageTexts(3, "alpha")...)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, res.Filenames)
	assert.Equal(t, 1, res.TotalFiles)
	assert.Equal(t, 3, res.TotalChunks)
	assert.Equal(t, UploadMessage, res.Message)

	recs, err := f.records.ListByFilename(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	ids, err := f.docs.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string(recs[0].ChunkIDs), ids)
	assert.Contains(t, f.archive.objects, ArchiveKey(recs[0].ID.String(), "a.pdf"))

	f.queue.Wait()
	for _, id := range ids {
		assert.True(t, f.local.Has(id), id)
	}
	n, err := f.local.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIngestionBatchTotals(t *testing.T) {
	f := newFixture(t)

	res, err := f.ingest.Run(context.Background(), []schema.UploadFile{
		upload("a.pdf", pageTexts(2, "a")...),
		upload("b.pdf", pageTexts(4, "b")...),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, res.Filenames)
	assert.Equal(t, 2, res.TotalFiles)
	assert.Equal(t, 6, res.TotalChunks)
}

func TestIngestionRejectsNonPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.Run(ctx, []schema.UploadFile{{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hi")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrInvalidFormat))

	var fe *ragerr.FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "notes.txt", fe.Filename)

	n, _ := f.records.Count(ctx)
	assert.Zero(t, n)
}

func TestIngestionStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.Run(ctx, []schema.UploadFile{
		upload("good.pdf", "one"),
		{Filename: "bad.docx", ContentType: "application/msword", Data: []byte("x")},
		upload("never.pdf", "two"),
	})
	require.Error(t, err)

	recs, _ := f.records.List(ctx)
	require.Len(t, recs, 1)
	assert.Equal(t, "good.pdf", recs[0].Filename)
	_, err = f.docs.Get(ctx, "never.pdf")
	assert.True(t, errors.Is(err, ragerr.ErrNotFound))
}

func TestIngestionEmptyDocumentIsProcessingError(t *testing.T) {
	f := newFixture(t)

	_, err := f.ingest.Run(context.Background(), []schema.UploadFile{upload("blank.pdf")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrProcessing))
}

func TestIngestionLoaderFailure(t *testing.T) {
	f := newFixture(t)
	f.loader.err = errors.New("corrupt xref table")

	_, err := f.ingest.Run(context.Background(), []schema.UploadFile{upload("a.pdf", "x")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrProcessing))
}

func TestIngestionDocStoreFailureRollsBackRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.docs.upsertErr = errors.New("mongo unreachable")

	_, err := f.ingest.Run(ctx, []schema.UploadFile{upload("a.pdf", "x")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrStore))

	n, _ := f.records.Count(ctx)
	assert.Zero(t, n)
	f.queue.Wait()
	c, _ := f.local.Count(ctx)
	assert.Zero(t, c)
}

func TestIngestionQueueFailureKeepsMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest.queue = failingQueue{}

	_, err := f.ingest.Run(ctx, []schema.UploadFile{upload("a.pdf", "x", "y")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrQueue))

	n, _ := f.records.Count(ctx)
	assert.EqualValues(t, 1, n)
}

func TestIngestionArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.archive.putErr = errors.New("bucket missing")

	res, err := f.ingest.Run(context.Background(), []schema.UploadFile{upload("a.pdf", "x")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalChunks)
}

func TestReuploadGetsFreshIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.ingestAndIndex(t, upload("same.pdf", "one", "two"))
	second := f.ingestAndIndex(t, upload("same.pdf", "one", "two"))

	for _, id := range first {
		assert.NotContains(t, second, id)
	}
	recs, _ := f.records.ListByFilename(ctx, "same.pdf")
	assert.Len(t, recs, 2)
	n, _ := f.local.Count(ctx)
	assert.Equal(t, 4, n)
}

func TestSizeMB(t *testing.T) {
	assert.Equal(t, 0.0, sizeMB(0))
	assert.Equal(t, 1.0, sizeMB(1024*1024))
	assert.Equal(t, 1.5, sizeMB(1024*1024*3/2))
	assert.Equal(t, 0.01, sizeMB(10*1024))
}
