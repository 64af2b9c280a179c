package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
)

const localIndexFile = "index.json"

type localEntry struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	Page       int64     `json:"page"`
	ChunkIndex int64     `json:"chunk_index"`
	Vector     []float32 `json:"vector"`
}

// LocalStore is a brute-force cosine index persisted as one JSON file under dir.
// Every mutation rewrites the file atomically, so a crash leaves either the old or the new snapshot.
type LocalStore struct {
	mu      sync.RWMutex
	dir     string
	emb     interfaces.EmbeddingModel
	entries map[string]*localEntry
}

// NewLocalStore opens (or creates) the index under dir.
func NewLocalStore(dir string, emb interfaces.EmbeddingModel) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("vector store path is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector store dir %s: %w", dir, err)
	}

	s := &LocalStore{dir: dir, emb: emb, entries: make(map[string]*localEntry)}
	raw, err := os.ReadFile(filepath.Join(dir, localIndexFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read vector index: %w", err)
	}

	var entries []*localEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("vector index %s is corrupt: %w", dir, err)
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s, nil
}

func (s *LocalStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	vectors, err := embedDocs(ctx, s.emb, docs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range docs {
		s.entries[d.ID] = &localEntry{
			ID:         d.ID,
			Text:       d.Text,
			Source:     metaString(d.Metadata, schema.MetadataKeySource),
			Page:       metaInt(d.Metadata, schema.MetadataKeyPage),
			ChunkIndex: metaInt(d.Metadata, schema.MetadataKeyChunkIndex),
			Vector:     vectors[i],
		}
	}
	return s.persistLocked()
}

func (s *LocalStore) Search(ctx context.Context, query string, k int) ([]*schema.Document, error) {
	if k <= 0 {
		return []*schema.Document{}, nil
	}
	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty {
		return []*schema.Document{}, nil
	}

	q, err := embedQuery(ctx, s.emb, query)
	if err != nil {
		return nil, err
	}

	type scored struct {
		e     *localEntry
		score float32
	}

	s.mu.RLock()
	hits := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		hits = append(hits, scored{e: e, score: cosine(q, e.Vector)})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score == hits[j].score {
			return hits[i].e.ID < hits[j].e.ID
		}
		return hits[i].score > hits[j].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]*schema.Document, len(hits))
	for i, h := range hits {
		out[i] = &schema.Document{
			ID:       h.e.ID,
			Text:     h.e.Text,
			Score:    h.score,
			Metadata: chunkMetadata(h.e.Source, h.e.Page, h.e.ChunkIndex),
		}
	}
	return out, nil
}

func (s *LocalStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range ids {
		if _, ok := s.entries[id]; ok {
			delete(s.entries, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.persistLocked()
}

func (s *LocalStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Has reports whether id is indexed.
func (s *LocalStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

func (s *LocalStore) persistLocked() error {
	entries := make([]*localEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, localIndexFile+".*")
	if err != nil {
		return fmt.Errorf("failed to write vector index: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write vector index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write vector index: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, localIndexFile)); err != nil {
		return fmt.Errorf("failed to replace vector index: %w", err)
	}
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ interfaces.VectorStore = (*LocalStore)(nil)
