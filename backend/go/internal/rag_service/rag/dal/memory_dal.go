package dal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryDAL keeps records in process memory. Used when recordStore.driver is "memory" and in tests.
// InTx snapshots the table and restores it when fn fails; transactions are serialized.
type MemoryDAL struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	records []*models.DocumentRecord
	now     func() time.Time
}

// NewMemoryDAL creates an empty MemoryDAL.
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{now: time.Now}
}

func (m *MemoryDAL) Create(ctx context.Context, rec *models.DocumentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	for _, r := range m.records {
		if r.ID == rec.ID {
			return ragerr.Wrap(ragerr.ErrStore, fmt.Errorf("duplicate primary key %s", rec.ID))
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.records = append(m.records, cloneRecord(rec))
	return nil
}

func (m *MemoryDAL) List(ctx context.Context) ([]*models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.DocumentRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, cloneRecord(m.records[i]))
	}
	return out, nil
}

func (m *MemoryDAL) Get(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.ID == id {
			return cloneRecord(r), nil
		}
	}
	return nil, fmt.Errorf("document record %s: %w", id, ragerr.ErrNotFound)
}

func (m *MemoryDAL) ListByFilename(ctx context.Context, filename string) ([]*models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.DocumentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Filename == filename {
			out = append(out, cloneRecord(m.records[i]))
		}
	}
	return out, nil
}

func (m *MemoryDAL) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i:i], m.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document record %s: %w", id, ragerr.ErrNotFound)
}

func (m *MemoryDAL) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0:0]
	var n int64
	for _, r := range m.records {
		if r.Filename == filename {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return n, nil
}

func (m *MemoryDAL) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

func (m *MemoryDAL) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryDAL) InTx(ctx context.Context, fn func(tx interfaces.RecordStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := append([]*models.DocumentRecord(nil), m.records...)
	m.mu.RUnlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.records = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneRecord(r *models.DocumentRecord) *models.DocumentRecord {
	c := *r
	c.ChunkIDs = append(datatypes.JSONSlice[string](nil), r.ChunkIDs...)
	return &c
}

var _ interfaces.RecordStore = (*MemoryDAL)(nil)
