package dal

import (
	"context"
	"errors"
	"fmt"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentDAL provides data access methods for uploaded document records.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a new DocumentDAL.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// AutoMigrate creates or updates the document_records table.
func (dal *DocumentDAL) AutoMigrate(ctx context.Context) error {
	return dal.db.WithContext(ctx).AutoMigrate(&models.DocumentRecord{})
}

// Create inserts rec, assigning an id when it has none.
func (dal *DocumentDAL) Create(ctx context.Context, rec *models.DocumentRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := dal.db.WithContext(ctx).Create(rec).Error; err != nil {
		return ragerr.Wrap(ragerr.ErrStore, err)
	}
	return nil
}

// List returns all records, newest first.
func (dal *DocumentDAL) List(ctx context.Context) ([]*models.DocumentRecord, error) {
	var records []*models.DocumentRecord
	result := dal.db.WithContext(ctx).Order("created_at DESC").Find(&records)
	if result.Error != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, result.Error)
	}
	return records, nil
}

// Get fetches a record by id.
func (dal *DocumentDAL) Get(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error) {
	var rec models.DocumentRecord
	err := dal.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document record %s: %w", id, ragerr.ErrNotFound)
	}
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	return &rec, nil
}

// ListByFilename returns every record uploaded under filename.
func (dal *DocumentDAL) ListByFilename(ctx context.Context, filename string) ([]*models.DocumentRecord, error) {
	var records []*models.DocumentRecord
	result := dal.db.WithContext(ctx).Where("filename = ?", filename).Order("created_at DESC").Find(&records)
	if result.Error != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, result.Error)
	}
	return records, nil
}

// Delete removes a record by id.
func (dal *DocumentDAL) Delete(ctx context.Context, id uuid.UUID) error {
	result := dal.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DocumentRecord{})
	if result.Error != nil {
		return ragerr.Wrap(ragerr.ErrStore, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document record %s: %w", id, ragerr.ErrNotFound)
	}
	return nil
}

// DeleteByFilename removes every record uploaded under filename and reports how many went.
func (dal *DocumentDAL) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	result := dal.db.WithContext(ctx).Where("filename = ?", filename).Delete(&models.DocumentRecord{})
	if result.Error != nil {
		return 0, ragerr.Wrap(ragerr.ErrStore, result.Error)
	}
	return result.RowsAffected, nil
}

// Count runs SELECT COUNT(*) on document_records.
func (dal *DocumentDAL) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := dal.db.WithContext(ctx).Model(&models.DocumentRecord{}).Count(&n).Error; err != nil {
		return 0, ragerr.Wrap(ragerr.ErrStore, err)
	}
	return n, nil
}

// Ping checks the underlying connection pool.
func (dal *DocumentDAL) Ping(ctx context.Context) error {
	sqlDB, err := dal.db.DB()
	if err != nil {
		return ragerr.Wrap(ragerr.ErrStore, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return ragerr.Wrap(ragerr.ErrStore, err)
	}
	return nil
}

// InTx runs fn inside one gorm transaction. The transaction commits only when fn returns nil.
func (dal *DocumentDAL) InTx(ctx context.Context, fn func(tx interfaces.RecordStore) error) error {
	return dal.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentDAL{db: tx})
	})
}

var _ interfaces.RecordStore = (*DocumentDAL)(nil)
