package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentRecord 表示一次成功上传的 PDF 文件。
// 记录在分块完成后一次性写入，之后不会被更新，只会被删除。
type DocumentRecord struct {
	ID        uuid.UUID                   `gorm:"type:char(36);primaryKey" json:"id"`
	Filename  string                      `gorm:"not null;size:512;index" json:"filename"`
	SizeMB    float64                     `gorm:"not null" json:"size_mb"`
	ChunkIDs  datatypes.JSONSlice[string] `gorm:"column:chunks_ids;not null" json:"chunks_ids"`
	CreatedAt time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 固定表名，与已有的数据库结构保持一致。
func (DocumentRecord) TableName() string {
	return "document_records"
}
